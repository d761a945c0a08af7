package sim

import (
	"github.com/golang/glog"
)

// ADC register offsets and bits used by the model.
const (
	adcISR  = 0x00
	adcCR   = 0x08
	adcSQR1 = 0x30
	adcDR   = 0x40

	adcISRADRDY = 0x1 << 0
	adcISREOC   = 0x1 << 2
	adcISREOS   = 0x1 << 3
	adcISROVR   = 0x1 << 4

	adcCRADEN    = 0x1 << 0
	adcCRADSTART = 0x1 << 2
	adcCRADSTP   = 0x1 << 4
	adcCRDEEPPWD = 0x1 << 29
	adcCRADCAL   = 0x1 << 31
)

const (
	// CalibrationPolls is the number of reads of ADC_CR a calibration takes.
	CalibrationPolls = 4
	// ConversionTicks is the duration of one conversion in core clock ticks.
	ConversionTicks = 6000
)

// ADC models one instance: calibration, single conversions of the first
// sequence entry and the end of conversion flag.
type ADC struct {
	Name string
	Base uintptr

	mem         *Memory
	inputs      [20]uint16
	calibrating int
	remaining   int64
	channel     uint32

	// Calibrations counts started calibrations.
	Calibrations int
	// Conversions counts completed conversions.
	Conversions int
	// Overlaps counts conversions started or resequenced while one was
	// running.
	Overlaps int
	// Converted records the channel of every completed conversion.
	Converted []uint32
}

func newADC(mem *Memory, name string, base uintptr) *ADC {
	a := &ADC{Name: name, Base: base, mem: mem}
	mem.OnStore(base+adcCR, a.storeCR)
	mem.OnLoad(base+adcCR, a.loadCR)
	mem.OnStore(base+adcSQR1, a.storeSQR1)
	mem.OnLoad(base+adcDR, a.loadDR)
	return a
}

func (a *ADC) resetValues(values map[uintptr]uint32) {
	values[a.Base+adcCR] = adcCRDEEPPWD
}

func (a *ADC) storeCR(old, value uint32) uint32 {
	if value&adcCRADCAL != 0 && old&adcCRADCAL == 0 {
		a.Calibrations++
		a.calibrating = CalibrationPolls
		glog.V(2).Infof("sim: %s calibrating", a.Name)
	}

	if value&adcCRADEN != 0 {
		a.mem.poke(a.Base+adcISR, a.mem.peek(a.Base+adcISR)|adcISRADRDY)
	}

	if value&adcCRADSTP != 0 {
		// Stop the conversion in progress
		a.remaining = 0
		return value &^ (adcCRADSTP | adcCRADSTART)
	}

	if value&adcCRADSTART != 0 {
		if old&adcCRADSTART != 0 {
			return value
		}
		if value&adcCRADEN == 0 {
			return value &^ adcCRADSTART
		}
		a.channel = a.mem.peek(a.Base+adcSQR1) >> 6 & 0x1F
		a.remaining = ConversionTicks
	}
	return value
}

func (a *ADC) loadCR(value uint32) uint32 {
	if value&adcCRADCAL == 0 {
		return value
	}
	if a.calibrating--; a.calibrating <= 0 {
		return value &^ adcCRADCAL
	}
	return value
}

func (a *ADC) storeSQR1(old, value uint32) uint32 {
	if a.remaining > 0 && value != old {
		a.Overlaps++
	}
	return value
}

func (a *ADC) loadDR(value uint32) uint32 {
	isr := a.mem.peek(a.Base + adcISR)
	a.mem.poke(a.Base+adcISR, isr&^adcISREOC)
	return value
}

// SetInput sets the value the next conversion of channel returns.
func (a *ADC) SetInput(channel uint32, value uint16) {
	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()
	a.inputs[channel] = value
}

// Converting reports whether a conversion is running.
func (a *ADC) Converting() bool {
	a.mem.mu.Lock()
	defer a.mem.mu.Unlock()
	return a.remaining > 0
}

// advance runs the conversion in progress for ticks. The memory must be
// locked.
func (a *ADC) advance(ticks int64) {
	if a.remaining <= 0 {
		return
	}
	if a.remaining -= ticks; a.remaining > 0 {
		return
	}
	a.remaining = 0

	isr := a.mem.peek(a.Base + adcISR)
	if isr&adcISREOC != 0 {
		// The previous result was never read
		isr |= adcISROVR
	}
	var value uint16
	if int(a.channel) < len(a.inputs) {
		value = a.inputs[a.channel]
	}
	a.mem.poke(a.Base+adcDR, uint32(value))
	a.mem.poke(a.Base+adcISR, isr|adcISREOC|adcISREOS)
	a.mem.poke(a.Base+adcCR, a.mem.peek(a.Base+adcCR)&^adcCRADSTART)

	a.Conversions++
	a.Converted = append(a.Converted, a.channel)
	glog.V(2).Infof("sim: %s channel %d converted %d", a.Name, a.channel, value)
}

func (a *ADC) reset() {
	a.calibrating = 0
	a.remaining = 0
	a.channel = 0
	a.Calibrations = 0
	a.Conversions = 0
	a.Overlaps = 0
	a.Converted = nil
}
