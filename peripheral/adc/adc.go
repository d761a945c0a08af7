// Package adc samples the analog inputs of the STM32H7 without blocking. A
// conversion is started by Sample, which returns how long to wait before
// asking again, and its result is collected with Read once Sample reports it
// ready.
package adc

import (
	"fmt"

	"golang.org/x/exp/slices"

	"omibyte.io/h7boot/constant"
	"omibyte.io/h7boot/mmio"
	"omibyte.io/h7boot/peripheral"
	"omibyte.io/h7boot/peripheral/pin"
	"omibyte.io/h7boot/runtime/arm/cortexm"
	"omibyte.io/h7boot/runtime/arm/cortexm/stm32/stm32h7"
)

// Max is the full scale value of a conversion, published as ADC_MAX.
const Max constant.Fixed = 65535

// Channels is the number of input channels of an instance.
const Channels = 20

// RetryMicros is how long a caller should wait before sampling again.
const RetryMicros = 20

// Instance is one ADC and the GPIO bonded to each of its input channels. An
// empty name marks a channel with no GPIO.
type Instance struct {
	Name   string
	Base   uintptr
	Common uintptr
	Inputs [Channels]string
}

// Instances is searched in order. Pins wired to several ADCs use the first,
// so ADC2 only serves PF13 and PF14.
var Instances = []*Instance{
	{
		Name:   "ADC1",
		Base:   stm32h7.ADC1Base,
		Common: stm32h7.ADC12Common,
		Inputs: [Channels]string{
			"", "", "PF11", "PA6", "PC4", "PB1", "PF12", "PA7", "PC5", "PB0",
			"PC0", "PC1", "PC2", "PC3", "PA2", "PA3", "PA0", "PA1", "PA4", "PA5",
		},
	},
	{
		Name:   "ADC2",
		Base:   stm32h7.ADC2Base,
		Common: stm32h7.ADC12Common,
		Inputs: [Channels]string{
			"", "", "PF13", "PA6", "PC4", "PB1", "PF14", "PA7", "PC5", "PB0",
			"PC0", "PC1", "PC2", "PC3", "PA2", "PA3", "", "", "PA4", "PA5",
		},
	},
	{
		Name:   "ADC3",
		Base:   stm32h7.ADC3Base,
		Common: stm32h7.ADC3Common,
		Inputs: [Channels]string{
			"", "", "PF9", "PF7", "PF5", "PF3", "PF10", "PF8", "PF6", "PF4",
			"PC0", "PC1", "PC2", "PH2", "PH3", "PH4", "PH5", "", "", "",
		},
	},
}

// Lookup returns the instance and input channel of p.
func Lookup(p pin.Pin) (*Instance, uint32, bool) {
	name := p.String()
	for _, inst := range Instances {
		if ch := slices.Index(inst.Inputs[:], name); ch >= 0 {
			return inst, uint32(ch), true
		}
	}
	return nil, 0, false
}

// Engine owns every ADC instance of the chip.
type Engine struct {
	platform *stm32h7.Platform
	gpio     *pin.GPIO
	retry    uint32
}

// New claims the ADC instances of p. Only one engine can exist per platform.
func New(p *stm32h7.Platform, gpio *pin.GPIO) (*Engine, error) {
	for _, inst := range Instances {
		if err := p.Claim(inst.Base); err != nil {
			return nil, err
		}
	}
	if err := p.Constants.Fixed("ADC_MAX", Max); err != nil {
		return nil, err
	}
	return &Engine{
		platform: p,
		gpio:     gpio,
		retry:    p.Timebase().FromMicros(RetryMicros),
	}, nil
}

type registers struct {
	ISR   mmio.Register32
	CR    mmio.Register32
	CFGR  mmio.Register32
	SMPR1 mmio.Register32
	SMPR2 mmio.Register32
	PCSEL mmio.Register32
	SQR1  mmio.Register32
	DR    mmio.Register32
	CCR   mmio.Register32
}

func (e *Engine) registers(inst *Instance) registers {
	bus := e.platform.Bus
	return registers{
		ISR:   mmio.Reg32(bus, inst.Base+adcISR),
		CR:    mmio.Reg32(bus, inst.Base+adcCR),
		CFGR:  mmio.Reg32(bus, inst.Base+adcCFGR),
		SMPR1: mmio.Reg32(bus, inst.Base+adcSMPR1),
		SMPR2: mmio.Reg32(bus, inst.Base+adcSMPR2),
		PCSEL: mmio.Reg32(bus, inst.Base+adcPCSEL),
		SQR1:  mmio.Reg32(bus, inst.Base+adcSQR1),
		DR:    mmio.Reg32(bus, inst.Base+adcDR),
		CCR:   mmio.Reg32(bus, inst.Common+adcCommonCCR),
	}
}

// Setup prepares p for sampling. The first pin of an instance powers up and
// calibrates it. A pin with no ADC input is a fatal configuration error.
func (e *Engine) Setup(p pin.Pin) (Channel, error) {
	inst, ch, ok := Lookup(p)
	if !ok {
		e.platform.Shutdown("Not a valid ADC pin")
		return Channel{}, fmt.Errorf("%w: %s", peripheral.ErrInvalidADCPin, p)
	}

	r := e.registers(inst)
	clocks := e.platform.Clocks
	if !clocks.IsEnabled(inst.Base) {
		// Enable clock source for ADC
		clocks.Enable(inst.Base)

		// Run the ADC kernel clock from per_ck divided by 2
		mmio.Reg32(e.platform.Bus, stm32h7.RCCBase+stm32h7.RCC_D3CCIPR).ReplaceBits(
			stm32h7.RCC_D3CCIPR_ADCSEL_PERCK, stm32h7.RCC_D3CCIPR_ADCSEL_Msk, stm32h7.RCC_D3CCIPR_ADCSEL_Pos)
		r.CCR.ReplaceBits(ADC_CCR_PRESC_DIV2, ADC_CCR_PRESC_Msk, ADC_CCR_PRESC_Pos)
	}

	// ADC1 and ADC2 share one clock gate, so power state is per instance
	if r.CR.HasBits(ADC_CR_DEEPPWD) || !r.CR.HasBits(ADC_CR_ADEN) {
		calibrate(r)
	}

	r.PCSEL.SetBits(1 << ch)
	e.gpio.Configure(p, pin.Mode{Function: pin.Analog}, pin.PullNone)

	return Channel{
		engine:   e,
		instance: inst,
		pin:      p,
		channel:  ch,
	}, nil
}

func calibrate(r registers) {
	// Leave deep power down and start the voltage regulator
	r.CR.ClearBits(ADC_CR_DEEPPWD)
	r.CR.SetBits(ADC_CR_ADVREGEN)

	// Single ended calibration including linearity
	r.CR.ClearBits(ADC_CR_ADCALDIF)
	r.CR.SetBits(ADC_CR_ADCALLIN)
	r.CR.SetBits(ADC_CR_ADCAL)

	// Wait for the calibration
	for r.CR.HasBits(ADC_CR_ADCAL) {
	}

	r.SMPR1.Set(sampleTime)
	r.SMPR2.Set(sampleTime)

	// Single conversion mode
	r.CFGR.ClearBits(ADC_CFGR_CONT)
	r.CR.SetBits(ADC_CR_ADEN)
}

// Channel is one analog input set up for sampling.
type Channel struct {
	engine   *Engine
	instance *Instance
	pin      pin.Pin
	channel  uint32
}

func (c Channel) Instance() string { return c.instance.Name }
func (c Channel) Number() uint32   { return c.channel }
func (c Channel) Pin() pin.Pin     { return c.pin }

// armed reports whether the conversion sequence holds only this channel.
func (c Channel) armed(r registers) bool {
	sqr1 := r.SQR1.Get()
	return sqr1&ADC_SQR1_L_Msk == 0 && sqr1>>ADC_SQR1_SQ1_Pos&ADC_SQR1_SQ1_Msk == c.channel
}

// Sample returns ready once a conversion of this channel has completed.
// Otherwise it starts one if the instance is idle and returns the number of
// timer ticks to wait before sampling again. A completed result must be
// consumed by Read before the instance starts another conversion.
func (c Channel) Sample() (wait uint32, ready bool) {
	r := c.engine.registers(c.instance)
	if r.ISR.HasBits(ADC_ISR_EOC) {
		if c.armed(r) {
			return 0, true
		}
		// Another channel has not collected its result yet
		return c.engine.retry, false
	}
	if r.CR.HasBits(ADC_CR_ADSTART) {
		// Conversion in progress
		return c.engine.retry, false
	}

	// Start sample
	r.SQR1.Set(c.channel << ADC_SQR1_SQ1_Pos)
	r.CR.SetBits(ADC_CR_ADSTART)
	return c.engine.retry, false
}

// Read returns the last conversion result. It is only meaningful after Sample
// has reported ready. Reading clears the end of conversion flag.
func (c Channel) Read() uint16 {
	return uint16(c.engine.registers(c.instance).DR.Get())
}

// Cancel abandons a conversion of this channel, discarding its result.
func (c Channel) Cancel() {
	r := c.engine.registers(c.instance)
	cortexm.Critical(c.engine.platform.Core, func() {
		if !c.armed(r) {
			return
		}
		if r.CR.HasBits(ADC_CR_ADSTART) {
			r.CR.SetBits(ADC_CR_ADSTP)
		} else if !r.ISR.HasBits(ADC_ISR_EOC) {
			return
		}
		r.DR.Get()
	})
}

// Poll samples the channel and reads the result when it is ready. If ok is
// false the caller should poll again after wait ticks.
func (c Channel) Poll() (value uint16, wait uint32, ok bool) {
	wait, ready := c.Sample()
	if !ready {
		return 0, wait, false
	}
	return c.Read(), 0, true
}
