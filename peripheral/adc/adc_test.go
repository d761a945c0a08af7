package adc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"omibyte.io/h7boot/mmio"
	"omibyte.io/h7boot/peripheral"
	"omibyte.io/h7boot/peripheral/adc"
	"omibyte.io/h7boot/peripheral/pin"
	"omibyte.io/h7boot/runtime/arm/cortexm/stm32/stm32h7"
	"omibyte.io/h7boot/sim"
	"omibyte.io/h7boot/targets"
)

const (
	isr   = 0x00
	cr    = 0x08
	cfgr  = 0x0C
	smpr1 = 0x14
	smpr2 = 0x18
	pcsel = 0x1C
	sqr1  = 0x30
)

type fixture struct {
	chip     *sim.Chip
	platform *stm32h7.Platform
	gpio     *pin.GPIO
	engine   *adc.Engine
	reasons  []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	board, err := targets.All().Find("generic-h743")
	require.NoError(t, err)
	cfg, err := board.Config()
	require.NoError(t, err)

	f := &fixture{chip: sim.NewH743()}
	f.platform, err = stm32h7.New(f.chip.Memory, f.chip.Core, cfg, func() {}, func(reason string) {
		f.reasons = append(f.reasons, reason)
	})
	require.NoError(t, err)

	f.gpio = pin.NewGPIO(f.chip.Memory, f.platform.Clocks)
	f.engine, err = adc.New(f.platform, f.gpio)
	require.NoError(t, err)
	return f
}

func (f *fixture) setup(t *testing.T, name string) adc.Channel {
	t.Helper()
	ch, err := f.engine.Setup(pin.MustParse(name))
	require.NoError(t, err)
	return ch
}

func (f *fixture) reg(base, offset uintptr) uint32 {
	return f.chip.Memory.Peek(base + offset)
}

func TestLookup(t *testing.T) {
	tests := []struct {
		pin      string
		instance string
		channel  uint32
	}{
		{"PA3", "ADC1", 15},
		{"PF11", "ADC1", 2},
		{"PA5", "ADC1", 19},
		{"PC0", "ADC1", 10},
		{"PF13", "ADC2", 2},
		{"PF14", "ADC2", 6},
		{"PF9", "ADC3", 2},
		{"PH2", "ADC3", 13},
		{"PH5", "ADC3", 16},
	}

	for _, tt := range tests {
		t.Run(tt.pin, func(t *testing.T) {
			inst, ch, ok := adc.Lookup(pin.MustParse(tt.pin))
			require.True(t, ok)
			require.Equal(t, tt.instance, inst.Name)
			require.Equal(t, tt.channel, ch)
		})
	}

	for _, name := range []string{"PA8", "PB2", "PK0"} {
		_, _, ok := adc.Lookup(pin.MustParse(name))
		require.False(t, ok, name)
	}
}

func TestNew(t *testing.T) {
	f := newFixture(t)

	c, ok := f.platform.Constants.Lookup("ADC_MAX")
	require.True(t, ok)
	require.True(t, c.Numeric)
	require.Equal(t, "65.535", c.Value)

	// One engine owns the instances
	_, err := adc.New(f.platform, f.gpio)
	require.ErrorIs(t, err, peripheral.ErrAlreadyClaimed)
}

func TestSetup(t *testing.T) {
	f := newFixture(t)
	adc1 := f.chip.ADC(stm32h7.ADC1Base)
	clocks := f.platform.Clocks
	require.False(t, clocks.IsEnabled(stm32h7.ADC1Base))

	ch := f.setup(t, "PA3")
	require.Equal(t, "ADC1", ch.Instance())
	require.Equal(t, uint32(15), ch.Number())
	require.Equal(t, pin.MustParse("PA3"), ch.Pin())

	require.True(t, clocks.IsEnabled(stm32h7.ADC1Base))
	require.Equal(t, 1, adc1.Calibrations)

	base := stm32h7.ADC1Base
	require.Equal(t, uint32(0x12492492), f.reg(base, smpr1))
	require.Equal(t, uint32(0x12492492), f.reg(base, smpr2))
	require.Zero(t, f.reg(base, cfgr)&adc.ADC_CFGR_CONT)
	require.Equal(t, uint32(1<<15), f.reg(base, pcsel))

	ctrl := f.reg(base, cr)
	require.Zero(t, ctrl&adc.ADC_CR_DEEPPWD)
	require.Zero(t, ctrl&adc.ADC_CR_ADCAL)
	require.Zero(t, ctrl&adc.ADC_CR_ADCALDIF)
	require.NotZero(t, ctrl&adc.ADC_CR_ADVREGEN)
	require.NotZero(t, ctrl&adc.ADC_CR_ADCALLIN)
	require.NotZero(t, ctrl&adc.ADC_CR_ADEN)

	d3ccipr := f.reg(stm32h7.RCCBase, stm32h7.RCC_D3CCIPR)
	require.Equal(t, uint32(stm32h7.RCC_D3CCIPR_ADCSEL_PERCK), d3ccipr>>stm32h7.RCC_D3CCIPR_ADCSEL_Pos&0x3)
	ccr := f.reg(stm32h7.ADC12Common, 0x08)
	require.Equal(t, uint32(adc.ADC_CCR_PRESC_DIV2), ccr>>adc.ADC_CCR_PRESC_Pos&adc.ADC_CCR_PRESC_Msk)

	require.Equal(t, pin.Mode{Function: pin.Analog}, f.gpio.Mode(ch.Pin()))

	// The instance is calibrated once
	ch2 := f.setup(t, "PA6")
	require.Equal(t, uint32(3), ch2.Number())
	require.Equal(t, 1, adc1.Calibrations)
	require.Equal(t, uint32(1<<15|1<<3), f.reg(base, pcsel))

	// Setting up the same pin again is harmless
	f.setup(t, "PA3")
	require.Equal(t, 1, adc1.Calibrations)

	// ADC3 has a clock of its own
	adc3 := f.chip.ADC(stm32h7.ADC3Base)
	require.Zero(t, adc3.Calibrations)
	ch3 := f.setup(t, "PF9")
	require.Equal(t, "ADC3", ch3.Instance())
	require.Equal(t, 1, adc3.Calibrations)
	require.Equal(t, 1, adc1.Calibrations)
}

func TestSetupSharedClock(t *testing.T) {
	for _, order := range [][]string{{"PA3", "PF13"}, {"PF13", "PA3"}} {
		order := order
		t.Run(order[0]+"First", func(t *testing.T) {
			f := newFixture(t)
			adc1 := f.chip.ADC(stm32h7.ADC1Base)
			adc2 := f.chip.ADC(stm32h7.ADC2Base)

			first := f.setup(t, order[0])
			require.True(t, f.platform.Clocks.IsEnabled(stm32h7.ADC2Base))
			second := f.setup(t, order[1])

			// One gate, but each instance is calibrated once
			require.Equal(t, 1, adc1.Calibrations)
			require.Equal(t, 1, adc2.Calibrations)
			f.setup(t, "PF14")
			require.Equal(t, 1, adc2.Calibrations)

			for _, base := range []uintptr{stm32h7.ADC1Base, stm32h7.ADC2Base} {
				ctrl := f.reg(base, cr)
				require.Zero(t, ctrl&adc.ADC_CR_DEEPPWD)
				require.NotZero(t, ctrl&adc.ADC_CR_ADEN)
				require.Equal(t, uint32(0x12492492), f.reg(base, smpr1))
			}
			require.Equal(t, uint32(1<<2|1<<6), f.reg(stm32h7.ADC2Base, pcsel))
			require.Equal(t, uint32(1<<15), f.reg(stm32h7.ADC1Base, pcsel))

			adc1.SetInput(15, 111)
			adc2.SetInput(2, 222)
			for _, ch := range []adc.Channel{first, second} {
				wait, _ := ch.Sample()
				f.chip.Advance(wait)
			}
			want := map[string]uint16{"ADC1": 111, "ADC2": 222}
			for _, ch := range []adc.Channel{first, second} {
				value, _, ok := ch.Poll()
				require.True(t, ok, ch.Instance())
				require.Equal(t, want[ch.Instance()], value)
			}
			require.Empty(t, f.reasons)
		})
	}
}

func TestSetupInvalidPin(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Setup(pin.MustParse("PA8"))
	require.ErrorIs(t, err, peripheral.ErrInvalidADCPin)
	require.Equal(t, []string{"Not a valid ADC pin"}, f.reasons)
	require.False(t, f.platform.Clocks.IsEnabled(stm32h7.ADC1Base))
	require.False(t, f.platform.Clocks.IsEnabled(stm32h7.ADC3Base))
}

func TestAnalogModeOnce(t *testing.T) {
	seen := map[string]bool{}
	for _, inst := range adc.Instances {
		for _, name := range inst.Inputs {
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true

			t.Run(name, func(t *testing.T) {
				f := newFixture(t)
				p := pin.MustParse(name)
				moder := pin.PortBase(p)

				ch := f.setup(t, name)
				for i := 0; i < 3; i++ {
					_, wait, ok := ch.Poll()
					for !ok {
						f.chip.Advance(wait)
						_, wait, ok = ch.Poll()
					}
				}
				ch.Cancel()

				require.Equal(t, 1, f.chip.Memory.Writes(moder))
				require.Equal(t, pin.Analog, f.gpio.Mode(p).Function)
			})
		}
	}
}

func TestSample(t *testing.T) {
	f := newFixture(t)
	adc1 := f.chip.ADC(stm32h7.ADC1Base)
	ch := f.setup(t, "PA3")
	retry := f.platform.Timebase().FromMicros(adc.RetryMicros)
	require.Equal(t, uint32(9600), retry)

	adc1.SetInput(15, 1234)

	// Arms the channel
	wait, ready := ch.Sample()
	require.False(t, ready)
	require.Equal(t, retry, wait)
	require.True(t, adc1.Converting())
	require.Equal(t, uint32(15<<6), f.reg(stm32h7.ADC1Base, sqr1))

	// Already converting: no new command
	crWrites := f.chip.Memory.Writes(stm32h7.ADC1Base + cr)
	sqrWrites := f.chip.Memory.Writes(stm32h7.ADC1Base + sqr1)
	wait, ready = ch.Sample()
	require.False(t, ready)
	require.Equal(t, retry, wait)
	require.Equal(t, crWrites, f.chip.Memory.Writes(stm32h7.ADC1Base+cr))
	require.Equal(t, sqrWrites, f.chip.Memory.Writes(stm32h7.ADC1Base+sqr1))

	f.chip.Advance(wait)
	require.False(t, adc1.Converting())

	wait, ready = ch.Sample()
	require.True(t, ready)
	require.Zero(t, wait)
	require.Equal(t, uint16(1234), ch.Read())
	require.Zero(t, f.reg(stm32h7.ADC1Base, isr)&adc.ADC_ISR_EOC)

	// Ready once per conversion: the next call starts another one
	adc1.SetInput(15, 4321)
	_, ready = ch.Sample()
	require.False(t, ready)
	require.True(t, adc1.Converting())

	f.chip.Advance(wait + retry)
	value, _, ok := ch.Poll()
	require.True(t, ok)
	require.Equal(t, uint16(4321), value)
	require.Equal(t, 2, adc1.Conversions)
}

func TestSampleStaleResult(t *testing.T) {
	f := newFixture(t)
	ch := f.setup(t, "PC4")

	wait, _ := ch.Sample()
	f.chip.Advance(wait)

	// An unread result stays ready
	_, ready := ch.Sample()
	require.True(t, ready)
	_, ready = ch.Sample()
	require.True(t, ready)
	require.Equal(t, 1, f.chip.ADC(stm32h7.ADC1Base).Conversions)
}

func TestSampleInterleaved(t *testing.T) {
	f := newFixture(t)
	adc1 := f.chip.ADC(stm32h7.ADC1Base)
	a := f.setup(t, "PA3")
	b := f.setup(t, "PA6")
	adc1.SetInput(15, 100)
	adc1.SetInput(3, 200)

	var got []uint16
	channels := []adc.Channel{a, b}
	done := map[uint32]int{}
	for round := 0; round < 50 && (done[15] < 3 || done[3] < 3); round++ {
		var wait uint32
		for _, ch := range channels {
			if done[ch.Number()] >= 3 {
				continue
			}
			value, w, ok := ch.Poll()
			if ok {
				done[ch.Number()]++
				got = append(got, value)
				continue
			}
			wait = w
		}
		f.chip.Advance(wait)
	}

	require.Equal(t, 3, done[15])
	require.Equal(t, 3, done[3])
	require.Zero(t, adc1.Overlaps)
	require.Zero(t, f.reg(stm32h7.ADC1Base, isr)&adc.ADC_ISR_OVR)
	require.ElementsMatch(t, []uint16{100, 100, 100, 200, 200, 200}, got)

	// Each conversion belongs to the channel that read it
	require.Equal(t, []uint32{15, 3, 15, 3, 15, 3}, adc1.Converted)
}

func TestCancel(t *testing.T) {
	t.Run("Converting", func(t *testing.T) {
		f := newFixture(t)
		adc1 := f.chip.ADC(stm32h7.ADC1Base)
		ch := f.setup(t, "PA3")

		ch.Sample()
		require.True(t, adc1.Converting())

		criticals := f.chip.Core.Criticals
		ch.Cancel()
		require.Equal(t, criticals+1, f.chip.Core.Criticals)
		require.False(t, f.chip.Core.Masked())
		require.False(t, adc1.Converting())
		require.Zero(t, f.reg(stm32h7.ADC1Base, cr)&(adc.ADC_CR_ADSTART|adc.ADC_CR_ADSTP))

		// Idle again: the next sample starts a conversion
		_, ready := ch.Sample()
		require.False(t, ready)
		require.True(t, adc1.Converting())
	})

	t.Run("Ready", func(t *testing.T) {
		f := newFixture(t)
		ch := f.setup(t, "PA3")

		wait, _ := ch.Sample()
		f.chip.Advance(wait)
		require.NotZero(t, f.reg(stm32h7.ADC1Base, isr)&adc.ADC_ISR_EOC)

		ch.Cancel()
		require.Zero(t, f.reg(stm32h7.ADC1Base, isr)&adc.ADC_ISR_EOC)
		_, ready := ch.Sample()
		require.False(t, ready)
	})

	t.Run("OtherChannel", func(t *testing.T) {
		f := newFixture(t)
		adc1 := f.chip.ADC(stm32h7.ADC1Base)
		a := f.setup(t, "PA3")
		b := f.setup(t, "PA6")

		a.Sample()
		b.Cancel()
		require.True(t, adc1.Converting())

		wait, _ := a.Sample()
		f.chip.Advance(wait)
		b.Cancel()
		_, ready := a.Sample()
		require.True(t, ready)
	})

	t.Run("Idle", func(t *testing.T) {
		f := newFixture(t)
		ch := f.setup(t, "PF9")
		before := mmio.Reg32(f.chip.Memory, stm32h7.ADC3Base+cr).Get()

		ch.Cancel()
		require.Equal(t, before, f.reg(stm32h7.ADC3Base, cr))
		require.False(t, f.chip.Core.Masked())
	})
}
