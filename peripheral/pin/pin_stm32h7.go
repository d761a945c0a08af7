package pin

import (
	"omibyte.io/h7boot/mmio"
	"omibyte.io/h7boot/runtime/arm/cortexm/stm32/stm32h7"
)

// GPIO port register offsets.
const (
	gpioMODER   = 0x00
	gpioOTYPER  = 0x04
	gpioOSPEEDR = 0x08
	gpioPUPDR   = 0x0C
	gpioIDR     = 0x10
	gpioODR     = 0x14
	gpioBSRR    = 0x18
	gpioAFRL    = 0x20
	gpioAFRH    = 0x24
)

// Speed written to OSPEEDR for every configured pin.
const speedHigh = 0x2

// GPIO configures the pins of an STM32H7.
type GPIO struct {
	bus    mmio.Bus
	clocks *stm32h7.Clocks
}

func NewGPIO(bus mmio.Bus, clocks *stm32h7.Clocks) *GPIO {
	return &GPIO{bus: bus, clocks: clocks}
}

// PortBase returns the register block of the port of p.
func PortBase(p Pin) uintptr {
	return stm32h7.GPIOABase + uintptr(p.Port)*stm32h7.GPIOStride
}

func (g *GPIO) reg(p Pin, offset uintptr) mmio.Register32 {
	return mmio.Reg32(g.bus, PortBase(p)+offset)
}

// Configure sets the mode, alternate function, output type, pull and speed of
// p. The fields of the other pins of the port are left untouched.
func (g *GPIO) Configure(p Pin, m Mode, pull Pull) {
	base := PortBase(p)

	// Enable GPIO clock
	g.clocks.Enable(base)

	pos := uint8(p.Index)

	afr := g.reg(p, gpioAFRL)
	if pos >= 8 {
		afr = g.reg(p, gpioAFRH)
	}
	afr.ReplaceBits(uint32(m.Alternate), 0xF, (pos%8)*4)

	g.reg(p, gpioMODER).ReplaceBits(uint32(m.Function), 0x3, pos*2)
	g.reg(p, gpioPUPDR).ReplaceBits(pull.bits(), 0x3, pos*2)

	od := uint32(0)
	if m.OpenDrain {
		od = 1
	}
	g.reg(p, gpioOTYPER).ReplaceBits(od, 0x1, pos)
	g.reg(p, gpioOSPEEDR).ReplaceBits(speedHigh, 0x3, pos*2)
}

// Mode returns the current configuration of p.
func (g *GPIO) Mode(p Pin) Mode {
	pos := uint32(p.Index)
	afr := g.reg(p, gpioAFRL)
	if pos >= 8 {
		afr = g.reg(p, gpioAFRH)
	}
	return Mode{
		Function:  Function(g.reg(p, gpioMODER).Get() >> (pos * 2) & 0x3),
		Alternate: uint8(afr.Get() >> ((pos % 8) * 4) & 0xF),
		OpenDrain: g.reg(p, gpioOTYPER).Get()>>pos&0x1 != 0,
	}
}

// Set drives an output pin high or low.
func (g *GPIO) Set(p Pin, high bool) {
	if high {
		g.reg(p, gpioBSRR).Set(1 << p.Index)
	} else {
		g.reg(p, gpioBSRR).Set(1 << (p.Index + 16))
	}
}

// Get returns the input level of p.
func (g *GPIO) Get(p Pin) bool {
	return g.reg(p, gpioIDR).Get()&(1<<p.Index) != 0
}

// Output returns the output latch of p.
func (g *GPIO) Output(p Pin) bool {
	return g.reg(p, gpioODR).Get()&(1<<p.Index) != 0
}
