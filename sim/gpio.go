package sim

import (
	h7 "omibyte.io/h7boot/runtime/arm/cortexm/stm32/stm32h7"
)

const (
	gpioIDR  = 0x10
	gpioODR  = 0x14
	gpioBSRR = 0x18
)

// GPIO models the set/reset register and input levels of every port.
type GPIO struct {
	mem    *Memory
	inputs [11]uint16
}

func newGPIO(mem *Memory) *GPIO {
	g := &GPIO{mem: mem}
	for port := range g.inputs {
		port := port
		base := h7.GPIOABase + uintptr(port)*h7.GPIOStride
		mem.OnStore(base+gpioBSRR, func(_, value uint32) uint32 {
			odr := mem.peek(base + gpioODR)
			odr = odr&^(value>>16) | value&0xFFFF
			mem.poke(base+gpioODR, odr)
			// BSRR reads as zero
			return 0
		})
		mem.OnLoad(base+gpioIDR, func(uint32) uint32 {
			return mem.peek(base+gpioODR)&0xFFFF | uint32(g.inputs[port])
		})
	}
	return g
}

// SetInput drives the external level of a pin.
func (g *GPIO) SetInput(port, index uint8, high bool) {
	g.mem.mu.Lock()
	defer g.mem.mu.Unlock()
	if high {
		g.inputs[port] |= 1 << index
	} else {
		g.inputs[port] &^= 1 << index
	}
}

func (g *GPIO) reset() {
	g.mem.mu.Lock()
	defer g.mem.mu.Unlock()
	g.inputs = [11]uint16{}
}
