package sim

import (
	"github.com/golang/glog"

	h7 "omibyte.io/h7boot/runtime/arm/cortexm/stm32/stm32h7"
)

const (
	FlashSize uintptr = 2 * 1024 * 1024

	systemMemoryStart uintptr = 0x1FF00000
	systemMemorySize  uintptr = 128 * 1024

	// Stack pointer and reset vector found in the ROM bootloader image.
	BootloaderSP    uint32 = 0x24001A48
	BootloaderEntry uint32 = 0x1FF0A2C5
)

// Chip is a simulated STM32H743.
type Chip struct {
	Memory *Memory
	Core   *Core
	RCC    *RCC
	GPIO   *GPIO
	ADCs   []*ADC

	Flash  *Region
	RAM    *Region
	System *Region

	// Ticks is the simulated time in core clock ticks.
	Ticks int64
}

// NewH743 returns a chip in its power-on state.
func NewH743() *Chip {
	mem := NewMemory()
	c := &Chip{
		Memory: mem,
		Core:   NewCore(mem),
		Flash:  mem.AddRegion("flash", h7.FlashBank1Base, FlashSize, true),
		RAM:    mem.AddRegion("axisram", h7.AXISRAMBase, h7.AXISRAMSize, false),
		System: mem.AddRegion("system", systemMemoryStart, systemMemorySize, true),
	}
	c.RCC = newRCC(mem)
	c.GPIO = newGPIO(mem)
	c.ADCs = []*ADC{
		newADC(mem, "ADC1", h7.ADC1Base),
		newADC(mem, "ADC2", h7.ADC2Base),
		newADC(mem, "ADC3", h7.ADC3Base),
	}

	mem.Poke(h7.SystemMemoryBase, BootloaderSP)
	mem.Poke(h7.SystemMemoryBase+4, BootloaderEntry)

	c.Reset()
	return c
}

// Reset models a system reset: the core and every register return to their
// reset values while memory keeps its contents.
func (c *Chip) Reset() {
	values := map[uintptr]uint32{}
	for addr, v := range rccResetValues {
		values[addr] = v
	}
	for _, a := range c.ADCs {
		a.resetValues(values)
		a.reset()
	}
	c.Memory.resetRegisters(values)
	c.Core.reset()
	c.RCC.reset()
	c.GPIO.reset()
	glog.V(1).Info("sim: reset")
}

// ADC returns the instance at base, or nil.
func (c *Chip) ADC(base uintptr) *ADC {
	for _, a := range c.ADCs {
		if a.Base == base {
			return a
		}
	}
	return nil
}

// Advance moves simulated time forward by ticks.
func (c *Chip) Advance(ticks uint32) {
	c.Memory.mu.Lock()
	defer c.Memory.mu.Unlock()

	c.Ticks += int64(ticks)
	for _, a := range c.ADCs {
		a.advance(int64(ticks))
	}
}

// Run runs fn on the core, see Core.Run.
func (c *Chip) Run(fn func()) *Exit {
	return c.Core.Run(fn)
}
