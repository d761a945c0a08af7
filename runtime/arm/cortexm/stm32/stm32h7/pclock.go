package stm32h7

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"omibyte.io/h7boot/mmio"
)

// ClockDomain is a range of the bus matrix whose peripherals are gated by
// one RCC enable register. The enable bit of a peripheral is its offset from
// Base divided by Stride.
type ClockDomain struct {
	Name     string
	Base     uintptr
	Register uintptr
	Stride   uintptr
}

// Domains is sorted by Base. A domain ends where the next one begins and the
// last one is unbounded.
var Domains = []ClockDomain{
	{Name: "APB1", Base: D2APB1PeriphBase, Register: RCC_APB1LENR, Stride: 0x400},
	{Name: "APB2", Base: D2APB2PeriphBase, Register: RCC_APB2ENR, Stride: 0x400},
	{Name: "AHB1", Base: D2AHB1PeriphBase, Register: RCC_AHB1ENR, Stride: 0x400},
	{Name: "AHB2", Base: D2AHB2PeriphBase, Register: RCC_AHB2ENR, Stride: 0x400},
	{Name: "APB3", Base: D1APB1PeriphBase, Register: RCC_APB3ENR, Stride: 0x400},
	{Name: "AHB3", Base: D1AHB1PeriphBase, Register: RCC_AHB3ENR, Stride: 0x400},
	{Name: "APB4", Base: D3APB1PeriphBase, Register: RCC_APB4ENR, Stride: 0x400},
	{Name: "AHB4", Base: D3AHB1PeriphBase, Register: RCC_AHB4ENR, Stride: 0x400},
}

// ClockGate locates the enable bit of one peripheral. Register is an offset
// from RCCBase.
type ClockGate struct {
	Domain   string
	Register uintptr
	Bit      uint
}

// Mask returns the enable bit as a register mask. A bit outside the register
// yields an empty mask.
func (g ClockGate) Mask() uint32 {
	if g.Bit >= 32 {
		return 0
	}
	return 1 << g.Bit
}

// quirks lists peripherals whose enable bit does not follow the stride
// formula. These entries override (base-Domain.Base)/Stride on purpose: the
// formula puts ADC1/ADC2 on AHB1ENR bit 8, the hardware gates them with
// ADC12EN at bit 5.
var quirks = map[uintptr]ClockGate{
	ADC1Base: {Domain: "AHB1", Register: RCC_AHB1ENR, Bit: 5},
	ADC2Base: {Domain: "AHB1", Register: RCC_AHB1ENR, Bit: 5},
	USB1Base: {Domain: "AHB1", Register: RCC_AHB1ENR, Bit: 25},
	ADC3Base: {Domain: "AHB4", Register: RCC_AHB4ENR, Bit: 24},
}

// Classify returns the clock gate of the peripheral at base. Addresses past
// the last domain boundary belong to the last domain. Addresses before the
// first boundary belong to the first domain and wrap to a bit outside the
// register.
func Classify(base uintptr) ClockGate {
	if gate, ok := quirks[base]; ok {
		return gate
	}

	// Find the last domain starting at or below base
	i, found := slices.BinarySearchFunc(Domains, base, func(d ClockDomain, addr uintptr) int {
		switch {
		case d.Base < addr:
			return -1
		case d.Base > addr:
			return 1
		}
		return 0
	})
	if !found {
		i--
	}
	if i < 0 {
		i = 0
	}

	d := Domains[i]
	return ClockGate{
		Domain:   d.Name,
		Register: d.Register,
		Bit:      uint(uint32(base-d.Base) / uint32(d.Stride)),
	}
}

// Peripherals maps peripheral names to their base address.
var Peripherals = map[string]uintptr{
	"TIM2":    TIM2Base,
	"USART2":  USART2Base,
	"I2C1":    I2C1Base,
	"TIM1":    TIM1Base,
	"USART1":  USART1Base,
	"SPI1":    SPI1Base,
	"DMA1":    DMA1Base,
	"DMA2":    DMA2Base,
	"ADC1":    ADC1Base,
	"ADC2":    ADC2Base,
	"USB1":    USB1Base,
	"DCMI":    DCMIBase,
	"RNG":     RNGBase,
	"LTDC":    LTDCBase,
	"WWDG1":   WWDG1Base,
	"MDMA":    MDMABase,
	"FMC":     FMCBase,
	"EXTI":    EXTIBase,
	"SYSCFG":  SYSCFGBase,
	"LPUART1": LPUART1Base,
	"BDMA":    BDMABase,
	"ADC3":    ADC3Base,
}

func init() {
	for port := 0; port < 11; port++ {
		Peripherals[fmt.Sprintf("GPIO%c", 'A'+port)] = GPIOABase + uintptr(port)*GPIOStride
	}
}

// PeripheralNames returns the names of Peripherals in ascending order.
func PeripheralNames() []string {
	names := maps.Keys(Peripherals)
	slices.Sort(names)
	return names
}

// ParsePeripheral resolves a peripheral name such as "usart2" or a base
// address such as "0x40004400".
func ParsePeripheral(s string) (uintptr, error) {
	if base, ok := Peripherals[strings.ToUpper(s)]; ok {
		return base, nil
	}
	base, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown peripheral %q", s)
	}
	return uintptr(base), nil
}

// Clocks gates the bus clocks of the peripherals on the chip. It must not be
// used from interrupt context since the enable registers are shared by every
// peripheral of a domain.
type Clocks struct {
	bus       mmio.Bus
	frequency uint32
}

// NewClocks returns the clock gate manager for a core running at frequency.
func NewClocks(bus mmio.Bus, frequency uint32) *Clocks {
	return &Clocks{bus: bus, frequency: frequency}
}

func (c *Clocks) register(gate ClockGate) mmio.Register32 {
	return mmio.Reg32(c.bus, RCCBase+gate.Register)
}

// Enable turns on the bus clock of the peripheral at base. Enabling an
// enabled peripheral has no effect.
func (c *Clocks) Enable(base uintptr) {
	gate := Classify(base)
	reg := c.register(gate)
	reg.SetBits(gate.Mask())

	// Read back so the clock is running before the peripheral is accessed
	reg.Get()
}

// IsEnabled reports whether the bus clock of the peripheral at base is on.
func (c *Clocks) IsEnabled(base uintptr) bool {
	gate := Classify(base)
	return c.register(gate).HasBits(gate.Mask())
}

// Frequency returns the clock frequency of the peripheral at base.
func (c *Clocks) Frequency(base uintptr) uint32 {
	return PeripheralFrequency(c.frequency)
}
