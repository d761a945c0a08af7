package stm32h7

import (
	"errors"
	"fmt"

	"omibyte.io/h7boot/mmio"
	"omibyte.io/h7boot/runtime/arm/cortexm"
)

var ErrInvalidClock = errors.New("invalid clock configuration")

const (
	// PLLInputFrequency is the comparison frequency the PLL reference is
	// divided down to.
	PLLInputFrequency uint32 = 2_000_000
	USBFrequency      uint32 = 48_000_000
	HSIFrequency      uint32 = 64_000_000
)

type ClockSource uint8

const (
	HSE ClockSource = iota
	HSI
)

func (s ClockSource) String() string {
	switch s {
	case HSE:
		return "HSE"
	case HSI:
		return "HSI"
	}
	return fmt.Sprintf("ClockSource(%d)", uint8(s))
}

// ClockConfig selects the PLL reference and the target core frequency.
// RefFrequency is the crystal frequency and is ignored for HSI.
type ClockConfig struct {
	Source       ClockSource
	RefFrequency uint32
	Frequency    uint32
}

// PLLConfig holds the PLL1 divider values. The register fields of N, P and Q
// hold the value minus one.
type PLLConfig struct {
	M, N, P, Q uint32
}

// Reference returns the frequency of the selected PLL reference.
func (c ClockConfig) Reference() uint32 {
	if c.Source == HSI {
		return HSIFrequency
	}
	return c.RefFrequency
}

// VCO returns the PLL1 VCO frequency. It runs at twice the core frequency so
// that P can divide by 2.
func (c ClockConfig) VCO() uint32 {
	return c.Frequency * 2
}

func (c ClockConfig) PLL() PLLConfig {
	vco := c.VCO()
	return PLLConfig{
		M: c.Reference() / PLLInputFrequency,
		N: vco / PLLInputFrequency,
		P: 2,
		Q: vco / USBFrequency,
	}
}

// PeripheralFrequency returns the APB clock frequency for a core running at
// frequency.
func PeripheralFrequency(frequency uint32) uint32 {
	return frequency / 4
}

// Validate checks the PLL dividers against their register ranges and the
// resulting clock tree against the ratings of the chip. The dividers must
// produce exactly Frequency on sys_ck and USBFrequency on pll1_q.
func (c ClockConfig) Validate() error {
	_, err := NewClockTree(c)
	return err
}

func (c ClockConfig) validateDividers() error {
	if c.Source != HSE && c.Source != HSI {
		return fmt.Errorf("%w: unknown clock source %d", ErrInvalidClock, c.Source)
	}
	if c.Frequency == 0 {
		return fmt.Errorf("%w: no core frequency", ErrInvalidClock)
	}
	if ref := c.Reference(); ref%PLLInputFrequency != 0 {
		return fmt.Errorf("%w: reference %d Hz is not a multiple of %d Hz", ErrInvalidClock, ref, PLLInputFrequency)
	}
	pll := c.PLL()
	if pll.M < 1 || pll.M > RCC_PLLCKSELR_DIVM1_Msk {
		return fmt.Errorf("%w: reference %d Hz needs DIVM1=%d", ErrInvalidClock, c.Reference(), pll.M)
	}
	if pll.N < 4 || pll.N > 512 {
		return fmt.Errorf("%w: DIVN1=%d out of range", ErrInvalidClock, pll.N)
	}
	if pll.Q < 1 || pll.Q > 128 {
		return fmt.Errorf("%w: DIVQ1=%d out of range", ErrInvalidClock, pll.Q)
	}
	return nil
}

// rcc is the subset of the RCC register block used during bring-up.
type rcc struct {
	CR        mmio.Register32
	CFGR      mmio.Register32
	D1CFGR    mmio.Register32
	D2CFGR    mmio.Register32
	D3CFGR    mmio.Register32
	PLLCKSELR mmio.Register32
	PLLCFGR   mmio.Register32
	PLL1DIVR  mmio.Register32
	PLL1FRACR mmio.Register32
	D3CCIPR   mmio.Register32
	CIER      mmio.Register32
}

func newRCC(bus mmio.Bus) rcc {
	return rcc{
		CR:        mmio.Reg32(bus, RCCBase+RCC_CR),
		CFGR:      mmio.Reg32(bus, RCCBase+RCC_CFGR),
		D1CFGR:    mmio.Reg32(bus, RCCBase+RCC_D1CFGR),
		D2CFGR:    mmio.Reg32(bus, RCCBase+RCC_D2CFGR),
		D3CFGR:    mmio.Reg32(bus, RCCBase+RCC_D3CFGR),
		PLLCKSELR: mmio.Reg32(bus, RCCBase+RCC_PLLCKSELR),
		PLLCFGR:   mmio.Reg32(bus, RCCBase+RCC_PLLCFGR),
		PLL1DIVR:  mmio.Reg32(bus, RCCBase+RCC_PLL1DIVR),
		PLL1FRACR: mmio.Reg32(bus, RCCBase+RCC_PLL1FRACR),
		D3CCIPR:   mmio.Reg32(bus, RCCBase+RCC_D3CCIPR),
		CIER:      mmio.Reg32(bus, RCCBase+RCC_CIER),
	}
}

// SetupClocks switches the core from the reset clock to PLL1 running at
// cfg.Frequency. The configuration is checked before any register is
// written. The lock and switch waits have no timeout.
func SetupClocks(bus mmio.Bus, cfg ClockConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	r := newRCC(bus)
	pll := cfg.PLL()

	source := uint32(RCC_PLLCKSELR_PLLSRC_HSI)
	if cfg.Source == HSE {
		// Enable the crystal oscillator
		r.CR.SetBits(RCC_CR_HSEON)

		// Wait for HSE to be stable
		for !r.CR.HasBits(RCC_CR_HSERDY) {
		}
		source = RCC_PLLCKSELR_PLLSRC_HSE
	}

	// Select the PLL source and divide it down to the comparison frequency
	r.PLLCKSELR.Modify(
		RCC_PLLCKSELR_PLLSRC_Msk<<RCC_PLLCKSELR_PLLSRC_Pos|RCC_PLLCKSELR_DIVM1_Msk<<RCC_PLLCKSELR_DIVM1_Pos,
		source<<RCC_PLLCKSELR_PLLSRC_Pos|pll.M<<RCC_PLLCKSELR_DIVM1_Pos)

	// Wide VCO with a 2-4MHz input, P and Q outputs enabled
	r.PLLCFGR.Modify(
		RCC_PLLCFGR_PLL1RGE_Msk<<RCC_PLLCFGR_PLL1RGE_Pos|RCC_PLLCFGR_PLL1VCOSEL,
		RCC_PLLCFGR_PLL1RGE_2_4<<RCC_PLLCFGR_PLL1RGE_Pos|RCC_PLLCFGR_DIVP1EN|RCC_PLLCFGR_DIVQ1EN)

	r.PLL1DIVR.Set((pll.N-1)<<RCC_PLL1DIVR_N1_Pos |
		(pll.P-1)<<RCC_PLL1DIVR_P1_Pos |
		(pll.Q-1)<<RCC_PLL1DIVR_Q1_Pos |
		1<<RCC_PLL1DIVR_R1_Pos)
	r.CR.SetBits(RCC_CR_PLL1ON)

	// Widen the flash wait states before the core speeds up
	mmio.Reg32(bus, FlashRBase+FLASH_ACR).ReplaceBits(FLASH_ACR_LATENCY_7WS, FLASH_ACR_LATENCY_Msk, FLASH_ACR_LATENCY_Pos)

	// Wait for PLL lock
	for !r.CR.HasBits(RCC_CR_PLL1RDY) {
	}

	// Switch the system clock to PLL1
	r.CFGR.ReplaceBits(RCC_CFGR_SW_PLL1, RCC_CFGR_SW_Msk, RCC_CFGR_SW_Pos)

	// Wait for PLL1 to be selected
	for r.CFGR.Get()&RCC_CFGR_SWS_Msk != RCC_CFGR_SW_PLL1<<RCC_CFGR_SWS_Pos {
	}

	// Bring every bus domain within its rating
	r.D1CFGR.Modify(
		RCC_D1CFGR_HPRE_Msk<<RCC_D1CFGR_HPRE_Pos|RCC_PPRE_Msk<<RCC_D1CFGR_D1PPRE_Pos,
		RCC_D1CFGR_HPRE_DIV2<<RCC_D1CFGR_HPRE_Pos|RCC_PPRE_DIV2<<RCC_D1CFGR_D1PPRE_Pos)
	r.D2CFGR.Modify(
		RCC_PPRE_Msk<<RCC_D2CFGR_D2PPRE1_Pos|RCC_PPRE_Msk<<RCC_D2CFGR_D2PPRE2_Pos,
		RCC_PPRE_DIV2<<RCC_D2CFGR_D2PPRE1_Pos|RCC_PPRE_DIV2<<RCC_D2CFGR_D2PPRE2_Pos)
	r.D3CFGR.ReplaceBits(RCC_PPRE_DIV2, RCC_PPRE_Msk, RCC_D3CFGR_D3PPRE_Pos)

	return nil
}

// SystemInit returns the RCC to its reset configuration: HSI running as the
// system clock, every PLL and oscillator but HSI stopped, all prescalers at
// one and clock interrupts disabled. It also grants full access to the FPU
// and points VTOR at the start of flash.
func SystemInit(bus mmio.Bus) {
	scs := cortexm.NewSCS(bus)
	scs.EnableFPU()

	r := newRCC(bus)
	r.CR.SetBits(RCC_CR_HSION)
	r.CFGR.Set(0)

	// Stop HSE, CSS, CSI, HSI48 and the PLLs
	r.CR.Set(r.CR.Get() & rccCRResetMask)

	r.D1CFGR.Set(0)
	r.D2CFGR.Set(0)
	r.D3CFGR.Set(0)
	r.PLLCKSELR.Set(rccPLLCKSELRReset)
	r.PLLCFGR.Set(rccPLLCFGRReset)
	r.PLL1DIVR.Set(rccPLL1DIVRReset)
	r.PLL1FRACR.Set(0)

	r.CR.ClearBits(RCC_CR_HSEBYP)
	r.CIER.Set(0)

	scs.VTOR.Set(uint32(FlashBank1Base))
}
