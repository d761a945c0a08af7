package sim

import (
	"github.com/golang/glog"

	h7 "omibyte.io/h7boot/runtime/arm/cortexm/stm32/stm32h7"
)

// LockPolls is the number of reads of RCC_CR the PLL takes to lock.
const LockPolls = 3

// RCC models oscillator ready flags, PLL lock and the system clock switch.
type RCC struct {
	mem *Memory

	lockCountdown int
	// Locks counts PLL1 lock events.
	Locks int
}

var rccResetValues = map[uintptr]uint32{
	h7.RCCBase + h7.RCC_CR:        h7.RCC_CR_HSION | h7.RCC_CR_HSIRDY,
	h7.RCCBase + h7.RCC_PLLCKSELR: 0x02020200,
	h7.RCCBase + h7.RCC_PLLCFGR:   0x01FF0000,
	h7.RCCBase + h7.RCC_PLL1DIVR:  0x01010280,
	h7.FlashRBase + h7.FLASH_ACR:  0x00000037,
}

func newRCC(mem *Memory) *RCC {
	r := &RCC{mem: mem}
	mem.OnStore(h7.RCCBase+h7.RCC_CR, r.storeCR)
	mem.OnLoad(h7.RCCBase+h7.RCC_CR, r.loadCR)
	mem.OnStore(h7.RCCBase+h7.RCC_CFGR, r.storeCFGR)
	return r
}

func (r *RCC) storeCR(old, value uint32) uint32 {
	const ready = h7.RCC_CR_HSIRDY | h7.RCC_CR_HSERDY | h7.RCC_CR_PLL1RDY
	value = value&^ready | old&h7.RCC_CR_PLL1RDY

	if value&h7.RCC_CR_HSION != 0 {
		value |= h7.RCC_CR_HSIRDY
	}
	if value&h7.RCC_CR_HSEON != 0 {
		value |= h7.RCC_CR_HSERDY
	}

	switch {
	case value&h7.RCC_CR_PLL1ON == 0:
		value &^= h7.RCC_CR_PLL1RDY
		r.lockCountdown = 0
	case old&h7.RCC_CR_PLL1ON == 0:
		r.lockCountdown = LockPolls
	}
	return value
}

func (r *RCC) loadCR(value uint32) uint32 {
	if value&h7.RCC_CR_PLL1ON == 0 || value&h7.RCC_CR_PLL1RDY != 0 {
		return value
	}
	if r.lockCountdown--; r.lockCountdown <= 0 {
		r.Locks++
		glog.V(2).Info("sim: PLL1 locked")
		return value | h7.RCC_CR_PLL1RDY
	}
	return value
}

func (r *RCC) storeCFGR(old, value uint32) uint32 {
	sw := value & h7.RCC_CFGR_SW_Msk
	return value&^h7.RCC_CFGR_SWS_Msk | sw<<h7.RCC_CFGR_SWS_Pos
}

// PLLLocked reports whether PLL1 has locked.
func (r *RCC) PLLLocked() bool {
	return r.mem.Peek(h7.RCCBase+h7.RCC_CR)&h7.RCC_CR_PLL1RDY != 0
}

// SystemClock returns the clock selected by CFGR.SWS.
func (r *RCC) SystemClock() uint32 {
	return r.mem.Peek(h7.RCCBase+h7.RCC_CFGR) & h7.RCC_CFGR_SWS_Msk >> h7.RCC_CFGR_SWS_Pos
}

// FlashLatency returns the flash wait states.
func (r *RCC) FlashLatency() uint32 {
	return r.mem.Peek(h7.FlashRBase+h7.FLASH_ACR) & h7.FLASH_ACR_LATENCY_Msk
}

func (r *RCC) reset() {
	r.lockCountdown = 0
	r.Locks = 0
}
