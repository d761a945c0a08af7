package cortexm

import "omibyte.io/h7boot/mmio"

const SysTickBase uintptr = 0xE000E010

const (
	SYST_CSR_ENABLE    = 0x1
	SYST_CSR_TICKINT   = 0x1 << 1
	SYST_CSR_CLKSOURCE = 0x1 << 2
	SYST_CSR_COUNTFLAG = 0x1 << 16
)

type SysTick struct {
	CSR   mmio.Register32
	RVR   mmio.Register32
	CVR   mmio.Register32
	CALIB mmio.Register32
}

func NewSysTick(bus mmio.Bus) *SysTick {
	return &SysTick{
		CSR:   mmio.Reg32(bus, SysTickBase+0x0),
		RVR:   mmio.Reg32(bus, SysTickBase+0x4),
		CVR:   mmio.Reg32(bus, SysTickBase+0x8),
		CALIB: mmio.Reg32(bus, SysTickBase+0xC),
	}
}

// Disarm stops the counter and its interrupt, keeping the processor clock
// selected as its source.
func (s *SysTick) Disarm() {
	s.CSR.Set(SYST_CSR_CLKSOURCE)
}

func (s *SysTick) Enabled() bool {
	return s.CSR.HasBits(SYST_CSR_ENABLE)
}
