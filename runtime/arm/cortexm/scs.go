package cortexm

import "omibyte.io/h7boot/mmio"

const SCSBase uintptr = 0xE000ED00

const (
	SCS_ICSR_PENDSVSET = 0x1 << 28
	SCS_ICSR_PENDSVCLR = 0x1 << 27
	SCS_ICSR_PENDSTSET = 0x1 << 26
	SCS_ICSR_PENDSTCLR = 0x1 << 25

	SCS_AIRCR_VECTKEY     = 0x05FA << 16
	SCS_AIRCR_PRIGROUP    = 0x7 << 8
	SCS_AIRCR_SYSRESETREQ = 0x1 << 2

	// Full access for the CP10 and CP11 coprocessors (FPU).
	SCS_CPACR_FPU = 0xF << 20
)

// SystemControlSpace is the system control block of the core.
type SystemControlSpace struct {
	CPUID mmio.Register32
	ICSR  mmio.Register32
	VTOR  mmio.Register32
	AIRCR mmio.Register32
	SCR   mmio.Register32
	CCR   mmio.Register32
	SHPR  [3]mmio.Register32
	SHCSR mmio.Register32
	CPACR mmio.Register32
}

func NewSCS(bus mmio.Bus) *SystemControlSpace {
	return &SystemControlSpace{
		CPUID: mmio.Reg32(bus, SCSBase+0x00),
		ICSR:  mmio.Reg32(bus, SCSBase+0x04),
		VTOR:  mmio.Reg32(bus, SCSBase+0x08),
		AIRCR: mmio.Reg32(bus, SCSBase+0x0C),
		SCR:   mmio.Reg32(bus, SCSBase+0x10),
		CCR:   mmio.Reg32(bus, SCSBase+0x14),
		SHPR: [3]mmio.Register32{
			mmio.Reg32(bus, SCSBase+0x18),
			mmio.Reg32(bus, SCSBase+0x1C),
			mmio.Reg32(bus, SCSBase+0x20),
		},
		SHCSR: mmio.Reg32(bus, SCSBase+0x24),
		CPACR: mmio.Reg32(bus, SCSBase+0x88),
	}
}

// ClearPending clears any pending PendSV and SysTick exception.
func (s *SystemControlSpace) ClearPending() {
	s.ICSR.Set(SCS_ICSR_PENDSVCLR | SCS_ICSR_PENDSTCLR)
}

// ResetPriorities sets every configurable system exception to priority 0.
func (s *SystemControlSpace) ResetPriorities() {
	for _, reg := range s.SHPR {
		reg.Set(0)
	}
}

// RequestReset writes the reset request key to AIRCR keeping the priority
// grouping.
func (s *SystemControlSpace) RequestReset() {
	s.AIRCR.Set(SCS_AIRCR_VECTKEY | s.AIRCR.Get()&SCS_AIRCR_PRIGROUP | SCS_AIRCR_SYSRESETREQ)
}

// EnableFPU grants full access to the floating point unit.
func (s *SystemControlSpace) EnableFPU() {
	s.CPACR.SetBits(SCS_CPACR_FPU)
}
