package cortexm

import "omibyte.io/h7boot/mmio"

const NVICBase uintptr = 0xE000E100

const (
	// NVICWords is the number of enable/pending words implemented by the
	// Cortex-M7 NVIC.
	NVICWords = 8
	// NVICPriorities is the number of 8-bit priority fields.
	NVICPriorities = 240
)

const (
	nvicISER = 0x000
	nvicICER = 0x080
	nvicISPR = 0x100
	nvicICPR = 0x180
	nvicIPR  = 0x300
)

type Interrupt int16

type NVIC struct {
	bus mmio.Bus
}

func NewNVIC(bus mmio.Bus) *NVIC {
	return &NVIC{bus: bus}
}

func (n *NVIC) word(offset uintptr, index int) mmio.Register32 {
	return mmio.Reg32(n.bus, NVICBase+offset+uintptr(index)*4)
}

func (n *NVIC) Enable(i Interrupt) {
	n.word(nvicISER, int(i>>5)).Set(1 << (i & 0x1F))
}

func (n *NVIC) Disable(i Interrupt) {
	n.word(nvicICER, int(i>>5)).Set(1 << (i & 0x1F))
}

func (n *NVIC) Enabled(i Interrupt) bool {
	return n.word(nvicISER, int(i>>5)).HasBits(1 << (i & 0x1F))
}

func (n *NVIC) Pending(i Interrupt) bool {
	return n.word(nvicISPR, int(i>>5)).HasBits(1 << (i & 0x1F))
}

func (n *NVIC) SetPriority(i Interrupt, priority uint8) {
	n.bus.Store8(NVICBase+nvicIPR+uintptr(i), priority)
}

func (n *NVIC) Priority(i Interrupt) uint8 {
	return n.bus.Load8(NVICBase + nvicIPR + uintptr(i))
}

// Reset disables and clears every user interrupt and zeroes its priority.
// barrier is called between the disable and the clear of each word so the
// disable takes effect before the pending state is dropped.
func (n *NVIC) Reset(barrier func()) {
	for i := 0; i < NVICWords; i++ {
		n.word(nvicICER, i).Set(0xFFFFFFFF)
		barrier()
		n.word(nvicICPR, i).Set(0xFFFFFFFF)
	}
	for i := 0; i < NVICPriorities/4; i++ {
		n.word(nvicIPR, i).Set(0)
	}
}
