//go:build tinygo && cortexm

package cortexm

import (
	"device/arm"

	"omibyte.io/h7boot/mmio"
)

// Hardware is the Core of the processor running this program.
var Hardware Core = hardware{}

type hardware struct{}

func (hardware) DisableInterrupts() State {
	return State(arm.DisableInterrupts())
}

func (hardware) RestoreInterrupts(state State) {
	arm.EnableInterrupts(uintptr(state))
}

func (hardware) EnableInterrupts() {
	arm.Asm("cpsie i")
}

func (hardware) Barrier() {
	arm.Asm("dsb 0xF")
	arm.Asm("isb 0xF")
}

// jumpEntry carries the entry of Jump across the stack switch. The old frame
// is gone once sp moves, so it is only read from its fixed address.
var jumpEntry func()

func (hardware) Jump(sp uintptr, entry func()) {
	jumpEntry = entry
	arm.AsmFull("mov sp, {sp}\n b h7boot_jump_entry", map[string]interface{}{"sp": sp})
	for {
	}
}

//export h7boot_jump_entry
func jumpTrampoline() {
	jumpEntry()
	for {
	}
}

func (hardware) JumpAddress(sp, pc uintptr) {
	arm.AsmFull("mov sp, {sp}\n bx {pc}", map[string]interface{}{"sp": sp, "pc": pc})
	for {
	}
}

func (hardware) SystemReset() {
	NewSCS(mmio.Direct).RequestReset()
	for {
	}
}

func (hardware) Halt() {
	for {
	}
}
