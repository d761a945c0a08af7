package cortexm

// State is the interrupt mask state returned by DisableInterrupts.
type State uint32

// Core exposes the processor primitives that cannot be expressed as register
// accesses.
type Core interface {
	// DisableInterrupts masks interrupts and returns the previous state.
	DisableInterrupts() State
	// RestoreInterrupts restores a state returned by DisableInterrupts.
	RestoreInterrupts(state State)
	// EnableInterrupts unmasks interrupts unconditionally.
	EnableInterrupts()
	// Barrier completes outstanding memory accesses and flushes the pipeline.
	Barrier()
	// Jump loads sp into the stack pointer and branches to entry. Nothing
	// from the caller's frame survives the switch. It does not return.
	Jump(sp uintptr, entry func())
	// JumpAddress loads sp and branches to the code at pc. It does not
	// return.
	JumpAddress(sp, pc uintptr)
	// SystemReset requests a processor reset. It does not return.
	SystemReset()
	// Halt stops forward progress. It does not return.
	Halt()
}

// Critical runs fn with interrupts disabled and restores the previous state on
// every exit path.
func Critical(core Core, fn func()) {
	state := core.DisableInterrupts()
	defer core.RestoreInterrupts(state)
	fn()
}
