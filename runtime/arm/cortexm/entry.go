package cortexm

import (
	"errors"
	"fmt"

	"omibyte.io/h7boot/mmio"
)

var ErrInvalidLayout = errors.New("invalid memory layout")

// Layout holds the addresses the linker script exports for the memory image.
type Layout struct {
	// Initialized data: its load image in flash and its run location in RAM.
	DataFlash uintptr
	DataStart uintptr
	DataEnd   uintptr

	// Zero-initialized data.
	BssStart uintptr
	BssEnd   uintptr

	// Main stack. The stack grows down from StackEnd.
	StackStart uintptr
	StackEnd   uintptr
}

func (l Layout) DataSize() uintptr  { return l.DataEnd - l.DataStart }
func (l Layout) BssSize() uintptr   { return l.BssEnd - l.BssStart }
func (l Layout) StackSize() uintptr { return l.StackEnd - l.StackStart }

// Validate checks that the RAM regions are ordered data, bss, heap, stack
// without overlap and that the flash image does not overlap them.
func (l Layout) Validate() error {
	if l.DataStart > l.DataEnd || l.BssStart > l.BssEnd || l.StackStart > l.StackEnd {
		return fmt.Errorf("%w: region ends before it starts", ErrInvalidLayout)
	}
	if l.DataEnd > l.BssStart {
		return fmt.Errorf("%w: data [%#x,%#x) overlaps bss at %#x", ErrInvalidLayout, l.DataStart, l.DataEnd, l.BssStart)
	}
	if l.BssEnd > l.StackStart {
		return fmt.Errorf("%w: bss [%#x,%#x) overlaps stack at %#x", ErrInvalidLayout, l.BssStart, l.BssEnd, l.StackStart)
	}
	if size := l.DataSize(); size != 0 && l.DataFlash < l.StackEnd && l.DataFlash+size > l.DataStart {
		return fmt.Errorf("%w: data image at %#x overlaps RAM", ErrInvalidLayout, l.DataFlash)
	}
	return nil
}

// Boot is the reset sequence of the core. Main is the board entry point and
// must not return.
//
// On hardware ResetHandler runs before .data is copied and .bss is cleared,
// so a Boot and everything it refers to must live outside both sections.
type Boot struct {
	Bus    mmio.Bus
	Core   Core
	Layout Layout
	Main   func()
}

// ResetHandler is the first code run after a reset. Nothing on the stack can
// be trusted yet, so it only masks interrupts and moves onto the real stack.
func (b *Boot) ResetHandler() {
	b.Core.DisableInterrupts()
	b.Core.Jump(b.Layout.StackEnd, b.stageTwo)
}

func (b *Boot) stageTwo() {
	// Drop whatever interrupt configuration a bootloader left behind
	NewNVIC(b.Bus).Reset(b.Core.Barrier)

	NewSysTick(b.Bus).Disarm()
	b.Core.Barrier()

	scs := NewSCS(b.Bus)
	scs.ClearPending()
	scs.ResetPriorities()

	b.Core.Barrier()
	b.Core.EnableInterrupts()

	// Copy global variables from flash to ram
	mmio.Copy(b.Bus, b.Layout.DataStart, b.Layout.DataFlash, b.Layout.DataSize())

	// Clear the bss segment
	mmio.Zero(b.Bus, b.Layout.BssStart, b.Layout.BssSize())
	b.Core.Barrier()

	b.Main()

	// Main should not return
	for {
		b.Core.Halt()
	}
}

// DefaultHandler services every exception without a handler of its own. An
// unexpected exception is a configuration error, so it stops here.
func (b *Boot) DefaultHandler() {
	for {
		b.Core.Halt()
	}
}

// Vectors returns a vector table with the reset and default handlers of b.
func (b *Boot) Vectors(irqs int) *Vectors {
	v := NewVectors(b.Layout.StackEnd, irqs, b.DefaultHandler)
	v.Set(ResetIRQn, b.ResetHandler)
	return v
}

// DynMemStart returns the start of memory available for dynamic allocations.
func (b *Boot) DynMemStart() uintptr {
	return b.Layout.BssEnd
}

// DynMemEnd returns the end of memory available for dynamic allocations.
func (b *Boot) DynMemEnd() uintptr {
	return b.Layout.StackStart
}
