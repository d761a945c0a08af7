package sim

import (
	"fmt"

	"github.com/golang/glog"

	"omibyte.io/h7boot/mmio"
	"omibyte.io/h7boot/runtime/arm/cortexm"
)

type ExitKind int

const (
	// ExitReturn means the code returned where a real core would not.
	ExitReturn ExitKind = iota
	ExitHalt
	ExitReset
	ExitJump
)

func (k ExitKind) String() string {
	switch k {
	case ExitReturn:
		return "return"
	case ExitHalt:
		return "halt"
	case ExitReset:
		return "reset"
	case ExitJump:
		return "jump"
	}
	return fmt.Sprintf("ExitKind(%d)", int(k))
}

// Exit describes how a run of the core ended. SP and PC are set for ExitJump.
type Exit struct {
	Kind ExitKind
	SP   uintptr
	PC   uintptr
}

func (e *Exit) String() string {
	if e.Kind == ExitJump {
		return fmt.Sprintf("jump sp=%#x pc=%#x", e.SP, e.PC)
	}
	return e.Kind.String()
}

// Core is a cortexm.Core that turns the primitives that never return into an
// Exit of Run.
type Core struct {
	bus mmio.Bus

	masked   bool
	SP       uintptr
	Barriers int
	// Criticals counts calls to DisableInterrupts.
	Criticals int
}

func NewCore(bus mmio.Bus) *Core {
	return &Core{bus: bus}
}

// Masked reports whether interrupts are disabled.
func (c *Core) Masked() bool {
	return c.masked
}

func (c *Core) DisableInterrupts() cortexm.State {
	state := c.state()
	c.masked = true
	c.Criticals++
	return state
}

func (c *Core) RestoreInterrupts(state cortexm.State) {
	c.masked = state != 0
}

func (c *Core) EnableInterrupts() {
	c.masked = false
}

func (c *Core) state() cortexm.State {
	if c.masked {
		return 1
	}
	return 0
}

func (c *Core) Barrier() {
	c.Barriers++
}

func (c *Core) Jump(sp uintptr, entry func()) {
	c.SP = sp
	entry()
	c.Halt()
}

func (c *Core) JumpAddress(sp, pc uintptr) {
	c.SP = sp
	panic(&Exit{Kind: ExitJump, SP: sp, PC: pc})
}

func (c *Core) SystemReset() {
	cortexm.NewSCS(c.bus).RequestReset()
	panic(&Exit{Kind: ExitReset})
}

func (c *Core) Halt() {
	panic(&Exit{Kind: ExitHalt})
}

// Run calls fn and returns how it left the core. Panics other than core exits
// are propagated.
func (c *Core) Run(fn func()) (exit *Exit) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*Exit)
			if !ok {
				panic(r)
			}
			exit = e
		}
		glog.V(1).Infof("sim: core exit: %v", exit)
	}()

	fn()
	return &Exit{Kind: ExitReturn}
}

// reset returns the core to its power-on state.
func (c *Core) reset() {
	c.masked = false
	c.SP = 0
	c.Barriers = 0
	c.Criticals = 0
}
