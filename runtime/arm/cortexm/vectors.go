package cortexm

const (
	ResetIRQn      Interrupt = -15
	NMIIRQn        Interrupt = -14
	HardFaultIRQn  Interrupt = -13
	MemManageIRQn  Interrupt = -12
	BusFaultIRQn   Interrupt = -11
	UsageFaultIRQn Interrupt = -10
	SVCallIRQn     Interrupt = -5
	DebugMonIRQn   Interrupt = -4
	PendSVIRQn     Interrupt = -2
	SysTickIRQn    Interrupt = -1
)

// Handler is an exception or interrupt service routine.
type Handler func()

// Vectors is the vector table: the initial stack pointer followed by one entry
// per exception, indexed by IRQ number offset by 16.
type Vectors struct {
	InitialSP uintptr
	Default   Handler
	handlers  []Handler
}

// NewVectors creates a table for a core with irqs external interrupts where
// every entry resolves to def until assigned.
func NewVectors(initialSP uintptr, irqs int, def Handler) *Vectors {
	return &Vectors{
		InitialSP: initialSP,
		Default:   def,
		handlers:  make([]Handler, 16+irqs),
	}
}

func (v *Vectors) Len() int {
	return len(v.handlers)
}

// Set assigns the handler for the exception numbered irq.
func (v *Vectors) Set(irq Interrupt, handler Handler) {
	v.handlers[int(irq)+16] = handler
}

// Handler returns the handler for irq, or the default handler when none was
// assigned.
func (v *Vectors) Handler(irq Interrupt) Handler {
	index := int(irq) + 16
	if index <= 0 || index >= len(v.handlers) || v.handlers[index] == nil {
		return v.Default
	}
	return v.handlers[index]
}

// Dispatch invokes the handler for irq.
func (v *Vectors) Dispatch(irq Interrupt) {
	v.Handler(irq)()
}
