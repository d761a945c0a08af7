package cortexm_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"omibyte.io/h7boot/mmio"
	"omibyte.io/h7boot/runtime/arm/cortexm"
	"omibyte.io/h7boot/sim"
)

const (
	flash uintptr = 0x08000000
	ram   uintptr = 0x24000000
)

func layout(data, bss uintptr) cortexm.Layout {
	return cortexm.Layout{
		DataFlash:  flash + 0x10000,
		DataStart:  ram,
		DataEnd:    ram + data,
		BssStart:   ram + data,
		BssEnd:     ram + data + bss,
		StackStart: ram + 0x70000,
		StackEnd:   ram + 0x7F000,
	}
}

func TestResetHandler(t *testing.T) {
	tests := []struct {
		name      string
		data, bss uintptr
	}{
		{"Empty", 0, 0},
		{"DataOnly", 13, 0},
		{"BssOnly", 0, 64},
		{"Both", 1027, 4099},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chip := sim.NewH743()
			l := layout(tt.data, tt.bss)

			image := bytes.Repeat([]byte{0x5A, 0xC3, 0x01}, int(tt.data/3)+1)[:tt.data]
			require.NoError(t, chip.Memory.Write(l.DataFlash, image))
			require.NoError(t, chip.Memory.Write(l.BssStart, bytes.Repeat([]byte{0xAA}, int(tt.bss)+16)))

			// Leftovers of a previous program
			chip.Memory.Poke(cortexm.NVICBase+0x300, 0xFFFFFFFF)
			chip.Memory.Poke(cortexm.SysTickBase, cortexm.SYST_CSR_ENABLE|cortexm.SYST_CSR_TICKINT)
			chip.Memory.Poke(cortexm.SCSBase+0x20, 0xF0F00000)

			var entered, masked bool
			b := &cortexm.Boot{
				Bus:    chip.Memory,
				Core:   chip.Core,
				Layout: l,
				Main: func() {
					entered = true
					masked = chip.Core.Masked()
				},
			}

			exit := chip.Run(b.ResetHandler)
			require.Equal(t, sim.ExitHalt, exit.Kind)
			require.True(t, entered)
			require.False(t, masked)
			require.Equal(t, l.StackEnd, chip.Core.SP)

			data, err := chip.Memory.Read(l.DataStart, int(tt.data))
			require.NoError(t, err)
			require.Equal(t, image, data)

			bss, err := chip.Memory.Read(l.BssStart, int(tt.bss)+16)
			require.NoError(t, err)
			require.Equal(t, make([]byte, tt.bss), bss[:tt.bss])
			// Nothing past the end of bss is touched
			require.Equal(t, bytes.Repeat([]byte{0xAA}, 16), bss[tt.bss:])

			for i := uintptr(0); i < cortexm.NVICWords; i++ {
				require.Equal(t, uint32(0xFFFFFFFF), chip.Memory.Peek(cortexm.NVICBase+0x80+i*4))
				require.Equal(t, uint32(0xFFFFFFFF), chip.Memory.Peek(cortexm.NVICBase+0x180+i*4))
			}
			require.Zero(t, chip.Memory.Peek(cortexm.NVICBase+0x300))
			require.False(t, cortexm.NewSysTick(chip.Memory).Enabled())
			require.Zero(t, chip.Memory.Peek(cortexm.SCSBase+0x20))
			require.Equal(t, uint32(cortexm.SCS_ICSR_PENDSVCLR|cortexm.SCS_ICSR_PENDSTCLR), chip.Memory.Peek(cortexm.SCSBase+0x04))
		})
	}
}

func TestDefaultHandler(t *testing.T) {
	chip := sim.NewH743()
	b := &cortexm.Boot{Bus: chip.Memory, Core: chip.Core, Layout: layout(0, 0), Main: func() {}}

	v := b.Vectors(150)
	require.Equal(t, 16+150, v.Len())
	require.Equal(t, b.Layout.StackEnd, v.InitialSP)

	for _, irq := range []cortexm.Interrupt{cortexm.HardFaultIRQn, cortexm.SysTickIRQn, 0, 149, 150} {
		exit := chip.Run(func() { v.Dispatch(irq) })
		require.Equal(t, sim.ExitHalt, exit.Kind, "irq %d", irq)
	}

	var reset bool
	v.Set(cortexm.ResetIRQn, func() { reset = true })
	v.Dispatch(cortexm.ResetIRQn)
	require.True(t, reset)
}

func TestDynMem(t *testing.T) {
	b := &cortexm.Boot{Layout: layout(100, 200)}
	require.Equal(t, ram+300, b.DynMemStart())
	require.Equal(t, ram+0x70000, b.DynMemEnd())
}

func TestLayoutValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(l *cortexm.Layout)
		valid  bool
	}{
		{"Valid", func(l *cortexm.Layout) {}, true},
		{"Reversed", func(l *cortexm.Layout) { l.DataEnd = l.DataStart - 1 }, false},
		{"DataOverBss", func(l *cortexm.Layout) { l.BssStart = l.DataEnd - 4 }, false},
		{"BssOverStack", func(l *cortexm.Layout) { l.BssEnd = l.StackStart + 4 }, false},
		{"ImageInRAM", func(l *cortexm.Layout) { l.DataFlash = l.DataStart + 8 }, false},
		{"EmptyImageAnywhere", func(l *cortexm.Layout) {
			l.DataEnd = l.DataStart
			l.DataFlash = l.DataStart
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := layout(64, 64)
			tt.modify(&l)
			err := l.Validate()
			if tt.valid {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, cortexm.ErrInvalidLayout)
			}
		})
	}
}

func TestCritical(t *testing.T) {
	core := sim.NewCore(sim.NewMemory())

	var inside bool
	cortexm.Critical(core, func() { inside = core.Masked() })
	require.True(t, inside)
	require.False(t, core.Masked())

	// A critical section inside a masked region leaves interrupts masked
	state := core.DisableInterrupts()
	cortexm.Critical(core, func() {})
	require.True(t, core.Masked())
	core.RestoreInterrupts(state)
	require.False(t, core.Masked())

	// Restored on panic too
	require.Panics(t, func() {
		cortexm.Critical(core, func() { panic("fault") })
	})
	require.False(t, core.Masked())
}

func TestSystemReset(t *testing.T) {
	mem := sim.NewMemory()
	core := sim.NewCore(mem)
	scs := cortexm.NewSCS(mem)
	scs.AIRCR.Set(0x3 << 8)

	exit := core.Run(core.SystemReset)
	require.Equal(t, sim.ExitReset, exit.Kind)
	require.Equal(t, uint32(0x05FA0304), scs.AIRCR.Get())
}

func TestNVIC(t *testing.T) {
	mem := sim.NewMemory()
	nvic := cortexm.NewNVIC(mem)

	nvic.Enable(37)
	require.Equal(t, uint32(1<<5), mmio.Reg32(mem, cortexm.NVICBase+4).Get())
	require.True(t, nvic.Enabled(37))

	nvic.SetPriority(37, 0x80)
	require.Equal(t, uint8(0x80), nvic.Priority(37))
	require.Equal(t, uint32(0x80<<8), mem.Peek(cortexm.NVICBase+0x300+36))
}

func TestTimebase(t *testing.T) {
	tests := []struct {
		name      string
		frequency uint32
		us        uint32
		ticks     uint32
	}{
		{"400MHz", 400_000_000, 20, 8000},
		{"480MHz", 480_000_000, 20, 9600},
		{"Fractional", 12_500_000, 20, 250},
		{"BelowMHz", 32768, 1_000_000, 32768},
		{"Stopped", 0, 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := cortexm.Timebase{Frequency: tt.frequency}
			require.Equal(t, tt.ticks, tb.FromMicros(tt.us))
			if tt.frequency != 0 {
				require.Equal(t, tt.us, tb.ToMicros(tt.ticks))
			} else {
				require.Zero(t, tb.ToMicros(5))
			}
		})
	}

	// Short waits on a slow timer round down, long ones saturate
	require.Zero(t, cortexm.Timebase{Frequency: 32768}.FromMicros(20))
	require.Equal(t, uint32(0xFFFFFFFF), cortexm.Timebase{Frequency: 480_000_000}.FromMicros(10_000_000))
}
