package sim

import (
	"testing"

	"github.com/stretchr/testify/require"

	h7 "omibyte.io/h7boot/runtime/arm/cortexm/stm32/stm32h7"
)

func TestMemoryRegisters(t *testing.T) {
	m := NewMemory()
	m.Store32(0x40000000, 0xDEADBEEF)
	require.Equal(t, uint32(0xDEADBEEF), m.Load32(0x40000000))
	require.Equal(t, uint8(0xBE), m.Load8(0x40000001))

	m.Store8(0x40000002, 0x11)
	require.Equal(t, uint32(0xDE11BEEF), m.Load32(0x40000000))
	require.Equal(t, 2, m.Writes(0x40000000))
	require.Equal(t, []uintptr{0x40000000}, m.Registers())

	m.ResetWrites()
	require.Zero(t, m.Writes(0x40000000))
}

func TestMemoryRegions(t *testing.T) {
	m := NewMemory()
	rom := m.AddRegion("rom", 0x08000000, 64, true)
	m.AddRegion("ram", 0x20000000, 64, false)
	require.Equal(t, []string{"rom", "ram"}, []string{m.Regions()[0].Name, m.Regions()[1].Name})
	require.Equal(t, uintptr(0x08000040), rom.End())

	m.Store32(0x20000004, 0x04030201)
	require.Equal(t, uint8(0x03), m.Load8(0x20000006))

	// Writes to read-only memory are dropped
	m.Store32(0x08000000, 0xFFFFFFFF)
	m.Store8(0x08000004, 0xFF)
	require.Zero(t, m.Load32(0x08000000))
	require.Zero(t, m.Load8(0x08000004))
	require.Zero(t, m.Writes(0x08000000))

	// except by a programmer
	require.NoError(t, m.Write(0x08000000, []byte{1, 2, 3, 4}))
	require.Equal(t, uint32(0x04030201), m.Load32(0x08000000))

	require.Error(t, m.Write(0x0800003E, []byte{1, 2, 3, 4}))
	_, err := m.Read(0x30000000, 1)
	require.Error(t, err)
}

func TestMemoryHooks(t *testing.T) {
	m := NewMemory()
	const reg = 0x50000000

	loads := 0
	m.OnLoad(reg, func(value uint32) uint32 {
		loads++
		return value + 1
	})
	m.OnStore(reg, func(old, value uint32) uint32 {
		return old | value
	})

	m.Store32(reg, 0x10)
	m.Store32(reg, 0x01)
	require.Equal(t, uint32(0x11), m.Peek(reg))
	require.Equal(t, uint32(0x12), m.Load32(reg))
	require.Equal(t, uint32(0x12), m.Peek(reg))
	require.Equal(t, 1, loads)

	m.Trace()
	m.Store32(reg, 0x100)
	m.Poke(reg+4, 5)
	require.Equal(t, []Access{{Addr: reg, Value: 0x100}}, m.Stores())
	require.Equal(t, "0x50000000 <- 0x00000100", m.Stores()[0].String())
}

func TestChipReset(t *testing.T) {
	chip := NewH743()
	chip.Memory.Store32(h7.AXISRAMBase, 0xCAFEF00D)
	chip.Memory.Store32(h7.RCCBase+h7.RCC_CR, h7.RCC_CR_HSION|h7.RCC_CR_HSEON)
	chip.Memory.Store32(h7.GPIOABase, 0x1234)

	chip.Reset()
	require.Equal(t, uint32(0xCAFEF00D), chip.Memory.Load32(h7.AXISRAMBase))
	require.Equal(t, uint32(h7.RCC_CR_HSION|h7.RCC_CR_HSIRDY), chip.Memory.Peek(h7.RCCBase+h7.RCC_CR))
	require.Zero(t, chip.Memory.Peek(h7.GPIOABase))
	require.Equal(t, uint32(adcCRDEEPPWD), chip.Memory.Peek(h7.ADC1Base+adcCR))
	require.Equal(t, uint32(0x37), chip.Memory.Peek(h7.FlashRBase+h7.FLASH_ACR))

	// The ROM vectors survive
	require.Equal(t, BootloaderSP, chip.Memory.Load32(h7.SystemMemoryBase))
	require.Equal(t, BootloaderEntry, chip.Memory.Load32(h7.SystemMemoryBase+4))
}

func TestPLLLock(t *testing.T) {
	chip := NewH743()
	cr := h7.RCCBase + h7.RCC_CR
	chip.Memory.Store32(cr, h7.RCC_CR_HSION|h7.RCC_CR_PLL1ON)

	for i := 1; i < LockPolls; i++ {
		require.Zero(t, chip.Memory.Load32(cr)&h7.RCC_CR_PLL1RDY)
	}
	require.NotZero(t, chip.Memory.Load32(cr)&h7.RCC_CR_PLL1RDY)
	require.Equal(t, 1, chip.RCC.Locks)

	// Ready flags cannot be written
	chip.Memory.Store32(cr, h7.RCC_CR_HSION|h7.RCC_CR_HSERDY)
	require.Zero(t, chip.Memory.Peek(cr)&(h7.RCC_CR_HSERDY|h7.RCC_CR_PLL1RDY))
}

func TestCoreRun(t *testing.T) {
	core := NewCore(NewMemory())

	require.Equal(t, ExitReturn, core.Run(func() {}).Kind)
	require.Equal(t, ExitHalt, core.Run(core.Halt).Kind)

	exit := core.Run(func() { core.JumpAddress(0x20001000, 0x08000101) })
	require.Equal(t, "jump sp=0x20001000 pc=0x8000101", exit.String())

	require.PanicsWithValue(t, "boom", func() {
		core.Run(func() { panic("boom") })
	})
}

func TestCoreJump(t *testing.T) {
	core := NewCore(NewMemory())

	var seen []uintptr
	exit := core.Run(func() {
		core.Jump(0x24080000, func() { seen = append(seen, core.SP) })
		seen = append(seen, 0)
	})

	// The entry runs once on the new stack and the caller is never resumed
	require.Equal(t, []uintptr{0x24080000}, seen)
	require.Equal(t, ExitHalt, exit.Kind)
}
