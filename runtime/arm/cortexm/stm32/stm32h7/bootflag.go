package stm32h7

import "omibyte.io/h7boot/mmio"

// BootFlag asks the next boot to enter the ROM bootloader. It reads "USB BOOT".
const BootFlag uint64 = 0x55534220424f4f54

// BootFlagReserve is the size of the region at the top of RAM that holds the
// flag. It is not part of the stack or the heap.
const BootFlagReserve uintptr = 4096

// BootFlagAddress returns the location of the flag in a RAM of size bytes
// starting at start.
func BootFlagAddress(start, size uintptr) uintptr {
	return start + size - BootFlagReserve
}

func readBootFlag(bus mmio.Bus, addr uintptr) bool {
	return mmio.Load64(bus, addr) == BootFlag
}

func clearBootFlag(bus mmio.Bus, addr uintptr) {
	mmio.Store64(bus, addr, 0)
}

func writeBootFlag(bus mmio.Bus, addr uintptr) {
	mmio.Store64(bus, addr, BootFlag)
}
