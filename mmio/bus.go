// Package mmio provides access to memory-mapped registers through a Bus so the
// same driver code can run against the hardware or against a simulated chip.
package mmio

// Bus is a byte-addressable, little-endian address space.
type Bus interface {
	Load8(addr uintptr) uint8
	Store8(addr uintptr, value uint8)
	Load32(addr uintptr) uint32
	Store32(addr uintptr, value uint32)
}

// Load64 reads a 64-bit value as two word accesses, low word first.
func Load64(bus Bus, addr uintptr) uint64 {
	lo := bus.Load32(addr)
	hi := bus.Load32(addr + 4)
	return uint64(hi)<<32 | uint64(lo)
}

// Store64 writes a 64-bit value as two word accesses, low word first.
func Store64(bus Bus, addr uintptr, value uint64) {
	bus.Store32(addr, uint32(value))
	bus.Store32(addr+4, uint32(value>>32))
}

// Copy copies n bytes from src to dst one byte at a time.
func Copy(bus Bus, dst, src, n uintptr) {
	for i := uintptr(0); i < n; i++ {
		bus.Store8(dst+i, bus.Load8(src+i))
	}
}

// Zero clears n bytes starting at dst.
func Zero(bus Bus, dst, n uintptr) {
	for i := uintptr(0); i < n; i++ {
		bus.Store8(dst+i, 0)
	}
}
