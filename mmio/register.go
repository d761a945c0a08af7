package mmio

// Register32 is a 32-bit register at a fixed address on a bus.
type Register32 struct {
	bus  Bus
	addr uintptr
}

// Reg32 returns the register at addr.
func Reg32(bus Bus, addr uintptr) Register32 {
	return Register32{bus: bus, addr: addr}
}

func (r Register32) Address() uintptr {
	return r.addr
}

func (r Register32) Get() uint32 {
	return r.bus.Load32(r.addr)
}

func (r Register32) Set(value uint32) {
	r.bus.Store32(r.addr, value)
}

// SetBits sets the bits in mask, leaving the others unchanged.
func (r Register32) SetBits(mask uint32) {
	r.Set(r.Get() | mask)
}

// ClearBits clears the bits in mask, leaving the others unchanged.
func (r Register32) ClearBits(mask uint32) {
	r.Set(r.Get() &^ mask)
}

// HasBits reports whether any bit in mask is set.
func (r Register32) HasBits(mask uint32) bool {
	return r.Get()&mask != 0
}

// ReplaceBits replaces the field mask<<pos with value<<pos.
func (r Register32) ReplaceBits(value, mask uint32, pos uint8) {
	r.Set(r.Get()&^(mask<<pos) | (value&mask)<<pos)
}

// Modify clears the bits in clear and sets the bits in set with a single
// read-modify-write.
func (r Register32) Modify(clear, set uint32) {
	r.Set(r.Get()&^clear | set)
}
