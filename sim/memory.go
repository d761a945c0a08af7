// Package sim models enough of an STM32H743 on the host to run the bring-up
// code: a sparse memory bus with register hooks, a Cortex-M core whose exits
// are observable, and the RCC, GPIO and ADC behaviour the drivers wait on.
package sim

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Region is a block of byte-addressable memory such as flash or RAM.
type Region struct {
	Name     string
	Base     uintptr
	Data     []byte
	ReadOnly bool
}

func (r *Region) contains(addr uintptr) bool {
	return addr >= r.Base && addr-r.Base < uintptr(len(r.Data))
}

func (r *Region) End() uintptr {
	return r.Base + uintptr(len(r.Data))
}

// LoadHook returns the value observed by a read of a register holding value.
type LoadHook func(value uint32) uint32

// StoreHook returns the value a register holds after old is overwritten by a
// write of value.
type StoreHook func(old, value uint32) uint32

// Access is one entry of the store trace.
type Access struct {
	Addr  uintptr
	Value uint32
}

func (a Access) String() string {
	return fmt.Sprintf("%#08x <- %#08x", a.Addr, a.Value)
}

// Memory is a little-endian address space. Addresses outside every region
// behave as 32-bit registers that read back what was last written, or zero.
//
// Hooks run with the memory locked and must use peek and poke for other
// registers.
type Memory struct {
	mu         sync.Mutex
	regions    []*Region
	registers  map[uintptr]uint32
	loadHooks  map[uintptr]LoadHook
	storeHooks map[uintptr]StoreHook
	writes     map[uintptr]int
	tracing    bool
	trace      []Access
}

func NewMemory() *Memory {
	return &Memory{
		registers:  map[uintptr]uint32{},
		loadHooks:  map[uintptr]LoadHook{},
		storeHooks: map[uintptr]StoreHook{},
		writes:     map[uintptr]int{},
	}
}

// AddRegion maps size bytes at base. Regions must not overlap.
func (m *Memory) AddRegion(name string, base, size uintptr, readOnly bool) *Region {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := &Region{Name: name, Base: base, Data: make([]byte, size), ReadOnly: readOnly}
	m.regions = append(m.regions, r)
	slices.SortFunc(m.regions, func(a, b *Region) bool {
		return a.Base < b.Base
	})
	return r
}

// Regions returns the mapped regions ordered by address.
func (m *Memory) Regions() []*Region {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.regions)
}

func (m *Memory) region(addr uintptr) *Region {
	for _, r := range m.regions {
		if r.contains(addr) {
			return r
		}
	}
	return nil
}

// OnLoad installs a hook for reads of the register at addr.
func (m *Memory) OnLoad(addr uintptr, hook LoadHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadHooks[addr] = hook
}

// OnStore installs a hook for writes of the register at addr.
func (m *Memory) OnStore(addr uintptr, hook StoreHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeHooks[addr] = hook
}

func (m *Memory) peek(addr uintptr) uint32 {
	if r := m.region(addr); r != nil && r.contains(addr+3) {
		return binary.LittleEndian.Uint32(r.Data[addr-r.Base:])
	}
	return m.registers[addr]
}

func (m *Memory) poke(addr uintptr, value uint32) {
	if r := m.region(addr); r != nil && r.contains(addr+3) {
		binary.LittleEndian.PutUint32(r.Data[addr-r.Base:], value)
		return
	}
	m.registers[addr] = value
}

func (m *Memory) record(addr uintptr, value uint32) {
	m.writes[addr&^3]++
	if m.tracing {
		m.trace = append(m.trace, Access{Addr: addr, Value: value})
	}
}

func (m *Memory) Load32(addr uintptr) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	value := m.peek(addr)
	if hook, ok := m.loadHooks[addr]; ok {
		value = hook(value)
		m.poke(addr, value)
	}
	return value
}

func (m *Memory) Store32(addr uintptr, value uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r := m.region(addr); r != nil && r.ReadOnly {
		glog.Warningf("sim: write of %#x to read-only %s at %#x ignored", value, r.Name, addr)
		return
	}
	m.record(addr, value)
	if hook, ok := m.storeHooks[addr]; ok {
		value = hook(m.peek(addr), value)
	}
	m.poke(addr, value)
}

func (m *Memory) Load8(addr uintptr) uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r := m.region(addr); r != nil {
		return r.Data[addr-r.Base]
	}
	return uint8(m.registers[addr&^3] >> ((addr & 3) * 8))
}

func (m *Memory) Store8(addr uintptr, value uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r := m.region(addr); r != nil {
		if r.ReadOnly {
			glog.Warningf("sim: write to read-only %s at %#x ignored", r.Name, addr)
			return
		}
		m.record(addr, uint32(value))
		r.Data[addr-r.Base] = value
		return
	}
	word, shift := addr&^3, (addr&3)*8
	m.record(addr, uint32(value))
	m.registers[word] = m.registers[word]&^(0xFF<<shift) | uint32(value)<<shift
}

// Peek reads a register without running its hooks.
func (m *Memory) Peek(addr uintptr) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peek(addr)
}

// Poke writes a register or read-only memory without running hooks or
// counting the write.
func (m *Memory) Poke(addr uintptr, value uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poke(addr, value)
}

// Write copies data to addr bypassing write protection.
func (m *Memory) Write(addr uintptr, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.region(addr)
	if r == nil || addr+uintptr(len(data)) > r.End() {
		return fmt.Errorf("sim: %d bytes at %#x do not fit a region", len(data), addr)
	}
	copy(r.Data[addr-r.Base:], data)
	return nil
}

// Read returns a copy of n bytes at addr.
func (m *Memory) Read(addr uintptr, n int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.region(addr)
	if r == nil || addr+uintptr(n) > r.End() {
		return nil, fmt.Errorf("sim: %d bytes at %#x do not fit a region", n, addr)
	}
	return slices.Clone(r.Data[addr-r.Base : addr-r.Base+uintptr(n)]), nil
}

// Writes returns how many times the word at addr was written.
func (m *Memory) Writes(addr uintptr) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[addr&^3]
}

// ResetWrites clears the write counters.
func (m *Memory) ResetWrites() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = map[uintptr]int{}
}

// Trace starts recording every store, discarding earlier records.
func (m *Memory) Trace() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracing = true
	m.trace = nil
}

// Stores returns the stores recorded since Trace.
func (m *Memory) Stores() []Access {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.trace)
}

// Registers returns the written register addresses outside the regions in
// ascending order.
func (m *Memory) Registers() []uintptr {
	m.mu.Lock()
	defer m.mu.Unlock()
	addrs := maps.Keys(m.registers)
	slices.Sort(addrs)
	return addrs
}

// resetRegisters drops every register value and sets the given reset values.
func (m *Memory) resetRegisters(values map[uintptr]uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registers = maps.Clone(values)
	if m.registers == nil {
		m.registers = map[uintptr]uint32{}
	}
	m.writes = map[uintptr]int{}
}
