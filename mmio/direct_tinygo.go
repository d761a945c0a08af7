//go:build tinygo

package mmio

import (
	"runtime/volatile"
	"unsafe"
)

// Direct accesses the memory-mapped peripherals of the chip.
var Direct Bus = direct{}

type direct struct{}

func (direct) Load8(addr uintptr) uint8 {
	return volatile.LoadUint8((*uint8)(unsafe.Pointer(addr)))
}

func (direct) Store8(addr uintptr, value uint8) {
	volatile.StoreUint8((*uint8)(unsafe.Pointer(addr)), value)
}

func (direct) Load32(addr uintptr) uint32 {
	return volatile.LoadUint32((*uint32)(unsafe.Pointer(addr)))
}

func (direct) Store32(addr uintptr, value uint32) {
	volatile.StoreUint32((*uint32)(unsafe.Pointer(addr)), value)
}
