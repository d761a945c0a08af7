//go:build !tinygo

package mmio

import (
	"sync/atomic"
	"unsafe"
)

// Direct accesses physical addresses of the running process. It is only
// meaningful on the target where peripherals are mapped at their documented
// addresses. Word accesses go through sync/atomic so they are never elided or
// merged by the compiler.
var Direct Bus = direct{}

type direct struct{}

func (direct) Load8(addr uintptr) uint8 {
	return *(*uint8)(unsafe.Pointer(addr))
}

func (direct) Store8(addr uintptr, value uint8) {
	*(*uint8)(unsafe.Pointer(addr)) = value
}

func (direct) Load32(addr uintptr) uint32 {
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(addr)))
}

func (direct) Store32(addr uintptr, value uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(addr)), value)
}
