// Package pod reads and writes plain-old-data values in target memory using the host layout
package pod

import (
	"errors"
	"fmt"
	"unsafe"

	"memedit/process"
)

func SizeOf[T any]() process.ProcessMemorySize {
	var t T
	return process.ProcessMemorySize(unsafe.Sizeof(t))
}

// ReadT reads a T at addr. T must not contain pointers or other Go-managed references.
func ReadT[T any](r process.MemoryReader, addr process.ProcessMemoryAddress) (T, error) {
	size := SizeOf[T]()
	if size == 0 {
		return *new(T), errors.New("ReadT: size of T is zero")
	}

	data, err := r.ReadMemory(addr, size)
	if err != nil {
		return *new(T), err
	}
	return Decode[T](data)
}

// Decode copies the first SizeOf[T] bytes of data into a T
func Decode[T any](data []byte) (T, error) {
	var v T
	size := int(unsafe.Sizeof(v))
	if len(data) < size {
		return v, fmt.Errorf("Decode: need %d bytes, have %d", size, len(data))
	}
	if size == 0 {
		return v, nil
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&v)), size), data)
	return v, nil
}

// WriteT serializes a POD value T into a raw byte slice using the in-memory layout.
// T must be POD (no pointers or Go-managed references) for the bytes to be meaningful
// outside the process.
func WriteT[T any](v T) []byte {
	size := int(unsafe.Sizeof(v))
	if size == 0 {
		return []byte{}
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(&v)), size)
	out := make([]byte, size)
	copy(out, src)
	return out
}
