package pod

import (
	"fmt"
	"slices"
	"strconv"

	"memedit/process"
)

// Value describes a scalar type the shell can read and write by name
type Value struct {
	Name   string
	Size   int
	Read   func(r process.MemoryReader, addr process.ProcessMemoryAddress) (string, error)
	Encode func(string) ([]byte, error)
}

func newValue[T any](name string, parse func(string) (T, error)) Value {
	return Value{
		Name: name,
		Size: int(SizeOf[T]()),
		Read: func(r process.MemoryReader, addr process.ProcessMemoryAddress) (string, error) {
			v, err := ReadT[T](r, addr)
			if err != nil {
				return "", err
			}
			return fmt.Sprint(v), nil
		},
		Encode: func(s string) ([]byte, error) {
			v, err := parse(s)
			if err != nil {
				return nil, fmt.Errorf("invalid %s %q: %w", name, s, err)
			}
			return WriteT(v), nil
		},
	}
}

func parseInt[T int8 | int16 | int32 | int64](bits int) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := strconv.ParseInt(s, 0, bits)
		return T(v), err
	}
}

func parseUint[T uint8 | uint16 | uint32 | uint64](bits int) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := strconv.ParseUint(s, 0, bits)
		return T(v), err
	}
}

func parseFloat[T float32 | float64](bits int) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := strconv.ParseFloat(s, bits)
		return T(v), err
	}
}

var values = map[string]Value{
	"i8":  newValue("i8", parseInt[int8](8)),
	"i16": newValue("i16", parseInt[int16](16)),
	"i32": newValue("i32", parseInt[int32](32)),
	"i64": newValue("i64", parseInt[int64](64)),
	"u8":  newValue("u8", parseUint[uint8](8)),
	"u16": newValue("u16", parseUint[uint16](16)),
	"u32": newValue("u32", parseUint[uint32](32)),
	"u64": newValue("u64", parseUint[uint64](64)),
	"f32": newValue("f32", parseFloat[float32](32)),
	"f64": newValue("f64", parseFloat[float64](64)),
}

// LookupValue returns the Value named name, e.g. "i32" or "f64"
func LookupValue(name string) (Value, bool) {
	v, ok := values[name]
	return v, ok
}

// ValueNames lists the known type names
func ValueNames() []string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
