// File: dtype/tag.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Canonical runtime type tags and the compile-time-to-runtime mapping that
// binds a block's typed process parameters to the uniform dispatch surface.

package dtype

import (
	"fmt"
	"reflect"
)

// Tag is a canonical, string-compared data type name. Aliases of the same
// underlying primitive unify because comparison is by value, not identity.
type Tag string

// Closed set of built-in primitive tags (spec.md §3).
const (
	ComplexFloat32 Tag = "ComplexFloat32"
	ComplexFloat64 Tag = "ComplexFloat64"
	Float32        Tag = "Float32"
	Float64        Tag = "Float64"
	Unsigned8      Tag = "Unsigned8"
	Unsigned16     Tag = "Unsigned16"
	Unsigned32     Tag = "Unsigned32"
	Unsigned64     Tag = "Unsigned64"
	Signed8        Tag = "Signed8"
	Signed16       Tag = "Signed16"
	Signed32       Tag = "Signed32"
	Signed64       Tag = "Signed64"
	BitTag         Tag = "Bit"
)

// Bit represents a single-bit sample. It is stored one value per byte; true
// bit-packing is left to a composite type built on top (see Non-goals).
type Bit uint8

// TypeNamer lets a composite type (e.g. refcount.Ref[T]) supply its own tag
// instead of going through the primitive table.
type TypeNamer interface {
	TypeName() string
}

var primitiveTags = map[reflect.Type]Tag{
	reflect.TypeOf(complex64(0)):  ComplexFloat32,
	reflect.TypeOf(complex128(0)): ComplexFloat64,
	reflect.TypeOf(float32(0)):    Float32,
	reflect.TypeOf(float64(0)):    Float64,
	reflect.TypeOf(uint8(0)):      Unsigned8,
	reflect.TypeOf(uint16(0)):     Unsigned16,
	reflect.TypeOf(uint32(0)):     Unsigned32,
	reflect.TypeOf(uint64(0)):     Unsigned64,
	reflect.TypeOf(int8(0)):       Signed8,
	reflect.TypeOf(int16(0)):      Signed16,
	reflect.TypeOf(int32(0)):      Signed32,
	reflect.TypeOf(int64(0)):      Signed64,
	reflect.TypeOf(Bit(0)):        BitTag,
}

// TagOf derives the canonical tag for T. Composite types implementing
// TypeNamer are asked directly; primitives are resolved from the built-in
// table. T is fixed at the generic instantiation's call site, so this
// resolves the same way on every call for a given T — the construction-time
// equivalent of the original's compile-time reflection (see SPEC_FULL §4).
//
// Unknown primitives panic at block-construction time rather than at
// compile time; there is no Go mechanism to reject an unsupported T at
// compile time without code generation (Design Notes §9).
func TagOf[T any]() Tag {
	var zero T
	if tn, ok := any(zero).(TypeNamer); ok {
		return Tag(tn.TypeName())
	}
	t := reflect.TypeOf(zero)
	if tag, ok := primitiveTags[t]; ok {
		return tag
	}
	panic(fmt.Sprintf("dtype: unsupported sample type %s", t))
}

// SizeOf returns sizeof(T) in bytes, used to convert between byte-granular
// ring buffer offsets and sample counts (spec.md §3 Sample slot).
func SizeOf[T any]() int {
	var zero T
	return int(reflect.TypeOf(zero).Size())
}
