package ir

import "fmt"

// DType is the data type of a declaration or expression.
type DType interface {
	dtype()
}

// ScalarType is a single-bit logic value without a range.
type ScalarType struct{}

func (ScalarType) dtype() {}

// VectorType is a ranged bit vector [Width-1:0]. Each bit can be
// forced independently.
type VectorType struct {
	Width int
}

func (VectorType) dtype() {}

// UnpackedArrayType is a fixed-size array of Size elements.
type UnpackedArrayType struct {
	Elem DType
	Size int
}

func (UnpackedArrayType) dtype() {}

// OpaqueType covers non-integral values (real, strings, handles). Such a
// value is forced as a whole.
type OpaqueType struct {
	Name  string
	Width int
}

func (OpaqueType) dtype() {}

// Width returns the number of storage bits of t. For arrays this is the
// width of all elements together.
func Width(t DType) int {
	switch t := t.(type) {
	case ScalarType:
		return 1
	case VectorType:
		return t.Width
	case UnpackedArrayType:
		return Width(t.Elem) * t.Size
	case OpaqueType:
		return t.Width
	}
	panic(fmt.Sprintf("ir: unhandled dtype %T", t))
}

// IsRanged reports whether t (or, for arrays, its element) is a ranged
// vector.
func IsRanged(t DType) bool {
	switch t := t.(type) {
	case VectorType:
		return true
	case UnpackedArrayType:
		return IsRanged(t.Elem)
	case ScalarType, OpaqueType:
		return false
	}
	panic(fmt.Sprintf("ir: unhandled dtype %T", t))
}

// Elements is the number of unpacked elements of t, 1 for non-arrays.
func Elements(t DType) int {
	if a, ok := t.(UnpackedArrayType); ok {
		return a.Size
	}
	return 1
}

// TypeString renders t in a Verilog-like notation.
func TypeString(t DType) string {
	switch t := t.(type) {
	case ScalarType:
		return "logic"
	case VectorType:
		return fmt.Sprintf("logic[%d:0]", t.Width-1)
	case UnpackedArrayType:
		return fmt.Sprintf("%s$[0:%d]", TypeString(t.Elem), t.Size-1)
	case OpaqueType:
		return t.Name
	}
	return fmt.Sprintf("%T", t)
}
