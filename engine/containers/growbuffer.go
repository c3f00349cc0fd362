package containers

import (
	"encoding/binary"
	"math"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// DefaultBufferBytes is the initial reservation and the growth step of a
// GrowBuffer created with non-positive sizes.
const DefaultBufferBytes = 1024 * 1024

// Number is the set of element types a GrowBuffer can hold.
type Number interface {
	constraints.Integer | constraints.Float
}

// GrowBuffer is a contiguous, single-owner buffer of fixed-size elements.
// It grows by a fixed number of elements instead of doubling, and Reset keeps
// the backing storage so the same buffer can be refilled for every
// (cell, layer) pair without new allocations.
//
// A GrowBuffer must not be copied after first use.
type GrowBuffer[T Number] struct {
	data      []T
	expansion int
}

// NewGrowBuffer reserves room for reserve elements and grows by expansion
// elements at a time. Non-positive values fall back to DefaultBufferBytes
// worth of elements.
func NewGrowBuffer[T Number](reserve, expansion int) *GrowBuffer[T] {
	def := DefaultBufferBytes / elementSize[T]()
	if reserve <= 0 {
		reserve = def
	}
	if expansion <= 0 {
		expansion = def
	}
	return &GrowBuffer[T]{
		data:      make([]T, 0, reserve),
		expansion: expansion,
	}
}

func elementSize[T Number]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// Reset logically empties the buffer without releasing its storage.
func (b *GrowBuffer[T]) Reset() {
	b.data = b.data[:0]
}

// Insert appends one element, growing the storage by the expansion
// increment when it is full.
func (b *GrowBuffer[T]) Insert(value T) {
	if len(b.data) == cap(b.data) {
		b.grow(1)
	}
	b.data = append(b.data, value)
}

// InsertMany appends all values in order.
func (b *GrowBuffer[T]) InsertMany(values ...T) {
	if free := cap(b.data) - len(b.data); free < len(values) {
		b.grow(len(values) - free)
	}
	b.data = append(b.data, values...)
}

// grow makes room for at least n more elements, in whole expansion steps.
func (b *GrowBuffer[T]) grow(n int) {
	steps := (n + b.expansion - 1) / b.expansion
	nd := make([]T, len(b.data), cap(b.data)+steps*b.expansion)
	copy(nd, b.data)
	b.data = nd
}

// Size returns the number of elements, not bytes.
func (b *GrowBuffer[T]) Size() int {
	return len(b.data)
}

// Cap returns the capacity in elements.
func (b *GrowBuffer[T]) Cap() int {
	return cap(b.data)
}

// Data returns a view of the stored elements. The view aliases the buffer
// and is only valid until the next Insert or Reset; consumers that keep the
// data must copy it.
func (b *GrowBuffer[T]) Data() []T {
	return b.data[:len(b.data):len(b.data)]
}

// ByteSize returns the size of the stored elements in bytes.
func (b *GrowBuffer[T]) ByteSize() int {
	return len(b.data) * elementSize[T]()
}

// Bytes returns a little-endian copy of the stored elements.
func (b *GrowBuffer[T]) Bytes() []byte {
	out := make([]byte, 0, b.ByteSize())
	return b.AppendBytes(out)
}

// AppendBytes appends the little-endian encoding of the stored elements to dst.
func (b *GrowBuffer[T]) AppendBytes(dst []byte) []byte {
	size := elementSize[T]()
	for _, v := range b.data {
		switch x := any(v).(type) {
		case float32:
			dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(x))
		case float64:
			dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(x))
		default:
			dst = appendInteger(dst, v, size)
		}
	}
	return dst
}

func appendInteger[T Number](dst []byte, v T, size int) []byte {
	switch size {
	case 1:
		return append(dst, byte(v))
	case 2:
		return binary.LittleEndian.AppendUint16(dst, uint16(v))
	case 4:
		return binary.LittleEndian.AppendUint32(dst, uint32(v))
	default:
		return binary.LittleEndian.AppendUint64(dst, uint64(v))
	}
}
