package compiler

import (
	"fmt"

	"jscpu/pkg/cpu"
)

// MemoryAllocator hands out cells from the data region with a bump pointer.
// Nothing is ever freed: scope exit releases registers and names, but data
// cells stay claimed for the life of the program. The pointer starts at cell
// zero and may grow up to the stack region; crossing it is fatal.
type MemoryAllocator struct {
	spec cpu.Spec
	next int
}

// ArrayAllocation records where an array landed and where its base register
// should point. Base placement is progressive: for short arrays the base is
// element zero, and as the array outgrows the positive half of the offset
// window the base slides forward just far enough that the last element stays
// reachable, which brings the negative offsets into play for the leading
// elements.
type ArrayAllocation struct {
	Start      int // address of element zero
	Length     int
	BaseOffset int // index whose address the base register holds
}

// Base is the address loaded into the array's base register.
func (a ArrayAllocation) Base() int { return a.Start + a.BaseOffset }

// NewMemoryAllocator returns an allocator over the spec's data region.
func NewMemoryAllocator(spec cpu.Spec) *MemoryAllocator {
	return &MemoryAllocator{spec: spec}
}

// AllocScalar claims one cell and returns its address.
func (m *MemoryAllocator) AllocScalar() (int, error) {
	if m.next+1 > m.spec.StackStart {
		return 0, fmt.Errorf("data region full at cell %d: %w", m.next, ErrOutOfMemory)
	}
	addr := m.next
	m.next++
	return addr, nil
}

// AllocArray claims length contiguous cells and computes the base placement.
// The base offset is the smallest shift that keeps the final element inside
// the positive half of the offset window, so every array up to
// OffsetMax-OffsetMin+1 elements long is fully reachable from one base
// register without address arithmetic.
func (m *MemoryAllocator) AllocArray(length int) (ArrayAllocation, error) {
	if length < 0 {
		return ArrayAllocation{}, fmt.Errorf("negative array length %d", length)
	}
	if m.next+length > m.spec.StackStart {
		return ArrayAllocation{}, fmt.Errorf("array of %d cells does not fit at cell %d: %w",
			length, m.next, ErrOutOfMemory)
	}
	base := length - 1 - m.spec.OffsetMax()
	if base < 0 {
		base = 0
	}
	alloc := ArrayAllocation{Start: m.next, Length: length, BaseOffset: base}
	m.next += length
	return alloc, nil
}

// Used is how many data cells have been claimed so far.
func (m *MemoryAllocator) Used() int { return m.next }

// offsetFor reports the base-relative offset of element idx and whether the
// offset field can encode it directly.
func (m *MemoryAllocator) offsetFor(a ArrayAllocation, idx int) (int, bool) {
	off := idx - a.BaseOffset
	return off, off >= m.spec.OffsetMin() && off <= m.spec.OffsetMax()
}
