package phasor

import (
	"reflect"
	"unsafe"
)

// ComponentArray is a type-erased growable column of fixed-stride slots.
// Storage is a typed slice allocated through reflect so interior pointers
// stay visible to the garbage collector; all moves are raw byte copies.
// Zero-size component types occupy no storage but still track length.
type ComponentArray struct {
	meta     *ComponentMeta
	data     reflect.Value // backing slice, roots the storage
	base     unsafe.Pointer
	length   int
	capacity int
}

// NewComponentArray constructs an empty column for the given component type.
func NewComponentArray(meta *ComponentMeta) *ComponentArray {
	return &ComponentArray{meta: meta}
}

// Meta returns the component descriptor this column stores.
func (c *ComponentArray) Meta() *ComponentMeta { return c.meta }

// Len returns the number of stored slots.
func (c *ComponentArray) Len() int { return c.length }

// Cap returns the allocated slot capacity.
func (c *ComponentArray) Cap() int { return c.capacity }

func (c *ComponentArray) slot(i int) unsafe.Pointer {
	return unsafe.Add(c.base, uintptr(i)*c.meta.stride)
}

// dropSlot runs the component destructor on slot i, if one is declared.
func (c *ComponentArray) dropSlot(i int) {
	if c.meta.drop == nil {
		return
	}
	if c.meta.stride == 0 {
		var zero struct{}
		c.meta.drop(unsafe.Pointer(&zero))
		return
	}
	c.meta.drop(c.slot(i))
}

// reserve grows the backing storage so at least need slots fit.
func (c *ComponentArray) reserve(need int) {
	if need <= c.capacity {
		return
	}
	newCap := growCapacity(c.capacity, need)
	if c.meta.stride == 0 {
		c.capacity = newCap
		return
	}
	newData := reflect.MakeSlice(reflect.SliceOf(c.meta.typ), newCap, newCap)
	newBase := newData.UnsafePointer()
	if c.length > 0 {
		memCopy(newBase, c.base, uintptr(c.length)*c.meta.stride)
	}
	c.data = newData
	c.base = newBase
	c.capacity = newCap
}

// AppendRaw appends the bytes at src as a new slot without type checking.
func (c *ComponentArray) AppendRaw(src unsafe.Pointer) {
	c.reserve(c.length + 1)
	if c.meta.stride != 0 {
		memCopy(c.slot(c.length), src, c.meta.stride)
	}
	c.length++
}

// Append type-checks v against the column and appends it.
func (c *ComponentArray) Append(v any) error {
	src, ok := valuePointer(c.meta.typ, v)
	if !ok {
		return ErrComponentTypeMismatch
	}
	c.AppendRaw(src)
	return nil
}

// Get returns a pointer to slot i.
func (c *ComponentArray) Get(i int) (unsafe.Pointer, error) {
	if i < 0 || i >= c.length {
		return nil, ErrIndexOutOfBounds
	}
	if c.meta.stride == 0 {
		return nil, nil
	}
	return c.slot(i), nil
}

// Set overwrites slot i with v, running the destructor on the prior value.
func (c *ComponentArray) Set(i int, v any) error {
	if i < 0 || i >= c.length {
		return ErrIndexOutOfBounds
	}
	src, ok := valuePointer(c.meta.typ, v)
	if !ok {
		return ErrComponentTypeMismatch
	}
	c.dropSlot(i)
	if c.meta.stride != 0 {
		memCopy(c.slot(i), src, c.meta.stride)
	}
	return nil
}

// SwapRemove destroys slot i and moves the last slot's bytes over it without
// destroying the moved value. Order-destroying; the preferred removal path.
func (c *ComponentArray) SwapRemove(i int) error {
	if i < 0 || i >= c.length {
		return ErrIndexOutOfBounds
	}
	c.dropSlot(i)
	c.swapOut(i)
	return nil
}

// swapRemoveNoDrop removes slot i without running its destructor. Used after
// the slot's bytes were moved to another column and ownership went with them.
func (c *ComponentArray) swapRemoveNoDrop(i int) error {
	if i < 0 || i >= c.length {
		return ErrIndexOutOfBounds
	}
	c.swapOut(i)
	return nil
}

func (c *ComponentArray) swapOut(i int) {
	last := c.length - 1
	if i != last && c.meta.stride != 0 {
		memCopy(c.slot(i), c.slot(last), c.meta.stride)
	}
	c.length = last
}

// ShiftRemove destroys slot i and shifts all following slots left, preserving
// order. Moved slots are not destroyed.
func (c *ComponentArray) ShiftRemove(i int) error {
	if i < 0 || i >= c.length {
		return ErrIndexOutOfBounds
	}
	c.dropSlot(i)
	if c.meta.stride != 0 && i < c.length-1 {
		bytes := unsafe.Slice((*byte)(c.base), uintptr(c.length)*c.meta.stride)
		copy(bytes[uintptr(i)*c.meta.stride:], bytes[uintptr(i+1)*c.meta.stride:])
	}
	c.length--
	return nil
}

// Insert places v at slot i, shifting following slots right.
func (c *ComponentArray) Insert(i int, v any) error {
	if i < 0 || i > c.length {
		return ErrIndexOutOfBounds
	}
	src, ok := valuePointer(c.meta.typ, v)
	if !ok {
		return ErrComponentTypeMismatch
	}
	c.reserve(c.length + 1)
	if c.meta.stride != 0 && i < c.length {
		bytes := unsafe.Slice((*byte)(c.base), uintptr(c.length+1)*c.meta.stride)
		copy(bytes[uintptr(i+1)*c.meta.stride:], bytes[uintptr(i)*c.meta.stride:uintptr(c.length)*c.meta.stride])
	}
	if c.meta.stride != 0 {
		memCopy(c.slot(i), src, c.meta.stride)
	}
	c.length++
	return nil
}

// ClearRetainingCapacity destroys every stored value and resets the length
// while keeping the allocation.
func (c *ComponentArray) ClearRetainingCapacity() {
	for i := 0; i < c.length; i++ {
		c.dropSlot(i)
	}
	c.length = 0
}

// ShrinkAndFree truncates the column to newCap slots, destroying any values
// past the new capacity, and releases the excess allocation.
func (c *ComponentArray) ShrinkAndFree(newCap int) {
	if newCap < 0 {
		newCap = 0
	}
	for i := newCap; i < c.length; i++ {
		c.dropSlot(i)
	}
	if c.length > newCap {
		c.length = newCap
	}
	if newCap >= c.capacity {
		return
	}
	if c.meta.stride == 0 || newCap == 0 {
		c.data = reflect.Value{}
		c.base = nil
		c.capacity = newCap
		return
	}
	newData := reflect.MakeSlice(reflect.SliceOf(c.meta.typ), newCap, newCap)
	newBase := newData.UnsafePointer()
	memCopy(newBase, c.base, uintptr(c.length)*c.meta.stride)
	c.data = newData
	c.base = newBase
	c.capacity = newCap
}

// CopyElementToEnd appends the raw bytes of slot i to dst. Both columns must
// store the same component id and size. The source slot stays live and must
// be removed by the caller afterwards.
func (c *ComponentArray) CopyElementToEnd(i int, dst *ComponentArray) error {
	if i < 0 || i >= c.length {
		return ErrIndexOutOfBounds
	}
	if c.meta.id != dst.meta.id {
		return ErrComponentTypeMismatch
	}
	if c.meta.size != dst.meta.size {
		return ErrComponentSizeMismatch
	}
	if c.meta.stride == 0 {
		dst.length++
		return nil
	}
	dst.AppendRaw(c.slot(i))
	return nil
}
