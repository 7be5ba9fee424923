package phasor

import "reflect"

// ResourceID identifies a resource slot: the hash of the resource type name.
type ResourceID uint64

// Deiniter is implemented by resources that need teardown when replaced,
// removed, or dropped with the world.
type Deiniter interface {
	Deinit()
}

// ResourceManager owns the world's singleton values, at most one live value
// per resource type.
type ResourceManager struct {
	items map[ResourceID]any
	order []ResourceID
}

// NewResourceManager constructs an empty manager.
func NewResourceManager() *ResourceManager {
	return &ResourceManager{items: make(map[ResourceID]any)}
}

func resourceIDFor(t reflect.Type) ResourceID {
	return ResourceID(hashName(fullTypeName(t)))
}

// ResourceIDOf returns the id of resource type T.
func ResourceIDOf[T any]() ResourceID {
	return resourceIDFor(reflect.TypeFor[T]())
}

// Len returns the number of live resources.
func (rm *ResourceManager) Len() int { return len(rm.items) }

// insert stores ptr (a *T) under id, running the prior value's deinit.
func (rm *ResourceManager) insert(id ResourceID, ptr any) {
	if prev, ok := rm.items[id]; ok {
		deinitResource(prev)
	} else {
		rm.order = append(rm.order, id)
	}
	rm.items[id] = ptr
}

// remove drops the value under id, running its deinit.
func (rm *ResourceManager) remove(id ResourceID) bool {
	prev, ok := rm.items[id]
	if !ok {
		return false
	}
	deinitResource(prev)
	delete(rm.items, id)
	for i, oid := range rm.order {
		if oid == id {
			rm.order = append(rm.order[:i], rm.order[i+1:]...)
			break
		}
	}
	return true
}

// Close deinitializes every resource in reverse insertion order.
func (rm *ResourceManager) Close() {
	for i := len(rm.order) - 1; i >= 0; i-- {
		if v, ok := rm.items[rm.order[i]]; ok {
			deinitResource(v)
		}
	}
	rm.items = make(map[ResourceID]any)
	rm.order = nil
}

func deinitResource(v any) {
	if d, ok := v.(Deiniter); ok {
		d.Deinit()
	}
}

// InsertResource stores a resource value of type T, replacing (and
// deinitializing) any prior value of the same type.
func InsertResource[T any](rm *ResourceManager, value T) {
	v := value
	rm.insert(ResourceIDOf[T](), &v)
}

// GetResource returns a pointer to the live resource of type T, if any.
func GetResource[T any](rm *ResourceManager) (*T, bool) {
	v, ok := rm.items[ResourceIDOf[T]()]
	if !ok {
		return nil, false
	}
	return v.(*T), true
}

// HasResource reports whether a resource of type T is live.
func HasResource[T any](rm *ResourceManager) bool {
	_, ok := rm.items[ResourceIDOf[T]()]
	return ok
}

// RemoveResource drops the resource of type T, returning whether one existed.
func RemoveResource[T any](rm *ResourceManager) bool {
	return rm.remove(ResourceIDOf[T]())
}
