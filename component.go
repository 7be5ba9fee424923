package phasor

import (
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

// ComponentID is a stable, process-scoped identifier for a component type.
// It is the hash of the type's fully qualified name plus, for grouped-trait
// types, the declared group key.
type ComponentID uint64

// TraitKind selects how a component relates to its declared trait type.
type TraitKind uint8

const (
	// TraitMarker advertises a zero-size trait type; the column answers
	// queries for the trait but carries no trait-shaped data.
	TraitMarker TraitKind = iota
	// TraitIdenticalLayout requires the trait and the component to share
	// size, alignment, and field layout, verified at registration.
	TraitIdenticalLayout
	// TraitGrouped carries an integer group key and enables GroupBy.
	TraitGrouped
)

// TraitDecl is returned by a component's ComponentTrait method to declare a
// secondary identity for its column.
type TraitDecl struct {
	typ      reflect.Type
	kind     TraitKind
	groupKey int64
}

// MarkerTrait declares that the component answers queries for the zero-size
// trait type T.
func MarkerTrait[T any]() TraitDecl {
	return TraitDecl{typ: reflect.TypeFor[T](), kind: TraitMarker}
}

// SharedTrait declares that the component's column may be addressed as the
// trait type T. T must have the same size, alignment, and field layout as the
// component; registration panics otherwise.
func SharedTrait[T any]() TraitDecl {
	return TraitDecl{typ: reflect.TypeFor[T](), kind: TraitIdenticalLayout}
}

// GroupedTrait declares trait type T with an integer group key, enabling
// GroupBy over the trait. The key participates in the component's ID.
func GroupedTrait[T any](key int64) TraitDecl {
	return TraitDecl{typ: reflect.TypeFor[T](), kind: TraitGrouped, groupKey: key}
}

// Traited is implemented by component types that declare a trait.
type Traited interface {
	ComponentTrait() TraitDecl
}

// Dropper is implemented (on a pointer receiver) by component types whose
// stored values need teardown. Drop runs exactly once per stored value: on
// overwrite, on removal, on migration where the component is dropped, and on
// database close.
type Dropper interface {
	Drop()
}

// Derivable is implemented by derived component types. The value is computed
// on demand from an entity and is never stored in a column; derived types are
// ignored by query filters.
type Derivable interface {
	DeriveComponent(e Entity) (any, bool)
}

// TraitInfo is the resolved trait descriptor carried by a ComponentMeta.
type TraitInfo struct {
	Type     reflect.Type
	ID       ComponentID
	Kind     TraitKind
	GroupKey int64
}

// ComponentMeta is the per-type record the storage layer operates on.
type ComponentMeta struct {
	id      ComponentID
	typ     reflect.Type
	size    uintptr
	align   uintptr
	stride  uintptr
	trait   *TraitInfo
	drop    func(unsafe.Pointer)
	derived bool
}

// ID returns the component's identifier.
func (m *ComponentMeta) ID() ComponentID { return m.id }

// Type returns the component's Go type.
func (m *ComponentMeta) Type() reflect.Type { return m.typ }

// Size returns the component's size in bytes.
func (m *ComponentMeta) Size() uintptr { return m.size }

// Stride returns the per-slot stride in a column; 0 for zero-size types.
func (m *ComponentMeta) Stride() uintptr { return m.stride }

// Trait returns the resolved trait descriptor, or nil.
func (m *ComponentMeta) Trait() *TraitInfo { return m.trait }

// Derived reports whether the type is computed on demand rather than stored.
func (m *ComponentMeta) Derived() bool { return m.derived }

var componentRegistry = struct {
	mu     sync.RWMutex
	byType map[reflect.Type]*ComponentMeta
}{byType: make(map[reflect.Type]*ComponentMeta)}

var (
	dropperType   = reflect.TypeFor[Dropper]()
	derivableType = reflect.TypeFor[Derivable]()
	traitedType   = reflect.TypeFor[Traited]()
)

// RegisterComponent registers a component type and returns its ID. Types are
// registered lazily on first use; calling this is only required when an ID is
// needed before any entity carries the component.
func RegisterComponent[T any]() ComponentID {
	return metaOf(reflect.TypeFor[T]()).id
}

// ComponentIDOf returns the ID of component type T, registering it if needed.
func ComponentIDOf[T any]() ComponentID {
	return metaOf(reflect.TypeFor[T]()).id
}

// metaOf resolves (and caches) the ComponentMeta for a type.
func metaOf(t reflect.Type) *ComponentMeta {
	componentRegistry.mu.RLock()
	m, ok := componentRegistry.byType[t]
	componentRegistry.mu.RUnlock()
	if ok {
		return m
	}
	componentRegistry.mu.Lock()
	defer componentRegistry.mu.Unlock()
	if m, ok = componentRegistry.byType[t]; ok {
		return m
	}
	m = buildMeta(t)
	componentRegistry.byType[t] = m
	return m
}

func buildMeta(t reflect.Type) *ComponentMeta {
	m := &ComponentMeta{
		typ:   t,
		size:  t.Size(),
		align: uintptr(t.Align()),
	}
	m.stride = m.size
	name := fullTypeName(t)

	if t.Implements(traitedType) {
		decl := reflect.Zero(t).Interface().(Traited).ComponentTrait()
		if decl.typ == nil {
			panic(fmt.Sprintf("phasor: component %s declares a nil trait type", name))
		}
		info := &TraitInfo{
			Type:     decl.typ,
			ID:       ComponentID(hashName(fullTypeName(decl.typ))),
			Kind:     decl.kind,
			GroupKey: decl.groupKey,
		}
		switch decl.kind {
		case TraitMarker:
			if decl.typ.Size() != 0 {
				panic(fmt.Sprintf("phasor: marker trait %s must be zero-size", fullTypeName(decl.typ)))
			}
		case TraitIdenticalLayout:
			if err := checkIdenticalLayout(t, decl.typ); err != nil {
				panic(fmt.Sprintf("phasor: component %s and trait %s: %v", name, fullTypeName(decl.typ), err))
			}
		case TraitGrouped:
			name = name + "#" + strconv.FormatInt(decl.groupKey, 10)
		}
		m.trait = info
	}

	m.id = ComponentID(hashName(name))

	if reflect.PointerTo(t).Implements(dropperType) {
		typ := t
		m.drop = func(p unsafe.Pointer) {
			reflect.NewAt(typ, p).Interface().(Dropper).Drop()
		}
	}
	if t.Implements(derivableType) {
		m.derived = true
	}
	return m
}

// checkIdenticalLayout proves that two types may alias the same storage:
// identical size, alignment, and, for structs, field-by-field offsets.
func checkIdenticalLayout(a, b reflect.Type) error {
	if a.Size() != b.Size() {
		return fmt.Errorf("size mismatch (%d vs %d)", a.Size(), b.Size())
	}
	if a.Align() != b.Align() {
		return fmt.Errorf("alignment mismatch (%d vs %d)", a.Align(), b.Align())
	}
	if a.Kind() == reflect.Struct && b.Kind() == reflect.Struct {
		if a.NumField() != b.NumField() {
			return fmt.Errorf("field count mismatch (%d vs %d)", a.NumField(), b.NumField())
		}
		for i := 0; i < a.NumField(); i++ {
			fa, fb := a.Field(i), b.Field(i)
			if fa.Offset != fb.Offset {
				return fmt.Errorf("field %d offset mismatch (%d vs %d)", i, fa.Offset, fb.Offset)
			}
			if fa.Type.Size() != fb.Type.Size() {
				return fmt.Errorf("field %d size mismatch (%d vs %d)", i, fa.Type.Size(), fb.Type.Size())
			}
		}
	}
	return nil
}

func fullTypeName(t reflect.Type) string {
	if t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

func hashName(name string) uint64 {
	return xxhash.Sum64String(name)
}
