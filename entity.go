package phasor

import "fmt"

// EntityID identifies an entity. IDs are monotonically assigned and never
// reused within one database lifetime.
type EntityID uint64

// Entity is a handle pairing an entity id with the database that stores it.
// Queries and derived-component accessors operate on handles.
type Entity struct {
	id EntityID
	db *Database
}

// ID returns the entity's identifier.
func (e Entity) ID() EntityID { return e.id }

// String renders the handle for debugging.
func (e Entity) String() string { return fmt.Sprintf("Entity(%d)", e.id) }

// GetComponent returns a pointer to entity e's component of type T. The type
// may be a concrete component type or a trait type a column answers to.
// Derived component types are rejected; use DeriveComponent.
func GetComponent[T any](e Entity) (*T, error) {
	if e.db == nil {
		return nil, ErrEntityNotFound
	}
	return DatabaseGet[T](e.db, e.id)
}

// HasComponent reports whether entity e carries component type T, by concrete
// or trait identity.
func HasComponent[T any](e Entity) bool {
	if e.db == nil {
		return false
	}
	return DatabaseHas[T](e.db, e.id)
}

// DeriveComponent computes the derived component T for entity e. T must
// implement Derivable; the result is computed from the entity's stored
// components and is not cached.
func DeriveComponent[T Derivable](e Entity) (T, bool) {
	var zero T
	v, ok := zero.DeriveComponent(e)
	if !ok {
		return zero, false
	}
	out, ok := v.(T)
	return out, ok
}
