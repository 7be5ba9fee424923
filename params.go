package phasor

import (
	"fmt"
	"reflect"
)

// Without marks a component type for a query's exclude set when used as a
// type argument of Query/Query2/Query3/Query4.
type Without[T any] struct{}

func (Without[T]) excludedComponentType() reflect.Type { return reflect.TypeFor[T]() }

type excludeMarker interface {
	excludedComponentType() reflect.Type
}

var excludeMarkerType = reflect.TypeFor[excludeMarker]()

// termForType converts one query type argument into a spec term: Without
// wrappers exclude, derived types pass through unfiltered, everything else
// includes.
func termForType(t reflect.Type) SpecTerm {
	if t.Implements(excludeMarkerType) {
		m := metaOf(reflect.Zero(t).Interface().(excludeMarker).excludedComponentType())
		return SpecTerm{id: m.id, exclude: true, derived: m.derived}
	}
	m := metaOf(t)
	return SpecTerm{id: m.id, derived: m.derived}
}

// queryGet resolves the current entity's component for one type argument.
// Filter-only and derived type arguments yield nil.
func queryGet[A any](e Entity) *A {
	t := reflect.TypeFor[A]()
	if t.Implements(excludeMarkerType) || metaOf(t).derived {
		return nil
	}
	p, err := GetComponent[A](e)
	if err != nil {
		return nil
	}
	return p
}

// Res gives a system read access to the resource of type T. Binding fails
// when the resource is absent.
type Res[T any] struct {
	value *T
}

func (r *Res[T]) initSystemParam(c *Commands, _ uint64) error {
	v, ok := GetResource[T](c.world.resources)
	if !ok {
		return fmt.Errorf("%w: %s", ErrResourceNotFound, fullTypeName(reflect.TypeFor[T]()))
	}
	r.value = v
	return nil
}

// Get returns the bound resource.
func (r *Res[T]) Get() *T { return r.value }

// ResMut gives a system mutable access to the resource of type T. Binding
// fails when the resource is absent.
type ResMut[T any] struct {
	value *T
}

func (r *ResMut[T]) initSystemParam(c *Commands, _ uint64) error {
	v, ok := GetResource[T](c.world.resources)
	if !ok {
		return fmt.Errorf("%w: %s", ErrResourceNotFound, fullTypeName(reflect.TypeFor[T]()))
	}
	r.value = v
	return nil
}

// Get returns the bound resource.
func (r *ResMut[T]) Get() *T { return r.value }

// ResOpt resolves the resource of type T if present; binding never fails.
type ResOpt[T any] struct {
	value *T
}

func (r *ResOpt[T]) initSystemParam(c *Commands, _ uint64) error {
	r.value, _ = GetResource[T](c.world.resources)
	return nil
}

// Ok reports whether the resource existed at bind time.
func (r *ResOpt[T]) Ok() bool { return r.value != nil }

// Get returns the bound resource, or nil.
func (r *ResOpt[T]) Get() *T { return r.value }

// queryState is the shared core of the typed query parameters: the result
// bound at invocation time plus an iterator over it.
type queryState struct {
	result QueryResult
	it     *EntityIterator
}

func (q *queryState) bind(c *Commands, terms ...SpecTerm) {
	q.result = NewQuerySpec(terms...).Execute(c.world.db)
	q.it = q.result.Iterator()
}

// Next advances the iterator, returning false when exhausted.
func (q *queryState) Next() bool { return q.it.Next() }

// Entity returns the entity at the iterator position.
func (q *queryState) Entity() Entity { return q.it.Entity() }

// Reset rewinds iteration.
func (q *queryState) Reset() { q.it.Reset() }

// Count returns the number of matched entities.
func (q *queryState) Count() int { return q.result.Count() }

// First returns the first matched entity, if any.
func (q *queryState) First() (Entity, bool) { return q.result.First() }

// Result exposes the underlying query result (for List, Sort, GroupBy).
func (q *queryState) Result() QueryResult { return q.result }

func (q *queryState) deinitSystemParam() {
	q.result = QueryResult{}
	q.it = nil
}

// Query iterates entities matching component type A. Type arguments may be
// component types, Without wrappers (exclude), or derived types (no filter).
type Query[A any] struct {
	queryState
}

func (q *Query[A]) initSystemParam(c *Commands, _ uint64) error {
	q.bind(c, termForType(reflect.TypeFor[A]()))
	return nil
}

// Get returns the current entity's A.
func (q *Query[A]) Get() *A { return queryGet[A](q.Entity()) }

// Query2 iterates entities matching component types A and B.
type Query2[A, B any] struct {
	queryState
}

func (q *Query2[A, B]) initSystemParam(c *Commands, _ uint64) error {
	q.bind(c, termForType(reflect.TypeFor[A]()), termForType(reflect.TypeFor[B]()))
	return nil
}

// Get returns the current entity's components; filter-only arguments are nil.
func (q *Query2[A, B]) Get() (*A, *B) {
	e := q.Entity()
	return queryGet[A](e), queryGet[B](e)
}

// Query3 iterates entities matching component types A, B, and C.
type Query3[A, B, C any] struct {
	queryState
}

func (q *Query3[A, B, C]) initSystemParam(c *Commands, _ uint64) error {
	q.bind(c,
		termForType(reflect.TypeFor[A]()),
		termForType(reflect.TypeFor[B]()),
		termForType(reflect.TypeFor[C]()))
	return nil
}

// Get returns the current entity's components; filter-only arguments are nil.
func (q *Query3[A, B, C]) Get() (*A, *B, *C) {
	e := q.Entity()
	return queryGet[A](e), queryGet[B](e), queryGet[C](e)
}

// Query4 iterates entities matching component types A, B, C, and D.
type Query4[A, B, C, D any] struct {
	queryState
}

func (q *Query4[A, B, C, D]) initSystemParam(c *Commands, _ uint64) error {
	q.bind(c,
		termForType(reflect.TypeFor[A]()),
		termForType(reflect.TypeFor[B]()),
		termForType(reflect.TypeFor[C]()),
		termForType(reflect.TypeFor[D]()))
	return nil
}

// Get returns the current entity's components; filter-only arguments are nil.
func (q *Query4[A, B, C, D]) Get() (*A, *B, *C, *D) {
	e := q.Entity()
	return queryGet[A](e), queryGet[B](e), queryGet[C](e), queryGet[D](e)
}

// GroupBy partitions the whole database by the grouped trait T at bind time.
type GroupBy[T any] struct {
	groups []Group
}

func (g *GroupBy[T]) initSystemParam(c *Commands, _ uint64) error {
	g.groups = GroupByTrait[T](c.world.db)
	return nil
}

// Groups returns the partitions in ascending key order.
func (g *GroupBy[T]) Groups() []Group { return g.groups }

func (g *GroupBy[T]) deinitSystemParam() { g.groups = nil }
