package phasor

import (
	"reflect"
	"sort"
)

// SpecTerm is one element of a query specification: a component type to
// include, a component type to exclude, or a derived type (no filter).
type SpecTerm struct {
	id      ComponentID
	exclude bool
	derived bool
}

// Include adds component type T to a query's include set.
func Include[T any]() SpecTerm {
	m := metaOf(reflect.TypeFor[T]())
	return SpecTerm{id: m.id, derived: m.derived}
}

// Exclude adds component type T to a query's exclude set.
func Exclude[T any]() SpecTerm {
	m := metaOf(reflect.TypeFor[T]())
	return SpecTerm{id: m.id, exclude: true, derived: m.derived}
}

// QuerySpec is an include set plus an exclude set of component IDs. Derived
// component types participate in neither.
type QuerySpec struct {
	include []ComponentID
	exclude []ComponentID
}

// NewQuerySpec assembles a specification from terms. Terms naming derived
// types are dropped from both sets: any archetype is eligible for them.
func NewQuerySpec(terms ...SpecTerm) QuerySpec {
	var s QuerySpec
	for _, t := range terms {
		if t.derived {
			continue
		}
		if t.exclude {
			s.exclude = append(s.exclude, t.id)
		} else {
			s.include = append(s.include, t.id)
		}
	}
	return s
}

// Execute walks every archetype and keeps those whose component set covers
// the include set and is disjoint with the exclude set. Include matching
// honours trait identities.
func (s QuerySpec) Execute(db *Database) QueryResult {
	return s.ExecuteOver(db, db.archetypeIDs())
}

// ExecuteOver restricts matching to a pre-filtered archetype list.
func (s QuerySpec) ExecuteOver(db *Database, candidates []ArchetypeID) QueryResult {
	matched := make([]ArchetypeID, 0, len(candidates))
	for _, id := range candidates {
		a, ok := db.archetypes[id]
		if !ok {
			continue
		}
		if a.HasComponents(s.include) && !a.HasAnyComponents(s.exclude) {
			matched = append(matched, id)
		}
	}
	return QueryResult{db: db, archetypes: matched}
}

// QueryResult carries the archetypes a query matched and iterates their
// entities. Ordering within an archetype is insertion order; ordering across
// archetypes is unspecified.
type QueryResult struct {
	db         *Database
	archetypes []ArchetypeID
}

// ArchetypeIDs returns the matched archetype identities.
func (r QueryResult) ArchetypeIDs() []ArchetypeID { return r.archetypes }

// Count returns the number of matched entities.
func (r QueryResult) Count() int {
	n := 0
	for _, id := range r.archetypes {
		if a, ok := r.db.archetypes[id]; ok {
			n += a.Len()
		}
	}
	return n
}

// First returns the first matched entity, if any.
func (r QueryResult) First() (Entity, bool) {
	it := r.Iterator()
	if it.Next() {
		return it.Entity(), true
	}
	return Entity{}, false
}

// Iterator returns a fresh iterator over the matched entities.
func (r QueryResult) Iterator() *EntityIterator {
	return &EntityIterator{result: r, archIdx: 0, row: -1}
}

// List materializes the matched entities into a new slice.
func (r QueryResult) List() []Entity {
	out := make([]Entity, 0, r.Count())
	it := r.Iterator()
	for it.Next() {
		out = append(out, it.Entity())
	}
	return out
}

// Sort materializes the matched entities and sorts them with less.
func (r QueryResult) Sort(less func(a, b Entity) bool) []Entity {
	out := r.List()
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// EntityIterator walks a query result entity by entity.
type EntityIterator struct {
	result  QueryResult
	archIdx int
	row     int
	current Entity
}

// Reset rewinds the iterator.
func (it *EntityIterator) Reset() {
	it.archIdx = 0
	it.row = -1
	it.current = Entity{}
}

// Next advances to the next entity, returning false when exhausted.
func (it *EntityIterator) Next() bool {
	for it.archIdx < len(it.result.archetypes) {
		a, ok := it.result.db.archetypes[it.result.archetypes[it.archIdx]]
		if !ok {
			it.archIdx++
			it.row = -1
			continue
		}
		it.row++
		if it.row < a.Len() {
			it.current = Entity{id: a.entities[it.row], db: it.result.db}
			return true
		}
		it.archIdx++
		it.row = -1
	}
	return false
}

// Entity returns the entity at the iterator's position.
func (it *EntityIterator) Entity() Entity { return it.current }
