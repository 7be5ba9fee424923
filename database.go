package phasor

import (
	"fmt"
	"reflect"
)

type entityRecord struct {
	archetype ArchetypeID
	row       int
}

// Database is the archetype-partitioned entity/component store. Entities
// live in exactly one archetype; structural mutations migrate them between
// archetypes. The database is single-goroutine; cross-world communication
// goes through channels.
type Database struct {
	archetypes map[ArchetypeID]*Archetype
	order      []ArchetypeID
	entities   map[EntityID]entityRecord
	nextID     EntityID
	closed     bool
}

// NewDatabase constructs an empty store.
func NewDatabase() *Database {
	return &Database{
		archetypes: make(map[ArchetypeID]*Archetype),
		entities:   make(map[EntityID]entityRecord),
	}
}

// ReserveEntityID hands out the next entity id without creating storage.
// Deferred entity creation uses this so callers can reference the entity
// within the same tick.
func (db *Database) ReserveEntityID() EntityID {
	db.nextID++
	return db.nextID
}

// EntityCount returns the number of live entities.
func (db *Database) EntityCount() int { return len(db.entities) }

// ArchetypeCount returns the number of live archetypes.
func (db *Database) ArchetypeCount() int { return len(db.archetypes) }

// Entity returns a handle for id, and whether the entity is live.
func (db *Database) Entity(id EntityID) (Entity, bool) {
	_, ok := db.entities[id]
	return Entity{id: id, db: db}, ok
}

// Contains reports whether id refers to a live entity.
func (db *Database) Contains(id EntityID) bool {
	_, ok := db.entities[id]
	return ok
}

// archetypeIDs returns live archetype ids in creation order.
func (db *Database) archetypeIDs() []ArchetypeID {
	ids := make([]ArchetypeID, 0, len(db.order))
	for _, id := range db.order {
		if _, ok := db.archetypes[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (db *Database) getOrCreateArchetype(set componentSet) *Archetype {
	id := set.id()
	if a, ok := db.archetypes[id]; ok {
		return a
	}
	a := newArchetype(set)
	db.archetypes[id] = a
	db.order = append(db.order, id)
	return a
}

// pruneIfEmpty removes an archetype the moment no entity references it.
func (db *Database) pruneIfEmpty(a *Archetype) {
	if a.Len() != 0 {
		return
	}
	a.release()
	delete(db.archetypes, a.id)
	for i, id := range db.order {
		if id == a.id {
			db.order = append(db.order[:i], db.order[i+1:]...)
			break
		}
	}
}

// collectMetas resolves the metas for a component tuple, rejecting derived
// types and empty tuples.
func collectMetas(components []any) ([]*ComponentMeta, error) {
	if len(components) == 0 {
		return nil, ErrComponentCountMismatch
	}
	metas := make([]*ComponentMeta, len(components))
	for i, c := range components {
		m := metaOf(typeOfValue(c))
		if m.derived {
			return nil, ErrComponentIsDerived
		}
		metas[i] = m
	}
	return metas, nil
}

// CreateEntity stores a new entity carrying the given component values and
// returns its id. At least one component is required.
func (db *Database) CreateEntity(components ...any) (EntityID, error) {
	id := db.ReserveEntityID()
	if err := db.CreateEntityWithID(id, components...); err != nil {
		return 0, err
	}
	return id, nil
}

// CreateEntityWithID stores a new entity under a previously reserved id.
func (db *Database) CreateEntityWithID(id EntityID, components ...any) error {
	if _, ok := db.entities[id]; ok {
		return fmt.Errorf("phasor: entity %d already exists", id)
	}
	metas, err := collectMetas(components)
	if err != nil {
		return err
	}
	set := newComponentSet(metas...)
	a := db.getOrCreateArchetype(set)
	if err := a.AddEntity(id, components); err != nil {
		db.pruneIfEmpty(a)
		return err
	}
	if id > db.nextID {
		db.nextID = id
	}
	db.entities[id] = entityRecord{archetype: a.id, row: a.Len() - 1}
	return nil
}

// RemoveEntity destroys an entity and its component values.
func (db *Database) RemoveEntity(id EntityID) error {
	rec, ok := db.entities[id]
	if !ok {
		return ErrEntityNotFound
	}
	a, ok := db.archetypes[rec.archetype]
	if !ok {
		return ErrArchetypeNotFound
	}
	if _, err := a.RemoveEntityByIndex(rec.row); err != nil {
		return err
	}
	db.fixMovedRow(a, rec.row)
	delete(db.entities, id)
	db.pruneIfEmpty(a)
	return nil
}

// fixMovedRow repairs the record of whichever entity a swap-remove moved
// into row.
func (db *Database) fixMovedRow(a *Archetype, row int) {
	if row >= a.Len() {
		return
	}
	moved := a.entities[row]
	rec := db.entities[moved]
	rec.row = row
	db.entities[moved] = rec
}

// AddComponents attaches extra component values to an entity, migrating it
// to the union archetype. Values for components the entity already carries
// update in place, destroying the prior values.
func (db *Database) AddComponents(id EntityID, extras ...any) error {
	rec, ok := db.entities[id]
	if !ok {
		return ErrEntityNotFound
	}
	a, ok := db.archetypes[rec.archetype]
	if !ok {
		return ErrArchetypeNotFound
	}
	metas, err := collectMetas(extras)
	if err != nil {
		return err
	}
	extraSet := newComponentSet(metas...)
	union := a.set.union(extraSet)

	if union.id() == a.id {
		for i, v := range extras {
			col, err := a.Column(metas[i].id)
			if err != nil {
				return err
			}
			if err := col.Set(rec.row, v); err != nil {
				return err
			}
		}
		return nil
	}

	dst := db.getOrCreateArchetype(union)
	newRow, err := a.CopyEntityTo(rec.row, dst)
	if err != nil {
		return err
	}
	for i, v := range extras {
		if a.set.contains(metas[i].id) {
			continue
		}
		col, err := dst.Column(metas[i].id)
		if err != nil {
			return err
		}
		if err := col.Append(v); err != nil {
			return err
		}
	}
	dst.entities = append(dst.entities, id)
	for i, v := range extras {
		if !a.set.contains(metas[i].id) {
			continue
		}
		col, err := dst.Column(metas[i].id)
		if err != nil {
			return err
		}
		if err := col.Set(newRow, v); err != nil {
			return err
		}
	}
	if _, err := a.removeEntityAfterMove(rec.row, dst); err != nil {
		return err
	}
	db.fixMovedRow(a, rec.row)
	db.pruneIfEmpty(a)
	db.entities[id] = entityRecord{archetype: dst.id, row: newRow}
	return nil
}

// RemoveComponents detaches the listed component types from an entity,
// destroying their values and migrating the entity to the difference
// archetype. Removing every component is an error; removing components the
// entity does not carry is a no-op.
func (db *Database) RemoveComponents(id EntityID, toRemove ...ComponentID) error {
	rec, ok := db.entities[id]
	if !ok {
		return ErrEntityNotFound
	}
	a, ok := db.archetypes[rec.archetype]
	if !ok {
		return ErrArchetypeNotFound
	}
	kept := make([]*ComponentMeta, 0, a.set.len())
	for _, m := range a.set.metas {
		removed := false
		for _, rid := range toRemove {
			if m.id == rid {
				removed = true
				break
			}
		}
		if !removed {
			kept = append(kept, m)
		}
	}
	if len(kept) == a.set.len() {
		return nil
	}
	if len(kept) == 0 {
		return ErrCannotRemoveAllComponents
	}
	diff := componentSet{metas: kept}

	dst := db.getOrCreateArchetype(diff)
	newRow, err := a.CopyEntityTo(rec.row, dst)
	if err != nil {
		return err
	}
	dst.entities = append(dst.entities, id)
	if _, err := a.removeEntityAfterMove(rec.row, dst); err != nil {
		return err
	}
	db.fixMovedRow(a, rec.row)
	db.pruneIfEmpty(a)
	db.entities[id] = entityRecord{archetype: dst.id, row: newRow}
	return nil
}

// Set upserts a single component value on an entity: in-place overwrite when
// the component is present, AddComponents migration otherwise.
func (db *Database) Set(id EntityID, component any) error {
	rec, ok := db.entities[id]
	if !ok {
		return ErrEntityNotFound
	}
	a := db.archetypes[rec.archetype]
	m := metaOf(typeOfValue(component))
	if m.derived {
		return ErrComponentIsDerived
	}
	if a.set.contains(m.id) {
		col, err := a.Column(m.id)
		if err != nil {
			return err
		}
		return col.Set(rec.row, component)
	}
	return db.AddComponents(id, component)
}

// DatabaseGet returns a pointer to an entity's component of type T, matching
// by concrete id or trait id.
func DatabaseGet[T any](db *Database, id EntityID) (*T, error) {
	m := metaOf(reflect.TypeFor[T]())
	if m.derived {
		return nil, ErrComponentIsDerived
	}
	rec, ok := db.entities[id]
	if !ok {
		return nil, ErrEntityNotFound
	}
	a, ok := db.archetypes[rec.archetype]
	if !ok {
		return nil, ErrArchetypeNotFound
	}
	col, err := a.Column(m.id)
	if err != nil {
		return nil, err
	}
	p, err := col.Get(rec.row)
	if err != nil {
		return nil, err
	}
	if p == nil {
		var zero T
		return &zero, nil
	}
	return (*T)(p), nil
}

// DatabaseHas reports whether the entity carries component type T.
func DatabaseHas[T any](db *Database, id EntityID) bool {
	rec, ok := db.entities[id]
	if !ok {
		return false
	}
	a, ok := db.archetypes[rec.archetype]
	if !ok {
		return false
	}
	return a.columnIndex(ComponentIDOf[T]()) >= 0
}

// Close destroys every stored component value and empties the store.
func (db *Database) Close() {
	if db.closed {
		return
	}
	db.closed = true
	for _, a := range db.archetypes {
		a.release()
	}
	db.archetypes = make(map[ArchetypeID]*Archetype)
	db.order = nil
	db.entities = make(map[EntityID]entityRecord)
}
