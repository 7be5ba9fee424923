package phasor

// Batch creates many entities sharing one component tuple without
// re-resolving the archetype per entity. The prototype values are copied
// into every created entity.
type Batch struct {
	db     *Database
	set    componentSet
	values []any
}

// NewBatch resolves the component set for the prototype tuple once; each
// CreateEntities call then looks up (or creates) the archetype once.
func NewBatch(db *Database, prototype ...any) (*Batch, error) {
	metas, err := collectMetas(prototype)
	if err != nil {
		return nil, err
	}
	return &Batch{db: db, set: newComponentSet(metas...), values: prototype}, nil
}

// CreateEntities creates count entities from the prototype and returns
// their ids.
func (b *Batch) CreateEntities(count int) ([]EntityID, error) {
	if count <= 0 {
		return nil, nil
	}
	a := b.db.getOrCreateArchetype(b.set)
	ids := make([]EntityID, 0, count)
	for i := 0; i < count; i++ {
		id := b.db.ReserveEntityID()
		if err := a.AddEntity(id, b.values); err != nil {
			b.db.pruneIfEmpty(a)
			return ids, err
		}
		b.db.entities[id] = entityRecord{archetype: a.id, row: a.Len() - 1}
		ids = append(ids, id)
	}
	return ids, nil
}

// CreateEntities is the one-shot form: resolve the archetype and create
// count entities carrying copies of the component tuple.
func (db *Database) CreateEntities(count int, components ...any) ([]EntityID, error) {
	b, err := NewBatch(db, components...)
	if err != nil {
		return nil, err
	}
	return b.CreateEntities(count)
}
