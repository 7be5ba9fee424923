package phasor

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// ArchetypeID identifies one archetype: the hash of its sorted component-ID set.
type ArchetypeID uint64

// componentSet is a sorted, deduplicated sequence of component descriptors.
// It hashes an archetype's identity and computes unions and differences
// during component add/remove.
type componentSet struct {
	metas []*ComponentMeta
}

func newComponentSet(metas ...*ComponentMeta) componentSet {
	sorted := make([]*ComponentMeta, 0, len(metas))
	sorted = append(sorted, metas...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].id < sorted[j].id })
	dedup := sorted[:0]
	var prev ComponentID
	for i, m := range sorted {
		if i > 0 && m.id == prev {
			continue
		}
		dedup = append(dedup, m)
		prev = m.id
	}
	return componentSet{metas: dedup}
}

func (s componentSet) len() int { return len(s.metas) }

func (s componentSet) contains(id ComponentID) bool {
	for _, m := range s.metas {
		if m.id == id {
			return true
		}
	}
	return false
}

// id hashes the sorted component IDs into the archetype identity.
func (s componentSet) id() ArchetypeID {
	h := xxhash.New()
	var buf [8]byte
	for _, m := range s.metas {
		binary.LittleEndian.PutUint64(buf[:], uint64(m.id))
		_, _ = h.Write(buf[:])
	}
	return ArchetypeID(h.Sum64())
}

func (s componentSet) union(other componentSet) componentSet {
	merged := make([]*ComponentMeta, 0, len(s.metas)+len(other.metas))
	merged = append(merged, s.metas...)
	merged = append(merged, other.metas...)
	return newComponentSet(merged...)
}

func (s componentSet) difference(other componentSet) componentSet {
	kept := make([]*ComponentMeta, 0, len(s.metas))
	for _, m := range s.metas {
		if !other.contains(m.id) {
			kept = append(kept, m)
		}
	}
	return componentSet{metas: kept}
}

// Archetype stores every entity that carries exactly one set of component
// types: one type-erased column per component plus a parallel entity-ID list.
// Invariant: len(entities) == column.Len() for every column.
type Archetype struct {
	id       ArchetypeID
	set      componentSet
	columns  []*ComponentArray
	entities []EntityID
}

// newArchetype builds an empty archetype from a non-empty component set.
func newArchetype(set componentSet) *Archetype {
	if set.len() == 0 {
		panic("phasor: archetype requires at least one component")
	}
	a := &Archetype{id: set.id(), set: set}
	a.columns = make([]*ComponentArray, set.len())
	for i, m := range set.metas {
		a.columns[i] = NewComponentArray(m)
	}
	return a
}

// ID returns the archetype identity.
func (a *Archetype) ID() ArchetypeID { return a.id }

// Len returns the number of entities stored.
func (a *Archetype) Len() int { return len(a.entities) }

// ComponentIDs returns the sorted component IDs this archetype stores.
func (a *Archetype) ComponentIDs() []ComponentID {
	ids := make([]ComponentID, len(a.set.metas))
	for i, m := range a.set.metas {
		ids[i] = m.id
	}
	return ids
}

// columnIndex matches by concrete component id or by the column's trait id.
func (a *Archetype) columnIndex(id ComponentID) int {
	for i, m := range a.set.metas {
		if m.id == id {
			return i
		}
		if m.trait != nil && m.trait.ID == id {
			return i
		}
	}
	return -1
}

// Column returns the column answering to id, by concrete or trait identity.
func (a *Archetype) Column(id ComponentID) (*ComponentArray, error) {
	i := a.columnIndex(id)
	if i < 0 {
		return nil, ErrComponentNotFound
	}
	return a.columns[i], nil
}

// HasComponents reports whether every id is answered by some column.
func (a *Archetype) HasComponents(ids []ComponentID) bool {
	for _, id := range ids {
		if a.columnIndex(id) < 0 {
			return false
		}
	}
	return true
}

// HasAnyComponents reports whether at least one id is answered by a column.
func (a *Archetype) HasAnyComponents(ids []ComponentID) bool {
	for _, id := range ids {
		if a.columnIndex(id) >= 0 {
			return true
		}
	}
	return false
}

// AddEntity appends a row for id. The values must match the archetype's
// component set exactly in count and identity.
func (a *Archetype) AddEntity(id EntityID, values []any) error {
	if len(values) != len(a.columns) {
		return ErrComponentCountMismatch
	}
	ordered := make([]any, len(a.columns))
	for _, v := range values {
		m := metaOf(typeOfValue(v))
		i := -1
		for j, cm := range a.set.metas {
			if cm.id == m.id {
				i = j
				break
			}
		}
		if i < 0 {
			return fmt.Errorf("%w: %s not in archetype", ErrComponentTypeMismatch, m.typ)
		}
		if ordered[i] != nil {
			return ErrComponentCountMismatch
		}
		ordered[i] = v
	}
	for i, v := range ordered {
		if v == nil {
			return ErrComponentCountMismatch
		}
		if err := a.columns[i].Append(v); err != nil {
			return err
		}
	}
	a.entities = append(a.entities, id)
	return nil
}

// RemoveEntityByIndex swap-removes row i, destroying its component values.
// It returns the removed entity's id; after the call, row i holds the entity
// that previously occupied the last row (if any).
func (a *Archetype) RemoveEntityByIndex(i int) (EntityID, error) {
	if i < 0 || i >= len(a.entities) {
		return 0, ErrIndexOutOfBounds
	}
	removed := a.entities[i]
	for _, c := range a.columns {
		if err := c.SwapRemove(i); err != nil {
			return 0, err
		}
	}
	a.swapOutEntity(i)
	return removed, nil
}

// removeEntityAfterMove swap-removes row i after its bytes were copied into
// dst. Columns shared with dst are removed without destruction (ownership
// moved); columns absent from dst destroy their value here.
func (a *Archetype) removeEntityAfterMove(i int, dst *Archetype) (EntityID, error) {
	if i < 0 || i >= len(a.entities) {
		return 0, ErrIndexOutOfBounds
	}
	removed := a.entities[i]
	for j, c := range a.columns {
		var err error
		if dst.set.contains(a.set.metas[j].id) {
			err = c.swapRemoveNoDrop(i)
		} else {
			err = c.SwapRemove(i)
		}
		if err != nil {
			return 0, err
		}
	}
	a.swapOutEntity(i)
	return removed, nil
}

func (a *Archetype) swapOutEntity(i int) {
	last := len(a.entities) - 1
	if i != last {
		a.entities[i] = a.entities[last]
	}
	a.entities = a.entities[:last]
}

// CopyEntityTo copies, for every column whose concrete id appears in dst,
// row i's bytes to the end of dst's matching column. It returns the row the
// entity will occupy in dst once the caller appends its id and any new
// component values. Length invariants on dst must be restored by the caller.
func (a *Archetype) CopyEntityTo(i int, dst *Archetype) (int, error) {
	if i < 0 || i >= len(a.entities) {
		return 0, ErrIndexOutOfBounds
	}
	row := len(dst.entities)
	for j, c := range a.columns {
		id := a.set.metas[j].id
		if !dst.set.contains(id) {
			continue
		}
		dc, err := dst.Column(id)
		if err != nil {
			return 0, err
		}
		if err := c.CopyElementToEnd(i, dc); err != nil {
			return 0, err
		}
	}
	return row, nil
}

// release destroys every stored value. Used on database close and pruning.
func (a *Archetype) release() {
	for _, c := range a.columns {
		c.ClearRetainingCapacity()
	}
	a.entities = nil
}
