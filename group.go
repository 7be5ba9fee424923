package phasor

import (
	"reflect"
	"sort"
)

// Group is one partition produced by GroupBy: the concrete component that
// matched the trait, the integer group key it declared, and the archetypes
// holding its entities.
type Group struct {
	db          *Database
	ComponentID ComponentID
	Key         int64
	Archetypes  []ArchetypeID
}

// groupArchetypes partitions candidates by the group key recorded on any
// column whose trait id equals traitID. Groups come back in ascending key
// order regardless of insertion sequence.
func groupArchetypes(db *Database, traitID ComponentID, candidates []ArchetypeID) []Group {
	byKey := make(map[int64]*Group)
	for _, aid := range candidates {
		a, ok := db.archetypes[aid]
		if !ok {
			continue
		}
		for _, m := range a.set.metas {
			if m.trait == nil || m.trait.Kind != TraitGrouped || m.trait.ID != traitID {
				continue
			}
			g, ok := byKey[m.trait.GroupKey]
			if !ok {
				g = &Group{db: db, ComponentID: m.id, Key: m.trait.GroupKey}
				byKey[m.trait.GroupKey] = g
			}
			g.Archetypes = append(g.Archetypes, aid)
		}
	}
	groups := make([]Group, 0, len(byKey))
	for _, g := range byKey {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}

// GroupByTrait partitions the whole database by the grouped trait T.
func GroupByTrait[T any](db *Database) []Group {
	traitID := ComponentID(hashName(fullTypeName(reflect.TypeFor[T]())))
	return groupArchetypes(db, traitID, db.archetypeIDs())
}

// QueryGroupBy partitions a query result's archetypes by the grouped trait T.
func QueryGroupBy[T any](r QueryResult) []Group {
	traitID := ComponentID(hashName(fullTypeName(reflect.TypeFor[T]())))
	return groupArchetypes(r.db, traitID, r.archetypes)
}

// GroupGroupBy sub-partitions a group's archetypes by another grouped trait T.
func GroupGroupBy[T any](g Group) []Group {
	traitID := ComponentID(hashName(fullTypeName(reflect.TypeFor[T]())))
	return groupArchetypes(g.db, traitID, g.Archetypes)
}

// Query runs a sub-query restricted to the archetypes in this group.
func (g Group) Query(terms ...SpecTerm) QueryResult {
	return NewQuerySpec(terms...).ExecuteOver(g.db, g.Archetypes)
}

// Entities lists every entity in the group's archetypes.
func (g Group) Entities() []Entity {
	return QueryResult{db: g.db, archetypes: g.Archetypes}.List()
}
