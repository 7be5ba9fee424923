package phasor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type position struct {
	X, Y float64
}

type velocity struct {
	DX, DY float64
}

type health struct {
	HP int
}

// tracked counts destructor invocations through a shared counter.
type tracked struct {
	Value int
	Drops *int
}

func (t *tracked) Drop() {
	if t.Drops != nil {
		*t.Drops++
	}
}

type marker struct{}

// renderKind is a marker trait shared by renderable component types.
type renderKind struct{}

type sprite struct {
	Frame int
}

func (sprite) ComponentTrait() TraitDecl { return MarkerTrait[renderKind]() }

// vec2 mirrors position field for field, for identical-layout aliasing.
type vec2 struct {
	X, Y float64
}

type anchoredPosition struct {
	X, Y float64
}

func (anchoredPosition) ComponentTrait() TraitDecl { return SharedTrait[vec2]() }

type badLayout struct {
	X float32
}

func (badLayout) ComponentTrait() TraitDecl { return SharedTrait[vec2]() }

func TestComponentIDStable(t *testing.T) {
	assert.Equal(t, ComponentIDOf[position](), ComponentIDOf[position]())
	assert.NotEqual(t, ComponentIDOf[position](), ComponentIDOf[velocity]())
}

func TestComponentMetaLayout(t *testing.T) {
	m := metaOf(typeOfValue(position{}))
	assert.Equal(t, uintptr(16), m.Size())
	assert.Equal(t, m.Size(), m.Stride())
	assert.Nil(t, m.Trait())
	assert.False(t, m.Derived())

	zm := metaOf(typeOfValue(marker{}))
	assert.Equal(t, uintptr(0), zm.Size())
}

func TestMarkerTraitProbed(t *testing.T) {
	m := metaOf(typeOfValue(sprite{}))
	require.NotNil(t, m.Trait())
	assert.Equal(t, TraitMarker, m.Trait().Kind)
	assert.Equal(t, ComponentID(hashName(fullTypeName(typeOfValue(renderKind{})))), m.Trait().ID)
}

func TestIdenticalLayoutVerified(t *testing.T) {
	m := metaOf(typeOfValue(anchoredPosition{}))
	require.NotNil(t, m.Trait())
	assert.Equal(t, TraitIdenticalLayout, m.Trait().Kind)

	assert.Panics(t, func() { metaOf(typeOfValue(badLayout{})) })
}

func TestGroupedTraitKeyInID(t *testing.T) {
	m0 := metaOf(typeOfValue(viewport0{}))
	m1 := metaOf(typeOfValue(viewport1{}))
	require.NotNil(t, m0.Trait())
	require.NotNil(t, m1.Trait())
	assert.Equal(t, TraitGrouped, m0.Trait().Kind)
	assert.Equal(t, m0.Trait().ID, m1.Trait().ID)
	assert.NotEqual(t, m0.id, m1.id)
	assert.Equal(t, int64(0), m0.Trait().GroupKey)
	assert.Equal(t, int64(1), m1.Trait().GroupKey)
}

func TestDropProbed(t *testing.T) {
	m := metaOf(typeOfValue(tracked{}))
	require.NotNil(t, m.drop)

	plain := metaOf(typeOfValue(position{}))
	assert.Nil(t, plain.drop)
}

func TestDerivedProbed(t *testing.T) {
	m := metaOf(typeOfValue(speed{}))
	assert.True(t, m.Derived())
}
