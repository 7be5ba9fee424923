package phasor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tickLog collects system execution markers.
type tickLog struct {
	Entries []string
}

func appendLog(label string) func(l *ResMut[tickLog]) {
	return func(l *ResMut[tickLog]) {
		l.Get().Entries = append(l.Get().Entries, label)
	}
}

func newManagerWorld() (*ScheduleManager, *World) {
	w := NewWorld()
	InsertResource(w.resources, tickLog{})
	return NewScheduleManager(w), w
}

func TestScheduleRunsSystemsInOrder(t *testing.T) {
	w := NewWorld()
	InsertResource(w.resources, tickLog{})
	s := NewSchedule("main", w)
	require.NoError(t, s.Add(appendLog("one")))
	require.NoError(t, s.Add(appendLog("two")))
	require.NoError(t, s.Run(w))

	l, _ := GetResource[tickLog](w.resources)
	assert.Equal(t, []string{"one", "two"}, l.Entries)
}

func TestScheduleRemoveByIdentity(t *testing.T) {
	w := NewWorld()
	s := NewSchedule("main", w)
	require.NoError(t, s.Add(systemAlpha))
	require.NoError(t, s.Add(systemBeta))
	assert.Equal(t, 2, s.Len())

	assert.True(t, s.Remove(systemAlpha))
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.Remove(systemAlpha))
}

func systemAlpha(*Commands) {}
func systemBeta(*Commands)  {}

func TestDeferredCreationVisibleToNextSystem(t *testing.T) {
	w := NewWorld()
	InsertResource(w.resources, tickLog{})
	s := NewSchedule("main", w)
	require.NoError(t, s.Add(func(c *Commands) {
		c.CreateEntity(marker{})
	}))
	require.NoError(t, s.Add(func(q *Query[marker], l *ResMut[tickLog]) {
		if q.Count() == 1 {
			l.Get().Entries = append(l.Get().Entries, "seen")
		}
	}))
	require.NoError(t, s.Run(w))
	l, _ := GetResource[tickLog](w.resources)
	assert.Equal(t, []string{"seen"}, l.Entries)
}

func TestScheduleManagerAddGetRemove(t *testing.T) {
	m, _ := newManagerWorld()
	s, err := m.Add("update")
	require.NoError(t, err)
	assert.Equal(t, "update", s.Label())

	_, err = m.Add("update")
	assert.ErrorIs(t, err, ErrScheduleAlreadyExists)

	got, ok := m.Get("update")
	require.True(t, ok)
	assert.Same(t, s, got)

	require.NoError(t, m.Remove("update"))
	_, ok = m.Get("update")
	assert.False(t, ok)
	assert.ErrorIs(t, m.Remove("update"), ErrScheduleNotFound)
}

func TestScheduleManagerDependencyOrder(t *testing.T) {
	m, w := newManagerWorld()
	for _, l := range []string{"c", "a", "b"} {
		_, err := m.Add(l)
		require.NoError(t, err)
	}
	require.NoError(t, m.AddOrdering("a", "b"))
	require.NoError(t, m.AddOrdering("b", "c"))
	for _, l := range []string{"a", "b", "c"} {
		s, _ := m.Get(l)
		require.NoError(t, s.Add(appendLog(l)))
	}

	require.NoError(t, m.RunFrom("a", w))
	log, _ := GetResource[tickLog](w.resources)
	assert.Equal(t, []string{"a", "b", "c"}, log.Entries)
}

func TestScheduleManagerUnknownOrderings(t *testing.T) {
	m, _ := newManagerWorld()
	_, err := m.Add("a")
	require.NoError(t, err)
	assert.ErrorIs(t, m.AddOrdering("a", "missing"), ErrScheduleNotFound)
	assert.ErrorIs(t, m.AddOrdering("missing", "a"), ErrScheduleNotFound)
	_, err = m.Iterator("missing")
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestTopoCacheRecomputesOnGraphChange(t *testing.T) {
	m, _ := newManagerWorld()
	for _, l := range []string{"a", "b", "c"} {
		_, err := m.Add(l)
		require.NoError(t, err)
	}
	require.NoError(t, m.AddOrdering("a", "b"))

	it, err := m.Iterator("a")
	require.NoError(t, err)
	var order []string
	for {
		s, ok := it.Next()
		if !ok {
			break
		}
		order = append(order, s.Label())
	}
	assert.Equal(t, []string{"a", "b"}, order)

	// Mutating the graph invalidates the cached order.
	require.NoError(t, m.AddOrdering("b", "c"))
	it, err = m.Iterator("a")
	require.NoError(t, err)
	order = order[:0]
	for {
		s, ok := it.Next()
		if !ok {
			break
		}
		order = append(order, s.Label())
	}
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestCyclicDependencySurfacesUntilGraphChanges(t *testing.T) {
	m, _ := newManagerWorld()
	for _, l := range []string{"a", "b"} {
		_, err := m.Add(l)
		require.NoError(t, err)
	}
	require.NoError(t, m.AddOrdering("a", "b"))
	require.NoError(t, m.AddOrdering("b", "a"))

	_, err := m.Iterator("a")
	assert.ErrorIs(t, err, ErrCyclicDependency)
	// The cached cyclic order keeps failing.
	_, err = m.Iterator("a")
	assert.ErrorIs(t, err, ErrCyclicDependency)

	// Breaking the cycle recovers on the next lookup.
	require.NoError(t, m.Remove("b"))
	it, err := m.Iterator("a")
	require.NoError(t, err)
	s, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, "a", s.Label())
}

func TestIteratorOwnsItsOrder(t *testing.T) {
	m, _ := newManagerWorld()
	for _, l := range []string{"a", "b"} {
		_, err := m.Add(l)
		require.NoError(t, err)
	}
	require.NoError(t, m.AddOrdering("a", "b"))

	it, err := m.Iterator("a")
	require.NoError(t, err)

	// Mutate the graph while the iterator is live.
	_, err = m.Add("c")
	require.NoError(t, err)
	require.NoError(t, m.AddOrdering("b", "c"))

	var order []string
	for {
		s, ok := it.Next()
		if !ok {
			break
		}
		order = append(order, s.Label())
	}
	assert.Equal(t, []string{"a", "b"}, order, "live iterator keeps its frozen order")
}
