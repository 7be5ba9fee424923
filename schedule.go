package phasor

import "fmt"

// Schedule is a named, ordered list of systems. Systems run sequentially in
// insertion order; each invocation gets a fresh Commands handle flushed as
// soon as the system returns, so structural mutations made by one system are
// visible to the next.
type Schedule struct {
	label   string
	world   *World
	systems []*System
}

// NewSchedule constructs an empty schedule bound (non-owningly) to a world.
func NewSchedule(label string, w *World) *Schedule {
	return &Schedule{label: label, world: w}
}

// Label returns the schedule's name.
func (s *Schedule) Label() string { return s.label }

// Len returns the number of systems.
func (s *Schedule) Len() int { return len(s.systems) }

// Add builds a system from fn, runs its registration hooks against the
// world, and appends it.
func (s *Schedule) Add(fn any) error {
	sys, err := NewSystem(fn)
	if err != nil {
		return err
	}
	return s.AddSystem(sys)
}

// AddSystem registers and appends a prebuilt system.
func (s *Schedule) AddSystem(sys *System) error {
	if err := sys.register(s.world); err != nil {
		return err
	}
	s.systems = append(s.systems, sys)
	return nil
}

// Remove finds the system built from fn by invocation identity, runs its
// unregistration hooks, and swap-removes it. It reports whether a system
// was removed.
func (s *Schedule) Remove(fn any) bool {
	sys, err := NewSystem(fn)
	if err != nil {
		return false
	}
	for i, existing := range s.systems {
		if existing.id != sys.id {
			continue
		}
		existing.unregister(s.world)
		last := len(s.systems) - 1
		s.systems[i] = s.systems[last]
		s.systems = s.systems[:last]
		return true
	}
	return false
}

// Run invokes every system in order against w. Each system gets a fresh
// Commands handle, flushed immediately after the system returns; flush
// errors propagate like system errors.
func (s *Schedule) Run(w *World) error {
	for _, sys := range s.systems {
		cmds := newCommands(w)
		if err := sys.invoke(cmds); err != nil {
			cmds.Discard()
			return fmt.Errorf("schedule %q: %w", s.label, err)
		}
		if err := cmds.Flush(); err != nil {
			return fmt.Errorf("schedule %q: %w", s.label, err)
		}
	}
	return nil
}

// Close unregisters every system, releasing registration-time state such as
// event subscriptions.
func (s *Schedule) Close() {
	for _, sys := range s.systems {
		sys.unregister(s.world)
	}
	s.systems = nil
}

type topoCacheEntry struct {
	version   GraphVersion
	order     []uint64
	hasCycles bool
}

// ScheduleManager owns the schedules and the DAG ordering them. Topological
// orders are cached per start label and tagged with the graph version they
// were computed at; any graph mutation invalidates them lazily.
type ScheduleManager struct {
	world       *World
	graph       *Graph[uint64, struct{}]
	byName      map[string]NodeIndex
	schedules   []*Schedule
	scheduleIDs []uint64
	idToIndex   map[uint64]int
	nextID      uint64
	cache       map[string]*topoCacheEntry
}

// NewScheduleManager constructs an empty manager bound to a world.
func NewScheduleManager(w *World) *ScheduleManager {
	return &ScheduleManager{
		world:     w,
		graph:     NewGraph[uint64, struct{}](),
		byName:    make(map[string]NodeIndex),
		idToIndex: make(map[uint64]int),
		cache:     make(map[string]*topoCacheEntry),
	}
}

// Add creates an empty schedule under label.
func (m *ScheduleManager) Add(label string) (*Schedule, error) {
	if _, ok := m.byName[label]; ok {
		return nil, fmt.Errorf("%w: %s", ErrScheduleAlreadyExists, label)
	}
	m.nextID++
	id := m.nextID
	node := m.graph.AddNode(id)
	m.byName[label] = node
	m.idToIndex[id] = len(m.schedules)
	sched := NewSchedule(label, m.world)
	m.schedules = append(m.schedules, sched)
	m.scheduleIDs = append(m.scheduleIDs, id)
	return sched, nil
}

// Get returns the schedule under label, if any.
func (m *ScheduleManager) Get(label string) (*Schedule, bool) {
	node, ok := m.byName[label]
	if !ok {
		return nil, false
	}
	id, ok := m.graph.NodeWeight(node)
	if !ok {
		return nil, false
	}
	return m.schedules[m.idToIndex[id]], true
}

// Remove destroys the schedule under label, unregistering its systems and
// detaching its graph node.
func (m *ScheduleManager) Remove(label string) error {
	node, ok := m.byName[label]
	if !ok {
		return fmt.Errorf("%w: %s", ErrScheduleNotFound, label)
	}
	id, _ := m.graph.NodeWeight(node)
	idx := m.idToIndex[id]
	m.schedules[idx].Close()

	last := len(m.schedules) - 1
	if idx != last {
		m.schedules[idx] = m.schedules[last]
		m.scheduleIDs[idx] = m.scheduleIDs[last]
		m.idToIndex[m.scheduleIDs[idx]] = idx
	}
	m.schedules = m.schedules[:last]
	m.scheduleIDs = m.scheduleIDs[:last]
	delete(m.idToIndex, id)
	delete(m.byName, label)
	m.graph.RemoveNode(node)
	return nil
}

// AddOrdering records that schedule before runs before schedule after.
// Adding an existing edge is a no-op; cycles surface as ErrCyclicDependency
// at iteration time.
func (m *ScheduleManager) AddOrdering(before, after string) error {
	src, ok := m.byName[before]
	if !ok {
		return fmt.Errorf("%w: %s", ErrScheduleNotFound, before)
	}
	dst, ok := m.byName[after]
	if !ok {
		return fmt.Errorf("%w: %s", ErrScheduleNotFound, after)
	}
	m.graph.AddEdge(src, dst, struct{}{})
	return nil
}

// Iterator returns schedules reachable from start in dependency order. The
// order is served from the cache when the graph version matches; a cached
// cyclic order keeps failing with ErrCyclicDependency until the graph
// changes. Each iterator owns a copy of the order, so cache invalidation
// never disturbs a live iterator.
func (m *ScheduleManager) Iterator(start string) (*ScheduleIterator, error) {
	node, ok := m.byName[start]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScheduleNotFound, start)
	}
	entry, ok := m.cache[start]
	if !ok || entry.version != m.graph.Version() {
		res := m.graph.TopologicalSortFrom(node)
		order := make([]uint64, 0, len(res.Order))
		for _, n := range res.Order {
			if id, ok := m.graph.NodeWeight(n); ok {
				order = append(order, id)
			}
		}
		entry = &topoCacheEntry{version: m.graph.Version(), order: order, hasCycles: res.HasCycles}
		m.cache[start] = entry
	}
	if entry.hasCycles {
		return nil, ErrCyclicDependency
	}
	order := make([]uint64, len(entry.order))
	copy(order, entry.order)
	return &ScheduleIterator{mgr: m, order: order}, nil
}

// RunFrom runs every schedule reachable from start, in dependency order.
func (m *ScheduleManager) RunFrom(start string, w *World) error {
	it, err := m.Iterator(start)
	if err != nil {
		return err
	}
	for {
		sched, ok := it.Next()
		if !ok {
			return nil
		}
		if err := sched.Run(w); err != nil {
			return err
		}
	}
}

// Close unregisters every schedule's systems.
func (m *ScheduleManager) Close() {
	for _, s := range m.schedules {
		s.Close()
	}
}

// ScheduleIterator yields schedules in a frozen dependency order.
type ScheduleIterator struct {
	mgr   *ScheduleManager
	order []uint64
	pos   int
}

// Next returns the next schedule, dereferencing stable schedule ids so the
// manager may mutate between calls. Schedules removed since the order was
// copied are skipped.
func (it *ScheduleIterator) Next() (*Schedule, bool) {
	for it.pos < len(it.order) {
		id := it.order[it.pos]
		it.pos++
		if idx, ok := it.mgr.idToIndex[id]; ok {
			return it.mgr.schedules[idx], true
		}
	}
	return nil, false
}
