package phasor

// NodeIndex addresses a node within a Graph. Indices are stable: removing a
// node never renumbers the others.
type NodeIndex int

// GraphVersion counts graph mutations with wrapping addition. Cached
// computations tag themselves with the version they were built at.
type GraphVersion uint64

type graphNode[N any] struct {
	weight N
	alive  bool
}

type graphEdge[E any] struct {
	to     NodeIndex
	weight E
}

// Graph is a directed graph with weighted nodes and edges. Every mutation
// bumps the version counter.
type Graph[N, E any] struct {
	nodes   []graphNode[N]
	out     map[NodeIndex][]graphEdge[E]
	version GraphVersion
}

// NewGraph constructs an empty graph.
func NewGraph[N, E any]() *Graph[N, E] {
	return &Graph[N, E]{out: make(map[NodeIndex][]graphEdge[E])}
}

// Version returns the mutation counter.
func (g *Graph[N, E]) Version() GraphVersion { return g.version }

// AddNode inserts a node and returns its index.
func (g *Graph[N, E]) AddNode(weight N) NodeIndex {
	g.nodes = append(g.nodes, graphNode[N]{weight: weight, alive: true})
	g.version++
	return NodeIndex(len(g.nodes) - 1)
}

// RemoveNode deletes a node and every edge touching it.
func (g *Graph[N, E]) RemoveNode(idx NodeIndex) {
	if !g.contains(idx) {
		return
	}
	g.nodes[idx].alive = false
	delete(g.out, idx)
	for from, edges := range g.out {
		kept := edges[:0]
		for _, e := range edges {
			if e.to != idx {
				kept = append(kept, e)
			}
		}
		g.out[from] = kept
	}
	g.version++
}

// NodeWeight returns the weight stored at idx.
func (g *Graph[N, E]) NodeWeight(idx NodeIndex) (N, bool) {
	var zero N
	if !g.contains(idx) {
		return zero, false
	}
	return g.nodes[idx].weight, true
}

func (g *Graph[N, E]) contains(idx NodeIndex) bool {
	return idx >= 0 && int(idx) < len(g.nodes) && g.nodes[idx].alive
}

// AddEdge inserts a directed edge, returning false when it already exists.
func (g *Graph[N, E]) AddEdge(src, dst NodeIndex, weight E) bool {
	if !g.contains(src) || !g.contains(dst) {
		return false
	}
	if g.ContainsEdge(src, dst) {
		return false
	}
	g.out[src] = append(g.out[src], graphEdge[E]{to: dst, weight: weight})
	g.version++
	return true
}

// ContainsEdge reports whether the directed edge src→dst exists.
func (g *Graph[N, E]) ContainsEdge(src, dst NodeIndex) bool {
	for _, e := range g.out[src] {
		if e.to == dst {
			return true
		}
	}
	return false
}

// Neighbors returns the forward neighbors of idx in insertion order.
func (g *Graph[N, E]) Neighbors(idx NodeIndex) []NodeIndex {
	edges := g.out[idx]
	out := make([]NodeIndex, len(edges))
	for i, e := range edges {
		out[i] = e.to
	}
	return out
}

// TopoResult is a (possibly partial) topological order plus a cycle flag.
// When HasCycles is true the order omits the nodes trapped in cycles.
type TopoResult struct {
	Order     []NodeIndex
	HasCycles bool
}

// TopologicalSort orders every live node with Kahn's algorithm.
func (g *Graph[N, E]) TopologicalSort() TopoResult {
	all := make([]NodeIndex, 0, len(g.nodes))
	for i := range g.nodes {
		if g.nodes[i].alive {
			all = append(all, NodeIndex(i))
		}
	}
	return g.kahn(all)
}

// TopologicalSortFrom restricts the sort to nodes reachable from start via
// forward edges. HasCycles is true iff the reachable subgraph has a cycle.
func (g *Graph[N, E]) TopologicalSortFrom(start NodeIndex) TopoResult {
	if !g.contains(start) {
		return TopoResult{}
	}
	reachable := []NodeIndex{start}
	seen := map[NodeIndex]bool{start: true}
	for i := 0; i < len(reachable); i++ {
		for _, e := range g.out[reachable[i]] {
			if !seen[e.to] && g.contains(e.to) {
				seen[e.to] = true
				reachable = append(reachable, e.to)
			}
		}
	}
	return g.kahn(reachable)
}

// HasCycles reports whether the graph contains any directed cycle.
func (g *Graph[N, E]) HasCycles() bool {
	return g.TopologicalSort().HasCycles
}

// kahn runs Kahn's algorithm over the given node subset.
func (g *Graph[N, E]) kahn(nodes []NodeIndex) TopoResult {
	inSet := make(map[NodeIndex]bool, len(nodes))
	for _, n := range nodes {
		inSet[n] = true
	}
	indeg := make(map[NodeIndex]int, len(nodes))
	for _, n := range nodes {
		indeg[n] = 0
	}
	for _, n := range nodes {
		for _, e := range g.out[n] {
			if inSet[e.to] {
				indeg[e.to]++
			}
		}
	}
	queue := make([]NodeIndex, 0, len(nodes))
	for _, n := range nodes {
		if indeg[n] == 0 {
			queue = append(queue, n)
		}
	}
	order := make([]NodeIndex, 0, len(nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, e := range g.out[n] {
			if !inSet[e.to] {
				continue
			}
			indeg[e.to]--
			if indeg[e.to] == 0 {
				queue = append(queue, e.to)
			}
		}
	}
	return TopoResult{Order: order, HasCycles: len(order) < len(nodes)}
}
