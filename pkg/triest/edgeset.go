package triest

import (
	"fmt"
	"sort"
)

// Edge is an undirected edge stored with U < V
type Edge struct {
	U int64 `json:"u" yaml:"u"`
	V int64 `json:"v" yaml:"v"`
}

// NewEdge canonicalizes an unordered vertex pair
func NewEdge(u, v int64) Edge {
	if u > v {
		u, v = v, u
	}
	return Edge{U: u, V: v}
}

// IsSelfLoop reports whether both endpoints are the same vertex
func (e Edge) IsSelfLoop() bool {
	return e.U == e.V
}

func (e Edge) String() string {
	return fmt.Sprintf("(%d,%d)", e.U, e.V)
}

type vertexSet map[int64]struct{}

// EdgeSet holds the sampled edges and the neighbor index derived from them.
// An edge is present iff each endpoint lists the other as a neighbor.
// Edges are also kept in a dense slice so a uniform draw is O(1).
type EdgeSet struct {
	edges    []Edge
	position map[Edge]int
	adj      map[int64]vertexSet
}

// NewEdgeSet creates an empty edge set sized for capacity edges
func NewEdgeSet(capacity int) *EdgeSet {
	if capacity < 0 {
		capacity = 0
	}
	return &EdgeSet{
		edges:    make([]Edge, 0, capacity),
		position: make(map[Edge]int, capacity),
		adj:      make(map[int64]vertexSet),
	}
}

// Len returns the number of sampled edges
func (s *EdgeSet) Len() int {
	return len(s.edges)
}

// NumVertices returns the number of vertices with at least one sampled edge
func (s *EdgeSet) NumVertices() int {
	return len(s.adj)
}

// At returns the i-th edge of the dense edge slice
func (s *EdgeSet) At(i int) Edge {
	return s.edges[i]
}

// Contains reports whether the edge is sampled
func (s *EdgeSet) Contains(e Edge) bool {
	_, ok := s.position[NewEdge(e.U, e.V)]
	return ok
}

// Degree returns the sampled degree of v
func (s *EdgeSet) Degree(v int64) int {
	return len(s.adj[v])
}

// Neighbors returns a sorted snapshot of v's sampled neighbors.
// Absent vertices yield an empty slice and are not added to the index.
func (s *EdgeSet) Neighbors(v int64) []int64 {
	set, ok := s.adj[v]
	if !ok {
		return []int64{}
	}
	out := make([]int64, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CommonNeighbors returns the vertices adjacent to both u and v in the sample
func (s *EdgeSet) CommonNeighbors(u, v int64) []int64 {
	a, b := s.adj[u], s.adj[v]
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	if len(a) > len(b) {
		a, b = b, a
	}

	var common []int64
	for n := range a {
		if _, ok := b[n]; ok {
			common = append(common, n)
		}
	}
	return common
}

// Edges returns a snapshot of the sampled edges in insertion-slot order
func (s *EdgeSet) Edges() []Edge {
	out := make([]Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

// Insert adds an edge and both adjacency entries.
// Inserting a self-loop or an edge already present is a programming error.
func (s *EdgeSet) Insert(e Edge) {
	e = NewEdge(e.U, e.V)
	if e.IsSelfLoop() {
		panic(fmt.Sprintf("triest: insert of self-loop %s", e))
	}
	if _, ok := s.position[e]; ok {
		panic(fmt.Sprintf("triest: insert of duplicate edge %s", e))
	}

	s.position[e] = len(s.edges)
	s.edges = append(s.edges, e)
	s.link(e.U, e.V)
	s.link(e.V, e.U)
}

// Erase removes an edge and both adjacency entries; absent edges are ignored
func (s *EdgeSet) Erase(e Edge) {
	e = NewEdge(e.U, e.V)
	idx, ok := s.position[e]
	if !ok {
		return
	}

	// Swap with the last slot to keep the slice dense
	last := len(s.edges) - 1
	if idx != last {
		moved := s.edges[last]
		s.edges[idx] = moved
		s.position[moved] = idx
	}
	s.edges = s.edges[:last]
	delete(s.position, e)

	s.unlink(e.U, e.V)
	s.unlink(e.V, e.U)
}

func (s *EdgeSet) link(from, to int64) {
	set, ok := s.adj[from]
	if !ok {
		set = make(vertexSet)
		s.adj[from] = set
	}
	set[to] = struct{}{}
}

func (s *EdgeSet) unlink(from, to int64) {
	set, ok := s.adj[from]
	if !ok {
		return
	}
	delete(set, to)
	if len(set) == 0 {
		delete(s.adj, from)
	}
}
