package triest

import (
	"math/rand"
)

// ReservoirSampler keeps a uniform random sample of at most capacity
// distinct edges and drives a CounterStrategy on every state change.
type ReservoirSampler struct {
	set      *EdgeSet
	capacity int
	t        int64
	rng      *rand.Rand
	counter  CounterStrategy
}

// NewReservoirSampler creates a sampler; capacity must be at least 1
func NewReservoirSampler(capacity int, counter CounterStrategy, rng *rand.Rand) (*ReservoirSampler, error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &ReservoirSampler{
		set:      NewEdgeSet(capacity),
		capacity: capacity,
		rng:      rng,
		counter:  counter,
	}, nil
}

// Offer presents one edge to the sampler and reports the decision taken
func (s *ReservoirSampler) Offer(u, v int64) Decision {
	if u == v {
		return Decision{Kind: IgnoredSelfLoop, Edge: Edge{U: u, V: v}}
	}

	e := NewEdge(u, v)
	if s.set.Contains(e) {
		return Decision{Kind: IgnoredDuplicate, Edge: e}
	}

	s.t++
	s.counter.OnArrival(s.set, e, s.t, s.capacity)

	if s.set.Len() < s.capacity {
		s.admit(e)
		return Decision{Kind: Admitted, Edge: e}
	}

	if s.rng.Float64() < float64(s.capacity)/float64(s.t) {
		victim := s.set.At(s.rng.Intn(s.set.Len()))
		s.evict(victim)
		s.admit(e)
		return Decision{Kind: AdmittedWithEviction, Edge: e, Evicted: victim}
	}

	return Decision{Kind: Rejected, Edge: e}
}

func (s *ReservoirSampler) admit(e Edge) {
	s.counter.OnAdmit(s.set, e)
	s.set.Insert(e)
}

func (s *ReservoirSampler) evict(e Edge) {
	s.counter.OnEvict(s.set, e)
	s.set.Erase(e)
}

// Clock returns the number of distinct edges counted so far
func (s *ReservoirSampler) Clock() int64 { return s.t }

// Capacity returns the reservoir size M
func (s *ReservoirSampler) Capacity() int { return s.capacity }

// EdgeSet exposes the sample for read-only use
func (s *ReservoirSampler) EdgeSet() *EdgeSet { return s.set }
