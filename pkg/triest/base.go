package triest

// baseCounter keeps the exact triangle count of the sampled subgraph.
// Deltas are computed from the adjacency before each mutation.
type baseCounter struct {
	counters
}

func newBaseCounter() *baseCounter {
	return &baseCounter{counters: newCounters()}
}

func (b *baseCounter) OnArrival(*EdgeSet, Edge, int64, int) {}

func (b *baseCounter) OnAdmit(set *EdgeSet, e Edge) {
	if common := set.CommonNeighbors(e.U, e.V); len(common) > 0 {
		b.add(e, common, 1)
	}
}

func (b *baseCounter) OnEvict(set *EdgeSet, e Edge) {
	if !set.Contains(e) {
		return
	}
	if common := set.CommonNeighbors(e.U, e.V); len(common) > 0 {
		b.add(e, common, -1)
	}
}

func (b *baseCounter) GlobalEstimate(t int64, m int) float64 {
	return b.tau * baseScale(t, m)
}

func (b *baseCounter) LocalEstimate(v int64, t int64, m int) float64 {
	return b.tauLocal[v] * baseScale(t, m)
}

func (b *baseCounter) LocalEstimates(t int64, m int) map[int64]float64 {
	return b.snapshot(baseScale(t, m))
}

// baseScale is ξ = t(t-1)(t-2) / (M(M-1)(M-2)), the inverse probability that
// the three edges of a triangle are all in a size-M sample of t edges.
// It is 1 while the whole stream fits and 0 when M < 3 makes it undefined.
func baseScale(t int64, m int) float64 {
	if t <= int64(m) {
		return 1
	}
	if m < 3 {
		return 0
	}
	ft, fm := float64(t), float64(m)
	return (ft * (ft - 1) * (ft - 2)) / (fm * (fm - 1) * (fm - 2))
}
