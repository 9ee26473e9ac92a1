package triest

// improvedCounter counts every distinct arriving edge against the current
// sample before the sampling decision and never decrements.
type improvedCounter struct {
	counters
}

func newImprovedCounter() *improvedCounter {
	return &improvedCounter{counters: newCounters()}
}

// OnArrival runs with t already advanced to the arriving edge's position
func (c *improvedCounter) OnArrival(set *EdgeSet, e Edge, t int64, m int) {
	common := set.CommonNeighbors(e.U, e.V)
	if len(common) == 0 {
		return
	}
	c.add(e, common, improvedWeight(t, m))
}

func (c *improvedCounter) OnAdmit(*EdgeSet, Edge) {}

func (c *improvedCounter) OnEvict(*EdgeSet, Edge) {}

func (c *improvedCounter) GlobalEstimate(int64, int) float64 {
	return c.tau
}

func (c *improvedCounter) LocalEstimate(v int64, _ int64, _ int) float64 {
	return c.tauLocal[v]
}

func (c *improvedCounter) LocalEstimates(int64, int) map[int64]float64 {
	return c.snapshot(1)
}

// improvedWeight is 1 while t ≤ M, otherwise (t-1)(t-2) / (M(M-1)):
// the inverse probability that both closing edges are still sampled.
func improvedWeight(t int64, m int) float64 {
	if t <= int64(m) {
		return 1
	}
	if m < 2 {
		// a single sampled edge never closes a wedge
		return 0
	}
	ft, fm := float64(t), float64(m)
	return ((ft - 1) * (ft - 2)) / (fm * (fm - 1))
}
