package triest

import (
	"fmt"
	"strings"
)

// Strategy selects how triangle counters are maintained
type Strategy string

const (
	// StrategyBase corrects counters on every reservoir mutation and scales at read time
	StrategyBase Strategy = "base"
	// StrategyImproved counts every distinct edge with a time-dependent weight
	StrategyImproved Strategy = "improved"
)

// ParseStrategy accepts the strategy name in any case
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case StrategyBase:
		return StrategyBase, nil
	case StrategyImproved:
		return StrategyImproved, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// CounterStrategy maintains triangle counters for a sampler.
// The sampler calls OnArrival for every distinct edge after advancing the
// clock to that edge's position t (m is the reservoir capacity), OnAdmit before inserting and OnEvict before erasing.
type CounterStrategy interface {
	OnArrival(set *EdgeSet, e Edge, t int64, m int)
	OnAdmit(set *EdgeSet, e Edge)
	OnEvict(set *EdgeSet, e Edge)
	GlobalEstimate(t int64, m int) float64
	LocalEstimate(v int64, t int64, m int) float64
	LocalEstimates(t int64, m int) map[int64]float64
}

func newCounterStrategy(s Strategy) (CounterStrategy, error) {
	switch s {
	case StrategyBase:
		return newBaseCounter(), nil
	case StrategyImproved:
		return newImprovedCounter(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, string(s))
}

// counters holds the global and per-vertex triangle counters
type counters struct {
	tau      float64
	tauLocal map[int64]float64
}

func newCounters() counters {
	return counters{tauLocal: make(map[int64]float64)}
}

// add applies delta for each common neighbor of the edge (u,v):
// the global counter and both endpoints get delta*|common|, each common vertex gets delta.
func (c *counters) add(e Edge, common []int64, delta float64) {
	inc := delta * float64(len(common))
	c.tau += inc
	c.bump(e.U, inc)
	c.bump(e.V, inc)
	for _, w := range common {
		c.bump(w, delta)
	}
}

func (c *counters) bump(v int64, delta float64) {
	next := c.tauLocal[v] + delta
	if next == 0 {
		delete(c.tauLocal, v)
		return
	}
	c.tauLocal[v] = next
}

func (c *counters) snapshot(scale float64) map[int64]float64 {
	out := make(map[int64]float64, len(c.tauLocal))
	for v, x := range c.tauLocal {
		out[v] = x * scale
	}
	return out
}
