package triest

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/rs/zerolog"
)

// Estimator estimates the triangle count of an edge stream from a bounded
// reservoir. It is not safe for concurrent use; one goroutine must own it.
type Estimator struct {
	strategy Strategy
	sampler  *ReservoirSampler
	counter  CounterStrategy
	stats    Stats
	logger   zerolog.Logger
}

// VertexEstimate pairs a vertex with its local triangle estimate
type VertexEstimate struct {
	Vertex   int64   `json:"vertex" yaml:"vertex"`
	Estimate float64 `json:"estimate" yaml:"estimate"`
}

// Option configures an Estimator
type Option func(*options)

type options struct {
	rng    *rand.Rand
	logger zerolog.Logger
}

// WithSeed seeds the estimator's own random source
func WithSeed(seed int64) Option {
	return func(o *options) { o.rng = rand.New(rand.NewSource(seed)) }
}

// WithRand hands the estimator an explicitly owned random source
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithLogger sets the logger used for construction warnings and trace output
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates an estimator with the given counter strategy and reservoir capacity
func New(strategy Strategy, capacity int, opts ...Option) (*Estimator, error) {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(rand.Int63()))
	}

	counter, err := newCounterStrategy(strategy)
	if err != nil {
		return nil, err
	}

	sampler, err := NewReservoirSampler(capacity, counter, o.rng)
	if err != nil {
		return nil, fmt.Errorf("capacity %d: %w", capacity, err)
	}

	logger := o.logger.With().Str("strategy", string(strategy)).Int("capacity", capacity).Logger()
	if strategy == StrategyBase && capacity < 3 {
		logger.Warn().Msg("Base estimate is undefined once the stream exceeds a reservoir smaller than 3 edges")
	}

	return &Estimator{
		strategy: strategy,
		sampler:  sampler,
		counter:  counter,
		logger:   logger,
	}, nil
}

// NewFromConfig creates an estimator from the triest.* and algorithm.random_seed keys
func NewFromConfig(cfg *Config, logger zerolog.Logger) (*Estimator, error) {
	strategy, err := cfg.Strategy()
	if err != nil {
		return nil, err
	}
	return New(strategy, cfg.Capacity(), WithSeed(cfg.RandomSeed()), WithLogger(logger))
}

// ProcessEdge feeds one edge of the stream. Self-loops and edges already in
// the sample are absorbed without changing any state.
func (e *Estimator) ProcessEdge(u, v int64) Decision {
	d := e.sampler.Offer(u, v)
	e.stats.record(d.Kind)

	if ev := e.logger.Trace(); ev.Enabled() {
		ev.Str("decision", d.Kind.String()).
			Stringer("edge", d.Edge).
			Int64("t", e.sampler.Clock()).
			Msg("Edge processed")
	}
	return d
}

// GlobalEstimate returns the current triangle-count estimate, 0 on an empty stream
func (e *Estimator) GlobalEstimate() float64 {
	return e.counter.GlobalEstimate(e.sampler.Clock(), e.sampler.Capacity())
}

// EstimateDefined is false when the Base scaling factor has no meaning (M < 3 past the threshold)
func (e *Estimator) EstimateDefined() bool {
	if e.strategy != StrategyBase {
		return true
	}
	return e.sampler.Capacity() >= 3 || e.sampler.Clock() <= int64(e.sampler.Capacity())
}

// LocalEstimate returns the local triangle estimate of v, 0 if unseen
func (e *Estimator) LocalEstimate(v int64) float64 {
	return e.counter.LocalEstimate(v, e.sampler.Clock(), e.sampler.Capacity())
}

// LocalEstimates returns a snapshot of every nonzero local estimate
func (e *Estimator) LocalEstimates() map[int64]float64 {
	return e.counter.LocalEstimates(e.sampler.Clock(), e.sampler.Capacity())
}

// TopLocal returns the k vertices with the largest local estimates, ties broken by vertex id
func (e *Estimator) TopLocal(k int) []VertexEstimate {
	if k <= 0 {
		return nil
	}
	all := e.LocalEstimates()
	out := make([]VertexEstimate, 0, len(all))
	for v, x := range all {
		out = append(out, VertexEstimate{Vertex: v, Estimate: x})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Estimate != out[j].Estimate {
			return out[i].Estimate > out[j].Estimate
		}
		return out[i].Vertex < out[j].Vertex
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// Neighbors returns a snapshot of v's neighbors in the sample
func (e *Estimator) Neighbors(v int64) []int64 {
	return e.sampler.EdgeSet().Neighbors(v)
}

// SampledEdges returns a snapshot of the reservoir
func (e *Estimator) SampledEdges() []Edge {
	return e.sampler.EdgeSet().Edges()
}

func (e *Estimator) Clock() int64 { return e.sampler.Clock() }
func (e *Estimator) Capacity() int { return e.sampler.Capacity() }
func (e *Estimator) ReservoirSize() int { return e.sampler.EdgeSet().Len() }
func (e *Estimator) Strategy() Strategy { return e.strategy }
func (e *Estimator) Stats() Stats { return e.stats }
