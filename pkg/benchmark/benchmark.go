package benchmark

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/triangle-stream-service/pkg/cardinality"
	"github.com/gilchrisn/triangle-stream-service/pkg/parser"
	"github.com/gilchrisn/triangle-stream-service/pkg/triest"
	"github.com/gilchrisn/triangle-stream-service/pkg/validation"
)

// checkEvery is how many edges are processed between context/progress checks
const checkEvery = 1 << 14

// Options controls which estimator configurations are benchmarked
type Options struct {
	Capacities       []int
	Strategies       []triest.Strategy
	Runs             int
	Seed             int64
	EnableProgress   bool
	ProgressInterval time.Duration
}

// OptionsFromConfig reads the benchmark.* keys
func OptionsFromConfig(cfg *triest.Config) (Options, error) {
	opts := Options{
		Capacities:       cfg.BenchmarkCapacities(),
		Runs:             cfg.BenchmarkRuns(),
		Seed:             cfg.RandomSeed(),
		EnableProgress:   cfg.EnableProgress(),
		ProgressInterval: time.Duration(cfg.ProgressIntervalMS()) * time.Millisecond,
	}
	for _, name := range cfg.BenchmarkStrategies() {
		s, err := triest.ParseStrategy(name)
		if err != nil {
			return Options{}, err
		}
		opts.Strategies = append(opts.Strategies, s)
	}
	return opts, opts.Validate()
}

// Validate checks the option values before any run starts
func (o Options) Validate() error {
	if len(o.Capacities) == 0 {
		return fmt.Errorf("no reservoir capacities to benchmark")
	}
	for _, m := range o.Capacities {
		if m < 1 {
			return fmt.Errorf("capacity %d: %w", m, triest.ErrInvalidCapacity)
		}
	}
	if len(o.Strategies) == 0 {
		return fmt.Errorf("no strategies to benchmark")
	}
	if o.Runs < 1 {
		return fmt.Errorf("runs must be at least 1, got %d", o.Runs)
	}
	return nil
}

// Dataset is an edge sequence together with its exact triangle count
type Dataset struct {
	Name            string                  `json:"name" yaml:"name"`
	Pairs           []parser.Pair           `json:"-" yaml:"-"`
	Truth           *validation.GroundTruth `json:"ground_truth" yaml:"ground_truth"`
	ApproxVertices  uint64                  `json:"approx_vertices" yaml:"approx_vertices"`
	GroundTruthTime time.Duration           `json:"ground_truth_time" yaml:"ground_truth_time"`
}

// PrepareDataset computes the ground truth used to score every run
func PrepareDataset(name string, pairs []parser.Pair, logger zerolog.Logger) *Dataset {
	vertices := cardinality.NewVertexCounter()
	for _, p := range pairs {
		vertices.Observe(p.U, p.V)
	}

	start := time.Now()
	truth := validation.ExactTriangles(pairs)
	elapsed := time.Since(start)

	logger.Info().
		Str("dataset", name).
		Int("edges", truth.Edges).
		Int("vertices", truth.Vertices).
		Int64("triangles", truth.Triangles).
		Dur("elapsed", elapsed).
		Msg("Ground truth computed")

	return &Dataset{
		Name:            name,
		Pairs:           pairs,
		Truth:           truth,
		ApproxVertices:  vertices.Estimate(),
		GroundTruthTime: elapsed,
	}
}

// RunResult is one pass of the full edge sequence through a fresh estimator
type RunResult struct {
	Strategy      triest.Strategy `json:"strategy" yaml:"strategy"`
	Capacity      int             `json:"capacity" yaml:"capacity"`
	Run           int             `json:"run" yaml:"run"`
	Seed          int64           `json:"seed" yaml:"seed"`
	SamplePercent float64         `json:"sample_percent" yaml:"sample_percent"`
	Estimate      float64         `json:"estimate" yaml:"estimate"`
	Defined       bool            `json:"defined" yaml:"defined"`
	MAPE          float64         `json:"mape" yaml:"mape"`
	Elapsed       time.Duration   `json:"elapsed" yaml:"elapsed"`
	Stats         triest.Stats    `json:"stats" yaml:"stats"`
}

// Row aggregates the runs of one strategy/capacity pair
type Row struct {
	Strategy      triest.Strategy     `json:"strategy" yaml:"strategy"`
	Capacity      int                 `json:"capacity" yaml:"capacity"`
	SamplePercent float64             `json:"sample_percent" yaml:"sample_percent"`
	Defined       bool                `json:"defined" yaml:"defined"`
	Accuracy      validation.Accuracy `json:"accuracy" yaml:"accuracy"`
	MeanElapsed   time.Duration       `json:"mean_elapsed" yaml:"mean_elapsed"`
}

// Report is the complete benchmark output
type Report struct {
	Dataset *Dataset    `json:"dataset" yaml:"dataset"`
	Rows    []Row       `json:"rows" yaml:"rows"`
	Runs    []RunResult `json:"runs,omitempty" yaml:"runs,omitempty"`
}

// Runner feeds a dataset through fresh estimators for every configuration
type Runner struct {
	opts   Options
	logger zerolog.Logger
}

// NewRunner creates a benchmark runner
func NewRunner(opts Options, logger zerolog.Logger) (*Runner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Runner{opts: opts, logger: logger.With().Str("component", "benchmark").Logger()}, nil
}

// Run benchmarks every capacity × strategy × run combination in that order
func (r *Runner) Run(ctx context.Context, ds *Dataset) (*Report, error) {
	report := &Report{Dataset: ds}
	truth := float64(ds.Truth.Triangles)

	for _, m := range r.opts.Capacities {
		for _, s := range r.opts.Strategies {
			row := Row{Strategy: s, Capacity: m, SamplePercent: samplePercent(m, len(ds.Pairs)), Defined: true}

			estimates := make([]float64, 0, r.opts.Runs)
			var total time.Duration
			for run := 0; run < r.opts.Runs; run++ {
				res, err := r.runOnce(ctx, ds, s, m, run)
				if err != nil {
					return report, err
				}
				res.MAPE = validation.MAPE(res.Estimate, truth)
				report.Runs = append(report.Runs, *res)

				estimates = append(estimates, res.Estimate)
				total += res.Elapsed
				row.Defined = row.Defined && res.Defined
			}

			row.Accuracy = validation.Summarize(estimates, truth)
			row.MeanElapsed = total / time.Duration(r.opts.Runs)
			report.Rows = append(report.Rows, row)

			r.logger.Info().
				Str("strategy", string(s)).
				Int("capacity", m).
				Float64("mean_estimate", row.Accuracy.MeanEstimate).
				Float64("mape", row.Accuracy.MeanMAPE).
				Dur("mean_elapsed", row.MeanElapsed).
				Msg("Configuration benchmarked")
		}
	}

	return report, nil
}

func (r *Runner) runOnce(ctx context.Context, ds *Dataset, s triest.Strategy, m, run int) (*RunResult, error) {
	seed := r.opts.Seed + int64(run)
	est, err := triest.New(s, m, triest.WithSeed(seed), triest.WithLogger(r.logger))
	if err != nil {
		return nil, err
	}

	lastProgress := time.Now()
	start := time.Now()
	for i, p := range ds.Pairs {
		est.ProcessEdge(p.U, p.V)

		if (i+1)%checkEvery != 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if r.opts.EnableProgress && time.Since(lastProgress) >= r.opts.ProgressInterval {
			lastProgress = time.Now()
			r.logger.Info().
				Str("strategy", string(s)).
				Int("capacity", m).
				Int("processed", i+1).
				Int("total", len(ds.Pairs)).
				Float64("estimate", est.GlobalEstimate()).
				Msg("Streaming progress")
		}
	}
	elapsed := time.Since(start)

	if !est.EstimateDefined() {
		r.logger.Warn().
			Str("strategy", string(s)).
			Int("capacity", m).
			Msg("Estimate undefined for this capacity")
	}

	return &RunResult{
		Strategy:      s,
		Capacity:      m,
		Run:           run,
		Seed:          seed,
		SamplePercent: samplePercent(m, len(ds.Pairs)),
		Estimate:      est.GlobalEstimate(),
		Defined:       est.EstimateDefined(),
		Elapsed:       elapsed,
		Stats:         est.Stats(),
	}, nil
}

func samplePercent(capacity, edges int) float64 {
	if edges == 0 {
		return 0
	}
	return float64(capacity) / float64(edges) * 100
}
