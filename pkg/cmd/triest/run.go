package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/triangle-stream-service/pkg/parser"
	"github.com/gilchrisn/triangle-stream-service/pkg/triest"
	"github.com/gilchrisn/triangle-stream-service/pkg/validation"
)

type runFlags struct {
	capacity    int
	strategy    string
	seed        int64
	top         int
	groundTruth bool
}

func newRunCmd(cc *cliContext) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run <edge-list>",
		Short: "Stream one edge list through a single estimator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("capacity") {
				cc.cfg.Set("triest.capacity", flags.capacity)
			}
			if cmd.Flags().Changed("strategy") {
				cc.cfg.Set("triest.strategy", flags.strategy)
			}
			if cmd.Flags().Changed("seed") {
				cc.cfg.Set("algorithm.random_seed", flags.seed)
			}
			return runEstimate(cmd, cc, args[0], flags)
		},
	}

	cmd.Flags().IntVarP(&flags.capacity, "capacity", "m", 0, "reservoir capacity M (default from triest.capacity)")
	cmd.Flags().StringVarP(&flags.strategy, "strategy", "s", "", "counter strategy: base or improved")
	cmd.Flags().Int64Var(&flags.seed, "seed", 0, "random seed")
	cmd.Flags().IntVar(&flags.top, "top", 10, "number of local estimates to print")
	cmd.Flags().BoolVar(&flags.groundTruth, "ground-truth", false, "also compute the exact count and MAPE")
	return cmd
}

func runEstimate(cmd *cobra.Command, cc *cliContext, path string, flags *runFlags) error {
	ctx := cmd.Context()
	reader := parser.NewReader(cc.logger)

	est, err := triest.NewFromConfig(cc.cfg, cc.logger)
	if err != nil {
		return err
	}

	var pairs []parser.Pair
	start := time.Now()
	summary, err := reader.StreamEdgeList(ctx, path, func(p parser.Pair) error {
		est.ProcessEdge(p.U, p.V)
		if flags.groundTruth {
			pairs = append(pairs, p)
		}
		return nil
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	cc.logger.Info().
		Str("file", path).
		Int("lines", summary.Lines).
		Int("edges", summary.Edges).
		Int("malformed", summary.MalformedCount()).
		Dur("elapsed", elapsed).
		Msg("Edge stream processed")

	out := cmd.OutOrStdout()
	printEstimate(out, est, elapsed)
	printTopLocal(out, est.TopLocal(flags.top))

	if flags.groundTruth {
		truth := validation.ExactTriangles(pairs)
		fmt.Fprintf(out, "Exact triangles: %d\n", truth.Triangles)
		if est.EstimateDefined() {
			fmt.Fprintf(out, "MAPE (%%):        %.2f\n", validation.MAPE(est.GlobalEstimate(), float64(truth.Triangles)))
		}
	}
	return nil
}

func printEstimate(out io.Writer, est *triest.Estimator, elapsed time.Duration) {
	stats := est.Stats()
	fmt.Fprintf(out, "Strategy:        %s\n", est.Strategy())
	fmt.Fprintf(out, "Capacity (M):    %d\n", est.Capacity())
	fmt.Fprintf(out, "Stream length:   %d\n", est.Clock())
	fmt.Fprintf(out, "Reservoir size:  %d\n", est.ReservoirSize())
	fmt.Fprintf(out, "Ignored:         %d self-loops, %d duplicates\n", stats.SelfLoops, stats.Duplicates)
	if est.EstimateDefined() {
		fmt.Fprintf(out, "Global estimate: %.2f\n", est.GlobalEstimate())
	} else {
		fmt.Fprintf(out, "Global estimate: undefined\n")
	}
	fmt.Fprintf(out, "Time (s):        %.3f\n", elapsed.Seconds())
}

func printTopLocal(out io.Writer, top []triest.VertexEstimate) {
	if len(top) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%-12s %s\n", "Vertex", "Local estimate")
	for _, ve := range top {
		fmt.Fprintf(out, "%-12d %.2f\n", ve.Vertex, ve.Estimate)
	}
	fmt.Fprintln(out)
}
