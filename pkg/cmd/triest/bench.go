package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/triangle-stream-service/pkg/benchmark"
	"github.com/gilchrisn/triangle-stream-service/pkg/parser"
)

type benchFlags struct {
	capacities []int
	strategies []string
	runs       int
	seed       int64
	format     string
	output     string
}

func newBenchCmd(cc *cliContext) *cobra.Command {
	flags := &benchFlags{}

	cmd := &cobra.Command{
		Use:   "bench <edge-list>",
		Short: "Compare estimators against the exact triangle count",
		Long: `bench computes the exact triangle count of an edge list, then streams the
whole list through a fresh estimator for every capacity, strategy and run,
reporting the estimate, its MAPE and the elapsed time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("capacities") {
				cc.cfg.Set("benchmark.capacities", flags.capacities)
			}
			if cmd.Flags().Changed("strategies") {
				cc.cfg.Set("benchmark.strategies", flags.strategies)
			}
			if cmd.Flags().Changed("runs") {
				cc.cfg.Set("benchmark.runs", flags.runs)
			}
			if cmd.Flags().Changed("seed") {
				cc.cfg.Set("algorithm.random_seed", flags.seed)
			}
			if cmd.Flags().Changed("format") {
				cc.cfg.Set("benchmark.output_format", flags.format)
			}
			return runBench(cmd, cc, args[0], flags.output)
		},
	}

	cmd.Flags().IntSliceVar(&flags.capacities, "capacities", nil, "reservoir capacities to compare")
	cmd.Flags().StringSliceVar(&flags.strategies, "strategies", nil, "strategies to compare (base, improved)")
	cmd.Flags().IntVar(&flags.runs, "runs", 1, "runs per configuration, each with its own seed")
	cmd.Flags().Int64Var(&flags.seed, "seed", 0, "base random seed")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "table", "output format: table, json or yaml")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write the report to a file instead of stdout")
	return cmd
}

func runBench(cmd *cobra.Command, cc *cliContext, path, output string) error {
	opts, err := benchmark.OptionsFromConfig(cc.cfg)
	if err != nil {
		return err
	}
	format, err := benchmark.ParseFormat(cc.cfg.BenchmarkOutputFormat())
	if err != nil {
		return err
	}
	runner, err := benchmark.NewRunner(opts, cc.logger)
	if err != nil {
		return err
	}

	pairs, _, err := parser.NewReader(cc.logger).LoadEdgeList(cmd.Context(), path)
	if err != nil {
		return err
	}
	dataset := benchmark.PrepareDataset(filepath.Base(path), pairs, cc.logger)

	report, err := runner.Run(cmd.Context(), dataset)
	if err != nil {
		return fmt.Errorf("benchmark interrupted: %w", err)
	}

	out := cmd.OutOrStdout()
	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("could not create %s: %w", output, err)
		}
		defer file.Close()
		out = file
	}
	return benchmark.WriteReport(out, report, format)
}
