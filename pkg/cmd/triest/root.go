package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/triangle-stream-service/pkg/triest"
)

// cliContext carries the loaded configuration to every subcommand
type cliContext struct {
	configFile string
	logLevel   string

	cfg    *triest.Config
	logger zerolog.Logger
}

func (c *cliContext) load() error {
	c.cfg = triest.NewConfig()
	if c.configFile != "" {
		if err := c.cfg.LoadFromFile(c.configFile); err != nil {
			return fmt.Errorf("failed to load config %s: %w", c.configFile, err)
		}
	}
	if c.logLevel != "" {
		c.cfg.Set("logging.level", c.logLevel)
	}

	c.logger = c.cfg.CreateLogger()
	log.Logger = c.logger
	return nil
}

func newRootCmd() *cobra.Command {
	cc := &cliContext{}

	root := &cobra.Command{
		Use:   "triest",
		Short: "Streaming triangle count estimation with fixed-memory edge sampling",
		Long: `triest estimates global and per-vertex triangle counts of an edge stream
while keeping at most M edges in memory.

Examples:
  triest run graph.txt -m 20000 -s improved
  triest bench graph.txt --capacities 1000,5000 --runs 5 --format json
  triest serve --config triest.yaml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cc.load()
		},
	}

	root.PersistentFlags().StringVar(&cc.configFile, "config", "", "configuration file (yaml, json or toml)")
	root.PersistentFlags().StringVar(&cc.logLevel, "log-level", "", "log level: trace, debug, info, warn or error")

	root.AddCommand(newRunCmd(cc), newBenchCmd(cc), newServeCmd(cc))
	return root
}
