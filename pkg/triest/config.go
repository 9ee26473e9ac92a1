package triest

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config manages estimator, benchmark and server configuration using Viper
type Config struct {
	v *viper.Viper
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	v := viper.New()

	// Estimator parameters
	v.SetDefault("triest.capacity", 10000)
	v.SetDefault("triest.strategy", string(StrategyImproved))
	v.SetDefault("algorithm.random_seed", time.Now().UnixNano())

	// Benchmark parameters
	v.SetDefault("benchmark.capacities", []int{1000, 5000, 10000, 20000, 40000})
	v.SetDefault("benchmark.strategies", []string{string(StrategyBase), string(StrategyImproved)})
	v.SetDefault("benchmark.runs", 1)
	v.SetDefault("benchmark.output_format", "table")

	// Logging parameters
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.progress_interval_ms", 1000)
	v.SetDefault("logging.enable_progress", true)

	// Server parameters
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_sessions", 64)
	v.SetDefault("server.max_batch_edges", 100000)

	// TRIEST_TRIEST_CAPACITY, TRIEST_SERVER_ADDRESS, ...
	v.SetEnvPrefix("triest")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{v: v}
}

// LoadFromFile loads configuration from file
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// Getters for estimator parameters
func (c *Config) Capacity() int { return c.v.GetInt("triest.capacity") }
func (c *Config) StrategyName() string { return c.v.GetString("triest.strategy") }
func (c *Config) RandomSeed() int64 { return c.v.GetInt64("algorithm.random_seed") }

// Strategy parses the configured strategy name
func (c *Config) Strategy() (Strategy, error) { return ParseStrategy(c.StrategyName()) }

func (c *Config) BenchmarkRuns() int { return c.v.GetInt("benchmark.runs") }
func (c *Config) BenchmarkOutputFormat() string { return c.v.GetString("benchmark.output_format") }

// BenchmarkCapacities also accepts a comma or space separated string, as set
// through TRIEST_BENCHMARK_CAPACITIES. Unparsable entries become 0 so that
// option validation rejects them.
func (c *Config) BenchmarkCapacities() []int {
	raw, ok := c.v.Get("benchmark.capacities").(string)
	if !ok {
		return c.v.GetIntSlice("benchmark.capacities")
	}
	fields := splitList(raw)
	out := make([]int, len(fields))
	for i, f := range fields {
		out[i], _ = strconv.Atoi(f)
	}
	return out
}

// BenchmarkStrategies also accepts a comma or space separated string
func (c *Config) BenchmarkStrategies() []string {
	if raw, ok := c.v.Get("benchmark.strategies").(string); ok {
		return splitList(raw)
	}
	return c.v.GetStringSlice("benchmark.strategies")
}

func splitList(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

func (c *Config) LogLevel() string { return c.v.GetString("logging.level") }
func (c *Config) ProgressIntervalMS() int { return c.v.GetInt("logging.progress_interval_ms") }
func (c *Config) EnableProgress() bool { return c.v.GetBool("logging.enable_progress") }

func (c *Config) ServerAddress() string { return c.v.GetString("server.address") }
func (c *Config) ReadTimeout() time.Duration { return c.v.GetDuration("server.read_timeout") }
func (c *Config) WriteTimeout() time.Duration { return c.v.GetDuration("server.write_timeout") }
func (c *Config) AllowedOrigins() []string {
	if raw, ok := c.v.Get("server.allowed_origins").(string); ok {
		return splitList(raw)
	}
	return c.v.GetStringSlice("server.allowed_origins")
}
func (c *Config) MaxSessions() int { return c.v.GetInt("server.max_sessions") }
func (c *Config) MaxBatchEdges() int { return c.v.GetInt("server.max_batch_edges") }

// Set allows dynamic configuration changes
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// CreateLogger creates a zerolog logger based on config
func (c *Config) CreateLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("service", "triest").Logger()
}
