package benchmark

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/gilchrisn/triangle-stream-service/pkg/parser"
	"github.com/gilchrisn/triangle-stream-service/pkg/triest"
)

// cliquePairs returns the edges of several disjoint cliques of size n
func cliquePairs(cliques, n int) []parser.Pair {
	var pairs []parser.Pair
	for c := 0; c < cliques; c++ {
		base := int64(c * 1000)
		for i := int64(0); i < int64(n); i++ {
			for j := i + 1; j < int64(n); j++ {
				pairs = append(pairs, parser.Pair{U: base + i, V: base + j})
			}
		}
	}
	return pairs
}

func testOptions() Options {
	return Options{
		Capacities: []int{2, 10, 1000},
		Strategies: []triest.Strategy{triest.StrategyBase, triest.StrategyImproved},
		Runs:       3,
		Seed:       42,
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Options) {}},
		{name: "no capacities", mutate: func(o *Options) { o.Capacities = nil }, wantErr: true},
		{name: "zero capacity", mutate: func(o *Options) { o.Capacities = []int{0} }, wantErr: true},
		{name: "no strategies", mutate: func(o *Options) { o.Strategies = nil }, wantErr: true},
		{name: "no runs", mutate: func(o *Options) { o.Runs = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			tt.mutate(&opts)
			if err := opts.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	opts := testOptions()
	opts.Capacities = []int{-1}
	if err := opts.Validate(); !errors.Is(err, triest.ErrInvalidCapacity) {
		t.Errorf("expected ErrInvalidCapacity, got %v", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := triest.NewConfig()
	cfg.Set("benchmark.capacities", []int{5, 50})
	cfg.Set("benchmark.strategies", []string{"improved"})
	cfg.Set("benchmark.runs", 4)

	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("OptionsFromConfig: %v", err)
	}
	if len(opts.Capacities) != 2 || len(opts.Strategies) != 1 || opts.Runs != 4 {
		t.Errorf("unexpected options %+v", opts)
	}

	cfg.Set("benchmark.strategies", []string{"bogus"})
	if _, err := OptionsFromConfig(cfg); !errors.Is(err, triest.ErrUnknownStrategy) {
		t.Errorf("expected ErrUnknownStrategy, got %v", err)
	}
}

func TestRunnerRun(t *testing.T) {
	// three K5 cliques: 30 edges, 30 triangles
	ds := PrepareDataset("cliques", cliquePairs(3, 5), zerolog.Nop())
	if ds.Truth.Triangles != 30 {
		t.Fatalf("ground truth = %d, want 30", ds.Truth.Triangles)
	}
	if ds.ApproxVertices != 15 {
		t.Errorf("approx vertices = %d, want 15", ds.ApproxVertices)
	}

	runner, err := NewRunner(testOptions(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	report, err := runner.Run(context.Background(), ds)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.Rows) != 6 || len(report.Runs) != 18 {
		t.Fatalf("got %d rows and %d runs", len(report.Rows), len(report.Runs))
	}

	for _, row := range report.Rows {
		switch {
		case row.Capacity == 1000:
			// the whole stream fits: both strategies are exact
			if row.Accuracy.MeanEstimate != 30 || row.Accuracy.MeanMAPE != 0 {
				t.Errorf("%s M=1000: %+v", row.Strategy, row.Accuracy)
			}
		case row.Capacity == 2 && row.Strategy == triest.StrategyBase:
			if row.Defined {
				t.Error("Base with M=2 should be reported undefined")
			}
		default:
			if !row.Defined {
				t.Errorf("%s M=%d reported undefined", row.Strategy, row.Capacity)
			}
		}
	}

	for _, run := range report.Runs {
		if run.Seed != 42+int64(run.Run) {
			t.Errorf("run %d used seed %d", run.Run, run.Seed)
		}
		if run.Stats.Offered() != int64(len(ds.Pairs)) {
			t.Errorf("run offered %d edges, want %d", run.Stats.Offered(), len(ds.Pairs))
		}
	}
}

func TestRunnerCancelled(t *testing.T) {
	ds := PrepareDataset("big", cliquePairs(1, 200), zerolog.Nop())
	runner, err := NewRunner(Options{
		Capacities: []int{100},
		Strategies: []triest.Strategy{triest.StrategyImproved},
		Runs:       1,
	}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := runner.Run(ctx, ds); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func sampleReport() *Report {
	ds := PrepareDataset("k4", cliquePairs(1, 4), zerolog.Nop())
	ds.GroundTruthTime = 1500 * time.Microsecond
	return &Report{
		Dataset: ds,
		Rows: []Row{
			{Strategy: triest.StrategyBase, Capacity: 6, SamplePercent: 100, Defined: true},
			{Strategy: triest.StrategyImproved, Capacity: 2, SamplePercent: 33.3, Defined: true},
			{Strategy: triest.StrategyBase, Capacity: 2, SamplePercent: 33.3, Defined: false},
		},
	}
}

func TestWriteTable(t *testing.T) {
	report := sampleReport()
	report.Rows[0].Accuracy.MeanEstimate = 4

	var buf bytes.Buffer
	if err := WriteReport(&buf, report, FormatTable); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"Ground Truth (The number of real triangles): 4",
		"Algorithm       | M        | Sample %   | Estimate     | MAPE (%)   | Time (s)",
		"TRIÈST-BASE",
		"TRIÈST-IMPR",
		"undefined",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if lines := strings.Count(out, "\n"); lines != 9 {
		t.Errorf("expected 9 lines, got %d:\n%s", lines, out)
	}
}

func TestWriteStructuredFormats(t *testing.T) {
	report := sampleReport()

	var jsonBuf bytes.Buffer
	if err := WriteReport(&jsonBuf, report, FormatJSON); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(jsonBuf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if rows, ok := decoded["rows"].([]interface{}); !ok || len(rows) != 3 {
		t.Errorf("JSON rows = %v", decoded["rows"])
	}

	var yamlBuf bytes.Buffer
	if err := WriteReport(&yamlBuf, report, FormatYAML); err != nil {
		t.Fatal(err)
	}
	var yamlDecoded struct {
		Dataset struct {
			Name        string `yaml:"name"`
			GroundTruth struct {
				Triangles int64 `yaml:"triangles"`
			} `yaml:"ground_truth"`
		} `yaml:"dataset"`
	}
	if err := yaml.Unmarshal(yamlBuf.Bytes(), &yamlDecoded); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if yamlDecoded.Dataset.Name != "k4" || yamlDecoded.Dataset.GroundTruth.Triangles != 4 {
		t.Errorf("YAML dataset = %+v", yamlDecoded.Dataset)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatTable, "JSON": FormatJSON, "yml": FormatYAML, "table": FormatTable} {
		if got, err := ParseFormat(in); err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}
