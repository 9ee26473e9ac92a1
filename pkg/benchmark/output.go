package benchmark

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gilchrisn/triangle-stream-service/pkg/triest"
)

// Format selects how a report is rendered
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat accepts table, json, yaml (and yml)
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "table", "text":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown output format %q", name)
}

// WriteReport renders report to w in the given format
func WriteReport(w io.Writer, report *Report, format Format) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(report); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return encoder.Close()
	default:
		return WriteTable(w, report)
	}
}

// algorithmName gives the table label of a strategy
func algorithmName(s triest.Strategy) string {
	switch s {
	case triest.StrategyBase:
		return "TRIÈST-BASE"
	case triest.StrategyImproved:
		return "TRIÈST-IMPR"
	}
	return strings.ToUpper(string(s))
}

// WriteTable prints the dataset summary followed by one line per configuration
func WriteTable(w io.Writer, report *Report) error {
	ds := report.Dataset
	rule := strings.Repeat("-", 90)

	var b strings.Builder
	fmt.Fprintf(&b, "Dataset: %s\n", ds.Name)
	fmt.Fprintf(&b, "Total edges: %d (distinct %d, vertices %d, approx vertices %d)\n",
		len(ds.Pairs), ds.Truth.Edges, ds.Truth.Vertices, ds.ApproxVertices)
	fmt.Fprintf(&b, "Ground Truth (The number of real triangles): %d (Time cost: %.4fs)\n",
		ds.Truth.Triangles, ds.GroundTruthTime.Seconds())
	b.WriteString(rule + "\n")

	fmt.Fprintf(&b, "%-15s | %-8s | %-10s | %-12s | %-10s | %-10s\n",
		"Algorithm", "M", "Sample %", "Estimate", "MAPE (%)", "Time (s)")
	b.WriteString(rule + "\n")

	for _, row := range report.Rows {
		estimate := fmt.Sprintf("%d", int64(row.Accuracy.MeanEstimate))
		if !row.Defined {
			estimate = "undefined"
		}
		fmt.Fprintf(&b, "%-15s | %-8d | %-9.1f%% | %-12s | %-10.2f | %-10.4f\n",
			algorithmName(row.Strategy), row.Capacity, row.SamplePercent, estimate,
			row.Accuracy.MeanMAPE, row.MeanElapsed.Seconds())
	}

	_, err := io.WriteString(w, b.String())
	return err
}
