package validation

import (
	"math"
	"testing"

	"github.com/gilchrisn/triangle-stream-service/pkg/parser"
)

func completePairs(n int) []parser.Pair {
	var pairs []parser.Pair
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, parser.Pair{U: int64(i), V: int64(j)})
		}
	}
	return pairs
}

func TestExactTriangles(t *testing.T) {
	tests := []struct {
		name      string
		pairs     []parser.Pair
		vertices  int
		edges     int
		triangles int64
	}{
		{name: "empty", pairs: nil},
		{name: "single triangle", pairs: []parser.Pair{{U: 1, V: 2}, {U: 2, V: 3}, {U: 3, V: 1}}, vertices: 3, edges: 3, triangles: 1},
		{name: "K4", pairs: completePairs(4), vertices: 4, edges: 6, triangles: 4},
		{name: "K6", pairs: completePairs(6), vertices: 6, edges: 15, triangles: 20},
		{name: "path", pairs: []parser.Pair{{U: 0, V: 1}, {U: 1, V: 2}, {U: 2, V: 3}}, vertices: 4, edges: 3, triangles: 0},
		{
			name:      "duplicates and self loops",
			pairs:     []parser.Pair{{U: 1, V: 2}, {U: 2, V: 1}, {U: 2, V: 3}, {U: 3, V: 3}, {U: 1, V: 3}, {U: 3, V: 1}},
			vertices:  3,
			edges:     3,
			triangles: 1,
		},
		{
			name:      "two triangles sharing an edge",
			pairs:     []parser.Pair{{U: 1, V: 2}, {U: 2, V: 3}, {U: 1, V: 3}, {U: 2, V: 4}, {U: 3, V: 4}},
			vertices:  4,
			edges:     5,
			triangles: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			truth := ExactTriangles(tt.pairs)
			if truth.Vertices != tt.vertices || truth.Edges != tt.edges || truth.Triangles != tt.triangles {
				t.Errorf("got %d vertices, %d edges, %d triangles; want %d, %d, %d",
					truth.Vertices, truth.Edges, truth.Triangles, tt.vertices, tt.edges, tt.triangles)
			}

			var sum int64
			for _, c := range truth.PerVertex {
				sum += c
			}
			if sum != 3*truth.Triangles {
				t.Errorf("per-vertex counts sum to %d, want %d", sum, 3*truth.Triangles)
			}
		})
	}
}

func TestExactTrianglesPerVertex(t *testing.T) {
	truth := ExactTriangles([]parser.Pair{{U: 1, V: 2}, {U: 2, V: 3}, {U: 1, V: 3}, {U: 2, V: 4}, {U: 3, V: 4}})
	want := map[int64]int64{1: 1, 2: 2, 3: 2, 4: 1}
	for v, c := range want {
		if truth.PerVertex[v] != c {
			t.Errorf("vertex %d: %d triangles, want %d", v, truth.PerVertex[v], c)
		}
	}
}

func TestMAPE(t *testing.T) {
	if got := MAPE(90, 100); math.Abs(got-10) > 1e-12 {
		t.Errorf("MAPE(90, 100) = %f", got)
	}
	if got := MAPE(150, 100); math.Abs(got-50) > 1e-12 {
		t.Errorf("MAPE(150, 100) = %f", got)
	}
	if got := MAPE(5, 0); got != 0 {
		t.Errorf("MAPE with zero truth = %f, want 0", got)
	}
}

func TestSummarize(t *testing.T) {
	acc := Summarize([]float64{90, 110, 100, 100}, 100)
	if acc.Runs != 4 || acc.MeanEstimate != 100 {
		t.Errorf("unexpected summary %+v", acc)
	}
	if acc.BiasMAPE != 0 {
		t.Errorf("BiasMAPE = %f, want 0", acc.BiasMAPE)
	}
	if math.Abs(acc.MeanMAPE-5) > 1e-12 {
		t.Errorf("MeanMAPE = %f, want 5", acc.MeanMAPE)
	}
	if acc.StdDev <= 0 {
		t.Errorf("StdDev = %f", acc.StdDev)
	}

	single := Summarize([]float64{80}, 100)
	if single.StdDev != 0 || math.Abs(single.MeanMAPE-20) > 1e-12 {
		t.Errorf("single-run summary %+v", single)
	}
	if empty := Summarize(nil, 100); empty.Runs != 0 {
		t.Errorf("empty summary %+v", empty)
	}
}
