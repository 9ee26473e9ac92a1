package validation

import (
	"math"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/stat"

	"github.com/gilchrisn/triangle-stream-service/pkg/parser"
)

// GroundTruth is the exact triangle structure of a full edge list
type GroundTruth struct {
	Vertices  int             `json:"vertices" yaml:"vertices"`
	Edges     int             `json:"edges" yaml:"edges"`
	Triangles int64           `json:"triangles" yaml:"triangles"`
	PerVertex map[int64]int64 `json:"-" yaml:"-"`
}

// BuildGraph loads pairs into a simple undirected graph; self-loops are
// dropped and repeated edges collapse into one.
func BuildGraph(pairs []parser.Pair) *simple.UndirectedGraph {
	g := simple.NewUndirectedGraph()
	for _, p := range pairs {
		if p.U == p.V {
			continue
		}
		g.SetEdge(simple.Edge{F: simple.Node(p.U), T: simple.Node(p.V)})
	}
	return g
}

// ExactTriangles counts every triangle of the graph exactly once,
// from its smallest vertex, along with per-vertex participation.
func ExactTriangles(pairs []parser.Pair) *GroundTruth {
	g := BuildGraph(pairs)

	truth := &GroundTruth{
		Vertices:  g.Nodes().Len(),
		PerVertex: make(map[int64]int64),
	}

	edges := g.Edges()
	for edges.Next() {
		truth.Edges++
		u, v := edges.Edge().From().ID(), edges.Edge().To().ID()
		if u > v {
			u, v = v, u
		}

		// close the wedge u-v-w only for w > v
		neighbors := g.From(u)
		for neighbors.Next() {
			w := neighbors.Node().ID()
			if w <= v || !g.HasEdgeBetween(v, w) {
				continue
			}
			truth.Triangles++
			truth.PerVertex[u]++
			truth.PerVertex[v]++
			truth.PerVertex[w]++
		}
	}

	return truth
}

// MAPE returns the absolute percentage error of an estimate; 0 when the truth is 0
func MAPE(estimate, truth float64) float64 {
	if truth <= 0 {
		return 0
	}
	return math.Abs(estimate-truth) / truth * 100
}

// Accuracy aggregates repeated estimates of the same quantity
type Accuracy struct {
	Runs         int     `json:"runs" yaml:"runs"`
	MeanEstimate float64 `json:"mean_estimate" yaml:"mean_estimate"`
	StdDev       float64 `json:"std_dev" yaml:"std_dev"`
	MeanMAPE     float64 `json:"mean_mape" yaml:"mean_mape"`
	BiasMAPE     float64 `json:"bias_mape" yaml:"bias_mape"`
}

// Summarize computes mean, spread and error of estimates against truth.
// BiasMAPE is the error of the mean, which shrinks for an unbiased estimator.
func Summarize(estimates []float64, truth float64) Accuracy {
	acc := Accuracy{Runs: len(estimates)}
	if len(estimates) == 0 {
		return acc
	}

	errs := make([]float64, len(estimates))
	for i, x := range estimates {
		errs[i] = MAPE(x, truth)
	}

	acc.MeanEstimate = stat.Mean(estimates, nil)
	if len(estimates) > 1 {
		acc.StdDev = stat.StdDev(estimates, nil)
	}
	acc.MeanMAPE = stat.Mean(errs, nil)
	acc.BiasMAPE = MAPE(acc.MeanEstimate, truth)
	return acc
}
