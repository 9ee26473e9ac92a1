package triest

// DecisionKind classifies what the sampler did with an offered edge
type DecisionKind int

const (
	IgnoredSelfLoop DecisionKind = iota
	IgnoredDuplicate
	Admitted
	AdmittedWithEviction
	Rejected
)

var decisionNames = [...]string{
	IgnoredSelfLoop:      "ignored_self_loop",
	IgnoredDuplicate:     "ignored_duplicate",
	Admitted:             "admitted",
	AdmittedWithEviction: "admitted_with_eviction",
	Rejected:             "rejected",
}

// DecisionKinds lists every kind in declaration order
var DecisionKinds = []DecisionKind{IgnoredSelfLoop, IgnoredDuplicate, Admitted, AdmittedWithEviction, Rejected}

func (k DecisionKind) String() string {
	if k < 0 || int(k) >= len(decisionNames) {
		return "unknown"
	}
	return decisionNames[k]
}

// Counted reports whether the edge advanced the stream clock
func (k DecisionKind) Counted() bool {
	return k != IgnoredSelfLoop && k != IgnoredDuplicate
}

// Decision is the outcome of offering one edge to the sampler.
// Evicted is only meaningful for AdmittedWithEviction.
type Decision struct {
	Kind    DecisionKind
	Edge    Edge
	Evicted Edge
}

// Stats counts decisions by kind over the lifetime of an estimator
type Stats struct {
	SelfLoops  int64 `json:"self_loops" yaml:"self_loops"`
	Duplicates int64 `json:"duplicates" yaml:"duplicates"`
	Admitted   int64 `json:"admitted" yaml:"admitted"`
	Evictions  int64 `json:"evictions" yaml:"evictions"`
	Rejected   int64 `json:"rejected" yaml:"rejected"`
}

func (s *Stats) record(k DecisionKind) {
	switch k {
	case IgnoredSelfLoop:
		s.SelfLoops++
	case IgnoredDuplicate:
		s.Duplicates++
	case Admitted:
		s.Admitted++
	case AdmittedWithEviction:
		s.Admitted++
		s.Evictions++
	case Rejected:
		s.Rejected++
	}
}

// Offered returns the total number of edges seen, ignored ones included
func (s Stats) Offered() int64 {
	return s.SelfLoops + s.Duplicates + s.Admitted + s.Rejected
}

// Sub returns the decisions recorded since an earlier snapshot
func (s Stats) Sub(earlier Stats) Stats {
	return Stats{
		SelfLoops:  s.SelfLoops - earlier.SelfLoops,
		Duplicates: s.Duplicates - earlier.Duplicates,
		Admitted:   s.Admitted - earlier.Admitted,
		Evictions:  s.Evictions - earlier.Evictions,
		Rejected:   s.Rejected - earlier.Rejected,
	}
}
