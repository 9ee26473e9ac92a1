package cardinality

import (
	"encoding/binary"

	"github.com/axiomhq/hyperloglog"
)

// VertexCounter estimates how many distinct vertices a stream has touched
// using a fixed-size HyperLogLog sketch (~12KB at precision 14).
// It is not safe for concurrent use.
type VertexCounter struct {
	sketch *hyperloglog.Sketch
	buf    [8]byte
}

// NewVertexCounter creates an empty counter
func NewVertexCounter() *VertexCounter {
	return &VertexCounter{sketch: hyperloglog.New()}
}

// Observe records both endpoints of an edge
func (c *VertexCounter) Observe(u, v int64) {
	c.insert(u)
	if v != u {
		c.insert(v)
	}
}

func (c *VertexCounter) insert(v int64) {
	binary.LittleEndian.PutUint64(c.buf[:], uint64(v))
	c.sketch.Insert(c.buf[:])
}

// Estimate returns the approximate number of distinct vertices seen
func (c *VertexCounter) Estimate() uint64 {
	return c.sketch.Estimate()
}

// Reset clears the sketch
func (c *VertexCounter) Reset() {
	c.sketch = hyperloglog.New()
}
