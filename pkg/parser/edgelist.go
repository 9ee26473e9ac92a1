package parser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// ErrFileNotFound is returned when the edge-list file does not exist
var ErrFileNotFound = errors.New("edge list file not found")

// checkEvery is how many lines are scanned between context checks
const checkEvery = 4096

// Pair is one edge as it appeared in the input, orientation preserved
type Pair struct {
	U int64 `json:"u"`
	V int64 `json:"v"`
}

// MalformedLineError describes a line without two integer tokens
type MalformedLineError struct {
	Line int
	Text string
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("line %d: expected two integer vertex ids, got %q", e.Line, e.Text)
}

// LoadSummary reports what the loader kept and skipped
type LoadSummary struct {
	Lines     int                   `json:"lines"`
	Edges     int                   `json:"edges"`
	SelfLoops int                   `json:"self_loops"`
	Comments  int                   `json:"comments"`
	Malformed []*MalformedLineError `json:"-"`
}

// MalformedCount returns the number of skipped malformed lines
func (s *LoadSummary) MalformedCount() int {
	return len(s.Malformed)
}

// Reader parses whitespace-separated edge lists: "u v [ignored...]" per line.
// Blank lines and lines starting with '#' or '%' are skipped.
type Reader struct {
	logger zerolog.Logger
}

// NewReader creates an edge-list reader
func NewReader(logger zerolog.Logger) *Reader {
	return &Reader{logger: logger}
}

// LoadEdgeList reads a whole edge-list file into memory, self-loops filtered
func (r *Reader) LoadEdgeList(ctx context.Context, filename string) ([]Pair, *LoadSummary, error) {
	var pairs []Pair
	summary, err := r.StreamEdgeList(ctx, filename, func(p Pair) error {
		pairs = append(pairs, p)
		return nil
	})
	if err != nil {
		return nil, summary, err
	}

	r.logger.Info().
		Str("file", filename).
		Int("edges", summary.Edges).
		Int("self_loops", summary.SelfLoops).
		Int("malformed", summary.MalformedCount()).
		Msg("Edge list loaded")

	return pairs, summary, nil
}

// StreamEdgeList opens filename and passes each edge to fn without
// buffering the file
func (r *Reader) StreamEdgeList(ctx context.Context, filename string, fn func(Pair) error) (*LoadSummary, error) {
	file, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, filename)
		}
		return nil, fmt.Errorf("could not open edge list %s: %w", filename, err)
	}
	defer file.Close()

	summary, err := r.ScanEdges(ctx, file, fn)
	if err != nil {
		return summary, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return summary, nil
}

// ScanEdges streams edges from in to fn in input order. Malformed lines are
// recorded and skipped; an error from fn stops the scan and is returned.
func (r *Reader) ScanEdges(ctx context.Context, in io.Reader, fn func(Pair) error) (*LoadSummary, error) {
	summary := &LoadSummary{}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		summary.Lines++
		if summary.Lines%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line[0] == '#' || line[0] == '%' {
			summary.Comments++
			continue
		}

		p, ok := parsePair(line)
		if !ok {
			malformed := &MalformedLineError{Line: summary.Lines, Text: line}
			summary.Malformed = append(summary.Malformed, malformed)
			r.logger.Warn().Err(malformed).Msg("Skipping malformed edge line")
			continue
		}
		if p.U == p.V {
			summary.SelfLoops++
			continue
		}

		summary.Edges++
		if err := fn(p); err != nil {
			return summary, err
		}
	}

	return summary, scanner.Err()
}

func parsePair(line string) (Pair, bool) {
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return Pair{}, false
	}
	u, err1 := strconv.ParseInt(parts[0], 10, 64)
	v, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil {
		return Pair{}, false
	}
	return Pair{U: u, V: v}, true
}

// ParseEdges parses an in-memory edge list, as sent to the HTTP API
func ParseEdges(ctx context.Context, body string, logger zerolog.Logger) ([]Pair, *LoadSummary, error) {
	var pairs []Pair
	summary, err := NewReader(logger).ScanEdges(ctx, strings.NewReader(body), func(p Pair) error {
		pairs = append(pairs, p)
		return nil
	})
	return pairs, summary, err
}
