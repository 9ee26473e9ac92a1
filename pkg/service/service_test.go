package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/gilchrisn/triangle-stream-service/pkg/metrics"
	"github.com/gilchrisn/triangle-stream-service/pkg/parser"
)

func newTestService(t *testing.T, opts Options) *SessionService {
	t.Helper()
	svc := NewSessionService(opts, metrics.New(prometheus.NewRegistry()), zerolog.Nop())
	t.Cleanup(svc.Shutdown)
	return svc
}

func seed(v int64) *int64 { return &v }

func k4Pairs() []parser.Pair {
	return []parser.Pair{{U: 1, V: 2}, {U: 1, V: 3}, {U: 1, V: 4}, {U: 2, V: 3}, {U: 2, V: 4}, {U: 3, V: 4}}
}

func TestSessionParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  SessionParams
		wantErr bool
	}{
		{name: "valid", params: SessionParams{Strategy: "base", Capacity: 10}},
		{name: "missing strategy", params: SessionParams{Capacity: 10}, wantErr: true},
		{name: "unknown strategy", params: SessionParams{Strategy: "magic", Capacity: 10}, wantErr: true},
		{name: "zero capacity", params: SessionParams{Strategy: "improved"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				var verrs validator.ValidationErrors
				assert.True(t, errors.As(err, &verrs), "expected validation errors, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	svc := NewSessionService(Options{MaxSessions: 4}, nil, zerolog.Nop())
	ctx := context.Background()

	created, err := svc.Create(SessionParams{Name: "k4", Strategy: "base", Capacity: 6, Seed: seed(1)})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 1, svc.Count())

	batch, err := svc.Ingest(ctx, created.ID, k4Pairs())
	require.NoError(t, err)
	assert.Equal(t, 6, batch.Received)
	assert.Equal(t, int64(6), batch.Decisions.Admitted)
	assert.Equal(t, 4.0, batch.GlobalEstimate)

	snap, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), snap.Clock)
	assert.Equal(t, 6, snap.ReservoirSize)
	assert.Equal(t, uint64(4), snap.ApproxVertices)
	assert.Equal(t, int64(1), snap.Batches)
	assert.True(t, snap.EstimateDefined)
	require.Len(t, snap.TopLocal, 4)
	assert.Equal(t, 3.0, snap.TopLocal[0].Estimate)

	vertex, err := svc.Vertex(ctx, created.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 3.0, vertex.LocalEstimate)
	assert.Equal(t, []int64{1, 3, 4}, vertex.Neighbors)

	require.NoError(t, svc.Close(created.ID))
	assert.Equal(t, 0, svc.Count())

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.Close(created.ID), ErrSessionNotFound)
}

func TestDuplicateBatchIsIdempotent(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()

	created, err := svc.Create(SessionParams{Strategy: "improved", Capacity: 100, Seed: seed(3)})
	require.NoError(t, err)

	first, err := svc.Ingest(ctx, created.ID, k4Pairs())
	require.NoError(t, err)
	second, err := svc.Ingest(ctx, created.ID, append(k4Pairs(), parser.Pair{U: 9, V: 9}))
	require.NoError(t, err)

	assert.Equal(t, first.GlobalEstimate, second.GlobalEstimate)
	assert.Equal(t, first.Clock, second.Clock)
	assert.Equal(t, int64(6), second.Decisions.Duplicates)
	assert.Equal(t, int64(1), second.Decisions.SelfLoops)
}

func TestCreateLimitsAndValidation(t *testing.T) {
	svc := newTestService(t, Options{MaxSessions: 1})

	_, err := svc.Create(SessionParams{Strategy: "improved", Capacity: 0})
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = svc.Create(SessionParams{Strategy: "improved", Capacity: 10})
	require.NoError(t, err)

	_, err = svc.Create(SessionParams{Strategy: "base", Capacity: 10})
	assert.ErrorIs(t, err, ErrTooManySessions)
}

func TestIngestLimitsAndErrors(t *testing.T) {
	svc := newTestService(t, Options{MaxBatchEdges: 3})
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "missing", nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	created, err := svc.Create(SessionParams{Strategy: "base", Capacity: 10})
	require.NoError(t, err)

	_, err = svc.Ingest(ctx, created.ID, k4Pairs())
	assert.ErrorIs(t, err, ErrBatchTooLarge)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = svc.Ingest(cancelled, created.ID, k4Pairs()[:2])
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentProducersShareOneWriter(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	svc := NewSessionService(Options{}, nil, zerolog.Nop())
	defer svc.Shutdown()
	ctx := context.Background()

	created, err := svc.Create(SessionParams{Strategy: "base", Capacity: 10000, Seed: seed(5)})
	require.NoError(t, err)

	// each producer streams its own K5 clique: 10 triangles apiece
	const producers = 8
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(offset int64) {
			defer wg.Done()
			for i := int64(0); i < 5; i++ {
				for j := i + 1; j < 5; j++ {
					_, err := svc.Ingest(ctx, created.ID, []parser.Pair{{U: offset + i, V: offset + j}})
					assert.NoError(t, err)
				}
			}
		}(int64(p * 100))
	}
	wg.Wait()

	snap, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(producers*10), snap.Clock)
	assert.Equal(t, float64(producers*10), snap.GlobalEstimate)
	assert.Equal(t, int64(producers*10), snap.Batches)
}

func TestListAndShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	svc := NewSessionService(Options{}, nil, zerolog.Nop())
	for i := 0; i < 3; i++ {
		_, err := svc.Create(SessionParams{Strategy: "improved", Capacity: 5})
		require.NoError(t, err)
	}

	snaps, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, snaps, 3)

	svc.Shutdown()
	assert.Equal(t, 0, svc.Count())
}

func TestBatchAfterCloseLeavesNoSessionSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := NewSessionService(Options{}, metrics.New(reg), zerolog.Nop())
	t.Cleanup(svc.Shutdown)
	ctx := context.Background()

	created, err := svc.Create(SessionParams{Strategy: "base", Capacity: 10})
	require.NoError(t, err)
	session, err := svc.lookup(created.ID)
	require.NoError(t, err)

	result, err := svc.Ingest(ctx, created.ID, k4Pairs())
	require.NoError(t, err)
	require.NoError(t, svc.Close(created.ID))

	// a batch that finished just before Close publishes afterwards
	svc.publishBatch(session, result, len(k4Pairs()))

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		switch f.GetName() {
		case "triest_global_estimate", "triest_reservoir_edges", "triest_stream_clock":
			assert.Empty(t, f.GetMetric(), "series left for closed session in %s", f.GetName())
		}
	}
}
