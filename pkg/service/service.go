package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gilchrisn/triangle-stream-service/pkg/metrics"
	"github.com/gilchrisn/triangle-stream-service/pkg/parser"
	"github.com/gilchrisn/triangle-stream-service/pkg/triest"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed")
	ErrTooManySessions = errors.New("session limit reached")
	ErrBatchTooLarge   = errors.New("edge batch too large")
	ErrInvalidParams   = errors.New("invalid session parameters")
)

// topLocalLimit bounds the local estimates returned with a snapshot
const topLocalLimit = 10

var validate = validator.New()

// SessionParams describes a new streaming session
type SessionParams struct {
	Name     string `json:"name" validate:"max=128"`
	Strategy string `json:"strategy" validate:"required,oneof=base improved"`
	Capacity int    `json:"capacity" validate:"min=1,max=100000000"`
	Seed     *int64 `json:"seed,omitempty"`
}

// Validate checks the parameters with their struct tags
func (p *SessionParams) Validate() error {
	return validate.Struct(p)
}

// Snapshot is a consistent view of a session's estimator
type Snapshot struct {
	ID              string                  `json:"id"`
	Name            string                  `json:"name,omitempty"`
	Strategy        triest.Strategy         `json:"strategy"`
	Capacity        int                     `json:"capacity"`
	Clock           int64                   `json:"clock"`
	ReservoirSize   int                     `json:"reservoir_size"`
	GlobalEstimate  float64                 `json:"global_estimate"`
	EstimateDefined bool                    `json:"estimate_defined"`
	ApproxVertices  uint64                  `json:"approx_vertices"`
	Batches         int64                   `json:"batches"`
	Stats           triest.Stats            `json:"stats"`
	TopLocal        []triest.VertexEstimate `json:"top_local"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// BatchResult summarizes one ingested batch
type BatchResult struct {
	SessionID      string       `json:"session_id"`
	Received       int          `json:"received"`
	Decisions      triest.Stats `json:"decisions"`
	Clock          int64        `json:"clock"`
	ReservoirSize  int          `json:"reservoir_size"`
	GlobalEstimate float64      `json:"global_estimate"`
}

// VertexInfo is the sampled view of a single vertex
type VertexInfo struct {
	SessionID     string  `json:"session_id"`
	Vertex        int64   `json:"vertex"`
	LocalEstimate float64 `json:"local_estimate"`
	Neighbors     []int64 `json:"sampled_neighbors"`
}

// Options bounds the resources a SessionService may use
type Options struct {
	MaxSessions   int
	MaxBatchEdges int
}

// SessionService keeps streaming sessions, each with a single-writer estimator
type SessionService struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
	opts     Options
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewSessionService creates a session service; m may be nil
func NewSessionService(opts Options, m *metrics.Metrics, logger zerolog.Logger) *SessionService {
	return &SessionService{
		sessions: make(map[string]*Session),
		opts:     opts,
		metrics:  m,
		logger:   logger.With().Str("component", "sessions").Logger(),
	}
}

// Create starts a new session with its own estimator goroutine
func (s *SessionService) Create(params SessionParams) (*Snapshot, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	strategy, err := triest.ParseStrategy(params.Strategy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	seed := time.Now().UnixNano()
	if params.Seed != nil {
		seed = *params.Seed
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.opts.MaxSessions > 0 && len(s.sessions) >= s.opts.MaxSessions {
		return nil, ErrTooManySessions
	}

	id := uuid.New().String()
	est, err := triest.New(strategy, params.Capacity, triest.WithSeed(seed),
		triest.WithLogger(s.logger.With().Str("session", id).Logger()))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	session := newSession(id, params.Name, est)
	s.sessions[id] = session
	if s.metrics != nil {
		s.metrics.SessionOpened()
		s.metrics.SetSessionState(id, strategy, 0, 0, 0)
	}

	s.logger.Info().
		Str("session", id).
		Str("strategy", string(strategy)).
		Int("capacity", params.Capacity).
		Int64("seed", seed).
		Msg("Session created")

	return &Snapshot{
		ID:              id,
		Name:            params.Name,
		Strategy:        strategy,
		Capacity:        params.Capacity,
		EstimateDefined: true,
		TopLocal:        []triest.VertexEstimate{},
		CreatedAt:       session.CreatedAt,
		UpdatedAt:       session.CreatedAt,
	}, nil
}

func (s *SessionService) lookup(id string) (*Session, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session, nil
}

// Ingest feeds a batch of edges, in order, to the session's estimator
func (s *SessionService) Ingest(ctx context.Context, id string, pairs []parser.Pair) (*BatchResult, error) {
	if s.opts.MaxBatchEdges > 0 && len(pairs) > s.opts.MaxBatchEdges {
		return nil, fmt.Errorf("%w: %d edges, limit %d", ErrBatchTooLarge, len(pairs), s.opts.MaxBatchEdges)
	}
	session, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{SessionID: id, Received: len(pairs)}
	err = session.do(ctx, func(st *sessionState) {
		before := st.est.Stats()
		for _, p := range pairs {
			st.est.ProcessEdge(p.U, p.V)
			st.vertices.Observe(p.U, p.V)
		}
		st.batches++
		st.updatedAt = time.Now()

		result.Decisions = st.est.Stats().Sub(before)
		result.Clock = st.est.Clock()
		result.ReservoirSize = st.est.ReservoirSize()
		result.GlobalEstimate = st.est.GlobalEstimate()
	})
	if err != nil {
		return nil, err
	}

	s.publishBatch(session, result, len(pairs))

	s.logger.Debug().
		Str("session", id).
		Int("edges", len(pairs)).
		Int64("clock", result.Clock).
		Float64("estimate", result.GlobalEstimate).
		Msg("Batch ingested")

	return result, nil
}

// publishBatch records a finished batch. The per-session gauges are only set
// while the session is still registered, so a concurrent Close cannot leave
// series behind for a dead session.
func (s *SessionService) publishBatch(session *Session, result *BatchResult, edges int) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveBatch(session.Strategy, result.Decisions, edges)

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.sessions[session.ID] != session {
		return
	}
	s.metrics.SetSessionState(session.ID, session.Strategy, result.GlobalEstimate, result.ReservoirSize, result.Clock)
}

// Get returns a snapshot of one session
func (s *SessionService) Get(ctx context.Context, id string) (*Snapshot, error) {
	session, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		ID:        session.ID,
		Name:      session.Name,
		Strategy:  session.Strategy,
		Capacity:  session.Capacity,
		CreatedAt: session.CreatedAt,
	}
	err = session.do(ctx, func(st *sessionState) {
		snap.Clock = st.est.Clock()
		snap.ReservoirSize = st.est.ReservoirSize()
		snap.GlobalEstimate = st.est.GlobalEstimate()
		snap.EstimateDefined = st.est.EstimateDefined()
		snap.ApproxVertices = st.vertices.Estimate()
		snap.Batches = st.batches
		snap.Stats = st.est.Stats()
		snap.TopLocal = st.est.TopLocal(topLocalLimit)
		snap.UpdatedAt = st.updatedAt
	})
	if err != nil {
		return nil, err
	}
	if snap.TopLocal == nil {
		snap.TopLocal = []triest.VertexEstimate{}
	}
	return snap, nil
}

// List returns snapshots of all sessions ordered by creation time
func (s *SessionService) List(ctx context.Context) ([]*Snapshot, error) {
	s.mutex.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mutex.RUnlock()

	snaps := make([]*Snapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := s.Get(ctx, id)
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionClosed) {
			// closed concurrently
			continue
		}
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}

	sort.Slice(snaps, func(i, j int) bool {
		if !snaps[i].CreatedAt.Equal(snaps[j].CreatedAt) {
			return snaps[i].CreatedAt.Before(snaps[j].CreatedAt)
		}
		return snaps[i].ID < snaps[j].ID
	})
	return snaps, nil
}

// Vertex returns the local estimate and sampled neighbors of v
func (s *SessionService) Vertex(ctx context.Context, id string, v int64) (*VertexInfo, error) {
	session, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	info := &VertexInfo{SessionID: id, Vertex: v}
	err = session.do(ctx, func(st *sessionState) {
		info.LocalEstimate = st.est.LocalEstimate(v)
		info.Neighbors = st.est.Neighbors(v)
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// Close stops a session and discards its estimator
func (s *SessionService) Close(id string) error {
	s.mutex.Lock()
	session, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mutex.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	session.close()
	if s.metrics != nil {
		s.metrics.SessionClosed(id, session.Strategy)
	}
	s.logger.Info().Str("session", id).Msg("Session closed")
	return nil
}

// Count returns the number of open sessions
func (s *SessionService) Count() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.sessions)
}

// Shutdown closes every session
func (s *SessionService) Shutdown() {
	s.mutex.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mutex.RUnlock()

	for _, id := range ids {
		_ = s.Close(id)
	}
	s.logger.Info().Int("sessions", len(ids)).Msg("Session service shut down")
}
