package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/gilchrisn/triangle-stream-service/pkg/parser"
	"github.com/gilchrisn/triangle-stream-service/pkg/service"
	"github.com/gilchrisn/triangle-stream-service/pkg/triest"
)

// maxBodyBytes bounds request bodies, text edge lists included
const maxBodyBytes = 64 << 20

// Handlers contains HTTP request handlers
type Handlers struct {
	sessions  *service.SessionService
	cfg       *triest.Config
	startedAt time.Time
}

// NewHandlers creates new API handlers
func NewHandlers(sessions *service.SessionService, cfg *triest.Config) *Handlers {
	return &Handlers{
		sessions:  sessions,
		cfg:       cfg,
		startedAt: time.Now(),
	}
}

// edgeBatchRequest is the JSON body of an ingest call. Pairs are decoded as
// open slices so short or long pairs can be rejected instead of zero-filled.
type edgeBatchRequest struct {
	Edges [][]int64 `json:"edges"`
}

// skippedLines reports what a text/plain edge list dropped before ingestion
type skippedLines struct {
	Malformed int `json:"malformed"`
	SelfLoops int `json:"self_loops"`
	Comments  int `json:"comments"`
}

// ingestResponse is a batch result plus the text loader's skip counts
type ingestResponse struct {
	*service.BatchResult
	Skipped *skippedLines `json:"skipped,omitempty"`
}

// CreateSession starts a streaming session. Missing strategy and capacity
// fall back to the configured defaults.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var params service.SessionParams
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&params); err != nil && !errors.Is(err, io.EOF) {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if params.Strategy == "" {
		params.Strategy = h.cfg.StrategyName()
	}
	if params.Capacity == 0 {
		params.Capacity = h.cfg.Capacity()
	}
	params.Strategy = strings.ToLower(strings.TrimSpace(params.Strategy))

	snap, err := h.sessions.Create(params)
	if err != nil {
		h.writeServiceError(w, "Failed to create session", err)
		return
	}

	log.Info().
		Str("session_id", snap.ID).
		Str("strategy", string(snap.Strategy)).
		Int("capacity", snap.Capacity).
		Msg("Session created")
	writeSuccessResponse(w, http.StatusCreated, "Session created successfully", snap)
}

// ListSessions lists all open sessions
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.sessions.List(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to list sessions", err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, "Sessions retrieved successfully", snaps)
}

// GetSession returns a snapshot of one session
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	snap, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		h.writeServiceError(w, "Failed to retrieve session", err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, "Session retrieved successfully", snap)
}

// DeleteSession closes a session
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	if err := h.sessions.Close(sessionID); err != nil {
		h.writeServiceError(w, "Failed to close session", err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, "Session closed successfully", map[string]string{"session_id": sessionID})
}

// IngestEdges feeds a batch of edges to a session, in request order
func (h *Handlers) IngestEdges(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	pairs, summary, err := readEdgeBatch(r.Context(), http.MaxBytesReader(w, r.Body, maxBodyBytes), r.Header.Get("Content-Type"))
	if err != nil {
		log.Error().Str("session_id", sessionID).Err(err).Msg("Invalid edge batch")
		writeErrorResponse(w, http.StatusBadRequest, "Invalid edge batch", err)
		return
	}

	result, err := h.sessions.Ingest(r.Context(), sessionID, pairs)
	if err != nil {
		h.writeServiceError(w, "Failed to ingest edges", err)
		return
	}

	response := ingestResponse{BatchResult: result}
	if summary != nil {
		response.Skipped = &skippedLines{
			Malformed: summary.MalformedCount(),
			SelfLoops: summary.SelfLoops,
			Comments:  summary.Comments,
		}
		if summary.MalformedCount() > 0 {
			log.Warn().
				Str("session_id", sessionID).
				Int("malformed", summary.MalformedCount()).
				Msg("Skipped malformed edge lines")
		}
	}
	writeSuccessResponse(w, http.StatusOK, "Edges ingested successfully", response)
}

// GetVertex returns the local estimate and sampled neighbors of a vertex
func (h *Handlers) GetVertex(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["sessionId"]

	vertex, err := strconv.ParseInt(vars["vertex"], 10, 64)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid vertex id", err)
		return
	}

	info, err := h.sessions.Vertex(r.Context(), sessionID, vertex)
	if err != nil {
		h.writeServiceError(w, "Failed to retrieve vertex", err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, "Vertex retrieved successfully", info)
}

// HealthCheck reports liveness and the number of open sessions
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeSuccessResponse(w, http.StatusOK, "Service is healthy", map[string]interface{}{
		"status":   "ok",
		"sessions": h.sessions.Count(),
		"uptime":   time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// readEdgeBatch decodes a JSON pair array or a text/plain edge list. The
// summary is only set for text bodies. A JSON pair without exactly two ids
// rejects the whole batch.
func readEdgeBatch(ctx context.Context, body io.Reader, contentType string) ([]parser.Pair, *parser.LoadSummary, error) {
	if strings.HasPrefix(contentType, "text/plain") {
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, nil, err
		}
		return parser.ParseEdges(ctx, string(raw), log.Logger)
	}

	var req edgeBatchRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return nil, nil, err
	}
	pairs := make([]parser.Pair, len(req.Edges))
	for i, e := range req.Edges {
		if len(e) != 2 {
			return nil, nil, fmt.Errorf("edge %d: expected [u, v], got %d values", i, len(e))
		}
		pairs[i] = parser.Pair{U: e[0], V: e[1]}
	}
	return pairs, nil, nil
}

// writeServiceError maps session service errors onto HTTP status codes
func (h *Handlers) writeServiceError(w http.ResponseWriter, message string, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		writeValidationErrorResponse(w, message, fields)
	case errors.Is(err, service.ErrInvalidParams):
		writeErrorResponse(w, http.StatusBadRequest, message, err)
	case errors.Is(err, service.ErrSessionNotFound):
		writeErrorResponse(w, http.StatusNotFound, message, err)
	case errors.Is(err, service.ErrSessionClosed):
		writeErrorResponse(w, http.StatusGone, message, err)
	case errors.Is(err, service.ErrTooManySessions):
		writeErrorResponse(w, http.StatusTooManyRequests, message, err)
	case errors.Is(err, service.ErrBatchTooLarge):
		writeErrorResponse(w, http.StatusRequestEntityTooLarge, message, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeErrorResponse(w, http.StatusServiceUnavailable, message, err)
	default:
		log.Error().Err(err).Msg(message)
		writeErrorResponse(w, http.StatusInternalServerError, message, err)
	}
}
