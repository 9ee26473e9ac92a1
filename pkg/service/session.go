package service

import (
	"context"
	"sync"
	"time"

	"github.com/gilchrisn/triangle-stream-service/pkg/cardinality"
	"github.com/gilchrisn/triangle-stream-service/pkg/triest"
)

// sessionState is only touched by the session's owner goroutine
type sessionState struct {
	est       *triest.Estimator
	vertices  *cardinality.VertexCounter
	batches   int64
	updatedAt time.Time
}

type request struct {
	fn    func(*sessionState)
	reply chan struct{}
}

// Session owns one estimator inside a dedicated goroutine. Producers hand it
// closures and wait for them to finish, so every update runs to completion
// before the next one starts.
type Session struct {
	ID        string
	Name      string
	Strategy  triest.Strategy
	Capacity  int
	CreatedAt time.Time

	requests  chan request
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(id, name string, est *triest.Estimator) *Session {
	s := &Session{
		ID:        id,
		Name:      name,
		Strategy:  est.Strategy(),
		Capacity:  est.Capacity(),
		CreatedAt: time.Now(),
		requests:  make(chan request),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	state := &sessionState{
		est:       est,
		vertices:  cardinality.NewVertexCounter(),
		updatedAt: s.CreatedAt,
	}
	go s.run(state)
	return s
}

func (s *Session) run(state *sessionState) {
	defer close(s.done)
	for {
		select {
		case req := <-s.requests:
			req.fn(state)
			close(req.reply)
		case <-s.quit:
			return
		}
	}
}

// do runs fn on the owner goroutine. Once accepted, fn always runs to completion.
func (s *Session) do(ctx context.Context, fn func(*sessionState)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := request{fn: fn, reply: make(chan struct{})}
	select {
	case s.requests <- req:
	case <-s.quit:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-req.reply
	return nil
}

// close stops the owner goroutine and waits for it to exit
func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.quit) })
	<-s.done
}
