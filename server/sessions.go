// Package server exposes the feed engine over HTTP: REST endpoints for the
// feed operations plus an SSE stream for rows-changed updates.
package server

import (
	"sync"

	"github.com/Luismorlan/socialmux/feed"
	"github.com/Luismorlan/socialmux/store"
)

// Sessions owns one feed engine per viewer. Engines are created lazily on
// first use and live until Shutdown.
type Sessions struct {
	store   store.Store
	cfg     feed.EngineConfig
	metrics *feed.Metrics

	mu      sync.Mutex
	engines map[string]*feed.Engine
}

func NewSessions(s store.Store, cfg feed.EngineConfig, metrics *feed.Metrics) *Sessions {
	return &Sessions{
		store:   s,
		cfg:     cfg,
		metrics: metrics,
		engines: map[string]*feed.Engine{},
	}
}

// Engine returns the viewer's engine, creating it on first use.
func (s *Sessions) Engine(viewerId string) *feed.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.engines[viewerId]; ok {
		return e
	}
	e := feed.NewEngine(s.store, viewerId, s.cfg, s.metrics)
	s.engines[viewerId] = e
	return e
}

// Release closes and drops the viewer's engine, for page navigation away
// from the feed.
func (s *Sessions) Release(viewerId string) {
	s.mu.Lock()
	e, ok := s.engines[viewerId]
	delete(s.engines, viewerId)
	s.mu.Unlock()

	if ok {
		e.Close()
	}
}

// Shutdown closes every engine synchronously.
func (s *Sessions) Shutdown() {
	s.mu.Lock()
	engines := s.engines
	s.engines = map[string]*feed.Engine{}
	s.mu.Unlock()

	for _, e := range engines {
		e.Close()
	}
}
