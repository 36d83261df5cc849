package api

import (
	"context"
	"sync"
	"time"

	"github.com/piger/ferm-probe/internal/probe"
)

// Store keeps the snapshots of the latest poll cycle for the HTTP handlers.
type Store struct {
	mu      sync.RWMutex
	updated time.Time
	snaps   []probe.Snapshot
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Name() string { return "api" }

func (s *Store) Write(_ context.Context, t time.Time, snaps []probe.Snapshot) error {
	cp := make([]probe.Snapshot, len(snaps))
	copy(cp, snaps)

	s.mu.Lock()
	s.updated = t
	s.snaps = cp
	s.mu.Unlock()

	return nil
}

func (s *Store) Close() error { return nil }

// Latest returns the snapshots of the last poll cycle and its time.
func (s *Store) Latest() ([]probe.Snapshot, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snaps, s.updated
}

// Get returns the snapshot of the probe at position.
func (s *Store) Get(position int) (probe.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, snap := range s.snaps {
		if snap.Position == position {
			return snap, true
		}
	}
	return probe.Snapshot{}, false
}
