// Package memory provides an in-memory Persistence backend for tests and
// ephemeral sessions. State lives only as long as the process.
package memory

import (
	"sync"

	"github.com/qmx/studio-engine/cash"
	"github.com/qmx/studio-engine/student"
	"github.com/qmx/studio-engine/studio"
)

type Store struct {
	mu   sync.Mutex
	snap studio.Snapshot
	held bool
}

func New() *Store { return &Store{} }

func (s *Store) Load() (studio.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.held {
		return studio.Snapshot{}, false, nil
	}
	return cloneSnapshot(s.snap), true, nil
}

func (s *Store) Save(snap studio.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = cloneSnapshot(snap)
	s.held = true
	return nil
}

// cloneSnapshot keeps the stored state independent of the caller's rows.
func cloneSnapshot(snap studio.Snapshot) studio.Snapshot {
	out := snap
	out.Students = make([]student.Student, len(snap.Students))
	for i, st := range snap.Students {
		out.Students[i] = st.Clone()
	}
	out.Cash = make([]cash.Cash, len(snap.Cash))
	for i, c := range snap.Cash {
		out.Cash[i] = c.Clone()
	}
	return out
}
