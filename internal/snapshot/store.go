package snapshot

import (
	"sync"
	"sync/atomic"
)

// Store publishes the current snapshot. Readers take whichever snapshot is
// current at request start and keep it for the whole request; the writer
// installs a fully built replacement with one atomic swap, so no query ever
// observes a half-updated dataset.
type Store struct {
	current atomic.Pointer[Snapshot]

	// writeMu enforces the single-writer discipline: at most one ingestion
	// pass is in flight at a time.
	writeMu sync.Mutex
}

// NewStore returns a store holding the empty snapshot.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(Empty())
	return s
}

// Current returns the snapshot to pin for one request.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Replace runs build under the writer lock and installs its result. build
// receives the previous snapshot so ingestion can carry history forward.
func (s *Store) Replace(build func(prev *Snapshot) (*Snapshot, error)) (*Snapshot, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next, err := build(s.current.Load())
	if err != nil {
		return nil, err
	}
	next.Version = s.current.Load().Version + 1
	s.current.Store(next)
	return next, nil
}
