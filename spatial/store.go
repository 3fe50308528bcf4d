package spatial

import "sync/atomic"

// Store publishes built indexes to concurrent readers. A build works on a
// private Index and only becomes visible through Publish, so readers never
// observe a partially built tree and an abandoned build has no effect.
type Store struct {
	current atomic.Pointer[Index]
}

// Publish atomically replaces the index visible to readers.
func (s *Store) Publish(idx *Index) {
	s.current.Store(idx)
}

// Current returns the last published index, or false when nothing has been
// published yet.
func (s *Store) Current() (*Index, bool) {
	idx := s.current.Load()
	return idx, idx != nil
}
