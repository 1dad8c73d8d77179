package mrflow

import "sync"

// KVSink is a thread-safe, append-only destination for key/value pairs,
// shared across map workers during the map stage (spec §4.3).
type KVSink[K comparable, V any] interface {
	Write(k K, v V) error
}

// MemoryKVSink appends values into a map[K][]V under a mutex. Grounded on
// the original source's MemoryKVSink; useful for small jobs or tests that
// don't need the sharded on-disk shuffle.
type MemoryKVSink[K comparable, V any] struct {
	mu   sync.Mutex
	data map[K][]V
}

// NewMemoryKVSink returns an empty MemoryKVSink.
func NewMemoryKVSink[K comparable, V any]() *MemoryKVSink[K, V] {
	return &MemoryKVSink[K, V]{data: make(map[K][]V)}
}

func (s *MemoryKVSink[K, V]) Write(k K, v V) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[k] = append(s.data[k], v)
	return nil
}

// Source converts this sink into a GroupedMemoryKVSource, taking ownership
// of the accumulated map (spec §4.3).
func (s *MemoryKVSink[K, V]) Source() *GroupedMemoryKVSource[K, V] {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.data
	s.data = make(map[K][]V)
	return NewGroupedMemoryKVSource(data)
}
