package mrflow

import (
	"log"
	"os"
	"sync"

	"github.com/zekroTJA/mrflow/internal/framing"
)

// FramedFileKVSink writes u64-length then payload for every (k, v), using
// the caller-supplied encoder; synchronized internally (spec §4.3).
type FramedFileKVSink[K comparable, V any] struct {
	mu     sync.Mutex
	file   *os.File
	writer *framing.Writer
	encode func(K, V) ([]byte, error)
}

// CreateFramedFileKVSink creates (truncating) path and wraps it in a
// framed KV sink.
func CreateFramedFileKVSink[K comparable, V any](path string, encode func(K, V) ([]byte, error)) (*FramedFileKVSink[K, V], error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FramedFileKVSink[K, V]{
		file:   f,
		writer: framing.NewWriter(f),
		encode: encode,
	}, nil
}

func (s *FramedFileKVSink[K, V]) Write(k K, v V) error {
	payload, err := s.encode(k, v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer.WriteRecord(payload)
}

// Close flushes and closes the file. A close error is logged, not
// returned, per the sink teardown contract (spec §4.3).
func (s *FramedFileKVSink[K, V]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writer.Flush(); err != nil {
		log.Printf("mrflow: flush %s: %v", s.file.Name(), err)
	}
	if err := s.file.Close(); err != nil {
		log.Printf("mrflow: close %s: %v", s.file.Name(), err)
	}
}
