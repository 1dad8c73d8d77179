package mrflow

import (
	"io"
	"os"
	"sync"

	"github.com/zekroTJA/mrflow/internal/framing"
)

// FramedFileSource is a Source[T] backed by a file handle, a buffer of
// configured size, and a user-supplied decoder (spec §4.2). Maximum
// resident bytes is approximately 2*bufferSize plus one record's worth
// when a record spans a chunk boundary.
type FramedFileSource[T any] struct {
	mu     sync.Mutex
	file   *os.File
	reader *framing.Reader
	decode func([]byte) (T, error)
}

// OpenFramedFileSource opens path for reading and wraps it in a chunked
// frame reader of the given buffer size.
func OpenFramedFileSource[T any](path string, bufferSize int, decode func([]byte) (T, error)) (*FramedFileSource[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &FramedFileSource[T]{
		file:   f,
		reader: framing.NewReader(f, bufferSize),
		decode: decode,
	}, nil
}

func (s *FramedFileSource[T]) HasNext() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader.HasNext(), nil
}

func (s *FramedFileSource[T]) Next() (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := s.reader.ReadRecord()
	if err != nil {
		var zero T
		if err == io.EOF {
			return zero, io.EOF
		}
		return zero, newJobError(ErrKindInvariant, err)
	}
	v, err := s.decode(payload)
	if err != nil {
		var zero T
		return zero, newJobError(ErrKindInvariant, err)
	}
	return v, nil
}

// Close closes the underlying file handle. Safe to call once.
func (s *FramedFileSource[T]) Close() error {
	return s.file.Close()
}
