package shuffle

import (
	"fmt"
	"io"
	"os"

	"github.com/zekroTJA/mrflow/internal/framing"
)

// Source is the sharded-file KV source (spec §4.2): it opens shard files
// lazily, one at a time, to cap open-file usage during reduce, buffers the
// active shard's records into a key-to-values multimap, and yields
// groupings from that multimap before advancing. Because the writer's hash
// invariant (S1, §4.4) guarantees a key never straddles shards, the
// grouping produced for a shard is already complete — no merge across
// shards is needed.
type Source[K comparable, V any] struct {
	paths      []string
	bufferSize int
	decode     func([]byte) (K, V, error)

	shardIdx int
	groups   map[K][]V
	keys     []K
	keyIdx   int
	loaded   bool
}

// NewSource builds a sharded grouped KV source over paths, read in order.
func NewSource[K comparable, V any](paths []string, bufferSize int, decode func([]byte) (K, V, error)) *Source[K, V] {
	return &Source[K, V]{
		paths:      paths,
		bufferSize: bufferSize,
		decode:     decode,
	}
}

// HasNext reports whether at least one more (key, values) grouping remains,
// across the remaining shards.
func (s *Source[K, V]) HasNext() (bool, error) {
	for {
		if !s.loaded {
			if s.shardIdx >= len(s.paths) {
				return false, nil
			}
			if err := s.loadShard(s.shardIdx); err != nil {
				return false, err
			}
			s.loaded = true
		}
		if s.keyIdx < len(s.keys) {
			return true, nil
		}
		// current shard exhausted, advance
		s.loaded = false
		s.shardIdx++
	}
}

// Next pulls the next (key, values) grouping. It calls HasNext itself and
// returns io.EOF once every shard is exhausted.
func (s *Source[K, V]) Next() (K, []V, error) {
	ok, err := s.HasNext()
	if err != nil {
		var zeroK K
		return zeroK, nil, err
	}
	if !ok {
		var zeroK K
		return zeroK, nil, io.EOF
	}
	k := s.keys[s.keyIdx]
	values := s.groups[k]
	s.keyIdx++
	return k, values, nil
}

// loadShard opens shard i, reads every record into a key-to-values
// multimap, and closes the file. At most one shard's worth of grouped
// values is resident at a time (spec §5 resource bounds).
func (s *Source[K, V]) loadShard(i int) error {
	f, err := os.Open(s.paths[i])
	if err != nil {
		if os.IsNotExist(err) {
			// an elided empty shard (spec §8, scenario E) is legal
			s.groups = map[K][]V{}
			s.keys = nil
			s.keyIdx = 0
			return nil
		}
		return fmt.Errorf("shuffle: open shard %d: %w", i, err)
	}
	defer f.Close()

	groups := make(map[K][]V)
	var keys []K

	reader := framing.NewReader(f, s.bufferSize)
	for reader.HasNext() {
		payload, err := reader.ReadRecord()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("shuffle: decode shard %d: %w", i, err)
		}
		k, v, err := s.decode(payload)
		if err != nil {
			return fmt.Errorf("shuffle: decode shard %d record: %w", i, err)
		}
		if _, seen := groups[k]; !seen {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], v)
	}

	s.groups = groups
	s.keys = keys
	s.keyIdx = 0
	return nil
}
