// Package codec provides default collaborators for mrflow's caller-supplied
// hasher, encoder, and decoder (spec §1 places these out of core scope as
// collaborators). Encoder/Decoder use encoding/gob, generalizing
// dgryski/dmrgo's tab-delimited text KeyValue format to an arbitrary typed
// binary pair; Hasher generalizes dmrgo's adler32-based partitionEmitter
// hash to FNV-1a, as the original source's shuffle TODO calls for.
package codec

import (
	"bytes"
	"encoding/gob"
	"hash/fnv"
)

// Pair is the (key, value) shape gob encodes; it exists only so a single
// gob stream carries both fields together.
type Pair[K any, V any] struct {
	Key   K
	Value V
}

// Gob returns an Encoder/Decoder pair for (K, V) backed by encoding/gob.
// The shuffle format is private to one job (spec §6), matching gob's own
// non-portable-across-versions contract.
func Gob[K any, V any]() (func(K, V) ([]byte, error), func([]byte) (K, V, error)) {
	encode := func(k K, v V) ([]byte, error) {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(Pair[K, V]{Key: k, Value: v}); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	decode := func(payload []byte) (K, V, error) {
		var pair Pair[K, V]
		err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&pair)
		return pair.Key, pair.Value, err
	}
	return encode, decode
}

// FNVString hashes a string key with FNV-1a, the generalization of
// dgryski/dmrgo's adler32-based shard routing called for by the original
// source's shuffle TODO.
func FNVString(k string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(k))
	return h.Sum64()
}

// FNVBytes hashes a []byte key with FNV-1a.
func FNVBytes(k []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(k)
	return h.Sum64()
}

// Int64 is a trivial identity-style hasher for integer keys, matching
// dgryski/dmrgo's behavior when given a numeric partition key directly.
func Int64(k int64) uint64 {
	return uint64(k)
}

// Int hashes an int key by widening to int64.
func Int(k int) uint64 {
	return Int64(int64(k))
}
