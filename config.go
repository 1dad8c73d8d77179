package mrflow

import (
	"context"
	"runtime"
)

const (
	defaultShards     = 4
	defaultBufferSize = 64 * 1024
	defaultBaseName   = "shard"
	fallbackWorkers   = 4
	minWorkers        = 1
	minShards         = 1
)

// Config customizes a Run call (spec §6's embedding API options block:
// shards, buffer_size, temp_dir, base_name, hasher, encoder, decoder).
// Built from defaults plus zero or more Option values, in the style of
// kevwan/mapreduce's mapReduceOptions/Option pattern.
type Config[K comparable, V any] struct {
	Shards     int
	BufferSize int
	TempDir    string
	BaseName   string
	Workers    int
	Context    context.Context

	Hasher  Hasher[K]
	Encoder Encoder[K, V]
	Decoder Decoder[K, V]

	// MapFinal runs once after the map barrier, before the shuffle
	// handoff (see SPEC_FULL.md's SUPPLEMENTED FEATURES).
	MapFinal MapFinalFunc[K, V]
}

// Option customizes a Config. See WithShards, WithBufferSize, WithTempDir,
// WithBaseName, WithHasher, WithCodec, WithWorkers, WithContext, and
// WithMapFinal.
type Option[K comparable, V any] func(*Config[K, V])

// WithShards sets the number of shuffle shards. Values < 1 are clamped to 1.
func WithShards[K comparable, V any](n int) Option[K, V] {
	return func(c *Config[K, V]) {
		if n < minShards {
			n = minShards
		}
		c.Shards = n
	}
}

// WithBufferSize sets the chunk size used by the shuffle's framed file
// readers. Values < 1 are clamped to 1.
func WithBufferSize[K comparable, V any](n int) Option[K, V] {
	return func(c *Config[K, V]) {
		if n < 1 {
			n = 1
		}
		c.BufferSize = n
	}
}

// WithTempDir sets the directory under which per-job shard subdirectories
// are created.
func WithTempDir[K comparable, V any](dir string) Option[K, V] {
	return func(c *Config[K, V]) {
		c.TempDir = dir
	}
}

// WithBaseName sets the shard file name prefix ("<base>_<i>-of-<N>").
func WithBaseName[K comparable, V any](name string) Option[K, V] {
	return func(c *Config[K, V]) {
		c.BaseName = name
	}
}

// WithHasher sets the key hasher used to route (k, v) pairs to shards.
func WithHasher[K comparable, V any](h Hasher[K]) Option[K, V] {
	return func(c *Config[K, V]) {
		c.Hasher = h
	}
}

// WithCodec sets the encoder/decoder pair used to serialize shuffle
// records.
func WithCodec[K comparable, V any](enc Encoder[K, V], dec Decoder[K, V]) Option[K, V] {
	return func(c *Config[K, V]) {
		c.Encoder = enc
		c.Decoder = dec
	}
}

// WithWorkers sets the size of the shared worker pool used by both the
// map and reduce stages. Values < 1 are clamped to 1.
func WithWorkers[K comparable, V any](n int) Option[K, V] {
	return func(c *Config[K, V]) {
		if n < minWorkers {
			n = minWorkers
		}
		c.Workers = n
	}
}

// WithContext stores ctx in Config.Context. Run does not read it: it does
// not cancel either stage and is not passed to the hasher, encoder or
// decoder.
func WithContext[K comparable, V any](ctx context.Context) Option[K, V] {
	return func(c *Config[K, V]) {
		c.Context = ctx
	}
}

// WithMapFinal sets the optional end-of-map hook (see
// SPEC_FULL.md's SUPPLEMENTED FEATURES, grounded on dgryski/dmrgo's
// MapReduceJob.MapFinal).
func WithMapFinal[K comparable, V any](fn MapFinalFunc[K, V]) Option[K, V] {
	return func(c *Config[K, V]) {
		c.MapFinal = fn
	}
}

func defaultConfig[K comparable, V any]() *Config[K, V] {
	workers := runtime.NumCPU()
	if workers < 1 {
		workers = fallbackWorkers
	}
	return &Config[K, V]{
		Shards:     defaultShards,
		BufferSize: defaultBufferSize,
		BaseName:   defaultBaseName,
		Workers:    workers,
		Context:    context.Background(),
	}
}

func buildConfig[K comparable, V any](opts ...Option[K, V]) *Config[K, V] {
	cfg := defaultConfig[K, V]()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *Config[K, V]) validate() error {
	if c.Workers < minWorkers {
		return newJobError(ErrKindConfig, ErrNoWorkers)
	}
	if c.Shards < minShards {
		return newJobError(ErrKindConfig, ErrNoShards)
	}
	if c.Hasher == nil {
		return newJobError(ErrKindConfig, ErrMissingHasher)
	}
	if c.Encoder == nil || c.Decoder == nil {
		return newJobError(ErrKindConfig, ErrMissingCodec)
	}
	return nil
}
