package mrflow

import "errors"

// Sentinel errors, in the style of kevwan/mapreduce's ErrCancelWithNil /
// ErrReduceNoOutput.
var (
	// ErrNoWorkers is returned when a Config resolves to zero workers.
	ErrNoWorkers = errors.New("mrflow: worker count must be positive")
	// ErrNoShards is returned when a Config resolves to zero shards.
	ErrNoShards = errors.New("mrflow: shard count must be positive")
	// ErrMissingHasher is returned when no Hasher is configured.
	ErrMissingHasher = errors.New("mrflow: hasher is required")
	// ErrMissingCodec is returned when no Encoder/Decoder pair is configured.
	ErrMissingCodec = errors.New("mrflow: encoder and decoder are required")
)

// ErrKind classifies a JobError per the error taxonomy in spec §7.
type ErrKind int

const (
	// ErrKindConfig covers invalid configuration: bad shard count,
	// unwritable temp dir, missing hasher/encoder/decoder. Fatal before
	// any work begins.
	ErrKindConfig ErrKind = iota
	// ErrKindIO covers open/read/write failures on shuffle or output files.
	ErrKindIO
	// ErrKindUserCode covers a panic raised by map_fn or reduce_fn.
	ErrKindUserCode
	// ErrKindInvariant covers a decoded record that violates the framing
	// contract (e.g. a truncated frame).
	ErrKindInvariant
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindConfig:
		return "config"
	case ErrKindIO:
		return "io"
	case ErrKindUserCode:
		return "user-code"
	case ErrKindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// JobError is the single top-level failure a Run call returns: the first
// error observed, tagged with its taxonomy kind (spec §7 propagation —
// "User-visible result is a single top-level failure with the first
// error's kind and message").
type JobError struct {
	Kind ErrKind
	Err  error
}

func (e *JobError) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *JobError) Unwrap() error {
	return e.Err
}

func newJobError(kind ErrKind, err error) *JobError {
	return &JobError{Kind: kind, Err: err}
}

// Emit is passed to MapFunc; emit(k, v) forwards one key/value pair into
// the shuffle. Callable any number of times, including zero (spec §4.5,
// §8 boundary: "a map_fn that emits zero pairs for some input is legal").
type Emit[K comparable, V any] interface {
	Emit(k K, v V)
}

// MapFunc processes one input record, emitting zero or more key/value
// pairs via emit. Order among emissions for the same input is preserved
// only within that input's map task (spec §3).
type MapFunc[In any, K comparable, V any] func(item In, emit Emit[K, V])

// MapFinalFunc runs once after every per-record map task has completed and
// before the map→reduce barrier closes, letting a mapper flush any
// accumulated state as a final emission. Supplemented from the original
// source's MapFinal hook (see SPEC_FULL.md); optional — nil means no final
// hook runs.
type MapFinalFunc[K comparable, V any] func(emit Emit[K, V])

// ReduceFunc consumes a key together with the complete group of values
// emitted for that key and produces a single output.
type ReduceFunc[K comparable, V any, Out any] func(key K, values []V) Out

// Hasher maps a key to a shard index precursor; the shuffle computes
// hasher(k) mod N to route (k, v) to a shard (spec §4.4).
type Hasher[K comparable] func(k K) uint64

// Encoder serializes a key/value pair into the framed payload bytes
// written to a shuffle shard.
type Encoder[K comparable, V any] func(k K, v V) ([]byte, error)

// Decoder parses a framed payload back into a key/value pair. A decoder
// that cannot parse its input should return an error, which is surfaced
// as ErrKindInvariant.
type Decoder[K comparable, V any] func(payload []byte) (K, V, error)
