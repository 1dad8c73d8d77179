package mrflow_test

import (
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zekroTJA/mrflow"
	"github.com/zekroTJA/mrflow/codec"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// Scenario A: doubling and tripling.
func TestRunDoublingAndTripling(t *testing.T) {
	src := mrflow.NewMemorySource([]int{1, 3, 6, 7, 12, 20})
	sink := mrflow.NewMemorySink[float64]()

	encode, decode := codec.Gob[int, int]()

	mapFn := func(v int, emit mrflow.Emit[int, int]) {
		emit.Emit(v, v*2)
		emit.Emit(v, v*3)
	}
	reduceFn := func(k int, vs []int) float64 {
		var sum int
		for _, v := range vs {
			sum += v
		}
		return float64(sum) + 0.2*float64(len(vs))
	}

	err := mrflow.Run[int, int, int, float64](src, sink, mapFn, reduceFn,
		mrflow.WithHasher[int, int](codec.Int),
		mrflow.WithCodec[int, int](encode, decode),
		mrflow.WithShards[int, int](3),
		mrflow.WithTempDir[int, int](t.TempDir()),
	)
	require.NoError(t, err)

	got := sink.Values()
	sort.Float64s(got)
	want := []float64{5.4, 15.4, 30.4, 35.4, 60.4, 100.4}
	sort.Float64s(want)
	assert.Equal(t, want, got)
}

type wordCount struct {
	Word  string
	Count int
}

// Scenario B: word count.
func TestRunWordCount(t *testing.T) {
	src := mrflow.NewMemorySource([]string{"a b a", "b c", "a", "c c"})
	sink := mrflow.NewMemorySink[wordCount]()

	encode, decode := codec.Gob[string, int]()

	mapFn := func(line string, emit mrflow.Emit[string, int]) {
		for _, w := range strings.Fields(line) {
			emit.Emit(w, 1)
		}
	}
	reduceFn := func(k string, vs []int) wordCount {
		var sum int
		for _, v := range vs {
			sum += v
		}
		return wordCount{Word: k, Count: sum}
	}

	err := mrflow.Run[string, string, int, wordCount](src, sink, mapFn, reduceFn,
		mrflow.WithHasher[string, int](codec.FNVString),
		mrflow.WithCodec[string, int](encode, decode),
		mrflow.WithShards[string, int](2),
		mrflow.WithTempDir[string, int](t.TempDir()),
	)
	require.NoError(t, err)

	got := sink.Values()
	sort.Slice(got, func(i, j int) bool { return got[i].Word < got[j].Word })
	want := []wordCount{{"a", 3}, {"b", 2}, {"c", 3}}
	assert.Equal(t, want, got)
}

// Scenario E: empty input produces empty output and a successful job.
func TestRunEmptyInput(t *testing.T) {
	src := mrflow.NewMemorySource([]int{})
	sink := mrflow.NewMemorySink[int]()
	encode, decode := codec.Gob[int, int]()

	err := mrflow.Run[int, int, int, int](src, sink,
		func(v int, emit mrflow.Emit[int, int]) { emit.Emit(v, v) },
		func(k int, vs []int) int {
			var sum int
			for _, v := range vs {
				sum += v
			}
			return sum
		},
		mrflow.WithHasher[int, int](codec.Int),
		mrflow.WithCodec[int, int](encode, decode),
		mrflow.WithTempDir[int, int](t.TempDir()),
	)
	require.NoError(t, err)
	assert.Empty(t, sink.Values())
}

// Scenario F: map_fn on the third input panics. The job returns a
// user-code failure and the worker pool is fully joined on return (the
// package-level goleak.VerifyTestMain catches any leaked worker).
func TestRunMapFunctionPanicIsUserCodeFailure(t *testing.T) {
	src := mrflow.NewMemorySource([]int{1, 2, 3, 4, 5})
	sink := mrflow.NewMemorySink[int]()
	encode, decode := codec.Gob[int, int]()

	err := mrflow.Run[int, int, int, int](src, sink,
		func(v int, emit mrflow.Emit[int, int]) {
			if v == 3 {
				panic("boom")
			}
			emit.Emit(v, v)
		},
		func(k int, vs []int) int { return vs[0] },
		mrflow.WithHasher[int, int](codec.Int),
		mrflow.WithCodec[int, int](encode, decode),
		mrflow.WithTempDir[int, int](t.TempDir()),
	)

	require.Error(t, err)
	var jobErr *mrflow.JobError
	require.True(t, errors.As(err, &jobErr))
	assert.Equal(t, mrflow.ErrKindUserCode, jobErr.Kind)
}

func TestRunRejectsMissingHasher(t *testing.T) {
	src := mrflow.NewMemorySource([]int{1})
	sink := mrflow.NewMemorySink[int]()
	_, decode := codec.Gob[int, int]()

	err := mrflow.Run[int, int, int, int](src, sink,
		func(v int, emit mrflow.Emit[int, int]) {},
		func(k int, vs []int) int { return 0 },
		mrflow.WithCodec[int, int](func(k, v int) ([]byte, error) { return nil, nil }, decode),
	)

	require.Error(t, err)
	var jobErr *mrflow.JobError
	require.True(t, errors.As(err, &jobErr))
	assert.Equal(t, mrflow.ErrKindConfig, jobErr.Kind)
	assert.ErrorIs(t, err, mrflow.ErrMissingHasher)
}

func TestRunClampsInvalidShardCount(t *testing.T) {
	// WithShards clamps below-minimum values rather than erroring, so a
	// fully configured job with shards requested as 0 still succeeds
	// (reduces to N=1, spec §8 boundary: "N=1 shard is legal").
	src := mrflow.NewMemorySource([]int{1, 2, 3})
	sink := mrflow.NewMemorySink[int]()
	encode, decode := codec.Gob[int, int]()

	err := mrflow.Run[int, int, int, int](src, sink,
		func(v int, emit mrflow.Emit[int, int]) { emit.Emit(v, v) },
		func(k int, vs []int) int { return vs[0] },
		mrflow.WithHasher[int, int](codec.Int),
		mrflow.WithCodec[int, int](encode, decode),
		mrflow.WithShards[int, int](0),
		mrflow.WithTempDir[int, int](t.TempDir()),
	)
	require.NoError(t, err)
	assert.Len(t, sink.Values(), 3)
}

// Supplemented feature: MapFinal runs once after the map barrier.
func TestRunMapFinalEmitsAfterBarrier(t *testing.T) {
	src := mrflow.NewMemorySource([]int{1, 2, 3})
	sink := mrflow.NewMemorySink[int]()
	encode, decode := codec.Gob[int, int]()

	err := mrflow.Run[int, int, int, int](src, sink,
		func(v int, emit mrflow.Emit[int, int]) { emit.Emit(v, v) },
		func(k int, vs []int) int { return vs[0] },
		mrflow.WithHasher[int, int](codec.Int),
		mrflow.WithCodec[int, int](encode, decode),
		mrflow.WithTempDir[int, int](t.TempDir()),
		mrflow.WithMapFinal[int, int](func(emit mrflow.Emit[int, int]) {
			emit.Emit(99, 100)
		}),
	)
	require.NoError(t, err)

	found := false
	for _, v := range sink.Values() {
		if v == 100 {
			found = true
		}
	}
	assert.True(t, found, "expected the MapFinal-emitted key 99 to reduce to value 100")
}
