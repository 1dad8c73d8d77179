package mrflow

import (
	"fmt"
	"io"
	"sync"

	"github.com/zekroTJA/mrflow/internal/workerpool"
)

// emitAdapter forwards Emit calls to the shuffle KVSink. It is shared
// across every map worker because the sink is thread-safe (spec §4.5,
// §9 "Emit adapter").
type emitAdapter[K comparable, V any] struct {
	sink KVSink[K, V]
	fail func(kind ErrKind, err error)
}

func (e *emitAdapter[K, V]) Emit(k K, v V) {
	if err := e.sink.Write(k, v); err != nil {
		e.fail(ErrKindIO, fmt.Errorf("shuffle write: %w", err))
	}
}

// runMapStage drains src, submitting one map task per input record to
// pool, then barriers on every submitted task before returning (spec
// §4.5). The orchestrator thread is the sole caller of src.Next() during
// map. mapFinal, if non-nil, runs once after the barrier closes on
// ordinary tasks but before the stage returns, letting a mapper flush
// accumulated state (MapFinalFunc, see SPEC_FULL.md).
func runMapStage[In any, K comparable, V any](
	pool *workerpool.Pool,
	src Source[In],
	sink KVSink[K, V],
	mapFn MapFunc[In, K, V],
	mapFinal MapFinalFunc[K, V],
) error {
	var wg sync.WaitGroup
	errs := newFirstError()
	fail := func(kind ErrKind, err error) {
		errs.Store(newJobError(kind, err))
	}
	emit := &emitAdapter[K, V]{sink: sink, fail: fail}

	for {
		if errs.Load() != nil {
			break
		}
		ok, err := src.HasNext()
		if err != nil {
			fail(ErrKindIO, err)
			break
		}
		if !ok {
			break
		}
		record, err := src.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			fail(ErrKindIO, err)
			break
		}

		wg.Add(1)
		pool.Submit(func() {
			defer wg.Done()
			runMapTask(record, emit, mapFn, fail)
		})
	}

	wg.Wait()

	if mapFinal != nil && errs.Load() == nil {
		runMapFinalTask(emit, mapFinal, fail)
	}

	if e := errs.Load(); e != nil {
		return e
	}
	return nil
}

// runMapTask applies mapFn to one record, recovering a panic into the
// job's first-error slot without poisoning the worker pool (spec §4.5,
// §7: "A panic/exception inside map_fn aborts that input record's work
// item only; other emissions already performed for that record remain in
// the shuffle").
func runMapTask[In any, K comparable, V any](record In, emit Emit[K, V], mapFn MapFunc[In, K, V], fail func(ErrKind, error)) {
	defer func() {
		if r := recover(); r != nil {
			fail(ErrKindUserCode, fmt.Errorf("map_fn panicked: %v", r))
		}
	}()
	mapFn(record, emit)
}

func runMapFinalTask[K comparable, V any](emit Emit[K, V], mapFinal MapFinalFunc[K, V], fail func(ErrKind, error)) {
	defer func() {
		if r := recover(); r != nil {
			fail(ErrKindUserCode, fmt.Errorf("map_final panicked: %v", r))
		}
	}()
	mapFinal(emit)
}
