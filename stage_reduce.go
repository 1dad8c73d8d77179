package mrflow

import (
	"fmt"
	"io"
	"sync"

	"github.com/zekroTJA/mrflow/internal/workerpool"
)

// runReduceStage drains grouped, submitting one reduce task per group to
// pool, then barriers on every submitted task (spec §4.6). Reduce tasks
// may run concurrently and may write to sink in any order.
func runReduceStage[K comparable, V any, Out any](
	pool *workerpool.Pool,
	grouped KVSource[K, V],
	sink Sink[Out],
	reduceFn ReduceFunc[K, V, Out],
) error {
	var wg sync.WaitGroup
	errs := newFirstError()
	fail := func(kind ErrKind, err error) {
		errs.Store(newJobError(kind, err))
	}

	for {
		if errs.Load() != nil {
			break
		}
		ok, err := grouped.HasNext()
		if err != nil {
			fail(ErrKindIO, err)
			break
		}
		if !ok {
			break
		}
		key, values, err := grouped.Next()
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
			runReduceTask(key, values, sink, reduceFn, fail)
		})
	}

	wg.Wait()

	if e := errs.Load(); e != nil {
		return e
	}
	return nil
}

// runReduceTask applies reduceFn to one group and writes the result,
// recovering a panic into the job's first-error slot (spec §7).
func runReduceTask[K comparable, V any, Out any](
	key K,
	values []V,
	sink Sink[Out],
	reduceFn ReduceFunc[K, V, Out],
	fail func(ErrKind, error),
) {
	defer func() {
		if r := recover(); r != nil {
			fail(ErrKindUserCode, fmt.Errorf("reduce_fn panicked: %v", r))
		}
	}()
	out := reduceFn(key, values)
	if err := sink.Write(out); err != nil {
		fail(ErrKindIO, fmt.Errorf("sink write: %w", err))
	}
}
