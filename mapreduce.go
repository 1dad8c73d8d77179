package mrflow

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/zekroTJA/mrflow/internal/shuffle"
	"github.com/zekroTJA/mrflow/internal/workerpool"
)

// Run executes one MapReduce job to completion: it drains src, submits one
// map task per record to a shared worker pool, spills emissions through a
// sharded binary-framed shuffle, barriers, then submits one reduce task per
// grouped key and writes each result to sink. It returns a single
// top-level *JobError on failure (spec §4.7, §7).
//
// Run is the embedding API named in spec §6:
//
//	run_map_reduce(src, sink, map_fn, reduce_fn, {shards, buffer_size,
//	  temp_dir, base_name, hasher, encoder, decoder})
//
// State machine (spec §4.7): init -> mapping -> shuffle-handoff ->
// reducing -> done. An error at any stage tears down the worker pool and
// closes open shuffle files before returning; shard files are removed on
// success and retained on abort for post-mortem (spec §9).
func Run[In any, K comparable, V any, Out any](
	src Source[In],
	sink Sink[Out],
	mapFn MapFunc[In, K, V],
	reduceFn ReduceFunc[K, V, Out],
	opts ...Option[K, V],
) error {
	cfg := buildConfig(opts...)
	if err := cfg.validate(); err != nil {
		return err
	}

	jobID := uuid.NewString()
	jobDir := filepath.Join(tempDirOrDefault(cfg.TempDir), jobID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return newJobError(ErrKindConfig, fmt.Errorf("create job dir %s: %w", jobDir, err))
	}

	pool := workerpool.New(cfg.Workers, func(r any) {
		log.Printf("mrflow[%s]: recovered panic at worker boundary: %v", jobID, r)
	})
	defer pool.Shutdown()

	shuffleSink, err := shuffle.NewSink[K, V](jobDir, cfg.BaseName, cfg.Shards, cfg.Hasher, cfg.Encoder)
	if err != nil {
		removeDirBestEffort(jobDir)
		return newJobError(ErrKindConfig, err)
	}

	// mapping
	if err := runMapStage[In, K, V](pool, src, shuffleSink, mapFn, cfg.MapFinal); err != nil {
		shuffleSink.Close()
		log.Printf("mrflow[%s]: aborted during map, retaining shard files under %s", jobID, jobDir)
		return err
	}
	shuffleSink.Close()

	// shuffle-handoff
	decode := cfg.Decoder
	grouped := shuffleSink.Source(cfg.BufferSize, func(payload []byte) (K, V, error) {
		k, v, err := decode(payload)
		if err != nil {
			return k, v, newJobError(ErrKindInvariant, err)
		}
		return k, v, nil
	})

	// reducing
	if err := runReduceStage[K, V, Out](pool, grouped, sink, reduceFn); err != nil {
		log.Printf("mrflow[%s]: aborted during reduce, retaining shard files under %s", jobID, jobDir)
		var stageErr, decodeErr *JobError
		if errors.As(err, &stageErr) && errors.As(stageErr.Err, &decodeErr) {
			return newJobError(decodeErr.Kind, stageErr.Err)
		}
		return err
	}

	// done
	shuffleSink.Remove()
	removeDirBestEffort(jobDir)
	return nil
}

func tempDirOrDefault(dir string) string {
	if dir != "" {
		return dir
	}
	return os.TempDir()
}

func removeDirBestEffort(dir string) {
	if err := os.Remove(dir); err != nil && !os.IsNotExist(err) {
		log.Printf("mrflow: remove job dir %s: %v", dir, err)
	}
}
