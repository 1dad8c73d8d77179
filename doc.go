// Package mrflow implements an in-process, single-node MapReduce execution
// engine: a caller-supplied map function emits key/value pairs from an
// input source, a sharded binary-framed shuffle groups those pairs by key,
// and a caller-supplied reduce function consumes each complete group to
// produce one output per key. Map and reduce tasks run across a bounded,
// shared worker pool.
//
// The engine runs a single job to completion on one host; it does not
// distribute across machines, re-execute failed tasks, or provide
// exactly-once delivery across a crash. See internal/workerpool,
// internal/framing, and internal/shuffle for the pieces that make up the
// pipeline, and Run for the embedding entry point.
package mrflow
