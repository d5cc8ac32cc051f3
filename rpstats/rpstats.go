// Package rpstats holds the process-wide metric bumps the error policy in
// spec.md section 7 calls for ("recoverable errors are handled silently at
// the lowest layer with a metric bump"). It is deliberately tiny: a set of
// named atomic counters, not a full metrics client, since exporting metrics
// to a specific backend is outside the core's scope.
package rpstats

import (
	"sync"
	"sync/atomic"
)

// Counter names bumped by the core packages.
const (
	IllegalAction         = "illegal_action"
	EvaluatorTimeout      = "evaluator_timeout"
	EvaluatorFailure      = "evaluator_failure"
	ModelVersionMismatch  = "model_version_mismatch"
	RecordVersionMismatch = "record_version_mismatch"
	ClientStuck           = "client_stuck"
	NotRequested          = "not_requested"
)

var counters sync.Map

// Bump increments the named counter by 1.
func Bump(name string) {
	v, _ := counters.LoadOrStore(name, new(int64))
	atomic.AddInt64(v.(*int64), 1)
}

// Get returns the current value of the named counter.
func Get(name string) int64 {
	v, ok := counters.Load(name)
	if !ok {
		return 0
	}
	return atomic.LoadInt64(v.(*int64))
}

// Snapshot returns a copy of all counters, for logging/debugging.
func Snapshot() map[string]int64 {
	out := make(map[string]int64)
	counters.Range(func(k, v interface{}) bool {
		out[k.(string)] = atomic.LoadInt64(v.(*int64))
		return true
	})
	return out
}
