package memory

import (
	"container/heap"
	"io"
	"time"
	"weak"
)

// CleanupTask is a registered callback invoked on every cleanup pass.
type CleanupTask interface {
	Name() string
	Cleanup(aggressive bool) error
}

// FuncCleanupTask adapts a plain function to CleanupTask.
type FuncCleanupTask struct {
	TaskName string
	Fn       func(aggressive bool) error
}

func (f FuncCleanupTask) Name() string                   { return f.TaskName }
func (f FuncCleanupTask) Cleanup(aggressive bool) error { return f.Fn(aggressive) }

// weakEntry holds a name and a liveness check derived from a weak pointer,
// so the manager never keeps the underlying resource alive just by
// tracking it.
type weakEntry struct {
	name  string
	check func() (io.Closer, bool)
}

// ExpirableResource is closed once its expiration time passes, independent
// of the regular cleanup cadence.
type ExpirableResource struct {
	Name      string
	ExpiresAt time.Time
	Resource  io.Closer
}

// expirableQueue is a min-heap of ExpirableResource ordered by ExpiresAt,
// so the manager can drain expired entries from the head without scanning
// the whole set on every cleanup pass.
type expirableQueue []ExpirableResource

func (q expirableQueue) Len() int            { return len(q) }
func (q expirableQueue) Less(i, j int) bool  { return q[i].ExpiresAt.Before(q[j].ExpiresAt) }
func (q expirableQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *expirableQueue) Push(x any)         { *q = append(*q, x.(ExpirableResource)) }
func (q *expirableQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

var _ = heap.Interface(&expirableQueue{})

// registerWeak wraps resource in a weak pointer and returns a weakEntry
// that reports liveness without holding a strong reference.
func registerWeak[T io.Closer](name string, resource *T) weakEntry {
	wp := weak.Make(resource)
	return weakEntry{
		name: name,
		check: func() (io.Closer, bool) {
			v := wp.Value()
			if v == nil {
				return nil, false
			}
			return *v, true
		},
	}
}
