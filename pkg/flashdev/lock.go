package flashdev

import (
	"fmt"
	"sync"
)

// Lock is the per-device coarse lock spec.md §5 describes: recursive and
// counted, identified by an owning task id so the same logical caller can
// re-enter it without deadlocking itself. Grounded on uffs_LockSt's
// {sem, task_id, counter} fields. There is exactly one of these per Device;
// the tree itself performs no locking of its own.
type Lock struct {
	mu      sync.Mutex
	cond    *sync.Cond
	owner   uint64
	held    bool
	counter int
}

// NewLock returns a ready-to-use Lock.
func NewLock() *Lock {
	l := &Lock{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Lock acquires the device lock on behalf of task. If task already holds
// the lock, the counter increments and Lock returns immediately -- this is
// what lets a single call stack serialize a mutation and a nested
// serialize/deserialize under the same task id without deadlocking.
func (l *Lock) Lock(task uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for l.held && l.owner != task {
		l.cond.Wait()
	}
	l.owner = task
	l.held = true
	l.counter++
}

// Unlock releases one level of recursion for task. It is a caller error
// (returns an error rather than panicking, since this is reachable from
// untrusted call sequencing, not only programmer mistakes) to unlock a
// device the task does not hold, or to over-unlock past the matching Lock
// calls.
func (l *Lock) Unlock(task uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held || l.owner != task {
		return fmt.Errorf("flashdev: task %d does not hold this device's lock", task)
	}
	l.counter--
	if l.counter == 0 {
		l.held = false
		l.owner = 0
		l.cond.Signal()
	}
	return nil
}

// HeldBy reports whether task currently holds the lock (at any recursion
// depth).
func (l *Lock) HeldBy(task uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held && l.owner == task
}
