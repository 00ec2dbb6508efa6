// Package writequeue arbitrates the single ledger write transaction between
// the distinct roles that need it. Only one guard is outstanding at any
// time; waiters are granted the lock in arrival order.
package writequeue

import (
	"sync"

	"go.uber.org/atomic"
)

// Writer tags the distinct areas write locking is done for; the order of the
// values is irrelevant.
type Writer int

const (
	WriterCementing Writer = iota
	WriterProcessBatch
	WriterPruning
	WriterVotingFinal
	// WriterTesting is used in tests to emulate holding the write lock.
	WriterTesting
)

func (w Writer) String() string {
	switch w {
	case WriterCementing:
		return "cementing"
	case WriterProcessBatch:
		return "process_batch"
	case WriterPruning:
		return "pruning"
	case WriterVotingFinal:
		return "voting_final"
	case WriterTesting:
		return "testing"
	default:
		return "unknown"
	}
}

// waiter identifies one blocked Acquire call; pointer identity keeps the
// FIFO exact even when several waiters share a role.
type waiter struct {
	writer Writer
}

// Queue serializes write access to the ledger across writer roles.
type Queue struct {
	mu      sync.Mutex
	granted *sync.Cond
	waiting []*waiter
	holder  *Guard
}

// NewQueue creates a new write queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.granted = sync.NewCond(&q.mu)
	return q
}

// TryAcquire attempts to take the write lock without blocking. It fails if
// the lock is held or if any other writer is already waiting for it.
func (q *Queue) TryAcquire(writer Writer) (*Guard, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.holder != nil || len(q.waiting) > 0 {
		return nil, false
	}
	guard := q.newGuard(writer)
	q.holder = guard
	return guard, true
}

// Acquire blocks the calling goroutine until the write lock is granted.
// Waiters are served in FIFO order.
func (q *Queue) Acquire(writer Writer) *Guard {
	q.mu.Lock()
	defer q.mu.Unlock()

	w := &waiter{writer: writer}
	q.waiting = append(q.waiting, w)
	for q.holder != nil || q.waiting[0] != w {
		q.granted.Wait()
	}
	q.waiting = q.waiting[1:]
	guard := q.newGuard(writer)
	q.holder = guard
	return guard
}

// Held reports whether any writer currently holds the lock.
func (q *Queue) Held() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.holder != nil
}

func (q *Queue) newGuard(writer Writer) *Guard {
	return &Guard{
		queue:    q,
		writer:   writer,
		released: atomic.NewBool(false),
	}
}

// release is called by the guard; the queue hands the lock to the next
// waiter, if any.
func (q *Queue) release(guard *Guard) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.holder == guard {
		q.holder = nil
		q.granted.Broadcast()
	}
}

// Guard represents holding the write lock for one role. Release is
// idempotent.
type Guard struct {
	queue    *Queue
	writer   Writer
	released *atomic.Bool
}

// Writer returns the role the guard was granted for.
func (g *Guard) Writer() Writer {
	return g.writer
}

// Release gives up the write lock. Releasing an already-released guard is a
// no-op.
func (g *Guard) Release() {
	if g.released.CompareAndSwap(false, true) {
		g.queue.release(g)
	}
}

// Held reports whether the guard still owns the lock.
func (g *Guard) Held() bool {
	return !g.released.Load()
}
