// SPDX-License-Identifier: GPL-3.0-or-later

package hotspot

import "sync"

// Queue is a serialized execution queue.
//
// A single goroutine runs the submitted functions one at a time, strictly
// in submission order. All the commands of a registration, and all the
// continuations of their asynchronous steps, run on the same Queue, so
// the handler state needs no locking.
//
// The pending list is unbounded: [*Queue.Submit] never blocks, which
// makes it safe to call from the queue goroutine itself.
//
// Construct using [NewQueue].
type Queue struct {
	// done is closed when the loop goroutine exits.
	done chan struct{}

	// mu protects pending and closed.
	mu sync.Mutex

	// pending contains the functions waiting to run.
	pending []func()

	// closed indicates that [*Queue.Close] was called.
	closed bool

	// wakeup has capacity one and signals new pending work.
	wakeup chan struct{}
}

// NewQueue creates a [*Queue] and starts its goroutine.
//
// The caller is responsible for calling [*Queue.Close] when done.
func NewQueue() *Queue {
	q := &Queue{
		done:   make(chan struct{}),
		wakeup: make(chan struct{}, 1),
	}
	go q.loop()
	return q
}

// Submit schedules fn to run on the queue goroutine.
//
// Returns [ErrQueueClosed] after [*Queue.Close].
func (q *Queue) Submit(fn func()) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
	q.signal()
	return nil
}

// Do submits fn and waits for it to complete.
//
// Calling Do from the queue goroutine deadlocks.
func (q *Queue) Do(fn func()) error {
	finished := make(chan struct{})
	err := q.Submit(func() {
		defer close(finished)
		fn()
	})
	if err != nil {
		return err
	}
	<-finished
	return nil
}

// Close stops accepting work, runs what is already pending, and waits for
// the queue goroutine to exit. It is safe to call Close multiple times but
// not from the queue goroutine.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
	<-q.done
}

// Done returns a channel closed once the queue goroutine has exited.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

func (q *Queue) signal() {
	select {
	case q.wakeup <- struct{}{}:
	default:
	}
}

func (q *Queue) loop() {
	defer close(q.done)
	for {
		q.mu.Lock()
		batch, closed := q.pending, q.closed
		q.pending = nil
		q.mu.Unlock()

		if len(batch) <= 0 {
			if closed {
				return
			}
			<-q.wakeup
			continue
		}

		for _, fn := range batch {
			fn()
		}
	}
}
