// SPDX-License-Identifier: BSD-3-Clause

// Package executor implements the per-device FIFO job queue and shared
// worker pool that every device repository routes its device I/O through.
// Concurrent operations against the same device corrupt USB/HID traffic;
// serializing per device while running different devices in parallel is the
// whole point of this package.
package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Job is a unit of device work. It always runs against context.Background()
// on its worker goroutine — Submit takes no context, so a caller's deadline
// only bounds how long Future.Result waits, not the job itself — and
// returns a result or an error.
type Job func(ctx context.Context) (any, error)

// Future is the handle returned by Submit. Exactly one of Result's return
// values is meaningful once the job completes: either a non-nil result and
// nil error, or a nil result and non-nil error.
type Future struct {
	done      chan struct{}
	once      sync.Once
	result    any
	err       error
	cancelled atomic.Bool
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(result any, err error) {
	f.once.Do(func() {
		f.result = result
		f.err = err
		close(f.done)
	})
}

// Result blocks until the job completes, is cancelled, or ctx is done,
// whichever happens first. A context deadline does not stop the underlying
// worker from finishing the job; it only stops this call from waiting on
// it, per the executor's late-result-discarded semantics.
func (f *Future) Result(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}
}

// Cancel marks the future cancelled. If the job has not yet started on its
// device's worker, the worker skips it without invoking the job function.
// If the job is already running, Cancel only affects Result's outcome if
// the job has not yet completed; the worker still runs it to completion so
// cleanup inside the job always happens.
func (f *Future) Cancel() {
	if f.cancelled.CompareAndSwap(false, true) {
		f.complete(nil, ErrCancelled)
	}
}

type queuedJob struct {
	fn     Job
	future *Future
}

type deviceQueue struct {
	ch      chan queuedJob
	pending atomic.Int64
}

// Executor owns one FIFO channel and one dedicated worker goroutine per
// discovered device.
type Executor struct {
	mu         sync.Mutex
	queues     []*deviceQueue
	wg         sync.WaitGroup
	configured bool
	shutdownF  bool
}

// New returns an unconfigured Executor. Call SetNumberOfDevices before
// Submit.
func New() *Executor {
	return &Executor{}
}

// SetNumberOfDevices creates n single-consumer FIFO queues and n workers,
// one per device id in [0,n). It is idempotent in the sense that it is
// meant to be called exactly once after discovery; a second call returns
// ErrAlreadyConfigured without altering existing queues.
func (e *Executor) SetNumberOfDevices(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.configured {
		return ErrAlreadyConfigured
	}

	e.queues = make([]*deviceQueue, n)
	for i := 0; i < n; i++ {
		q := &deviceQueue{ch: make(chan queuedJob, 64)}
		e.queues[i] = q
		e.wg.Add(1)
		go e.worker(q)
	}
	e.configured = true
	return nil
}

func (e *Executor) worker(q *deviceQueue) {
	defer e.wg.Done()
	for qj := range q.ch {
		if !qj.future.cancelled.Load() {
			runJob(qj.fn, qj.future)
		}
		q.pending.Add(-1)
	}
}

func runJob(fn Job, future *Future) {
	defer func() {
		if r := recover(); r != nil {
			future.complete(nil, fmt.Errorf("job panicked: %v", r))
		}
	}()
	result, err := fn(context.Background())
	future.complete(result, err)
}

// Submit enqueues fn on deviceID's FIFO queue and returns a Future for its
// result. The worker assigned to deviceID executes jobs strictly in
// enqueue order.
func (e *Executor) Submit(deviceID int, fn Job) (*Future, error) {
	e.mu.Lock()
	if e.shutdownF {
		e.mu.Unlock()
		return nil, ErrShutdown
	}
	if deviceID < 0 || deviceID >= len(e.queues) {
		e.mu.Unlock()
		return nil, ErrUnknownDevice
	}
	q := e.queues[deviceID]
	e.mu.Unlock()

	future := newFuture()
	q.pending.Add(1)
	q.ch <- queuedJob{fn: fn, future: future}
	return future, nil
}

// DeviceQueueEmpty reports whether deviceID currently has no queued or
// in-flight job ahead of a new submission.
func (e *Executor) DeviceQueueEmpty(deviceID int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if deviceID < 0 || deviceID >= len(e.queues) {
		return true
	}
	return e.queues[deviceID].pending.Load() == 0
}

// Shutdown enqueues a close on every device channel and waits for all
// workers to drain and exit. After Shutdown, Submit returns ErrShutdown.
func (e *Executor) Shutdown() {
	e.mu.Lock()
	if e.shutdownF {
		e.mu.Unlock()
		return
	}
	e.shutdownF = true
	queues := e.queues
	e.mu.Unlock()

	for _, q := range queues {
		close(q.ch)
	}
	e.wg.Wait()
}
