// SPDX-License-Identifier: BSD-3-Clause

package liqctld

import (
	"context"
	"testing"
	"time"

	"github.com/coolerd/coolerd/pkg/executor"
)

// blockingDriver blocks Status() until release is closed, simulating a
// stalled device read.
type blockingDriver struct {
	mockDriver
	release chan struct{}
}

func newBlockingDriver(id int) *blockingDriver {
	return &blockingDriver{mockDriver: *newMockDriver(id), release: make(chan struct{})}
}

func (b *blockingDriver) Status(ctx context.Context) ([]StatusEntry, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.mockDriver.Status(ctx)
}

func TestReadStatusCacheFallthroughOnBusyQueue(t *testing.T) {
	exec := executor.New()
	if err := exec.SetNumberOfDevices(1); err != nil {
		t.Fatalf("SetNumberOfDevices: %v", err)
	}
	defer exec.Shutdown()

	cache := newStatusCache()
	cached := []StatusEntry{{Name: "fan rpm", Value: "1200", Unit: "rpm"}}
	cache.set(0, cached)

	d := newBlockingDriver(1)
	defer close(d.release)

	// Occupy the queue with a job that won't finish before our read.
	blocker, err := exec.Submit(0, func(ctx context.Context) (any, error) {
		<-d.release
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	defer blocker.Cancel()

	start := time.Now()
	entries, err := readStatus(context.Background(), exec, cache, 0, d, 50*time.Millisecond, 2*time.Second)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("readStatus: %v", err)
	}
	if len(entries) != 1 || entries[0] != cached[0] {
		t.Fatalf("expected cached entries %v, got %v", cached, entries)
	}
	if elapsed > 700*time.Millisecond {
		t.Fatalf("expected fallthrough within ~0.7s, took %v", elapsed)
	}

	if got, _ := cache.get(0); len(got) != 1 || got[0] != cached[0] {
		t.Fatalf("cache should be unchanged by the timeout path, got %v", got)
	}
}

func TestReadStatusReturnsCacheImmediatelyOnEmptyQueue(t *testing.T) {
	exec := executor.New()
	if err := exec.SetNumberOfDevices(1); err != nil {
		t.Fatalf("SetNumberOfDevices: %v", err)
	}
	defer exec.Shutdown()

	cache := newStatusCache()
	cached := []StatusEntry{{Name: "fan rpm", Value: "1200", Unit: "rpm"}}
	cache.set(0, cached)

	d := newBlockingDriver(1)
	defer close(d.release)

	// The queue is empty at submit time (no prior job occupying it), but
	// the device stalls past readTimeout. A stale cache value must come
	// back immediately rather than blocking up to devTimeout.
	start := time.Now()
	entries, err := readStatus(context.Background(), exec, cache, 0, d, 50*time.Millisecond, 2*time.Second)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("readStatus: %v", err)
	}
	if len(entries) != 1 || entries[0] != cached[0] {
		t.Fatalf("expected cached entries %v, got %v", cached, entries)
	}
	if elapsed > 700*time.Millisecond {
		t.Fatalf("expected cache fallthrough well under devTimeout, took %v", elapsed)
	}
}

func TestReadStatusBlocksOnEmptyQueueWithNoCache(t *testing.T) {
	exec := executor.New()
	if err := exec.SetNumberOfDevices(1); err != nil {
		t.Fatalf("SetNumberOfDevices: %v", err)
	}
	defer exec.Shutdown()

	cache := newStatusCache()
	d := newBlockingDriver(1)

	// No cache entry exists yet, so the only option is to wait for the
	// async job; releasing the driver partway through must still produce
	// a successful, cache-refreshing result.
	go func() {
		time.Sleep(100 * time.Millisecond)
		close(d.release)
	}()

	entries, err := readStatus(context.Background(), exec, cache, 0, d, 20*time.Millisecond, 2*time.Second)
	if err != nil {
		t.Fatalf("readStatus: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("expected non-empty status once the async job completes")
	}
	if got, ok := cache.get(0); !ok || len(got) != len(entries) {
		t.Fatalf("expected cache refreshed with %v, got %v", entries, got)
	}
}

func TestReadStatusRefreshesCacheOnSuccess(t *testing.T) {
	exec := executor.New()
	if err := exec.SetNumberOfDevices(1); err != nil {
		t.Fatalf("SetNumberOfDevices: %v", err)
	}
	defer exec.Shutdown()

	cache := newStatusCache()
	d := newMockDriver(1)

	entries, err := readStatus(context.Background(), exec, cache, 0, d, 200*time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("readStatus: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("expected non-empty status")
	}

	got, ok := cache.get(0)
	if !ok || len(got) != len(entries) {
		t.Fatalf("expected cache refreshed with %v, got %v", entries, got)
	}
}
