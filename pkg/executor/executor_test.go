// SPDX-License-Identifier: BSD-3-Clause

package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPerDeviceOrdering(t *testing.T) {
	e := New()
	if err := e.SetNumberOfDevices(3); err != nil {
		t.Fatalf("SetNumberOfDevices: %v", err)
	}
	defer e.Shutdown()

	const jobsPerDevice = 50
	var mu sync.Mutex
	order := map[int][]int{}

	var futures []*Future
	for device := 0; device < 3; device++ {
		for i := 0; i < jobsPerDevice; i++ {
			device, i := device, i
			f, err := e.Submit(device, func(ctx context.Context) (any, error) {
				mu.Lock()
				order[device] = append(order[device], i)
				mu.Unlock()
				return i, nil
			})
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			futures = append(futures, f)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, f := range futures {
		if _, err := f.Result(ctx); err != nil {
			t.Fatalf("Result: %v", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for device, seq := range order {
		for i, got := range seq {
			if got != i {
				t.Fatalf("device %d: execution order %v, expected strictly ascending", device, seq)
			}
		}
	}
}

func TestSubmitUnknownDevice(t *testing.T) {
	e := New()
	if err := e.SetNumberOfDevices(1); err != nil {
		t.Fatalf("SetNumberOfDevices: %v", err)
	}
	defer e.Shutdown()

	if _, err := e.Submit(5, func(ctx context.Context) (any, error) { return nil, nil }); !errors.Is(err, ErrUnknownDevice) {
		t.Fatalf("Submit(5, ...) error = %v, want ErrUnknownDevice", err)
	}
}

func TestJobPanicCapturedInFuture(t *testing.T) {
	e := New()
	if err := e.SetNumberOfDevices(1); err != nil {
		t.Fatalf("SetNumberOfDevices: %v", err)
	}
	defer e.Shutdown()

	f, err := e.Submit(0, func(ctx context.Context) (any, error) {
		panic("boom")
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := f.Result(ctx); err == nil {
		t.Fatal("Result() error = nil, want panic captured as error")
	}

	// The worker must still be alive after a panicked job.
	f2, err := e.Submit(0, func(ctx context.Context) (any, error) { return "ok", nil })
	if err != nil {
		t.Fatalf("Submit after panic: %v", err)
	}
	res, err := f2.Result(ctx)
	if err != nil || res != "ok" {
		t.Fatalf("Result after panic = (%v, %v), want (\"ok\", nil)", res, err)
	}
}

func TestShutdownAfterSubmitRejected(t *testing.T) {
	e := New()
	if err := e.SetNumberOfDevices(1); err != nil {
		t.Fatalf("SetNumberOfDevices: %v", err)
	}
	e.Shutdown()

	if _, err := e.Submit(0, func(ctx context.Context) (any, error) { return nil, nil }); !errors.Is(err, ErrShutdown) {
		t.Fatalf("Submit after Shutdown error = %v, want ErrShutdown", err)
	}
}

func TestDeviceQueueEmpty(t *testing.T) {
	e := New()
	if err := e.SetNumberOfDevices(1); err != nil {
		t.Fatalf("SetNumberOfDevices: %v", err)
	}
	defer e.Shutdown()

	release := make(chan struct{})
	f, _ := e.Submit(0, func(ctx context.Context) (any, error) {
		<-release
		return nil, nil
	})
	if e.DeviceQueueEmpty(0) {
		t.Fatal("DeviceQueueEmpty(0) = true while a job is in flight")
	}
	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := f.Result(ctx); err != nil {
		t.Fatalf("Result: %v", err)
	}
}
