// SPDX-License-Identifier: BSD-3-Clause

package liqctld

import (
	"context"
	"testing"

	"github.com/coolerd/coolerd/pkg/executor"
)

func TestRebindLegacy690(t *testing.T) {
	exec := executor.New()
	cache := newStatusCache()
	r := newRegistry(exec, cache)

	ctx := context.Background()
	if _, err := r.discover(ctx, 2); err != nil {
		t.Fatalf("discover: %v", err)
	}

	already, err := r.rebindLegacy690(ctx, 2)
	if err != nil {
		t.Fatalf("rebindLegacy690: %v", err)
	}
	if already {
		t.Fatalf("expected first rebind to report not-already-legacy")
	}
	d, err := r.driver(2)
	if err != nil {
		t.Fatalf("driver: %v", err)
	}
	if d.DeviceType() != "Legacy690Lc" {
		t.Fatalf("expected device_type Legacy690Lc, got %q", d.DeviceType())
	}

	already, err = r.rebindLegacy690(ctx, 2)
	if err != nil {
		t.Fatalf("second rebindLegacy690: %v", err)
	}
	if !already {
		t.Fatalf("expected second rebind to report already-legacy")
	}
}

func TestDiscoverIsIdempotent(t *testing.T) {
	exec := executor.New()
	cache := newStatusCache()
	r := newRegistry(exec, cache)

	ctx := context.Background()
	first, err := r.discover(ctx, 3)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	second, err := r.discover(ctx, 3)
	if err != nil {
		t.Fatalf("second discover: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("expected stable descriptor count across calls")
	}
}

func TestDriverUnknownDevice(t *testing.T) {
	exec := executor.New()
	cache := newStatusCache()
	r := newRegistry(exec, cache)

	if _, err := r.driver(1); err != ErrDeviceNotFound {
		t.Fatalf("expected ErrDeviceNotFound before discovery, got %v", err)
	}
}
