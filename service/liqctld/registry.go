// SPDX-License-Identifier: BSD-3-Clause

package liqctld

import (
	"context"
	"fmt"
	"sync"

	"github.com/coolerd/coolerd/pkg/executor"
)

// registry owns the set of discovered devices: their driver handles,
// descriptor metadata, and the executor queues that serialize I/O per
// device. Discovery runs once, lazily, on the first /devices call.
type registry struct {
	exec  *executor.Executor
	cache *statusCache

	mu         sync.Mutex
	discovered bool
	drivers    []Driver
	descriptors []DeviceDescriptor
}

func newRegistry(exec *executor.Executor, cache *statusCache) *registry {
	return &registry{exec: exec, cache: cache}
}

// discover connects every configured device exactly once. Subsequent calls
// are no-ops and return the cached descriptors.
func (r *registry) discover(ctx context.Context, n int) ([]DeviceDescriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.discovered {
		return r.descriptors, nil
	}

	drivers := make([]Driver, n)
	descriptors := make([]DeviceDescriptor, n)
	for i := 0; i < n; i++ {
		d := newMockDriver(i + 1)
		if err := d.Connect(ctx); err != nil {
			return nil, fmt.Errorf("connect device %d: %w", i+1, err)
		}
		drivers[i] = d
		descriptors[i] = describeDevice(i+1, d)
	}

	if err := r.exec.SetNumberOfDevices(n); err != nil {
		return nil, err
	}

	r.drivers = drivers
	r.descriptors = descriptors
	r.discovered = true
	return descriptors, nil
}

func describeDevice(id int, d Driver) DeviceDescriptor {
	return DeviceDescriptor{
		ID:               id,
		Description:      d.Description(),
		DeviceType:       d.DeviceType(),
		SerialNumber:     d.SerialNumber(),
		Properties:       d.Properties(),
		LiquidctlVersion: "mock-1.0.0",
	}
}

// driver returns the driver for a 1-based device id, or ErrDeviceNotFound.
func (r *registry) driver(id int) (Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.discovered || id < 1 || id > len(r.drivers) {
		return nil, ErrDeviceNotFound
	}
	return r.drivers[id-1], nil
}

// rebindLegacy690 swaps the driver at id for its legacy690 variant, or
// reports that it is already legacy.
func (r *registry) rebindLegacy690(ctx context.Context, id int) (already bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.discovered || id < 1 || id > len(r.drivers) {
		return false, ErrDeviceNotFound
	}
	cur := r.drivers[id-1]
	if cur.DeviceType() == "Legacy690Lc" {
		return true, nil
	}
	lc, ok := cur.(legacy690Capable)
	if !ok {
		return false, ErrUnsupportedOperation
	}
	next, err := lc.RebindLegacy690(ctx)
	if err != nil {
		return false, err
	}
	r.drivers[id-1] = next
	r.descriptors[id-1] = describeDevice(id, next)
	return false, nil
}

// deviceCount returns how many devices have been discovered.
func (r *registry) deviceCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.drivers)
}

// shutdownAll disconnects every discovered device. No device is
// re-initialized first; Disconnect errors are ignored.
func (r *registry) shutdownAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.drivers {
		_ = d.Disconnect(ctx)
	}
}
