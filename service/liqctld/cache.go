// SPDX-License-Identifier: BSD-3-Clause

package liqctld

import (
	"context"
	"sync"
	"time"

	"github.com/coolerd/coolerd/pkg/executor"
)

// statusCache holds the last successfully read status entries per device.
// The executor worker is the single writer; reads take a snapshot.
type statusCache struct {
	mu      sync.RWMutex
	entries map[int][]StatusEntry
}

func newStatusCache() *statusCache {
	return &statusCache{entries: make(map[int][]StatusEntry)}
}

func (c *statusCache) get(deviceID int) ([]StatusEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[deviceID]
	return v, ok
}

func (c *statusCache) set(deviceID int, v []StatusEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[deviceID] = v
}

// readStatus implements the status read protocol from §4.2: a short
// synchronous try, falling back to either the cache or a long async
// refresh depending on whether the device's queue was already occupied.
func readStatus(ctx context.Context, exec *executor.Executor, cache *statusCache, deviceID int, driver Driver, readTimeout, devTimeout time.Duration) ([]StatusEntry, error) {
	wasEmpty := exec.DeviceQueueEmpty(deviceID)

	future, err := exec.Submit(deviceID, func(jobCtx context.Context) (any, error) {
		entries, err := driver.Status(jobCtx)
		if err == nil {
			cache.set(deviceID, entries)
		}
		return entries, err
	})
	if err != nil {
		return nil, err
	}

	shortCtx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	result, err := future.Result(shortCtx)
	if err == nil {
		entries := result.([]StatusEntry)
		return entries, nil
	}

	// The short try did not land in time. Decide the fallback path based
	// on whether this device's queue was already busy with another job
	// when we submitted.
	if !wasEmpty {
		if cached, ok := cache.get(deviceID); ok {
			return cached, nil
		}
		return nil, ErrDeviceNotFound
	}

	// The queue was empty: this was a single stalled call. A cached value
	// from the previous poll is still good enough to answer with
	// immediately — the async job below keeps running and refreshes the
	// cache for the next caller, but nobody has to wait T_dev for it.
	if cached, ok := cache.get(deviceID); ok {
		return cached, nil
	}

	// No cache yet (first read for this device): this is the one case
	// that actually blocks on the async job, up to T_dev.
	longCtx, longCancel := context.WithTimeout(ctx, devTimeout)
	defer longCancel()

	result, err = future.Result(longCtx)
	if err != nil {
		return nil, err
	}

	entries := result.([]StatusEntry)
	return entries, nil
}
