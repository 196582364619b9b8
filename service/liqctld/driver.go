// SPDX-License-Identifier: BSD-3-Clause

package liqctld

import "context"

// Driver abstracts a single liquidctl-style device handle. Every call may
// block on device I/O and must only be invoked from the device's executor
// worker.
type Driver interface {
	// Description is the human-readable device name reported to clients.
	Description() string
	// DeviceType names the driver family, e.g. "Kraken X3", "Legacy690Lc".
	DeviceType() string
	// SerialNumber is the device's serial, if the driver exposes one.
	SerialNumber() string
	// Properties reports the device's capability surface.
	Properties() Properties

	// Connect opens the underlying device handle. Idempotent: connecting
	// an already-open handle is not an error.
	Connect(ctx context.Context) error
	// Disconnect closes the underlying device handle.
	Disconnect(ctx context.Context) error
	// Initialize runs driver-specific startup sequencing and returns the
	// resulting status entries.
	Initialize(ctx context.Context, pumpMode string) ([]StatusEntry, error)
	// Status returns the current status entries. Callers apply the
	// two-phase timeout/cache protocol around this call; Status itself
	// just does the device read.
	Status(ctx context.Context) ([]StatusEntry, error)

	// SetFixedSpeed applies a constant duty percentage to a channel.
	SetFixedSpeed(ctx context.Context, channel string, duty int) error
	// SetSpeedProfile forwards a server-side speed profile to the device,
	// for drivers whose Properties().SupportsCoolingProfiles is true.
	SetSpeedProfile(ctx context.Context, channel string, profile []ProfilePoint, tempSensor string) error
	// SetColor applies a lighting command to a channel.
	SetColor(ctx context.Context, req ColorRequest) error
	// SetScreen applies an LCD/screen command to a channel.
	SetScreen(ctx context.Context, req ScreenRequest) error
}

// legacy690Capable is implemented by drivers that can rebind their handle
// to the legacy690 variant of a shared vendor/product id.
type legacy690Capable interface {
	RebindLegacy690(ctx context.Context) (Driver, error)
}
