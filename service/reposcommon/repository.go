// SPDX-License-Identifier: BSD-3-Clause

// Package reposcommon defines the interface every device repository
// implements, shared by the Cooling-lib, Hwmon, CPU, GPU, and Composite
// repositories so the Status Poller, Speed Scheduler, and IPC Server can
// treat them uniformly.
package reposcommon

import (
	"context"

	"github.com/coolerd/coolerd/pkg/device"
)

// StatusTag is the short user-visible outcome string returned by
// set_settings/set_channel_to_default, per the error handling design:
// either the device display name on success, or "ERROR <reason>".
type StatusTag string

// Repository adapts one device family to a uniform lifecycle: discover
// devices once, refresh their status on each poll tick, and apply user
// settings to a channel.
type Repository interface {
	// Name identifies the repository for logging and queue-group
	// registration, e.g. "coolingrepo", "hwmonrepo".
	Name() string

	// Statuses returns the repository's owned devices. The slice and its
	// Device pointers are stable for the repository's lifetime; only the
	// Device's internal status snapshot changes between calls.
	Statuses() []*device.Device

	// UpdateStatuses refreshes every owned device in place. Called once
	// per Status Poller tick; must not block past the poller's per-tick
	// budget under normal operation.
	UpdateStatuses(ctx context.Context) error

	// SetSettings applies a Setting to one channel of one owned device.
	SetSettings(ctx context.Context, deviceID int, s device.Setting) (StatusTag, error)

	// SetChannelToDefault restores a channel's recorded default state,
	// e.g. pwm_enable_default.
	SetChannelToDefault(ctx context.Context, deviceID int, channelName string) (StatusTag, error)

	// Shutdown releases any resources the repository holds (device
	// handles, file descriptors) and, where applicable, restores
	// defaults recorded during discovery.
	Shutdown(ctx context.Context) error
}
