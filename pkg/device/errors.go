// SPDX-License-Identifier: BSD-3-Clause

package device

import "errors"

var (
	// ErrDeviceNotFound indicates that no device matches the requested identity.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrChannelNotFound indicates that the requested channel does not exist on the device.
	ErrChannelNotFound = errors.New("unknown channel")
	// ErrInvalidSetting indicates that a Setting carries no recognized command or more than one.
	ErrInvalidSetting = errors.New("invalid setting")
	// ErrNotWritable indicates that the repository owning the device is in read-only mode.
	ErrNotWritable = errors.New("repository is read-only")
)
