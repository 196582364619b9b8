// SPDX-License-Identifier: BSD-3-Clause

package cpurepo

import "errors"

var (
	// ErrUnknownDevice indicates a settings call named a device id this
	// repository does not own.
	ErrUnknownDevice = errors.New("unknown cpu device")
	// ErrNotWritable indicates a write was attempted against the CPU
	// Repository, which exposes read-only temperature and load channels.
	ErrNotWritable = errors.New("cpu repository channels are read-only")
)
