// SPDX-License-Identifier: BSD-3-Clause

package hidd

import "errors"

var (
	// ErrInvalidPath indicates a request path failed the hwmon path guard regex.
	ErrInvalidPath = errors.New("invalid path")
	// ErrWriteFailed indicates the underlying sysfs write failed.
	ErrWriteFailed = errors.New("setting failure")
	// ErrSocketSetupFailed indicates the Unix socket could not be created or inherited.
	ErrSocketSetupFailed = errors.New("hidd: socket setup failed")
	// ErrUnsupportedVersion indicates a client requested an unsupported protocol version.
	ErrUnsupportedVersion = errors.New("hidd: unsupported protocol version")
	// ErrNoSocketProvided indicates neither a pre-opened fd nor a creatable path was available.
	ErrNoSocketProvided = errors.New("hidd: no socket available")
)
