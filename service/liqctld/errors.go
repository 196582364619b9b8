// SPDX-License-Identifier: BSD-3-Clause

package liqctld

import "errors"

var (
	// ErrCreateListener indicates the Unix socket listener could not be created.
	ErrCreateListener = errors.New("failed to create listener")
	// ErrHTTPServer indicates an error occurred while running the HTTP server.
	ErrHTTPServer = errors.New("HTTP server error")
	// ErrDeviceNotFound indicates a request referenced an unknown device ID.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrDriverNotInitialized indicates a status/speed/color request arrived before initialize.
	ErrDriverNotInitialized = errors.New("driver not initialized")
	// ErrInvalidRequest indicates a malformed request body.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnsupportedOperation indicates the driver does not support the requested operation.
	ErrUnsupportedOperation = errors.New("unsupported operation")
)
