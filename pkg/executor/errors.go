// SPDX-License-Identifier: BSD-3-Clause

package executor

import "errors"

var (
	// ErrUnknownDevice indicates a job was submitted for a device id outside the configured range.
	ErrUnknownDevice = errors.New("unknown device id")
	// ErrShutdown indicates a job was submitted after Shutdown was called.
	ErrShutdown = errors.New("executor is shut down")
	// ErrCancelled indicates the future was cancelled before it produced a result.
	ErrCancelled = errors.New("job cancelled")
	// ErrTimeout indicates Result's context deadline elapsed before the job completed.
	ErrTimeout = errors.New("job timed out")
	// ErrAlreadyConfigured indicates SetNumberOfDevices was called more than once.
	ErrAlreadyConfigured = errors.New("executor already configured")
)
