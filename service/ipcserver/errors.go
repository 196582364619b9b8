// SPDX-License-Identifier: BSD-3-Clause

package ipcserver

import "errors"

var (
	// ErrSocketSetupFailed indicates the Unix socket could not be created.
	ErrSocketSetupFailed = errors.New("ipcserver: socket setup failed")
	// ErrUnknownCommand indicates a request's cmd field was not recognized.
	ErrUnknownCommand = errors.New("ipcserver: unknown command")
	// ErrUnknownDevice indicates a request referenced a device that no
	// registered repository owns.
	ErrUnknownDevice = errors.New("ipcserver: unknown device")
	// ErrUnknownMode indicates apply_mode referenced a mode that was never
	// saved.
	ErrUnknownMode = errors.New("ipcserver: unknown mode")
	// ErrMissingSetting indicates apply_setting was sent with no setting body.
	ErrMissingSetting = errors.New("ipcserver: missing setting")
)
