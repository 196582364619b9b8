// SPDX-License-Identifier: BSD-3-Clause

package scheduler

import "errors"

var (
	// ErrUnknownBinding indicates an operation referenced a channel binding
	// that was never registered with SetProfile.
	ErrUnknownBinding = errors.New("scheduler: unknown channel binding")
	// ErrEmptyProfile indicates SetProfile was called with no points.
	ErrEmptyProfile = errors.New("scheduler: profile must have at least one point")
	// ErrNilRepository indicates a binding was registered with a nil repository.
	ErrNilRepository = errors.New("scheduler: repository cannot be nil")
)
