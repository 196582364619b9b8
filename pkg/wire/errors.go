// SPDX-License-Identifier: BSD-3-Clause

package wire

import "errors"

var (
	// ErrEncodeFailed indicates a value could not be marshaled to JSON.
	ErrEncodeFailed = errors.New("wire: failed to encode frame")
	// ErrDecodeFailed indicates a frame's JSON body could not be unmarshaled.
	ErrDecodeFailed = errors.New("wire: failed to decode frame")
	// ErrWriteFailed indicates a frame could not be written to the connection.
	ErrWriteFailed = errors.New("wire: failed to write frame")
	// ErrReadFailed indicates a frame could not be read from the connection.
	ErrReadFailed = errors.New("wire: failed to read frame")
	// ErrFrameTooLarge indicates a frame's declared length exceeds MaxFrameSize.
	ErrFrameTooLarge = errors.New("wire: frame exceeds maximum size")
)
