// SPDX-License-Identifier: BSD-3-Clause

// Package wire implements the length-prefixed JSON framing shared by the
// HID Daemon and IPC Server Unix-socket protocols: an 8-byte big-endian
// length prefix followed by a UTF-8 JSON object.
package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single frame to defend against a misbehaving peer
// claiming an enormous length prefix.
const MaxFrameSize = 4 << 20 // 4 MiB

// WriteFrame encodes v as JSON and writes it to w as a single length-prefixed
// frame.
func WriteFrame(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}

	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r and unmarshals it into v.
func ReadFrame(r io.Reader, v any) error {
	var lenBuf [8]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return fmt.Errorf("%w: %w", ErrReadFailed, err)
	}

	n := binary.BigEndian.Uint64(lenBuf[:])
	if n > MaxFrameSize {
		return ErrFrameTooLarge
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("%w: %w", ErrReadFailed, err)
	}

	if err := json.Unmarshal(buf, v); err != nil {
		return fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	return nil
}
