// SPDX-License-Identifier: BSD-3-Clause

package wire

import (
	"bytes"
	"errors"
	"testing"
)

type frame struct {
	Cmd   string `json:"cmd"`
	Value int    `json:"value"`
}

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	in := frame{Cmd: "list_devices", Value: 42}
	if err := WriteFrame(&buf, in); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	var out frame
	if err := ReadFrame(&buf, &out); err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}

	if out != in {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestWriteFrameMultipleSequential(t *testing.T) {
	var buf bytes.Buffer

	frames := []frame{
		{Cmd: "a", Value: 1},
		{Cmd: "b", Value: 2},
		{Cmd: "c", Value: 3},
	}
	for _, f := range frames {
		if err := WriteFrame(&buf, f); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}

	for _, want := range frames {
		var got frame
		if err := ReadFrame(&buf, &got); err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		if got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	}
}

func TestReadFrameRejectsOversizedLengthPrefix(t *testing.T) {
	var buf bytes.Buffer
	var lenBuf [8]byte
	// Declare a length far beyond MaxFrameSize without providing a body;
	// ReadFrame must reject on the prefix alone, never attempting the read.
	for i := range lenBuf {
		lenBuf[i] = 0xff
	}
	buf.Write(lenBuf[:])

	var out frame
	err := ReadFrame(&buf, &out)
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("got err %v, want ErrFrameTooLarge", err)
	}
}

func TestReadFrameTruncatedStreamFails(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, frame{Cmd: "x", Value: 1}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	// Truncate the body so ReadFrame sees a short read.
	full := buf.Bytes()
	truncated := bytes.NewReader(full[:len(full)-2])

	var out frame
	err := ReadFrame(truncated, &out)
	if !errors.Is(err, ErrReadFailed) {
		t.Fatalf("got err %v, want ErrReadFailed", err)
	}
}

func TestReadFrameWrongJSONTypeFails(t *testing.T) {
	var buf bytes.Buffer
	// A []byte marshals to a JSON string, which cannot decode into a frame.
	if err := WriteFrame(&buf, []byte("not-a-json-object")); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	var out frame
	err := ReadFrame(&buf, &out)
	if !errors.Is(err, ErrDecodeFailed) {
		t.Fatalf("got err %v, want ErrDecodeFailed", err)
	}
}

func TestWriteFrameEncodeFailure(t *testing.T) {
	var buf bytes.Buffer
	// Channels are not JSON-marshalable; WriteFrame must surface ErrEncodeFailed.
	err := WriteFrame(&buf, make(chan int))
	if !errors.Is(err, ErrEncodeFailed) {
		t.Fatalf("got err %v, want ErrEncodeFailed", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing written on encode failure, got %d bytes", buf.Len())
	}
}
