// SPDX-License-Identifier: BSD-3-Clause

package liqctld

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newUnixHTTPServer(t *testing.T, handler http.HandlerFunc) (socketPath string, shutdown func()) {
	t.Helper()

	socketPath = filepath.Join(t.TempDir(), "liqctld-test.sock")
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	srv := &http.Server{Handler: handler}
	go srv.Serve(ln) //nolint:errcheck

	return socketPath, func() {
		srv.Close()
		os.Remove(socketPath)
	}
}

func TestClientHandshakeSucceeds(t *testing.T) {
	sock, shutdown := newUnixHTTPServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"shake":true}`))
	})
	defer shutdown()

	c := NewClient(sock, time.Second)
	ok, err := c.Handshake(context.Background())
	if err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if !ok {
		t.Fatal("expected Handshake to report true")
	}
}

func TestClientRequestTimeoutFallbackApplies(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	sock, shutdown := newUnixHTTPServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer shutdown()

	// A context with no deadline must still be bounded by the client's
	// configured requestTimeout rather than hanging indefinitely.
	c := NewClient(sock, 20*time.Millisecond)
	_, err := c.Handshake(context.Background())
	if err == nil {
		t.Fatal("expected Handshake to fail once the fallback timeout elapses")
	}
	if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrHTTPServer) {
		t.Fatalf("got err %v, want a deadline/transport failure", err)
	}
}

func TestClientRespectsCallerDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	sock, shutdown := newUnixHTTPServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer shutdown()

	// requestTimeout is generous; the caller's own short deadline should be
	// the one that actually fires.
	c := NewClient(sock, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Handshake(ctx)
	if err == nil {
		t.Fatal("expected Handshake to fail once the caller's deadline elapses")
	}
}

func TestNewClientDefaultsNonPositiveTimeout(t *testing.T) {
	c := NewClient("/tmp/does-not-matter.sock", 0)
	if c.requestTimeout != defaultHTTPTimeout {
		t.Fatalf("requestTimeout = %v, want %v", c.requestTimeout, defaultHTTPTimeout)
	}
}
