// SPDX-License-Identifier: BSD-3-Clause

// Package hidclient is the HID Daemon's counterpart client: it dials the
// daemon's length-prefixed JSON socket and issues validated hwmon writes on
// behalf of repositories that must not run with write access themselves.
package hidclient

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/coolerd/coolerd/pkg/wire"
)

var (
	// ErrRejected indicates the daemon rejected a path or the write itself failed.
	ErrRejected = errors.New("hidclient: write rejected")
	// ErrUnsupportedVersion indicates the daemon reported protocol mismatch.
	ErrUnsupportedVersion = errors.New("hidclient: unsupported protocol version")
)

const protocolVersion = "1"

// Client is a connection to the HID Daemon socket. It is safe for
// concurrent use; requests are serialized over the single connection.
type Client struct {
	socketPath string

	mu   sync.Mutex
	conn net.Conn
}

// New returns a Client bound to socketPath. The connection is established
// lazily on first use.
func New(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

func (c *Client) ensureConn() (net.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("dial hidd socket: %w", err)
	}
	c.conn = conn
	return conn, nil
}

type response struct {
	Response string `json:"response"`
}

// Handshake verifies the daemon speaks the expected protocol version.
func (c *Client) Handshake() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.ensureConn()
	if err != nil {
		return err
	}
	if err := wire.WriteFrame(conn, map[string]string{"version": protocolVersion}); err != nil {
		return err
	}
	var resp response
	if err := wire.ReadFrame(conn, &resp); err != nil {
		return err
	}
	if resp.Response != "version supported" {
		return ErrUnsupportedVersion
	}
	return nil
}

// WriteAttr sends a single path/value write and reports whether the daemon
// applied it.
func (c *Client) WriteAttr(path, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.ensureConn()
	if err != nil {
		return err
	}
	if err := wire.WriteFrame(conn, map[string]string{"path": path, "value": value}); err != nil {
		return err
	}
	var resp response
	if err := wire.ReadFrame(conn, &resp); err != nil {
		return err
	}
	if resp.Response != "setting success" {
		return fmt.Errorf("%w: %s", ErrRejected, resp.Response)
	}
	return nil
}

// Close closes the underlying connection, if open.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
