// SPDX-License-Identifier: BSD-3-Clause

package ipc

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// Default configuration values for the internal message bus.
const (
	DefaultServiceName        = "ipcbus"
	DefaultServiceDescription = "embedded NATS bus for coolerd-internal pub/sub and request/reply"
	DefaultServiceVersion     = "1.0.0"
	DefaultServerName         = "coolerd-ipcbus"
	DefaultStoreDir           = "/var/lib/coolerd/ipcbus"
	DefaultMaxMemory          = 64 * 1024 * 1024
	DefaultMaxStorage         = 256 * 1024 * 1024
	DefaultStartupTimeout     = 5 * time.Second
	DefaultShutdownTimeout    = 5 * time.Second
)

type config struct {
	serviceName                 string
	serviceDescription           string
	serviceVersion               string
	serverName                   string
	storeDir                     string
	enableJetStream              bool
	dontListen                   bool
	maxMemory                    int64
	maxStorage                   int64
	startupTimeout               time.Duration
	shutdownTimeout              time.Duration
	maxConnections               int
	maxControlLine               int32
	maxPayload                   int32
	writeDeadline                time.Duration
	pingInterval                 time.Duration
	maxPingsOut                  int
	enableSlowConsumerDetection  bool
	slowConsumerThreshold        time.Duration
}

// Validate checks the configuration for internal consistency.
func (c *config) Validate() error {
	if c.serviceName == "" {
		return fmt.Errorf("%w: service name is empty", ErrInvalidServerName)
	}
	if c.enableJetStream && c.storeDir == "" {
		return fmt.Errorf("%w: JetStream enabled without a store directory", ErrStorageDirInvalid)
	}
	if c.startupTimeout <= 0 {
		return fmt.Errorf("%w: startup timeout must be positive", ErrInvalidTimeout)
	}
	if c.shutdownTimeout <= 0 {
		return fmt.Errorf("%w: shutdown timeout must be positive", ErrInvalidTimeout)
	}
	return nil
}

// ToServerOptions translates config into nats-server options for an
// embedded, in-process-only server (no TCP listener).
func (c *config) ToServerOptions() *server.Options {
	opts := &server.Options{
		ServerName:         c.serverName,
		DontListen:         c.dontListen,
		JetStream:          c.enableJetStream,
		JetStreamMaxMemory: c.maxMemory,
		JetStreamMaxStore:  c.maxStorage,
		StoreDir:           c.storeDir,
		MaxConn:            c.maxConnections,
		MaxControlLine:     c.maxControlLine,
		MaxPayload:         c.maxPayload,
		WriteDeadline:      c.writeDeadline,
		PingInterval:       c.pingInterval,
		MaxPingsOut:        c.maxPingsOut,
	}
	return opts
}

// Option configures an IPC bus instance.
type Option interface {
	apply(*config)
}

type funcOption func(*config)

func (f funcOption) apply(c *config) { f(c) }

// WithServiceName overrides the service's registered name.
func WithServiceName(name string) Option {
	return funcOption(func(c *config) { c.serviceName = name })
}

// WithStoreDir overrides the JetStream storage directory.
func WithStoreDir(dir string) Option {
	return funcOption(func(c *config) { c.storeDir = dir })
}

// WithJetStream enables or disables JetStream persistence.
func WithJetStream(enabled bool) Option {
	return funcOption(func(c *config) { c.enableJetStream = enabled })
}

// WithMaxMemory overrides the JetStream in-memory storage limit in bytes.
func WithMaxMemory(bytes int64) Option {
	return funcOption(func(c *config) { c.maxMemory = bytes })
}

// WithMaxStorage overrides the JetStream file storage limit in bytes.
func WithMaxStorage(bytes int64) Option {
	return funcOption(func(c *config) { c.maxStorage = bytes })
}

// WithStartupTimeout overrides how long Run waits for the embedded server to
// become ready for connections.
func WithStartupTimeout(d time.Duration) Option {
	return funcOption(func(c *config) { c.startupTimeout = d })
}

// WithShutdownTimeout overrides how long shutdown waits for the server to
// finish shutting down before it gives up waiting.
func WithShutdownTimeout(d time.Duration) Option {
	return funcOption(func(c *config) { c.shutdownTimeout = d })
}
