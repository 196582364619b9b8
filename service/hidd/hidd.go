// SPDX-License-Identifier: BSD-3-Clause

// Package hidd implements the tiny privileged daemon that validates and
// applies hwmon PWM writes on behalf of the unprivileged main daemon and
// GUI, so that neither of them need elevated permissions.
package hidd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/user"
	"regexp"
	"strconv"
	"sync"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/coolerd/coolerd/pkg/log"
	"github.com/coolerd/coolerd/pkg/wire"
	"github.com/coolerd/coolerd/service"
)

var _ service.Service = (*HIDDaemon)(nil)

// response is the single reply shape used for every HID Daemon wire message
// (version negotiation, control commands, and path writes).
type response struct {
	Response string `json:"response"`
}

// HIDDaemon is a service.Service that owns the privileged hwmon-write Unix
// socket.
type HIDDaemon struct {
	config *config
	logger *slog.Logger
	tracer trace.Tracer
	path   *regexp.Regexp

	mu       sync.Mutex
	listener net.Listener
	owned    bool // true if this instance created the socket file (vs. inherited fd)
}

// New constructs a HIDDaemon with the provided options applied over
// defaults.
func New(opts ...Option) *HIDDaemon {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(cfg)
	}
	return &HIDDaemon{
		config: cfg,
		path:   regexp.MustCompile(cfg.pathPattern),
	}
}

// Name implements service.Service.
func (d *HIDDaemon) Name() string { return d.config.serviceName }

// Run implements service.Service. It listens for framed JSON requests and
// serves them until ctx is cancelled, then closes and (if it owns the
// socket file) unlinks the listening socket.
func (d *HIDDaemon) Run(ctx context.Context, _ nats.InProcessConnProvider) error {
	d.tracer = otel.Tracer(d.config.serviceName)
	ctx, span := d.tracer.Start(ctx, "Run")
	defer span.End()

	d.logger = log.GetGlobalLogger().With("service", d.config.serviceName)

	ln, owned, err := d.acquireListener()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrSocketSetupFailed, err)
	}

	d.mu.Lock()
	d.listener = ln
	d.owned = owned
	d.mu.Unlock()

	d.logger.InfoContext(ctx, "hidd listening", "owned_socket", owned)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				wg.Wait()
				return d.cleanup()
			default:
				d.logger.ErrorContext(ctx, "accept failed", "error", err)
				wg.Wait()
				return d.cleanup()
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.handleConn(ctx, conn)
		}()
	}
}

func (d *HIDDaemon) cleanup() error {
	if d.owned {
		_ = os.Remove(d.config.resolveSocketPath())
	}
	return nil
}

func (d *HIDDaemon) acquireListener() (net.Listener, bool, error) {
	if d.config.listenFD >= 0 {
		f := os.NewFile(uintptr(d.config.listenFD), "hidd-socket")
		ln, err := net.FileListener(f)
		if err != nil {
			return nil, false, err
		}
		return ln, false, nil
	}

	if fd, ok := systemdSocketFD(); ok {
		f := os.NewFile(uintptr(fd), "hidd-socket")
		ln, err := net.FileListener(f)
		if err != nil {
			return nil, false, err
		}
		return ln, false, nil
	}

	path := d.config.resolveSocketPath()
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, false, err
	}

	if err := applySocketPermissions(path, d.config.user); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, false, err
	}

	return ln, true, nil
}

// systemdSocketFD parses the LISTEN_PID/LISTEN_FDS env vars used by systemd
// socket activation. File descriptor 3 is the first passed descriptor.
func systemdSocketFD() (int, bool) {
	pidStr := os.Getenv("LISTEN_PID")
	fdsStr := os.Getenv("LISTEN_FDS")
	if pidStr == "" || fdsStr == "" {
		return 0, false
	}
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid != os.Getpid() {
		return 0, false
	}
	n, err := strconv.Atoi(fdsStr)
	if err != nil || n < 1 {
		return 0, false
	}
	return 3, true
}

func applySocketPermissions(path, user string) error {
	if err := os.Chmod(path, 0o770); err != nil {
		return err
	}
	if user == "" {
		return nil
	}
	u, err := lookupUser(user)
	if err != nil {
		return err
	}
	return os.Chown(path, -1, u)
}

func lookupUser(name string) (int, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return 0, err
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return 0, err
	}
	return gid, nil
}

func (d *HIDDaemon) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	for {
		var raw map[string]any
		if err := wire.ReadFrame(conn, &raw); err != nil {
			return
		}

		resp := d.dispatch(ctx, raw)
		if err := wire.WriteFrame(conn, resp); err != nil {
			d.logger.WarnContext(ctx, "failed to write response", "error", err)
			return
		}
		if _, ok := raw["cmd"]; ok {
			if cmd, _ := raw["cmd"].(string); cmd == "shutdown" {
				os.Exit(0)
			}
			if cmd, _ := raw["cmd"].(string); cmd == "close connection" {
				return
			}
		}
	}
}

func (d *HIDDaemon) dispatch(ctx context.Context, raw map[string]any) response {
	if v, ok := raw["version"]; ok {
		vs, _ := v.(string)
		if vs == ProtocolVersion {
			return response{Response: "version supported"}
		}
		return response{Response: "version NOT supported"}
	}

	if c, ok := raw["cmd"]; ok {
		cmd, _ := c.(string)
		switch cmd {
		case "close connection", "shutdown":
			return response{Response: "bye"}
		}
	}

	pathVal, hasPath := raw["path"]
	valueVal, hasValue := raw["value"]
	if hasPath && hasValue {
		path, _ := pathVal.(string)
		value, _ := valueVal.(string)
		return d.applyWrite(ctx, path, value)
	}

	return response{Response: "invalid path"}
}

func (d *HIDDaemon) applyWrite(ctx context.Context, path, value string) response {
	if !d.path.MatchString(path) {
		d.logger.WarnContext(ctx, "rejected invalid path", "path", path)
		return response{Response: "invalid path"}
	}

	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		d.logger.ErrorContext(ctx, "write failed", "path", path, "error", err)
		return response{Response: "setting failure"}
	}

	if d.config.debug {
		d.logger.DebugContext(ctx, "applied write", "path", path, "value", value)
	}
	return response{Response: "setting success"}
}
