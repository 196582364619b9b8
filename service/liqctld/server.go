// SPDX-License-Identifier: BSD-3-Clause

// Package liqctld implements the Cooling-lib Backend: a process isolated
// from the main daemon that speaks HTTP-over-Unix-socket JSON to the
// Device Repositories, wrapping per-device I/O behind the Device Executor
// and a two-phase status read/cache protocol.
package liqctld

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"github.com/coolerd/coolerd/pkg/executor"
	"github.com/coolerd/coolerd/pkg/log"
	"github.com/coolerd/coolerd/service"
)

var _ service.Service = (*Backend)(nil)

var deviceIDPattern = regexp.MustCompile(`^/devices/(\d+)(/.*)?$`)

// Backend is the Cooling-lib Backend service.Service implementation.
type Backend struct {
	config
	exec     *executor.Executor
	cache    *statusCache
	registry *registry
}

// New constructs a Backend with the provided options applied over
// defaults.
func New(opts ...Option) *Backend {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(cfg)
	}
	exec := executor.New()
	cache := newStatusCache()
	return &Backend{
		config:   *cfg,
		exec:     exec,
		cache:    cache,
		registry: newRegistry(exec, cache),
	}
}

// Name implements service.Service.
func (b *Backend) Name() string { return b.serviceName }

// Run implements service.Service: it listens on the backend's Unix socket
// until ctx is cancelled.
func (b *Backend) Run(ctx context.Context, _ nats.InProcessConnProvider) error {
	l := log.GetGlobalLogger().With("service", b.serviceName)
	tracer := otel.Tracer(b.serviceName)
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	_ = os.Remove(b.socketPath)
	ln, err := net.Listen("unix", b.socketPath)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrCreateListener, err)
	}
	defer ln.Close()

	if err := os.Chmod(b.socketPath, 0o600); err != nil {
		l.WarnContext(ctx, "failed to restrict backend socket permissions", "error", err)
	}

	srv := &http.Server{
		Handler:     otelhttp.NewHandler(b.router(), b.serviceName),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		b.registry.shutdownAll(shutdownCtx)
		b.exec.Shutdown()
		_ = srv.Shutdown(shutdownCtx)
	}()

	l.InfoContext(ctx, "backend listening", "socket", b.socketPath)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%w: %w", ErrHTTPServer, err)
	}
	return nil
}

func (b *Backend) router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/handshake", b.handleHandshake)
	mux.HandleFunc("/devices", b.handleDevices)
	mux.HandleFunc("/devices/", b.handleDeviceSubpath)
	mux.HandleFunc("/quit", b.handleQuit)
	return mux
}

func (b *Backend) handleHandshake(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HandshakeResponse{Shake: true})
}

func (b *Backend) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusBadRequest, "method not allowed")
		return
	}
	descriptors, err := b.registry.discover(r.Context(), b.deviceCount)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, descriptors)
}

func (b *Backend) handleDeviceSubpath(w http.ResponseWriter, r *http.Request) {
	m := deviceIDPattern.FindStringSubmatch(r.URL.Path)
	if m == nil {
		writeError(w, http.StatusNotFound, "unknown route")
		return
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid device id")
		return
	}

	switch m[2] {
	case "/legacy690":
		b.handleLegacy690(w, r, id)
	case "/initialize":
		b.handleInitialize(w, r, id)
	case "/status":
		b.handleStatus(w, r, id)
	case "/speed/fixed":
		b.handleSpeedFixed(w, r, id)
	case "/speed/profile":
		b.handleSpeedProfile(w, r, id)
	case "/color":
		b.handleColor(w, r, id)
	case "/screen":
		b.handleScreen(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "unknown route")
	}
}

func (b *Backend) handleLegacy690(w http.ResponseWriter, r *http.Request, id int) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusBadRequest, "method not allowed")
		return
	}
	already, err := b.registry.rebindLegacy690(r.Context(), id)
	if err != nil {
		writeDriverError(w, err)
		return
	}
	d, err := b.registry.driver(id)
	if err != nil {
		writeDriverError(w, err)
		return
	}
	if already {
		log.GetGlobalLogger().WarnContext(r.Context(), "device already legacy", "device_id", id)
	}
	writeJSON(w, http.StatusOK, describeDevice(id, d))
}

func (b *Backend) handleInitialize(w http.ResponseWriter, r *http.Request, id int) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusBadRequest, "method not allowed")
		return
	}
	var req InitializeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d, err := b.registry.driver(id)
	if err != nil {
		writeDriverError(w, err)
		return
	}
	future, err := b.exec.Submit(id-1, func(ctx context.Context) (any, error) {
		return d.Initialize(ctx, req.PumpMode)
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), b.deviceTimeout)
	defer cancel()
	result, err := future.Result(ctx)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result.([]StatusEntry))
}

func (b *Backend) handleStatus(w http.ResponseWriter, r *http.Request, id int) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusBadRequest, "method not allowed")
		return
	}
	d, err := b.registry.driver(id)
	if err != nil {
		writeDriverError(w, err)
		return
	}
	entries, err := readStatus(r.Context(), b.exec, b.cache, id-1, d, b.readTimeout, b.deviceTimeout)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: entries})
}

func (b *Backend) handleSpeedFixed(w http.ResponseWriter, r *http.Request, id int) {
	var req SpeedFixedRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b.submitWriteOp(w, r, id, func(ctx context.Context, d Driver) (any, error) {
		return nil, d.SetFixedSpeed(ctx, req.Channel, req.Duty)
	})
}

func (b *Backend) handleSpeedProfile(w http.ResponseWriter, r *http.Request, id int) {
	var req SpeedProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b.submitWriteOp(w, r, id, func(ctx context.Context, d Driver) (any, error) {
		return nil, d.SetSpeedProfile(ctx, req.Channel, req.Profile, req.TemperatureSensor)
	})
}

func (b *Backend) handleColor(w http.ResponseWriter, r *http.Request, id int) {
	var req ColorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b.submitWriteOp(w, r, id, func(ctx context.Context, d Driver) (any, error) {
		return nil, d.SetColor(ctx, req)
	})
}

func (b *Backend) handleScreen(w http.ResponseWriter, r *http.Request, id int) {
	var req ScreenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b.submitWriteOp(w, r, id, func(ctx context.Context, d Driver) (any, error) {
		return nil, d.SetScreen(ctx, req)
	})
}

func (b *Backend) submitWriteOp(w http.ResponseWriter, r *http.Request, id int, op func(context.Context, Driver) (any, error)) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusBadRequest, "method not allowed")
		return
	}
	d, err := b.registry.driver(id)
	if err != nil {
		writeDriverError(w, err)
		return
	}
	future, err := b.exec.Submit(id-1, func(ctx context.Context) (any, error) {
		return op(ctx, d)
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), b.deviceTimeout)
	defer cancel()
	if _, err := future.Result(ctx); err != nil {
		writeDriverError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (b *Backend) handleQuit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusBadRequest, "method not allowed")
		return
	}
	w.WriteHeader(http.StatusOK)
	go func() {
		time.Sleep(100 * time.Millisecond)
		os.Exit(0)
	}()
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIError{Code: status, Message: msg})
}

func writeDriverError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDeviceNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUnsupportedOperation):
		writeError(w, http.StatusExpectationFailed, err.Error())
	case errors.Is(err, ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
