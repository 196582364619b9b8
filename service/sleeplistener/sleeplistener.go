// SPDX-License-Identifier: BSD-3-Clause

// Package sleeplistener implements the Sleep Listener: it subscribes to
// systemd-logind's PrepareForSleep signal over D-Bus and coordinates the
// Speed Scheduler and device repositories around suspend/resume so that
// fan/pump control doesn't fight a system that is about to lose USB power.
package sleeplistener

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/nats-io/nats.go"

	ipcPkg "github.com/coolerd/coolerd/pkg/ipc"
	"github.com/coolerd/coolerd/pkg/log"
	"github.com/coolerd/coolerd/service"
	"github.com/coolerd/coolerd/service/reposcommon"
)

var _ service.Service = (*SleepListener)(nil)

// pauser is the subset of the Speed Scheduler's API the Sleep Listener
// drives directly, kept narrow to avoid a hard dependency on the scheduler
// package's internals.
type pauser interface {
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
}

// rediscoverer is implemented by repositories that can re-probe their
// devices after a resume, when buses may have been re-enumerated.
type rediscoverer interface {
	Discover(ctx context.Context) error
}

// SleepListener is the Sleep Listener service.
type SleepListener struct {
	config

	scheduler pauser
	repos     []reposcommon.Repository

	logger *slog.Logger
	conn   *dbus.Conn
}

// New constructs a SleepListener. scheduler is paused on sleep and resumed
// after the post-resume sequence completes; repos are re-discovered on
// resume for those that implement Discover.
func New(scheduler pauser, repos []reposcommon.Repository, opts ...Option) *SleepListener {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(cfg)
	}
	return &SleepListener{
		config:    *cfg,
		scheduler: scheduler,
		repos:     repos,
	}
}

// Name implements service.Service.
func (s *SleepListener) Name() string { return s.name }

// Run implements service.Service: it connects to the system D-Bus, listens
// for PrepareForSleep until ctx is canceled, and reacts on the internal bus.
func (s *SleepListener) Run(ctx context.Context, ipcConn nats.InProcessConnProvider) error {
	s.logger = log.GetGlobalLogger().With("service", s.name)

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDBusConnectFailed, err)
	}
	s.conn = conn
	defer conn.Close() //nolint:errcheck

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(loginManagerPath),
		dbus.WithMatchInterface(loginManagerInterface),
		dbus.WithMatchMember(prepareForSleepMember),
	); err != nil {
		return fmt.Errorf("%w: %w", ErrAddMatchFailed, err)
	}

	sigCh := make(chan *dbus.Signal, 8)
	conn.Signal(sigCh)
	defer conn.RemoveSignal(sigCh)

	nc, err := nats.Connect("", nats.InProcessServer(ipcConn))
	if err != nil {
		return fmt.Errorf("sleeplistener: connecting to ipc bus: %w", err)
	}
	defer nc.Drain() //nolint:errcheck

	s.logger.InfoContext(ctx, "listening for logind PrepareForSleep signals")

	wantSignal := loginManagerInterface + "." + prepareForSleepMember
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-sigCh:
			if !ok {
				return nil
			}
			s.handleSignal(ctx, nc, sig, wantSignal)
		}
	}
}

func (s *SleepListener) handleSignal(ctx context.Context, nc *nats.Conn, sig *dbus.Signal, wantSignal string) {
	if sig.Name != wantSignal || len(sig.Body) != 1 {
		return
	}
	sleeping, ok := sig.Body[0].(bool)
	if !ok {
		return
	}
	if sleeping {
		s.handleSleep(ctx, nc)
	} else {
		s.handleResume(ctx, nc)
	}
}

func (s *SleepListener) handleSleep(ctx context.Context, nc *nats.Conn) {
	s.logger.InfoContext(ctx, "system preparing for sleep, pausing scheduler")
	if err := s.scheduler.Pause(ctx); err != nil {
		s.logger.WarnContext(ctx, "pausing scheduler failed", "error", err)
	}
	if nc != nil {
		_ = nc.Publish(ipcPkg.SubjectSleepPrepare, nil)
	}
}

func (s *SleepListener) handleResume(ctx context.Context, nc *nats.Conn) {
	s.logger.InfoContext(ctx, "system resumed, re-initializing devices", "startup_delay", s.startupDelay)

	if !sleepCtx(ctx, s.startupDelay) {
		return
	}

	for _, r := range s.repos {
		rd, ok := r.(rediscoverer)
		if !ok {
			continue
		}
		if err := rd.Discover(ctx); err != nil {
			s.logger.WarnContext(ctx, "re-discovery after resume failed", "repository", r.Name(), "error", err)
		}
	}

	if !sleepCtx(ctx, s.postInitDelay) {
		return
	}

	if err := s.scheduler.Resume(ctx); err != nil {
		s.logger.WarnContext(ctx, "resuming scheduler failed", "error", err)
	}
	if nc != nil {
		_ = nc.Publish(ipcPkg.SubjectSleepResume, nil)
	}
}

// sleepCtx waits for d, returning false early if ctx is canceled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
