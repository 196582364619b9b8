// SPDX-License-Identifier: BSD-3-Clause

// Package statuspoller implements the Status Poller: a 1Hz (by default)
// sequential fan-out of UpdateStatuses across every registered device
// repository, in a stable order, skipping a tick entirely if the previous
// one is still running.
package statuspoller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	ipcPkg "github.com/coolerd/coolerd/pkg/ipc"
	"github.com/coolerd/coolerd/pkg/log"
	"github.com/coolerd/coolerd/service"
	"github.com/coolerd/coolerd/service/reposcommon"
)

var _ service.Service = (*Poller)(nil)

// Poller is the Status Poller service.
type Poller struct {
	config

	repos  []reposcommon.Repository
	logger *slog.Logger

	mu      sync.Mutex
	running bool
}

// New constructs a Poller over repos, polled in the given order on every
// tick.
func New(repos []reposcommon.Repository, opts ...Option) *Poller {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(cfg)
	}
	return &Poller{
		config: *cfg,
		repos:  repos,
	}
}

// Name implements service.Service.
func (p *Poller) Name() string { return p.name }

// Run implements service.Service: it ticks at the configured interval,
// fanning UpdateStatuses out across every repository and publishing a
// status.updated notification on the internal bus after each completed
// tick, until ctx is canceled.
func (p *Poller) Run(ctx context.Context, ipcConn nats.InProcessConnProvider) error {
	p.logger = log.GetGlobalLogger().With("service", p.name)

	if len(p.repos) == 0 {
		return ErrNoRepositories
	}

	nc, err := nats.Connect("", nats.InProcessServer(ipcConn))
	if err != nil {
		return fmt.Errorf("statuspoller: connecting to ipc bus: %w", err)
	}
	defer nc.Drain() //nolint:errcheck

	ticker := time.NewTicker(p.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx, nc)
		}
	}
}

func (p *Poller) tick(ctx context.Context, nc *nats.Conn) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		p.logger.WarnContext(ctx, "skipping tick, previous tick still in progress")
		return
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	p.UpdateAll(ctx)

	if nc != nil {
		_ = nc.Publish(ipcPkg.SubjectStatusUpdated, nil)
	}
}

// UpdateAll calls UpdateStatuses on every repository in order, logging but
// not aborting on a single repository's failure. Exported so tests and the
// in-process orchestrator can drive a tick without a live NATS connection.
func (p *Poller) UpdateAll(ctx context.Context) {
	for _, r := range p.repos {
		if err := r.UpdateStatuses(ctx); err != nil {
			if p.logger != nil {
				p.logger.WarnContext(ctx, "update statuses failed", "repository", r.Name(), "error", err)
			}
		}
	}
}

// Shutdown implements a graceful stop; the Status Poller holds no resources
// of its own beyond the NATS connection released when Run returns.
func (p *Poller) Shutdown(context.Context) error { return nil }
