// SPDX-License-Identifier: BSD-3-Clause

package sleeplistener

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/coolerd/coolerd/pkg/device"
	"github.com/coolerd/coolerd/service/reposcommon"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePauser struct {
	mu          sync.Mutex
	paused      bool
	pauseCalls  int
	resumeCalls int
}

func (p *fakePauser) Pause(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
	p.pauseCalls++
	return nil
}

func (p *fakePauser) Resume(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
	p.resumeCalls++
	return nil
}

type fakeRediscoverRepo struct {
	name          string
	discoverCalls int
}

func (r *fakeRediscoverRepo) Name() string                        { return r.name }
func (r *fakeRediscoverRepo) Statuses() []*device.Device           { return nil }
func (r *fakeRediscoverRepo) UpdateStatuses(context.Context) error { return nil }
func (r *fakeRediscoverRepo) SetSettings(context.Context, int, device.Setting) (reposcommon.StatusTag, error) {
	return "", nil
}
func (r *fakeRediscoverRepo) SetChannelToDefault(context.Context, int, string) (reposcommon.StatusTag, error) {
	return "", nil
}
func (r *fakeRediscoverRepo) Shutdown(context.Context) error { return nil }
func (r *fakeRediscoverRepo) Discover(ctx context.Context) error {
	r.discoverCalls++
	return nil
}

func newTestListener(p *fakePauser, repos []reposcommon.Repository) *SleepListener {
	return New(p, repos, WithStartupDelay(0), WithPostInitDelay(0))
}

func TestHandleSignalSleepPausesScheduler(t *testing.T) {
	p := &fakePauser{}
	s := newTestListener(p, nil)
	s.logger = discardLogger()

	sig := &dbus.Signal{
		Name: loginManagerInterface + "." + prepareForSleepMember,
		Body: []interface{}{true},
	}
	s.handleSignal(context.Background(), nil, sig, loginManagerInterface+"."+prepareForSleepMember)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused || p.pauseCalls != 1 {
		t.Fatalf("expected exactly one pause call, got paused=%v calls=%d", p.paused, p.pauseCalls)
	}
}

func TestHandleSignalResumeRediscoversAndResumes(t *testing.T) {
	p := &fakePauser{paused: true}
	repo := &fakeRediscoverRepo{name: "fake"}
	s := newTestListener(p, []reposcommon.Repository{repo})
	s.logger = discardLogger()

	sig := &dbus.Signal{
		Name: loginManagerInterface + "." + prepareForSleepMember,
		Body: []interface{}{false},
	}
	s.handleSignal(context.Background(), nil, sig, loginManagerInterface+"."+prepareForSleepMember)

	if repo.discoverCalls != 1 {
		t.Fatalf("expected one Discover call, got %d", repo.discoverCalls)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused || p.resumeCalls != 1 {
		t.Fatalf("expected scheduler resumed exactly once, got paused=%v calls=%d", p.paused, p.resumeCalls)
	}
}

func TestHandleSignalIgnoresWrongSignal(t *testing.T) {
	p := &fakePauser{}
	s := newTestListener(p, nil)
	s.logger = discardLogger()

	sig := &dbus.Signal{Name: "org.freedesktop.DBus.NameOwnerChanged", Body: []interface{}{"x"}}
	s.handleSignal(context.Background(), nil, sig, loginManagerInterface+"."+prepareForSleepMember)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pauseCalls != 0 || p.resumeCalls != 0 {
		t.Fatalf("expected no pause/resume calls for an unrelated signal")
	}
}

func TestWithStartupDelayFloorsBelowTwoSeconds(t *testing.T) {
	cfg := defaultConfig()
	WithStartupDelay(500 * time.Millisecond).apply(cfg)
	if cfg.startupDelay != 2*time.Second {
		t.Errorf("startupDelay = %v, want floor of 2s", cfg.startupDelay)
	}
}
