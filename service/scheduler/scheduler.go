// SPDX-License-Identifier: BSD-3-Clause

// Package scheduler implements the Speed Scheduler: it evaluates
// temperature-to-duty profiles bound to device channels on every status
// update and applies the resulting duty through the owning repository, with
// EMA damping, duty clamping, and a minimum inter-apply spacing per channel.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/coolerd/coolerd/pkg/device"
	"github.com/coolerd/coolerd/pkg/log"
	"github.com/coolerd/coolerd/pkg/profile"
	ipcPkg "github.com/coolerd/coolerd/pkg/ipc"
	"github.com/coolerd/coolerd/pkg/state"
	"github.com/coolerd/coolerd/service"
	"github.com/coolerd/coolerd/service/reposcommon"
)

var _ service.Service = (*Scheduler)(nil)

type bindingKey struct {
	repo        reposcommon.Repository
	deviceID    int
	channelName string
}

// binding is one channel's active profile: a normalized curve, the limits
// it was normalized against, the temperature it reads, and the smoothing
// and apply-throttling state carried between evaluations.
type binding struct {
	profile    profile.Profile
	limits     profile.Limits
	tempSource device.TempSourceRef
	emaAlpha   float64

	haveSmoothed bool
	smoothedTemp float64
	haveDuty     bool
	lastDuty     int
	lastApplied  time.Time
}

// Scheduler is the Speed Scheduler service.
type Scheduler struct {
	config

	logger  *slog.Logger
	nc      *nats.Conn
	subs    []*nats.Subscription
	sources []reposcommon.Repository

	mu       sync.Mutex
	bindings map[bindingKey]*binding
	fsm      *state.FSM
}

// New constructs a Scheduler. sources is the full set of repositories the
// Status Poller refreshes; it is used to resolve TempSourceRef lookups
// across device families, not just the one a binding's channel belongs to.
func New(sources []reposcommon.Repository, opts ...Option) *Scheduler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(cfg)
	}

	fsm, err := state.New(state.NewConfig(
		state.WithName("scheduler-pause"),
		state.WithInitialState("running"),
		state.WithStates("running", "paused"),
		state.WithTransition("running", "paused", "pause"),
		state.WithTransition("paused", "running", "resume"),
	))
	if err != nil {
		// The transition table above is static and always valid; a failure
		// here would indicate a programming error in this package.
		panic(fmt.Sprintf("scheduler: building pause FSM: %v", err))
	}

	return &Scheduler{
		config:   *cfg,
		sources:  sources,
		bindings: make(map[bindingKey]*binding),
		fsm:      fsm,
	}
}

// Name implements service.Service.
func (s *Scheduler) Name() string { return s.name }

// Run implements service.Service: it connects to the internal bus, listens
// for status updates to drive evaluation, and listens for pause/resume
// requests from the Sleep Listener, until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context, ipcConn nats.InProcessConnProvider) error {
	s.logger = log.GetGlobalLogger().With("service", s.name)

	if err := s.fsm.Start(ctx); err != nil {
		return fmt.Errorf("starting pause state machine: %w", err)
	}

	nc, err := nats.Connect("", nats.InProcessServer(ipcConn))
	if err != nil {
		return fmt.Errorf("scheduler: connecting to ipc bus: %w", err)
	}
	s.nc = nc
	defer nc.Drain() //nolint:errcheck

	statusSub, err := nc.Subscribe(ipcPkg.SubjectStatusUpdated, func(*nats.Msg) {
		if err := s.Evaluate(ctx); err != nil {
			s.logger.WarnContext(ctx, "evaluation failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduler: subscribing to %s: %w", ipcPkg.SubjectStatusUpdated, err)
	}

	pauseSub, err := nc.Subscribe(ipcPkg.SubjectSchedulerPause, func(*nats.Msg) {
		if err := s.Pause(ctx); err != nil {
			s.logger.WarnContext(ctx, "pause failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduler: subscribing to %s: %w", ipcPkg.SubjectSchedulerPause, err)
	}

	resumeSub, err := nc.Subscribe(ipcPkg.SubjectSchedulerResume, func(*nats.Msg) {
		if err := s.Resume(ctx); err != nil {
			s.logger.WarnContext(ctx, "resume failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduler: subscribing to %s: %w", ipcPkg.SubjectSchedulerResume, err)
	}

	s.subs = []*nats.Subscription{statusSub, pauseSub, resumeSub}

	<-ctx.Done()

	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	return ctx.Err()
}

// SetProfile registers or replaces the active profile for one channel. The
// supplied points are normalized against limits immediately; emaAlpha in
// (0,1] enables exponential smoothing of the temperature reading before
// interpolation, 0 disables smoothing entirely.
func (s *Scheduler) SetProfile(repo reposcommon.Repository, deviceID int, channelName string, points []device.ProfilePoint, limits profile.Limits, tempSource device.TempSourceRef, emaAlpha float64) error {
	if repo == nil {
		return ErrNilRepository
	}
	if len(points) == 0 {
		return ErrEmptyProfile
	}

	raw := make(profile.Profile, len(points))
	for i, p := range points {
		raw[i] = profile.Point{TempC: p.TempC, Duty: p.Duty}
	}
	normalized := profile.Normalize(raw, limits)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[bindingKey{repo: repo, deviceID: deviceID, channelName: channelName}] = &binding{
		profile:    normalized,
		limits:     limits,
		tempSource: tempSource,
		emaAlpha:   emaAlpha,
	}
	return nil
}

// ClearProfile removes a channel's binding and restores the channel to its
// recorded default via the owning repository.
func (s *Scheduler) ClearProfile(ctx context.Context, repo reposcommon.Repository, deviceID int, channelName string) error {
	key := bindingKey{repo: repo, deviceID: deviceID, channelName: channelName}

	s.mu.Lock()
	_, ok := s.bindings[key]
	delete(s.bindings, key)
	s.mu.Unlock()

	if !ok {
		return ErrUnknownBinding
	}
	_, err := repo.SetChannelToDefault(ctx, deviceID, channelName)
	return err
}

// Pause suspends evaluation, used while the system prepares for sleep.
func (s *Scheduler) Pause(ctx context.Context) error {
	if s.fsm.IsInState("paused") {
		return nil
	}
	return s.fsm.Fire(ctx, "pause", nil)
}

// Resume re-enables evaluation after a sleep/resume cycle.
func (s *Scheduler) Resume(ctx context.Context) error {
	if s.fsm.IsInState("running") {
		return nil
	}
	return s.fsm.Fire(ctx, "resume", nil)
}

// Evaluate runs one evaluation pass over every registered binding. It is
// exported so the Status Poller (in-process) or tests can drive it directly
// instead of only through the status.updated bus subject.
func (s *Scheduler) Evaluate(ctx context.Context) error {
	if s.fsm.IsInState("paused") {
		return nil
	}

	s.mu.Lock()
	keys := make([]bindingKey, 0, len(s.bindings))
	for k := range s.bindings {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	now := time.Now()
	for _, k := range keys {
		s.mu.Lock()
		b, ok := s.bindings[k]
		s.mu.Unlock()
		if !ok {
			continue
		}
		s.evaluateBinding(ctx, k, b, now)
	}
	return nil
}

func (s *Scheduler) evaluateBinding(ctx context.Context, k bindingKey, b *binding, now time.Time) {
	tempC, ok := s.resolveTemp(b.tempSource)
	if !ok {
		return
	}

	s.mu.Lock()
	if b.emaAlpha > 0 && b.haveSmoothed {
		b.smoothedTemp = b.emaAlpha*tempC + (1-b.emaAlpha)*b.smoothedTemp
	} else {
		b.smoothedTemp = tempC
	}
	b.haveSmoothed = true
	effectiveTemp := tempC
	if b.emaAlpha > 0 {
		effectiveTemp = b.smoothedTemp
	}

	duty := profile.Interpolate(b.profile, int(effectiveTemp+0.5))

	dutyUnchanged := b.haveDuty && b.lastDuty == duty
	tooSoon := !b.lastApplied.IsZero() && now.Sub(b.lastApplied) < s.minApplyInterval
	s.mu.Unlock()

	if dutyUnchanged || tooSoon {
		return
	}

	fixed := duty
	_, err := k.repo.SetSettings(ctx, k.deviceID, device.Setting{ChannelName: k.channelName, Fixed: &fixed})
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "applying scheduled duty failed",
				"device_id", k.deviceID, "channel", k.channelName, "error", err)
		}
		return
	}

	s.mu.Lock()
	b.lastDuty = duty
	b.haveDuty = true
	b.lastApplied = now
	s.mu.Unlock()

	if s.nc != nil {
		_ = s.nc.Publish(ipcPkg.SubjectSchedulerApplied, []byte(k.channelName))
	}
}

func (s *Scheduler) resolveTemp(ref device.TempSourceRef) (float64, bool) {
	for _, src := range s.sources {
		for _, d := range src.Statuses() {
			if ref.Device != nil && d.Identity != *ref.Device {
				continue
			}
			if t, ok := d.TempByExternalName(ref.TempName); ok {
				return t.TempC, true
			}
		}
	}
	return 0, false
}

// Shutdown stops the pause FSM. It does not touch any bound channel; that
// is the owning repository's responsibility during its own Shutdown.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	return s.fsm.Stop(ctx)
}
