// SPDX-License-Identifier: BSD-3-Clause

// Package orchestrator wires together and supervises coolerd's internal
// services: the device repositories, the Speed Scheduler, the Sleep
// Listener, the Status Poller, and the IPC Server. It handles service
// lifecycle, inter-process communication setup, and provides a supervision
// tree for automatic service recovery.
package orchestrator

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"cirello.io/oversight/v2"
	"github.com/arunsworld/nursery"
	"github.com/nats-io/nats.go"

	"github.com/coolerd/coolerd/pkg/id"
	"github.com/coolerd/coolerd/pkg/log"
	"github.com/coolerd/coolerd/pkg/mount"
	"github.com/coolerd/coolerd/pkg/process"
	"github.com/coolerd/coolerd/pkg/telemetry"
	"github.com/coolerd/coolerd/service"
	"github.com/coolerd/coolerd/service/compositerepo"
	"github.com/coolerd/coolerd/service/coolingrepo"
	"github.com/coolerd/coolerd/service/cpurepo"
	"github.com/coolerd/coolerd/service/gpurepo"
	"github.com/coolerd/coolerd/service/hwmonrepo"
	ipcbus "github.com/coolerd/coolerd/service/ipcbus"
	"github.com/coolerd/coolerd/service/ipcserver"
	"github.com/coolerd/coolerd/service/reposcommon"
	"github.com/coolerd/coolerd/service/scheduler"
	"github.com/coolerd/coolerd/service/sleeplistener"
	"github.com/coolerd/coolerd/service/statuspoller"
)

const defaultLogo = `
   _____ ____   ____  _     ______ _____  _____
  / ____/ __ \ / __ \| |   |  ____|  __ \|  __ \
 | |   | |  | | |  | | |   | |__  | |__) | |  | |
 | |   | |  | | |  | | |   |  __| |  _  /| |  | |
 | |___| |__| | |__| | |___| |____| | \ \| |__| |
  \_____\____/ \____/|______|______|_|  \_\_____/
`

// Compile-time assertion that Orchestrator implements service.Service.
var _ service.Service = (*Orchestrator)(nil)

// Orchestrator manages the lifecycle of coolerd's services under a
// supervised, fault-tolerant process tree.
type Orchestrator struct {
	config

	repos []reposcommon.Repository
}

// New creates an Orchestrator with the standard coolerd service roster:
// the four source repositories (Hwmon, CPU, GPU, Cooling-lib), wrapped by a
// Composite Repository, feeding a Speed Scheduler, Sleep Listener, Status
// Poller, and IPC Server. Additional services can be added via
// WithExtraServices.
func New(opts ...Option) *Orchestrator {
	cfg := &config{
		name:      "coolerd",
		otelSetup: telemetry.DefaultSetup,
		logger:    log.NewDefaultLogger(),
		timeout:   10 * time.Second,
		ipcbus:    ipcbus.New(),
	}
	for _, opt := range opts {
		opt.apply(cfg)
	}

	hwmon := hwmonrepo.New(cfg.hwmonOpts...)
	cpu := cpurepo.New(cfg.cpuOpts...)
	gpu := gpurepo.New(cfg.gpuOpts...)
	cooling := coolingrepo.New(cfg.coolingOpts...)

	sources := []reposcommon.Repository{hwmon, cpu, gpu, cooling}
	composite := compositerepo.New(sources, cfg.compositeOpts...)
	allRepos := append(append([]reposcommon.Repository{}, sources...), composite)

	sched := scheduler.New(allRepos, cfg.schedulerOpts...)
	cfg.Scheduler = sched
	cfg.Sleeplistener = sleeplistener.New(sched, allRepos, cfg.sleeplistenerOpts...)
	cfg.Statuspoller = statuspoller.New(allRepos, cfg.statuspollerOpts...)
	cfg.Ipcserver = ipcserver.New(allRepos, sched, cfg.ipcserverOpts...)

	return &Orchestrator{
		config: *cfg,
		repos:  allRepos,
	}
}

// Name returns the orchestrator's configured service name.
func (o *Orchestrator) Name() string { return o.name }

// Run starts the orchestrator and every configured service under
// supervision. It runs until ctx is canceled or a fatal error occurs.
//
// ipcConn may be nil if an IPC bus is configured via WithIPCBus (the
// default). If both ipcConn and a configured bus are present, the external
// ipcConn takes precedence and the configured bus is not started.
func (o *Orchestrator) Run(ctx context.Context, ipcConn nats.InProcessConnProvider) (err error) {
	if o.name == "" {
		return ErrNameEmpty
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s %w: %v", o.Name(), ErrPanicked, r)
		}
	}()

	o.otelSetup()
	l := log.GetGlobalLogger()

	if o.id == "" {
		idStr, err := id.GetOrCreatePersistentID(o.Name(), "/var/lib/coolerd/id")
		if err != nil {
			l.ErrorContext(ctx, "failed to get/create persistent ID, using ephemeral ID", "error", err)
			o.id = id.NewID()
		} else {
			o.id = idStr
		}
	}

	if !o.disableLogo {
		if o.customLogo != "" {
			l.Info(o.customLogo)
		} else {
			l.Info(defaultLogo)
		}
	}

	l.InfoContext(ctx, "checking filesystem mounts", "service", o.name)
	if err := mount.SetupMounts(); err != nil {
		l.WarnContext(ctx, "failed to setup mounts correctly, continuing anyway", "service", o.name, "error", err)
	}

	supervisionTree := oversight.New(
		oversight.NeverHalt(),
		oversight.DefaultRestartStrategy(),
		oversight.WithLogger(log.NewOversightLogger(l)),
	)

	if o.ipcbus == nil && ipcConn == nil {
		return ErrIPCBusNil
	}

	if o.ipcbus != nil && ipcConn == nil {
		if err := supervisionTree.Add(
			process.New(o.ipcbus, nil),
			oversight.Transient(),
			oversight.Timeout(o.timeout),
			o.ipcbus.Name(),
		); err != nil {
			return fmt.Errorf("%w %s to tree: %w", ErrAddProcess, o.ipcbus.Name(), err)
		}
	}

	supervise := func(ctx context.Context, c chan error) {
		c <- supervisionTree.Start(ctx)
	}

	spawnProcs := func(ctx context.Context, c chan error) {
		var conn nats.InProcessConnProvider
		if ipcConn != nil {
			conn = ipcConn
		} else {
			conn = o.ipcbus.GetConnProvider()
		}

		// Dynamically add every service.Service field of config to the
		// supervision tree, so adding a new coolerd service only requires
		// exporting a field here, not touching Run.
		configValue := reflect.ValueOf(o.config)
		for i := range configValue.NumField() {
			field := configValue.Field(i)
			if !field.IsValid() || !field.CanInterface() {
				continue
			}
			v := field.Interface()
			if v == nil {
				continue
			}
			svc, ok := v.(service.Service)
			if !ok {
				continue
			}
			if err := supervisionTree.Add(
				process.New(svc, conn),
				oversight.Transient(),
				oversight.Timeout(o.timeout),
				svc.Name(),
			); err != nil {
				c <- fmt.Errorf("%w %s to tree: %w", ErrAddProcess, svc.Name(), err)
				return
			}
		}

		for _, svc := range o.extraServices {
			if err := supervisionTree.Add(
				process.New(svc, conn),
				oversight.Transient(),
				oversight.Timeout(o.timeout),
				svc.Name(),
			); err != nil {
				c <- fmt.Errorf("%w %s to tree: %w", ErrAddExtraService, svc.Name(), err)
				return
			}
		}
	}

	l.InfoContext(ctx, "starting child routines", "service", o.name)
	return nursery.RunConcurrentlyWithContext(ctx, supervise, spawnProcs)
}

// Shutdown resets every writable repository's channels to their firmware
// defaults before the process exits, so a crash or power cut doesn't leave
// hardware pinned at a stale fixed duty or profile.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	var firstErr error
	for _, r := range o.repos {
		for _, d := range r.Statuses() {
			for name, ch := range d.Info.Channels {
				if ch.SpeedOptions == nil {
					continue
				}
				if _, err := r.SetChannelToDefault(ctx, d.Identity.TypeID, name); err != nil && firstErr == nil {
					firstErr = err
				}
			}
		}
		if err := r.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
