// SPDX-License-Identifier: BSD-3-Clause

package orchestrator

import (
	"log/slog"
	"time"

	"github.com/coolerd/coolerd/service"
	"github.com/coolerd/coolerd/service/compositerepo"
	"github.com/coolerd/coolerd/service/coolingrepo"
	"github.com/coolerd/coolerd/service/cpurepo"
	"github.com/coolerd/coolerd/service/gpurepo"
	"github.com/coolerd/coolerd/service/hwmonrepo"
	ipcbus "github.com/coolerd/coolerd/service/ipcbus"
	"github.com/coolerd/coolerd/service/ipcserver"
	"github.com/coolerd/coolerd/service/scheduler"
	"github.com/coolerd/coolerd/service/sleeplistener"
	"github.com/coolerd/coolerd/service/statuspoller"
)

type config struct {
	name        string
	id          string
	disableLogo bool
	customLogo  string
	otelSetup   func()
	logger      *slog.Logger
	timeout     time.Duration

	// ipcbus needs special handling: when Run is given an external ipcConn,
	// that connection is used and the configured bus is not started.
	ipcbus *ipcbus.IPC

	hwmonOpts        []hwmonrepo.Option
	cpuOpts          []cpurepo.Option
	gpuOpts          []gpurepo.Option
	coolingOpts      []coolingrepo.Option
	compositeOpts    []compositerepo.Option
	schedulerOpts    []scheduler.Option
	sleeplistenerOpts []sleeplistener.Option
	statuspollerOpts []statuspoller.Option
	ipcserverOpts    []ipcserver.Option

	// Everything of type service.Service needs to be exported so Run's
	// reflective scan picks it up and adds it to the supervision tree.
	Scheduler     service.Service
	Sleeplistener service.Service
	Statuspoller  service.Service
	Ipcserver     service.Service

	extraServices []service.Service
}

// Option configures an Orchestrator instance.
type Option interface {
	apply(*config)
}

type funcOption func(*config)

func (f funcOption) apply(c *config) { f(c) }

// WithName sets the orchestrator's service name.
func WithName(name string) Option {
	return funcOption(func(c *config) { c.name = name })
}

// WithID sets a fixed persistent instance ID, bypassing the on-disk
// persistent-ID lookup.
func WithID(id string) Option {
	return funcOption(func(c *config) { c.id = id })
}

// WithDisableLogo suppresses the startup logo.
func WithDisableLogo(disable bool) Option {
	return funcOption(func(c *config) { c.disableLogo = disable })
}

// WithCustomLogo replaces the default startup logo text.
func WithCustomLogo(logo string) Option {
	return funcOption(func(c *config) { c.customLogo = logo })
}

// WithOtelSetup overrides the OpenTelemetry initialization function run at
// startup.
func WithOtelSetup(setup func()) Option {
	return funcOption(func(c *config) { c.otelSetup = setup })
}

// WithLogger overrides the orchestrator's structured logger.
func WithLogger(logger *slog.Logger) Option {
	return funcOption(func(c *config) { c.logger = logger })
}

// WithTimeout sets the supervision tree's per-process startup timeout.
func WithTimeout(timeout time.Duration) Option {
	return funcOption(func(c *config) { c.timeout = timeout })
}

// WithIPCBus replaces the default embedded message bus with one built from
// the given options. An ipcConn passed to Run takes precedence over any
// configured bus, whether or not this option is used.
func WithIPCBus(opts ...ipcbus.Option) Option {
	return funcOption(func(c *config) { c.ipcbus = ipcbus.New(opts...) })
}

// WithHwmonrepo configures the Hwmon Repository.
func WithHwmonrepo(opts ...hwmonrepo.Option) Option {
	return funcOption(func(c *config) { c.hwmonOpts = opts })
}

// WithCpurepo configures the CPU Repository.
func WithCpurepo(opts ...cpurepo.Option) Option {
	return funcOption(func(c *config) { c.cpuOpts = opts })
}

// WithGpurepo configures the GPU Repository.
func WithGpurepo(opts ...gpurepo.Option) Option {
	return funcOption(func(c *config) { c.gpuOpts = opts })
}

// WithCoolingrepo configures the Cooling-lib Repository.
func WithCoolingrepo(opts ...coolingrepo.Option) Option {
	return funcOption(func(c *config) { c.coolingOpts = opts })
}

// WithCompositerepo configures the Composite Repository.
func WithCompositerepo(opts ...compositerepo.Option) Option {
	return funcOption(func(c *config) { c.compositeOpts = opts })
}

// WithScheduler configures the Speed Scheduler.
func WithScheduler(opts ...scheduler.Option) Option {
	return funcOption(func(c *config) { c.schedulerOpts = opts })
}

// WithSleeplistener configures the Sleep Listener.
func WithSleeplistener(opts ...sleeplistener.Option) Option {
	return funcOption(func(c *config) { c.sleeplistenerOpts = opts })
}

// WithStatuspoller configures the Status Poller.
func WithStatuspoller(opts ...statuspoller.Option) Option {
	return funcOption(func(c *config) { c.statuspollerOpts = opts })
}

// WithIpcserver configures the IPC Server.
func WithIpcserver(opts ...ipcserver.Option) Option {
	return funcOption(func(c *config) { c.ipcserverOpts = opts })
}

// WithExtraServices adds additional custom services to run alongside the
// standard coolerd roster.
func WithExtraServices(services ...service.Service) Option {
	return funcOption(func(c *config) { c.extraServices = services })
}
