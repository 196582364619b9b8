// SPDX-License-Identifier: BSD-3-Clause

// Package compositerepo implements the Composite Repository: a single
// synthetic device whose temps are averages and deltas computed across the
// other repositories' latest status snapshots, active only when the user
// opts in (enable_composite_temps).
package compositerepo

import (
	"context"
	"sync"

	"github.com/coolerd/coolerd/pkg/device"
	"github.com/coolerd/coolerd/service/reposcommon"
)

var _ reposcommon.Repository = (*Repository)(nil)

const (
	averageChannelName = "average"
	deltaChannelName   = "delta"
)

// Repository is the Composite Repository.
type Repository struct {
	config

	mu      sync.Mutex
	sources []reposcommon.Repository
	device  *device.Device
}

// New constructs a Repository over the given source repositories, whose
// Statuses() are read on every UpdateStatuses call. Sources are not owned:
// the Composite Repository never calls SetSettings or Shutdown on them.
func New(sources []reposcommon.Repository, opts ...Option) *Repository {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(cfg)
	}
	info := device.Info{Name: "Composite", Driver: "composite"}
	return &Repository{
		config:  *cfg,
		sources: sources,
		device:  device.NewDevice(device.Identity{Type: device.TypeComposite, TypeID: 1}, info),
	}
}

// Name implements reposcommon.Repository.
func (r *Repository) Name() string { return r.name }

// Statuses implements reposcommon.Repository.
func (r *Repository) Statuses() []*device.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return []*device.Device{r.device}
}

// UpdateStatuses implements reposcommon.Repository: gathers every temp
// across every source device's current status and synthesizes an average
// and a delta (max - min). With fewer than one temp reading available,
// nothing is synthesized for this tick.
func (r *Repository) UpdateStatuses(ctx context.Context) error {
	r.mu.Lock()
	sources := make([]reposcommon.Repository, len(r.sources))
	copy(sources, r.sources)
	r.mu.Unlock()

	var temps []float64
	for _, src := range sources {
		for _, d := range src.Statuses() {
			for _, t := range d.Status().Temps {
				temps = append(temps, t.TempC)
			}
		}
	}
	if len(temps) == 0 {
		return nil
	}

	minC, maxC, sum := temps[0], temps[0], 0.0
	for _, t := range temps {
		if t < minC {
			minC = t
		}
		if t > maxC {
			maxC = t
		}
		sum += t
	}
	avg := sum / float64(len(temps))

	status := device.Status{
		Temps: []device.TempStatus{
			{Name: averageChannelName, TempC: avg, FrontendName: "Average", ExternalName: "composite.average"},
			{Name: deltaChannelName, TempC: maxC - minC, FrontendName: "Delta", ExternalName: "composite.delta"},
		},
	}
	r.device.ApplyStatus(status)
	return nil
}

// SetSettings implements reposcommon.Repository: the Composite Repository
// owns no writeable channels.
func (r *Repository) SetSettings(ctx context.Context, deviceID int, s device.Setting) (reposcommon.StatusTag, error) {
	return reposcommon.ErrorTag(reposcommon.ReasonNotApplied), ErrNotWritable
}

// SetChannelToDefault implements reposcommon.Repository.
func (r *Repository) SetChannelToDefault(ctx context.Context, deviceID int, channelName string) (reposcommon.StatusTag, error) {
	return reposcommon.StatusTag("Composite"), nil
}

// Shutdown implements reposcommon.Repository.
func (r *Repository) Shutdown(ctx context.Context) error { return nil }
