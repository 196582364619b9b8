// SPDX-License-Identifier: BSD-3-Clause

// Package cpurepo implements the CPU Repository: a read-only reporter of
// CPU die temperature (via a prioritized hwmon driver/label allowlist) and
// overall CPU load percent (via /proc/stat deltas).
package cpurepo

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/coolerd/coolerd/pkg/device"
	"github.com/coolerd/coolerd/pkg/hwmon"
	"github.com/coolerd/coolerd/service/reposcommon"
)

var _ reposcommon.Repository = (*Repository)(nil)

const loadChannelName = "load"

// Repository is the CPU Repository.
type Repository struct {
	config
	discoverer *hwmon.Discoverer

	mu         sync.Mutex
	device     *device.Device
	tempInput  string
	tempLabel  string
	prevTotal  uint64
	prevIdle   uint64
	haveSample bool
}

// New constructs a Repository with the provided options applied over
// defaults.
func New(opts ...Option) *Repository {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(cfg)
	}
	return &Repository{
		config:     *cfg,
		discoverer: hwmon.NewDiscoverer(hwmon.WithDiscoveryPath(cfg.basePath)),
	}
}

// Name implements reposcommon.Repository.
func (r *Repository) Name() string { return r.name }

// Discover locates the CPU's temperature sensor by walking the driver and
// label allowlists in priority order. A repository with no matching sensor
// still reports CPU load, with no temp channel.
func (r *Repository) Discover(ctx context.Context) error {
	devs, err := r.discoverer.DiscoverDevices(ctx)
	if err != nil {
		return fmt.Errorf("discover hwmon devices: %w", err)
	}
	byName := make(map[string]*hwmon.Device, len(devs))
	for _, d := range devs {
		byName[d.Name] = d
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	info := device.Info{Name: "CPU", Channels: map[string]device.ChannelInfo{
		loadChannelName: {},
	}}

	for _, driver := range preferredDrivers {
		d, ok := byName[driver]
		if !ok {
			continue
		}
		sensors, err := d.GetSensorsByType(ctx, hwmon.SensorTypeTemperature)
		if err != nil {
			continue
		}
		sensor := pickPreferredSensor(sensors)
		if sensor == nil {
			continue
		}
		path, err := sensor.GetAttributePath(hwmon.AttributeInput)
		if err != nil {
			continue
		}
		info.Driver = driver
		r.tempInput = path
		r.tempLabel = sensor.Label
		break
	}

	r.device = device.NewDevice(device.Identity{Type: device.TypeCPU, TypeID: 1}, info)
	return nil
}

func pickPreferredSensor(sensors []*hwmon.SensorInfo) *hwmon.SensorInfo {
	for _, want := range preferredLabels {
		for _, s := range sensors {
			if strings.Contains(strings.ToLower(s.Label), want) {
				return s
			}
		}
	}
	if len(sensors) > 0 {
		return sensors[0]
	}
	return nil
}

// Statuses implements reposcommon.Repository.
func (r *Repository) Statuses() []*device.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.device == nil {
		return nil
	}
	return []*device.Device{r.device}
}

// UpdateStatuses implements reposcommon.Repository.
func (r *Repository) UpdateStatuses(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.device == nil {
		return nil
	}

	status := device.Status{}
	if r.tempInput != "" {
		raw, err := hwmon.ReadIntCtx(ctx, r.tempInput)
		if err == nil {
			status.Temps = append(status.Temps, device.TempStatus{
				Name:         "cpu",
				TempC:        float64(raw) / 1000.0,
				FrontendName: r.tempLabel,
				ExternalName: "cpu.package",
			})
		}
	}

	if loadPct, ok := r.sampleLoad(); ok {
		status.Channels = append(status.Channels, device.ChannelStatus{Name: loadChannelName, DutyPct: &loadPct})
	}

	r.device.ApplyStatus(status)
	return nil
}

// sampleLoad reads /proc/stat's aggregate cpu line and returns the percent
// busy since the previous sample. The first call has no prior sample to
// diff against and reports nothing.
func (r *Repository) sampleLoad() (int, bool) {
	f, err := os.Open(r.procStat)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return 0, false
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) < 5 || fields[0] != "cpu" {
		return 0, false
	}

	var total, idle uint64
	for i, field := range fields[1:] {
		v, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			continue
		}
		total += v
		if i == 3 || i == 4 { // idle, iowait
			idle += v
		}
	}

	defer func() {
		r.prevTotal, r.prevIdle, r.haveSample = total, idle, true
	}()

	if !r.haveSample {
		return 0, false
	}
	deltaTotal := total - r.prevTotal
	deltaIdle := idle - r.prevIdle
	if deltaTotal == 0 {
		return 0, false
	}
	pct := int(float64(deltaTotal-deltaIdle) / float64(deltaTotal) * 100)
	return pct, true
}

// SetSettings implements reposcommon.Repository: the CPU Repository owns
// no writeable channels.
func (r *Repository) SetSettings(ctx context.Context, deviceID int, s device.Setting) (reposcommon.StatusTag, error) {
	return reposcommon.ErrorTag(reposcommon.ReasonNotApplied), ErrNotWritable
}

// SetChannelToDefault implements reposcommon.Repository: a no-op, since
// there is no writeable state to restore.
func (r *Repository) SetChannelToDefault(ctx context.Context, deviceID int, channelName string) (reposcommon.StatusTag, error) {
	return reposcommon.StatusTag("CPU"), nil
}

// Shutdown implements reposcommon.Repository.
func (r *Repository) Shutdown(ctx context.Context) error { return nil }
