// SPDX-License-Identifier: BSD-3-Clause

// Package hwmonrepo implements the Hwmon Repository: it enumerates Linux
// hwmon pwm* and temp*_input attributes directly via sysfs reads and
// routes every write through the HID Daemon, since the repository itself
// runs unprivileged.
package hwmonrepo

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/coolerd/coolerd/pkg/device"
	"github.com/coolerd/coolerd/pkg/hidclient"
	"github.com/coolerd/coolerd/pkg/hwmon"
	"github.com/coolerd/coolerd/pkg/log"
	"github.com/coolerd/coolerd/service/reposcommon"
)

var _ reposcommon.Repository = (*Repository)(nil)

type pwmChannel struct {
	name          string
	enablePath    string
	valuePath     string
	modePath      string
	enableDefault int
	modeSupported bool
}

type tempChannel struct {
	name      string
	label     string
	inputPath string
}

type hwmonDevice struct {
	id     int
	driver string
	device *device.Device
	pwms   map[string]*pwmChannel
	temps  map[string]*tempChannel
}

// Repository is the Hwmon Repository.
type Repository struct {
	config
	hid        *hidclient.Client
	discoverer *hwmon.Discoverer
	logger     *slog.Logger

	mu      sync.Mutex
	devices []*hwmonDevice
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
		hid:        hidclient.New(cfg.hidSocketPath),
		discoverer: hwmon.NewDiscoverer(hwmon.WithDiscoveryPath(cfg.basePath)),
		logger:     log.GetGlobalLogger().With("repository", cfg.name),
	}
}

// Name implements reposcommon.Repository.
func (r *Repository) Name() string { return r.name }

// Discover enumerates hwmon devices and their pwm/temp attributes, skipping
// drivers already owned by the Cooling-lib Repository.
func (r *Repository) Discover(ctx context.Context) error {
	devs, err := r.discoverer.DiscoverDevices(ctx)
	if err != nil {
		return fmt.Errorf("discover hwmon devices: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := 0
	for _, d := range devs {
		if r.ownedByCooling[d.Name] {
			continue
		}
		id++
		hd := r.buildDevice(ctx, id, d)
		r.devices = append(r.devices, hd)
	}
	return nil
}

func (r *Repository) buildDevice(ctx context.Context, id int, d *hwmon.Device) *hwmonDevice {
	isLaptop := laptopDrivers[d.Name]

	pwmSensors, err := d.GetSensorsByType(ctx, hwmon.SensorTypePWM)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to enumerate pwm sensors", "device", d.Name, "error", err)
	}
	tempSensors, err := d.GetSensorsByType(ctx, hwmon.SensorTypeTemperature)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to enumerate temp sensors", "device", d.Name, "error", err)
	}
	fanSensors, err := d.GetSensorsByType(ctx, hwmon.SensorTypeFan)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to enumerate fan sensors", "device", d.Name, "error", err)
	}
	fanByIndex := make(map[int]*hwmon.SensorInfo, len(fanSensors))
	for _, s := range fanSensors {
		fanByIndex[s.Index] = s
	}

	channels := make(map[string]device.ChannelInfo)
	pwms := make(map[string]*pwmChannel)
	for _, s := range pwmSensors {
		valuePath, err := s.GetAttributePath(hwmon.AttributeInput)
		if err != nil {
			continue
		}
		pc := &pwmChannel{name: s.Name, valuePath: valuePath}
		if p, err := s.GetAttributePath(hwmon.AttributeEnable); err == nil {
			pc.enablePath = p
			if v, err := hwmon.ReadIntCtx(ctx, p); err == nil {
				pc.enableDefault = v
			}
		}

		if !isLaptop && r.enableFilter && r.looksUnconnected(ctx, pc, fanByIndex[s.Index]) {
			continue
		}

		pc.modeSupported, pc.modePath = r.probeMode(ctx, s)

		pwms[pc.name] = pc
		channels[pc.name] = device.ChannelInfo{
			SpeedOptions: &device.SpeedOptions{
				MinDuty:      0,
				MaxDuty:      100,
				FixedEnabled: true,
			},
		}
	}

	temps := make(map[string]*tempChannel)
	for _, s := range tempSensors {
		if r.cpuOwnedSensors[s.Label] {
			continue
		}
		inputPath, err := s.GetAttributePath(hwmon.AttributeInput)
		if err != nil {
			continue
		}
		temps[s.Name] = &tempChannel{name: s.Name, label: s.Label, inputPath: inputPath}
	}

	info := device.Info{
		Name:     d.Name,
		Driver:   d.Name,
		Channels: channels,
	}

	dv := device.NewDevice(device.Identity{Type: device.TypeHwmon, TypeID: id}, info)
	return &hwmonDevice{id: id, driver: d.Name, device: dv, pwms: pwms, temps: temps}
}

// looksUnconnected implements the "probably unconnected" heuristic: the
// paired tachometer (same index) reports rpm==0 while a substantial duty is
// already being commanded. With no paired tachometer to check, the channel
// is left alone.
func (r *Repository) looksUnconnected(ctx context.Context, pc *pwmChannel, fan *hwmon.SensorInfo) bool {
	if fan == nil || pc.valuePath == "" {
		return false
	}
	rpmPath, err := fan.GetAttributePath(hwmon.AttributeInput)
	if err != nil {
		return false
	}
	rpm, err := hwmon.ReadIntCtx(ctx, rpmPath)
	if err != nil || rpm != 0 {
		return false
	}
	raw, err := hwmon.ReadIntCtx(ctx, pc.valuePath)
	if err != nil {
		return false
	}
	dutyPct := int(math.Round(float64(raw) / 255.0 * 100))
	return dutyPct > DefaultUnconnectedPWMThreshold
}

// probeMode round-trips pwm*_mode through the HID Daemon to check whether
// the driver honors PWM-vs-DC mode switching, restoring the original value.
// pwm*_mode is not itself a tracked SensorAttribute, since not every pwm
// channel exposes one; its path is derived from the sensor's own attribute
// path rather than discovered.
func (r *Repository) probeMode(ctx context.Context, s *hwmon.SensorInfo) (bool, string) {
	modePath := filepath.Join(s.DevicePath, s.Name+"_mode")
	if !hwmon.FileExists(modePath) {
		return false, ""
	}
	original, err := hwmon.ReadStringCtx(ctx, modePath)
	if err != nil {
		return false, modePath
	}
	toggled := "0"
	if original == "0" {
		toggled = "1"
	}
	if err := r.hid.WriteAttr(modePath, toggled); err != nil {
		return false, modePath
	}
	_ = r.hid.WriteAttr(modePath, original)
	return true, modePath
}

// Statuses implements reposcommon.Repository.
func (r *Repository) Statuses() []*device.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*device.Device, len(r.devices))
	for i, hd := range r.devices {
		out[i] = hd.device
	}
	return out
}

// UpdateStatuses implements reposcommon.Repository.
func (r *Repository) UpdateStatuses(ctx context.Context) error {
	r.mu.Lock()
	devices := make([]*hwmonDevice, len(r.devices))
	copy(devices, r.devices)
	r.mu.Unlock()

	for _, hd := range devices {
		status := device.Status{Timestamp: time.Now()}
		for _, tc := range hd.temps {
			raw, err := hwmon.ReadIntCtx(ctx, tc.inputPath)
			if err != nil {
				continue
			}
			celsius := float64(raw) / 1000.0
			if celsius <= DefaultMinReasonableTempC || celsius > DefaultMaxReasonableTempC {
				continue
			}
			status.Temps = append(status.Temps, device.TempStatus{
				Name:         tc.name,
				TempC:        celsius,
				FrontendName: tc.label,
				ExternalName: fmt.Sprintf("hwmon.%s.%s", hd.driver, tc.name),
			})
		}
		for _, pc := range hd.pwms {
			raw, err := hwmon.ReadIntCtx(ctx, pc.valuePath)
			if err != nil {
				continue
			}
			dutyPct := int(math.Round(float64(raw) / 255.0 * 100))
			status.Channels = append(status.Channels, device.ChannelStatus{Name: pc.name, DutyPct: &dutyPct})
		}
		hd.device.ApplyStatus(status)
	}
	return nil
}

// SetSettings implements reposcommon.Repository.
func (r *Repository) SetSettings(ctx context.Context, deviceID int, s device.Setting) (reposcommon.StatusTag, error) {
	hd, err := r.find(deviceID)
	if err != nil {
		return reposcommon.ErrorTag(reposcommon.ReasonUnknownChannel), err
	}
	pc, ok := hd.pwms[s.ChannelName]
	if !ok {
		return reposcommon.ErrorTag(reposcommon.ReasonUnknownChannel), ErrUnknownChannel
	}

	switch {
	case s.Fixed != nil:
		duty := clamp(*s.Fixed, 0, 100)
		if s.PWMMode != nil && pc.modePath != "" {
			if err := r.hid.WriteAttr(pc.modePath, strconv.Itoa(*s.PWMMode)); err != nil {
				return reposcommon.ErrorTag(reposcommon.ReasonApplyingHwmon), err
			}
		}
		if pc.enablePath != "" {
			if err := r.hid.WriteAttr(pc.enablePath, "1"); err != nil {
				return reposcommon.ErrorTag(reposcommon.ReasonApplyingHwmon), err
			}
		}
		raw := int(math.Round(float64(duty) * 2.55))
		if err := r.hid.WriteAttr(pc.valuePath, strconv.Itoa(raw)); err != nil {
			return reposcommon.ErrorTag(reposcommon.ReasonApplyingHwmon), err
		}
	default:
		// speed_profile is handled entirely by the Speed Scheduler, which
		// resolves to repeated speed_fixed calls; any other Setting kind
		// is not meaningful for a hwmon PWM channel.
		return reposcommon.ErrorTag(reposcommon.ReasonNotApplied), device.ErrInvalidSetting
	}

	return reposcommon.StatusTag(hd.driver), nil
}

// SetChannelToDefault implements reposcommon.Repository.
func (r *Repository) SetChannelToDefault(ctx context.Context, deviceID int, channelName string) (reposcommon.StatusTag, error) {
	hd, err := r.find(deviceID)
	if err != nil {
		return reposcommon.ErrorTag(reposcommon.ReasonUnknownChannel), err
	}
	pc, ok := hd.pwms[channelName]
	if !ok {
		return reposcommon.ErrorTag(reposcommon.ReasonUnknownChannel), ErrUnknownChannel
	}

	want := pc.enableDefault
	if laptopDrivers[hd.driver] {
		want = 2
	}
	if pc.enablePath == "" {
		return reposcommon.StatusTag(hd.driver), nil
	}
	current, err := hwmon.ReadIntCtx(ctx, pc.enablePath)
	if err == nil && current == want {
		return reposcommon.StatusTag(hd.driver), nil
	}
	if err := r.hid.WriteAttr(pc.enablePath, strconv.Itoa(want)); err != nil {
		return reposcommon.ErrorTag(reposcommon.ReasonApplyingHwmon), err
	}
	return reposcommon.StatusTag(hd.driver), nil
}

func (r *Repository) find(deviceID int) (*hwmonDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, hd := range r.devices {
		if hd.id == deviceID {
			return hd, nil
		}
	}
	return nil, ErrUnknownDevice
}

// Shutdown implements reposcommon.Repository: restores every fan's
// recorded pwm_enable_default (or automatic mode for laptop drivers).
func (r *Repository) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	devices := make([]*hwmonDevice, len(r.devices))
	copy(devices, r.devices)
	r.mu.Unlock()

	for _, hd := range devices {
		for name := range hd.pwms {
			if _, err := r.SetChannelToDefault(ctx, hd.id, name); err != nil {
				r.logger.WarnContext(ctx, "failed to restore pwm_enable on shutdown", "device", hd.driver, "channel", name, "error", err)
			}
		}
	}
	return r.hid.Close()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
