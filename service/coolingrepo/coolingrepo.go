// SPDX-License-Identifier: BSD-3-Clause

// Package coolingrepo implements the Cooling-lib Repository: the device
// repository that speaks to the Cooling-lib Backend over its Unix socket
// and exposes its devices through the uniform reposcommon.Repository
// interface.
package coolingrepo

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coolerd/coolerd/pkg/device"
	"github.com/coolerd/coolerd/pkg/log"
	"github.com/coolerd/coolerd/service/liqctld"
	"github.com/coolerd/coolerd/service/reposcommon"
)

var _ reposcommon.Repository = (*Repository)(nil)

// Repository is the Cooling-lib Repository.
type Repository struct {
	config
	client *liqctld.Client
	logger *slog.Logger

	mu          sync.Mutex
	devices     []*device.Device
	legacyByID  map[int]bool
	initialized bool
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
		client:     liqctld.NewClient(cfg.backendSocket, cfg.requestTimeout),
		legacyByID: make(map[int]bool),
		logger:     log.GetGlobalLogger().With("repository", cfg.name),
	}
}

// Name implements reposcommon.Repository.
func (r *Repository) Name() string { return r.name }

// Discover connects to the backend, fetches its device list, initializes
// each device, and builds the owned device.Device set. Must be called once
// before Statuses/UpdateStatuses are meaningful.
func (r *Repository) Discover(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.initialized {
		return nil
	}

	descriptors, err := r.client.Devices(ctx)
	if err != nil {
		return fmt.Errorf("discover cooling devices: %w", err)
	}

	devices := make([]*device.Device, 0, len(descriptors))
	for i, desc := range descriptors {
		info := extractDeviceInfo(desc)

		entries, err := r.client.Initialize(ctx, desc.ID, "")
		if err != nil {
			r.logger.WarnContext(ctx, "initialize failed", "device_id", desc.ID, "error", err)
		} else if fw := firmwareFromEntries(entries); fw != "" {
			info.FirmwareVersion = fw
			if isLegacyFirmware(fw) {
				r.legacyByID[desc.ID] = true
				r.logger.WarnContext(ctx, "legacy firmware refuses profile writes", "device_id", desc.ID, "firmware", fw)
			}
		}

		d := device.NewDevice(device.Identity{Type: device.TypeCooling, TypeID: desc.ID}, info)
		d.Colors[desc.Description] = displayColors[i%len(displayColors)]
		devices = append(devices, d)
	}

	r.devices = devices
	r.initialized = true
	return nil
}

func extractDeviceInfo(desc liqctld.DeviceDescriptor) device.Info {
	extractor := extractorFor(desc.DeviceType)

	channels := make(map[string]device.ChannelInfo, len(desc.Properties.SpeedChannels)+len(desc.Properties.ColorChannels))
	for _, ch := range desc.Properties.SpeedChannels {
		minDuty, maxDuty := extractor.dutyBounds(ch)
		profilesEnabled := desc.Properties.SupportsCoolingProfiles && extractor.profilesEnabled
		channels[ch] = device.ChannelInfo{
			SpeedOptions: &device.SpeedOptions{
				MinDuty:               minDuty,
				MaxDuty:               maxDuty,
				FixedEnabled:          desc.Properties.SupportsCooling,
				ProfilesEnabled:       profilesEnabled,
				ManualProfilesEnabled: profilesEnabled,
			},
		}
	}
	for _, ch := range desc.Properties.ColorChannels {
		ci := channels[ch]
		if desc.Properties.SupportsLighting {
			ci.LightingModes = extractor.translateLightingModes([]string{"off", "fixed", "spectrum-wave", "spectrum-wave-backwards"})
		}
		channels[ch] = ci
	}

	minProfileLen, maxProfileLen := extractor.minProfileLen, extractor.maxProfileLen
	if !desc.Properties.SupportsCoolingProfiles || !extractor.profilesEnabled {
		minProfileLen, maxProfileLen = 0, 0
	}

	return device.Info{
		Name:          desc.Description,
		Driver:        desc.DeviceType,
		Model:         desc.DeviceType,
		Channels:      channels,
		MinProfileLen: minProfileLen,
		MaxProfileLen: maxProfileLen,
	}
}

func firmwareFromEntries(entries []liqctld.StatusEntry) string {
	for _, e := range entries {
		if e.Name == "Firmware version" {
			return e.Value
		}
	}
	return ""
}

func isLegacyFirmware(fw string) bool {
	major := strings.SplitN(fw, ".", 2)[0]
	n, err := strconv.Atoi(major)
	if err != nil {
		return false
	}
	return n < 3
}

// Statuses implements reposcommon.Repository.
func (r *Repository) Statuses() []*device.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*device.Device, len(r.devices))
	copy(out, r.devices)
	return out
}

// UpdateStatuses implements reposcommon.Repository: refreshes every owned
// device via the backend's two-phase status read protocol.
func (r *Repository) UpdateStatuses(ctx context.Context) error {
	r.mu.Lock()
	devices := make([]*device.Device, len(r.devices))
	copy(devices, r.devices)
	r.mu.Unlock()

	for _, d := range devices {
		entries, err := r.client.Status(ctx, d.Identity.TypeID)
		if err != nil {
			r.logger.WarnContext(ctx, "status read failed", "device_id", d.Identity.TypeID, "error", err)
			continue
		}
		d.ApplyStatus(entriesToStatus(entries))
	}
	return nil
}

func entriesToStatus(entries []liqctld.StatusEntry) device.Status {
	status := device.Status{Timestamp: time.Now()}
	channelByName := make(map[string]*device.ChannelStatus)

	for _, e := range entries {
		switch {
		case e.Name == "Firmware version":
			status.FirmwareVersion = e.Value
		case strings.Contains(e.Unit, "°C"):
			if v, err := strconv.ParseFloat(e.Value, 64); err == nil {
				status.Temps = append(status.Temps, device.TempStatus{
					Name:         e.Name,
					TempC:        v,
					FrontendName: e.Name,
					ExternalName: "cooling." + e.Name,
				})
			}
		case e.Unit == "rpm":
			name := strings.TrimSuffix(e.Name, " speed")
			cs := channelStatusFor(channelByName, name)
			if v, err := strconv.Atoi(e.Value); err == nil {
				cs.RPM = &v
			}
		case e.Unit == "%":
			name := strings.TrimSuffix(e.Name, " duty")
			cs := channelStatusFor(channelByName, name)
			if v, err := strconv.Atoi(e.Value); err == nil {
				cs.DutyPct = &v
			}
		}
	}

	for _, cs := range channelByName {
		status.Channels = append(status.Channels, *cs)
	}
	return status
}

func channelStatusFor(m map[string]*device.ChannelStatus, name string) *device.ChannelStatus {
	if cs, ok := m[name]; ok {
		return cs
	}
	cs := &device.ChannelStatus{Name: name}
	m[name] = cs
	return cs
}

// SetSettings implements reposcommon.Repository.
func (r *Repository) SetSettings(ctx context.Context, deviceID int, s device.Setting) (reposcommon.StatusTag, error) {
	r.mu.Lock()
	legacy := r.legacyByID[deviceID]
	d, found := r.find(deviceID)
	r.mu.Unlock()

	name := fmt.Sprintf("cooling device %d", deviceID)
	extractor := defaultExtractor
	if found {
		name = d.Info.Name
		extractor = extractorFor(d.Info.Driver)
	}

	switch {
	case s.Fixed != nil:
		if err := r.client.SetFixedSpeed(ctx, deviceID, s.ChannelName, *s.Fixed); err != nil {
			return reposcommon.ErrorTag(reposcommon.ReasonCommError), err
		}
	case s.Profile != nil:
		if legacy {
			return reposcommon.ErrorTag("legacy firmware does not support profiles"), ErrLegacyFirmware
		}
		if found && (len(s.Profile) < d.Info.MinProfileLen || len(s.Profile) > d.Info.MaxProfileLen) {
			return reposcommon.ErrorTag(reposcommon.ReasonNotApplied), ErrProfileLength
		}
		points := make([]liqctld.ProfilePoint, len(s.Profile))
		for i, p := range s.Profile {
			points[i] = liqctld.ProfilePoint{TempC: p.TempC, Duty: p.Duty}
		}
		tempSource := ""
		if s.TempSource != nil {
			tempSource = s.TempSource.TempName
		}
		if err := r.client.SetSpeedProfile(ctx, deviceID, s.ChannelName, points, tempSource); err != nil {
			return reposcommon.ErrorTag(reposcommon.ReasonCommError), err
		}
	case s.Lighting != nil:
		extractor.normalizeLighting(s.Lighting)
		req := liqctld.ColorRequest{
			Channel:      s.ChannelName,
			Mode:         s.Lighting.Mode,
			Colors:       s.Lighting.Colors,
			TimePerColor: s.Lighting.TimePerColor,
			Speed:        s.Lighting.Speed,
			Direction:    s.Lighting.Direction,
		}
		if err := r.client.SetColor(ctx, deviceID, req); err != nil {
			return reposcommon.ErrorTag(reposcommon.ReasonCommError), err
		}
	case s.LCD != nil:
		req := liqctld.ScreenRequest{Channel: s.ChannelName, Mode: s.LCD.Mode, Value: s.LCD.Value}
		if err := r.client.SetScreen(ctx, deviceID, req); err != nil {
			return reposcommon.ErrorTag(reposcommon.ReasonCommError), err
		}
	default:
		return reposcommon.ErrorTag(reposcommon.ReasonNotApplied), device.ErrInvalidSetting
	}

	return reposcommon.StatusTag(name), nil
}

// SetChannelToDefault implements reposcommon.Repository. The Cooling-lib
// Backend's devices don't expose a persisted "default" duty the way hwmon
// PWM files do; resetting means handing control back to firmware via a
// fresh initialize().
func (r *Repository) SetChannelToDefault(ctx context.Context, deviceID int, _ string) (reposcommon.StatusTag, error) {
	name := r.deviceName(deviceID)
	if _, err := r.client.Initialize(ctx, deviceID, ""); err != nil {
		return reposcommon.ErrorTag(reposcommon.ReasonCommError), err
	}
	return reposcommon.StatusTag(name), nil
}

func (r *Repository) deviceName(deviceID int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devices {
		if d.Identity.TypeID == deviceID {
			return d.Info.Name
		}
	}
	return fmt.Sprintf("cooling device %d", deviceID)
}

// find locates an owned device by id. Callers must hold r.mu.
func (r *Repository) find(deviceID int) (*device.Device, bool) {
	for _, d := range r.devices {
		if d.Identity.TypeID == deviceID {
			return d, true
		}
	}
	return nil, false
}

// Shutdown implements reposcommon.Repository: re-initializes every device
// so firmware regains fan control, per the Cooling-lib Backend's shutdown
// contract, then asks the backend process to quit.
func (r *Repository) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	devices := make([]*device.Device, len(r.devices))
	copy(devices, r.devices)
	r.mu.Unlock()

	for _, d := range devices {
		if _, err := r.client.Initialize(ctx, d.Identity.TypeID, ""); err != nil {
			r.logger.WarnContext(ctx, "shutdown re-initialize failed", "device_id", d.Identity.TypeID, "error", err)
		}
	}
	return r.client.Quit(ctx)
}
