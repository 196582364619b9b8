// SPDX-License-Identifier: BSD-3-Clause

// Package gpurepo implements the GPU Repository for NVIDIA GPUs via NVML:
// it reports die temperature and reads/sets fan speed through the vendor
// driver's own policy switch (AUTO vs MANUAL), never through hwmon.
package gpurepo

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"github.com/coolerd/coolerd/pkg/device"
	"github.com/coolerd/coolerd/pkg/log"
	"github.com/coolerd/coolerd/service/reposcommon"
)

var _ reposcommon.Repository = (*Repository)(nil)

type gpuDevice struct {
	id       int
	handle   nvml.Device
	device   *device.Device
	fanCount int
}

// Repository is the GPU Repository.
type Repository struct {
	config
	logger *slog.Logger

	mu          sync.Mutex
	initialized bool
	devices     []*gpuDevice
}

// New constructs a Repository with the provided options applied over
// defaults.
func New(opts ...Option) *Repository {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(cfg)
	}
	return &Repository{
		config: *cfg,
		logger: log.GetGlobalLogger().With("repository", cfg.name),
	}
}

// Name implements reposcommon.Repository.
func (r *Repository) Name() string { return r.name }

// Discover initializes NVML and enumerates every NVIDIA GPU; a GPU whose fan
// count NVML cannot report gets no fan channels but still reports its
// temperature. A host with no NVIDIA driver loaded reports
// ErrNVMLUnavailable; callers should treat that as "no GPUs", not fatal.
func (r *Repository) Discover(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return fmt.Errorf("%w: %s", ErrNVMLUnavailable, nvml.ErrorString(ret))
	}
	r.initialized = true

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return fmt.Errorf("gpurepo: device count: %s", nvml.ErrorString(ret))
	}

	for i := 0; i < count; i++ {
		handle, ret := nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			r.logger.WarnContext(ctx, "failed to get gpu handle", "index", i, "error", nvml.ErrorString(ret))
			continue
		}
		name, ret := nvml.DeviceGetName(handle)
		if ret != nvml.SUCCESS {
			name = fmt.Sprintf("GPU %d", i)
		}
		numFans, ret := nvml.DeviceGetNumFans(handle)
		if ret != nvml.SUCCESS {
			numFans = 0
		}

		channels := make(map[string]device.ChannelInfo, numFans)
		for f := 0; f < numFans; f++ {
			channels[fanChannelName(f)] = device.ChannelInfo{
				SpeedOptions: &device.SpeedOptions{MinDuty: 0, MaxDuty: 100, FixedEnabled: true},
			}
		}

		info := device.Info{Name: name, Driver: "nvml", Channels: channels}
		id := i + 1
		dv := device.NewDevice(device.Identity{Type: device.TypeGPU, TypeID: id}, info)
		r.devices = append(r.devices, &gpuDevice{id: id, handle: handle, device: dv, fanCount: numFans})
	}
	return nil
}

func fanChannelName(index int) string {
	return fmt.Sprintf("fan%d", index)
}

// Statuses implements reposcommon.Repository.
func (r *Repository) Statuses() []*device.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*device.Device, len(r.devices))
	for i, gd := range r.devices {
		out[i] = gd.device
	}
	return out
}

// UpdateStatuses implements reposcommon.Repository.
func (r *Repository) UpdateStatuses(ctx context.Context) error {
	r.mu.Lock()
	devices := make([]*gpuDevice, len(r.devices))
	copy(devices, r.devices)
	r.mu.Unlock()

	for _, gd := range devices {
		status := device.Status{}
		if temp, ret := nvml.DeviceGetTemperature(gd.handle, nvml.TEMPERATURE_GPU); ret == nvml.SUCCESS {
			status.Temps = append(status.Temps, device.TempStatus{
				Name:         "gpu",
				TempC:        float64(temp),
				FrontendName: "GPU",
				ExternalName: fmt.Sprintf("gpu.%d.die", gd.id),
			})
		}
		for f := 0; f < gd.fanCount; f++ {
			speed, ok := r.readFanSpeed(gd, f)
			if !ok {
				continue
			}
			status.Channels = append(status.Channels, device.ChannelStatus{Name: fanChannelName(f), DutyPct: &speed})
		}
		gd.device.ApplyStatus(status)
	}
	return nil
}

func (r *Repository) readFanSpeed(gd *gpuDevice, fanIdx int) (int, bool) {
	if speed, ret := nvml.DeviceGetFanSpeed_v2(gd.handle, fanIdx); ret == nvml.SUCCESS {
		return int(speed), true
	}
	if fanIdx == 0 {
		if speed, ret := nvml.DeviceGetFanSpeed(gd.handle); ret == nvml.SUCCESS {
			return int(speed), true
		}
	}
	return 0, false
}

// SetSettings implements reposcommon.Repository: only speed_fixed is
// meaningful for an NVML fan channel.
func (r *Repository) SetSettings(ctx context.Context, deviceID int, s device.Setting) (reposcommon.StatusTag, error) {
	gd, err := r.find(deviceID)
	if err != nil {
		return reposcommon.ErrorTag(reposcommon.ReasonUnknownChannel), err
	}
	fanIdx, err := fanIndex(s.ChannelName)
	if err != nil || fanIdx >= gd.fanCount {
		return reposcommon.ErrorTag(reposcommon.ReasonUnknownChannel), ErrUnknownChannel
	}
	if s.Fixed == nil {
		return reposcommon.ErrorTag(reposcommon.ReasonNotApplied), device.ErrInvalidSetting
	}

	duty := clamp(*s.Fixed, 0, 100)
	if ret := nvml.DeviceSetFanControlPolicy(gd.handle, fanIdx, nvml.FAN_POLICY_MANUAL); ret != nvml.SUCCESS && ret != nvml.ERROR_NOT_SUPPORTED {
		return reposcommon.ErrorTag(reposcommon.ReasonApplyingHwmon), fmt.Errorf("%w: %s", ErrFanControlUnsupported, nvml.ErrorString(ret))
	}
	if ret := nvml.DeviceSetFanSpeed_v2(gd.handle, fanIdx, duty); ret != nvml.SUCCESS {
		return reposcommon.ErrorTag(reposcommon.ReasonApplyingHwmon), fmt.Errorf("%w: %s", ErrFanControlUnsupported, nvml.ErrorString(ret))
	}
	return reposcommon.StatusTag(gd.device.Info.Name), nil
}

// SetChannelToDefault implements reposcommon.Repository: returns the fan to
// the driver's own temperature-based automatic policy.
func (r *Repository) SetChannelToDefault(ctx context.Context, deviceID int, channelName string) (reposcommon.StatusTag, error) {
	gd, err := r.find(deviceID)
	if err != nil {
		return reposcommon.ErrorTag(reposcommon.ReasonUnknownChannel), err
	}
	fanIdx, err := fanIndex(channelName)
	if err != nil || fanIdx >= gd.fanCount {
		return reposcommon.ErrorTag(reposcommon.ReasonUnknownChannel), ErrUnknownChannel
	}
	if ret := nvml.DeviceSetFanControlPolicy(gd.handle, fanIdx, nvml.FAN_POLICY_TEMPERATURE_CONTINOUS_SW); ret != nvml.SUCCESS && ret != nvml.ERROR_NOT_SUPPORTED {
		return reposcommon.ErrorTag(reposcommon.ReasonApplyingHwmon), fmt.Errorf("%w: %s", ErrFanControlUnsupported, nvml.ErrorString(ret))
	}
	return reposcommon.StatusTag(gd.device.Info.Name), nil
}

func (r *Repository) find(deviceID int) (*gpuDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, gd := range r.devices {
		if gd.id == deviceID {
			return gd, nil
		}
	}
	return nil, ErrUnknownDevice
}

func fanIndex(channelName string) (int, error) {
	var idx int
	if _, err := fmt.Sscanf(channelName, "fan%d", &idx); err != nil {
		return 0, err
	}
	return idx, nil
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

// Shutdown implements reposcommon.Repository.
func (r *Repository) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return nil
	}
	r.initialized = false
	if ret := nvml.Shutdown(); ret != nvml.SUCCESS {
		return fmt.Errorf("gpurepo: nvml shutdown: %s", nvml.ErrorString(ret))
	}
	return nil
}
