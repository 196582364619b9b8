// SPDX-License-Identifier: BSD-3-Clause

// Package device defines the uniform data model shared by every device
// repository: device identity, status snapshots, and the bounded history
// kept per device.
package device

import (
	"sync"
	"time"
)

// Type identifies the family a device belongs to. Identity equality and
// hashing for a Device use only (Type, TypeID).
type Type string

const (
	TypeCPU       Type = "CPU"
	TypeGPU       Type = "GPU"
	TypeCooling   Type = "Cooling"
	TypeHwmon     Type = "Hwmon"
	TypeComposite Type = "Composite"
)

// HistoryCapacity bounds status_history to roughly the last 31 minutes at a
// 1 Hz poll rate.
const HistoryCapacity = 1860

// Identity is the (type, type_id) pair that uniquely names a device within
// the daemon. type_id is a 1-based integer unique within its type.
type Identity struct {
	Type   Type
	TypeID int
}

// Info holds the immutable attributes of a device, assigned once during
// discovery.
type Info struct {
	Name                string
	FirmwareVersion     string
	Driver              string
	Model               string
	Channels            map[string]ChannelInfo
	MinTempC            int
	MaxTempC            int
	MinProfileLen       int
	MaxProfileLen       int
	ExternalTempsUsable bool
}

// ChannelInfo is the static description of a controllable or readable
// channel on a device.
type ChannelInfo struct {
	SpeedOptions  *SpeedOptions
	LightingModes []string
	LCDModes      []string
}

// SpeedOptions describes what speed operations a channel supports.
type SpeedOptions struct {
	MinDuty               int
	MaxDuty               int
	FixedEnabled          bool
	ProfilesEnabled       bool
	ManualProfilesEnabled bool
}

// TempStatus is a single named temperature reading within a Status snapshot.
// ExternalName is globally unique across devices so that other devices may
// bind a channel's temperature source to it.
type TempStatus struct {
	Name         string
	TempC        float64
	FrontendName string
	ExternalName string
}

// ChannelStatus is a single channel's observed state within a Status
// snapshot. Any field may be absent; nil pointers mean "not reported".
type ChannelStatus struct {
	Name       string
	RPM        *int
	DutyPct    *int
	PWMMode    *int
}

// Status is an immutable snapshot of a device's telemetry at a point in
// time. Two Status values are ordered by Timestamp.
type Status struct {
	Timestamp       time.Time
	FirmwareVersion string
	Temps           []TempStatus
	Channels        []ChannelStatus
}

// Device is a single piece of hardware or logical sensor bundle owned by a
// repository. It is created once during repository initialization and
// never destroyed before daemon shutdown; its Status is replaced, not
// mutated, on every poll.
type Device struct {
	Identity Identity
	Info     Info
	Colors   map[string]string

	mu      sync.RWMutex
	current Status
	history []Status
}

// NewDevice constructs a Device with an empty status and history.
func NewDevice(id Identity, info Info) *Device {
	return &Device{
		Identity: id,
		Info:     info,
		Colors:   make(map[string]string),
	}
}

// Status returns an immutable snapshot of the device's current status.
func (d *Device) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// History returns a copy of the retained status history, oldest first.
func (d *Device) History() []Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Status, len(d.history))
	copy(out, d.history)
	return out
}

// ApplyStatus replaces the device's current status and appends it to the
// bounded history, trimming the oldest samples off the front once length
// exceeds HistoryCapacity. The single writer is the owning repository during
// update_statuses(); readers always observe a complete snapshot.
func (d *Device) ApplyStatus(s Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = s
	d.history = append(d.history, s)
	if over := len(d.history) - HistoryCapacity; over > 0 {
		d.history = d.history[over:]
	}
}

// TempByExternalName searches the device's current status for a temp
// reading with the given external name.
func (d *Device) TempByExternalName(name string) (TempStatus, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, t := range d.current.Temps {
		if t.ExternalName == name {
			return t, true
		}
	}
	return TempStatus{}, false
}
