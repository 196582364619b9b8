// SPDX-License-Identifier: BSD-3-Clause

package liqctld

import (
	"context"
	"fmt"
	"sync"
)

// mockDriver is the only Driver implementation shipped in this repository.
// No Go equivalent of liquidctl's native device bindings exists to vendor,
// so the backend talks to a simulated device that honors the same request
// shapes real hardware accepts. It answers every call immediately; it
// adds no latency of its own.
type mockDriver struct {
	mu sync.Mutex

	description  string
	deviceType   string
	serialNumber string
	props        Properties

	connected bool
	fixed     map[string]int
	colors    map[string]string
	legacy    bool
}

var _ Driver = (*mockDriver)(nil)

func newMockDriver(id int) *mockDriver {
	return &mockDriver{
		description:  fmt.Sprintf("Mock Cooling Device %d", id),
		deviceType:   "MockCoolingDevice",
		serialNumber: fmt.Sprintf("MOCK-%04d", id),
		props: Properties{
			SpeedChannels:           []string{"pump", "fan1", "fan2"},
			ColorChannels:           []string{"led"},
			SupportsCooling:         true,
			SupportsCoolingProfiles: true,
			SupportsLighting:        true,
			LEDCount:                16,
		},
		fixed:  make(map[string]int),
		colors: make(map[string]string),
	}
}

func (m *mockDriver) Description() string   { return m.description }
func (m *mockDriver) DeviceType() string    { return m.deviceType }
func (m *mockDriver) SerialNumber() string  { return m.serialNumber }
func (m *mockDriver) Properties() Properties {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.props
}

func (m *mockDriver) Connect(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	return nil
}

func (m *mockDriver) Disconnect(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

func (m *mockDriver) Initialize(_ context.Context, pumpMode string) ([]StatusEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pumpMode != "" {
		m.fixed["pump"] = pumpModeDuty(pumpMode)
	}
	return []StatusEntry{
		{Name: "Firmware version", Value: "1.0.0", Unit: ""},
		{Name: "Pump mode", Value: pumpMode, Unit: ""},
	}, nil
}

func pumpModeDuty(mode string) int {
	switch mode {
	case "quiet":
		return 50
	case "extreme":
		return 100
	default:
		return 70
	}
}

func (m *mockDriver) Status(_ context.Context) ([]StatusEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := []StatusEntry{
		{Name: "Liquid temperature", Value: "32.1", Unit: "°C"},
	}
	for _, ch := range m.props.SpeedChannels {
		rpm := 800 + m.fixed[ch]*12
		entries = append(entries,
			StatusEntry{Name: ch + " speed", Value: fmt.Sprintf("%d", rpm), Unit: "rpm"},
			StatusEntry{Name: ch + " duty", Value: fmt.Sprintf("%d", m.fixed[ch]), Unit: "%"},
		)
	}
	return entries, nil
}

func (m *mockDriver) SetFixedSpeed(_ context.Context, channel string, duty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !channelKnown(m.props.SpeedChannels, channel) {
		return fmt.Errorf("%w: channel %q", ErrInvalidRequest, channel)
	}
	m.fixed[channel] = duty
	return nil
}

func (m *mockDriver) SetSpeedProfile(_ context.Context, channel string, profile []ProfilePoint, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.props.SupportsCoolingProfiles {
		return ErrUnsupportedOperation
	}
	if !channelKnown(m.props.SpeedChannels, channel) {
		return fmt.Errorf("%w: channel %q", ErrInvalidRequest, channel)
	}
	if len(profile) > 0 {
		m.fixed[channel] = profile[len(profile)-1].Duty
	}
	return nil
}

func (m *mockDriver) SetColor(_ context.Context, req ColorRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !channelKnown(m.props.ColorChannels, req.Channel) {
		return fmt.Errorf("%w: channel %q", ErrInvalidRequest, req.Channel)
	}
	if len(req.Colors) > 0 {
		m.colors[req.Channel] = req.Colors[0]
	}
	return nil
}

func (m *mockDriver) SetScreen(_ context.Context, req ScreenRequest) error {
	if req.Mode == "" {
		return ErrInvalidRequest
	}
	return nil
}

// RebindLegacy690 implements legacy690Capable: rebinding returns a fresh
// driver flagged legacy so DeviceType reports the legacy variant.
func (m *mockDriver) RebindLegacy690(_ context.Context) (Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.legacy {
		return m, nil
	}
	m.legacy = true
	m.deviceType = "Legacy690Lc"
	return m, nil
}

func channelKnown(channels []string, name string) bool {
	for _, c := range channels {
		if c == name {
			return true
		}
	}
	return false
}

var _ legacy690Capable = (*mockDriver)(nil)
