// SPDX-License-Identifier: BSD-3-Clause

package liqctld

import (
	"encoding/json"
	"fmt"
)

// StatusEntry is one (name, value, unit) triple as liquidctl-style drivers
// report it. It marshals as a 3-element JSON array rather than an object.
type StatusEntry struct {
	Name  string
	Value string
	Unit  string
}

// MarshalJSON encodes the entry as ["name", "value", "unit"].
func (e StatusEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]string{e.Name, e.Value, e.Unit})
}

// UnmarshalJSON decodes a ["name", "value", "unit"] array into the entry.
func (e *StatusEntry) UnmarshalJSON(b []byte) error {
	var triple [3]string
	if err := json.Unmarshal(b, &triple); err != nil {
		return err
	}
	e.Name, e.Value, e.Unit = triple[0], triple[1], triple[2]
	return nil
}

// Properties describes the capability surface of a single device, reported
// as part of GET /devices.
type Properties struct {
	SpeedChannels           []string `json:"speed_channels"`
	ColorChannels           []string `json:"color_channels"`
	SupportsCooling         bool     `json:"supports_cooling,omitempty"`
	SupportsCoolingProfiles bool     `json:"supports_cooling_profiles,omitempty"`
	SupportsLighting        bool     `json:"supports_lighting,omitempty"`
	LEDCount                int      `json:"led_count,omitempty"`
	LCDResolution           string   `json:"lcd_resolution,omitempty"`
}

// DeviceDescriptor is the GET /devices element for one backend-managed
// device.
type DeviceDescriptor struct {
	ID               int        `json:"id"`
	Description      string     `json:"description"`
	DeviceType       string     `json:"device_type"`
	SerialNumber     string     `json:"serial_number,omitempty"`
	Properties       Properties `json:"properties"`
	LiquidctlVersion string     `json:"liquidctl_version"`
	HIDAddress       string     `json:"hid_address,omitempty"`
	HwmonAddress     string     `json:"hwmon_address,omitempty"`
}

// HandshakeResponse is the GET /handshake body.
type HandshakeResponse struct {
	Shake bool `json:"shake"`
}

// InitializeRequest is the POST /devices/{id}/initialize body.
type InitializeRequest struct {
	PumpMode string `json:"pump_mode,omitempty"`
}

// StatusResponse is the GET /devices/{id}/status body.
type StatusResponse struct {
	Status []StatusEntry `json:"status"`
}

// SpeedFixedRequest is the PUT /devices/{id}/speed/fixed body.
type SpeedFixedRequest struct {
	Channel string `json:"channel"`
	Duty    int    `json:"duty"`
}

// SpeedProfileRequest is the PUT /devices/{id}/speed/profile body.
type SpeedProfileRequest struct {
	Channel           string         `json:"channel"`
	Profile           []ProfilePoint `json:"profile"`
	TemperatureSensor string         `json:"temperature_sensor,omitempty"`
}

// ProfilePoint is one (temperature, duty) point of a server-side speed
// profile forwarded to a driver that supports them.
type ProfilePoint struct {
	TempC int `json:"temp"`
	Duty  int `json:"duty"`
}

// ColorRequest is the PUT /devices/{id}/color body.
type ColorRequest struct {
	Channel      string   `json:"channel"`
	Mode         string   `json:"mode"`
	Colors       []string `json:"colors"`
	TimePerColor int      `json:"time_per_color,omitempty"`
	Speed        int      `json:"speed,omitempty"`
	Direction    string   `json:"direction,omitempty"`
}

// ScreenRequest is the PUT /devices/{id}/screen body.
type ScreenRequest struct {
	Channel string `json:"channel"`
	Mode    string `json:"mode"`
	Value   string `json:"value,omitempty"`
}

// APIError is the error body shape for every non-2xx response.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}
