// SPDX-License-Identifier: BSD-3-Clause

package hwmonrepo

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/coolerd/coolerd/pkg/device"
	"github.com/coolerd/coolerd/pkg/hwmon"
	"github.com/coolerd/coolerd/pkg/wire"
)

// fakeHIDDaemon accepts connections on a Unix socket and applies every
// write it receives to the real filesystem, mirroring what service/hidd
// does for a path matching its pattern.
func fakeHIDDaemon(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "hidd.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				for {
					var req map[string]string
					if err := wire.ReadFrame(conn, &req); err != nil {
						return
					}
					if v, ok := req["version"]; ok {
						resp := map[string]string{"response": "version supported"}
						if v != "1" {
							resp["response"] = "unsupported version"
						}
						_ = wire.WriteFrame(conn, resp)
						continue
					}
					resp := "setting success"
					if err := os.WriteFile(req["path"], []byte(req["value"]), 0o644); err != nil {
						resp = "setting failure"
					}
					_ = wire.WriteFrame(conn, map[string]string{"response": resp})
				}
			}()
		}
	}()
	return sockPath
}

func writeSysfsFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newTestPWMSensor(t *testing.T, dir, name string, index int, pwmValue string) *hwmon.SensorInfo {
	t.Helper()
	valuePath := filepath.Join(dir, name)
	enablePath := filepath.Join(dir, name+"_enable")
	writeSysfsFile(t, valuePath, pwmValue)
	writeSysfsFile(t, enablePath, "1")
	return &hwmon.SensorInfo{
		Name:  name,
		Index: index,
		Type:  hwmon.SensorTypePWM,
		Attributes: map[hwmon.SensorAttribute]string{
			hwmon.AttributeInput:  valuePath,
			hwmon.AttributeEnable: enablePath,
		},
		DevicePath: dir,
	}
}

func newTestFanSensor(t *testing.T, dir, name string, index int, rpm string) *hwmon.SensorInfo {
	t.Helper()
	inputPath := filepath.Join(dir, name+"_input")
	writeSysfsFile(t, inputPath, rpm)
	return &hwmon.SensorInfo{
		Name:  name,
		Index: index,
		Type:  hwmon.SensorTypeFan,
		Attributes: map[hwmon.SensorAttribute]string{
			hwmon.AttributeInput: inputPath,
		},
		DevicePath: dir,
	}
}

func newTestTempSensor(t *testing.T, dir, name, label, milliC string) *hwmon.SensorInfo {
	t.Helper()
	inputPath := filepath.Join(dir, name+"_input")
	writeSysfsFile(t, inputPath, milliC)
	return &hwmon.SensorInfo{
		Name:  name,
		Label: label,
		Type:  hwmon.SensorTypeTemperature,
		Attributes: map[hwmon.SensorAttribute]string{
			hwmon.AttributeInput: inputPath,
		},
		DevicePath: dir,
	}
}

func TestBuildDeviceFiltersUnconnectedFan(t *testing.T) {
	dir := t.TempDir()
	r := New(WithHIDSocketPath(fakeHIDDaemon(t)))

	connected := newTestPWMSensor(t, dir, "pwm1", 1, "128")
	connectedFan := newTestFanSensor(t, dir, "fan1", 1, "1200")
	unconnected := newTestPWMSensor(t, dir, "pwm2", 2, "200")
	unconnectedFan := newTestFanSensor(t, dir, "fan2", 2, "0")

	dev := &hwmon.Device{
		Name: "nct6775",
		Path: dir,
		Sensors: map[string]*hwmon.SensorInfo{
			"pwm1": connected,
			"fan1": connectedFan,
			"pwm2": unconnected,
			"fan2": unconnectedFan,
		},
	}

	hd := r.buildDevice(context.Background(), 1, dev)

	if _, ok := hd.pwms["pwm1"]; !ok {
		t.Fatalf("expected pwm1 to survive the filter")
	}
	if _, ok := hd.pwms["pwm2"]; ok {
		t.Fatalf("expected pwm2 (high duty, zero rpm) to be filtered as unconnected")
	}
}

func TestBuildDeviceKeepsAllFansOnLaptopDrivers(t *testing.T) {
	dir := t.TempDir()
	r := New(WithHIDSocketPath(fakeHIDDaemon(t)))

	unconnectedLooking := newTestPWMSensor(t, dir, "pwm1", 1, "200")
	unconnectedFan := newTestFanSensor(t, dir, "fan1", 1, "0")
	dev := &hwmon.Device{
		Name: "thinkpad",
		Path: dir,
		Sensors: map[string]*hwmon.SensorInfo{
			"pwm1": unconnectedLooking,
			"fan1": unconnectedFan,
		},
	}

	hd := r.buildDevice(context.Background(), 1, dev)

	if _, ok := hd.pwms["pwm1"]; !ok {
		t.Fatalf("expected laptop driver fan to bypass the unconnected-fan filter")
	}
}

func TestBuildDeviceFiltersUnreasonableAndOwnedTemps(t *testing.T) {
	dir := t.TempDir()
	r := New(WithHIDSocketPath(fakeHIDDaemon(t)), WithCPUOwnedSensors("Tctl"))

	reasonable := newTestTempSensor(t, dir, "temp1", "Board", "45000")
	owned := newTestTempSensor(t, dir, "temp2", "Tctl", "50000")

	dev := &hwmon.Device{
		Name: "it8686",
		Path: dir,
		Sensors: map[string]*hwmon.SensorInfo{
			"temp1": reasonable,
			"temp2": owned,
		},
	}

	hd := r.buildDevice(context.Background(), 1, dev)

	if _, ok := hd.temps["temp1"]; !ok {
		t.Fatalf("expected temp1 to be discovered")
	}
	if _, ok := hd.temps["temp2"]; ok {
		t.Fatalf("expected CPU-owned sensor label to be skipped")
	}
}

func TestSetSettingsAppliesDutyThroughHIDDaemon(t *testing.T) {
	dir := t.TempDir()
	r := New(WithHIDSocketPath(fakeHIDDaemon(t)), WithFilterEnabled(false))

	sensor := newTestPWMSensor(t, dir, "pwm1", 1, "0")
	dev := &hwmon.Device{
		Name:    "nct6775",
		Path:    dir,
		Sensors: map[string]*hwmon.SensorInfo{"pwm1": sensor},
	}
	hd := r.buildDevice(context.Background(), 1, dev)
	r.mu.Lock()
	r.devices = append(r.devices, hd)
	r.mu.Unlock()

	fixed := 50
	_, err := r.SetSettings(context.Background(), 1, device.Setting{ChannelName: "pwm1", Fixed: &fixed})
	if err != nil {
		t.Fatalf("SetSettings: %v", err)
	}

	raw, err := hwmon.ReadInt(filepath.Join(dir, "pwm1"))
	if err != nil {
		t.Fatalf("read back pwm1: %v", err)
	}
	want := int(50 * 255 / 100)
	if raw < want-2 || raw > want+2 {
		t.Fatalf("expected pwm1 near %d for 50%% duty, got %d", want, raw)
	}

	enable, err := hwmon.ReadInt(filepath.Join(dir, "pwm1_enable"))
	if err != nil {
		t.Fatalf("read back pwm1_enable: %v", err)
	}
	if enable != 1 {
		t.Fatalf("expected pwm1_enable=1 before a manual duty write, got %d", enable)
	}
}

func TestClamp(t *testing.T) {
	cases := []struct{ v, lo, hi, want int }{
		{-5, 0, 100, 0},
		{150, 0, 100, 100},
		{42, 0, 100, 42},
	}
	for _, c := range cases {
		if got := clamp(c.v, c.lo, c.hi); got != c.want {
			t.Errorf("clamp(%d,%d,%d) = %d, want %d", c.v, c.lo, c.hi, got, c.want)
		}
	}
}
