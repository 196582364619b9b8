// SPDX-License-Identifier: BSD-3-Clause

package coolingrepo

import (
	"testing"

	"github.com/coolerd/coolerd/pkg/device"
	"github.com/coolerd/coolerd/service/liqctld"
)

func TestIsLegacyFirmware(t *testing.T) {
	cases := map[string]bool{
		"1.0.0": true,
		"2.9.1": true,
		"3.0.0": false,
		"4.1.0": false,
		"":      false,
		"bogus": false,
	}
	for fw, want := range cases {
		if got := isLegacyFirmware(fw); got != want {
			t.Errorf("isLegacyFirmware(%q) = %v, want %v", fw, got, want)
		}
	}
}

func TestEntriesToStatusParsesTempsAndChannels(t *testing.T) {
	entries := []liqctld.StatusEntry{
		{Name: "Liquid temperature", Value: "32.1", Unit: "°C"},
		{Name: "fan1 speed", Value: "1200", Unit: "rpm"},
		{Name: "fan1 duty", Value: "60", Unit: "%"},
	}

	status := entriesToStatus(entries)

	if len(status.Temps) != 1 || status.Temps[0].TempC != 32.1 {
		t.Fatalf("expected one temp reading of 32.1, got %v", status.Temps)
	}
	if len(status.Channels) != 1 {
		t.Fatalf("expected one channel status, got %v", status.Channels)
	}
	ch := status.Channels[0]
	if ch.Name != "fan1" || ch.RPM == nil || *ch.RPM != 1200 || ch.DutyPct == nil || *ch.DutyPct != 60 {
		t.Fatalf("unexpected channel status: %+v", ch)
	}
}

func TestExtractDeviceInfoBuildsChannels(t *testing.T) {
	desc := liqctld.DeviceDescriptor{
		ID:          1,
		Description: "Mock Cooling Device 1",
		DeviceType:  "MockCoolingDevice",
		Properties: liqctld.Properties{
			SpeedChannels:           []string{"pump", "fan1"},
			ColorChannels:           []string{"led"},
			SupportsCooling:         true,
			SupportsCoolingProfiles: true,
			SupportsLighting:        true,
		},
	}

	info := extractDeviceInfo(desc)

	if len(info.Channels) != 3 {
		t.Fatalf("expected 3 channels, got %d", len(info.Channels))
	}
	pump := info.Channels["pump"]
	if pump.SpeedOptions == nil || !pump.SpeedOptions.ProfilesEnabled {
		t.Fatalf("expected pump channel to have profiles enabled, got %+v", pump)
	}
	led := info.Channels["led"]
	if len(led.LightingModes) == 0 {
		t.Fatalf("expected led channel to carry lighting modes")
	}
	for _, m := range led.LightingModes {
		if m == "spectrum-wave-backwards" {
			t.Fatalf("expected deprecated backwards mode to be filtered out, got %v", led.LightingModes)
		}
	}
}

func TestExtractDeviceInfoAppliesPerDriverDutyAndProfileBounds(t *testing.T) {
	desc := liqctld.DeviceDescriptor{
		ID:          1,
		Description: "NZXT Kraken Z73",
		DeviceType:  "Kraken Z3",
		Properties: liqctld.Properties{
			SpeedChannels:           []string{"pump", "fan"},
			SupportsCooling:         true,
			SupportsCoolingProfiles: true,
		},
	}

	info := extractDeviceInfo(desc)

	pump := info.Channels["pump"]
	if pump.SpeedOptions.MinDuty != 20 || pump.SpeedOptions.MaxDuty != 100 {
		t.Fatalf("expected Kraken Z3 duty bounds [20,100], got [%d,%d]", pump.SpeedOptions.MinDuty, pump.SpeedOptions.MaxDuty)
	}
	if info.MinProfileLen != 2 || info.MaxProfileLen != 9 {
		t.Fatalf("expected Kraken Z3 profile bounds [2,9], got [%d,%d]", info.MinProfileLen, info.MaxProfileLen)
	}
}

func TestExtractDeviceInfoDisablesProfilesForSmartDevice2(t *testing.T) {
	desc := liqctld.DeviceDescriptor{
		ID:          1,
		Description: "NZXT Smart Device V2",
		DeviceType:  "Smart Device V2",
		Properties: liqctld.Properties{
			SpeedChannels:           []string{"fan1"},
			SupportsCooling:         true,
			SupportsCoolingProfiles: true,
		},
	}

	info := extractDeviceInfo(desc)

	if info.Channels["fan1"].SpeedOptions.ProfilesEnabled {
		t.Fatal("expected Smart Device V2 to report profiles disabled regardless of backend support")
	}
	if info.MinProfileLen != 0 || info.MaxProfileLen != 0 {
		t.Fatalf("expected zeroed profile bounds when profiles are disabled, got [%d,%d]", info.MinProfileLen, info.MaxProfileLen)
	}
}

func TestNormalizeLightingClearsUnsupportedDirectionAndSpeed(t *testing.T) {
	e := extractorFor("Kraken Z3")

	l := &device.Lighting{Mode: "fixed", Direction: "forward", Speed: 3}
	e.normalizeLighting(l)
	if l.Direction != "" {
		t.Fatalf("expected Direction cleared for a non-backwards-enabled mode, got %q", l.Direction)
	}
	if l.Speed != 0 {
		t.Fatalf("expected Speed cleared for a speed-disabled mode, got %d", l.Speed)
	}

	l2 := &device.Lighting{Mode: "spectrum-wave", Direction: "forward", Speed: 3}
	e.normalizeLighting(l2)
	if l2.Direction != "forward" || l2.Speed != 3 {
		t.Fatalf("expected spectrum-wave to keep Direction and Speed, got %+v", l2)
	}
}
