// SPDX-License-Identifier: BSD-3-Clause

package compositerepo

import (
	"context"
	"testing"

	"github.com/coolerd/coolerd/pkg/device"
	"github.com/coolerd/coolerd/service/reposcommon"
)

// stubRepository is a minimal reposcommon.Repository backed by a fixed set
// of devices, used to feed known temps into the Composite Repository.
type stubRepository struct {
	name    string
	devices []*device.Device
}

func (s *stubRepository) Name() string { return s.name }

func (s *stubRepository) Statuses() []*device.Device { return s.devices }

func (s *stubRepository) UpdateStatuses(ctx context.Context) error { return nil }

func (s *stubRepository) SetSettings(ctx context.Context, deviceID int, set device.Setting) (reposcommon.StatusTag, error) {
	return reposcommon.StatusTag(s.name), nil
}

func (s *stubRepository) SetChannelToDefault(ctx context.Context, deviceID int, channelName string) (reposcommon.StatusTag, error) {
	return reposcommon.StatusTag(s.name), nil
}

func (s *stubRepository) Shutdown(ctx context.Context) error { return nil }

func deviceWithTemps(id int, temps ...float64) *device.Device {
	d := device.NewDevice(device.Identity{Type: device.TypeHwmon, TypeID: id}, device.Info{Name: "stub"})
	status := device.Status{}
	for _, t := range temps {
		status.Temps = append(status.Temps, device.TempStatus{
			Name:  "temp",
			TempC: t,
		})
	}
	d.ApplyStatus(status)
	return d
}

func TestUpdateStatusesComputesAverageAndDelta(t *testing.T) {
	src1 := &stubRepository{name: "src1", devices: []*device.Device{deviceWithTemps(1, 40.0, 60.0)}}
	src2 := &stubRepository{name: "src2", devices: []*device.Device{deviceWithTemps(2, 50.0)}}

	r := New([]reposcommon.Repository{src1, src2})
	if err := r.UpdateStatuses(context.Background()); err != nil {
		t.Fatalf("UpdateStatuses: %v", err)
	}

	statuses := r.Statuses()
	if len(statuses) != 1 {
		t.Fatalf("expected exactly one composite device, got %d", len(statuses))
	}
	status := statuses[0].Status()
	if len(status.Temps) != 2 {
		t.Fatalf("expected average and delta entries, got %d temps", len(status.Temps))
	}

	var avg, delta *device.TempStatus
	for i := range status.Temps {
		switch status.Temps[i].Name {
		case averageChannelName:
			avg = &status.Temps[i]
		case deltaChannelName:
			delta = &status.Temps[i]
		}
	}
	if avg == nil || delta == nil {
		t.Fatalf("missing average or delta entry: %+v", status.Temps)
	}

	wantAvg := (40.0 + 60.0 + 50.0) / 3.0
	if avg.TempC != wantAvg {
		t.Errorf("average = %v, want %v", avg.TempC, wantAvg)
	}
	wantDelta := 60.0 - 40.0
	if delta.TempC != wantDelta {
		t.Errorf("delta = %v, want %v", delta.TempC, wantDelta)
	}
}

func TestUpdateStatusesNoTempsLeavesDeviceUntouched(t *testing.T) {
	empty := &stubRepository{name: "empty", devices: []*device.Device{
		device.NewDevice(device.Identity{Type: device.TypeHwmon, TypeID: 1}, device.Info{Name: "empty"}),
	}}

	r := New([]reposcommon.Repository{empty})
	if err := r.UpdateStatuses(context.Background()); err != nil {
		t.Fatalf("UpdateStatuses: %v", err)
	}

	status := r.Statuses()[0].Status()
	if len(status.Temps) != 0 {
		t.Fatalf("expected no synthesized temps, got %+v", status.Temps)
	}
}

func TestSetSettingsRejected(t *testing.T) {
	r := New(nil)
	if _, err := r.SetSettings(context.Background(), 1, device.Setting{ChannelName: averageChannelName}); err != ErrNotWritable {
		t.Fatalf("expected ErrNotWritable, got %v", err)
	}
}
