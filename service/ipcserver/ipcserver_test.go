// SPDX-License-Identifier: BSD-3-Clause

package ipcserver

import (
	"context"
	"net"
	"testing"

	"github.com/coolerd/coolerd/pkg/device"
	"github.com/coolerd/coolerd/pkg/profile"
	"github.com/coolerd/coolerd/pkg/wire"
	"github.com/coolerd/coolerd/service/reposcommon"
)

type fakeRepo struct {
	name     string
	devices  []*device.Device
	lastSet  device.Setting
	lastID   int
	setErr   error
	resetTag reposcommon.StatusTag
}

func (r *fakeRepo) Name() string                      { return r.name }
func (r *fakeRepo) Statuses() []*device.Device        { return r.devices }
func (r *fakeRepo) UpdateStatuses(context.Context) error { return nil }
func (r *fakeRepo) SetSettings(_ context.Context, id int, s device.Setting) (reposcommon.StatusTag, error) {
	r.lastID = id
	r.lastSet = s
	if r.setErr != nil {
		return "", r.setErr
	}
	return reposcommon.StatusTag("applied"), nil
}
func (r *fakeRepo) SetChannelToDefault(context.Context, int, string) (reposcommon.StatusTag, error) {
	return r.resetTag, nil
}
func (r *fakeRepo) Shutdown(context.Context) error { return nil }

func deviceWithChannel(typ device.Type, id int, channel string) *device.Device {
	d := device.NewDevice(device.Identity{Type: typ, TypeID: id}, device.Info{
		Name: "fan hub",
		Channels: map[string]device.ChannelInfo{
			channel: {SpeedOptions: &device.SpeedOptions{MinDuty: 20, MaxDuty: 100, ProfilesEnabled: true, FixedEnabled: true}},
		},
	})
	return d
}

type fakeScheduler struct {
	setCalls   int
	clearCalls int
	setErr     error
}

func (f *fakeScheduler) SetProfile(reposcommon.Repository, int, string, []device.ProfilePoint, profile.Limits, device.TempSourceRef, float64) error {
	f.setCalls++
	return f.setErr
}
func (f *fakeScheduler) ClearProfile(context.Context, reposcommon.Repository, int, string) error {
	f.clearCalls++
	return nil
}

func TestApplySettingFixedRoutesToRepositoryAndClearsProfile(t *testing.T) {
	d := deviceWithChannel(device.TypeHwmon, 1, "fan1")
	repo := &fakeRepo{name: "hwmon", devices: []*device.Device{d}}
	sched := &fakeScheduler{}
	s := New([]reposcommon.Repository{repo}, sched)

	duty := 50
	r := s.applySetting(context.Background(), deviceRef{Type: "Hwmon", ID: 1}, modeEntry{
		ChannelName: "fan1",
		Setting:     device.Setting{Fixed: &duty},
	})

	if !r.OK {
		t.Fatalf("expected OK reply, got error %q", r.Error)
	}
	if sched.clearCalls != 1 {
		t.Fatalf("expected fixed duty to clear any scheduler binding, got %d clears", sched.clearCalls)
	}
	if repo.lastSet.Fixed == nil || *repo.lastSet.Fixed != 50 {
		t.Fatalf("expected repository to receive fixed duty 50, got %+v", repo.lastSet)
	}
}

func TestApplySettingProfileRoutesToScheduler(t *testing.T) {
	d := deviceWithChannel(device.TypeHwmon, 1, "fan1")
	repo := &fakeRepo{name: "hwmon", devices: []*device.Device{d}}
	sched := &fakeScheduler{}
	s := New([]reposcommon.Repository{repo}, sched)

	r := s.applySetting(context.Background(), deviceRef{Type: "Hwmon", ID: 1}, modeEntry{
		ChannelName: "fan1",
		Setting: device.Setting{
			Profile: []device.ProfilePoint{{TempC: 30, Duty: 20}, {TempC: 70, Duty: 100}},
		},
	})

	if !r.OK {
		t.Fatalf("expected OK reply, got error %q", r.Error)
	}
	if sched.setCalls != 1 {
		t.Fatalf("expected one SetProfile call, got %d", sched.setCalls)
	}
}

func TestApplySettingResetToDefault(t *testing.T) {
	d := deviceWithChannel(device.TypeHwmon, 1, "fan1")
	repo := &fakeRepo{name: "hwmon", devices: []*device.Device{d}, resetTag: "default"}
	sched := &fakeScheduler{}
	s := New([]reposcommon.Repository{repo}, sched)

	r := s.applySetting(context.Background(), deviceRef{Type: "Hwmon", ID: 1}, modeEntry{
		ChannelName: "fan1",
		Setting:     device.Setting{ResetToDefault: true},
	})

	if !r.OK || r.Tag != "default" {
		t.Fatalf("expected OK reply tagged 'default', got %+v", r)
	}
	if sched.clearCalls != 1 {
		t.Fatalf("expected ResetToDefault to also clear any scheduler binding, got %d clears", sched.clearCalls)
	}
}

func TestApplySettingUnknownDevice(t *testing.T) {
	s := New(nil, &fakeScheduler{})
	r := s.applySetting(context.Background(), deviceRef{Type: "Hwmon", ID: 99}, modeEntry{})
	if r.OK || r.Error != ErrUnknownDevice.Error() {
		t.Fatalf("expected unknown device error, got %+v", r)
	}
}

func TestApplyModeUnknownMode(t *testing.T) {
	s := New(nil, nil)
	r := s.applyMode(context.Background(), "missing")
	if r.OK || r.Error != ErrUnknownMode.Error() {
		t.Fatalf("expected unknown mode error, got %+v", r)
	}
}

func TestSaveModeThenApplyMode(t *testing.T) {
	d := deviceWithChannel(device.TypeHwmon, 1, "fan1")
	repo := &fakeRepo{name: "hwmon", devices: []*device.Device{d}, resetTag: "default"}
	s := New([]reposcommon.Repository{repo}, nil)

	entries := []modeEntry{{
		Device:      deviceRef{Type: "Hwmon", ID: 1},
		ChannelName: "fan1",
		Setting:     device.Setting{ResetToDefault: true},
	}}

	saveResp := s.dispatch(context.Background(), request{Cmd: "save_mode", ModeName: "silent", Entries: entries})
	if !saveResp.OK {
		t.Fatalf("expected save_mode to succeed, got %+v", saveResp)
	}

	applyResp := s.dispatch(context.Background(), request{Cmd: "apply_mode", ModeName: "silent"})
	if !applyResp.OK || applyResp.Tag != "default" {
		t.Fatalf("expected apply_mode to succeed with tag 'default', got %+v", applyResp)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	s := New(nil, nil)
	r := s.dispatch(context.Background(), request{Cmd: "frobnicate"})
	if r.OK || r.Error != ErrUnknownCommand.Error() {
		t.Fatalf("expected unknown command error, got %+v", r)
	}
}

func TestHandleConnListDevices(t *testing.T) {
	d := deviceWithChannel(device.TypeHwmon, 1, "fan1")
	repo := &fakeRepo{name: "hwmon", devices: []*device.Device{d}}
	s := New([]reposcommon.Repository{repo}, nil)

	client, server := net.Pipe()
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.handleConn(ctx, server)
		close(done)
	}()

	if err := wire.WriteFrame(client, request{Cmd: "list_devices"}); err != nil {
		t.Fatalf("writing request: %v", err)
	}

	var resp reply
	if err := wire.ReadFrame(client, &resp); err != nil {
		t.Fatalf("reading response: %v", err)
	}
	if !resp.OK || len(resp.Devices) != 1 {
		t.Fatalf("expected one device in snapshot, got %+v", resp)
	}

	client.Close()
	<-done
}
