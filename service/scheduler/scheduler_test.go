// SPDX-License-Identifier: BSD-3-Clause

package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coolerd/coolerd/pkg/device"
	"github.com/coolerd/coolerd/pkg/profile"
	"github.com/coolerd/coolerd/service/reposcommon"
)

// fakeRepo is a minimal reposcommon.Repository recording every SetSettings
// call it receives, with one device whose temp can be changed by the test.
type fakeRepo struct {
	mu      sync.Mutex
	d       *device.Device
	applied []device.Setting
}

func newFakeRepo(tempC float64) *fakeRepo {
	d := device.NewDevice(device.Identity{Type: device.TypeHwmon, TypeID: 1}, device.Info{Name: "fake"})
	d.ApplyStatus(device.Status{Temps: []device.TempStatus{{Name: "t", TempC: tempC, ExternalName: "fake.t"}}})
	return &fakeRepo{d: d}
}

func (f *fakeRepo) setTemp(tempC float64) {
	f.d.ApplyStatus(device.Status{Temps: []device.TempStatus{{Name: "t", TempC: tempC, ExternalName: "fake.t"}}})
}

func (f *fakeRepo) Name() string                  { return "fakerepo" }
func (f *fakeRepo) Statuses() []*device.Device     { return []*device.Device{f.d} }
func (f *fakeRepo) UpdateStatuses(context.Context) error { return nil }

func (f *fakeRepo) SetSettings(ctx context.Context, deviceID int, s device.Setting) (reposcommon.StatusTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, s)
	return reposcommon.StatusTag("fake"), nil
}

func (f *fakeRepo) SetChannelToDefault(ctx context.Context, deviceID int, channelName string) (reposcommon.StatusTag, error) {
	return reposcommon.StatusTag("fake"), nil
}

func (f *fakeRepo) Shutdown(context.Context) error { return nil }

func (f *fakeRepo) appliedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.applied)
}

func (f *fakeRepo) lastApplied() device.Setting {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applied[len(f.applied)-1]
}

func TestEvaluateAppliesInterpolatedDuty(t *testing.T) {
	repo := newFakeRepo(50)
	s := New([]reposcommon.Repository{repo}, WithMinApplyInterval(0))

	limits := profile.Limits{MinDuty: 0, MaxDuty: 100, CriticalTemp: 90}
	points := []device.ProfilePoint{{TempC: 30, Duty: 20}, {TempC: 70, Duty: 80}}
	ref := device.TempSourceRef{TempName: "fake.t"}

	if err := s.SetProfile(repo, 1, "pump", points, limits, ref, 0); err != nil {
		t.Fatalf("SetProfile: %v", err)
	}
	if err := s.Evaluate(context.Background()); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if repo.appliedCount() != 1 {
		t.Fatalf("expected one applied setting, got %d", repo.appliedCount())
	}
	got := repo.lastApplied()
	if got.Fixed == nil {
		t.Fatalf("expected a Fixed duty to be set")
	}
	// At 50C, halfway between the two points: 20 + (80-20)/2 = 50.
	if *got.Fixed != 50 {
		t.Errorf("duty = %d, want 50", *got.Fixed)
	}
}

func TestEvaluateSkipsUnchangedDuty(t *testing.T) {
	repo := newFakeRepo(50)
	s := New([]reposcommon.Repository{repo}, WithMinApplyInterval(0))

	limits := profile.Limits{MinDuty: 0, MaxDuty: 100, CriticalTemp: 90}
	points := []device.ProfilePoint{{TempC: 30, Duty: 20}, {TempC: 70, Duty: 80}}
	ref := device.TempSourceRef{TempName: "fake.t"}
	_ = s.SetProfile(repo, 1, "pump", points, limits, ref, 0)

	_ = s.Evaluate(context.Background())
	_ = s.Evaluate(context.Background())

	if repo.appliedCount() != 1 {
		t.Fatalf("expected duty to be applied only once when unchanged, got %d", repo.appliedCount())
	}
}

func TestEvaluateRespectsMinApplyInterval(t *testing.T) {
	repo := newFakeRepo(30)
	s := New([]reposcommon.Repository{repo}, WithMinApplyInterval(time.Hour))

	limits := profile.Limits{MinDuty: 0, MaxDuty: 100, CriticalTemp: 90}
	points := []device.ProfilePoint{{TempC: 30, Duty: 20}, {TempC: 70, Duty: 80}}
	ref := device.TempSourceRef{TempName: "fake.t"}
	_ = s.SetProfile(repo, 1, "pump", points, limits, ref, 0)

	_ = s.Evaluate(context.Background())
	repo.setTemp(70)
	_ = s.Evaluate(context.Background())

	if repo.appliedCount() != 1 {
		t.Fatalf("expected only the first apply within the interval, got %d", repo.appliedCount())
	}
}

func TestPauseSkipsEvaluation(t *testing.T) {
	repo := newFakeRepo(50)
	s := New([]reposcommon.Repository{repo}, WithMinApplyInterval(0))

	limits := profile.Limits{MinDuty: 0, MaxDuty: 100, CriticalTemp: 90}
	points := []device.ProfilePoint{{TempC: 30, Duty: 20}, {TempC: 70, Duty: 80}}
	ref := device.TempSourceRef{TempName: "fake.t"}
	_ = s.SetProfile(repo, 1, "pump", points, limits, ref, 0)

	ctx := context.Background()
	if err := s.fsm.Start(ctx); err != nil {
		t.Fatalf("starting fsm: %v", err)
	}
	if err := s.Pause(ctx); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := s.Evaluate(ctx); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if repo.appliedCount() != 0 {
		t.Fatalf("expected no applies while paused, got %d", repo.appliedCount())
	}

	if err := s.Resume(ctx); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if err := s.Evaluate(ctx); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if repo.appliedCount() != 1 {
		t.Fatalf("expected one apply after resume, got %d", repo.appliedCount())
	}
}

func TestClearProfileRemovesBindingAndRestoresDefault(t *testing.T) {
	repo := newFakeRepo(50)
	s := New([]reposcommon.Repository{repo})

	limits := profile.Limits{MinDuty: 0, MaxDuty: 100, CriticalTemp: 90}
	points := []device.ProfilePoint{{TempC: 30, Duty: 20}}
	ref := device.TempSourceRef{TempName: "fake.t"}
	_ = s.SetProfile(repo, 1, "pump", points, limits, ref, 0)

	if err := s.ClearProfile(context.Background(), repo, 1, "pump"); err != nil {
		t.Fatalf("ClearProfile: %v", err)
	}
	if err := s.ClearProfile(context.Background(), repo, 1, "pump"); err != ErrUnknownBinding {
		t.Fatalf("expected ErrUnknownBinding on second clear, got %v", err)
	}
}
