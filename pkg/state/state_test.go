// SPDX-License-Identifier: BSD-3-Clause

package state

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newPauseResumeConfig() *Config {
	return NewConfig(
		WithName("test-pause"),
		WithInitialState("running"),
		WithStates("running", "paused"),
		WithTransition("running", "paused", "pause"),
		WithTransition("paused", "running", "resume"),
	)
}

func TestNewRejectsNilConfig(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("got err %v, want ErrInvalidConfig", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := NewConfig(WithName("no-states"), WithInitialState("off"))
	if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("got err %v, want ErrInvalidConfig", err)
	}
}

func TestFireBeforeStartFails(t *testing.T) {
	sm, err := New(newPauseResumeConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := sm.Fire(context.Background(), "pause", nil); !errors.Is(err, ErrStateMachineNotStarted) {
		t.Fatalf("got err %v, want ErrStateMachineNotStarted", err)
	}
}

func TestFireTransitionsState(t *testing.T) {
	sm, err := New(newPauseResumeConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := sm.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if !sm.IsInState("running") {
		t.Fatalf("expected initial state running, got %s", sm.CurrentState())
	}

	if err := sm.Fire(ctx, "pause", nil); err != nil {
		t.Fatalf("Fire(pause): %v", err)
	}
	if !sm.IsInState("paused") {
		t.Fatalf("expected state paused after Fire(pause), got %s", sm.CurrentState())
	}

	if err := sm.Fire(ctx, "resume", nil); err != nil {
		t.Fatalf("Fire(resume): %v", err)
	}
	if !sm.IsInState("running") {
		t.Fatalf("expected state running after Fire(resume), got %s", sm.CurrentState())
	}
}

func TestFireInvalidTriggerFails(t *testing.T) {
	sm, err := New(newPauseResumeConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := sm.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// "resume" is not valid from the initial "running" state.
	if err := sm.Fire(ctx, "resume", nil); !errors.Is(err, ErrInvalidTrigger) {
		t.Fatalf("got err %v, want ErrInvalidTrigger", err)
	}
}

func TestGuardedTransitionBlocksWhenGuardFails(t *testing.T) {
	allowed := false
	cfg := NewConfig(
		WithName("guarded"),
		WithInitialState("off"),
		WithStates("off", "on"),
		WithGuardedTransition("off", "on", "power_on", func() bool { return allowed }),
	)

	sm, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := sm.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := sm.Fire(ctx, "power_on", nil); err == nil {
		t.Fatal("expected Fire to fail while guard denies the transition")
	}
	if !sm.IsInState("off") {
		t.Fatalf("expected state to remain off, got %s", sm.CurrentState())
	}

	allowed = true
	if err := sm.Fire(ctx, "power_on", nil); err != nil {
		t.Fatalf("Fire(power_on) after guard allows: %v", err)
	}
	if !sm.IsInState("on") {
		t.Fatalf("expected state on, got %s", sm.CurrentState())
	}
}

func TestActionTransitionInvokesAction(t *testing.T) {
	var gotFrom, gotTo, gotTrigger string
	cfg := NewConfig(
		WithName("actioned"),
		WithInitialState("off"),
		WithStates("off", "on"),
		WithActionTransition("off", "on", "power_on", func(from, to, trigger string) error {
			gotFrom, gotTo, gotTrigger = from, to, trigger
			return nil
		}),
	)

	sm, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := sm.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := sm.Fire(ctx, "power_on", nil); err != nil {
		t.Fatalf("Fire(power_on): %v", err)
	}

	if gotFrom != "off" || gotTo != "on" || gotTrigger != "power_on" {
		t.Fatalf("action called with (%q,%q,%q), want (off,on,power_on)", gotFrom, gotTo, gotTrigger)
	}
}

func TestPersistenceCallbackInvokedWhenEnabled(t *testing.T) {
	var persisted []string
	cfg := NewConfig(
		WithName("persisted"),
		WithInitialState("running"),
		WithStates("running", "paused"),
		WithTransition("running", "paused", "pause"),
		WithPersistState(true),
		WithPersistence(func(ctx context.Context, name, state string) error {
			persisted = append(persisted, state)
			return nil
		}),
	)

	sm, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := sm.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := sm.Fire(ctx, "pause", nil); err != nil {
		t.Fatalf("Fire(pause): %v", err)
	}

	if len(persisted) != 2 || persisted[0] != "running" || persisted[1] != "paused" {
		t.Fatalf("persisted = %v, want [running paused]", persisted)
	}
}

func TestBroadcastCallbackInvokedOnTransition(t *testing.T) {
	type change struct{ prev, curr, trigger string }
	var got change

	cfg := NewConfig(
		WithName("broadcast"),
		WithInitialState("running"),
		WithStates("running", "paused"),
		WithTransition("running", "paused", "pause"),
		WithBroadcast(func(ctx context.Context, name, prev, curr, trigger string) error {
			got = change{prev, curr, trigger}
			return nil
		}),
	)

	sm, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := sm.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := sm.Fire(ctx, "pause", nil); err != nil {
		t.Fatalf("Fire(pause): %v", err)
	}

	want := change{"running", "paused", "pause"}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestSetCallbacksRejectedAfterStart(t *testing.T) {
	sm, err := New(newPauseResumeConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sm.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := sm.SetPersistenceCallback(nil); !errors.Is(err, ErrStateMachineAlreadyStarted) {
		t.Fatalf("got err %v, want ErrStateMachineAlreadyStarted", err)
	}
	if err := sm.SetBroadcastCallback(nil); !errors.Is(err, ErrStateMachineAlreadyStarted) {
		t.Fatalf("got err %v, want ErrStateMachineAlreadyStarted", err)
	}
}

func TestStopThenFireFails(t *testing.T) {
	sm, err := New(newPauseResumeConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := sm.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := sm.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if err := sm.Fire(ctx, "pause", nil); !errors.Is(err, ErrStateMachineStopped) {
		t.Fatalf("got err %v, want ErrStateMachineStopped", err)
	}
}

func TestFireSerializesAgainstAnAbandonedTimedOutTransition(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	cfg := NewConfig(
		WithName("slow"),
		WithInitialState("running"),
		WithStates("running", "paused"),
		WithStateTimeout(10*time.Millisecond),
		WithActionTransition("running", "paused", "pause", func(from, to, trigger string) error {
			close(started)
			<-release
			return nil
		}),
		WithTransition("paused", "running", "resume"),
	)

	sm, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := sm.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := sm.Fire(ctx, "pause", nil); !errors.Is(err, ErrTransitionTimeout) {
		t.Fatalf("got err %v, want ErrTransitionTimeout", err)
	}
	<-started

	// The timed-out action is still running on its own goroutine. A second
	// Fire must not touch the underlying machine concurrently with it; it
	// should block until the abandoned transition actually completes, not
	// race ahead and observe a half-updated machine.
	done := make(chan error, 1)
	go func() {
		done <- sm.Fire(ctx, "resume", nil)
	}()

	select {
	case <-done:
		t.Fatal("second Fire returned before the abandoned transition released")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Fire(resume) after release: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("second Fire never completed after release")
	}

	if !sm.IsInState("running") {
		t.Fatalf("expected state running after resume, got %s", sm.CurrentState())
	}
}

func TestGetStateInfo(t *testing.T) {
	sm, err := New(newPauseResumeConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := sm.GetStateInfo("paused"); err != nil {
		t.Fatalf("GetStateInfo(paused): %v", err)
	}
	if _, err := sm.GetStateInfo("nonexistent"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("got err %v, want ErrInvalidState", err)
	}
}

func TestManagerAddGetRemove(t *testing.T) {
	sm, err := New(newPauseResumeConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	mgr := NewManager()
	if err := mgr.AddStateMachine(sm); err != nil {
		t.Fatalf("AddStateMachine: %v", err)
	}
	if err := mgr.AddStateMachine(sm); !errors.Is(err, ErrStateMachineExists) {
		t.Fatalf("got err %v, want ErrStateMachineExists", err)
	}

	got, err := mgr.GetStateMachine("test-pause")
	if err != nil {
		t.Fatalf("GetStateMachine: %v", err)
	}
	if got != sm {
		t.Fatal("GetStateMachine returned a different instance than was added")
	}

	if err := mgr.RemoveStateMachine("test-pause"); err != nil {
		t.Fatalf("RemoveStateMachine: %v", err)
	}
	if _, err := mgr.GetStateMachine("test-pause"); !errors.Is(err, ErrStateMachineNotFound) {
		t.Fatalf("got err %v, want ErrStateMachineNotFound", err)
	}
}

func TestNewPowerStateMachineTransitions(t *testing.T) {
	sm, err := NewPowerStateMachine("psu0")
	if err != nil {
		t.Fatalf("NewPowerStateMachine: %v", err)
	}

	ctx := context.Background()
	if err := sm.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := sm.Fire(ctx, "power_on", nil); err != nil {
		t.Fatalf("Fire(power_on): %v", err)
	}
	if !sm.IsInState("transitioning") {
		t.Fatalf("expected transitioning, got %s", sm.CurrentState())
	}
	if err := sm.Fire(ctx, "transition_complete_on", nil); err != nil {
		t.Fatalf("Fire(transition_complete_on): %v", err)
	}
	if !sm.IsInState("on") {
		t.Fatalf("expected on, got %s", sm.CurrentState())
	}
}

func TestBMCPowerBuilderWithGuardAndAction(t *testing.T) {
	canPowerOn := false
	var actionCalled bool

	sm, err := NewBMCPowerBuilder("psu1").
		WithPowerOnGuard(func() bool { return canPowerOn }).
		WithPowerOnAction(func(from, to, trigger string) error {
			actionCalled = true
			return nil
		}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	ctx := context.Background()
	if err := sm.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := sm.Fire(ctx, "power_on", nil); err == nil {
		t.Fatal("expected Fire to fail while guard denies power_on")
	}

	canPowerOn = true
	if err := sm.Fire(ctx, "power_on", nil); err != nil {
		t.Fatalf("Fire(power_on): %v", err)
	}
	if err := sm.Fire(ctx, "transition_complete_on", nil); err != nil {
		t.Fatalf("Fire(transition_complete_on): %v", err)
	}
	if !actionCalled {
		t.Fatal("expected power-on action to have been invoked")
	}
}
