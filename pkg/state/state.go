// SPDX-License-Identifier: BSD-3-Clause

package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/qmuntal/stateless"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// FSM provides a thread-safe finite state machine implementation
// with support for guards, actions, and persistence.
type FSM struct {
	config  *Config
	machine *stateless.StateMachine
	mu      sync.RWMutex
	tracer  trace.Tracer
	started bool
	stopped bool

	// machineMu serializes every access to machine, which is not safe for
	// concurrent use. Fire's goroutine holds it for FireCtx's actual
	// lifetime rather than until Fire's caller-visible timeout, so an
	// abandoned in-flight FireCtx can never run concurrently with a later
	// Fire/CanFire/PermittedTriggers/ToGraph call.
	machineMu sync.Mutex

	currentState      string
	persistCallback   PersistenceCallback
	broadcastCallback BroadcastCallback
}

// New creates a new state machine with the provided configuration.
func New(config *Config) (*FSM, error) {
	if config == nil {
		return nil, ErrInvalidConfig
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	sm := &FSM{
		config:            config,
		currentState:      config.InitialState,
		persistCallback:   config.PersistenceCallback,
		broadcastCallback: config.BroadcastCallback,
	}

	if config.EnableTracing {
		sm.tracer = otel.Tracer("state")
	}

	sm.machine = stateless.NewStateMachine(config.InitialState)

	for _, name := range config.States {
		sm.configureState(name)
	}

	for _, transition := range config.Transitions {
		sm.configureTransition(transition)
	}

	return sm, nil
}

// SetPersistenceCallback sets the callback for state persistence.
func (sm *FSM) SetPersistenceCallback(callback PersistenceCallback) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.started {
		return ErrStateMachineAlreadyStarted
	}

	sm.persistCallback = callback
	return nil
}

// SetBroadcastCallback sets the callback for state change broadcasts.
func (sm *FSM) SetBroadcastCallback(callback BroadcastCallback) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.started {
		return ErrStateMachineAlreadyStarted
	}

	sm.broadcastCallback = callback
	return nil
}

// Start initializes and starts the state machine.
func (sm *FSM) Start(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.started {
		return nil
	}

	if sm.stopped {
		return ErrStateMachineStopped
	}

	sm.started = true

	if sm.config.PersistState && sm.persistCallback != nil {
		if err := sm.persistCallback(ctx, sm.config.Name, sm.currentState); err != nil {
			return fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
		}
	}

	return nil
}

// Stop gracefully stops the state machine.
func (sm *FSM) Stop(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.started || sm.stopped {
		return nil
	}

	sm.stopped = true
	return nil
}

// Fire triggers a state transition with the specified trigger.
func (sm *FSM) Fire(ctx context.Context, trigger string, data map[string]any) error {
	sm.mu.Lock()

	if !sm.started {
		sm.mu.Unlock()
		return ErrStateMachineNotStarted
	}

	if sm.stopped {
		sm.mu.Unlock()
		return ErrStateMachineStopped
	}

	var span trace.Span
	if sm.tracer != nil {
		ctx, span = sm.tracer.Start(ctx, "state.Fire",
			trace.WithAttributes(
				attribute.String("state_machine.name", sm.config.Name),
				attribute.String("state.current", sm.currentState),
				attribute.String("trigger", trigger),
			))
		defer span.End()
	}

	previousState := sm.currentState
	name := sm.config.Name
	persistEnabled := sm.config.PersistState
	persistCb := sm.persistCallback
	broadcastCb := sm.broadcastCallback
	sm.mu.Unlock()

	// machineMu is acquired here, synchronously, and released by the
	// goroutine below whenever FireCtx actually returns — which may be
	// long after this call gives up and returns ErrTransitionTimeout to
	// its caller. That keeps a timed-out-but-still-running FireCtx from
	// ever overlapping a later Fire/CanFire/PermittedTriggers/ToGraph call
	// on the same non-concurrency-safe machine.
	sm.machineMu.Lock()

	if ok, err := sm.machine.CanFire(trigger); err != nil {
		sm.machineMu.Unlock()
		return fmt.Errorf("%w: trigger %s not valid in state %s: %w", ErrInvalidTrigger, trigger, previousState, err)
	} else if !ok {
		sm.machineMu.Unlock()
		return fmt.Errorf("%w: trigger %s not valid in state %s", ErrInvalidTrigger, trigger, previousState)
	}

	timeout := sm.config.StateTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	fireCtx, cancel := context.WithTimeout(ctx, timeout)

	done := make(chan error, 1)
	go func() {
		defer cancel()
		defer sm.machineMu.Unlock()

		if err := sm.machine.FireCtx(fireCtx, trigger); err != nil {
			done <- fmt.Errorf("%w: %w", ErrInvalidTransition, err)
			return
		}

		state, err := sm.machine.State(context.Background())
		if err != nil {
			done <- fmt.Errorf("failed to get current state: %w", err)
			return
		}
		newState := fmt.Sprintf("%v", state)

		sm.mu.Lock()
		sm.currentState = newState
		sm.mu.Unlock()

		if persistEnabled && persistCb != nil {
			if perr := persistCb(ctx, name, newState); perr != nil {
				done <- fmt.Errorf("%w: %w", ErrPersistenceFailed, perr)
				return
			}
		}
		if broadcastCb != nil {
			if berr := broadcastCb(ctx, name, previousState, newState, trigger); berr != nil && span != nil {
				span.RecordError(berr)
			}
		}

		done <- nil
	}()

	select {
	case err := <-done:
		if err != nil {
			if span != nil {
				span.RecordError(err)
			}
			return err
		}
	case <-fireCtx.Done():
		if fireCtx.Err() == context.DeadlineExceeded {
			return ErrTransitionTimeout
		}
		return fireCtx.Err()
	}

	sm.mu.RLock()
	curr := sm.currentState
	sm.mu.RUnlock()

	if span != nil {
		span.SetAttributes(
			attribute.String("state.previous", previousState),
			attribute.String("state.new", curr),
		)
	}

	return nil
}

// CurrentState returns the current state of the state machine.
func (sm *FSM) CurrentState() string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.currentState
}

// CanFire checks if the specified trigger can be fired from the current state.
func (sm *FSM) CanFire(trigger string) (bool, error) {
	sm.machineMu.Lock()
	defer sm.machineMu.Unlock()

	return sm.machine.CanFire(trigger)
}

// PermittedTriggers returns all triggers that can be fired from the current state.
func (sm *FSM) PermittedTriggers() []string {
	sm.machineMu.Lock()
	defer sm.machineMu.Unlock()

	triggers, err := sm.machine.PermittedTriggers()
	if err != nil {
		return []string{}
	}

	result := make([]string, len(triggers))
	for i, t := range triggers {
		result[i] = fmt.Sprintf("%v", t)
	}
	return result
}

// IsInState checks if the state machine is in the specified state.
func (sm *FSM) IsInState(state string) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.currentState == state
}

// Name returns the name of the state machine.
func (sm *FSM) Name() string {
	return sm.config.Name
}

// Description returns the description of the state machine.
func (sm *FSM) Description() string {
	return sm.config.Description
}

// GetStateInfo reports whether state is a valid state name for this
// machine.
func (sm *FSM) GetStateInfo(state string) (string, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for _, name := range sm.config.States {
		if name == state {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidState, state)
}

// ToGraph returns a DOT graph representation of the state machine.
func (sm *FSM) ToGraph() string {
	sm.machineMu.Lock()
	defer sm.machineMu.Unlock()

	return sm.machine.ToGraph()
}

func (sm *FSM) configureState(name string) {
	stateConfig := sm.machine.Configure(name)

	if sm.config.OnStateEntry != nil {
		entry := sm.config.OnStateEntry
		stateConfig.OnEntry(func(ctx context.Context, args ...any) error {
			return entry(ctx, sm.config.Name, name)
		})
	}

	if sm.config.OnStateExit != nil {
		exit := sm.config.OnStateExit
		stateConfig.OnExit(func(ctx context.Context, args ...any) error {
			return exit(ctx, sm.config.Name, name)
		})
	}
}

func (sm *FSM) configureTransition(transition Transition) {
	fromCfg := sm.machine.Configure(transition.From)

	if transition.Guard != nil {
		fromCfg.PermitDynamic(transition.Trigger, func(ctx context.Context, args ...any) (any, error) {
			if transition.Guard() {
				return transition.To, nil
			}
			return nil, fmt.Errorf("%w: %s", ErrTransitionGuardFailed, transition.Trigger)
		})
	} else {
		fromCfg.Permit(transition.Trigger, transition.To)
	}

	if transition.Action != nil {
		toCfg := sm.machine.Configure(transition.To)
		toCfg.OnEntryFrom(transition.Trigger, func(ctx context.Context, args ...any) error {
			return transition.Action(transition.From, transition.To, transition.Trigger)
		})
	}
}

// Manager manages multiple state machines.
type Manager struct {
	machines map[string]*FSM
	mu       sync.RWMutex
}

// NewManager creates a new state machine manager.
func NewManager() *Manager {
	return &Manager{
		machines: make(map[string]*FSM),
	}
}

// AddStateMachine adds a state machine to the manager.
func (m *Manager) AddStateMachine(sm *FSM) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sm == nil {
		return fmt.Errorf("%w: nil state machine", ErrInvalidConfig)
	}

	if _, exists := m.machines[sm.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrStateMachineExists, sm.Name())
	}

	m.machines[sm.Name()] = sm
	return nil
}

// RemoveStateMachine removes a state machine from the manager.
func (m *Manager) RemoveStateMachine(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.machines[name]; !exists {
		return fmt.Errorf("%w: %s", ErrStateMachineNotFound, name)
	}

	delete(m.machines, name)
	return nil
}

// GetStateMachine retrieves a state machine by name.
func (m *Manager) GetStateMachine(name string) (*FSM, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sm, exists := m.machines[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrStateMachineNotFound, name)
	}

	return sm, nil
}

// ListStateMachines returns the names of all managed state machines.
func (m *Manager) ListStateMachines() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.machines))
	for name := range m.machines {
		names = append(names, name)
	}

	return names
}

// StopAll stops all managed state machines.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, sm := range m.machines {
		if err := sm.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
