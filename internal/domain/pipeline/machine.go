package pipeline

import (
	"fmt"
	"time"
)

// Transition records one step taken by a run
type Transition struct {
	From    State
	Trigger Trigger
	To      State
	At      time.Time
}

// StateMachine tracks the current state of a run and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is permitted in the current state
	CanFire(trigger Trigger) bool

	// Fire executes the trigger, transitioning to the new state if allowed
	Fire(trigger Trigger) error

	// History returns the transitions taken so far, oldest first
	History() []Transition
}

// Builder configures the permitted transitions of a state machine
type Builder struct {
	transitions map[State]map[Trigger]State
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{transitions: make(map[State]map[Trigger]State)}
}

// Permit allows trigger to move from one state to another
func (b *Builder) Permit(from State, trigger Trigger, to State) *Builder {
	if !from.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", from))
	}
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", to))
	}

	if b.transitions[from] == nil {
		b.transitions[from] = make(map[Trigger]State)
	}
	b.transitions[from][trigger] = to
	return b
}

// Build creates a machine in the initial state. Machines built from the
// same builder are independent of each other and of later Permit calls.
func (b *Builder) Build(initial State) StateMachine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initial))
	}

	table := make(map[State]map[Trigger]State, len(b.transitions))
	for from, byTrigger := range b.transitions {
		copied := make(map[Trigger]State, len(byTrigger))
		for trigger, to := range byTrigger {
			copied[trigger] = to
		}
		table[from] = copied
	}

	return &machine{current: initial, table: table, now: time.Now}
}

type machine struct {
	current State
	table   map[State]map[Trigger]State
	history []Transition
	now     func() time.Time
}

func (m *machine) State() State {
	return m.current
}

func (m *machine) CanFire(trigger Trigger) bool {
	_, ok := m.table[m.current][trigger]
	return ok
}

func (m *machine) Fire(trigger Trigger) error {
	to, ok := m.table[m.current][trigger]
	if !ok {
		return fmt.Errorf("%w: cannot fire trigger %s from state %s", ErrInvalidTransition, trigger, m.current)
	}

	m.history = append(m.history, Transition{From: m.current, Trigger: trigger, To: to, At: m.now()})
	m.current = to
	return nil
}

func (m *machine) History() []Transition {
	return append([]Transition(nil), m.history...)
}

// linearSteps is the success path of a run, in order
var linearSteps = []struct {
	from    State
	trigger Trigger
	to      State
}{
	{StateStart, TriggerDriverAcquired, StateDriverReady},
	{StateDriverReady, TriggerLoggedIn, StateLoggedIn},
	{StateLoggedIn, TriggerNavigated, StateNavigated},
	{StateNavigated, TriggerSearched, StateSearched},
	{StateSearched, TriggerExported, StateExported},
	{StateExported, TriggerNormalized, StateNormalized},
	{StateNormalized, TriggerReconciled, StateReconciled},
	{StateReconciled, TriggerCleanedUp, StateCleanedUp},
	{StateCleanedUp, TriggerFinish, StateDone},
}

// NewRunMachine builds the machine for one run: a strictly linear success
// path where every non-terminal state may fail straight to DONE, and a
// search may end at DONE when the portal has nothing to export.
func NewRunMachine() StateMachine {
	b := NewBuilder()
	for _, s := range linearSteps {
		b.Permit(s.from, s.trigger, s.to)
		b.Permit(s.from, TriggerFail, StateDone)
	}
	b.Permit(StateSearched, TriggerNoResults, StateDone)
	return b.Build(StateStart)
}
