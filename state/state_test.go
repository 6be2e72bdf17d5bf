package state

import (
	"testing"
)

// MockState is a test double for the State interface.
// It helps us track which methods have been called.
type MockState struct {
	ID            string
	OnEnterCalled bool
	OnExitCalled  bool
}

func (m *MockState) OnEnter() {
	m.OnEnterCalled = true
}

func (m *MockState) OnExit() {
	m.OnExitCalled = true
}

func (m *MockState) GetID() string {
	return m.ID
}

// reset clears the call tracking flags.
func (m *MockState) reset() {
	m.OnEnterCalled = false
	m.OnExitCalled = false
}

func TestStateMachine_InitialState(t *testing.T) {
	initialState := &MockState{ID: "initial"}
	sm := NewBaseStateMachine(initialState)

	if !initialState.OnEnterCalled {
		t.Error("Expected OnEnter to be called on the initial state")
	}

	if sm.GetCurrentState() != initialState {
		t.Error("GetCurrentState should return the initial state")
	}
}

func TestStateMachine_ChangeState(t *testing.T) {
	initialState := &MockState{ID: "initial"}
	nextState := &MockState{ID: "next"}

	sm := NewBaseStateMachine(initialState)
	initialState.reset() // Reset after initialization

	err := sm.ChangeState(nextState)
	if err != nil {
		t.Fatalf("ChangeState should not return an error, but got: %v", err)
	}

	if !initialState.OnExitCalled {
		t.Error("Expected OnExit to be called on the old state")
	}

	if !nextState.OnEnterCalled {
		t.Error("Expected OnEnter to be called on the new state")
	}

	if sm.GetCurrentState() != nextState {
		t.Error("GetCurrentState should return the new state")
	}
}

func TestStateMachine_AddAndUseTransition(t *testing.T) {
	stateA := &MockState{ID: "A"}
	stateB := &MockState{ID: "B"}
	stateC := &MockState{ID: "C"}

	sm := NewBaseStateMachine(stateA)

	// Add a valid transition from A to B
	err := sm.AddTransition(stateA, stateB, func() bool { return true })
	if err != nil {
		t.Fatalf("AddTransition failed: %v", err)
	}

	// Add a blocked transition from B to C
	err = sm.AddTransition(stateB, stateC, func() bool { return false })
	if err != nil {
		t.Fatalf("AddTransition failed: %v", err)
	}

	// --- Test valid transition ---
	stateA.reset()
	err = sm.ChangeState(stateB)
	if err != nil {
		t.Errorf("Expected transition from A to B to be allowed, but got error: %v", err)
	}
	if sm.GetCurrentState().GetID() != "B" {
		t.Errorf("Expected current state to be B, but got %s", sm.GetCurrentState().GetID())
	}

	// --- Test blocked transition ---
	stateB.reset()
	if sm.Can(stateC) {
		t.Error("Can should report the blocked transition B -> C")
	}
	err = sm.ChangeState(stateC)
	if err != ErrTransitionNotAllowed {
		t.Errorf("Expected ErrTransitionNotAllowed, but got: %v", err)
	}
	if sm.GetCurrentState().GetID() != "B" {
		t.Errorf("Expected current state to remain B after a blocked transition, but got %s", sm.GetCurrentState().GetID())
	}
	if stateB.OnExitCalled {
		t.Error("OnExit should not be called on the current state if transition is blocked")
	}
	if stateC.OnEnterCalled {
		t.Error("OnEnter should not be called on the new state if transition is blocked")
	}
}

func TestStrictStateMachine_RejectsUnregistered(t *testing.T) {
	intro := NewPhase("INTRO")
	setup := NewPhase("SETUP")
	playing := NewPhase("PLAYING")

	sm := NewStrictStateMachine(intro)
	sm.AddTransition(intro, setup, nil)
	sm.AddTransition(setup, playing, nil)

	if err := sm.ChangeState(playing); err != ErrTransitionNotAllowed {
		t.Fatalf("Expected INTRO -> PLAYING to be rejected, got %v", err)
	}
	if err := sm.ChangeState(setup); err != nil {
		t.Fatalf("INTRO -> SETUP should be allowed: %v", err)
	}
	if err := sm.ChangeState(playing); err != nil {
		t.Fatalf("SETUP -> PLAYING should be allowed: %v", err)
	}
	if sm.Can(intro) {
		t.Error("PLAYING -> INTRO was never registered")
	}
}

func TestPhase_Hooks(t *testing.T) {
	entered, exited := 0, 0
	a := &Phase{ID: "A", Exit: func() { exited++ }}
	b := &Phase{ID: "B", Enter: func() { entered++ }}

	sm := NewBaseStateMachine(a)
	if err := sm.ChangeState(b); err != nil {
		t.Fatalf("ChangeState failed: %v", err)
	}
	if entered != 1 || exited != 1 {
		t.Errorf("Expected one enter and one exit, got enter=%d exit=%d", entered, exited)
	}
}
