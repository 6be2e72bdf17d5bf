package state

import (
	"errors"
	"sync"
)

// 状态机接口
type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	AddTransition(from State, to State, condition func() bool) error
	Can(to State) bool
}

// 状态接口
type State interface {
	OnEnter()
	OnExit()
	GetID() string
}

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// 基础状态机实现
//
// A permissive machine accepts any transition unless a registered condition
// rejects it. A strict machine only accepts registered transitions.
type BaseStateMachine struct {
	currentState State
	transitions  map[string]map[string]func() bool // fromState -> toState -> condition
	strict       bool
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[string]map[string]func() bool),
	}
	initialState.OnEnter()
	return machine
}

// NewStrictStateMachine 只允许已注册的状态转换
func NewStrictStateMachine(initialState State) *BaseStateMachine {
	machine := NewBaseStateMachine(initialState)
	machine.strict = true
	return machine
}

func (sm *BaseStateMachine) ChangeState(newState State) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if !sm.allowed(newState.GetID()) {
		return ErrTransitionNotAllowed
	}

	sm.currentState.OnExit()
	sm.currentState = newState
	sm.currentState.OnEnter()

	return nil
}

// Can reports whether ChangeState(to) would currently succeed.
func (sm *BaseStateMachine) Can(to State) bool {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.allowed(to.GetID())
}

// allowed must be called with the mutex held.
func (sm *BaseStateMachine) allowed(newID string) bool {
	currentID := sm.currentState.GetID()

	// 检查是否有转换条件
	if conditions, exists := sm.transitions[currentID]; exists {
		if condition, exists := conditions[newID]; exists {
			return condition == nil || condition()
		}
	}
	return !sm.strict
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

func (sm *BaseStateMachine) AddTransition(from State, to State, condition func() bool) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	fromID := from.GetID()
	toID := to.GetID()

	if _, exists := sm.transitions[fromID]; !exists {
		sm.transitions[fromID] = make(map[string]func() bool)
	}

	sm.transitions[fromID][toID] = condition
	return nil
}

// Phase 是只有 ID 的简单状态，可挂 enter/exit 回调
type Phase struct {
	ID    string
	Enter func()
	Exit  func()
}

func NewPhase(id string) *Phase {
	return &Phase{ID: id}
}

func (p *Phase) GetID() string {
	return p.ID
}

func (p *Phase) OnEnter() {
	if p.Enter != nil {
		p.Enter()
	}
}

func (p *Phase) OnExit() {
	if p.Exit != nil {
		p.Exit()
	}
}
