package state

import (
	"errors"
	"sync"
)

// Status is the externally visible lobby status.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// StateMachine drives a lobby through its statuses.
type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	AddTransition(from Status, to Status, condition func() bool)
}

// State is one lobby status with its enter and exit hooks.
type State interface {
	OnEnter()
	OnExit()
	GetID() Status
}

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// BaseStateMachine only allows transitions that were registered with
// AddTransition, and only while their condition (if any) holds.
type BaseStateMachine struct {
	currentState State
	transitions  map[Status]map[Status]func() bool // fromState -> toState -> condition
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[Status]map[Status]func() bool),
	}
	initialState.OnEnter()
	return machine
}

func (sm *BaseStateMachine) ChangeState(newState State) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	currentID := sm.currentState.GetID()
	newID := newState.GetID()

	conditions, exists := sm.transitions[currentID]
	if !exists {
		return ErrTransitionNotAllowed
	}
	condition, exists := conditions[newID]
	if !exists {
		return ErrTransitionNotAllowed
	}
	if condition != nil && !condition() {
		return ErrTransitionNotAllowed
	}

	sm.currentState.OnExit()
	sm.currentState = newState
	sm.currentState.OnEnter()

	return nil
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

// Status is shorthand for GetCurrentState().GetID().
func (sm *BaseStateMachine) Status() Status {
	return sm.GetCurrentState().GetID()
}

func (sm *BaseStateMachine) AddTransition(from Status, to Status, condition func() bool) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if _, exists := sm.transitions[from]; !exists {
		sm.transitions[from] = make(map[Status]func() bool)
	}
	sm.transitions[from][to] = condition
}

// NewLobbyStateMachine starts a lobby in waiting and allows only
// waiting -> playing -> finished -> waiting.
func NewLobbyStateMachine(lobby LobbyContext) *BaseStateMachine {
	sm := NewBaseStateMachine(NewWaitingState(lobby))
	sm.AddTransition(StatusWaiting, StatusPlaying, nil)
	sm.AddTransition(StatusPlaying, StatusFinished, nil)
	sm.AddTransition(StatusFinished, StatusWaiting, nil)
	return sm
}

// LobbyStateBase carries what every lobby state needs.
type LobbyStateBase struct {
	ID    Status
	Lobby LobbyContext
}

func (s *LobbyStateBase) GetID() Status {
	return s.ID
}

func (s *LobbyStateBase) OnEnter() {}

func (s *LobbyStateBase) OnExit() {}

// WaitingState: players join; entering it (creation or reset) deals a
// fresh board.
type WaitingState struct {
	LobbyStateBase
}

func NewWaitingState(lobby LobbyContext) *WaitingState {
	return &WaitingState{LobbyStateBase{ID: StatusWaiting, Lobby: lobby}}
}

func (s *WaitingState) OnEnter() {
	s.Lobby.ResetBoard()
}

type PlayingState struct {
	LobbyStateBase
}

func NewPlayingState(lobby LobbyContext) *PlayingState {
	return &PlayingState{LobbyStateBase{ID: StatusPlaying, Lobby: lobby}}
}

func (s *PlayingState) OnEnter() {
	s.Lobby.MatchStarted()
}

type FinishedState struct {
	LobbyStateBase
}

func NewFinishedState(lobby LobbyContext) *FinishedState {
	return &FinishedState{LobbyStateBase{ID: StatusFinished, Lobby: lobby}}
}

func (s *FinishedState) OnEnter() {
	s.Lobby.MatchFinished()
}
