package telegram

import (
	"sync"
	"time"
)

// Dialogue steps for the two multi-turn flows. State lives in process memory
// only: a restart abandons any half-finished dialogue.
const (
	StateNone          = ""
	StateRegisterName  = "register_name"
	StateRegisterLevel = "register_level"
	StateRegisterPref  = "register_pref"
	StateMatchLevel    = "match_level"
	StateMatchStart    = "match_start"
	StateMatchEnd      = "match_end"
	StateMatchLocation = "match_location"
	StateMatchPrice    = "match_price"
)

// MatchDraft accumulates the match-creation answers until the final step
// hands them to the match service.
type MatchDraft struct {
	Level     int
	StartTime time.Time
	EndTime   time.Time
	Location  string
}

type UserState struct {
	State string
	Name  string
	Level int
	Draft MatchDraft
}

type StateManager struct {
	mu    sync.RWMutex
	users map[int64]*UserState
}

func NewStateManager() *StateManager {
	return &StateManager{
		users: make(map[int64]*UserState),
	}
}

func (m *StateManager) Get(userID int64) *UserState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.users[userID]
	if !ok {
		return &UserState{}
	}
	cp := *s
	return &cp
}

func (m *StateManager) Set(userID int64, state *UserState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = state
}

func (m *StateManager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, userID)
}

func (m *StateManager) UpdateField(userID int64, fn func(s *UserState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.users[userID]
	if !ok {
		s = &UserState{}
		m.users[userID] = s
	}
	fn(s)
}
