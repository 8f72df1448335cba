package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/tiltmaze/network"
)

// Session is one websocket spectator attached to a lobby.
type Session struct {
	ID        string
	Conn      network.Connection
	LobbyID   string
	Codec     network.Codec
	CreatedAt time.Time

	mutex      sync.RWMutex
	lastActive time.Time
}

// NewSession wraps conn; a nil codec means JSON.
func NewSession(lobbyID string, conn network.Connection, codec network.Codec) *Session {
	if codec == nil {
		codec = network.JSON
	}
	now := time.Now()
	return &Session{
		ID:         uuid.NewString(),
		Conn:       conn,
		LobbyID:    lobbyID,
		Codec:      codec,
		CreatedAt:  now,
		lastActive: now,
	}
}

func (s *Session) Send(data []byte) error {
	s.mutex.Lock()
	s.lastActive = time.Now()
	s.mutex.Unlock()
	return s.Conn.Send(data)
}

// SendMessage encodes payload with the session's codec and sends it.
func (s *Session) SendMessage(msgType string, payload any) error {
	data, err := s.Codec.Encode(msgType, payload)
	if err != nil {
		return err
	}
	return s.Send(data)
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器, 按大厅索引
type Manager struct {
	sessions map[string]*Session
	byLobby  map[string]map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		byLobby:  make(map[string]map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
	if m.byLobby[session.LobbyID] == nil {
		m.byLobby[session.LobbyID] = make(map[string]*Session)
	}
	m.byLobby[session.LobbyID][session.ID] = session
}

// Remove reports whether the session was present.
func (m *Manager) Remove(sessionID string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	session, exists := m.sessions[sessionID]
	if !exists {
		return false
	}
	delete(m.sessions, sessionID)
	if lobby := m.byLobby[session.LobbyID]; lobby != nil {
		delete(lobby, sessionID)
		if len(lobby) == 0 {
			delete(m.byLobby, session.LobbyID)
		}
	}
	return true
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// GetByLobby returns a copy of the sessions watching lobbyID.
func (m *Manager) GetByLobby(lobbyID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]*Session, 0, len(m.byLobby[lobbyID]))
	for _, session := range m.byLobby[lobbyID] {
		result = append(result, session)
	}
	return result
}

// RemoveLobby drops and returns every session of lobbyID.
func (m *Manager) RemoveLobby(lobbyID string) []*Session {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	lobby := m.byLobby[lobbyID]
	result := make([]*Session, 0, len(lobby))
	for id, session := range lobby {
		delete(m.sessions, id)
		result = append(result, session)
	}
	delete(m.byLobby, lobbyID)
	return result
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
