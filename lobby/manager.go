package lobby

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"sync"
	"time"

	"github.com/wfunc/tiltmaze/logger"
	"github.com/wfunc/tiltmaze/state"
)

const codeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Summary is a lobby as listed by the admin interface.
type Summary struct {
	ID         string       `json:"id"`
	Status     state.Status `json:"status"`
	Players    int          `json:"players"`
	LastActive time.Time    `json:"last_active"`
}

// Manager 管理所有大厅
type Manager struct {
	lobbies  map[string]*Lobby
	mutex    sync.RWMutex
	settings Settings

	clock       func() time.Time
	seed        func() int64
	broadcaster Broadcaster
	recorder    ResultRecorder
}

type Option func(*Manager)

// WithClock replaces time.Now, for tests.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) { m.clock = clock }
}

// WithSeed makes maze and power-up placement reproducible; lobby n is
// seeded with seed+n.
func WithSeed(seed int64) Option {
	return func(m *Manager) {
		var n int64
		var mu sync.Mutex
		m.seed = func() int64 {
			mu.Lock()
			defer mu.Unlock()
			n++
			return seed + n
		}
	}
}

func WithBroadcaster(b Broadcaster) Option {
	return func(m *Manager) { m.broadcaster = b }
}

func WithRecorder(r ResultRecorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// NewManager 创建一个新的大厅管理器
func NewManager(settings Settings, opts ...Option) *Manager {
	m := &Manager{
		lobbies:  make(map[string]*Lobby),
		settings: settings,
		clock:    time.Now,
		seed:     func() int64 { return time.Now().UnixNano() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create makes a lobby under a fresh unique code.
func (m *Manager) Create() *Lobby {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for {
		code, err := generateCode(rand.Reader, CodeLength)
		if err != nil {
			// no entropy, nothing sensible left to do
			logger.Log.Errorf("Lobby code generation failed: %v", err)
			panic(err)
		}
		if _, exists := m.lobbies[code]; exists {
			continue
		}
		l := newLobby(code, m.settings, m.clock, m.seed(), m.broadcaster, m.recorder)
		m.lobbies[code] = l
		logger.Log.Infof("Lobby %s created (board %d)", code, m.settings.BoardSize)
		return l
	}
}

// Get 从管理器中获取一个大厅
func (m *Manager) Get(id string) (*Lobby, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	l, exists := m.lobbies[id]
	if !exists {
		return nil, ErrNotFound
	}
	return l, nil
}

// Destroy removes a lobby. Requests already holding it finish normally.
func (m *Manager) Destroy(id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.lobbies[id]; !exists {
		return ErrNotFound
	}
	delete(m.lobbies, id)
	logger.Log.Infof("Lobby %s destroyed", id)
	return nil
}

// Reap removes every lobby idle for longer than ttl and returns their ids.
func (m *Manager) Reap(ttl time.Duration) []string {
	cutoff := m.clock().Add(-ttl)

	m.mutex.Lock()
	defer m.mutex.Unlock()

	var reaped []string
	for id, l := range m.lobbies {
		if l.LastActive().Before(cutoff) {
			delete(m.lobbies, id)
			reaped = append(reaped, id)
		}
	}
	if len(reaped) > 0 {
		logger.Log.Infof("Reaped %d idle lobbies: %v", len(reaped), reaped)
	}
	return reaped
}

// Count returns the number of live lobbies.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.lobbies)
}

// List summarises every lobby.
func (m *Manager) List() []Summary {
	m.mutex.RLock()
	lobbies := make([]*Lobby, 0, len(m.lobbies))
	for _, l := range m.lobbies {
		lobbies = append(lobbies, l)
	}
	m.mutex.RUnlock()

	out := make([]Summary, 0, len(lobbies))
	for _, l := range lobbies {
		l.mu.Lock()
		out = append(out, Summary{
			ID:         l.id,
			Status:     l.machine.Status(),
			Players:    len(l.players),
			LastActive: l.lastActive,
		})
		l.mu.Unlock()
	}
	return out
}

// PlayerCount sums the taken slots of every lobby.
func (m *Manager) PlayerCount() int {
	total := 0
	for _, s := range m.List() {
		total += s.Players
	}
	return total
}

func generateCode(r io.Reader, n int) (string, error) {
	b := make([]byte, n)
	max := big.NewInt(int64(len(codeChars)))
	for i := range b {
		idx, err := rand.Int(r, max)
		if err != nil {
			return "", fmt.Errorf("lobby code: %w", err)
		}
		b[i] = codeChars[idx.Int64()]
	}
	return string(b), nil
}
