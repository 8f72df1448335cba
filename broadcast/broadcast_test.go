package broadcast

import (
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/wfunc/tiltmaze/lobby"
	"github.com/wfunc/tiltmaze/network"
	"github.com/wfunc/tiltmaze/session"
)

type MockConnection struct {
	mu      sync.Mutex
	sent    [][]byte
	closed  bool
	sendErr error
}

func (m *MockConnection) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, data)
	return nil
}

func (m *MockConnection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockConnection) RemoteAddr() net.Addr                { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration) {}
func (m *MockConnection) ReadMessage() ([]byte, error)        { return nil, nil }

func (m *MockConnection) frames() []network.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]network.Message, 0, len(m.sent))
	for _, raw := range m.sent {
		var msg network.Message
		json.Unmarshal(raw, &msg)
		out = append(out, msg)
	}
	return out
}

type mockGauge struct {
	mu    sync.Mutex
	value int
}

func (g *mockGauge) IncSpectators() { g.mu.Lock(); g.value++; g.mu.Unlock() }
func (g *mockGauge) DecSpectators() { g.mu.Lock(); g.value--; g.mu.Unlock() }

func TestHub_SubscribeAndBroadcast(t *testing.T) {
	gauge := &mockGauge{}
	hub := NewHub(session.NewManager(), gauge)

	a := &MockConnection{}
	b := &MockConnection{}
	other := &MockConnection{}
	if _, err := hub.Subscribe("L1", a, nil); err != nil {
		t.Fatal(err)
	}
	hub.Subscribe("L1", b, nil)
	hub.Subscribe("L2", other, nil)

	if err := hub.BroadcastToLobby("L1", map[string]int{"timestamp": 1}); err != nil {
		t.Fatal(err)
	}

	for _, c := range []*MockConnection{a, b} {
		frames := c.frames()
		if len(frames) != 2 {
			t.Fatalf("Expected welcome and snapshot, got %d frames", len(frames))
		}
		if frames[0].Type != network.MsgTypeWelcome || string(frames[0].Data) != `"L1"` {
			t.Errorf("Unexpected welcome %+v", frames[0])
		}
		if frames[1].Type != network.MsgTypeSnapshot || string(frames[1].Data) != `{"timestamp":1}` {
			t.Errorf("Unexpected snapshot %+v", frames[1])
		}
	}
	if len(other.frames()) != 1 {
		t.Error("Spectator of another lobby received the broadcast")
	}
	if gauge.value != 3 {
		t.Errorf("Expected gauge 3, got %d", gauge.value)
	}
}

func TestHub_DropsFailingSpectator(t *testing.T) {
	gauge := &mockGauge{}
	hub := NewHub(session.NewManager(), gauge)

	bad := &MockConnection{}
	hub.Subscribe("L1", bad, nil)
	bad.sendErr = errors.New("broken pipe")

	hub.BroadcastToLobby("L1", struct{}{})
	if hub.Count() != 0 {
		t.Errorf("Failing spectator should be dropped, %d left", hub.Count())
	}
	if !bad.closed {
		t.Error("Dropped spectator should be closed")
	}
	if gauge.value != 0 {
		t.Errorf("Expected gauge 0, got %d", gauge.value)
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	gauge := &mockGauge{}
	hub := NewHub(session.NewManager(), gauge)
	s, _ := hub.Subscribe("L1", &MockConnection{}, nil)

	hub.Unsubscribe(s.ID)
	hub.Unsubscribe(s.ID)
	if gauge.value != 0 {
		t.Errorf("Double unsubscribe should count once, gauge %d", gauge.value)
	}
}

func TestHub_CloseLobby(t *testing.T) {
	hub := NewHub(session.NewManager(), nil)
	c := &MockConnection{}
	hub.Subscribe("L1", c, nil)

	hub.CloseLobby("L1")
	frames := c.frames()
	if frames[len(frames)-1].Type != network.MsgTypeClosed {
		t.Errorf("Expected a closed frame, got %+v", frames[len(frames)-1])
	}
	if !c.closed || hub.Count() != 0 {
		t.Error("CloseLobby should disconnect every spectator")
	}
}

func TestHub_BroadcastWithoutSpectators(t *testing.T) {
	hub := NewHub(session.NewManager(), nil)
	if err := hub.BroadcastToLobby("nobody", struct{}{}); err != nil {
		t.Errorf("Broadcast to an empty lobby should succeed, got %v", err)
	}
}

func TestHub_MixedCodecs(t *testing.T) {
	hub := NewHub(session.NewManager(), nil)
	plain := &MockConnection{}
	packed := &MockConnection{}
	hub.Subscribe("L1", plain, network.JSON)
	hub.Subscribe("L1", packed, network.Msgpack)

	if err := hub.BroadcastToLobby("L1", map[string]int{"timestamp": 3}); err != nil {
		t.Fatal(err)
	}

	if f := plain.frames(); f[1].Type != network.MsgTypeSnapshot {
		t.Errorf("JSON spectator got %+v", f[1])
	}

	packed.mu.Lock()
	raw := packed.sent[1]
	packed.mu.Unlock()
	var decoded struct {
		Type string         `msgpack:"type"`
		Data map[string]int `msgpack:"data"`
	}
	if err := msgpack.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != network.MsgTypeSnapshot || decoded.Data["timestamp"] != 3 {
		t.Errorf("Msgpack spectator got %+v", decoded)
	}
}

func TestHub_AsLobbyBroadcaster(t *testing.T) {
	hub := NewHub(session.NewManager(), nil)
	m := lobby.NewManager(lobby.DefaultSettings(), lobby.WithBroadcaster(hub))
	l := m.Create()

	c := &MockConnection{}
	hub.Subscribe(l.GetID(), c, nil)
	if _, _, err := l.Join("alice"); err != nil {
		t.Fatal(err)
	}

	frames := c.frames()
	if len(frames) != 2 || frames[1].Type != network.MsgTypeSnapshot {
		t.Fatalf("Expected welcome and the join snapshot, got %+v", frames)
	}
	var res lobby.PollResult
	if err := json.Unmarshal(frames[1].Data, &res); err != nil {
		t.Fatal(err)
	}
	if res.Lobby.ID != l.GetID() || res.Lobby.Usernames[0] != "alice" || res.Timestamp == 0 {
		t.Errorf("Unexpected snapshot %+v", res)
	}
}
