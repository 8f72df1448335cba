// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/tiltmaze/lobby"
	"github.com/wfunc/tiltmaze/logger"
	"github.com/wfunc/tiltmaze/network"
	"github.com/wfunc/tiltmaze/session"
)

// SpectatorGauge is told whenever a spectator comes or goes.
type SpectatorGauge interface {
	IncSpectators()
	DecSpectators()
}

// Hub fans lobby snapshots out to websocket spectators.
type Hub struct {
	sessions *session.Manager
	gauge    SpectatorGauge
}

var _ lobby.Broadcaster = (*Hub)(nil)

func NewHub(sessions *session.Manager, gauge SpectatorGauge) *Hub {
	return &Hub{sessions: sessions, gauge: gauge}
}

// Subscribe attaches conn to lobbyID and greets it with the lobby id.
func (h *Hub) Subscribe(lobbyID string, conn network.Connection, codec network.Codec) (*session.Session, error) {
	s := session.NewSession(lobbyID, conn, codec)
	if err := s.SendMessage(network.MsgTypeWelcome, lobbyID); err != nil {
		return nil, err
	}
	h.sessions.Add(s)
	if h.gauge != nil {
		h.gauge.IncSpectators()
	}
	logger.Log.Debugf("Spectator %s watching lobby %s from %v (%s)", s.ID, lobbyID, conn.RemoteAddr(), s.Codec.Name())
	return s, nil
}

// Unsubscribe detaches and closes a spectator. Unknown ids are ignored.
func (h *Hub) Unsubscribe(sessionID string) {
	s, ok := h.sessions.Get(sessionID)
	if !ok || !h.sessions.Remove(sessionID) {
		return
	}
	if h.gauge != nil {
		h.gauge.DecSpectators()
	}
	s.Close()
}

// BroadcastToLobby sends msg as a snapshot frame to every spectator of the
// lobby, encoding it once per codec in use. Spectators that fail to receive
// it are dropped.
func (h *Hub) BroadcastToLobby(lobbyID string, msg any) error {
	sessions := h.sessions.GetByLobby(lobbyID)
	if len(sessions) == 0 {
		return nil
	}

	frames := make(map[string][]byte, 2)
	var firstErr error
	for _, s := range sessions {
		frame, ok := frames[s.Codec.Name()]
		if !ok {
			var err error
			if frame, err = s.Codec.Encode(network.MsgTypeSnapshot, msg); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			frames[s.Codec.Name()] = frame
		}
		if err := s.Send(frame); err != nil {
			logger.Log.Debugf("Dropping spectator %s of lobby %s: %v", s.ID, lobbyID, err)
			h.Unsubscribe(s.ID)
		}
	}
	return firstErr
}

// CloseLobby tells every spectator the lobby is gone and disconnects them.
func (h *Hub) CloseLobby(lobbyID string) {
	for _, s := range h.sessions.RemoveLobby(lobbyID) {
		s.SendMessage(network.MsgTypeClosed, nil)
		s.Close()
		if h.gauge != nil {
			h.gauge.DecSpectators()
		}
	}
}

func (h *Hub) Count() int {
	return h.sessions.Count()
}
