package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wfunc/tiltmaze/lobby"
	"github.com/wfunc/tiltmaze/logger"
	"github.com/wfunc/tiltmaze/network"
)

// Payload-level error strings. Errors are always sent with HTTP 200.
const (
	msgLobbyNotFound  = "Lobby Doesn't Exist"
	msgLobbyFull      = "Lobby Full"
	msgPlayerNotFound = "Player Doesn't Exist"
	msgInvalidInput   = "Invalid Input"
	msgSuccess        = "success"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type lobbyResponse struct {
	Lobby lobby.Snapshot `json:"lobby"`
}

type joinResponse struct {
	Player int            `json:"player"`
	Lobby  lobby.Snapshot `json:"lobby"`
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Errorf("Error writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var pe *paramError
	msg := msgInvalidInput
	switch {
	case errors.As(err, &pe):
		msg = pe.Error()
	case errors.Is(err, lobby.ErrNotFound):
		msg = msgLobbyNotFound
	case errors.Is(err, lobby.ErrFull):
		msg = msgLobbyFull
	case errors.Is(err, lobby.ErrInvalidPlayer):
		msg = msgPlayerNotFound
	}
	logger.Log.Warnf("%s %s: %v", r.URL.Path, r.URL.RawQuery, err)
	writeJSON(w, errorResponse{Error: msg})
}

// lookup resolves the lobby query parameter.
func (s *GameServer) lookup(r *http.Request) (*lobby.Lobby, error) {
	return s.lobbies.Get(r.URL.Query().Get("lobby"))
}

func (s *GameServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	l := s.lobbies.Create()
	s.refreshGauges()
	writeJSON(w, l.Snapshot())
}

func (s *GameServer) handleJoin(w http.ResponseWriter, r *http.Request) {
	l, err := s.lookup(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	idx, snap, err := l.Join(r.URL.Query().Get("uname"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.refreshGauges()
	writeJSON(w, joinResponse{Player: idx, Lobby: snap})
}

func (s *GameServer) handleStart(w http.ResponseWriter, r *http.Request) {
	l, err := s.lookup(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, lobbyResponse{Lobby: l.Start()})
}

func (s *GameServer) handleReset(w http.ResponseWriter, r *http.Request) {
	l, err := s.lookup(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, lobbyResponse{Lobby: l.Reset()})
}

func (s *GameServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	l, err := s.lookup(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, lobbyResponse{Lobby: l.Snapshot()})
}

func (s *GameServer) handlePowerUp(w http.ResponseWriter, r *http.Request) {
	l, err := s.lookup(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	player, err := intParam(q, "player")
	if err != nil {
		writeError(w, r, err)
		return
	}
	px, err := intParam(q, "px")
	if err != nil {
		writeError(w, r, err)
		return
	}
	py, err := intParam(q, "py")
	if err != nil {
		writeError(w, r, err)
		return
	}

	claimed, err := l.ClaimPowerUp(player, px, py)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// first claimer wins, later claims are a silent no-op
	if claimed {
		s.monitor.IncPowerUpsClaimed()
	}
	writeJSON(w, messageResponse{Message: msgSuccess})
}

func (s *GameServer) handlePoll(w http.ResponseWriter, r *http.Request) {
	s.monitor.IncPolls()
	l, err := s.lookup(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := pollReport(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := l.Poll(report)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if res.Won {
		s.monitor.IncWins()
	}
	writeJSON(w, res)
}

func (s *GameServer) handleDestroy(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("lobby")
	if err := s.lobbies.Destroy(id); err != nil {
		writeError(w, r, err)
		return
	}
	s.lobbyGone(id)
	writeJSON(w, messageResponse{Message: msgSuccess})
}

// handleWatch upgrades to a websocket that receives every snapshot of the
// lobby until either side hangs up.
func (s *GameServer) handleWatch(w http.ResponseWriter, r *http.Request) {
	l, err := s.lookup(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	codec, ok := network.CodecByName(r.URL.Query().Get("codec"))
	if !ok {
		writeError(w, r, &paramError{"codec"})
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	conn := network.NewWSConnection(ws, codec.Binary())
	conn.SetHeartbeat(spectatorHeartbeat)

	sess, err := s.hub.Subscribe(l.GetID(), conn, codec)
	if err != nil {
		logger.Log.Infof("Spectator from %s dropped before subscribing: %v", conn.RemoteAddr(), err)
		conn.Close()
		return
	}
	logger.Log.Infof("Spectator %s watching lobby %s (%s)", sess.GetID(), l.GetID(), codec.Name())
	defer func() {
		s.hub.Unsubscribe(sess.GetID())
		logger.Log.Infof("Spectator %s left lobby %s", sess.GetID(), l.GetID())
	}()

	// current state first, later frames come from the broadcaster
	if res, err := l.Poll(nil); err == nil {
		sess.SendMessage(network.MsgTypeSnapshot, res)
	}

	// spectators only listen; reading keeps pongs and close frames flowing
	for {
		if _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
