package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/tiltmaze/broadcast"
	"github.com/wfunc/tiltmaze/config"
	"github.com/wfunc/tiltmaze/lobby"
	"github.com/wfunc/tiltmaze/logger"
	"github.com/wfunc/tiltmaze/monitor"
	"github.com/wfunc/tiltmaze/persistence"
	mazerpc "github.com/wfunc/tiltmaze/rpc"
	"github.com/wfunc/tiltmaze/services"
	"github.com/wfunc/tiltmaze/session"
	"github.com/wfunc/tiltmaze/timer"
)

const spectatorHeartbeat = 30 * time.Second

type GameServer struct {
	cfg      config.Config
	upgrader websocket.Upgrader

	lobbies *lobby.Manager
	hub     *broadcast.Hub
	matches *services.MatchService
	monitor *monitor.Monitor
	timers  *timer.TimerManager

	httpServer *http.Server
	rpcServer  *mazerpc.Server
}

// NewGameServer wires every component but starts nothing; Handler can be
// served directly in tests.
func NewGameServer(cfg config.Config, db persistence.Database, opts ...lobby.Option) *GameServer {
	s := &GameServer{
		cfg:     cfg,
		monitor: monitor.NewMonitor("tiltmaze"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
	s.hub = broadcast.NewHub(session.NewManager(), s.monitor)
	s.matches = services.NewMatchService(db)

	opts = append([]lobby.Option{
		lobby.WithBroadcaster(s.hub),
		lobby.WithRecorder(s.matches),
	}, opts...)
	s.lobbies = lobby.NewManager(lobby.SettingsFromConfig(cfg.Game), opts...)
	return s
}

func (s *GameServer) Lobbies() *lobby.Manager {
	return s.lobbies
}

func (s *GameServer) Matches() *services.MatchService {
	return s.matches
}

// Handler routes every HTTP endpoint.
func (s *GameServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.route(mux, "/lobby/create", s.handleCreate)
	s.route(mux, "/lobby/join", s.handleJoin)
	s.route(mux, "/lobby/start", s.handleStart)
	s.route(mux, "/lobby/reset", s.handleReset)
	s.route(mux, "/lobby/status", s.handleStatus)
	s.route(mux, "/lobby/powerup", s.handlePowerUp)
	s.route(mux, "/lobby/poll", s.handlePoll)
	s.route(mux, "/lobby/destroy", s.handleDestroy)
	mux.HandleFunc("/lobby/watch", s.handleWatch)
	if s.cfg.Server.MetricsEnabled {
		mux.Handle("/metrics", s.monitor.Handler())
	}
	return mux
}

func (s *GameServer) route(mux *http.ServeMux, path string, h http.HandlerFunc) {
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h(w, r)
		s.monitor.ObserveRequestLatency(path, time.Since(start))
	})
}

// Start serves HTTP and RPC and runs the lobby reaper. It blocks until the
// HTTP server stops.
func (s *GameServer) Start() error {
	admin := mazerpc.NewAdminService(s.lobbies, s.matches, s.lobbyGone)
	rpcServer, err := mazerpc.NewServer(s.cfg.Server.RPCAddress, admin)
	if err != nil {
		return err
	}
	s.rpcServer = rpcServer
	go s.rpcServer.Start()

	s.timers = timer.NewTimerManager(time.Second)
	if s.cfg.Game.ReapInterval > 0 && s.cfg.Game.LobbyTTL > 0 {
		s.timers.AddTimer(s.cfg.Game.ReapInterval, s.cfg.Game.ReapInterval, s.reap)
	}

	listener, err := net.Listen("tcp", s.cfg.Server.HTTPAddress)
	if err != nil {
		return err
	}
	s.httpServer = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	logger.Log.Infof("Game server listening on %s", listener.Addr())
	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for pending archive writes.
func (s *GameServer) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.rpcServer != nil {
		s.rpcServer.Stop()
	}
	if s.timers != nil {
		s.timers.Stop()
	}
	s.matches.Wait()
	return err
}

func (s *GameServer) reap() {
	reaped := s.lobbies.Reap(s.cfg.Game.LobbyTTL)
	for _, id := range reaped {
		s.hub.CloseLobby(id)
	}
	s.monitor.AddLobbiesReaped(len(reaped))
	s.refreshGauges()
}

// lobbyGone disconnects the spectators of a destroyed lobby.
func (s *GameServer) lobbyGone(id string) {
	s.hub.CloseLobby(id)
	s.refreshGauges()
}

func (s *GameServer) refreshGauges() {
	s.monitor.SetActiveLobbies(s.lobbies.Count())
	s.monitor.SetConnectedPlayers(s.lobbies.PlayerCount())
}
