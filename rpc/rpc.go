package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/tiltmaze/lobby"
	"github.com/wfunc/tiltmaze/logger"
	"github.com/wfunc/tiltmaze/models"
	"github.com/wfunc/tiltmaze/services"
)

// Server manages the admin RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr and registers admin under the name "Admin".
func NewServer(addr string, admin *AdminService) (*Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName("Admin", admin); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      srv,
	}, nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests. It returns once the listener closes.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// LobbyDirectory is the part of the lobby manager the admin needs.
type LobbyDirectory interface {
	List() []lobby.Summary
	Destroy(id string) error
}

// AdminService exposes operator commands. Methods follow the net/rpc
// signature: exported args, pointer reply, error return.
type AdminService struct {
	lobbies   LobbyDirectory
	matches   *services.MatchService
	onDestroy func(id string)
}

// NewAdminService creates the admin service. onDestroy, if set, runs after
// a lobby is removed.
func NewAdminService(lobbies LobbyDirectory, matches *services.MatchService, onDestroy func(id string)) *AdminService {
	return &AdminService{lobbies: lobbies, matches: matches, onDestroy: onDestroy}
}

// ListLobbiesArgs filters by status when Status is set.
type ListLobbiesArgs struct {
	Status string
}

type ListLobbiesReply struct {
	Lobbies []lobby.Summary
}

func (a *AdminService) ListLobbies(args *ListLobbiesArgs, reply *ListLobbiesReply) error {
	for _, l := range a.lobbies.List() {
		if args.Status == "" || string(l.Status) == args.Status {
			reply.Lobbies = append(reply.Lobbies, l)
		}
	}
	return nil
}

type DestroyLobbyArgs struct {
	ID string
}

type DestroyLobbyReply struct {
	Destroyed bool
}

func (a *AdminService) DestroyLobby(args *DestroyLobbyArgs, reply *DestroyLobbyReply) error {
	if err := a.lobbies.Destroy(args.ID); err != nil {
		return err
	}
	if a.onDestroy != nil {
		a.onDestroy(args.ID)
	}
	logger.Log.Infof("Lobby %s destroyed over RPC", args.ID)
	reply.Destroyed = true
	return nil
}

type PlayerStatsArgs struct {
	Username string
}

type PlayerStatsReply struct {
	Stats models.PlayerStats
}

func (a *AdminService) PlayerStats(args *PlayerStatsArgs, reply *PlayerStatsReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stats, err := a.matches.PlayerStats(ctx, args.Username)
	if err != nil {
		return err
	}
	reply.Stats = stats
	return nil
}

type RecentMatchesArgs struct {
	Limit int
}

type RecentMatchesReply struct {
	Matches []models.MatchResult
}

func (a *AdminService) RecentMatches(args *RecentMatchesArgs, reply *RecentMatchesReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	matches, err := a.matches.RecentMatches(ctx, args.Limit)
	if err != nil {
		return err
	}
	reply.Matches = matches
	return nil
}
