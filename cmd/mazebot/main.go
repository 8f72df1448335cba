// Command mazebot is a headless player. It joins (or creates) a lobby and
// tilts its marble with a slowly sweeping angle until the lobby goes away.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wfunc/tiltmaze/client"
	"github.com/wfunc/tiltmaze/lobby"
	"github.com/wfunc/tiltmaze/logger"
)

func main() {
	addr := flag.String("server", "http://localhost:3030", "server base URL")
	lobbyID := flag.String("lobby", "", "lobby code to join; empty creates one")
	name := flag.String("name", "mazebot", "username")
	fps := flag.Int("fps", 60, "frames per second")
	start := flag.Bool("start", false, "start the lobby after joining")
	lifetime := flag.Duration("powerup-lifetime", 15*time.Second, "power-up lifetime configured on the server")
	verbose := flag.Bool("v", false, "log every poll and claim")
	flag.Parse()

	logger.Init()
	if *verbose {
		logger.SetLevel("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := play(ctx, client.NewAPI(*addr), *lobbyID, *name, *start, *fps, *lifetime)
	stop()
	if err != nil {
		logger.Log.Error(err)
	}
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// play joins the lobby and drives the marble until the lobby is gone or ctx
// is cancelled. Only setup failures are returned.
func play(ctx context.Context, api *client.API, lobbyID, name string, start bool, fps int, lifetime time.Duration) error {
	id := lobbyID
	if id == "" {
		snap, err := api.Create(ctx)
		if err != nil {
			return fmt.Errorf("failed to create lobby: %w", err)
		}
		id = snap.ID
		logger.Log.Infof("Created lobby %s", id)
	}

	idx, snap, err := api.Join(ctx, id, name)
	if err != nil {
		return fmt.Errorf("failed to join lobby %s: %w", id, err)
	}
	logger.Log.Infof("Joined lobby %s as player %d", id, idx)

	if start {
		if snap, err = api.Start(ctx, id); err != nil {
			return fmt.Errorf("failed to start lobby %s: %w", id, err)
		}
	}

	pred, err := client.NewPredictor(idx, snap, lifetime)
	if err != nil {
		return fmt.Errorf("bad lobby snapshot: %w", err)
	}
	tracker := &client.SnapshotTracker{}
	first, err := api.Poll(ctx, id, nil)
	if err != nil {
		return fmt.Errorf("initial poll failed: %w", err)
	}
	tracker.Apply(first)

	runner := &client.Runner{
		API:       api,
		LobbyID:   id,
		Predictor: pred,
		Tracker:   tracker,
		FPS:       fps,
		// sweep ±60° around straight down, about one swing every 4s
		Tilt: func(frame int) float64 {
			return math.Pi / 3 * math.Sin(float64(frame)/float64(fps)*math.Pi/2)
		},
		OnWin: func(s lobby.Snapshot) {
			logger.Log.Infof("Reached the exit of lobby %s", s.ID)
		},
	}

	err = runner.Run(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Log.Info("Interrupted, leaving.")
	case client.IsLobbyGone(err):
		logger.Log.Infof("Lobby %s is gone.", id)
	case err != nil:
		logger.Log.Errorf("Bot stopped: %v", err)
	}
	return nil
}
