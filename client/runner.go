package client

import (
	"context"
	"time"

	"github.com/wfunc/tiltmaze/lobby"
	"github.com/wfunc/tiltmaze/logger"
)

// TiltSource yields this player's device angle for a frame.
type TiltSource func(frame int) float64

// Runner drives a Predictor at a fixed frame rate against a live server.
// Polls and claims are fired asynchronously; replies go through the
// tracker so late ones are dropped.
type Runner struct {
	API       *API
	LobbyID   string
	Predictor *Predictor
	Tracker   *SnapshotTracker
	Tilt      TiltSource
	FPS       int

	// OnWin, if set, is called once when this player's win report went out.
	OnWin func(lobby.Snapshot)
}

// Run blocks until ctx ends or the lobby disappears.
func (r *Runner) Run(ctx context.Context) error {
	fps := r.FPS
	if fps <= 0 {
		fps = 60
	}
	dt := 1 / float64(fps)
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	gone := make(chan error, 1)
	announced := false
	frame := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-gone:
			return err
		case now := <-ticker.C:
			snap, _, ok := r.Tracker.Latest()
			if !ok {
				continue
			}
			tilt := 0.0
			if r.Tilt != nil {
				tilt = r.Tilt(frame)
			}
			res := r.Predictor.Frame(snap, tilt, dt, now)
			frame++

			if res.Claim != nil {
				go r.claim(ctx, *res.Claim)
			}
			if res.Report != nil {
				go r.poll(ctx, res.Report, gone)
				if res.Report.Win && !announced && r.OnWin != nil {
					announced = true
					r.OnWin(snap)
				}
			}
		}
	}
}

func (r *Runner) poll(ctx context.Context, report *lobby.Report, gone chan<- error) {
	res, err := r.API.Poll(ctx, r.LobbyID, report)
	if err != nil {
		if IsLobbyGone(err) {
			select {
			case gone <- err:
			default:
			}
			return
		}
		logger.Log.Debugf("Poll of lobby %s failed: %v", r.LobbyID, err)
		return
	}
	r.Tracker.Apply(res)
}

func (r *Runner) claim(ctx context.Context, cell Cell) {
	if err := r.API.ClaimPowerUp(ctx, r.LobbyID, r.Predictor.Index, cell.X, cell.Y); err != nil {
		logger.Log.Debugf("Claim at (%d, %d) in lobby %s failed: %v", cell.X, cell.Y, r.LobbyID, err)
		return
	}
	logger.Log.Debugf("Player %d sent a claim for (%d, %d)", r.Predictor.Index, cell.X, cell.Y)
}
