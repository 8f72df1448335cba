package client

import (
	"errors"
	"math"
	"slices"
	"time"

	"github.com/wfunc/tiltmaze/lobby"
	"github.com/wfunc/tiltmaze/maze"
	"github.com/wfunc/tiltmaze/physics"
	"github.com/wfunc/tiltmaze/state"
)

// DefaultPollEvery is how many frames pass between two polls.
const DefaultPollEvery = 10

var ErrBadWalls = errors.New("snapshot walls do not match board size")

// Cell is a grid cell by column and row, the way power-ups are addressed.
type Cell struct {
	X, Y int
}

// FrameResult is what one frame asks the network layer to do.
type FrameResult struct {
	// Report is set on poll frames.
	Report *lobby.Report
	// Claim is set when the marble entered a cell with a free power-up.
	Claim *Cell
	Won   bool
}

// Predictor runs the local marble between server snapshots. The server
// never simulates; it only keeps what the predictor reports.
type Predictor struct {
	Index     int
	PollEvery int
	Lifetime  time.Duration

	engine  *physics.Engine
	ball    physics.Ball
	walls   []maze.WallCell
	status  state.Status
	frame   int
	won     bool
	claimed map[Cell]bool
}

func NewPredictor(index int, snap lobby.Snapshot, lifetime time.Duration) (*Predictor, error) {
	p := &Predictor{
		Index:     index,
		PollEvery: DefaultPollEvery,
		Lifetime:  lifetime,
		engine:    physics.NewEngine(nil, physics.DefaultParams()),
	}
	if err := p.load(snap); err != nil {
		return nil, err
	}
	return p, nil
}

// load takes the walls of snap and puts the marble on the entrance.
func (p *Predictor) load(snap lobby.Snapshot) error {
	walls := slices.Clone(snap.Walls)
	grid, ok := maze.NewGrid(snap.BoardSize, walls)
	if !ok {
		return ErrBadWalls
	}
	p.engine.SetGrid(grid)
	p.walls = walls
	p.won = false
	p.claimed = make(map[Cell]bool)
	p.spawn()
	return nil
}

// spawn centres the marble under the first gap of the top row.
func (p *Predictor) spawn() {
	g := p.engine.Grid()
	col := 0
	for j := 0; j < g.Size; j++ {
		if !g.Cell(0, j).Top {
			col = j
			break
		}
	}
	p.ball = physics.Ball{
		X:      float64(col) + 0.5,
		Y:      0.5,
		Radius: physics.BallRadius,
	}
}

// Frame advances the marble by dt seconds under the lobby's fused angle.
// tilt is this player's own device angle, reported to the server on poll
// frames. The marble only moves while the lobby is playing.
func (p *Predictor) Frame(snap lobby.Snapshot, tilt, dt float64, now time.Time) FrameResult {
	// a reset deals new walls and sends everyone back to the entrance
	reset := snap.Status == state.StatusWaiting && p.status != "" && p.status != state.StatusWaiting
	if reset || !slices.Equal(snap.Walls, p.walls) {
		if err := p.load(snap); err != nil {
			return FrameResult{}
		}
	}
	p.status = snap.Status

	var res FrameResult
	if snap.Status == state.StatusPlaying && !p.won {
		zero := lobby.ActiveFor(snap.PowerUps, p.Index, lobby.PowerUpZeroGravity, now.UnixMilli(), p.Lifetime)
		p.engine.Accelerate(&p.ball, snap.GravityAngle, dt, zero)
		p.engine.Step(&p.ball, dt)
		if physics.ReachedExit(p.ball, p.engine.Grid().Size) {
			p.won = true
		}
		res.Claim = p.claimable(snap.PowerUps)
	}
	res.Won = p.won

	p.frame++
	every := p.PollEvery
	if every <= 0 {
		every = DefaultPollEvery
	}
	if p.frame%every == 0 {
		res.Report = p.report(tilt)
	}
	return res
}

func (p *Predictor) claimable(powerUps []lobby.PowerUp) *Cell {
	cell := Cell{X: int(math.Floor(p.ball.X)), Y: int(math.Floor(p.ball.Y))}
	if p.claimed[cell] {
		return nil
	}
	for _, pu := range powerUps {
		if pu.X == cell.X && pu.Y == cell.Y && !pu.Claimed() {
			p.claimed[cell] = true
			return &cell
		}
	}
	return nil
}

func (p *Predictor) report(tilt float64) *lobby.Report {
	size := p.engine.Grid().Size
	return &lobby.Report{
		Index: p.Index,
		State: lobby.Player{
			GravityAngle: tilt,
			X:            physics.FromGrid(p.ball.X, size),
			Y:            physics.FromGrid(p.ball.Y, size),
			VX:           physics.VelocityFromGrid(p.ball.VX, size),
			VY:           physics.VelocityFromGrid(p.ball.VY, size),
		},
		Win: p.won,
	}
}

// Ball returns the marble in cell units.
func (p *Predictor) Ball() physics.Ball {
	return p.ball
}
