package client

import (
	"context"
	"math"
	"math/rand"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wfunc/tiltmaze/config"
	"github.com/wfunc/tiltmaze/lobby"
	"github.com/wfunc/tiltmaze/maze"
	"github.com/wfunc/tiltmaze/persistence"
	"github.com/wfunc/tiltmaze/physics"
	"github.com/wfunc/tiltmaze/server"
	"github.com/wfunc/tiltmaze/state"
)

const frame = 1.0 / 60

func testSnapshot(status state.Status) lobby.Snapshot {
	g := maze.Generate(maze.Config{Size: 8, FloorHeight: 1, Rand: rand.New(rand.NewSource(3))})
	return lobby.Snapshot{
		ID:        "TEST01",
		Status:    status,
		BoardSize: g.Size,
		Walls:     g.Cells,
	}
}

func TestSnapshotTracker_DropsStale(t *testing.T) {
	var tr SnapshotTracker
	if _, _, ok := tr.Latest(); ok {
		t.Fatal("Empty tracker should hold nothing")
	}

	if !tr.Apply(lobby.PollResult{Timestamp: 100, Lobby: lobby.Snapshot{ID: "a"}}) {
		t.Fatal("First result should be kept")
	}
	if tr.Apply(lobby.PollResult{Timestamp: 90, Lobby: lobby.Snapshot{ID: "old"}}) {
		t.Error("Older result should be dropped")
	}
	if tr.Apply(lobby.PollResult{Timestamp: 100, Lobby: lobby.Snapshot{ID: "dup"}}) {
		t.Error("Equal timestamp should be dropped")
	}
	if !tr.Apply(lobby.PollResult{Timestamp: 101, Lobby: lobby.Snapshot{ID: "b"}}) {
		t.Error("Newer result should be kept")
	}

	snap, ts, _ := tr.Latest()
	if snap.ID != "b" || ts != 101 {
		t.Errorf("Expected b@101, got %s@%d", snap.ID, ts)
	}
}

func TestPredictor_SpawnsAtEntrance(t *testing.T) {
	snap := testSnapshot(state.StatusWaiting)
	p, err := NewPredictor(0, snap, 15*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	b := p.Ball()
	g, _ := maze.NewGrid(snap.BoardSize, snap.Walls)
	if g.Cell(0, int(b.X)).Top {
		t.Errorf("Marble spawned under a wall at column %d", int(b.X))
	}
	if b.Y != 0.5 || b.Radius != physics.BallRadius {
		t.Errorf("Unexpected spawn %+v", b)
	}
}

func TestPredictor_RejectsBadWalls(t *testing.T) {
	snap := testSnapshot(state.StatusWaiting)
	snap.Walls = snap.Walls[:10]
	if _, err := NewPredictor(0, snap, 15*time.Second); err != ErrBadWalls {
		t.Errorf("Expected ErrBadWalls, got %v", err)
	}
}

func TestPredictor_StillUntilPlaying(t *testing.T) {
	snap := testSnapshot(state.StatusWaiting)
	p, _ := NewPredictor(0, snap, 15*time.Second)
	start := p.Ball()
	for i := 0; i < 30; i++ {
		p.Frame(snap, 0, frame, time.Now())
	}
	if p.Ball() != start {
		t.Errorf("Marble moved while waiting: %+v -> %+v", start, p.Ball())
	}
}

func TestPredictor_FallsUnderGravity(t *testing.T) {
	snap := testSnapshot(state.StatusPlaying)
	p, _ := NewPredictor(0, snap, 15*time.Second)
	for i := 0; i < 10; i++ {
		p.Frame(snap, 0, frame, time.Now())
	}
	b := p.Ball()
	if b.Y <= 0.5 || b.Y >= 1 {
		t.Errorf("Expected the marble to drop toward row 1, got y=%v", b.Y)
	}
}

func TestPredictor_StaysOnBoardWhenTiltedUp(t *testing.T) {
	snap := testSnapshot(state.StatusPlaying)
	snap.GravityAngle = math.Pi
	p, _ := NewPredictor(0, snap, 15*time.Second)

	for i := 0; i < 600; i++ {
		res := p.Frame(snap, math.Pi, frame, time.Now())
		if b := p.Ball(); b.Y < -b.Radius {
			t.Fatalf("frame %d: marble left the board, y %v", i, b.Y)
		}
		if res.Report != nil && res.Report.State.Y < -0.5 {
			t.Fatalf("frame %d: reported y %v is off the board", i, res.Report.State.Y)
		}
	}
}

func TestPredictor_ZeroGravity(t *testing.T) {
	snap := testSnapshot(state.StatusPlaying)
	p, _ := NewPredictor(0, snap, 15*time.Second)
	now := time.Now()
	holder, at := 0, now.UnixMilli()
	snap.PowerUps = []lobby.PowerUp{{X: 7, Y: 7, Type: lobby.PowerUpZeroGravity, Holder: &holder, TimeActivated: &at}}

	start := p.Ball()
	for i := 0; i < 10; i++ {
		p.Frame(snap, 0, frame, now)
	}
	if p.Ball().Y != start.Y || p.Ball().VY != 0 {
		t.Errorf("Zero gravity should hold the marble, got %+v", p.Ball())
	}

	// expired power-up: gravity is back
	for i := 0; i < 10; i++ {
		p.Frame(snap, 0, frame, now.Add(16*time.Second))
	}
	if p.Ball().Y <= start.Y {
		t.Error("Gravity should return once the power-up expires")
	}
}

func TestPredictor_ReportsEveryTenthFrame(t *testing.T) {
	snap := testSnapshot(state.StatusPlaying)
	p, _ := NewPredictor(2, snap, 15*time.Second)

	reports := 0
	for i := 1; i <= 30; i++ {
		res := p.Frame(snap, 0.3, frame, time.Now())
		if res.Report == nil {
			continue
		}
		reports++
		if i%10 != 0 {
			t.Errorf("Report on frame %d", i)
		}
		r := res.Report
		if r.Index != 2 || r.State.GravityAngle != 0.3 {
			t.Errorf("Unexpected report %+v", r)
		}
		b := p.Ball()
		if r.State.Y != physics.FromGrid(b.Y, snap.BoardSize) {
			t.Errorf("Report should be board-normalised, got %v for %v", r.State.Y, b.Y)
		}
	}
	if reports != 3 {
		t.Errorf("Expected 3 reports in 30 frames, got %d", reports)
	}
}

func TestPredictor_WinAndReset(t *testing.T) {
	snap := testSnapshot(state.StatusPlaying)
	p, _ := NewPredictor(0, snap, 15*time.Second)
	p.PollEvery = 1

	n := snap.BoardSize
	p.ball.X = float64(n/2) + 0.5
	p.ball.Y = float64(n) + 0.6
	res := p.Frame(snap, 0, frame, time.Now())
	if !res.Won || res.Report == nil || !res.Report.Win {
		t.Fatalf("Expected a win report, got %+v", res)
	}

	snap.Status = state.StatusFinished
	if res := p.Frame(snap, 0, frame, time.Now()); !res.Report.Win {
		t.Error("Win flag should stick until reset")
	}

	snap.Status = state.StatusWaiting
	res = p.Frame(snap, 0, frame, time.Now())
	if res.Won || res.Report.Win {
		t.Error("Reset should clear the win")
	}
	if p.Ball().Y != 0.5 {
		t.Errorf("Reset should respawn the marble, got y=%v", p.Ball().Y)
	}
}

func TestPredictor_ClaimsOnce(t *testing.T) {
	snap := testSnapshot(state.StatusPlaying)
	p, _ := NewPredictor(0, snap, 15*time.Second)
	b := p.Ball()
	snap.PowerUps = []lobby.PowerUp{{X: int(b.X), Y: 0, Type: lobby.PowerUpZeroGravity}}

	res := p.Frame(snap, 0, frame, time.Now())
	if res.Claim == nil || res.Claim.X != int(b.X) || res.Claim.Y != 0 {
		t.Fatalf("Expected a claim on the spawn cell, got %+v", res.Claim)
	}
	if res := p.Frame(snap, 0, frame, time.Now()); res.Claim != nil {
		t.Error("Claim should be requested once")
	}
}

func newLiveServer(t *testing.T) *API {
	t.Helper()
	cfg, err := config.LoadConfig(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	gs := server.NewGameServer(*cfg, persistence.NewMemory())
	ts := httptest.NewServer(gs.Handler())
	t.Cleanup(ts.Close)
	return NewAPI(ts.URL)
}

func TestAPI_RoundTrip(t *testing.T) {
	api := newLiveServer(t)
	ctx := context.Background()

	snap, err := api.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	idx, _, err := api.Join(ctx, snap.ID, "bot")
	if err != nil || idx != 0 {
		t.Fatalf("Join: %d %v", idx, err)
	}
	if s, err := api.Start(ctx, snap.ID); err != nil || s.Status != state.StatusPlaying {
		t.Fatalf("Start: %v %v", s.Status, err)
	}

	pu := snap.PowerUps[0]
	if err := api.ClaimPowerUp(ctx, snap.ID, 0, pu.X, pu.Y); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := api.ClaimPowerUp(ctx, snap.ID, 0, pu.X, pu.Y); err == nil {
		t.Error("Second claim should fail")
	}

	res, err := api.Poll(ctx, snap.ID, &lobby.Report{Index: 0, State: lobby.Player{Y: 0.51, VY: 0.1}, Win: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Lobby.Status != state.StatusFinished || res.Lobby.Winner == nil || *res.Lobby.Winner != 0 {
		t.Errorf("Expected finished with winner 0, got %s %v", res.Lobby.Status, res.Lobby.Winner)
	}
	if res.Lobby.Players[0].Y != 0.51 {
		t.Errorf("Report not stored, got %+v", res.Lobby.Players[0])
	}

	if _, err := api.Status(ctx, "NOPE00"); !IsLobbyGone(err) {
		t.Errorf("Expected lobby gone, got %v", err)
	}
}

func TestRunner_PollsUntilLobbyGone(t *testing.T) {
	api := newLiveServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, _ := api.Create(ctx)
	idx, joined, _ := api.Join(ctx, snap.ID, "bot")
	api.Start(ctx, snap.ID)

	pred, err := NewPredictor(idx, joined, 15*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	tracker := &SnapshotTracker{}
	first, _ := api.Poll(ctx, snap.ID, nil)
	tracker.Apply(first)

	r := &Runner{API: api, LobbyID: snap.ID, Predictor: pred, Tracker: tracker, FPS: 120}
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		s, err := api.Status(ctx, snap.ID)
		if err != nil {
			t.Fatal(err)
		}
		if s.Players[0].Y != 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if s, _ := api.Status(ctx, snap.ID); s.Players[0].Y == 0 {
		t.Fatal("Runner never reported its marble")
	}

	var gone struct{ Message string }
	if err := api.get(ctx, "/lobby/destroy", map[string][]string{"lobby": {snap.ID}}, &gone); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if !IsLobbyGone(err) {
			t.Errorf("Expected lobby gone, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Runner kept going after the lobby was destroyed")
	}
}
