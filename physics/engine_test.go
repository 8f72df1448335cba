package physics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/wfunc/tiltmaze/maze"
)

const frame = 1.0 / 60

// floorGrid is an open 4x4 board with a full wall across the top of row 2.
func floorGrid(t *testing.T) *maze.Grid {
	t.Helper()
	n := 4
	cells := make([]maze.WallCell, (n+1)*(n+1))
	for j := 0; j < n; j++ {
		cells[maze.Index(n, 2, j)].Top = true
	}
	g, ok := maze.NewGrid(n, cells)
	if !ok {
		t.Fatal("failed to build test grid")
	}
	return g
}

func TestResolveBox_CentreInsideIsPushedOut(t *testing.T) {
	p := DefaultParams()
	box := TopWallBox(2, 1, p)

	cases := []struct {
		name   string
		x, y   float64
		vx, vy float64
	}{
		{"resting", 1.5, 2.0, 0, 0},
		{"moving in", 1.5, 1.98, 0, 5},
		{"moving sideways", 1.2, 2.03, 3, -1},
		{"near the end", 2.06, 2.0, -2, 0},
	}

	for _, tc := range cases {
		b := Ball{X: tc.x, Y: tc.y, VX: tc.vx, VY: tc.vy, Radius: BallRadius}
		beforeX, beforeY := b.X, b.Y

		if !ResolveBox(&b, box, frame, p) {
			t.Fatalf("%s: expected a collision", tc.name)
		}

		if d := box.DistanceSq(b.X, b.Y); d < b.Radius*b.Radius-1e-9 {
			t.Errorf("%s: ball still penetrates: distSq %v < r² %v", tc.name, d, b.Radius*b.Radius)
		}

		nx, ny := b.X-beforeX, b.Y-beforeY
		l := math.Hypot(nx, ny)
		if l == 0 {
			t.Fatalf("%s: ball was not moved", tc.name)
		}
		if vn := (b.VX*nx + b.VY*ny) / l; vn < 0 {
			t.Errorf("%s: velocity along push is %v, want >= 0", tc.name, vn)
		}
	}
}

func TestResolveBox_ShallowContact(t *testing.T) {
	p := DefaultParams()
	box := TopWallBox(2, 1, p)
	// Face at y = 2 - 0.075; ball overlaps by 0.05.
	b := Ball{X: 1.5, Y: box.MinY - BallRadius + 0.05, VY: 1, Radius: BallRadius}
	y0 := b.Y

	if !ResolveBox(&b, box, frame, p) {
		t.Fatal("expected a collision")
	}
	if b.Y >= y0 {
		t.Errorf("ball should move away from the wall, y %v -> %v", y0, b.Y)
	}
	if math.Abs((y0-b.Y)-0.025) > 1e-3 {
		t.Errorf("expected half of the 0.05 push, moved %v", y0-b.Y)
	}
	if b.VY > 0 {
		t.Errorf("velocity into the wall must be removed, got vy %v", b.VY)
	}
}

func TestResolveBox_NoContact(t *testing.T) {
	p := DefaultParams()
	b := Ball{X: 1.5, Y: 1.0, VY: 1, Radius: BallRadius}
	if ResolveBox(&b, TopWallBox(2, 1, p), frame, p) {
		t.Fatal("ball far from the wall should not collide")
	}
	if b.VY != 1 || b.Y != 1.0 {
		t.Fatal("ball without contact must be untouched")
	}
}

func TestStep_SettlesOnWall(t *testing.T) {
	g := floorGrid(t)
	e := NewEngine(g, DefaultParams())
	b := Ball{X: 1.5, Y: 1.0, Radius: BallRadius}
	face := TopWallBox(2, 1, e.Params).MinY
	rest := face - BallRadius

	for i := 0; i < 600; i++ {
		e.Accelerate(&b, 0, frame, false)
		e.Step(&b, frame)
		if b.Y > rest+0.01 {
			t.Fatalf("frame %d: ball sank into the wall, y %v > %v", i, b.Y, rest+0.01)
		}
	}

	if math.Abs(b.Y-rest) > 0.01 {
		t.Errorf("expected the ball to rest at %v, got %v", rest, b.Y)
	}
	if math.Abs(b.VY) > 0.25 {
		t.Errorf("expected the ball to be nearly still, vy %v", b.VY)
	}
}

func TestStep_SettlesAtAnyFrameRate(t *testing.T) {
	g := floorGrid(t)
	for _, dt := range []float64{1.0 / 20, 1.0 / 30, 1.0 / 60, 1.0 / 144} {
		e := NewEngine(g, DefaultParams())
		b := Ball{X: 2.5, Y: 0.8, Radius: BallRadius}
		rest := TopWallBox(2, 2, e.Params).MinY - BallRadius

		for elapsed := 0.0; elapsed < 10; elapsed += dt {
			e.Accelerate(&b, 0, dt, false)
			e.Step(&b, dt)
		}
		if math.Abs(b.Y-rest) > 0.02 {
			t.Errorf("dt %v: expected rest at %v, got %v", dt, rest, b.Y)
		}
	}
}

func TestStep_FastBallDoesNotTunnel(t *testing.T) {
	g := floorGrid(t)
	e := NewEngine(g, DefaultParams())
	b := Ball{X: 1.5, Y: 0.5, VY: 19, Radius: BallRadius}

	for i := 0; i < 30; i++ {
		e.Step(&b, frame)
		if b.Y >= 2.0 {
			t.Fatalf("frame %d: ball tunnelled through the wall, y %v", i, b.Y)
		}
	}
}

func TestStep_EntranceIsClosed(t *testing.T) {
	g := maze.Generate(maze.Config{Size: 8, FloorHeight: 1, Rand: rand.New(rand.NewSource(1))})
	gap := -1
	for j := 0; j < g.Size; j++ {
		if !g.Cell(0, j).Top {
			gap = j
			break
		}
	}
	if gap < 0 {
		t.Fatal("generated maze has no entrance")
	}

	e := NewEngine(g, DefaultParams())
	b := Ball{X: float64(gap) + 0.5, Y: 0.5, Radius: BallRadius}
	for i := 0; i < 600; i++ {
		e.Accelerate(&b, math.Pi, frame, false)
		e.Step(&b, frame)
		if b.Y < -b.Radius {
			t.Fatalf("frame %d: marble left through the entrance, y %v", i, b.Y)
		}
	}
	if ceiling := TopWallBox(0, gap, e.Params).MaxY; b.Y < ceiling {
		t.Errorf("expected the marble to rest below the top edge, y %v < %v", b.Y, ceiling)
	}
}

func TestStep_ClampsSpeed(t *testing.T) {
	e := NewEngine(floorGrid(t), DefaultParams())
	b := Ball{X: 0.5, Y: 0.5, VX: 1000, Radius: BallRadius}
	e.Step(&b, frame)
	if s := math.Hypot(b.VX, b.VY); s > MaxSpeed+1e-9 {
		t.Errorf("speed %v exceeds the cap", s)
	}
}

func TestStep_RejectsNonFinite(t *testing.T) {
	e := NewEngine(floorGrid(t), DefaultParams())
	b := Ball{X: 1, Y: 1, VX: math.NaN(), Radius: BallRadius}
	e.Step(&b, frame)
	if b.VX != 0 || b.VY != 0 {
		t.Errorf("non-finite velocity should be zeroed, got (%v, %v)", b.VX, b.VY)
	}
	if b.X != 1 || b.Y != 1 {
		t.Errorf("position must not move on bad input, got (%v, %v)", b.X, b.Y)
	}
}

func TestAccelerate(t *testing.T) {
	e := NewEngine(nil, DefaultParams())

	b := Ball{}
	e.Accelerate(&b, math.Pi/2, 0.1, false)
	if b.VX <= 0 || math.Abs(b.VY) > 1e-9 {
		t.Errorf("angle π/2 should pull along +x, got (%v, %v)", b.VX, b.VY)
	}

	b = Ball{VX: 1}
	e.Accelerate(&b, 0, 0.1, true)
	if b.VY != 0 {
		t.Errorf("zero gravity must not pull, got vy %v", b.VY)
	}
	if b.VX >= 1 {
		t.Errorf("damping should slow the ball, got vx %v", b.VX)
	}
}

func TestCoordinateConversion(t *testing.T) {
	for _, v := range []float64{-0.5, -0.1, 0, 0.25, 0.5} {
		if got := FromGrid(ToGrid(v, 16), 16); math.Abs(got-v) > 1e-12 {
			t.Errorf("round trip of %v gave %v", v, got)
		}
	}
	if ToGrid(0, 16) != 8 {
		t.Errorf("board centre should map to cell 8, got %v", ToGrid(0, 16))
	}
	if !ReachedExit(Ball{Y: 16.1}, 16) || ReachedExit(Ball{Y: 15.9}, 16) {
		t.Error("ReachedExit should trigger only below the last row")
	}
}
