package physics

import (
	"math"

	"github.com/wfunc/tiltmaze/maze"
)

// Ball is the marble in cell units.
type Ball struct {
	X, Y   float64
	VX, VY float64
	Radius float64
}

// Engine moves a ball through a wall grid. It is not safe for concurrent
// use; each client owns its own engine.
type Engine struct {
	Params Params
	grid   *maze.Grid
}

func NewEngine(grid *maze.Grid, params Params) *Engine {
	return &Engine{Params: params, grid: grid}
}

// SetGrid swaps the walls, for example after a lobby reset.
func (e *Engine) SetGrid(grid *maze.Grid) {
	e.grid = grid
}

func (e *Engine) Grid() *maze.Grid {
	return e.grid
}

// Step advances the ball by dt seconds. The move is split into sub-steps
// no longer than MaxStepDistance so the ball cannot skip over a wall, and
// collisions are resolved after every sub-step.
func (e *Engine) Step(b *Ball, dt float64) {
	if dt <= 0 || !finite(dt) {
		return
	}
	if !b.finite() {
		b.VX, b.VY = 0, 0
		return
	}
	e.clampSpeed(b)

	speed := math.Hypot(b.VX, b.VY)
	steps := int(math.Ceil(speed / e.Params.MaxStepDistance))
	steps = max(1, min(steps, e.Params.MaxSubSteps))
	sub := dt / float64(steps)

	for s := 0; s < steps; s++ {
		b.X += b.VX * sub
		b.Y += b.VY * sub
		e.Resolve(b, sub)
	}
	e.clampSpeed(b)
}

// Resolve runs one collision pass against the walls around the ball and
// reports whether any wall was touched. The top edge of row 0 is solid
// along the whole board: the entrance gap is where the marble spawns, not
// a way out.
func (e *Engine) Resolve(b *Ball, dt float64) bool {
	if e.grid == nil {
		return false
	}
	n := e.grid.Size
	r := e.Params.Neighborhood
	gi, gj := int(math.Round(b.Y)), int(math.Round(b.X))

	hit := false
	for i := max(0, gi-r); i <= min(n, gi+r); i++ {
		for j := max(0, gj-r); j <= min(n, gj+r); j++ {
			c := e.grid.Cell(i, j)
			if i == 0 && j < n {
				c.Top = true
			}
			if c.Top && ResolveBox(b, TopWallBox(i, j, e.Params), dt, e.Params) {
				hit = true
			}
			if c.Left && ResolveBox(b, LeftWallBox(i, j, e.Params), dt, e.Params) {
				hit = true
			}
		}
	}
	return hit
}

// ResolveBox pushes the ball out of box. Shallow contacts move the ball by
// half the push and add an impulse of push*ImpulseScale/dt. A centre inside
// the box is moved fully out through the nearest face. Any velocity still
// pointing into the wall afterwards is removed.
func ResolveBox(b *Ball, box Box, dt float64, p Params) bool {
	r2 := b.Radius * b.Radius
	if box.DistanceSq(b.X, b.Y) > r2 {
		return false
	}

	var pushX, pushY float64
	correction := p.PositionCorrection
	if box.Contains(b.X, b.Y) {
		nx, ny, depth := box.exitAxis(b.X, b.Y)
		pushX, pushY = nx*(depth+b.Radius), ny*(depth+b.Radius)
		correction = 1
	} else {
		cx, cy := box.ClosestPoint(b.X, b.Y)
		dx, dy := b.X-cx, b.Y-cy
		dist := math.Sqrt(dx*dx + dy*dy)
		pen := b.Radius - dist
		inv := 1 / (dist + p.Epsilon)
		pushX, pushY = dx*inv*pen, dy*inv*pen
	}

	b.X += pushX * correction
	b.Y += pushY * correction
	if dt > 0 {
		b.VX += pushX * (p.ImpulseScale / dt)
		b.VY += pushY * (p.ImpulseScale / dt)
	}

	if l := math.Hypot(pushX, pushY); l > 0 {
		nx, ny := pushX/l, pushY/l
		if vn := b.VX*nx + b.VY*ny; vn < 0 {
			b.VX -= vn * nx
			b.VY -= vn * ny
		}
	}
	return true
}

// Accelerate applies board gravity for the fused angle plus damping. The
// angle maps to the direction (sin θ, cos θ); zero gravity skips the pull
// but still damps.
func (e *Engine) Accelerate(b *Ball, angle float64, dt float64, zeroGravity bool) {
	if dt <= 0 || !finite(dt) {
		return
	}
	if !zeroGravity && finite(angle) {
		b.VX += math.Sin(angle) * e.Params.GravityAccel * dt
		b.VY += math.Cos(angle) * e.Params.GravityAccel * dt
	}
	damp := math.Max(0, 1-e.Params.Damping*dt)
	b.VX *= damp
	b.VY *= damp
}

func (e *Engine) clampSpeed(b *Ball) {
	speed := math.Hypot(b.VX, b.VY)
	if speed > e.Params.MaxSpeed {
		scale := e.Params.MaxSpeed / speed
		b.VX *= scale
		b.VY *= scale
	}
}

// ReachedExit reports whether the ball has left through the bottom row.
func ReachedExit(b Ball, size int) bool {
	return b.Y > float64(size)
}

// ToGrid converts a board-normalised coordinate in [-0.5, 0.5] to cell units.
func ToGrid(v float64, size int) float64 {
	return (v + 0.5) * float64(size)
}

// FromGrid converts a cell-unit coordinate back to board-normalised.
func FromGrid(v float64, size int) float64 {
	return v/float64(size) - 0.5
}

// VelocityToGrid converts board units per second to cells per second.
func VelocityToGrid(v float64, size int) float64 {
	return v * float64(size)
}

func VelocityFromGrid(v float64, size int) float64 {
	return v / float64(size)
}

func (b *Ball) finite() bool {
	return finite(b.X) && finite(b.Y) && finite(b.VX) && finite(b.VY)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
