package physics

import "math"

// Box is an axis-aligned wall collider.
type Box struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// TopWallBox is the collider of the wall on the top edge of cell (i, j).
func TopWallBox(i, j int, p Params) Box {
	h := p.WallThickness/2 + p.ExtendBox
	x, y := float64(j), float64(i)
	return Box{MinX: x - h, MinY: y - h, MaxX: x + 1 + h, MaxY: y + h}
}

// LeftWallBox is the collider of the wall on the left edge of cell (i, j).
func LeftWallBox(i, j int, p Params) Box {
	h := p.WallThickness/2 + p.ExtendBox
	x, y := float64(j), float64(i)
	return Box{MinX: x - h, MinY: y - h, MaxX: x + h, MaxY: y + 1 + h}
}

// ClosestPoint clamps (x, y) onto the box.
func (b Box) ClosestPoint(x, y float64) (float64, float64) {
	return math.Max(b.MinX, math.Min(x, b.MaxX)), math.Max(b.MinY, math.Min(y, b.MaxY))
}

// DistanceSq is the squared distance from (x, y) to the box; zero inside.
func (b Box) DistanceSq(x, y float64) float64 {
	cx, cy := b.ClosestPoint(x, y)
	dx, dy := x-cx, y-cy
	return dx*dx + dy*dy
}

// Contains includes the boundary.
func (b Box) Contains(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// exitAxis returns the outward normal of the face nearest to (x, y) and the
// distance to it. (x, y) must be inside the box.
func (b Box) exitAxis(x, y float64) (nx, ny, depth float64) {
	nx, ny, depth = -1, 0, x-b.MinX
	if d := b.MaxX - x; d < depth {
		nx, ny, depth = 1, 0, d
	}
	if d := y - b.MinY; d < depth {
		nx, ny, depth = 0, -1, d
	}
	if d := b.MaxY - y; d < depth {
		nx, ny, depth = 0, 1, d
	}
	return nx, ny, depth
}
