package maze

import (
	"math/rand"
	"time"
)

// WallCell records the walls on the top and left edge of one grid cell.
type WallCell struct {
	Top  bool `json:"top"`
	Left bool `json:"left"`
}

// Grid is the (N+1)x(N+1) wall layout of an N-sized board. Row N and
// column N are the closing row and column of the board.
type Grid struct {
	Size  int
	Cells []WallCell
}

// Index maps row i and column j to the flat cell index.
func Index(size, i, j int) int {
	return j + i*(size+1)
}

// NewGrid wraps an existing cell slice. It returns false if the slice length
// does not match the size.
func NewGrid(size int, cells []WallCell) (*Grid, bool) {
	if size < 1 || len(cells) != (size+1)*(size+1) {
		return nil, false
	}
	return &Grid{Size: size, Cells: cells}, true
}

// Cell returns the cell at row i, column j. Out of range lookups return an
// empty cell.
func (g *Grid) Cell(i, j int) WallCell {
	if i < 0 || j < 0 || i > g.Size || j > g.Size {
		return WallCell{}
	}
	return g.Cells[Index(g.Size, i, j)]
}

func (g *Grid) set(i, j int, c WallCell) {
	g.Cells[Index(g.Size, i, j)] = c
}

// Config controls maze generation. FloorHeight is the number of rows in
// one band; the band count is derived from Size.
type Config struct {
	Size        int
	FloorHeight int

	// Rand is optional; nil draws a time-seeded source.
	Rand *rand.Rand
}

// Generate builds a banded maze. Every band starts with a row of top walls
// broken by one gap column, and consecutive gaps differ so the marble has
// to cross the band. A braiding pass then knocks out Size/4 extra top walls.
func Generate(cfg Config) *Grid {
	size := cfg.Size
	if size < 1 {
		size = 1
	}
	floorHeight := clamp(cfg.FloorHeight, 1, size)
	floorWidth := size
	floorCount := (size + floorHeight - 1) / floorHeight

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	g := &Grid{Size: size, Cells: make([]WallCell, (size+1)*(size+1))}

	prev := -1
	for floor := 0; floor < floorCount; floor++ {
		gap := pickGap(rng, floorWidth, prev)
		prev = gap

		firstRow := clamp(floor*floorHeight, 0, size-1)
		lastRow := clamp(firstRow+floorHeight-1, 0, size-1)
		for i := firstRow; i <= lastRow; i++ {
			for j := 0; j < floorWidth; j++ {
				c := WallCell{}
				if j == 0 {
					c.Left = true
				}
				if i == firstRow && j != gap {
					c.Top = true
				}
				g.set(i, j, c)
			}
			// Closing column: right boundary.
			g.set(i, size, WallCell{Left: true})
		}
	}

	// Closing row: bottom boundary with the exit gap.
	exit := clamp(size/2, 0, size-1)
	for j := 0; j < size; j++ {
		g.set(size, j, WallCell{Top: j != exit, Left: j == 0})
	}
	g.set(size, size, WallCell{})

	braid(g, rng, size/4)
	return g
}

func pickGap(rng *rand.Rand, width, prev int) int {
	if width <= 1 {
		return 0
	}
	for {
		gap := clamp(rng.Intn(width), 0, width-1)
		if gap != prev {
			return gap
		}
	}
}

// braid removes top walls from interior rows only so the top and bottom
// boundaries keep their designated gaps.
func braid(g *Grid, rng *rand.Rand, count int) {
	if g.Size < 2 {
		return
	}
	for n := 0; n < count; n++ {
		i := clamp(1+rng.Intn(g.Size-1), 1, g.Size-1)
		j := clamp(rng.Intn(g.Size), 0, g.Size-1)
		c := g.Cell(i, j)
		c.Top = false
		g.set(i, j, c)
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
