package maze

// Open reports whether the marble can move from cell (i, j) to the
// neighbouring cell (i+di, j+dj). Only unit steps are valid.
func (g *Grid) Open(i, j, di, dj int) bool {
	ni, nj := i+di, j+dj
	if ni < 0 || nj < 0 || ni >= g.Size || nj >= g.Size {
		return false
	}
	switch {
	case di == 1 && dj == 0:
		return !g.Cell(ni, j).Top
	case di == -1 && dj == 0:
		return !g.Cell(i, j).Top
	case di == 0 && dj == 1:
		return !g.Cell(i, nj).Left
	case di == 0 && dj == -1:
		return !g.Cell(i, j).Left
	}
	return false
}

// Traversable reports whether some cell with an open top edge in row 0 is
// connected to some cell with an open bottom edge in the last row.
func (g *Grid) Traversable() bool {
	n := g.Size
	seen := make([]bool, n*n)
	queue := make([][2]int, 0, n)

	for j := 0; j < n; j++ {
		if !g.Cell(0, j).Top {
			seen[j] = true
			queue = append(queue, [2]int{0, j})
		}
	}

	steps := [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		i, j := cur[0], cur[1]
		if i == n-1 && !g.Cell(n, j).Top {
			return true
		}
		for _, s := range steps {
			if !g.Open(i, j, s[0], s[1]) {
				continue
			}
			k := (i+s[0])*n + j + s[1]
			if !seen[k] {
				seen[k] = true
				queue = append(queue, [2]int{i + s[0], j + s[1]})
			}
		}
	}
	return false
}
