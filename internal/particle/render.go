package particle

import (
	"math"
	"strings"
)

// Render draws the current episode as a 5x5 ASCII grid: G marks the
// goal, A the agent, and · cells the agent has visited. Used by the
// interactive playground before each feedback prompt.
func (e *Env) Render() string {
	const cells = 5 // grid spans [-1,1] in 0.5 increments

	grid := make([][]rune, cells)
	for i := range grid {
		grid[i] = make([]rune, cells)
		for j := range grid[i] {
			grid[i][j] = '.'
		}
	}

	mark := func(p Point, r rune) {
		col := int(math.Round((p.X + 1) / 0.5))
		row := int(math.Round((1 - p.Y) / 0.5))
		if col < 0 || col >= cells || row < 0 || row >= cells {
			return
		}
		grid[row][col] = r
	}

	for _, p := range e.path {
		mark(p, '·')
	}
	mark(e.goalPos, 'G')
	mark(e.pos, 'A')
	if withinTolerance(e.pos, e.goalPos) {
		mark(e.pos, '*')
	}

	var sb strings.Builder
	for _, row := range grid {
		for j, r := range row {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteRune(r)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
