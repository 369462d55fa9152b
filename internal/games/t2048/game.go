// Package t2048 implements the 2048 slide-and-merge engine on a
// configurable grid with a configurable target tile.
package t2048

import (
	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/protocol"
)

// Status is the game progression state.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusWon        Status = "won"
	StatusLost       Status = "lost"
)

// Game is the authoritative 2048 engine state. Cells are row-major; zero
// means empty.
type Game struct {
	cells       []int
	width       int
	height      int
	score       int
	targetValue int
	status      Status
	movesMade   int
}

// New creates a board with two spawned tiles.
func New(settings protocol.Puzzle2048Settings, rng *core.SessionRng) *Game {
	g := &Game{
		cells:       make([]int, settings.FieldWidth*settings.FieldHeight),
		width:       settings.FieldWidth,
		height:      settings.FieldHeight,
		targetValue: settings.TargetValue,
		status:      StatusInProgress,
	}
	g.spawnTile(rng)
	g.spawnTile(rng)
	return g
}

// ApplyMove slides the board in a direction. Returns false when the move
// changes nothing (no tile spawns, no turn is consumed).
func (g *Game) ApplyMove(dir core.Direction, rng *core.SessionRng) bool {
	if g.status != StatusInProgress {
		return false
	}

	old := make([]int, len(g.cells))
	copy(old, g.cells)
	gained := 0

	switch dir {
	case core.DirLeft:
		for row := 0; row < g.height; row++ {
			line := make([]int, g.width)
			for col := 0; col < g.width; col++ {
				line[col] = g.cells[row*g.width+col]
			}
			merged, score := slideAndMergeLine(line)
			gained += score
			for col, v := range merged {
				g.cells[row*g.width+col] = v
			}
		}
	case core.DirRight:
		for row := 0; row < g.height; row++ {
			line := make([]int, g.width)
			for col := 0; col < g.width; col++ {
				line[col] = g.cells[row*g.width+(g.width-1-col)]
			}
			merged, score := slideAndMergeLine(line)
			gained += score
			for col, v := range merged {
				g.cells[row*g.width+(g.width-1-col)] = v
			}
		}
	case core.DirUp:
		for col := 0; col < g.width; col++ {
			line := make([]int, g.height)
			for row := 0; row < g.height; row++ {
				line[row] = g.cells[row*g.width+col]
			}
			merged, score := slideAndMergeLine(line)
			gained += score
			for row, v := range merged {
				g.cells[row*g.width+col] = v
			}
		}
	case core.DirDown:
		for col := 0; col < g.width; col++ {
			line := make([]int, g.height)
			for row := 0; row < g.height; row++ {
				line[row] = g.cells[(g.height-1-row)*g.width+col]
			}
			merged, score := slideAndMergeLine(line)
			gained += score
			for row, v := range merged {
				g.cells[(g.height-1-row)*g.width+col] = v
			}
		}
	}

	if equalCells(g.cells, old) {
		return false
	}

	g.score += gained
	g.movesMade++
	g.spawnTile(rng)

	if g.maxTile() >= g.targetValue {
		g.status = StatusWon
	} else if !g.hasValidMoves() {
		g.status = StatusLost
	}

	return true
}

// slideAndMergeLine compacts a line toward index 0, merging each pair of
// equal adjacent tiles once. Returns the new line and the score gained.
func slideAndMergeLine(line []int) ([]int, int) {
	result := make([]int, 0, len(line))
	score := 0

	var nonZero []int
	for _, v := range line {
		if v != 0 {
			nonZero = append(nonZero, v)
		}
	}

	for i := 0; i < len(nonZero); {
		if i+1 < len(nonZero) && nonZero[i] == nonZero[i+1] {
			merged := nonZero[i] * 2
			result = append(result, merged)
			score += merged
			i += 2
		} else {
			result = append(result, nonZero[i])
			i++
		}
	}

	for len(result) < len(line) {
		result = append(result, 0)
	}

	return result, score
}

func (g *Game) spawnTile(rng *core.SessionRng) {
	var empty []int
	for i, v := range g.cells {
		if v == 0 {
			empty = append(empty, i)
		}
	}
	if len(empty) == 0 {
		return
	}

	idx := empty[rng.IntN(len(empty))]
	if rng.IntN(10) == 0 {
		g.cells[idx] = 4
	} else {
		g.cells[idx] = 2
	}
}

func (g *Game) hasValidMoves() bool {
	for _, v := range g.cells {
		if v == 0 {
			return true
		}
	}

	for row := 0; row < g.height; row++ {
		for col := 0; col < g.width; col++ {
			v := g.cells[row*g.width+col]
			if col+1 < g.width && v == g.cells[row*g.width+col+1] {
				return true
			}
			if row+1 < g.height && v == g.cells[(row+1)*g.width+col] {
				return true
			}
		}
	}

	return false
}

func (g *Game) maxTile() int {
	highest := 0
	for _, v := range g.cells {
		if v > highest {
			highest = v
		}
	}
	return highest
}

func equalCells(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// HighestTile returns the largest tile on the board.
func (g *Game) HighestTile() int { return g.maxTile() }

// Status returns the progression state.
func (g *Game) Status() Status { return g.status }

// Score returns the accumulated merge score.
func (g *Game) Score() int { return g.score }

// MovesMade returns how many effective moves were played.
func (g *Game) MovesMade() int { return g.movesMade }

// Cells exposes the raw board, mainly for tests.
func (g *Game) Cells() []int { return g.cells }

// SetCells overwrites the board, for tests.
func (g *Game) SetCells(cells []int) { g.cells = cells }

// ToState builds the wire state record.
func (g *Game) ToState() *protocol.Puzzle2048State {
	cells := make([]int, len(g.cells))
	copy(cells, g.cells)

	return &protocol.Puzzle2048State{
		Cells:       cells,
		FieldWidth:  g.width,
		FieldHeight: g.height,
		Score:       g.score,
		TargetValue: g.targetValue,
		MovesMade:   g.movesMade,
		Status:      string(g.status),
	}
}
