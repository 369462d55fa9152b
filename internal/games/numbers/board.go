// Package numbers implements the Numbers-Match pair-removal board: a 9-wide
// row-major grid of digits where matching or sum-to-ten pairs connected by
// line of sight or a sequential path are removed, fully-cleared rows
// collapse, and a limited refill budget extends the board.
package numbers

import "github.com/vovakirdan/arcade-online/internal/core"

const (
	// FieldWidth is the fixed board width.
	FieldWidth = 9
	// InitialCells is how many digits the board starts with.
	InitialCells = 42
)

// Cell is one board position. Value 0 means the cell was never used;
// Removed marks a consumed digit.
type Cell struct {
	Value   int
	Removed bool
}

// Active reports whether the cell still holds a playable digit.
func (c Cell) Active() bool {
	return c.Value > 0 && !c.Removed
}

// Position addresses a cell by row and column.
type Position struct {
	Row int
	Col int
}

// Index returns the row-major index.
func (p Position) Index() int {
	return p.Row*FieldWidth + p.Col
}

// PositionFromIndex converts a row-major index back to a position.
func PositionFromIndex(index int) Position {
	return Position{Row: index / FieldWidth, Col: index % FieldWidth}
}

// Board is the dynamic row-major cell grid.
type Board struct {
	cells    []Cell
	rowCount int
}

// NewBoard populates the initial 42 digits. No two horizontally adjacent
// initial cells share a value; generation retries per cell until the
// constraint holds.
func NewBoard(rng *core.SessionRng) *Board {
	rowCount := (InitialCells + FieldWidth - 1) / FieldWidth
	cells := make([]Cell, rowCount*FieldWidth)

	for i := 0; i < InitialCells; i++ {
		var prev int
		if i%FieldWidth > 0 {
			prev = cells[i-1].Value
		}
		for {
			value := rng.RangeInt(1, 10)
			if value != prev {
				cells[i] = Cell{Value: value}
				break
			}
		}
	}

	return &Board{cells: cells, rowCount: rowCount}
}

// BoardFromValues builds a board from explicit values, for tests.
func BoardFromValues(values []int) *Board {
	rowCount := (len(values) + FieldWidth - 1) / FieldWidth
	cells := make([]Cell, rowCount*FieldWidth)
	for i, v := range values {
		cells[i] = Cell{Value: v}
	}
	return &Board{cells: cells, rowCount: rowCount}
}

// RowCount returns the current number of rows.
func (b *Board) RowCount() int {
	return b.rowCount
}

// Get returns the cell at pos, or nil when out of range.
func (b *Board) Get(pos Position) *Cell {
	if pos.Col < 0 || pos.Col >= FieldWidth || pos.Row < 0 || pos.Row >= b.rowCount {
		return nil
	}
	return &b.cells[pos.Index()]
}

// Cells exposes the live portion of the grid.
func (b *Board) Cells() []Cell {
	return b.cells[:b.rowCount*FieldWidth]
}

// CanRemovePair checks the full pair rule: distinct active cells whose
// values match or sum to ten, connected by line of sight or by a sequential
// row-major path with no active cell between them.
func (b *Board) CanRemovePair(p1, p2 Position) bool {
	if p1 == p2 {
		return false
	}

	c1 := b.Get(p1)
	if c1 == nil || !c1.Active() {
		return false
	}
	c2 := b.Get(p2)
	if c2 == nil || !c2.Active() {
		return false
	}

	if c1.Value != c2.Value && c1.Value+c2.Value != 10 {
		return false
	}

	return b.hasLineOfSight(p1, p2) || b.hasSequentialPath(p1, p2)
}

func (b *Board) hasSequentialPath(p1, p2 Position) bool {
	start, end := p1.Index(), p2.Index()
	if start > end {
		start, end = end, start
	}
	for i := start + 1; i < end; i++ {
		if b.cells[i].Active() {
			return false
		}
	}
	return true
}

func (b *Board) hasLineOfSight(p1, p2 Position) bool {
	rowDiff := p2.Row - p1.Row
	colDiff := p2.Col - p1.Col

	horizontal := rowDiff == 0
	vertical := colDiff == 0
	diagonal := abs(rowDiff) == abs(colDiff)
	if !horizontal && !vertical && !diagonal {
		return false
	}

	rowStep := sign(rowDiff)
	colStep := sign(colDiff)

	row, col := p1.Row+rowStep, p1.Col+colStep
	for row != p2.Row || col != p2.Col {
		if c := b.Get(Position{Row: row, Col: col}); c != nil && c.Active() {
			return false
		}
		row += rowStep
		col += colStep
	}

	return true
}

// ActiveCellCount returns the number of playable digits left.
func (b *Board) ActiveCellCount() int {
	count := 0
	for _, c := range b.Cells() {
		if c.Active() {
			count++
		}
	}
	return count
}

// RemoveEmptyRows collapses rows with no active cell and returns their
// indices (as they were before collapsing).
func (b *Board) RemoveEmptyRows() []int {
	var removed []int

	row := 0
	scanned := 0
	for row < b.rowCount {
		start := row * FieldWidth
		end := start + FieldWidth
		empty := true
		for _, c := range b.cells[start:end] {
			if c.Active() {
				empty = false
				break
			}
		}

		if empty {
			removed = append(removed, scanned)
			b.cells = append(b.cells[:start], b.cells[end:]...)
			b.rowCount--
		} else {
			row++
		}
		scanned++
	}

	return removed
}

// Refill copies the active values in row-major order to one past the last
// ever-used cell, then pads the board to a full row. Returns the appended
// values.
func (b *Board) Refill() []int {
	var activeValues []int
	for _, c := range b.Cells() {
		if c.Active() {
			activeValues = append(activeValues, c.Value)
		}
	}
	if len(activeValues) == 0 {
		return nil
	}

	lastUsed := 0
	for i, c := range b.cells {
		if c.Value > 0 {
			lastUsed = i
		}
	}

	writeIndex := lastUsed + 1
	for _, v := range activeValues {
		if writeIndex >= len(b.cells) {
			b.cells = append(b.cells, Cell{Value: v})
		} else {
			b.cells[writeIndex] = Cell{Value: v}
		}
		writeIndex++
	}

	totalNeeded := ((writeIndex + FieldWidth - 1) / FieldWidth) * FieldWidth
	for len(b.cells) < totalNeeded {
		b.cells = append(b.cells, Cell{})
	}
	b.rowCount = totalNeeded / FieldWidth

	return activeValues
}

// FindAnyValidPair returns the first removable pair by linear scan, or
// false when none exists.
func (b *Board) FindAnyValidPair() (Position, Position, bool) {
	var active []Position
	for i, c := range b.Cells() {
		if c.Active() {
			active = append(active, PositionFromIndex(i))
		}
	}

	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			if b.CanRemovePair(active[i], active[j]) {
				return active[i], active[j], true
			}
		}
	}

	return Position{}, Position{}, false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
