// Package stackattack implements the cooperative falling-box engine: cranes
// travel across the top of a fixed field dropping boxes, workers push boxes
// and dodge them, and completed rows clear for points while the difficulty
// ramp tightens the crane schedule.
package stackattack

// Box is one crate on the field. Y grows downward; the ground is the last
// row and the ceiling is row 0.
type Box struct {
	ID        int
	X, Y      int
	Falling   bool
	PatternID int
}

// LandedBox reports a box that settled this tick.
type LandedBox struct {
	BoxID int
	X, Y  int
}

// Field tracks every box on the grid. At most one box occupies a cell.
type Field struct {
	width  int
	height int
	boxes  map[int]*Box
	byCell map[[2]int]int // (x, y) -> box id
}

// NewField creates an empty field.
func NewField(width, height int) *Field {
	return &Field{
		width:  width,
		height: height,
		boxes:  make(map[int]*Box),
		byCell: make(map[[2]int]int),
	}
}

// Width returns the field width.
func (f *Field) Width() int { return f.width }

// Height returns the field height.
func (f *Field) Height() int { return f.height }

// Boxes returns all boxes, in unspecified order.
func (f *Field) Boxes() []*Box {
	out := make([]*Box, 0, len(f.boxes))
	for _, b := range f.boxes {
		out = append(out, b)
	}
	return out
}

// BoxIDAt returns the id of the box occupying (x, y), if any.
func (f *Field) BoxIDAt(x, y int) (int, bool) {
	id, ok := f.byCell[[2]int{x, y}]
	return id, ok
}

// HasBoxAt reports cell occupancy.
func (f *Field) HasBoxAt(x, y int) bool {
	_, ok := f.byCell[[2]int{x, y}]
	return ok
}

// SpawnBox drops a new falling box in at the ceiling. If the entry cell is
// already taken the box is discarded; the ceiling check will usually end
// the game first.
func (f *Field) SpawnBox(id, x, patternID int) bool {
	if x < 0 || x >= f.width || f.HasBoxAt(x, 0) {
		return false
	}
	b := &Box{ID: id, X: x, Y: 0, Falling: true, PatternID: patternID}
	f.boxes[id] = b
	f.byCell[[2]int{x, 0}] = id
	return true
}

// UpdateFallingBoxes advances every falling box one cell toward its support
// and returns the boxes that landed this tick. Boxes scan bottom-up so a
// stack falls as one unit.
func (f *Field) UpdateFallingBoxes() []LandedBox {
	var landed []LandedBox

	for y := f.height - 1; y >= 0; y-- {
		for x := 0; x < f.width; x++ {
			id, ok := f.byCell[[2]int{x, y}]
			if !ok {
				continue
			}
			b := f.boxes[id]
			if !b.Falling {
				continue
			}

			if b.Y == f.height-1 || f.HasBoxAt(b.X, b.Y+1) {
				below, supported := f.byCell[[2]int{b.X, b.Y + 1}]
				if b.Y == f.height-1 || (supported && !f.boxes[below].Falling) {
					b.Falling = false
					landed = append(landed, LandedBox{BoxID: b.ID, X: b.X, Y: b.Y})
				}
				continue
			}

			delete(f.byCell, [2]int{b.X, b.Y})
			b.Y++
			f.byCell[[2]int{b.X, b.Y}] = b.ID
		}
	}

	return landed
}

// TryPushBox pushes the box at (x, y) one cell in dx direction. Fails when
// the destination is occupied, out of bounds, or the box is falling.
func (f *Field) TryPushBox(x, y, dx int) (int, bool) {
	id, ok := f.byCell[[2]int{x, y}]
	if !ok {
		return 0, false
	}
	b := f.boxes[id]
	if b.Falling {
		return 0, false
	}

	nx := x + dx
	if nx < 0 || nx >= f.width || f.HasBoxAt(nx, y) {
		return 0, false
	}

	delete(f.byCell, [2]int{b.X, b.Y})
	b.X = nx
	f.byCell[[2]int{b.X, b.Y}] = b.ID

	// A pushed box may lose its support.
	if b.Y < f.height-1 && !f.HasBoxAt(b.X, b.Y+1) {
		b.Falling = true
	}

	return id, true
}

// HasBoxAtCeiling reports whether a settled box sits in the top row.
func (f *Field) HasBoxAtCeiling() bool {
	for x := 0; x < f.width; x++ {
		if id, ok := f.byCell[[2]int{x, 0}]; ok && !f.boxes[id].Falling {
			return true
		}
	}
	return false
}

// CheckAndClearLines removes every full row of settled boxes and releases
// the boxes above into gravity. Returns the cleared row indices.
func (f *Field) CheckAndClearLines() []int {
	var cleared []int

	for y := 0; y < f.height; y++ {
		full := true
		for x := 0; x < f.width; x++ {
			id, ok := f.byCell[[2]int{x, y}]
			if !ok || f.boxes[id].Falling {
				full = false
				break
			}
		}
		if !full {
			continue
		}

		cleared = append(cleared, y)
		for x := 0; x < f.width; x++ {
			id := f.byCell[[2]int{x, y}]
			delete(f.byCell, [2]int{x, y})
			delete(f.boxes, id)
		}

		// Everything stacked above the cleared row falls again.
		for _, b := range f.boxes {
			if b.Y < y {
				b.Falling = true
			}
		}
	}

	return cleared
}
