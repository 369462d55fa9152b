package stackattack

import "github.com/vovakirdan/arcade-online/internal/core"

// MoveResult describes the outcome of a worker move.
type MoveResult int

const (
	MoveBlocked MoveResult = iota
	MoveWalked
	MovePushedBox
)

// Worker is one player's character: two cells tall, feet at Position.
type Worker struct {
	PlayerID core.PlayerID
	Position core.Point
	Alive    bool
	JumpRise int // cells of upward motion still owed
	Index    int
}

// NewWorker spawns a worker at the ceiling; gravity drops it to the ground
// over the first ticks.
func NewWorker(player core.PlayerID, pos core.Point, index int) *Worker {
	return &Worker{PlayerID: player, Position: pos, Alive: true, Index: index}
}

// HeadY is the row the worker's head occupies.
func (w *Worker) HeadY() int {
	return w.Position.Y - 1
}

// onGround reports whether the worker stands on the floor or a box.
func (w *Worker) onGround(f *Field) bool {
	return w.Position.Y >= f.Height()-1 || f.HasBoxAt(w.Position.X, w.Position.Y+1)
}

// TryMove walks one cell horizontally. A single settled box in the way is
// pushed if its far side is free, with the worker stepping into the vacated
// cell. Returns the pushed box id with MovePushedBox.
func (w *Worker) TryMove(dx int, f *Field) (MoveResult, int) {
	nx := w.Position.X + dx
	if nx < 0 || nx >= f.Width() {
		return MoveBlocked, 0
	}

	if f.HasBoxAt(nx, w.Position.Y) {
		id, ok := f.TryPushBox(nx, w.Position.Y, dx)
		if !ok {
			return MoveBlocked, 0
		}
		w.Position.X = nx
		return MovePushedBox, id
	}

	// The head cell must be free too.
	if w.Position.Y > 0 && f.HasBoxAt(nx, w.Position.Y-1) {
		return MoveBlocked, 0
	}

	w.Position.X = nx
	return MoveWalked, 0
}

// Jump starts a two-cell rise when the worker is supported and not already
// rising.
func (w *Worker) Jump(f *Field) bool {
	if !w.onGround(f) || w.JumpRise > 0 {
		return false
	}
	w.JumpRise = 2
	return true
}

// ApplyGravity advances the vertical motion one cell: rising while a jump
// is owed, falling otherwise. Returns true when the worker lands this tick.
func (w *Worker) ApplyGravity(f *Field) bool {
	if w.JumpRise > 0 {
		ny := w.Position.Y - 1
		blocked := ny < 1 ||
			f.HasBoxAt(w.Position.X, ny) ||
			f.HasBoxAt(w.Position.X, ny-1)
		if blocked {
			w.JumpRise = 0
		} else {
			w.Position.Y = ny
			w.JumpRise--
		}
		return false
	}

	if w.onGround(f) {
		return false
	}

	w.Position.Y++
	return w.onGround(f)
}
