package numbers

import (
	"fmt"

	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/protocol"
)

const (
	// InitialRefills is the refill budget for a new game.
	InitialRefills = 4
	// InitialHintsLimited is the hint budget in Limited mode.
	InitialHintsLimited = 3
	// HintBonusPerRefill is granted on each refill in Limited mode.
	HintBonusPerRefill = 2
)

// Status is the game progression state.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusWon        Status = "won"
	StatusLost       Status = "lost"
)

// Hint is a tagged hint result: a removable pair, a refill suggestion, or
// the no-moves verdict that loses the game.
type Hint struct {
	Pair          *[2]Position
	SuggestRefill bool
	NoMoves       bool
}

// Event is one board transition produced by a command; events accumulate
// until drained into a state broadcast.
type Event struct {
	PairRemoved *[2]Position
	RowsDeleted []int
	Refill      []int
	HintShown   *Hint
}

// Game is the authoritative Numbers-Match engine state.
type Game struct {
	board            *Board
	hintMode         protocol.HintMode
	refillsRemaining int
	hintsRemaining   *int
	hintsUsed        int
	pairsRemoved     int
	refillsUsed      int
	status           Status
	currentHint      *Hint
	pendingEvents    []Event
}

// New creates a game with a freshly generated board.
func New(rng *core.SessionRng, hintMode protocol.HintMode) *Game {
	var hints *int
	switch hintMode {
	case protocol.HintLimited:
		h := InitialHintsLimited
		hints = &h
	case protocol.HintDisabled:
		h := 0
		hints = &h
	}

	return &Game{
		board:            NewBoard(rng),
		hintMode:         hintMode,
		refillsRemaining: InitialRefills,
		hintsRemaining:   hints,
		status:           StatusInProgress,
	}
}

// Board exposes the underlying board, mainly for tests.
func (g *Game) Board() *Board {
	return g.board
}

// Status returns the progression state.
func (g *Game) Status() Status {
	return g.status
}

// PairsRemoved returns how many pairs were removed so far.
func (g *Game) PairsRemoved() int { return g.pairsRemoved }

// RefillsUsed returns how many refills were spent.
func (g *Game) RefillsUsed() int { return g.refillsUsed }

// HintsUsed returns how many hints were requested.
func (g *Game) HintsUsed() int { return g.hintsUsed }

// RemovePair removes two cells if the pair rule allows it, then collapses
// any fully-removed rows and re-checks the end conditions.
func (g *Game) RemovePair(p1, p2 Position) error {
	if g.status != StatusInProgress {
		return fmt.Errorf("game is not in progress")
	}
	if !g.board.CanRemovePair(p1, p2) {
		return fmt.Errorf("cannot remove this pair")
	}

	g.board.Get(p1).Removed = true
	g.board.Get(p2).Removed = true
	g.pairsRemoved++
	g.currentHint = nil

	g.pendingEvents = append(g.pendingEvents, Event{PairRemoved: &[2]Position{p1, p2}})

	if removed := g.board.RemoveEmptyRows(); len(removed) > 0 {
		g.pendingEvents = append(g.pendingEvents, Event{RowsDeleted: removed})
	}

	g.checkGameOver()
	return nil
}

// Refill extends the board from the refill budget. In Limited hint mode
// each refill grants bonus hints.
func (g *Game) Refill() error {
	if g.status != StatusInProgress {
		return fmt.Errorf("game is not in progress")
	}
	if g.refillsRemaining == 0 {
		return fmt.Errorf("no refills remaining")
	}

	added := g.board.Refill()
	g.refillsRemaining--
	g.refillsUsed++
	g.currentHint = nil

	if g.hintMode == protocol.HintLimited && g.hintsRemaining != nil {
		*g.hintsRemaining += HintBonusPerRefill
	}

	g.pendingEvents = append(g.pendingEvents, Event{Refill: added})

	g.checkGameOver()
	return nil
}

// RequestHint finds the first removable pair, suggests a refill when none
// exists but refills remain, or declares no moves — which loses the game.
func (g *Game) RequestHint() (Hint, error) {
	if g.status != StatusInProgress {
		return Hint{}, fmt.Errorf("game is not in progress")
	}
	if g.hintMode == protocol.HintDisabled {
		return Hint{}, fmt.Errorf("hints are disabled")
	}
	if g.hintsRemaining != nil && *g.hintsRemaining == 0 {
		return Hint{}, fmt.Errorf("no hints remaining")
	}

	hint := g.calculateHint()

	if g.hintMode == protocol.HintLimited && g.hintsRemaining != nil {
		*g.hintsRemaining--
	}
	g.hintsUsed++

	h := hint
	g.currentHint = &h
	g.pendingEvents = append(g.pendingEvents, Event{HintShown: &h})

	if hint.NoMoves {
		g.status = StatusLost
	}

	return hint, nil
}

func (g *Game) calculateHint() Hint {
	if p1, p2, ok := g.board.FindAnyValidPair(); ok {
		return Hint{Pair: &[2]Position{p1, p2}}
	}
	if g.refillsRemaining > 0 {
		return Hint{SuggestRefill: true}
	}
	return Hint{NoMoves: true}
}

func (g *Game) checkGameOver() {
	if g.board.ActiveCellCount() == 0 {
		g.status = StatusWon
		return
	}
	if _, _, ok := g.board.FindAnyValidPair(); ok {
		return
	}
	if g.refillsRemaining > 0 {
		return
	}
	g.status = StatusLost
}

// TakeEvents drains the pending event list.
func (g *Game) TakeEvents() []Event {
	events := g.pendingEvents
	g.pendingEvents = nil
	return events
}

// ToState builds the wire state record, draining pending events into it.
func (g *Game) ToState() *protocol.NumbersState {
	cells := make([]protocol.NumbersCell, 0, len(g.board.Cells()))
	for _, c := range g.board.Cells() {
		cells = append(cells, protocol.NumbersCell{Value: c.Value, Removed: c.Removed})
	}

	events := make([]protocol.NumbersEvent, 0, len(g.pendingEvents))
	for _, e := range g.TakeEvents() {
		events = append(events, eventToWire(e))
	}

	var hintsRemaining *int
	if g.hintsRemaining != nil {
		h := *g.hintsRemaining
		hintsRemaining = &h
	}

	var currentHint *protocol.NumbersHint
	if g.currentHint != nil {
		h := hintToWire(*g.currentHint)
		currentHint = &h
	}

	return &protocol.NumbersState{
		Cells:            cells,
		RowCount:         g.board.RowCount(),
		RefillsRemaining: g.refillsRemaining,
		HintsRemaining:   hintsRemaining,
		HintMode:         g.hintMode,
		Status:           string(g.status),
		Events:           events,
		CurrentHint:      currentHint,
	}
}

func eventToWire(e Event) protocol.NumbersEvent {
	switch {
	case e.PairRemoved != nil:
		return protocol.NumbersEvent{PairRemoved: &protocol.RemovePairCommand{
			FirstIndex:  e.PairRemoved[0].Index(),
			SecondIndex: e.PairRemoved[1].Index(),
		}}
	case e.HintShown != nil:
		h := hintToWire(*e.HintShown)
		return protocol.NumbersEvent{HintShown: &h}
	case e.Refill != nil:
		return protocol.NumbersEvent{Refill: e.Refill}
	default:
		return protocol.NumbersEvent{RowsDeleted: e.RowsDeleted}
	}
}

func hintToWire(h Hint) protocol.NumbersHint {
	switch {
	case h.Pair != nil:
		return protocol.NumbersHint{Pair: &protocol.RemovePairCommand{
			FirstIndex:  h.Pair[0].Index(),
			SecondIndex: h.Pair[1].Index(),
		}}
	case h.SuggestRefill:
		return protocol.NumbersHint{SuggestRefill: &struct{}{}}
	default:
		return protocol.NumbersHint{NoMoves: &struct{}{}}
	}
}
