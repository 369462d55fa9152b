package stackattack

import (
	"sort"

	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/protocol"
)

// Field and pacing constants. The field is fixed; lobbies carry no
// Stack-Attack settings.
const (
	FieldWidth     = 12
	FieldHeight    = 10
	TickIntervalMs = 200

	PointsPerLine            = 100
	PointsPerMultiLineBonus  = 50
	InitialCraneSpawnTicks   = 15
	InitialMaxCranes         = 1
	TicksPerDifficultyLevel  = 150
	MinCraneSpawnTicks       = 4
	MaxSimultaneousCranesCap = 5
	PatternCount             = 8
)

// GameOverReason records why the game ended.
type GameOverReason string

const (
	ReasonBoxesReachedCeiling GameOverReason = "boxes_reached_ceiling"
	ReasonWorkerCrushed       GameOverReason = "worker_crushed"
	ReasonPlayerDisconnected  GameOverReason = "player_disconnected"
)

// Event is one observable transition emitted during a tick or command.
type Event struct {
	CraneSpawned  *Crane
	BoxDropped    *Box
	BoxLanded     *LandedBox
	BoxPushed     *struct{ BoxID, FromX, ToX int }
	WorkerJumped  core.PlayerID
	WorkerLanded  *Worker
	WorkerCrushed core.PlayerID
	LineCleared   *struct{ Y, Points int }
}

// Game is the authoritative Stack-Attack engine state.
type Game struct {
	Field           *Field
	Workers         map[core.PlayerID]*Worker
	Cranes          []*Crane
	Score           int
	LinesCleared    int
	BoxesPushed     int
	GameOver        bool
	GameOverReason  *GameOverReason
	DifficultyLevel int

	workerOrder         []core.PlayerID
	nextBoxID           int
	nextCraneID         int
	ticksSinceLastCrane int
	totalTicks          uint64
}

// New spawns one worker per player, spaced across the field.
func New(players []core.PlayerID) *Game {
	sorted := make([]core.PlayerID, len(players))
	copy(sorted, players)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	workers := make(map[core.PlayerID]*Worker, len(sorted))
	for idx, player := range sorted {
		x := spawnX(idx, len(sorted), FieldWidth)
		workers[player] = NewWorker(player, core.Point{X: x, Y: 0}, idx)
	}

	return &Game{
		Field:           NewField(FieldWidth, FieldHeight),
		Workers:         workers,
		workerOrder:     sorted,
		DifficultyLevel: 1,
		nextBoxID:       1,
		nextCraneID:     1,
	}
}

func spawnX(index, total, fieldWidth int) int {
	segment := float64(fieldWidth) / float64(total+1)
	x := int(segment*float64(index+1) + 0.5)
	if x > fieldWidth-1 {
		x = fieldWidth - 1
	}
	return x
}

// Update advances the simulation one tick and returns the events it
// produced.
func (g *Game) Update(rng *core.SessionRng) []Event {
	if g.GameOver {
		return nil
	}

	var events []Event

	g.totalTicks++
	g.DifficultyLevel = 1 + int(g.totalTicks)/TicksPerDifficultyLevel

	if e := g.maybeSpawnCrane(rng); e != nil {
		events = append(events, *e)
	}

	events = append(events, g.updateCranes()...)

	for _, landed := range g.Field.UpdateFallingBoxes() {
		l := landed
		events = append(events, Event{BoxLanded: &l})
	}

	for _, player := range g.workerOrder {
		w := g.Workers[player]
		if !w.Alive {
			continue
		}
		if w.ApplyGravity(g.Field) {
			events = append(events, Event{WorkerLanded: w})
		}
	}

	events = append(events, g.checkWorkersCrushed()...)

	if g.Field.HasBoxAtCeiling() {
		g.GameOver = true
		r := ReasonBoxesReachedCeiling
		g.GameOverReason = &r
	}

	events = append(events, g.checkAndClearLines()...)

	return events
}

// HandleMove walks or pushes for one player.
func (g *Game) HandleMove(player core.PlayerID, dir core.Direction) []Event {
	w, ok := g.Workers[player]
	if !ok || !w.Alive || g.GameOver {
		return nil
	}

	dx := 0
	switch dir {
	case core.DirLeft:
		dx = -1
	case core.DirRight:
		dx = 1
	default:
		return nil
	}

	fromX := w.Position.X + dx
	result, boxID := w.TryMove(dx, g.Field)
	if result == MovePushedBox {
		g.BoxesPushed++
		return []Event{{BoxPushed: &struct{ BoxID, FromX, ToX int }{boxID, fromX, fromX + dx}}}
	}
	return nil
}

// HandleJump starts a jump for one player.
func (g *Game) HandleJump(player core.PlayerID) []Event {
	w, ok := g.Workers[player]
	if !ok || !w.Alive || g.GameOver {
		return nil
	}
	if w.Jump(g.Field) {
		return []Event{{WorkerJumped: player}}
	}
	return nil
}

// HandlePlayerDisconnect ends the cooperative game.
func (g *Game) HandlePlayerDisconnect() {
	if g.GameOver {
		return
	}
	g.GameOver = true
	r := ReasonPlayerDisconnected
	g.GameOverReason = &r
}

// IsGameOver reports whether the game ended.
func (g *Game) IsGameOver() bool {
	return g.GameOver
}

func (g *Game) craneSpawnInterval() int {
	interval := InitialCraneSpawnTicks - (g.DifficultyLevel-1)*2
	if interval < MinCraneSpawnTicks {
		interval = MinCraneSpawnTicks
	}
	return interval
}

func (g *Game) maxCranes() int {
	limit := InitialMaxCranes + (g.DifficultyLevel-1)/2
	if limit > MaxSimultaneousCranesCap {
		limit = MaxSimultaneousCranesCap
	}
	return limit
}

func (g *Game) maybeSpawnCrane(rng *core.SessionRng) *Event {
	g.ticksSinceLastCrane++

	if g.ticksSinceLastCrane < g.craneSpawnInterval() {
		return nil
	}
	if len(g.Cranes) >= g.maxCranes() {
		return nil
	}

	g.ticksSinceLastCrane = 0

	targetX := rng.RangeInt(0, g.Field.Width())
	fromLeft := rng.Bool()
	startX := g.Field.Width()
	if fromLeft {
		startX = -1
	}
	patternID := rng.RangeInt(0, PatternCount)

	crane := NewCrane(g.nextCraneID, startX, targetX, patternID, g.Field.Width())
	g.nextCraneID++
	g.Cranes = append(g.Cranes, crane)

	return &Event{CraneSpawned: crane}
}

func (g *Game) updateCranes() []Event {
	var events []Event
	var finished []int

	for _, crane := range g.Cranes {
		switch crane.Update() {
		case CraneDropBox:
			id := g.nextBoxID
			g.nextBoxID++
			if g.Field.SpawnBox(id, crane.X, crane.BoxPatternID) {
				box := g.Field.boxes[id]
				events = append(events, Event{BoxDropped: box})
			}
		case CraneFinished:
			finished = append(finished, crane.ID)
		}
	}

	if len(finished) > 0 {
		kept := g.Cranes[:0]
		for _, c := range g.Cranes {
			done := false
			for _, id := range finished {
				if c.ID == id {
					done = true
					break
				}
			}
			if !done {
				kept = append(kept, c)
			}
		}
		g.Cranes = kept
	}

	return events
}

func (g *Game) checkWorkersCrushed() []Event {
	var events []Event

	for _, player := range g.workerOrder {
		w := g.Workers[player]
		if !w.Alive {
			continue
		}
		_, feet := g.Field.BoxIDAt(w.Position.X, w.Position.Y)
		_, head := g.Field.BoxIDAt(w.Position.X, w.HeadY())
		if feet || head {
			w.Alive = false
			events = append(events, Event{WorkerCrushed: player})
		}
	}

	if len(events) > 0 {
		allDead := true
		for _, w := range g.Workers {
			if w.Alive {
				allDead = false
				break
			}
		}
		if allDead {
			g.GameOver = true
			r := ReasonWorkerCrushed
			g.GameOverReason = &r
		}
	}

	return events
}

func (g *Game) checkAndClearLines() []Event {
	cleared := g.Field.CheckAndClearLines()
	if len(cleared) == 0 {
		return nil
	}

	lineCount := len(cleared)
	points := lineCount * PointsPerLine
	if lineCount > 1 {
		points += (lineCount - 1) * PointsPerMultiLineBonus
	}
	g.Score += points
	g.LinesCleared += lineCount

	perLine := PointsPerLine
	if lineCount > 1 {
		perLine += PointsPerMultiLineBonus
	}

	events := make([]Event, 0, lineCount)
	for _, y := range cleared {
		events = append(events, Event{LineCleared: &struct{ Y, Points int }{y, perLine}})
	}
	return events
}

// ToState builds the wire state record.
func (g *Game) ToState(tick uint64, isBot func(core.PlayerID) bool) *protocol.StackAttackState {
	workers := make([]protocol.StackWorkerView, 0, len(g.workerOrder))
	for _, player := range g.workerOrder {
		w := g.Workers[player]
		workers = append(workers, protocol.StackWorkerView{
			Identity: core.PlayerIdentity{PlayerID: player, IsBot: isBot(player)},
			Position: w.Position,
			Alive:    w.Alive,
		})
	}

	boxes := g.Field.Boxes()
	sort.Slice(boxes, func(i, j int) bool { return boxes[i].ID < boxes[j].ID })
	boxViews := make([]protocol.StackBoxView, 0, len(boxes))
	for _, b := range boxes {
		boxViews = append(boxViews, protocol.StackBoxView{
			ID:      b.ID,
			Pos:     core.Point{X: b.X, Y: b.Y},
			Falling: b.Falling,
		})
	}

	cranes := make([]protocol.StackCraneView, 0, len(g.Cranes))
	for _, c := range g.Cranes {
		cranes = append(cranes, protocol.StackCraneView{
			ID: c.ID, X: c.X, TargetX: c.TargetX, Dropped: c.Dropped,
		})
	}

	status := "in_progress"
	if g.GameOver {
		status = "game_over"
	}

	return &protocol.StackAttackState{
		Tick:            tick,
		FieldWidth:      g.Field.Width(),
		FieldHeight:     g.Field.Height(),
		TickIntervalMs:  TickIntervalMs,
		Workers:         workers,
		Boxes:           boxViews,
		Cranes:          cranes,
		Score:           g.Score,
		LinesCleared:    g.LinesCleared,
		DifficultyLevel: g.DifficultyLevel,
		Status:          status,
	}
}
