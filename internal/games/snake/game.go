// Package snake implements the authoritative multi-snake tick engine: a
// W×H field with food, per-player snakes, wall/self/other collision rules
// and configurable dead-snake behavior.
package snake

import (
	"sort"

	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/protocol"
)

// DeathReason records why a snake died.
type DeathReason string

const (
	DeathWallCollision      DeathReason = "wall_collision"
	DeathSelfCollision      DeathReason = "self_collision"
	DeathOtherSnake         DeathReason = "snake_collision"
	DeathPlayerDisconnected DeathReason = "player_disconnected"
)

// Snake is one player's snake. The head is at Body[0]; BodySet mirrors Body
// for O(1) collision lookups.
type Snake struct {
	Body             []core.Point
	BodySet          map[core.Point]bool
	Direction        core.Direction
	PendingDirection *core.Direction
	DeathReason      *DeathReason
	Score            int
}

// NewSnake builds a 3-segment snake with the head at start, the tail laid
// out behind it. Toroidal arithmetic is used even in Death mode so the
// initial layout never crosses a wall.
func NewSnake(start core.Point, dir core.Direction, fieldW, fieldH int) *Snake {
	dx, dy := dir.Delta()
	// Tail extends opposite to the facing direction.
	dx, dy = -dx, -dy

	seg1 := start
	seg2 := core.Point{
		X: (start.X + dx + fieldW) % fieldW,
		Y: (start.Y + dy + fieldH) % fieldH,
	}
	seg3 := core.Point{
		X: (seg2.X + dx + fieldW) % fieldW,
		Y: (seg2.Y + dy + fieldH) % fieldH,
	}

	s := &Snake{
		Body:      []core.Point{seg1, seg2, seg3},
		BodySet:   make(map[core.Point]bool, 3),
		Direction: dir,
	}
	for _, p := range s.Body {
		s.BodySet[p] = true
	}
	return s
}

// Alive reports whether the snake is still in play.
func (s *Snake) Alive() bool {
	return s.DeathReason == nil
}

// Head returns the front of the body.
func (s *Snake) Head() core.Point {
	return s.Body[0]
}

// Tail returns the back of the body.
func (s *Snake) Tail() core.Point {
	return s.Body[len(s.Body)-1]
}

// Game is the authoritative Snake engine state. It is owned by exactly one
// session task; all methods assume external synchronization.
type Game struct {
	Snakes            map[core.PlayerID]*Snake
	FoodSet           map[core.Point]bool
	FieldWidth        int
	FieldHeight       int
	WallCollisionMode protocol.WallCollisionMode
	DeadSnakeBehavior protocol.DeadSnakeBehavior
	MaxFoodCount      int
	FoodSpawnProb     float32
	GameEndReason     *DeathReason

	// Stable order for per-tick move evaluation.
	playerOrder []core.PlayerID
}

// New creates an empty field with the given rules. Snakes are added with
// AddSnake before the first tick.
func New(settings protocol.SnakeSettings) *Game {
	maxFood := settings.MaxFoodCount
	if maxFood < 1 {
		maxFood = 1
	}
	prob := settings.FoodSpawnProbability
	if prob < 0.001 {
		prob = 0.001
	} else if prob > 1 {
		prob = 1
	}

	return &Game{
		Snakes:            make(map[core.PlayerID]*Snake),
		FoodSet:           make(map[core.Point]bool),
		FieldWidth:        settings.FieldWidth,
		FieldHeight:       settings.FieldHeight,
		WallCollisionMode: settings.WallCollisionMode,
		DeadSnakeBehavior: settings.DeadSnakeBehavior,
		MaxFoodCount:      maxFood,
		FoodSpawnProb:     prob,
	}
}

// AddSnake places a new snake on the field.
func (g *Game) AddSnake(player core.PlayerID, start core.Point, dir core.Direction) {
	g.Snakes[player] = NewSnake(start, dir, g.FieldWidth, g.FieldHeight)
	g.playerOrder = append(g.playerOrder, player)
	sort.Slice(g.playerOrder, func(i, j int) bool {
		return g.playerOrder[i] < g.playerOrder[j]
	})
}

// StartPosition computes the deterministic spawn point for player index idx
// out of total: spaced across the middle row.
func StartPosition(idx, total, width, height int) core.Point {
	var spacing int
	if total <= 2 {
		spacing = width / (total + 1)
	} else {
		spacing = width / total
	}

	x := width / 2
	if total > 1 {
		x = (idx + 1) * spacing
	}
	if x > width-1 {
		x = width - 1
	}
	return core.Point{X: x, Y: height / 2}
}

// KillSnake marks a snake dead for an external reason (disconnect). The kill
// is durable: it survives until game over regardless of later ticks.
func (g *Game) KillSnake(player core.PlayerID, reason DeathReason) {
	if s, ok := g.Snakes[player]; ok && s.Alive() {
		r := reason
		s.DeathReason = &r
		g.GameEndReason = &r
	}
}

// SetDirection buffers a direction change for the next tick. Requests
// opposite to the current direction are ignored; within one tick window the
// last valid request wins.
func (g *Game) SetDirection(player core.PlayerID, dir core.Direction) {
	if s, ok := g.Snakes[player]; ok && s.Alive() && !dir.IsOpposite(s.Direction) {
		d := dir
		s.PendingDirection = &d
	}
}

// AliveCount returns the number of snakes still in play.
func (g *Game) AliveCount() int {
	count := 0
	for _, s := range g.Snakes {
		if s.Alive() {
			count++
		}
	}
	return count
}

// IsGameOver applies the end-of-match rule: a single initial player plays
// until death, two or more until at most one remains.
func (g *Game) IsGameOver(initialPlayers int) bool {
	alive := g.AliveCount()
	if initialPlayers == 1 {
		return alive == 0
	}
	return alive <= 1
}

// Update advances the simulation one tick: food spawn, direction commits,
// then per-snake movement in stable player order.
func (g *Game) Update(rng *core.SessionRng) {
	g.trySpawnFood(rng)

	for _, s := range g.Snakes {
		if !s.Alive() {
			continue
		}
		if s.PendingDirection != nil {
			s.Direction = *s.PendingDirection
			s.PendingDirection = nil
		}
	}

	// Collision checks use aliveness as of tick start, so two snakes moving
	// head-on both die instead of the later mover slipping through a snake
	// that died moments earlier in the same tick.
	aliveAtStart := make(map[core.PlayerID]bool, len(g.Snakes))
	for id, s := range g.Snakes {
		aliveAtStart[id] = s.Alive()
	}

	for _, player := range g.playerOrder {
		s := g.Snakes[player]
		if !s.Alive() {
			continue
		}
		if reason := g.moveSnake(player, s, aliveAtStart); reason != nil {
			s.DeathReason = reason
			g.GameEndReason = reason
		}
	}
}

func (g *Game) moveSnake(player core.PlayerID, s *Snake, aliveAtStart map[core.PlayerID]bool) *DeathReason {
	nextHead, reason := g.nextHeadPosition(player, s, aliveAtStart)
	if reason != nil {
		return reason
	}

	s.Body = append([]core.Point{nextHead}, s.Body...)
	s.BodySet[nextHead] = true

	if g.FoodSet[nextHead] {
		delete(g.FoodSet, nextHead)
		s.Score++
	} else {
		tail := s.Body[len(s.Body)-1]
		s.Body = s.Body[:len(s.Body)-1]
		if tail != nextHead {
			delete(s.BodySet, tail)
		}
	}

	return nil
}

func (g *Game) nextHeadPosition(player core.PlayerID, s *Snake, aliveAtStart map[core.PlayerID]bool) (core.Point, *DeathReason) {
	head := s.Head()
	var next core.Point

	switch g.WallCollisionMode {
	case protocol.WallWrapAround:
		switch s.Direction {
		case core.DirUp:
			next = core.Point{X: head.X, Y: core.WrapDec(head.Y, g.FieldHeight)}
		case core.DirDown:
			next = core.Point{X: head.X, Y: core.WrapInc(head.Y, g.FieldHeight)}
		case core.DirLeft:
			next = core.Point{X: core.WrapDec(head.X, g.FieldWidth), Y: head.Y}
		case core.DirRight:
			next = core.Point{X: core.WrapInc(head.X, g.FieldWidth), Y: head.Y}
		}
	default: // WallDeath
		dx, dy := s.Direction.Delta()
		next = core.Point{X: head.X + dx, Y: head.Y + dy}
		if next.X < 0 || next.X >= g.FieldWidth || next.Y < 0 || next.Y >= g.FieldHeight {
			r := DeathWallCollision
			return core.Point{}, &r
		}
	}

	if s.BodySet[next] && next != s.Tail() {
		r := DeathSelfCollision
		return core.Point{}, &r
	}

	for otherID, other := range g.Snakes {
		if otherID == player {
			continue
		}
		blocks := aliveAtStart[otherID] || g.DeadSnakeBehavior == protocol.DeadSnakeStayOnField
		if blocks && other.BodySet[next] {
			r := DeathOtherSnake
			return core.Point{}, &r
		}
	}

	return next, nil
}

func (g *Game) trySpawnFood(rng *core.SessionRng) {
	if len(g.FoodSet) >= g.MaxFoodCount {
		return
	}
	if rng.Float32() >= g.FoodSpawnProb {
		return
	}

	for range 100 {
		pos := core.Point{
			X: rng.RangeInt(0, g.FieldWidth),
			Y: rng.RangeInt(0, g.FieldHeight),
		}

		if g.FoodSet[pos] {
			continue
		}

		occupied := false
		for _, s := range g.Snakes {
			blocks := s.Alive() || g.DeadSnakeBehavior == protocol.DeadSnakeStayOnField
			if blocks && s.BodySet[pos] {
				occupied = true
				break
			}
		}

		if !occupied {
			g.FoodSet[pos] = true
			return
		}
	}
}

// ToState builds the wire state record. isBot reports whether a player id
// belongs to a bot.
func (g *Game) ToState(tick uint64, tickIntervalMs int, isBot func(core.PlayerID) bool) *protocol.SnakeState {
	snakes := make([]protocol.SnakeView, 0, len(g.Snakes))
	for _, player := range g.playerOrder {
		s := g.Snakes[player]
		segments := make([]core.Point, len(s.Body))
		copy(segments, s.Body)
		snakes = append(snakes, protocol.SnakeView{
			Identity: core.PlayerIdentity{PlayerID: player, IsBot: isBot(player)},
			Segments: segments,
			Alive:    s.Alive(),
			Score:    s.Score,
		})
	}

	food := make([]core.Point, 0, len(g.FoodSet))
	for y := 0; y < g.FieldHeight; y++ {
		for x := 0; x < g.FieldWidth; x++ {
			p := core.Point{X: x, Y: y}
			if g.FoodSet[p] {
				food = append(food, p)
			}
		}
	}

	return &protocol.SnakeState{
		Tick:              tick,
		Snakes:            snakes,
		Food:              food,
		FieldWidth:        g.FieldWidth,
		FieldHeight:       g.FieldHeight,
		TickIntervalMs:    tickIntervalMs,
		WallCollisionMode: g.WallCollisionMode,
		DeadSnakeBehavior: g.DeadSnakeBehavior,
	}
}

// PlayerOrder exposes the stable evaluation order.
func (g *Game) PlayerOrder() []core.PlayerID {
	order := make([]core.PlayerID, len(g.playerOrder))
	copy(order, g.playerOrder)
	return order
}
