package snake

import (
	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/protocol"
)

// CalculateBotMove picks the next direction for a bot snake, or nil when the
// current heading is already the best option. The efficient bot heads for
// the nearest food while refusing moves that die on the next tick.
func CalculateBotMove(kind protocol.SnakeBotKind, player core.PlayerID, g *Game) *core.Direction {
	s, ok := g.Snakes[player]
	if !ok || !s.Alive() {
		return nil
	}

	candidates := []core.Direction{core.DirUp, core.DirDown, core.DirLeft, core.DirRight}

	var target *core.Point
	bestDist := -1
	for food := range g.FoodSet {
		d := g.distance(s.Head(), food)
		if bestDist < 0 || d < bestDist {
			bestDist = d
			f := food
			target = &f
		}
	}

	var best *core.Direction
	bestScore := -1 << 30
	for _, dir := range candidates {
		if dir.IsOpposite(s.Direction) {
			continue
		}
		next, safe := g.probeMove(player, s, dir)
		if !safe {
			continue
		}

		score := 0
		if target != nil {
			score = -g.distance(next, *target)
		}
		// Prefer keeping the current heading on ties.
		if dir == s.Direction {
			score++
		}
		if score > bestScore {
			bestScore = score
			d := dir
			best = &d
		}
	}

	if best == nil || *best == s.Direction {
		return nil
	}
	return best
}

// probeMove computes where dir would put the head and whether the move
// survives, without mutating the game.
func (g *Game) probeMove(player core.PlayerID, s *Snake, dir core.Direction) (core.Point, bool) {
	head := s.Head()
	var next core.Point

	switch g.WallCollisionMode {
	case protocol.WallWrapAround:
		switch dir {
		case core.DirUp:
			next = core.Point{X: head.X, Y: core.WrapDec(head.Y, g.FieldHeight)}
		case core.DirDown:
			next = core.Point{X: head.X, Y: core.WrapInc(head.Y, g.FieldHeight)}
		case core.DirLeft:
			next = core.Point{X: core.WrapDec(head.X, g.FieldWidth), Y: head.Y}
		case core.DirRight:
			next = core.Point{X: core.WrapInc(head.X, g.FieldWidth), Y: head.Y}
		}
	default:
		dx, dy := dir.Delta()
		next = core.Point{X: head.X + dx, Y: head.Y + dy}
		if next.X < 0 || next.X >= g.FieldWidth || next.Y < 0 || next.Y >= g.FieldHeight {
			return core.Point{}, false
		}
	}

	if s.BodySet[next] && next != s.Tail() {
		return core.Point{}, false
	}
	for otherID, other := range g.Snakes {
		if otherID == player {
			continue
		}
		blocks := other.Alive() || g.DeadSnakeBehavior == protocol.DeadSnakeStayOnField
		if blocks && other.BodySet[next] {
			return core.Point{}, false
		}
	}

	return next, true
}

// distance is Manhattan distance, toroidal when walls wrap.
func (g *Game) distance(a, b core.Point) int {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	if g.WallCollisionMode == protocol.WallWrapAround {
		if wrapped := g.FieldWidth - dx; wrapped < dx {
			dx = wrapped
		}
		if wrapped := g.FieldHeight - dy; wrapped < dy {
			dy = wrapped
		}
	}
	return dx + dy
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
