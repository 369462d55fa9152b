package replay

import (
	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/protocol"
)

// Player iterates a replay's action log, either tick by tick for
// tick-driven games or action by action for turn-based ones.
type Player struct {
	replay ReplayV1
	cursor int
}

// NewPlayer wraps an artifact for iteration.
func NewPlayer(replay ReplayV1) *Player {
	return &Player{replay: replay}
}

// Game returns the recorded game kind.
func (p *Player) Game() protocol.GameKind { return p.replay.Game }

// Seed returns the recorded session seed.
func (p *Player) Seed() uint64 { return p.replay.Seed }

// Settings returns the recorded lobby settings.
func (p *Player) Settings() protocol.LobbySettings { return p.replay.LobbySettings }

// Players returns the recorded identity list; PlayerIndex values refer to
// it.
func (p *Player) Players() []core.PlayerIdentity { return p.replay.Players }

// EngineVersion returns the engine build that recorded the artifact.
func (p *Player) EngineVersion() string { return p.replay.EngineVersion }

// TotalActions returns the size of the action log.
func (p *Player) TotalActions() int { return len(p.replay.Actions) }

// TotalTicks returns the highest recorded tick plus one, the nominal
// playback length for tick-driven games.
func (p *Player) TotalTicks() uint64 {
	if len(p.replay.Actions) == 0 {
		return 0
	}
	last := p.replay.Actions[len(p.replay.Actions)-1].Tick
	if last < 0 {
		return 0
	}
	return uint64(last) + 1
}

// ActionsForTick consumes and returns, in insertion order, all actions
// recorded for the given tick. Ticks must be requested in ascending order.
func (p *Player) ActionsForTick(tick int64) []PlayerAction {
	var actions []PlayerAction
	for p.cursor < len(p.replay.Actions) && p.replay.Actions[p.cursor].Tick <= tick {
		if p.replay.Actions[p.cursor].Tick == tick {
			actions = append(actions, p.replay.Actions[p.cursor])
		}
		p.cursor++
	}
	return actions
}

// NextAction consumes and returns the next action, for turn-based playback.
func (p *Player) NextAction() *PlayerAction {
	if p.cursor >= len(p.replay.Actions) {
		return nil
	}
	action := p.replay.Actions[p.cursor]
	p.cursor++
	return &action
}

// PeekAction returns the next action without consuming it.
func (p *Player) PeekAction() *PlayerAction {
	if p.cursor >= len(p.replay.Actions) {
		return nil
	}
	action := p.replay.Actions[p.cursor]
	return &action
}

// IsFinished reports whether the whole log was consumed.
func (p *Player) IsFinished() bool {
	return p.cursor >= len(p.replay.Actions)
}

// Rewind resets iteration to the start.
func (p *Player) Rewind() {
	p.cursor = 0
}
