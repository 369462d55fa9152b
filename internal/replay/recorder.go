package replay

import (
	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/protocol"
)

// Recorder accumulates the action log of one live session. It is attached
// at session creation and finalized at game over. Within one tick, actions
// keep their insertion order.
type Recorder struct {
	sessionID core.SessionID
	game      protocol.GameKind
	seed      uint64
	settings  protocol.LobbySettings
	players   []core.PlayerIdentity
	startedMs int64
	actions   []PlayerAction
}

// NewRecorder starts a log for a session.
func NewRecorder(
	sessionID core.SessionID,
	game protocol.GameKind,
	seed uint64,
	settings protocol.LobbySettings,
	players []core.PlayerIdentity,
	startedMs int64,
) *Recorder {
	return &Recorder{
		sessionID: sessionID,
		game:      game,
		seed:      seed,
		settings:  settings,
		players:   players,
		startedMs: startedMs,
	}
}

// FindPlayerIndex resolves a player id to its index in the identity list.
func (r *Recorder) FindPlayerIndex(player core.PlayerID) (int, bool) {
	for i, p := range r.players {
		if p.PlayerID == player {
			return i, true
		}
	}
	return 0, false
}

// RecordCommand appends an accepted in-game command.
func (r *Recorder) RecordCommand(tick int64, playerIndex int, cmd protocol.InGameCommand) {
	c := cmd
	r.actions = append(r.actions, PlayerAction{
		Tick:        tick,
		PlayerIndex: playerIndex,
		Command:     &c,
	})
}

// RecordDisconnect appends a player's disconnect.
func (r *Recorder) RecordDisconnect(tick int64, playerIndex int) {
	r.actions = append(r.actions, PlayerAction{
		Tick:         tick,
		PlayerIndex:  playerIndex,
		Disconnected: true,
	})
}

// ActionsCount returns how many actions were recorded so far.
func (r *Recorder) ActionsCount() int {
	return len(r.actions)
}

// Finalize assembles the artifact.
func (r *Recorder) Finalize() ReplayV1 {
	actions := make([]PlayerAction, len(r.actions))
	copy(actions, r.actions)

	players := make([]core.PlayerIdentity, len(r.players))
	copy(players, r.players)

	return ReplayV1{
		EngineVersion:        core.EngineVersion,
		Game:                 r.game,
		Seed:                 r.seed,
		LobbySettings:        r.settings,
		Players:              players,
		GameStartedTimestamp: r.startedMs,
		Actions:              actions,
	}
}
