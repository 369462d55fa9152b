// Package replay implements the deterministic action-log format for
// finished games: a recorder that captures every accepted player command, a
// player that iterates the log back tick by tick, and the binary file codec.
// Everything here is pure; bytes go out through the broadcaster and come
// back in through uploads.
package replay

import (
	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/protocol"
)

// Version is the current replay format version.
const Version = 1

// FileExtension is the suggested extension for saved artifacts.
const FileExtension = "arcadereplay"

// PlayerAction is one recorded input: either an in-game command or the
// player's disconnect. PlayerIndex refers to the replay's Players list.
type PlayerAction struct {
	Tick         int64                   `json:"tick"`
	PlayerIndex  int                     `json:"player_index"`
	Command      *protocol.InGameCommand `json:"command,omitempty"`
	Disconnected bool                    `json:"disconnected,omitempty"`
}

// ReplayV1 is the complete artifact of a finished session. Seed, settings
// and the action log uniquely determine the engine run.
type ReplayV1 struct {
	EngineVersion        string                 `json:"engine_version"`
	Game                 protocol.GameKind      `json:"game"`
	Seed                 uint64                 `json:"seed"`
	LobbySettings        protocol.LobbySettings `json:"lobby_settings"`
	Players              []core.PlayerIdentity  `json:"players"`
	GameStartedTimestamp int64                  `json:"game_started_timestamp_ms"`
	Actions              []PlayerAction         `json:"actions"`
}
