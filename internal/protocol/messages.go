package protocol

import "github.com/vovakirdan/arcade-online/internal/core"

// ErrorCode classifies server errors for the client.
type ErrorCode string

const (
	ErrUnspecified     ErrorCode = "unspecified"
	ErrVersionMismatch ErrorCode = "version_mismatch"
	ErrNotConnected    ErrorCode = "not_connected"
)

// ConnectRequest is the first message of every connection.
type ConnectRequest struct {
	ClientID core.ClientID `json:"client_id"`
}

// CreateLobbyRequest creates a lobby with the caller as host.
type CreateLobbyRequest struct {
	Name       string        `json:"name"`
	MaxPlayers int           `json:"max_players"`
	Settings   LobbySettings `json:"settings"`
}

// JoinLobbyRequest joins an existing lobby.
type JoinLobbyRequest struct {
	LobbyID    core.LobbyID `json:"lobby_id"`
	AsObserver bool         `json:"as_observer"`
}

// MarkReadyRequest toggles the caller's readiness.
type MarkReadyRequest struct {
	Ready bool `json:"ready"`
}

// AddBotRequest adds a bot to the caller's lobby. Host only.
type AddBotRequest struct {
	BotKind BotKind `json:"bot_kind"`
}

// KickFromLobbyRequest removes a human or bot from the lobby. Host only.
type KickFromLobbyRequest struct {
	TargetID core.PlayerID `json:"target_id"`
}

// MakePlayerObserverRequest demotes a player to observer. Host only.
type MakePlayerObserverRequest struct {
	TargetID core.PlayerID `json:"target_id"`
}

// PingRequest measures round-trip time; both fields are echoed verbatim.
type PingRequest struct {
	PingID            uint64 `json:"ping_id"`
	ClientTimestampMs int64  `json:"client_timestamp_ms"`
}

// ChatRequest carries a chat line.
type ChatRequest struct {
	Message string `json:"message"`
}

// CreateReplayRequest opens a replay session from an uploaded artifact.
type CreateReplayRequest struct {
	ReplayBytes     []byte `json:"replay_bytes"`
	HostOnlyControl bool   `json:"host_only_control"`
}

// ClientMessage is the inbound envelope. Version is checked on every
// request; exactly one payload field is non-nil.
type ClientMessage struct {
	Version string `json:"version"`

	Connect             *ConnectRequest            `json:"connect,omitempty"`
	Disconnect          *struct{}                  `json:"disconnect,omitempty"`
	ListLobbies         *struct{}                  `json:"list_lobbies,omitempty"`
	CreateLobby         *CreateLobbyRequest        `json:"create_lobby,omitempty"`
	JoinLobby           *JoinLobbyRequest          `json:"join_lobby,omitempty"`
	LeaveLobby          *struct{}                  `json:"leave_lobby,omitempty"`
	MarkReady           *MarkReadyRequest          `json:"mark_ready,omitempty"`
	StartGame           *struct{}                  `json:"start_game,omitempty"`
	PlayAgain           *struct{}                  `json:"play_again,omitempty"`
	AddBot              *AddBotRequest             `json:"add_bot,omitempty"`
	KickFromLobby       *KickFromLobbyRequest      `json:"kick_from_lobby,omitempty"`
	BecomeObserver      *struct{}                  `json:"become_observer,omitempty"`
	BecomePlayer        *struct{}                  `json:"become_player,omitempty"`
	MakePlayerObserver  *MakePlayerObserverRequest `json:"make_player_observer,omitempty"`
	InGame              *InGameCommand             `json:"in_game,omitempty"`
	Ping                *PingRequest               `json:"ping,omitempty"`
	LobbyListChat       *ChatRequest               `json:"lobby_list_chat,omitempty"`
	InLobbyChat         *ChatRequest               `json:"in_lobby_chat,omitempty"`
	InReplay            *ReplayControlCommand      `json:"in_replay,omitempty"`
	CreateReplayLobby   *CreateReplayRequest       `json:"create_replay_lobby,omitempty"`
	WatchReplayTogether *CreateReplayRequest       `json:"watch_replay_together,omitempty"`
}

// ConnectResponse acknowledges a Connect request.
type ConnectResponse struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// ErrorResponse reports a request failure.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// LobbyListResponse lists never-started lobbies.
type LobbyListResponse struct {
	Lobbies []LobbyInfo `json:"lobbies"`
}

// LobbyUpdateNotification carries the new lobby state after a change.
type LobbyUpdateNotification struct {
	Details LobbyDetails `json:"details"`
}

// LobbyClosedNotification tells members their lobby is gone.
type LobbyClosedNotification struct {
	Message string `json:"message"`
}

// PlayerEventNotification reports a membership or readiness change.
type PlayerEventNotification struct {
	Player core.PlayerIdentity `json:"player"`
	Ready  bool                `json:"ready,omitempty"`
}

// KickedNotification tells a client it was removed from its lobby.
type KickedNotification struct {
	Reason string `json:"reason"`
}

// GameStartingNotification announces the session the lobby is entering.
type GameStartingNotification struct {
	SessionID core.SessionID `json:"session_id"`
}

// PongResponse echoes a ping.
type PongResponse struct {
	PingID            uint64 `json:"ping_id"`
	ClientTimestampMs int64  `json:"client_timestamp_ms"`
}

// ChatNotification relays a chat line with its sender.
type ChatNotification struct {
	Sender  core.ClientID `json:"sender"`
	Message string        `json:"message"`
}

// ReplayFileNotification delivers a finished game's replay artifact.
type ReplayFileNotification struct {
	SuggestedFileName string `json:"suggested_file_name"`
	Content           []byte `json:"content"`
}

// ServerMessage is the outbound envelope. Exactly one payload field is
// non-nil.
type ServerMessage struct {
	Version string `json:"version"`

	Connect              *ConnectResponse             `json:"connect,omitempty"`
	Error                *ErrorResponse               `json:"error,omitempty"`
	LobbyList            *LobbyListResponse           `json:"lobby_list,omitempty"`
	LobbyListUpdate      *struct{}                    `json:"lobby_list_update,omitempty"`
	LobbyUpdate          *LobbyUpdateNotification     `json:"lobby_update,omitempty"`
	LobbyClosed          *LobbyClosedNotification     `json:"lobby_closed,omitempty"`
	PlayerJoined         *PlayerEventNotification     `json:"player_joined,omitempty"`
	PlayerLeft           *PlayerEventNotification     `json:"player_left,omitempty"`
	PlayerReady          *PlayerEventNotification     `json:"player_ready,omitempty"`
	PlayerBecameObserver *PlayerEventNotification     `json:"player_became_observer,omitempty"`
	ObserverBecamePlayer *PlayerEventNotification     `json:"observer_became_player,omitempty"`
	Kicked               *KickedNotification          `json:"kicked,omitempty"`
	GameStarting         *GameStartingNotification    `json:"game_starting,omitempty"`
	GameState            *GameStateUpdate             `json:"game_state,omitempty"`
	GameOver             *GameOverNotification        `json:"game_over,omitempty"`
	PlayAgainStatus      *PlayAgainStatusNotification `json:"play_again_status,omitempty"`
	Pong                 *PongResponse                `json:"pong,omitempty"`
	InLobbyChat          *ChatNotification            `json:"in_lobby_chat,omitempty"`
	LobbyListChat        *ChatNotification            `json:"lobby_list_chat,omitempty"`
	ReplayFile           *ReplayFileNotification      `json:"replay_file,omitempty"`
	ReplayState          *ReplayStateNotification     `json:"replay_state,omitempty"`
	Shutdown             *struct{}                    `json:"shutdown,omitempty"`
}
