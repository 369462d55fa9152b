package protocol

import "github.com/vovakirdan/arcade-online/internal/core"

// SnakeView is one snake in a state update.
type SnakeView struct {
	Identity core.PlayerIdentity `json:"identity"`
	Segments []core.Point        `json:"segments"`
	Alive    bool                `json:"alive"`
	Score    int                 `json:"score"`
}

// SnakeState is the Snake wire state record.
type SnakeState struct {
	Tick              uint64            `json:"tick"`
	Snakes            []SnakeView       `json:"snakes"`
	Food              []core.Point      `json:"food"`
	FieldWidth        int               `json:"field_width"`
	FieldHeight       int               `json:"field_height"`
	TickIntervalMs    int               `json:"tick_interval_ms"`
	WallCollisionMode WallCollisionMode `json:"wall_collision_mode"`
	DeadSnakeBehavior DeadSnakeBehavior `json:"dead_snake_behavior"`
}

// TicTacToeState is the TicTacToe wire state record.
type TicTacToeState struct {
	Board         [][]string          `json:"board"`
	FieldWidth    int                 `json:"field_width"`
	FieldHeight   int                 `json:"field_height"`
	WinCount      int                 `json:"win_count"`
	PlayerX       core.PlayerIdentity `json:"player_x"`
	PlayerO       core.PlayerIdentity `json:"player_o"`
	CurrentPlayer core.PlayerIdentity `json:"current_player"`
	Status        string              `json:"status"`
}

// NumbersCell is one Numbers-Match board cell.
type NumbersCell struct {
	Value   int  `json:"value"`
	Removed bool `json:"removed"`
}

// NumbersHint is the tagged hint result. Exactly one field is set.
type NumbersHint struct {
	Pair          *RemovePairCommand `json:"pair,omitempty"`
	SuggestRefill *struct{}          `json:"suggest_refill,omitempty"`
	NoMoves       *struct{}          `json:"no_moves,omitempty"`
}

// NumbersEvent is one board transition emitted by a Numbers-Match command.
type NumbersEvent struct {
	PairRemoved *RemovePairCommand `json:"pair_removed,omitempty"`
	RowsDeleted []int              `json:"rows_deleted,omitempty"`
	Refill      []int              `json:"refill_values,omitempty"`
	HintShown   *NumbersHint       `json:"hint_shown,omitempty"`
}

// NumbersState is the Numbers-Match wire state record.
type NumbersState struct {
	Cells            []NumbersCell  `json:"cells"`
	RowCount         int            `json:"row_count"`
	RefillsRemaining int            `json:"refills_remaining"`
	HintsRemaining   *int           `json:"hints_remaining,omitempty"`
	HintMode         HintMode       `json:"hint_mode"`
	Status           string         `json:"status"`
	Events           []NumbersEvent `json:"events,omitempty"`
	CurrentHint      *NumbersHint   `json:"current_hint,omitempty"`
}

// StackWorkerView is one worker in a state update.
type StackWorkerView struct {
	Identity core.PlayerIdentity `json:"identity"`
	Position core.Point          `json:"position"`
	Alive    bool                `json:"alive"`
}

// StackBoxView is one box in a state update.
type StackBoxView struct {
	ID      int        `json:"id"`
	Pos     core.Point `json:"position"`
	Falling bool       `json:"falling"`
}

// StackCraneView is one crane in a state update.
type StackCraneView struct {
	ID      int  `json:"id"`
	X       int  `json:"x"`
	TargetX int  `json:"target_x"`
	Dropped bool `json:"dropped"`
}

// StackAttackState is the Stack-Attack wire state record.
type StackAttackState struct {
	Tick            uint64            `json:"tick"`
	FieldWidth      int               `json:"field_width"`
	FieldHeight     int               `json:"field_height"`
	TickIntervalMs  int               `json:"tick_interval_ms"`
	Workers         []StackWorkerView `json:"workers"`
	Boxes           []StackBoxView    `json:"boxes"`
	Cranes          []StackCraneView  `json:"cranes"`
	Score           int               `json:"score"`
	LinesCleared    int               `json:"lines_cleared"`
	DifficultyLevel int               `json:"difficulty_level"`
	Status          string            `json:"status"`
}

// Puzzle2048State is the 2048 wire state record.
type Puzzle2048State struct {
	Cells       []int  `json:"cells"`
	FieldWidth  int    `json:"field_width"`
	FieldHeight int    `json:"field_height"`
	Score       int    `json:"score"`
	TargetValue int    `json:"target_value"`
	MovesMade   int    `json:"moves_made"`
	Status      string `json:"status"`
}

// GameStateUpdate is the tagged variant over per-game state records.
// Exactly one field is non-nil.
type GameStateUpdate struct {
	Snake       *SnakeState       `json:"snake,omitempty"`
	TicTacToe   *TicTacToeState   `json:"tictactoe,omitempty"`
	Numbers     *NumbersState     `json:"numbers_match,omitempty"`
	StackAttack *StackAttackState `json:"stack_attack,omitempty"`
	Puzzle2048  *Puzzle2048State  `json:"puzzle2048,omitempty"`
}

// ScoreEntry is one participant's final score.
type ScoreEntry struct {
	Identity core.PlayerIdentity `json:"identity"`
	Score    int                 `json:"score"`
}

// SnakeGameEndInfo carries the Snake end reason.
type SnakeGameEndInfo struct {
	Reason string `json:"reason"`
}

// TicTacToeGameEndInfo carries the win/draw reason and the winning line.
type TicTacToeGameEndInfo struct {
	Reason      string       `json:"reason"`
	WinningLine []core.Point `json:"winning_line,omitempty"`
}

// NumbersGameEndInfo carries the puzzle counters.
type NumbersGameEndInfo struct {
	PairsRemoved int `json:"pairs_removed"`
	RefillsUsed  int `json:"refills_used"`
	HintsUsed    int `json:"hints_used"`
}

// StackAttackGameEndInfo carries the Stack-Attack end reason and totals.
type StackAttackGameEndInfo struct {
	Reason       string `json:"reason"`
	LinesCleared int    `json:"lines_cleared"`
}

// Puzzle2048GameEndInfo carries the 2048 end state.
type Puzzle2048GameEndInfo struct {
	HighestTile int `json:"highest_tile"`
	MovesMade   int `json:"moves_made"`
}

// GameEndInfo is the tagged per-game game-over payload.
type GameEndInfo struct {
	Snake       *SnakeGameEndInfo       `json:"snake,omitempty"`
	TicTacToe   *TicTacToeGameEndInfo   `json:"tictactoe,omitempty"`
	Numbers     *NumbersGameEndInfo     `json:"numbers_match,omitempty"`
	StackAttack *StackAttackGameEndInfo `json:"stack_attack,omitempty"`
	Puzzle2048  *Puzzle2048GameEndInfo  `json:"puzzle2048,omitempty"`
}

// GameOverNotification summarizes a finished match.
type GameOverNotification struct {
	Scores   []ScoreEntry         `json:"scores"`
	Winner   *core.PlayerIdentity `json:"winner,omitempty"`
	GameInfo GameEndInfo          `json:"game_info"`
}

// ReplayStateNotification accompanies every state update of a replay session.
type ReplayStateNotification struct {
	IsPaused        bool    `json:"is_paused"`
	CurrentTick     uint64  `json:"current_tick"`
	TotalTicks      uint64  `json:"total_ticks"`
	Speed           float32 `json:"speed"`
	IsFinished      bool    `json:"is_finished"`
	HostOnlyControl bool    `json:"host_only_control"`
}

// PlayerInfo is one lobby member with readiness.
type PlayerInfo struct {
	Identity core.PlayerIdentity `json:"identity"`
	Ready    bool                `json:"ready"`
}

// LobbyInfo is the public listing entry for a lobby.
type LobbyInfo struct {
	LobbyID        core.LobbyID  `json:"lobby_id"`
	LobbyName      string        `json:"lobby_name"`
	CurrentPlayers int           `json:"current_players"`
	MaxPlayers     int           `json:"max_players"`
	ObserverCount  int           `json:"observer_count"`
	Settings       LobbySettings `json:"settings"`
}

// LobbyDetails is the full lobby view sent to members.
type LobbyDetails struct {
	LobbyID    core.LobbyID          `json:"lobby_id"`
	LobbyName  string                `json:"lobby_name"`
	Players    []PlayerInfo          `json:"players"`
	MaxPlayers int                   `json:"max_players"`
	Observers  []core.PlayerIdentity `json:"observers"`
	Settings   LobbySettings         `json:"settings"`
	Creator    core.PlayerIdentity   `json:"creator"`
}

// PlayAgainStatusNotification reports the play-again vote state.
type PlayAgainStatusNotification struct {
	Available      bool                  `json:"available"`
	ReadyPlayers   []core.PlayerIdentity `json:"ready_players"`
	PendingPlayers []core.PlayerIdentity `json:"pending_players"`
}
