// Package protocol defines the messages exchanged between clients and the
// server: the tagged request/response unions, per-game lobby settings,
// in-game commands and state records. Encoding is JSON with exactly one
// variant pointer set per tagged union; transport framing lives in the
// server package.
package protocol

import "fmt"

// GameKind names the game a lobby or replay is for.
type GameKind string

const (
	GameSnake       GameKind = "snake"
	GameTicTacToe   GameKind = "tictactoe"
	GameNumbers     GameKind = "numbers_match"
	GameStackAttack GameKind = "stack_attack"
	GamePuzzle2048  GameKind = "puzzle2048"
)

// WallCollisionMode controls what happens when a snake steps off the grid.
type WallCollisionMode string

const (
	WallDeath      WallCollisionMode = "death"
	WallWrapAround WallCollisionMode = "wrap_around"
)

// DeadSnakeBehavior controls whether dead snakes keep blocking cells.
type DeadSnakeBehavior string

const (
	DeadSnakeDisappear   DeadSnakeBehavior = "disappear"
	DeadSnakeStayOnField DeadSnakeBehavior = "stay_on_field"
)

// FirstPlayerMode selects the opening TicTacToe player.
type FirstPlayerMode string

const (
	FirstPlayerHost   FirstPlayerMode = "host"
	FirstPlayerRandom FirstPlayerMode = "random"
)

// HintMode controls Numbers-Match hint availability.
type HintMode string

const (
	HintLimited   HintMode = "limited"
	HintUnlimited HintMode = "unlimited"
	HintDisabled  HintMode = "disabled"
)

// SnakeSettings configures a Snake lobby.
type SnakeSettings struct {
	FieldWidth           int               `json:"field_width"`
	FieldHeight          int               `json:"field_height"`
	WallCollisionMode    WallCollisionMode `json:"wall_collision_mode"`
	DeadSnakeBehavior    DeadSnakeBehavior `json:"dead_snake_behavior"`
	MaxFoodCount         int               `json:"max_food_count"`
	FoodSpawnProbability float32           `json:"food_spawn_probability"`
	TickIntervalMs       int               `json:"tick_interval_ms"`
}

// TicTacToeSettings configures a TicTacToe lobby.
type TicTacToeSettings struct {
	FieldWidth  int             `json:"field_width"`
	FieldHeight int             `json:"field_height"`
	WinCount    int             `json:"win_count"`
	FirstPlayer FirstPlayerMode `json:"first_player"`
}

// NumbersSettings configures a Numbers-Match lobby.
type NumbersSettings struct {
	HintMode HintMode `json:"hint_mode"`
}

// StackAttackSettings configures a Stack-Attack lobby. The game runs on a
// fixed field, so there is nothing to tune.
type StackAttackSettings struct{}

// Puzzle2048Settings configures a 2048 lobby.
type Puzzle2048Settings struct {
	FieldWidth  int `json:"field_width"`
	FieldHeight int `json:"field_height"`
	TargetValue int `json:"target_value"`
}

// LobbySettings is the tagged variant over the per-game setting records.
// Exactly one field is non-nil.
type LobbySettings struct {
	Snake       *SnakeSettings       `json:"snake,omitempty"`
	TicTacToe   *TicTacToeSettings   `json:"tictactoe,omitempty"`
	Numbers     *NumbersSettings     `json:"numbers_match,omitempty"`
	StackAttack *StackAttackSettings `json:"stack_attack,omitempty"`
	Puzzle2048  *Puzzle2048Settings  `json:"puzzle2048,omitempty"`
}

// Game returns the game kind the settings are for.
func (s LobbySettings) Game() (GameKind, error) {
	switch {
	case s.Snake != nil:
		return GameSnake, nil
	case s.TicTacToe != nil:
		return GameTicTacToe, nil
	case s.Numbers != nil:
		return GameNumbers, nil
	case s.StackAttack != nil:
		return GameStackAttack, nil
	case s.Puzzle2048 != nil:
		return GamePuzzle2048, nil
	default:
		return "", fmt.Errorf("protocol: no game settings provided")
	}
}

// Validate checks the settings against per-game ranges and the lobby size.
func (s LobbySettings) Validate(maxPlayers int) error {
	game, err := s.Game()
	if err != nil {
		return err
	}

	switch game {
	case GameSnake:
		c := s.Snake
		if c.FieldWidth < 5 || c.FieldWidth > 30 {
			return fmt.Errorf("field width must be between 5 and 30")
		}
		if c.FieldHeight < 5 || c.FieldHeight > 30 {
			return fmt.Errorf("field height must be between 5 and 30")
		}
		if c.MaxFoodCount < 1 || c.MaxFoodCount > 20 {
			return fmt.Errorf("max food count must be between 1 and 20")
		}
		if c.FoodSpawnProbability < 0.001 || c.FoodSpawnProbability > 1 {
			return fmt.Errorf("food spawn probability must be between 0.001 and 1")
		}
		if c.TickIntervalMs < 50 || c.TickIntervalMs > 2000 {
			return fmt.Errorf("tick interval must be between 50 and 2000 ms")
		}
	case GameTicTacToe:
		c := s.TicTacToe
		if c.FieldWidth < 3 || c.FieldWidth > 30 {
			return fmt.Errorf("field width must be between 3 and 30")
		}
		if c.FieldHeight < 3 || c.FieldHeight > 30 {
			return fmt.Errorf("field height must be between 3 and 30")
		}
		if c.WinCount < 3 {
			return fmt.Errorf("win count must be at least 3")
		}
		if c.WinCount > c.FieldWidth && c.WinCount > c.FieldHeight {
			return fmt.Errorf("win count does not fit the field")
		}
		if maxPlayers != 2 {
			return fmt.Errorf("tictactoe lobbies hold exactly 2 players")
		}
	case GameNumbers, GamePuzzle2048:
		if maxPlayers != 1 {
			return fmt.Errorf("%s lobbies hold exactly 1 player", game)
		}
		if game == GamePuzzle2048 {
			c := s.Puzzle2048
			if c.FieldWidth < 2 || c.FieldWidth > 8 || c.FieldHeight < 2 || c.FieldHeight > 8 {
				return fmt.Errorf("field size must be between 2 and 8")
			}
			if c.TargetValue < 8 || c.TargetValue&(c.TargetValue-1) != 0 {
				return fmt.Errorf("target value must be a power of two of at least 8")
			}
		}
	case GameStackAttack:
		if maxPlayers < 1 || maxPlayers > 4 {
			return fmt.Errorf("stack attack lobbies hold 1 to 4 players")
		}
	}

	return nil
}

// SnakeBotKind names a Snake bot strategy.
type SnakeBotKind string

// SnakeBotEfficient heads for the nearest food while avoiding deadly moves.
const SnakeBotEfficient SnakeBotKind = "efficient"

// TicTacToeBotKind names a TicTacToe bot strategy.
type TicTacToeBotKind string

const (
	TicTacToeBotRandom  TicTacToeBotKind = "random"
	TicTacToeBotMinimax TicTacToeBotKind = "minimax"
)

// BotKind is the tagged variant over per-game bot types. Exactly one field
// is non-nil.
type BotKind struct {
	Snake     *SnakeBotKind     `json:"snake,omitempty"`
	TicTacToe *TicTacToeBotKind `json:"tictactoe,omitempty"`
}

// MatchesGame reports whether the bot kind belongs to the given game.
func (b BotKind) MatchesGame(game GameKind) bool {
	switch game {
	case GameSnake:
		return b.Snake != nil
	case GameTicTacToe:
		return b.TicTacToe != nil
	default:
		return false
	}
}
