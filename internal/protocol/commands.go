package protocol

import "github.com/vovakirdan/arcade-online/internal/core"

// TurnCommand changes a snake's pending direction.
type TurnCommand struct {
	Direction core.Direction `json:"direction"`
}

// SnakeCommand is the Snake in-game command union.
type SnakeCommand struct {
	Turn *TurnCommand `json:"turn,omitempty"`
}

// PlaceMarkCommand places the caller's mark at a cell.
type PlaceMarkCommand struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// TicTacToeCommand is the TicTacToe in-game command union.
type TicTacToeCommand struct {
	Place *PlaceMarkCommand `json:"place,omitempty"`
}

// RemovePairCommand removes two matching cells by row-major index.
type RemovePairCommand struct {
	FirstIndex  int `json:"first_index"`
	SecondIndex int `json:"second_index"`
}

// NumbersCommand is the Numbers-Match in-game command union.
type NumbersCommand struct {
	RemovePair  *RemovePairCommand `json:"remove_pair,omitempty"`
	Refill      *struct{}          `json:"refill,omitempty"`
	RequestHint *struct{}          `json:"request_hint,omitempty"`
}

// StackMoveCommand moves a worker one cell left or right.
type StackMoveCommand struct {
	Direction core.Direction `json:"direction"`
}

// StackAttackCommand is the Stack-Attack in-game command union.
type StackAttackCommand struct {
	Move *StackMoveCommand `json:"move,omitempty"`
	Jump *struct{}         `json:"jump,omitempty"`
}

// MoveCommand slides the 2048 board in a direction.
type MoveCommand struct {
	Direction core.Direction `json:"direction"`
}

// Puzzle2048Command is the 2048 in-game command union.
type Puzzle2048Command struct {
	Move *MoveCommand `json:"move,omitempty"`
}

// InGameCommand is the tagged variant over per-game commands. Exactly one
// field is non-nil.
type InGameCommand struct {
	Snake       *SnakeCommand       `json:"snake,omitempty"`
	TicTacToe   *TicTacToeCommand   `json:"tictactoe,omitempty"`
	Numbers     *NumbersCommand     `json:"numbers_match,omitempty"`
	StackAttack *StackAttackCommand `json:"stack_attack,omitempty"`
	Puzzle2048  *Puzzle2048Command  `json:"puzzle2048,omitempty"`
}

// SetSpeedCommand changes the replay playback speed.
type SetSpeedCommand struct {
	Speed float32 `json:"speed"`
}

// ReplayControlCommand controls replay playback. Exactly one field is
// non-nil.
type ReplayControlCommand struct {
	Pause       *struct{}        `json:"pause,omitempty"`
	Resume      *struct{}        `json:"resume,omitempty"`
	SetSpeed    *SetSpeedCommand `json:"set_speed,omitempty"`
	StepForward *struct{}        `json:"step_forward,omitempty"`
	Restart     *struct{}        `json:"restart,omitempty"`
}
