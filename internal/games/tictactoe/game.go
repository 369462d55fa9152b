// Package tictactoe implements the m-in-a-row board engine: turn order,
// move validation, win detection along the four directions through the
// placed cell, plus the random and minimax bot controllers.
package tictactoe

import (
	"fmt"

	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/protocol"
)

// Mark is one board cell.
type Mark int

const (
	Empty Mark = iota
	X
	O
)

// String returns the wire representation of a mark.
func (m Mark) String() string {
	switch m {
	case X:
		return "x"
	case O:
		return "o"
	default:
		return ""
	}
}

// Opponent returns the other player's mark, or Empty for Empty.
func (m Mark) Opponent() Mark {
	switch m {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

// Status is the game progression state.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusXWon       Status = "x_won"
	StatusOWon       Status = "o_won"
	StatusDraw       Status = "draw"
)

var winDirections = [4][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}

// Game is the authoritative TicTacToe engine state.
type Game struct {
	Board         [][]Mark // Board[y][x]
	Width         int
	Height        int
	WinCount      int
	PlayerX       core.PlayerID
	PlayerO       core.PlayerID
	CurrentPlayer core.PlayerID
	Status        Status

	movesMade int
	lastMove  *core.Point
}

// New creates a fresh board. players must hold exactly two entries; the
// first is the host. The first mover is X; who plays X depends on the
// first-player mode (Random consumes one RNG draw).
func New(settings protocol.TicTacToeSettings, players []core.PlayerID, rng *core.SessionRng) (*Game, error) {
	if len(players) != 2 {
		return nil, fmt.Errorf("tictactoe: requires exactly 2 players, got %d", len(players))
	}

	board := make([][]Mark, settings.FieldHeight)
	for y := range board {
		board[y] = make([]Mark, settings.FieldWidth)
	}

	playerX, playerO := players[0], players[1]
	if settings.FirstPlayer == protocol.FirstPlayerRandom && rng.Bool() {
		playerX, playerO = playerO, playerX
	}

	return &Game{
		Board:         board,
		Width:         settings.FieldWidth,
		Height:        settings.FieldHeight,
		WinCount:      settings.WinCount,
		PlayerX:       playerX,
		PlayerO:       playerO,
		CurrentPlayer: playerX,
		Status:        StatusInProgress,
	}, nil
}

// CurrentMark returns the mark of the player to move.
func (g *Game) CurrentMark() Mark {
	if g.CurrentPlayer == g.PlayerX {
		return X
	}
	return O
}

// PlaceMark applies a move. It is accepted only in progress, on the caller's
// turn, in bounds, on an empty cell.
func (g *Game) PlaceMark(player core.PlayerID, x, y int) error {
	if g.Status != StatusInProgress {
		return fmt.Errorf("game is not in progress")
	}
	if player != g.CurrentPlayer {
		return fmt.Errorf("not your turn")
	}
	if x < 0 || x >= g.Width || y < 0 || y >= g.Height {
		return fmt.Errorf("cell (%d, %d) is out of bounds", x, y)
	}
	if g.Board[y][x] != Empty {
		return fmt.Errorf("cell (%d, %d) is already taken", x, y)
	}

	mark := g.CurrentMark()
	g.Board[y][x] = mark
	g.movesMade++
	g.lastMove = &core.Point{X: x, Y: y}

	if CheckWinAt(g.Board, g.WinCount, x, y) == mark {
		if mark == X {
			g.Status = StatusXWon
		} else {
			g.Status = StatusOWon
		}
		return nil
	}

	if g.movesMade == g.Width*g.Height {
		g.Status = StatusDraw
		return nil
	}

	if g.CurrentPlayer == g.PlayerX {
		g.CurrentPlayer = g.PlayerO
	} else {
		g.CurrentPlayer = g.PlayerX
	}
	return nil
}

// Winner returns the winning player id, if any.
func (g *Game) Winner() *core.PlayerID {
	switch g.Status {
	case StatusXWon:
		p := g.PlayerX
		return &p
	case StatusOWon:
		p := g.PlayerO
		return &p
	default:
		return nil
	}
}

// WinningLine returns the win_count cells of the winning line, if the game
// was won.
func (g *Game) WinningLine() []core.Point {
	if g.Status != StatusXWon && g.Status != StatusOWon {
		return nil
	}
	return CheckWinWithLine(g.Board, g.WinCount)
}

// CheckWinAt checks the four directions through (x, y) scanning up to
// win_count-1 cells each way, returning the winning mark or Empty.
func CheckWinAt(board [][]Mark, winCount, x, y int) Mark {
	mark := board[y][x]
	if mark == Empty {
		return Empty
	}

	height := len(board)
	width := len(board[0])

	for _, d := range winDirections {
		dx, dy := d[0], d[1]
		count := 1

		for i := 1; i < winCount; i++ {
			nx, ny := x+dx*i, y+dy*i
			if nx < 0 || ny < 0 || nx >= width || ny >= height || board[ny][nx] != mark {
				break
			}
			count++
		}
		for i := 1; i < winCount; i++ {
			nx, ny := x-dx*i, y-dy*i
			if nx < 0 || ny < 0 || nx >= width || ny >= height || board[ny][nx] != mark {
				break
			}
			count++
		}

		if count >= winCount {
			return mark
		}
	}

	return Empty
}

// CheckWinWithLine scans the whole board for a winning run and returns its
// first win_count cells in line order, or nil.
func CheckWinWithLine(board [][]Mark, winCount int) []core.Point {
	height := len(board)
	width := len(board[0])

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			mark := board[y][x]
			if mark == Empty {
				continue
			}
			for _, d := range winDirections {
				dx, dy := d[0], d[1]
				endX, endY := x+dx*(winCount-1), y+dy*(winCount-1)
				if endX < 0 || endY < 0 || endX >= width || endY >= height {
					continue
				}
				line := make([]core.Point, 0, winCount)
				ok := true
				for i := 0; i < winCount; i++ {
					cx, cy := x+dx*i, y+dy*i
					if board[cy][cx] != mark {
						ok = false
						break
					}
					line = append(line, core.Point{X: cx, Y: cy})
				}
				if ok {
					return line
				}
			}
		}
	}
	return nil
}

// AvailableMoves lists the empty cells in row-major order.
func AvailableMoves(board [][]Mark) []core.Point {
	var moves []core.Point
	for y := range board {
		for x := range board[y] {
			if board[y][x] == Empty {
				moves = append(moves, core.Point{X: x, Y: y})
			}
		}
	}
	return moves
}

// ToState builds the wire state record.
func (g *Game) ToState(isBot func(core.PlayerID) bool) *protocol.TicTacToeState {
	board := make([][]string, g.Height)
	for y := range board {
		board[y] = make([]string, g.Width)
		for x := range board[y] {
			board[y][x] = g.Board[y][x].String()
		}
	}

	return &protocol.TicTacToeState{
		Board:         board,
		FieldWidth:    g.Width,
		FieldHeight:   g.Height,
		WinCount:      g.WinCount,
		PlayerX:       core.PlayerIdentity{PlayerID: g.PlayerX, IsBot: isBot(g.PlayerX)},
		PlayerO:       core.PlayerIdentity{PlayerID: g.PlayerO, IsBot: isBot(g.PlayerO)},
		CurrentPlayer: core.PlayerIdentity{PlayerID: g.CurrentPlayer, IsBot: isBot(g.CurrentPlayer)},
		Status:        string(g.Status),
	}
}
