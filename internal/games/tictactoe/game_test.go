package tictactoe

import (
	"testing"

	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/protocol"
)

func hostFirstSettings(w, h, win int) protocol.TicTacToeSettings {
	return protocol.TicTacToeSettings{
		FieldWidth:  w,
		FieldHeight: h,
		WinCount:    win,
		FirstPlayer: protocol.FirstPlayerHost,
	}
}

func newGame(t *testing.T, settings protocol.TicTacToeSettings) *Game {
	t.Helper()
	g, err := New(settings, []core.PlayerID{"px", "po"}, core.NewSessionRng(1))
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func place(t *testing.T, g *Game, player core.PlayerID, x, y int) {
	t.Helper()
	if err := g.PlaceMark(player, x, y); err != nil {
		t.Fatalf("PlaceMark(%s, %d, %d): %v", player, x, y, err)
	}
}

func TestDiagonalWin(t *testing.T) {
	// X plays (0,0),(1,1),(2,2); status becomes XWon with that line.
	g := newGame(t, hostFirstSettings(3, 3, 3))

	place(t, g, "px", 0, 0)
	place(t, g, "po", 1, 0)
	place(t, g, "px", 1, 1)
	place(t, g, "po", 2, 0)
	place(t, g, "px", 2, 2)

	if g.Status != StatusXWon {
		t.Fatalf("status = %s, want %s", g.Status, StatusXWon)
	}

	winner := g.Winner()
	if winner == nil || *winner != g.PlayerX {
		t.Errorf("winner = %v, want %s", winner, g.PlayerX)
	}

	line := g.WinningLine()
	want := []core.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}}
	if len(line) != len(want) {
		t.Fatalf("winning line = %v, want %v", line, want)
	}
	for i := range want {
		if line[i] != want[i] {
			t.Fatalf("winning line = %v, want %v", line, want)
		}
	}
}

func TestTurnOrderEnforced(t *testing.T) {
	g := newGame(t, hostFirstSettings(3, 3, 3))

	if err := g.PlaceMark("po", 0, 0); err == nil {
		t.Error("O must not move first in host-first mode")
	}
	place(t, g, "px", 0, 0)
	if err := g.PlaceMark("px", 1, 0); err == nil {
		t.Error("X must not move twice in a row")
	}
}

func TestOccupiedAndOutOfBoundsRejected(t *testing.T) {
	g := newGame(t, hostFirstSettings(3, 3, 3))

	place(t, g, "px", 1, 1)
	if err := g.PlaceMark("po", 1, 1); err == nil {
		t.Error("occupied cell must be rejected")
	}
	if err := g.PlaceMark("po", 3, 0); err == nil {
		t.Error("out-of-bounds cell must be rejected")
	}
	if err := g.PlaceMark("po", -1, 0); err == nil {
		t.Error("negative coordinate must be rejected")
	}
}

func TestMarkCountInvariant(t *testing.T) {
	// |#X - #O| <= 1 at every state and the current player has fewer marks.
	g := newGame(t, hostFirstSettings(4, 4, 3))
	moves := [][2]int{{0, 0}, {3, 3}, {0, 3}, {3, 0}, {1, 2}}

	players := []core.PlayerID{"px", "po"}
	for i, mv := range moves {
		place(t, g, players[i%2], mv[0], mv[1])

		xCount, oCount := 0, 0
		for y := range g.Board {
			for x := range g.Board[y] {
				switch g.Board[y][x] {
				case X:
					xCount++
				case O:
					oCount++
				}
			}
		}
		diff := xCount - oCount
		if diff < -1 || diff > 1 {
			t.Fatalf("|#X-#O| = %d after move %d", diff, i)
		}
		if g.Status == StatusInProgress {
			if g.CurrentMark() == X && xCount > oCount {
				t.Fatal("X to move but X has more marks")
			}
			if g.CurrentMark() == O && oCount > xCount {
				t.Fatal("O to move but O has more marks")
			}
		}
	}
}

func TestDraw(t *testing.T) {
	g := newGame(t, hostFirstSettings(3, 3, 3))

	// X O X / X O O / O X X: full board, no 3-in-a-row.
	seq := []struct {
		player core.PlayerID
		x, y   int
	}{
		{"px", 0, 0}, {"po", 1, 0}, {"px", 2, 0},
		{"po", 1, 1}, {"px", 0, 1}, {"po", 2, 1},
		{"px", 1, 2}, {"po", 0, 2}, {"px", 2, 2},
	}
	for _, mv := range seq {
		place(t, g, mv.player, mv.x, mv.y)
	}

	if g.Status != StatusDraw {
		t.Fatalf("status = %s, want %s", g.Status, StatusDraw)
	}
	if g.Winner() != nil {
		t.Error("draw must have no winner")
	}
}

func TestRandomFirstPlayerIsDeterministic(t *testing.T) {
	settings := protocol.TicTacToeSettings{
		FieldWidth: 3, FieldHeight: 3, WinCount: 3,
		FirstPlayer: protocol.FirstPlayerRandom,
	}

	g1, _ := New(settings, []core.PlayerID{"a", "b"}, core.NewSessionRng(7))
	g2, _ := New(settings, []core.PlayerID{"a", "b"}, core.NewSessionRng(7))

	if g1.PlayerX != g2.PlayerX || g1.PlayerO != g2.PlayerO {
		t.Error("same seed must pick the same first player")
	}
}

func TestLongerWinCount(t *testing.T) {
	g := newGame(t, hostFirstSettings(7, 7, 5))

	// X builds a horizontal 5-run on row 0 while O scatters on row 6.
	for i := range 4 {
		place(t, g, "px", i, 0)
		place(t, g, "po", i, 6)
	}
	if g.Status != StatusInProgress {
		t.Fatalf("status = %s before the winning move", g.Status)
	}
	place(t, g, "px", 4, 0)

	if g.Status != StatusXWon {
		t.Fatalf("status = %s, want %s", g.Status, StatusXWon)
	}
	if line := g.WinningLine(); len(line) != 5 {
		t.Errorf("winning line length = %d, want 5", len(line))
	}
}

func boardFromStrings(rows []string) [][]Mark {
	board := make([][]Mark, len(rows))
	for y, row := range rows {
		board[y] = make([]Mark, len(row))
		for x, c := range row {
			switch c {
			case 'X':
				board[y][x] = X
			case 'O':
				board[y][x] = O
			}
		}
	}
	return board
}

func TestBotTakesImmediateWin(t *testing.T) {
	input := BotInput{
		Board: boardFromStrings([]string{
			"XX.",
			"OO.",
			"...",
		}),
		WinCount:    3,
		CurrentMark: X,
	}

	move := CalculateMinimaxMove(input)
	if move == nil || *move != (core.Point{X: 2, Y: 0}) {
		t.Errorf("move = %v, want (2,0)", move)
	}
}

func TestBotBlocksImmediateLoss(t *testing.T) {
	input := BotInput{
		Board: boardFromStrings([]string{
			"OO.",
			"X..",
			"..X",
		}),
		WinCount:    3,
		CurrentMark: X,
	}

	move := CalculateMinimaxMove(input)
	if move == nil || *move != (core.Point{X: 2, Y: 0}) {
		t.Errorf("move = %v, want the block at (2,0)", move)
	}
}

func TestBotBlocksFork(t *testing.T) {
	// X to move on X../.O./..X — it must not let O build a double threat.
	input := BotInput{
		Board: boardFromStrings([]string{
			"X..",
			".O.",
			"..X",
		}),
		WinCount:    3,
		CurrentMark: X,
	}

	move := CalculateMinimaxMove(input)
	if move == nil {
		t.Fatal("bot must propose a move")
	}

	// Play it out: after the bot's move, no O reply may yield two distinct
	// immediate winning answers.
	board := input.Board
	board[move.Y][move.X] = X

	oppMoves := AvailableMoves(board)
	for _, om := range oppMoves {
		board[om.Y][om.X] = O
		wins := 0
		for _, wm := range AvailableMoves(board) {
			board[wm.Y][wm.X] = O
			if CheckWinAt(board, 3, wm.X, wm.Y) == O {
				wins++
			}
			board[wm.Y][wm.X] = Empty
		}
		board[om.Y][om.X] = Empty
		if wins >= 2 {
			t.Fatalf("after bot move %v, O move %v forks with %d winning replies", *move, om, wins)
		}
	}
}

func TestBotRespondsOnLargeBoard(t *testing.T) {
	// Depth limiting keeps the big-board search bounded; the result must
	// still block the open four-threat.
	input := BotInput{
		Board: boardFromStrings([]string{
			"..........",
			"..........",
			"..OOOO....",
			"..........",
			"....X.....",
			"....X.....",
			"..........",
			"..........",
			"..........",
			"..........",
		}),
		WinCount:    5,
		CurrentMark: X,
	}

	move := CalculateMinimaxMove(input)
	if move == nil {
		t.Fatal("bot must propose a move")
	}
	// Either end of the open four.
	if !(*move == (core.Point{X: 1, Y: 2}) || *move == (core.Point{X: 6, Y: 2})) {
		t.Errorf("move = %v, want an end of the open O-run", *move)
	}
}

func TestRandomBotUsesSessionRng(t *testing.T) {
	input := BotInput{
		Board:       boardFromStrings([]string{"...", "...", "..."}),
		WinCount:    3,
		CurrentMark: X,
	}

	m1 := CalculateMove(protocol.TicTacToeBotRandom, input, core.NewSessionRng(5))
	m2 := CalculateMove(protocol.TicTacToeBotRandom, input, core.NewSessionRng(5))

	if m1 == nil || m2 == nil || *m1 != *m2 {
		t.Error("random bot must be deterministic for a fixed seed")
	}
}
