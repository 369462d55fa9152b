package tictactoe

import (
	"math"

	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/protocol"
)

// BotInput is a board snapshot handed to the bot controllers. The minimax
// search mutates the board in place and restores it, so callers pass a copy
// and may run the computation without holding the engine lock.
type BotInput struct {
	Board       [][]Mark
	WinCount    int
	CurrentMark Mark
}

// BotInputFromGame copies the state a bot needs.
func BotInputFromGame(g *Game) BotInput {
	board := make([][]Mark, len(g.Board))
	for y := range g.Board {
		board[y] = make([]Mark, len(g.Board[y]))
		copy(board[y], g.Board[y])
	}
	return BotInput{Board: board, WinCount: g.WinCount, CurrentMark: g.CurrentMark()}
}

// CalculateMove dispatches by bot kind. The random bot consumes the session
// RNG; minimax is deterministic.
func CalculateMove(kind protocol.TicTacToeBotKind, input BotInput, rng *core.SessionRng) *core.Point {
	switch kind {
	case protocol.TicTacToeBotRandom:
		return calculateRandomMove(input, rng)
	case protocol.TicTacToeBotMinimax:
		return CalculateMinimaxMove(input)
	default:
		return nil
	}
}

func calculateRandomMove(input BotInput, rng *core.SessionRng) *core.Point {
	moves := AvailableMoves(input.Board)
	if len(moves) == 0 {
		return nil
	}
	move := moves[rng.IntN(len(moves))]
	return &move
}

// CalculateMinimaxMove picks a move in priority order: immediate win, block
// an immediate loss, create an open two-ended threat, block one, pre-block a
// double threat, then depth-limited alpha-beta over the remaining cells.
func CalculateMinimaxMove(input BotInput) *core.Point {
	botMark := input.CurrentMark
	oppMark := botMark.Opponent()
	if oppMark == Empty {
		return nil
	}

	moves := AvailableMoves(input.Board)
	if len(moves) == 0 {
		return nil
	}

	board := input.Board
	winCount := input.WinCount

	if m := findWinningMove(board, botMark, winCount, moves); m != nil {
		return m
	}
	if m := findWinningMove(board, oppMark, winCount, moves); m != nil {
		return m
	}
	if m := findOpenThreatMove(board, botMark, winCount, moves); m != nil {
		return m
	}
	if m := findOpenThreatMove(board, oppMark, winCount, moves); m != nil {
		return m
	}
	if m := findDoubleBlockMove(board, oppMark, winCount, moves); m != nil {
		return m
	}

	depthLimit := depthLimitFor(len(moves))
	initialScore := evaluateBoard(board, botMark, winCount)

	var best *core.Point
	bestScore := math.MinInt32

	for _, mv := range moves {
		delta := evalDeltaBeforeMove(board, botMark, winCount, mv.X, mv.Y, botMark)
		board[mv.Y][mv.X] = botMark

		score := minimax(board, winCount, 0, depthLimit, false, botMark,
			math.MinInt32, math.MaxInt32, mv.X, mv.Y, initialScore+delta)

		board[mv.Y][mv.X] = Empty

		if score > bestScore {
			bestScore = score
			m := mv
			best = &m
		}
	}

	return best
}

func findWinningMove(board [][]Mark, mark Mark, winCount int, moves []core.Point) *core.Point {
	for _, mv := range moves {
		board[mv.Y][mv.X] = mark
		won := CheckWinAt(board, winCount, mv.X, mv.Y) == mark
		board[mv.Y][mv.X] = Empty
		if won {
			m := mv
			return &m
		}
	}
	return nil
}

func findOpenThreatMove(board [][]Mark, mark Mark, winCount int, moves []core.Point) *core.Point {
	for _, mv := range moves {
		board[mv.Y][mv.X] = mark
		threat := hasOpenThreat(board, mark, winCount, winCount-1, mv.X, mv.Y)
		board[mv.Y][mv.X] = Empty
		if threat {
			m := mv
			return &m
		}
	}
	return nil
}

func findDoubleBlockMove(board [][]Mark, oppMark Mark, winCount int, moves []core.Point) *core.Point {
	for _, mv := range moves {
		board[mv.Y][mv.X] = oppMark
		winning := countWinningMoves(board, oppMark, winCount, moves, mv.X, mv.Y)
		board[mv.Y][mv.X] = Empty
		if winning >= 2 {
			m := mv
			return &m
		}
	}
	return nil
}

func countWinningMoves(board [][]Mark, mark Mark, winCount int, moves []core.Point, excludeX, excludeY int) int {
	count := 0
	for _, mv := range moves {
		if mv.X == excludeX && mv.Y == excludeY {
			continue
		}
		if board[mv.Y][mv.X] != Empty {
			continue
		}
		board[mv.Y][mv.X] = mark
		if CheckWinAt(board, winCount, mv.X, mv.Y) == mark {
			count++
		}
		board[mv.Y][mv.X] = Empty
	}
	return count
}

// hasOpenThreat reports whether the run through (lastX, lastY) reaches
// requiredCount contiguous marks with both ends open.
func hasOpenThreat(board [][]Mark, mark Mark, winCount, requiredCount, lastX, lastY int) bool {
	height := len(board)
	width := len(board[0])

	for _, d := range winDirections {
		dx, dy := d[0], d[1]
		count := 1
		openEnds := 0

		posEnd := 1
		for i := 1; i < winCount; i++ {
			nx, ny := lastX+dx*i, lastY+dy*i
			if nx < 0 || ny < 0 || nx >= width || ny >= height || board[ny][nx] != mark {
				break
			}
			count++
			posEnd = i + 1
		}
		if cx, cy := lastX+dx*posEnd, lastY+dy*posEnd; cx >= 0 && cy >= 0 && cx < width && cy < height && board[cy][cx] == Empty {
			openEnds++
		}

		negEnd := 1
		for i := 1; i < winCount; i++ {
			nx, ny := lastX-dx*i, lastY-dy*i
			if nx < 0 || ny < 0 || nx >= width || ny >= height || board[ny][nx] != mark {
				break
			}
			count++
			negEnd = i + 1
		}
		if cx, cy := lastX-dx*negEnd, lastY-dy*negEnd; cx >= 0 && cy >= 0 && cx < width && cy < height && board[cy][cx] == Empty {
			openEnds++
		}

		if count >= requiredCount && openEnds >= 2 {
			return true
		}
	}

	return false
}

// depthLimitFor caps the search as a function of branching factor.
func depthLimitFor(movesCount int) int {
	switch {
	case movesCount <= 4:
		return movesCount
	case movesCount <= 9:
		return 6
	case movesCount <= 16:
		return 5
	case movesCount <= 36:
		return 4
	default:
		return 3
	}
}

func minimax(board [][]Mark, winCount, depth, maxDepth int, isMaximizing bool, botMark Mark, alpha, beta int, lastX, lastY, currentScore int) int {
	if winner := CheckWinAt(board, winCount, lastX, lastY); winner != Empty {
		if winner == botMark {
			return 1000 - depth
		}
		return -1000 + depth
	}

	if depth >= maxDepth {
		return currentScore
	}

	moves := AvailableMoves(board)

	if isMaximizing {
		maxEval := math.MinInt32
		for _, mv := range moves {
			delta := evalDeltaBeforeMove(board, botMark, winCount, mv.X, mv.Y, botMark)
			board[mv.Y][mv.X] = botMark
			eval := minimax(board, winCount, depth+1, maxDepth, false, botMark, alpha, beta, mv.X, mv.Y, currentScore+delta)
			board[mv.Y][mv.X] = Empty

			if eval > maxEval {
				maxEval = eval
			}
			if eval > alpha {
				alpha = eval
			}
			if beta <= alpha {
				return maxEval
			}
		}
		if maxEval == math.MinInt32 {
			return 0
		}
		return maxEval
	}

	oppMark := botMark.Opponent()
	minEval := math.MaxInt32
	for _, mv := range moves {
		delta := evalDeltaBeforeMove(board, botMark, winCount, mv.X, mv.Y, oppMark)
		board[mv.Y][mv.X] = oppMark
		eval := minimax(board, winCount, depth+1, maxDepth, true, botMark, alpha, beta, mv.X, mv.Y, currentScore+delta)
		board[mv.Y][mv.X] = Empty

		if eval < minEval {
			minEval = eval
		}
		if eval < beta {
			beta = eval
		}
		if beta <= alpha {
			return minEval
		}
	}
	if minEval == math.MaxInt32 {
		return 0
	}
	return minEval
}

// evalDeltaBeforeMove computes how placing moveMark at (x, y) shifts the
// window evaluation, looking only at the windows through that cell. This
// keeps leaf evaluation at O(directions * win_count) instead of a full
// board rescan.
func evalDeltaBeforeMove(board [][]Mark, botMark Mark, winCount, x, y int, moveMark Mark) int {
	height := len(board)
	width := len(board[0])
	delta := 0

	for _, d := range winDirections {
		dx, dy := d[0], d[1]
		for offset := 0; offset < winCount; offset++ {
			startX := x - dx*offset
			startY := y - dy*offset
			endX := startX + dx*(winCount-1)
			endY := startY + dy*(winCount-1)

			if startX < 0 || startY < 0 || endX < 0 || endY < 0 ||
				startX >= width || startY >= height || endX >= width || endY >= height {
				continue
			}

			botCount, oppCount := 0, 0
			for i := 0; i < winCount; i++ {
				switch board[startY+dy*i][startX+dx*i] {
				case botMark:
					botCount++
				case Empty:
				default:
					oppCount++
				}
			}

			var oldScore int
			switch {
			case oppCount == 0:
				oldScore = botCount * botCount
			case botCount == 0:
				oldScore = -(oppCount * oppCount)
			}

			var newScore int
			if moveMark == botMark {
				if oppCount == 0 {
					newScore = (botCount + 1) * (botCount + 1)
				}
			} else if botCount == 0 {
				newScore = -((oppCount + 1) * (oppCount + 1))
			}

			delta += newScore - oldScore
		}
	}

	return delta
}

func evaluateBoard(board [][]Mark, botMark Mark, winCount int) int {
	return countThreats(board, botMark, winCount) - countThreats(board, botMark.Opponent(), winCount)
}

func countThreats(board [][]Mark, mark Mark, winCount int) int {
	height := len(board)
	if height == 0 {
		return 0
	}
	width := len(board[0])

	score := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			for _, d := range winDirections {
				score += checkLineThreat(board, x, y, d[0], d[1], mark, winCount)
			}
		}
	}
	return score
}

// checkLineThreat scores the window starting at (startX, startY): n marks
// with no opponent mark scores n², multiplied up for one-short and
// two-short threats depending on how many window ends are open.
func checkLineThreat(board [][]Mark, startX, startY, dx, dy int, mark Mark, winCount int) int {
	height := len(board)
	width := len(board[0])
	last := winCount - 1

	endX := startX + dx*last
	endY := startY + dy*last
	if endX < 0 || endY < 0 || endX >= width || endY >= height {
		return 0
	}

	count := 0
	for i := 0; i < winCount; i++ {
		cell := board[startY+dy*i][startX+dx*i]
		if cell == mark {
			count++
		} else if cell != Empty {
			return 0
		}
	}
	if count == 0 {
		return 0
	}

	openEnds := 0
	if bx, by := startX-dx, startY-dy; bx >= 0 && by >= 0 && bx < width && by < height && board[by][bx] == Empty {
		openEnds++
	}
	if ax, ay := endX+dx, endY+dy; ax >= 0 && ay >= 0 && ax < width && ay < height && board[ay][ax] == Empty {
		openEnds++
	}

	score := count * count
	switch {
	case count == winCount-1 && openEnds == 2:
		score *= 16
	case count == winCount-1:
		score *= 4
	case count == winCount-2 && openEnds == 2:
		score *= 8
	case openEnds == 2:
		score *= 2
	}

	return score
}
