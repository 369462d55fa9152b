package session

import (
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/games/tictactoe"
	"github.com/vovakirdan/arcade-online/internal/protocol"
	"github.com/vovakirdan/arcade-online/internal/replay"
)

type tttMove struct {
	player core.PlayerID
	x, y   int
}

// tttSession runs one TicTacToe match. The loop is event-driven: it
// broadcasts state, plays bot turns in-line, and otherwise blocks on the
// move channel until the handler signals a committed turn.
type tttSession struct {
	cfg      Config
	settings protocol.TicTacToeSettings
	game     *tictactoe.Game
	rng      *core.SessionRng
	recorder *replay.Recorder
	logger   *log.Logger

	moves        chan tttMove
	disconnects  chan core.PlayerID
	stop         chan struct{}
	disconnected *core.PlayerID
}

func newTTTSession(cfg Config, settings protocol.TicTacToeSettings, seed uint64, startedMs int64, logger *log.Logger) (*tttSession, error) {
	identities := cfg.AllPlayers()
	players := make([]core.PlayerID, len(identities))
	for i, identity := range identities {
		players[i] = identity.PlayerID
	}

	rng := core.NewSessionRng(seed)
	game, err := tictactoe.New(settings, players, rng)
	if err != nil {
		return nil, err
	}

	return &tttSession{
		cfg:         cfg,
		settings:    settings,
		game:        game,
		rng:         rng,
		recorder:    replay.NewRecorder(cfg.SessionID, protocol.GameTicTacToe, seed, protocol.LobbySettings{TicTacToe: &settings}, identities, startedMs),
		logger:      logger,
		moves:       make(chan tttMove, 8),
		disconnects: make(chan core.PlayerID, 2),
		stop:        make(chan struct{}),
	}, nil
}

// SubmitMove hands a placement to the session task.
func (s *tttSession) SubmitMove(player core.PlayerID, x, y int) {
	select {
	case s.moves <- tttMove{player: player, x: x, y: y}:
	default:
	}
}

// SubmitDisconnect ends the match in the opponent's favor.
func (s *tttSession) SubmitDisconnect(player core.PlayerID) {
	select {
	case s.disconnects <- player:
	default:
	}
}

// Stop aborts the loop without a game-over notification.
func (s *tttSession) Stop() {
	close(s.stop)
}

// Run alternates broadcast, bot turns and awaiting human moves until the
// game reaches a terminal state.
func (s *tttSession) Run(b *Broadcaster) (*protocol.GameOverNotification, *replay.ReplayV1) {
	recipients := s.cfg.AllRecipients()

	for {
		b.BroadcastToClients(recipients, protocol.ServerMessage{
			GameState: &protocol.GameStateUpdate{TicTacToe: s.game.ToState(s.cfg.IsBot)},
		})

		if s.game.Status != tictactoe.StatusInProgress || s.disconnected != nil {
			break
		}

		if kind := s.botKindFor(s.game.CurrentPlayer); kind != nil {
			s.playBotTurn(*kind)
			continue
		}

		select {
		case <-s.stop:
			return nil, nil
		case player := <-s.disconnects:
			p := player
			s.disconnected = &p
			if idx, ok := s.recorder.FindPlayerIndex(player); ok {
				s.recorder.RecordDisconnect(int64(s.recorder.ActionsCount()), idx)
			}
		case move := <-s.moves:
			s.applyMove(b, move)
		}
	}

	notification := s.buildGameOver()
	artifact := s.recorder.Finalize()
	return notification, &artifact
}

func (s *tttSession) applyMove(b *Broadcaster, move tttMove) {
	turn := int64(s.recorder.ActionsCount())
	if err := s.game.PlaceMark(move.player, move.x, move.y); err != nil {
		s.logger.Debug("rejected tictactoe move", "session", s.cfg.SessionID,
			"player", move.player, "error", err)
		b.SendToClient(core.ClientID(move.player), protocol.ServerMessage{
			Error: &protocol.ErrorResponse{Code: protocol.ErrUnspecified, Message: err.Error()},
		})
		return
	}

	if idx, ok := s.recorder.FindPlayerIndex(move.player); ok {
		s.recorder.RecordCommand(turn, idx, protocol.InGameCommand{
			TicTacToe: &protocol.TicTacToeCommand{Place: &protocol.PlaceMarkCommand{X: move.x, Y: move.y}},
		})
	}
}

func (s *tttSession) botKindFor(player core.PlayerID) *protocol.TicTacToeBotKind {
	for botID, kind := range s.cfg.Bots {
		if botID.PlayerID() == player && kind.TicTacToe != nil {
			return kind.TicTacToe
		}
	}
	return nil
}

// playBotTurn computes and commits the bot's move. The minimax search runs
// on a board copy so the engine is untouched until the commit; the random
// bot draws from the session RNG.
func (s *tttSession) playBotTurn(kind protocol.TicTacToeBotKind) {
	player := s.game.CurrentPlayer
	input := tictactoe.BotInputFromGame(s.game)

	var move *core.Point
	switch kind {
	case protocol.TicTacToeBotMinimax:
		// Long-running on large boards; the input copy keeps the engine
		// free for queries while the search runs.
		done := make(chan *core.Point, 1)
		go func() { done <- tictactoe.CalculateMinimaxMove(input) }()
		select {
		case move = <-done:
		case <-s.stop:
			return
		}
	default:
		move = tictactoe.CalculateMove(kind, input, s.rng)
	}

	if move == nil {
		return
	}

	turn := int64(s.recorder.ActionsCount())
	if err := s.game.PlaceMark(player, move.X, move.Y); err != nil {
		s.logger.Error("bot produced an invalid move", "session", s.cfg.SessionID,
			"player", player, "error", err)
		return
	}
	if idx, ok := s.recorder.FindPlayerIndex(player); ok {
		s.recorder.RecordCommand(turn, idx, protocol.InGameCommand{
			TicTacToe: &protocol.TicTacToeCommand{Place: &protocol.PlaceMarkCommand{X: move.X, Y: move.Y}},
		})
	}
}

func (s *tttSession) buildGameOver() *protocol.GameOverNotification {
	var winner *core.PlayerIdentity
	reason := "draw"

	if s.disconnected != nil {
		reason = "opponent_disconnected"
		other := s.game.PlayerX
		if other == *s.disconnected {
			other = s.game.PlayerO
		}
		winner = &core.PlayerIdentity{PlayerID: other, IsBot: s.cfg.IsBot(other)}
	} else if w := s.game.Winner(); w != nil {
		reason = "win"
		winner = &core.PlayerIdentity{PlayerID: *w, IsBot: s.cfg.IsBot(*w)}
	}

	scores := make([]protocol.ScoreEntry, 0, 2)
	for _, player := range []core.PlayerID{s.game.PlayerX, s.game.PlayerO} {
		score := 0
		if winner != nil && winner.PlayerID == player {
			score = 1
		}
		scores = append(scores, protocol.ScoreEntry{
			Identity: core.PlayerIdentity{PlayerID: player, IsBot: s.cfg.IsBot(player)},
			Score:    score,
		})
	}

	return &protocol.GameOverNotification{
		Scores: scores,
		Winner: winner,
		GameInfo: protocol.GameEndInfo{
			TicTacToe: &protocol.TicTacToeGameEndInfo{
				Reason:      reason,
				WinningLine: s.game.WinningLine(),
			},
		},
	}
}
