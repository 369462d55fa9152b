package session

import (
	"time"

	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/games/snake"
	"github.com/vovakirdan/arcade-online/internal/protocol"
	"github.com/vovakirdan/arcade-online/internal/replay"
)

type snakeTurn struct {
	player core.PlayerID
	dir    core.Direction
}

// snakeSession runs one Snake match. The session goroutine is the single
// writer of the engine; inputs arrive over buffered channels and are
// applied at the top of each tick, which is also when they are recorded,
// so a replay applies them at exactly the same point.
type snakeSession struct {
	cfg      Config
	settings protocol.SnakeSettings
	game     *snake.Game
	rng      *core.SessionRng
	recorder *replay.Recorder
	tick     uint64

	turns       chan snakeTurn
	disconnects chan core.PlayerID
	stop        chan struct{}
}

func newSnakeSession(cfg Config, settings protocol.SnakeSettings, seed uint64, startedMs int64) *snakeSession {
	game := snake.New(settings)

	identities := cfg.AllPlayers()
	for idx, identity := range identities {
		pos := snake.StartPosition(idx, len(identities), settings.FieldWidth, settings.FieldHeight)
		game.AddSnake(identity.PlayerID, pos, core.DirUp)
	}

	return &snakeSession{
		cfg:      cfg,
		settings: settings,
		game:     game,
		rng:      core.NewSessionRng(seed),
		recorder: replay.NewRecorder(cfg.SessionID, protocol.GameSnake, seed, protocol.LobbySettings{Snake: &settings}, identities, startedMs),
		turns:    make(chan snakeTurn, 64),
		// One slot per possible participant is plenty.
		disconnects: make(chan core.PlayerID, 16),
		stop:        make(chan struct{}),
	}
}

// SubmitTurn hands a direction change to the session. Non-blocking; under
// load the oldest queued turns still win because the engine coalesces per
// tick.
func (s *snakeSession) SubmitTurn(player core.PlayerID, dir core.Direction) {
	select {
	case s.turns <- snakeTurn{player: player, dir: dir}:
	default:
	}
}

// SubmitDisconnect schedules a durable disconnect kill before the next
// tick.
func (s *snakeSession) SubmitDisconnect(player core.PlayerID) {
	select {
	case s.disconnects <- player:
	default:
	}
}

// Stop aborts the loop without a game-over notification.
func (s *snakeSession) Stop() {
	close(s.stop)
}

// Run drives the tick loop until the end-of-match rule fires, then returns
// the game-over summary and the finalized replay artifact.
func (s *snakeSession) Run(b *Broadcaster) (*protocol.GameOverNotification, *replay.ReplayV1) {
	initialPlayers := len(s.cfg.HumanPlayers) + len(s.cfg.Bots)
	interval := time.Duration(s.settings.TickIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	recipients := s.cfg.AllRecipients()

	for {
		select {
		case <-s.stop:
			return nil, nil
		case <-ticker.C:
		}

		s.drainInputs()
		s.applyBotMoves()

		s.game.Update(s.rng)
		s.tick++

		state := s.game.ToState(s.tick, s.settings.TickIntervalMs, s.cfg.IsBot)
		b.BroadcastToClients(recipients, protocol.ServerMessage{
			GameState: &protocol.GameStateUpdate{Snake: state},
		})

		if s.game.IsGameOver(initialPlayers) {
			break
		}
	}

	notification := s.buildGameOver()
	artifact := s.recorder.Finalize()
	return notification, &artifact
}

// drainInputs applies every queued turn and disconnect at the top of the
// tick. Multiple turns per player coalesce to the last valid one inside
// the engine.
func (s *snakeSession) drainInputs() {
	for {
		select {
		case turn := <-s.turns:
			s.game.SetDirection(turn.player, turn.dir)
			if idx, ok := s.recorder.FindPlayerIndex(turn.player); ok {
				s.recorder.RecordCommand(int64(s.tick), idx, protocol.InGameCommand{
					Snake: &protocol.SnakeCommand{Turn: &protocol.TurnCommand{Direction: turn.dir}},
				})
			}
		case player := <-s.disconnects:
			s.game.KillSnake(player, snake.DeathPlayerDisconnected)
			if idx, ok := s.recorder.FindPlayerIndex(player); ok {
				s.recorder.RecordDisconnect(int64(s.tick), idx)
			}
		default:
			return
		}
	}
}

func (s *snakeSession) applyBotMoves() {
	for _, botID := range s.cfg.SortedBots() {
		kind := s.cfg.Bots[botID]
		if kind.Snake == nil {
			continue
		}
		player := botID.PlayerID()
		if dir := snake.CalculateBotMove(*kind.Snake, player, s.game); dir != nil {
			s.game.SetDirection(player, *dir)
			if idx, ok := s.recorder.FindPlayerIndex(player); ok {
				s.recorder.RecordCommand(int64(s.tick), idx, protocol.InGameCommand{
					Snake: &protocol.SnakeCommand{Turn: &protocol.TurnCommand{Direction: *dir}},
				})
			}
		}
	}
}

func (s *snakeSession) buildGameOver() *protocol.GameOverNotification {
	scores := make([]protocol.ScoreEntry, 0, len(s.game.Snakes))
	var winner *core.PlayerIdentity

	for _, player := range s.game.PlayerOrder() {
		snk := s.game.Snakes[player]
		identity := core.PlayerIdentity{PlayerID: player, IsBot: s.cfg.IsBot(player)}
		scores = append(scores, protocol.ScoreEntry{Identity: identity, Score: snk.Score})
		if snk.Alive() && winner == nil {
			w := identity
			winner = &w
		}
	}

	reason := "game_completed"
	if s.game.GameEndReason != nil {
		reason = string(*s.game.GameEndReason)
	}

	return &protocol.GameOverNotification{
		Scores: scores,
		Winner: winner,
		GameInfo: protocol.GameEndInfo{
			Snake: &protocol.SnakeGameEndInfo{Reason: reason},
		},
	}
}
