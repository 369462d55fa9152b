package session

import (
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/games/numbers"
	"github.com/vovakirdan/arcade-online/internal/games/t2048"
	"github.com/vovakirdan/arcade-online/internal/protocol"
	"github.com/vovakirdan/arcade-online/internal/replay"
)

// soloEngine abstracts the two single-player puzzles behind the apply /
// snapshot / status surface the command loop needs.
type soloEngine interface {
	apply(cmd protocol.InGameCommand) error
	toState() *protocol.GameStateUpdate
	finished() bool
	gameOver(cfg Config) *protocol.GameOverNotification
}

// soloSession runs one single-player puzzle: no timer, every accepted
// command ticks the engine, broadcasts the new state and re-checks the
// terminal condition. Observers receive the same stream as the player.
type soloSession struct {
	cfg      Config
	game     protocol.GameKind
	engine   soloEngine
	recorder *replay.Recorder
	logger   *log.Logger

	commands    chan soloCommand
	disconnects chan core.PlayerID
	stop        chan struct{}
	abandoned   bool
}

type soloCommand struct {
	player core.PlayerID
	cmd    protocol.InGameCommand
}

func newNumbersSession(cfg Config, settings protocol.NumbersSettings, seed uint64, startedMs int64, logger *log.Logger) *soloSession {
	rng := core.NewSessionRng(seed)
	engine := &numbersEngine{game: numbers.New(rng, settings.HintMode)}
	return newSoloSession(cfg, protocol.GameNumbers, engine,
		replay.NewRecorder(cfg.SessionID, protocol.GameNumbers, seed, protocol.LobbySettings{Numbers: &settings}, cfg.AllPlayers(), startedMs),
		logger)
}

func newPuzzle2048Session(cfg Config, settings protocol.Puzzle2048Settings, seed uint64, startedMs int64, logger *log.Logger) *soloSession {
	rng := core.NewSessionRng(seed)
	engine := &puzzle2048Engine{game: t2048.New(settings, rng), rng: rng}
	return newSoloSession(cfg, protocol.GamePuzzle2048, engine,
		replay.NewRecorder(cfg.SessionID, protocol.GamePuzzle2048, seed, protocol.LobbySettings{Puzzle2048: &settings}, cfg.AllPlayers(), startedMs),
		logger)
}

func newSoloSession(cfg Config, game protocol.GameKind, engine soloEngine, recorder *replay.Recorder, logger *log.Logger) *soloSession {
	return &soloSession{
		cfg:         cfg,
		game:        game,
		engine:      engine,
		recorder:    recorder,
		logger:      logger,
		commands:    make(chan soloCommand, 16),
		disconnects: make(chan core.PlayerID, 2),
		stop:        make(chan struct{}),
	}
}

// SubmitCommand hands an in-game command to the session task.
func (s *soloSession) SubmitCommand(player core.PlayerID, cmd protocol.InGameCommand) {
	select {
	case s.commands <- soloCommand{player: player, cmd: cmd}:
	default:
	}
}

// SubmitDisconnect abandons the puzzle.
func (s *soloSession) SubmitDisconnect(player core.PlayerID) {
	select {
	case s.disconnects <- player:
	default:
	}
}

// Stop aborts the loop without a game-over notification.
func (s *soloSession) Stop() {
	close(s.stop)
}

// Run applies commands until the puzzle ends or the player leaves.
func (s *soloSession) Run(b *Broadcaster) (*protocol.GameOverNotification, *replay.ReplayV1) {
	recipients := s.cfg.AllRecipients()

	b.BroadcastToClients(recipients, protocol.ServerMessage{GameState: s.engine.toState()})

	for {
		select {
		case <-s.stop:
			return nil, nil
		case player := <-s.disconnects:
			s.abandoned = true
			if idx, ok := s.recorder.FindPlayerIndex(player); ok {
				s.recorder.RecordDisconnect(int64(s.recorder.ActionsCount()), idx)
			}
		case sc := <-s.commands:
			turn := int64(s.recorder.ActionsCount())
			if err := s.engine.apply(sc.cmd); err != nil {
				s.logger.Debug("rejected puzzle command", "session", s.cfg.SessionID,
					"game", s.game, "error", err)
				b.SendToClient(core.ClientID(sc.player), protocol.ServerMessage{
					Error: &protocol.ErrorResponse{Code: protocol.ErrUnspecified, Message: err.Error()},
				})
				continue
			}
			if idx, ok := s.recorder.FindPlayerIndex(sc.player); ok {
				s.recorder.RecordCommand(turn, idx, sc.cmd)
			}
			b.BroadcastToClients(recipients, protocol.ServerMessage{GameState: s.engine.toState()})
		}

		if s.abandoned || s.engine.finished() {
			break
		}
	}

	notification := s.engine.gameOver(s.cfg)
	artifact := s.recorder.Finalize()
	return notification, &artifact
}

// numbersEngine adapts the Numbers-Match engine to the solo loop.
type numbersEngine struct {
	game *numbers.Game
}

func (e *numbersEngine) apply(cmd protocol.InGameCommand) error {
	nc := cmd.Numbers
	if nc == nil {
		return errWrongGame
	}
	switch {
	case nc.RemovePair != nil:
		return e.game.RemovePair(
			numbers.PositionFromIndex(nc.RemovePair.FirstIndex),
			numbers.PositionFromIndex(nc.RemovePair.SecondIndex),
		)
	case nc.Refill != nil:
		return e.game.Refill()
	case nc.RequestHint != nil:
		_, err := e.game.RequestHint()
		return err
	default:
		return errWrongGame
	}
}

func (e *numbersEngine) toState() *protocol.GameStateUpdate {
	return &protocol.GameStateUpdate{Numbers: e.game.ToState()}
}

func (e *numbersEngine) finished() bool {
	return e.game.Status() != numbers.StatusInProgress
}

func (e *numbersEngine) gameOver(cfg Config) *protocol.GameOverNotification {
	identities := cfg.AllPlayers()
	var winner *core.PlayerIdentity
	score := e.game.PairsRemoved()
	if e.game.Status() == numbers.StatusWon && len(identities) > 0 {
		w := identities[0]
		winner = &w
	}

	scores := make([]protocol.ScoreEntry, 0, len(identities))
	for _, identity := range identities {
		scores = append(scores, protocol.ScoreEntry{Identity: identity, Score: score})
	}

	return &protocol.GameOverNotification{
		Scores: scores,
		Winner: winner,
		GameInfo: protocol.GameEndInfo{
			Numbers: &protocol.NumbersGameEndInfo{
				PairsRemoved: e.game.PairsRemoved(),
				RefillsUsed:  e.game.RefillsUsed(),
				HintsUsed:    e.game.HintsUsed(),
			},
		},
	}
}

// puzzle2048Engine adapts the 2048 engine to the solo loop.
type puzzle2048Engine struct {
	game *t2048.Game
	rng  *core.SessionRng
}

func (e *puzzle2048Engine) apply(cmd protocol.InGameCommand) error {
	pc := cmd.Puzzle2048
	if pc == nil || pc.Move == nil {
		return errWrongGame
	}
	if !e.game.ApplyMove(pc.Move.Direction, e.rng) {
		return errNoOpMove
	}
	return nil
}

func (e *puzzle2048Engine) toState() *protocol.GameStateUpdate {
	return &protocol.GameStateUpdate{Puzzle2048: e.game.ToState()}
}

func (e *puzzle2048Engine) finished() bool {
	return e.game.Status() != t2048.StatusInProgress
}

func (e *puzzle2048Engine) gameOver(cfg Config) *protocol.GameOverNotification {
	identities := cfg.AllPlayers()
	var winner *core.PlayerIdentity
	if e.game.Status() == t2048.StatusWon && len(identities) > 0 {
		w := identities[0]
		winner = &w
	}

	scores := make([]protocol.ScoreEntry, 0, len(identities))
	for _, identity := range identities {
		scores = append(scores, protocol.ScoreEntry{Identity: identity, Score: e.game.Score()})
	}

	return &protocol.GameOverNotification{
		Scores: scores,
		Winner: winner,
		GameInfo: protocol.GameEndInfo{
			Puzzle2048: &protocol.Puzzle2048GameEndInfo{
				HighestTile: e.game.HighestTile(),
				MovesMade:   e.game.MovesMade(),
			},
		},
	}
}
