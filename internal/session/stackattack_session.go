package session

import (
	"time"

	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/games/stackattack"
	"github.com/vovakirdan/arcade-online/internal/protocol"
	"github.com/vovakirdan/arcade-online/internal/replay"
)

type stackInput struct {
	player core.PlayerID
	cmd    protocol.StackAttackCommand
}

// stackSession runs one Stack-Attack match: a fixed-interval tick loop over
// the cooperative engine. Commands apply at the top of the tick they
// arrive in, which is also when they are recorded.
type stackSession struct {
	cfg      Config
	game     *stackattack.Game
	rng      *core.SessionRng
	recorder *replay.Recorder
	tick     uint64

	inputs      chan stackInput
	disconnects chan core.PlayerID
	stop        chan struct{}
}

func newStackSession(cfg Config, seed uint64, startedMs int64) *stackSession {
	identities := cfg.AllPlayers()
	players := make([]core.PlayerID, len(identities))
	for i, identity := range identities {
		players[i] = identity.PlayerID
	}

	return &stackSession{
		cfg:         cfg,
		game:        stackattack.New(players),
		rng:         core.NewSessionRng(seed),
		recorder:    replay.NewRecorder(cfg.SessionID, protocol.GameStackAttack, seed, protocol.LobbySettings{StackAttack: &protocol.StackAttackSettings{}}, identities, startedMs),
		inputs:      make(chan stackInput, 64),
		disconnects: make(chan core.PlayerID, 8),
		stop:        make(chan struct{}),
	}
}

// SubmitCommand hands a move or jump to the session task.
func (s *stackSession) SubmitCommand(player core.PlayerID, cmd protocol.StackAttackCommand) {
	select {
	case s.inputs <- stackInput{player: player, cmd: cmd}:
	default:
	}
}

// SubmitDisconnect ends the cooperative game before the next tick.
func (s *stackSession) SubmitDisconnect(player core.PlayerID) {
	select {
	case s.disconnects <- player:
	default:
	}
}

// Stop aborts the loop without a game-over notification.
func (s *stackSession) Stop() {
	close(s.stop)
}

// Run drives the tick loop until the engine reports game over.
func (s *stackSession) Run(b *Broadcaster) (*protocol.GameOverNotification, *replay.ReplayV1) {
	ticker := time.NewTicker(stackattack.TickIntervalMs * time.Millisecond)
	defer ticker.Stop()

	recipients := s.cfg.AllRecipients()

	for {
		select {
		case <-s.stop:
			return nil, nil
		case <-ticker.C:
		}

		s.drainInputs()
		s.game.Update(s.rng)
		s.tick++

		state := s.game.ToState(s.tick, s.cfg.IsBot)
		b.BroadcastToClients(recipients, protocol.ServerMessage{
			GameState: &protocol.GameStateUpdate{StackAttack: state},
		})

		if s.game.IsGameOver() {
			break
		}
	}

	notification := s.buildGameOver()
	artifact := s.recorder.Finalize()
	return notification, &artifact
}

func (s *stackSession) drainInputs() {
	for {
		select {
		case input := <-s.inputs:
			switch {
			case input.cmd.Move != nil:
				s.game.HandleMove(input.player, input.cmd.Move.Direction)
			case input.cmd.Jump != nil:
				s.game.HandleJump(input.player)
			default:
				continue
			}
			if idx, ok := s.recorder.FindPlayerIndex(input.player); ok {
				cmd := input.cmd
				s.recorder.RecordCommand(int64(s.tick), idx, protocol.InGameCommand{StackAttack: &cmd})
			}
		case player := <-s.disconnects:
			s.game.HandlePlayerDisconnect()
			if idx, ok := s.recorder.FindPlayerIndex(player); ok {
				s.recorder.RecordDisconnect(int64(s.tick), idx)
			}
		default:
			return
		}
	}
}

func (s *stackSession) buildGameOver() *protocol.GameOverNotification {
	identities := s.cfg.AllPlayers()
	scores := make([]protocol.ScoreEntry, 0, len(identities))
	for _, identity := range identities {
		scores = append(scores, protocol.ScoreEntry{Identity: identity, Score: s.game.Score})
	}

	reason := "game_over"
	if s.game.GameOverReason != nil {
		reason = string(*s.game.GameOverReason)
	}

	return &protocol.GameOverNotification{
		Scores: scores,
		GameInfo: protocol.GameEndInfo{
			StackAttack: &protocol.StackAttackGameEndInfo{
				Reason:       reason,
				LinesCleared: s.game.LinesCleared,
			},
		},
	}
}
