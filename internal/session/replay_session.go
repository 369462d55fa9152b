package session

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/games/numbers"
	"github.com/vovakirdan/arcade-online/internal/games/snake"
	"github.com/vovakirdan/arcade-online/internal/games/stackattack"
	"github.com/vovakirdan/arcade-online/internal/games/t2048"
	"github.com/vovakirdan/arcade-online/internal/games/tictactoe"
	"github.com/vovakirdan/arcade-online/internal/protocol"
	"github.com/vovakirdan/arcade-online/internal/replay"
)

const (
	minReplaySpeed = 0.25
	maxReplaySpeed = 4.0
	// Synthetic pacing for turn-based playback at 1x speed.
	turnBasedDelayMs = 500
	// Highlight phase before a Numbers-Match pair is committed.
	highlightDelayMs = 350
)

type replayControl struct {
	from core.ClientID
	cmd  protocol.ReplayControlCommand
}

// replaySession replays a recorded artifact for a viewer audience. Its
// output stream has the same state-update shape as a live session, plus a
// ReplayState notification, and it honors pause/resume/speed/step/restart
// controls.
type replaySession struct {
	sessionID       core.SessionID
	artifact        replay.ReplayV1
	viewers         []core.ClientID
	hostID          core.ClientID
	hostOnlyControl bool
	logger          *log.Logger

	commands chan replayControl
	stop     chan struct{}
}

func newReplaySession(sessionID core.SessionID, artifact replay.ReplayV1, viewers []core.ClientID, host core.ClientID, hostOnlyControl bool, logger *log.Logger) *replaySession {
	return &replaySession{
		sessionID:       sessionID,
		artifact:        artifact,
		viewers:         viewers,
		hostID:          host,
		hostOnlyControl: hostOnlyControl,
		logger:          logger,
		commands:        make(chan replayControl, 16),
		stop:            make(chan struct{}),
	}
}

// SubmitControl hands a playback command to the session. With host-only
// control enabled, commands from other viewers are ignored.
func (s *replaySession) SubmitControl(from core.ClientID, cmd protocol.ReplayControlCommand) {
	if s.hostOnlyControl && from != s.hostID {
		return
	}
	select {
	case s.commands <- replayControl{from: from, cmd: cmd}:
	default:
	}
}

// Stop terminates playback.
func (s *replaySession) Stop() {
	close(s.stop)
}

// Run replays the artifact, restarting from the top whenever a Restart
// command arrives, during playback or after the log is exhausted.
func (s *replaySession) Run(b *Broadcaster) {
	if s.artifact.EngineVersion != core.EngineVersion {
		// Playback proceeds; determinism is only guaranteed on a version
		// match, so the viewer gets a warning instead of silent drift.
		s.logger.Warn("replay engine version mismatch",
			"session", s.sessionID,
			"replay", s.artifact.EngineVersion,
			"server", core.EngineVersion)
		b.BroadcastToClients(s.viewers, protocol.ServerMessage{
			Error: &protocol.ErrorResponse{
				Code:    protocol.ErrUnspecified,
				Message: "replay was recorded by engine " + s.artifact.EngineVersion + "; playback may diverge",
			},
		})
	}

	for {
		player := replay.NewPlayer(s.artifact)

		var restart bool
		switch s.artifact.Game {
		case protocol.GameSnake:
			restart = s.runSnake(b, player)
		case protocol.GameTicTacToe:
			restart = s.runTicTacToe(b, player)
		case protocol.GameNumbers:
			restart = s.runNumbers(b, player)
		case protocol.GameStackAttack:
			restart = s.runStackAttack(b, player)
		case protocol.GamePuzzle2048:
			restart = s.runPuzzle2048(b, player)
		default:
			s.logger.Error("replay has unknown game kind", "game", s.artifact.Game)
			return
		}

		if !restart {
			return
		}
	}
}

// playback holds the mutable control state shared by all runners.
type playback struct {
	isPaused bool
	speed    float32
}

type controlResult int

const (
	controlNone controlResult = iota
	controlStateChanged
	controlSpeedChanged
	controlStepForward
	controlRestart
)

func (p *playback) handle(cmd protocol.ReplayControlCommand) controlResult {
	switch {
	case cmd.Pause != nil:
		p.isPaused = true
		return controlStateChanged
	case cmd.Resume != nil:
		p.isPaused = false
		return controlStateChanged
	case cmd.SetSpeed != nil:
		speed := cmd.SetSpeed.Speed
		if speed < minReplaySpeed {
			speed = minReplaySpeed
		} else if speed > maxReplaySpeed {
			speed = maxReplaySpeed
		}
		p.speed = speed
		return controlSpeedChanged
	case cmd.StepForward != nil:
		if p.isPaused {
			return controlStepForward
		}
		return controlNone
	case cmd.Restart != nil:
		return controlRestart
	default:
		return controlNone
	}
}

func (s *replaySession) broadcast(b *Broadcaster, state *protocol.GameStateUpdate, p *playback, current, total uint64, finished bool) {
	b.BroadcastToClients(s.viewers, protocol.ServerMessage{GameState: state})
	b.BroadcastToClients(s.viewers, protocol.ServerMessage{ReplayState: &protocol.ReplayStateNotification{
		IsPaused:        p.isPaused,
		CurrentTick:     current,
		TotalTicks:      total,
		Speed:           p.speed,
		IsFinished:      finished,
		HostOnlyControl: s.hostOnlyControl,
	}})
}

// awaitRestart blocks after the log is exhausted until a Restart arrives
// (true) or the session stops (false).
func (s *replaySession) awaitRestart() bool {
	for {
		select {
		case <-s.stop:
			return false
		case ctl := <-s.commands:
			if ctl.cmd.Restart != nil {
				return true
			}
		}
	}
}

func (s *replaySession) runSnake(b *Broadcaster, player *replay.Player) bool {
	settings := player.Settings().Snake
	if settings == nil {
		s.logger.Error("snake replay carries no snake settings", "session", s.sessionID)
		return false
	}

	game := snake.New(*settings)
	identities := player.Players()
	for idx, identity := range identities {
		pos := snake.StartPosition(idx, len(identities), settings.FieldWidth, settings.FieldHeight)
		game.AddSnake(identity.PlayerID, pos, core.DirUp)
	}
	isBot := identityBotLookup(identities)

	rng := core.NewSessionRng(player.Seed())
	p := &playback{speed: 1.0}
	totalTicks := player.TotalTicks()
	var tick uint64

	interval := time.Duration(settings.TickIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	step := func() bool {
		for _, action := range player.ActionsForTick(int64(tick)) {
			applySnakeAction(game, action, identities)
		}
		game.Update(rng)
		tick++

		over := game.IsGameOver(len(identities))
		finished := over || player.IsFinished() && tick >= totalTicks
		state := game.ToState(minU64(tick, totalTicks), settings.TickIntervalMs, isBot)
		s.broadcast(b, &protocol.GameStateUpdate{Snake: state}, p, minU64(tick, totalTicks), totalTicks, finished)
		return finished
	}

	state := game.ToState(0, settings.TickIntervalMs, isBot)
	s.broadcast(b, &protocol.GameStateUpdate{Snake: state}, p, 0, totalTicks, false)

	for {
		select {
		case <-s.stop:
			return false
		case <-ticker.C:
			if p.isPaused {
				continue
			}
			if step() {
				return s.awaitRestart()
			}
		case ctl := <-s.commands:
			switch p.handle(ctl.cmd) {
			case controlStateChanged:
				state := game.ToState(tick, settings.TickIntervalMs, isBot)
				s.broadcast(b, &protocol.GameStateUpdate{Snake: state}, p, tick, totalTicks, false)
			case controlSpeedChanged:
				ticker.Reset(time.Duration(float32(interval) / p.speed))
			case controlStepForward:
				if step() {
					return s.awaitRestart()
				}
			case controlRestart:
				return true
			}
		}
	}
}

func (s *replaySession) runStackAttack(b *Broadcaster, player *replay.Player) bool {
	identities := player.Players()
	players := make([]core.PlayerID, len(identities))
	for i, identity := range identities {
		players[i] = identity.PlayerID
	}
	isBot := identityBotLookup(identities)

	game := stackattack.New(players)
	rng := core.NewSessionRng(player.Seed())
	p := &playback{speed: 1.0}
	totalTicks := player.TotalTicks()
	var tick uint64

	interval := stackattack.TickIntervalMs * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	step := func() bool {
		for _, action := range player.ActionsForTick(int64(tick)) {
			applyStackAction(game, action, identities)
		}
		game.Update(rng)
		tick++

		finished := game.IsGameOver() || player.IsFinished() && tick >= totalTicks
		state := game.ToState(minU64(tick, totalTicks), isBot)
		s.broadcast(b, &protocol.GameStateUpdate{StackAttack: state}, p, minU64(tick, totalTicks), totalTicks, finished)
		return finished
	}

	s.broadcast(b, &protocol.GameStateUpdate{StackAttack: game.ToState(0, isBot)}, p, 0, totalTicks, false)

	for {
		select {
		case <-s.stop:
			return false
		case <-ticker.C:
			if p.isPaused {
				continue
			}
			if step() {
				return s.awaitRestart()
			}
		case ctl := <-s.commands:
			switch p.handle(ctl.cmd) {
			case controlStateChanged:
				s.broadcast(b, &protocol.GameStateUpdate{StackAttack: game.ToState(tick, isBot)}, p, tick, totalTicks, false)
			case controlSpeedChanged:
				ticker.Reset(time.Duration(float32(interval) / p.speed))
			case controlStepForward:
				if step() {
					return s.awaitRestart()
				}
			case controlRestart:
				return true
			}
		}
	}
}

func (s *replaySession) runTicTacToe(b *Broadcaster, player *replay.Player) bool {
	settings := player.Settings().TicTacToe
	if settings == nil {
		s.logger.Error("tictactoe replay carries no settings", "session", s.sessionID)
		return false
	}

	identities := player.Players()
	if len(identities) != 2 {
		s.logger.Error("tictactoe replay needs 2 players", "have", len(identities))
		return false
	}
	players := []core.PlayerID{identities[0].PlayerID, identities[1].PlayerID}
	isBot := identityBotLookup(identities)

	rng := core.NewSessionRng(player.Seed())
	game, err := tictactoe.New(*settings, players, rng)
	if err != nil {
		s.logger.Error("cannot rebuild tictactoe engine", "error", err)
		return false
	}

	p := &playback{speed: 1.0}
	total := uint64(player.TotalActions())
	var current uint64

	step := func() bool {
		if action := player.NextAction(); action != nil {
			applyTicTacToeAction(game, action, identities)
			current++
		}
		finished := player.IsFinished() || game.Status != tictactoe.StatusInProgress
		s.broadcast(b, &protocol.GameStateUpdate{TicTacToe: game.ToState(isBot)}, p, current, total, finished)
		return finished
	}

	s.broadcast(b, &protocol.GameStateUpdate{TicTacToe: game.ToState(isBot)}, p, 0, total, false)

	for {
		delay := time.Duration(float32(turnBasedDelayMs)/p.speed) * time.Millisecond

		select {
		case <-s.stop:
			return false
		case <-time.After(delay):
			if p.isPaused {
				continue
			}
			if step() {
				return s.awaitRestart()
			}
		case ctl := <-s.commands:
			switch p.handle(ctl.cmd) {
			case controlStateChanged:
				s.broadcast(b, &protocol.GameStateUpdate{TicTacToe: game.ToState(isBot)}, p, current, total, false)
			case controlStepForward:
				if step() {
					return s.awaitRestart()
				}
			case controlRestart:
				return true
			}
		}
	}
}

func (s *replaySession) runPuzzle2048(b *Broadcaster, player *replay.Player) bool {
	settings := player.Settings().Puzzle2048
	if settings == nil {
		s.logger.Error("2048 replay carries no settings", "session", s.sessionID)
		return false
	}

	rng := core.NewSessionRng(player.Seed())
	game := t2048.New(*settings, rng)

	p := &playback{speed: 1.0}
	total := uint64(player.TotalActions())
	var current uint64

	step := func() bool {
		if action := player.NextAction(); action != nil {
			if cmd := action.Command; cmd != nil && cmd.Puzzle2048 != nil && cmd.Puzzle2048.Move != nil {
				game.ApplyMove(cmd.Puzzle2048.Move.Direction, rng)
			}
			current++
		}
		finished := player.IsFinished() || game.Status() != t2048.StatusInProgress
		s.broadcast(b, &protocol.GameStateUpdate{Puzzle2048: game.ToState()}, p, current, total, finished)
		return finished
	}

	s.broadcast(b, &protocol.GameStateUpdate{Puzzle2048: game.ToState()}, p, 0, total, false)

	for {
		delay := time.Duration(float32(turnBasedDelayMs)/p.speed) * time.Millisecond

		select {
		case <-s.stop:
			return false
		case <-time.After(delay):
			if p.isPaused {
				continue
			}
			if step() {
				return s.awaitRestart()
			}
		case ctl := <-s.commands:
			switch p.handle(ctl.cmd) {
			case controlStateChanged:
				s.broadcast(b, &protocol.GameStateUpdate{Puzzle2048: game.ToState()}, p, current, total, false)
			case controlStepForward:
				if step() {
					return s.awaitRestart()
				}
			case controlRestart:
				return true
			}
		}
	}
}

func (s *replaySession) runNumbers(b *Broadcaster, player *replay.Player) bool {
	settings := player.Settings().Numbers
	if settings == nil {
		s.logger.Error("numbers replay carries no settings", "session", s.sessionID)
		return false
	}

	rng := core.NewSessionRng(player.Seed())
	game := numbers.New(rng, settings.HintMode)

	p := &playback{speed: 1.0}
	total := uint64(player.TotalActions())
	var current uint64

	// Two-phase cadence: before a RemovePair commits, the pair is shown as
	// a highlight for a beat, mirroring the live client's animation.
	highlight := func() {
		next := player.PeekAction()
		if next == nil || next.Command == nil || next.Command.Numbers == nil || next.Command.Numbers.RemovePair == nil {
			return
		}
		rp := next.Command.Numbers.RemovePair
		state := game.ToState()
		state.CurrentHint = &protocol.NumbersHint{Pair: &protocol.RemovePairCommand{
			FirstIndex:  rp.FirstIndex,
			SecondIndex: rp.SecondIndex,
		}}
		s.broadcast(b, &protocol.GameStateUpdate{Numbers: state}, p, current, total, false)

		select {
		case <-s.stop:
		case <-time.After(time.Duration(float32(highlightDelayMs)/p.speed) * time.Millisecond):
		}
	}

	step := func() bool {
		highlight()
		if action := player.NextAction(); action != nil {
			applyNumbersAction(game, action)
			current++
		}
		finished := player.IsFinished() || game.Status() != numbers.StatusInProgress
		s.broadcast(b, &protocol.GameStateUpdate{Numbers: game.ToState()}, p, current, total, finished)
		return finished
	}

	s.broadcast(b, &protocol.GameStateUpdate{Numbers: game.ToState()}, p, 0, total, false)

	for {
		delay := time.Duration(float32(turnBasedDelayMs)/p.speed) * time.Millisecond

		select {
		case <-s.stop:
			return false
		case <-time.After(delay):
			if p.isPaused {
				continue
			}
			if step() {
				return s.awaitRestart()
			}
		case ctl := <-s.commands:
			switch p.handle(ctl.cmd) {
			case controlStateChanged:
				s.broadcast(b, &protocol.GameStateUpdate{Numbers: game.ToState()}, p, current, total, false)
			case controlStepForward:
				if step() {
					return s.awaitRestart()
				}
			case controlRestart:
				return true
			}
		}
	}
}

func applySnakeAction(game *snake.Game, action replay.PlayerAction, identities []core.PlayerIdentity) {
	if action.PlayerIndex < 0 || action.PlayerIndex >= len(identities) {
		return
	}
	player := identities[action.PlayerIndex].PlayerID

	if action.Disconnected {
		game.KillSnake(player, snake.DeathPlayerDisconnected)
		return
	}
	if cmd := action.Command; cmd != nil && cmd.Snake != nil && cmd.Snake.Turn != nil {
		game.SetDirection(player, cmd.Snake.Turn.Direction)
	}
}

func applyStackAction(game *stackattack.Game, action replay.PlayerAction, identities []core.PlayerIdentity) {
	if action.PlayerIndex < 0 || action.PlayerIndex >= len(identities) {
		return
	}
	player := identities[action.PlayerIndex].PlayerID

	if action.Disconnected {
		game.HandlePlayerDisconnect()
		return
	}
	if cmd := action.Command; cmd != nil && cmd.StackAttack != nil {
		switch {
		case cmd.StackAttack.Move != nil:
			game.HandleMove(player, cmd.StackAttack.Move.Direction)
		case cmd.StackAttack.Jump != nil:
			game.HandleJump(player)
		}
	}
}

func applyTicTacToeAction(game *tictactoe.Game, action *replay.PlayerAction, identities []core.PlayerIdentity) {
	if action.PlayerIndex < 0 || action.PlayerIndex >= len(identities) {
		return
	}
	player := identities[action.PlayerIndex].PlayerID

	if cmd := action.Command; cmd != nil && cmd.TicTacToe != nil && cmd.TicTacToe.Place != nil {
		// Replayed moves were valid when recorded; a failure here means a
		// version mismatch already warned about.
		_ = game.PlaceMark(player, cmd.TicTacToe.Place.X, cmd.TicTacToe.Place.Y)
	}
}

func applyNumbersAction(game *numbers.Game, action *replay.PlayerAction) {
	cmd := action.Command
	if cmd == nil || cmd.Numbers == nil {
		return
	}
	switch {
	case cmd.Numbers.RemovePair != nil:
		_ = game.RemovePair(
			numbers.PositionFromIndex(cmd.Numbers.RemovePair.FirstIndex),
			numbers.PositionFromIndex(cmd.Numbers.RemovePair.SecondIndex),
		)
	case cmd.Numbers.Refill != nil:
		_ = game.Refill()
	case cmd.Numbers.RequestHint != nil:
		_, _ = game.RequestHint()
	}
}

func identityBotLookup(identities []core.PlayerIdentity) func(core.PlayerID) bool {
	bots := make(map[core.PlayerID]bool, len(identities))
	for _, identity := range identities {
		if identity.IsBot {
			bots[identity.PlayerID] = true
		}
	}
	return func(p core.PlayerID) bool { return bots[p] }
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
