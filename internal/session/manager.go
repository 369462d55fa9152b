package session

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/lobby"
	"github.com/vovakirdan/arcade-online/internal/protocol"
	"github.com/vovakirdan/arcade-online/internal/replay"
)

// MatchResult is the persistence record of a finished match.
type MatchResult struct {
	SessionID core.SessionID
	Game      protocol.GameKind
	Winner    string
	EndReason string
	TopScore  int
	Players   int
}

// MatchResultSaver persists finished matches. Saves are best-effort and
// never block a game.
type MatchResultSaver interface {
	SaveMatchResult(result MatchResult) error
}

// sessionHandle is the tagged variant over live and replay sessions.
// Exactly one field is non-nil.
type sessionHandle struct {
	game   protocol.GameKind
	snake  *snakeSession
	ttt    *tttSession
	solo   *soloSession
	stack  *stackSession
	replay *replaySession
}

// Manager creates, tracks, routes commands to and retires sessions. Two
// mappings under one lock: session id to handle, client id to session id.
type Manager struct {
	mu              sync.Mutex
	sessions        map[core.SessionID]*sessionHandle
	clientToSession map[core.ClientID]core.SessionID

	broadcaster *Broadcaster
	lobbies     *lobby.Manager
	logger      *log.Logger
	saver       MatchResultSaver

	seedFn func() uint64
	nowFn  func() time.Time
}

// NewManager wires the session manager to its collaborators. saver may be
// nil.
func NewManager(b *Broadcaster, lobbies *lobby.Manager, logger *log.Logger, saver MatchResultSaver) *Manager {
	return &Manager{
		sessions:        make(map[core.SessionID]*sessionHandle),
		clientToSession: make(map[core.ClientID]core.SessionID),
		broadcaster:     b,
		lobbies:         lobbies,
		logger:          logger,
		saver:           saver,
		seedFn:          randomSeed,
		nowFn:           time.Now,
	}
}

func randomSeed() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// CreateSession promotes a started lobby into a running game session.
func (m *Manager) CreateSession(id core.SessionID) error {
	snapshot, err := m.lobbies.Snapshot(core.LobbyID(id))
	if err != nil {
		return err
	}
	settings := snapshot.Settings
	game, err := settings.Game()
	if err != nil {
		return err
	}

	cfg := Config{
		SessionID:    id,
		Host:         snapshot.Host,
		HumanPlayers: snapshot.Players,
		Observers:    snapshot.Observers,
		Bots:         snapshot.Bots,
	}
	seed := m.seedFn()
	startedMs := m.nowFn().UnixMilli()

	handle := &sessionHandle{game: game}
	var run func() (*protocol.GameOverNotification, *replay.ReplayV1)

	switch game {
	case protocol.GameSnake:
		s := newSnakeSession(cfg, *settings.Snake, seed, startedMs)
		handle.snake = s
		run = func() (*protocol.GameOverNotification, *replay.ReplayV1) { return s.Run(m.broadcaster) }
	case protocol.GameTicTacToe:
		s, err := newTTTSession(cfg, *settings.TicTacToe, seed, startedMs, m.logger)
		if err != nil {
			return err
		}
		handle.ttt = s
		run = func() (*protocol.GameOverNotification, *replay.ReplayV1) { return s.Run(m.broadcaster) }
	case protocol.GameNumbers:
		s := newNumbersSession(cfg, *settings.Numbers, seed, startedMs, m.logger)
		handle.solo = s
		run = func() (*protocol.GameOverNotification, *replay.ReplayV1) { return s.Run(m.broadcaster) }
	case protocol.GamePuzzle2048:
		s := newPuzzle2048Session(cfg, *settings.Puzzle2048, seed, startedMs, m.logger)
		handle.solo = s
		run = func() (*protocol.GameOverNotification, *replay.ReplayV1) { return s.Run(m.broadcaster) }
	case protocol.GameStackAttack:
		s := newStackSession(cfg, seed, startedMs)
		handle.stack = s
		run = func() (*protocol.GameOverNotification, *replay.ReplayV1) { return s.Run(m.broadcaster) }
	default:
		return fmt.Errorf("unknown game kind %q", game)
	}

	m.mu.Lock()
	m.sessions[id] = handle
	for _, player := range cfg.HumanPlayers {
		m.clientToSession[core.ClientID(player)] = id
	}
	m.mu.Unlock()

	m.logger.Info("game session created", "session", id, "game", game,
		"players", len(cfg.HumanPlayers), "bots", len(cfg.Bots), "observers", len(cfg.Observers))

	go func() {
		notification, artifact := run()
		m.finishSession(cfg, game, handle, notification, artifact)
	}()

	return nil
}

// finishSession runs the game-over path: summary + replay artifact to the
// audience, lobby reset, play-again status, persistence, retirement.
func (m *Manager) finishSession(cfg Config, game protocol.GameKind, handle *sessionHandle, notification *protocol.GameOverNotification, artifact *replay.ReplayV1) {
	// A play-again rematch may reuse the session id before this goroutine
	// unwinds, so retirement is ownership-checked.
	defer m.removeOwnedSession(cfg.SessionID, handle)

	if notification == nil {
		// Stopped externally; nothing to announce.
		return
	}

	recipients := cfg.AllRecipients()
	m.broadcaster.BroadcastToClients(recipients, protocol.ServerMessage{GameOver: notification})

	if artifact != nil {
		if data, err := replay.Encode(*artifact); err != nil {
			m.logger.Error("cannot encode replay artifact", "session", cfg.SessionID, "error", err)
		} else {
			m.broadcaster.BroadcastToClients(recipients, protocol.ServerMessage{
				ReplayFile: &protocol.ReplayFileNotification{
					SuggestedFileName: replay.Filename(game, m.nowFn()),
					Content:           data,
				},
			})
		}
	}

	if m.saver != nil {
		result := MatchResult{
			SessionID: cfg.SessionID,
			Game:      game,
			EndReason: endReasonOf(notification),
			Players:   len(cfg.HumanPlayers) + len(cfg.Bots),
		}
		if notification.Winner != nil {
			result.Winner = string(notification.Winner.PlayerID)
		}
		for _, entry := range notification.Scores {
			if entry.Score > result.TopScore {
				result.TopScore = entry.Score
			}
		}
		go func() {
			if err := m.saver.SaveMatchResult(result); err != nil {
				m.logger.Warn("cannot persist match result", "session", result.SessionID, "error", err)
			}
		}()
	}

	lobbyID := core.LobbyID(cfg.SessionID)
	if _, err := m.lobbies.EndGame(lobbyID); err != nil {
		// The lobby is gone (host left mid-game); the summary already went
		// out, so there is nothing left to reset.
		m.logger.Debug("no lobby to end", "session", cfg.SessionID, "error", err)
		return
	}

	status, err := m.lobbies.PlayAgainStatusFor(lobbyID)
	if err != nil {
		return
	}
	m.broadcaster.BroadcastToClients(recipients, protocol.ServerMessage{
		PlayAgainStatus: playAgainToWire(status),
	})
}

func endReasonOf(n *protocol.GameOverNotification) string {
	switch {
	case n.GameInfo.Snake != nil:
		return n.GameInfo.Snake.Reason
	case n.GameInfo.TicTacToe != nil:
		return n.GameInfo.TicTacToe.Reason
	case n.GameInfo.StackAttack != nil:
		return n.GameInfo.StackAttack.Reason
	case n.GameInfo.Numbers != nil:
		return "completed"
	case n.GameInfo.Puzzle2048 != nil:
		return "completed"
	default:
		return "unspecified"
	}
}

// playAgainToWire converts the lobby manager's status to its notification.
func playAgainToWire(status lobby.PlayAgainStatus) *protocol.PlayAgainStatusNotification {
	n := &protocol.PlayAgainStatusNotification{
		Available:      status.Available,
		ReadyPlayers:   make([]core.PlayerIdentity, 0, len(status.Ready)),
		PendingPlayers: make([]core.PlayerIdentity, 0, len(status.Pending)),
	}
	for _, p := range status.Ready {
		n.ReadyPlayers = append(n.ReadyPlayers, core.PlayerIdentity{PlayerID: p})
	}
	for _, p := range status.Pending {
		n.PendingPlayers = append(n.PendingPlayers, core.PlayerIdentity{PlayerID: p})
	}
	return n
}

// HandleCommand routes an in-game command to the caller's session.
func (m *Manager) HandleCommand(client core.ClientID, cmd protocol.InGameCommand) error {
	handle, err := m.sessionOf(client)
	if err != nil {
		return err
	}
	player := client.PlayerID()

	switch {
	case handle.snake != nil:
		if cmd.Snake == nil || cmd.Snake.Turn == nil {
			return errWrongGame
		}
		handle.snake.SubmitTurn(player, cmd.Snake.Turn.Direction)
	case handle.ttt != nil:
		if cmd.TicTacToe == nil || cmd.TicTacToe.Place == nil {
			return errWrongGame
		}
		handle.ttt.SubmitMove(player, cmd.TicTacToe.Place.X, cmd.TicTacToe.Place.Y)
	case handle.solo != nil:
		handle.solo.SubmitCommand(player, cmd)
	case handle.stack != nil:
		if cmd.StackAttack == nil {
			return errWrongGame
		}
		handle.stack.SubmitCommand(player, *cmd.StackAttack)
	default:
		return fmt.Errorf("session accepts no in-game commands")
	}
	return nil
}

// HandleReplayCommand routes a playback control to the caller's replay
// session.
func (m *Manager) HandleReplayCommand(client core.ClientID, cmd protocol.ReplayControlCommand) error {
	handle, err := m.sessionOf(client)
	if err != nil {
		return err
	}
	if handle.replay == nil {
		return fmt.Errorf("not in a replay session")
	}
	handle.replay.SubmitControl(client, cmd)
	return nil
}

// HandlePlayerDisconnect feeds a disconnect into the client's session.
// Idempotent: a second call finds no mapping and does nothing.
func (m *Manager) HandlePlayerDisconnect(client core.ClientID) {
	m.mu.Lock()
	id, ok := m.clientToSession[client]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.clientToSession, client)
	handle, exists := m.sessions[id]
	m.mu.Unlock()

	if !exists {
		return
	}

	player := client.PlayerID()
	switch {
	case handle.snake != nil:
		handle.snake.SubmitDisconnect(player)
	case handle.ttt != nil:
		handle.ttt.SubmitDisconnect(player)
	case handle.solo != nil:
		handle.solo.SubmitDisconnect(player)
	case handle.stack != nil:
		handle.stack.SubmitDisconnect(player)
	case handle.replay != nil:
		// Viewers just drop off the broadcast; playback continues for the
		// rest of the audience.
	}
}

// CreateReplaySession opens a single-viewer playback of an uploaded
// artifact.
func (m *Manager) CreateReplaySession(client core.ClientID, replayBytes []byte, hostOnlyControl bool) (core.SessionID, error) {
	return m.createReplay(client, []core.ClientID{client}, replayBytes, hostOnlyControl)
}

// CreateReplaySessionForGroup opens a watch-together playback for the
// host's whole lobby.
func (m *Manager) CreateReplaySessionForGroup(host core.ClientID, viewers []core.ClientID, replayBytes []byte, hostOnlyControl bool) (core.SessionID, error) {
	return m.createReplay(host, viewers, replayBytes, hostOnlyControl)
}

func (m *Manager) createReplay(host core.ClientID, viewers []core.ClientID, replayBytes []byte, hostOnlyControl bool) (core.SessionID, error) {
	artifact, err := replay.Decode(replayBytes)
	if err != nil {
		return "", err
	}

	id := core.SessionID("replay_" + uuid.NewString()[:8])
	s := newReplaySession(id, artifact, viewers, host, hostOnlyControl, m.logger)

	m.mu.Lock()
	m.sessions[id] = &sessionHandle{game: artifact.Game, replay: s}
	for _, viewer := range viewers {
		m.clientToSession[viewer] = id
	}
	m.mu.Unlock()

	m.logger.Info("replay session created", "session", id, "game", artifact.Game,
		"viewers", len(viewers), "host_only_control", hostOnlyControl)

	go func() {
		s.Run(m.broadcaster)
		m.RemoveSession(id)
	}()

	return id, nil
}

// RemoveSession retires a session and its client routes.
func (m *Manager) RemoveSession(id core.SessionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeSessionLocked(id, nil)
}

// removeOwnedSession retires the session only while the given handle still
// owns the id.
func (m *Manager) removeOwnedSession(id core.SessionID, owner *sessionHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeSessionLocked(id, owner)
}

func (m *Manager) removeSessionLocked(id core.SessionID, owner *sessionHandle) {
	current, exists := m.sessions[id]
	if !exists || (owner != nil && current != owner) {
		return
	}
	delete(m.sessions, id)
	for client, sid := range m.clientToSession {
		if sid == id {
			delete(m.clientToSession, client)
		}
	}
	m.logger.Info("game session removed", "session", id)
}

// Shutdown stops every session without game-over notifications.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	handles := make([]*sessionHandle, 0, len(m.sessions))
	for _, h := range m.sessions {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	for _, h := range handles {
		switch {
		case h.snake != nil:
			h.snake.Stop()
		case h.ttt != nil:
			h.ttt.Stop()
		case h.solo != nil:
			h.solo.Stop()
		case h.stack != nil:
			h.stack.Stop()
		case h.replay != nil:
			h.replay.Stop()
		}
	}
}

// SessionCount reports how many sessions are live, for tests and
// diagnostics.
func (m *Manager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// SessionOfClient resolves a client's session id.
func (m *Manager) SessionOfClient(client core.ClientID) (core.SessionID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.clientToSession[client]
	return id, ok
}

func (m *Manager) sessionOf(client core.ClientID) (*sessionHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.clientToSession[client]
	if !ok {
		return nil, fmt.Errorf("not in a game session")
	}
	handle, exists := m.sessions[id]
	if !exists {
		return nil, fmt.Errorf("session not found")
	}
	return handle, nil
}
