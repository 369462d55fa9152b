package lobby

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/protocol"
)

// LeaveOutcome is the result of a client leaving its lobby.
type LeaveOutcome struct {
	// HostLeft is set when the creator left: the lobby was destroyed and
	// Kicked lists the remaining human members to notify.
	HostLeft bool
	Kicked   []core.ClientID
	// Details holds the updated lobby when it survived the leave.
	Details *protocol.LobbyDetails
	// WasObserver reports the leaver's role.
	WasObserver bool
	LobbyID     core.LobbyID
}

// PlayAgainStatus reports vote progress. Available is false whenever any
// original player is gone.
type PlayAgainStatus struct {
	Available bool
	Ready     []core.PlayerID
	Pending   []core.PlayerID
}

// Manager owns every lobby and the client-to-lobby index. One exclusive
// lock serializes all operations; callers observe effects atomically.
type Manager struct {
	mu sync.Mutex

	lobbies           map[core.LobbyID]*Lobby
	clientToLobby     map[core.ClientID]core.LobbyID
	clientsNotInLobby map[core.ClientID]bool
	nextLobbyID       uint64

	now func() time.Time
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		lobbies:           make(map[core.LobbyID]*Lobby),
		clientToLobby:     make(map[core.ClientID]core.LobbyID),
		clientsNotInLobby: make(map[core.ClientID]bool),
		nextLobbyID:       1,
		now:               time.Now,
	}
}

// AddClient registers a connection. Returns false on a duplicate id: only
// one concurrent connection per client id is allowed.
func (m *Manager) AddClient(client core.ClientID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, inLobby := m.clientToLobby[client]; inLobby {
		return false
	}
	if m.clientsNotInLobby[client] {
		return false
	}

	m.clientsNotInLobby[client] = true
	return true
}

// RemoveClient forgets a disconnected client. Idempotent; the lobby exit
// path is LeaveLobby.
func (m *Manager) RemoveClient(client core.ClientID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clientsNotInLobby, client)
}

// ClientsNotInLobbies lists clients watching the lobby list.
func (m *Manager) ClientsNotInLobbies() []core.ClientID {
	m.mu.Lock()
	defer m.mu.Unlock()

	clients := make([]core.ClientID, 0, len(m.clientsNotInLobby))
	for client := range m.clientsNotInLobby {
		clients = append(clients, client)
	}
	return clients
}

// ListLobbies returns only lobbies that never started a game.
func (m *Manager) ListLobbies() []protocol.LobbyInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	var infos []protocol.LobbyInfo
	for _, l := range m.lobbies {
		if !l.HasEverStarted() {
			infos = append(infos, l.ToInfo())
		}
	}
	return infos
}

// CreateLobby validates the settings and opens a lobby with the creator as
// its single, ready player.
func (m *Manager) CreateLobby(name string, maxPlayers int, settings protocol.LobbySettings, creator core.ClientID) (protocol.LobbyDetails, error) {
	if name == "" {
		return protocol.LobbyDetails{}, fmt.Errorf("lobby name must not be empty")
	}
	if maxPlayers < 1 {
		return protocol.LobbyDetails{}, fmt.Errorf("max players must be at least 1")
	}
	if err := settings.Validate(maxPlayers); err != nil {
		return protocol.LobbyDetails{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, inLobby := m.clientToLobby[creator]; inLobby {
		return protocol.LobbyDetails{}, fmt.Errorf("already in a lobby")
	}

	id := core.LobbyID(fmt.Sprintf("lobby_%d", m.nextLobbyID))
	m.nextLobbyID++

	l := NewLobby(id, name, creator, maxPlayers, settings, m.now())
	l.AddPlayer(creator.PlayerID())
	l.SetReady(creator.PlayerID(), true)

	m.lobbies[id] = l
	m.clientToLobby[creator] = id
	delete(m.clientsNotInLobby, creator)

	return l.ToDetails(), nil
}

// JoinLobby adds a client as a player or observer. Player joins fail once
// the lobby has ever started or is full.
func (m *Manager) JoinLobby(id core.LobbyID, client core.ClientID, asObserver bool) (protocol.LobbyDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, inLobby := m.clientToLobby[client]; inLobby {
		return protocol.LobbyDetails{}, fmt.Errorf("already in a lobby")
	}

	l, exists := m.lobbies[id]
	if !exists {
		return protocol.LobbyDetails{}, fmt.Errorf("lobby not found")
	}

	if asObserver {
		if !l.AddObserver(client.PlayerID()) {
			return protocol.LobbyDetails{}, fmt.Errorf("already observing this lobby")
		}
	} else {
		if l.HasEverStarted() {
			return protocol.LobbyDetails{}, fmt.Errorf("lobby is no longer accepting new players")
		}
		if !l.AddPlayer(client.PlayerID()) {
			return protocol.LobbyDetails{}, fmt.Errorf("lobby is full")
		}
	}

	m.clientToLobby[client] = id
	delete(m.clientsNotInLobby, client)
	l.Touch(m.now())

	return l.ToDetails(), nil
}

// LeaveLobby removes the client from its lobby. A leaving host destroys
// the lobby and ejects everyone; leaving observers never do.
func (m *Manager) LeaveLobby(client core.ClientID) (LeaveOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, inLobby := m.clientToLobby[client]
	if !inLobby {
		return LeaveOutcome{}, fmt.Errorf("not in a lobby")
	}
	delete(m.clientToLobby, client)
	m.clientsNotInLobby[client] = true

	l, exists := m.lobbies[id]
	if !exists {
		return LeaveOutcome{}, fmt.Errorf("lobby not found")
	}

	player := client.PlayerID()
	wasObserver := l.RemoveObserver(player)
	if !wasObserver {
		l.RemovePlayer(player)
	}
	l.Touch(m.now())

	if l.IsHost(client) {
		var kicked []core.ClientID
		for p := range l.Players {
			kicked = append(kicked, core.ClientID(p))
		}
		for p := range l.Observers {
			kicked = append(kicked, core.ClientID(p))
		}
		for _, c := range kicked {
			delete(m.clientToLobby, c)
			m.clientsNotInLobby[c] = true
		}
		delete(m.lobbies, id)

		return LeaveOutcome{HostLeft: true, Kicked: kicked, WasObserver: wasObserver, LobbyID: id}, nil
	}

	details := l.ToDetails()
	return LeaveOutcome{Details: &details, WasObserver: wasObserver, LobbyID: id}, nil
}

// MarkReady toggles the caller's own readiness.
func (m *Manager) MarkReady(client core.ClientID, ready bool) (protocol.LobbyDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, err := m.lobbyOf(client)
	if err != nil {
		return protocol.LobbyDetails{}, err
	}

	if !l.SetReady(client.PlayerID(), ready) {
		return protocol.LobbyDetails{}, fmt.Errorf("not a player in this lobby")
	}
	l.Touch(m.now())

	return l.ToDetails(), nil
}

// AddBot inserts a bot matching the lobby's game. Host only.
func (m *Manager) AddBot(client core.ClientID, kind protocol.BotKind) (protocol.LobbyDetails, core.BotID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, err := m.lobbyOf(client)
	if err != nil {
		return protocol.LobbyDetails{}, "", err
	}
	if !l.IsHost(client) {
		return protocol.LobbyDetails{}, "", fmt.Errorf("only the host can add bots")
	}

	game, err := l.Settings.Game()
	if err != nil {
		return protocol.LobbyDetails{}, "", err
	}
	if !kind.MatchesGame(game) {
		return protocol.LobbyDetails{}, "", fmt.Errorf("bot type does not match the lobby's game")
	}

	botID := core.BotID(fmt.Sprintf("bot-%s-%d", uuid.NewString()[:8], len(l.Bots)+1))
	if !l.AddBot(botID, kind) {
		return protocol.LobbyDetails{}, "", fmt.Errorf("lobby is full")
	}
	l.Touch(m.now())

	return l.ToDetails(), botID, nil
}

// KickFromLobby removes a human or bot. Host only; the host cannot kick
// itself.
func (m *Manager) KickFromLobby(client core.ClientID, target core.PlayerID) (protocol.LobbyDetails, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, err := m.lobbyOf(client)
	if err != nil {
		return protocol.LobbyDetails{}, false, err
	}
	if !l.IsHost(client) {
		return protocol.LobbyDetails{}, false, fmt.Errorf("only the host can kick")
	}
	if target == client.PlayerID() {
		return protocol.LobbyDetails{}, false, fmt.Errorf("the host cannot kick itself")
	}

	if l.RemoveBot(core.BotID(target)) {
		l.Touch(m.now())
		return l.ToDetails(), true, nil
	}

	if l.RemovePlayer(target) || l.RemoveObserver(target) {
		targetClient := core.ClientID(target)
		delete(m.clientToLobby, targetClient)
		m.clientsNotInLobby[targetClient] = true
		l.Touch(m.now())
		return l.ToDetails(), false, nil
	}

	return protocol.LobbyDetails{}, false, fmt.Errorf("target is not in this lobby")
}

// BecomeObserver demotes the caller from player to observer.
func (m *Manager) BecomeObserver(client core.ClientID) (protocol.LobbyDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, err := m.lobbyOf(client)
	if err != nil {
		return protocol.LobbyDetails{}, err
	}
	if l.IsHost(client) {
		return protocol.LobbyDetails{}, fmt.Errorf("the host cannot become an observer")
	}
	if !l.PlayerToObserver(client.PlayerID()) {
		return protocol.LobbyDetails{}, fmt.Errorf("not a player in this lobby")
	}
	l.Touch(m.now())

	return l.ToDetails(), nil
}

// BecomePlayer promotes the caller from observer to player.
func (m *Manager) BecomePlayer(client core.ClientID) (protocol.LobbyDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, err := m.lobbyOf(client)
	if err != nil {
		return protocol.LobbyDetails{}, err
	}
	if !l.ObserverToPlayer(client.PlayerID()) {
		return protocol.LobbyDetails{}, fmt.Errorf("cannot become a player: not observing or lobby is full")
	}
	l.Touch(m.now())

	return l.ToDetails(), nil
}

// MakePlayerObserver demotes another player. Host only.
func (m *Manager) MakePlayerObserver(client core.ClientID, target core.PlayerID) (protocol.LobbyDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, err := m.lobbyOf(client)
	if err != nil {
		return protocol.LobbyDetails{}, err
	}
	if !l.IsHost(client) {
		return protocol.LobbyDetails{}, fmt.Errorf("only the host can change roles")
	}
	if target == client.PlayerID() {
		return protocol.LobbyDetails{}, fmt.Errorf("the host cannot become an observer")
	}
	if !l.PlayerToObserver(target) {
		return protocol.LobbyDetails{}, fmt.Errorf("target is not a player in this lobby")
	}
	l.Touch(m.now())

	return l.ToDetails(), nil
}

// StartGame transitions a ready lobby into a running game. Host only; all
// players must be ready and the per-game participant rule must hold.
func (m *Manager) StartGame(client core.ClientID) (core.LobbyID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, err := m.lobbyOf(client)
	if err != nil {
		return "", err
	}
	if !l.IsHost(client) {
		return "", fmt.Errorf("only the host can start the game")
	}
	if l.InGame {
		return "", fmt.Errorf("game already started")
	}
	if !l.AllPlayersReady() {
		return "", fmt.Errorf("not all players are ready")
	}
	if err := checkParticipantRule(l); err != nil {
		return "", err
	}

	l.StartGame()
	l.Touch(m.now())
	return l.ID, nil
}

// RestartGame re-enters the in-game state after a unanimous play-again
// vote. Called by the vote path, not by a client directly.
func (m *Manager) RestartGame(id core.LobbyID) (core.LobbyID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, exists := m.lobbies[id]
	if !exists {
		return "", fmt.Errorf("lobby not found")
	}
	if l.InGame {
		return "", fmt.Errorf("game already started")
	}
	if err := checkParticipantRule(l); err != nil {
		return "", err
	}

	l.StartGame()
	l.Touch(m.now())
	return l.ID, nil
}

func checkParticipantRule(l *Lobby) error {
	game, err := l.Settings.Game()
	if err != nil {
		return err
	}

	total := l.TotalPlayerCount()
	switch game {
	case protocol.GameTicTacToe:
		if total != 2 {
			return fmt.Errorf("tictactoe needs exactly 2 participants, have %d", total)
		}
	case protocol.GameSnake:
		if total < 1 {
			return fmt.Errorf("snake needs at least 1 participant")
		}
	case protocol.GameNumbers, protocol.GamePuzzle2048:
		if len(l.Players) != 1 || len(l.Bots) != 0 {
			return fmt.Errorf("%s is single-player", game)
		}
	case protocol.GameStackAttack:
		if len(l.Players) < 1 || len(l.Bots) != 0 {
			return fmt.Errorf("stack attack needs at least 1 human player and no bots")
		}
	}
	return nil
}

// EndGame is called by the session manager at game over. It clears
// readiness and returns the current human roster for notifications.
func (m *Manager) EndGame(id core.LobbyID) ([]core.ClientID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, exists := m.lobbies[id]
	if !exists {
		return nil, fmt.Errorf("lobby not found")
	}

	l.EndGame()
	l.Touch(m.now())

	clients := make([]core.ClientID, 0, len(l.Players))
	for player := range l.Players {
		clients = append(clients, core.ClientID(player))
	}
	return clients, nil
}

// VotePlayAgain records a vote. The boolean result reports whether every
// original player has now voted, in which case the caller restarts the
// game via RestartGame.
func (m *Manager) VotePlayAgain(client core.ClientID) (core.LobbyID, PlayAgainStatus, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, err := m.lobbyOf(client)
	if err != nil {
		return "", PlayAgainStatus{}, false, err
	}
	if l.InGame {
		return "", PlayAgainStatus{}, false, fmt.Errorf("game is still in progress")
	}
	if !l.OriginalGamePlayers[client.PlayerID()] {
		return "", PlayAgainStatus{}, false, fmt.Errorf("was not a player in the original game")
	}
	if _, present := l.Players[client.PlayerID()]; !present {
		return "", PlayAgainStatus{}, false, fmt.Errorf("no longer a player in this lobby")
	}

	if !l.IsPlayAgainAvailable() {
		return l.ID, PlayAgainStatus{}, false, nil
	}

	l.VotePlayAgain(client.PlayerID())
	l.Touch(m.now())

	status := l.playAgainStatusLocked()
	return l.ID, status, len(status.Pending) == 0, nil
}

// PlayAgainStatusFor reports the current vote state of a lobby.
func (m *Manager) PlayAgainStatusFor(id core.LobbyID) (PlayAgainStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, exists := m.lobbies[id]
	if !exists {
		return PlayAgainStatus{}, fmt.Errorf("lobby not found")
	}
	return l.playAgainStatusLocked(), nil
}

func (l *Lobby) playAgainStatusLocked() PlayAgainStatus {
	if !l.IsPlayAgainAvailable() {
		return PlayAgainStatus{}
	}

	ready := make([]core.PlayerID, 0, len(l.PlayAgainVotes))
	for player := range l.PlayAgainVotes {
		ready = append(ready, player)
	}
	sortPlayers(ready)

	return PlayAgainStatus{
		Available: true,
		Ready:     ready,
		Pending:   l.PendingPlayAgainVoters(),
	}
}

// LobbyDetailsFor returns the member view of a lobby.
func (m *Manager) LobbyDetailsFor(id core.LobbyID) (protocol.LobbyDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, exists := m.lobbies[id]
	if !exists {
		return protocol.LobbyDetails{}, fmt.Errorf("lobby not found")
	}
	return l.ToDetails(), nil
}

// LobbyOf resolves the client's current lobby id.
func (m *Manager) LobbyOf(client core.ClientID) (core.LobbyID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.clientToLobby[client]
	return id, ok
}

// GameSnapshot is a lobby's roster at start-of-game time, for session
// creation.
type GameSnapshot struct {
	Host      core.ClientID
	Players   []core.PlayerID
	Bots      map[core.BotID]protocol.BotKind
	Observers []core.PlayerID
	Settings  protocol.LobbySettings
}

// Snapshot returns a deep-enough copy of a lobby for session creation.
func (m *Manager) Snapshot(id core.LobbyID) (GameSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, exists := m.lobbies[id]
	if !exists {
		return GameSnapshot{}, fmt.Errorf("lobby not found")
	}

	snapshot := GameSnapshot{
		Host:     l.CreatorID,
		Bots:     make(map[core.BotID]protocol.BotKind, len(l.Bots)),
		Settings: l.Settings,
	}

	snapshot.Players = make([]core.PlayerID, 0, len(l.Players))
	for player := range l.Players {
		snapshot.Players = append(snapshot.Players, player)
	}
	sortPlayers(snapshot.Players)

	for id, kind := range l.Bots {
		snapshot.Bots[id] = kind
	}

	snapshot.Observers = make([]core.PlayerID, 0, len(l.Observers))
	for observer := range l.Observers {
		snapshot.Observers = append(snapshot.Observers, observer)
	}
	sortPlayers(snapshot.Observers)

	return snapshot, nil
}

// SweepIdleLobbies closes never-started lobbies idle longer than timeout
// and returns the ejected clients per lobby. A zero timeout disables the
// sweep.
func (m *Manager) SweepIdleLobbies(timeout time.Duration) map[core.LobbyID][]core.ClientID {
	if timeout <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-timeout)
	ejected := make(map[core.LobbyID][]core.ClientID)

	for id, l := range m.lobbies {
		if l.HasEverStarted() || l.InGame || !l.LastActivity.Before(cutoff) {
			continue
		}

		var members []core.ClientID
		for p := range l.Players {
			members = append(members, core.ClientID(p))
		}
		for p := range l.Observers {
			members = append(members, core.ClientID(p))
		}
		for _, c := range members {
			delete(m.clientToLobby, c)
			m.clientsNotInLobby[c] = true
		}
		delete(m.lobbies, id)
		ejected[id] = members
	}

	if len(ejected) == 0 {
		return nil
	}
	return ejected
}

func (m *Manager) lobbyOf(client core.ClientID) (*Lobby, error) {
	id, inLobby := m.clientToLobby[client]
	if !inLobby {
		return nil, fmt.Errorf("not in a lobby")
	}
	l, exists := m.lobbies[id]
	if !exists {
		return nil, fmt.Errorf("lobby not found")
	}
	return l, nil
}

func sortPlayers(players []core.PlayerID) {
	sort.Slice(players, func(i, j int) bool { return players[i] < players[j] })
}
