// Package lobby implements the pre-game membership state machine: lobbies
// with a host, ready players, bots and observers, and the manager that
// serializes every membership operation behind one lock.
package lobby

import (
	"sort"
	"time"

	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/protocol"
)

// Lobby is one pre-game room. It is owned by the Manager; all methods
// assume the manager's lock is held.
type Lobby struct {
	ID         core.LobbyID
	Name       string
	CreatorID  core.ClientID
	MaxPlayers int
	Settings   protocol.LobbySettings

	Players   map[core.PlayerID]bool // player -> ready
	Bots      map[core.BotID]protocol.BotKind
	Observers map[core.PlayerID]bool

	InGame         bool
	PlayAgainVotes map[core.PlayerID]bool

	// OriginalGamePlayers is captured when the last game starts. A lobby
	// with an empty set has never started and is listed publicly.
	OriginalGamePlayers map[core.PlayerID]bool

	LastActivity time.Time
}

// NewLobby creates an empty lobby; the manager inserts the creator.
func NewLobby(id core.LobbyID, name string, creator core.ClientID, maxPlayers int, settings protocol.LobbySettings, now time.Time) *Lobby {
	return &Lobby{
		ID:                  id,
		Name:                name,
		CreatorID:           creator,
		MaxPlayers:          maxPlayers,
		Settings:            settings,
		Players:             make(map[core.PlayerID]bool),
		Bots:                make(map[core.BotID]protocol.BotKind),
		Observers:           make(map[core.PlayerID]bool),
		PlayAgainVotes:      make(map[core.PlayerID]bool),
		OriginalGamePlayers: make(map[core.PlayerID]bool),
		LastActivity:        now,
	}
}

// HasEverStarted reports whether a game ever ran in this lobby.
func (l *Lobby) HasEverStarted() bool {
	return len(l.OriginalGamePlayers) > 0
}

// TotalPlayerCount counts players and bots.
func (l *Lobby) TotalPlayerCount() int {
	return len(l.Players) + len(l.Bots)
}

// IsHost reports whether the client created the lobby.
func (l *Lobby) IsHost(client core.ClientID) bool {
	return l.CreatorID == client
}

// AddPlayer inserts a not-ready player, respecting capacity.
func (l *Lobby) AddPlayer(player core.PlayerID) bool {
	if l.TotalPlayerCount() >= l.MaxPlayers {
		return false
	}
	if _, exists := l.Players[player]; exists {
		return false
	}
	l.Players[player] = false
	return true
}

// RemovePlayer deletes a player entry.
func (l *Lobby) RemovePlayer(player core.PlayerID) bool {
	if _, exists := l.Players[player]; !exists {
		return false
	}
	delete(l.Players, player)
	delete(l.PlayAgainVotes, player)
	return true
}

// SetReady updates the player's own readiness.
func (l *Lobby) SetReady(player core.PlayerID, ready bool) bool {
	if _, exists := l.Players[player]; !exists {
		return false
	}
	l.Players[player] = ready
	return true
}

// AddBot inserts a bot under a caller-generated id. Bots are always ready.
func (l *Lobby) AddBot(id core.BotID, kind protocol.BotKind) bool {
	if l.TotalPlayerCount() >= l.MaxPlayers {
		return false
	}
	if _, exists := l.Bots[id]; exists {
		return false
	}
	l.Bots[id] = kind
	return true
}

// RemoveBot deletes a bot entry.
func (l *Lobby) RemoveBot(id core.BotID) bool {
	if _, exists := l.Bots[id]; !exists {
		return false
	}
	delete(l.Bots, id)
	return true
}

// AddObserver inserts an observer. Observers and players stay disjoint.
func (l *Lobby) AddObserver(player core.PlayerID) bool {
	if _, isPlayer := l.Players[player]; isPlayer {
		return false
	}
	if l.Observers[player] {
		return false
	}
	l.Observers[player] = true
	return true
}

// RemoveObserver deletes an observer entry.
func (l *Lobby) RemoveObserver(player core.PlayerID) bool {
	if !l.Observers[player] {
		return false
	}
	delete(l.Observers, player)
	return true
}

// PlayerToObserver demotes a player, keeping the sets disjoint.
func (l *Lobby) PlayerToObserver(player core.PlayerID) bool {
	if _, exists := l.Players[player]; !exists {
		return false
	}
	delete(l.Players, player)
	delete(l.PlayAgainVotes, player)
	l.Observers[player] = true
	return true
}

// ObserverToPlayer promotes an observer, respecting capacity.
func (l *Lobby) ObserverToPlayer(player core.PlayerID) bool {
	if !l.Observers[player] {
		return false
	}
	if l.TotalPlayerCount() >= l.MaxPlayers {
		return false
	}
	delete(l.Observers, player)
	l.Players[player] = false
	return true
}

// AllPlayersReady reports whether every human player is ready. Bots are
// implicitly ready.
func (l *Lobby) AllPlayersReady() bool {
	for _, ready := range l.Players {
		if !ready {
			return false
		}
	}
	return true
}

// StartGame flips the lobby into its in-game state and snapshots the
// roster for play-again eligibility.
func (l *Lobby) StartGame() {
	l.InGame = true
	l.PlayAgainVotes = make(map[core.PlayerID]bool)
	l.OriginalGamePlayers = make(map[core.PlayerID]bool, len(l.Players))
	for player := range l.Players {
		l.OriginalGamePlayers[player] = true
	}
}

// EndGame clears readiness but keeps the original roster snapshot.
func (l *Lobby) EndGame() {
	l.InGame = false
	for player := range l.Players {
		l.Players[player] = false
	}
}

// VotePlayAgain records a vote. Only original players still present may
// vote; voting also marks them ready.
func (l *Lobby) VotePlayAgain(player core.PlayerID) bool {
	if !l.OriginalGamePlayers[player] {
		return false
	}
	if _, exists := l.Players[player]; !exists {
		return false
	}
	l.PlayAgainVotes[player] = true
	l.SetReady(player, true)
	return true
}

// IsPlayAgainAvailable requires the current roster to equal the original
// one: no replacement is allowed.
func (l *Lobby) IsPlayAgainAvailable() bool {
	if len(l.OriginalGamePlayers) == 0 {
		return false
	}
	if len(l.Players) != len(l.OriginalGamePlayers) {
		return false
	}
	for player := range l.OriginalGamePlayers {
		if _, present := l.Players[player]; !present {
			return false
		}
	}
	return true
}

// PendingPlayAgainVoters lists original players who have not voted yet.
func (l *Lobby) PendingPlayAgainVoters() []core.PlayerID {
	var pending []core.PlayerID
	for player := range l.OriginalGamePlayers {
		if !l.PlayAgainVotes[player] {
			pending = append(pending, player)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i] < pending[j] })
	return pending
}

// Touch refreshes the liveness timestamp.
func (l *Lobby) Touch(now time.Time) {
	l.LastActivity = now
}

// ToInfo builds the public listing entry.
func (l *Lobby) ToInfo() protocol.LobbyInfo {
	return protocol.LobbyInfo{
		LobbyID:        l.ID,
		LobbyName:      l.Name,
		CurrentPlayers: l.TotalPlayerCount(),
		MaxPlayers:     l.MaxPlayers,
		ObserverCount:  len(l.Observers),
		Settings:       l.Settings,
	}
}

// ToDetails builds the member view, with players and bots in a stable
// order.
func (l *Lobby) ToDetails() protocol.LobbyDetails {
	players := make([]protocol.PlayerInfo, 0, l.TotalPlayerCount())
	for player, ready := range l.Players {
		players = append(players, protocol.PlayerInfo{
			Identity: core.PlayerIdentity{PlayerID: player},
			Ready:    ready,
		})
	}
	for bot := range l.Bots {
		players = append(players, protocol.PlayerInfo{
			Identity: core.PlayerIdentity{PlayerID: bot.PlayerID(), IsBot: true},
			Ready:    true,
		})
	}
	sort.Slice(players, func(i, j int) bool {
		return players[i].Identity.PlayerID < players[j].Identity.PlayerID
	})

	observers := make([]core.PlayerIdentity, 0, len(l.Observers))
	for observer := range l.Observers {
		observers = append(observers, core.PlayerIdentity{PlayerID: observer})
	}
	sort.Slice(observers, func(i, j int) bool { return observers[i].PlayerID < observers[j].PlayerID })

	return protocol.LobbyDetails{
		LobbyID:    l.ID,
		LobbyName:  l.Name,
		Players:    players,
		MaxPlayers: l.MaxPlayers,
		Observers:  observers,
		Settings:   l.Settings,
		Creator:    core.PlayerIdentity{PlayerID: l.CreatorID.PlayerID()},
	}
}
