package lobby

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/protocol"
)

func snakeSettings() protocol.LobbySettings {
	return protocol.LobbySettings{Snake: &protocol.SnakeSettings{
		FieldWidth:           15,
		FieldHeight:          15,
		WallCollisionMode:    protocol.WallWrapAround,
		DeadSnakeBehavior:    protocol.DeadSnakeDisappear,
		MaxFoodCount:         3,
		FoodSpawnProbability: 0.1,
		TickIntervalMs:       200,
	}}
}

func tictactoeSettings() protocol.LobbySettings {
	return protocol.LobbySettings{TicTacToe: &protocol.TicTacToeSettings{
		FieldWidth:  3,
		FieldHeight: 3,
		WinCount:    3,
		FirstPlayer: protocol.FirstPlayerHost,
	}}
}

func TestAddClientRejectsDuplicate(t *testing.T) {
	m := NewManager()

	assert.True(t, m.AddClient("alice"))
	assert.False(t, m.AddClient("alice"), "second connection under the same id must be rejected")

	m.RemoveClient("alice")
	m.RemoveClient("alice") // idempotent
	assert.True(t, m.AddClient("alice"))
}

func TestCreateLobby(t *testing.T) {
	m := NewManager()
	m.AddClient("creator")

	details, err := m.CreateLobby("Test Lobby", 4, snakeSettings(), "creator")

	require.NoError(t, err)
	assert.Equal(t, "Test Lobby", details.LobbyName)
	assert.Equal(t, 4, details.MaxPlayers)
	require.Len(t, details.Players, 1)
	assert.True(t, details.Players[0].Ready, "the creator joins ready")
	assert.Equal(t, core.PlayerID("creator"), details.Creator.PlayerID)
}

func TestCreateLobbyValidation(t *testing.T) {
	m := NewManager()
	m.AddClient("creator")

	bad := snakeSettings()
	bad.Snake.FieldWidth = 99
	_, err := m.CreateLobby("L", 4, bad, "creator")
	assert.Error(t, err)

	_, err = m.CreateLobby("", 4, snakeSettings(), "creator")
	assert.Error(t, err)

	_, err = m.CreateLobby("L", 3, tictactoeSettings(), "creator")
	assert.Error(t, err, "tictactoe lobbies must hold exactly 2")
}

func TestCreateLobbyAlreadyInLobby(t *testing.T) {
	m := NewManager()
	m.AddClient("creator")

	_, err := m.CreateLobby("First", 4, snakeSettings(), "creator")
	require.NoError(t, err)

	_, err = m.CreateLobby("Second", 4, snakeSettings(), "creator")
	assert.EqualError(t, err, "already in a lobby")
}

func TestJoinLobby(t *testing.T) {
	m := NewManager()
	m.AddClient("creator")
	m.AddClient("joiner")

	details, err := m.CreateLobby("L", 4, snakeSettings(), "creator")
	require.NoError(t, err)

	joined, err := m.JoinLobby(details.LobbyID, "joiner", false)
	require.NoError(t, err)
	assert.Len(t, joined.Players, 2)

	_, err = m.JoinLobby(details.LobbyID, "joiner", false)
	assert.Error(t, err, "double join must fail")

	_, err = m.JoinLobby("nope", "ghost", false)
	assert.EqualError(t, err, "lobby not found")
}

func TestJoinFullLobby(t *testing.T) {
	m := NewManager()
	m.AddClient("creator")
	details, _ := m.CreateLobby("L", 2, snakeSettings(), "creator")

	_, err := m.JoinLobby(details.LobbyID, "p1", false)
	require.NoError(t, err)

	_, err = m.JoinLobby(details.LobbyID, "p2", false)
	assert.EqualError(t, err, "lobby is full")

	// Observers are not bounded by player capacity.
	_, err = m.JoinLobby(details.LobbyID, "watcher", true)
	assert.NoError(t, err)
}

func TestJoinAfterStartRejected(t *testing.T) {
	m := NewManager()
	m.AddClient("creator")
	details, _ := m.CreateLobby("L", 4, snakeSettings(), "creator")

	_, err := m.StartGame("creator")
	require.NoError(t, err)

	_, err = m.JoinLobby(details.LobbyID, "late", false)
	assert.Error(t, err)

	// Observers may still join a started lobby.
	_, err = m.JoinLobby(details.LobbyID, "watcher", true)
	assert.NoError(t, err)
}

func TestListLobbiesFiltersStarted(t *testing.T) {
	m := NewManager()
	m.AddClient("c1")
	m.AddClient("c2")

	m.CreateLobby("Open", 4, snakeSettings(), "c1")
	m.CreateLobby("Started", 4, snakeSettings(), "c2")
	_, err := m.StartGame("c2")
	require.NoError(t, err)

	lobbies := m.ListLobbies()
	require.Len(t, lobbies, 1)
	assert.Equal(t, "Open", lobbies[0].LobbyName)

	// The filter is permanent: ending the game does not re-list the lobby.
	id, _ := m.LobbyOf("c2")
	_, err = m.EndGame(id)
	require.NoError(t, err)
	assert.Len(t, m.ListLobbies(), 1)
}

func TestLeaveLobbyNonHost(t *testing.T) {
	m := NewManager()
	m.AddClient("creator")
	m.AddClient("joiner")
	details, _ := m.CreateLobby("L", 4, snakeSettings(), "creator")
	m.JoinLobby(details.LobbyID, "joiner", false)

	outcome, err := m.LeaveLobby("joiner")
	require.NoError(t, err)
	assert.False(t, outcome.HostLeft)
	require.NotNil(t, outcome.Details)
	assert.Len(t, outcome.Details.Players, 1)
}

func TestLeaveLobbyHostDestroys(t *testing.T) {
	m := NewManager()
	m.AddClient("creator")
	m.AddClient("joiner")
	m.AddClient("watcher")
	details, _ := m.CreateLobby("L", 4, snakeSettings(), "creator")
	m.JoinLobby(details.LobbyID, "joiner", false)
	m.JoinLobby(details.LobbyID, "watcher", true)

	outcome, err := m.LeaveLobby("creator")
	require.NoError(t, err)
	assert.True(t, outcome.HostLeft)
	assert.ElementsMatch(t, []core.ClientID{"joiner", "watcher"}, outcome.Kicked)

	// Everyone is back in the lobby list.
	_, err = m.LeaveLobby("joiner")
	assert.EqualError(t, err, "not in a lobby")
	assert.Len(t, m.ListLobbies(), 0)
}

func TestObserverLeaveKeepsLobby(t *testing.T) {
	m := NewManager()
	m.AddClient("creator")
	m.AddClient("watcher")
	details, _ := m.CreateLobby("L", 4, snakeSettings(), "creator")
	m.JoinLobby(details.LobbyID, "watcher", true)

	outcome, err := m.LeaveLobby("watcher")
	require.NoError(t, err)
	assert.True(t, outcome.WasObserver)
	assert.False(t, outcome.HostLeft)
}

func TestMarkReadyAndStartRules(t *testing.T) {
	m := NewManager()
	m.AddClient("creator")
	m.AddClient("joiner")
	details, _ := m.CreateLobby("L", 4, snakeSettings(), "creator")
	m.JoinLobby(details.LobbyID, "joiner", false)

	_, err := m.StartGame("creator")
	assert.EqualError(t, err, "not all players are ready")

	_, err = m.StartGame("joiner")
	assert.EqualError(t, err, "only the host can start the game")

	_, err = m.MarkReady("joiner", true)
	require.NoError(t, err)

	id, err := m.StartGame("creator")
	require.NoError(t, err)
	assert.Equal(t, details.LobbyID, id)

	_, err = m.StartGame("creator")
	assert.EqualError(t, err, "game already started")
}

func TestStartGameParticipantRules(t *testing.T) {
	m := NewManager()
	m.AddClient("host")
	_, err := m.CreateLobby("T", 2, tictactoeSettings(), "host")
	require.NoError(t, err)

	_, err = m.StartGame("host")
	assert.Error(t, err, "tictactoe cannot start with one participant")

	// Adding a bot satisfies the two-participant rule.
	kind := protocol.TicTacToeBotMinimax
	_, _, err = m.AddBot("host", protocol.BotKind{TicTacToe: &kind})
	require.NoError(t, err)

	_, err = m.StartGame("host")
	assert.NoError(t, err)
}

func TestAddBotRules(t *testing.T) {
	m := NewManager()
	m.AddClient("host")
	m.AddClient("guest")
	details, _ := m.CreateLobby("L", 2, snakeSettings(), "host")
	m.JoinLobby(details.LobbyID, "guest", false)

	snakeKind := protocol.SnakeBotEfficient
	tttKind := protocol.TicTacToeBotRandom

	_, _, err := m.AddBot("guest", protocol.BotKind{Snake: &snakeKind})
	assert.EqualError(t, err, "only the host can add bots")

	_, _, err = m.AddBot("host", protocol.BotKind{TicTacToe: &tttKind})
	assert.Error(t, err, "bot kind must match the lobby's game")

	_, _, err = m.AddBot("host", protocol.BotKind{Snake: &snakeKind})
	assert.EqualError(t, err, "lobby is full")
}

func TestBotsAreAlwaysReady(t *testing.T) {
	m := NewManager()
	m.AddClient("host")
	m.CreateLobby("L", 4, snakeSettings(), "host")

	kind := protocol.SnakeBotEfficient
	details, botID, err := m.AddBot("host", protocol.BotKind{Snake: &kind})
	require.NoError(t, err)

	for _, p := range details.Players {
		if p.Identity.PlayerID == botID.PlayerID() {
			assert.True(t, p.Ready)
			assert.True(t, p.Identity.IsBot)
		}
	}

	// Bots never block the start.
	_, err = m.StartGame("host")
	assert.NoError(t, err)
}

func TestKickFromLobby(t *testing.T) {
	m := NewManager()
	m.AddClient("host")
	m.AddClient("guest")
	details, _ := m.CreateLobby("L", 4, snakeSettings(), "host")
	m.JoinLobby(details.LobbyID, "guest", false)
	kind := protocol.SnakeBotEfficient
	_, botID, _ := m.AddBot("host", protocol.BotKind{Snake: &kind})

	_, isBot, err := m.KickFromLobby("host", botID.PlayerID())
	require.NoError(t, err)
	assert.True(t, isBot)

	_, isBot, err = m.KickFromLobby("host", "guest")
	require.NoError(t, err)
	assert.False(t, isBot)

	_, _, err = m.KickFromLobby("host", "host")
	assert.Error(t, err)

	// The kicked human is free to join another lobby.
	assert.False(t, m.AddClient("guest"), "guest is already tracked as connected")
	_, err = m.JoinLobby(details.LobbyID, "guest", false)
	assert.NoError(t, err)
}

func TestRoleToggles(t *testing.T) {
	m := NewManager()
	m.AddClient("host")
	m.AddClient("guest")
	details, _ := m.CreateLobby("L", 2, snakeSettings(), "host")
	m.JoinLobby(details.LobbyID, "guest", false)

	got, err := m.BecomeObserver("guest")
	require.NoError(t, err)
	assert.Len(t, got.Players, 1)
	assert.Len(t, got.Observers, 1)

	got, err = m.BecomePlayer("guest")
	require.NoError(t, err)
	assert.Len(t, got.Players, 2)
	assert.Len(t, got.Observers, 0)

	_, err = m.BecomeObserver("host")
	assert.Error(t, err, "host cannot observe")

	_, err = m.MakePlayerObserver("guest", "host")
	assert.Error(t, err, "only the host may change roles")

	_, err = m.MakePlayerObserver("host", "guest")
	assert.NoError(t, err)
}

func TestPlayAgainFlow(t *testing.T) {
	m := NewManager()
	m.AddClient("host")
	m.AddClient("guest")
	details, _ := m.CreateLobby("L", 4, snakeSettings(), "host")
	m.JoinLobby(details.LobbyID, "guest", false)
	m.MarkReady("guest", true)

	id, err := m.StartGame("host")
	require.NoError(t, err)
	_, err = m.EndGame(id)
	require.NoError(t, err)

	// First vote: available, one pending.
	_, status, all, err := m.VotePlayAgain("host")
	require.NoError(t, err)
	assert.True(t, status.Available)
	assert.False(t, all)
	assert.Equal(t, []core.PlayerID{"guest"}, status.Pending)

	// Second vote completes the set.
	_, status, all, err = m.VotePlayAgain("guest")
	require.NoError(t, err)
	assert.True(t, all)
	assert.Empty(t, status.Pending)

	_, err = m.RestartGame(id)
	require.NoError(t, err)
}

func TestPlayAgainUnavailableAfterRosterChange(t *testing.T) {
	m := NewManager()
	m.AddClient("host")
	m.AddClient("guest")
	details, _ := m.CreateLobby("L", 4, snakeSettings(), "host")
	m.JoinLobby(details.LobbyID, "guest", false)
	m.MarkReady("guest", true)

	id, _ := m.StartGame("host")
	m.EndGame(id)

	// An original player leaves: availability is gone for good.
	m.LeaveLobby("guest")

	_, status, _, err := m.VotePlayAgain("host")
	require.NoError(t, err)
	assert.False(t, status.Available)

	// Replacement players do not restore availability.
	m.AddClient("newcomer")
	_, err = m.JoinLobby(details.LobbyID, "newcomer", false)
	require.Error(t, err, "started lobbies accept no new players")

	got, err := m.PlayAgainStatusFor(id)
	require.NoError(t, err)
	assert.False(t, got.Available)
}

func TestPlayAgainRequiresOriginalMembership(t *testing.T) {
	m := NewManager()
	m.AddClient("host")
	m.AddClient("watcher")
	details, _ := m.CreateLobby("L", 4, snakeSettings(), "host")
	m.JoinLobby(details.LobbyID, "watcher", true)

	id, _ := m.StartGame("host")
	m.EndGame(id)

	_, _, _, err := m.VotePlayAgain("watcher")
	assert.Error(t, err, "observers were not original players")
}

func TestEndGameClearsReadiness(t *testing.T) {
	m := NewManager()
	m.AddClient("host")
	m.AddClient("guest")
	details, _ := m.CreateLobby("L", 4, snakeSettings(), "host")
	m.JoinLobby(details.LobbyID, "guest", false)
	m.MarkReady("guest", true)

	id, _ := m.StartGame("host")
	clients, err := m.EndGame(id)
	require.NoError(t, err)
	assert.ElementsMatch(t, []core.ClientID{"host", "guest"}, clients)

	got, _ := m.LobbyDetailsFor(id)
	for _, p := range got.Players {
		assert.False(t, p.Ready, "readiness resets after a game")
	}
}

func TestSnapshot(t *testing.T) {
	m := NewManager()
	m.AddClient("host")
	m.AddClient("watcher")
	details, _ := m.CreateLobby("L", 4, snakeSettings(), "host")
	m.JoinLobby(details.LobbyID, "watcher", true)
	kind := protocol.SnakeBotEfficient
	_, botID, _ := m.AddBot("host", protocol.BotKind{Snake: &kind})

	snapshot, err := m.Snapshot(details.LobbyID)
	require.NoError(t, err)
	assert.Equal(t, core.ClientID("host"), snapshot.Host)
	assert.Equal(t, []core.PlayerID{"host"}, snapshot.Players)
	assert.Contains(t, snapshot.Bots, botID)
	assert.Equal(t, []core.PlayerID{"watcher"}, snapshot.Observers)
	assert.NotNil(t, snapshot.Settings.Snake)
}
