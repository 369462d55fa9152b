// Package server hosts the inbound message handler — version gate, auth
// gate, request dispatch and the per-request broadcast fan-out — plus the
// websocket transport shell that feeds it.
package server

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/lobby"
	"github.com/vovakirdan/arcade-online/internal/protocol"
	"github.com/vovakirdan/arcade-online/internal/session"
)

// ClientConn is the handler's view of one connection: a direct send path
// for pre-auth replies and a hook to attach the broadcaster queue once the
// client is registered.
type ClientConn interface {
	SendDirect(msg protocol.ServerMessage)
	AttachQueue(queue <-chan protocol.ServerMessage)
}

// HandleResult tells the transport whether to keep the connection.
type HandleResult int

const (
	ResultContinue HandleResult = iota
	ResultDisconnect
)

// Handler dispatches inbound requests to the lobby and session managers.
// Requests on one connection are processed strictly sequentially by the
// transport's read loop.
type Handler struct {
	lobbies     *lobby.Manager
	sessions    *session.Manager
	broadcaster *session.Broadcaster
	logger      *log.Logger
}

// NewHandler wires the handler to its collaborators.
func NewHandler(lobbies *lobby.Manager, sessions *session.Manager, b *session.Broadcaster, logger *log.Logger) *Handler {
	return &Handler{
		lobbies:     lobbies,
		sessions:    sessions,
		broadcaster: b,
		logger:      logger,
	}
}

// HandleMessage processes one request. clientID holds the connection's
// established identity; it is set by a successful Connect.
func (h *Handler) HandleMessage(msg protocol.ClientMessage, conn ClientConn, clientID *core.ClientID) HandleResult {
	// Version gate: every request carries the client's engine version.
	if msg.Version != core.EngineVersion {
		text := fmt.Sprintf("version mismatch: client %q, server %q", msg.Version, core.EngineVersion)
		h.logger.Warn("rejecting client", "reason", text)
		conn.SendDirect(protocol.ServerMessage{Error: &protocol.ErrorResponse{
			Code:    protocol.ErrVersionMismatch,
			Message: text,
		}})
		return ResultDisconnect
	}

	if msg.Connect != nil {
		return h.handleConnect(*msg.Connect, conn, clientID)
	}

	// Auth gate: everything past Connect needs an established identity.
	if clientID == nil || *clientID == "" {
		conn.SendDirect(protocol.ServerMessage{Error: &protocol.ErrorResponse{
			Code:    protocol.ErrNotConnected,
			Message: "not connected: send Connect first",
		}})
		return ResultContinue
	}
	client := *clientID

	switch {
	case msg.Disconnect != nil:
		h.HandleClientDisconnected(client)
		return ResultDisconnect

	case msg.ListLobbies != nil:
		h.broadcaster.SendToClient(client, protocol.ServerMessage{
			LobbyList: &protocol.LobbyListResponse{Lobbies: h.lobbies.ListLobbies()},
		})

	case msg.CreateLobby != nil:
		h.handleCreateLobby(client, *msg.CreateLobby)

	case msg.JoinLobby != nil:
		h.handleJoinLobby(client, *msg.JoinLobby)

	case msg.LeaveLobby != nil:
		h.handleLeaveLobby(client)

	case msg.MarkReady != nil:
		h.handleMarkReady(client, *msg.MarkReady)

	case msg.StartGame != nil:
		h.handleStartGame(client)

	case msg.PlayAgain != nil:
		h.handlePlayAgain(client)

	case msg.AddBot != nil:
		h.handleAddBot(client, *msg.AddBot)

	case msg.KickFromLobby != nil:
		h.handleKick(client, *msg.KickFromLobby)

	case msg.BecomeObserver != nil:
		h.handleRoleChange(client, func() (protocol.LobbyDetails, error) {
			return h.lobbies.BecomeObserver(client)
		}, func(details protocol.LobbyDetails) *protocol.ServerMessage {
			return &protocol.ServerMessage{PlayerBecameObserver: &protocol.PlayerEventNotification{
				Player: core.PlayerIdentity{PlayerID: client.PlayerID()},
			}}
		})

	case msg.BecomePlayer != nil:
		h.handleRoleChange(client, func() (protocol.LobbyDetails, error) {
			return h.lobbies.BecomePlayer(client)
		}, func(details protocol.LobbyDetails) *protocol.ServerMessage {
			return &protocol.ServerMessage{ObserverBecamePlayer: &protocol.PlayerEventNotification{
				Player: core.PlayerIdentity{PlayerID: client.PlayerID()},
			}}
		})

	case msg.MakePlayerObserver != nil:
		target := msg.MakePlayerObserver.TargetID
		h.handleRoleChange(client, func() (protocol.LobbyDetails, error) {
			return h.lobbies.MakePlayerObserver(client, target)
		}, func(details protocol.LobbyDetails) *protocol.ServerMessage {
			return &protocol.ServerMessage{PlayerBecameObserver: &protocol.PlayerEventNotification{
				Player: core.PlayerIdentity{PlayerID: target},
			}}
		})

	case msg.InGame != nil:
		if err := h.sessions.HandleCommand(client, *msg.InGame); err != nil {
			h.sendError(client, err)
		}

	case msg.InReplay != nil:
		if err := h.sessions.HandleReplayCommand(client, *msg.InReplay); err != nil {
			h.sendError(client, err)
		}

	case msg.Ping != nil:
		h.broadcaster.SendToClient(client, protocol.ServerMessage{Pong: &protocol.PongResponse{
			PingID:            msg.Ping.PingID,
			ClientTimestampMs: msg.Ping.ClientTimestampMs,
		}})

	case msg.LobbyListChat != nil:
		h.broadcaster.BroadcastToClients(h.lobbies.ClientsNotInLobbies(), protocol.ServerMessage{
			LobbyListChat: &protocol.ChatNotification{Sender: client, Message: msg.LobbyListChat.Message},
		})

	case msg.InLobbyChat != nil:
		h.handleLobbyChat(client, msg.InLobbyChat.Message)

	case msg.CreateReplayLobby != nil:
		h.handleCreateReplay(client, *msg.CreateReplayLobby)

	case msg.WatchReplayTogether != nil:
		h.handleWatchTogether(client, *msg.WatchReplayTogether)

	default:
		// An empty envelope is legal noise.
	}

	return ResultContinue
}

func (h *Handler) handleConnect(req protocol.ConnectRequest, conn ClientConn, clientID *core.ClientID) HandleResult {
	if clientID != nil && *clientID != "" {
		conn.SendDirect(protocol.ServerMessage{Error: &protocol.ErrorResponse{
			Code:    protocol.ErrUnspecified,
			Message: "already connected",
		}})
		return ResultContinue
	}
	if req.ClientID == "" {
		conn.SendDirect(protocol.ServerMessage{Connect: &protocol.ConnectResponse{
			Success:      false,
			ErrorMessage: "client id must not be empty",
		}})
		return ResultDisconnect
	}

	if !h.lobbies.AddClient(req.ClientID) {
		conn.SendDirect(protocol.ServerMessage{Connect: &protocol.ConnectResponse{
			Success:      false,
			ErrorMessage: "client id already connected: only one connection per id is allowed",
		}})
		return ResultDisconnect
	}

	queue := h.broadcaster.Register(req.ClientID)
	conn.AttachQueue(queue)
	*clientID = req.ClientID
	h.logger.Info("client connected", "client", req.ClientID)

	h.broadcaster.SendToClient(req.ClientID, protocol.ServerMessage{
		Connect: &protocol.ConnectResponse{Success: true},
	})
	return ResultContinue
}

// HandleClientDisconnected runs the full cleanup for a connection:
// session disconnect, lobby leave, registry removal. Safe to call more
// than once; every step is idempotent.
func (h *Handler) HandleClientDisconnected(client core.ClientID) {
	if client == "" {
		return
	}
	h.logger.Info("client disconnected", "client", client)

	h.sessions.HandlePlayerDisconnect(client)

	if outcome, err := h.lobbies.LeaveLobby(client); err == nil {
		h.fanOutLeave(client, outcome)
	}

	h.lobbies.RemoveClient(client)
	h.broadcaster.Unregister(client)
}

func (h *Handler) handleCreateLobby(client core.ClientID, req protocol.CreateLobbyRequest) {
	details, err := h.lobbies.CreateLobby(req.Name, req.MaxPlayers, req.Settings, client)
	if err != nil {
		h.sendError(client, err)
		return
	}

	h.broadcaster.SendToClient(client, protocol.ServerMessage{
		LobbyUpdate: &protocol.LobbyUpdateNotification{Details: details},
	})
	h.notifyLobbyListWatchers()
}

func (h *Handler) handleJoinLobby(client core.ClientID, req protocol.JoinLobbyRequest) {
	details, err := h.lobbies.JoinLobby(req.LobbyID, client, req.AsObserver)
	if err != nil {
		h.sendError(client, err)
		return
	}

	h.broadcaster.BroadcastToLobby(details, protocol.ServerMessage{
		LobbyUpdate: &protocol.LobbyUpdateNotification{Details: details},
	})
	h.broadcaster.BroadcastToLobbyExcept(details, client, protocol.ServerMessage{
		PlayerJoined: &protocol.PlayerEventNotification{
			Player: core.PlayerIdentity{PlayerID: client.PlayerID()},
		},
	})
	h.notifyLobbyListWatchers()
}

func (h *Handler) handleLeaveLobby(client core.ClientID) {
	outcome, err := h.lobbies.LeaveLobby(client)
	if err != nil {
		h.sendError(client, err)
		return
	}
	h.fanOutLeave(client, outcome)
}

func (h *Handler) fanOutLeave(client core.ClientID, outcome lobby.LeaveOutcome) {
	if outcome.HostLeft {
		for _, kicked := range outcome.Kicked {
			h.broadcaster.SendToClient(kicked, protocol.ServerMessage{
				LobbyClosed: &protocol.LobbyClosedNotification{Message: "the host left the lobby"},
			})
		}
	} else if outcome.Details != nil {
		h.broadcaster.BroadcastToLobby(*outcome.Details, protocol.ServerMessage{
			LobbyUpdate: &protocol.LobbyUpdateNotification{Details: *outcome.Details},
		})
		h.broadcaster.BroadcastToLobby(*outcome.Details, protocol.ServerMessage{
			PlayerLeft: &protocol.PlayerEventNotification{
				Player: core.PlayerIdentity{PlayerID: client.PlayerID()},
			},
		})
	}
	h.notifyLobbyListWatchers()
}

func (h *Handler) handleMarkReady(client core.ClientID, req protocol.MarkReadyRequest) {
	details, err := h.lobbies.MarkReady(client, req.Ready)
	if err != nil {
		h.sendError(client, err)
		return
	}

	h.broadcaster.BroadcastToLobby(details, protocol.ServerMessage{
		LobbyUpdate: &protocol.LobbyUpdateNotification{Details: details},
	})
	h.broadcaster.BroadcastToLobbyExcept(details, client, protocol.ServerMessage{
		PlayerReady: &protocol.PlayerEventNotification{
			Player: core.PlayerIdentity{PlayerID: client.PlayerID()},
			Ready:  req.Ready,
		},
	})
}

func (h *Handler) handleStartGame(client core.ClientID) {
	lobbyID, err := h.lobbies.StartGame(client)
	if err != nil {
		h.sendError(client, err)
		return
	}
	h.launchSession(lobbyID)
}

// launchSession announces and spawns the session for a started lobby.
func (h *Handler) launchSession(lobbyID core.LobbyID) {
	sessionID := core.SessionID(lobbyID)

	if details, err := h.lobbies.LobbyDetailsFor(lobbyID); err == nil {
		h.broadcaster.BroadcastToLobby(details, protocol.ServerMessage{
			GameStarting: &protocol.GameStartingNotification{SessionID: sessionID},
		})
	}

	if err := h.sessions.CreateSession(sessionID); err != nil {
		h.logger.Error("cannot create session", "lobby", lobbyID, "error", err)
		if details, derr := h.lobbies.LobbyDetailsFor(lobbyID); derr == nil {
			h.broadcaster.BroadcastToLobby(details, protocol.ServerMessage{
				Error: &protocol.ErrorResponse{Code: protocol.ErrUnspecified, Message: err.Error()},
			})
		}
		return
	}

	h.notifyLobbyListWatchers()
}

func (h *Handler) handlePlayAgain(client core.ClientID) {
	lobbyID, status, allVoted, err := h.lobbies.VotePlayAgain(client)
	if err != nil {
		h.sendError(client, err)
		return
	}

	if details, derr := h.lobbies.LobbyDetailsFor(lobbyID); derr == nil {
		notification := &protocol.PlayAgainStatusNotification{Available: status.Available}
		for _, p := range status.Ready {
			notification.ReadyPlayers = append(notification.ReadyPlayers, core.PlayerIdentity{PlayerID: p})
		}
		for _, p := range status.Pending {
			notification.PendingPlayers = append(notification.PendingPlayers, core.PlayerIdentity{PlayerID: p})
		}
		h.broadcaster.BroadcastToLobby(details, protocol.ServerMessage{PlayAgainStatus: notification})
	}

	if allVoted {
		// Every original player voted: the rematch starts implicitly.
		if _, err := h.lobbies.RestartGame(lobbyID); err != nil {
			h.sendError(client, err)
			return
		}
		h.launchSession(lobbyID)
	}
}

func (h *Handler) handleAddBot(client core.ClientID, req protocol.AddBotRequest) {
	details, botID, err := h.lobbies.AddBot(client, req.BotKind)
	if err != nil {
		h.sendError(client, err)
		return
	}

	h.broadcaster.BroadcastToLobby(details, protocol.ServerMessage{
		LobbyUpdate: &protocol.LobbyUpdateNotification{Details: details},
	})
	h.broadcaster.BroadcastToLobby(details, protocol.ServerMessage{
		PlayerJoined: &protocol.PlayerEventNotification{
			Player: core.PlayerIdentity{PlayerID: botID.PlayerID(), IsBot: true},
		},
	})
}

func (h *Handler) handleKick(client core.ClientID, req protocol.KickFromLobbyRequest) {
	details, isBot, err := h.lobbies.KickFromLobby(client, req.TargetID)
	if err != nil {
		h.sendError(client, err)
		return
	}

	if !isBot {
		h.broadcaster.SendToClient(core.ClientID(req.TargetID), protocol.ServerMessage{
			Kicked: &protocol.KickedNotification{Reason: "removed by the host"},
		})
	}
	h.broadcaster.BroadcastToLobby(details, protocol.ServerMessage{
		LobbyUpdate: &protocol.LobbyUpdateNotification{Details: details},
	})
	h.broadcaster.BroadcastToLobby(details, protocol.ServerMessage{
		PlayerLeft: &protocol.PlayerEventNotification{
			Player: core.PlayerIdentity{PlayerID: req.TargetID, IsBot: isBot},
		},
	})
	h.notifyLobbyListWatchers()
}

func (h *Handler) handleRoleChange(client core.ClientID, op func() (protocol.LobbyDetails, error), event func(protocol.LobbyDetails) *protocol.ServerMessage) {
	details, err := op()
	if err != nil {
		h.sendError(client, err)
		return
	}

	h.broadcaster.BroadcastToLobby(details, protocol.ServerMessage{
		LobbyUpdate: &protocol.LobbyUpdateNotification{Details: details},
	})
	if msg := event(details); msg != nil {
		h.broadcaster.BroadcastToLobby(details, *msg)
	}
	h.notifyLobbyListWatchers()
}

func (h *Handler) handleLobbyChat(client core.ClientID, message string) {
	lobbyID, inLobby := h.lobbies.LobbyOf(client)
	if !inLobby {
		h.sendError(client, fmt.Errorf("not in a lobby"))
		return
	}
	details, err := h.lobbies.LobbyDetailsFor(lobbyID)
	if err != nil {
		h.sendError(client, err)
		return
	}

	h.broadcaster.BroadcastToLobby(details, protocol.ServerMessage{
		InLobbyChat: &protocol.ChatNotification{Sender: client, Message: message},
	})
}

func (h *Handler) handleCreateReplay(client core.ClientID, req protocol.CreateReplayRequest) {
	sessionID, err := h.sessions.CreateReplaySession(client, req.ReplayBytes, req.HostOnlyControl)
	if err != nil {
		h.sendError(client, err)
		return
	}

	h.broadcaster.SendToClient(client, protocol.ServerMessage{
		GameStarting: &protocol.GameStartingNotification{SessionID: sessionID},
	})
}

func (h *Handler) handleWatchTogether(client core.ClientID, req protocol.CreateReplayRequest) {
	lobbyID, inLobby := h.lobbies.LobbyOf(client)
	if !inLobby {
		h.sendError(client, fmt.Errorf("not in a lobby"))
		return
	}
	details, err := h.lobbies.LobbyDetailsFor(lobbyID)
	if err != nil {
		h.sendError(client, err)
		return
	}

	var viewers []core.ClientID
	for _, p := range details.Players {
		if !p.Identity.IsBot {
			viewers = append(viewers, core.ClientID(p.Identity.PlayerID))
		}
	}
	for _, o := range details.Observers {
		viewers = append(viewers, core.ClientID(o.PlayerID))
	}

	sessionID, err := h.sessions.CreateReplaySessionForGroup(client, viewers, req.ReplayBytes, req.HostOnlyControl)
	if err != nil {
		h.sendError(client, err)
		return
	}

	h.broadcaster.BroadcastToClients(viewers, protocol.ServerMessage{
		GameStarting: &protocol.GameStartingNotification{SessionID: sessionID},
	})
}

func (h *Handler) notifyLobbyListWatchers() {
	h.broadcaster.BroadcastToClients(h.lobbies.ClientsNotInLobbies(), protocol.ServerMessage{
		LobbyListUpdate: &struct{}{},
	})
}

func (h *Handler) sendError(client core.ClientID, err error) {
	h.logger.Debug("request failed", "client", client, "error", err)
	h.broadcaster.SendToClient(client, protocol.ServerMessage{
		Error: &protocol.ErrorResponse{Code: protocol.ErrUnspecified, Message: err.Error()},
	})
}
