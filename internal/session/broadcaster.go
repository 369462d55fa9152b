// Package session hosts the live-match runtime: the broadcaster that fans
// state out to per-client queues, the per-game session loops, replay
// playback sessions, and the manager that creates, tracks and retires them.
package session

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/protocol"
)

// DefaultQueueSize bounds each client's outbound queue.
const DefaultQueueSize = 64

type clientQueue struct {
	ch      chan protocol.ServerMessage
	dropped uint64
}

// Broadcaster maps client ids to bounded outbound queues and fans messages
// out to recipient sets. Sends never block: a full queue degrades only that
// recipient by dropping the newest message.
type Broadcaster struct {
	mu        sync.Mutex
	clients   map[core.ClientID]*clientQueue
	queueSize int
	logger    *log.Logger
}

// NewBroadcaster creates an empty registry.
func NewBroadcaster(queueSize int, logger *log.Logger) *Broadcaster {
	if queueSize < 1 {
		queueSize = DefaultQueueSize
	}
	return &Broadcaster{
		clients:   make(map[core.ClientID]*clientQueue),
		queueSize: queueSize,
		logger:    logger,
	}
}

// Register creates the client's outbound queue and returns its receive
// side for the connection's writer. Registering an id that already has a
// queue drops the old queue: last writer wins on reconnect.
func (b *Broadcaster) Register(client core.ClientID) <-chan protocol.ServerMessage {
	b.mu.Lock()
	defer b.mu.Unlock()

	if old, exists := b.clients[client]; exists {
		close(old.ch)
	}

	q := &clientQueue{ch: make(chan protocol.ServerMessage, b.queueSize)}
	b.clients[client] = q
	return q.ch
}

// Unregister removes the client's queue. Only the owner's disconnect path
// calls this; an in-flight send to the removed id is dropped.
func (b *Broadcaster) Unregister(client core.ClientID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if q, exists := b.clients[client]; exists {
		close(q.ch)
		delete(b.clients, client)
	}
}

// SendToClient queues a message for one client.
func (b *Broadcaster) SendToClient(client core.ClientID, msg protocol.ServerMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sendLocked(client, msg)
}

// BroadcastToClients queues a message for every listed client.
func (b *Broadcaster) BroadcastToClients(clients []core.ClientID, msg protocol.ServerMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, client := range clients {
		b.sendLocked(client, msg)
	}
}

// BroadcastToAll queues a message for every registered client.
func (b *Broadcaster) BroadcastToAll(msg protocol.ServerMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for client := range b.clients {
		b.sendLocked(client, msg)
	}
}

// BroadcastToLobby queues a message for every player and observer of a
// lobby.
func (b *Broadcaster) BroadcastToLobby(details protocol.LobbyDetails, msg protocol.ServerMessage) {
	b.BroadcastToClients(lobbyRecipients(details, ""), msg)
}

// BroadcastToLobbyExcept queues a message for the lobby minus one client.
func (b *Broadcaster) BroadcastToLobbyExcept(details protocol.LobbyDetails, except core.ClientID, msg protocol.ServerMessage) {
	b.BroadcastToClients(lobbyRecipients(details, except), msg)
}

func lobbyRecipients(details protocol.LobbyDetails, except core.ClientID) []core.ClientID {
	recipients := make([]core.ClientID, 0, len(details.Players)+len(details.Observers))
	for _, p := range details.Players {
		if p.Identity.IsBot {
			continue
		}
		if client := core.ClientID(p.Identity.PlayerID); client != except {
			recipients = append(recipients, client)
		}
	}
	for _, o := range details.Observers {
		if client := core.ClientID(o.PlayerID); client != except {
			recipients = append(recipients, client)
		}
	}
	return recipients
}

func (b *Broadcaster) sendLocked(client core.ClientID, msg protocol.ServerMessage) {
	q, exists := b.clients[client]
	if !exists {
		return
	}

	if msg.Version == "" {
		msg.Version = core.EngineVersion
	}

	select {
	case q.ch <- msg:
	default:
		// Queue full: this recipient loses the message, siblings are
		// unaffected.
		q.dropped++
		if b.logger != nil && q.dropped%16 == 1 {
			b.logger.Warn("outbound queue full, dropping message",
				"client", client, "dropped", q.dropped)
		}
	}
}

// DroppedCount reports how many messages a client has lost to backpressure.
func (b *Broadcaster) DroppedCount(client core.ClientID) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if q, exists := b.clients[client]; exists {
		return q.dropped
	}
	return 0
}
