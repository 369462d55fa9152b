package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/protocol"
)

const (
	writeTimeout = 10 * time.Second
	// Pre-auth replies share a small local buffer before the broadcaster
	// queue is attached.
	preAuthBuffer = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The protocol authenticates by claimed client id; browser clients are
	// not the primary audience, so cross-origin upgrades are allowed.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Server is the websocket transport shell: one reader goroutine per
// connection feeding the handler sequentially, one writer goroutine
// draining the outbound queue.
type Server struct {
	handler *Handler
	logger  *log.Logger

	httpServer *http.Server
}

// NewServer builds the transport around a handler.
func NewServer(addr string, handler *Handler, logger *log.Logger) *Server {
	s := &Server{handler: handler, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	s.httpServer = &http.Server{Addr: addr, Handler: mux}

	return s
}

// ListenAndServe blocks serving connections.
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Close stops accepting connections.
func (s *Server) Close() error {
	return s.httpServer.Close()
}

// wsConn adapts one websocket to the handler's ClientConn.
type wsConn struct {
	sock    *websocket.Conn
	preAuth chan protocol.ServerMessage
	queueCh chan (<-chan protocol.ServerMessage)
	done    chan struct{}
	once    sync.Once
}

func (c *wsConn) SendDirect(msg protocol.ServerMessage) {
	if msg.Version == "" {
		msg.Version = core.EngineVersion
	}
	select {
	case c.preAuth <- msg:
	default:
	}
}

func (c *wsConn) AttachQueue(queue <-chan protocol.ServerMessage) {
	select {
	case c.queueCh <- queue:
	case <-c.done:
	}
}

func (c *wsConn) close() {
	c.once.Do(func() { close(c.done) })
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	sock, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	conn := &wsConn{
		sock:    sock,
		preAuth: make(chan protocol.ServerMessage, preAuthBuffer),
		queueCh: make(chan (<-chan protocol.ServerMessage), 1),
		done:    make(chan struct{}),
	}

	go s.writeLoop(conn)
	s.readLoop(conn)
}

// readLoop processes requests strictly sequentially for this connection.
func (s *Server) readLoop(conn *wsConn) {
	var clientID core.ClientID

	defer func() {
		// I/O errors and handler-requested disconnects land here; cleanup
		// must run exactly once per connection.
		s.handler.HandleClientDisconnected(clientID)
		conn.close()
		conn.sock.Close()
	}()

	for {
		var msg protocol.ClientMessage
		if err := conn.sock.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("connection read failed", "client", clientID, "error", err)
			}
			return
		}

		if s.handler.HandleMessage(msg, conn, &clientID) == ResultDisconnect {
			return
		}
	}
}

// writeLoop drains the pre-auth buffer and, once attached, the
// broadcaster queue.
func (s *Server) writeLoop(conn *wsConn) {
	var queue <-chan protocol.ServerMessage

	write := func(msg protocol.ServerMessage) bool {
		conn.sock.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.sock.WriteJSON(msg); err != nil {
			s.logger.Debug("connection write failed", "error", err)
			return false
		}
		return true
	}

	for {
		select {
		case <-conn.done:
			return
		case msg := <-conn.preAuth:
			if !write(msg) {
				return
			}
		case q := <-conn.queueCh:
			queue = q
		case msg, open := <-queue:
			if !open {
				// Unregistered: either our own disconnect or a reconnect
				// that took over the id.
				return
			}
			if !write(msg) {
				return
			}
		}
	}
}
