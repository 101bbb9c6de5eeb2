package internal

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxMsgSize      = 8192
	rateLimitWindow = 3 * time.Second
	rateLimitBurst  = 5
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// we allow all origins in development; in production you should tighten this if the server is exposed publicly.
		return true
	},
}

// a session wraps a single websocket connection with a buffered send queue.
// It is the transport-side half of one connection handle: the routing core
// only ever sees its id and its Push capability.
type session struct {
	id   ConnID
	conn *websocket.Conn
	send chan []byte
	stop chan struct{}
	once sync.Once
}

func newSession(conn *websocket.Conn) *session {
	return &session{
		id:   ConnID(uuid.NewString()),
		conn: conn,
		send: make(chan []byte, 256),
		stop: make(chan struct{}),
	}
}

// Push queues a frame for delivery. If the session's buffer is full the peer
// is too slow to read, and we terminate the session rather than let it apply
// backpressure on the sender.
func (s *session) Push(frame []byte) {
	select {
	case s.send <- frame:
	case <-s.stop:
	default:
		s.close()
	}
}

func (s *session) close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *session) readPump(server *Server) {
	defer func() {
		server.controller.Disconnect(s.id)
		server.limiter.Forget(string(s.id))
		server.metrics.DecConn()
		s.close()
		s.conn.Close()
	}()
	s.conn.SetReadLimit(maxMsgSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			// this is a normal close or read error, so we break and let the deferred cleanup run.
			break
		}
		var frame inboundFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			continue
		}
		switch frame.Event {
		case "join":
			var join joinPayload
			if err := json.Unmarshal(frame.Data, &join); err != nil {
				continue
			}
			server.controller.Join(s.id, s, join.Username, join.Role, join.Room)
		case "chatMessage":
			if !server.limiter.Allow(string(s.id)) {
				s.notifyRateLimit()
				continue
			}
			chat, ok := decodeChatPayload(frame.Data)
			if !ok {
				continue
			}
			server.controller.ChatMessage(s.id, chat.Text, chat.TargetRoom)
		}
	}
}

func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case message := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-s.stop:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *session) notifyRateLimit() {
	frame, err := encodeFrame(EventMessage, Envelope{
		Kind:     KindSystem,
		Username: SystemSender,
		Text:     "You're sending messages too quickly. Please wait a moment and try again.",
		Ts:       time.Now().Format("15:04:05"),
	})
	if err != nil {
		return
	}
	select {
	case s.send <- frame:
	default:
	}
}

// ServeWS upgrades the request and starts the session pumps. Everything after
// the upgrade is event-driven: the core hears nothing from this connection
// until its join frame arrives.
func (server *Server) ServeWS(writer http.ResponseWriter, request *http.Request) {
	websocketConn, err := upgrader.Upgrade(writer, request, nil)
	if err != nil {
		log.Printf("upgrade error: %v", err)
		return
	}
	sess := newSession(websocketConn)
	server.metrics.IncConn()

	go sess.writePump()
	go sess.readPump(server)
}
