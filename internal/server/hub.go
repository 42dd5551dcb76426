package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/joyeues/wordflow-animation-lab/internal/playback"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// sendBuffer frames may queue per client before new ones are dropped.
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ControlMessage is what clients send over the socket to drive playback.
type ControlMessage struct {
	Action string `json:"action"`
	ControlRequest
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans session frames out to websocket clients. Each client has its own
// writer goroutine; a slow client loses frames instead of stalling others.
type Hub struct {
	session *playback.Session
	control func(string, ControlRequest) error

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	unsub   func()
}

// NewHub subscribes to session frames.
func NewHub(session *playback.Session) *Hub {
	h := &Hub{
		session: session,
		clients: make(map[*client]struct{}),
	}
	h.unsub = session.Subscribe(h.broadcast)
	return h
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close unsubscribes from the session and disconnects every client.
func (h *Hub) Close() {
	h.unsub()

	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		close(c.send)
	}
}

// ServeWS upgrades the request and streams frames until the client leaves.
// GET /ws/playback
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[!] ws: upgrade: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		conn.Close()
		return
	}

	go h.writePump(c)

	// Текущее состояние сразу после подключения
	if msg, err := json.Marshal(h.session.FrameAt(h.session.Clock().Time())); err == nil {
		h.deliver(c, msg)
	}

	h.readPump(c)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		close(c.send)
	}
}

func (h *Hub) broadcast(f playback.Frame) {
	msg, err := json.Marshal(f)
	if err != nil {
		log.Printf("[!] ws: encode frame: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// deliver queues msg for one client unless it has gone away.
func (h *Hub) deliver(c *client, msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg ControlMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[!] ws: read: %v", err)
			}
			return
		}
		if h.control == nil {
			continue
		}
		if err := h.control(msg.Action, msg.ControlRequest); err != nil {
			log.Printf("[!] ws: %s: %v", msg.Action, err)
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
