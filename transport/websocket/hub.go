package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	// Frames buffered per client before it is considered too slow.
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Receiver consumes what clients send.
type Receiver interface {
	// Receive is called from the client's read goroutine, one frame at a time.
	Receive(ctx context.Context, c *Client, data []byte)
	// Closed is called once when the connection ends.
	Closed(ctx context.Context, c *Client)
}

// Client represents a WebSocket client
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string

	mu       sync.Mutex
	closed   bool
	code     string
	username string
}

// Hub maintains the set of active clients
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex

	receiver Receiver

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewHub creates a new WebSocket hub delivering client frames to receiver
func NewHub(receiver Receiver) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		receiver:   receiver,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run starts the hub's event loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.ctx.Done():
			h.closeAll()
			return
		}
	}
}

// Stop disconnects every client and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(h.cancel)
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS handles WebSocket requests from clients
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(h, conn)

	select {
	case h.register <- client:
	case <-h.ctx.Done():
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		id:   uuid.NewString(),
	}
}

// registerClient adds a client
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	log.Debug().Str("client_id", client.id).Int("clients", total).Msg("client registered")
}

// unregisterClient removes a client and closes its send channel
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	remaining := len(h.clients)
	h.mu.Unlock()

	if ok {
		client.closeSend()
		log.Debug().Str("client_id", client.id).Int("clients", remaining).Msg("client unregistered")
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*Client]bool)
	h.mu.Unlock()

	for _, c := range clients {
		c.closeSend()
	}
}

// ID returns the connection identifier.
func (c *Client) ID() string {
	return c.id
}

// Send queues a frame without blocking. A client whose buffer is full is
// disconnected, since it can no longer follow the room.
func (c *Client) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		log.Warn().Str("client_id", c.id).Msg("send buffer full, dropping client")
		c.closed = true
		close(c.send)
		return false
	}
}

// Bind records the room and username this connection acts for.
func (c *Client) Bind(code, username string) {
	c.mu.Lock()
	c.code, c.username = code, username
	c.mu.Unlock()
}

// Binding returns the room and username set by Bind.
func (c *Client) Binding() (code, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code, c.username
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump pumps messages from the WebSocket connection to the receiver
func (c *Client) readPump() {
	ctx := c.hub.ctx
	defer func() {
		if c.hub.receiver != nil {
			c.hub.receiver.Closed(ctx, c)
		}
		select {
		case c.hub.unregister <- c:
		case <-ctx.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("client_id", c.id).Msg("websocket read error")
			}
			break
		}
		if c.hub.receiver != nil {
			c.hub.receiver.Receive(ctx, c, data)
		}
	}
}

// writePump pumps messages from the send channel to the WebSocket connection.
// Each frame is written as its own text message.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The channel was closed
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
