package devtools

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// DefaultWriteTimeout bounds one write to a WebSocket client.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultSendBuffer is the number of messages queued per client before
	// the client is dropped as too slow.
	DefaultSendBuffer = 256
)

// client owns one connection. Only its writer goroutine writes to conn.
type client struct {
	conn     *websocket.Conn
	greeting [][]byte
	send     chan []byte
	done     chan struct{}
	once     sync.Once
}

// stop closes the connection once; the writer and reader both exit.
func (c *client) stop() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// hub fans messages out to connected WebSocket clients. broadcast never
// blocks: each client drains its own queue.
type hub struct {
	clients      map[*client]bool
	mu           sync.RWMutex
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	sendBuffer   int
}

func newHub() *hub {
	return &hub{
		clients:      make(map[*client]bool),
		writeTimeout: DefaultWriteTimeout,
		sendBuffer:   DefaultSendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // local inspector
			},
		},
	}
}

// serve upgrades the request, registers the client with the greeting built
// by greet and blocks until the client disconnects. greet runs under the
// hub lock, so no broadcast falls between the greeting and the stream.
func (h *hub) serve(w http.ResponseWriter, req *http.Request, greet func() []Message) {
	conn, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	c := &client{
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	for _, msg := range greet() {
		data, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		c.greeting = append(c.greeting, data)
	}
	h.clients[c] = true
	h.mu.Unlock()

	go h.writeLoop(c)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(c)
}

func (h *hub) writeLoop(c *client) {
	defer h.remove(c)

	write := func(data []byte) bool {
		c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		return c.conn.WriteMessage(websocket.TextMessage, data) == nil
	}

	for _, data := range c.greeting {
		if !write(data) {
			return
		}
	}
	c.greeting = nil

	for {
		select {
		case data := <-c.send:
			if !write(data) {
				return
			}
		case <-c.done:
			return
		}
	}
}

// broadcast queues msg for every client. A client whose queue is full is
// dropped.
func (h *hub) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.remove(c)
	}
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.stop()
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *hub) close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
		delete(h.clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		c.stop()
	}
}
