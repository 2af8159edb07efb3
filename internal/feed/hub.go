// ABOUTME: WebSocket broadcaster for session lifecycle and progress events
// ABOUTME: Subscribers receive JSON messages; late joiners get the latest state
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// sendBuffer is how many messages a slow subscriber may lag before drops
	sendBuffer    = 64
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
)

// Message is the envelope written to subscribers
type Message struct {
	Type    string `json:"type"`
	Payload Event  `json:"payload"`
}

// Message types
const (
	TypeStart    = "session/start"
	TypeProgress = "session/progress"
	TypeComplete = "session/complete"
	TypeStopped  = "session/stopped"
	TypeFailed   = "session/failed"
)

// Event describes one session notification
type Event struct {
	Session          string    `json:"session"`
	Kind             string    `json:"kind"`
	At               time.Time `json:"at"`
	Percent          int       `json:"percent"`
	SecondsRemaining uint      `json:"seconds_remaining"`
	Error            string    `json:"error,omitempty"`
}

func terminal(msgType string) bool {
	return msgType == TypeComplete || msgType == TypeStopped || msgType == TypeFailed
}

// Hub fans session events out to websocket subscribers
type Hub struct {
	upgrader websocket.Upgrader
	debug    bool

	clients map[string]*subscriber
	latest  map[string]Message
	mu      sync.RWMutex

	httpServer *http.Server
	isShutdown bool
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

type subscriber struct {
	id       string
	conn     *websocket.Conn
	sendChan chan Message
}

// NewHub creates a hub with no subscribers
func NewHub(debug bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			// The feed is read-only and meant for local dashboards
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		debug:   debug,
		clients: make(map[string]*subscriber),
		latest:  make(map[string]Message),
	}
}

// Start serves the feed on addr at "/" and "/feed" until Close
func (h *Hub) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/feed", h)
	mux.Handle("/", h)
	h.httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := h.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Feed server error: %v", err)
		}
	}()

	log.Printf("Progress feed listening on ws://%s/feed", ln.Addr())
	return nil
}

// ServeHTTP upgrades the request and streams events until the peer leaves
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	sub := &subscriber{
		id:       uuid.New().String(),
		conn:     conn,
		sendChan: make(chan Message, sendBuffer),
	}

	h.mu.Lock()
	if h.isShutdown {
		h.mu.Unlock()
		return
	}
	for _, msg := range h.latest {
		select {
		case sub.sendChan <- msg:
		default:
		}
	}
	h.clients[sub.id] = sub
	h.wg.Add(2)
	h.mu.Unlock()

	if h.debug {
		log.Printf("[DEBUG] Feed subscriber %s connected from %s", sub.id[:8], r.RemoteAddr)
	}

	go func() {
		defer h.wg.Done()
		h.writer(sub)
	}()

	defer func() {
		h.mu.Lock()
		delete(h.clients, sub.id)
		close(sub.sendChan)
		h.mu.Unlock()
		if h.debug {
			log.Printf("[DEBUG] Feed subscriber %s disconnected", sub.id[:8])
		}
		h.wg.Done()
	}()

	// Subscribers never send anything meaningful; reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && h.debug {
				log.Printf("[DEBUG] Feed subscriber %s: %v", sub.id[:8], err)
			}
			return
		}
	}
}

// writer sends queued messages and keepalive pings to one subscriber
func (h *Hub) writer(sub *subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-sub.sendChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("Error marshaling feed message: %v", err)
				continue
			}
			sub.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				if h.debug {
					log.Printf("[DEBUG] Feed write failed: %v", err)
				}
				sub.conn.Close()
				return
			}

		case <-ticker.C:
			if err := sub.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				sub.conn.Close()
				return
			}
		}
	}
}

// Publish queues msg for every subscriber without blocking. A subscriber
// whose queue is full misses the message.
func (h *Hub) Publish(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if terminal(msg.Type) {
		delete(h.latest, msg.Payload.Session)
	} else {
		h.latest[msg.Payload.Session] = msg
	}

	for _, sub := range h.clients {
		select {
		case sub.sendChan <- msg:
		default:
			if h.debug {
				log.Printf("[DEBUG] Feed subscriber %s lagging, dropped %s", sub.id[:8], msg.Type)
			}
		}
	}
}

// Clients returns the number of connected subscribers
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the server, disconnects every subscriber and waits for
// their handlers and writers to exit
func (h *Hub) Close() error {
	var err error
	h.stopOnce.Do(func() {
		if h.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err = h.httpServer.Shutdown(ctx)
			cancel()
		}

		h.mu.Lock()
		h.isShutdown = true
		for _, sub := range h.clients {
			sub.conn.Close()
		}
		h.mu.Unlock()

		h.wg.Wait()
	})
	return err
}
