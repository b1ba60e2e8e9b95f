package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/distressd/internal/alert"
)

const (
	writeWait  = 5 * time.Second
	pingPeriod = 30 * time.Second
	pongWait   = pingPeriod + 10*time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// AlertSource is the alert state the server exposes.
type AlertSource interface {
	Snapshot() alert.Snapshot
	Acknowledge() alert.Snapshot
	Subscribe(fn func(alert.Snapshot)) func()
}

// EventsHandler pushes the alert snapshot to websocket clients on every
// change.
type EventsHandler struct {
	alerts AlertSource

	mu      sync.RWMutex
	clients map[string]chan alert.Snapshot
	stop    func()
}

// NewEventsHandler creates a new EventsHandler subscribed to alerts.
func NewEventsHandler(alerts AlertSource) *EventsHandler {
	h := &EventsHandler{
		alerts:  alerts,
		clients: make(map[string]chan alert.Snapshot),
	}
	h.stop = alerts.Subscribe(h.broadcast)
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	updates := make(chan alert.Snapshot, 8)

	h.mu.Lock()
	h.clients[id] = updates
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, id)
		h.mu.Unlock()
	}()

	log.Debug().Str("client", id).Msg("Events client connected")

	closed := make(chan struct{})
	go readLoop(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := writeSnapshot(conn, h.alerts.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			log.Debug().Str("client", id).Msg("Events client disconnected")
			return
		case <-r.Context().Done():
			return
		case snap := <-updates:
			if err := writeSnapshot(conn, snap); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Clients returns the number of connected clients.
func (h *EventsHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops listening for alert changes.
func (h *EventsHandler) Close() {
	h.stop()
}

// broadcast runs on the goroutine that changed the alert state and must not
// block; a client that falls behind drops updates.
func (h *EventsHandler) broadcast(snap alert.Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.clients {
		select {
		case ch <- snap:
		default:
			log.Debug().Str("client", id).Msg("Events client is slow, dropping update")
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snap alert.Snapshot) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(snap)
}

// readLoop drains client messages so pongs and close frames are processed.
func readLoop(conn *websocket.Conn, closed chan struct{}) {
	defer close(closed)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
