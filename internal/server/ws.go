package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/servotrack/internal/app"
)

// telemetryBuffer is the per-client queue depth; older messages are dropped
// for clients that fall behind.
const telemetryBuffer = 8

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// TelemetryHandler pushes one JSON status message per processed frame to
// each WebSocket client.
type TelemetryHandler struct {
	hub     *app.Hub
	log     *slog.Logger
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewTelemetryHandler creates a new TelemetryHandler over hub.
func NewTelemetryHandler(hub *app.Hub, logger *slog.Logger) *TelemetryHandler {
	return &TelemetryHandler{
		hub:     hub,
		log:     logger,
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *TelemetryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	msgs, unsubscribe := h.hub.Subscribe(telemetryBuffer)
	defer unsubscribe()

	// Reading detects the client going away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				unsubscribe()
				return
			}
		}
	}()

	for msg := range msgs {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Clients returns the number of connected clients.
func (h *TelemetryHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
