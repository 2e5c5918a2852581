package progress

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Websocket timing defaults.
const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
)

// WSHandler streams the events of a hub channel to websocket clients as
// JSON messages of the form {"event": name, "data": payload}.
type WSHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWSHandler creates a WSHandler for hub. CheckOrigin accepts any origin;
// callers that need origin checks should wrap the handler.
func NewWSHandler(hub *Hub, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With("component", "progress_ws"),
	}
}

// Serve upgrades the request and forwards channel events until the client
// disconnects or the hub closes.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request, channel string) {
	sub, err := h.hub.Subscribe(channel)
	if err != nil {
		http.Error(w, "progress channel unavailable", http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		h.logger.Warn("websocket upgrade failed", "error", err, "channel", channel)
		return
	}
	defer func() { _ = conn.Close() }()

	log := h.logger.With("channel", channel)
	log.Debug("websocket subscriber connected")

	done := make(chan struct{})
	go h.readPump(conn, done)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			log.Debug("websocket subscriber disconnected")
			return

		case event, ok := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := conn.WriteJSON(event.Message()); err != nil {
				log.Warn("failed to write websocket message", "error", err, "event", event.Name)
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and closes done when the connection ends.
func (h *WSHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
