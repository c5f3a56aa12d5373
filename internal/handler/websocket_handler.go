package handler

import (
	"log/slog"
	"net/http"

	gorilla "github.com/gorilla/websocket"

	"signage-studio/internal/websocket"
)

type WebSocketHandler struct {
	hub      *websocket.Hub
	upgrader gorilla.Upgrader
}

// NewWebSocketHandler accepts upgrades from the listed origins. An empty list
// or "*" accepts any origin.
func NewWebSocketHandler(hub *websocket.Hub, allowedOrigins []string) *WebSocketHandler {
	h := &WebSocketHandler{hub: hub}
	h.upgrader = gorilla.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	client := websocket.NewClient(h.hub, conn)
	if !h.hub.Register(client) {
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Non-browser clients (the console) send no Origin.
		return origin == "" || len(set) == 0 || set[origin]
	}
}
