package server

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Same-origin pages only. An absent Origin header (non-browser
		// client) is allowed.
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	},
}

// serveWebSocket handles /ws. The channel is one-way: the server pushes
// reload and snippets-changed notifications, clients only listen. Incoming
// messages are drained and dropped.
func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Failed to upgrade connection: %v", err)
		return
	}
	defer func() {
		s.UnregisterConnection(conn)
		conn.Close()
	}()

	s.RegisterConnection(conn)

	if s.config.Server.Debug {
		log.Printf("[WS] Client connected: %s", conn.RemoteAddr())
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] Unexpected close: %v", err)
			}
			break
		}
	}

	if s.config.Server.Debug {
		log.Printf("[WS] Client disconnected: %s", conn.RemoteAddr())
	}
}
