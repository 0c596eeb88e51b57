// Package server is the HTTP surface of codeforge: the playground page and
// its session endpoints, the snippet and catalog REST API, and the WebSocket
// channel used for live reload notifications.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/codeforge-edu/codeforge/internal/catalog"
	"github.com/codeforge-edu/codeforge/internal/config"
	"github.com/codeforge-edu/codeforge/internal/session"
	"github.com/codeforge-edu/codeforge/playground"
)

// Server routes playground, API and WebSocket traffic.
type Server struct {
	config  *config.Config
	store   playground.Store
	manager *session.Manager
	catalog *catalog.Catalog

	playgroundHandler *PlaygroundHandler
	apiHandler        *APIHandler

	connections map[*websocket.Conn]bool // Track connected WebSocket clients
	connMu      sync.RWMutex             // Separate mutex for connections
	watcher     *Watcher                 // File watcher for catalog hot reload

	cancelRateLimit context.CancelFunc
}

// New creates a server over the given store. cat may be nil when the catalog
// feature is disabled.
func New(cfg *config.Config, store playground.Store, cat *catalog.Catalog) *Server {
	s := &Server{
		config:      cfg,
		store:       store,
		manager:     session.NewManager(cfg.GetTokens()),
		catalog:     cat,
		connections: make(map[*websocket.Conn]bool),
	}
	s.playgroundHandler = NewPlaygroundHandler(s)
	s.apiHandler = NewAPIHandler(s)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/ws":
		s.serveWebSocket(w, r)
	case r.URL.Path == "/healthz":
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case r.URL.Path == "/" || r.URL.Path == "/playground":
		s.playgroundHandler.ServePlaygroundPage(w, r)
	case strings.HasPrefix(r.URL.Path, "/playground/"):
		s.playgroundHandler.ServeHTTP(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/"):
		s.apiHandler.ServeHTTP(w, r)
	default:
		http.NotFound(w, r)
	}
}

// Handler wraps the server in its middleware chain. The returned handler is
// what should be mounted on the listener.
func (s *Server) Handler(ctx context.Context) http.Handler {
	var h http.Handler = s

	h = SessionMiddleware(s.manager)(h)

	if s.config.API != nil {
		rlCtx, cancel := context.WithCancel(ctx)
		s.cancelRateLimit = cancel
		rl, _ := RateLimitMiddleware(rlCtx,
			s.config.API.GetRateLimitRPS(),
			s.config.API.GetRateLimitBurst(), 0)
		h = rl(h)
		h = CORSMiddleware(s.config.API.GetCORSOrigins())(h)
	}

	h = CompressionMiddleware(h)
	h = SecurityHeadersMiddleware()(h)
	return h
}

// Close releases background resources.
func (s *Server) Close() error {
	if s.cancelRateLimit != nil {
		s.cancelRateLimit()
	}
	return s.StopWatch()
}

// RegisterConnection adds a WebSocket connection to the tracked connections.
func (s *Server) RegisterConnection(conn *websocket.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.connections[conn] = true
	log.Printf("[Server] WebSocket connection registered: %d active connections", len(s.connections))
}

// UnregisterConnection removes a WebSocket connection from tracked connections.
func (s *Server) UnregisterConnection(conn *websocket.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	delete(s.connections, conn)
	log.Printf("[Server] WebSocket connection unregistered: %d active connections", len(s.connections))
}

// Broadcast sends a JSON message to all connected WebSocket clients.
func (s *Server) Broadcast(action string, fields map[string]interface{}) {
	s.connMu.RLock()
	defer s.connMu.RUnlock()

	if len(s.connections) == 0 {
		return
	}

	msg := map[string]interface{}{"action": action}
	for k, v := range fields {
		msg[k] = v
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Server] Failed to marshal %s message: %v", action, err)
		return
	}

	log.Printf("[Server] Broadcasting %s to %d connections", action, len(s.connections))

	for conn := range s.connections {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("[Server] Failed to send %s to connection: %v", action, err)
		}
	}
}

// BroadcastReload tells connected browsers that catalog content changed.
func (s *Server) BroadcastReload(filePath string) {
	s.Broadcast("reload", map[string]interface{}{"filePath": filePath})
}

// BroadcastSnippetsChanged tells connected browsers to refetch their snippet
// lists after a mutation.
func (s *Server) BroadcastSnippetsChanged(ownerID string) {
	s.Broadcast("snippets-changed", map[string]interface{}{"owner": ownerID})
}

// EnableWatch watches the catalog content directory and reloads rendered
// courses on change.
func (s *Server) EnableWatch(debug bool) error {
	if s.catalog == nil {
		return nil
	}

	dir := s.config.Catalog.ContentDir
	watcher, err := NewWatcher(dir, func(filePath string) error {
		if err := s.catalog.Reload(); err != nil {
			return fmt.Errorf("failed to reload catalog: %w", err)
		}
		s.BroadcastReload(filepath.ToSlash(filePath))
		return nil
	}, debug)

	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	s.watcher = watcher
	s.watcher.Start()

	log.Printf("[Watch] File watcher started for %s", dir)
	return nil
}

// StopWatch stops the file watcher if it's running.
func (s *Server) StopWatch() error {
	if s.watcher != nil {
		w := s.watcher
		s.watcher = nil
		return w.Stop()
	}
	return nil
}
