package server

import (
	"crypto/rand"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/codeforge-edu/codeforge/internal/session"
	"github.com/codeforge-edu/codeforge/playground"
)

//go:embed playground.html
var playgroundHTML embed.FS

// sessionCookie identifies a browser's playground session.
const sessionCookie = "codeforge_session"

// PlaygroundSession holds one browser's buffers and snippet selection.
type PlaygroundSession struct {
	ID         string
	Controller *playground.Controller
	LastSeen   time.Time
}

// previewRun is a composed document registered for iframe preview. Running
// code is fire-and-forget: the server hands out a document id and never hears
// back from the sandboxed frame.
type previewRun struct {
	doc       string
	createdAt time.Time
}

// PlaygroundHandler handles playground session and preview requests.
type PlaygroundHandler struct {
	server   *Server
	sessions map[string]*PlaygroundSession
	runs     map[string]previewRun
	mu       sync.RWMutex

	sessionTTL time.Duration
	runTTL     time.Duration
}

// NewPlaygroundHandler creates a new playground handler.
func NewPlaygroundHandler(s *Server) *PlaygroundHandler {
	h := &PlaygroundHandler{
		server:     s,
		sessions:   make(map[string]*PlaygroundSession),
		runs:       make(map[string]previewRun),
		sessionTTL: s.config.Playground.GetSessionTTL(),
		runTTL:     s.config.Playground.GetRunTTL(),
	}

	// Start cleanup goroutine for expired sessions and preview documents
	go h.cleanupLoop()

	return h
}

// cleanupLoop removes expired sessions and preview runs every 5 minutes.
func (h *PlaygroundHandler) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		h.mu.Lock()
		now := time.Now()
		for id, sess := range h.sessions {
			if now.Sub(sess.LastSeen) > h.sessionTTL {
				delete(h.sessions, id)
			}
		}
		for id, run := range h.runs {
			if now.Sub(run.createdAt) > h.runTTL {
				delete(h.runs, id)
			}
		}
		h.mu.Unlock()
	}
}

// generateID creates a random session or run ID.
func generateID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// session returns the browser's playground session, creating one (and
// setting the cookie) on first contact.
func (h *PlaygroundHandler) session(w http.ResponseWriter, r *http.Request) *PlaygroundSession {
	if c, err := r.Cookie(sessionCookie); err == nil {
		h.mu.Lock()
		if sess, ok := h.sessions[c.Value]; ok {
			sess.LastSeen = time.Now()
			h.mu.Unlock()
			return sess
		}
		h.mu.Unlock()
	}

	sess := &PlaygroundSession{
		ID:         generateID(),
		Controller: playground.NewController(playground.NewBufferSet(), h.server.store, session.Gate{}),
		LastSeen:   time.Now(),
	}

	h.mu.Lock()
	h.sessions[sess.ID] = sess
	h.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

// ServePlaygroundPage serves the playground HTML page.
func (h *PlaygroundHandler) ServePlaygroundPage(w http.ResponseWriter, r *http.Request) {
	content, err := playgroundHTML.ReadFile("playground.html")
	if err != nil {
		http.Error(w, "Playground not available", http.StatusInternalServerError)
		return
	}

	h.session(w, r) // Ensure the cookie exists before the page makes API calls

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(content)
}

// ServeHTTP routes /playground/* requests.
func (h *PlaygroundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/playground/")

	switch {
	case strings.HasPrefix(path, "preview/"):
		h.handlePreview(w, r, strings.TrimPrefix(path, "preview/"))
	case path == "buffers" && r.Method == http.MethodGet:
		h.handleGetBuffers(w, r)
	case path == "buffers" && r.Method == http.MethodPost:
		h.handleSetBuffer(w, r)
	case path == "run" && r.Method == http.MethodPost:
		h.handleRun(w, r)
	case path == "save" && r.Method == http.MethodPost:
		h.handleSave(w, r)
	case path == "load" && r.Method == http.MethodPost:
		h.handleLoad(w, r)
	case path == "new" && r.Method == http.MethodPost:
		h.handleNew(w, r)
	case path == "snippets" && r.Method == http.MethodGet:
		h.handleListSnippets(w, r)
	case strings.HasPrefix(path, "snippets/") && r.Method == http.MethodDelete:
		h.handleDeleteSnippet(w, r, strings.TrimPrefix(path, "snippets/"))
	case path == "export" && r.Method == http.MethodGet:
		h.handleExport(w, r)
	default:
		writeError(w, http.StatusNotFound, "unknown playground endpoint")
	}
}

// buffersResponse is the JSON shape for GET /playground/buffers.
type buffersResponse struct {
	Buffers    map[playground.Language]string `json:"buffers"`
	Active     playground.Language            `json:"active"`
	SelectedID string                         `json:"selected_id,omitempty"`
}

func (h *PlaygroundHandler) buffersState(sess *PlaygroundSession) buffersResponse {
	structure, presentation, behavior := sess.Controller.Buffers().Snapshot()
	resp := buffersResponse{
		Buffers: map[playground.Language]string{
			playground.LangStructure:    structure,
			playground.LangPresentation: presentation,
			playground.LangBehavior:     behavior,
		},
		Active: sess.Controller.Buffers().Active(),
	}
	if id, ok := sess.Controller.Selected(); ok {
		resp.SelectedID = id
	}
	return resp
}

// handleGetBuffers handles GET /playground/buffers.
func (h *PlaygroundHandler) handleGetBuffers(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	writeJSON(w, http.StatusOK, h.buffersState(sess))
}

// setBufferRequest is the JSON request body for POST /playground/buffers.
// Either or both fields may be set: code updates the named buffer, active
// switches the visible tab.
type setBufferRequest struct {
	Language playground.Language `json:"language"`
	Code     *string             `json:"code,omitempty"`
	Active   bool                `json:"active,omitempty"`
}

// handleSetBuffer handles POST /playground/buffers.
func (h *PlaygroundHandler) handleSetBuffer(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)

	var req setBufferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	buffers := sess.Controller.Buffers()
	if req.Code != nil {
		if err := buffers.Set(req.Language, *req.Code); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Active {
		if err := buffers.SetActive(req.Language); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, h.buffersState(sess))
}

// runResponse is the JSON response for POST /playground/run.
type runResponse struct {
	RunID      string `json:"run_id"`
	PreviewURL string `json:"preview_url"`
}

// handleRun handles POST /playground/run. It composes the current buffers
// into a document and registers it for preview. The composed document is
// returned by id only; execution happens in the browser's sandboxed iframe
// and no result ever comes back.
func (h *PlaygroundHandler) handleRun(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)

	structure, presentation, behavior := sess.Controller.Buffers().Snapshot()
	doc := playground.Compose(structure, presentation, behavior)

	runID := generateID()
	h.mu.Lock()
	h.runs[runID] = previewRun{doc: doc, createdAt: time.Now()}
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, runResponse{
		RunID:      runID,
		PreviewURL: "/playground/preview/" + runID,
	})
}

// handlePreview handles GET /playground/preview/{runId}. The response carries
// a sandbox CSP so that even outside the iframe the document cannot reach
// same-origin state or make credentialed requests.
func (h *PlaygroundHandler) handlePreview(w http.ResponseWriter, r *http.Request, runID string) {
	runID = strings.Split(runID, "/")[0]
	if runID == "" {
		http.Error(w, "Run ID required", http.StatusBadRequest)
		return
	}

	h.mu.RLock()
	run, exists := h.runs[runID]
	h.mu.RUnlock()

	if !exists {
		http.Error(w, "Run not found or expired", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", "sandbox allow-scripts")
	io.WriteString(w, run.doc)
}

// saveRequest is the JSON request body for POST /playground/save.
type saveRequest struct {
	Title string `json:"title"`
}

// snippetsResponse wraps a post-mutation snippet list.
type snippetsResponse struct {
	Snippets   []playground.Snippet `json:"snippets"`
	SelectedID string               `json:"selected_id,omitempty"`
}

func (h *PlaygroundHandler) snippetsState(sess *PlaygroundSession, list []playground.Snippet) snippetsResponse {
	resp := snippetsResponse{Snippets: list}
	if id, ok := sess.Controller.Selected(); ok {
		resp.SelectedID = id
	}
	return resp
}

// handleSave handles POST /playground/save.
func (h *PlaygroundHandler) handleSave(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)

	var req saveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	list, err := sess.Controller.Save(r.Context(), req.Title)
	if err != nil {
		writePlaygroundError(w, err)
		return
	}

	if owner, ok := (session.Gate{}).CurrentOwner(r.Context()); ok {
		h.server.BroadcastSnippetsChanged(owner)
	}
	writeJSON(w, http.StatusOK, h.snippetsState(sess, list))
}

// loadRequest is the JSON request body for POST /playground/load.
type loadRequest struct {
	ID string `json:"id"`
}

// handleLoad handles POST /playground/load. The snippet is fetched from the
// owner's list so a foreign id reads as not found.
func (h *PlaygroundHandler) handleLoad(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)

	var req loadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "snippet id is required")
		return
	}

	list, err := sess.Controller.List(r.Context())
	if err != nil {
		writePlaygroundError(w, err)
		return
	}

	for _, snip := range list {
		if snip.ID == req.ID {
			if err := sess.Controller.Load(snip); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, h.buffersState(sess))
			return
		}
	}
	writePlaygroundError(w, &playground.NotFoundError{ID: req.ID})
}

// handleNew handles POST /playground/new.
func (h *PlaygroundHandler) handleNew(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	sess.Controller.NewSnippet()
	writeJSON(w, http.StatusOK, h.buffersState(sess))
}

// handleListSnippets handles GET /playground/snippets.
func (h *PlaygroundHandler) handleListSnippets(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)

	list, err := sess.Controller.List(r.Context())
	if err != nil {
		writePlaygroundError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.snippetsState(sess, list))
}

// handleDeleteSnippet handles DELETE /playground/snippets/{id}.
func (h *PlaygroundHandler) handleDeleteSnippet(w http.ResponseWriter, r *http.Request, id string) {
	sess := h.session(w, r)

	id = strings.Split(id, "/")[0]
	if id == "" {
		writeError(w, http.StatusBadRequest, "snippet id is required")
		return
	}

	list, err := sess.Controller.Delete(r.Context(), id)
	if err != nil {
		writePlaygroundError(w, err)
		return
	}

	if owner, ok := (session.Gate{}).CurrentOwner(r.Context()); ok {
		h.server.BroadcastSnippetsChanged(owner)
	}
	writeJSON(w, http.StatusOK, h.snippetsState(sess, list))
}

// handleExport handles GET /playground/export?language=css. The download
// carries the buffer content byte for byte.
func (h *PlaygroundHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)

	lang, err := playground.ParseLanguage(r.URL.Query().Get("language"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	file := playground.Export(lang, sess.Controller.Buffers().Get(lang))
	w.Header().Set("Content-Type", file.ContentType+"; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	io.WriteString(w, file.Content)
}

// decodeJSON decodes a size-limited JSON body, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return err
	}
	return nil
}
