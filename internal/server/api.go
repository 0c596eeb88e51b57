package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/codeforge-edu/codeforge/internal/session"
	"github.com/codeforge-edu/codeforge/playground"
)

// maxRequestBodySize limits the size of incoming request bodies (1MB)
const maxRequestBodySize = 1 << 20

// APIHandler handles the REST API: snippet CRUD for authenticated clients
// and the read-only catalog endpoints.
type APIHandler struct {
	server *Server
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(s *Server) *APIHandler {
	return &APIHandler{server: s}
}

// ServeHTTP routes /api/* requests.
func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/")

	switch {
	case path == "snippets" || strings.HasPrefix(path, "snippets/"):
		h.serveSnippets(w, r, strings.TrimPrefix(strings.TrimPrefix(path, "snippets"), "/"))
	case strings.HasPrefix(path, "catalog/"):
		h.serveCatalog(w, r, strings.TrimPrefix(path, "catalog/"))
	default:
		writeError(w, http.StatusNotFound, "unknown API endpoint")
	}
}

// snippetRequest is the JSON body for snippet create and update.
type snippetRequest struct {
	Title    string              `json:"title"`
	Language playground.Language `json:"language,omitempty"`
	Code     string              `json:"code"`
}

// serveSnippets handles /api/snippets[/{id}]. Every mutation responds with
// the list fetched after the change so clients never render a stale view.
func (h *APIHandler) serveSnippets(w http.ResponseWriter, r *http.Request, id string) {
	owner, ok := session.Gate{}.CurrentOwner(r.Context())
	if !ok {
		writePlaygroundError(w, playground.ErrUnauthenticated)
		return
	}

	ctx := r.Context()
	store := h.server.store

	switch {
	case r.Method == http.MethodGet && id == "":
		list, err := store.List(ctx, owner)
		if err != nil {
			writePlaygroundError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"snippets": list})

	case r.Method == http.MethodPost && id == "":
		var req snippetRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return
		}
		if req.Language != "" && !req.Language.Valid() {
			writeError(w, http.StatusBadRequest, "invalid snippet language")
			return
		}
		if req.Language == "" {
			req.Language = playground.LangStructure
		}
		created, err := store.Create(ctx, playground.SnippetFields{
			Title:    req.Title,
			Language: req.Language,
			Code:     req.Code,
			OwnerID:  owner,
		})
		if err != nil {
			writePlaygroundError(w, err)
			return
		}
		list, err := store.List(ctx, owner)
		if err != nil {
			writePlaygroundError(w, err)
			return
		}
		h.server.BroadcastSnippetsChanged(owner)
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"snippet":  created,
			"snippets": list,
		})

	case r.Method == http.MethodPut && id != "":
		var req snippetRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return
		}
		err := store.Update(ctx, id, playground.SnippetFields{
			Title:   req.Title,
			Code:    req.Code,
			OwnerID: owner,
		})
		if err != nil {
			writePlaygroundError(w, err)
			return
		}
		list, err := store.List(ctx, owner)
		if err != nil {
			writePlaygroundError(w, err)
			return
		}
		h.server.BroadcastSnippetsChanged(owner)
		writeJSON(w, http.StatusOK, map[string]interface{}{"snippets": list})

	case r.Method == http.MethodDelete && id != "":
		err := store.Delete(ctx, id, owner)
		if err != nil && !playground.IsNotFound(err) {
			// Deleting an already-missing snippet is satisfied, not an error
			writePlaygroundError(w, err)
			return
		}
		list, err := store.List(ctx, owner)
		if err != nil {
			writePlaygroundError(w, err)
			return
		}
		h.server.BroadcastSnippetsChanged(owner)
		writeJSON(w, http.StatusOK, map[string]interface{}{"snippets": list})

	default:
		// Note: OPTIONS (preflight) is handled by CORS middleware before reaching here
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// serveCatalog handles /api/catalog/*. All catalog endpoints are public and
// read-only.
func (h *APIHandler) serveCatalog(w http.ResponseWriter, r *http.Request, path string) {
	if h.server.catalog == nil {
		writeError(w, http.StatusNotFound, "catalog disabled")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	cat := h.server.catalog
	switch {
	case path == "courses":
		writeJSON(w, http.StatusOK, map[string]interface{}{"courses": cat.Courses()})

	case strings.HasPrefix(path, "courses/") && strings.HasSuffix(path, "/challenges"):
		slug := strings.TrimSuffix(strings.TrimPrefix(path, "courses/"), "/challenges")
		challenges, err := cat.Challenges(r.Context(), slug)
		if err != nil {
			writePlaygroundError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"challenges": challenges})

	case strings.HasPrefix(path, "courses/"):
		course, err := cat.Course(strings.TrimPrefix(path, "courses/"))
		if err != nil {
			writePlaygroundError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, course)

	case path == "leaderboard":
		limit := parseIntParam(r, "limit", 25)
		board, err := cat.Leaderboard(r.Context(), limit)
		if err != nil {
			writePlaygroundError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": board})

	default:
		writeError(w, http.StatusNotFound, "unknown catalog endpoint")
	}
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[API] Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		log.Printf("[API] Error encoding error response: %v", err)
	}
}

// writePlaygroundError maps the playground error taxonomy onto HTTP status
// codes: missing identity is 401, a missing record is 404, a failed backend
// round trip is 502.
func writePlaygroundError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, playground.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case playground.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		var te *playground.TransportError
		if errors.As(err, &te) {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}
