package server

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/codeforge-edu/codeforge/internal/config"
	"github.com/codeforge-edu/codeforge/internal/session"
	"github.com/codeforge-edu/codeforge/playground"
)

type buffersState struct {
	Buffers    map[string]string `json:"buffers"`
	Active     string            `json:"active"`
	SelectedID string            `json:"selected_id"`
}

type snippetsState struct {
	Snippets   []playground.Snippet `json:"snippets"`
	SelectedID string               `json:"selected_id"`
}

func TestBufferDefaultsAndRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)

	var state buffersState
	resp := env.do(t, http.MethodGet, "/playground/buffers", nil, &state)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get buffers status = %d", resp.StatusCode)
	}
	if state.Active != "structure" {
		t.Errorf("initial active = %q", state.Active)
	}
	if !strings.Contains(state.Buffers["structure"], "Hello, World!") {
		t.Errorf("html buffer missing seed content: %q", state.Buffers["structure"])
	}
	if len(state.Buffers) != 3 {
		t.Errorf("buffer count = %d", len(state.Buffers))
	}

	code := "p { color: teal }"
	env.do(t, http.MethodPost, "/playground/buffers",
		map[string]interface{}{"language": "presentation", "code": code}, &state)
	if state.Buffers["presentation"] != code {
		t.Errorf("css buffer = %q after set", state.Buffers["presentation"])
	}
	if state.Active != "structure" {
		t.Errorf("setting a buffer switched the active tab to %q", state.Active)
	}

	env.do(t, http.MethodPost, "/playground/buffers",
		map[string]interface{}{"language": "presentation", "active": true}, &state)
	if state.Active != "presentation" {
		t.Errorf("active = %q after switch", state.Active)
	}
	if state.Buffers["presentation"] != code {
		t.Errorf("tab switch changed buffer content to %q", state.Buffers["presentation"])
	}
}

func TestSetBufferRejectsUnknownLanguage(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/playground/buffers",
		map[string]interface{}{"language": "python", "code": "print(1)"}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown language status = %d", resp.StatusCode)
	}
}

func TestRunAndPreview(t *testing.T) {
	env := newTestEnv(t, nil)

	env.do(t, http.MethodPost, "/playground/buffers",
		map[string]interface{}{"language": "structure", "code": "<b>run me</b>"}, nil)
	env.do(t, http.MethodPost, "/playground/buffers",
		map[string]interface{}{"language": "behavior", "code": "console.log(42)"}, nil)

	var run struct {
		RunID      string `json:"run_id"`
		PreviewURL string `json:"preview_url"`
	}
	resp := env.do(t, http.MethodPost, "/playground/run", map[string]string{}, &run)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("run status = %d", resp.StatusCode)
	}
	if run.RunID == "" || run.PreviewURL == "" {
		t.Fatalf("run response = %+v", run)
	}

	previewResp, err := env.client.Get(env.ts.URL + run.PreviewURL)
	if err != nil {
		t.Fatalf("get preview: %v", err)
	}
	defer previewResp.Body.Close()

	if previewResp.StatusCode != http.StatusOK {
		t.Fatalf("preview status = %d", previewResp.StatusCode)
	}
	if got := previewResp.Header.Get("Content-Security-Policy"); got != "sandbox allow-scripts" {
		t.Errorf("preview CSP = %q, want sandbox allow-scripts", got)
	}

	doc, _ := io.ReadAll(previewResp.Body)
	html := string(doc)
	if !strings.Contains(html, "<b>run me</b>") {
		t.Error("preview missing body content")
	}
	if !strings.Contains(html, "<script>console.log(42)</script>") {
		t.Error("preview missing verbatim script")
	}
	styleIdx := strings.Index(html, "<style>")
	bodyIdx := strings.Index(html, "<b>run me</b>")
	scriptIdx := strings.Index(html, "<script>")
	if !(styleIdx < bodyIdx && bodyIdx < scriptIdx) {
		t.Errorf("compose order wrong: style=%d body=%d script=%d", styleIdx, bodyIdx, scriptIdx)
	}
}

func TestPreviewUnknownRunIs404(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/playground/preview/deadbeef", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown run status = %d", resp.StatusCode)
	}
}

func TestSaveLoadDeleteFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	env.do(t, http.MethodPost, "/playground/buffers",
		map[string]interface{}{"language": "behavior", "code": "alert(1)", "active": true}, nil)
	env.do(t, http.MethodPost, "/playground/buffers",
		map[string]interface{}{"language": "behavior", "code": "alert(1)"}, nil)

	var snaps snippetsState
	resp := env.do(t, http.MethodPost, "/playground/save", map[string]string{"title": "First"}, &snaps)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save status = %d", resp.StatusCode)
	}
	if len(snaps.Snippets) != 1 || snaps.SelectedID == "" {
		t.Fatalf("after save: %+v", snaps)
	}
	firstID := snaps.SelectedID
	if snaps.Snippets[0].Language != playground.LangBehavior || snaps.Snippets[0].Code != "alert(1)" {
		t.Errorf("saved record = %+v", snaps.Snippets[0])
	}

	// Second save updates in place
	env.do(t, http.MethodPost, "/playground/buffers",
		map[string]interface{}{"language": "behavior", "code": "alert(2)"}, nil)
	env.do(t, http.MethodPost, "/playground/save", map[string]string{"title": "First v2"}, &snaps)
	if len(snaps.Snippets) != 1 {
		t.Fatalf("update grew the list to %d", len(snaps.Snippets))
	}
	if snaps.Snippets[0].ID != firstID || snaps.Snippets[0].Code != "alert(2)" {
		t.Errorf("updated record = %+v", snaps.Snippets[0])
	}

	// New clears the selection, so the next save creates
	var bufs buffersState
	env.do(t, http.MethodPost, "/playground/new", map[string]string{}, &bufs)
	if bufs.SelectedID != "" {
		t.Errorf("selection survived new: %q", bufs.SelectedID)
	}
	env.do(t, http.MethodPost, "/playground/save", map[string]string{"title": "Second"}, &snaps)
	if len(snaps.Snippets) != 2 {
		t.Fatalf("second create: list has %d records", len(snaps.Snippets))
	}

	// Load the first snippet back
	env.do(t, http.MethodPost, "/playground/load", map[string]string{"id": firstID}, &bufs)
	if bufs.SelectedID != firstID {
		t.Errorf("load selected %q, want %q", bufs.SelectedID, firstID)
	}
	if bufs.Active != "behavior" || bufs.Buffers["behavior"] != "alert(2)" {
		t.Errorf("load state = active %q js %q", bufs.Active, bufs.Buffers["behavior"])
	}

	// Delete it; selection clears, one record remains
	env.do(t, http.MethodDelete, "/playground/snippets/"+firstID, nil, &snaps)
	if len(snaps.Snippets) != 1 {
		t.Fatalf("after delete: %d records", len(snaps.Snippets))
	}
	if snaps.SelectedID != "" {
		t.Errorf("selection survived deleting the selected snippet")
	}

	// Deleting again is satisfied
	resp = env.do(t, http.MethodDelete, "/playground/snippets/"+firstID, nil, &snaps)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("double delete status = %d", resp.StatusCode)
	}
}

func TestLoadForeignIDIs404(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/playground/load", map[string]string{"id": "nope"}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("load of unknown id status = %d", resp.StatusCode)
	}
}

func TestSaveWithoutTitleIs400(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/playground/save", map[string]string{"title": "  "}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("blank title status = %d", resp.StatusCode)
	}
}

func TestExportDownloadsBufferVerbatim(t *testing.T) {
	env := newTestEnv(t, nil)

	code := "console.log('export me')"
	env.do(t, http.MethodPost, "/playground/buffers",
		map[string]interface{}{"language": "behavior", "code": code}, nil)

	resp, err := env.client.Get(env.ts.URL + "/playground/export?language=behavior")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Disposition"); !strings.Contains(got, `"script.js"`) {
		t.Errorf("Content-Disposition = %q", got)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != code {
		t.Errorf("exported content = %q, want the buffer verbatim", body)
	}
}

func TestSaveRequiresAuthWhenTokensConfigured(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Features.Catalog = false
	cfg.Auth = &config.AuthConfig{Tokens: []session.Token{
		{Name: "alice", Token: "tok-alice", Owner: "user-alice"},
	}}
	env := newTestEnv(t, cfg)

	resp := env.do(t, http.MethodPost, "/playground/save", map[string]string{"title": "Nope"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous save status = %d, want 401", resp.StatusCode)
	}

	env.token = "tok-alice"
	var snaps snippetsState
	resp = env.do(t, http.MethodPost, "/playground/save", map[string]string{"title": "Mine"}, &snaps)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authenticated save status = %d", resp.StatusCode)
	}
	if len(snaps.Snippets) != 1 || snaps.Snippets[0].OwnerID != "user-alice" {
		t.Errorf("saved snippets = %+v", snaps.Snippets)
	}
}
