package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/joyeues/wordflow-animation-lab/internal/clock"
	"github.com/joyeues/wordflow-animation-lab/internal/playback"
	"github.com/joyeues/wordflow-animation-lab/internal/scene"
	"github.com/joyeues/wordflow-animation-lab/internal/timeline"
)

type frameJSON struct {
	Clock struct {
		Time      float64 `json:"time"`
		State     string  `json:"state"`
		IsLooping bool    `json:"isLooping"`
		Total     float64 `json:"totalDuration"`
	} `json:"clock"`
	Blocks []struct {
		ID     string          `json:"id"`
		Active bool            `json:"active"`
		Error  string          `json:"error"`
		Reveal json.RawMessage `json:"reveal"`
	} `json:"blocks"`
}

func newTestServer(t *testing.T) (*Server, *playback.Session) {
	t.Helper()
	store, err := timeline.NewStore(scene.SampleScene())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	clk := clock.New(0, clock.NewManualTime(time.Unix(0, 0)), clock.NewManualScheduler())
	session := playback.NewSession(store, clk)
	srv := New(session)
	t.Cleanup(func() {
		srv.Close()
		session.Close()
	})
	return srv, session
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestGetScene(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/scene", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp SceneResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(resp.Scene.ContentBlocks) != 3 || resp.TotalDuration != 10000 {
		t.Errorf("unexpected scene: %d blocks, total %d", len(resp.Scene.ContentBlocks), resp.TotalDuration)
	}
	if p, ok := resp.Scene.ContentBlocks[0].Content.(scene.ParagraphContent); !ok || !strings.HasPrefix(p.Text, "Lorem") {
		t.Errorf("paragraph content lost: %#v", resp.Scene.ContentBlocks[0].Content)
	}
}

func TestCreateBlock(t *testing.T) {
	srv, session := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/blocks", `{"type":"paragraph","content":"Hello world"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}

	var b scene.ContentBlock
	if err := json.NewDecoder(rec.Body).Decode(&b); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if b.ID == "" || b.StartTime != 10000 || b.Duration != scene.DefaultBlockDuration {
		t.Errorf("unexpected block: %+v", b)
	}
	if got := session.Clock().Snapshot().Total; got != 13000 {
		t.Errorf("clock total should follow the store, got %v", got)
	}

	tests := []struct {
		name string
		body string
	}{
		{"unknown type", `{"type":"video"}`},
		{"malformed content", `{"type":"chart","content":"x"}`},
		{"bad json", `{"type":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, srv, http.MethodPost, "/api/blocks", tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestPatchBlock(t *testing.T) {
	srv, session := newTestServer(t)

	rec := do(t, srv, http.MethodPatch, "/api/blocks/2", `{"duration":2000,"animationConfig":{"staggerDelay":50}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	b, _ := session.Store().Get("2")
	if b.Duration != 2000 || b.StartTime != 4000 {
		t.Errorf("unexpected timing: start %d duration %d", b.StartTime, b.Duration)
	}
	if b.Animation.StaggerDelay == nil || *b.Animation.StaggerDelay != 50 {
		t.Error("stagger override not applied")
	}
	if b.Animation.MaskFadeDelay == nil || *b.Animation.MaskFadeDelay != 200 {
		t.Error("existing overrides must survive a merge update")
	}

	rec = do(t, srv, http.MethodPatch, "/api/blocks/1", `{"content":"Changed"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("content patch: expected 200, got %d", rec.Code)
	}
	if b, _ := session.Store().Get("1"); b.Content.(scene.ParagraphContent).Text != "Changed" {
		t.Error("content not replaced")
	}

	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{"missing block", "/api/blocks/nope", `{"duration":100}`, http.StatusNotFound},
		{"missing block with content", "/api/blocks/nope", `{"content":"x"}`, http.StatusNotFound},
		{"text animation on list", "/api/blocks/2", `{"animationConfig":{"textAnimationType":"word"}}`, http.StatusBadRequest},
		{"negative start", "/api/blocks/1", `{"startTime":-5}`, http.StatusBadRequest},
		{"wrong content shape", "/api/blocks/3", `{"content":"text"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, srv, http.MethodPatch, tt.path, tt.body); rec.Code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, rec.Code)
			}
		})
	}
}

func TestDeleteBlockDeselects(t *testing.T) {
	srv, session := newTestServer(t)

	if rec := do(t, srv, http.MethodPost, "/api/blocks/1/select", ""); rec.Code != http.StatusOK {
		t.Fatalf("select: expected 200, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodPost, "/api/blocks/2/select?additive=true", ""); rec.Code != http.StatusOK {
		t.Fatalf("additive select: expected 200, got %d", rec.Code)
	}
	if got := session.Store().Selected(); len(got) != 2 {
		t.Fatalf("expected 2 selected, got %v", got)
	}

	if rec := do(t, srv, http.MethodDelete, "/api/blocks/1", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	if got := session.Store().Selected(); len(got) != 1 || got[0] != "2" {
		t.Errorf("deleted block must leave the selection, got %v", got)
	}
	if rec := do(t, srv, http.MethodDelete, "/api/blocks/1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", rec.Code)
	}

	do(t, srv, http.MethodDelete, "/api/blocks/2/select", "")
	if got := session.Store().Selected(); len(got) != 0 {
		t.Errorf("expected empty selection, got %v", got)
	}
}

func TestPutConfig(t *testing.T) {
	srv, session := newTestServer(t)

	rec := do(t, srv, http.MethodPut, "/api/config", `{"globalSpeed":2,"charFadeDelay":8}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	g := session.Store().Global()
	if g.GlobalSpeed != 2 || g.CharFadeDelay != 8 || g.MaskFadeDelay != 100 {
		t.Errorf("config not merged: %+v", g)
	}
	if got := session.Clock().Snapshot().Speed; got != 2 {
		t.Errorf("clock speed should follow global speed, got %v", got)
	}
}

func TestEvaluate(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/evaluate?t=4250", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var f frameJSON
	if err := json.NewDecoder(rec.Body).Decode(&f); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if f.Clock.Time != 4250 {
		t.Errorf("expected time 4250, got %v", f.Clock.Time)
	}

	var found bool
	for _, b := range f.Blocks {
		if b.ID != "2" {
			continue
		}
		found = true
		var r struct {
			ItemVisible []bool `json:"itemVisible"`
		}
		if err := json.Unmarshal(b.Reveal, &r); err != nil {
			t.Fatalf("decode reveal failed: %v", err)
		}
		if len(r.ItemVisible) != 3 || !r.ItemVisible[0] || r.ItemVisible[1] || r.ItemVisible[2] {
			t.Errorf("expected [true false false], got %v", r.ItemVisible)
		}
	}
	if !found {
		t.Error("block 2 missing from frame")
	}

	for _, q := range []string{"abc", "NaN"} {
		if rec := do(t, srv, http.MethodGet, "/api/evaluate?t="+q, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("t=%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestPlayback(t *testing.T) {
	srv, session := newTestServer(t)

	tests := []struct {
		name  string
		path  string
		body  string
		code  int
		check func(clock.Snapshot) bool
	}{
		{"seek body", "/api/playback/seek", `{"time":4500}`, http.StatusOK,
			func(s clock.Snapshot) bool { return s.Time == 4500 && s.State == clock.Paused }},
		{"seek query", "/api/playback/seek?t=20000", "", http.StatusOK,
			func(s clock.Snapshot) bool { return s.Time == 10000 }},
		{"seek without time", "/api/playback/seek", "", http.StatusBadRequest, nil},
		{"seek NaN", "/api/playback/seek?t=NaN", "", http.StatusBadRequest, nil},
		{"loop", "/api/playback/loop?loop=true", "", http.StatusOK,
			func(s clock.Snapshot) bool { return s.Looping }},
		{"loop toggles", "/api/playback/loop", "", http.StatusOK,
			func(s clock.Snapshot) bool { return !s.Looping }},
		{"zero speed", "/api/playback/speed", `{"speed":0}`, http.StatusBadRequest, nil},
		{"speed", "/api/playback/speed", `{"speed":1.5}`, http.StatusOK,
			func(s clock.Snapshot) bool { return s.Speed == 1.5 }},
		{"play", "/api/playback/play", "", http.StatusOK,
			func(s clock.Snapshot) bool { return s.State == clock.Playing && s.Time == 0 }},
		{"stop", "/api/playback/stop", "", http.StatusOK,
			func(s clock.Snapshot) bool { return s.State == clock.Stopped && s.Time == 0 }},
		{"unknown", "/api/playback/rewind", "", http.StatusNotFound, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, rec.Code, rec.Body)
			}
			if tt.check != nil && !tt.check(session.Clock().Snapshot()) {
				t.Errorf("unexpected clock state: %+v", session.Clock().Snapshot())
			}
		})
	}
}

func TestSpeedSurvivesBlockEdit(t *testing.T) {
	srv, session := newTestServer(t)

	if rec := do(t, srv, http.MethodPost, "/api/playback/speed?speed=2", ""); rec.Code != http.StatusOK {
		t.Fatalf("speed: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if got := session.Store().Global().GlobalSpeed; got != 2 {
		t.Errorf("store global speed = %v, want 2", got)
	}

	if rec := do(t, srv, http.MethodPatch, "/api/blocks/1", `{"duration":2000}`); rec.Code != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if got := session.Clock().Snapshot().Speed; got != 2 {
		t.Errorf("clock speed after edit = %v, want 2", got)
	}

	// Evaluation uses the same speed: 1000ms of playhead is 500ms of local time.
	rec := do(t, srv, http.MethodGet, "/api/evaluate?t=1000", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("evaluate: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"localTime":500`) {
		t.Errorf("evaluate at speed 2 should report localTime 500: %s", rec.Body)
	}
}

func TestExport(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/export?format=ts&animationOnly=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/typescript" {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "export const ANIMATION_CONFIG") {
		t.Error("ts export missing ANIMATION_CONFIG")
	}

	if rec := do(t, srv, http.MethodGet, "/api/export?format=xml", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown format: expected 400, got %d", rec.Code)
	}

	for _, path := range []string{"/api/ruler?width=320&height=80", "/api/export/qr?size=128"} {
		rec := do(t, srv, http.MethodGet, path, "")
		if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
			t.Errorf("%s: expected png, got %d %q", path, rec.Code, rec.Header().Get("Content-Type"))
		}
	}
}

func TestWebSocketStream(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/playback"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var f frameJSON
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("initial frame: %v", err)
	}
	if f.Clock.Time != 0 || len(f.Blocks) != 3 {
		t.Errorf("unexpected initial frame: %+v", f.Clock)
	}

	// seek over the socket, then over HTTP; both must reach the client
	if err := conn.WriteJSON(map[string]any{"action": "seek", "time": 4500}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	waitFor(t, conn, func(f frameJSON) bool { return f.Clock.Time == 4500 })

	resp, err := http.Post(ts.URL+"/api/playback/seek?t=9000", "application/json", nil)
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	resp.Body.Close()
	waitFor(t, conn, func(f frameJSON) bool { return f.Clock.Time == 9000 })

	if n := srv.Hub().Clients(); n != 1 {
		t.Errorf("expected 1 client, got %d", n)
	}
}

func waitFor(t *testing.T, conn *websocket.Conn, ok func(frameJSON) bool) {
	t.Helper()
	for i := 0; i < 20; i++ {
		var f frameJSON
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if ok(f) {
			return
		}
	}
	t.Fatal("expected frame never arrived")
}
