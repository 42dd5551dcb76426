package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/joyeues/wordflow-animation-lab/internal/clock"
	"github.com/joyeues/wordflow-animation-lab/internal/export"
	"github.com/joyeues/wordflow-animation-lab/internal/ruler"
	"github.com/joyeues/wordflow-animation-lab/internal/scene"
	"github.com/joyeues/wordflow-animation-lab/internal/system"
	"github.com/joyeues/wordflow-animation-lab/internal/timeline"
)

var (
	errBadRequest    = errors.New("bad request")
	errUnknownAction = errors.New("unknown playback action")
)

// SceneResponse is the editor's view of the whole timeline.
type SceneResponse struct {
	Scene         *scene.Scene `json:"scene"`
	Selected      []string     `json:"selected"`
	TotalDuration int64        `json:"totalDuration"`
	Version       uint64       `json:"version"`
}

// CreateBlockRequest adds a block at the end of the timeline. Content is
// optional; the type's default payload is used without it.
type CreateBlockRequest struct {
	Type    scene.BlockType `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
}

// PatchBlockRequest is a merge update. Absent fields stay unchanged.
type PatchBlockRequest struct {
	StartTime       *int64          `json:"startTime,omitempty"`
	Duration        *int64          `json:"duration,omitempty"`
	Content         json.RawMessage `json:"content,omitempty"`
	AnimationConfig scene.Overrides `json:"animationConfig"`
}

// ControlRequest carries the argument of a playback action.
type ControlRequest struct {
	Time  *float64 `json:"time,omitempty"`
	Loop  *bool    `json:"loop,omitempty"`
	Speed *float64 `json:"speed,omitempty"`
}

// GetScene returns the current scene document
// GET /api/scene
func (s *Server) GetScene(w http.ResponseWriter, r *http.Request) {
	store := s.session.Store()
	snap := store.Snapshot()

	selected := store.Selected()
	if selected == nil {
		selected = []string{}
	}
	writeJSON(w, http.StatusOK, SceneResponse{
		Scene:         snap.Scene(),
		Selected:      selected,
		TotalDuration: snap.TotalDuration(),
		Version:       snap.Version,
	})
}

// PutConfig replaces the global animation config
// PUT /api/config
func (s *Server) PutConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.session.Store().Global()
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	s.session.Store().SetGlobal(cfg)
	s.session.Sync()
	writeJSON(w, http.StatusOK, cfg)
}

// CreateBlock appends a new block
// POST /api/blocks
func (s *Server) CreateBlock(w http.ResponseWriter, r *http.Request) {
	var req CreateBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if !req.Type.Valid() {
		http.Error(w, fmt.Sprintf("unknown block type %q", req.Type), http.StatusBadRequest)
		return
	}

	var content scene.Content
	if len(req.Content) > 0 {
		c, err := decodeContent(req.Type, req.Content)
		if err != nil {
			writeError(w, err)
			return
		}
		content = c
	}

	b, err := s.session.Store().Add(req.Type, content)
	if err != nil {
		writeError(w, err)
		return
	}
	s.session.Sync()
	writeJSON(w, http.StatusCreated, b)
}

// GetBlock returns one block
// GET /api/blocks/{id}
func (s *Server) GetBlock(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	b, ok := s.session.Store().Get(id)
	if !ok {
		writeError(w, fmt.Errorf("%w: %s", timeline.ErrBlockNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// PatchBlock merges timing, content or animation overrides into a block
// PATCH /api/blocks/{id}
func (s *Server) PatchBlock(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req PatchBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	store := s.session.Store()
	patch := timeline.Patch{
		StartTime: req.StartTime,
		Duration:  req.Duration,
		Animation: req.AnimationConfig,
	}
	if len(req.Content) > 0 {
		cur, ok := store.Get(id)
		if !ok {
			writeError(w, fmt.Errorf("%w: %s", timeline.ErrBlockNotFound, id))
			return
		}
		c, err := decodeContent(cur.Type, req.Content)
		if err != nil {
			writeError(w, err)
			return
		}
		patch.Content = c
	}

	b, err := store.Update(id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	s.session.Sync()
	writeJSON(w, http.StatusOK, b)
}

// DeleteBlock removes a block
// DELETE /api/blocks/{id}
func (s *Server) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Store().Delete(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	s.session.Sync()
	w.WriteHeader(http.StatusNoContent)
}

// SelectBlock selects a block; additive=true keeps the current selection
// POST /api/blocks/{id}/select?additive=true
func (s *Server) SelectBlock(w http.ResponseWriter, r *http.Request) {
	additive, _ := strconv.ParseBool(r.URL.Query().Get("additive"))
	store := s.session.Store()
	if err := store.Select(mux.Vars(r)["id"], additive); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"selected": nonNil(store.Selected())})
}

// DeselectBlock removes a block from the selection
// DELETE /api/blocks/{id}/select
func (s *Server) DeselectBlock(w http.ResponseWriter, r *http.Request) {
	store := s.session.Store()
	store.Deselect(mux.Vars(r)["id"])
	writeJSON(w, http.StatusOK, map[string][]string{"selected": nonNil(store.Selected())})
}

// Evaluate returns the frame at t, or at the playhead without t
// GET /api/evaluate?t=4200
func (s *Server) Evaluate(w http.ResponseWriter, r *http.Request) {
	t := s.session.Clock().Time()
	if raw := r.URL.Query().Get("t"); raw != "" {
		v, err := parseTime(raw)
		if err != nil {
			writeError(w, err)
			return
		}
		t = v
	}
	writeJSON(w, http.StatusOK, s.session.FrameAt(t))
}

// GetPlayback returns the clock state
// GET /api/playback
func (s *Server) GetPlayback(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Clock().Snapshot())
}

// Playback applies a clock action
// POST /api/playback/{play|pause|toggle|stop|seek|loop|speed}
func (s *Server) Playback(w http.ResponseWriter, r *http.Request) {
	var req ControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	if raw := q.Get("t"); raw != "" && req.Time == nil {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, fmt.Errorf("%w: t=%q", errBadRequest, raw))
			return
		}
		req.Time = &v
	}
	if raw := q.Get("speed"); raw != "" && req.Speed == nil {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, fmt.Errorf("%w: speed=%q", errBadRequest, raw))
			return
		}
		req.Speed = &v
	}
	if raw := q.Get("loop"); raw != "" && req.Loop == nil {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, fmt.Errorf("%w: loop=%q", errBadRequest, raw))
			return
		}
		req.Loop = &v
	}

	snap, err := s.control(mux.Vars(r)["action"], req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// control is shared by the HTTP endpoint and websocket messages.
func (s *Server) control(action string, req ControlRequest) (clock.Snapshot, error) {
	clk := s.session.Clock()

	switch action {
	case "play":
		clk.Play()
	case "pause":
		clk.Pause()
	case "toggle":
		clk.Toggle()
	case "stop":
		clk.Stop()
	case "seek":
		if req.Time == nil {
			return clock.Snapshot{}, fmt.Errorf("%w: seek needs a time", errBadRequest)
		}
		if err := clk.Seek(*req.Time); err != nil {
			return clock.Snapshot{}, err
		}
	case "loop":
		loop := !clk.Snapshot().Looping
		if req.Loop != nil {
			loop = *req.Loop
		}
		clk.SetLoop(loop)
	case "speed":
		if req.Speed == nil {
			return clock.Snapshot{}, fmt.Errorf("%w: speed needs a value", errBadRequest)
		}
		if err := s.session.SetSpeed(*req.Speed); err != nil {
			return clock.Snapshot{}, err
		}
	default:
		return clock.Snapshot{}, fmt.Errorf("%w: %q", errUnknownAction, action)
	}
	return clk.Snapshot(), nil
}

// Export writes the timeline as json, yaml or a TypeScript module
// GET /api/export?format=ts&animationOnly=true
func (s *Server) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	animationOnly, _ := strconv.ParseBool(q.Get("animationOnly"))

	doc := export.Build(s.session.Store().Snapshot(), animationOnly)
	w.Header().Set("Content-Type", export.ContentType(f))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=animation%s", export.Extension(f)))
	if err := export.Write(w, doc, f); err != nil {
		writeError(w, err)
	}
}

// ExportQR returns the animation data as a QR code
// GET /api/export/qr?size=512
func (s *Server) ExportQR(w http.ResponseWriter, r *http.Request) {
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	img, err := export.QRPNG(export.BuildAnimationData(s.session.Store().Snapshot()), size)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(img)
}

// Ruler renders the ruler and tracks with the playhead
// GET /api/ruler?width=1280&height=160
func (s *Server) Ruler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	width, _ := strconv.Atoi(q.Get("width"))
	height, _ := strconv.Atoi(q.Get("height"))
	if width <= 0 {
		width = 1280
	}

	store := s.session.Store()
	snap := store.Snapshot()
	img := ruler.Render(snap.Blocks, snap.TotalDuration(), ruler.Options{
		Width:    width,
		Height:   height,
		Playhead: s.session.Clock().Time(),
		Selected: store.Selected(),
	})
	defer system.PutImage(img)

	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		writeError(w, err)
	}
}

func decodeContent(t scene.BlockType, raw json.RawMessage) (scene.Content, error) {
	c := scene.DecodeContentJSON(t, raw)
	if m, ok := c.(scene.MalformedContent); ok {
		return nil, fmt.Errorf("%w: %s", errBadRequest, m.Reason)
	}
	return c, nil
}

func parseTime(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: t=%q", errBadRequest, raw)
	}
	if math.IsNaN(v) {
		return 0, fmt.Errorf("%w: t is NaN", clock.ErrInvalidTime)
	}
	return v, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
