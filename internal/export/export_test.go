package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/joyeues/wordflow-animation-lab/internal/scene"
	"github.com/joyeues/wordflow-animation-lab/internal/timeline"
)

func sampleSnapshot(t *testing.T) timeline.Snapshot {
	t.Helper()
	st, err := timeline.NewStore(scene.SampleScene())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return st.Snapshot()
}

func TestBuildAnimationData(t *testing.T) {
	data := BuildAnimationData(sampleSnapshot(t))

	if data.TotalDuration != 10000 {
		t.Errorf("expected total 10000, got %d", data.TotalDuration)
	}
	if len(data.ContentBlocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(data.ContentBlocks))
	}

	list := data.ContentBlocks[1]
	if list.AnimationConfig.MaskFadeDelay != 200 || list.AnimationConfig.StaggerDelay != 100 {
		t.Errorf("block config not resolved: %+v", list.AnimationConfig)
	}
	if data.ContentBlocks[0].AnimationConfig.CharFadeDelay != 4 {
		t.Errorf("global default not applied: %+v", data.ContentBlocks[0].AnimationConfig)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Build(sampleSnapshot(t), true), FormatJSON); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if _, ok := doc["scene"]; ok {
		t.Error("animation-only export must not include the scene")
	}
	if _, ok := doc["timingFunctions"]; !ok {
		t.Error("missing timing functions")
	}
}

func TestWriteYAMLIncludesScene(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Build(sampleSnapshot(t), false), FormatYAML); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var doc struct {
		Scene struct {
			ContentBlocks []map[string]any `yaml:"contentBlocks"`
		} `yaml:"scene"`
		Animation AnimationData `yaml:"animation"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid yaml: %v", err)
	}
	if len(doc.Scene.ContentBlocks) != 3 {
		t.Errorf("expected scene with 3 blocks, got %d", len(doc.Scene.ContentBlocks))
	}
	if doc.Animation.TotalDuration != 10000 {
		t.Errorf("expected total 10000, got %d", doc.Animation.TotalDuration)
	}
}

func TestWriteTS(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Build(sampleSnapshot(t), true), FormatTS); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"export const ANIMATION_CONFIG = {",
		"getStaggerTime",
		"easeOutExpo: 'cubic-bezier(0.00,0.00,0.00,1.00)',",
		"transition: opacity 320ms",
		`"totalDuration": 10000`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("ts output missing %q", want)
		}
	}
	if strings.Contains(out, "export const animationConfig") {
		t.Error("animation-only ts export must not include the scene")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"YAML", FormatYAML, false},
		{"ts", FormatTS, false},
		{"", FormatJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestUtils(t *testing.T) {
	data := BuildAnimationData(sampleSnapshot(t))
	cfg := data.ContentBlocks[1].AnimationConfig

	if got := StaggerTime(2, cfg); got != 400 {
		t.Errorf("expected stagger 400, got %d", got)
	}
	if got := CharacterRevealTime(5, data.ContentBlocks[0].AnimationConfig); got != 20 {
		t.Errorf("expected reveal 20, got %d", got)
	}
	if !data.IsBlockActive("2", 8000) || data.IsBlockActive("2", 8001) {
		t.Error("block 2 window should close at 8000 inclusive")
	}
	if got := data.BlockProgress("3", 9000); got != 0.5 {
		t.Errorf("expected progress 0.5, got %v", got)
	}
	if got := data.BlockProgress("missing", 9000); got != 0 {
		t.Errorf("unknown block should report 0, got %v", got)
	}
}

func TestWriteQR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qr", "scene.png")
	if err := WriteQR(path, BuildAnimationData(sampleSnapshot(t)), 256); err != nil {
		t.Fatalf("WriteQR failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Fatalf("qr file missing: %v", err)
	}

	png, err := QRPNG(BuildAnimationData(sampleSnapshot(t)), 0)
	if err != nil {
		t.Fatalf("QRPNG failed: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("QRPNG did not return a png")
	}
}
