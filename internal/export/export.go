// Package export turns a timeline into portable animation data: JSON, YAML,
// a TypeScript config module, or a QR code of the compact JSON.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joyeues/wordflow-animation-lab/internal/curve"
	"github.com/joyeues/wordflow-animation-lab/internal/scene"
	"github.com/joyeues/wordflow-animation-lab/internal/timeline"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTS   Format = "ts"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML, FormatTS:
		return f, nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// AnimationBlock is the timing-only view of a block with its fully resolved
// animation config.
type AnimationBlock struct {
	ID              string          `json:"id" yaml:"id"`
	Type            scene.BlockType `json:"type" yaml:"type"`
	StartTime       int64           `json:"startTime" yaml:"startTime"`
	Duration        int64           `json:"duration" yaml:"duration"`
	AnimationConfig scene.Resolved  `json:"animationConfig" yaml:"animationConfig"`
}

// AnimationData is the content-free timing description of a timeline.
type AnimationData struct {
	GlobalConfig  scene.AnimationConfig `json:"globalConfig" yaml:"globalConfig"`
	ContentBlocks []AnimationBlock      `json:"contentBlocks" yaml:"contentBlocks"`
	TotalDuration int64                 `json:"totalDuration" yaml:"totalDuration"`
}

// Document is what gets written. Scene is omitted for animation-only exports.
type Document struct {
	Scene           *scene.Scene      `json:"scene,omitempty" yaml:"scene,omitempty"`
	Animation       AnimationData     `json:"animation" yaml:"animation"`
	TimingFunctions map[string]string `json:"timingFunctions" yaml:"timingFunctions"`
}

// BuildAnimationData derives the timing description from a store snapshot.
func BuildAnimationData(snap timeline.Snapshot) AnimationData {
	data := AnimationData{
		GlobalConfig:  snap.Global,
		ContentBlocks: make([]AnimationBlock, len(snap.Blocks)),
		TotalDuration: snap.TotalDuration(),
	}
	for i, b := range snap.Blocks {
		data.ContentBlocks[i] = AnimationBlock{
			ID:              b.ID,
			Type:            b.Type,
			StartTime:       b.StartTime,
			Duration:        b.Duration,
			AnimationConfig: b.Animation.Resolve(snap.Global),
		}
	}
	return data
}

// Build assembles an export document.
func Build(snap timeline.Snapshot, animationOnly bool) Document {
	doc := Document{
		Animation:       BuildAnimationData(snap),
		TimingFunctions: curve.TimingFunctions,
	}
	if !animationOnly {
		doc.Scene = snap.Scene()
	}
	return doc
}

// Write encodes doc to w in format f.
func Write(w io.Writer, doc Document, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("export json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("export yaml: %w", err)
		}
		return enc.Close()
	case FormatTS:
		return writeTS(w, doc)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

// ContentType returns the HTTP content type of f.
func ContentType(f Format) string {
	switch f {
	case FormatYAML:
		return "application/yaml"
	case FormatTS:
		return "application/typescript"
	default:
		return "application/json"
	}
}

// Extension returns the file extension of f, with the dot.
func Extension(f Format) string {
	return "." + string(f)
}

func sortedTimingFunctions(m map[string]string) []timingFunc {
	out := make([]timingFunc, 0, len(m))
	for name, value := range m {
		out = append(out, timingFunc{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
