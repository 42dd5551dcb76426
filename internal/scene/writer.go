package scene

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// WriteScene writes a scene to path. Files ending in .json are written as
// JSON, everything else as YAML.
func WriteScene(s *Scene, path string) error {
	data, err := Marshal(s, formatFor(path))
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadScene reads and validates a scene from path.
func ReadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	s, err := Unmarshal(data, formatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Marshal encodes s as "json" or "yaml".
func Marshal(s *Scene, format string) ([]byte, error) {
	switch format {
	case "json":
		return json.MarshalIndent(s, "", "  ")
	case "yaml", "":
		return yaml.Marshal(s)
	}
	return nil, fmt.Errorf("unsupported scene format %q", format)
}

// Unmarshal decodes a scene, fills defaults and validates it.
func Unmarshal(data []byte, format string) (*Scene, error) {
	var s Scene
	switch format {
	case "json":
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
	case "yaml", "":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported scene format %q", format)
	}

	if s.Version == "" {
		s.Version = CurrentVersion
	}
	if s.GlobalConfig == (AnimationConfig{}) {
		s.GlobalConfig = DefaultAnimationConfig()
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func formatFor(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return "json"
	}
	return "yaml"
}
