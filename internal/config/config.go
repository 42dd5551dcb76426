package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// FileName is the optional project config read from the working directory.
const FileName = "wordflow.yaml"

type Config struct {
	ScenePath     string  `yaml:"scene"`
	ScenesDir     string  `yaml:"scenesDir"`
	OutputPath    string  `yaml:"output"`
	FPS           int     `yaml:"fps"`
	Workers       int     `yaml:"workers"`
	Loop          bool    `yaml:"loop"`
	Speed         float64 `yaml:"speed"`
	KeepSettled   bool    `yaml:"keepSettled"`
	Addr          string  `yaml:"addr"`
	Format        string  `yaml:"format"`
	AnimationOnly bool    `yaml:"animationOnly"`
	QRPath        string  `yaml:"qr"`
	RulerPath     string  `yaml:"ruler"`
	RulerWidth    int     `yaml:"rulerWidth"`
	RulerHeight   int     `yaml:"rulerHeight"`
	ShowStats     bool    `yaml:"stats"`
	BenchmarkLog  string  `yaml:"benchmarkLog"`
	BuildVersion  string  `yaml:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		ScenesDir:    "scenes",
		OutputPath:   filepath.Join("output", "frames.yaml"),
		FPS:          30,
		Workers:      runtime.NumCPU(),
		Addr:         ":8080",
		Format:       "json",
		RulerWidth:   1280,
		RulerHeight:  160,
		BenchmarkLog: "benchmark.log",
	}
}

// LoadOptional reads FileName from dir over the defaults. A missing file is
// not an error.
func LoadOptional(dir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	d := Default()
	if c.FPS <= 0 {
		c.FPS = d.FPS
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.RulerWidth <= 0 {
		c.RulerWidth = d.RulerWidth
	}
	if c.RulerHeight <= 0 {
		c.RulerHeight = d.RulerHeight
	}
	if c.ScenesDir == "" {
		c.ScenesDir = d.ScenesDir
	}
}

// Validate checks values set from flags.
func (c *Config) Validate() error {
	if c.FPS <= 0 || c.FPS > 240 {
		return fmt.Errorf("fps must be in 1..240, got %d", c.FPS)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Speed < 0 {
		return fmt.Errorf("speed must not be negative, got %v", c.Speed)
	}
	switch c.Format {
	case "json", "yaml", "ts":
	default:
		return fmt.Errorf("unknown export format %q", c.Format)
	}
	return nil
}
