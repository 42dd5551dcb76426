package system

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFindLatestScene(t *testing.T) {
	dir := t.TempDir()

	files := []struct {
		name string
		age  time.Duration
	}{
		{"old.yaml", 3 * time.Hour},
		{"newest.json", time.Hour},
		{"notes.txt", 0},
		{"middle.YML", 2 * time.Hour},
	}
	now := time.Now()
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		mod := now.Add(-f.age)
		os.Chtimes(path, mod, mod)
	}

	latest, err := FindLatestScene(dir)
	if err != nil {
		t.Fatalf("FindLatestScene failed: %v", err)
	}
	if filepath.Base(latest) != "newest.json" {
		t.Errorf("expected newest.json, got %s", latest)
	}
}

func TestFindLatestEmpty(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0644)
	if _, err := FindLatestScene(dir); err == nil {
		t.Error("expected error for a folder without scenes")
	}
	if _, err := FindLatestScene(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for a missing folder")
	}
}

func TestImagePoolClearsReusedImages(t *testing.T) {
	pool := NewImagePool()
	rect := image.Rect(0, 0, 4, 4)

	img := pool.Get(rect)
	img.Pix[0] = 255
	pool.Put(img)

	again := pool.Get(rect)
	if again.Pix[0] != 0 {
		t.Error("pooled image was not cleared")
	}
	if again.Rect != rect {
		t.Errorf("unexpected bounds %v", again.Rect)
	}
	if pool.Allocations() < 1 {
		t.Error("expected at least one allocation")
	}

	// Unknown sizes are dropped silently.
	pool.Put(image.NewRGBA(image.Rect(0, 0, 1, 1)))
}

func TestCollectProcessStats(t *testing.T) {
	stats, err := CollectProcessStats()
	if err != nil {
		t.Skipf("process stats unavailable: %v", err)
	}
	if stats.Goroutines <= 0 {
		t.Errorf("expected goroutines to be counted: %+v", stats)
	}
	if stats.String() == "" {
		t.Error("empty stats string")
	}
}
