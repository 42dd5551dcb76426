package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/joyeues/wordflow-animation-lab/internal/config"
	"github.com/joyeues/wordflow-animation-lab/internal/evaluator"
	"github.com/joyeues/wordflow-animation-lab/internal/ruler"
	"github.com/joyeues/wordflow-animation-lab/internal/system"
	"github.com/joyeues/wordflow-animation-lab/internal/timeline"
	"github.com/joyeues/wordflow-animation-lab/internal/timing"
)

// BlockSample краткое состояние блока в одном кадре.
type BlockSample struct {
	ID        string  `yaml:"id"`
	Mode      string  `yaml:"mode,omitempty"`
	LocalTime float64 `yaml:"localTime"`
	Progress  float64 `yaml:"progress"`
	Visible   int     `yaml:"visible"`
	Units     int     `yaml:"units"`
	Curve     string  `yaml:"curve,omitempty"`
}

// FrameSample один кадр отчета.
type FrameSample struct {
	Index  int           `yaml:"index"`
	Time   float64       `yaml:"time"`
	Clock  string        `yaml:"clock"`
	Blocks []BlockSample `yaml:"blocks"`
}

// Report результат пакетного рендера.
type Report struct {
	Build         string            `yaml:"build,omitempty"`
	Scene         string            `yaml:"scene,omitempty"`
	FPS           int               `yaml:"fps"`
	TotalDuration int64             `yaml:"totalDuration"`
	Frames        []FrameSample     `yaml:"frames"`
	Failures      map[string]string `yaml:"failures,omitempty"`
}

type RenderProject struct {
	Config *config.Config
	Store  *timeline.Store
}

func NewRenderProject(cfg *config.Config, store *timeline.Store) *RenderProject {
	return &RenderProject{
		Config: cfg,
		Store:  store,
	}
}

// FrameCount число кадров для таймлайна total мс при fps, включая последний.
func FrameCount(total int64, fps int) int {
	if total <= 0 || fps <= 0 {
		return 1
	}
	return int(total*int64(fps)/1000) + 1
}

// FrameTime время кадра i в мс, не больше total.
func FrameTime(i, fps int, total int64) float64 {
	t := float64(i) * 1000 / float64(fps)
	if t > float64(total) {
		return float64(total)
	}
	return t
}

func (p *RenderProject) Run(ctx context.Context) (*Report, error) {
	startTime := time.Now()

	// Снимок неизменяем, воркеры читают его без блокировок
	snap := p.Store.Snapshot()
	total := snap.TotalDuration()
	frameCount := FrameCount(total, p.Config.FPS)

	fmt.Println("--- [PROJECT: TIMELINE ENGINE] ---")
	fmt.Printf("[*] Сцена: %s | Блоков: %d\n", p.Config.ScenePath, len(snap.Blocks))
	fmt.Printf("[*] Длительность: %s | Кадров: %d @ %d FPS | Воркеров: %d\n",
		timing.FormatClock(total), frameCount, p.Config.FPS, p.Config.Workers)
	fmt.Println("-----------------------------")

	frames := make([]FrameSample, frameCount)
	failures := make([]map[string]string, frameCount)

	// Пул воркеров (CPU bound), по одному кадру на задачу
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Config.Workers)

	var done atomic.Int64
	step := int64(frameCount / 10)
	if step == 0 {
		step = 1
	}

	evalStart := time.Now()
	for i := 0; i < frameCount; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			t := FrameTime(i, p.Config.FPS, total)
			states := evaluator.EvaluateTimeline(snap.Blocks, t, snap.Global)
			frames[i], failures[i] = sampleFrame(i, t, states)

			if n := done.Add(1); n%step == 0 || n == int64(frameCount) {
				fmt.Printf("[>] Ready: %d/%d\n", n, frameCount)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("рендер прерван: %w", err)
	}
	evalTime := time.Since(evalStart)

	report := &Report{
		Build:         p.Config.BuildVersion,
		Scene:         p.Config.ScenePath,
		FPS:           p.Config.FPS,
		TotalDuration: total,
		Frames:        frames,
	}
	for _, f := range failures {
		for id, msg := range f {
			if report.Failures == nil {
				report.Failures = make(map[string]string)
			}
			report.Failures[id] = msg
		}
	}
	for id, msg := range report.Failures {
		fmt.Printf("[!] Блок %s пропущен: %s\n", id, msg)
	}

	writeStart := time.Now()
	if p.Config.OutputPath != "" {
		if err := WriteReport(report, p.Config.OutputPath); err != nil {
			return nil, fmt.Errorf("ошибка записи отчета: %v", err)
		}
		fmt.Printf("[+++] Отчет сохранен: %s\n", p.Config.OutputPath)
	}

	if p.Config.RulerPath != "" {
		opts := ruler.Options{
			Width:    p.Config.RulerWidth,
			Height:   p.Config.RulerHeight,
			Selected: p.Store.Selected(),
		}
		if err := ruler.WritePNG(p.Config.RulerPath, snap.Blocks, total, opts); err != nil {
			return nil, fmt.Errorf("ошибка записи линейки: %v", err)
		}
		fmt.Printf("[+++] Линейка сохранена: %s\n", p.Config.RulerPath)
	}
	writeTime := time.Since(writeStart)

	if p.Config.ShowStats {
		p.printStats(frameCount, time.Since(startTime), evalTime, writeTime)
	}
	return report, nil
}

func (p *RenderProject) printStats(frameCount int, totalTime, evalTime, writeTime time.Duration) {
	fps := float64(frameCount) / totalTime.Seconds()

	stats, err := system.CollectProcessStats()
	if err != nil {
		fmt.Printf("[!] Статистика процесса недоступна: %v\n", err)
	}

	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Evaluation (CPU): %.2fs\n"+
			"Writing: %.2fs\n"+
			"Effective FPS: %.2f\n"+
			"%s\n"+
			"----------------------------\n",
		p.Config.BuildVersion, totalTime.Seconds(), evalTime.Seconds(), writeTime.Seconds(), fps, stats,
	)
	fmt.Print(report)

	if p.Config.BenchmarkLog == "" {
		return
	}

	// Логирование в файл
	logEntry := fmt.Sprintf("[%s] Build: %s | Scene: %s | Frames: %d | Total: %.2fs | Eval: %.2fs | FPS: %.2f | RSS: %.1f MB\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		filepath.Base(p.Config.ScenePath),
		frameCount,
		totalTime.Seconds(),
		evalTime.Seconds(),
		fps,
		float64(stats.RSSBytes)/(1024*1024),
	)

	f, err := os.OpenFile(p.Config.BenchmarkLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		f.WriteString(logEntry)
		f.Close()
	} else {
		fmt.Printf("[!] Не удалось записать %s: %v\n", p.Config.BenchmarkLog, err)
	}
}

// WriteReport сохраняет отчет в YAML.
func WriteReport(r *Report, path string) error {
	if err := system.EnsureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

// ReadReport читает отчет из YAML.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func sampleFrame(i int, t float64, states []evaluator.BlockState) (FrameSample, map[string]string) {
	frame := FrameSample{
		Index:  i,
		Time:   t,
		Clock:  timing.FormatClock(int64(t)),
		Blocks: []BlockSample{},
	}

	var failed map[string]string
	for _, st := range states {
		if st.Err != nil {
			if failed == nil {
				failed = make(map[string]string)
			}
			failed[st.ID] = st.Error
			continue
		}
		if !st.Active {
			continue
		}
		frame.Blocks = append(frame.Blocks, Summarize(st))
	}
	return frame, failed
}

// Summarize сводит состояние блока к числу видимых единиц и прогрессу.
func Summarize(st evaluator.BlockState) BlockSample {
	s := BlockSample{
		ID:        st.ID,
		Mode:      string(st.Mode),
		LocalTime: st.LocalTime,
		Curve:     st.Curve,
	}

	switch r := st.Reveal.(type) {
	case evaluator.CharacterReveal:
		s.Units = len(r.Units) - whitespace(r.Units)
		s.Visible = len(r.Revealed())
	case evaluator.WordReveal:
		s.Units = len(r.Units)
		s.Visible = len(r.Revealed())
	case evaluator.GleamReveal:
		s.Units = 1
		if r.TextVisible {
			s.Visible = 1
		}
	case evaluator.BulletReveal:
		s.Units = len(r.ItemVisible)
		s.Visible = r.VisibleItems()
	case evaluator.ChartReveal:
		s.Progress = r.Progress
		return s
	}

	if s.Units > 0 {
		s.Progress = float64(s.Visible) / float64(s.Units)
	}
	return s
}

func whitespace(units []evaluator.Unit) int {
	n := 0
	for _, u := range units {
		if u.Whitespace {
			n++
		}
	}
	return n
}
