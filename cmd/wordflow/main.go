package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/joyeues/wordflow-animation-lab/internal/clock"
	"github.com/joyeues/wordflow-animation-lab/internal/config"
	"github.com/joyeues/wordflow-animation-lab/internal/engine"
	"github.com/joyeues/wordflow-animation-lab/internal/export"
	"github.com/joyeues/wordflow-animation-lab/internal/playback"
	"github.com/joyeues/wordflow-animation-lab/internal/preview"
	"github.com/joyeues/wordflow-animation-lab/internal/scene"
	"github.com/joyeues/wordflow-animation-lab/internal/server"
	"github.com/joyeues/wordflow-animation-lab/internal/system"
	"github.com/joyeues/wordflow-animation-lab/internal/timeline"
)

// buildVersion задается при сборке: -ldflags "-X main.buildVersion=..."
var buildVersion = "dev"

const usage = `Использование: wordflow <команда> [флаги]

Команды:
  init     создать демо-сцену
  render   просчитать кадры таймлайна в отчет
  play     воспроизвести таймлайн в терминале
  serve    HTTP API и websocket-поток кадров
  export   экспорт анимации (json, yaml, ts, QR)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadOptional(".")
	if err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}
	cfg.BuildVersion = buildVersion

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "init":
		err = runInit(cfg, args)
	case "render":
		err = runRender(cfg, args)
	case "play":
		err = runPlay(cfg, args)
	case "serve":
		err = runServe(cfg, args)
	case "export":
		err = runExport(cfg, args)
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "[-] Неизвестная команда: %s\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("[-] Ошибка %s: %v", cmd, err)
	}
}

func runInit(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	outPtr := fs.String("o", filepath.Join(cfg.ScenesDir, "scene.yaml"), "Путь к новой сцене (.yaml или .json)")
	forcePtr := fs.Bool("force", false, "Перезаписать существующий файл")
	fs.Parse(args)

	if _, err := os.Stat(*outPtr); err == nil && !*forcePtr {
		return fmt.Errorf("файл %s уже существует, используйте -force", *outPtr)
	}
	if err := system.EnsureDir(*outPtr); err != nil {
		return err
	}
	if err := scene.WriteScene(scene.SampleScene(), *outPtr); err != nil {
		return err
	}

	fmt.Printf("[+++] Сцена создана: %s\n", *outPtr)
	return nil
}

func runRender(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	scenePtr := fs.String("scene", cfg.ScenePath, "Путь к сцене (по умолчанию: самый свежий файл в папке сцен)")
	fpsPtr := fs.Int("fps", cfg.FPS, "FPS")
	workersPtr := fs.Int("workers", cfg.Workers, "Потоки")
	outPtr := fs.String("out", cfg.OutputPath, "Путь к отчету по кадрам (YAML)")
	rulerPtr := fs.String("ruler", cfg.RulerPath, "Путь к PNG линейки (пусто - не рисовать)")
	rulerWPtr := fs.Int("ruler-width", cfg.RulerWidth, "Ширина линейки")
	rulerHPtr := fs.Int("ruler-height", cfg.RulerHeight, "Высота линейки")
	statsPtr := fs.Bool("stats", cfg.ShowStats, "Показать отчет о производительности")
	fs.Parse(args)

	cfg.ScenePath = *scenePtr
	cfg.FPS = *fpsPtr
	cfg.Workers = *workersPtr
	cfg.OutputPath = *outPtr
	cfg.RulerPath = *rulerPtr
	cfg.RulerWidth = *rulerWPtr
	cfg.RulerHeight = *rulerHPtr
	cfg.ShowStats = *statsPtr
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, err := loadStore(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	project := engine.NewRenderProject(cfg, store)
	if _, err := project.Run(ctx); err != nil {
		return err
	}

	fmt.Printf("[+++] Успех! Результат: %s\n", cfg.OutputPath)
	return nil
}

func runPlay(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	scenePtr := fs.String("scene", cfg.ScenePath, "Путь к сцене")
	loopPtr := fs.Bool("loop", cfg.Loop, "Зациклить воспроизведение")
	speedPtr := fs.Float64("speed", cfg.Speed, "Скорость (0 - из сцены)")
	keepPtr := fs.Bool("keep-settled", cfg.KeepSettled, "Не скрывать блоки после окончания")
	fs.Parse(args)

	cfg.ScenePath = *scenePtr
	cfg.Loop = *loopPtr
	cfg.Speed = *speedPtr
	cfg.KeepSettled = *keepPtr
	if err := cfg.Validate(); err != nil {
		return err
	}

	session, err := newSession(cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("терминал недоступен: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("терминал недоступен: %w", err)
	}
	defer screen.Fini()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := preview.New(screen, session)
	session.Clock().Play()
	defer session.Clock().Stop()

	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runServe(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	scenePtr := fs.String("scene", cfg.ScenePath, "Путь к сцене")
	addrPtr := fs.String("addr", cfg.Addr, "Адрес HTTP сервера")
	loopPtr := fs.Bool("loop", cfg.Loop, "Зациклить воспроизведение")
	fs.Parse(args)

	cfg.ScenePath = *scenePtr
	cfg.Addr = *addrPtr
	cfg.Loop = *loopPtr

	// Каждый websocket-клиент держит открытый сокет
	system.InitResourceLimits(4096)

	session, err := newSession(cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	srv := server.New(session)
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on %s", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	fmt.Println("[*] Остановка сервера...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func runExport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	scenePtr := fs.String("scene", cfg.ScenePath, "Путь к сцене")
	formatPtr := fs.String("format", cfg.Format, "Формат: json, yaml, ts")
	animOnlyPtr := fs.Bool("animation-only", cfg.AnimationOnly, "Только тайминги, без содержимого блоков")
	outPtr := fs.String("o", "", "Файл результата (по умолчанию: output/animation_<время>.<формат>, '-' - stdout)")
	qrPtr := fs.String("qr", cfg.QRPath, "Сохранить QR-код данных анимации в PNG")
	fs.Parse(args)

	cfg.ScenePath = *scenePtr
	cfg.Format = *formatPtr
	cfg.AnimationOnly = *animOnlyPtr
	cfg.QRPath = *qrPtr
	if err := cfg.Validate(); err != nil {
		return err
	}

	format, err := export.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	store, err := loadStore(cfg)
	if err != nil {
		return err
	}
	snap := store.Snapshot()
	doc := export.Build(snap, cfg.AnimationOnly)

	out := *outPtr
	if out == "-" {
		if err := export.Write(os.Stdout, doc, format); err != nil {
			return err
		}
	} else {
		if out == "" {
			out = system.TimestampedPath("output", "animation", export.Extension(format))
		}
		if err := system.EnsureDir(out); err != nil {
			return err
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := export.Write(f, doc, format); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("[+++] Экспорт сохранен: %s\n", out)
	}

	if cfg.QRPath != "" {
		if err := export.WriteQR(cfg.QRPath, doc.Animation, export.DefaultQRSize); err != nil {
			return err
		}
		fmt.Printf("[+++] QR-код сохранен: %s\n", cfg.QRPath)
	}
	return nil
}

// loadStore читает сцену из cfg.ScenePath или самую свежую из папки сцен.
// Без сцен используется демо.
func loadStore(cfg *config.Config) (*timeline.Store, error) {
	path := cfg.ScenePath
	if path == "" {
		latest, err := system.FindLatestScene(cfg.ScenesDir)
		if err != nil {
			fmt.Printf("[*] Сцена не найдена (%v), используется демо\n", err)
			return timeline.NewStore(scene.SampleScene())
		}
		path = latest
		cfg.ScenePath = path
		fmt.Printf("[*] Выбрана сцена: %s\n", path)
	}

	s, err := scene.ReadScene(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения сцены: %w", err)
	}
	return timeline.NewStore(s)
}

func newSession(cfg *config.Config) (*playback.Session, error) {
	store, err := loadStore(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Speed > 0 {
		g := store.Global()
		g.GlobalSpeed = cfg.Speed
		store.SetGlobal(g)
	}

	clk := clock.New(0, nil, nil)
	clk.SetLoop(cfg.Loop)
	clk.OnError(func(err error) {
		log.Printf("[!] Воспроизведение остановлено: %v", err)
	})

	session := playback.NewSession(store, clk)
	session.KeepSettled = cfg.KeepSettled
	return session, nil
}
