package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ayusman/servotrack/internal/app"
	"github.com/ayusman/servotrack/internal/capture"
	"github.com/ayusman/servotrack/internal/config"
	"github.com/ayusman/servotrack/internal/log"
	"github.com/ayusman/servotrack/internal/server"
	"github.com/ayusman/servotrack/internal/servo"
	"github.com/ayusman/servotrack/internal/store"
	"github.com/ayusman/servotrack/internal/tray"
)

const (
	sourceCamera    = "camera"
	sourceSynthetic = "synthetic"
	sweepDwell      = 600 * time.Millisecond
)

func main() {
	if err := run(); err != nil {
		log.Error("servotrack failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to a HuJSON config file")
	preset := flag.String("preset", "default", "Base preset: default, smooth, responsive")
	modeFlag := flag.String("mode", "", "Tracking mode: colour, person, face, idle")
	servoFlag := flag.Bool("servo", false, "Drive the pan-tilt servos")
	addr := flag.String("addr", "", "HTTP listen address (empty keeps config, \"off\" disables)")
	headless := flag.Bool("headless", false, "Run without a preview window")
	withTray := flag.Bool("tray", false, "Show a system tray menu")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	dbPath := flag.String("db", "", "SQLite database path (\"none\" disables persistence)")
	sweep := flag.Bool("sweep", false, "Sweep the servos through their travel and exit")
	source := flag.String("source", sourceCamera, "Frame source: camera, synthetic")
	flag.Parse()

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	fmt.Println("servotrack - closed-loop pan-tilt tracker")

	cfg, ok := config.Preset(*preset)
	if !ok {
		return fmt.Errorf("unknown preset %q", *preset)
	}
	if *configPath != "" {
		loaded, err := config.Load(*configPath, cfg)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if set["log-level"] {
		cfg.LogLevel = *logLevel
	}
	log.Init(cfg.LogLevel)

	if set["mode"] {
		m, err := config.ParseMode(*modeFlag)
		if err != nil {
			return err
		}
		cfg.Mode = m
	}
	if set["servo"] {
		cfg.Servo.Enabled = *servoFlag
	}
	if set["addr"] {
		if *addr == "off" {
			cfg.Server.Enabled = false
		} else {
			cfg.Server.Enabled = true
			cfg.Server.Addr = *addr
		}
	}
	if *headless || *withTray {
		cfg.Display.Headless = true
	}
	if set["db"] {
		cfg.Store.Path = *dbPath
	}
	if cfg.Server.StaticDir == "" {
		cfg.Server.StaticDir = findWebDir()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	st, err := openStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
		log.Info("store opened", "path", st.Path())
		if !set["mode"] {
			if m, ok := app.SavedMode(st); ok {
				cfg.Mode = m
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctrl, servoStatus, err := servo.Setup(cfg.Servo, log.L())
	if err != nil {
		log.Warn("servo unavailable, tracking without actuation", "error", err)
	}
	log.Info("actuation", "status", servoStatus, "transport", cfg.Servo.Transport)

	if *sweep {
		if ctrl == nil {
			return fmt.Errorf("sweep needs servos: status %s", servoStatus)
		}
		defer ctrl.Close()
		log.Info("sweeping servos")
		return servo.Sweep(ctx, ctrl.Driver(), sweepDwell)
	}

	camera, err := newCamera(*source, cfg.Camera)
	if err != nil {
		if ctrl != nil {
			ctrl.Close()
		}
		return err
	}

	var display app.Display = app.Headless{}
	if !cfg.Display.Headless {
		display = app.NewWindow(cfg.Display)
	}

	hub := app.NewHub()
	a, err := app.New(app.Options{
		Config:      cfg,
		Camera:      camera,
		Controller:  ctrl,
		ServoStatus: servoStatus,
		Store:       st,
		Display:     display,
		Hub:         hub,
		Logger:      log.L(),
	})
	if err != nil {
		display.Close()
		if ctrl != nil {
			ctrl.Close()
		}
		return err
	}

	if cfg.Server.Enabled {
		srv := server.New(server.Config{
			StaticDir:  cfg.Server.StaticDir,
			Store:      st,
			Controller: a,
			Hub:        hub,
			Logger:     log.L(),
		})
		go func() {
			if err := srv.Run(ctx, cfg.Server.Addr); err != nil {
				log.Error("http server failed", "error", err)
			}
		}()
		if cfg.Server.StaticDir != "" {
			log.Info("serving dashboard", "dir", cfg.Server.StaticDir)
		}
	}

	if !*withTray {
		return a.Run(ctx)
	}
	return runWithTray(ctx, a, cfg)
}

// runWithTray runs the loop in the background and the tray on the main
// goroutine, which the platform tray APIs require.
func runWithTray(ctx context.Context, a *app.App, cfg config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t := tray.New(cfg.Mode)
	t.OnMode(func(m config.Mode) {
		if err := a.RequestMode(ctx, m); err != nil {
			log.Warn("mode switch failed", "mode", m, "error", err)
			return
		}
		t.SetMode(m)
	})
	t.OnCalibrate(func() {
		focal, err := a.RequestCalibration(ctx)
		if err != nil {
			t.SetStatus("Calibration failed: " + err.Error())
			return
		}
		t.SetStatus(fmt.Sprintf("Focal length: %.1f px", focal))
	})
	t.OnDashboard(func() {
		if !cfg.Server.Enabled {
			return
		}
		if err := openBrowser(dashboardURL(cfg.Server.Addr)); err != nil {
			log.Warn("failed to open browser", "error", err)
		}
	})
	t.OnQuit(cancel)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
		t.Quit()
	}()

	t.Run()
	cancel()
	return <-errCh
}

func openStore(path string) (*store.Store, error) {
	if path == "none" {
		return nil, nil
	}
	if path == "" {
		dir, err := dataDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "servotrack.db")
	}
	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	return st, nil
}

func newCamera(source string, cfg config.CameraConfig) (capture.Camera, error) {
	switch source {
	case sourceCamera:
		return capture.NewCamera(cfg), nil
	case sourceSynthetic:
		w, h := cfg.Width, cfg.Height
		if w <= 0 || h <= 0 {
			w, h = capture.DefaultWidth, capture.DefaultHeight
		}
		cam := capture.NewSyntheticCamera(w, h, h/8, h/3, 180)
		cam.SetFPS(cfg.FPS)
		return capture.NewThrottled(cam), nil
	}
	return nil, errors.New("unknown source " + source)
}

// dataDir returns ~/.servotrack, creating it if needed.
func dataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	dir := filepath.Join(homeDir, ".servotrack")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.servotrack/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".servotrack", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

func dashboardURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
