// Package app runs the servotrack control loop: capture, detect, normalize,
// estimate distance, actuate, render and publish, one frame at a time.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/servotrack/internal/capture"
	"github.com/ayusman/servotrack/internal/config"
	"github.com/ayusman/servotrack/internal/detector"
	"github.com/ayusman/servotrack/internal/distance"
	"github.com/ayusman/servotrack/internal/servo"
	"github.com/ayusman/servotrack/internal/store"
	"github.com/ayusman/servotrack/internal/tracking"
)

// CommandBuffer is the capacity of the operator command queue.
const CommandBuffer = 16

// readRetryDelay is the pause after a failed frame read.
const readRetryDelay = 10 * time.Millisecond

// ErrNoTarget is returned by a calibration request when the last frame had
// no qualifying target.
var ErrNoTarget = errors.New("no target detected")

// ErrNotRunning is returned when a request cannot be queued because the loop
// has stopped.
var ErrNotRunning = errors.New("tracking loop not running")

// DetectorFactory builds the detector for a mode.
type DetectorFactory func(config.Mode, config.Config) (detector.Detector, error)

// Options wires the components the loop drives. Camera is required. A nil
// Controller means actuation is off; ServoStatus says why.
type Options struct {
	Config      config.Config
	Camera      capture.Camera
	Controller  *servo.Controller
	ServoStatus servo.Status
	Store       *store.Store
	Display     Display
	Hub         *Hub
	Logger      *slog.Logger
	NewDetector DetectorFactory
	Clock       func() time.Time
}

// App owns every component of the loop. Only Run's goroutine touches them;
// other goroutines talk to it through the command queue and Status.
type App struct {
	cfg         config.Config
	camera      capture.Camera
	controller  *servo.Controller
	servoStatus servo.Status
	store       *store.Store
	display     Display
	hub         *Hub
	log         *slog.Logger
	newDetector DetectorFactory
	now         func() time.Time

	tracker   *tracking.Tracker
	estimator *distance.Estimator
	mode      config.Mode
	last      tracking.Result
	session   store.Session
	fps       float64
	lastFrame time.Time

	commands chan command
	done     chan struct{}
	doneOnce sync.Once

	mu     sync.RWMutex
	status Status
}

// New builds an App and the detector for cfg.Mode. An unknown mode or a
// detector that cannot be constructed fails here rather than in the loop.
func New(opts Options) (*App, error) {
	if opts.Camera == nil {
		return nil, errors.New("app: camera is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NewDetector == nil {
		opts.NewDetector = detector.New
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Display == nil {
		opts.Display = Headless{}
	}
	if opts.Controller == nil && opts.ServoStatus == servo.StatusReady {
		opts.ServoStatus = servo.StatusDisabled
	}

	cfg := opts.Config
	det, err := opts.NewDetector(cfg.Mode, cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s detector: %w", cfg.Mode, err)
	}

	logger := opts.Logger.With("component", "app")
	a := &App{
		cfg:         cfg,
		camera:      opts.Camera,
		controller:  opts.Controller,
		servoStatus: opts.ServoStatus,
		store:       opts.Store,
		display:     opts.Display,
		hub:         opts.Hub,
		log:         logger,
		newDetector: opts.NewDetector,
		now:         opts.Clock,
		tracker:     tracking.NewTracker(det, cfg.Tracking, opts.Logger),
		estimator:   distance.New(cfg.Distance),
		mode:        cfg.Mode,
		session:     store.Session{Mode: string(cfg.Mode)},
		commands:    make(chan command, CommandBuffer),
		done:        make(chan struct{}),
	}

	a.restoreCalibration()
	a.snapshot(0, false)
	return a, nil
}

// restoreCalibration loads the newest stored focal length when config does
// not pin one.
func (a *App) restoreCalibration() {
	if a.store == nil || a.estimator.Calibrated() {
		return
	}

	c, err := a.store.Calibrations().Latest()
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.log.Warn("failed to load calibration", "error", err)
		}
		return
	}

	if err := a.estimator.SetFocalLength(c.FocalLengthPx); err != nil {
		a.log.Warn("ignoring stored calibration", "focal_length_px", c.FocalLengthPx, "error", err)
		return
	}
	a.log.Info("restored calibration", "focal_length_px", c.FocalLengthPx, "calibrated_at", c.CreatedAt)
}

// SavedMode returns the last mode persisted in st.
func SavedMode(st *store.Store) (config.Mode, bool) {
	if st == nil {
		return "", false
	}
	v, err := st.Settings().Get(store.KeyMode)
	if err != nil {
		return "", false
	}
	m, err := config.ParseMode(v)
	if err != nil {
		return "", false
	}
	return m, true
}

// Mode returns the active tracking mode.
func (a *App) Mode() config.Mode {
	return a.Status().Mode
}

// Estimator exposes the distance estimator.
func (a *App) Estimator() *distance.Estimator {
	return a.estimator
}

// Done is closed when Run returns.
func (a *App) Done() <-chan struct{} {
	return a.done
}
