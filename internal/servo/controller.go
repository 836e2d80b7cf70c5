package servo

import (
	"log/slog"
	"math"
	"time"

	"github.com/ayusman/servotrack/internal/config"
)

// errLogInterval throttles repeated transport error logs.
const errLogInterval = 5 * time.Second

type gain struct {
	kp     float64
	invert bool
}

// Controller converts pixel error into bounded servo steps, one proportional
// loop per axis. It is driven from the control loop and is not safe for
// concurrent use.
type Controller struct {
	driver   *Driver
	gains    [2]gain
	interval time.Duration
	maxStep  float64
	bands    []config.StepBand

	acc  [2]float64
	last time.Time
	now  func() time.Time

	log        *slog.Logger
	lastErrLog time.Time
}

// NewController creates a Controller over driver.
func NewController(driver *Driver, cfg config.ServoConfig, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	bands := cfg.Bands
	if len(bands) == 0 {
		bands = config.DefaultBands()
	}
	return &Controller{
		driver: driver,
		gains: [2]gain{
			{kp: cfg.Pan.Kp, invert: cfg.Pan.Invert},
			{kp: cfg.Tilt.Kp, invert: cfg.Tilt.Invert},
		},
		interval: cfg.UpdateInterval.D(),
		maxStep:  cfg.MaxStepUS,
		bands:    bands,
		now:      time.Now,
		log:      logger.With("component", "controller"),
	}
}

// SetClock replaces the time source. Tests use it to step the rate limiter.
func (c *Controller) SetClock(now func() time.Time) {
	c.now = now
}

// Driver returns the underlying actuator driver.
func (c *Controller) Driver() *Driver {
	return c.driver
}

// StepCap returns the largest step, in microseconds, allowed for an error of
// (ex, ey). The cap shrinks near the center so the mount settles instead of
// overshooting.
func (c *Controller) StepCap(ex, ey int) float64 {
	mag := max(abs(ex), abs(ey))
	scale := 1.0
	for _, b := range c.bands {
		if mag < b.Below {
			scale = b.Scale
			break
		}
	}
	return c.maxStep * scale
}

// Update applies one control step for the pixel error (ex, ey). Calls closer
// together than the update interval and a zero error are no-ops.
func (c *Controller) Update(ex, ey int) {
	now := c.now()
	if !c.last.IsZero() && now.Sub(c.last) < c.interval {
		return
	}
	c.last = now

	if ex == 0 && ey == 0 {
		return
	}

	limit := c.StepCap(ex, ey)
	c.apply(Pan, float64(ex), limit)
	c.apply(Tilt, float64(ey), limit)
}

// apply runs one axis: proportional delta, capped, optionally inverted, then
// pushed through the fractional accumulator so sub-microsecond deltas still
// add up to real steps.
func (c *Controller) apply(axis Axis, e, limit float64) {
	g := c.gains[axis]

	delta := clamp(g.kp*e, -limit, limit)
	if g.invert {
		delta = -delta
	}

	acc := clamp(c.acc[axis]+delta, -limit, limit)
	whole := math.Floor(limit)
	step := clamp(math.Round(acc), -whole, whole)
	c.acc[axis] = acc - step

	if step == 0 {
		return
	}

	pos := c.driver.Position(axis)
	if err := c.driver.SetPosition(axis, float64(pos)-step); err != nil {
		c.logError(err)
	}
}

// Accumulators returns the fractional residue carried on each axis.
func (c *Controller) Accumulators() (pan, tilt float64) {
	return c.acc[Pan], c.acc[Tilt]
}

// Reset clears the accumulators and the rate limiter.
func (c *Controller) Reset() {
	c.acc = [2]float64{}
	c.last = time.Time{}
}

// Close stops the servos.
func (c *Controller) Close() error {
	return c.driver.Stop()
}

func (c *Controller) logError(err error) {
	now := c.now()
	if now.Sub(c.lastErrLog) < errLogInterval {
		return
	}
	c.lastErrLog = now
	c.log.Error("servo command failed", "error", err)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
