// Package config holds the runtime configuration for servotrack.
//
// A Config is built once at startup (defaults, then an optional HuJSON file,
// then command-line overrides) and handed to each component's constructor.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Mode selects the active detection strategy.
type Mode string

const (
	ModeColour Mode = "colour"
	ModePerson Mode = "person"
	ModeFace   Mode = "face"
	ModeIdle   Mode = "idle"
)

// ErrUnknownMode is returned for a tracking mode tag that has no detector.
var ErrUnknownMode = errors.New("unknown tracking mode")

// Modes lists the selectable modes in key order (1, 2, 3, then idle).
func Modes() []Mode {
	return []Mode{ModeColour, ModePerson, ModeFace, ModeIdle}
}

// ParseMode resolves a mode tag. "color" is accepted as an alias for colour.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "colour", "color":
		return ModeColour, nil
	case "person":
		return ModePerson, nil
	case "face":
		return ModeFace, nil
	case "idle", "none", "off":
		return ModeIdle, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Duration is a time.Duration that reads and writes as "20ms" in JSON.
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Size is a width/height pair in pixels.
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

// HSVRange is one inclusive lower/upper bound pair in OpenCV HSV
// (H 0-179, S 0-255, V 0-255).
type HSVRange struct {
	Lower [3]float64 `json:"lower"`
	Upper [3]float64 `json:"upper"`
}

// CameraConfig configures the frame source.
type CameraConfig struct {
	DeviceID int `json:"device_id"`
	Width    int `json:"width"`
	Height   int `json:"height"`
	FPS      int `json:"fps"`
	// MaxReadFailures consecutive failed reads end the loop with an error.
	MaxReadFailures int `json:"max_read_failures"`
}

// TrackingConfig configures the target normalizer.
type TrackingConfig struct {
	MinArea           int     `json:"min_area"`
	DeadbandPx        float64 `json:"deadband_px"`
	CenterSmoothAlpha float64 `json:"center_smooth_alpha"`
	ErrorSmoothAlpha  float64 `json:"error_smooth_alpha"`
}

// ColourConfig configures the HSV colour detector.
type ColourConfig struct {
	Classes         map[string][]HSVRange `json:"classes"`
	Active          []string              `json:"active"`
	KernelSize      Size                  `json:"kernel_size"`
	OpenIterations  int                   `json:"open_iterations"`
	CloseIterations int                   `json:"close_iterations"`
}

// Ranges returns every HSV range of every active class, in Active order.
func (c ColourConfig) Ranges() []HSVRange {
	var out []HSVRange
	for _, name := range c.Active {
		out = append(out, c.Classes[name]...)
	}
	return out
}

// PersonConfig configures the HOG person detector.
type PersonConfig struct {
	WinStride Size    `json:"win_stride"`
	Padding   Size    `json:"padding"`
	Scale     float64 `json:"scale"`
	MinWeight float64 `json:"min_weight"`
	// MaxWidth downscales wider frames before detection. 0 disables.
	MaxWidth int `json:"max_width"`
}

// FaceConfig configures the Haar cascade face detector.
type FaceConfig struct {
	// CascadePath overrides the cascade lookup. Empty searches the usual
	// OpenCV data directories.
	CascadePath  string  `json:"cascade_path"`
	ScaleFactor  float64 `json:"scale_factor"`
	MinNeighbors int     `json:"min_neighbors"`
	MinSize      Size    `json:"min_size"`
	Equalize     bool    `json:"equalize"`
}

// AxisConfig describes one servo axis. Channel is the Maestro channel or the
// GPIO pin for pi-blaster.
type AxisConfig struct {
	Channel  int     `json:"channel"`
	MinUS    int     `json:"min_us"`
	MaxUS    int     `json:"max_us"`
	CenterUS int     `json:"center_us"`
	Kp       float64 `json:"kp"`
	Invert   bool    `json:"invert"`
}

// StepBand scales the per-update step cap while the error magnitude is
// below Below pixels.
type StepBand struct {
	Below int     `json:"below"`
	Scale float64 `json:"scale"`
}

// Transport names.
const (
	TransportMaestro   = "maestro"
	TransportPiBlaster = "piblaster"
	TransportMock      = "mock"
)

// ServoConfig configures the controller and the actuator driver.
type ServoConfig struct {
	Enabled        bool       `json:"enabled"`
	Transport      string     `json:"transport"`
	Port           string     `json:"port"`
	BaudRate       int        `json:"baud_rate"`
	Device         string     `json:"device"`
	Pan            AxisConfig `json:"pan"`
	Tilt           AxisConfig `json:"tilt"`
	UpdateInterval Duration   `json:"update_interval"`
	MaxStepUS      float64    `json:"max_step_us"`
	Bands          []StepBand `json:"bands"`
}

// DistanceConfig configures the monocular distance estimator.
type DistanceConfig struct {
	KnownWidthCM    float64 `json:"known_width_cm"`
	CalibDistanceCM float64 `json:"calib_distance_cm"`
	// FocalLengthPx of 0 means "load the last calibration from the store".
	FocalLengthPx float64 `json:"focal_length_px"`
	SmoothAlpha   float64 `json:"smooth_alpha"`
}

// ServerConfig configures the HTTP control surface.
type ServerConfig struct {
	Enabled   bool   `json:"enabled"`
	Addr      string `json:"addr"`
	StaticDir string `json:"static_dir"`
}

// StoreConfig configures the SQLite store. An empty path selects the default
// file in the data directory; "none" disables persistence.
type StoreConfig struct {
	Path string `json:"path"`
}

// DisplayConfig configures the preview window.
type DisplayConfig struct {
	Headless   bool   `json:"headless"`
	WindowName string `json:"window_name"`
	ShowMask   bool   `json:"show_mask"`
}

// Config is the full application configuration.
type Config struct {
	Mode     Mode           `json:"mode"`
	LogLevel string         `json:"log_level"`
	Camera   CameraConfig   `json:"camera"`
	Tracking TrackingConfig `json:"tracking"`
	Colour   ColourConfig   `json:"colour"`
	Person   PersonConfig   `json:"person"`
	Face     FaceConfig     `json:"face"`
	Servo    ServoConfig    `json:"servo"`
	Distance DistanceConfig `json:"distance"`
	Server   ServerConfig   `json:"server"`
	Store    StoreConfig    `json:"store"`
	Display  DisplayConfig  `json:"display"`
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}

	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera resolution must be positive, got %dx%d", c.Camera.Width, c.Camera.Height)
	}

	t := c.Tracking
	if t.MinArea < 0 {
		return fmt.Errorf("tracking.min_area must be >= 0, got %d", t.MinArea)
	}
	if t.DeadbandPx < 0 {
		return fmt.Errorf("tracking.deadband_px must be >= 0, got %v", t.DeadbandPx)
	}
	if err := checkAlpha("tracking.center_smooth_alpha", t.CenterSmoothAlpha); err != nil {
		return err
	}
	if err := checkAlpha("tracking.error_smooth_alpha", t.ErrorSmoothAlpha); err != nil {
		return err
	}

	if err := c.validateColour(); err != nil {
		return err
	}
	if c.Person.Scale <= 1 {
		return fmt.Errorf("person.scale must be > 1, got %v", c.Person.Scale)
	}
	if c.Face.ScaleFactor <= 1 {
		return fmt.Errorf("face.scale_factor must be > 1, got %v", c.Face.ScaleFactor)
	}

	if err := c.validateServo(); err != nil {
		return err
	}

	d := c.Distance
	if d.KnownWidthCM <= 0 || d.CalibDistanceCM <= 0 {
		return errors.New("distance.known_width_cm and distance.calib_distance_cm must be positive")
	}
	if d.FocalLengthPx < 0 {
		return fmt.Errorf("distance.focal_length_px must be >= 0, got %v", d.FocalLengthPx)
	}
	return checkAlpha("distance.smooth_alpha", d.SmoothAlpha)
}

func (c *Config) validateColour() error {
	col := c.Colour
	for _, name := range col.Active {
		ranges, ok := col.Classes[name]
		if !ok {
			return fmt.Errorf("colour.active references unknown class %q (have %s)", name, strings.Join(c.ColourClassNames(), ", "))
		}
		if len(ranges) == 0 {
			return fmt.Errorf("colour class %q has no ranges", name)
		}
		for i, r := range ranges {
			for ch := 0; ch < 3; ch++ {
				if r.Lower[ch] > r.Upper[ch] {
					return fmt.Errorf("colour class %q range %d: lower > upper on channel %d", name, i, ch)
				}
			}
		}
	}
	if col.KernelSize.W <= 0 || col.KernelSize.H <= 0 {
		return fmt.Errorf("colour.kernel_size must be positive, got %dx%d", col.KernelSize.W, col.KernelSize.H)
	}
	if col.OpenIterations < 0 || col.CloseIterations < 0 {
		return errors.New("colour iterations must be >= 0")
	}
	return nil
}

func (c *Config) validateServo() error {
	s := c.Servo
	switch s.Transport {
	case TransportMaestro, TransportPiBlaster, TransportMock:
	default:
		return fmt.Errorf("servo.transport %q is not one of maestro, piblaster, mock", s.Transport)
	}

	for name, a := range map[string]AxisConfig{"pan": s.Pan, "tilt": s.Tilt} {
		if a.MinUS <= 0 || a.MinUS >= a.MaxUS {
			return fmt.Errorf("servo.%s: need 0 < min_us < max_us, got %d..%d", name, a.MinUS, a.MaxUS)
		}
		if a.CenterUS < a.MinUS || a.CenterUS > a.MaxUS {
			return fmt.Errorf("servo.%s: center_us %d outside %d..%d", name, a.CenterUS, a.MinUS, a.MaxUS)
		}
		if a.Kp == 0 {
			return fmt.Errorf("servo.%s: kp must be non-zero", name)
		}
	}

	if s.UpdateInterval < 0 {
		return errors.New("servo.update_interval must be >= 0")
	}
	if s.MaxStepUS <= 0 {
		return fmt.Errorf("servo.max_step_us must be positive, got %v", s.MaxStepUS)
	}
	if len(s.Bands) < 3 {
		return fmt.Errorf("servo.bands needs at least 3 bands, got %d", len(s.Bands))
	}
	if !sort.SliceIsSorted(s.Bands, func(i, j int) bool { return s.Bands[i].Below < s.Bands[j].Below }) {
		return errors.New("servo.bands thresholds must be ascending")
	}
	for i, b := range s.Bands {
		if b.Scale <= 0 || b.Scale > 1 {
			return fmt.Errorf("servo.bands[%d].scale must be in (0, 1], got %v", i, b.Scale)
		}
		if i > 0 && b.Scale < s.Bands[i-1].Scale {
			return fmt.Errorf("servo.bands[%d].scale must not decrease", i)
		}
		if i > 0 && b.Below == s.Bands[i-1].Below {
			return fmt.Errorf("servo.bands[%d] repeats threshold %d", i, b.Below)
		}
	}
	if s.MaxStepUS*s.Bands[0].Scale < 1 {
		return fmt.Errorf("smallest step cap %.2fus is below 1us", s.MaxStepUS*s.Bands[0].Scale)
	}
	return nil
}

// Clone returns a deep copy, so decoding into it never touches c.
func (c Config) Clone() Config {
	out := c
	out.Colour.Classes = make(map[string][]HSVRange, len(c.Colour.Classes))
	for name, ranges := range c.Colour.Classes {
		out.Colour.Classes[name] = append([]HSVRange(nil), ranges...)
	}
	out.Colour.Active = append([]string(nil), c.Colour.Active...)
	out.Servo.Bands = append([]StepBand(nil), c.Servo.Bands...)
	return out
}

// ColourClassNames returns the configured class names, sorted.
func (c *Config) ColourClassNames() []string {
	names := make([]string, 0, len(c.Colour.Classes))
	for n := range c.Colour.Classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func checkAlpha(name string, v float64) error {
	if v <= 0 || v > 1 {
		return fmt.Errorf("%s must be in (0, 1], got %v", name, v)
	}
	return nil
}
