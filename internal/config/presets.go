package config

import "time"

// Default returns the configuration used when no file is given: a 1280x960
// preview tracking a saturated red target, with actuation off.
func Default() Config {
	return Config{
		Mode:     ModeColour,
		LogLevel: "info",
		Camera: CameraConfig{
			DeviceID:        0,
			Width:           1280,
			Height:          960,
			FPS:             30,
			MaxReadFailures: 30,
		},
		Tracking: TrackingConfig{
			MinArea:           1000,
			DeadbandPx:        0,
			CenterSmoothAlpha: 1,
			ErrorSmoothAlpha:  1,
		},
		Colour: ColourConfig{
			Classes: map[string][]HSVRange{
				"cb132b_red": {
					{Lower: [3]float64{173, 170, 60}, Upper: [3]float64{179, 255, 255}},
				},
				"red": {
					{Lower: [3]float64{0, 120, 70}, Upper: [3]float64{10, 255, 255}},
					{Lower: [3]float64{170, 120, 70}, Upper: [3]float64{179, 255, 255}},
				},
				"green": {
					{Lower: [3]float64{40, 80, 60}, Upper: [3]float64{85, 255, 255}},
				},
				"blue": {
					{Lower: [3]float64{95, 120, 60}, Upper: [3]float64{130, 255, 255}},
				},
			},
			Active:          []string{"cb132b_red"},
			KernelSize:      Size{W: 10, H: 10},
			OpenIterations:  1,
			CloseIterations: 1,
		},
		Person: PersonConfig{
			WinStride: Size{W: 8, H: 8},
			Padding:   Size{W: 8, H: 8},
			Scale:     1.05,
			MinWeight: 0.5,
			MaxWidth:  640,
		},
		Face: FaceConfig{
			ScaleFactor:  1.1,
			MinNeighbors: 5,
			MinSize:      Size{W: 30, H: 30},
			Equalize:     true,
		},
		Servo: ServoConfig{
			Enabled:   false,
			Transport: TransportMaestro,
			Port:      "/dev/ttyACM0",
			BaudRate:  9600,
			Device:    "/dev/pi-blaster",
			Pan: AxisConfig{
				Channel:  18,
				MinUS:    600,
				MaxUS:    2400,
				CenterUS: 1500,
				Kp:       0.35,
				Invert:   false,
			},
			Tilt: AxisConfig{
				Channel:  13,
				MinUS:    600,
				MaxUS:    2400,
				CenterUS: 1500,
				Kp:       0.35,
				Invert:   true,
			},
			UpdateInterval: Duration(20 * time.Millisecond),
			MaxStepUS:      16,
			Bands:          DefaultBands(),
		},
		Distance: DistanceConfig{
			KnownWidthCM:    6.5,
			CalibDistanceCM: 50,
			FocalLengthPx:   0,
			SmoothAlpha:     0.25,
		},
		Server: ServerConfig{
			Enabled: true,
			Addr:    ":8080",
		},
		Display: DisplayConfig{
			WindowName: "servotrack",
			ShowMask:   true,
		},
	}
}

// DefaultBands returns the slow-zone schedule: small steps near center,
// the full cap from 200px out.
func DefaultBands() []StepBand {
	return []StepBand{
		{Below: 60, Scale: 0.18},
		{Below: 120, Scale: 0.45},
		{Below: 200, Scale: 0.8},
	}
}

// Smooth returns a configuration tuned for steady, low-jitter tracking.
// Good for slow targets and for mounts that ring.
func Smooth() Config {
	cfg := Default()
	cfg.Tracking.DeadbandPx = 12
	cfg.Tracking.CenterSmoothAlpha = 0.4
	cfg.Tracking.ErrorSmoothAlpha = 0.5
	cfg.Servo.Pan.Kp = 0.2
	cfg.Servo.Tilt.Kp = 0.2
	cfg.Servo.MaxStepUS = 10
	cfg.Servo.Bands = []StepBand{
		{Below: 60, Scale: 0.2},
		{Below: 120, Scale: 0.45},
		{Below: 200, Scale: 0.8},
	}
	cfg.Servo.UpdateInterval = Duration(30 * time.Millisecond)
	return cfg
}

// Responsive returns a configuration for fast-moving targets.
// More overshoot; pair it with a rigid mount.
func Responsive() Config {
	cfg := Default()
	cfg.Tracking.CenterSmoothAlpha = 1
	cfg.Tracking.ErrorSmoothAlpha = 1
	cfg.Servo.Pan.Kp = 0.5
	cfg.Servo.Tilt.Kp = 0.5
	cfg.Servo.MaxStepUS = 28
	cfg.Servo.Bands = []StepBand{
		{Below: 40, Scale: 0.25},
		{Below: 100, Scale: 0.6},
		{Below: 180, Scale: 0.85},
	}
	cfg.Servo.UpdateInterval = Duration(15 * time.Millisecond)
	return cfg
}

// Preset returns a named preset: "default", "smooth" or "responsive".
func Preset(name string) (Config, bool) {
	switch name {
	case "", "default":
		return Default(), true
	case "smooth":
		return Smooth(), true
	case "responsive":
		return Responsive(), true
	}
	return Config{}, false
}
