package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresets_Validate(t *testing.T) {
	for _, name := range []string{"default", "smooth", "responsive"} {
		t.Run(name, func(t *testing.T) {
			cfg, ok := Preset(name)
			require.True(t, ok)
			assert.NoError(t, cfg.Validate())
		})
	}

	_, ok := Preset("turbo")
	assert.False(t, ok)
}

func TestDefault_MatchesReferenceTuning(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 1280, cfg.Camera.Width)
	assert.Equal(t, 960, cfg.Camera.Height)
	assert.Equal(t, 1000, cfg.Tracking.MinArea)
	assert.Equal(t, 0.35, cfg.Servo.Pan.Kp)
	assert.False(t, cfg.Servo.Pan.Invert)
	assert.True(t, cfg.Servo.Tilt.Invert)
	assert.Equal(t, 20*time.Millisecond, cfg.Servo.UpdateInterval.D())
	assert.Equal(t, 16.0, cfg.Servo.MaxStepUS)
	assert.Equal(t, []string{"cb132b_red"}, cfg.Colour.Active)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"colour", ModeColour, false},
		{"color", ModeColour, false},
		{" Face ", ModeFace, false},
		{"person", ModePerson, false},
		{"idle", ModeIdle, false},
		{"hand", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrUnknownMode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown mode", func(c *Config) { c.Mode = "hand" }},
		{"zero alpha", func(c *Config) { c.Tracking.CenterSmoothAlpha = 0 }},
		{"alpha above one", func(c *Config) { c.Tracking.ErrorSmoothAlpha = 1.5 }},
		{"negative deadband", func(c *Config) { c.Tracking.DeadbandPx = -1 }},
		{"unknown active class", func(c *Config) { c.Colour.Active = []string{"magenta"} }},
		{"inverted hsv bound", func(c *Config) {
			c.Colour.Classes["cb132b_red"] = []HSVRange{{Lower: [3]float64{20, 0, 0}, Upper: [3]float64{10, 255, 255}}}
		}},
		{"zero kernel", func(c *Config) { c.Colour.KernelSize = Size{} }},
		{"bad transport", func(c *Config) { c.Servo.Transport = "i2c" }},
		{"min above max", func(c *Config) { c.Servo.Pan.MinUS = 2500 }},
		{"center outside range", func(c *Config) { c.Servo.Tilt.CenterUS = 100 }},
		{"zero kp", func(c *Config) { c.Servo.Pan.Kp = 0 }},
		{"too few bands", func(c *Config) { c.Servo.Bands = c.Servo.Bands[:2] }},
		{"descending bands", func(c *Config) {
			c.Servo.Bands = []StepBand{{Below: 120, Scale: 0.2}, {Below: 60, Scale: 0.4}, {Below: 200, Scale: 0.8}}
		}},
		{"decreasing scale", func(c *Config) {
			c.Servo.Bands = []StepBand{{Below: 60, Scale: 0.5}, {Below: 120, Scale: 0.4}, {Below: 200, Scale: 0.8}}
		}},
		{"sub-microsecond cap", func(c *Config) { c.Servo.MaxStepUS = 4 }},
		{"zero known width", func(c *Config) { c.Distance.KnownWidthCM = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default().Clone()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_NegativeKpAllowed(t *testing.T) {
	cfg := Default()
	cfg.Servo.Pan.Kp = -0.35
	assert.NoError(t, cfg.Validate())
}

func TestParse_OverlaysDefaults(t *testing.T) {
	data := []byte(`{
		// comments are fine
		"mode": "face",
		"tracking": {"deadband_px": 15},
		"servo": {
			"enabled": true,
			"update_interval": "50ms",
			"pan": {"invert": true},
		},
	}`)

	base := Default()
	cfg, err := Parse(data, base)
	require.NoError(t, err)

	assert.Equal(t, ModeFace, cfg.Mode)
	assert.Equal(t, 15.0, cfg.Tracking.DeadbandPx)
	assert.True(t, cfg.Servo.Enabled)
	assert.True(t, cfg.Servo.Pan.Invert)
	assert.Equal(t, 50*time.Millisecond, cfg.Servo.UpdateInterval.D())

	// untouched fields keep their defaults
	assert.Equal(t, 1000, cfg.Tracking.MinArea)
	assert.Equal(t, 1500, cfg.Servo.Pan.CenterUS)
	assert.Equal(t, 0.35, cfg.Servo.Pan.Kp)
}

func TestParse_ClassesReplaceDefaults(t *testing.T) {
	data := []byte(`{
		"colour": {
			"classes": {"yellow": [{"lower": [20, 100, 100], "upper": [35, 255, 255]}]},
			"active": ["yellow"]
		}
	}`)

	base := Default()
	cfg, err := Parse(data, base)
	require.NoError(t, err)

	want := map[string][]HSVRange{
		"yellow": {{Lower: [3]float64{20, 100, 100}, Upper: [3]float64{35, 255, 255}}},
	}
	if diff := cmp.Diff(want, cfg.Colour.Classes); diff != "" {
		t.Errorf("classes mismatch (-want +got):\n%s", diff)
	}

	// base is not mutated
	assert.Contains(t, base.Colour.Classes, "cb132b_red")
	assert.Equal(t, []string{"cb132b_red"}, base.Colour.Active)
}

func TestParse_InvalidResultRejected(t *testing.T) {
	_, err := Parse([]byte(`{"mode": "hand"}`), Default())
	assert.True(t, errors.Is(err, ErrUnknownMode))

	_, err = Parse([]byte(`{"servo": {"update_interval": "soon"}}`), Default())
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("reads hujson file", func(t *testing.T) {
		path := filepath.Join(dir, "servotrack.hujson")
		require.NoError(t, os.WriteFile(path, []byte(`{"camera": {"device_id": 2},}`), 0o644))

		cfg, err := Load(path, Default())
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.Camera.DeviceID)
	})

	t.Run("rejects other extensions", func(t *testing.T) {
		path := filepath.Join(dir, "servotrack.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`mode: face`), 0o644))

		_, err := Load(path, Default())
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.json"), Default())
		assert.Error(t, err)
	})
}

func TestColourConfig_Ranges(t *testing.T) {
	cfg := Default()
	cfg.Colour.Active = []string{"red", "blue"}

	ranges := cfg.Colour.Ranges()
	assert.Len(t, ranges, 3)
	assert.Equal(t, 0.0, ranges[0].Lower[0])
	assert.Equal(t, 170.0, ranges[1].Lower[0])
	assert.Equal(t, 95.0, ranges[2].Lower[0])
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "servotrack.hujson"), Default())
	require.NoError(t, err)

	assert.Equal(t, ModeColour, cfg.Mode)
	assert.Equal(t, 8.0, cfg.Tracking.DeadbandPx)
	assert.True(t, cfg.Servo.Enabled)
	assert.Equal(t, 900, cfg.Servo.Tilt.MinUS)
	assert.Equal(t, 20*time.Millisecond, cfg.Servo.UpdateInterval.D())
	assert.ElementsMatch(t, []string{"cb132b_red", "tennis_ball"}, cfg.ColourClassNames())
	assert.Len(t, cfg.Colour.Ranges(), 2)

	// Omitted fields keep their defaults.
	assert.Equal(t, Default().Servo.Bands, cfg.Servo.Bands)
	assert.Equal(t, Default().Person, cfg.Person)
}
