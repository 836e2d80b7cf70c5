package detector

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/servotrack/internal/config"
)

func TestLargest(t *testing.T) {
	tests := []struct {
		name     string
		rects    []image.Rectangle
		minArea  int
		want     image.Rectangle
		wantArea int
		wantOK   bool
	}{
		{
			name:   "empty",
			rects:  nil,
			wantOK: false,
		},
		{
			name:     "picks greatest area",
			rects:    []image.Rectangle{image.Rect(0, 0, 10, 10), image.Rect(0, 0, 40, 40), image.Rect(5, 5, 25, 25)},
			want:     image.Rect(0, 0, 40, 40),
			wantArea: 1600,
			wantOK:   true,
		},
		{
			name:    "all below min area",
			rects:   []image.Rectangle{image.Rect(0, 0, 10, 10), image.Rect(0, 0, 20, 20)},
			minArea: 1000,
			wantOK:  false,
		},
		{
			name:     "tie keeps first",
			rects:    []image.Rectangle{image.Rect(0, 0, 10, 20), image.Rect(50, 50, 70, 60)},
			want:     image.Rect(0, 0, 10, 20),
			wantArea: 200,
			wantOK:   true,
		},
		{
			name:     "area exactly at min passes",
			rects:    []image.Rectangle{image.Rect(0, 0, 25, 40)},
			minArea:  1000,
			want:     image.Rect(0, 0, 25, 40),
			wantArea: 1000,
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, area, ok := largest(tt.rects, tt.minArea)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
				assert.Equal(t, tt.wantArea, area)
			}
		})
	}
}

func TestDownscaleAndRescale(t *testing.T) {
	assert.Equal(t, 1.0, downscaleFactor(640, 0))
	assert.Equal(t, 1.0, downscaleFactor(640, 640))
	assert.Equal(t, 0.5, downscaleFactor(1280, 640))

	r := image.Rect(10, 20, 50, 100)
	assert.Equal(t, r, rescale(r, 1))
	assert.Equal(t, image.Rect(20, 40, 100, 200), rescale(r, 0.5))
}

func TestNew_UnknownMode(t *testing.T) {
	_, err := New("hand", config.Default())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownMode))
}

func TestNew_Idle(t *testing.T) {
	d, err := New(config.ModeIdle, config.Default())
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestNew_Colour(t *testing.T) {
	d, err := New(config.ModeColour, config.Default())
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, "colour", d.Name())
	_, isMasker := d.(Masker)
	assert.True(t, isMasker)
}

func TestNew_ColourWithoutRanges(t *testing.T) {
	cfg := config.Default()
	cfg.Colour.Active = nil

	_, err := New(config.ModeColour, cfg)
	assert.Error(t, err)
}

func TestNew_FaceMissingCascade(t *testing.T) {
	cfg := config.Default()
	cfg.Face.CascadePath = "/nonexistent/cascade.xml"

	_, err := New(config.ModeFace, cfg)
	assert.Error(t, err)
}

func TestCandidate_Width(t *testing.T) {
	c := BoxCandidate(10, 10, 80, 40)
	assert.Equal(t, 80, c.Width())
	assert.Equal(t, 3200, c.Area)
}

func TestMockDetector(t *testing.T) {
	t.Run("returns nil by default", func(t *testing.T) {
		mock := NewMockDetector()

		c, err := mock.Detect(nil)
		assert.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("queued candidates come before the fixed one", func(t *testing.T) {
		mock := NewMockDetector()
		fixed := BoxCandidate(0, 0, 50, 50)
		mock.SetCandidate(fixed)
		mock.Queue(nil, BoxCandidate(1, 1, 10, 10))

		c, _ := mock.Detect(nil)
		assert.Nil(t, c)
		c, _ = mock.Detect(nil)
		assert.Equal(t, 100, c.Area)
		c, _ = mock.Detect(nil)
		assert.Same(t, fixed, c)
		assert.Equal(t, 3, mock.Calls())
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()
		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		c, err := mock.Detect(nil)
		assert.Equal(t, expectedErr, err)
		assert.Nil(t, c)
	})

	t.Run("Close marks closed", func(t *testing.T) {
		mock := NewMockDetector()
		assert.NoError(t, mock.Close())
		assert.True(t, mock.Closed())
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
	})
}
