package capture

import (
	"image"
	"image/color"
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// TargetRed is the BGR colour of the default tracked class (#cb132b).
var TargetRed = color.RGBA{R: 203, G: 19, B: 43, A: 0}

// SyntheticFrame renders a w x h BGR frame filled with bg and a solid box in fg.
// An empty box draws nothing.
func SyntheticFrame(w, h int, bg, fg color.RGBA, box image.Rectangle) gocv.Mat {
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(bg.B), float64(bg.G), float64(bg.R), 0), h, w, gocv.MatTypeCV8UC3)
	if !box.Empty() {
		gocv.Rectangle(&mat, box, fg, -1)
	}
	return mat
}

// SyntheticOrbit returns n frames with a size x size target circling the
// frame center at the given radius. Used for demo runs without a camera.
func SyntheticOrbit(w, h, size, radius, n int) []*gocv.Mat {
	frames := make([]*gocv.Mat, 0, n)
	black := color.RGBA{}
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		cx := w/2 + int(float64(radius)*math.Cos(theta))
		cy := h/2 + int(float64(radius)*math.Sin(theta))
		box := image.Rect(cx-size/2, cy-size/2, cx+size/2, cy+size/2)
		mat := SyntheticFrame(w, h, black, TargetRed, box)
		frames = append(frames, &mat)
	}
	return frames
}

// CloseAll closes every frame in frames.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		if f != nil {
			f.Close()
		}
	}
}

// SyntheticCamera renders an orbiting target on demand, one frame per read.
type SyntheticCamera struct {
	mu      sync.Mutex
	w, h    int
	size    int
	radius  int
	steps   int
	i       int
	fps     int
	running bool
}

// NewSyntheticCamera creates a camera whose target completes one orbit
// every steps frames.
func NewSyntheticCamera(w, h, size, radius, steps int) *SyntheticCamera {
	if steps <= 0 {
		steps = 1
	}
	return &SyntheticCamera{w: w, h: h, size: size, radius: radius, steps: steps, fps: DefaultFPS}
}

func (c *SyntheticCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	return nil
}

func (c *SyntheticCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

func (c *SyntheticCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil, ErrCameraNotOpen
	}

	theta := 2 * math.Pi * float64(c.i) / float64(c.steps)
	c.i = (c.i + 1) % c.steps
	cx := c.w/2 + int(float64(c.radius)*math.Cos(theta))
	cy := c.h/2 + int(float64(c.radius)*math.Sin(theta))
	box := image.Rect(cx-c.size/2, cy-c.size/2, cx+c.size/2, cy+c.size/2)

	mat := SyntheticFrame(c.w, c.h, color.RGBA{}, TargetRed, box)
	return &mat, nil
}

func (c *SyntheticCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *SyntheticCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *SyntheticCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
