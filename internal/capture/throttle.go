package capture

import (
	"time"

	"gocv.io/x/gocv"
)

// Throttled spaces ReadFrame calls at least 1/FPS apart. It paces sources
// that return instantly, such as MockCamera replays.
type Throttled struct {
	Camera
	next  time.Time
	now   func() time.Time
	sleep func(time.Duration)
}

// NewThrottled wraps cam.
func NewThrottled(cam Camera) *Throttled {
	return &Throttled{Camera: cam, now: time.Now, sleep: time.Sleep}
}

// ReadFrame waits out the rest of the frame interval, then reads.
func (t *Throttled) ReadFrame() (*gocv.Mat, error) {
	fps := t.FPS()
	if fps <= 0 {
		fps = DefaultFPS
	}
	interval := time.Second / time.Duration(fps)

	now := t.now()
	if wait := t.next.Sub(now); wait > 0 {
		t.sleep(wait)
		now = now.Add(wait)
	}
	t.next = now.Add(interval)

	return t.Camera.ReadFrame()
}
