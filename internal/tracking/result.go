// Package tracking turns detector output into a smoothed, deadbanded pixel
// error relative to the frame center.
package tracking

import (
	"image"
	"math"
)

// Point is a sub-pixel image position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Round returns the nearest integer pixel.
func (p Point) Round() image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

// Result is the per-frame tracking record handed to control, overlay and
// telemetry. Found implies BBox, Center and Error are meaningful and
// Area >= the configured minimum.
type Result struct {
	Found      bool            `json:"found"`
	BBox       image.Rectangle `json:"bbox"`
	Center     Point           `json:"center"`
	RawCenter  Point           `json:"raw_center"`
	Error      image.Point     `json:"error"`
	Area       int             `json:"area"`
	Label      string          `json:"label,omitempty"`
	Confidence float64         `json:"confidence,omitempty"`
}

// FrameCenter returns the integer center of a w x h frame.
func FrameCenter(w, h int) image.Point {
	return image.Pt(w/2, h/2)
}
