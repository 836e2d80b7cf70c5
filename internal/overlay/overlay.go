// Package overlay draws tracking annotations onto BGR frames. Drawing is
// read-only with respect to tracking state.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/servotrack/internal/tracking"
)

var (
	ColorCrosshair = color.RGBA{R: 255, G: 255, B: 255}
	ColorBox       = color.RGBA{G: 255}
	ColorRawCenter = color.RGBA{B: 255}
	ColorCenter    = color.RGBA{R: 255, G: 255}
	ColorText      = color.RGBA{R: 255, G: 255, B: 255}
)

const (
	crosshairSize = 20
	lineThickness = 2
	markerRadius  = 6
	textScale     = 0.6
	lineHeight    = 22
)

// Info is the non-geometric state shown in the status block.
type Info struct {
	Mode        string
	Servo       string
	DistanceCM  float64
	HasDistance bool
	FPS         float64
}

// Lines formats the status block, one entry per row.
func (i Info) Lines() []string {
	lines := []string{"mode: " + i.Mode}
	if i.HasDistance {
		lines = append(lines, fmt.Sprintf("dist: %.1f cm", i.DistanceCM))
	} else {
		lines = append(lines, "dist: --")
	}
	if i.Servo != "" {
		lines = append(lines, "servo: "+i.Servo)
	}
	if i.FPS > 0 {
		lines = append(lines, fmt.Sprintf("fps: %.1f", i.FPS))
	}
	return lines
}

// Draw renders the crosshair, the target annotations when r.Found, and the
// status text.
func Draw(frame *gocv.Mat, r tracking.Result, info Info) {
	if frame == nil || frame.Empty() {
		return
	}
	Crosshair(frame)
	Target(frame, r)
	Status(frame, info.Lines())
}

// Crosshair marks the frame center.
func Crosshair(frame *gocv.Mat) {
	c := tracking.FrameCenter(frame.Cols(), frame.Rows())
	half := crosshairSize / 2
	gocv.Line(frame, image.Pt(c.X-half, c.Y), image.Pt(c.X+half, c.Y), ColorCrosshair, lineThickness)
	gocv.Line(frame, image.Pt(c.X, c.Y-half), image.Pt(c.X, c.Y+half), ColorCrosshair, lineThickness)
}

// Target draws the bounding box, the raw center as a filled dot and the
// smoothed center as a ring. Nothing is drawn when the target was not found.
func Target(frame *gocv.Mat, r tracking.Result) {
	if !r.Found || r.BBox.Empty() {
		return
	}

	gocv.Rectangle(frame, r.BBox, ColorBox, lineThickness)
	gocv.Circle(frame, r.RawCenter.Round(), markerRadius, ColorRawCenter, -1)
	gocv.Circle(frame, r.Center.Round(), markerRadius+3, ColorCenter, 1)

	label := r.Label
	if r.Confidence > 0 {
		label = fmt.Sprintf("%s %.2f", r.Label, r.Confidence)
	}
	if label != "" {
		org := r.BBox.Min.Add(image.Pt(0, -6))
		if org.Y < lineHeight {
			org.Y = r.BBox.Max.Y + lineHeight
		}
		gocv.PutText(frame, label, org, gocv.FontHersheySimplex, textScale, ColorBox, 1)
	}
}

// Status writes lines in the top-left corner.
func Status(frame *gocv.Mat, lines []string) {
	for i, line := range lines {
		org := image.Pt(10, lineHeight*(i+1))
		gocv.PutText(frame, line, org, gocv.FontHersheySimplex, textScale, ColorText, 1)
	}
}
