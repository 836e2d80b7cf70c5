package detector

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/servotrack/internal/config"
)

// hogFinalThreshold is OpenCV's default grouping threshold.
const hogFinalThreshold = 2.0

// PersonDetector finds people with OpenCV's pretrained HOG+SVM detector.
type PersonDetector struct {
	cfg     config.PersonConfig
	minArea int
	hog     gocv.HOGDescriptor
	small   gocv.Mat
}

// NewPersonDetector creates a HOG person detector.
func NewPersonDetector(cfg config.PersonConfig, minArea int) *PersonDetector {
	hog := gocv.NewHOGDescriptor()
	hog.SetSVMDetector(gocv.HOGDefaultPeopleDetector())

	return &PersonDetector{
		cfg:     cfg,
		minArea: minArea,
		hog:     hog,
		small:   gocv.NewMat(),
	}
}

// Name returns the mode tag.
func (d *PersonDetector) Name() string { return string(config.ModePerson) }

// Detect returns the largest person whose SVM weight clears MinWeight.
// The weight cut happens inside the classifier as its hit threshold, so the
// reported confidence is that lower bound.
func (d *PersonDetector) Detect(frame *gocv.Mat) (*Candidate, error) {
	if err := checkFrame(frame); err != nil {
		return nil, err
	}

	src := *frame
	scale := downscaleFactor(frame.Cols(), d.cfg.MaxWidth)
	if scale < 1 {
		size := image.Pt(d.cfg.MaxWidth, int(float64(frame.Rows())*scale+0.5))
		gocv.Resize(*frame, &d.small, size, 0, 0, gocv.InterpolationLinear)
		src = d.small
	}

	rects := d.hog.DetectMultiScaleWithParams(
		src,
		d.cfg.MinWeight,
		image.Pt(d.cfg.WinStride.W, d.cfg.WinStride.H),
		image.Pt(d.cfg.Padding.W, d.cfg.Padding.H),
		d.cfg.Scale,
		hogFinalThreshold,
		false,
	)

	for i := range rects {
		rects[i] = rescale(rects[i], scale)
	}

	best, area, ok := largest(rects, d.minArea)
	if !ok {
		return nil, nil
	}

	return &Candidate{
		Rect:       best,
		Area:       area,
		Label:      "person",
		Confidence: d.cfg.MinWeight,
	}, nil
}

// Close releases the HOG descriptor.
func (d *PersonDetector) Close() error {
	d.small.Close()
	return d.hog.Close()
}

// downscaleFactor returns the factor that brings width down to maxWidth,
// or 1 when no downscale is needed.
func downscaleFactor(width, maxWidth int) float64 {
	if maxWidth <= 0 || width <= maxWidth {
		return 1
	}
	return float64(maxWidth) / float64(width)
}

// rescale maps a rectangle found on a frame scaled by factor back to the
// original frame's coordinates.
func rescale(r image.Rectangle, factor float64) image.Rectangle {
	if factor == 1 || factor <= 0 {
		return r
	}
	inv := 1 / factor
	return image.Rect(
		int(float64(r.Min.X)*inv+0.5),
		int(float64(r.Min.Y)*inv+0.5),
		int(float64(r.Max.X)*inv+0.5),
		int(float64(r.Max.Y)*inv+0.5),
	)
}
