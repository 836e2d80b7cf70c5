package detector

import (
	"errors"
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/servotrack/internal/config"
)

// ColourDetector finds the largest blob inside a union of HSV ranges.
type ColourDetector struct {
	ranges    []config.HSVRange
	minArea   int
	openIter  int
	closeIter int
	kernel    gocv.Mat
	hsv       gocv.Mat
	mask      gocv.Mat
	part      gocv.Mat
}

// NewColourDetector creates a colour detector for the active classes in cfg.
func NewColourDetector(cfg config.ColourConfig, minArea int) (*ColourDetector, error) {
	ranges := cfg.Ranges()
	if len(ranges) == 0 {
		return nil, errors.New("colour detector needs at least one active HSV range")
	}

	k := cfg.KernelSize
	if k.W <= 0 || k.H <= 0 {
		k = config.Size{W: 1, H: 1}
	}

	return &ColourDetector{
		ranges:    ranges,
		minArea:   minArea,
		openIter:  cfg.OpenIterations,
		closeIter: cfg.CloseIterations,
		kernel:    gocv.GetStructuringElement(gocv.MorphRect, image.Pt(k.W, k.H)),
		hsv:       gocv.NewMat(),
		mask:      gocv.NewMat(),
		part:      gocv.NewMat(),
	}, nil
}

// Name returns the mode tag.
func (d *ColourDetector) Name() string { return string(config.ModeColour) }

// Detect thresholds the frame and returns the largest qualifying contour.
//
// Steps:
// 1. BGR to HSV
// 2. OR together InRange masks of every range (red needs two, it wraps at 180)
// 3. Open to drop speckles, then close to fill gaps
// 4. Largest external contour, rejected below minArea
func (d *ColourDetector) Detect(frame *gocv.Mat) (*Candidate, error) {
	if err := checkFrame(frame); err != nil {
		return nil, err
	}

	gocv.CvtColor(*frame, &d.hsv, gocv.ColorBGRToHSV)

	for i, r := range d.ranges {
		lo := gocv.NewScalar(r.Lower[0], r.Lower[1], r.Lower[2], 0)
		hi := gocv.NewScalar(r.Upper[0], r.Upper[1], r.Upper[2], 0)
		if i == 0 {
			gocv.InRangeWithScalar(d.hsv, lo, hi, &d.mask)
			continue
		}
		gocv.InRangeWithScalar(d.hsv, lo, hi, &d.part)
		gocv.BitwiseOr(d.mask, d.part, &d.mask)
	}

	for i := 0; i < d.openIter; i++ {
		gocv.MorphologyEx(d.mask, &d.mask, gocv.MorphOpen, d.kernel)
	}
	for i := 0; i < d.closeIter; i++ {
		gocv.MorphologyEx(d.mask, &d.mask, gocv.MorphClose, d.kernel)
	}

	contours := gocv.FindContours(d.mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	best, bestArea := -1, 0.0
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if best < 0 || area > bestArea {
			best, bestArea = i, area
		}
	}

	if best < 0 || bestArea < float64(d.minArea) {
		return nil, nil
	}

	return &Candidate{
		Rect:       gocv.BoundingRect(contours.At(best)),
		Area:       int(bestArea),
		Label:      "colour",
		Confidence: 1,
	}, nil
}

// Mask returns the cleaned binary mask from the last Detect call.
func (d *ColourDetector) Mask() *gocv.Mat {
	return &d.mask
}

// Close releases the working Mats.
func (d *ColourDetector) Close() error {
	d.kernel.Close()
	d.hsv.Close()
	d.mask.Close()
	d.part.Close()
	return nil
}
