package detector

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/ayusman/servotrack/internal/config"
)

// DefaultCascade is the OpenCV frontal face cascade file name.
const DefaultCascade = "haarcascade_frontalface_default.xml"

// ErrCascadeNotFound is returned when no cascade file could be located.
var ErrCascadeNotFound = errors.New("haar cascade not found")

// cascadeDirs are searched in order when no explicit path is configured.
var cascadeDirs = []string{
	"/usr/share/opencv4/haarcascades",
	"/usr/local/share/opencv4/haarcascades",
	"/usr/share/opencv/haarcascades",
	"/usr/local/share/opencv/haarcascades",
	"/opt/homebrew/share/opencv4/haarcascades",
	"data",
}

// FindCascade returns the path of name in $OPENCV_DATA_DIR or a well-known
// OpenCV data directory, or "" when it is nowhere to be found.
func FindCascade(name string) string {
	dirs := cascadeDirs
	if env := os.Getenv("OPENCV_DATA_DIR"); env != "" {
		dirs = append([]string{env, filepath.Join(env, "haarcascades")}, dirs...)
	}
	for _, dir := range dirs {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// FaceDetector finds faces with a Haar cascade classifier.
type FaceDetector struct {
	cfg     config.FaceConfig
	cascade gocv.CascadeClassifier
	gray    gocv.Mat
}

// NewFaceDetector loads the configured cascade. It fails if the file cannot
// be found or parsed.
func NewFaceDetector(cfg config.FaceConfig) (*FaceDetector, error) {
	path := cfg.CascadePath
	if path == "" {
		path = FindCascade(DefaultCascade)
		if path == "" {
			return nil, fmt.Errorf("%w: %s (set face.cascade_path or OPENCV_DATA_DIR)", ErrCascadeNotFound, DefaultCascade)
		}
	}

	cascade := gocv.NewCascadeClassifier()
	if !cascade.Load(path) {
		cascade.Close()
		return nil, fmt.Errorf("load haar cascade %s", path)
	}

	return &FaceDetector{
		cfg:     cfg,
		cascade: cascade,
		gray:    gocv.NewMat(),
	}, nil
}

// Name returns the mode tag.
func (d *FaceDetector) Name() string { return string(config.ModeFace) }

// Detect returns the largest face in the frame.
func (d *FaceDetector) Detect(frame *gocv.Mat) (*Candidate, error) {
	if err := checkFrame(frame); err != nil {
		return nil, err
	}

	gocv.CvtColor(*frame, &d.gray, gocv.ColorBGRToGray)
	if d.cfg.Equalize {
		gocv.EqualizeHist(d.gray, &d.gray)
	}

	rects := d.cascade.DetectMultiScaleWithParams(
		d.gray,
		d.cfg.ScaleFactor,
		d.cfg.MinNeighbors,
		0,
		image.Pt(d.cfg.MinSize.W, d.cfg.MinSize.H),
		image.Pt(0, 0),
	)

	best, area, ok := largest(rects, 0)
	if !ok {
		return nil, nil
	}

	return &Candidate{
		Rect:       best,
		Area:       area,
		Label:      "face",
		Confidence: 1,
	}, nil
}

// Close releases the classifier.
func (d *FaceDetector) Close() error {
	d.gray.Close()
	return d.cascade.Close()
}
