package detect

import (
	"errors"
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"
)

// ErrCascadeUnavailable marks a detector whose model file was not loaded.
var ErrCascadeUnavailable = errors.New("cascade classifier not loaded")

// Cascade is the part of gocv.CascadeClassifier the detector uses.
// *gocv.CascadeClassifier satisfies it.
type Cascade interface {
	DetectMultiScaleWithParams(img gocv.Mat, scale float64, minNeighbors, flags int, minSize, maxSize image.Point) []image.Rectangle
	Close() error
}

// Params tunes DetectMultiScale.
type Params struct {
	ScaleFactor  float64
	MinNeighbors int
	MinSize      image.Point
	MaxSize      image.Point // zero means no cap
}

// DefaultParams is used for both faces and eyes.
func DefaultParams() Params {
	return Params{
		ScaleFactor:  1.1,
		MinNeighbors: 10,
		MinSize:      image.Pt(20, 20),
		MaxSize:      image.Point{},
	}
}

// LoadCascade reads a cascade XML file.
func LoadCascade(path string) (Cascade, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cascade file %s: %w", path, err)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load cascade classifier: %s", path)
	}
	return &classifier, nil
}

// Availability describes one cascade slot of a detector.
type Availability struct {
	Path   string
	Loaded bool
	Err    error
}

// Status reports which cascades a detector can use. A missing cascade is not
// fatal; the matching detections are simply always empty.
type Status struct {
	Face Availability
	Eye  Availability
}

// FaceReady reports whether face detection can return anything at all.
func (s Status) FaceReady() bool {
	return s.Face.Loaded
}

func (s Status) String() string {
	return fmt.Sprintf("face=%s eye=%s", s.Face.describe(), s.Eye.describe())
}

func (a Availability) describe() string {
	if a.Loaded {
		return "loaded"
	}
	if a.Err != nil {
		return "unavailable (" + a.Err.Error() + ")"
	}
	return "unavailable"
}
