package detect

import (
	"fmt"
	"image"

	"github.com/sirupsen/logrus"
)

// Detector finds faces, and eyes inside faces, with two Haar cascades. The
// cascades are read-only after construction so one Detector may serve many
// goroutines, as long as each passes its own GrayBuffer.
type Detector struct {
	face   Cascade
	eye    Cascade
	params Params
	status Status
	logger logrus.FieldLogger
}

// NewDetector builds a detector from already loaded cascades. Either may be
// nil, which makes the corresponding search return nothing.
func NewDetector(face, eye Cascade, params Params, logger logrus.FieldLogger) *Detector {
	d := &Detector{
		face:   face,
		eye:    eye,
		params: params,
		logger: logger,
	}
	d.status.Face.Loaded = face != nil
	d.status.Eye.Loaded = eye != nil
	if face == nil {
		d.status.Face.Err = ErrCascadeUnavailable
	}
	if eye == nil {
		d.status.Eye.Err = ErrCascadeUnavailable
	}
	return d
}

// Load reads both cascade files. A file that cannot be loaded leaves that
// cascade unavailable instead of failing; Status tells which one.
func Load(facePath, eyePath string, logger logrus.FieldLogger) *Detector {
	face, faceErr := LoadCascade(facePath)
	eye, eyeErr := LoadCascade(eyePath)

	d := NewDetector(face, eye, DefaultParams(), logger)
	d.status.Face.Path = facePath
	d.status.Eye.Path = eyePath
	if faceErr != nil {
		d.status.Face.Err = fmt.Errorf("%w: %v", ErrCascadeUnavailable, faceErr)
		logger.WithError(faceErr).WithField("path", facePath).Warn("Face detector unavailable")
	}
	if eyeErr != nil {
		d.status.Eye.Err = fmt.Errorf("%w: %v", ErrCascadeUnavailable, eyeErr)
		logger.WithError(eyeErr).WithField("path", eyePath).Warn("Eye detector unavailable")
	}

	logger.WithField("status", d.status.String()).Info("Detector initialized")
	return d
}

func (d *Detector) Status() Status {
	return d.status
}

// DetectFaces runs the face cascade over whatever the buffer currently
// exposes.
func (d *Detector) DetectFaces(gray *GrayBuffer) []Region {
	if d.face == nil || gray == nil {
		return []Region{}
	}

	view, release := gray.view()
	defer release()

	rects := d.face.DetectMultiScaleWithParams(view, d.params.ScaleFactor, d.params.MinNeighbors, 0,
		d.params.MinSize, d.params.MaxSize)
	return tag(KindFace, rects, gray.ROI().Min)
}

// DetectEyes searches each face rectangle for eyes and returns them in full
// frame coordinates. The buffer's ROI is cleared after every face, also when
// the search for that face fails; the first failure stops the loop.
func (d *Detector) DetectEyes(faces []Region, gray *GrayBuffer) ([]Region, error) {
	eyes := []Region{}
	if d.eye == nil || gray == nil {
		return eyes, nil
	}

	for _, f := range faces {
		found, err := d.eyesInFace(f.Rect, gray)
		if err != nil {
			return eyes, err
		}
		eyes = append(eyes, found...)
	}
	return eyes, nil
}

func (d *Detector) eyesInFace(face image.Rectangle, gray *GrayBuffer) (found []Region, err error) {
	face = face.Intersect(gray.Bounds())
	if face.Empty() {
		return nil, nil
	}

	gray.SetROI(face)
	defer gray.ClearROI()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("eye search in %v: %v", face, r)
		}
	}()

	view, release := gray.view()
	defer release()

	rects := d.eye.DetectMultiScaleWithParams(view, d.params.ScaleFactor, d.params.MinNeighbors, 0,
		d.params.MinSize, d.params.MaxSize)
	return tag(KindEye, rects, face.Min), nil
}

// Close releases the cascades.
func (d *Detector) Close() {
	if d.face != nil {
		d.face.Close()
	}
	if d.eye != nil {
		d.eye.Close()
	}
}
