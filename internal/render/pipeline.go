// Package render turns captured frames into annotated preview images and
// answers face-count queries for the snapshot gate.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"webcam-face-snapshot/internal/core"
	"webcam-face-snapshot/internal/detect"
	"webcam-face-snapshot/internal/metrics"
)

var errNoFrame = errors.New("no frame to process")

var (
	FaceColor = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	EyeColor  = color.RGBA{R: 0, G: 0, B: 255, A: 0}
)

const boxThickness = 1

// Options selects what a Render pass does.
type Options struct {
	DetectEyes bool
	DrawBoxes  bool
	Downscale  bool
}

// Config holds the fixed output sizes.
type Config struct {
	PreviewSize image.Point
	ThumbSize   image.Point
}

// AnnotatedImage is the result of one Render pass. Mat is owned by the
// AnnotatedImage; Placeholder marks the 1×1 image returned after a failure.
type AnnotatedImage struct {
	Mat         gocv.Mat
	Faces       []detect.Region
	Eyes        []detect.Region
	Placeholder bool
	Err         error
}

func (a *AnnotatedImage) Close() error {
	if a == nil {
		return nil
	}
	return a.Mat.Close()
}

// ToImage converts the raster for display.
func (a *AnnotatedImage) ToImage() (image.Image, error) {
	return a.Mat.ToImage()
}

// Pipeline runs detection and drawing. It holds no per-call state; the pool
// only recycles gray working buffers.
type Pipeline struct {
	detector *detect.Detector
	cfg      Config
	pool     *core.MatPool
	notifier core.Notifier
	logger   logrus.FieldLogger
	recorder *metrics.Recorder
}

func NewPipeline(detector *detect.Detector, cfg Config, pool *core.MatPool, notifier core.Notifier, logger logrus.FieldLogger, recorder *metrics.Recorder) *Pipeline {
	if pool == nil {
		pool = core.NewMatPool(2)
	}
	if notifier == nil {
		notifier = core.LogNotifier{Logger: logger}
	}
	return &Pipeline{
		detector: detector,
		cfg:      cfg,
		pool:     pool,
		notifier: notifier,
		logger:   logger,
		recorder: recorder,
	}
}

// Render produces the displayable image for frame. Detection runs only when
// boxes are drawn. Downscaling is applied to the working copy before
// detection so rectangles match the returned raster. Any failure yields a 1×1
// placeholder and a face-search notification.
func (p *Pipeline) Render(frame *core.Frame, opts Options) *AnnotatedImage {
	start := time.Now()
	out, err := p.render(frame, opts)
	if err != nil {
		out.Close()
		out = placeholder(err)
		p.logger.WithError(err).Error("Render failed")
		p.notifier.Notify(core.Failure{Category: core.CategoryFaceSearch, Err: err})
	}
	p.recorder.RenderDone(time.Since(start), len(out.Faces), err != nil)
	return out
}

func (p *Pipeline) render(frame *core.Frame, opts Options) (out *AnnotatedImage, err error) {
	out = &AnnotatedImage{Mat: gocv.NewMat(), Faces: []detect.Region{}, Eyes: []detect.Region{}}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panic: %v", r)
		}
	}()

	if frame.Empty() {
		return out, errNoFrame
	}

	if opts.Downscale && p.cfg.PreviewSize.X > 0 && p.cfg.PreviewSize.Y > 0 {
		gocv.Resize(frame.Mat, &out.Mat, p.cfg.PreviewSize, 0, 0, gocv.InterpolationLinear)
	} else {
		frame.Mat.CopyTo(&out.Mat)
	}
	if out.Mat.Empty() {
		return out, errors.New("working copy is empty")
	}

	if !opts.DrawBoxes {
		return out, nil
	}

	gray, release, err := p.grayOf(out.Mat)
	if err != nil {
		return out, err
	}
	defer release()

	out.Faces = p.detector.DetectFaces(gray)
	if opts.DetectEyes && len(out.Faces) > 0 {
		out.Eyes, err = p.detector.DetectEyes(out.Faces, gray)
		if err != nil {
			return out, err
		}
	}

	drawRegions(&out.Mat, out.Faces, FaceColor)
	drawRegions(&out.Mat, out.Eyes, EyeColor)
	return out, nil
}

// grayOf converts src into a pooled single-channel buffer.
func (p *Pipeline) grayOf(src gocv.Mat) (*detect.GrayBuffer, func(), error) {
	mat := p.pool.Get(src.Rows(), src.Cols(), gocv.MatTypeCV8UC1)
	release := func() { p.pool.Put(mat) }

	switch src.Channels() {
	case 1:
		src.CopyTo(&mat)
	case 4:
		gocv.CvtColor(src, &mat, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(src, &mat, gocv.ColorBGRToGray)
	}

	buf, err := detect.NewGrayBuffer(mat)
	if err != nil {
		release()
		return nil, func() {}, err
	}
	return buf, release, nil
}

func drawRegions(dst *gocv.Mat, regions []detect.Region, c color.RGBA) {
	for _, r := range regions {
		gocv.Rectangle(dst, r.Rect, c, boxThickness)
	}
}

func placeholder(err error) *AnnotatedImage {
	return &AnnotatedImage{
		Mat:         gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 1, 1, gocv.MatTypeCV8UC3),
		Faces:       []detect.Region{},
		Eyes:        []detect.Region{},
		Placeholder: true,
		Err:         err,
	}
}

// FaceCount runs face detection alone at full resolution.
func (p *Pipeline) FaceCount(frame *core.Frame) (int, error) {
	faces, err := p.faces(frame)
	return len(faces), err
}

func (p *Pipeline) faces(frame *core.Frame) (faces []detect.Region, err error) {
	defer func() {
		if r := recover(); r != nil {
			faces, err = nil, fmt.Errorf("face search panic: %v", r)
		}
	}()

	if frame.Empty() {
		return nil, errNoFrame
	}
	gray, release, err := p.grayOf(frame.Mat)
	if err != nil {
		return nil, err
	}
	defer release()
	return p.detector.DetectFaces(gray), nil
}

// Decision is the snapshot gate: a capture is acceptable with at most one face.
type Decision struct {
	Faces      int
	Acceptable bool
	Err        error
}

func (d Decision) String() string {
	switch {
	case d.Err != nil:
		return "face search failed"
	case d.Acceptable:
		return fmt.Sprintf("%d face(s) found", d.Faces)
	default:
		return fmt.Sprintf("%d faces found, only one person may be in the picture", d.Faces)
	}
}

func decide(faces int, err error) Decision {
	return Decision{Faces: faces, Acceptable: err == nil && faces <= 1, Err: err}
}

// Decide counts faces in frame and evaluates the gate.
func (p *Pipeline) Decide(frame *core.Frame) Decision {
	return decide(p.FaceCount(frame))
}

// Snapshot is a captured still awaiting confirmation.
type Snapshot struct {
	Image    gocv.Mat
	Faces    []detect.Region
	Decision Decision
	Quality  metrics.Quality
	TakenAt  time.Time

	closed bool
}

// Empty reports whether the snapshot holds no picture. Nil and closed
// snapshots are empty.
func (s *Snapshot) Empty() bool {
	return s == nil || s.closed || s.Image.Empty()
}

// Close releases the picture. Safe on nil and repeated calls.
func (s *Snapshot) Close() error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true
	return s.Image.Close()
}

// Capture clones frame and evaluates the gate. When more than one face is
// present the faces are outlined so the user can see why it was refused.
func (p *Pipeline) Capture(frame *core.Frame) *Snapshot {
	snap := &Snapshot{TakenAt: time.Now()}
	if frame.Empty() {
		snap.Image = gocv.NewMat()
		snap.Decision = decide(0, errNoFrame)
		p.notifier.Notify(core.Failure{Category: core.CategoryFaceSearch, Err: errNoFrame})
		return snap
	}

	snap.Image = frame.Mat.Clone()
	if q, err := metrics.Measure(frame.Mat); err == nil {
		snap.Quality = q
	} else {
		p.logger.WithError(err).Warn("Measuring snapshot quality")
	}
	faces, err := p.faces(frame)
	snap.Faces = faces
	snap.Decision = decide(len(faces), err)

	if err != nil {
		p.logger.WithError(err).Error("Face search on snapshot failed")
		p.notifier.Notify(core.Failure{Category: core.CategoryFaceSearch, Err: err})
		return snap
	}
	if !snap.Decision.Acceptable {
		drawRegions(&snap.Image, faces, EyeColor)
	}

	p.logger.WithFields(logrus.Fields{
		"faces":      len(faces),
		"acceptable": snap.Decision.Acceptable,
		"sharpness":  snap.Quality.Sharpness,
	}).Info("Snapshot taken")
	return snap
}

// Thumbnails renders the grayscale and binary side previews at ThumbSize.
// Both returned Mats belong to the caller.
func (p *Pipeline) Thumbnails(frame *core.Frame, threshold float32) (gray, binary gocv.Mat, err error) {
	gray, binary = gocv.NewMat(), gocv.NewMat()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("thumbnail panic: %v", r)
		}
		if err != nil {
			gray.Close()
			binary.Close()
		}
	}()

	if frame.Empty() {
		return gray, binary, errNoFrame
	}

	small := gocv.NewMat()
	defer small.Close()
	if p.cfg.ThumbSize.X > 0 && p.cfg.ThumbSize.Y > 0 {
		gocv.Resize(frame.Mat, &small, p.cfg.ThumbSize, 0, 0, gocv.InterpolationLinear)
	} else {
		frame.Mat.CopyTo(&small)
	}

	if small.Channels() == 1 {
		small.CopyTo(&gray)
	} else {
		gocv.CvtColor(small, &gray, gocv.ColorBGRToGray)
	}
	gocv.Threshold(gray, &binary, threshold, 255, gocv.ThresholdBinary)
	return gray, binary, nil
}

// Feed is what Watch consumes; *capture.Source implements it.
type Feed interface {
	Changed() <-chan struct{}
	CurrentFrame() *core.Frame
}

// Watch renders the latest frame on every change notification until ctx
// ends. fn owns the AnnotatedImage it receives. Frames that arrive while fn
// runs collapse into one notification.
func (p *Pipeline) Watch(ctx context.Context, feed Feed, opts Options, fn func(*AnnotatedImage)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-feed.Changed():
		}

		frame := feed.CurrentFrame()
		if frame == nil {
			continue
		}
		out := p.Render(frame, opts)
		frame.Close()
		fn(out)
	}
}
