package render

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"webcam-face-snapshot/internal/core"
	"webcam-face-snapshot/internal/detect"
	"webcam-face-snapshot/internal/metrics"
)

type fakeCascade struct {
	mu     sync.Mutex
	rects  []image.Rectangle
	panics bool
	seen   []image.Point
	calls  int
}

func (c *fakeCascade) DetectMultiScaleWithParams(img gocv.Mat, scale float64, minNeighbors, flags int, minSize, maxSize image.Point) []image.Rectangle {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.seen = append(c.seen, image.Pt(img.Cols(), img.Rows()))
	if c.panics {
		panic("cascade fault")
	}
	return c.rects
}

func (c *fakeCascade) Close() error { return nil }

type fixture struct {
	pipeline *Pipeline
	face     *fakeCascade
	eye      *fakeCascade
	pool     *core.MatPool
	recorder *metrics.Recorder

	mu       sync.Mutex
	failures []core.Failure
}

func newFixture(t *testing.T, faces ...image.Rectangle) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	f := &fixture{
		face:     &fakeCascade{rects: faces},
		eye:      &fakeCascade{},
		pool:     core.NewMatPool(2),
		recorder: metrics.NewRecorder(),
	}
	det := detect.NewDetector(f.face, f.eye, detect.DefaultParams(), logger)
	notify := core.NotifierFunc(func(fl core.Failure) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.failures = append(f.failures, fl)
	})
	cfg := Config{PreviewSize: image.Pt(50, 25), ThumbSize: image.Pt(300, 200)}
	f.pipeline = NewPipeline(det, cfg, f.pool, notify, logger, f.recorder)
	t.Cleanup(f.pool.Close)
	return f
}

func (f *fixture) notified() []core.Failure {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.Failure(nil), f.failures...)
}

func solidFrame(t *testing.T, rows, cols int, v float64) *core.Frame {
	t.Helper()
	frame := core.NewFrame(gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), rows, cols, gocv.MatTypeCV8UC3), 1)
	t.Cleanup(func() { frame.Close() })
	return frame
}

func TestRenderWithoutBoxesSkipsDetection(t *testing.T) {
	f := newFixture(t, image.Rect(10, 10, 30, 30))
	frame := solidFrame(t, 60, 60, 100)

	out := f.pipeline.Render(frame, Options{DetectEyes: true})
	defer out.Close()

	assert.False(t, out.Placeholder)
	assert.Empty(t, out.Faces)
	assert.Zero(t, f.face.calls)
	assert.Equal(t, 60, out.Mat.Cols())
}

func TestRenderAnnotationOnlyTouchesBoxes(t *testing.T) {
	box := image.Rect(10, 10, 30, 30)
	f := newFixture(t, box)
	frame := solidFrame(t, 60, 60, 100)

	plain := f.pipeline.Render(frame, Options{})
	defer plain.Close()
	boxed := f.pipeline.Render(frame, Options{DrawBoxes: true})
	defer boxed.Close()

	require.Len(t, boxed.Faces, 1)
	outer := image.Rect(box.Min.X-1, box.Min.Y-1, box.Max.X+2, box.Max.Y+2)
	inner := image.Rect(box.Min.X+2, box.Min.Y+2, box.Max.X-1, box.Max.Y-1)

	changed := 0
	for y := 0; y < 60; y++ {
		for x := 0; x < 60; x++ {
			a := plain.Mat.GetVecbAt(y, x)
			b := boxed.Mat.GetVecbAt(y, x)
			if a[0] == b[0] && a[1] == b[1] && a[2] == b[2] {
				continue
			}
			changed++
			p := image.Pt(x, y)
			assert.True(t, p.In(outer) && !p.In(inner), "pixel %v changed outside the box outline", p)
		}
	}
	assert.Positive(t, changed)

	// Faces are drawn red in BGR order.
	assert.Equal(t, gocv.Vecb{0, 0, 255}, boxed.Mat.GetVecbAt(box.Min.Y, box.Min.X))
}

func TestRenderDownscalesBeforeDetection(t *testing.T) {
	f := newFixture(t, image.Rect(5, 5, 20, 20))
	frame := solidFrame(t, 100, 200, 100)

	out := f.pipeline.Render(frame, Options{DrawBoxes: true, Downscale: true})
	defer out.Close()

	assert.Equal(t, 50, out.Mat.Cols())
	assert.Equal(t, 25, out.Mat.Rows())
	assert.Equal(t, []image.Point{image.Pt(50, 25)}, f.face.seen)
	assert.Equal(t, 1, f.pool.Idle())
}

func TestRenderDrawsEyes(t *testing.T) {
	f := newFixture(t, image.Rect(10, 10, 40, 40))
	f.eye.rects = []image.Rectangle{image.Rect(2, 2, 8, 8)}
	frame := solidFrame(t, 60, 60, 100)

	out := f.pipeline.Render(frame, Options{DrawBoxes: true, DetectEyes: true})
	defer out.Close()

	require.Len(t, out.Eyes, 1)
	assert.Equal(t, image.Rect(12, 12, 18, 18), out.Eyes[0].Rect)
	assert.Equal(t, gocv.Vecb{255, 0, 0}, out.Mat.GetVecbAt(12, 12))
}

func TestRenderFailureYieldsPlaceholder(t *testing.T) {
	f := newFixture(t, image.Rect(10, 10, 40, 40))
	f.eye.panics = true
	frame := solidFrame(t, 60, 60, 100)

	out := f.pipeline.Render(frame, Options{DrawBoxes: true, DetectEyes: true})
	defer out.Close()

	assert.True(t, out.Placeholder)
	assert.Error(t, out.Err)
	assert.Equal(t, 1, out.Mat.Rows())
	assert.Equal(t, 1, out.Mat.Cols())
	assert.Equal(t, []byte{0, 0, 0}, out.Mat.ToBytes())

	got := f.notified()
	require.Len(t, got, 1)
	assert.Equal(t, core.CategoryFaceSearch, got[0].Category)
	assert.Equal(t, 1.0, f.recorder.Snapshot()[metrics.RenderFailures])
}

func TestRenderWithoutFrameDoesNotPanic(t *testing.T) {
	f := newFixture(t)

	out := f.pipeline.Render(nil, Options{DrawBoxes: true})
	defer out.Close()
	assert.True(t, out.Placeholder)

	closed := solidFrame(t, 10, 10, 0)
	closed.Close()
	again := f.pipeline.Render(closed, Options{})
	defer again.Close()
	assert.True(t, again.Placeholder)

	_, err := f.pipeline.FaceCount(nil)
	assert.Error(t, err)
}

func TestFaceCountAndDecision(t *testing.T) {
	f := newFixture(t, image.Rect(10, 10, 40, 40), image.Rect(60, 10, 90, 40))
	frame := solidFrame(t, 60, 120, 100)

	n, err := f.pipeline.FaceCount(frame)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, f.eye.calls)

	d := f.pipeline.Decide(frame)
	assert.False(t, d.Acceptable)
	assert.Equal(t, 2, d.Faces)
	assert.Contains(t, d.String(), "only one person")
}

func TestDecisionAcceptsAtMostOneFace(t *testing.T) {
	assert.True(t, decide(0, nil).Acceptable)
	assert.True(t, decide(1, nil).Acceptable)
	assert.False(t, decide(2, nil).Acceptable)
	assert.False(t, decide(0, errNoFrame).Acceptable)
}

func TestCaptureOutlinesFacesWhenAmbiguous(t *testing.T) {
	f := newFixture(t, image.Rect(10, 10, 40, 40), image.Rect(60, 10, 90, 40))
	frame := solidFrame(t, 60, 120, 100)

	snap := f.pipeline.Capture(frame)
	defer snap.Close()

	assert.False(t, snap.Decision.Acceptable)
	assert.Len(t, snap.Faces, 2)
	assert.Equal(t, gocv.Vecb{255, 0, 0}, snap.Image.GetVecbAt(10, 10))
	// The source frame is untouched.
	assert.Equal(t, gocv.Vecb{100, 100, 100}, frame.Mat.GetVecbAt(10, 10))
}

func TestCaptureSingleFaceKeepsImageClean(t *testing.T) {
	f := newFixture(t, image.Rect(10, 10, 40, 40))
	frame := solidFrame(t, 60, 60, 100)

	snap := f.pipeline.Capture(frame)
	defer snap.Close()

	assert.True(t, snap.Decision.Acceptable)
	assert.Equal(t, gocv.Vecb{100, 100, 100}, snap.Image.GetVecbAt(10, 10))
	assert.True(t, snap.Quality.Blurry())
	assert.Empty(t, f.notified())

	assert.False(t, snap.Empty())
	require.NoError(t, snap.Close())
	assert.True(t, snap.Empty())
	assert.NoError(t, snap.Close())
}

func TestCaptureFailureNotifies(t *testing.T) {
	f := newFixture(t)
	f.face.panics = true
	frame := solidFrame(t, 30, 30, 100)

	snap := f.pipeline.Capture(frame)
	defer snap.Close()

	assert.False(t, snap.Decision.Acceptable)
	assert.Error(t, snap.Decision.Err)
	require.Len(t, f.notified(), 1)
	assert.Equal(t, core.CategoryFaceSearch, f.notified()[0].Category)
}

func TestThumbnails(t *testing.T) {
	f := newFixture(t)
	frame := solidFrame(t, 120, 160, 100)

	gray, binary, err := f.pipeline.Thumbnails(frame, 70)
	require.NoError(t, err)
	defer gray.Close()
	defer binary.Close()

	assert.Equal(t, 1, gray.Channels())
	assert.Equal(t, 300, gray.Cols())
	assert.Equal(t, 200, gray.Rows())
	assert.Equal(t, uint8(100), gray.GetUCharAt(0, 0))
	assert.Equal(t, uint8(255), binary.GetUCharAt(100, 150))

	dark, darkBinary, err := f.pipeline.Thumbnails(frame, 200)
	require.NoError(t, err)
	defer dark.Close()
	defer darkBinary.Close()
	assert.Equal(t, uint8(0), darkBinary.GetUCharAt(100, 150))

	_, _, err = f.pipeline.Thumbnails(nil, 70)
	assert.Error(t, err)
}

type fakeFeed struct {
	changed chan struct{}
	frame   *core.Frame
}

func (f *fakeFeed) Changed() <-chan struct{} { return f.changed }

func (f *fakeFeed) CurrentFrame() *core.Frame { return f.frame.Clone() }

func TestWatchRendersEachNotification(t *testing.T) {
	f := newFixture(t, image.Rect(5, 5, 15, 15))
	feed := &fakeFeed{changed: make(chan struct{}, 1), frame: solidFrame(t, 40, 40, 100)}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	renders := 0
	feed.changed <- struct{}{}
	err := f.pipeline.Watch(ctx, feed, Options{DrawBoxes: true}, func(out *AnnotatedImage) {
		defer out.Close()
		renders++
		assert.Len(t, out.Faces, 1)
		if renders < 3 {
			feed.changed <- struct{}{}
			return
		}
		cancel()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, renders)
	assert.Equal(t, 3.0, f.recorder.Snapshot()[metrics.Renders])
}
