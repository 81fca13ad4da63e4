package detect

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// GrayBuffer wraps a single-channel image with a region of interest. While a
// ROI is set every detection on the buffer only sees that sub-rectangle, so the
// ROI must be cleared before anything else reads the buffer. A GrayBuffer is
// not safe for concurrent use and does not own its Mat.
type GrayBuffer struct {
	mat gocv.Mat
	roi image.Rectangle
}

// NewGrayBuffer wraps gray, which must be a single-channel Mat.
func NewGrayBuffer(gray gocv.Mat) (*GrayBuffer, error) {
	if gray.Empty() {
		return nil, fmt.Errorf("gray buffer: empty image")
	}
	if gray.Channels() != 1 {
		return nil, fmt.Errorf("gray buffer: expected 1 channel, got %d", gray.Channels())
	}
	return &GrayBuffer{mat: gray}, nil
}

// Bounds is the full image rectangle.
func (b *GrayBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.mat.Cols(), b.mat.Rows())
}

// SetROI restricts the buffer to r clipped to the image bounds.
func (b *GrayBuffer) SetROI(r image.Rectangle) {
	b.roi = r.Intersect(b.Bounds())
}

// ClearROI restores the unrestricted view.
func (b *GrayBuffer) ClearROI() {
	b.roi = image.Rectangle{}
}

// ROI returns the rectangle detections currently see.
func (b *GrayBuffer) ROI() image.Rectangle {
	if b.roi.Empty() {
		return b.Bounds()
	}
	return b.roi
}

// Restricted reports whether a ROI is set.
func (b *GrayBuffer) Restricted() bool {
	return !b.roi.Empty()
}

// view returns the Mat detections should run on and a release func for it.
func (b *GrayBuffer) view() (gocv.Mat, func()) {
	if b.roi.Empty() {
		return b.mat, func() {}
	}
	sub := b.mat.Region(b.roi)
	return sub, func() { sub.Close() }
}
