// internal/core/image.go
// Frame type with explicit Mat ownership
package core

import (
	"image"
	"time"

	"gocv.io/x/gocv"
)

// Frame is one decoded BGR image captured at a point in time. A Frame owns its
// Mat: whoever holds the pointer must Close it, and anything crossing a
// goroutine boundary must be a Clone.
type Frame struct {
	Mat        gocv.Mat
	Seq        uint64
	CapturedAt time.Time

	closed bool
}

// NewFrame wraps mat, taking ownership of it.
func NewFrame(mat gocv.Mat, seq uint64) *Frame {
	return &Frame{
		Mat:        mat,
		Seq:        seq,
		CapturedAt: time.Now(),
	}
}

// Empty reports whether the frame carries no pixels. Nil and closed frames are
// empty.
func (f *Frame) Empty() bool {
	return f == nil || f.closed || f.Mat.Empty()
}

// Size returns the frame dimensions, zero for an empty frame.
func (f *Frame) Size() image.Point {
	if f.Empty() {
		return image.Point{}
	}
	return image.Pt(f.Mat.Cols(), f.Mat.Rows())
}

// Clone returns a deep copy. Cloning a nil or closed frame returns nil.
func (f *Frame) Clone() *Frame {
	if f == nil || f.closed {
		return nil
	}
	return &Frame{
		Mat:        f.Mat.Clone(),
		Seq:        f.Seq,
		CapturedAt: f.CapturedAt,
	}
}

// Close releases the Mat. Safe on nil and on frames already closed.
func (f *Frame) Close() error {
	if f == nil || f.closed {
		return nil
	}
	f.closed = true
	return f.Mat.Close()
}
