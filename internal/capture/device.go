// Package capture owns the video capture device and publishes its frames.
package capture

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"webcam-face-snapshot/internal/io"
)

// ErrEndOfStream is returned by finite devices once they have no more frames.
// It ends the session quietly instead of failing it.
var ErrEndOfStream = errors.New("end of stream")

// DeviceConfig is applied when a device is opened.
type DeviceConfig struct {
	Size           image.Point
	FlipHorizontal bool
}

// Device is one opened capture device.
type Device interface {
	// IsOpened reports whether the handle is usable.
	IsOpened() bool
	// Start prepares continuous streaming.
	Start() error
	// Read overwrites dst with the next frame.
	Read(dst *gocv.Mat) error
	Close() error
}

// Opener opens the device with the given zero-based index.
type Opener func(index int, cfg DeviceConfig) (Device, error)

// Webcam is a gocv VideoCapture device.
type Webcam struct {
	vc      *gocv.VideoCapture
	flip    bool
	scratch gocv.Mat
}

// OpenWebcam opens a platform camera and requests cfg.Size. Drivers may
// deliver another resolution without reporting it.
func OpenWebcam(index int, cfg DeviceConfig) (Device, error) {
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("opening capture device %d: %w", index, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("capture device %d did not open", index)
	}

	if cfg.Size.X > 0 && cfg.Size.Y > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Size.X))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Size.Y))
	}

	return &Webcam{
		vc:      vc,
		flip:    cfg.FlipHorizontal,
		scratch: gocv.NewMat(),
	}, nil
}

func (w *Webcam) IsOpened() bool {
	return w.vc != nil && w.vc.IsOpened()
}

func (w *Webcam) Start() error {
	if !w.IsOpened() {
		return errors.New("capture device is closed")
	}
	return nil
}

func (w *Webcam) Read(dst *gocv.Mat) error {
	if !w.IsOpened() {
		return errors.New("capture device is closed")
	}
	if ok := w.vc.Read(&w.scratch); !ok || w.scratch.Empty() {
		return errors.New("capture device returned no frame")
	}
	if w.flip {
		gocv.Flip(w.scratch, dst, 1)
	} else {
		w.scratch.CopyTo(dst)
	}
	return nil
}

func (w *Webcam) Close() error {
	if w.vc == nil {
		return nil
	}
	err := w.vc.Close()
	w.vc = nil
	w.scratch.Close()
	return err
}

// StillDevice replays one image a fixed number of times, then reports
// ErrEndOfStream. A negative count replays forever.
type StillDevice struct {
	mu        sync.Mutex
	img       gocv.Mat
	remaining int
	closed    bool
}

// NewStillDevice clones img; the caller keeps ownership of the original.
func NewStillDevice(img gocv.Mat, frames int) *StillDevice {
	return &StillDevice{
		img:       img.Clone(),
		remaining: frames,
	}
}

// StillOpener opens a fresh StillDevice over img for every index.
func StillOpener(img gocv.Mat, frames int) Opener {
	return func(index int, cfg DeviceConfig) (Device, error) {
		if img.Empty() {
			return nil, errors.New("still image is empty")
		}
		return NewStillDevice(img, frames), nil
	}
}

// FileOpener loads path on every open and replays it.
func FileOpener(loader *io.ImageLoader, path string, frames int) Opener {
	return func(index int, cfg DeviceConfig) (Device, error) {
		img, err := loader.LoadImage(path)
		defer img.Close()
		if err != nil {
			return nil, err
		}
		return NewStillDevice(img, frames), nil
	}
}

func (d *StillDevice) IsOpened() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.closed
}

func (d *StillDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("still device is closed")
	}
	return nil
}

func (d *StillDevice) Read(dst *gocv.Mat) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("still device is closed")
	}
	if d.remaining == 0 {
		return ErrEndOfStream
	}
	if d.remaining > 0 {
		d.remaining--
	}
	d.img.CopyTo(dst)
	return nil
}

func (d *StillDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.img.Close()
}
