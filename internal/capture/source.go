package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"webcam-face-snapshot/internal/core"
	"webcam-face-snapshot/internal/metrics"
)

var (
	ErrInitFailed  = errors.New("camera initialization failed")
	ErrStartFailed = errors.New("camera failed to start streaming")
	ErrFrameFailed = errors.New("frame retrieval failed")
)

// Options configures a Source.
type Options struct {
	Device     DeviceConfig
	FrameDelay time.Duration
}

// Source manages at most one capture session and publishes its frames into a
// latest-frame slot. Initialize, Start and Teardown are serialized; the
// capture goroutine never takes the lifecycle lock, so Teardown may run while
// a frame is in flight.
type Source struct {
	open     Opener
	opts     Options
	notifier core.Notifier
	logger   logrus.FieldLogger
	recorder *metrics.Recorder
	slot     *core.FrameSlot

	lifeMu  sync.Mutex
	mu      sync.Mutex
	session *session
}

type session struct {
	id     string
	index  int
	device Device
	raw    gocv.Mat
	logger logrus.FieldLogger

	cancel  context.CancelFunc
	done    chan struct{} // nil until started
	release sync.Once
}

func NewSource(open Opener, opts Options, notifier core.Notifier, logger logrus.FieldLogger, recorder *metrics.Recorder) *Source {
	if notifier == nil {
		notifier = core.LogNotifier{Logger: logger}
	}
	return &Source{
		open:     open,
		opts:     opts,
		notifier: notifier,
		logger:   logger,
		recorder: recorder,
		slot:     core.NewFrameSlot(),
	}
}

// Initialize opens device index, replacing any current session. The old
// session is fully torn down before the new device is opened. Every open
// failure is reported as ErrInitFailed.
func (s *Source) Initialize(index int) error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	s.teardownLocked()

	if index < 0 {
		return s.initFailed(index, fmt.Errorf("invalid device index %d", index))
	}

	dev, err := s.openDevice(index)
	if err != nil {
		return s.initFailed(index, err)
	}

	size := s.opts.Device.Size
	sess := &session{
		id:     uuid.NewString(),
		index:  index,
		device: dev,
		raw:    gocv.NewMatWithSize(size.Y, size.X, gocv.MatTypeCV8UC3),
	}
	sess.logger = s.logger.WithFields(logrus.Fields{
		"session_id": sess.id,
		"device":     index,
	})

	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()

	sess.logger.WithFields(logrus.Fields{
		"width":  size.X,
		"height": size.Y,
		"flip":   s.opts.Device.FlipHorizontal,
	}).Info("Capture device initialized")
	return nil
}

func (s *Source) openDevice(index int) (dev Device, err error) {
	defer func() {
		if r := recover(); r != nil {
			dev, err = nil, fmt.Errorf("panic opening device: %v", r)
		}
	}()
	return s.open(index, s.opts.Device)
}

func (s *Source) initFailed(index int, cause error) error {
	err := fmt.Errorf("%w: device %d: %v", ErrInitFailed, index, cause)
	s.logger.WithError(cause).WithField("device", index).Error("Capture device initialization failed")
	s.notifier.Notify(core.Failure{Category: core.CategoryCamera, Err: err})
	return err
}

// Start begins continuous capture. It does nothing when no session exists, the
// session is already streaming, or the device did not open. If the device
// cannot stream, the session is released and ErrStartFailed returned.
func (s *Source) Start() error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()

	if sess == nil {
		s.logger.Debug("Start ignored: capture not initialized")
		return nil
	}
	if sess.done != nil {
		return nil
	}
	if !sess.device.IsOpened() {
		sess.logger.Warn("Start ignored: capture device not opened")
		return nil
	}

	if err := startDevice(sess.device); err != nil {
		s.mu.Lock()
		s.session = nil
		s.mu.Unlock()
		sess.close()

		wrapped := fmt.Errorf("%w: %v", ErrStartFailed, err)
		sess.logger.WithError(err).Error("Capture device failed to start")
		s.notifier.Notify(core.Failure{Category: core.CategoryCamera, Err: wrapped})
		return wrapped
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	sess.cancel = cancel
	sess.done = make(chan struct{})
	s.mu.Unlock()
	s.recorder.SessionStarted()

	go s.run(ctx, sess)

	sess.logger.Info("Capture started")
	return nil
}

func startDevice(dev Device) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic starting device: %v", r)
		}
	}()
	return dev.Start()
}

// Teardown stops streaming and releases the device. Safe to call repeatedly,
// before Initialize, or while a frame is being captured.
func (s *Source) Teardown() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	s.teardownLocked()
}

func (s *Source) teardownLocked() {
	s.mu.Lock()
	sess := s.session
	s.session = nil
	s.mu.Unlock()

	if sess != nil {
		if sess.done != nil {
			sess.cancel()
			<-sess.done
		} else {
			sess.close()
		}
		sess.logger.Info("Capture session torn down")
	}
	s.slot.Reset()
}

// CurrentFrame returns a clone of the latest frame, or nil when no frame has
// arrived in the current session. The caller must Close it.
func (s *Source) CurrentFrame() *core.Frame {
	return s.slot.Latest()
}

// Changed fires once per captured frame, from the capture goroutine.
func (s *Source) Changed() <-chan struct{} {
	return s.slot.Changed()
}

// Initialized reports whether a session exists.
func (s *Source) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

// Streaming reports whether the capture goroutine is running.
func (s *Source) Streaming() bool {
	s.mu.Lock()
	var done chan struct{}
	if s.session != nil {
		done = s.session.done
	}
	s.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// SessionID identifies the current session in logs; empty when idle.
func (s *Source) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ""
	}
	return s.session.id
}

func (s *Source) run(ctx context.Context, sess *session) {
	err := s.stream(ctx, sess)
	sess.close()
	close(sess.done)

	if err != nil {
		s.fail(sess, err)
	}
}

// stream retrieves frames until the context ends, the device runs out, or a
// retrieval fails. Retrieval failures are returned; nothing is retried.
func (s *Source) stream(ctx context.Context, sess *session) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		err := retrieve(sess)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrEndOfStream) {
			sess.logger.Info("Capture stream ended")
			return nil
		}
		if err != nil {
			return err
		}

		s.slot.Publish(core.NewFrame(sess.raw.Clone(), 0))
		s.recorder.FrameCaptured()
		s.recorder.SetDropped(s.slot.Stats().Drops)

		if s.opts.FrameDelay > 0 {
			timer := time.NewTimer(s.opts.FrameDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}
	}
}

func retrieve(sess *session) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrFrameFailed, r)
		}
	}()

	if err := sess.device.Read(&sess.raw); err != nil {
		if errors.Is(err, ErrEndOfStream) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrFrameFailed, err)
	}
	if sess.raw.Empty() {
		return fmt.Errorf("%w: empty frame", ErrFrameFailed)
	}
	return nil
}

// fail drops a session after a retrieval error. The frame buffer may be
// corrupt, so the latest frame is discarded along with the session. A session
// that was already torn down or replaced is not reported.
func (s *Source) fail(sess *session, err error) {
	s.mu.Lock()
	current := s.session == sess
	if current {
		s.session = nil
		s.slot.Reset()
	}
	s.mu.Unlock()

	if !current {
		sess.logger.WithError(err).Debug("Retrieval error after teardown ignored")
		return
	}
	s.recorder.SessionFailed()
	sess.logger.WithError(err).Error("Capture session failed")
	s.notifier.Notify(core.Failure{Category: core.CategoryFrame, Err: err})
}

func (sess *session) close() {
	sess.release.Do(func() {
		if err := sess.device.Close(); err != nil {
			sess.logger.WithError(err).Warn("Closing capture device")
		}
		sess.raw.Close()
	})
}

// WithSession initializes and starts device index, runs fn, and tears the
// session down on every return path.
func WithSession(ctx context.Context, src *Source, index int, fn func(ctx context.Context) error) error {
	if err := src.Initialize(index); err != nil {
		return err
	}
	defer src.Teardown()

	if err := src.Start(); err != nil {
		return err
	}
	return fn(ctx)
}
