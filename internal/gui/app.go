// Main window: wires the capture source and render pipeline to the widgets
package gui

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"webcam-face-snapshot/internal/capture"
	"webcam-face-snapshot/internal/config"
	"webcam-face-snapshot/internal/core"
	"webcam-face-snapshot/internal/detect"
	"webcam-face-snapshot/internal/metrics"
	"webcam-face-snapshot/internal/render"
)

const metricsInterval = 500 * time.Millisecond

// Application is the capture window.
type Application struct {
	app    fyne.App
	window fyne.Window
	logger logrus.FieldLogger
	cfg    config.Config

	// Core components
	detector *detect.Detector
	source   *capture.Source
	pipeline *render.Pipeline
	recorder *metrics.Recorder
	pool     *core.MatPool
	notifier *dialogNotifier

	// GUI components
	toolbar      *Toolbar
	preview      *PreviewCanvas
	snapshot     *SnapshotPanel
	metricsPanel *MetricsPanel
	statusCard   *widget.Card
	detectorInfo *widget.Label

	// camMu serializes opening and closing the camera with the watch loop.
	camMu       sync.Mutex
	cancelWatch context.CancelFunc
	watchDone   chan struct{}

	mu        sync.Mutex
	opts      render.Options
	threshold float32
	pending   *render.Snapshot
	accepted  image.Image

	stopMetrics chan struct{}
	closeOnce   sync.Once
}

func NewApplication(app fyne.App, cfg config.Config, open capture.Opener, detector *detect.Detector, logger logrus.FieldLogger) *Application {
	window := app.NewWindow("Webcam Face Snapshot")
	window.Resize(fyne.NewSize(1100, 700))
	window.CenterOnScreen()

	a := &Application{
		app:       app,
		window:    window,
		logger:    logger,
		cfg:       cfg,
		detector:  detector,
		threshold: float32(cfg.Threshold),
		opts: render.Options{
			DrawBoxes:  true,
			DetectEyes: cfg.ShowEyes,
			Downscale:  true,
		},
		stopMetrics: make(chan struct{}),
	}

	a.initializeCore(open)
	a.initializeGUI()
	a.setupLayout()
	a.setupCallbacks()

	return a
}

func (a *Application) initializeCore(open capture.Opener) {
	a.recorder = metrics.NewRecorder()
	a.pool = core.NewMatPool(2)
	a.notifier = newDialogNotifier(a.window, a.logger)

	a.source = capture.NewSource(open, capture.Options{
		Device: capture.DeviceConfig{
			Size:           a.cfg.CaptureSize,
			FlipHorizontal: a.cfg.FlipHorizontal,
		},
		FrameDelay: a.cfg.FrameDelay,
	}, a.notifier, a.logger, a.recorder)

	a.pipeline = render.NewPipeline(a.detector, render.Config{
		PreviewSize: a.cfg.PreviewSize,
		ThumbSize:   a.cfg.ThumbSize,
	}, a.pool, a.notifier, a.logger, a.recorder)
}

func (a *Application) initializeGUI() {
	a.toolbar = NewToolbar(a.cfg.MaxCameras, a.opts, a.logger)
	a.preview = NewPreviewCanvas(a.cfg.PreviewSize, a.cfg.ThumbSize, a.cfg.Threshold)
	a.snapshot = NewSnapshotPanel(a.cfg.PreviewSize)
	a.metricsPanel = NewMetricsPanel()
	a.detectorInfo = widget.NewLabel(detectorText(a.detector.Status()))
}

func (a *Application) setupLayout() {
	a.statusCard = widget.NewCard("Status", "", widget.NewLabel("Select a camera to start"))

	right := container.NewVBox(
		a.snapshot.GetContainer(),
		a.statusCard,
		widget.NewCard("Detector", "", a.detectorInfo),
		a.metricsPanel.GetContainer(),
	)

	content := container.NewBorder(
		container.NewVBox(a.toolbar.GetContainer(), widget.NewSeparator()),
		nil,
		nil,
		container.NewVScroll(right),
		container.NewPadded(a.preview.GetContainer()),
	)
	a.window.SetContent(content)
}

func (a *Application) setupCallbacks() {
	a.toolbar.SetCallbacks(
		// onCameraSelected
		func(index int) {
			go a.openCamera(index)
		},
		// onStop
		func() {
			go a.closeCamera()
		},
		// onOptionsChanged
		func(opts render.Options) {
			a.mu.Lock()
			a.opts = opts
			a.mu.Unlock()
			go a.restartWatch()
		},
		// onTakePicture
		a.takePicture,
	)

	a.preview.SetThresholdCallback(func(v float32) {
		a.mu.Lock()
		a.threshold = v
		a.mu.Unlock()
	})

	a.snapshot.SetCallbacks(a.acceptSnapshot, a.discardSnapshot)

	a.notifier.onFailure = func(f core.Failure) {
		// Camera failures are handled by openCamera. After a frame failure
		// the session is already gone; stop rendering it.
		if f.Category != core.CategoryFrame {
			return
		}
		go a.sessionLost()
	}
}

// openCamera replaces the current session with device index.
func (a *Application) openCamera(index int) {
	a.camMu.Lock()
	defer a.camMu.Unlock()

	a.stopWatchLocked()
	if err := a.source.Initialize(index); err != nil {
		a.setStreaming(false, fmt.Sprintf("Camera %d unavailable", index))
		return
	}
	if err := a.source.Start(); err != nil {
		a.setStreaming(false, fmt.Sprintf("Camera %d failed to start", index))
		return
	}
	if !a.source.Streaming() {
		a.source.Teardown()
		a.setStreaming(false, fmt.Sprintf("Camera %d is not open", index))
		return
	}

	a.startWatchLocked()
	a.logger.WithFields(logrus.Fields{
		"device":     index,
		"session_id": a.source.SessionID(),
	}).Info("Camera streaming")
	a.setStreaming(true, fmt.Sprintf("Streaming from camera %d", index))
}

func (a *Application) closeCamera() {
	a.camMu.Lock()
	defer a.camMu.Unlock()

	a.stopWatchLocked()
	a.source.Teardown()
	a.setStreaming(false, "Capture stopped")
}

func (a *Application) sessionLost() {
	a.camMu.Lock()
	defer a.camMu.Unlock()

	if a.source.Initialized() {
		return
	}
	a.stopWatchLocked()
	a.setStreaming(false, "Capture stopped after an error")
}

func (a *Application) restartWatch() {
	a.camMu.Lock()
	defer a.camMu.Unlock()

	if a.cancelWatch == nil {
		return
	}
	a.stopWatchLocked()
	a.startWatchLocked()
}

func (a *Application) startWatchLocked() {
	a.mu.Lock()
	opts := a.opts
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	a.cancelWatch = cancel
	a.watchDone = done

	go func() {
		defer close(done)
		err := a.pipeline.Watch(ctx, a.source, opts, a.showFrame)
		a.logger.WithError(err).Debug("Preview loop stopped")
	}()
}

func (a *Application) stopWatchLocked() {
	if a.cancelWatch == nil {
		return
	}
	a.cancelWatch()
	<-a.watchDone
	a.cancelWatch = nil
	a.watchDone = nil
}

// showFrame runs on the watch goroutine. Conversions happen here so only
// image.Image values cross into the UI goroutine.
func (a *Application) showFrame(out *render.AnnotatedImage) {
	img, err := out.ToImage()
	out.Close()
	if err != nil {
		a.logger.WithError(err).Warn("Converting preview frame")
		img = nil
	}

	a.mu.Lock()
	threshold := a.threshold
	a.mu.Unlock()

	var grayImg, binaryImg image.Image
	if frame := a.source.CurrentFrame(); frame != nil {
		gray, binary, err := a.pipeline.Thumbnails(frame, threshold)
		frame.Close()
		if err == nil {
			grayImg = matImage(gray, a.logger)
			binaryImg = matImage(binary, a.logger)
		}
	}

	fyne.Do(func() {
		a.preview.SetFrame(img)
		a.preview.SetThumbnails(grayImg, binaryImg)
	})
}

// matImage converts and closes m.
func matImage(m gocv.Mat, logger logrus.FieldLogger) image.Image {
	defer m.Close()
	img, err := m.ToImage()
	if err != nil {
		logger.WithError(err).Warn("Converting thumbnail")
		return nil
	}
	return img
}

func (a *Application) takePicture() {
	frame := a.source.CurrentFrame()
	if frame == nil {
		a.showInfo("No frame", "No frame has been captured yet.")
		return
	}
	snap := a.pipeline.Capture(frame)
	frame.Close()

	img, err := snap.Image.ToImage()
	if err != nil {
		a.logger.WithError(err).Warn("Converting snapshot")
		img = nil
	}

	a.mu.Lock()
	if a.pending != nil {
		a.pending.Close()
	}
	a.pending = snap
	a.mu.Unlock()

	a.snapshot.Show(img, snap.Decision, snap.Quality)
	a.updateStatusMessage(snap.Decision.String())
}

func (a *Application) acceptSnapshot() {
	a.mu.Lock()
	snap := a.pending
	a.pending = nil
	a.mu.Unlock()
	defer snap.Close()
	if snap.Empty() || !snap.Decision.Acceptable {
		return
	}

	img, err := snap.Image.ToImage()
	if err != nil {
		a.showError("Snapshot", err)
		return
	}

	a.mu.Lock()
	a.accepted = img
	a.mu.Unlock()

	takenAt := snap.TakenAt.Format("15:04:05")
	a.snapshot.Accepted(takenAt)
	a.updateStatusMessage("Picture accepted")
	a.logger.WithFields(logrus.Fields{
		"faces":    snap.Decision.Faces,
		"taken_at": takenAt,
	}).Info("Snapshot accepted")
}

func (a *Application) discardSnapshot() {
	a.mu.Lock()
	snap := a.pending
	a.pending = nil
	a.mu.Unlock()
	snap.Close()

	a.snapshot.Reset()
	a.updateStatusMessage("Picture discarded")
}

// Accepted returns the last confirmed picture, or nil.
func (a *Application) Accepted() image.Image {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.accepted
}

func (a *Application) setStreaming(streaming bool, message string) {
	fyne.Do(func() {
		a.toolbar.SetStreaming(streaming)
		if !streaming {
			a.preview.Clear()
			a.metricsPanel.Clear()
		}
		a.updateStatusMessage(message)
	})
}

func (a *Application) updateStatusMessage(message string) {
	if a.statusCard != nil {
		a.statusCard.SetContent(widget.NewLabel(message))
	}
}

func (a *Application) runMetrics() {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.stopMetrics:
			return
		case <-ticker.C:
			if !a.source.Streaming() {
				continue
			}
			values := a.recorder.Snapshot()
			if a.cfg.Debug {
				for k, v := range metrics.MemoryStats() {
					values[k] = v
				}
			}
			fyne.Do(func() {
				a.metricsPanel.UpdateMetrics(values)
			})
		}
	}
}

func (a *Application) ShowAndRun() {
	a.logger.Info("Showing capture window")

	a.window.SetCloseIntercept(func() {
		a.cleanup()
		a.app.Quit()
	})

	go a.runMetrics()
	if a.cfg.CameraIndex >= 0 && a.cfg.CameraIndex < a.cfg.MaxCameras {
		a.toolbar.SelectCamera(a.cfg.CameraIndex)
		go a.openCamera(a.cfg.CameraIndex)
	}

	a.window.ShowAndRun()
	a.cleanup()
}

func (a *Application) cleanup() {
	a.closeOnce.Do(func() {
		a.logger.Info("Cleaning up application resources")
		close(a.stopMetrics)

		a.camMu.Lock()
		a.stopWatchLocked()
		a.source.Teardown()
		a.camMu.Unlock()

		a.mu.Lock()
		a.pending.Close()
		a.pending = nil
		a.mu.Unlock()

		a.pool.Close()
		metrics.LogMemorySummary(a.logger)
	})
}

func (a *Application) showError(title string, err error) {
	a.logger.WithError(err).Error(title)
	dialog.ShowError(err, a.window)
	a.updateStatusMessage(fmt.Sprintf("Error: %s", err.Error()))
}

func (a *Application) showInfo(title, message string) {
	a.logger.WithField("message", message).Info(title)
	dialog.ShowInformation(title, message, a.window)
}
