// internal/gui/toolbar.go
// Camera selection and capture controls
package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"webcam-face-snapshot/internal/render"
)

type Toolbar struct {
	logger logrus.FieldLogger

	container *fyne.Container

	cameraSelect *widget.Select
	startBtn     *widget.Button
	stopBtn      *widget.Button
	boxesCheck   *widget.Check
	eyesCheck    *widget.Check
	downscale    *widget.Check
	pictureBtn   *widget.Button

	cameras []string
	opts    render.Options

	// Callbacks
	onCameraSelected func(int)
	onStop           func()
	onOptionsChanged func(render.Options)
	onTakePicture    func()
}

func NewToolbar(maxCameras int, opts render.Options, logger logrus.FieldLogger) *Toolbar {
	tb := &Toolbar{
		logger: logger,
		opts:   opts,
	}
	for i := 0; i < maxCameras; i++ {
		tb.cameras = append(tb.cameras, cameraLabel(i))
	}

	tb.initializeUI()
	return tb
}

func cameraLabel(index int) string {
	return fmt.Sprintf("Camera %d", index)
}

func (tb *Toolbar) initializeUI() {
	tb.cameraSelect = widget.NewSelect(tb.cameras, func(string) {
		index := tb.cameraSelect.SelectedIndex()
		if index < 0 {
			return
		}
		tb.logger.WithField("device", index).Debug("Camera selected")
		if tb.onCameraSelected != nil {
			tb.onCameraSelected(index)
		}
	})
	tb.cameraSelect.PlaceHolder = "Select camera"

	tb.startBtn = widget.NewButtonWithIcon("Start", theme.MediaPlayIcon(), func() {
		if index := tb.cameraSelect.SelectedIndex(); index >= 0 && tb.onCameraSelected != nil {
			tb.onCameraSelected(index)
		}
	})
	tb.stopBtn = widget.NewButtonWithIcon("Stop", theme.MediaStopIcon(), func() {
		if tb.onStop != nil {
			tb.onStop()
		}
	})

	tb.boxesCheck = widget.NewCheck("Draw boxes", func(on bool) {
		tb.opts.DrawBoxes = on
		tb.eyesCheck.Enable()
		if !on {
			tb.eyesCheck.Disable()
		}
		tb.optionsChanged()
	})
	tb.eyesCheck = widget.NewCheck("Eyes", func(on bool) {
		tb.opts.DetectEyes = on
		tb.optionsChanged()
	})
	tb.downscale = widget.NewCheck("Downscale", func(on bool) {
		tb.opts.Downscale = on
		tb.optionsChanged()
	})

	// Set initial state without firing callbacks.
	tb.boxesCheck.Checked = tb.opts.DrawBoxes
	tb.eyesCheck.Checked = tb.opts.DetectEyes
	tb.downscale.Checked = tb.opts.Downscale
	if !tb.opts.DrawBoxes {
		tb.eyesCheck.Disable()
	}

	tb.pictureBtn = widget.NewButtonWithIcon("Take picture", theme.MediaPhotoIcon(), func() {
		if tb.onTakePicture != nil {
			tb.onTakePicture()
		}
	})
	tb.pictureBtn.Importance = widget.HighImportance

	tb.container = container.NewHBox(
		tb.cameraSelect,
		tb.startBtn,
		tb.stopBtn,
		widget.NewSeparator(),
		tb.boxesCheck,
		tb.eyesCheck,
		tb.downscale,
		widget.NewSeparator(),
		tb.pictureBtn,
	)

	tb.SetStreaming(false)
}

func (tb *Toolbar) optionsChanged() {
	if tb.onOptionsChanged != nil {
		tb.onOptionsChanged(tb.opts)
	}
}

func (tb *Toolbar) SetCallbacks(onCameraSelected func(int), onStop func(), onOptionsChanged func(render.Options), onTakePicture func()) {
	tb.onCameraSelected = onCameraSelected
	tb.onStop = onStop
	tb.onOptionsChanged = onOptionsChanged
	tb.onTakePicture = onTakePicture
}

// SelectCamera shows index as selected without reopening the device.
func (tb *Toolbar) SelectCamera(index int) {
	if index < 0 || index >= len(tb.cameras) {
		return
	}
	cb := tb.cameraSelect.OnChanged
	tb.cameraSelect.OnChanged = nil
	tb.cameraSelect.SetSelectedIndex(index)
	tb.cameraSelect.OnChanged = cb
}

// SetStreaming toggles the controls that need a live session.
func (tb *Toolbar) SetStreaming(streaming bool) {
	if streaming {
		tb.startBtn.Disable()
		tb.stopBtn.Enable()
		tb.pictureBtn.Enable()
		return
	}
	tb.startBtn.Enable()
	tb.stopBtn.Disable()
	tb.pictureBtn.Disable()
}

func (tb *Toolbar) GetContainer() fyne.CanvasObject {
	return tb.container
}
