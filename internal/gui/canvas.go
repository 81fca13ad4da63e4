// internal/gui/canvas.go
// Live preview, side thumbnails and the snapshot confirmation view
package gui

import (
	"fmt"
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/disintegration/imaging"

	"webcam-face-snapshot/internal/metrics"
	"webcam-face-snapshot/internal/render"
)

func blankImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 1, 1))
}

func newImageView(size image.Point) *canvas.Image {
	img := canvas.NewImageFromImage(blankImage())
	img.FillMode = canvas.ImageFillContain
	img.SetMinSize(fyne.NewSize(float32(size.X), float32(size.Y)))
	return img
}

// PreviewCanvas shows the annotated live frame with the grayscale and binary
// thumbnails beside it.
type PreviewCanvas struct {
	live   *canvas.Image
	gray   *canvas.Image
	binary *canvas.Image

	thresholdSlider *widget.Slider
	thresholdLabel  *widget.Label

	container fyne.CanvasObject

	onThresholdChanged func(float32)
}

func NewPreviewCanvas(previewSize, thumbSize image.Point, threshold int) *PreviewCanvas {
	pc := &PreviewCanvas{
		live:   newImageView(previewSize),
		gray:   newImageView(thumbSize),
		binary: newImageView(thumbSize),
	}

	pc.thresholdLabel = widget.NewLabel(thresholdText(float64(threshold)))
	pc.thresholdSlider = widget.NewSlider(0, 255)
	pc.thresholdSlider.Step = 1
	pc.thresholdSlider.Value = float64(threshold)
	pc.thresholdSlider.OnChanged = func(v float64) {
		pc.thresholdLabel.SetText(thresholdText(v))
		if pc.onThresholdChanged != nil {
			pc.onThresholdChanged(float32(v))
		}
	}

	side := container.NewVBox(
		widget.NewCard("Grayscale", "", pc.gray),
		widget.NewCard("Binary", "", container.NewBorder(nil,
			container.NewBorder(nil, nil, pc.thresholdLabel, nil, pc.thresholdSlider),
			nil, nil, pc.binary)),
	)

	pc.container = container.NewBorder(nil, nil, nil, side,
		widget.NewCard("Live", "", pc.live))
	return pc
}

func thresholdText(v float64) string {
	return fmt.Sprintf("Threshold %3.0f", v)
}

func (pc *PreviewCanvas) SetThresholdCallback(fn func(float32)) {
	pc.onThresholdChanged = fn
}

// SetFrame replaces the live image. Call on the UI goroutine.
func (pc *PreviewCanvas) SetFrame(img image.Image) {
	if img == nil {
		img = blankImage()
	}
	pc.live.Image = img
	pc.live.Refresh()
}

// SetThumbnails replaces both side images. Nil leaves an image unchanged.
func (pc *PreviewCanvas) SetThumbnails(gray, binary image.Image) {
	if gray != nil {
		pc.gray.Image = gray
		pc.gray.Refresh()
	}
	if binary != nil {
		pc.binary.Image = binary
		pc.binary.Refresh()
	}
}

func (pc *PreviewCanvas) Clear() {
	pc.SetFrame(nil)
	pc.SetThumbnails(blankImage(), blankImage())
}

func (pc *PreviewCanvas) GetContainer() fyne.CanvasObject {
	return pc.container
}

// SnapshotPanel shows a taken picture and lets the user accept or discard it.
// OK is only enabled when the capture gate passed.
type SnapshotPanel struct {
	size     image.Point
	image    *canvas.Image
	verdict  *widget.Label
	okBtn    *widget.Button
	cancelBt *widget.Button
	card     *widget.Card

	onAccept func()
	onCancel func()
}

func NewSnapshotPanel(size image.Point) *SnapshotPanel {
	sp := &SnapshotPanel{
		size:    size,
		image:   newImageView(size),
		verdict: widget.NewLabel("No picture taken"),
	}
	sp.okBtn = widget.NewButtonWithIcon("OK", theme.ConfirmIcon(), func() {
		if sp.onAccept != nil {
			sp.onAccept()
		}
	})
	sp.okBtn.Importance = widget.HighImportance
	sp.cancelBt = widget.NewButtonWithIcon("Cancel", theme.CancelIcon(), func() {
		if sp.onCancel != nil {
			sp.onCancel()
		}
	})

	sp.card = widget.NewCard("Snapshot", "", container.NewBorder(nil,
		container.NewVBox(sp.verdict, container.NewHBox(sp.okBtn, sp.cancelBt)),
		nil, nil, sp.image))
	sp.Reset()
	return sp
}

func (sp *SnapshotPanel) SetCallbacks(onAccept, onCancel func()) {
	sp.onAccept = onAccept
	sp.onCancel = onCancel
}

// Show displays img scaled to fit the panel along with the gate result.
func (sp *SnapshotPanel) Show(img image.Image, decision render.Decision, quality metrics.Quality) {
	if img == nil {
		img = blankImage()
	} else {
		img = imaging.Fit(img, sp.size.X, sp.size.Y, imaging.Linear)
	}
	sp.image.Image = img
	sp.image.Refresh()

	sp.verdict.SetText(decision.String() + "\n" + quality.String())
	sp.cancelBt.Enable()
	if decision.Acceptable {
		sp.okBtn.Enable()
	} else {
		sp.okBtn.Disable()
	}
}

// Reset clears the panel back to its idle state.
func (sp *SnapshotPanel) Reset() {
	sp.image.Image = blankImage()
	sp.image.Refresh()
	sp.verdict.SetText("No picture taken")
	sp.okBtn.Disable()
	sp.cancelBt.Disable()
}

// Accepted marks the shown picture as confirmed.
func (sp *SnapshotPanel) Accepted(takenAt string) {
	sp.verdict.SetText("Accepted " + takenAt)
	sp.okBtn.Disable()
	sp.cancelBt.Disable()
}

func (sp *SnapshotPanel) GetContainer() fyne.CanvasObject {
	return sp.card
}
