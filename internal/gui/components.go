// Side panels: runtime metrics and detector status
package gui

import (
	"fmt"
	"sort"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"webcam-face-snapshot/internal/detect"
	"webcam-face-snapshot/internal/metrics"
)

var metricLabels = map[string]string{
	metrics.FramesCaptured:  "Frames captured",
	metrics.FramesDropped:   "Frames dropped",
	metrics.SessionsStarted: "Sessions started",
	metrics.SessionFailures: "Session failures",
	metrics.Renders:         "Renders",
	metrics.RenderFailures:  "Render failures",
	metrics.LastRenderMs:    "Last render (ms)",
	metrics.AvgRenderMs:     "Avg render (ms)",
	metrics.LastFaceCount:   "Faces in last frame",
	metrics.HeapAllocMB:     "Heap (MB)",
	metrics.SysMB:           "System memory (MB)",
	metrics.NumGC:           "GC cycles",
}

// MetricsPanel displays recorder counters
type MetricsPanel struct {
	vbox *fyne.Container
}

func NewMetricsPanel() *MetricsPanel {
	panel := &MetricsPanel{}
	panel.initializeUI()
	return panel
}

func (mp *MetricsPanel) initializeUI() {
	mp.vbox = container.NewVBox(
		widget.NewCard("Metrics", "",
			widget.NewLabel("Start a camera to see metrics")),
	)
}

func (mp *MetricsPanel) GetContainer() fyne.CanvasObject {
	return mp.vbox
}

func (mp *MetricsPanel) UpdateMetrics(values map[string]float64) {
	content := container.NewVBox()
	for _, line := range formatMetrics(values) {
		content.Add(widget.NewLabel(line))
	}
	if len(values) == 0 {
		content.Add(widget.NewLabel("No metrics available"))
	}

	card := widget.NewCard("Metrics", "", content)
	mp.vbox.RemoveAll()
	mp.vbox.Add(card)
}

// formatMetrics renders one line per metric in name order.
func formatMetrics(values map[string]float64) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		label, ok := metricLabels[name]
		if !ok {
			label = name
		}
		v := values[name]
		if v == float64(int64(v)) {
			lines = append(lines, fmt.Sprintf("%s: %d", label, int64(v)))
		} else {
			lines = append(lines, fmt.Sprintf("%s: %.2f", label, v))
		}
	}
	return lines
}

// Clear drops the displayed values once capture stops.
func (mp *MetricsPanel) Clear() {
	mp.vbox.RemoveAll()
	mp.vbox.Add(widget.NewCard("Metrics", "",
		widget.NewLabel("Start a camera to see metrics")))
}

// detectorText summarises which cascades loaded.
func detectorText(status detect.Status) string {
	text := "Face detection: " + availabilityText(status.Face)
	text += "\nEye detection: " + availabilityText(status.Eye)
	return text
}

func availabilityText(a detect.Availability) string {
	if a.Loaded {
		return "ready"
	}
	if a.Path == "" {
		return "unavailable"
	}
	return fmt.Sprintf("unavailable (%s)", a.Path)
}
