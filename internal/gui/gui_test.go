package gui

import (
	"errors"
	"testing"

	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"webcam-face-snapshot/internal/capture"
	"webcam-face-snapshot/internal/config"
	"webcam-face-snapshot/internal/detect"
	"webcam-face-snapshot/internal/metrics"
	"webcam-face-snapshot/internal/render"
)

func TestFormatMetrics(t *testing.T) {
	lines := formatMetrics(map[string]float64{
		metrics.Renders:     12,
		metrics.AvgRenderMs: 3.456,
		"custom_metric":     1,
	})

	assert.Equal(t, []string{
		"Avg render (ms): 3.46",
		"custom_metric: 1",
		"Renders: 12",
	}, lines)
	assert.Empty(t, formatMetrics(nil))
}

func TestDetectorText(t *testing.T) {
	status := detect.Status{
		Face: detect.Availability{Path: "face.xml", Loaded: true},
		Eye:  detect.Availability{Path: "eye.xml"},
	}
	assert.Equal(t, "Face detection: ready\nEye detection: unavailable (eye.xml)", detectorText(status))
}

func TestToolbarOptionsAndStreamingState(t *testing.T) {
	test.NewTempApp(t)
	logger, _ := logtest.NewNullLogger()

	tb := NewToolbar(3, render.Options{DrawBoxes: true}, logger)
	assert.Len(t, tb.cameras, 3)
	assert.True(t, tb.pictureBtn.Disabled())

	var got []render.Options
	var selected []int
	tb.SetCallbacks(
		func(i int) { selected = append(selected, i) },
		func() {},
		func(o render.Options) { got = append(got, o) },
		func() {},
	)

	tb.eyesCheck.SetChecked(true)
	tb.boxesCheck.SetChecked(false)
	assert.Equal(t, []render.Options{
		{DrawBoxes: true, DetectEyes: true},
		{DrawBoxes: false, DetectEyes: true},
	}, got)
	assert.True(t, tb.eyesCheck.Disabled())

	tb.SelectCamera(2)
	assert.Empty(t, selected)
	tb.cameraSelect.SetSelectedIndex(1)
	assert.Equal(t, []int{1}, selected)

	tb.SetStreaming(true)
	assert.False(t, tb.pictureBtn.Disabled())
	assert.True(t, tb.startBtn.Disabled())
}

func newTestApplication(t *testing.T) *Application {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	detector := detect.NewDetector(nil, nil, detect.DefaultParams(), logger)
	open := func(int, capture.DeviceConfig) (capture.Device, error) {
		return nil, errors.New("no camera in tests")
	}
	return NewApplication(test.NewTempApp(t), config.Default(), open, detector, logger)
}

func TestAcceptRefusedSnapshotReleasesIt(t *testing.T) {
	a := newTestApplication(t)

	snap := &render.Snapshot{
		Image:    gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3),
		Decision: render.Decision{Faces: 2},
	}
	a.pending = snap

	a.acceptSnapshot()

	assert.True(t, snap.Empty())
	assert.Nil(t, a.pending)
	assert.Nil(t, a.Accepted())
}

func TestMetricsPanelClear(t *testing.T) {
	test.NewTempApp(t)
	mp := NewMetricsPanel()

	mp.UpdateMetrics(map[string]float64{metrics.Renders: 3})
	mp.Clear()

	require.Len(t, mp.vbox.Objects, 1)
	card, ok := mp.vbox.Objects[0].(*widget.Card)
	require.True(t, ok)
	label, ok := card.Content.(*widget.Label)
	require.True(t, ok)
	assert.Equal(t, "Start a camera to see metrics", label.Text)
}
