package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestMeasureSolidImage(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(90, 90, 90, 0), 32, 32, gocv.MatTypeCV8UC3)
	defer img.Close()

	q, err := Measure(img)
	require.NoError(t, err)
	assert.InDelta(t, 0, q.Sharpness, 1e-9)
	assert.InDelta(t, 0, q.Contrast, 1e-9)
	assert.True(t, q.Blurry())
	assert.Contains(t, q.String(), "blurry")
}

func TestMeasureCheckerboard(t *testing.T) {
	img := gocv.NewMatWithSize(32, 32, gocv.MatTypeCV8UC1)
	defer img.Close()
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if (x/4+y/4)%2 == 0 {
				img.SetUCharAt(y, x, 255)
			} else {
				img.SetUCharAt(y, x, 0)
			}
		}
	}

	q, err := Measure(img)
	require.NoError(t, err)
	assert.InDelta(t, 127.5, q.Contrast, 0.01)
	assert.Greater(t, q.Sharpness, BlurThreshold)
	assert.False(t, q.Blurry())
}

func TestMeasureEmpty(t *testing.T) {
	_, err := Measure(gocv.NewMat())
	assert.Error(t, err)
}
