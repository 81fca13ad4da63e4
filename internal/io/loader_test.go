package io

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestIsSupportedImageFormat(t *testing.T) {
	assert.True(t, IsSupportedImageFormat("face.PNG"))
	assert.True(t, IsSupportedImageFormat("/tmp/shot.jpeg"))
	assert.False(t, IsSupportedImageFormat("notes.txt"))
	assert.False(t, IsSupportedImageFormat("noext"))
}

func TestLoadImageRoundTrip(t *testing.T) {
	logger, _ := test.NewNullLogger()
	loader := NewImageLoader(logger)

	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 12, 16, gocv.MatTypeCV8UC3)
	defer src.Close()

	path := filepath.Join(t.TempDir(), "fixture.png")
	require.True(t, gocv.IMWrite(path, src))

	mat, err := loader.LoadImage(path)
	require.NoError(t, err)
	defer mat.Close()

	assert.Equal(t, 12, mat.Rows())
	assert.Equal(t, 16, mat.Cols())
	assert.Equal(t, 3, mat.Channels())
}

func TestLoadImageErrors(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	loader := NewImageLoader(logger)

	mat, err := loader.LoadImage("fixture.txt")
	assert.Error(t, err)
	mat.Close()

	mat, err = loader.LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
	mat.Close()

	assert.NotEmpty(t, hook.AllEntries())
}
