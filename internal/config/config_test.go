package config

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, image.Pt(1024, 768), cfg.CaptureSize)
	assert.Equal(t, image.Pt(450, 250), cfg.PreviewSize)
	assert.Equal(t, 50*time.Millisecond, cfg.FrameDelay)
	assert.True(t, cfg.FlipHorizontal)
}

func TestParseFlags(t *testing.T) {
	cfg, err := Parse([]string{
		"-camera", "2",
		"-threshold", "120",
		"-frame-delay", "10ms",
		"-fixture", "faces.png",
		"-eyes=false",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.CameraIndex)
	assert.Equal(t, 120, cfg.Threshold)
	assert.Equal(t, 10*time.Millisecond, cfg.FrameDelay)
	assert.Equal(t, "faces.png", cfg.FixturePath)
	assert.False(t, cfg.ShowEyes)
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("FACE_CASCADE", "/models/face.xml")
	t.Setenv("EYE_CASCADE", "/models/eye.xml")

	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, "/models/face.xml", cfg.FaceCascadePath)
	assert.Equal(t, "/models/eye.xml", cfg.EyeCascadePath)

	cfg, err = Parse([]string{"-face-cascade", "local.xml"})
	require.NoError(t, err)
	assert.Equal(t, "local.xml", cfg.FaceCascadePath)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative camera", func(c *Config) { c.CameraIndex = -1 }},
		{"camera beyond selector", func(c *Config) { c.CameraIndex = c.MaxCameras }},
		{"zero capture width", func(c *Config) { c.CaptureSize.X = 0 }},
		{"zero preview height", func(c *Config) { c.PreviewSize.Y = 0 }},
		{"negative delay", func(c *Config) { c.FrameDelay = -time.Millisecond }},
		{"threshold too high", func(c *Config) { c.Threshold = 256 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	_, err := Parse([]string{"-threshold", "300"})
	assert.Error(t, err)
}
