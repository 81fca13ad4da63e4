// internal/config/config.go
// Application configuration with defaults, flag parsing and validation
package config

import (
	"flag"
	"fmt"
	"image"
	"os"
	"time"
)

// Default capture and preview settings.
const (
	DefaultCaptureWidth  = 1024
	DefaultCaptureHeight = 768
	DefaultPreviewWidth  = 450
	DefaultPreviewHeight = 250
	DefaultThumbWidth    = 300
	DefaultThumbHeight   = 200
	DefaultThreshold     = 70
	DefaultFrameDelay    = 50 * time.Millisecond
	DefaultMaxCameras    = 4

	DefaultFaceCascade = "haarcascade_frontalface_default.xml"
	DefaultEyeCascade  = "haarcascade_eye.xml"
)

// Config holds everything the capture shell needs at startup.
type Config struct {
	CameraIndex    int
	MaxCameras     int
	CaptureSize    image.Point
	FlipHorizontal bool
	FrameDelay     time.Duration

	PreviewSize image.Point
	ThumbSize   image.Point
	Threshold   int
	ShowEyes    bool

	FaceCascadePath string
	EyeCascadePath  string

	// FixturePath replaces the webcam with a still image when set.
	FixturePath string

	Debug bool
}

// Default returns production defaults.
func Default() Config {
	return Config{
		CameraIndex:     0,
		MaxCameras:      DefaultMaxCameras,
		CaptureSize:     image.Pt(DefaultCaptureWidth, DefaultCaptureHeight),
		FlipHorizontal:  true,
		FrameDelay:      DefaultFrameDelay,
		PreviewSize:     image.Pt(DefaultPreviewWidth, DefaultPreviewHeight),
		ThumbSize:       image.Pt(DefaultThumbWidth, DefaultThumbHeight),
		Threshold:       DefaultThreshold,
		ShowEyes:        true,
		FaceCascadePath: DefaultFaceCascade,
		EyeCascadePath:  DefaultEyeCascade,
	}
}

// Parse builds a Config from command line arguments (without the program
// name). FACE_CASCADE and EYE_CASCADE override the default model paths; flags
// win over both.
func Parse(args []string) (Config, error) {
	cfg := Default()
	if v := os.Getenv("FACE_CASCADE"); v != "" {
		cfg.FaceCascadePath = v
	}
	if v := os.Getenv("EYE_CASCADE"); v != "" {
		cfg.EyeCascadePath = v
	}

	fs := flag.NewFlagSet("webcam-face-snapshot", flag.ContinueOnError)
	fs.IntVar(&cfg.CameraIndex, "camera", cfg.CameraIndex, "zero-based capture device index")
	fs.IntVar(&cfg.MaxCameras, "max-cameras", cfg.MaxCameras, "number of device indexes offered in the selector")
	fs.IntVar(&cfg.CaptureSize.X, "width", cfg.CaptureSize.X, "requested capture width")
	fs.IntVar(&cfg.CaptureSize.Y, "height", cfg.CaptureSize.Y, "requested capture height")
	fs.BoolVar(&cfg.FlipHorizontal, "flip", cfg.FlipHorizontal, "mirror frames horizontally")
	fs.DurationVar(&cfg.FrameDelay, "frame-delay", cfg.FrameDelay, "pause after each captured frame")
	fs.IntVar(&cfg.Threshold, "threshold", cfg.Threshold, "initial binary preview threshold (0-255)")
	fs.BoolVar(&cfg.ShowEyes, "eyes", cfg.ShowEyes, "search for eyes inside detected faces")
	fs.StringVar(&cfg.FaceCascadePath, "face-cascade", cfg.FaceCascadePath, "frontal face cascade XML")
	fs.StringVar(&cfg.EyeCascadePath, "eye-cascade", cfg.EyeCascadePath, "eye cascade XML")
	fs.StringVar(&cfg.FixturePath, "fixture", cfg.FixturePath, "replay a still image instead of opening a camera")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug mode with verbose logging")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.CameraIndex < 0 {
		return fmt.Errorf("camera index must be >= 0, got %d", c.CameraIndex)
	}
	if c.MaxCameras < 1 {
		return fmt.Errorf("max cameras must be >= 1, got %d", c.MaxCameras)
	}
	if c.CameraIndex >= c.MaxCameras {
		return fmt.Errorf("camera index %d outside selector range 0-%d", c.CameraIndex, c.MaxCameras-1)
	}
	if err := validSize("capture", c.CaptureSize); err != nil {
		return err
	}
	if err := validSize("preview", c.PreviewSize); err != nil {
		return err
	}
	if err := validSize("thumbnail", c.ThumbSize); err != nil {
		return err
	}
	if c.FrameDelay < 0 {
		return fmt.Errorf("frame delay must not be negative, got %s", c.FrameDelay)
	}
	if c.Threshold < 0 || c.Threshold > 255 {
		return fmt.Errorf("threshold must be in 0-255, got %d", c.Threshold)
	}
	return nil
}

func validSize(name string, p image.Point) error {
	if p.X <= 0 || p.Y <= 0 {
		return fmt.Errorf("%s size must be positive, got %dx%d", name, p.X, p.Y)
	}
	return nil
}
