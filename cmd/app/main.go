// Webcam Face Snapshot
// Live camera preview with face/eye detection and single-face picture capture.

package main

import (
	"fmt"
	"os"

	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/theme"
	"github.com/sirupsen/logrus"

	"webcam-face-snapshot/internal/capture"
	"webcam-face-snapshot/internal/config"
	"webcam-face-snapshot/internal/detect"
	"webcam-face-snapshot/internal/gui"
	"webcam-face-snapshot/internal/io"
)

const (
	AppName    = "Webcam Face Snapshot"
	AppID      = "com.example.webcam-face-snapshot"
	AppVersion = "1.0.0"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := initLogger(cfg.Debug)
	logger.WithFields(logrus.Fields{
		"version":    AppVersion,
		"debug_mode": cfg.Debug,
		"camera":     cfg.CameraIndex,
		"fixture":    cfg.FixturePath,
	}).Info("Starting " + AppName)

	detector := detect.Load(cfg.FaceCascadePath, cfg.EyeCascadePath, logger)
	defer detector.Close()

	myApp := app.NewWithID(AppID)
	myApp.SetIcon(theme.MediaPhotoIcon())
	myApp.Settings().SetTheme(theme.DefaultTheme())

	mainApp := gui.NewApplication(myApp, cfg, opener(cfg, logger), detector, logger)
	mainApp.ShowAndRun()

	logger.Info("Application shutting down gracefully")
}

// opener picks the webcam, or a replayed still image when -fixture is set.
func opener(cfg config.Config, logger *logrus.Logger) capture.Opener {
	if cfg.FixturePath == "" {
		return capture.OpenWebcam
	}
	logger.WithField("path", cfg.FixturePath).Info("Replaying still image instead of a camera")
	return capture.FileOpener(io.NewImageLoader(logger), cfg.FixturePath, -1)
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
