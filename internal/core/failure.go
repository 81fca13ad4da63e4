// internal/core/failure.go
// User-facing failure categories and the notifier that surfaces them
package core

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Category groups failures the way the user sees them.
type Category int

const (
	CategoryCamera Category = iota
	CategoryFrame
	CategoryFaceSearch
)

func (c Category) String() string {
	switch c {
	case CategoryCamera:
		return "camera error"
	case CategoryFrame:
		return "frame-processing error"
	case CategoryFaceSearch:
		return "face-search error"
	default:
		return "unknown error"
	}
}

// Remedy is the action suggested to the user.
func (c Category) Remedy() string {
	switch c {
	case CategoryCamera:
		return "Reconnect the camera and restart capture."
	case CategoryFrame:
		return "Restart capture."
	case CategoryFaceSearch:
		return "Retake the picture. If it keeps failing, restart capture."
	default:
		return "Restart the application."
	}
}

// Failure is a reportable error with its category.
type Failure struct {
	Category Category
	Err      error
}

// Message formats the failure for a dialog or status line.
func (f Failure) Message() string {
	if f.Err == nil {
		return fmt.Sprintf("%s. %s", f.Category, f.Category.Remedy())
	}
	return fmt.Sprintf("%s: %v. %s", f.Category, f.Err, f.Category.Remedy())
}

func (f Failure) Error() string {
	return f.Message()
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Notifier delivers failures to the user. Implementations must be safe to call
// from any goroutine.
type Notifier interface {
	Notify(Failure)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Failure)

func (fn NotifierFunc) Notify(f Failure) {
	fn(f)
}

// LogNotifier writes failures to a logger. It is the default when no UI is
// attached.
type LogNotifier struct {
	Logger logrus.FieldLogger
}

func (n LogNotifier) Notify(f Failure) {
	n.Logger.WithFields(logrus.Fields{
		"category": f.Category.String(),
		"remedy":   f.Category.Remedy(),
	}).WithError(f.Err).Error("User-visible failure")
}
