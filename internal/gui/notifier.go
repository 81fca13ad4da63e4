package gui

import (
	"errors"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"github.com/sirupsen/logrus"

	"webcam-face-snapshot/internal/core"
)

// dialogNotifier logs every failure and shows it in an error dialog. While a
// dialog for a category is open, further failures of that category are only
// logged.
type dialogNotifier struct {
	window fyne.Window
	logger logrus.FieldLogger

	mu   sync.Mutex
	open map[core.Category]bool

	onFailure func(core.Failure)
}

func newDialogNotifier(window fyne.Window, logger logrus.FieldLogger) *dialogNotifier {
	return &dialogNotifier{
		window: window,
		logger: logger,
		open:   make(map[core.Category]bool),
	}
}

// Notify may be called from any goroutine.
func (n *dialogNotifier) Notify(f core.Failure) {
	core.LogNotifier{Logger: n.logger}.Notify(f)

	if n.onFailure != nil {
		n.onFailure(f)
	}

	n.mu.Lock()
	if n.open[f.Category] {
		n.mu.Unlock()
		return
	}
	n.open[f.Category] = true
	n.mu.Unlock()

	fyne.Do(func() {
		d := dialog.NewError(errors.New(f.Message()), n.window)
		d.SetOnClosed(func() {
			n.mu.Lock()
			delete(n.open, f.Category)
			n.mu.Unlock()
		})
		d.Show()
	})
}
