package controller

import (
	"github.com/leonardotrapani/signcap/internal/camera"
	"github.com/leonardotrapani/signcap/internal/preview"
)

// Surface is everything the controller needs from a user interface.
// Methods are called from the controller loop and must not block for long.
type Surface interface {
	SetText(text string)
	// SetProgress takes a percentage in [0, 100].
	SetProgress(percent float64)
	SetTriggerEnabled(enabled bool)
	ShowLive(info camera.Info)
	ShowClip(h preview.Handle)
	ShowResult(r Result)
	// Alert is a notice the user has to acknowledge.
	Alert(msg string)
	// Notice is transient.
	Notice(msg string)
}

type NopSurface struct{}

func (NopSurface) SetText(string)          {}
func (NopSurface) SetProgress(float64)     {}
func (NopSurface) SetTriggerEnabled(bool)  {}
func (NopSurface) ShowLive(camera.Info)    {}
func (NopSurface) ShowClip(preview.Handle) {}
func (NopSurface) ShowResult(Result)       {}
func (NopSurface) Alert(string)            {}
func (NopSurface) Notice(string)           {}

// Multi fans every call out to all surfaces, in order.
type Multi []Surface

func (m Multi) SetText(text string) {
	for _, s := range m {
		s.SetText(text)
	}
}

func (m Multi) SetProgress(percent float64) {
	for _, s := range m {
		s.SetProgress(percent)
	}
}

func (m Multi) SetTriggerEnabled(enabled bool) {
	for _, s := range m {
		s.SetTriggerEnabled(enabled)
	}
}

func (m Multi) ShowLive(info camera.Info) {
	for _, s := range m {
		s.ShowLive(info)
	}
}

func (m Multi) ShowClip(h preview.Handle) {
	for _, s := range m {
		s.ShowClip(h)
	}
}

func (m Multi) ShowResult(r Result) {
	for _, s := range m {
		s.ShowResult(r)
	}
}

func (m Multi) Alert(msg string) {
	for _, s := range m {
		s.Alert(msg)
	}
}

func (m Multi) Notice(msg string) {
	for _, s := range m {
		s.Notice(msg)
	}
}
