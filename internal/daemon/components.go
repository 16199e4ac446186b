package daemon

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/leonardotrapani/signcap/internal/camera"
	"github.com/leonardotrapani/signcap/internal/classifier"
	"github.com/leonardotrapani/signcap/internal/config"
	"github.com/leonardotrapani/signcap/internal/controller"
	"github.com/leonardotrapani/signcap/internal/labeler"
	"github.com/leonardotrapani/signcap/internal/media"
	"github.com/leonardotrapani/signcap/internal/notify"
	"github.com/leonardotrapani/signcap/internal/preview"
)

// reloadingClassifier always classifies with the client built from the
// latest valid configuration.
type reloadingClassifier struct {
	client atomic.Pointer[classifier.Client]
}

func newReloadingClassifier(cfg *config.Config) *reloadingClassifier {
	r := &reloadingClassifier{}
	r.apply(cfg)
	return r
}

func (r *reloadingClassifier) apply(cfg *config.Config) {
	client := classifier.NewClient(cfg.ToClassifierConfig())
	r.client.Store(client)
	log.Printf("Daemon: classifier endpoint %s", client.Endpoint())
}

func (r *reloadingClassifier) Classify(ctx context.Context, clip *media.Clip) (*classifier.Prediction, error) {
	return r.client.Load().Classify(ctx, clip)
}

type labelerHolder struct {
	l labeler.Labeler
}

// reloadingLabeler returns an empty label while labeling is disabled.
type reloadingLabeler struct {
	current atomic.Pointer[labelerHolder]
}

func newReloadingLabeler(cfg *config.Config) *reloadingLabeler {
	r := &reloadingLabeler{}
	r.apply(cfg)
	return r
}

func (r *reloadingLabeler) apply(cfg *config.Config) {
	if !cfg.IsLabelerEnabled() {
		r.current.Store(&labelerHolder{})
		return
	}
	l, err := labeler.New(cfg.ToLabelerConfig())
	if err != nil {
		log.Printf("Daemon: labeler disabled: %v", err)
		r.current.Store(&labelerHolder{})
		return
	}
	r.current.Store(&labelerHolder{l: l})
	log.Printf("Daemon: labeler enabled (%s)", cfg.Labeler.Provider)
}

func (r *reloadingLabeler) Label(ctx context.Context, prediction string) (string, error) {
	h := r.current.Load()
	if h == nil || h.l == nil {
		return "", nil
	}
	return h.l.Label(ctx, prediction)
}

type notifierHolder struct {
	n notify.Notifier
}

// notifySurface presents alerts, notices and results through a
// notify.Notifier. Progress and text updates only go to the log.
type notifySurface struct {
	current atomic.Pointer[notifierHolder]
}

func newNotifySurface(n notify.Notifier) *notifySurface {
	s := &notifySurface{}
	s.set(n)
	return s
}

func (s *notifySurface) set(n notify.Notifier) {
	if n == nil {
		n = notify.Nop{}
	}
	s.current.Store(&notifierHolder{n: n})
}

func (s *notifySurface) notifier() notify.Notifier {
	return s.current.Load().n
}

func (s *notifySurface) SetText(text string) {
	log.Printf("Daemon: %s", text)
}

func (s *notifySurface) SetProgress(float64)     {}
func (s *notifySurface) SetTriggerEnabled(bool)  {}
func (s *notifySurface) ShowClip(preview.Handle) {}

func (s *notifySurface) ShowLive(info camera.Info) {
	log.Printf("Daemon: camera live: %s", info)
}

func (s *notifySurface) ShowResult(r controller.Result) {
	title := r.Title()
	body := ""
	if r.EnglishLabel != "" {
		body = "English: " + r.EnglishLabel
	}
	if r.Failed() {
		title = "Signcap"
		body = r.Text
	}
	s.notifier().Result(title, body, urgencyFor(r))
}

func (s *notifySurface) Alert(msg string) {
	s.notifier().Alert(msg)
}

func (s *notifySurface) Notice(msg string) {
	s.notifier().Notice(msg)
}

func urgencyFor(r controller.Result) notify.Urgency {
	if r.Failed() {
		return notify.Critical
	}
	switch r.Severity {
	case classifier.Nominal:
		return notify.Low
	case classifier.Warning:
		return notify.Normal
	default:
		return notify.Critical
	}
}

func settingsFrom(mgr *config.Manager) func() controller.Settings {
	return func() controller.Settings {
		cfg := mgr.GetConfig()
		return controller.Settings{
			Duration: cfg.Recording.Duration,
			Tick:     cfg.Recording.Tick,
		}
	}
}
