package controller

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leonardotrapani/signcap/internal/camera"
	"github.com/leonardotrapani/signcap/internal/classifier"
	"github.com/leonardotrapani/signcap/internal/labeler"
	"github.com/leonardotrapani/signcap/internal/media"
	"github.com/leonardotrapani/signcap/internal/metrics"
	"github.com/leonardotrapani/signcap/internal/preview"
)

type State string

const (
	Uninitialized State = "uninitialized"
	Ready         State = "ready"
	Recording     State = "recording"
	Uploading     State = "uploading"
	Failed        State = "failed"
)

const (
	TextRecording  = "Recording…"
	TextPredicting = "Predicting…"
	NoticeNotReady = "Camera is not ready yet"
	alertPrefix    = "Could not access webcam: "
)

var (
	ErrAlreadyRunning = errors.New("controller already running")
	ErrStopped        = errors.New("controller stopped")
)

type Classifier interface {
	Classify(ctx context.Context, clip *media.Clip) (*classifier.Prediction, error)
}

type PreviewStore interface {
	Save(clip *media.Clip) (preview.Handle, error)
	Release(h preview.Handle) error
}

// Settings are read at the start of every recording session.
type Settings struct {
	Duration time.Duration
	Tick     time.Duration
}

func DefaultSettings() Settings {
	return Settings{Duration: 2 * time.Second, Tick: 50 * time.Millisecond}
}

type Options struct {
	Source     camera.Source
	Classifier Classifier
	// Previews and Labeler are optional.
	Previews PreviewStore
	Labeler  labeler.Labeler
	Surface  Surface
	Settings func() Settings
}

type acquireResult struct {
	stream camera.Stream
	err    error
}

type uploadResult struct {
	clip       *media.Clip
	prediction *classifier.Prediction
	err        error
	duration   time.Duration
}

// Controller drives one camera through record, upload and render cycles.
// Everything except Status, LastResult and Trigger runs on the Run loop.
type Controller struct {
	source     camera.Source
	classifier Classifier
	previews   PreviewStore
	labeler    labeler.Labeler
	surface    Surface
	settings   func() Settings

	state     atomic.Value
	started   atomic.Bool
	triggerCh chan chan State
	done      chan struct{}

	resultMu   sync.RWMutex
	lastResult *Result

	// loop-owned
	stream        camera.Stream
	recorder      camera.Recorder
	chunkCh       <-chan media.Chunk
	chunks        []media.Chunk
	ticker        *time.Ticker
	stopTimer     *time.Timer
	sessionStart  time.Time
	window        time.Duration
	progress      float64
	sessionCancel context.CancelFunc
	current       preview.Handle
	uploadCh      chan uploadResult
}

func New(opts Options) *Controller {
	c := &Controller{
		source:     opts.Source,
		classifier: opts.Classifier,
		previews:   opts.Previews,
		labeler:    opts.Labeler,
		surface:    opts.Surface,
		settings:   opts.Settings,
		triggerCh:  make(chan chan State),
		done:       make(chan struct{}),
		uploadCh:   make(chan uploadResult, 1),
	}
	if c.surface == nil {
		c.surface = NopSurface{}
	}
	if c.settings == nil {
		c.settings = DefaultSettings
	}
	c.state.Store(Uninitialized)
	return c
}

func (c *Controller) Status() State {
	return c.state.Load().(State)
}

// LastResult returns the most recently rendered result, if any.
func (c *Controller) LastResult() (Result, bool) {
	c.resultMu.RLock()
	defer c.resultMu.RUnlock()
	if c.lastResult == nil {
		return Result{}, false
	}
	return *c.lastResult, true
}

// Done is closed when Run returns.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Trigger asks the loop to start a recording and returns the state after
// the request was handled. It blocks until Run is serving requests.
func (c *Controller) Trigger(ctx context.Context) (State, error) {
	reply := make(chan State, 1)
	select {
	case c.triggerCh <- reply:
	case <-c.done:
		return c.Status(), ErrStopped
	case <-ctx.Done():
		return c.Status(), ctx.Err()
	}

	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return c.Status(), ctx.Err()
	}
}

// Run acquires the camera and serves triggers until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	if c.started.Swap(true) {
		return ErrAlreadyRunning
	}
	defer close(c.done)

	acquired := make(chan acquireResult, 1)
	go func() {
		stream, err := c.source.Acquire(ctx)
		acquired <- acquireResult{stream: stream, err: err}
	}()

	for {
		var tickC, stopC <-chan time.Time
		if c.ticker != nil {
			tickC = c.ticker.C
		}
		if c.stopTimer != nil {
			stopC = c.stopTimer.C
		}

		select {
		case <-ctx.Done():
			c.teardown(acquired)
			return nil

		case res := <-acquired:
			acquired = nil
			c.onAcquired(res)

		case reply := <-c.triggerCh:
			c.onTrigger(ctx)
			reply <- c.Status()

		case chunk, ok := <-c.chunkCh:
			if !ok {
				c.onRecorderStopped(ctx)
				continue
			}
			c.chunks = append(c.chunks, chunk)

		case now := <-tickC:
			c.onTick(now)

		case <-stopC:
			c.onStopTimer()

		case res := <-c.uploadCh:
			c.onUploaded(res)
		}
	}
}

func (c *Controller) setState(s State) {
	prev := c.Status()
	if prev == s {
		return
	}
	c.state.Store(s)
	log.Printf("Controller: %s -> %s", prev, s)
}

func (c *Controller) onAcquired(res acquireResult) {
	if res.err != nil {
		log.Printf("Controller: camera acquisition failed: %v", res.err)
		c.setState(Failed)
		c.surface.Alert(alertPrefix + res.err.Error())
		return
	}

	c.stream = res.stream
	c.recorder = res.stream.NewRecorder()
	log.Printf("Controller: camera ready (%s)", res.stream.Info())
	c.surface.ShowLive(res.stream.Info())
	c.setState(Ready)
	c.surface.SetTriggerEnabled(true)
}

func (c *Controller) onTrigger(ctx context.Context) {
	state := c.Status()
	switch state {
	case Uninitialized, Failed:
		metrics.RecordIgnoredTrigger(string(state))
		c.surface.Notice(NoticeNotReady)
		return
	case Recording, Uploading:
		metrics.RecordIgnoredTrigger(string(state))
		log.Printf("Controller: trigger ignored while %s", state)
		return
	}

	settings := c.sessionSettings()

	c.chunks = nil
	c.surface.SetText(TextRecording)
	c.progress = 0
	c.surface.SetProgress(0)
	c.surface.SetTriggerEnabled(false)

	sessionCtx, cancel := context.WithCancel(ctx)
	chunkCh, err := c.recorder.Start(sessionCtx)
	if err != nil {
		cancel()
		log.Printf("Controller: failed to start recorder: %v", err)
		metrics.RecordSession(string(OutcomeRecordError))
		c.finish(recordingFailure(err))
		return
	}

	c.sessionCancel = cancel
	c.chunkCh = chunkCh
	c.window = settings.Duration
	c.sessionStart = time.Now()
	c.ticker = time.NewTicker(settings.Tick)
	c.stopTimer = time.NewTimer(settings.Duration)
	c.setState(Recording)
	log.Printf("Controller: recording %v clip", settings.Duration)
}

func (c *Controller) sessionSettings() Settings {
	s := c.settings()
	def := DefaultSettings()
	if s.Duration <= 0 {
		s.Duration = def.Duration
	}
	if s.Tick <= 0 {
		s.Tick = def.Tick
	}
	return s
}

func (c *Controller) onTick(now time.Time) {
	pct := float64(now.Sub(c.sessionStart)) / float64(c.window) * 100
	if pct > 100 {
		pct = 100
	}
	if pct <= c.progress {
		return
	}
	c.progress = pct
	c.surface.SetProgress(pct)
}

func (c *Controller) stopTimers() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
	if c.stopTimer != nil {
		c.stopTimer.Stop()
		c.stopTimer = nil
	}
}

// enterUploading is the visible end of a recording: full bar, trigger
// re-enabled, awaiting the classifier.
func (c *Controller) enterUploading() {
	c.progress = 100
	c.surface.SetProgress(100)
	c.surface.SetTriggerEnabled(true)
	c.surface.SetText(TextPredicting)
	c.setState(Uploading)
}

func (c *Controller) onStopTimer() {
	c.stopTimers()
	if err := c.recorder.Stop(); err != nil {
		log.Printf("Controller: failed to stop recorder: %v", err)
	}
	c.enterUploading()
}

// onRecorderStopped handles the close of the chunk channel.
func (c *Controller) onRecorderStopped(ctx context.Context) {
	c.chunkCh = nil
	if c.sessionCancel != nil {
		c.sessionCancel()
		c.sessionCancel = nil
	}

	early := c.Status() == Recording
	if early {
		log.Printf("Controller: recorder ended before the stop timer")
		c.stopTimers()
	}

	if err := c.recorder.Err(); err != nil {
		c.chunks = nil
		log.Printf("Controller: recording failed: %v", err)
		metrics.RecordSession(string(OutcomeRecordError))
		c.finish(recordingFailure(err))
		return
	}

	clip, err := media.NewClip(c.chunks, media.DefaultMimeType, media.DefaultExtension)
	c.chunks = nil
	if err != nil {
		log.Printf("Controller: %v", err)
		metrics.RecordSession(string(OutcomeRecordError))
		c.finish(recordingFailure(err))
		return
	}

	if early {
		c.enterUploading()
	}

	log.Printf("Controller: assembled %s from %d chunks (%d bytes)", clip.Name, clip.Chunks, clip.Size())
	metrics.RecordClip(clip.Size())
	c.showPreview(clip)
	c.upload(ctx, clip)
}

func (c *Controller) showPreview(clip *media.Clip) {
	if c.previews == nil {
		return
	}

	h, err := c.previews.Save(clip)
	if err != nil {
		log.Printf("Controller: failed to save preview: %v", err)
		return
	}

	previous := c.current
	c.current = h
	c.surface.ShowClip(h)

	if !previous.IsZero() {
		if err := c.previews.Release(previous); err != nil {
			log.Printf("Controller: failed to release preview %s: %v", previous.ID, err)
		}
	}
}

func (c *Controller) upload(ctx context.Context, clip *media.Clip) {
	go func() {
		start := time.Now()
		pred, err := c.classifier.Classify(ctx, clip)
		if err == nil && pred != nil && !pred.Failed() && pred.EnglishLabel == "" && c.labeler != nil {
			label, lerr := c.labeler.Label(ctx, pred.Prediction)
			if lerr != nil {
				log.Printf("Controller: labeler failed: %v", lerr)
			} else {
				pred.EnglishLabel = label
			}
		}
		c.uploadCh <- uploadResult{clip: clip, prediction: pred, err: err, duration: time.Since(start)}
	}()
}

func (c *Controller) onUploaded(res uploadResult) {
	result := Render(res.prediction, res.err)
	result.ClipName = res.clip.Name

	if res.err != nil {
		log.Printf("Controller: classification of %s failed: %v", res.clip.Name, res.err)
	} else {
		log.Printf("Controller: %s classified in %v: %s", res.clip.Name, res.duration, result.Title())
	}

	metrics.RecordUpload(string(result.Outcome), res.duration.Seconds())
	metrics.RecordSession(string(result.Outcome))
	c.finish(result)
}

func (c *Controller) finish(result Result) {
	c.resultMu.Lock()
	c.lastResult = &result
	c.resultMu.Unlock()

	c.surface.ShowResult(result)
	c.setState(Ready)
	c.surface.SetTriggerEnabled(true)
}

func (c *Controller) teardown(acquired <-chan acquireResult) {
	log.Printf("Controller: shutting down")
	c.stopTimers()

	if c.chunkCh != nil {
		if err := c.recorder.Stop(); err != nil {
			log.Printf("Controller: failed to stop recorder: %v", err)
		}
		for range c.chunkCh {
		}
		c.chunkCh = nil
	}
	if c.sessionCancel != nil {
		c.sessionCancel()
		c.sessionCancel = nil
	}

	if c.previews != nil && !c.current.IsZero() {
		if err := c.previews.Release(c.current); err != nil {
			log.Printf("Controller: failed to release preview: %v", err)
		}
		c.current = preview.Handle{}
	}

	// Acquisition may still be in flight; it honours ctx.
	if acquired != nil {
		if res := <-acquired; res.err == nil {
			c.stream = res.stream
		}
	}
	if c.stream != nil {
		if err := c.stream.Close(); err != nil {
			log.Printf("Controller: failed to close camera stream: %v", err)
		}
		c.stream = nil
	}
}
