package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leonardotrapani/signcap/internal/camera"
	"github.com/leonardotrapani/signcap/internal/classifier"
	"github.com/leonardotrapani/signcap/internal/config"
	"github.com/leonardotrapani/signcap/internal/controller"
	"github.com/leonardotrapani/signcap/internal/media"
	"github.com/leonardotrapani/signcap/internal/preview"
)

// TestConfig returns a valid configuration for testing
func TestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Notifications.Type = "log"
	cfg.Classifier.Endpoint = "http://127.0.0.1:5000/predict"
	return cfg
}

// CreateTempConfigFile creates a temporary config file for testing
func CreateTempConfigFile(t *testing.T, configContent string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Condition not met within %v", timeout)
		default:
			if condition() {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// MockChunk creates a chunk with the given payload
func MockChunk(data string) media.Chunk {
	return media.Chunk{Data: []byte(data), Timestamp: time.Now()}
}

// MockSource implements camera.Source. Acquire blocks on Gate when set.
type MockSource struct {
	Stream *MockStream
	Err    error
	Gate   chan struct{}

	calls atomic.Int32
}

func NewMockSource(rec *MockRecorder) *MockSource {
	return &MockSource{Stream: NewMockStream(rec)}
}

func (m *MockSource) Acquire(ctx context.Context) (camera.Stream, error) {
	m.calls.Add(1)
	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Stream, nil
}

func (m *MockSource) Calls() int {
	return int(m.calls.Load())
}

// MockStream implements camera.Stream
type MockStream struct {
	InfoValue camera.Info
	Recorder  *MockRecorder

	closed atomic.Bool
}

func NewMockStream(rec *MockRecorder) *MockStream {
	return &MockStream{
		InfoValue: camera.Info{Device: "/dev/video-test", InputFormat: "v4l2", Width: 640, Height: 480, Framerate: 30},
		Recorder:  rec,
	}
}

func (m *MockStream) Info() camera.Info            { return m.InfoValue }
func (m *MockStream) NewRecorder() camera.Recorder { return m.Recorder }

func (m *MockStream) Close() error {
	m.closed.Store(true)
	return nil
}

func (m *MockStream) Closed() bool {
	return m.closed.Load()
}

// MockRecorder implements camera.Recorder. Chunks are delivered once per
// session; the channel stays open until Stop unless EndEarly is set.
type MockRecorder struct {
	Chunks     []media.Chunk
	StartError error
	// FailErr is reported by Err once a session ends.
	FailErr  error
	EndEarly bool

	mu     sync.Mutex
	stopCh chan struct{}
	err    error
	starts atomic.Int32
	stops  atomic.Int32
}

func NewMockRecorder(chunks ...string) *MockRecorder {
	m := &MockRecorder{}
	for _, c := range chunks {
		m.Chunks = append(m.Chunks, MockChunk(c))
	}
	return m
}

func (m *MockRecorder) Start(ctx context.Context) (<-chan media.Chunk, error) {
	if m.StartError != nil {
		return nil, m.StartError
	}
	m.starts.Add(1)

	stopCh := make(chan struct{})
	m.mu.Lock()
	m.stopCh = stopCh
	m.err = nil
	m.mu.Unlock()

	chunkCh := make(chan media.Chunk, len(m.Chunks)+1)
	go func() {
		defer close(chunkCh)
		defer func() {
			m.mu.Lock()
			m.err = m.FailErr
			m.mu.Unlock()
		}()

		for _, chunk := range m.Chunks {
			chunkCh <- chunk
		}
		if m.EndEarly {
			return
		}

		select {
		case <-ctx.Done():
		case <-stopCh:
		}
	}()

	return chunkCh, nil
}

func (m *MockRecorder) Stop() error {
	m.stops.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopCh != nil {
		close(m.stopCh)
		m.stopCh = nil
	}
	return nil
}

func (m *MockRecorder) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *MockRecorder) Starts() int { return int(m.starts.Load()) }
func (m *MockRecorder) Stops() int  { return int(m.stops.Load()) }

// MockClassifier implements controller.Classifier. Classify blocks on Gate when set.
type MockClassifier struct {
	Prediction *classifier.Prediction
	Err        error
	Gate       chan struct{}

	mu    sync.Mutex
	clips []*media.Clip
}

func NewMockClassifier(prediction string, confidence float64) *MockClassifier {
	return &MockClassifier{Prediction: &classifier.Prediction{Prediction: prediction, Confidence: confidence}}
}

func (m *MockClassifier) Classify(ctx context.Context, clip *media.Clip) (*classifier.Prediction, error) {
	m.mu.Lock()
	m.clips = append(m.clips, clip)
	m.mu.Unlock()

	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	p := *m.Prediction
	return &p, nil
}

func (m *MockClassifier) Clips() []*media.Clip {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*media.Clip(nil), m.clips...)
}

// MockLabeler implements labeler.Labeler
type MockLabeler struct {
	Gloss string
	Err   error

	calls atomic.Int32
}

func (m *MockLabeler) Label(ctx context.Context, prediction string) (string, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Gloss, nil
}

func (m *MockLabeler) Calls() int { return int(m.calls.Load()) }

// MockPreviewStore implements controller.PreviewStore in memory
type MockPreviewStore struct {
	SaveError error
	// OnRelease runs before a release is recorded.
	OnRelease func(h preview.Handle)

	mu       sync.Mutex
	saved    []preview.Handle
	released []preview.Handle
}

func (m *MockPreviewStore) Save(clip *media.Clip) (preview.Handle, error) {
	if m.SaveError != nil {
		return preview.Handle{}, m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h := preview.Handle{
		ID:       fmt.Sprintf("preview-%d", len(m.saved)+1),
		Path:     "/previews/" + clip.Name,
		MimeType: clip.MimeType,
		Size:     clip.Size(),
	}
	m.saved = append(m.saved, h)
	return h, nil
}

func (m *MockPreviewStore) Release(h preview.Handle) error {
	if m.OnRelease != nil {
		m.OnRelease(h)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = append(m.released, h)
	return nil
}

func (m *MockPreviewStore) Saved() []preview.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]preview.Handle(nil), m.saved...)
}

func (m *MockPreviewStore) Released() []preview.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]preview.Handle(nil), m.released...)
}

// Event is one call observed by RecordingSurface
type Event struct {
	Kind  string
	Value any
}

// RecordingSurface implements controller.Surface and keeps every call in order
type RecordingSurface struct {
	mu     sync.Mutex
	events []Event
}

func (s *RecordingSurface) add(kind string, v any) {
	s.mu.Lock()
	s.events = append(s.events, Event{Kind: kind, Value: v})
	s.mu.Unlock()
}

func (s *RecordingSurface) SetText(text string)            { s.add("text", text) }
func (s *RecordingSurface) SetProgress(percent float64)    { s.add("progress", percent) }
func (s *RecordingSurface) SetTriggerEnabled(enabled bool) { s.add("trigger", enabled) }
func (s *RecordingSurface) ShowLive(info camera.Info)      { s.add("live", info) }
func (s *RecordingSurface) ShowClip(h preview.Handle)      { s.add("clip", h) }
func (s *RecordingSurface) ShowResult(r controller.Result) { s.add("result", r) }
func (s *RecordingSurface) Alert(msg string)               { s.add("alert", msg) }
func (s *RecordingSurface) Notice(msg string)              { s.add("notice", msg) }

func (s *RecordingSurface) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func (s *RecordingSurface) Kinds() []string {
	var kinds []string
	for _, e := range s.Events() {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func (s *RecordingSurface) Texts() []string {
	return collect[string](s, "text")
}

func (s *RecordingSurface) Progress() []float64 {
	return collect[float64](s, "progress")
}

func (s *RecordingSurface) TriggerStates() []bool {
	return collect[bool](s, "trigger")
}

func (s *RecordingSurface) Results() []controller.Result {
	return collect[controller.Result](s, "result")
}

func (s *RecordingSurface) Clips() []preview.Handle {
	return collect[preview.Handle](s, "clip")
}

func (s *RecordingSurface) Alerts() []string {
	return collect[string](s, "alert")
}

func (s *RecordingSurface) Notices() []string {
	return collect[string](s, "notice")
}

func (s *RecordingSurface) Live() []camera.Info {
	return collect[camera.Info](s, "live")
}

func collect[T any](s *RecordingSurface, kind string) []T {
	var out []T
	for _, e := range s.Events() {
		if e.Kind == kind {
			out = append(out, e.Value.(T))
		}
	}
	return out
}
