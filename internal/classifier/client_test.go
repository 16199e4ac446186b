package classifier

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leonardotrapani/signcap/internal/media"
)

func testClip(t *testing.T) *media.Clip {
	t.Helper()
	clip, err := media.NewClip([]media.Chunk{{Data: []byte("webm-bytes")}}, "", "")
	if err != nil {
		t.Fatalf("NewClip() error = %v", err)
	}
	return clip
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.Endpoint != "http://localhost:5000/predict" {
		t.Errorf("unexpected default endpoint %s", config.Endpoint)
	}
	if config.Timeout != 30*time.Second {
		t.Errorf("unexpected default timeout %v", config.Timeout)
	}
}

func TestNewClientZeroTimeout(t *testing.T) {
	c := NewClient(Config{Endpoint: "http://x/predict"})
	if c.client.Timeout != 30*time.Second {
		t.Errorf("zero timeout should fall back to default, got %v", c.client.Timeout)
	}
	if c.Endpoint() != "http://x/predict" {
		t.Errorf("unexpected endpoint %s", c.Endpoint())
	}
}

func TestClassifyRequestContract(t *testing.T) {
	clip := testClip(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			return
		}
		if len(r.MultipartForm.Value) != 0 {
			t.Errorf("expected no value fields, got %v", r.MultipartForm.Value)
		}
		if len(r.MultipartForm.File) != 1 {
			t.Errorf("expected exactly one file field, got %d", len(r.MultipartForm.File))
		}

		files := r.MultipartForm.File[FieldName]
		if len(files) != 1 {
			t.Errorf("expected one %q file, got %d", FieldName, len(files))
			return
		}
		if files[0].Filename != clip.Name {
			t.Errorf("expected filename %s, got %s", clip.Name, files[0].Filename)
		}
		if ct := files[0].Header.Get("Content-Type"); ct != "video/webm" {
			t.Errorf("expected video/webm, got %s", ct)
		}

		f, _ := files[0].Open()
		data, _ := io.ReadAll(f)
		if string(data) != "webm-bytes" {
			t.Errorf("unexpected upload body %q", data)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"prediction":"Hello","confidence":92,"english_label":"Hi"}`)
	}))
	defer server.Close()

	c := NewClient(Config{Endpoint: server.URL + "/predict", Timeout: 5 * time.Second})
	pred, err := c.Classify(context.Background(), clip)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if pred.Failed() {
		t.Error("prediction should not be failed")
	}
	if pred.Prediction != "Hello" || pred.Confidence != 92 || pred.EnglishLabel != "Hi" {
		t.Errorf("unexpected prediction %+v", pred)
	}
}

func TestClassifyApplicationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"error":"no face detected"}`)
	}))
	defer server.Close()

	pred, err := NewClient(Config{Endpoint: server.URL}).Classify(context.Background(), testClip(t))
	if err != nil {
		t.Fatalf("application errors are not transport errors, got %v", err)
	}
	if !pred.Failed() || pred.Error != "no face detected" {
		t.Errorf("unexpected prediction %+v", pred)
	}
}

func TestClassifyNon2xx(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom"},
		{name: "json body still fails", status: http.StatusBadRequest, body: `{"prediction":"Hello","confidence":99}`},
		{name: "empty body", status: http.StatusBadGateway, body: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			pred, err := NewClient(Config{Endpoint: server.URL}).Classify(context.Background(), testClip(t))
			if pred != nil {
				t.Errorf("expected nil prediction, got %+v", pred)
			}
			if !IsStatusError(err) {
				t.Fatalf("expected StatusError, got %v", err)
			}

			var se *StatusError
			errors.As(err, &se)
			if se.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, se.StatusCode)
			}
		})
	}
}

func TestClassifyBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>not json</html>")
	}))
	defer server.Close()

	_, err := NewClient(Config{Endpoint: server.URL}).Classify(context.Background(), testClip(t))
	if err == nil {
		t.Fatal("expected decode error")
	}
	if IsStatusError(err) {
		t.Error("decode failure should not be a StatusError")
	}
	if !strings.Contains(err.Error(), "decode response") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestClassifyNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(Config{Endpoint: url}).Classify(context.Background(), testClip(t))
	if err == nil {
		t.Fatal("expected network error")
	}
	if !strings.Contains(err.Error(), "classifier request") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestClassifyEmptyClip(t *testing.T) {
	_, err := NewClient(DefaultConfig()).Classify(context.Background(), nil)
	if !errors.Is(err, media.ErrEmptyClip) {
		t.Errorf("expected ErrEmptyClip, got %v", err)
	}
}

func TestStatusErrorMessage(t *testing.T) {
	err := &StatusError{StatusCode: 503, Body: "down"}
	if got := err.Error(); got != "classifier returned 503 Service Unavailable: down" {
		t.Errorf("unexpected message %q", got)
	}
	err = &StatusError{StatusCode: 404}
	if got := err.Error(); got != "classifier returned 404 Not Found" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		confidence float64
		want       Severity
	}{
		{100, Nominal},
		{92, Nominal},
		{70, Nominal},
		{69.99, Warning},
		{50, Warning},
		{49.9, Critical},
		{40, Critical},
		{0, Critical},
	}

	for _, tt := range tests {
		if got := SeverityFor(tt.confidence); got != tt.want {
			t.Errorf("SeverityFor(%v) = %s, want %s", tt.confidence, got, tt.want)
		}
	}
}
