//go:build integration

package main

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/leonardotrapani/signcap/internal/camera"
	"github.com/leonardotrapani/signcap/internal/classifier"
	"github.com/leonardotrapani/signcap/internal/config"
	"github.com/leonardotrapani/signcap/internal/controller"
	"github.com/leonardotrapani/signcap/internal/media"
)

const testTimeout = 45 * time.Second

// SIGNCAP_TEST_CLIP points at a short recorded sign; the classifier named in
// the user's config must be running.
func TestClassifyRecordedClip(t *testing.T) {
	path := os.Getenv("SIGNCAP_TEST_CLIP")
	if path == "" {
		t.Skip("SIGNCAP_TEST_CLIP not set")
	}

	cfg := loadTestConfig(t)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read clip: %v", err)
	}
	clip, err := media.NewClip([]media.Chunk{{Data: data}}, "", ".webm")
	if err != nil {
		t.Fatalf("NewClip() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	pred, err := classifier.NewClient(cfg.ToClassifierConfig()).Classify(ctx, clip)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	result := controller.Render(pred, nil)
	t.Logf("%s", result.Text)
	if result.Failed() {
		t.Errorf("classifier rejected the clip: %s", result.Text)
	}
}

// Records a real clip from the configured camera.
func TestCameraRecordsClip(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found")
	}
	cfg := loadTestConfig(t)
	if _, err := os.Stat(cfg.Camera.Device); err != nil {
		t.Skipf("camera %s not available", cfg.Camera.Device)
	}

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	stream, err := camera.NewFFmpegSource(cfg.ToCameraConfig()).Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer stream.Close()

	rec := stream.NewRecorder()
	chunks, err := rec.Start(ctx)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	time.AfterFunc(config.DefaultDuration, func() { rec.Stop() })

	var collected []media.Chunk
	for c := range chunks {
		collected = append(collected, c)
	}
	if err := rec.Err(); err != nil {
		t.Fatalf("recorder error = %v", err)
	}

	clip, err := media.NewClip(collected, "", "")
	if err != nil {
		t.Fatalf("NewClip() error = %v", err)
	}
	t.Logf("recorded %d bytes in %d chunks", clip.Size(), clip.Chunks)
}

func loadTestConfig(t *testing.T) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		t.Skipf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Skipf("invalid config: %v", err)
	}
	return cfg
}
