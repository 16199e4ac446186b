package tui

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/leonardotrapani/signcap/internal/config"
)

func formatCameraLabel(cfg *config.Config) string {
	return fmt.Sprintf("Camera: %s (%s)", cfg.Camera.Device, cfg.Camera.InputFormat)
}

func formatRecordingLabel(cfg *config.Config) string {
	return fmt.Sprintf("Recording: %v clips, progress every %v", cfg.Recording.Duration, cfg.Recording.Tick)
}

func formatClassifierLabel(cfg *config.Config) string {
	return "Classifier: " + cfg.Classifier.Endpoint
}

func formatLabelerLabel(cfg *config.Config) string {
	if !cfg.Labeler.Enabled {
		return "English labels: off"
	}
	return "English labels: " + cfg.Labeler.Provider
}

func formatNotificationsLabel(cfg *config.Config) string {
	return "Notifications: " + cfg.NotificationType()
}

func formatServerLabel(cfg *config.Config) string {
	if cfg.Server.Listen == "" {
		return "Browser surface: off"
	}
	return "Browser surface: " + cfg.Server.Listen
}

func summary(cfg *config.Config) string {
	var b strings.Builder
	b.WriteString(StyleHeader.Render("Summary"))
	b.WriteString("\n")
	for _, line := range []string{
		formatCameraLabel(cfg),
		formatRecordingLabel(cfg),
		formatClassifierLabel(cfg),
		formatLabelerLabel(cfg),
		formatNotificationsLabel(cfg),
		formatServerLabel(cfg),
	} {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

func formatSize(width, height int) string {
	if width == 0 && height == 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", width, height)
}

func parseSize(s string) (int, int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, nil
	}
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("size must look like 640x480")
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("invalid width %q", w)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("invalid height %q", h)
	}
	return width, height, nil
}

func validateRequired(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("required")
	}
	return nil
}

func validateNonNegativeInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return fmt.Errorf("must be a whole number >= 0")
	}
	return nil
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid duration (use e.g. 2s, 50ms)")
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	return nil
}

func validateEndpoint(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an http or https URL")
	}
	return nil
}

func applyCamera(cfg *config.Config, device, format, size, framerate string) error {
	width, height, err := parseSize(size)
	if err != nil {
		return err
	}
	fps, err := strconv.Atoi(strings.TrimSpace(framerate))
	if err != nil {
		return fmt.Errorf("invalid framerate: %w", err)
	}

	cfg.Camera.Device = strings.TrimSpace(device)
	cfg.Camera.InputFormat = format
	cfg.Camera.Width = width
	cfg.Camera.Height = height
	cfg.Camera.Framerate = fps
	return nil
}

func applyRecording(cfg *config.Config, duration, tick string) error {
	d, err := time.ParseDuration(strings.TrimSpace(duration))
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	t, err := time.ParseDuration(strings.TrimSpace(tick))
	if err != nil {
		return fmt.Errorf("invalid progress interval: %w", err)
	}
	if t > d {
		return fmt.Errorf("progress interval %v is longer than the clip %v", t, d)
	}

	cfg.Recording.Duration = d
	cfg.Recording.Tick = t
	return nil
}

func applyClassifier(cfg *config.Config, endpoint, timeout string) error {
	if err := validateEndpoint(endpoint); err != nil {
		return err
	}
	t, err := time.ParseDuration(strings.TrimSpace(timeout))
	if err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}

	cfg.Classifier.Endpoint = strings.TrimSpace(endpoint)
	cfg.Classifier.Timeout = t
	return nil
}
