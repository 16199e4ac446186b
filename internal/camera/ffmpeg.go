package camera

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultBinary       = "ffmpeg"
	defaultProbeTimeout = 5 * time.Second
)

// FFmpegSource opens cameras through an ffmpeg subprocess.
type FFmpegSource struct {
	config       Config
	binary       string
	probeTimeout time.Duration
}

func NewFFmpegSource(config Config) *FFmpegSource {
	return &FFmpegSource{
		config:       config,
		binary:       defaultBinary,
		probeTimeout: defaultProbeTimeout,
	}
}

// WithBinary overrides the ffmpeg executable, mostly for tests.
func (s *FFmpegSource) WithBinary(binary string) *FFmpegSource {
	s.binary = binary
	return s
}

func (s *FFmpegSource) Acquire(ctx context.Context) (Stream, error) {
	if err := s.config.validate(); err != nil {
		return nil, err
	}

	bin, err := exec.LookPath(s.binary)
	if err != nil {
		return nil, fmt.Errorf("%s not found: %w (install ffmpeg)", s.binary, err)
	}

	if s.config.InputFormat == "v4l2" {
		if _, err := os.Stat(s.config.Device); err != nil {
			return nil, fmt.Errorf("camera device %s unavailable: %w", s.config.Device, err)
		}
	}

	if err := s.probe(ctx, bin); err != nil {
		return nil, err
	}

	info := Info{
		Device:      s.config.Device,
		InputFormat: s.config.InputFormat,
		Width:       s.config.Width,
		Height:      s.config.Height,
		Framerate:   s.config.Framerate,
	}
	log.Printf("Camera: acquired %s", info)

	return &ffmpegStream{config: s.config, binary: bin, info: info}, nil
}

// probe grabs a single frame so permission and busy-device problems surface
// at acquisition instead of at the first recording.
func (s *FFmpegSource) probe(ctx context.Context, bin string) error {
	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	args := append([]string{"-hide_banner", "-loglevel", "error"}, inputArgs(s.config)...)
	args = append(args, "-frames:v", "1", "-f", "null", "-")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(probeCtx, bin, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if reason := lastLine(stderr.String()); reason != "" {
			return fmt.Errorf("camera probe failed: %s", reason)
		}
		return fmt.Errorf("camera probe failed: %w", err)
	}
	return nil
}

type ffmpegStream struct {
	config Config
	binary string
	info   Info
	closed atomic.Bool

	mu       sync.Mutex
	recorder *FFmpegRecorder
}

func (s *ffmpegStream) Info() Info {
	return s.info
}

func (s *ffmpegStream) NewRecorder() Recorder {
	r := &FFmpegRecorder{
		config: s.config,
		binary: s.binary,
		closed: s.closed.Load,
	}
	s.mu.Lock()
	s.recorder = r
	s.mu.Unlock()
	return r
}

func (s *ffmpegStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.mu.Lock()
	r := s.recorder
	s.mu.Unlock()
	if r != nil {
		_ = r.Stop()
		r.Wait()
	}
	log.Printf("Camera: released %s", s.info.Device)
	return nil
}

func inputArgs(c Config) []string {
	args := []string{"-f", c.InputFormat}
	if c.Width > 0 && c.Height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", c.Width, c.Height))
	}
	if c.Framerate > 0 {
		args = append(args, "-framerate", strconv.Itoa(c.Framerate))
	}
	return append(args, "-i", c.Device)
}

func recordArgs(c Config) []string {
	args := append([]string{"-hide_banner", "-loglevel", "error", "-nostats"}, inputArgs(c)...)
	args = append(args, "-an", "-c:v", c.Codec)
	if c.Codec == "libvpx" || c.Codec == "libvpx-vp9" {
		args = append(args, "-deadline", "realtime")
	}
	if c.Bitrate != "" {
		args = append(args, "-b:v", c.Bitrate)
	}
	return append(args, "-f", "webm", "-")
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
