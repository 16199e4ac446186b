package camera

import (
	"context"
	"fmt"

	"github.com/leonardotrapani/signcap/internal/media"
)

// Source acquires a live video-only stream from a camera.
type Source interface {
	Acquire(ctx context.Context) (Stream, error)
}

// Stream is a live camera feed. It stays valid until Close.
type Stream interface {
	Info() Info
	NewRecorder() Recorder
	Close() error
}

// Recorder captures chunks from the stream it was created from.
// The channel returned by Start is closed once the recording has fully
// stopped; Err reports why it stopped, if it was not a clean stop.
type Recorder interface {
	Start(ctx context.Context) (<-chan media.Chunk, error)
	Stop() error
	Err() error
}

type Info struct {
	Device      string
	InputFormat string
	Width       int
	Height      int
	Framerate   int
}

func (i Info) String() string {
	if i.Width > 0 && i.Height > 0 {
		return fmt.Sprintf("%s %dx%d@%d", i.Device, i.Width, i.Height, i.Framerate)
	}
	return i.Device
}

type Config struct {
	Device            string
	InputFormat       string
	Width             int
	Height            int
	Framerate         int
	Codec             string
	Bitrate           string
	BufferSize        int
	ChannelBufferSize int
}

func DefaultConfig() Config {
	return Config{
		Device:            "/dev/video0",
		InputFormat:       "v4l2",
		Width:             640,
		Height:            480,
		Framerate:         30,
		Codec:             "libvpx",
		Bitrate:           "1M",
		BufferSize:        32 * 1024,
		ChannelBufferSize: 256,
	}
}

func (c Config) validate() error {
	if c.Device == "" {
		return fmt.Errorf("invalid Device: empty")
	}
	if c.InputFormat == "" {
		return fmt.Errorf("invalid InputFormat: empty")
	}
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("invalid size: %dx%d", c.Width, c.Height)
	}
	if c.Framerate < 0 {
		return fmt.Errorf("invalid Framerate: %d", c.Framerate)
	}
	if c.Codec == "" {
		return fmt.Errorf("invalid Codec: empty")
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("invalid BufferSize: %d", c.BufferSize)
	}
	if c.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid ChannelBufferSize: %d", c.ChannelBufferSize)
	}
	return nil
}
