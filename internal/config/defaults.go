package config

import "time"

const (
	DefaultDuration = 2 * time.Second
	DefaultTick     = 50 * time.Millisecond
)

// DefaultConfig returns a configuration that works against a classifier on localhost.
func DefaultConfig() *Config {
	return &Config{
		Camera: CameraConfig{
			Device:            "/dev/video0",
			InputFormat:       "v4l2",
			Width:             640,
			Height:            480,
			Framerate:         30,
			Codec:             "libvpx",
			Bitrate:           "1M",
			BufferSize:        32 * 1024,
			ChannelBufferSize: 256,
		},
		Recording: RecordingConfig{
			Duration: DefaultDuration,
			Tick:     DefaultTick,
		},
		Classifier: ClassifierConfig{
			Endpoint: "http://localhost:5000/predict",
			Timeout:  30 * time.Second,
		},
		Labeler: LabelerConfig{
			Enabled:  false,
			Provider: "openai",
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
	}
}
