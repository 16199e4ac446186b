package config

import "time"

type Config struct {
	Camera        CameraConfig        `toml:"camera"`
	Recording     RecordingConfig     `toml:"recording"`
	Classifier    ClassifierConfig    `toml:"classifier"`
	Preview       PreviewConfig       `toml:"preview"`
	Labeler       LabelerConfig       `toml:"labeler"`
	Notifications NotificationsConfig `toml:"notifications"`
	Server        ServerConfig        `toml:"server"`
}

type CameraConfig struct {
	Device            string `toml:"device"`
	InputFormat       string `toml:"input_format"`
	Width             int    `toml:"width"`
	Height            int    `toml:"height"`
	Framerate         int    `toml:"framerate"`
	Codec             string `toml:"codec"`
	Bitrate           string `toml:"bitrate"`
	BufferSize        int    `toml:"buffer_size"`
	ChannelBufferSize int    `toml:"channel_buffer_size"`
}

type RecordingConfig struct {
	Duration time.Duration `toml:"duration"`
	Tick     time.Duration `toml:"tick"`
}

type ClassifierConfig struct {
	Endpoint string        `toml:"endpoint"`
	Timeout  time.Duration `toml:"timeout"`
}

type PreviewConfig struct {
	Dir string `toml:"dir"` // empty = ~/.cache/signcap/previews
}

type LabelerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Provider string `toml:"provider"` // "openai", "groq"
	APIKey   string `toml:"api_key"`
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}

type ServerConfig struct {
	Listen string `toml:"listen"` // empty disables the HTTP surface
}
