package config

import (
	"os"

	"github.com/leonardotrapani/signcap/internal/camera"
	"github.com/leonardotrapani/signcap/internal/classifier"
	"github.com/leonardotrapani/signcap/internal/labeler"
	"github.com/leonardotrapani/signcap/internal/preview"
)

func (c *Config) ToCameraConfig() camera.Config {
	return camera.Config{
		Device:            c.Camera.Device,
		InputFormat:       c.Camera.InputFormat,
		Width:             c.Camera.Width,
		Height:            c.Camera.Height,
		Framerate:         c.Camera.Framerate,
		Codec:             c.Camera.Codec,
		Bitrate:           c.Camera.Bitrate,
		BufferSize:        c.Camera.BufferSize,
		ChannelBufferSize: c.Camera.ChannelBufferSize,
	}
}

func (c *Config) ToClassifierConfig() classifier.Config {
	return classifier.Config{
		Endpoint: c.Classifier.Endpoint,
		Timeout:  c.Classifier.Timeout,
	}
}

func (c *Config) ToLabelerConfig() labeler.Config {
	return labeler.Config{
		Provider: c.Labeler.Provider,
		APIKey:   c.resolveLabelerAPIKey(),
		Model:    c.Labeler.Model,
		BaseURL:  c.Labeler.BaseURL,
	}
}

func (c *Config) IsLabelerEnabled() bool {
	return c.Labeler.Enabled
}

// PreviewDir resolves the configured preview directory, falling back to the cache dir.
func (c *Config) PreviewDir() (string, error) {
	if c.Preview.Dir != "" {
		return c.Preview.Dir, nil
	}
	return preview.DefaultDir()
}

// NotificationType is "none" when notifications are disabled.
func (c *Config) NotificationType() string {
	if !c.Notifications.Enabled {
		return "none"
	}
	return c.Notifications.Type
}

// resolveLabelerAPIKey prefers the config value, then the provider's environment variable.
func (c *Config) resolveLabelerAPIKey() string {
	if c.Labeler.APIKey != "" {
		return c.Labeler.APIKey
	}
	switch c.Labeler.Provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "groq":
		return os.Getenv("GROQ_API_KEY")
	}
	return ""
}
