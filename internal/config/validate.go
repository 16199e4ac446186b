package config

import (
	"fmt"
	"net/url"
)

func (c *Config) Validate() error {
	// Camera
	if c.Camera.Device == "" {
		return fmt.Errorf("invalid camera.device: empty")
	}
	if c.Camera.InputFormat == "" {
		return fmt.Errorf("invalid camera.input_format: empty")
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 {
		return fmt.Errorf("invalid camera size: %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if (c.Camera.Width == 0) != (c.Camera.Height == 0) {
		return fmt.Errorf("invalid camera size: width and height must both be set or both be 0")
	}
	if c.Camera.Framerate < 0 {
		return fmt.Errorf("invalid camera.framerate: %d", c.Camera.Framerate)
	}
	if c.Camera.Codec == "" {
		return fmt.Errorf("invalid camera.codec: empty")
	}
	if c.Camera.BufferSize <= 0 {
		return fmt.Errorf("invalid camera.buffer_size: %d", c.Camera.BufferSize)
	}
	if c.Camera.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid camera.channel_buffer_size: %d", c.Camera.ChannelBufferSize)
	}

	// Recording
	if c.Recording.Duration <= 0 {
		return fmt.Errorf("invalid recording.duration: %v", c.Recording.Duration)
	}
	if c.Recording.Tick <= 0 {
		return fmt.Errorf("invalid recording.tick: %v", c.Recording.Tick)
	}
	if c.Recording.Tick > c.Recording.Duration {
		return fmt.Errorf("invalid recording.tick: %v is longer than recording.duration %v", c.Recording.Tick, c.Recording.Duration)
	}

	// Classifier
	if c.Classifier.Endpoint == "" {
		return fmt.Errorf("invalid classifier.endpoint: empty")
	}
	u, err := url.Parse(c.Classifier.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid classifier.endpoint: %s (must be an http or https URL)", c.Classifier.Endpoint)
	}
	if c.Classifier.Timeout <= 0 {
		return fmt.Errorf("invalid classifier.timeout: %v", c.Classifier.Timeout)
	}

	// Labeler
	if c.Labeler.Enabled {
		switch c.Labeler.Provider {
		case "openai":
			if c.resolveLabelerAPIKey() == "" {
				return fmt.Errorf("OpenAI API key required: not found in config (labeler.api_key) or environment variable (OPENAI_API_KEY)")
			}
		case "groq":
			if c.resolveLabelerAPIKey() == "" {
				return fmt.Errorf("Groq API key required: not found in config (labeler.api_key) or environment variable (GROQ_API_KEY)")
			}
		default:
			return fmt.Errorf("invalid labeler.provider: %s (must be openai or groq)", c.Labeler.Provider)
		}
	}

	// Notifications
	if c.Notifications.Enabled {
		validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
		if !validTypes[c.Notifications.Type] {
			return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
		}
	}

	return nil
}
