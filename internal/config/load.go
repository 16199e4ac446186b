package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const envPrefix = "SIGNCAP_"

func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	signcapDir := filepath.Join(configDir, "signcap")
	if err := os.MkdirAll(signcapDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(signcapDir, "config.toml"), nil
}

// Load reads the user config file. A missing file is not an error: the
// defaults are used and environment overrides still apply.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(configPath)
}

func LoadFile(configPath string) (*Config, error) {
	loadDotEnv()

	config := DefaultConfig()
	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
		log.Printf("Config: %s not found, using defaults (run signcap configure to create it)", configPath)
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
	} else {
		log.Printf("Config: loading configuration from %s", configPath)
		if _, err := toml.DecodeFile(configPath, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	config.applyEnv()

	log.Printf("Config: configuration loaded successfully")
	return config, nil
}

// loadDotEnv loads ./.env without overriding variables already set.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Config: failed to load .env: %v", err)
	}
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"CAMERA_DEVICE":       &c.Camera.Device,
		"CLASSIFIER_ENDPOINT": &c.Classifier.Endpoint,
		"PREVIEW_DIR":         &c.Preview.Dir,
		"LABELER_API_KEY":     &c.Labeler.APIKey,
		"SERVER_LISTEN":       &c.Server.Listen,
	}
	for name, field := range overrides {
		if v := strings.TrimSpace(os.Getenv(envPrefix + name)); v != "" {
			*field = v
		}
	}
}

const fileHeader = `# Signcap Configuration
# Edit values as needed - recording, classifier and labeler changes apply to
# the next recording without restarting the daemon.
#
# camera.device:        v4l2 device path (or avfoundation index / dshow name)
# recording.duration:   clip length, e.g. "2s"
# recording.tick:       progress update interval, e.g. "50ms"
# classifier.endpoint:  POST target receiving the multipart "video" field
# notifications.type:   "desktop", "log" or "none"
# server.listen:        address for the HTTP/WebSocket surface, empty disables it

`

func Save(config *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(configPath, config)
}

func SaveFile(configPath string, config *Config) error {
	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(configPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Printf("Config: saved configuration to %s", configPath)
	return nil
}

func SaveDefaultConfig() error {
	return Save(DefaultConfig())
}
