package labeler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// Labeler produces an English gloss for a predicted sign label.
type Labeler interface {
	Label(ctx context.Context, prediction string) (string, error)
}

type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// New creates a labeler for an OpenAI-compatible chat completion API.
func New(cfg Config) (Labeler, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		if cfg.Model == "" {
			cfg.Model = "gpt-4o-mini"
		}
	case "groq":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Groq API key required")
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = groqBaseURL
		}
		if cfg.Model == "" {
			cfg.Model = "llama-3.1-8b-instant"
		}
	default:
		return nil, fmt.Errorf("unsupported labeler provider: %s", cfg.Provider)
	}
	return newChatLabeler(cfg), nil
}

type chatLabeler struct {
	client *openai.Client
	config Config
}

func newChatLabeler(cfg Config) *chatLabeler {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &chatLabeler{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}
}

func (l *chatLabeler) Label(ctx context.Context, prediction string) (string, error) {
	prediction = strings.TrimSpace(prediction)
	if prediction == "" {
		return "", nil
	}

	req := openai.ChatCompletionRequest{
		Model: l.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildUserPrompt(prediction)},
		},
		Temperature: 0,
		MaxTokens:   16,
	}

	start := time.Now()
	resp, err := l.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		log.Printf("Labeler: %s call failed after %v: %v", l.config.Provider, duration, err)
		return "", fmt.Errorf("%s chat completion: %w", l.config.Provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s chat completion: no response choices", l.config.Provider)
	}

	label := CleanLabel(resp.Choices[0].Message.Content)
	log.Printf("Labeler: %q -> %q in %v", prediction, label, duration)
	return label, nil
}

const systemPrompt = `You translate sign language gloss labels into plain English.
Reply with the English word or short phrase only, no punctuation, no explanation.`

func BuildUserPrompt(prediction string) string {
	return fmt.Sprintf("Sign label: %s", prediction)
}

// CleanLabel strips quotes, trailing punctuation and extra lines a model
// sometimes adds around a one-word answer.
func CleanLabel(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, "\"'`")
	s = strings.TrimRight(s, ".!")
	return strings.TrimSpace(s)
}
