package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/leonardotrapani/signcap/internal/media"
)

// FieldName is the single multipart field the classifier expects.
const FieldName = "video"

const maxErrorBody = 512

// Prediction is the classifier's JSON answer. Either Error is set, or the
// other fields are.
type Prediction struct {
	Prediction   string  `json:"prediction"`
	Confidence   float64 `json:"confidence"`
	EnglishLabel string  `json:"english_label"`
	Error        string  `json:"error,omitempty"`
}

// Failed reports whether the classifier answered with an application error.
func (p *Prediction) Failed() bool {
	return p.Error != ""
}

type Config struct {
	Endpoint string
	Timeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Endpoint: "http://localhost:5000/predict",
		Timeout:  30 * time.Second,
	}
}

// Client uploads clips to the prediction endpoint. Each call is a single
// attempt; nothing is retried.
type Client struct {
	client   *http.Client
	endpoint string
}

func NewClient(config Config) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	return &Client{
		client:   &http.Client{Timeout: timeout},
		endpoint: config.Endpoint,
	}
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) Classify(ctx context.Context, clip *media.Clip) (*Prediction, error) {
	if clip == nil || clip.Size() == 0 {
		return nil, media.ErrEmptyClip
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, FieldName, clip.Name))
	header.Set("Content-Type", clip.MimeType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(clip.Data); err != nil {
		return nil, fmt.Errorf("copy video data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	duration := time.Since(start)

	if err != nil {
		log.Printf("Classifier: request failed after %v: %v", duration, err)
		return nil, fmt.Errorf("classifier request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Printf("Classifier: endpoint returned status %d: %s", resp.StatusCode, string(bodyBytes))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(bodyBytes))}
	}

	var result Prediction
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if result.Failed() {
		log.Printf("Classifier: %s rejected in %v: %s", clip.Name, duration, result.Error)
	} else {
		log.Printf("Classifier: %s classified in %v: %q (%.2f%%)", clip.Name, duration, result.Prediction, result.Confidence)
	}
	return &result, nil
}
