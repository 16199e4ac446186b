package media

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultMimeType  = "video/webm"
	DefaultExtension = ".webm"
)

var ErrEmptyClip = errors.New("no recorded data")

// Chunk is one fragment of a recording, emitted while capture is running.
type Chunk struct {
	Data      []byte
	Timestamp time.Time
}

// Clip is the video assembled from the chunks of one recording session.
// It is never modified after NewClip returns.
type Clip struct {
	Name      string
	MimeType  string
	Data      []byte
	Chunks    int
	CreatedAt time.Time
}

// NewClip concatenates chunks in order. The clip gets a name that is unique
// per session so uploads and previews never collide.
func NewClip(chunks []Chunk, mimeType, ext string) (*Clip, error) {
	size := 0
	for _, c := range chunks {
		size += len(c.Data)
	}
	if size == 0 {
		return nil, ErrEmptyClip
	}

	if mimeType == "" {
		mimeType = DefaultMimeType
	}
	if ext == "" {
		ext = DefaultExtension
	}

	data := make([]byte, 0, size)
	for _, c := range chunks {
		data = append(data, c.Data...)
	}

	return &Clip{
		Name:      fmt.Sprintf("clip-%s%s", uuid.New().String(), ext),
		MimeType:  mimeType,
		Data:      data,
		Chunks:    len(chunks),
		CreatedAt: time.Now(),
	}, nil
}

func (c *Clip) Size() int {
	return len(c.Data)
}
