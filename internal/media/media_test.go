package media

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewClip(t *testing.T) {
	chunks := []Chunk{
		{Data: []byte("ab"), Timestamp: time.Now()},
		{Data: []byte("cd"), Timestamp: time.Now()},
		{Data: []byte("e"), Timestamp: time.Now()},
	}

	clip, err := NewClip(chunks, "", "")
	if err != nil {
		t.Fatalf("NewClip() error = %v", err)
	}

	if string(clip.Data) != "abcde" {
		t.Errorf("clip data should preserve chunk order, got %q", clip.Data)
	}
	if clip.Chunks != 3 {
		t.Errorf("expected 3 chunks, got %d", clip.Chunks)
	}
	if clip.MimeType != DefaultMimeType {
		t.Errorf("expected default mime type, got %s", clip.MimeType)
	}
	if !strings.HasPrefix(clip.Name, "clip-") || !strings.HasSuffix(clip.Name, ".webm") {
		t.Errorf("unexpected clip name %s", clip.Name)
	}
	if clip.Size() != 5 {
		t.Errorf("expected size 5, got %d", clip.Size())
	}
}

func TestNewClipCopiesData(t *testing.T) {
	buf := []byte("xyz")
	clip, err := NewClip([]Chunk{{Data: buf}}, "video/webm", ".webm")
	if err != nil {
		t.Fatalf("NewClip() error = %v", err)
	}

	buf[0] = 'q'
	if string(clip.Data) != "xyz" {
		t.Errorf("clip should not alias chunk memory, got %q", clip.Data)
	}
}

func TestNewClipUniqueNames(t *testing.T) {
	chunks := []Chunk{{Data: []byte{1}}}
	a, _ := NewClip(chunks, "", "")
	b, _ := NewClip(chunks, "", "")
	if a.Name == b.Name {
		t.Errorf("clip names should be unique, both were %s", a.Name)
	}
}

func TestNewClipEmpty(t *testing.T) {
	tests := []struct {
		name   string
		chunks []Chunk
	}{
		{name: "nil chunks", chunks: nil},
		{name: "empty chunks", chunks: []Chunk{{Data: nil}, {Data: []byte{}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClip(tt.chunks, "", "")
			if !errors.Is(err, ErrEmptyClip) {
				t.Errorf("expected ErrEmptyClip, got %v", err)
			}
		})
	}
}
