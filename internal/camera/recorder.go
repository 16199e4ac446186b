package camera

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leonardotrapani/signcap/internal/media"
)

const stopGracePeriod = 3 * time.Second

var ErrStreamClosed = errors.New("camera stream closed")

// FFmpegRecorder encodes the camera feed to webm on ffmpeg's stdout and
// hands it out in chunks.
type FFmpegRecorder struct {
	config    Config
	binary    string
	closed    func() bool
	recording atomic.Bool

	mu       sync.Mutex // guards everything below
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	cancel   context.CancelFunc
	grace    *time.Timer
	stopping bool
	stderr   string
	err      error

	wg sync.WaitGroup
}

func (r *FFmpegRecorder) IsRecording() bool {
	return r.recording.Load()
}

func (r *FFmpegRecorder) Start(ctx context.Context) (<-chan media.Chunk, error) {
	if r.closed != nil && r.closed() {
		return nil, ErrStreamClosed
	}
	if r.recording.Load() {
		return nil, fmt.Errorf("already recording")
	}
	if err := r.config.validate(); err != nil {
		return nil, err
	}

	recordingCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(recordingCtx, r.binary, recordArgs(r.config)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", r.binary, err)
	}

	r.mu.Lock()
	r.cmd = cmd
	r.stdin = stdin
	r.cancel = cancel
	r.stopping = false
	r.stderr = ""
	r.err = nil
	r.mu.Unlock()

	chunkCh := make(chan media.Chunk, r.config.ChannelBufferSize)

	r.recording.Store(true)
	r.wg.Add(1)
	go r.captureLoop(recordingCtx, stdout, stderr, chunkCh)

	return chunkCh, nil
}

// Stop asks ffmpeg to finish the file. If it has not exited after the grace
// period the process is killed.
func (r *FFmpegRecorder) Stop() error {
	if !r.recording.Load() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopping {
		return nil
	}
	r.stopping = true

	if r.stdin != nil {
		if _, err := io.WriteString(r.stdin, "q"); err != nil {
			log.Printf("Camera: failed to send quit to ffmpeg: %v", err)
		}
		_ = r.stdin.Close()
	}
	if r.cancel != nil {
		r.grace = time.AfterFunc(stopGracePeriod, r.cancel)
	}
	return nil
}

func (r *FFmpegRecorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *FFmpegRecorder) Wait() {
	r.wg.Wait()
}

func (r *FFmpegRecorder) captureLoop(ctx context.Context, stdout, stderr io.Reader, chunkCh chan<- media.Chunk) {
	defer func() {
		r.recording.Store(false)
		close(chunkCh)
		r.wg.Done()
	}()

	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			line := scanner.Text()
			log.Printf("Camera stderr: %s", line)
			r.mu.Lock()
			r.stderr = line
			r.mu.Unlock()
		}
	}()

	buffer := make([]byte, r.config.BufferSize)
	var sent, total int
	var readErr error

	for readErr == nil {
		var n int
		n, readErr = stdout.Read(buffer)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buffer[:n])

			// Chunks are never dropped: a missing fragment corrupts the clip.
			select {
			case chunkCh <- media.Chunk{Data: data, Timestamp: time.Now()}:
				sent++
				total += n
			case <-ctx.Done():
				readErr = ctx.Err()
			}
		}
	}

	<-stderrDone
	r.finish(readErr, sent, total)
}

func (r *FFmpegRecorder) finish(readErr error, sent, total int) {
	r.mu.Lock()
	cmd := r.cmd
	r.mu.Unlock()

	var waitErr error
	if cmd != nil {
		waitErr = cmd.Wait()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.grace != nil {
		r.grace.Stop()
		r.grace = nil
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.cmd = nil
	r.stdin = nil

	switch {
	case readErr != nil && !errors.Is(readErr, io.EOF) && !errors.Is(readErr, context.Canceled):
		r.err = fmt.Errorf("read video: %w", readErr)
	case waitErr != nil && !r.stopping:
		if r.stderr != "" {
			r.err = fmt.Errorf("ffmpeg exited: %w: %s", waitErr, r.stderr)
		} else {
			r.err = fmt.Errorf("ffmpeg exited: %w", waitErr)
		}
	}

	if r.err != nil {
		log.Printf("Camera: recording error: %v", r.err)
	}
	log.Printf("Camera: recording finished, %d chunks, %d bytes", sent, total)
}
