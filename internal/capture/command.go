package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/reverie/internal/apperr"
)

// DefaultCommand captures the default PulseAudio source as 16 kHz mono WAV
// on stdout.
var DefaultCommand = []string{
	"ffmpeg", "-hide_banner", "-loglevel", "error",
	"-f", "pulse", "-i", "default",
	"-ac", "1", "-ar", "16000",
	"-f", "wav", "-",
}

const (
	defaultChunkSize = 4096
	flushTimeout     = 3 * time.Second
)

// CommandDevice captures audio by running an external program that writes
// the encoded stream to stdout, ffmpeg being the usual choice.
type CommandDevice struct {
	Command   []string
	MIME      string
	ChunkSize int
	Logger    *slog.Logger
}

// Open starts the capture process. A missing binary or a process that
// fails to start is reported as apperr.ErrDeviceUnavailable.
func (d *CommandDevice) Open(ctx context.Context, sink func([]byte)) (Input, error) {
	if len(d.Command) == 0 {
		return nil, fmt.Errorf("%w: empty capture command", apperr.ErrDeviceUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := exec.LookPath(d.Command[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found: %w", apperr.ErrDeviceUnavailable, d.Command[0], err)
	}

	// The process outlives the request that opened it, so it is not bound
	// to ctx.
	cmd := exec.Command(path, d.Command[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrDeviceUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %w", apperr.ErrDeviceUnavailable, d.Command[0], err)
	}

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mime := d.MIME
	if mime == "" {
		mime = "audio/wav"
	}
	size := d.ChunkSize
	if size <= 0 {
		size = defaultChunkSize
	}

	in := &commandInput{cmd: cmd, mime: mime, done: make(chan struct{}), logger: logger}
	go in.pump(stdout, sink, size)
	return in, nil
}

type commandInput struct {
	cmd    *exec.Cmd
	mime   string
	paused atomic.Bool
	done   chan struct{}
	logger *slog.Logger

	once sync.Once
	err  error
}

func (c *commandInput) pump(r io.Reader, sink func([]byte), size int) {
	defer close(c.done)
	buf := make([]byte, size)
	for {
		n, err := r.Read(buf)
		if n > 0 && !c.paused.Load() {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			sink(chunk)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				c.logger.Warn("capture stream read failed", slog.String("error", err.Error()))
			}
			return
		}
	}
}

func (c *commandInput) Pause() error {
	c.paused.Store(true)
	return nil
}

func (c *commandInput) Resume() error {
	c.paused.Store(false)
	return nil
}

func (c *commandInput) MIMEType() string { return c.mime }

// Close interrupts the process so it can finalise its output, waits for the
// stream to drain, and kills it if it does not exit in time.
func (c *commandInput) Close() error {
	c.once.Do(func() {
		if err := c.cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
			c.logger.Debug("capture interrupt failed", slog.String("error", err.Error()))
		}
		select {
		case <-c.done:
		case <-time.After(flushTimeout):
			_ = c.cmd.Process.Kill()
			<-c.done
		}
		err := c.cmd.Wait()
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			c.err = fmt.Errorf("capture: wait: %w", err)
		}
	})
	return c.err
}
