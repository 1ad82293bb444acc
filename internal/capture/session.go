// Package capture implements voice capture: the recording session state
// machine, the audio input abstraction, and the manager that glues a single
// active session to storage and live events.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/reverie/internal/apperr"
	"github.com/starford/reverie/internal/models"
)

// Phase is the lifecycle position of a Session.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRecording Phase = "recording"
	PhasePaused    Phase = "paused"
	PhaseStopped   Phase = "stopped"
)

// Active reports whether the phase holds the input device.
func (p Phase) Active() bool {
	return p == PhaseRecording || p == PhasePaused
}

// DefaultTickInterval is the elapsed-time resolution of a session.
const DefaultTickInterval = time.Second

// Session is one capture attempt. It moves Idle -> Recording <-> Paused ->
// Stopped and is not reusable once stopped.
type Session struct {
	device   Device
	clock    Clock
	interval time.Duration
	onTick   func(int)
	logger   *slog.Logger

	// notifyMu is held while a tick is delivered. Pause and Stop take it
	// first so no tick callback runs after they return.
	notifyMu sync.Mutex

	mu         sync.Mutex
	phase      Phase
	elapsed    int
	input      Input
	mimeType   string
	buf        bytes.Buffer
	draining   bool
	gen        uint64
	tickDone   chan struct{}
	onComplete func(models.Artifact)
}

// Option configures a Session.
type Option func(*Session)

// WithClock sets the tick source.
func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithTickInterval overrides the one-second tick.
func WithTickInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithOnTick registers a callback receiving the elapsed seconds after each
// tick. It is called without the session lock held.
func WithOnTick(fn func(elapsed int)) Option {
	return func(s *Session) { s.onTick = fn }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// NewSession returns an Idle session that will record from device.
func NewSession(device Device, opts ...Option) *Session {
	s := &Session{
		device:   device,
		clock:    realClock{},
		interval: DefaultTickInterval,
		logger:   slog.Default(),
		phase:    PhaseIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnComplete registers the single completion listener. It replaces any
// previous listener.
func (s *Session) OnComplete(fn func(models.Artifact)) {
	s.mu.Lock()
	s.onComplete = fn
	s.mu.Unlock()
}

// Start acquires the device and begins recording. It fails with
// apperr.ErrInvalidTransition unless the session is Idle, and with an error
// matching apperr.ErrDeviceUnavailable when the device cannot be opened; in
// that case the session stays Idle.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseIdle {
		return fmt.Errorf("capture: start from %s: %w", s.phase, apperr.ErrInvalidTransition)
	}

	in, err := s.device.Open(ctx, s.write)
	if err != nil {
		if errors.Is(err, apperr.ErrDeviceUnavailable) {
			return fmt.Errorf("capture: start: %w", err)
		}
		return fmt.Errorf("capture: start: %w: %w", apperr.ErrDeviceUnavailable, err)
	}

	s.input = in
	s.mimeType = in.MIMEType()
	s.buf.Reset()
	s.elapsed = 0
	s.phase = PhaseRecording
	s.startTickerLocked()
	s.logger.Debug("recording started", slog.String("mime", s.mimeType))
	return nil
}

// Pause suspends recording. Only valid while Recording.
func (s *Session) Pause() error {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseRecording {
		return fmt.Errorf("capture: pause from %s: %w", s.phase, apperr.ErrInvalidTransition)
	}
	s.stopTickerLocked()
	s.phase = PhasePaused
	if err := s.input.Pause(); err != nil {
		s.logger.Warn("input pause failed", slog.String("error", err.Error()))
	}
	return nil
}

// Resume continues a paused recording. Only valid while Paused.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhasePaused {
		return fmt.Errorf("capture: resume from %s: %w", s.phase, apperr.ErrInvalidTransition)
	}
	if err := s.input.Resume(); err != nil {
		s.logger.Warn("input resume failed", slog.String("error", err.Error()))
	}
	s.phase = PhaseRecording
	s.startTickerLocked()
	return nil
}

// Stop ends the session, releases the device and delivers the artifact to
// the completion listener. A device release error is logged; the session
// still ends Stopped and the artifact is still delivered.
func (s *Session) Stop() error {
	s.notifyMu.Lock()
	s.mu.Lock()
	if !s.phase.Active() {
		phase := s.phase
		s.mu.Unlock()
		s.notifyMu.Unlock()
		return fmt.Errorf("capture: stop from %s: %w", phase, apperr.ErrInvalidTransition)
	}
	s.stopTickerLocked()
	s.draining = s.phase == PhaseRecording
	s.phase = PhaseStopped
	in := s.input
	s.input = nil
	s.mu.Unlock()
	s.notifyMu.Unlock()

	// Close outside the lock: inputs flush trailing chunks through write.
	if err := in.Close(); err != nil {
		s.logger.Warn("input release failed", slog.String("error", err.Error()))
	}

	s.mu.Lock()
	s.draining = false
	art := models.Artifact{
		Data:     bytes.Clone(s.buf.Bytes()),
		MIMEType: s.mimeType,
		Seconds:  s.elapsed,
	}
	s.buf = bytes.Buffer{}
	fn := s.onComplete
	s.mu.Unlock()

	s.logger.Debug("recording stopped",
		slog.Int("seconds", art.Seconds),
		slog.Int("bytes", len(art.Data)))
	if fn != nil {
		fn(art)
	}
	return nil
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Elapsed returns the recorded seconds, excluding paused time.
func (s *Session) Elapsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Display returns Elapsed formatted as mm:ss.
func (s *Session) Display() string {
	return FormatElapsed(s.Elapsed())
}

// write is the sink handed to the device. Chunks are kept only while
// recording, or while the input flushes during a stop from Recording.
func (s *Session) write(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseRecording || s.draining {
		s.buf.Write(chunk)
	}
}

func (s *Session) startTickerLocked() {
	s.gen++
	gen := s.gen
	done := make(chan struct{})
	s.tickDone = done
	go s.tickLoop(s.clock.NewTicker(s.interval), done, gen)
}

func (s *Session) stopTickerLocked() {
	s.gen++
	if s.tickDone != nil {
		close(s.tickDone)
		s.tickDone = nil
	}
}

func (s *Session) tickLoop(t Ticker, done <-chan struct{}, gen uint64) {
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C():
			if !s.tick(gen) {
				return
			}
		}
	}
}

// tick advances elapsed by one second unless the ticker generation is
// stale, which happens when a pause or stop won the race for the lock.
// The callback runs under notifyMu, outside mu.
func (s *Session) tick(gen uint64) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.mu.Lock()
	if gen != s.gen || s.phase != PhaseRecording {
		s.mu.Unlock()
		return false
	}
	s.elapsed++
	elapsed := s.elapsed
	fn := s.onTick
	s.mu.Unlock()

	if fn != nil {
		fn(elapsed)
	}
	return true
}

// FormatElapsed renders seconds as zero-padded mm:ss. Minutes are not
// wrapped at an hour.
func FormatElapsed(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%02d:%02d", sec/60, sec%60)
}
