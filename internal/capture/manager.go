package capture

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/reverie/internal/apperr"
	"github.com/starford/reverie/internal/models"
	"github.com/starford/reverie/internal/storage"
)

// AudioDir is the journal-relative directory holding saved recordings.
const AudioDir = "audio"

// Recording event names.
const (
	EventStarted   = "recording.started"
	EventTick      = "recording.tick"
	EventPaused    = "recording.paused"
	EventResumed   = "recording.resumed"
	EventCompleted = "recording.completed"
	EventFailed    = "recording.failed"
)

// Publisher receives recording lifecycle events.
type Publisher interface {
	Publish(event string, data any)
}

// Status is a snapshot of the manager's current session.
type Status struct {
	Phase           Phase  `json:"phase"`
	Elapsed         int    `json:"elapsed"`
	Display         string `json:"display"`
	PendingAudioRef string `json:"pendingAudioRef,omitempty"`
}

// Manager runs at most one session at a time and turns finished sessions
// into saved audio files. The last saved file is held as the pending
// recording until a journal entry claims it.
type Manager struct {
	device  Device
	files   storage.Provider
	events  Publisher
	logger  *slog.Logger
	options []Option

	mu      sync.Mutex
	active  *Session
	pending string
}

// NewManager builds a Manager. events may be nil. opts are applied to
// every session the manager creates.
func NewManager(device Device, files storage.Provider, events Publisher, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		device:  Exclusive(device),
		files:   files,
		events:  events,
		logger:  logger,
		options: opts,
	}
}

// Begin starts a new session. It is rejected with
// apperr.ErrInvalidTransition while another session is active.
func (m *Manager) Begin(ctx context.Context) (Status, error) {
	m.mu.Lock()
	if m.active != nil && m.active.Phase().Active() {
		m.mu.Unlock()
		return m.Status(), fmt.Errorf("capture: session already active: %w", apperr.ErrInvalidTransition)
	}

	opts := append([]Option{WithLogger(m.logger)}, m.options...)
	opts = append(opts, WithOnTick(m.onTick))
	sess := NewSession(m.device, opts...)
	sess.OnComplete(m.onComplete)
	if err := sess.Start(ctx); err != nil {
		m.mu.Unlock()
		return m.Status(), err
	}
	m.active = sess
	m.mu.Unlock()

	m.publish(EventStarted, m.Status())
	return m.Status(), nil
}

// Pause pauses the active session.
func (m *Manager) Pause() (Status, error) {
	sess, err := m.current()
	if err != nil {
		return m.Status(), err
	}
	if err := sess.Pause(); err != nil {
		return m.Status(), err
	}
	st := m.Status()
	m.publish(EventPaused, st)
	return st, nil
}

// Resume resumes the active session.
func (m *Manager) Resume() (Status, error) {
	sess, err := m.current()
	if err != nil {
		return m.Status(), err
	}
	if err := sess.Resume(); err != nil {
		return m.Status(), err
	}
	st := m.Status()
	m.publish(EventResumed, st)
	return st, nil
}

// Stop stops the active session. The recording is saved before Stop
// returns, so the returned status carries its pending reference.
func (m *Manager) Stop() (Status, error) {
	sess, err := m.current()
	if err != nil {
		return m.Status(), err
	}
	if err := sess.Stop(); err != nil {
		return m.Status(), err
	}
	return m.Status(), nil
}

// Shutdown stops any active session so the device is released.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sess := m.active
	m.mu.Unlock()
	if sess == nil || !sess.Phase().Active() {
		return
	}
	if err := sess.Stop(); err != nil {
		m.logger.Warn("stop recording on shutdown failed", slog.String("error", err.Error()))
	}
}

// Status reports the current session, or Idle when there is none.
func (m *Manager) Status() Status {
	m.mu.Lock()
	sess, pending := m.active, m.pending
	m.mu.Unlock()

	st := Status{Phase: PhaseIdle, Display: FormatElapsed(0), PendingAudioRef: pending}
	if sess != nil {
		st.Phase = sess.Phase()
		st.Elapsed = sess.Elapsed()
		st.Display = FormatElapsed(st.Elapsed)
	}
	return st
}

// Pending returns the reference of the last saved recording not yet
// attached to an entry.
func (m *Manager) Pending() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// ClaimPending clears the pending reference if it is still ref. It reports
// false when another caller claimed it or a newer recording replaced it.
func (m *Manager) ClaimPending(ref string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ref == "" || m.pending != ref {
		return false
	}
	m.pending = ""
	return true
}

// ReleasePending hands back a claimed reference that went unused. It is
// dropped if a newer recording is already pending.
func (m *Manager) ReleasePending(ref string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == "" {
		m.pending = ref
	}
}

func (m *Manager) current() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || !m.active.Phase().Active() {
		return nil, fmt.Errorf("capture: no active session: %w", apperr.ErrInvalidTransition)
	}
	return m.active, nil
}

func (m *Manager) onTick(elapsed int) {
	m.publish(EventTick, map[string]any{
		"elapsed": elapsed,
		"display": FormatElapsed(elapsed),
	})
}

func (m *Manager) onComplete(art models.Artifact) {
	ref := path.Join(AudioDir, uuid.NewString()+ExtensionFor(art.MIMEType))
	if err := m.files.Write(ref, art.Data); err != nil {
		m.logger.Error("save recording failed",
			slog.String("ref", ref),
			slog.String("error", err.Error()))
		m.publish(EventFailed, map[string]any{"error": err.Error()})
		return
	}

	m.mu.Lock()
	m.pending = ref
	m.mu.Unlock()

	m.logger.Info("recording saved",
		slog.String("ref", ref),
		slog.Int("seconds", art.Seconds),
		slog.Int("bytes", len(art.Data)))
	m.publish(EventCompleted, map[string]any{
		"audioRef":   ref,
		"seconds":    art.Seconds,
		"display":    FormatElapsed(art.Seconds),
		"mimeType":   art.MIMEType,
		"size":       len(art.Data),
		"transcript": art.Transcript,
	})
}

func (m *Manager) publish(event string, data any) {
	if m.events != nil {
		m.events.Publish(event, data)
	}
}

var mimeExtensions = map[string]string{
	"audio/wav":   ".wav",
	"audio/x-wav": ".wav",
	"audio/wave":  ".wav",
	"audio/webm":  ".webm",
	"audio/ogg":   ".ogg",
	"audio/mpeg":  ".mp3",
	"audio/mp4":   ".m4a",
	"audio/flac":  ".flac",
}

// ExtensionFor maps an audio MIME type (parameters ignored) to a file
// extension, defaulting to .bin.
func ExtensionFor(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	if ext, ok := mimeExtensions[strings.TrimSpace(strings.ToLower(base))]; ok {
		return ext
	}
	return ".bin"
}
