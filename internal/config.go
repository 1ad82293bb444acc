package internal

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/reverie/internal/capture"
	"github.com/starford/reverie/internal/dreamstore"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Recorder devices.
const (
	RecorderDeviceCommand = "command"
	RecorderDeviceNone    = "none"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Journal  JournalConfig     `yaml:"journal"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
	Recorder RecorderConfig    `yaml:"recorder"`
	Events   EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Journal.Validate(); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	if err := c.SQLite.Validate(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Recorder.Validate(); err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	return c.Events.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// JournalConfig locates the journal directory and the record blob inside it.
type JournalConfig struct {
	Path      string `yaml:"path"`
	StoreName string `yaml:"store_name"`
}

// Validate validates the journal configuration.
func (c *JournalConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.StoreName, validation.Required, validation.By(plainFileName)),
	)
}

func plainFileName(v any) error {
	name, _ := v.(string)
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return validation.NewError("validation_plain_file_name", "must be a file name, not a path")
	}
	return nil
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// RecorderConfig selects the voice capture backend.
//
// Device "command" runs Command and reads encoded audio from its stdout;
// "none" disables server-side capture (clients can still upload audio).
type RecorderConfig struct {
	Device  string        `yaml:"device"`
	Command []string      `yaml:"command"`
	MIME    string        `yaml:"mime"`
	Tick    time.Duration `yaml:"tick"`
}

// Validate validates the recorder configuration.
func (c *RecorderConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Device, validation.Required, validation.In(RecorderDeviceCommand, RecorderDeviceNone)),
		validation.Field(&c.Command, validation.When(c.Device == RecorderDeviceCommand, validation.Required)),
		validation.Field(&c.Tick, validation.Required, validation.Min(10*time.Millisecond)),
	)
}

// EventsConfig tunes the live event stream.
type EventsConfig struct {
	JournalThrottle time.Duration `yaml:"journal_throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.JournalThrottle, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Journal: JournalConfig{
			Path:      "./journal",
			StoreName: dreamstore.DefaultName,
		},
		SQLite: SQLiteConfig{
			Path: "./reverie.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Recorder: RecorderConfig{
			Device:  RecorderDeviceCommand,
			Command: append([]string(nil), capture.DefaultCommand...),
			MIME:    "audio/wav",
			Tick:    capture.DefaultTickInterval,
		},
		Events: EventsConfig{
			JournalThrottle: 2 * time.Second,
		},
	}
}
