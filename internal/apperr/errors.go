// Package apperr holds the sentinel errors shared across the journal and
// capture layers. Callers match them with errors.Is.
package apperr

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")

	// ErrDeviceUnavailable is returned when the audio input cannot be acquired
	// (permission denied, no device, capture binary missing).
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	// ErrDeviceBusy is returned when another session already holds the input.
	ErrDeviceBusy = errors.New("audio device busy")

	ErrInvalidTransition = errors.New("invalid recording transition")
)
