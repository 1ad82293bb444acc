package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/starford/reverie/internal/apperr"
)

// Device is an audio source that can be opened for capture.
type Device interface {
	// Open acquires the input and starts delivering encoded chunks to sink.
	// Chunks must be delivered from another goroutine, never from within
	// Open itself. Errors should match apperr.ErrDeviceUnavailable.
	Open(ctx context.Context, sink func([]byte)) (Input, error)
}

// Input is an opened device.
type Input interface {
	Pause() error
	Resume() error
	// Close releases the device. Chunks still buffered by the source are
	// delivered to the sink before Close returns.
	Close() error
	MIMEType() string
}

// Exclusive wraps dev so that at most one Input is open at a time. A second
// Open fails with an error matching both apperr.ErrDeviceBusy and
// apperr.ErrDeviceUnavailable until the first Input is closed.
func Exclusive(dev Device) Device {
	return &exclusive{dev: dev}
}

type exclusive struct {
	dev  Device
	mu   sync.Mutex
	held bool
}

func (e *exclusive) Open(ctx context.Context, sink func([]byte)) (Input, error) {
	e.mu.Lock()
	if e.held {
		e.mu.Unlock()
		return nil, fmt.Errorf("capture: open: %w: %w", apperr.ErrDeviceBusy, apperr.ErrDeviceUnavailable)
	}
	e.held = true
	e.mu.Unlock()

	in, err := e.dev.Open(ctx, sink)
	if err != nil {
		e.release()
		return nil, err
	}
	return &exclusiveInput{Input: in, release: e.release}, nil
}

func (e *exclusive) release() {
	e.mu.Lock()
	e.held = false
	e.mu.Unlock()
}

type exclusiveInput struct {
	Input
	release func()
	once    sync.Once
	err     error
}

func (x *exclusiveInput) Close() error {
	x.once.Do(func() {
		x.err = x.Input.Close()
		x.release()
	})
	return x.err
}

// Unavailable is a Device that can never be opened. It stands in when no
// capture backend is configured.
type Unavailable struct {
	Reason string
}

func (u Unavailable) Open(context.Context, func([]byte)) (Input, error) {
	reason := u.Reason
	if reason == "" {
		reason = "no capture device configured"
	}
	return nil, fmt.Errorf("%w: %w", apperr.ErrDeviceUnavailable, errors.New(reason))
}
