package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// manualClock hands out tickers that fire only when the test calls Tick.
type manualClock struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

func (c *manualClock) NewTicker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
	c.tickers = append(c.tickers, t)
	return t
}

// Tick fires the most recent ticker. It reports false when that ticker has
// been stopped or none exists.
func (c *manualClock) Tick() bool {
	c.mu.Lock()
	if len(c.tickers) == 0 {
		c.mu.Unlock()
		return false
	}
	t := c.tickers[len(c.tickers)-1]
	c.mu.Unlock()

	select {
	case t.ch <- time.Now():
		return true
	case <-t.stopped:
		return false
	case <-time.After(time.Second):
		return false
	}
}

func (c *manualClock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

type manualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }
func (t *manualTicker) Stop()               { t.once.Do(func() { close(t.stopped) }) }

// fakeDevice records opens and exposes the sink of the last open.
type fakeDevice struct {
	mu      sync.Mutex
	openErr error
	opens   int
	last    *fakeInput
}

func (d *fakeDevice) Open(_ context.Context, sink func([]byte)) (Input, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens++
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.last = &fakeInput{sink: sink}
	return d.last, nil
}

func (d *fakeDevice) input() *fakeInput {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

type fakeInput struct {
	mu       sync.Mutex
	sink     func([]byte)
	pauses   int
	resumes  int
	closes   int
	closeErr error
	tail     []byte
}

// push delivers a chunk the way a real device does, from its own goroutine.
func (in *fakeInput) push(b []byte) {
	done := make(chan struct{})
	go func() {
		in.sink(b)
		close(done)
	}()
	<-done
}

func (in *fakeInput) Pause() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.pauses++
	return nil
}

func (in *fakeInput) Resume() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.resumes++
	return nil
}

func (in *fakeInput) Close() error {
	in.mu.Lock()
	in.closes++
	tail, err := in.tail, in.closeErr
	in.mu.Unlock()
	if tail != nil {
		in.push(tail)
	}
	return err
}

func (in *fakeInput) MIMEType() string { return "audio/webm" }

func (in *fakeInput) counts() (pauses, resumes, closes int) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.pauses, in.resumes, in.closes
}

type recordedEvent struct {
	name string
	data any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) Publish(event string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{event, data})
}

func (p *fakePublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.name
	}
	return out
}

func (p *fakePublisher) has(name string) bool {
	for _, n := range p.names() {
		if n == name {
			return true
		}
	}
	return false
}

var errNoMic = errors.New("permission denied")

func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

const (
	timeoutShort = time.Second
	tickShort    = 5 * time.Millisecond
)
