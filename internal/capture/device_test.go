package capture

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/starford/reverie/internal/apperr"
	"github.com/starford/reverie/internal/models"
)

func TestExclusiveReleaseIsIdempotent(t *testing.T) {
	inner := &fakeDevice{}
	dev := Exclusive(inner)

	in, err := dev.Open(context.Background(), func([]byte) {})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = in.Close()
	_ = in.Close()
	if _, _, closes := inner.input().counts(); closes != 1 {
		t.Errorf("closes = %d, want 1", closes)
	}

	if _, err := dev.Open(context.Background(), func([]byte) {}); err != nil {
		t.Errorf("Open after release: %v", err)
	}
}

func TestExclusiveFailedOpenReleases(t *testing.T) {
	inner := &fakeDevice{openErr: errNoMic}
	dev := Exclusive(inner)
	if _, err := dev.Open(context.Background(), nil); !errors.Is(err, errNoMic) {
		t.Fatalf("err = %v", err)
	}
	inner.openErr = nil
	if _, err := dev.Open(context.Background(), func([]byte) {}); err != nil {
		t.Errorf("device stuck after failed open: %v", err)
	}
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{Reason: "recorder disabled"}.Open(context.Background(), nil)
	if !errors.Is(err, apperr.ErrDeviceUnavailable) {
		t.Fatalf("err = %v, want ErrDeviceUnavailable", err)
	}
	if !strings.Contains(err.Error(), "recorder disabled") {
		t.Errorf("reason missing: %v", err)
	}
}

func TestCommandDeviceMissingBinary(t *testing.T) {
	dev := &CommandDevice{Command: []string{"reverie-no-such-recorder"}}
	_, err := dev.Open(context.Background(), func([]byte) {})
	if !errors.Is(err, apperr.ErrDeviceUnavailable) {
		t.Fatalf("err = %v, want ErrDeviceUnavailable", err)
	}

	empty := &CommandDevice{}
	if _, err := empty.Open(context.Background(), nil); !errors.Is(err, apperr.ErrDeviceUnavailable) {
		t.Errorf("empty command: err = %v", err)
	}
}

func TestCommandDeviceStreamsStdout(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dev := &CommandDevice{
		Command: []string{"sh", "-c", "printf 'RIFFdata'; exec sleep 5"},
		MIME:    "audio/wav",
	}
	clk := &manualClock{}
	s := NewSession(dev, WithClock(clk))
	var data []byte
	done := make(chan struct{})
	s.OnComplete(func(a models.Artifact) {
		data = a.Data
		close(done)
	})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.buf.Len() == len("RIFFdata")
	}, "stdout not captured")

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	<-done
	if string(data) != "RIFFdata" {
		t.Errorf("data = %q, want RIFFdata", data)
	}
}
