package sensor

import (
	"context"
	"errors"
	"testing"

	"github.com/neuronav/go-neuronav/pkg/deps"
)

func TestParseDeviceCount(t *testing.T) {
	cases := []struct {
		out     string
		want    int
		wantErr bool
	}{
		{"0\n", 0, false},
		{"2\n", 2, false},
		{" 1 ", 1, false},
		{"", 0, true},
		{"traceback", 0, true},
	}
	for _, tc := range cases {
		got, err := parseDeviceCount([]byte(tc.out))
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseDeviceCount(%q): expected error", tc.out)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseDeviceCount(%q) failed: %v", tc.out, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseDeviceCount(%q) = %d, want %d", tc.out, got, tc.want)
		}
	}
}

func TestStderrSink_BusyMarkers(t *testing.T) {
	for _, marker := range []string{
		"RuntimeError: Failed to connect to device: X_LINK_DEVICE_ALREADY_IN_USE",
		"device is already in use by another process",
	} {
		sink := &stderrSink{}
		sink.Write([]byte(marker))
		if !sink.busy() {
			t.Errorf("expected busy for %q", marker)
		}
	}

	sink := &stderrSink{}
	sink.Write([]byte("some unrelated warning"))
	if sink.busy() {
		t.Error("unexpected busy for unrelated output")
	}
}

func TestStderrSink_TailBounded(t *testing.T) {
	sink := &stderrSink{}
	chunk := make([]byte, 1024)
	for i := range chunk {
		chunk[i] = 'x'
	}
	for i := 0; i < 32; i++ {
		sink.Write(chunk)
	}
	if got := len(sink.tail()); got > stderrTailLimit {
		t.Errorf("tail length %d exceeds limit %d", got, stderrTailLimit)
	}
}

func TestDeviceBackend_InitializeDependencyFailure(t *testing.T) {
	cfg := DefaultConfig()
	a, err := NewAdapter("oak-d-pro", cfg, nil)
	if err != nil {
		t.Fatalf("NewAdapter failed: %v", err)
	}
	a.backend.(*deviceBackend).resolver = failingResolver()

	err = a.Initialize(context.Background())
	if !errors.Is(err, deps.ErrUnavailable) {
		t.Fatalf("expected deps.ErrUnavailable, got %v", err)
	}

	// Cleanup after the failed Initialize must not throw.
	if err := a.Cleanup(); err != nil {
		t.Fatalf("Cleanup after failed Initialize failed: %v", err)
	}
}
