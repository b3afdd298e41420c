package recorder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/neuronav/go-neuronav/pkg/sensor"
)

// fakeSensor is a scriptable sensor for exercising the record loop.
type fakeSensor struct {
	mu           sync.Mutex
	name         string
	mode         sensor.Mode
	fps          int
	frame        sensor.Frame
	startErr     error
	readErr      error
	readOK       bool
	reads        int
	startCalls   int
	stopCalls    int
	cleanupCalls int
}

func newFakeSensor() *fakeSensor {
	return &fakeSensor{
		name:   "oak-d-pro",
		mode:   sensor.ModeSynthetic,
		fps:    30,
		readOK: true,
		frame:  sensor.Frame{Data: make([]byte, 8*4*3), Width: 8, Height: 4, Channels: 3},
	}
}

func (f *fakeSensor) Initialize(ctx context.Context) error { return nil }

func (f *fakeSensor) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	return f.startErr
}

func (f *fakeSensor) Read(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.readErr != nil {
		return false, f.readErr
	}
	return f.readOK, nil
}

func (f *fakeSensor) Frame() *sensor.Frame { return &f.frame }

func (f *fakeSensor) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	return nil
}

func (f *fakeSensor) Cleanup() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanupCalls++
	return nil
}

func (f *fakeSensor) Name() string      { return f.name }
func (f *fakeSensor) Mode() sensor.Mode { return f.mode }
func (f *fakeSensor) FPS() int          { return f.fps }

func (f *fakeSensor) calls() (start, stop, cleanup int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls, f.stopCalls, f.cleanupCalls
}

var _ sensor.SensorWithRate = (*fakeSensor)(nil)

// fakeWriter records writes and closes.
type fakeWriter struct {
	mu     sync.Mutex
	writes int
	closes int
	fps    int
	width  int
	height int
}

func (w *fakeWriter) Write(f *sensor.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes++
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closes++
	return nil
}

// testClient builds a client writing into the fake writer.
func testClient(t *testing.T, w *fakeWriter) (*Client, *int) {
	t.Helper()
	opened := 0
	c, err := NewClient("test-key",
		WithOutputDir(t.TempDir()),
		WithPollInterval(time.Millisecond),
		WithWriterFactory(func(path string, width, height, fps int) (FrameWriter, error) {
			opened++
			w.width, w.height, w.fps = width, height, fps
			return w, nil
		}),
	)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c, &opened
}

func TestNewClient_EmptyAPIKey(t *testing.T) {
	if _, err := NewClient(""); !errors.Is(err, ErrAPIKeyRequired) {
		t.Fatalf("expected ErrAPIKeyRequired, got %v", err)
	}
}

func TestRecord_DurationBound(t *testing.T) {
	s := newFakeSensor()
	w := &fakeWriter{}
	c, opened := testClient(t, w)

	begin := time.Now()
	rec, err := c.Record(context.Background(), s, 200*time.Millisecond)
	elapsed := time.Since(begin)

	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if elapsed < 200*time.Millisecond || elapsed > time.Second {
		t.Errorf("Record took %v, want roughly the 200ms duration", elapsed)
	}
	if rec.Frames == 0 {
		t.Error("expected frames to be written")
	}
	if *opened != 1 {
		t.Errorf("writer opened %d times, want 1", *opened)
	}
	if w.closes != 1 {
		t.Errorf("writer closed %d times, want 1", w.closes)
	}
	start, stop, cleanup := s.calls()
	if start != 1 || stop != 1 || cleanup != 1 {
		t.Errorf("lifecycle calls start=%d stop=%d cleanup=%d, want 1 each", start, stop, cleanup)
	}
}

func TestRecord_CancellationIsNormalTermination(t *testing.T) {
	s := newFakeSensor()
	w := &fakeWriter{}
	c, _ := testClient(t, w)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	// Unbounded recording: only cancellation ends it.
	rec, err := c.Record(ctx, s, 0)
	if err != nil {
		t.Fatalf("cancelled Record returned error: %v", err)
	}
	if rec == nil {
		t.Fatal("cancelled Record returned nil recording")
	}

	start, stop, cleanup := s.calls()
	if start != 1 || stop != 1 || cleanup != 1 {
		t.Errorf("lifecycle calls start=%d stop=%d cleanup=%d, want 1 each", start, stop, cleanup)
	}
	if w.closes != 1 {
		t.Errorf("writer closed %d times, want 1", w.closes)
	}
}

func TestRecord_ReadErrorStillCleansUp(t *testing.T) {
	s := newFakeSensor()
	s.readErr = errors.New("capture wedged")
	w := &fakeWriter{}
	c, opened := testClient(t, w)

	_, err := c.Record(context.Background(), s, time.Second)
	if err == nil || !strings.Contains(err.Error(), "capture wedged") {
		t.Fatalf("expected read error to propagate, got %v", err)
	}

	_, stop, cleanup := s.calls()
	if stop != 1 || cleanup != 1 {
		t.Errorf("lifecycle calls stop=%d cleanup=%d after error, want 1 each", stop, cleanup)
	}
	if *opened != 0 {
		t.Errorf("writer opened %d times before first frame, want 0", *opened)
	}
}

func TestRecord_LazyWriterNeverOpensWithoutFrames(t *testing.T) {
	s := newFakeSensor()
	s.readOK = false // transient unavailability forever
	w := &fakeWriter{}
	c, opened := testClient(t, w)

	rec, err := c.Record(context.Background(), s, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if *opened != 0 {
		t.Errorf("writer opened %d times with no frames, want 0", *opened)
	}
	if rec.Frames != 0 {
		t.Errorf("recorded %d frames from an empty sensor", rec.Frames)
	}
	if rec.Path != "" {
		t.Errorf("expected empty artifact path with no frames, got %s", rec.Path)
	}
	if s.reads == 0 {
		t.Error("expected the loop to poll the sensor")
	}
}

func TestRecord_StartFailureCleansUp(t *testing.T) {
	s := newFakeSensor()
	s.startErr = errors.New("device busy")
	c, _ := testClient(t, &fakeWriter{})

	_, err := c.Record(context.Background(), s, time.Second)
	if err == nil {
		t.Fatal("expected Start failure to propagate")
	}
	_, _, cleanup := s.calls()
	if cleanup != 1 {
		t.Errorf("cleanup called %d times after failed start, want 1", cleanup)
	}
}

func TestRecord_WriterGeometryFromFirstFrame(t *testing.T) {
	s := newFakeSensor()
	s.frame = sensor.Frame{Data: make([]byte, 320*240*3), Width: 320, Height: 240, Channels: 3}
	s.fps = 15
	w := &fakeWriter{}
	c, _ := testClient(t, w)

	if _, err := c.Record(context.Background(), s, 30*time.Millisecond); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if w.width != 320 || w.height != 240 {
		t.Errorf("writer geometry %dx%d, want 320x240", w.width, w.height)
	}
	if w.fps != 15 {
		t.Errorf("writer fps %d, want the sensor rate 15", w.fps)
	}
}

func TestArtifactPath(t *testing.T) {
	ts := time.Date(2026, 8, 29, 14, 30, 5, 0, time.UTC)
	got := artifactPath("recordings", "oak-d-pro", sensor.ModeWebcam, ts)
	want := "recordings/20260829_143005_oak_d_pro_webcam.mp4"
	if got != want {
		t.Errorf("artifactPath = %s, want %s", got, want)
	}
}
