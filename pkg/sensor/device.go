package sensor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/neuronav/go-neuronav/pkg/deps"
)

// deviceEnumScript counts connected OAK units that are free to claim.
const deviceEnumScript = `import depthai as dai
print(len(dai.Device.getAllAvailableDevices()))`

// devicePipelineScript builds the capture pipeline (color camera into
// an XLink output queue), uploads it to the unit and streams raw BGR
// frames on stdout. Argv: width, height, fps, optional device id.
const devicePipelineScript = `import sys
import depthai as dai

w, h, fps = int(sys.argv[1]), int(sys.argv[2]), int(sys.argv[3])

pipeline = dai.Pipeline()
cam = pipeline.create(dai.node.ColorCamera)
cam.setResolution(dai.ColorCameraProperties.SensorResolution.THE_1080_P)
cam.setFps(fps)
cam.setIspScale(1, 2)
cam.setVideoSize(w, h)

xout = pipeline.create(dai.node.XLinkOut)
xout.setStreamName("video")
cam.video.link(xout.input)

if len(sys.argv) > 4 and sys.argv[4]:
    device = dai.Device(pipeline, dai.DeviceInfo(sys.argv[4]))
else:
    device = dai.Device(pipeline)

out = sys.stdout.buffer
with device:
    q = device.getOutputQueue(name="video", maxSize=8, blocking=False)
    while True:
        pkt = q.get()
        out.write(pkt.getCvFrame().tobytes())
        out.flush()`

// deviceQueueDepth bounds the frame queue between the pipeline reader
// and grab; when full the oldest frame is dropped, matching the
// non-blocking output queue on the unit itself.
const deviceQueueDepth = 8

// deviceBackend drives a physical OAK depth camera through the
// DepthAI toolchain. The toolchain is pip-distributed, so initialize
// resolves it through pkg/deps before first use; the pipeline itself
// runs in an interpreter subprocess whose stdout is drained into a
// bounded frame queue.
type deviceBackend struct {
	cfg      Config
	logger   *slog.Logger
	resolver *deps.Resolver

	cmd    *exec.Cmd
	cancel context.CancelFunc
	frames chan []byte
	stderr *stderrSink

	mu     sync.Mutex
	runErr error
}

func newDeviceBackend(cfg Config, logger *slog.Logger) *deviceBackend {
	return &deviceBackend{
		cfg:      cfg,
		logger:   logger,
		resolver: deps.Default(),
	}
}

func (d *deviceBackend) initialize(ctx context.Context) error {
	if _, err := d.resolver.Ensure(ctx, deps.DepthAI); err != nil {
		return err
	}
	// getCvFrame on the toolchain side needs the video library too.
	if _, err := d.resolver.Ensure(ctx, deps.OpenCV); err != nil {
		return err
	}

	n, err := d.enumerate(ctx)
	if err != nil {
		return fmt.Errorf("sensor: enumerate devices: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: no OAK device connected", ErrDeviceNotFound)
	}

	d.logger.Info("depth devices enumerated", "count", n)
	return nil
}

func (d *deviceBackend) enumerate(ctx context.Context) (int, error) {
	out, err := exec.CommandContext(ctx, d.cfg.PythonBin, "-c", deviceEnumScript).Output()
	if err != nil {
		return 0, err
	}
	return parseDeviceCount(out)
}

func (d *deviceBackend) open(ctx context.Context) error {
	// A unit that was present at initialize but is no longer claimable
	// is held by another process.
	n, err := d.enumerate(ctx)
	if err != nil {
		return fmt.Errorf("sensor: enumerate devices: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: device claimed by another process", ErrDeviceBusy)
	}

	// The pipeline outlives the Start call's context; it is torn down
	// by release, not by the caller's cancellation.
	runCtx, cancel := context.WithCancel(context.Background())

	cmd := exec.CommandContext(runCtx, d.cfg.PythonBin, "-c", devicePipelineScript,
		strconv.Itoa(d.cfg.Width),
		strconv.Itoa(d.cfg.Height),
		strconv.Itoa(d.cfg.FPS),
		d.cfg.DeviceID,
	)
	sink := &stderrSink{}
	cmd.Stderr = sink

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("sensor: device pipeline stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("sensor: start device pipeline: %w", err)
	}

	d.cmd = cmd
	d.cancel = cancel
	d.stderr = sink
	d.frames = make(chan []byte, deviceQueueDepth)
	d.setRunErr(nil)

	go d.drain(stdout)

	d.logger.Info("device pipeline uploaded",
		"python", d.cfg.PythonBin,
		"device_id", d.cfg.DeviceID,
	)
	return nil
}

// drain reads fixed-size raw frames from the pipeline subprocess into
// the frame queue, dropping the oldest frame when the queue is full.
func (d *deviceBackend) drain(stdout io.Reader) {
	frameSize := d.cfg.Width * d.cfg.Height * 3
	for {
		buf := make([]byte, frameSize)
		if _, err := io.ReadFull(stdout, buf); err != nil {
			d.setRunErr(d.mapPipelineErr(err))
			close(d.frames)
			return
		}

		select {
		case d.frames <- buf:
		default:
			select {
			case <-d.frames:
			default:
			}
			select {
			case d.frames <- buf:
			default:
			}
		}
	}
}

func (d *deviceBackend) mapPipelineErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		err = fmt.Errorf("pipeline exited")
	}
	if d.stderr.busy() {
		return fmt.Errorf("%w: %v", ErrDeviceBusy, err)
	}
	tail := d.stderr.tail()
	if tail != "" {
		return fmt.Errorf("sensor: device pipeline: %v (stderr: %s)", err, tail)
	}
	return fmt.Errorf("sensor: device pipeline: %v", err)
}

func (d *deviceBackend) grab(ctx context.Context, dst *Frame) (bool, error) {
	select {
	case buf, ok := <-d.frames:
		if !ok {
			return false, d.getRunErr()
		}
		dst.Data = buf
		dst.Width = d.cfg.Width
		dst.Height = d.cfg.Height
		dst.Channels = 3
		return true, nil
	default:
		// Queue empty; a dead pipeline surfaces once the reader closes
		// the queue.
		return false, nil
	}
}

func (d *deviceBackend) release() error {
	if d.cmd == nil {
		return nil
	}

	d.cancel()
	_ = d.cmd.Wait()
	for range d.frames {
		// drain until the reader closes the queue
	}

	d.cmd = nil
	d.cancel = nil
	d.frames = nil
	d.stderr = nil
	d.setRunErr(nil)

	d.logger.Info("device pipeline released")
	return nil
}

func (d *deviceBackend) close() error {
	return d.release()
}

func (d *deviceBackend) setRunErr(err error) {
	d.mu.Lock()
	d.runErr = err
	d.mu.Unlock()
}

func (d *deviceBackend) getRunErr() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.runErr
}

// parseDeviceCount parses the enumeration script output.
func parseDeviceCount(out []byte) (int, error) {
	s := strings.TrimSpace(string(out))
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("unexpected enumeration output %q", s)
	}
	return n, nil
}

// stderrSink captures the pipeline's stderr tail and watches for the
// markers XLink emits when the unit is claimed elsewhere.
type stderrSink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

const stderrTailLimit = 8 << 10

var busyMarkers = []string{
	"X_LINK_DEVICE_ALREADY_IN_USE",
	"already in use",
	"ALREADY_BOOTED",
}

func (s *stderrSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Write(p)
	if s.buf.Len() > stderrTailLimit {
		tail := s.buf.Bytes()[s.buf.Len()-stderrTailLimit:]
		trimmed := make([]byte, len(tail))
		copy(trimmed, tail)
		s.buf.Reset()
		s.buf.Write(trimmed)
	}
	return len(p), nil
}

func (s *stderrSink) busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.buf.String()
	for _, marker := range busyMarkers {
		if strings.Contains(out, marker) {
			return true
		}
	}
	return false
}

func (s *stderrSink) tail() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.TrimSpace(s.buf.String())
}
