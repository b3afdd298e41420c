package sensor

import (
	"context"
	"time"
)

// syntheticBackend generates a procedurally patterned test card with
// no external resource. Every frame is a pure function of the internal
// counter, so successive frames are distinguishable and any frame is
// bit-reproducible given the same counter value.
type syntheticBackend struct {
	width  int
	height int
	fps    int

	counter uint64
	next    time.Time
}

func newSyntheticBackend(cfg Config) *syntheticBackend {
	return &syntheticBackend{
		width:  cfg.Width,
		height: cfg.Height,
		fps:    cfg.FPS,
	}
}

func (s *syntheticBackend) initialize(ctx context.Context) error {
	return nil
}

func (s *syntheticBackend) open(ctx context.Context) error {
	s.counter = 0
	s.next = time.Time{}
	return nil
}

// grab paces frame production to the configured rate by reporting
// transient unavailability until the next frame is due.
func (s *syntheticBackend) grab(ctx context.Context, dst *Frame) (bool, error) {
	now := time.Now()
	if !s.next.IsZero() && now.Before(s.next) {
		return false, nil
	}

	interval := time.Second / time.Duration(s.fps)
	if s.next.IsZero() || now.Sub(s.next) > interval {
		s.next = now.Add(interval)
	} else {
		s.next = s.next.Add(interval)
	}

	dst.reset(s.width, s.height, 3)
	renderTestCard(dst.Data, s.counter, s.width, s.height)
	s.counter++
	return true, nil
}

func (s *syntheticBackend) release() error {
	return nil
}

func (s *syntheticBackend) close() error {
	return nil
}

// renderTestCard paints a drifting gradient with a moving vertical bar
// into dst (packed BGR, len w*h*3). The pattern depends only on the
// counter and geometry.
func renderTestCard(dst []byte, counter uint64, w, h int) {
	shift := int(counter % uint64(w))
	barX := (shift * 8) % w
	const barWidth = 40

	for y := 0; y < h; y++ {
		row := y * w * 3
		for x := 0; x < w; x++ {
			i := row + x*3
			inBar := x >= barX && x < barX+barWidth
			if inBar {
				dst[i] = 255
				dst[i+1] = 255
				dst[i+2] = 255
				continue
			}
			dst[i] = byte((x + shift*4) & 0xff)
			dst[i+1] = byte((y + shift) & 0xff)
			dst[i+2] = byte((x + y) & 0xff)
		}
	}
}
