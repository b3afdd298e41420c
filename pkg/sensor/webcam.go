package sensor

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// webcamBackend captures from an indexed device through OpenCV.
type webcamBackend struct {
	index  int
	width  int
	height int
	fps    int

	cap *gocv.VideoCapture
	mat gocv.Mat
}

func newWebcamBackend(cfg Config) *webcamBackend {
	return &webcamBackend{
		index:  cfg.DeviceIndex,
		width:  cfg.Width,
		height: cfg.Height,
		fps:    cfg.FPS,
	}
}

// initialize is a no-op: the video library is compiled in, and the
// device itself is only claimed by open.
func (w *webcamBackend) initialize(ctx context.Context) error {
	return nil
}

func (w *webcamBackend) open(ctx context.Context) error {
	cap, err := gocv.OpenVideoCapture(w.index)
	if err != nil {
		return fmt.Errorf("%w: webcam index %d: %v", ErrDeviceNotFound, w.index, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return fmt.Errorf("%w: webcam index %d", ErrDeviceBusy, w.index)
	}

	// Some webcams ignore these; grab resizes when they do.
	cap.Set(gocv.VideoCaptureFrameWidth, float64(w.width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(w.height))
	cap.Set(gocv.VideoCaptureFPS, float64(w.fps))

	w.cap = cap
	w.mat = gocv.NewMat()
	return nil
}

func (w *webcamBackend) grab(ctx context.Context, dst *Frame) (bool, error) {
	if !w.cap.Read(&w.mat) || w.mat.Empty() {
		return false, nil
	}

	if w.mat.Cols() != w.width || w.mat.Rows() != w.height {
		gocv.Resize(w.mat, &w.mat, image.Pt(w.width, w.height), 0, 0, gocv.InterpolationLinear)
	}

	dst.reset(w.width, w.height, w.mat.Channels())
	copy(dst.Data, w.mat.ToBytes())
	return true, nil
}

func (w *webcamBackend) release() error {
	if w.cap == nil {
		return nil
	}
	err := w.cap.Close()
	w.cap = nil
	if cerr := w.mat.Close(); err == nil {
		err = cerr
	}
	return err
}

func (w *webcamBackend) close() error {
	return w.release()
}
