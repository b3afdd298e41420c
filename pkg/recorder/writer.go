package recorder

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/neuronav/go-neuronav/pkg/sensor"
)

// FrameWriter persists frames into a video artifact. Close finalizes
// the container; a writer that is never opened produces no file.
type FrameWriter interface {
	Write(f *sensor.Frame) error
	Close() error
}

// WriterFactory opens a FrameWriter for the given artifact path and
// geometry. The recording client opens the writer lazily, on the first
// successful frame, so the geometry comes from the frame itself.
type WriterFactory func(path string, width, height, fps int) (FrameWriter, error)

// videoWriter writes mp4v video through OpenCV.
type videoWriter struct {
	vw     *gocv.VideoWriter
	width  int
	height int
}

// newVideoWriter is the default WriterFactory.
func newVideoWriter(path string, width, height, fps int) (FrameWriter, error) {
	vw, err := gocv.VideoWriterFile(path, "mp4v", float64(fps), width, height, true)
	if err != nil {
		return nil, fmt.Errorf("recorder: open video writer %s: %w", path, err)
	}
	if !vw.IsOpened() {
		vw.Close()
		return nil, fmt.Errorf("recorder: video writer %s did not open", path)
	}
	return &videoWriter{vw: vw, width: width, height: height}, nil
}

func (w *videoWriter) Write(f *sensor.Frame) error {
	mat, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Data)
	if err != nil {
		return fmt.Errorf("recorder: frame to mat: %w", err)
	}
	defer mat.Close()

	return w.vw.Write(mat)
}

func (w *videoWriter) Close() error {
	return w.vw.Close()
}
