package sensor

// Frame is an in-memory image buffer of packed BGR bytes, row-major.
// Frames are transient: a frame returned by Sensor.Frame is reused by
// the next Read, so callers that retain one must Clone it.
type Frame struct {
	// Data holds Height*Width*Channels bytes.
	Data []byte

	// Width is the frame width in pixels.
	Width int

	// Height is the frame height in pixels.
	Height int

	// Channels is the number of color channels (3 for BGR).
	Channels int
}

// Size returns the expected byte length for the frame geometry.
func (f *Frame) Size() int {
	return f.Width * f.Height * f.Channels
}

// Empty reports whether the frame holds no pixel data.
func (f *Frame) Empty() bool {
	return len(f.Data) == 0
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() Frame {
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	return Frame{Data: data, Width: f.Width, Height: f.Height, Channels: f.Channels}
}

// reset prepares the frame buffer for the given geometry, reallocating
// only when the size changed.
func (f *Frame) reset(width, height, channels int) {
	f.Width = width
	f.Height = height
	f.Channels = channels
	if size := f.Size(); len(f.Data) != size {
		f.Data = make([]byte, size)
	}
}
