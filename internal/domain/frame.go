package domain

import "image"

// Frame is one decoded video frame pulled from a live track. Release must be
// called exactly once per frame, on every path, so the producing track can
// recycle the underlying buffer.
type Frame struct {
	Image   image.Image
	Width   int
	Height  int
	release func()
}

// NewFrame wraps an image in a Frame. release may be nil.
func NewFrame(img image.Image, release func()) *Frame {
	b := img.Bounds()
	return &Frame{
		Image:   img,
		Width:   b.Dx(),
		Height:  b.Dy(),
		release: release,
	}
}

// Release returns the frame's buffer to its producer. Safe to call when no
// release hook was attached.
func (f *Frame) Release() {
	if f.release != nil {
		f.release()
		f.release = nil
	}
}
