package harness

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"io"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/domain"
	"github.com/michaelmahersoftware/experimental-hub-test/internal/ports"
)

// overlayOffset is the fixed top-left position of the QR overlay on the
// canvas, in pixels.
const overlayOffset = 10

// OverlayRegion is the rectangle containing the QR overlay plus its quiet
// zone. The sampler reads back only this sub-region; decode cost scales with
// region area, not frame area.
func OverlayRegion(qrSize int) image.Rectangle {
	return image.Rect(0, 0, 2*overlayOffset+qrSize, 2*overlayOffset+qrSize)
}

// Canvas is the drawing surface a frame pump composites onto. It doubles as
// an outgoing capture stream: Publish snapshots the surface into a
// single-slot channel the connection drains, dropping snapshots when the
// consumer lags so the frame loop is never blocked on transmission.
type Canvas struct {
	mu     sync.Mutex
	img    *image.RGBA
	closed bool

	frameRate float64
	out       chan *domain.Frame
}

func NewCanvas(width, height int, frameRate float64) *Canvas {
	return &Canvas{
		img:       image.NewRGBA(image.Rect(0, 0, width, height)),
		frameRate: frameRate,
		out:       make(chan *domain.Frame, 1),
	}
}

// Resize reallocates the surface when the frame display dimensions change.
func (c *Canvas) Resize(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return
	}
	c.img = image.NewRGBA(image.Rect(0, 0, width, height))
}

// DrawFrame composites the frame over the whole surface, scaling when the
// source dimensions differ from the canvas.
func (c *Canvas) DrawFrame(f *domain.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dst := c.img.Bounds()
	src := f.Image.Bounds()
	if src.Dx() == dst.Dx() && src.Dy() == dst.Dy() {
		draw.Draw(c.img, dst, f.Image, src.Min, draw.Src)
		return
	}
	xdraw.ApproxBiLinear.Scale(c.img, dst, f.Image, src, xdraw.Src, nil)
}

// Clear fills the surface with white, the background used when the live
// camera image is not drawn behind the overlay.
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
}

// DrawOverlay places the barcode image at the fixed top-left offset.
func (c *Canvas) DrawOverlay(img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := img.Bounds()
	dst := image.Rect(overlayOffset, overlayOffset, overlayOffset+b.Dx(), overlayOffset+b.Dy())
	draw.Draw(c.img, dst, img, b.Min, draw.Src)
}

// Region copies the given rectangle out of the surface.
func (c *Canvas) Region(r image.Rectangle) image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	r = r.Intersect(c.img.Bounds())
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), c.img, r.Min, draw.Src)
	return out
}

// Size returns the current surface dimensions.
func (c *Canvas) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

// Publish snapshots the surface into the capture stream. Reports whether the
// snapshot was delivered; a false return means the consumer had not drained
// the previous frame and this one was dropped.
func (c *Canvas) Publish() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	b := c.img.Bounds()
	snapshot := image.NewRGBA(b)
	copy(snapshot.Pix, c.img.Pix)

	select {
	case c.out <- domain.NewFrame(snapshot, nil):
		return true
	default:
		return false
	}
}

// Close ends the capture stream; pending readers observe io.EOF.
func (c *Canvas) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.out)
	}
}

// CaptureStream exposes the canvas as the outgoing media stream handed to
// the connection.
func (c *Canvas) CaptureStream() ports.MediaStream {
	return captureStream{c: c}
}

type captureStream struct {
	c *Canvas
}

func (s captureStream) VideoTrack() ports.VideoTrack {
	return captureTrack{c: s.c}
}

type captureTrack struct {
	c *Canvas
}

func (t captureTrack) ReadFrame(ctx context.Context) (*domain.Frame, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case f, ok := <-t.c.out:
		if !ok {
			return nil, io.EOF
		}
		return f, nil
	}
}

func (t captureTrack) Settings() ports.TrackSettings {
	w, h := t.c.Size()
	return ports.TrackSettings{FrameRate: t.c.frameRate, Width: w, Height: h}
}

var _ ports.VideoTrack = captureTrack{}
