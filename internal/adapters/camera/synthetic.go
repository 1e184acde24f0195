// Package camera provides local frame sources for latency runs. The synthetic
// track replaces a physical webcam in headless and CI environments.
package camera

import (
	"context"
	"image"
	"io"
	"sync"
	"time"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/domain"
	"github.com/michaelmahersoftware/experimental-hub-test/internal/ports"
)

// Synthetic is a ticker-driven video track rendering an animated test
// pattern: a horizontal luma gradient with a moving white bar. Frame buffers
// are pooled and recycled through Frame.Release.
type Synthetic struct {
	width     int
	height    int
	frameRate float64

	pool sync.Pool

	mu       sync.Mutex
	closed   bool
	ticker   *time.Ticker
	frameNum int
	closeCh  chan struct{}
}

func NewSynthetic(width, height int, frameRate float64) *Synthetic {
	s := &Synthetic{
		width:     width,
		height:    height,
		frameRate: frameRate,
		closeCh:   make(chan struct{}),
	}
	s.pool.New = func() any {
		return image.NewRGBA(image.Rect(0, 0, width, height))
	}
	return s
}

// ReadFrame blocks until the next frame interval, then renders and returns
// one pattern frame. Returns io.EOF once the track is closed.
func (s *Synthetic) ReadFrame(ctx context.Context) (*domain.Frame, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, io.EOF
	}
	if s.ticker == nil {
		s.ticker = time.NewTicker(time.Duration(float64(time.Second) / s.frameRate))
	}
	ticker := s.ticker
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.closeCh:
		return nil, io.EOF
	case <-ticker.C:
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, io.EOF
	}
	n := s.frameNum
	s.frameNum++
	s.mu.Unlock()

	img := s.pool.Get().(*image.RGBA)
	s.renderPattern(img, n)
	return domain.NewFrame(img, func() { s.pool.Put(img) }), nil
}

func (s *Synthetic) Settings() ports.TrackSettings {
	return ports.TrackSettings{FrameRate: s.frameRate, Width: s.width, Height: s.height}
}

// Close stops the pattern generator. Pending and future ReadFrame calls
// return io.EOF.
func (s *Synthetic) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.closeCh)
}

// renderPattern draws a horizontal gradient with vertical shading and a
// white bar sweeping left to right, so consecutive frames are visibly
// distinct on both sides of the connection.
func (s *Synthetic) renderPattern(img *image.RGBA, frameNum int) {
	t := float64(frameNum) / s.frameRate
	barPos := int(t*200) % s.width
	barWidth := s.width / 10
	if barWidth == 0 {
		barWidth = 1
	}

	for y := 0; y < s.height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+4*s.width]
		for x := 0; x < s.width; x++ {
			luma := (x*200)/s.width + 40
			if x >= barPos && x < barPos+barWidth {
				luma = 235
			}
			luma = (luma*3 + (y*60)/s.height) / 4

			off := 4 * x
			row[off+0] = uint8(luma)
			row[off+1] = uint8(luma)
			row[off+2] = uint8((luma + (frameNum*7)%64) % 256)
			row[off+3] = 0xff
		}
	}
}

var _ ports.VideoTrack = (*Synthetic)(nil)
