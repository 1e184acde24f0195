package harness

import (
	"context"
	"image"
	"io"
	"sync"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/domain"
	"github.com/michaelmahersoftware/experimental-hub-test/internal/ports"
)

// fakeTrack hands out frames pushed by the test, then io.EOF once closed.
type fakeTrack struct {
	frames   chan *domain.Frame
	settings ports.TrackSettings
}

func newFakeTrack(buffer int) *fakeTrack {
	return &fakeTrack{
		frames:   make(chan *domain.Frame, buffer),
		settings: ports.TrackSettings{FrameRate: 30, Width: 640, Height: 480},
	}
}

func (t *fakeTrack) push(w, h int) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	t.frames <- domain.NewFrame(img, nil)
}

func (t *fakeTrack) close() { close(t.frames) }

func (t *fakeTrack) ReadFrame(ctx context.Context) (*domain.Frame, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case f, ok := <-t.frames:
		if !ok {
			return nil, io.EOF
		}
		return f, nil
	}
}

func (t *fakeTrack) Settings() ports.TrackSettings { return t.settings }

// fakeCodec is a trivial stand-in for the QR codec: Encode remembers the
// value, Decode replays a scripted payload or error.
type fakeCodec struct {
	mu        sync.Mutex
	encoded   []string
	decodeVal string
	decodeErr error
}

func (c *fakeCodec) Encode(value string, size int) (image.Image, error) {
	c.mu.Lock()
	c.encoded = append(c.encoded, value)
	c.mu.Unlock()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	return img, nil
}

func (c *fakeCodec) Decode(image.Image) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.decodeErr != nil {
		return "", c.decodeErr
	}
	return c.decodeVal, nil
}

func (c *fakeCodec) encodedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.encoded)
}

type fakeObs struct {
	mu       sync.Mutex
	counters map[string]float64
	errors   []error
}

func newFakeObs() *fakeObs {
	return &fakeObs{counters: make(map[string]float64)}
}

func (o *fakeObs) LogInfo(string, ...ports.Field) {}

func (o *fakeObs) LogError(_ string, err error, _ ...ports.Field) {
	o.mu.Lock()
	o.errors = append(o.errors, err)
	o.mu.Unlock()
}

func (o *fakeObs) LogCritical(string, error, ...ports.Field) {}

func (o *fakeObs) IncCounter(name string, v float64) {
	o.mu.Lock()
	o.counters[name] += v
	o.mu.Unlock()
}

func (o *fakeObs) ObserveLatency(string, float64) {}
func (o *fakeObs) SetGauge(string, float64)       {}

func (o *fakeObs) counter(name string) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counters[name]
}

// fakeConnection lets tests drive state and remote-stream notifications.
type fakeConnection struct {
	mu         sync.Mutex
	state      ports.ConnectionState
	stateSubs  map[int]func(ports.ConnectionState)
	streamSubs map[int]func(ports.MediaStream)
	nextSub    int
	remote     ports.MediaStream
	startErr   error
	started    bool
	stopped    bool
}

func newFakeConnection() *fakeConnection {
	return &fakeConnection{
		state:      ports.StateNew,
		stateSubs:  make(map[int]func(ports.ConnectionState)),
		streamSubs: make(map[int]func(ports.MediaStream)),
	}
}

func (c *fakeConnection) Start(ports.MediaStream) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startErr != nil {
		return c.startErr
	}
	c.started = true
	return nil
}

func (c *fakeConnection) Stop() error {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
	c.setState(ports.StateClosed)
	return nil
}

func (c *fakeConnection) State() ports.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeConnection) RemoteStream() ports.MediaStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remote
}

func (c *fakeConnection) OnStateChange(fn func(ports.ConnectionState)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.stateSubs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.stateSubs, id)
	}
}

func (c *fakeConnection) OnRemoteStreamChange(fn func(ports.MediaStream)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.streamSubs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.streamSubs, id)
	}
}

func (c *fakeConnection) setState(state ports.ConnectionState) {
	c.mu.Lock()
	c.state = state
	subs := make([]func(ports.ConnectionState), 0, len(c.stateSubs))
	for _, fn := range c.stateSubs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn(state)
	}
}

func (c *fakeConnection) emitRemoteStream(stream ports.MediaStream) {
	c.mu.Lock()
	c.remote = stream
	subs := make([]func(ports.MediaStream), 0, len(c.streamSubs))
	for _, fn := range c.streamSubs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn(stream)
	}
}

type fakeStream struct {
	track ports.VideoTrack
}

func (s fakeStream) VideoTrack() ports.VideoTrack { return s.track }

// grayFrame renders a solid frame for drawing tests.
func grayFrame(w, h int) *domain.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	return domain.NewFrame(img, nil)
}
