package loopback

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/domain"
	"github.com/michaelmahersoftware/experimental-hub-test/internal/ports"
)

// Config controls the loopback connection.
type Config struct {
	// FrameDelay is the number of frames held back before delivery, adding
	// FrameDelay/fps of artificial latency to the echoed stream.
	FrameDelay int
	// QueueCapacity bounds the delay buffer. Zero means FrameDelay+8.
	QueueCapacity int
}

// Connection echoes the local capture stream back as the remote stream after
// the configured frame delay.
type Connection struct {
	cfg Config
	obs ports.Observability

	mu         sync.Mutex
	state      ports.ConnectionState
	stateSubs  map[int]func(ports.ConnectionState)
	streamSubs map[int]func(ports.MediaStream)
	nextSub    int
	remote     *remoteStream

	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg Config, obs ports.Observability) *Connection {
	return &Connection{
		cfg:        cfg,
		obs:        obs,
		state:      ports.StateNew,
		stateSubs:  make(map[int]func(ports.ConnectionState)),
		streamSubs: make(map[int]func(ports.MediaStream)),
		done:       make(chan struct{}),
	}
}

// Start begins echoing the local stream. The remote stream is announced once
// the forwarding loop is live.
func (c *Connection) Start(local ports.MediaStream) error {
	c.mu.Lock()
	if c.state != ports.StateNew {
		c.mu.Unlock()
		return errors.New("loopback: connection already started")
	}
	if local == nil || local.VideoTrack() == nil {
		c.mu.Unlock()
		return errors.New("loopback: local stream has no video track")
	}

	capacity := c.cfg.QueueCapacity
	if capacity <= 0 {
		capacity = c.cfg.FrameDelay + 8
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.remote = newRemoteStream(local.VideoTrack())
	remote := c.remote
	c.mu.Unlock()

	c.setState(ports.StateConnecting)

	go c.forward(ctx, local.VideoTrack(), remote, newFrameQueue(capacity))

	c.setState(ports.StateConnected)
	c.emitRemoteStream(remote)
	return nil
}

// Stop tears the echo down and moves the connection to its closed state.
func (c *Connection) Stop() error {
	c.mu.Lock()
	if c.state == ports.StateClosed || c.state == ports.StateFailed {
		c.mu.Unlock()
		return nil
	}
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.setState(ports.StateClosed)
	return nil
}

func (c *Connection) State() ports.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) RemoteStream() ports.MediaStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remote == nil {
		return nil
	}
	return c.remote
}

func (c *Connection) OnStateChange(fn func(ports.ConnectionState)) func() {
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

func (c *Connection) OnRemoteStreamChange(fn func(ports.MediaStream)) func() {
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

// Done is closed once the forwarding loop has exited.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// forward shuttles frames from the local track into the remote stream,
// holding FrameDelay frames in the queue so the echo arrives late by a known
// amount. Exits when the local track ends or the connection stops.
func (c *Connection) forward(ctx context.Context, track ports.VideoTrack, remote *remoteStream, queue *frameQueue) {
	defer func() {
		queue.drain()
		remote.close()
		close(c.done)
	}()

	for {
		frame, err := track.ReadFrame(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
				c.obs.LogError("loopback_forward", err)
			}
			return
		}

		if !queue.enqueue(frame) {
			frame.Release()
			c.obs.IncCounter("hub_capture_frames_dropped_total", 1)
			continue
		}
		if queue.len() <= c.cfg.FrameDelay {
			continue
		}
		delayed, ok := queue.dequeue()
		if !ok {
			continue
		}
		if !remote.deliver(delayed) {
			delayed.Release()
			c.obs.IncCounter("hub_capture_frames_dropped_total", 1)
		}
	}
}

// setState transitions the connection and notifies subscribers. Handlers run
// outside the lock so they may unsubscribe or stop the connection.
func (c *Connection) setState(state ports.ConnectionState) {
	c.mu.Lock()
	if c.state == state {
		c.mu.Unlock()
		return
	}
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

func (c *Connection) emitRemoteStream(stream ports.MediaStream) {
	c.mu.Lock()
	subs := make([]func(ports.MediaStream), 0, len(c.streamSubs))
	for _, fn := range c.streamSubs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(stream)
	}
}

// remoteStream exposes the delayed echo as a media stream.
type remoteStream struct {
	source ports.VideoTrack

	mu     sync.Mutex
	closed bool
	frames chan *domain.Frame
}

func newRemoteStream(source ports.VideoTrack) *remoteStream {
	return &remoteStream{
		source: source,
		frames: make(chan *domain.Frame, 1),
	}
}

func (s *remoteStream) VideoTrack() ports.VideoTrack { return s }

func (s *remoteStream) deliver(f *domain.Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.frames <- f:
		return true
	default:
		return false
	}
}

func (s *remoteStream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.frames)
	}
}

func (s *remoteStream) ReadFrame(ctx context.Context) (*domain.Frame, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case f, ok := <-s.frames:
		if !ok {
			return nil, io.EOF
		}
		return f, nil
	}
}

// Settings mirror the local capture track; the echo does not rescale.
func (s *remoteStream) Settings() ports.TrackSettings {
	return s.source.Settings()
}

var (
	_ ports.Connection  = (*Connection)(nil)
	_ ports.MediaStream = (*remoteStream)(nil)
	_ ports.VideoTrack  = (*remoteStream)(nil)
)
