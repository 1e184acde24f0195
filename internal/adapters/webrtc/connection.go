// Package webrtc connects two harness instances through a pion peer
// connection. Frames travel as JPEG payloads over an ordered data channel,
// which keeps the transport pure Go with no native codec dependency.
package webrtc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"sync"

	pion "github.com/pion/webrtc/v4"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/ports"
)

// maxFramePayload is the largest data channel message we send. Frames whose
// JPEG encoding exceeds it are dropped rather than fragmented.
const maxFramePayload = 64 << 10

const frameChannelLabel = "frames"

// Config for the WebRTC transport.
type Config struct {
	// SignalingURL is the websocket endpoint relaying SDP and ICE between
	// the two peers of a session.
	SignalingURL string
	// SessionID pairs the two peers on the signaling server.
	SessionID   string
	STUNServers []string
	// JPEGQuality for outgoing frames, 1-100. Zero means 70.
	JPEGQuality int
}

// Connection implements the connection port on top of pion.
type Connection struct {
	cfg Config
	obs ports.Observability

	mu         sync.Mutex
	state      ports.ConnectionState
	stateSubs  map[int]func(ports.ConnectionState)
	streamSubs map[int]func(ports.MediaStream)
	nextSub    int
	remote     *remoteTrack

	pc      *pion.PeerConnection
	signal  *signalClient
	sendDC  *pion.DataChannel
	pending []pion.ICECandidateInit
	haveSDP bool

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

func New(cfg Config, obs ports.Observability) *Connection {
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = 70
	}
	return &Connection{
		cfg:        cfg,
		obs:        obs,
		state:      ports.StateNew,
		stateSubs:  make(map[int]func(ports.ConnectionState)),
		streamSubs: make(map[int]func(ports.MediaStream)),
	}
}

// Start dials the signaling server, builds the peer connection, and begins
// pushing local capture frames over the outbound data channel. Returns
// ErrUnsupported when no signaling endpoint is configured.
func (c *Connection) Start(local ports.MediaStream) error {
	c.mu.Lock()
	if c.state != ports.StateNew {
		c.mu.Unlock()
		return errors.New("webrtc: connection already started")
	}
	c.mu.Unlock()

	if c.cfg.SignalingURL == "" {
		return fmt.Errorf("%w: no signaling endpoint configured", ports.ErrUnsupported)
	}
	if local == nil || local.VideoTrack() == nil {
		return errors.New("webrtc: local stream has no video track")
	}

	signal, err := dialSignaling(c.cfg.SignalingURL)
	if err != nil {
		return err
	}

	iceServers := make([]pion.ICEServer, 0, len(c.cfg.STUNServers))
	for _, u := range c.cfg.STUNServers {
		iceServers = append(iceServers, pion.ICEServer{URLs: []string{u}})
	}
	pc, err := pion.NewPeerConnection(pion.Configuration{ICEServers: iceServers})
	if err != nil {
		signal.close()
		return fmt.Errorf("webrtc: peer connection: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.pc = pc
	c.signal = signal
	c.remote = newRemoteTrack()
	c.ctx = ctx
	c.cancel = cancel
	c.mu.Unlock()

	c.setState(ports.StateConnecting)

	pc.OnConnectionStateChange(c.handlePeerState)
	pc.OnICECandidate(func(candidate *pion.ICECandidate) {
		if err := signal.sendCandidate(candidate); err != nil {
			c.obs.LogError("webrtc_send_candidate", err)
		}
	})
	pc.OnDataChannel(func(dc *pion.DataChannel) {
		if dc.Label() != frameChannelLabel {
			return
		}
		c.attachInbound(dc)
	})

	// Each peer opens its own outbound channel; the inbound one arrives via
	// OnDataChannel from the other side.
	ordered := true
	sendDC, err := pc.CreateDataChannel(frameChannelLabel, &pion.DataChannelInit{Ordered: &ordered})
	if err != nil {
		c.teardown()
		return fmt.Errorf("webrtc: data channel: %w", err)
	}
	c.mu.Lock()
	c.sendDC = sendDC
	c.mu.Unlock()

	sendDC.OnOpen(func() {
		go c.pumpOutbound(ctx, local.VideoTrack(), sendDC)
	})

	if err := signal.sendJoin(c.cfg.SessionID); err != nil {
		c.teardown()
		return err
	}
	go c.signalLoop(ctx)
	return nil
}

// signalLoop drives the SDP exchange. "ready" names this peer the offerer;
// otherwise it answers the offer relayed from the other side.
func (c *Connection) signalLoop(ctx context.Context) {
	for {
		msg, err := c.signal.read()
		if err != nil {
			if ctx.Err() == nil {
				c.obs.LogError("webrtc_signal_read", err)
				c.setState(ports.StateFailed)
			}
			return
		}

		switch msg.Type {
		case "ready":
			if err := c.createOffer(); err != nil {
				c.obs.LogError("webrtc_create_offer", err)
				c.setState(ports.StateFailed)
				return
			}
		case "offer":
			if err := c.acceptOffer(msg.SDP); err != nil {
				c.obs.LogError("webrtc_accept_offer", err)
				c.setState(ports.StateFailed)
				return
			}
		case "answer":
			if err := c.acceptAnswer(msg.SDP); err != nil {
				c.obs.LogError("webrtc_accept_answer", err)
				c.setState(ports.StateFailed)
				return
			}
		case "candidate":
			if err := c.addCandidate(msg.Candidate); err != nil {
				c.obs.LogError("webrtc_add_candidate", err)
			}
		case "error":
			c.obs.LogError("webrtc_signal", errors.New(msg.Error))
			c.setState(ports.StateFailed)
			return
		}
	}
}

func (c *Connection) createOffer() error {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return err
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return err
	}
	return c.signal.sendOffer(offer)
}

func (c *Connection) acceptOffer(sdp string) error {
	desc := pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: sdp}
	if err := c.pc.SetRemoteDescription(desc); err != nil {
		return err
	}
	c.flushCandidates()

	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return err
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return err
	}
	return c.signal.sendAnswer(answer)
}

func (c *Connection) acceptAnswer(sdp string) error {
	desc := pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: sdp}
	if err := c.pc.SetRemoteDescription(desc); err != nil {
		return err
	}
	c.flushCandidates()
	return nil
}

// addCandidate buffers trickled candidates that arrive before the remote
// description is set.
func (c *Connection) addCandidate(raw json.RawMessage) error {
	var init pion.ICECandidateInit
	if err := json.Unmarshal(raw, &init); err != nil {
		return err
	}

	c.mu.Lock()
	if !c.haveSDP {
		c.pending = append(c.pending, init)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.pc.AddICECandidate(init)
}

func (c *Connection) flushCandidates() {
	c.mu.Lock()
	c.haveSDP = true
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, init := range pending {
		if err := c.pc.AddICECandidate(init); err != nil {
			c.obs.LogError("webrtc_add_candidate", err)
		}
	}
}

// pumpOutbound encodes local capture frames as JPEG and ships them over the
// data channel until the track ends or the connection stops.
func (c *Connection) pumpOutbound(ctx context.Context, track ports.VideoTrack, dc *pion.DataChannel) {
	var buf bytes.Buffer
	opts := &jpeg.Options{Quality: c.cfg.JPEGQuality}

	for {
		frame, err := track.ReadFrame(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
				c.obs.LogError("webrtc_outbound_read", err)
			}
			return
		}

		buf.Reset()
		err = jpeg.Encode(&buf, frame.Image, opts)
		frame.Release()
		if err != nil {
			c.obs.LogError("webrtc_jpeg_encode", err)
			continue
		}
		if buf.Len() > maxFramePayload {
			c.obs.IncCounter("hub_capture_frames_dropped_total", 1)
			continue
		}
		if err := dc.Send(buf.Bytes()); err != nil {
			if ctx.Err() == nil {
				c.obs.LogError("webrtc_outbound_send", err)
			}
			return
		}
	}
}

// attachInbound decodes incoming JPEG payloads into the remote track and
// announces the remote stream on the first open inbound channel.
func (c *Connection) attachInbound(dc *pion.DataChannel) {
	c.mu.Lock()
	remote := c.remote
	c.mu.Unlock()
	if remote == nil {
		return
	}

	dc.OnOpen(func() {
		c.emitRemoteStream(remote)
	})
	dc.OnMessage(func(msg pion.DataChannelMessage) {
		img, err := jpeg.Decode(bytes.NewReader(msg.Data))
		if err != nil {
			c.obs.LogError("webrtc_jpeg_decode", err)
			return
		}
		remote.deliver(img)
	})
	dc.OnClose(func() {
		remote.close()
	})
}

func (c *Connection) handlePeerState(state pion.PeerConnectionState) {
	switch state {
	case pion.PeerConnectionStateConnecting:
		c.setState(ports.StateConnecting)
	case pion.PeerConnectionStateConnected:
		c.setState(ports.StateConnected)
	case pion.PeerConnectionStateDisconnected, pion.PeerConnectionStateFailed:
		// No reconnection: a dropped transport ends the run.
		c.setState(ports.StateFailed)
	case pion.PeerConnectionStateClosed:
		c.setState(ports.StateClosed)
	}
}

// Stop closes the peer connection and the signaling socket.
func (c *Connection) Stop() error {
	var err error
	c.stopOnce.Do(func() {
		err = c.teardown()
	})
	if c.State() != ports.StateFailed {
		c.setState(ports.StateClosed)
	}
	return err
}

func (c *Connection) teardown() error {
	c.mu.Lock()
	cancel := c.cancel
	pc := c.pc
	signal := c.signal
	remote := c.remote
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var errs []error
	if pc != nil {
		errs = append(errs, pc.Close())
	}
	if signal != nil {
		errs = append(errs, signal.close())
	}
	if remote != nil {
		remote.close()
	}
	return errors.Join(errs...)
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

func (c *Connection) setState(state ports.ConnectionState) {
	c.mu.Lock()
	if c.state == state || c.state == ports.StateClosed || c.state == ports.StateFailed {
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

var _ ports.Connection = (*Connection)(nil)
