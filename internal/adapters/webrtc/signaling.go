package webrtc

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	pion "github.com/pion/webrtc/v4"
)

// signalMessage is the JSON envelope exchanged with the signaling server.
// The server relays offer/answer/candidate between the two peers of a
// session and emits "ready" to the peer that should create the offer.
type signalMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	SDP       string          `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// signalClient is a thin websocket wrapper serializing concurrent writers.
type signalClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func dialSignaling(url string) (*signalClient, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("signaling dial: %w", err)
	}
	return &signalClient{conn: conn}, nil
}

func (c *signalClient) send(msg signalMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (c *signalClient) sendJoin(sessionID string) error {
	return c.send(signalMessage{Type: "join", SessionID: sessionID})
}

func (c *signalClient) sendOffer(sdp pion.SessionDescription) error {
	return c.send(signalMessage{Type: "offer", SDP: sdp.SDP})
}

func (c *signalClient) sendAnswer(sdp pion.SessionDescription) error {
	return c.send(signalMessage{Type: "answer", SDP: sdp.SDP})
}

func (c *signalClient) sendCandidate(candidate *pion.ICECandidate) error {
	if candidate == nil {
		return nil
	}
	b, err := json.Marshal(candidate.ToJSON())
	if err != nil {
		return err
	}
	return c.send(signalMessage{Type: "candidate", Candidate: b})
}

func (c *signalClient) read() (signalMessage, error) {
	var msg signalMessage
	err := c.conn.ReadJSON(&msg)
	return msg, err
}

func (c *signalClient) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}
