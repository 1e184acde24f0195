package latencytest

import (
	"errors"
	"fmt"
	"sync"
)

// ErrChannelSinkClosed is returned when a channel sink is written to after
// being closed.
var ErrChannelSinkClosed = errors.New("latencytest: channel sink closed")

// RunFunc is invoked with the finished run and its full sample series.
type RunFunc func(result *RunResult, samples []Sample) error

// RunReport is one finished run delivered over a channel sink.
type RunReport struct {
	Result  *RunResult
	Samples []Sample
}

// NewCallbackSink adapts a RunFunc into a full ResultSink implementation so
// callers can plug arbitrary functions without defining structs.
func NewCallbackSink(name string, fn RunFunc) ResultSink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes finished runs via a channel; it returns the sink,
// the read-only channel, and a close function the caller should invoke
// during shutdown.
func NewChannelSink(name string, buffer int) (ResultSink, <-chan RunReport, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan RunReport, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackSink struct {
	name string
	fn   RunFunc
}

func (s *callbackSink) WriteRun(result *RunResult, samples []Sample) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	return s.fn(result, copySamples(samples))
}

func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan RunReport
	closed chan struct{}
	once   sync.Once
}

func (s *channelSink) WriteRun(result *RunResult, samples []Sample) error {
	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}

	report := RunReport{Result: result, Samples: copySamples(samples)}

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case s.ch <- report:
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
}

func copySamples(samples []Sample) []Sample {
	if len(samples) == 0 {
		return nil
	}
	out := make([]Sample, len(samples))
	copy(out, samples)
	return out
}
