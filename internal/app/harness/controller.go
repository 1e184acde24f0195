package harness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/domain"
	"github.com/michaelmahersoftware/experimental-hub-test/internal/eval"
	"github.com/michaelmahersoftware/experimental-hub-test/internal/ports"
)

// Config holds the immutable per-run test settings. Changes after the
// connection has left its initial state are rejected.
type Config struct {
	SessionID     string
	ParticipantID string
	FPS           int
	Width         int
	Height        int
	QRSize        int
	Background    bool
}

func (c *Config) applyDefaults() {
	if c.SessionID == "" {
		c.SessionID = uuid.NewString()
	}
	if c.ParticipantID == "" {
		c.ParticipantID = uuid.NewString()
	}
	if c.FPS == 0 {
		c.FPS = 30
	}
	if c.Width == 0 {
		c.Width = 640
	}
	if c.Height == 0 {
		c.Height = 480
	}
	if c.QRSize == 0 {
		c.QRSize = 200
	}
}

func (c *Config) validate() error {
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("resolution must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.QRSize <= 0 {
		return fmt.Errorf("qr code size must be positive, got %d", c.QRSize)
	}
	region := OverlayRegion(c.QRSize)
	if region.Dx() > c.Width || region.Dy() > c.Height {
		return fmt.Errorf("qr code size %d does not fit a %dx%d frame", c.QRSize, c.Width, c.Height)
	}
	return nil
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithClock overrides the wall clock, used by tests.
func WithClock(clock Clock) ControllerOption {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithRunID overrides the generated run identifier so callers can correlate
// the run with externally created artifacts.
func WithRunID(id string) ControllerOption {
	return func(c *Controller) {
		if id != "" {
			c.runID = id
		}
	}
}

// WithJournal attaches a per-sample diagnostic journal.
func WithJournal(j ports.SampleJournal) ControllerOption {
	return func(c *Controller) {
		c.journal = j
	}
}

// WithSampleListener installs a callback invoked for every recorded sample,
// on the remote pump goroutine. The listener must not block.
func WithSampleListener(fn func(domain.Sample)) ControllerOption {
	return func(c *Controller) {
		c.onSample = fn
	}
}

// Controller wires the connection lifecycle to the frame pumps and the
// sampler. It owns the single mutable Configuration and the append-only
// sample sequence for the run.
type Controller struct {
	cfg   Config
	conn  ports.Connection
	codec ports.TimestampCodec
	clock Clock
	obs   ports.Observability

	journal  ports.SampleJournal
	onSample func(domain.Sample)

	runID string

	mu            sync.Mutex
	started       bool
	frozen        bool
	remoteStarted bool
	samples       []domain.Sample
	startedAt     time.Time
	stoppedAt     time.Time
	unsubState    func()
	unsubStream   func()
	localPump     *FramePump
	remotePump    *FramePump

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}
}

func NewController(cfg Config, conn ports.Connection, codec ports.TimestampCodec, obs ports.Observability, opts ...ControllerOption) (*Controller, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("harness config: %w", err)
	}

	c := &Controller{
		cfg:   cfg,
		conn:  conn,
		codec: codec,
		clock: WallClockMs,
		obs:   obs,
		runID: uuid.NewString(),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Config returns the run configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// RunID identifies this run in journals and result sinks.
func (c *Controller) RunID() string {
	return c.runID
}

// UpdateConfig replaces the run settings. Rejected once the connection has
// left its initial state.
func (c *Controller) UpdateConfig(cfg Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.conn.State() != ports.StateNew {
		return fmt.Errorf("harness: configuration is frozen after start")
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("harness config: %w", err)
	}
	c.cfg = cfg
	return nil
}

// Start begins the run: it subscribes to connection events, hands the local
// canvas capture stream to the connection, and starts the local frame pump
// on the given source track. The remote pump starts later, on the first
// remote-stream notification.
func (c *Controller) Start(ctx context.Context, source ports.VideoTrack) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("harness: already started")
	}
	if state := c.conn.State(); state != ports.StateNew {
		c.mu.Unlock()
		return fmt.Errorf("%w: connection in state %s", ports.ErrStartup, state)
	}
	c.started = true
	c.startedAt = time.Now()

	c.ctx, c.cancel = context.WithCancel(ctx)

	localCanvas := NewCanvas(c.cfg.Width, c.cfg.Height, float64(c.cfg.FPS))
	c.localPump = NewFramePump(localCanvas, c.codec, c.clock, PumpConfig{
		Overlay:    true,
		Background: c.cfg.Background,
		QRSize:     c.cfg.QRSize,
	}, c.obs)
	c.mu.Unlock()

	c.unsubState = c.conn.OnStateChange(c.handleStateChange)
	c.unsubStream = c.conn.OnRemoteStreamChange(c.handleRemoteStream)

	if err := c.conn.Start(localCanvas.CaptureStream()); err != nil {
		c.teardownSubscriptions()
		localCanvas.Close()
		return fmt.Errorf("%w: connection start: %v", ports.ErrStartup, err)
	}
	if err := c.localPump.Start(c.ctx, source); err != nil {
		c.teardownSubscriptions()
		localCanvas.Close()
		return fmt.Errorf("%w: local pump: %v", ports.ErrStartup, err)
	}

	c.obs.LogInfo("harness_started",
		ports.Field{Key: "run_id", Value: c.runID},
		ports.Field{Key: "session_id", Value: c.cfg.SessionID},
		ports.Field{Key: "participant_id", Value: c.cfg.ParticipantID})
	return nil
}

// handleRemoteStream starts the remote pump and sampler exactly once.
// Repeated stream-change notifications must not spawn duplicate loops.
func (c *Controller) handleRemoteStream(stream ports.MediaStream) {
	if stream == nil {
		return
	}

	c.mu.Lock()
	if c.remoteStarted || c.frozen || !c.started {
		c.mu.Unlock()
		return
	}
	c.remoteStarted = true

	remoteCanvas := NewCanvas(c.cfg.Width, c.cfg.Height, float64(c.cfg.FPS))
	sampler := NewSampler(remoteCanvas, c.codec, c.clock, c.cfg.QRSize, c.obs, c.record)
	pump := NewFramePump(remoteCanvas, c.codec, c.clock, PumpConfig{}, c.obs)
	pump.OnFrame(sampler.Step)
	c.remotePump = pump
	ctx := c.ctx
	c.mu.Unlock()

	if err := pump.Start(ctx, stream.VideoTrack()); err != nil {
		c.obs.LogError("remote_pump_start", err)
		return
	}
	c.obs.LogInfo("remote_loop_started", ports.Field{Key: "run_id", Value: c.runID})
}

func (c *Controller) handleStateChange(state ports.ConnectionState) {
	c.obs.LogInfo("connection_state_changed", ports.Field{Key: "state", Value: state.String()})
	c.obs.SetGauge("hub_connection_state", float64(state))
	if state.Terminal() {
		c.stopLoops()
	}
}

// Stop closes the connection and stops both frame loops. Idempotent.
func (c *Controller) Stop() error {
	err := c.conn.Stop()
	c.stopLoops()
	return err
}

// stopLoops sets the cooperative stop flags and freezes the sample sequence.
// The flag is checked once per loop iteration; at most one in-flight frame
// completes afterwards, and its sample is dropped by the freeze.
func (c *Controller) stopLoops() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.frozen = true
		c.stoppedAt = time.Now()
		localPump := c.localPump
		remotePump := c.remotePump
		c.mu.Unlock()

		if localPump != nil {
			localPump.Stop()
		}
		if remotePump != nil {
			remotePump.Stop()
		}
		c.teardownSubscriptions()
		if c.cancel != nil {
			c.cancel()
		}
		close(c.done)

		c.obs.LogInfo("harness_stopped",
			ports.Field{Key: "run_id", Value: c.runID},
			ports.Field{Key: "samples", Value: c.SampleCount()})
	})
}

func (c *Controller) teardownSubscriptions() {
	if c.unsubState != nil {
		c.unsubState()
		c.unsubState = nil
	}
	if c.unsubStream != nil {
		c.unsubStream()
		c.unsubStream = nil
	}
}

// Done is closed once the run has been stopped and the sample sequence is
// frozen for evaluation.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// record appends one sample to the run. Samples arriving after the freeze
// (the bounded one-frame staleness of the cooperative stop) are discarded.
func (c *Controller) record(s domain.Sample) {
	c.mu.Lock()
	if c.frozen {
		c.mu.Unlock()
		return
	}
	c.samples = append(c.samples, s)
	count := len(c.samples)
	c.mu.Unlock()

	c.obs.SetGauge("hub_sample_buffer_length", float64(count))
	if c.journal != nil {
		if err := c.journal.Append(&s); err != nil {
			c.obs.LogError("journal_append_failed", err)
		}
	}
	if c.onSample != nil {
		c.onSample(s)
	}
}

// Snapshot returns an immutable copy of the sample sequence.
func (c *Controller) Snapshot() []domain.Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Sample, len(c.samples))
	copy(out, c.samples)
	return out
}

// SampleCount returns the number of recorded samples.
func (c *Controller) SampleCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples)
}

// State reports the observed connection state.
func (c *Controller) State() ports.ConnectionState {
	return c.conn.State()
}

// Evaluate summarizes the (windowed) sample sequence.
func (c *Controller) Evaluate(w eval.Window) (*eval.Summary, error) {
	return eval.Summarize(c.Snapshot(), w, c.cfg.Width, c.cfg.Height)
}

// Series produces chart-ready sequences for the window.
func (c *Controller) Series(w eval.Window) *eval.Series {
	return eval.ChartSeries(c.Snapshot(), w)
}

// Result builds the persistable run outcome from the full-run evaluation.
func (c *Controller) Result() (*domain.RunResult, error) {
	sum, err := c.Evaluate(eval.Window{})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	startedAt, stoppedAt := c.startedAt, c.stoppedAt
	c.mu.Unlock()

	return &domain.RunResult{
		RunID:              c.runID,
		SessionID:          c.cfg.SessionID,
		ParticipantID:      c.cfg.ParticipantID,
		StartedAt:          startedAt,
		StoppedAt:          stoppedAt,
		SampleCount:        sum.SampleCount,
		InvalidCount:       sum.InvalidCount,
		InvalidRate:        sum.InvalidRate,
		LatencyMeanMs:      sum.LatencyMeanMs,
		LatencyMedianMs:    sum.LatencyMedianMs,
		DecodeCostMeanMs:   sum.DecodeCostMeanMs,
		DecodeCostMedianMs: sum.DecodeCostMedianMs,
		FPSMean:            sum.FPSMean,
		FPSMedian:          sum.FPSMedian,
		DurationMs:         sum.DurationMs,
	}, nil
}
