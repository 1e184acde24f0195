package latencytest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/adapters/camera"
	"github.com/michaelmahersoftware/experimental-hub-test/internal/adapters/journal"
	"github.com/michaelmahersoftware/experimental-hub-test/internal/adapters/loopback"
	"github.com/michaelmahersoftware/experimental-hub-test/internal/adapters/observability"
	"github.com/michaelmahersoftware/experimental-hub-test/internal/adapters/qr"
	"github.com/michaelmahersoftware/experimental-hub-test/internal/adapters/sink"
	"github.com/michaelmahersoftware/experimental-hub-test/internal/adapters/webrtc"
	"github.com/michaelmahersoftware/experimental-hub-test/internal/app/harness"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	connection    Connection
	codec         TimestampCodec
	observability Observability
	journal       SampleJournal
	resultSink    ResultSink
	camera        VideoTrack
	clock         Clock
	onSample      func(Sample)
}

// WithConnection injects a custom transport (in-process fakes, TURN relays, etc.).
func WithConnection(conn Connection) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.connection = conn
	}
}

// WithCodec swaps the QR timestamp codec for another barcode implementation.
func WithCodec(c TimestampCodec) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.codec = c
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithJournal lets callers bring their own sample journal.
func WithJournal(j SampleJournal) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.journal = j
	}
}

// WithResultSink injects a custom result sink so runs can be sent to any
// database or API.
func WithResultSink(s ResultSink) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.resultSink = s
	}
}

// WithCamera replaces the synthetic test-pattern source with a real capture
// track.
func WithCamera(track VideoTrack) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.camera = track
	}
}

// WithClock overrides the wall clock, used by tests.
func WithClock(clock Clock) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.clock = clock
	}
}

// WithSampleListener installs a callback invoked for every recorded sample.
// The listener runs on the measurement goroutine and must not block.
func WithSampleListener(fn func(Sample)) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.onSample = fn
	}
}

// Runtime wires the camera, connection, harness controller, and result
// persistence into one embeddable unit with simple lifecycle hooks.
type Runtime struct {
	cfg        *Config
	obs        Observability
	controller *harness.Controller
	conn       Connection
	cam        VideoTrack
	camOwned   *camera.Synthetic
	journal    SampleJournal
	resultSink ResultSink
	db         *sql.DB
	httpSrv    *http.Server
}

// NewRuntime bootstraps the default adapters: synthetic camera, QR codec,
// loopback or WebRTC transport per the config, file journal, Postgres result
// sink, and Prometheus observability. RuntimeOption values override any of
// them.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs()
	}

	codec := overrides.codec
	if codec == nil {
		codec = qr.NewCodec()
	}

	conn := overrides.connection
	if conn == nil {
		switch cfg.Connection.Mode {
		case "webrtc":
			conn = webrtc.New(webrtc.Config{
				SignalingURL: cfg.Connection.SignalingURL,
				SessionID:    cfg.Session.SessionID,
				STUNServers:  cfg.Connection.STUNServers,
			}, obs)
		default:
			conn = loopback.New(loopback.Config{FrameDelay: cfg.Connection.FrameDelay}, obs)
		}
	}

	rt := &Runtime{cfg: cfg, obs: obs, conn: conn}

	if overrides.camera != nil {
		rt.cam = overrides.camera
	} else {
		rt.camOwned = camera.NewSynthetic(cfg.Test.Width, cfg.Test.Height, float64(cfg.Test.FPS))
		rt.cam = rt.camOwned
	}

	runID := uuid.NewString()
	if overrides.journal != nil {
		rt.journal = overrides.journal
	} else if cfg.Journal.Enabled {
		j, err := journal.NewFileJournal(cfg.Journal.Dir, runID)
		if err != nil {
			return nil, err
		}
		rt.journal = j
	}

	controllerOpts := []harness.ControllerOption{harness.WithRunID(runID)}
	if overrides.clock != nil {
		controllerOpts = append(controllerOpts, harness.WithClock(overrides.clock))
	}
	if overrides.onSample != nil {
		controllerOpts = append(controllerOpts, harness.WithSampleListener(overrides.onSample))
	}
	if rt.journal != nil {
		controllerOpts = append(controllerOpts, harness.WithJournal(rt.journal))
	}

	controller, err := harness.NewController(cfg.Harness(), conn, codec, obs, controllerOpts...)
	if err != nil {
		return nil, err
	}
	rt.controller = controller

	if overrides.resultSink != nil {
		rt.resultSink = overrides.resultSink
	} else if cfg.Results.ConnString != "" {
		db, err := sql.Open("postgres", cfg.Results.ConnString)
		if err != nil {
			return nil, err
		}
		rt.db = db
		rt.resultSink = sink.NewPostgresSink(db, cfg.Results.RunsTable, cfg.Results.SamplesTable)
	}

	return rt, nil
}

// Controller exposes the underlying harness controller for advanced callers.
func (r *Runtime) Controller() *harness.Controller {
	return r.controller
}

// RunID identifies this run in journals and sinks.
func (r *Runtime) RunID() string {
	return r.controller.RunID()
}

// Start begins the run and launches the diagnostic HTTP server. It returns
// immediately; call Run to block on a context instead.
func (r *Runtime) Start(ctx context.Context) error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	if err := r.controller.Start(ctx, r.cam); err != nil {
		return err
	}
	r.startHTTP()
	return nil
}

// Run starts the runtime and blocks until the context is cancelled or the
// run reaches a terminal connection state, then shuts down gracefully.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-r.controller.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Shutdown stops the run, persists the outcome, and releases every adapter.
// Safe to call more than once.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if err := r.controller.Stop(); err != nil {
		errs = append(errs, err)
	}
	<-r.controller.Done()

	if r.camOwned != nil {
		r.camOwned.Close()
	}

	result, err := r.controller.Result()
	if err != nil && !errors.Is(err, ErrEmptyInput) {
		errs = append(errs, err)
	}

	if result != nil && r.journal != nil {
		if err := r.journal.WriteSummary(result); err != nil {
			errs = append(errs, err)
		}
	}
	if r.journal != nil {
		if err := r.journal.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if result != nil && r.resultSink != nil {
		if err := r.resultSink.WriteRun(result, r.controller.Snapshot()); err != nil {
			errs = append(errs, fmt.Errorf("result sink %s: %w", r.resultSink.Name(), err))
		}
	}

	if r.httpSrv != nil {
		if err := r.httpSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// State reports the observed connection state.
func (r *Runtime) State() ConnectionState {
	return r.controller.State()
}

// Snapshot returns a copy of the recorded sample sequence.
func (r *Runtime) Snapshot() []Sample {
	return r.controller.Snapshot()
}

// Evaluate summarizes the (windowed) sample sequence.
func (r *Runtime) Evaluate(w Window) (*Summary, error) {
	return r.controller.Evaluate(w)
}

// ChartSeries produces chart-ready sequences for the window.
func (r *Runtime) ChartSeries(w Window) *Series {
	return r.controller.Series(w)
}

// Result builds the persistable outcome of the run so far.
func (r *Runtime) Result() (*RunResult, error) {
	return r.controller.Result()
}

// Done is closed once the run has stopped and samples are frozen.
func (r *Runtime) Done() <-chan struct{} {
	return r.controller.Done()
}
