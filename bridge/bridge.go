package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultMaxRestarts  = 3
	DefaultRestartDelay = 1 * time.Second
	DefaultTimeout      = 30 * time.Second
)

// EnvelopeEncoder serializes a request envelope into a single line (without
// the trailing newline).
type EnvelopeEncoder func(envelope any) ([]byte, error)

// Bridge multiplexes concurrent calls onto one worker process. All mutable
// state is held per-instance, so multiple independent bridges can coexist in
// a single host process.
type Bridge struct {
	log      *zap.SugaredLogger
	id       string
	launcher Launcher

	maxRestarts    int
	restartDelay   time.Duration
	defaultTimeout time.Duration
	warmup         any
	encode         EnvelopeEncoder
	metrics        *Metrics

	mu       sync.Mutex
	worker   *Worker
	gen      int
	queue    []*pendingRequest
	frames   frameScanner
	restarts int
	degraded bool
	stopped  bool
}

type Option func(b *Bridge)

func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) {
		b.log = l.Named("bridge").Sugar()
	}
}

// WithMaxRestarts bounds consecutive unplanned restarts. Once exhausted the
// bridge is permanently degraded and every call fails with
// ErrProcessUnavailable.
func WithMaxRestarts(n int) Option {
	return func(b *Bridge) {
		b.maxRestarts = n
	}
}

// WithRestartDelay sets the backoff base; attempt n waits n times this long.
func WithRestartDelay(d time.Duration) Option {
	return func(b *Bridge) {
		b.restartDelay = d
	}
}

func WithDefaultTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		b.defaultTimeout = d
	}
}

// WithWarmup configures an envelope to send asynchronously right after the
// first start. The outcome is logged and otherwise discarded.
func WithWarmup(envelope any) Option {
	return func(b *Bridge) {
		b.warmup = envelope
	}
}

func WithMetrics(m *Metrics) Option {
	return func(b *Bridge) {
		b.metrics = m
	}
}

// WithEnvelopeEncoder replaces the JSON envelope encoder.
func WithEnvelopeEncoder(enc EnvelopeEncoder) Option {
	return func(b *Bridge) {
		b.encode = enc
	}
}

// New constructs a bridge and immediately starts the worker. There is no
// separate connect step; if the worker can't be started, construction fails.
func New(launcher Launcher, opts ...Option) (*Bridge, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	b := &Bridge{
		log:            logger.Named("bridge").Sugar(),
		id:             uuid.NewString(),
		launcher:       launcher,
		maxRestarts:    DefaultMaxRestarts,
		restartDelay:   DefaultRestartDelay,
		defaultTimeout: DefaultTimeout,
		encode:         func(envelope any) ([]byte, error) { return json.Marshal(envelope) },
	}
	for _, o := range opts {
		o(b)
	}
	b.log = b.log.With("BridgeID", b.id)

	b.mu.Lock()
	err = b.spawnLocked()
	b.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("starting worker: %w", err)
	}

	if b.warmup != nil {
		go b.runWarmup()
	}
	return b, nil
}

// ID returns the bridge's unique identifier, used in logs.
func (b *Bridge) ID() string { return b.id }

// Degraded reports whether the restart budget has been exhausted. A degraded
// bridge never recovers; every call fails with ErrProcessUnavailable.
func (b *Bridge) Degraded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.degraded
}

// Call sends one request envelope to the worker and blocks until the matching
// response frame is decoded, the timeout elapses, or the worker exits. op
// names the operation for errors and logs only; it is never put on the wire.
// A non-positive timeout uses the bridge default.
//
// If ctx is canceled the call returns early, but its FIFO slot stays occupied
// until the response, timeout, or worker exit resolves it.
func (b *Bridge) Call(ctx context.Context, op string, envelope any, timeout time.Duration) (map[string]any, error) {
	if timeout <= 0 {
		timeout = b.defaultTimeout
	}
	req, err := b.send(op, envelope, timeout)
	if err != nil {
		return nil, err
	}
	select {
	case res := <-req.done:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close marks the bridge stopped and kills the worker if one is alive.
// Requests still in flight fail with ProcessExitedError once the worker is
// reaped; later calls fail with ErrProcessUnavailable. Close is idempotent.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return nil
	}
	b.stopped = true
	if b.worker != nil {
		if err := b.worker.Kill(); err != nil {
			b.log.Debugf("error killing worker: %s", err)
		}
	}
	b.log.Debug("bridge closed")
	return nil
}

func (b *Bridge) runWarmup() {
	_, err := b.Call(context.Background(), "warmup", b.warmup, b.defaultTimeout)
	if err != nil {
		b.log.Debugw("warm-up request failed", "Error", err)
		return
	}
	b.log.Debug("warm-up request complete")
}
