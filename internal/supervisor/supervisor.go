// Package supervisor owns the lifecycle of the connection to the persistent
// store and exposes whether request handling may use it.
package supervisor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/metrics"
	"github.com/rl1809/storefront/internal/port"
)

const defaultAttemptTimeout = 10 * time.Second

// Listener is called synchronously on every state change and must not call
// back into the Supervisor.
type Listener func(State)

type Option func(*Supervisor)

func WithPolicy(p Policy) Option {
	return func(s *Supervisor) { s.policy = p }
}

func WithAttemptTimeout(d time.Duration) Option {
	return func(s *Supervisor) { s.attemptTimeout = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Supervisor) { s.metrics = m }
}

func WithListener(l Listener) Option {
	return func(s *Supervisor) { s.listeners = append(s.listeners, l) }
}

// Supervisor is the only writer of the connection state. Readers use
// IsReady or State.
type Supervisor struct {
	connector      port.StoreConnector
	policy         Policy
	attemptTimeout time.Duration
	metrics        *metrics.Metrics
	logger         *zap.Logger
	listeners      []Listener

	state atomic.Int32

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}

	stopped chan struct{}
}

func New(connector port.StoreConnector, logger *zap.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		connector:      connector,
		policy:         DefaultPolicy(),
		attemptTimeout: defaultAttemptTimeout,
		logger:         logger,
		stopped:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Supervisor) IsReady() bool {
	return s.State() == Connected
}

func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Stopped is closed once Shutdown has disconnected from the store.
func (s *Supervisor) Stopped() <-chan struct{} {
	return s.stopped
}

// Start launches the background connection loop and returns immediately.
// An empty storeURI leaves the supervisor disconnected.
func (s *Supervisor) Start(ctx context.Context, storeURI string) {
	if storeURI == "" {
		s.logger.Warn("no store URI configured, data endpoints stay unavailable")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.State() == ShuttingDown {
		return
	}
	s.started = true

	if !s.transition(Connecting) {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(loopCtx, storeURI)
}

func (s *Supervisor) run(ctx context.Context, storeURI string) {
	defer close(s.done)

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		s.metrics.ConnectAttempt()

		attemptCtx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
		defer cancel()
		return struct{}{}, s.connector.Connect(attemptCtx, storeURI)
	},
		backoff.WithBackOff(&sequence{policy: s.policy}),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Warn("store connection attempt failed",
				zap.Int("attempt", attempt),
				zap.Duration("retry_in", next),
				zap.Error(err))
		}),
	)
	if err != nil {
		s.logger.Info("store connection loop stopped", zap.Int("attempts", attempt), zap.Error(err))
		return
	}

	if s.transition(Connected) {
		s.logger.Info("connected to store", zap.Int("attempts", attempt))
	}
}

// Shutdown enters the terminal ShuttingDown state, stops the retry loop,
// disconnects once (best effort) and then closes Stopped.
func (s *Supervisor) Shutdown(ctx context.Context) {
	prev := State(s.state.Swap(int32(ShuttingDown)))
	if prev == ShuttingDown {
		return
	}
	s.publish(ShuttingDown)

	s.mu.Lock()
	started, cancel, done := s.started, s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			s.logger.Warn("connection loop did not stop before shutdown deadline")
		}
	}

	if started {
		if err := s.connector.Disconnect(ctx); err != nil {
			s.logger.Warn("store disconnect failed", zap.Error(err))
		} else {
			s.logger.Info("disconnected from store")
		}
	}

	close(s.stopped)
}

// transition moves to next unless shutdown has begun.
func (s *Supervisor) transition(next State) bool {
	for {
		cur := s.state.Load()
		if State(cur) == ShuttingDown {
			return false
		}
		if s.state.CompareAndSwap(cur, int32(next)) {
			s.publish(next)
			return true
		}
	}
}

func (s *Supervisor) publish(state State) {
	s.metrics.ConnectionState(int(state))
	for _, l := range s.listeners {
		l(state)
	}
}
