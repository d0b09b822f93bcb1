package mongo

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/coursekit/pkg/logger"
	"github.com/dmitrymomot/coursekit/pkg/statemachine"
)

const eventBuffer = 16

// Manager owns the lifecycle of a single database connection: it connects with
// bounded retries, watches driver heartbeats for unsolicited disconnects and
// closes the connection when the process is asked to terminate.
//
// Failures are handled inside the manager. It either recovers by retrying or
// ends the process through the exit function; callers never receive a
// recoverable connection error.
type Manager struct {
	cfg     Config
	driver  Driver
	log     *slog.Logger
	debug   bool
	exit    func(code int)
	sleep   func(ctx context.Context, d time.Duration) error
	onClose []func(ctx context.Context)

	fsm *statemachine.Machine[State, trigger]

	// attempt serialises connection attempts so only one is ever in flight.
	attempt sync.Mutex

	mu      sync.RWMutex
	retries int
	conn    Conn

	readyState atomic.Int32
	host       string
	port       int

	events    chan driverEvent
	watchOnce sync.Once
	termOnce  sync.Once
	termErr   error

	done     chan struct{}
	doneOnce sync.Once

	// ctx is cancelled on termination and stops background work.
	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithDriver replaces the driver used to open connections.
func WithDriver(d Driver) Option {
	return func(m *Manager) {
		if d != nil {
			m.driver = d
		}
	}
}

// WithDebug turns on driver command logging.
func WithDebug(enabled bool) Option {
	return func(m *Manager) { m.debug = enabled }
}

// WithExitFunc replaces os.Exit for the fatal and shutdown paths.
func WithExitFunc(fn func(code int)) Option {
	return func(m *Manager) {
		if fn != nil {
			m.exit = fn
		}
	}
}

// WithBeforeClose registers a hook run on termination before the connection is closed.
func WithBeforeClose(fn func(ctx context.Context)) Option {
	return func(m *Manager) {
		if fn != nil {
			m.onClose = append(m.onClose, fn)
		}
	}
}

// NewManager creates a manager in the disconnected state. No I/O happens until Connect.
func NewManager(cfg Config, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:    cfg,
		driver: OfficialDriver(),
		log:    logger.Discard(),
		exit:   os.Exit,
		sleep:  sleepContext,
		events: make(chan driverEvent, eventBuffer),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With(logger.Component("mongo"))
	m.host, m.port = hostPort(cfg.ConnectionURL)

	m.fsm = newStateMachine(func(State) bool { return m.Retries() <= m.cfg.RetryAttempts })
	m.fsm.OnTransition(func(from, to State, tr trigger) {
		m.log.Debug("connection state changed", logger.Transition(string(from), string(to), string(tr)))
	})
	return m
}

// Connect establishes the connection, retrying up to the configured ceiling.
// It returns nil once connected. If retries are exhausted the exit function is
// called with status 1 and the fatal error is returned.
func (m *Manager) Connect(ctx context.Context) error {
	m.attempt.Lock()
	defer m.attempt.Unlock()
	return m.connect(ctx)
}

// HandleDisconnection requests a reconnect unless the manager is connected or
// an attempt is already running.
func (m *Manager) HandleDisconnection(ctx context.Context) error {
	if m.fsm.Is(StateConnected) {
		return nil
	}
	if !m.attempt.TryLock() {
		return nil
	}
	defer m.attempt.Unlock()

	m.log.InfoContext(ctx, "attempting to reconnect to database")
	return m.connect(ctx)
}

// HandleTermination closes the connection and exits the process: status 0 on
// a clean close, 1 if closing fails. Only the first call has any effect.
func (m *Manager) HandleTermination(ctx context.Context) error {
	m.termOnce.Do(func() {
		m.termErr = m.terminate(ctx)
	})
	return m.termErr
}

// Done is closed once the manager has called its exit function, after
// retries are exhausted or termination has finished closing the connection.
// With the default os.Exit it is never observed closed.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Status returns a snapshot of the connection. It is safe for concurrent use.
func (m *Manager) Status() Status {
	state := m.fsm.Current()
	return Status{
		IsConnected: state == StateConnected,
		ReadyState:  ReadyState(m.readyState.Load()),
		Host:        m.host,
		Port:        m.port,
		State:       state,
		Retries:     m.Retries(),
	}
}

// Retries returns the current retry counter.
func (m *Manager) Retries() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.retries
}

// Database returns the configured database, or nil while not connected.
func (m *Manager) Database() *mongo.Database {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.conn == nil {
		return nil
	}
	return m.conn.Database(m.cfg.Database)
}

// Ping checks the live connection.
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.Ping(ctx)
}

func (m *Manager) connect(ctx context.Context) error {
	switch m.fsm.Current() {
	case StateConnected:
		return nil
	case StateTerminated:
		return ErrTerminated
	}
	if _, err := m.fsm.Fire(trConnect); err != nil {
		return err
	}
	return m.retryUntilConnected(ctx, m.dial(ctx))
}

// retryUntilConnected runs the retry handler until an attempt succeeds or the
// handler returns a fatal error. Must be called with m.attempt held.
func (m *Manager) retryUntilConnected(ctx context.Context, err error) error {
	for err != nil {
		if herr := m.handleConnectionError(ctx, err); herr != nil {
			return herr
		}
		err = m.dial(ctx)
	}
	return nil
}

// handleConnectionError either schedules another attempt (returns nil after
// the backoff delay) or terminates the process once the ceiling is reached.
func (m *Manager) handleConnectionError(ctx context.Context, cause error) error {
	m.mu.Lock()
	if m.retries >= m.cfg.RetryAttempts {
		retries := m.retries
		m.mu.Unlock()

		_, _ = m.fsm.Fire(trExhausted)
		m.cancel()
		m.log.ErrorContext(ctx, "max retries reached",
			logger.RetryCount(retries),
			logger.MaxRetries(m.cfg.RetryAttempts),
			logger.Error(cause),
		)
		m.finish(1)
		return errors.Join(ErrRetryExhausted, cause)
	}
	m.retries++
	attempt := m.retries
	m.mu.Unlock()

	delay := m.cfg.Backoff.Delay(m.cfg.RetryInterval, attempt)
	m.log.InfoContext(ctx, "retrying connection",
		logger.RetryCount(attempt),
		logger.MaxRetries(m.cfg.RetryAttempts),
		logger.Delay(delay),
	)

	waitCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(m.ctx, cancel)
	err := m.sleep(waitCtx, delay)
	stop()
	cancel()
	if err != nil {
		return errors.Join(cause, err)
	}

	if _, err := m.fsm.Fire(trRetry); err != nil {
		return errors.Join(cause, err)
	}
	return nil
}

// dial performs one attempt: connect, then wait for the handshake.
// The state machine must be in StateConnecting.
func (m *Manager) dial(ctx context.Context) error {
	if m.cfg.ConnectionURL == "" {
		m.log.ErrorContext(ctx, "database connection URL not found")
		_, _ = m.fsm.Fire(trFailed)
		return ErrMissingConfiguration
	}

	m.readyState.Store(int32(ReadyConnecting))
	conn, err := m.driver.Connect(ctx, m.clientOptions())
	if err == nil {
		if err = conn.Ping(ctx); err != nil {
			_ = conn.Disconnect(context.WithoutCancel(ctx))
		}
	}
	if err != nil {
		m.readyState.Store(int32(ReadyDisconnected))
		_, _ = m.fsm.Fire(trFailed)
		m.log.ErrorContext(ctx, "error connecting to database", logger.Error(err))
		return errors.Join(ErrTransientConnectionFailure, err)
	}

	m.mu.Lock()
	m.conn = conn
	m.retries = 0
	m.mu.Unlock()

	if _, err := m.fsm.Fire(trConnected); err != nil {
		// Terminated while the handshake was in flight.
		m.swapConn(nil)
		_ = conn.Disconnect(context.WithoutCancel(ctx))
		return ErrTerminated
	}
	m.readyState.Store(int32(ReadyConnected))
	m.log.InfoContext(ctx, "database connected", logger.Host(m.host), slog.Int("port", m.port))

	m.watchOnce.Do(func() { go m.watch() })
	return nil
}

func (m *Manager) clientOptions() *options.ClientOptions {
	opts := options.Client().
		ApplyURI(m.cfg.ConnectionURL).
		SetMaxPoolSize(m.cfg.MaxPoolSize).
		SetServerSelectionTimeout(m.cfg.ServerSelectionTimeout).
		SetTimeout(m.cfg.SocketTimeout).
		SetServerMonitor(serverMonitor(m.notify))
	if m.cfg.IPv4Only {
		opts.SetDialer(newIPv4Dialer(m.cfg.ServerSelectionTimeout))
	}
	if m.debug {
		opts.SetLoggerOptions(debugLoggerOptions(m.log))
	}
	return opts
}

// notify queues a driver event without blocking the driver goroutine.
func (m *Manager) notify(ev driverEvent) {
	select {
	case m.events <- ev:
	default:
	}
}

// watch is the single consumer of driver events.
func (m *Manager) watch() {
	for {
		select {
		case <-m.ctx.Done():
			return
		case ev := <-m.events:
			m.handleDriverEvent(m.ctx, ev)
		}
	}
}

func (m *Manager) handleDriverEvent(ctx context.Context, ev driverEvent) {
	if !m.fsm.Is(StateConnected) {
		return
	}
	switch ev.kind {
	case heartbeatSucceeded:
		m.readyState.Store(int32(ReadyConnected))
	case heartbeatFailed:
		// A single failed heartbeat can come from one member of a replica set;
		// only a failed ping means the connection is unusable.
		pingCtx, cancel := context.WithTimeout(ctx, m.cfg.ServerSelectionTimeout)
		err := m.Ping(pingCtx)
		cancel()
		if err == nil {
			return
		}
		m.handleUnsolicitedDisconnect(ctx, errors.Join(ErrTransientConnectionFailure, ev.err, err))
	}
}

func (m *Manager) handleUnsolicitedDisconnect(ctx context.Context, cause error) {
	if _, err := m.fsm.Fire(trDisconnected); err != nil {
		return
	}
	m.readyState.Store(int32(ReadyDisconnected))
	m.log.WarnContext(ctx, "database disconnected", logger.Error(cause))

	if stale := m.swapConn(nil); stale != nil {
		_ = stale.Disconnect(context.WithoutCancel(ctx))
	}

	m.attempt.Lock()
	defer m.attempt.Unlock()
	_ = m.retryUntilConnected(ctx, cause)
}

func (m *Manager) terminate(ctx context.Context) error {
	if _, err := m.fsm.Fire(trTerminate); err != nil {
		return ErrTerminated
	}
	m.cancel()

	for _, hook := range m.onClose {
		hook(ctx)
	}

	m.readyState.Store(int32(ReadyDisconnecting))
	var err error
	if conn := m.swapConn(nil); conn != nil {
		closeCtx := ctx
		if m.cfg.CloseTimeout > 0 {
			var cancel context.CancelFunc
			closeCtx, cancel = context.WithTimeout(ctx, m.cfg.CloseTimeout)
			defer cancel()
		}
		err = conn.Disconnect(closeCtx)
	}
	m.readyState.Store(int32(ReadyDisconnected))

	if err != nil {
		m.log.ErrorContext(ctx, "error closing database connection", logger.Error(err))
		m.finish(1)
		return errors.Join(ErrShutdownFailure, err)
	}
	m.log.InfoContext(ctx, "database connection closed through app termination")
	m.finish(0)
	return nil
}

// finish hands the status to the exit function and then closes Done.
func (m *Manager) finish(code int) {
	m.exit(code)
	m.doneOnce.Do(func() { close(m.done) })
}

func (m *Manager) swapConn(next Conn) Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.conn
	m.conn = next
	return prev
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
