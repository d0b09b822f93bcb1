package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type fakeConn struct {
	mu            sync.Mutex
	pingErr       error
	disconnectErr error
	disconnects   int
}

func (c *fakeConn) Ping(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pingErr
}

func (c *fakeConn) Disconnect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	return c.disconnectErr
}

func (c *fakeConn) Database(string) *mongo.Database { return nil }

func (c *fakeConn) setPingErr(err error) {
	c.mu.Lock()
	c.pingErr = err
	c.mu.Unlock()
}

func (c *fakeConn) setDisconnectErr(err error) {
	c.mu.Lock()
	c.disconnectErr = err
	c.mu.Unlock()
}

func (c *fakeConn) disconnectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnects
}

// fakeDriver fails the first len(connectErrs) calls with the given errors
// (nil entries succeed) and hands out connections whose first pingFailures
// handshakes fail.
type fakeDriver struct {
	mu           sync.Mutex
	connectErrs  []error
	pingFailures int
	calls        int
	opts         []*options.ClientOptions
	conns        []*fakeConn
}

func failing(n int) []error {
	errs := make([]error, n)
	for i := range errs {
		errs[i] = errors.New("connection refused")
	}
	return errs
}

func (d *fakeDriver) Connect(_ context.Context, opts *options.ClientOptions) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := d.calls
	d.calls++
	d.opts = append(d.opts, opts)
	if idx < len(d.connectErrs) && d.connectErrs[idx] != nil {
		return nil, d.connectErrs[idx]
	}
	c := &fakeConn{}
	if len(d.conns) < d.pingFailures {
		c.pingErr = errors.New("server selection timeout")
	}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDriver) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *fakeDriver) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

type recorder struct {
	mu                 sync.Mutex
	sleeps             []time.Duration
	retriesDuringSleep []int
	exits              []int
}

func (r *recorder) exit(code int) {
	r.mu.Lock()
	r.exits = append(r.exits, code)
	r.mu.Unlock()
}

func (r *recorder) exitCodes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.exits...)
}

func (r *recorder) sleepDurations() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.sleeps...)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ConnectionURL = "mongodb://db.internal:27018/coursekit"
	return cfg
}

func newTestManager(t *testing.T, cfg Config, d *fakeDriver, opts ...Option) (*Manager, *recorder) {
	t.Helper()
	rec := &recorder{}
	m := NewManager(cfg, append([]Option{WithDriver(d), WithExitFunc(rec.exit)}, opts...)...)
	m.sleep = func(ctx context.Context, dur time.Duration) error {
		rec.mu.Lock()
		rec.sleeps = append(rec.sleeps, dur)
		rec.retriesDuringSleep = append(rec.retriesDuringSleep, m.Retries())
		rec.mu.Unlock()
		return ctx.Err()
	}
	t.Cleanup(m.cancel)
	return m, rec
}

func repeat(d time.Duration, n int) []time.Duration {
	out := make([]time.Duration, n)
	for i := range out {
		out[i] = d
	}
	return out
}

func TestManager_StatusBeforeConnect(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, testConfig(), &fakeDriver{})

	st := m.Status()
	assert.False(t, st.IsConnected)
	assert.Equal(t, ReadyDisconnected, st.ReadyState)
	assert.Equal(t, StateDisconnected, st.State)
	assert.Equal(t, "db.internal", st.Host)
	assert.Equal(t, 27018, st.Port)
	assert.Equal(t, 0, st.Retries)
	assert.Nil(t, m.Database())
	assert.ErrorIs(t, m.Ping(context.Background()), ErrNotConnected)
}

func TestManager_Connect(t *testing.T) {
	t.Parallel()

	t.Run("connects on first attempt", func(t *testing.T) {
		t.Parallel()

		d := &fakeDriver{}
		m, rec := newTestManager(t, testConfig(), d)

		require.NoError(t, m.Connect(context.Background()))

		st := m.Status()
		assert.True(t, st.IsConnected)
		assert.Equal(t, ReadyConnected, st.ReadyState)
		assert.Equal(t, StateConnected, st.State)
		assert.Equal(t, 0, st.Retries)
		assert.Equal(t, 1, d.callCount())
		assert.Empty(t, rec.sleepDurations())
		assert.Empty(t, rec.exitCodes())
		assert.NoError(t, m.Ping(context.Background()))
	})

	t.Run("second connect is a no-op", func(t *testing.T) {
		t.Parallel()

		d := &fakeDriver{}
		m, _ := newTestManager(t, testConfig(), d)

		require.NoError(t, m.Connect(context.Background()))
		require.NoError(t, m.Connect(context.Background()))
		assert.Equal(t, 1, d.callCount())
	})

	t.Run("retries fewer failures than the ceiling without terminating", func(t *testing.T) {
		t.Parallel()

		for n := range 3 {
			d := &fakeDriver{connectErrs: failing(n)}
			m, rec := newTestManager(t, testConfig(), d)

			require.NoError(t, m.Connect(context.Background()), "failures=%d", n)
			assert.Equal(t, n+1, d.callCount())
			assert.Equal(t, repeat(5*time.Second, n), rec.sleepDurations())
			assert.Empty(t, rec.exitCodes())
			assert.True(t, m.Status().IsConnected)
			assert.Equal(t, 0, m.Status().Retries)
		}
	})

	t.Run("first attempt fails and second succeeds", func(t *testing.T) {
		t.Parallel()

		d := &fakeDriver{connectErrs: failing(1)}
		m, rec := newTestManager(t, testConfig(), d)

		require.NoError(t, m.Connect(context.Background()))

		assert.Equal(t, []int{1}, rec.retriesDuringSleep)
		assert.Equal(t, 0, m.Status().Retries)
		assert.True(t, m.Status().IsConnected)
	})

	t.Run("failed handshake counts as a failure", func(t *testing.T) {
		t.Parallel()

		d := &fakeDriver{pingFailures: 1}
		m, rec := newTestManager(t, testConfig(), d)

		require.NoError(t, m.Connect(context.Background()))
		assert.Equal(t, 2, d.callCount())
		assert.Equal(t, 1, d.conn(0).disconnectCount())
		assert.Len(t, rec.sleepDurations(), 1)
	})

	t.Run("terminates with status 1 once retries are exhausted", func(t *testing.T) {
		t.Parallel()

		d := &fakeDriver{connectErrs: failing(10)}
		m, rec := newTestManager(t, testConfig(), d)

		err := m.Connect(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRetryExhausted)
		assert.ErrorIs(t, err, ErrTransientConnectionFailure)

		assert.Equal(t, 4, d.callCount())
		assert.Equal(t, repeat(5*time.Second, 3), rec.sleepDurations())
		assert.Equal(t, []int{1, 2, 3}, rec.retriesDuringSleep)
		assert.Equal(t, []int{1}, rec.exitCodes())

		st := m.Status()
		assert.False(t, st.IsConnected)
		assert.Equal(t, StateTerminated, st.State)
		assert.Equal(t, 3, st.Retries)

		assert.ErrorIs(t, m.Connect(context.Background()), ErrTerminated)
		assert.Equal(t, []int{1}, rec.exitCodes())
	})

	t.Run("missing configuration never reaches the driver", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.ConnectionURL = ""
		d := &fakeDriver{}
		m, rec := newTestManager(t, cfg, d)

		err := m.Connect(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingConfiguration)
		assert.ErrorIs(t, err, ErrRetryExhausted)

		assert.Equal(t, 0, d.callCount())
		assert.Equal(t, repeat(5*time.Second, 3), rec.sleepDurations())
		assert.Equal(t, []int{1}, rec.exitCodes())
		assert.Equal(t, StateTerminated, m.Status().State)
	})

	t.Run("exponential backoff doubles the delay", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.Backoff = BackoffExponential
		m, rec := newTestManager(t, cfg, &fakeDriver{connectErrs: failing(10)})

		require.Error(t, m.Connect(context.Background()))
		assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second}, rec.sleepDurations())
	})

	t.Run("cancelled wait stops retrying without exiting", func(t *testing.T) {
		t.Parallel()

		d := &fakeDriver{connectErrs: failing(10)}
		m, rec := newTestManager(t, testConfig(), d)
		ctx, cancel := context.WithCancel(context.Background())
		m.sleep = func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		}

		err := m.Connect(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, d.callCount())
		assert.Empty(t, rec.exitCodes())
		assert.Equal(t, StateError, m.Status().State)
	})
}

func TestManager_ClientOptions(t *testing.T) {
	t.Parallel()

	t.Run("applies configured limits", func(t *testing.T) {
		t.Parallel()

		d := &fakeDriver{}
		m, _ := newTestManager(t, testConfig(), d)
		require.NoError(t, m.Connect(context.Background()))

		require.Len(t, d.opts, 1)
		opts := d.opts[0]
		require.NotNil(t, opts.MaxPoolSize)
		assert.Equal(t, uint64(10), *opts.MaxPoolSize)
		require.NotNil(t, opts.ServerSelectionTimeout)
		assert.Equal(t, 5*time.Second, *opts.ServerSelectionTimeout)
		require.NotNil(t, opts.Timeout)
		assert.Equal(t, 45*time.Second, *opts.Timeout)
		assert.IsType(t, ipv4Dialer{}, opts.Dialer)
		assert.NotNil(t, opts.ServerMonitor)
		assert.Nil(t, opts.LoggerOptions)
	})

	t.Run("debug enables driver logging", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.IPv4Only = false
		d := &fakeDriver{}
		m, _ := newTestManager(t, cfg, d, WithDebug(true))
		require.NoError(t, m.Connect(context.Background()))

		assert.NotNil(t, d.opts[0].LoggerOptions)
		assert.Nil(t, d.opts[0].Dialer)
	})
}

func TestManager_HandleDisconnection(t *testing.T) {
	t.Parallel()

	t.Run("no-op while connected", func(t *testing.T) {
		t.Parallel()

		d := &fakeDriver{}
		m, _ := newTestManager(t, testConfig(), d)
		require.NoError(t, m.Connect(context.Background()))

		require.NoError(t, m.HandleDisconnection(context.Background()))
		assert.Equal(t, 1, d.callCount())
	})

	t.Run("connects when disconnected", func(t *testing.T) {
		t.Parallel()

		d := &fakeDriver{}
		m, _ := newTestManager(t, testConfig(), d)

		require.NoError(t, m.HandleDisconnection(context.Background()))
		assert.Equal(t, 1, d.callCount())
		assert.True(t, m.Status().IsConnected)
	})

	t.Run("skips while an attempt is in flight", func(t *testing.T) {
		t.Parallel()

		d := &fakeDriver{}
		m, _ := newTestManager(t, testConfig(), d)

		m.attempt.Lock()
		require.NoError(t, m.HandleDisconnection(context.Background()))
		m.attempt.Unlock()
		assert.Equal(t, 0, d.callCount())
	})
}

func TestManager_DriverEvents(t *testing.T) {
	t.Parallel()

	t.Run("failed heartbeat with failed ping reconnects", func(t *testing.T) {
		t.Parallel()

		d := &fakeDriver{}
		m, rec := newTestManager(t, testConfig(), d)
		require.NoError(t, m.Connect(context.Background()))

		d.conn(0).setPingErr(errors.New("connection reset"))
		m.handleDriverEvent(context.Background(), driverEvent{kind: heartbeatFailed, err: errors.New("connection reset")})

		assert.Equal(t, 2, d.callCount())
		assert.Equal(t, 1, d.conn(0).disconnectCount())
		assert.Equal(t, []int{1}, rec.retriesDuringSleep)
		assert.True(t, m.Status().IsConnected)
		assert.Equal(t, 0, m.Status().Retries)
	})

	t.Run("failed heartbeat with healthy ping is ignored", func(t *testing.T) {
		t.Parallel()

		d := &fakeDriver{}
		m, rec := newTestManager(t, testConfig(), d)
		require.NoError(t, m.Connect(context.Background()))

		m.handleDriverEvent(context.Background(), driverEvent{kind: heartbeatFailed})

		assert.Equal(t, 1, d.callCount())
		assert.Empty(t, rec.sleepDurations())
		assert.True(t, m.Status().IsConnected)
	})

	t.Run("events are consumed by the watcher", func(t *testing.T) {
		t.Parallel()

		d := &fakeDriver{}
		m, _ := newTestManager(t, testConfig(), d)
		require.NoError(t, m.Connect(context.Background()))

		d.conn(0).setPingErr(errors.New("connection reset"))
		m.notify(driverEvent{kind: heartbeatFailed})

		require.Eventually(t, func() bool {
			return d.callCount() == 2 && m.Status().IsConnected
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("disconnect after exhausting retries terminates", func(t *testing.T) {
		t.Parallel()

		d := &fakeDriver{}
		m, rec := newTestManager(t, testConfig(), d)
		require.NoError(t, m.Connect(context.Background()))

		d.mu.Lock()
		d.connectErrs = append([]error{nil}, failing(10)...)
		d.mu.Unlock()
		d.conn(0).setPingErr(errors.New("connection reset"))
		m.handleDriverEvent(context.Background(), driverEvent{kind: heartbeatFailed})

		assert.Equal(t, []int{1}, rec.exitCodes())
		assert.Equal(t, StateTerminated, m.Status().State)
	})

	t.Run("ignored when not connected", func(t *testing.T) {
		t.Parallel()

		d := &fakeDriver{}
		m, _ := newTestManager(t, testConfig(), d)
		m.handleDriverEvent(context.Background(), driverEvent{kind: heartbeatFailed})
		assert.Equal(t, 0, d.callCount())
	})
}

func TestManager_HandleTermination(t *testing.T) {
	t.Parallel()

	t.Run("closes the connection and exits with 0", func(t *testing.T) {
		t.Parallel()

		d := &fakeDriver{}
		var hookRan bool
		m, rec := newTestManager(t, testConfig(), d, WithBeforeClose(func(context.Context) { hookRan = true }))
		require.NoError(t, m.Connect(context.Background()))

		require.NoError(t, m.HandleTermination(context.Background()))

		assert.True(t, hookRan)
		assert.Equal(t, 1, d.conn(0).disconnectCount())
		assert.Equal(t, []int{0}, rec.exitCodes())
		st := m.Status()
		assert.Equal(t, StateTerminated, st.State)
		assert.Equal(t, ReadyDisconnected, st.ReadyState)
		assert.Nil(t, m.Database())

		require.NoError(t, m.HandleTermination(context.Background()))
		assert.Equal(t, []int{0}, rec.exitCodes())
	})

	t.Run("exits with 1 when close fails", func(t *testing.T) {
		t.Parallel()

		d := &fakeDriver{}
		m, rec := newTestManager(t, testConfig(), d)
		require.NoError(t, m.Connect(context.Background()))
		d.conn(0).setDisconnectErr(errors.New("close failed"))

		err := m.HandleTermination(context.Background())
		assert.ErrorIs(t, err, ErrShutdownFailure)
		assert.Equal(t, []int{1}, rec.exitCodes())
	})

	t.Run("exits with 0 when never connected", func(t *testing.T) {
		t.Parallel()

		m, rec := newTestManager(t, testConfig(), &fakeDriver{})
		require.NoError(t, m.HandleTermination(context.Background()))
		assert.Equal(t, []int{0}, rec.exitCodes())
		assert.ErrorIs(t, m.Connect(context.Background()), ErrTerminated)
	})
}

func TestManager_Done(t *testing.T) {
	t.Parallel()

	closed := func(ch <-chan struct{}) bool {
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}

	t.Run("open while running", func(t *testing.T) {
		t.Parallel()

		m, _ := newTestManager(t, testConfig(), &fakeDriver{})
		require.NoError(t, m.Connect(context.Background()))
		assert.False(t, closed(m.Done()))
	})

	t.Run("closed after termination exits", func(t *testing.T) {
		t.Parallel()

		d := &fakeDriver{}
		m, rec := newTestManager(t, testConfig(), d)
		require.NoError(t, m.Connect(context.Background()))
		d.conn(0).setDisconnectErr(errors.New("close failed"))

		assert.Error(t, m.HandleTermination(context.Background()))
		assert.True(t, closed(m.Done()))
		assert.Equal(t, []int{1}, rec.exitCodes())
	})

	t.Run("closed after retries are exhausted", func(t *testing.T) {
		t.Parallel()

		m, rec := newTestManager(t, testConfig(), &fakeDriver{connectErrs: failing(4)})
		assert.ErrorIs(t, m.Connect(context.Background()), ErrRetryExhausted)
		assert.True(t, closed(m.Done()))
		assert.Equal(t, []int{1}, rec.exitCodes())
	})
}

func TestManager_ConcurrentStatus(t *testing.T) {
	t.Parallel()

	d := &fakeDriver{connectErrs: failing(2)}
	m, _ := newTestManager(t, testConfig(), d)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					_ = m.Status()
				}
			}
		}()
	}

	require.NoError(t, m.Connect(context.Background()))
	close(stop)
	wg.Wait()
	assert.True(t, m.Status().IsConnected)
}

func TestStatus_JSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Status{IsConnected: true, ReadyState: ReadyConnected, Host: "localhost", Port: 27017, State: StateConnected})
	require.NoError(t, err)
	assert.JSONEq(t, `{"isConnected":true,"readyState":1,"host":"localhost","port":27017,"state":"connected","retries":0}`, string(data))
}

func TestHealthcheck(t *testing.T) {
	t.Parallel()

	d := &fakeDriver{}
	m, _ := newTestManager(t, testConfig(), d)
	probe := Healthcheck(m)

	err := probe(context.Background())
	assert.ErrorIs(t, err, ErrHealthcheckFailed)
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, m.Connect(context.Background()))
	assert.NoError(t, probe(context.Background()))

	d.conn(0).setPingErr(errors.New("timeout"))
	assert.ErrorIs(t, probe(context.Background()), ErrHealthcheckFailed)
}
