package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/coursekit/pkg/environment"
	"github.com/dmitrymomot/coursekit/pkg/httpserver"
	"github.com/dmitrymomot/coursekit/pkg/logger"
	"github.com/dmitrymomot/coursekit/pkg/mongo"
)

// slowConn takes closeDelay to disconnect and then fails with closeErr.
type slowConn struct {
	closeDelay time.Duration
	closeErr   error
}

func (c slowConn) Ping(context.Context) error { return nil }

func (c slowConn) Disconnect(context.Context) error {
	time.Sleep(c.closeDelay)
	return c.closeErr
}

func (c slowConn) Database(string) *mongodriver.Database { return nil }

type connDriver struct {
	conn mongo.Conn
	err  error
}

func (d connDriver) Connect(context.Context, *options.ClientOptions) (mongo.Conn, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

type exitRecorder struct {
	mu    sync.Mutex
	codes []int
}

func (r *exitRecorder) exit(code int) {
	r.mu.Lock()
	r.codes = append(r.codes, code)
	r.mu.Unlock()
}

func (r *exitRecorder) recorded() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.codes...)
}

func startServe(t *testing.T, driver mongo.Driver, cfg mongo.Config) (*mongo.Manager, *exitRecorder, <-chan struct{}) {
	t.Helper()

	rec := &exitRecorder{}
	log := logger.Discard()
	srv := httpserver.New(httpserver.WithAddr("127.0.0.1:0"), httpserver.WithShutdownTimeout(100*time.Millisecond))
	db := mongo.NewManager(cfg,
		mongo.WithDriver(driver),
		mongo.WithExitFunc(rec.exit),
		mongo.WithBeforeClose(func(ctx context.Context) { _ = srv.Shutdown(ctx) }),
	)

	returned := make(chan struct{})
	go func() {
		defer close(returned)
		serve(context.Background(), log, environment.Production, srv, db)
	}()
	return db, rec, returned
}

func TestServe_WaitsForClose(t *testing.T) {
	t.Parallel()

	cfg := mongo.DefaultConfig()
	cfg.ConnectionURL = "mongodb://db.internal:27017/coursekit"
	conn := slowConn{closeDelay: 300 * time.Millisecond, closeErr: errors.New("close failed")}
	db, rec, returned := startServe(t, connDriver{conn: conn}, cfg)

	require.Eventually(t, func() bool { return db.Status().IsConnected }, 2*time.Second, 5*time.Millisecond)

	go func() { _ = db.HandleTermination(context.Background()) }()

	select {
	case <-returned:
		require.Equal(t, []int{1}, rec.recorded(), "serve returned before the close finished")
	case <-time.After(3 * time.Second):
		require.FailNow(t, "serve did not return after termination")
	}
	assert.Equal(t, mongo.StateTerminated, db.Status().State)
}

func TestServe_WaitsForTerminationDuringRetry(t *testing.T) {
	t.Parallel()

	cfg := mongo.DefaultConfig()
	cfg.ConnectionURL = "mongodb://db.internal:27017/coursekit"
	cfg.RetryInterval = time.Minute
	db, rec, returned := startServe(t, connDriver{err: errors.New("connection refused")}, cfg)

	require.Eventually(t, func() bool { return db.Status().Retries == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, db.HandleTermination(context.Background()))

	select {
	case <-returned:
	case <-time.After(3 * time.Second):
		require.FailNow(t, "serve did not return after termination")
	}
	assert.Equal(t, []int{0}, rec.recorded())
}
