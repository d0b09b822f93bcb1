package mongo

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/event"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Conn is the part of a connected client the manager relies on.
type Conn interface {
	Ping(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Database(name string) *mongo.Database
}

// Driver opens client connections. The default implementation wraps mongo.Connect.
type Driver interface {
	Connect(ctx context.Context, opts *options.ClientOptions) (Conn, error)
}

type officialDriver struct{}

// OfficialDriver returns the Driver backed by go.mongodb.org/mongo-driver/v2.
func OfficialDriver() Driver { return officialDriver{} }

func (officialDriver) Connect(_ context.Context, opts *options.ClientOptions) (Conn, error) {
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, err
	}
	return clientConn{client}, nil
}

type clientConn struct {
	client *mongo.Client
}

func (c clientConn) Ping(ctx context.Context) error       { return c.client.Ping(ctx, nil) }
func (c clientConn) Disconnect(ctx context.Context) error { return c.client.Disconnect(ctx) }
func (c clientConn) Database(name string) *mongo.Database { return c.client.Database(name) }

// driverEventKind enumerates the driver notifications the manager reacts to.
type driverEventKind int

const (
	heartbeatSucceeded driverEventKind = iota + 1
	heartbeatFailed
)

type driverEvent struct {
	kind driverEventKind
	err  error
}

// serverMonitor forwards heartbeat notifications to notify. Callbacks run on
// driver goroutines, so notify must not block.
func serverMonitor(notify func(driverEvent)) *event.ServerMonitor {
	return &event.ServerMonitor{
		ServerHeartbeatSucceeded: func(*event.ServerHeartbeatSucceededEvent) {
			notify(driverEvent{kind: heartbeatSucceeded})
		},
		ServerHeartbeatFailed: func(e *event.ServerHeartbeatFailedEvent) {
			notify(driverEvent{kind: heartbeatFailed, err: e.Failure})
		},
	}
}

// ipv4Dialer restricts TCP dialing to IPv4, the equivalent of "family: 4".
type ipv4Dialer struct {
	dialer *net.Dialer
}

func newIPv4Dialer(timeout time.Duration) ipv4Dialer {
	return ipv4Dialer{dialer: &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}}
}

func (d ipv4Dialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if strings.HasPrefix(network, "tcp") {
		network = "tcp4"
	}
	return d.dialer.DialContext(ctx, network, address)
}

const defaultPort = 27017

// hostPort extracts the first host and port from a connection URL for status
// reporting. SRV URLs carry no port and report the default.
func hostPort(uri string) (string, int) {
	rest, ok := strings.CutPrefix(uri, "mongodb+srv://")
	if !ok {
		rest, ok = strings.CutPrefix(uri, "mongodb://")
		if !ok {
			return "", 0
		}
	}
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		rest = rest[i+1:]
	}
	first, _, _ := strings.Cut(rest, ",")
	if first == "" {
		return "", 0
	}

	host, portStr, err := net.SplitHostPort(first)
	if err != nil {
		return strings.Trim(first, "[]"), defaultPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, defaultPort
	}
	return host, port
}
