// Package mongo manages the single MongoDB connection the service runs on.
//
// A Manager connects with the configured pool and timeouts, retries failed
// attempts up to a fixed ceiling, watches driver heartbeats for unsolicited
// disconnects and closes the connection when the process receives SIGINT or
// SIGTERM. The manager never hands a connection error back to its caller:
// it either recovers by retrying or ends the process through its exit
// function (os.Exit unless replaced with WithExitFunc).
//
// # Lifecycle
//
// The connection moves through disconnected, connecting, connected, error and
// terminated. A failed attempt enters error; while the retry counter is below
// Config.RetryAttempts the counter is incremented, the manager waits
// Config.RetryInterval (doubling per retry with BackoffExponential) and tries
// again. Reaching the ceiling terminates the process with status 1. A missing
// connection URL is reported as ErrMissingConfiguration and goes through the
// same path without any network call, so it always ends in termination.
//
// A successful connection resets the retry counter to 0.
//
// # Usage
//
//	var cfg mongo.Config
//	config.MustLoad(&cfg)
//
//	m := mongo.NewManager(cfg,
//		mongo.WithLogger(log),
//		mongo.WithDebug(env.IsDevelopment()),
//	)
//	stop := m.ListenForSignals(ctx)
//	defer stop()
//
//	if err := m.Connect(ctx); err != nil {
//		return err
//	}
//	db := m.Database()
//
//	probe := mongo.Healthcheck(m)
//
// # Shutdown
//
// HandleTermination runs the WithBeforeClose hooks, disconnects the client and
// exits with 0, or 1 if Disconnect fails. Disconnect is awaited without a
// deadline unless Config.CloseTimeout is set, so a hung server can stall
// shutdown.
//
// # See Also
//
// Documentation for the official driver: https://pkg.go.dev/go.mongodb.org/mongo-driver/v2.
package mongo
