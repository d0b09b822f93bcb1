// Package httpserver runs an http.Server with configurable timeouts, graceful
// shutdown and slog logging, and provides the handlers behind health probes.
//
// Run blocks until ctx is cancelled or Shutdown is called. The server does not
// listen for OS signals itself; the process owner decides when to stop it,
// usually from a termination hook:
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//
//	r := chi.NewRouter()
//	r.Get("/health/live", httpserver.Liveness)
//	r.Get("/health/ready", httpserver.Readiness(log, mongo.Healthcheck(db)))
//	r.Get("/health/db", httpserver.StatusJSON(db.Status))
//
//	go func() { _ = srv.Run(ctx, r) }()
//
// Run wraps listen errors with ErrStart and Shutdown wraps shutdown errors
// with ErrShutdown.
package httpserver
