// Package requestid attaches a correlation id to every HTTP request.
//
// Middleware reuses a well-formed X-Request-ID header from the client or
// generates a UUIDv4, stores the id in the request context and echoes it in
// the response header. LoggerExtractor plugs the id into logs created with
// pkg/logger:
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	r := chi.NewRouter()
//	r.Use(requestid.Middleware)
//
// Inside a handler the id is available through FromContext, and every
// log.InfoContext(r.Context(), ...) call carries it as "request_id".
package requestid
