// Package logger builds the service's *slog.Logger and keeps attribute names
// consistent across packages.
//
// New returns a logger configured through Option functions: output format
// (json or text), minimum level, static attributes applied to every record and
// ContextExtractor callbacks that pull request-scoped values (request id,
// environment) out of a context.Context on every Handle call.
//
// WithEnvironment picks the defaults for a deployment: text output at debug
// level in development, json at info level elsewhere.
//
// # Usage
//
//	log := logger.New(
//		logger.WithEnvironment(environment.Parse(os.Getenv("APP_ENV")), "coursekit"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "database connected", logger.Component("mongo"), logger.Host(host))
//
// The attribute helpers in attr.go return an empty slog.Attr for nil values,
// which slog drops, so callers need not guard optional fields.
package logger
