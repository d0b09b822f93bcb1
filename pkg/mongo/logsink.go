package mongo

import (
	"context"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/coursekit/pkg/logger"
)

// driverInfoLevel is the driver's numeric level for informational records;
// anything above it is debug output.
const driverInfoLevel = int(options.LogLevelInfo)

// logSink routes driver log records into slog.
type logSink struct {
	log *slog.Logger
}

func newLogSink(log *slog.Logger) *logSink {
	return &logSink{log: log.With(logger.Component("mongo-driver"))}
}

func (s *logSink) Info(level int, message string, keysAndValues ...any) {
	lvl := slog.LevelInfo
	if level > driverInfoLevel {
		lvl = slog.LevelDebug
	}
	s.log.Log(context.Background(), lvl, message, keysAndValues...)
}

func (s *logSink) Error(err error, message string, keysAndValues ...any) {
	s.log.Log(context.Background(), slog.LevelError, message, append(keysAndValues, logger.Error(err))...)
}

// debugLoggerOptions enables command-level driver logging.
func debugLoggerOptions(log *slog.Logger) *options.LoggerOptions {
	return options.Logger().
		SetSink(newLogSink(log)).
		SetComponentLevel(options.LogComponentCommand, options.LogLevelDebug).
		SetComponentLevel(options.LogComponentConnection, options.LogLevelInfo)
}
