package logger

import (
	"log/slog"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// RetryCount records the retry count under the key "retry_count".
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

// MaxRetries records the retry ceiling under the key "max_retries".
func MaxRetries(n int) slog.Attr {
	return slog.Int("max_retries", n)
}

// Delay records a wait duration under the key "delay".
func Delay(d time.Duration) slog.Attr {
	return slog.Duration("delay", d)
}

// Transition records a state change as {from, to, event}.
func Transition(from, to, event string) slog.Attr {
	return slog.Group("transition",
		slog.String("from", from),
		slog.String("to", to),
		slog.String("event", event),
	)
}

// Host records a database host under the key "host".
func Host(host string) slog.Attr {
	if host == "" {
		return slog.Attr{}
	}
	return slog.String("host", host)
}

// Signal records the received os signal under the key "signal".
func Signal(sig any) slog.Attr {
	if sig == nil {
		return slog.Attr{}
	}
	return slog.Any("signal", sig)
}

// RequestID records the request identifier under the key "request_id".
// If id is nil, it returns an empty Attr.
func RequestID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}
