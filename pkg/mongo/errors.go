package mongo

import "errors"

var (
	ErrMissingConfiguration       = errors.New("mongo connection URL is not configured")
	ErrTransientConnectionFailure = errors.New("failed to connect to mongo")
	ErrRetryExhausted             = errors.New("mongo connection retries exhausted")
	ErrShutdownFailure            = errors.New("failed to close mongo connection")
	ErrNotConnected               = errors.New("mongo is not connected")
	ErrTerminated                 = errors.New("mongo connection manager is terminated")
	ErrHealthcheckFailed          = errors.New("mongo healthcheck failed")
)
