package config

import "errors"

var (
	// ErrParsingConfig wraps the env parser error for a configuration type.
	ErrParsingConfig = errors.New("config: cannot parse environment")
	ErrNilPointer    = errors.New("config: Load called with a nil pointer")
)
