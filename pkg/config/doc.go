// Package config loads typed configuration from the environment.
//
// Values are read from the process environment after an optional .env file
// has been applied with github.com/joho/godotenv, then decoded into a struct
// with github.com/caarlos0/env/v11 field tags:
//
//	type Config struct {
//		ConnectionURL string        `env:"MONGO_URI"`
//		RetryInterval time.Duration `env:"MONGO_RETRY_INTERVAL" envDefault:"5s"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		// handle error
//	}
//
// Each configuration type is parsed once per process and later calls return
// the cached copy, so configuration is effectively immutable after startup.
// Reset drops the cache and is meant for tests.
package config
