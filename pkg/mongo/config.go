package mongo

import "time"

// Config represents the configuration for the database connection.
// It is loaded once at startup and never mutated afterwards.
type Config struct {
	ConnectionURL          string        `env:"MONGO_URI"`                                      // ConnectionURL is the URL of the database. Empty means ErrMissingConfiguration.
	Database               string        `env:"MONGO_DATABASE" envDefault:"coursekit"`          // Database is the name of the application database.
	MaxPoolSize            uint64        `env:"MONGO_MAX_POOL_SIZE" envDefault:"10"`            // MaxPoolSize is the maximum number of connections in the pool.
	ServerSelectionTimeout time.Duration `env:"MONGO_SERVER_SELECTION_TIMEOUT" envDefault:"5s"` // ServerSelectionTimeout bounds how long the driver waits for a usable server.
	SocketTimeout          time.Duration `env:"MONGO_SOCKET_TIMEOUT" envDefault:"45s"`          // SocketTimeout bounds a single operation round trip.
	IPv4Only               bool          `env:"MONGO_IPV4_ONLY" envDefault:"true"`              // IPv4Only forces tcp4 dialing.
	RetryAttempts          int           `env:"MONGO_RETRY_ATTEMPTS" envDefault:"3"`            // RetryAttempts is the retry ceiling before the process terminates.
	RetryInterval          time.Duration `env:"MONGO_RETRY_INTERVAL" envDefault:"5s"`           // RetryInterval is the delay between attempts. It should be in the format "5s" for 5 seconds.
	Backoff                Backoff       `env:"MONGO_BACKOFF" envDefault:"fixed"`               // Backoff is "fixed" or "exponential".
	CloseTimeout           time.Duration `env:"MONGO_CLOSE_TIMEOUT" envDefault:"0s"`            // CloseTimeout bounds Disconnect on shutdown. Zero waits indefinitely.
}

// DefaultConfig returns the defaults the env tags describe, without a connection URL.
func DefaultConfig() Config {
	return Config{
		Database:               "coursekit",
		MaxPoolSize:            10,
		ServerSelectionTimeout: 5 * time.Second,
		SocketTimeout:          45 * time.Second,
		IPv4Only:               true,
		RetryAttempts:          3,
		RetryInterval:          5 * time.Second,
		Backoff:                BackoffFixed,
	}
}
