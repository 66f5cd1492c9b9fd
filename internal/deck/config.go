package deck

import "time"

// BackoffConfig defines reconnect backoff behavior for callers that retry
// Open after a disconnect. The engine itself never reconnects.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines engine timing defaults.
type Config struct {
	// ConnectTimeout bounds the liveness probe sent by Open.
	ConnectTimeout time.Duration
	// CommandTimeout applies to SendCommand calls whose context carries no
	// deadline of its own.
	CommandTimeout time.Duration
	Backoff        BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 5 * time.Second,
		CommandTimeout: 3 * time.Second,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}
