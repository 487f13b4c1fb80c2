package internal

import (
	"fmt"
	"time"
)

// Config is the backend server configuration, read from the environment.
type Config struct {
	BufferSize           int           `env:"BUFFER_SIZE,required=true"`
	SubscriberBufferSize int           `env:"SUBSCRIBER_BUFFER_SIZE,required=true"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=4096"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,required=true"`
	PublishTimeout       time.Duration `env:"PUBLISH_TIMEOUT,default=2s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,required=true"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=10s"`
	LowCapacityThreshold int           `env:"LOW_CAPACITY_THRESHOLD,default=80"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,default=8080"`
	DebugPort            int           `env:"DEBUG_PORT,default=8081"`
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate rejects values the environment parser accepts but the server
// cannot run with.
func (c Config) Validate() error {
	if c.BufferSize <= 0 || c.SubscriberBufferSize <= 0 {
		return fmt.Errorf("BUFFER_SIZE and SUBSCRIBER_BUFFER_SIZE must be positive")
	}
	if c.LimitMessages != nil && *c.LimitMessages <= 0 {
		return fmt.Errorf("LIMIT_MESSAGES must be positive, got %d", *c.LimitMessages)
	}
	if c.SinkTimeout <= 0 {
		return fmt.Errorf("SINK_TIMEOUT must be positive, got %s", c.SinkTimeout)
	}
	if c.PublishTimeout <= 0 {
		return fmt.Errorf("PUBLISH_TIMEOUT must be positive, got %s", c.PublishTimeout)
	}
	if c.RestartInterval <= 0 {
		return fmt.Errorf("RESTART_INTERVAL must be positive, got %s", c.RestartInterval)
	}
	return nil
}
