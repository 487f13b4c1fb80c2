package main

import (
	"chat-sync/session"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress       string        `envconfig:"CHAT_SERVER_ADDR" default:"localhost:8080"`
	Participant         string        `envconfig:"CHAT_PARTICIPANT" required:"true"`
	LogLevel            string        `envconfig:"LOG_LEVEL" default:"WARN"`
	FetchTimeout        time.Duration `envconfig:"FETCH_TIMEOUT" default:"5s"`
	SubscribeTimeout    time.Duration `envconfig:"SUBSCRIBE_TIMEOUT" default:"5s"`
	SendTimeout         time.Duration `envconfig:"SEND_TIMEOUT" default:"5s"`
	ResubscribeAttempts int           `envconfig:"RESUBSCRIBE_ATTEMPTS" default:"1"`
	StreamBufferSize    int           `envconfig:"STREAM_BUFFER_SIZE" default:"64"`
	Colours             bool          `envconfig:"CHAT_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.StreamBufferSize <= 0 {
		return fmt.Errorf("STREAM_BUFFER_SIZE must be positive, got %d", c.StreamBufferSize)
	}
	return c.Session().Validate()
}

func (c Config) Session() session.Config {
	return session.Config{
		FetchTimeout:        c.FetchTimeout,
		SubscribeTimeout:    c.SubscribeTimeout,
		SendTimeout:         c.SendTimeout,
		ResubscribeAttempts: c.ResubscribeAttempts,
	}
}
