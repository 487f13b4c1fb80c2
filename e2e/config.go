package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_SERVER_ADDR points at a running chat-sync server; the suites are
	// skipped when it is empty
	ServerAddr string `envconfig:"E2E_SERVER_ADDR"`
	// E2E_DEBUG_WIRE dumps full request/response values
	DebugWire bool `envconfig:"E2E_DEBUG_WIRE" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
