package phasor

import (
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	defaultEventCapacity   = 64
	defaultChannelCapacity = 16
)

// Config carries environment-driven framework settings. All fields have
// defaults, so a zero environment yields a working configuration.
type Config struct {
	LogLevel       string `env:"PHASOR_LOG_LEVEL,default=info"`
	EventCapacity  int    `env:"PHASOR_EVENT_CAPACITY,default=64"`
	InboxCapacity  int    `env:"PHASOR_INBOX_CAPACITY,default=16"`
	OutboxCapacity int    `env:"PHASOR_OUTBOX_CAPACITY,default=16"`
	Profile        bool   `env:"PHASOR_PROFILE,default=false"`
}

// LoadConfig reads an optional .env file, then decodes PHASOR_* variables
// over the defaults.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		// envdecode errors when no tagged fields resolve; defaults make
		// that unreachable, but keep local runs working regardless.
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return cfg, err
		}
	}
	return cfg, nil
}

func (c Config) logLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
