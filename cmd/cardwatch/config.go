package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is read from CARDWATCH_* environment variables.
type Config struct {
	BaseURL  string        `env:"BASE_URL,required"`
	Token    string        `env:"TOKEN"`
	ViewerID string        `env:"VIEWER_ID"`
	Role     string        `env:"ROLE" envDefault:"user"`
	Page     int           `env:"PAGE" envDefault:"1"`
	PageSize int           `env:"PAGE_SIZE" envDefault:"12"`
	Query    string        `env:"QUERY"`
	Like     string        `env:"LIKE"` // card id to toggle once the page is shown
	LogLevel string        `env:"LOG_LEVEL" envDefault:"info"`
	Memo     string        `env:"MEMO" envDefault:"ristretto"` // ristretto, bigcache or none
	MemoTTL  time.Duration `env:"MEMO_TTL" envDefault:"5s"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "CARDWATCH_"}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
