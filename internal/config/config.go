package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the reeld process configuration.
type Config struct {
	Addr string `env:"REEL_ADDR" envDefault:"127.0.0.1:8078"`

	Store      string        `env:"REEL_STORE"       envDefault:"sqlite"`
	DBPath     string        `env:"REEL_DB_PATH"     envDefault:"reel_animations.db"`
	BoltPath   string        `env:"REEL_BOLT_PATH"   envDefault:"reel_animations.bolt"`
	RedisAddr  string        `env:"REEL_REDIS_ADDR"  envDefault:"localhost:6379"`
	RedisTTL   time.Duration `env:"REEL_REDIS_TTL"   envDefault:"10m"`

	LogLevel       string `env:"REEL_LOG_LEVEL"       envDefault:"info"`
	LogDevelopment bool   `env:"REEL_LOG_DEVELOPMENT"`

	APIToken       string `env:"REEL_API_TOKEN"`
	KeyringService string `env:"REEL_KEYRING_SERVICE" envDefault:"stake-reel-engine"`
	SecretsPath    string `env:"REEL_SECRETS_PATH"`

	FrameRate         int     `env:"REEL_FRAME_RATE"         envDefault:"60"`
	CellHeight        float64 `env:"REEL_CELL_HEIGHT"        envDefault:"120"`
	ViewportHeight    float64 `env:"REEL_VIEWPORT_HEIGHT"    envDefault:"480"`
	BaseSpinSeconds   float64 `env:"REEL_BASE_SPIN_SECONDS"  envDefault:"5.5"`
	JackpotRotations  int     `env:"REEL_JACKPOT_ROTATIONS"  envDefault:"8"`
}

var validStores = map[string]bool{"memory": true, "sqlite": true, "bolt": true, "redis": true}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("REEL_ADDR is empty"))
	}
	if !validStores[c.Store] {
		errs = append(errs, fmt.Errorf("REEL_STORE %q is not one of memory, sqlite, bolt, redis", c.Store))
	}
	if c.Store == "redis" && c.RedisTTL <= 0 {
		errs = append(errs, errors.New("REEL_REDIS_TTL must be positive"))
	}
	if c.FrameRate <= 0 {
		errs = append(errs, errors.New("REEL_FRAME_RATE must be positive"))
	}
	if c.CellHeight <= 0 {
		errs = append(errs, errors.New("REEL_CELL_HEIGHT must be positive"))
	}
	if c.ViewportHeight <= 0 {
		errs = append(errs, errors.New("REEL_VIEWPORT_HEIGHT must be positive"))
	}
	if c.BaseSpinSeconds <= 0 {
		errs = append(errs, errors.New("REEL_BASE_SPIN_SECONDS must be positive"))
	}
	if c.JackpotRotations < 0 {
		errs = append(errs, errors.New("REEL_JACKPOT_ROTATIONS must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// BaseSpin is the nominal spin duration.
func (c Config) BaseSpin() time.Duration {
	return time.Duration(c.BaseSpinSeconds * float64(time.Second))
}
