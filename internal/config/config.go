package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config is the runtime configuration: process-level settings come from
// the environment, lot-level settings from an optional TOML file.
type Config struct {
	Port         int
	DatabasePath string
	OTLPEndpoint string

	Lot LotConfig
}

// LotConfig describes the lot itself: pool sizes, tariffs and the plate
// format the gate accepts. Zero values fall back to the service
// defaults.
type LotConfig struct {
	PlatePattern     string             `toml:"plate_pattern"`
	IncrementMinutes int                `toml:"increment_minutes"`
	Capacities       map[string]int     `toml:"capacities"`
	Rates            map[string]float64 `toml:"rates"`
}

// Load loads configuration from environment variables only.
func Load() (*Config, error) {
	return LoadWithFile("", "")
}

// LoadWithFile loads configuration from an optional .env file, the
// environment, and an optional lot TOML file. Missing files are not an
// error.
func LoadWithFile(envFile, lotFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Port:         parsePort(os.Getenv("PARKING_PORT")),
		DatabasePath: os.Getenv("PARKING_DB_PATH"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "data/parking.db"
	}

	if lotFile == "" {
		lotFile = os.Getenv("PARKING_LOT_CONFIG")
	}
	if lotFile != "" {
		if _, err := toml.DecodeFile(lotFile, &cfg.Lot); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading lot config %s: %w", lotFile, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the loaded values are usable.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PARKING_PORT %d is out of range", c.Port)
	}
	if c.Lot.IncrementMinutes < 0 {
		return fmt.Errorf("increment_minutes must not be negative")
	}
	for category, capacity := range c.Lot.Capacities {
		if capacity < 0 {
			return fmt.Errorf("capacity for %q must not be negative", category)
		}
	}
	for category, rate := range c.Lot.Rates {
		if rate < 0 {
			return fmt.Errorf("rate for %q must not be negative", category)
		}
	}
	return nil
}

func parsePort(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
