package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/inkrelay/internal/transport"
	"github.com/pelletier/go-toml/v2"
)

// HostConfig is the inkctl configuration.
type HostConfig struct {
	Link         transport.Config
	QueryTimeout time.Duration
	Retries      int
}

func DefaultHost() HostConfig {
	link := transport.DefaultConfig()
	link.Port = "/dev/ttyUSB0"
	return HostConfig{
		Link:         link,
		QueryTimeout: 2 * time.Second,
		Retries:      2,
	}
}

type hostFile struct {
	Link struct {
		Kind    string `toml:"kind"`
		Port    string `toml:"port,omitempty"`
		Baud    int    `toml:"baud,omitempty"`
		Address string `toml:"address,omitempty"`
	} `toml:"link"`
	QueryTimeout string `toml:"query_timeout"`
	Retries      int    `toml:"retries"`
}

// LoadHost reads an inkctl config. Empty fields keep their defaults.
func LoadHost(path string) (HostConfig, error) {
	var raw hostFile
	if err := loadToml(path, &raw); err != nil {
		return HostConfig{}, err
	}
	cfg := DefaultHost()
	if v := strings.TrimSpace(raw.Link.Kind); v != "" {
		cfg.Link.Kind = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.Link.Port); v != "" {
		cfg.Link.Port = v
	}
	if raw.Link.Baud != 0 {
		cfg.Link.Baud = raw.Link.Baud
	}
	if v := strings.TrimSpace(raw.Link.Address); v != "" {
		cfg.Link.Address = v
	}
	if v := strings.TrimSpace(raw.QueryTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return HostConfig{}, fmt.Errorf("config parse failed (%s): query_timeout: %w", path, err)
		}
		cfg.QueryTimeout = d
	}
	if raw.Retries != 0 {
		cfg.Retries = raw.Retries
	}
	if err := ValidateHost(cfg); err != nil {
		return HostConfig{}, err
	}
	return cfg, nil
}

func ValidateHost(cfg HostConfig) error {
	if err := cfg.Link.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if cfg.QueryTimeout <= 0 {
		return fmt.Errorf("%w: query_timeout must be positive", ErrInvalid)
	}
	if cfg.Retries < 0 {
		return fmt.Errorf("%w: retries must not be negative", ErrInvalid)
	}
	return nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}
