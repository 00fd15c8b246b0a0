package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/inkrelay/internal/protocol/frame"
	"github.com/danmuck/inkrelay/internal/protocol/schema"
	"github.com/danmuck/inkrelay/internal/transport"
)

const (
	SurfaceRaster   = "raster"
	SurfaceRecorder = "recorder"
)

var ErrInvalid = errors.New("config: invalid")

// Config is the relayd configuration.
type Config struct {
	Engine    EngineConfig
	Transport transport.Config
	Surface   SurfaceConfig
	Store     StoreConfig
	Capture   CaptureConfig
	Admin     AdminConfig
}

type EngineConfig struct {
	WindowCapacity int
	PollInterval   time.Duration
	TextCapacity   int
	NameCapacity   int
}

type SurfaceConfig struct {
	Kind           string
	Width          int
	Height         int
	SnapshotDir    string
	Temperature    int
	BatteryVoltage float64
	PanelState     int
	Touchpad       [3]int
}

type StoreConfig struct {
	// Root is the image directory. Empty disables image opcodes.
	Root     string
	CacheTTL time.Duration
}

type CaptureConfig struct {
	// Path receives a CBOR capture of every frame. Empty disables capture.
	Path string
}

type AdminConfig struct {
	// Listen is the admin HTTP address. Empty disables the admin server.
	Listen      string
	CorsOrigins []string
	// Token, when set, is required as a bearer token on the detail routes.
	Token string
}

func Default() Config {
	limits := schema.DefaultLimits()
	tc := transport.DefaultConfig()
	tc.Port = "/dev/ttyUSB0"
	return Config{
		Engine: EngineConfig{
			WindowCapacity: frame.DefaultCapacity,
			PollInterval:   time.Millisecond,
			TextCapacity:   limits.TextCapacity,
			NameCapacity:   limits.NameCapacity,
		},
		Transport: tc,
		Surface: SurfaceConfig{
			Kind:           SurfaceRaster,
			Width:          800,
			Height:         600,
			SnapshotDir:    "snapshots",
			Temperature:    22,
			BatteryVoltage: 4.2,
		},
		Store: StoreConfig{
			Root:     "images",
			CacheTTL: 5 * time.Minute,
		},
		Admin: AdminConfig{
			CorsOrigins: []string{"http://localhost:3000"},
		},
	}
}

// fileConfig is the on-disk shape. Durations are strings like "1ms".
type fileConfig struct {
	Engine struct {
		WindowCapacity int    `toml:"window_capacity"`
		PollInterval   string `toml:"poll_interval"`
		TextCapacity   int    `toml:"text_capacity"`
		NameCapacity   int    `toml:"name_capacity"`
	} `toml:"engine"`
	Transport struct {
		Kind   string `toml:"kind"`
		Port   string `toml:"port"`
		Baud   int    `toml:"baud"`
		Listen string `toml:"listen"`
	} `toml:"transport"`
	Surface struct {
		Kind           string  `toml:"kind"`
		Width          int     `toml:"width"`
		Height         int     `toml:"height"`
		SnapshotDir    string  `toml:"snapshot_dir"`
		Temperature    int     `toml:"temperature"`
		BatteryVoltage float64 `toml:"battery_voltage"`
		PanelState     int     `toml:"panel_state"`
		Touchpad       []int   `toml:"touchpad"`
	} `toml:"surface"`
	Store struct {
		Root     string `toml:"root"`
		CacheTTL string `toml:"cache_ttl"`
	} `toml:"store"`
	Capture struct {
		Path string `toml:"path"`
	} `toml:"capture"`
	Admin struct {
		Listen      string   `toml:"listen"`
		CorsOrigins []string `toml:"cors_origins"`
		Token       string   `toml:"token,omitempty"`
	} `toml:"admin"`
}

// Load reads path over Default. Only keys present in the file override defaults.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, err := apply(Default(), raw, meta)
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode is Load for in-memory TOML.
func Decode(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed: %w", err)
	}
	cfg, err := apply(Default(), raw, meta)
	if err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func apply(cfg Config, raw fileConfig, meta toml.MetaData) (Config, error) {
	if meta.IsDefined("engine", "window_capacity") {
		cfg.Engine.WindowCapacity = raw.Engine.WindowCapacity
	}
	if meta.IsDefined("engine", "poll_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Engine.PollInterval))
		if err != nil {
			return Config{}, fmt.Errorf("parse engine.poll_interval: %w", err)
		}
		cfg.Engine.PollInterval = d
	}
	if meta.IsDefined("engine", "text_capacity") {
		cfg.Engine.TextCapacity = raw.Engine.TextCapacity
	}
	if meta.IsDefined("engine", "name_capacity") {
		cfg.Engine.NameCapacity = raw.Engine.NameCapacity
	}

	if meta.IsDefined("transport", "kind") {
		cfg.Transport.Kind = strings.ToLower(strings.TrimSpace(raw.Transport.Kind))
	}
	if meta.IsDefined("transport", "port") {
		cfg.Transport.Port = strings.TrimSpace(raw.Transport.Port)
	}
	if meta.IsDefined("transport", "baud") {
		cfg.Transport.Baud = raw.Transport.Baud
	}
	if meta.IsDefined("transport", "listen") {
		cfg.Transport.Address = strings.TrimSpace(raw.Transport.Listen)
	}

	if meta.IsDefined("surface", "kind") {
		cfg.Surface.Kind = strings.ToLower(strings.TrimSpace(raw.Surface.Kind))
	}
	if meta.IsDefined("surface", "width") {
		cfg.Surface.Width = raw.Surface.Width
	}
	if meta.IsDefined("surface", "height") {
		cfg.Surface.Height = raw.Surface.Height
	}
	if meta.IsDefined("surface", "snapshot_dir") {
		cfg.Surface.SnapshotDir = strings.TrimSpace(raw.Surface.SnapshotDir)
	}
	if meta.IsDefined("surface", "temperature") {
		cfg.Surface.Temperature = raw.Surface.Temperature
	}
	if meta.IsDefined("surface", "battery_voltage") {
		cfg.Surface.BatteryVoltage = raw.Surface.BatteryVoltage
	}
	if meta.IsDefined("surface", "panel_state") {
		cfg.Surface.PanelState = raw.Surface.PanelState
	}
	if meta.IsDefined("surface", "touchpad") {
		if len(raw.Surface.Touchpad) > len(cfg.Surface.Touchpad) {
			return Config{}, fmt.Errorf("surface.touchpad: at most %d channels, got %d", len(cfg.Surface.Touchpad), len(raw.Surface.Touchpad))
		}
		cfg.Surface.Touchpad = [3]int{}
		copy(cfg.Surface.Touchpad[:], raw.Surface.Touchpad)
	}

	if meta.IsDefined("store", "root") {
		cfg.Store.Root = strings.TrimSpace(raw.Store.Root)
	}
	if meta.IsDefined("store", "cache_ttl") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Store.CacheTTL))
		if err != nil {
			return Config{}, fmt.Errorf("parse store.cache_ttl: %w", err)
		}
		cfg.Store.CacheTTL = d
	}

	if meta.IsDefined("capture", "path") {
		cfg.Capture.Path = strings.TrimSpace(raw.Capture.Path)
	}

	if meta.IsDefined("admin", "listen") {
		cfg.Admin.Listen = strings.TrimSpace(raw.Admin.Listen)
	}
	if meta.IsDefined("admin", "cors_origins") {
		cfg.Admin.CorsOrigins = normalizeList(raw.Admin.CorsOrigins)
	}
	if meta.IsDefined("admin", "token") {
		cfg.Admin.Token = strings.TrimSpace(raw.Admin.Token)
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if cfg.Engine.WindowCapacity <= 0 {
		return fmt.Errorf("%w: engine.window_capacity must be positive", ErrInvalid)
	}
	if cfg.Engine.PollInterval <= 0 {
		return fmt.Errorf("%w: engine.poll_interval must be positive", ErrInvalid)
	}
	if cfg.Engine.TextCapacity <= 0 || cfg.Engine.NameCapacity <= 0 {
		return fmt.Errorf("%w: engine text and name capacities must be positive", ErrInvalid)
	}
	if err := cfg.Transport.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	switch cfg.Surface.Kind {
	case SurfaceRaster:
		if cfg.Surface.Width <= 0 || cfg.Surface.Height <= 0 {
			return fmt.Errorf("%w: surface width and height must be positive", ErrInvalid)
		}
	case SurfaceRecorder:
	default:
		return fmt.Errorf("%w: unknown surface.kind %q", ErrInvalid, cfg.Surface.Kind)
	}
	if cfg.Store.Root != "" && cfg.Store.CacheTTL <= 0 {
		return fmt.Errorf("%w: store.cache_ttl must be positive", ErrInvalid)
	}
	return nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
