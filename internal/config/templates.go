package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	KindRelayd = "relayd"
	KindInkctl = "inkctl"
)

// Template renders the defaults for kind as a TOML starter file.
func Template(kind string) (string, error) {
	var v any
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindRelayd:
		v = relaydFile(Default())
	case KindInkctl:
		v = inkctlFile(DefaultHost())
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
	out, err := toml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("render %s template: %w", kind, err)
	}
	return string(out), nil
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

func relaydFile(cfg Config) fileConfig {
	var f fileConfig
	f.Engine.WindowCapacity = cfg.Engine.WindowCapacity
	f.Engine.PollInterval = cfg.Engine.PollInterval.String()
	f.Engine.TextCapacity = cfg.Engine.TextCapacity
	f.Engine.NameCapacity = cfg.Engine.NameCapacity
	f.Transport.Kind = cfg.Transport.Kind
	f.Transport.Port = cfg.Transport.Port
	f.Transport.Baud = cfg.Transport.Baud
	f.Transport.Listen = "127.0.0.1:7070"
	f.Surface.Kind = cfg.Surface.Kind
	f.Surface.Width = cfg.Surface.Width
	f.Surface.Height = cfg.Surface.Height
	f.Surface.SnapshotDir = cfg.Surface.SnapshotDir
	f.Surface.Temperature = cfg.Surface.Temperature
	f.Surface.BatteryVoltage = cfg.Surface.BatteryVoltage
	f.Surface.PanelState = cfg.Surface.PanelState
	f.Surface.Touchpad = cfg.Surface.Touchpad[:]
	f.Store.Root = cfg.Store.Root
	f.Store.CacheTTL = cfg.Store.CacheTTL.String()
	f.Capture.Path = cfg.Capture.Path
	f.Admin.Listen = "127.0.0.1:9090"
	f.Admin.CorsOrigins = cfg.Admin.CorsOrigins
	return f
}

func inkctlFile(cfg HostConfig) hostFile {
	var f hostFile
	f.Link.Kind = cfg.Link.Kind
	f.Link.Port = cfg.Link.Port
	f.Link.Baud = cfg.Link.Baud
	f.Link.Address = cfg.Link.Address
	f.QueryTimeout = cfg.QueryTimeout.String()
	f.Retries = cfg.Retries
	return f
}
