package config

import (
	"github.com/danmuck/inkrelay/internal/blobstore"
	"github.com/danmuck/inkrelay/internal/protocol/schema"
	"github.com/danmuck/inkrelay/internal/relay"
	"github.com/danmuck/inkrelay/internal/surface"
	"github.com/danmuck/inkrelay/internal/surface/raster"
)

func (c Config) SessionConfig(name string) relay.Config {
	return relay.Config{
		Name:           name,
		WindowCapacity: c.Engine.WindowCapacity,
		PollInterval:   c.Engine.PollInterval,
		Limits: schema.Limits{
			TextCapacity: c.Engine.TextCapacity,
			NameCapacity: c.Engine.NameCapacity,
		},
	}
}

func (c Config) Readings() surface.Readings {
	return surface.Readings{
		Temperature:    c.Surface.Temperature,
		Touchpads:      c.Surface.Touchpad,
		BatteryVoltage: c.Surface.BatteryVoltage,
		PanelState:     c.Surface.PanelState,
	}
}

func (c Config) RasterConfig() raster.Config {
	return raster.Config{
		Width:       c.Surface.Width,
		Height:      c.Surface.Height,
		SnapshotDir: c.Surface.SnapshotDir,
		Readings:    c.Readings(),
	}
}

func (c Config) BlobstoreConfig() blobstore.Config {
	return blobstore.Config{
		Root:     c.Store.Root,
		CacheTTL: c.Store.CacheTTL,
	}
}
