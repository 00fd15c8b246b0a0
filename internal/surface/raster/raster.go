// Package raster renders the display surface into an in-memory grayscale framebuffer.
// Primitives go through tinydraw, which drives the Canvas as a tinygo Displayer.
// Refresh snapshots the framebuffer to PNG.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/danmuck/inkrelay/internal/surface"
	"github.com/rs/zerolog/log"
	"tinygo.org/x/drivers"
	"tinygo.org/x/tinydraw"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 600

	// MaxSide keeps clipped coordinates inside tinydraw's int16 range.
	MaxSide = 16383

	// LatestSnapshot is rewritten on every refresh.
	LatestSnapshot = "latest.png"
)

var ErrInvalidSize = errors.New("raster: width and height must be in 1..16383")

type Config struct {
	Width  int
	Height int
	// SnapshotDir receives a PNG on every refresh. Empty disables snapshots.
	SnapshotDir string
	Readings    surface.Readings
}

// Canvas is a framebuffer-backed surface.Surface.
type Canvas struct {
	mu sync.Mutex

	img      *image.Gray
	cfg      Config
	rotation int
	mode     surface.Mode
	powered  bool

	cursorX, cursorY int
	textSize         int
	wrap             bool

	refreshes int
	partials  int
}

var (
	_ surface.Surface  = (*Canvas)(nil)
	_ surface.Blitter  = (*Canvas)(nil)
	_ drivers.Displayer = (*Canvas)(nil)
)

func New(cfg Config) (*Canvas, error) {
	if cfg.Width == 0 && cfg.Height == 0 {
		cfg.Width, cfg.Height = DefaultWidth, DefaultHeight
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxSide || cfg.Height > MaxSide {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, cfg.Width, cfg.Height)
	}
	if cfg.SnapshotDir != "" {
		if err := os.MkdirAll(cfg.SnapshotDir, 0o755); err != nil {
			return nil, fmt.Errorf("raster: snapshot dir: %w", err)
		}
	}
	c := &Canvas{
		img:      image.NewGray(image.Rect(0, 0, cfg.Width, cfg.Height)),
		cfg:      cfg,
		textSize: 1,
		wrap:     true,
	}
	c.fill(color.Gray{Y: 0xFF})
	return c, nil
}

// Size reports the logical size under the current rotation.
func (c *Canvas) Size() (int16, int16) {
	w, h := int16(c.cfg.Width), int16(c.cfg.Height)
	if c.rotation&1 == 1 {
		return h, w
	}
	return w, h
}

// SetPixel maps logical coordinates through the rotation and clips to the panel.
// Only the red channel is used, as a gray level.
func (c *Canvas) SetPixel(x, y int16, col color.RGBA) {
	c.set(int(x), int(y), col.R)
}

// Display writes a snapshot if a snapshot directory is configured.
func (c *Canvas) Display() error {
	if c.cfg.SnapshotDir == "" {
		return nil
	}
	return writePNG(filepath.Join(c.cfg.SnapshotDir, LatestSnapshot), c.img)
}

func (c *Canvas) set(x, y int, gray uint8) {
	w, h := c.cfg.Width, c.cfg.Height
	switch c.rotation {
	case 1:
		x, y = w-1-y, x
	case 2:
		x, y = w-1-x, h-1-y
	case 3:
		x, y = y, h-1-x
	}
	if x < 0 || y < 0 || x >= w || y >= h {
		return
	}
	c.img.Pix[y*c.img.Stride+x] = gray
}

func (c *Canvas) fill(g color.Gray) {
	for i := range c.img.Pix {
		c.img.Pix[i] = g.Y
	}
}

// shade converts a panel color index to a gray level. In 1-bit mode odd indices are
// black; in 3-bit mode 0 is black and 7 is white.
func (c *Canvas) shade(index int) color.RGBA {
	var g uint8
	if c.mode == surface.Mode3Bit {
		g = uint8((index & 7) * 255 / 7)
	} else if index&1 == 0 {
		g = 0xFF
	}
	return color.RGBA{R: g, G: g, B: g, A: 0xFF}
}

func (c *Canvas) ink() color.RGBA {
	if c.mode == surface.Mode3Bit {
		return c.shade(0)
	}
	return c.shade(1)
}

func i16(v int) int16 {
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	}
	return int16(v)
}

func (c *Canvas) DrawPixel(x, y, col int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetPixel(i16(x), i16(y), c.shade(col))
}

func (c *Canvas) DrawLine(x0, y0, x1, y1, col int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.line(x0, y0, x1, y1, c.shade(col))
}

func (c *Canvas) DrawFastVLine(x, y, l, col int) {
	if l <= 0 {
		return
	}
	c.DrawLine(x, y, x, y+l-1, col)
}

func (c *Canvas) DrawFastHLine(x, y, l, col int) {
	if l <= 0 {
		return
	}
	c.DrawLine(x, y, x+l-1, y, col)
}

func (c *Canvas) DrawRect(x, y, w, h, col int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w <= 0 || h <= 0 {
		return
	}
	ink := c.shade(col)
	c.line(x, y, x+w-1, y, ink)
	c.line(x, y, x, y+h-1, ink)
	c.line(x+w-1, y, x+w-1, y+h-1, ink)
	c.line(x, y+h-1, x+w-1, y+h-1, ink)
}

func (c *Canvas) FillRect(x, y, w, h, col int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w <= 0 || h <= 0 {
		return
	}
	pw, ph := c.Size()
	x0, y0 := max(x, 0), max(y, 0)
	x1, y1 := min(x+w, int(pw)), min(y+h, int(ph))
	if x1 <= x0 || y1 <= y0 {
		return
	}
	tinydraw.FilledRectangle(c, i16(x0), i16(y0), i16(x1-x0), i16(y1-y0), c.shade(col))
}

func (c *Canvas) DrawCircle(x, y, r, col int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inReach(x, y, r) {
		c.scanEllipse(x, y, r, r, false, nil, c.shade(col))
		return
	}
	tinydraw.Circle(c, i16(x), i16(y), i16(r), c.shade(col))
}

func (c *Canvas) FillCircle(x, y, r, col int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inReach(x, y, r) {
		c.scanEllipse(x, y, r, r, true, nil, c.shade(col))
		return
	}
	tinydraw.FilledCircle(c, i16(x), i16(y), i16(r), c.shade(col))
}

func (c *Canvas) DrawTriangle(x0, y0, x1, y1, x2, y2, col int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ink := c.shade(col)
	c.line(x0, y0, x1, y1, ink)
	c.line(x0, y0, x2, y2, ink)
	c.line(x1, y1, x2, y2, ink)
}

func (c *Canvas) FillTriangle(x0, y0, x1, y1, x2, y2, col int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fillTriangle(x0, y0, x1, y1, x2, y2, c.shade(col))
}

func (c *Canvas) SetRotation(r int) {
	c.mu.Lock()
	c.rotation = r & 3
	c.mu.Unlock()
}

func (c *Canvas) Rotation() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rotation
}

// SelectMode switches pixel depth and blanks the framebuffer.
func (c *Canvas) SelectMode(m surface.Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = m
	c.fill(color.Gray{Y: 0xFF})
}

func (c *Canvas) Mode() surface.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fill(color.Gray{Y: 0xFF})
}

func (c *Canvas) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshes++
	if err := c.Display(); err != nil {
		log.Error().Err(err).Msg("raster.Refresh snapshot failed")
	}
}

func (c *Canvas) RefreshPartial() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.partials++
	if err := c.Display(); err != nil {
		log.Error().Err(err).Msg("raster.RefreshPartial snapshot failed")
	}
}

func (c *Canvas) PowerOn() {
	c.mu.Lock()
	c.powered = true
	c.mu.Unlock()
}

func (c *Canvas) PowerOff() {
	c.mu.Lock()
	c.powered = false
	c.mu.Unlock()
}

func (c *Canvas) Powered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.powered
}

func (c *Canvas) Temperature() int        { return c.cfg.Readings.Temperature }
func (c *Canvas) BatteryVoltage() float64 { return c.cfg.Readings.BatteryVoltage }
func (c *Canvas) PanelState() int         { return c.cfg.Readings.PanelState }

func (c *Canvas) Touchpad(channel int) int {
	if channel < 0 || channel >= len(c.cfg.Readings.Touchpads) {
		return 0
	}
	return c.cfg.Readings.Touchpads[channel]
}

// Refreshes returns the full and partial refresh counts.
func (c *Canvas) Refreshes() (full, partial int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshes, c.partials
}

// Snapshot returns a copy of the framebuffer in panel orientation.
func (c *Canvas) Snapshot() *image.Gray {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := image.NewGray(c.img.Rect)
	copy(out.Pix, c.img.Pix)
	return out
}

// WriteSnapshot encodes the current framebuffer as PNG to path.
func (c *Canvas) WriteSnapshot(path string) error {
	return writePNG(path, c.Snapshot())
}

func writePNG(path string, img image.Image) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("raster: create snapshot: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("raster: encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("raster: close snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}
