package raster

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/inkrelay/internal/surface"
	"github.com/danmuck/inkrelay/internal/testutil/testlog"
)

func newCanvas(t *testing.T, cfg Config) *Canvas {
	t.Helper()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("new canvas: %v", err)
	}
	return c
}

func gray(c *Canvas, x, y int) uint8 {
	return c.Snapshot().GrayAt(x, y).Y
}

func countInk(c *Canvas, r image.Rectangle) int {
	img := c.Snapshot()
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.GrayAt(x, y).Y < 0x80 {
				n++
			}
		}
	}
	return n
}

func TestNewDefaultsAndValidation(t *testing.T) {
	testlog.Start(t)
	c := newCanvas(t, Config{})
	if w, h := c.Size(); w != DefaultWidth || h != DefaultHeight {
		t.Fatalf("unexpected default size: %dx%d", w, h)
	}
	if gray(c, 0, 0) != 0xFF {
		t.Fatalf("canvas must start white")
	}
	if _, err := New(Config{Width: -1, Height: 10}); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("expected ErrInvalidSize, got %v", err)
	}
}

func TestDrawPixelOneBit(t *testing.T) {
	testlog.Start(t)
	c := newCanvas(t, Config{Width: 32, Height: 16})
	c.DrawPixel(1, 1, 1)
	c.DrawPixel(2, 2, 0)
	c.DrawPixel(-1, -1, 1)
	c.DrawPixel(1000, 1000, 1)
	if gray(c, 1, 1) != 0 || gray(c, 2, 2) != 0xFF {
		t.Fatalf("unexpected pixels: %d %d", gray(c, 1, 1), gray(c, 2, 2))
	}
}

func TestThreeBitShades(t *testing.T) {
	testlog.Start(t)
	c := newCanvas(t, Config{Width: 8, Height: 8})
	c.SelectMode(surface.Mode3Bit)
	if c.Mode() != surface.Mode3Bit {
		t.Fatalf("mode not switched")
	}
	c.DrawPixel(0, 0, 0)
	c.DrawPixel(1, 0, 7)
	c.DrawPixel(2, 0, 3)
	if gray(c, 0, 0) != 0 || gray(c, 1, 0) != 0xFF || gray(c, 2, 0) != 3*255/7 {
		t.Fatalf("unexpected shades: %d %d %d", gray(c, 0, 0), gray(c, 1, 0), gray(c, 2, 0))
	}
}

func TestRotationMapsLogicalCoordinates(t *testing.T) {
	testlog.Start(t)
	c := newCanvas(t, Config{Width: 20, Height: 10})
	c.SetRotation(5)
	if c.Rotation() != 1 {
		t.Fatalf("rotation must be masked, got %d", c.Rotation())
	}
	if w, h := c.Size(); w != 10 || h != 20 {
		t.Fatalf("rotated size: %dx%d", w, h)
	}
	c.DrawPixel(0, 0, 1)
	if gray(c, 19, 0) != 0 {
		t.Fatalf("rotation 1 should map origin to top right")
	}
	c.Clear()
	c.SetRotation(2)
	c.DrawPixel(0, 0, 1)
	if gray(c, 19, 9) != 0 {
		t.Fatalf("rotation 2 should map origin to bottom right")
	}
	c.Clear()
	c.SetRotation(3)
	c.DrawPixel(0, 0, 1)
	if gray(c, 0, 9) != 0 {
		t.Fatalf("rotation 3 should map origin to bottom left")
	}
}

func TestFilledShapes(t *testing.T) {
	testlog.Start(t)
	c := newCanvas(t, Config{Width: 64, Height: 64})
	c.FillRect(10, 10, 5, 5, 1)
	if gray(c, 12, 12) != 0 || gray(c, 16, 16) != 0xFF {
		t.Fatalf("fill rect: unexpected pixels")
	}
	c.FillCircle(40, 40, 4, 1)
	if gray(c, 40, 40) != 0 || gray(c, 46, 40) != 0xFF {
		t.Fatalf("fill circle: unexpected pixels")
	}
	c.Clear()
	c.FillEllipse(5, 3, 20, 20, 1)
	if gray(c, 20, 20) != 0 || gray(c, 25, 20) != 0 || gray(c, 26, 20) != 0xFF || gray(c, 20, 24) != 0xFF {
		t.Fatalf("fill ellipse: unexpected pixels")
	}
	c.Clear()
	c.FillRoundRect(0, 0, 10, 10, 3, 1)
	if gray(c, 5, 5) != 0 || gray(c, 0, 0) != 0xFF || gray(c, 5, 0) != 0 {
		t.Fatalf("fill round rect: unexpected pixels")
	}
}

func TestOutlines(t *testing.T) {
	testlog.Start(t)
	c := newCanvas(t, Config{Width: 64, Height: 64})
	c.DrawRoundRect(0, 0, 20, 10, 3, 1)
	if gray(c, 10, 0) != 0 || gray(c, 10, 5) != 0xFF || gray(c, 0, 0) != 0xFF {
		t.Fatalf("round rect outline: unexpected pixels")
	}
	c.Clear()
	c.DrawEllipse(6, 4, 30, 30, 1)
	if gray(c, 36, 30) != 0 || gray(c, 30, 34) != 0 || gray(c, 30, 30) != 0xFF {
		t.Fatalf("ellipse outline: unexpected pixels")
	}
	c.Clear()
	c.DrawFastHLine(0, 50, 10, 1)
	c.DrawFastVLine(60, 0, 10, 1)
	if countInk(c, image.Rect(0, 50, 64, 51)) != 10 || countInk(c, image.Rect(60, 0, 61, 64)) != 10 {
		t.Fatalf("fast lines: unexpected lengths")
	}
	c.Clear()
	c.DrawThickLine(10, 10, 40, 10, 1, 5)
	if gray(c, 25, 8) != 0 || gray(c, 25, 12) != 0 || gray(c, 25, 16) != 0xFF {
		t.Fatalf("thick line: unexpected pixels")
	}
}

// returnsWithin fails the test when draw does not finish before the deadline.
func returnsWithin(t *testing.T, name string, draw func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		draw()
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("%s still running after 5s", name)
	}
}

func TestHugeExtentsReturn(t *testing.T) {
	testlog.Start(t)
	const huge = 2000000000
	cases := []struct {
		name string
		draw func(c *Canvas)
	}{
		{"FillRoundRect", func(c *Canvas) { c.FillRoundRect(0, 0, huge, huge, 0, 1) }},
		{"FillRoundRect radius", func(c *Canvas) { c.FillRoundRect(-huge, -huge, huge, huge, huge, 1) }},
		{"DrawRoundRect", func(c *Canvas) { c.DrawRoundRect(0, 0, huge, huge, huge, 1) }},
		{"FillEllipse", func(c *Canvas) { c.FillEllipse(huge, huge, 0, 0, 1) }},
		{"DrawEllipse", func(c *Canvas) { c.DrawEllipse(huge, huge, 0, 0, 1) }},
		{"FillCircle", func(c *Canvas) { c.FillCircle(400, 300, huge, 1) }},
		{"DrawCircle", func(c *Canvas) { c.DrawCircle(-huge, -huge, huge, 1) }},
		{"FillRect", func(c *Canvas) { c.FillRect(-huge, -huge, huge, huge, 1) }},
		{"DrawRect", func(c *Canvas) { c.DrawRect(-huge, -huge, huge+huge/2, huge+huge/2, 1) }},
		{"DrawLine", func(c *Canvas) { c.DrawLine(0, 5, 40000, 5, 1) }},
		{"DrawFastHLine", func(c *Canvas) { c.DrawFastHLine(-huge, 5, huge, 1) }},
		{"FillTriangle", func(c *Canvas) { c.FillTriangle(0, 0, huge, 0, 0, huge, 1) }},
		{"DrawTriangle", func(c *Canvas) { c.DrawTriangle(-huge, 0, huge, 0, 0, huge, 1) }},
		{"DrawThickLine", func(c *Canvas) { c.DrawThickLine(-huge, 300, huge, 300, 1, 5) }},
		{"DrawThickLine wide", func(c *Canvas) { c.DrawThickLine(0, 300, huge, 300, 1, huge) }},
		{"Print", func(c *Canvas) {
			c.SetTextSize(1000000)
			c.Print([]byte("AAAA\nAAAA"))
		}},
	}
	for _, tc := range cases {
		c := newCanvas(t, Config{})
		returnsWithin(t, tc.name, func() { tc.draw(c) })
	}
}

func TestHugeExtentsStillDrawVisiblePart(t *testing.T) {
	testlog.Start(t)
	const huge = 2000000000
	all := image.Rect(0, 0, DefaultWidth, DefaultHeight)

	c := newCanvas(t, Config{})
	c.FillRoundRect(0, 0, huge, huge, 0, 1)
	if n := countInk(c, all); n != DefaultWidth*DefaultHeight {
		t.Fatalf("round rect should cover the panel, inked %d", n)
	}
	c.Clear()
	c.FillEllipse(huge, huge, 0, 0, 1)
	if n := countInk(c, all); n != DefaultWidth*DefaultHeight {
		t.Fatalf("ellipse should cover the panel, inked %d", n)
	}
	c.Clear()
	c.DrawCircle(-huge, 300, huge+10, 1)
	if gray(c, 10, 300) != 0 || gray(c, 11, 300) != 0xFF {
		t.Fatalf("expected the arc at x=10 on row 300")
	}
	c.Clear()
	c.DrawLine(0, 5, 40000, 5, 1)
	if n := countInk(c, image.Rect(0, 5, DefaultWidth, 6)); n != DefaultWidth {
		t.Fatalf("clipped line should span the row, inked %d", n)
	}
	c.Clear()
	c.FillTriangle(0, 0, huge, 0, 0, huge, 1)
	if gray(c, 10, 10) != 0 || gray(c, 799, 599) != 0 {
		t.Fatalf("triangle interior not filled")
	}
	c.Clear()
	c.DrawThickLine(-huge, 300, huge, 300, 1, 5)
	if gray(c, 400, 300) != 0 || gray(c, 400, 302) != 0 || gray(c, 400, 310) != 0xFF {
		t.Fatalf("thick line: unexpected pixels")
	}
	c.SetTextSize(1000000)
	c.SetTextSize(0)
	c.SetCursor(0, 0)
	c.Print([]byte("A"))
	if x, _ := c.Cursor(); x != 7 {
		t.Fatalf("text size should clamp to 1, cursor at %d", x)
	}
}

func TestTextSizeIsCappedToPanel(t *testing.T) {
	testlog.Start(t)
	c := newCanvas(t, Config{Width: 30, Height: 60})
	c.SetTextWrap(false)
	c.SetTextSize(1000000)
	c.SetCursor(0, 0)
	c.Print([]byte("A"))
	if x, _ := c.Cursor(); x != 7*60 {
		t.Fatalf("expected text size 60, cursor at %d", x)
	}
}

func TestPrintAdvancesCursorAndWraps(t *testing.T) {
	testlog.Start(t)
	c := newCanvas(t, Config{Width: 30, Height: 60})
	c.SetCursor(0, 0)
	c.Print([]byte("AB"))
	if x, y := c.Cursor(); x != 14 || y != 0 {
		t.Fatalf("unexpected cursor after AB: %d,%d", x, y)
	}
	if countInk(c, image.Rect(0, 0, 14, 13)) == 0 {
		t.Fatalf("expected glyph pixels")
	}
	c.Print([]byte("CDE"))
	if x, y := c.Cursor(); x != 7 || y != 13 {
		t.Fatalf("expected E to wrap onto second line, got %d,%d", x, y)
	}
	c.SetTextWrap(false)
	c.SetTextSize(2)
	c.Print([]byte("\nX"))
	if x, y := c.Cursor(); x != 14 || y != 39 {
		t.Fatalf("unexpected cursor after newline: %d,%d", x, y)
	}
}

func TestRefreshWritesSnapshot(t *testing.T) {
	testlog.Start(t)
	dir := filepath.Join(t.TempDir(), "snaps")
	c := newCanvas(t, Config{Width: 16, Height: 8, SnapshotDir: dir})
	c.DrawPixel(3, 4, 1)
	c.Refresh()
	c.RefreshPartial()
	if full, partial := c.Refreshes(); full != 1 || partial != 1 {
		t.Fatalf("unexpected refresh counts: %d %d", full, partial)
	}
	f, err := os.Open(filepath.Join(dir, LatestSnapshot))
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 8 {
		t.Fatalf("unexpected snapshot bounds: %v", img.Bounds())
	}
	if g := color.GrayModel.Convert(img.At(3, 4)).(color.Gray).Y; g != 0 {
		t.Fatalf("snapshot pixel not black: %d", g)
	}
}

func TestBlitQuantizes(t *testing.T) {
	testlog.Start(t)
	c := newCanvas(t, Config{Width: 8, Height: 8})
	src := image.NewGray(image.Rect(0, 0, 2, 1))
	src.SetGray(0, 0, color.Gray{Y: 0x10})
	src.SetGray(1, 0, color.Gray{Y: 0xE0})
	c.Blit(src, 4, 4)
	if gray(c, 4, 4) != 0 || gray(c, 5, 4) != 0xFF {
		t.Fatalf("unexpected blit result")
	}
}

func TestPowerAndSensors(t *testing.T) {
	testlog.Start(t)
	c := newCanvas(t, Config{Width: 8, Height: 8, Readings: surface.Readings{
		Temperature:    21,
		Touchpads:      [3]int{1, 0, 1},
		BatteryVoltage: 3.9,
		PanelState:     1,
	}})
	c.PowerOn()
	if !c.Powered() {
		t.Fatalf("expected powered")
	}
	c.PowerOff()
	if c.Powered() {
		t.Fatalf("expected unpowered")
	}
	if c.Temperature() != 21 || c.BatteryVoltage() != 3.9 || c.PanelState() != 1 {
		t.Fatalf("unexpected readings")
	}
	if c.Touchpad(2) != 1 || c.Touchpad(3) != 0 {
		t.Fatalf("unexpected touchpad readings")
	}
}
