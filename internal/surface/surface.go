// Package surface declares the capabilities the relay drives: the display surface and
// the image blob store. Implementations live in sub-packages.
package surface

import "image"

// Mode is the panel pixel depth.
type Mode int

const (
	Mode1Bit Mode = 0
	Mode3Bit Mode = 1
)

func (m Mode) String() string {
	switch m {
	case Mode1Bit:
		return "1bit"
	case Mode3Bit:
		return "3bit"
	default:
		return "unknown"
	}
}

// Levels is the number of color indices the mode accepts.
func (m Mode) Levels() int {
	if m == Mode3Bit {
		return 8
	}
	return 2
}

// Drawer is the geometry half of the display surface. Coordinates are forwarded
// unvalidated; implementations clip on their own.
type Drawer interface {
	DrawPixel(x, y, c int)
	DrawLine(x0, y0, x1, y1, c int)
	DrawFastVLine(x, y, l, c int)
	DrawFastHLine(x, y, l, c int)
	DrawRect(x, y, w, h, c int)
	DrawCircle(x, y, r, c int)
	DrawTriangle(x0, y0, x1, y1, x2, y2, c int)
	DrawRoundRect(x, y, w, h, r, c int)
	FillRect(x, y, w, h, c int)
	FillCircle(x, y, r, c int)
	FillTriangle(x0, y0, x1, y1, x2, y2, c int)
	FillRoundRect(x, y, w, h, r, c int)
	DrawThickLine(x0, y0, x1, y1, c, thickness int)
	DrawEllipse(rx, ry, xc, yc, c int)
	FillEllipse(rx, ry, xc, yc, c int)
}

// Texter renders text at a cursor.
type Texter interface {
	SetCursor(x, y int)
	SetTextSize(size int)
	SetTextWrap(wrap bool)
	Print(text []byte)
}

// Controller owns panel state: orientation, depth, frame buffer and power.
type Controller interface {
	SetRotation(r int)
	SelectMode(m Mode)
	Mode() Mode
	Clear()
	Refresh()
	RefreshPartial()
	PowerOn()
	PowerOff()
}

// Sensors are the read-only queries the host can issue.
type Sensors interface {
	Temperature() int
	Touchpad(channel int) int
	BatteryVoltage() float64
	PanelState() int
}

// Surface is everything the dispatcher needs from a display.
// Implementations serialize their own mutations.
type Surface interface {
	Drawer
	Texter
	Controller
	Sensors
}

// BlobStore resolves named images and draws them onto a surface.
type BlobStore interface {
	// Init prepares the backing medium; false means the store is unavailable.
	Init() bool
	// DrawImage draws name at (x, y) and returns the store's result code.
	DrawImage(name string, x, y int) int
}

// Readings are static sensor values for surfaces without real hardware behind them.
type Readings struct {
	Temperature    int
	Touchpads      [3]int
	BatteryVoltage float64
	PanelState     int
}

// Blitter places a decoded image with its top-left corner at x, y.
type Blitter interface {
	Blit(img image.Image, x, y int)
}
