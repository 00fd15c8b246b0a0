// Package recorder provides a Surface and BlobStore that record every call instead of
// rendering. It backs the relay tests and relayd's dry-run mode.
package recorder

import (
	"image"
	"strconv"
	"strings"
	"sync"

	"github.com/danmuck/inkrelay/internal/surface"
)

// Call is one recorded capability invocation.
type Call struct {
	Name string
	Args []int
	Text []byte
	// Query marks read-only calls.
	Query bool
}

// Surface records calls. The zero value is not usable; use New.
type Surface struct {
	mu       sync.Mutex
	calls    []Call
	mode     surface.Mode
	readings surface.Readings
}

var (
	_ surface.Surface = (*Surface)(nil)
	_ surface.Blitter = (*Surface)(nil)
)

func New(readings surface.Readings) *Surface {
	return &Surface{readings: readings}
}

// Calls returns a copy of every recorded call in order.
func (s *Surface) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Mutations returns recorded calls that changed surface state.
func (s *Surface) Mutations() []Call {
	all := s.Calls()
	out := make([]Call, 0, len(all))
	for _, c := range all {
		if !c.Query {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls.
func (s *Surface) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Summary renders calls as `name(a,b,c)` lines; handy for logs and test failures.
func (s *Surface) Summary() string {
	var b strings.Builder
	for _, c := range s.Calls() {
		b.WriteString(c.Name)
		b.WriteByte('(')
		for i, a := range c.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(a))
		}
		if c.Text != nil {
			b.WriteString(`"` + string(c.Text) + `"`)
		}
		b.WriteString(")\n")
	}
	return b.String()
}

func (s *Surface) record(name string, args ...int) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Name: name, Args: args})
	s.mu.Unlock()
}

func (s *Surface) query(name string, args ...int) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Name: name, Args: args, Query: true})
	s.mu.Unlock()
}

func (s *Surface) DrawPixel(x, y, c int) { s.record("DrawPixel", x, y, c) }
func (s *Surface) DrawLine(x0, y0, x1, y1, c int) { s.record("DrawLine", x0, y0, x1, y1, c) }
func (s *Surface) DrawFastVLine(x, y, l, c int) { s.record("DrawFastVLine", x, y, l, c) }
func (s *Surface) DrawFastHLine(x, y, l, c int) { s.record("DrawFastHLine", x, y, l, c) }
func (s *Surface) DrawRect(x, y, w, h, c int) { s.record("DrawRect", x, y, w, h, c) }
func (s *Surface) DrawCircle(x, y, r, c int) { s.record("DrawCircle", x, y, r, c) }
func (s *Surface) DrawTriangle(x0, y0, x1, y1, x2, y2, c int) {
	s.record("DrawTriangle", x0, y0, x1, y1, x2, y2, c)
}
func (s *Surface) DrawRoundRect(x, y, w, h, r, c int) { s.record("DrawRoundRect", x, y, w, h, r, c) }
func (s *Surface) FillRect(x, y, w, h, c int) { s.record("FillRect", x, y, w, h, c) }
func (s *Surface) FillCircle(x, y, r, c int) { s.record("FillCircle", x, y, r, c) }
func (s *Surface) FillTriangle(x0, y0, x1, y1, x2, y2, c int) {
	s.record("FillTriangle", x0, y0, x1, y1, x2, y2, c)
}
func (s *Surface) FillRoundRect(x, y, w, h, r, c int) { s.record("FillRoundRect", x, y, w, h, r, c) }
func (s *Surface) DrawThickLine(x0, y0, x1, y1, c, thickness int) {
	s.record("DrawThickLine", x0, y0, x1, y1, c, thickness)
}
func (s *Surface) DrawEllipse(rx, ry, xc, yc, c int) { s.record("DrawEllipse", rx, ry, xc, yc, c) }
func (s *Surface) FillEllipse(rx, ry, xc, yc, c int) { s.record("FillEllipse", rx, ry, xc, yc, c) }

func (s *Surface) SetCursor(x, y int) { s.record("SetCursor", x, y) }
func (s *Surface) SetTextSize(n int) { s.record("SetTextSize", n) }
func (s *Surface) SetTextWrap(w bool) { s.record("SetTextWrap", boolInt(w)) }
func (s *Surface) SetRotation(r int) { s.record("SetRotation", r) }
func (s *Surface) Clear() { s.record("Clear") }
func (s *Surface) Refresh() { s.record("Refresh") }
func (s *Surface) RefreshPartial() { s.record("RefreshPartial") }
func (s *Surface) PowerOn() { s.record("PowerOn") }
func (s *Surface) PowerOff() { s.record("PowerOff") }

func (s *Surface) Print(text []byte) {
	cp := make([]byte, len(text))
	copy(cp, text)
	s.mu.Lock()
	s.calls = append(s.calls, Call{Name: "Print", Text: cp})
	s.mu.Unlock()
}

// Blit records the image bounds as w, h after the target corner.
func (s *Surface) Blit(img image.Image, x, y int) {
	b := img.Bounds()
	s.record("Blit", x, y, b.Dx(), b.Dy())
}

func (s *Surface) SelectMode(m surface.Mode) {
	s.mu.Lock()
	s.mode = m
	s.calls = append(s.calls, Call{Name: "SelectMode", Args: []int{int(m)}})
	s.mu.Unlock()
}

func (s *Surface) Mode() surface.Mode {
	s.query("Mode")
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Surface) Temperature() int {
	s.query("Temperature")
	return s.readings.Temperature
}

func (s *Surface) Touchpad(channel int) int {
	s.query("Touchpad", channel)
	if channel < 0 || channel >= len(s.readings.Touchpads) {
		return 0
	}
	return s.readings.Touchpads[channel]
}

func (s *Surface) BatteryVoltage() float64 {
	s.query("BatteryVoltage")
	return s.readings.BatteryVoltage
}

func (s *Surface) PanelState() int {
	s.query("PanelState")
	return s.readings.PanelState
}

// Store is a BlobStore that records requests and returns canned results.
type Store struct {
	mu     sync.Mutex
	Ready  bool
	Result int
	Inits  int
	Drawn  []Call
}

var _ surface.BlobStore = (*Store)(nil)

func (s *Store) Init() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Inits++
	return s.Ready
}

// SetReady changes the Init result; safe while a session is using the store.
func (s *Store) SetReady(ready bool) {
	s.mu.Lock()
	s.Ready = ready
	s.mu.Unlock()
}

func (s *Store) DrawImage(name string, x, y int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Drawn = append(s.Drawn, Call{Name: "DrawImage", Args: []int{x, y}, Text: []byte(name)})
	return s.Result
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
