package relay

import (
	"github.com/danmuck/inkrelay/internal/protocol"
	"github.com/danmuck/inkrelay/internal/protocol/schema"
	"github.com/danmuck/inkrelay/internal/surface"
	"github.com/rs/zerolog/log"
)

// StoreUnavailable is the image opcode result when the blob store fails to initialise.
const StoreUnavailable = -1

const touchpadChannels = 3

type handler func(d *Dispatcher, cmd schema.Command) (protocol.Response, bool)

// Dispatcher maps decoded commands onto the display surface and blob store.
type Dispatcher struct {
	surface surface.Surface
	store   surface.BlobStore
}

// NewDispatcher binds a dispatcher to its capabilities. store may be nil, in which case
// image opcodes always answer StoreUnavailable.
func NewDispatcher(s surface.Surface, store surface.BlobStore) *Dispatcher {
	return &Dispatcher{surface: s, store: store}
}

// Dispatch runs cmd and returns the response to send, if any.
// Opcodes without a handler are a no-op.
func (d *Dispatcher) Dispatch(cmd schema.Command) (protocol.Response, bool) {
	h, ok := handlers[cmd.Opcode]
	if !ok {
		return protocol.Response{}, false
	}
	return h(d, cmd)
}

// Handles reports whether op has a handler.
func Handles(op protocol.Opcode) bool {
	_, ok := handlers[op]
	return ok
}

var handlers = map[protocol.Opcode]handler{
	// Ping is CRLF-terminated like every other reply.
	protocol.OpPing: func(d *Dispatcher, cmd schema.Command) (protocol.Response, bool) {
		return protocol.Response{Opcode: protocol.OpPing, Value: protocol.RawValue("OK")}, true
	},

	protocol.OpPixel: draw(func(s surface.Surface, a []int) { s.DrawPixel(a[0], a[1], a[2]) }),
	protocol.OpLine:  draw(func(s surface.Surface, a []int) { s.DrawLine(a[0], a[1], a[2], a[3], a[4]) }),
	protocol.OpFastVLine: draw(func(s surface.Surface, a []int) {
		s.DrawFastVLine(a[0], a[1], a[2], a[3])
	}),
	protocol.OpFastHLine: draw(func(s surface.Surface, a []int) {
		s.DrawFastHLine(a[0], a[1], a[2], a[3])
	}),
	protocol.OpRect:   draw(func(s surface.Surface, a []int) { s.DrawRect(a[0], a[1], a[2], a[3], a[4]) }),
	protocol.OpCircle: draw(func(s surface.Surface, a []int) { s.DrawCircle(a[0], a[1], a[2], a[3]) }),
	protocol.OpTriangle: draw(func(s surface.Surface, a []int) {
		s.DrawTriangle(a[0], a[1], a[2], a[3], a[4], a[5], a[6])
	}),
	protocol.OpRoundRect: draw(func(s surface.Surface, a []int) {
		s.DrawRoundRect(a[0], a[1], a[2], a[3], a[4], a[5])
	}),
	protocol.OpFillRect:   draw(func(s surface.Surface, a []int) { s.FillRect(a[0], a[1], a[2], a[3], a[4]) }),
	protocol.OpFillCircle: draw(func(s surface.Surface, a []int) { s.FillCircle(a[0], a[1], a[2], a[3]) }),
	protocol.OpFillTriangle: draw(func(s surface.Surface, a []int) {
		s.FillTriangle(a[0], a[1], a[2], a[3], a[4], a[5], a[6])
	}),
	protocol.OpFillRoundRect: draw(func(s surface.Surface, a []int) {
		s.FillRoundRect(a[0], a[1], a[2], a[3], a[4], a[5])
	}),
	protocol.OpThickLine: draw(func(s surface.Surface, a []int) {
		s.DrawThickLine(a[0], a[1], a[2], a[3], a[4], a[5])
	}),
	protocol.OpEllipse: draw(func(s surface.Surface, a []int) {
		s.DrawEllipse(a[0], a[1], a[2], a[3], a[4])
	}),
	protocol.OpFillEllipse: draw(func(s surface.Surface, a []int) {
		s.FillEllipse(a[0], a[1], a[2], a[3], a[4])
	}),

	protocol.OpPrint: func(d *Dispatcher, cmd schema.Command) (protocol.Response, bool) {
		d.surface.Print(cmd.Text)
		return protocol.Response{}, false
	},
	protocol.OpTextSize: draw(func(s surface.Surface, a []int) { s.SetTextSize(a[0]) }),
	protocol.OpCursor:   draw(func(s surface.Surface, a []int) { s.SetCursor(a[0], a[1]) }),
	protocol.OpTextWrap: func(d *Dispatcher, cmd schema.Command) (protocol.Response, bool) {
		switch cmd.Flag {
		case 'T':
			d.surface.SetTextWrap(true)
		case 'F':
			d.surface.SetTextWrap(false)
		}
		return protocol.Response{}, false
	},

	protocol.OpRotation: draw(func(s surface.Surface, a []int) { s.SetRotation(a[0] & 3) }),
	protocol.OpSelectMode: draw(func(s surface.Surface, a []int) {
		switch surface.Mode(a[0]) {
		case surface.Mode1Bit, surface.Mode3Bit:
			s.SelectMode(surface.Mode(a[0]))
		}
	}),
	protocol.OpModeQuery: query(func(s surface.Surface) protocol.Value {
		return protocol.IntValue(int(s.Mode()))
	}),
	protocol.OpClear:   onFlag('1', func(s surface.Surface) { s.Clear() }),
	protocol.OpRefresh: onFlag('1', func(s surface.Surface) { s.Refresh() }),
	protocol.OpPartial: func(d *Dispatcher, cmd schema.Command) (protocol.Response, bool) {
		d.surface.RefreshPartial()
		return protocol.Response{}, false
	},
	protocol.OpPower: draw(func(s surface.Surface, a []int) {
		if a[0]&1 == 1 {
			s.PowerOn()
		} else {
			s.PowerOff()
		}
	}),

	protocol.OpTemperature: query(func(s surface.Surface) protocol.Value {
		return protocol.IntValue(s.Temperature())
	}),
	protocol.OpBattery: query(func(s surface.Surface) protocol.Value {
		return protocol.FloatValue(s.BatteryVoltage())
	}),
	protocol.OpPanelState: query(func(s surface.Surface) protocol.Value {
		return protocol.IntValue(s.PanelState())
	}),
	protocol.OpTouchpad: func(d *Dispatcher, cmd schema.Command) (protocol.Response, bool) {
		ch := cmd.Ints[0]
		if ch < 0 || ch >= touchpadChannels {
			return protocol.Response{}, false
		}
		return protocol.Response{Opcode: protocol.OpTouchpad, Value: protocol.IntValue(d.surface.Touchpad(ch))}, true
	},

	protocol.OpImage:      (*Dispatcher).drawImage,
	protocol.OpImageAlias: (*Dispatcher).drawImage,
}

// drawImage answers with the store result under the image opcode, for both the image
// opcode and its alias.
func (d *Dispatcher) drawImage(cmd schema.Command) (protocol.Response, bool) {
	result := StoreUnavailable
	if d.store != nil && d.store.Init() {
		result = d.store.DrawImage(string(cmd.Text), cmd.Ints[0], cmd.Ints[1])
	} else {
		log.Warn().Str("file", string(cmd.Text)).Msg("relay.drawImage blob store unavailable")
	}
	return protocol.Response{Opcode: protocol.OpImage, Value: protocol.IntValue(result)}, true
}

func draw(fn func(s surface.Surface, args []int)) handler {
	return func(d *Dispatcher, cmd schema.Command) (protocol.Response, bool) {
		fn(d.surface, cmd.Ints)
		return protocol.Response{}, false
	}
}

func onFlag(want byte, fn func(s surface.Surface)) handler {
	return func(d *Dispatcher, cmd schema.Command) (protocol.Response, bool) {
		if cmd.Flag == want {
			fn(d.surface)
		}
		return protocol.Response{}, false
	}
}

func query(fn func(s surface.Surface) protocol.Value) handler {
	return func(d *Dispatcher, cmd schema.Command) (protocol.Response, bool) {
		if cmd.Flag != protocol.QueryFlag {
			return protocol.Response{}, false
		}
		return protocol.Response{Opcode: cmd.Opcode, Value: fn(d.surface)}, true
	}
}
