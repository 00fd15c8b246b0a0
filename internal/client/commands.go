package client

import (
	"context"
	"fmt"

	"github.com/danmuck/inkrelay/internal/protocol"
)

func ints(op protocol.Opcode, v ...int) protocol.Request {
	return protocol.Request{Opcode: op, Ints: v}
}

func flag(op protocol.Opcode, f byte) protocol.Request {
	return protocol.Request{Opcode: op, Flag: f}
}

func (c *Client) Pixel(x, y, col int) error { return c.Send(ints(protocol.OpPixel, x, y, col)) }
func (c *Client) Line(x0, y0, x1, y1, col int) error {
	return c.Send(ints(protocol.OpLine, x0, y0, x1, y1, col))
}
func (c *Client) FastVLine(x, y, l, col int) error {
	return c.Send(ints(protocol.OpFastVLine, x, y, l, col))
}
func (c *Client) FastHLine(x, y, l, col int) error {
	return c.Send(ints(protocol.OpFastHLine, x, y, l, col))
}
func (c *Client) Rect(x, y, w, h, col int) error { return c.Send(ints(protocol.OpRect, x, y, w, h, col)) }
func (c *Client) Circle(x, y, r, col int) error  { return c.Send(ints(protocol.OpCircle, x, y, r, col)) }
func (c *Client) Triangle(x0, y0, x1, y1, x2, y2, col int) error {
	return c.Send(ints(protocol.OpTriangle, x0, y0, x1, y1, x2, y2, col))
}
func (c *Client) RoundRect(x, y, w, h, r, col int) error {
	return c.Send(ints(protocol.OpRoundRect, x, y, w, h, r, col))
}
func (c *Client) FillRect(x, y, w, h, col int) error {
	return c.Send(ints(protocol.OpFillRect, x, y, w, h, col))
}
func (c *Client) FillCircle(x, y, r, col int) error {
	return c.Send(ints(protocol.OpFillCircle, x, y, r, col))
}
func (c *Client) FillTriangle(x0, y0, x1, y1, x2, y2, col int) error {
	return c.Send(ints(protocol.OpFillTriangle, x0, y0, x1, y1, x2, y2, col))
}
func (c *Client) FillRoundRect(x, y, w, h, r, col int) error {
	return c.Send(ints(protocol.OpFillRoundRect, x, y, w, h, r, col))
}
func (c *Client) ThickLine(x0, y0, x1, y1, col, thickness int) error {
	return c.Send(ints(protocol.OpThickLine, x0, y0, x1, y1, col, thickness))
}
func (c *Client) Ellipse(rx, ry, xc, yc, col int) error {
	return c.Send(ints(protocol.OpEllipse, rx, ry, xc, yc, col))
}
func (c *Client) FillEllipse(rx, ry, xc, yc, col int) error {
	return c.Send(ints(protocol.OpFillEllipse, rx, ry, xc, yc, col))
}

func (c *Client) Print(text string) error {
	return c.Send(protocol.Request{Opcode: protocol.OpPrint, Text: []byte(text), HasText: true})
}
func (c *Client) TextSize(n int) error  { return c.Send(ints(protocol.OpTextSize, n)) }
func (c *Client) Cursor(x, y int) error { return c.Send(ints(protocol.OpCursor, x, y)) }

func (c *Client) TextWrap(on bool) error {
	f := byte('F')
	if on {
		f = 'T'
	}
	return c.Send(flag(protocol.OpTextWrap, f))
}

func (c *Client) Rotation(r int) error   { return c.Send(ints(protocol.OpRotation, r)) }
func (c *Client) SelectMode(m int) error { return c.Send(ints(protocol.OpSelectMode, m)) }
func (c *Client) Clear() error           { return c.Send(flag(protocol.OpClear, '1')) }
func (c *Client) Refresh() error         { return c.Send(flag(protocol.OpRefresh, '1')) }
func (c *Client) PartialRefresh() error  { return c.Send(protocol.Request{Opcode: protocol.OpPartial}) }

func (c *Client) Power(on bool) error {
	v := 0
	if on {
		v = 1
	}
	return c.Send(ints(protocol.OpPower, v))
}

// Ping checks the link; the peripheral answers a bare OK.
func (c *Client) Ping(ctx context.Context) error {
	v, err := c.Query(ctx, protocol.Request{Opcode: protocol.OpPing}, protocol.OpPing)
	if err != nil {
		return err
	}
	if v.Kind != protocol.KindRaw || v.Raw != "OK" {
		return fmt.Errorf("client: unexpected ping reply %q", v.Format())
	}
	return nil
}

func (c *Client) queryInt(ctx context.Context, req protocol.Request, want protocol.Opcode) (int, error) {
	v, err := c.Query(ctx, req, want)
	if err != nil {
		return 0, err
	}
	n, err := v.AsInt()
	if err != nil {
		return 0, fmt.Errorf("client: %s reply: %w", protocol.OpcodeName(want), err)
	}
	return n, nil
}

func (c *Client) Mode(ctx context.Context) (int, error) {
	return c.queryInt(ctx, flag(protocol.OpModeQuery, protocol.QueryFlag), protocol.OpModeQuery)
}

func (c *Client) Temperature(ctx context.Context) (int, error) {
	return c.queryInt(ctx, flag(protocol.OpTemperature, protocol.QueryFlag), protocol.OpTemperature)
}

func (c *Client) PanelState(ctx context.Context) (int, error) {
	return c.queryInt(ctx, flag(protocol.OpPanelState, protocol.QueryFlag), protocol.OpPanelState)
}

// Touchpad reads channel 0..2. Other channels get no reply and time out.
func (c *Client) Touchpad(ctx context.Context, channel int) (int, error) {
	return c.queryInt(ctx, ints(protocol.OpTouchpad, channel), protocol.OpTouchpad)
}

func (c *Client) Battery(ctx context.Context) (float64, error) {
	v, err := c.Query(ctx, flag(protocol.OpBattery, protocol.QueryFlag), protocol.OpBattery)
	if err != nil {
		return 0, err
	}
	f, err := v.AsFloat()
	if err != nil {
		return 0, fmt.Errorf("client: battery reply: %w", err)
	}
	return f, nil
}

// DrawImage asks the peripheral to draw a stored image and returns its result: 1 drawn,
// 0 failed, -1 store unavailable.
func (c *Client) DrawImage(ctx context.Context, name string, x, y int) (int, error) {
	req := protocol.Request{Opcode: protocol.OpImage, Ints: []int{x, y}, Text: []byte(name), HasText: true}
	return c.queryInt(ctx, req, protocol.OpImage)
}
