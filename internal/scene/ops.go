package scene

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/inkrelay/internal/client"
)

type runFunc func(ctx context.Context, c *client.Client, s Step) (string, error)

type op struct {
	arity int
	// text marks steps that carry a string: printed text or an image name.
	text  bool
	usage string
	run   runFunc
}

func send(fn func(c *client.Client, a []int) error) runFunc {
	return func(_ context.Context, c *client.Client, s Step) (string, error) {
		return "", fn(c, s.Args)
	}
}

func queryInt(fn func(ctx context.Context, c *client.Client, a []int) (int, error)) runFunc {
	return func(ctx context.Context, c *client.Client, s Step) (string, error) {
		v, err := fn(ctx, c, s.Args)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(v), nil
	}
}

var ops = map[string]op{
	"ping": {usage: "ping", run: func(ctx context.Context, c *client.Client, _ Step) (string, error) {
		if err := c.Ping(ctx); err != nil {
			return "", err
		}
		return "OK", nil
	}},
	"pixel": {arity: 3, usage: "pixel x y c", run: send(func(c *client.Client, a []int) error { return c.Pixel(a[0], a[1], a[2]) })},
	"line": {arity: 5, usage: "line x0 y0 x1 y1 c", run: send(func(c *client.Client, a []int) error {
		return c.Line(a[0], a[1], a[2], a[3], a[4])
	})},
	"vline": {arity: 4, usage: "vline x y len c", run: send(func(c *client.Client, a []int) error {
		return c.FastVLine(a[0], a[1], a[2], a[3])
	})},
	"hline": {arity: 4, usage: "hline x y len c", run: send(func(c *client.Client, a []int) error {
		return c.FastHLine(a[0], a[1], a[2], a[3])
	})},
	"rect": {arity: 5, usage: "rect x y w h c", run: send(func(c *client.Client, a []int) error {
		return c.Rect(a[0], a[1], a[2], a[3], a[4])
	})},
	"circle": {arity: 4, usage: "circle x y r c", run: send(func(c *client.Client, a []int) error {
		return c.Circle(a[0], a[1], a[2], a[3])
	})},
	"triangle": {arity: 7, usage: "triangle x0 y0 x1 y1 x2 y2 c", run: send(func(c *client.Client, a []int) error {
		return c.Triangle(a[0], a[1], a[2], a[3], a[4], a[5], a[6])
	})},
	"roundrect": {arity: 6, usage: "roundrect x y w h r c", run: send(func(c *client.Client, a []int) error {
		return c.RoundRect(a[0], a[1], a[2], a[3], a[4], a[5])
	})},
	"fillrect": {arity: 5, usage: "fillrect x y w h c", run: send(func(c *client.Client, a []int) error {
		return c.FillRect(a[0], a[1], a[2], a[3], a[4])
	})},
	"fillcircle": {arity: 4, usage: "fillcircle x y r c", run: send(func(c *client.Client, a []int) error {
		return c.FillCircle(a[0], a[1], a[2], a[3])
	})},
	"filltriangle": {arity: 7, usage: "filltriangle x0 y0 x1 y1 x2 y2 c", run: send(func(c *client.Client, a []int) error {
		return c.FillTriangle(a[0], a[1], a[2], a[3], a[4], a[5], a[6])
	})},
	"fillroundrect": {arity: 6, usage: "fillroundrect x y w h r c", run: send(func(c *client.Client, a []int) error {
		return c.FillRoundRect(a[0], a[1], a[2], a[3], a[4], a[5])
	})},
	"thickline": {arity: 6, usage: "thickline x0 y0 x1 y1 c thickness", run: send(func(c *client.Client, a []int) error {
		return c.ThickLine(a[0], a[1], a[2], a[3], a[4], a[5])
	})},
	"ellipse": {arity: 5, usage: "ellipse rx ry xc yc c", run: send(func(c *client.Client, a []int) error {
		return c.Ellipse(a[0], a[1], a[2], a[3], a[4])
	})},
	"fillellipse": {arity: 5, usage: "fillellipse rx ry xc yc c", run: send(func(c *client.Client, a []int) error {
		return c.FillEllipse(a[0], a[1], a[2], a[3], a[4])
	})},
	"text": {text: true, usage: "text \"string\"", run: func(_ context.Context, c *client.Client, s Step) (string, error) {
		return "", c.Print(s.Text)
	}},
	"size":   {arity: 1, usage: "size n", run: send(func(c *client.Client, a []int) error { return c.TextSize(a[0]) })},
	"cursor": {arity: 2, usage: "cursor x y", run: send(func(c *client.Client, a []int) error { return c.Cursor(a[0], a[1]) })},
	"wrap":   {arity: 1, usage: "wrap 0|1", run: send(func(c *client.Client, a []int) error { return c.TextWrap(a[0] != 0) })},
	"rotate": {arity: 1, usage: "rotate 0..3", run: send(func(c *client.Client, a []int) error { return c.Rotation(a[0]) })},
	"mode":   {arity: 1, usage: "mode 0|1", run: send(func(c *client.Client, a []int) error { return c.SelectMode(a[0]) })},
	"clear":  {usage: "clear", run: send(func(c *client.Client, _ []int) error { return c.Clear() })},
	"refresh": {usage: "refresh", run: send(func(c *client.Client, _ []int) error { return c.Refresh() })},
	"partial": {usage: "partial", run: send(func(c *client.Client, _ []int) error { return c.PartialRefresh() })},
	"power":   {arity: 1, usage: "power 0|1", run: send(func(c *client.Client, a []int) error { return c.Power(a[0] != 0) })},
	"getmode": {usage: "getmode", run: queryInt(func(ctx context.Context, c *client.Client, _ []int) (int, error) {
		return c.Mode(ctx)
	})},
	"temp": {usage: "temp", run: queryInt(func(ctx context.Context, c *client.Client, _ []int) (int, error) {
		return c.Temperature(ctx)
	})},
	"state": {usage: "state", run: queryInt(func(ctx context.Context, c *client.Client, _ []int) (int, error) {
		return c.PanelState(ctx)
	})},
	"touch": {arity: 1, usage: "touch 0..2", run: queryInt(func(ctx context.Context, c *client.Client, a []int) (int, error) {
		return c.Touchpad(ctx, a[0])
	})},
	"battery": {usage: "battery", run: func(ctx context.Context, c *client.Client, _ Step) (string, error) {
		v, err := c.Battery(ctx)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(v, 'g', 6, 64), nil
	}},
	"image": {arity: 2, text: true, usage: "image x y \"/file.bmp\"", run: func(ctx context.Context, c *client.Client, s Step) (string, error) {
		r, err := c.DrawImage(ctx, s.Text, s.Args[0], s.Args[1])
		if err != nil {
			return "", err
		}
		return strconv.Itoa(r), nil
	}},
	"sleep": {arity: 1, usage: "sleep ms", run: func(ctx context.Context, _ *client.Client, s Step) (string, error) {
		t := time.NewTimer(time.Duration(s.Args[0]) * time.Millisecond)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
			return "", nil
		}
	}},
}

// Ops lists the step names in order.
func Ops() []string {
	out := make([]string, 0, len(ops))
	for name := range ops {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Usage returns the argument synopsis of one step.
func Usage(name string) string {
	return ops[name].usage
}

// ParseStep builds a step from command-line words: the op name, its integers, and for
// text steps one trailing string.
func ParseStep(words []string) (Step, error) {
	if len(words) == 0 {
		return Step{}, fmt.Errorf("%w: empty step", ErrUnknownOp)
	}
	name := strings.ToLower(words[0])
	o, ok := ops[name]
	if !ok {
		return Step{}, fmt.Errorf("%w: %q", ErrUnknownOp, words[0])
	}
	rest := words[1:]
	s := Step{Op: name}
	if o.text {
		if len(rest) == 0 {
			return Step{}, fmt.Errorf("%w: usage: %s", ErrArity, o.usage)
		}
		s.Text = rest[len(rest)-1]
		rest = rest[:len(rest)-1]
	}
	if len(rest) != o.arity {
		return Step{}, fmt.Errorf("%w: usage: %s", ErrArity, o.usage)
	}
	for _, w := range rest {
		n, err := strconv.ParseInt(w, 10, 32)
		if err != nil {
			return Step{}, fmt.Errorf("%w: %q is not an integer", ErrArity, w)
		}
		s.Args = append(s.Args, int(n))
	}
	return s, nil
}
