package raster

import (
	"image/color"
	"math"

	"tinygo.org/x/tinydraw"
)

// maxReach caps reach so that center plus radius still fits tinydraw's int16 math.
const maxReach = 10000

// reach bounds the coordinates handed to tinydraw and the midpoint walks. Larger
// values take the scanline paths in this file, whose cost depends on the panel size
// and not on the argument.
func (c *Canvas) reach() int {
	w, h := c.Size()
	return min(int(w)+int(h), maxReach)
}

func (c *Canvas) inReach(v ...int) bool {
	lim := c.reach()
	for _, n := range v {
		if n < -lim || n > lim {
			return false
		}
	}
	return true
}

// line draws a one pixel line. Segments outside reach are clipped to the panel
// first.
func (c *Canvas) line(x0, y0, x1, y1 int, ink color.RGBA) {
	if !c.inReach(x0, y0, x1, y1) {
		w, h := c.Size()
		var ok bool
		x0, y0, x1, y1, ok = clipSegment(x0, y0, x1, y1, 0, 0, int(w)-1, int(h)-1)
		if !ok {
			return
		}
	}
	tinydraw.Line(c, i16(x0), i16(y0), i16(x1), i16(y1), ink)
}

// clipSegment clips a segment to the inclusive box with Liang-Barsky.
func clipSegment(x0, y0, x1, y1, minX, minY, maxX, maxY int) (int, int, int, int, bool) {
	fx0, fy0 := float64(x0), float64(y0)
	dx, dy := float64(x1)-fx0, float64(y1)-fy0
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, fx0 - float64(minX)},
		{dx, float64(maxX) - fx0},
		{-dy, fy0 - float64(minY)},
		{dy, float64(maxY) - fy0},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return 0, 0, 0, 0, false
			}
			t0 = max(t0, t)
		} else {
			if t < t0 {
				return 0, 0, 0, 0, false
			}
			t1 = min(t1, t)
		}
	}
	round := func(v float64) int { return int(math.Round(v)) }
	return round(fx0 + t0*dx), round(fy0 + t0*dy), round(fx0 + t1*dx), round(fy0 + t1*dy), true
}

// span returns the half width of an ellipse with radius a along the row and b across
// it, at offset d across. It is negative when d is outside the ellipse.
func span(a, b, d int) int {
	if d < -b || d > b {
		return -1
	}
	if b == 0 {
		return a
	}
	f := float64(d) / float64(b)
	return int(math.Round(float64(a) * math.Sqrt(1-f*f)))
}

// scanEllipse fills or outlines an ellipse one visible row at a time. keep selects the
// quadrants of an outline by the sign of the offsets.
func (c *Canvas) scanEllipse(xc, yc, rx, ry int, fill bool, keep func(dx, dy int) bool, ink color.RGBA) {
	if rx < 0 || ry < 0 {
		return
	}
	w, h := c.Size()
	plot := func(dx, dy int) {
		if keep == nil || keep(dx, dy) {
			c.set(xc+dx, yc+dy, ink.R)
		}
	}
	for y := max(yc-ry, 0); y <= min(yc+ry, int(h)-1); y++ {
		half := span(rx, ry, y-yc)
		if half < 0 {
			continue
		}
		if fill {
			c.hline(xc-half, y, 2*half+1, ink)
			continue
		}
		plot(-half, y-yc)
		plot(half, y-yc)
	}
	if fill {
		return
	}
	for x := max(xc-rx, 0); x <= min(xc+rx, int(w)-1); x++ {
		half := span(ry, rx, x-xc)
		if half < 0 {
			continue
		}
		plot(x-xc, -half)
		plot(x-xc, half)
	}
}

// quadrant keeps the outline points of the corners selected by mask.
func quadrant(mask int) func(dx, dy int) bool {
	return func(dx, dy int) bool {
		switch {
		case dx >= 0 && dy >= 0 && mask&cornerBottomRight != 0:
			return true
		case dx >= 0 && dy <= 0 && mask&cornerTopRight != 0:
			return true
		case dx <= 0 && dy >= 0 && mask&cornerBottomLeft != 0:
			return true
		case dx <= 0 && dy <= 0 && mask&cornerTopLeft != 0:
			return true
		}
		return false
	}
}

// fillTriangle scans the visible rows of a triangle with the same edge stepping as
// tinydraw, in int arithmetic.
func (c *Canvas) fillTriangle(x0, y0, x1, y1, x2, y2 int, ink color.RGBA) {
	if y0 > y1 {
		x0, y0, x1, y1 = x1, y1, x0, y0
	}
	if y1 > y2 {
		x1, y1, x2, y2 = x2, y2, x1, y1
	}
	if y0 > y1 {
		x0, y0, x1, y1 = x1, y1, x0, y0
	}
	_, h := c.Size()
	row := func(y, a, b int) {
		if a > b {
			a, b = b, a
		}
		c.hline(a, y, b-a+1, ink)
	}
	if y0 == y2 {
		if y0 >= 0 && y0 < int(h) {
			row(y0, min(x0, x1, x2), max(x0, x1, x2))
		}
		return
	}
	last := y1 - 1
	if y1 == y2 {
		last = y1
	}
	for y := max(y0, 0); y <= min(last, int(h)-1); y++ {
		row(y, x0+step(x1-x0, y-y0, y1-y0), x0+step(x2-x0, y-y0, y2-y0))
	}
	for y := max(last+1, 0); y <= min(y2, int(h)-1); y++ {
		row(y, x1+step(x2-x1, y-y1, y2-y1), x0+step(x2-x0, y-y0, y2-y0))
	}
}

// step is d*n/m truncated toward zero. Products past int64 go through float64.
func step(d, n, m int) int {
	if p := d * n; d == 0 || (p/d == n && abs(p) < 1<<62) {
		return p / m
	}
	return int(float64(d) * float64(n) / float64(m))
}

// thickLine covers every visible pixel within r of the segment.
func (c *Canvas) thickLine(x0, y0, x1, y1, r int, ink color.RGBA) {
	w, h := c.Size()
	limit := float64(r)*float64(r) + float64(r)
	dx, dy := float64(x1-x0), float64(y1-y0)
	length := dx*dx + dy*dy
	for y := max(min(y0, y1)-r, 0); y <= min(max(y0, y1)+r, int(h)-1); y++ {
		for x := max(min(x0, x1)-r, 0); x <= min(max(x0, x1)+r, int(w)-1); x++ {
			px, py := float64(x-x0), float64(y-y0)
			t := 0.0
			if length > 0 {
				t = min(max((px*dx+py*dy)/length, 0), 1)
			}
			ex, ey := px-t*dx, py-t*dy
			if ex*ex+ey*ey <= limit {
				c.set(x, y, ink.R)
			}
		}
	}
}
