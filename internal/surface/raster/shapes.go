package raster

import (
	"image/color"

	"tinygo.org/x/tinydraw"
)

// Quarter masks for circleHelper.
const (
	cornerTopLeft = 1 << iota
	cornerTopRight
	cornerBottomRight
	cornerBottomLeft
)

func (c *Canvas) DrawRoundRect(x, y, w, h, r, col int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r = clampRadius(r, w, h)
	ink := c.shade(col)
	c.hline(x+r, y, w-2*r, ink)
	c.hline(x+r, y+h-1, w-2*r, ink)
	c.vline(x, y+r, h-2*r, ink)
	c.vline(x+w-1, y+r, h-2*r, ink)
	corners := []struct{ x, y, mask int }{
		{x + r, y + r, cornerTopLeft},
		{x + w - r - 1, y + r, cornerTopRight},
		{x + w - r - 1, y + h - r - 1, cornerBottomRight},
		{x + r, y + h - r - 1, cornerBottomLeft},
	}
	for _, k := range corners {
		if c.inReach(r) {
			c.circleHelper(k.x, k.y, r, k.mask, ink)
		} else {
			c.scanEllipse(k.x, k.y, r, r, false, quadrant(k.mask), ink)
		}
	}
}

func (c *Canvas) FillRoundRect(x, y, w, h, r, col int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r = clampRadius(r, w, h)
	ink := c.shade(col)
	_, ph := c.Size()
	for yy := max(y+r, 0); yy < min(y+h-r, int(ph)); yy++ {
		c.hline(x, yy, w, ink)
	}
	if c.inReach(r) {
		c.fillCircleHelper(x+r, y+r, r, y+h-r-1, w-2*r-1, ink)
		return
	}
	c.fillCaps(x, y, w, h, r, ink)
}

// stampRadius is the largest disc DrawThickLine stamps along the line. Thicker lines
// are covered pixel by pixel.
const stampRadius = 8

// DrawThickLine stamps a disc of the given thickness along the line.
func (c *Canvas) DrawThickLine(x0, y0, x1, y1, col, thickness int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ink := c.shade(col)
	if thickness <= 1 {
		c.line(x0, y0, x1, y1, ink)
		return
	}
	r := thickness / 2
	if r > stampRadius {
		c.thickLine(x0, y0, x1, y1, r, ink)
		return
	}
	w, h := c.Size()
	x0, y0, x1, y1, ok := clipSegment(x0, y0, x1, y1, -r, -r, int(w)-1+r, int(h)-1+r)
	if !ok {
		return
	}
	bresenham(x0, y0, x1, y1, func(x, y int) {
		tinydraw.FilledCircle(c, i16(x), i16(y), i16(r), ink)
	})
}

func (c *Canvas) DrawEllipse(rx, ry, xc, yc, col int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ink := c.shade(col)
	if !c.inReach(rx, ry, xc, yc) {
		c.scanEllipse(xc, yc, rx, ry, false, nil, ink)
		return
	}
	ellipse(rx, ry, func(dx, dy int) {
		c.set(xc+dx, yc+dy, ink.R)
		c.set(xc-dx, yc+dy, ink.R)
		c.set(xc+dx, yc-dy, ink.R)
		c.set(xc-dx, yc-dy, ink.R)
	})
}

func (c *Canvas) FillEllipse(rx, ry, xc, yc, col int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ink := c.shade(col)
	if !c.inReach(rx, ry, xc, yc) {
		c.scanEllipse(xc, yc, rx, ry, true, nil, ink)
		return
	}
	ellipse(rx, ry, func(dx, dy int) {
		c.hline(xc-dx, yc+dy, 2*dx+1, ink)
		c.hline(xc-dx, yc-dy, 2*dx+1, ink)
	})
}

// hline and vline clip to the logical panel before walking.
func (c *Canvas) hline(x, y, l int, ink color.RGBA) {
	w, h := c.Size()
	if y < 0 || y >= int(h) {
		return
	}
	for i := max(x, 0); i < min(x+l, int(w)); i++ {
		c.set(i, y, ink.R)
	}
}

func (c *Canvas) vline(x, y, l int, ink color.RGBA) {
	w, h := c.Size()
	if x < 0 || x >= int(w) {
		return
	}
	for i := max(y, 0); i < min(y+l, int(h)); i++ {
		c.set(x, i, ink.R)
	}
}

func clampRadius(r, w, h int) int {
	m := w
	if h < m {
		m = h
	}
	if r > m/2 {
		r = m / 2
	}
	if r < 0 {
		r = 0
	}
	return r
}

// circleHelper draws the quarter outlines selected by corners.
func (c *Canvas) circleHelper(x0, y0, r, corners int, ink color.RGBA) {
	f := 1 - r
	ddx, ddy := 1, -2*r
	x, y := 0, r
	for x < y {
		if f >= 0 {
			y--
			ddy += 2
			f += ddy
		}
		x++
		ddx += 2
		f += ddx
		if corners&cornerBottomRight != 0 {
			c.set(x0+x, y0+y, ink.R)
			c.set(x0+y, y0+x, ink.R)
		}
		if corners&cornerTopRight != 0 {
			c.set(x0+x, y0-y, ink.R)
			c.set(x0+y, y0-x, ink.R)
		}
		if corners&cornerBottomLeft != 0 {
			c.set(x0-y, y0+x, ink.R)
			c.set(x0-x, y0+y, ink.R)
		}
		if corners&cornerTopLeft != 0 {
			c.set(x0-y, y0-x, ink.R)
			c.set(x0-x, y0-y, ink.R)
		}
	}
}

// fillCircleHelper fills the top and bottom caps of a rounded rectangle. top is the
// upper arc center row, bottom the lower one, and span the distance between the left
// and right arc centers.
func (c *Canvas) fillCircleHelper(x0, top, r, bottom, span int, ink color.RGBA) {
	f := 1 - r
	ddx, ddy := 1, -2*r
	x, y := 0, r
	for {
		for _, row := range []struct{ dy, half int }{{y, x}, {x, y}} {
			c.hline(x0-row.half, top-row.dy, span+2*row.half+1, ink)
			c.hline(x0-row.half, bottom+row.dy, span+2*row.half+1, ink)
		}
		if x >= y {
			return
		}
		if f >= 0 {
			y--
			ddy += 2
			f += ddy
		}
		x++
		ddx += 2
		f += ddx
	}
}

// fillCaps fills the rounded top and bottom rows of a round rect row by row.
func (c *Canvas) fillCaps(x, y, w, h, r int, ink color.RGBA) {
	_, ph := c.Size()
	top, bottom := y+r, y+h-r-1
	for yy := max(y, 0); yy < min(y+h, int(ph)); yy++ {
		var d int
		switch {
		case yy < top:
			d = yy - top
		case yy > bottom:
			d = yy - bottom
		default:
			continue
		}
		if half := span(r, r, d); half >= 0 {
			c.hline(x+r-half, yy, w-2*r+2*half, ink)
		}
	}
}

// ellipse walks one quadrant of the midpoint ellipse and reports each boundary point
// as an offset from the center.
func ellipse(rx, ry int, plot func(dx, dy int)) {
	if rx < 0 || ry < 0 {
		return
	}
	if rx == 0 || ry == 0 {
		for dx := 0; dx <= rx; dx++ {
			plot(dx, 0)
		}
		for dy := 0; dy <= ry; dy++ {
			plot(0, dy)
		}
		return
	}
	rx2, ry2 := int64(rx)*int64(rx), int64(ry)*int64(ry)
	x, y := int64(0), int64(ry)
	px, py := int64(0), 2*rx2*y

	p := ry2 - rx2*int64(ry) + rx2/4
	for px < py {
		plot(int(x), int(y))
		x++
		px += 2 * ry2
		if p < 0 {
			p += ry2 + px
		} else {
			y--
			py -= 2 * rx2
			p += ry2 + px - py
		}
	}
	p = ry2*(2*x+1)*(2*x+1)/4 + rx2*(y-1)*(y-1) - rx2*ry2
	for y >= 0 {
		plot(int(x), int(y))
		y--
		py -= 2 * rx2
		if p > 0 {
			p += rx2 - py
		} else {
			x++
			px += 2 * ry2
			p += rx2 - py + px
		}
	}
}

func bresenham(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
