package raster

import (
	"image"
	"image/color"
	"unicode/utf8"

	"github.com/danmuck/inkrelay/internal/surface"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var face font.Face = basicfont.Face7x13

func (c *Canvas) SetCursor(x, y int) {
	c.mu.Lock()
	c.cursorX, c.cursorY = x, y
	c.mu.Unlock()
}

// SetTextSize sets the glyph scale, clamped to 1..the longer panel side.
func (c *Canvas) SetTextSize(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, h := c.Size()
	c.textSize = min(max(n, 1), int(max(w, h)))
}

func (c *Canvas) SetTextWrap(wrap bool) {
	c.mu.Lock()
	c.wrap = wrap
	c.mu.Unlock()
}

// Cursor returns the current text cursor.
func (c *Canvas) Cursor() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursorX, c.cursorY
}

// Print renders text at the cursor with the 7x13 bitmap font scaled by the text size.
// '\n' starts a new line and '\r' is skipped. Invalid UTF-8 renders as the font's
// replacement glyph.
func (c *Canvas) Print(text []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	lineHeight := metrics.Height.Ceil() * c.textSize
	width, _ := c.Size()
	ink := c.ink()

	for len(text) > 0 {
		r, n := utf8.DecodeRune(text)
		text = text[n:]
		switch r {
		case '\n':
			c.cursorX = 0
			c.cursorY += lineHeight
			continue
		case '\r':
			continue
		}
		dr, mask, maskp, advance, ok := face.Glyph(fixed.P(0, ascent), r)
		if !ok {
			continue
		}
		step := advance.Ceil() * c.textSize
		if c.wrap && c.cursorX+step > int(width) {
			c.cursorX = 0
			c.cursorY += lineHeight
		}
		c.glyph(dr, mask, maskp, ink)
		c.cursorX += step
	}
}

func (c *Canvas) glyph(dr image.Rectangle, mask image.Image, maskp image.Point, ink color.RGBA) {
	size := c.textSize
	w, h := c.Size()
	for gy := 0; gy < dr.Dy(); gy++ {
		for gx := 0; gx < dr.Dx(); gx++ {
			_, _, _, a := mask.At(maskp.X+gx, maskp.Y+gy).RGBA()
			if a < 0x8000 {
				continue
			}
			px := c.cursorX + (dr.Min.X+gx)*size
			py := c.cursorY + (dr.Min.Y+gy)*size
			for y := max(py, 0); y < min(py+size, int(h)); y++ {
				for x := max(px, 0); x < min(px+size, int(w)); x++ {
					c.set(x, y, ink.R)
				}
			}
		}
	}
}

// Blit draws img with its top-left corner at x, y in logical coordinates. Pixels are
// quantized to the current mode: thresholded in 1-bit mode, eight levels in 3-bit mode.
func (c *Canvas) Blit(img image.Image, x, y int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := img.Bounds()
	for iy := b.Min.Y; iy < b.Max.Y; iy++ {
		for ix := b.Min.X; ix < b.Max.X; ix++ {
			g := color.GrayModel.Convert(img.At(ix, iy)).(color.Gray).Y
			c.set(x+ix-b.Min.X, y+iy-b.Min.Y, c.quantize(g))
		}
	}
}

func (c *Canvas) quantize(g uint8) uint8 {
	if c.mode == surface.Mode3Bit {
		level := (int(g)*7 + 127) / 255
		return uint8(level * 255 / 7)
	}
	if g < 0x80 {
		return 0
	}
	return 0xFF
}
