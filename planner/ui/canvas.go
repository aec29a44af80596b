// Package ui draws planner states onto a Canvas.
package ui

import (
	"errors"
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"

	"dayplan/hal"
)

// ErrUnsupportedFormat is returned for framebuffers that are not RGB565.
var ErrUnsupportedFormat = errors.New("ui: unsupported pixel format")

// Canvas is the drawing capability the renderer needs. Coordinates are
// pixels from the top-left corner; Text takes the top of the line box.
type Canvas interface {
	Size() (w, h int)
	Clear(c color.RGBA)
	FillRect(x, y, w, h int, c color.RGBA)
	HLine(x0, x1, y int, c color.RGBA)
	Rect(x, y, w, h int, c color.RGBA)
	Text(x, y int, s string, c color.RGBA)
	TextWidth(s string) int
	LineHeight() int
	Present() error
}

// FramebufferCanvas renders into an RGB565 hal.Framebuffer.
type FramebufferCanvas struct {
	fb      hal.Framebuffer
	font    *tinyfont.Font
	lineH   int
	descent int
}

func NewFramebufferCanvas(fb hal.Framebuffer) (*FramebufferCanvas, error) {
	if fb == nil || fb.Format() != hal.PixelFormatRGB565 {
		return nil, ErrUnsupportedFormat
	}
	f := &proggy.TinySZ8pt7b
	lineH := int(f.YAdvance)
	if lineH <= 0 {
		lineH = 10
	}
	return &FramebufferCanvas{fb: fb, font: f, lineH: lineH, descent: 2}, nil
}

func (c *FramebufferCanvas) Size() (int, int) { return c.fb.Width(), c.fb.Height() }
func (c *FramebufferCanvas) LineHeight() int  { return c.lineH }
func (c *FramebufferCanvas) Present() error   { return c.fb.Present() }

func (c *FramebufferCanvas) Clear(col color.RGBA) { c.fb.ClearRGB(col.R, col.G, col.B) }

func (c *FramebufferCanvas) FillRect(x, y, w, h int, col color.RGBA) {
	fillRectRGB565(c.fb.Buffer(), c.fb.StrideBytes(), c.fb.Width(), x, y, w, h, rgb565From888(col))
}

func (c *FramebufferCanvas) HLine(x0, x1, y int, col color.RGBA) {
	if y >= c.fb.Height() {
		return
	}
	drawHLineRGB565(c.fb.Buffer(), c.fb.StrideBytes(), c.fb.Width(), x0, x1, y, rgb565From888(col))
}

func (c *FramebufferCanvas) Rect(x, y, w, h int, col color.RGBA) {
	if w <= 0 || h <= 0 {
		return
	}
	c.HLine(x, x+w-1, y, col)
	c.HLine(x, x+w-1, y+h-1, col)
	c.FillRect(x, y, 1, h, col)
	c.FillRect(x+w-1, y, 1, h, col)
}

func (c *FramebufferCanvas) Text(x, y int, s string, col color.RGBA) {
	d := &fbDisplayer{fb: c.fb}
	tinyfont.WriteLine(d, c.font, int16(x), int16(y+c.lineH-c.descent), s, col)
}

func (c *FramebufferCanvas) TextWidth(s string) int {
	_, w := tinyfont.LineWidth(c.font, s)
	return int(w)
}

// fbDisplayer adapts a framebuffer to drivers.Displayer for tinyfont.
type fbDisplayer struct {
	fb hal.Framebuffer
}

var _ drivers.Displayer = (*fbDisplayer)(nil)

func (d *fbDisplayer) Size() (x, y int16) {
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d *fbDisplayer) SetPixel(x, y int16, c color.RGBA) {
	buf := d.fb.Buffer()
	ix, iy := int(x), int(y)
	if buf == nil || ix < 0 || ix >= d.fb.Width() || iy < 0 || iy >= d.fb.Height() {
		return
	}
	off := iy*d.fb.StrideBytes() + ix*2
	if off+1 >= len(buf) {
		return
	}
	pixel := rgb565From888(c)
	buf[off] = byte(pixel)
	buf[off+1] = byte(pixel >> 8)
}

func (d *fbDisplayer) Display() error { return nil }

func fillRectRGB565(buf []byte, stride, width, x0, y0, w, h int, pixel uint16) {
	if x0 < 0 {
		w += x0
		x0 = 0
	}
	if y0 < 0 {
		h += y0
		y0 = 0
	}
	if x0+w > width {
		w = width - x0
	}
	if w <= 0 || h <= 0 {
		return
	}
	lo, hi := byte(pixel), byte(pixel>>8)
	for y := 0; y < h; y++ {
		row := (y0+y)*stride + x0*2
		if row+w*2 > len(buf) {
			return
		}
		for x := 0; x < w; x++ {
			buf[row+x*2] = lo
			buf[row+x*2+1] = hi
		}
	}
}

func drawHLineRGB565(buf []byte, stride, width, x0, x1, y int, pixel uint16) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	fillRectRGB565(buf, stride, width, x0, y, x1-x0+1, 1, pixel)
}

func rgb565From888(c color.RGBA) uint16 {
	return hal.RGB565(c.R, c.G, c.B)
}
