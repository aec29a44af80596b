package app

import (
	"errors"
	"fmt"
	"image/color"
	"runtime/debug"
	"strings"

	"dayplan/hal"
	"dayplan/planner/ui"
)

var ErrPanic = errors.New("app: panic")

// guard turns a panic inside step into ErrPanic after logging the stack and
// painting it on the display.
func guard(h hal.HAL, step func() error) func() error {
	return func() (err error) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			stack := string(debug.Stack())
			reportPanic(h, v, stack)
			err = fmt.Errorf("%w: %v", ErrPanic, v)
		}()
		return step()
	}
}

func reportPanic(h hal.HAL, v any, stack string) {
	lines := []string{"Planner panic:", fmt.Sprintf("%v", v)}
	if stack != "" {
		lines = append(lines, "stack:")
		for _, l := range strings.Split(stack, "\n") {
			if l = strings.TrimSpace(l); l != "" {
				lines = append(lines, l)
			}
		}
	}

	if l := h.Logger(); l != nil {
		for _, line := range lines {
			l.WriteLineString(line)
		}
	}

	disp := h.Display()
	if disp == nil {
		return
	}
	fb := disp.Framebuffer()
	if fb == nil {
		return
	}
	c, err := ui.NewFramebufferCanvas(fb)
	if err != nil {
		return
	}
	fg := color.RGBA{A: 0xFF}
	c.Clear(color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF})
	w, hgt := c.Size()
	y := 0
	for _, line := range lines {
		for len(line) > 0 && y+c.LineHeight() <= hgt {
			n := len(line)
			for n > 1 && c.TextWidth(line[:n]) > w {
				n--
			}
			c.Text(0, y, line[:n], fg)
			y += c.LineHeight()
			line = strings.TrimLeft(line[n:], " ")
		}
	}
	_ = c.Present()
}
