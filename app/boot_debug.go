//go:build tinygo && bootdebug

package app

import (
	"image/color"
	"machine"
	"sync"
	"time"

	"dayplan/hal"
	"dayplan/planner/ui"
)

var (
	bootDiagMu   sync.Mutex
	bootDiagStep string
	bootDiagOnce sync.Once
)

// bootScreen records the boot stage, streams it to UART and USB CDC, and
// paints it on the display.
func bootScreen(h hal.HAL, msg string) {
	bootDiagMu.Lock()
	bootDiagStep = msg
	bootDiagMu.Unlock()
	bootDiagOnce.Do(func() { go bootDiag(h.Logger()) })

	fb := h.Display().Framebuffer()
	if fb == nil {
		return
	}
	c, err := ui.NewFramebufferCanvas(fb)
	if err != nil {
		return
	}
	fg := color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	c.Clear(color.RGBA{A: 0xFF})
	c.Text(0, 0, "Planner boot", fg)
	c.Text(0, c.LineHeight()+4, msg, fg)
	_ = c.Present()
}

func bootDiag(l hal.Logger) {
	for {
		bootDiagMu.Lock()
		line := "bootdiag: " + bootDiagStep
		bootDiagMu.Unlock()
		if l != nil {
			l.WriteLineString(line)
		}
		if usb := machine.USBCDC; usb != nil {
			_, _ = usb.Write([]byte(line + "\r\n"))
		}
		time.Sleep(250 * time.Millisecond)
	}
}
