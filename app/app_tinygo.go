//go:build tinygo

package app

import (
	"errors"
	"time"

	"dayplan/hal"
)

// Run starts the planner with the default configuration and never returns.
func Run(h hal.HAL) {
	step, err := NewStep(h, Options{})
	if err != nil {
		h.Logger().WriteLineString("planner: " + err.Error())
		select {}
	}
	for {
		if err := step(); err != nil {
			if errors.Is(err, ErrQuit) {
				if fb := h.Display().Framebuffer(); fb != nil {
					fb.ClearRGB(0, 0, 0)
					_ = fb.Present()
				}
				h.Logger().WriteLineString("planner: stopped")
			}
			select {}
		}
		time.Sleep(16 * time.Millisecond)
	}
}
