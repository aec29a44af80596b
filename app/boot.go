//go:build !(tinygo && bootdebug)

package app

import "dayplan/hal"

func bootScreen(hal.HAL, string) {}
