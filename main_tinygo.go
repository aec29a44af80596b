//go:build tinygo

package main

import (
	"dayplan/app"
	"dayplan/hal"
)

func main() {
	app.Run(hal.New())
}
