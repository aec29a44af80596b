//go:build !tinygo && !cgo

package hal

import "errors"

// RunWindow is unavailable without cgo; use the headless runner instead.
func RunWindow(_ HostOptions, _ func(HAL) (func() error, error)) error {
	return errors.New("window mode requires cgo (build/run with CGO_ENABLED=1), or pass -headless")
}
