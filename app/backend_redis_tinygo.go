//go:build tinygo

package app

import (
	"context"
	"errors"
	"io"

	"dayplan/planner/kv"
)

func openRedis(context.Context, string, string) (kv.Store, io.Closer, error) {
	return nil, nil, errors.New("not available on this board")
}
