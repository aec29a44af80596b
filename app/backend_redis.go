//go:build !tinygo

package app

import (
	"context"
	"io"

	"dayplan/planner/kv"
	"dayplan/planner/kv/rediskv"
)

func openRedis(ctx context.Context, addr, prefix string) (kv.Store, io.Closer, error) {
	s, err := rediskv.Dial(ctx, addr, prefix)
	if err != nil {
		return nil, nil, err
	}
	return s, s, nil
}
