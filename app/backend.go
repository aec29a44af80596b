package app

import (
	"context"
	"errors"
	"fmt"

	"dayplan/internal/config"
	"dayplan/planner/kv"
	"dayplan/planner/kv/flashkv"
	"dayplan/planner/kv/sealed"
)

var ErrNoPassphrase = errors.New("app: sealing passphrase not set")

// openKV builds the configured backend, wrapped in sealed when a passphrase
// variable is configured.
func (a *App) openKV(ctx context.Context, getenv func(string) string) (kv.Store, error) {
	sc := a.cfg.Storage
	var base kv.Store
	switch sc.Backend {
	case config.BackendMemory:
		base = kv.NewMemory()
	case config.BackendRedis:
		s, closer, err := openRedis(ctx, sc.RedisAddr, sc.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("app: redis backend: %w", err)
		}
		a.closers = append(a.closers, closer)
		base = s
	default:
		fs, err := flashkv.Open(a.h.Flash(), flashkv.Options{})
		if errors.Is(err, flashkv.ErrGeometry) {
			return nil, fmt.Errorf("app: flash backend: %w", err)
		}
		if err != nil {
			a.log.WithError(err).Warn("flash store unavailable, changes will not persist")
			base = kv.NewMemory()
			break
		}
		st := fs.Stats()
		entry := a.log.WithField("keys", st.Keys).WithField("generation", st.Generation)
		if st.TornTail {
			entry.Warn("flash log had a torn tail record; recovered")
		} else {
			entry.Debug("flash store mounted")
		}
		base = fs
	}

	if sc.PassphraseEnv == "" {
		return base, nil
	}
	var pass string
	if getenv != nil {
		pass = getenv(sc.PassphraseEnv)
	}
	if pass == "" {
		return nil, fmt.Errorf("%w: $%s is empty", ErrNoPassphrase, sc.PassphraseEnv)
	}
	s, err := sealed.Open(ctx, base, []byte(pass), sealed.Options{})
	if err != nil {
		return nil, fmt.Errorf("app: sealed store: %w", err)
	}
	return s, nil
}
