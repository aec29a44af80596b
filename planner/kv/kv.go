// Package kv is the persistence capability the planner stores records through.
package kv

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("kv: key not found")
	// ErrInjected is returned by Memory when a failure was requested.
	ErrInjected = errors.New("kv: injected failure")
)

// Store is a flat key/value namespace over byte blobs.
type Store interface {
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	// Delete returns ErrNotFound when the key is absent.
	Delete(ctx context.Context, key string) error
	// List returns every key with the prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
