// Package kvtest holds the shared contract test for kv.Store backends.
package kvtest

import (
	"context"
	"errors"
	"slices"
	"testing"

	"dayplan/planner/kv"
)

// RunConformance checks the kv.Store contract against a fresh, empty store.
func RunConformance(t *testing.T, s kv.Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Get(missing) err=%v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "missing"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Delete(missing) err=%v, want ErrNotFound", err)
	}

	puts := map[string]string{
		"event:2":  "b",
		"event:10": "c",
		"event:1":  "a",
		"task:1":   "t",
		"counter":  "11",
	}
	for k, v := range puts {
		if err := s.Put(ctx, k, []byte(v)); err != nil {
			t.Fatalf("Put(%q): %v", k, err)
		}
	}
	for k, v := range puts {
		got, err := s.Get(ctx, k)
		if err != nil || string(got) != v {
			t.Fatalf("Get(%q)=%q, %v; want %q", k, got, err, v)
		}
	}

	keys, err := s.List(ctx, "event:")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"event:1", "event:10", "event:2"}
	if !slices.Equal(keys, want) {
		t.Fatalf("List(event:)=%v, want %v", keys, want)
	}

	if err := s.Put(ctx, "event:1", []byte("a2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got, _ := s.Get(ctx, "event:1"); string(got) != "a2" {
		t.Fatalf("after overwrite Get=%q", got)
	}

	if err := s.Delete(ctx, "event:2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "event:2"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Get after delete err=%v", err)
	}
	keys, _ = s.List(ctx, "event:")
	if !slices.Equal(keys, []string{"event:1", "event:10"}) {
		t.Fatalf("List after delete=%v", keys)
	}

	if err := s.Put(ctx, "empty", nil); err != nil {
		t.Fatalf("Put(empty): %v", err)
	}
	if got, err := s.Get(ctx, "empty"); err != nil || len(got) != 0 {
		t.Fatalf("Get(empty)=%q, %v", got, err)
	}
}
