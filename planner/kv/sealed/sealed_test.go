package sealed

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"dayplan/planner/kv"
	"dayplan/planner/kv/kvtest"
)

var fastOpts = Options{Iterations: 2}

func TestConformance(t *testing.T) {
	s, err := Open(context.Background(), kv.NewMemory(), []byte("hunter2"), fastOpts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	kvtest.RunConformance(t, s)
}

func TestValuesAreEncrypted(t *testing.T) {
	ctx := context.Background()
	inner := kv.NewMemory()
	s, err := Open(ctx, inner, []byte("pw"), fastOpts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	plain := []byte(`{"v":1,"title":"Dentist"}`)
	if err := s.Put(ctx, "event:1", plain); err != nil {
		t.Fatalf("Put: %v", err)
	}
	raw, _ := inner.Get(ctx, "event:1")
	if bytes.Contains(raw, []byte("Dentist")) {
		t.Fatalf("plaintext visible in inner store")
	}
	got, err := s.Get(ctx, "event:1")
	if err != nil || !bytes.Equal(got, plain) {
		t.Fatalf("Get=%q, %v", got, err)
	}
}

func TestTamperRejected(t *testing.T) {
	ctx := context.Background()
	inner := kv.NewMemory()
	s, _ := Open(ctx, inner, []byte("pw"), fastOpts)
	_ = s.Put(ctx, "task:1", []byte("x"))
	_ = s.Put(ctx, "task:2", []byte("y"))

	raw, _ := inner.Get(ctx, "task:1")
	raw[len(raw)-1] ^= 0x01
	_ = inner.Put(ctx, "task:1", raw)
	if _, err := s.Get(ctx, "task:1"); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("tampered Get err=%v, want ErrDecrypt", err)
	}

	// A valid ciphertext moved to another key must not open.
	other, _ := inner.Get(ctx, "task:2")
	_ = inner.Put(ctx, "task:3", other)
	if _, err := s.Get(ctx, "task:3"); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("swapped Get err=%v, want ErrDecrypt", err)
	}
}

func TestWrongPassphrase(t *testing.T) {
	ctx := context.Background()
	inner := kv.NewMemory()
	if _, err := Open(ctx, inner, []byte("right"), fastOpts); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := Open(ctx, inner, []byte("wrong"), fastOpts); !errors.Is(err, ErrPassphrase) {
		t.Fatalf("err=%v, want ErrPassphrase", err)
	}
	if _, err := Open(ctx, inner, []byte("right"), fastOpts); err != nil {
		t.Fatalf("reopen: %v", err)
	}
}

func TestMetaKeysHidden(t *testing.T) {
	ctx := context.Background()
	s, _ := Open(ctx, kv.NewMemory(), []byte("pw"), fastOpts)
	keys, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("List exposed meta keys: %v", keys)
	}
	if err := s.Put(ctx, MetaPrefix+"salt", nil); err == nil {
		t.Fatalf("Put on reserved key succeeded")
	}
}
