// Package sealed encrypts values of any kv.Store with XChaCha20-Poly1305.
//
// Keys stay in the clear so that prefix listing keeps working. Each value is
// bound to its key name, so moving a ciphertext to another key fails to open.
package sealed

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"

	"dayplan/planner/kv"
)

const (
	// MetaPrefix holds the store's own bookkeeping keys.
	MetaPrefix = "_sealed/"
	saltKey    = MetaPrefix + "salt"
	checkKey   = MetaPrefix + "check"

	saltSize          = 16
	keySize           = chacha20poly1305.KeySize
	formatV1     byte = 1
	DefaultIters      = 4096
)

var checkPlain = []byte("dayplan sealed v1")

var (
	ErrDecrypt    = errors.New("sealed: value failed authentication")
	ErrPassphrase = errors.New("sealed: wrong passphrase")
)

type Options struct {
	// Iterations for PBKDF2-SHA256. Zero uses DefaultIters.
	Iterations int
}

type Store struct {
	inner kv.Store
	aead  cipher.AEAD
}

var _ kv.Store = (*Store)(nil)

// Open derives the key from passphrase and the salt stored in inner,
// creating the salt on first use.
func Open(ctx context.Context, inner kv.Store, passphrase []byte, opts Options) (*Store, error) {
	if len(passphrase) == 0 {
		return nil, errors.New("sealed: empty passphrase")
	}
	iters := opts.Iterations
	if iters <= 0 {
		iters = DefaultIters
	}

	salt, err := inner.Get(ctx, saltKey)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		salt = make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("sealed: salt: %w", err)
		}
		if err := inner.Put(ctx, saltKey, salt); err != nil {
			return nil, fmt.Errorf("sealed: store salt: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("sealed: read salt: %w", err)
	case len(salt) != saltSize:
		return nil, fmt.Errorf("sealed: salt has %d bytes", len(salt))
	}

	key := pbkdf2.Key(passphrase, salt, iters, keySize, sha256.New)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("sealed: cipher: %w", err)
	}
	s := &Store{inner: inner, aead: aead}
	if err := s.verify(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// verify checks the passphrase against the stored check value, writing it on first use.
func (s *Store) verify(ctx context.Context) error {
	b, err := s.inner.Get(ctx, checkKey)
	if errors.Is(err, kv.ErrNotFound) {
		sealedCheck, err := s.seal(checkKey, checkPlain)
		if err != nil {
			return err
		}
		if err := s.inner.Put(ctx, checkKey, sealedCheck); err != nil {
			return fmt.Errorf("sealed: store check: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("sealed: read check: %w", err)
	}
	plain, err := s.open(checkKey, b)
	if err != nil || subtle.ConstantTimeCompare(plain, checkPlain) != 1 {
		return ErrPassphrase
	}
	return nil
}

func (s *Store) seal(key string, plain []byte) ([]byte, error) {
	ns := s.aead.NonceSize()
	out := make([]byte, 1+ns, 1+ns+len(plain)+s.aead.Overhead())
	out[0] = formatV1
	if _, err := rand.Read(out[1:]); err != nil {
		return nil, fmt.Errorf("sealed: nonce: %w", err)
	}
	return s.aead.Seal(out, out[1:1+ns], plain, []byte(key)), nil
}

func (s *Store) open(key string, b []byte) ([]byte, error) {
	ns := s.aead.NonceSize()
	if len(b) < 1+ns+s.aead.Overhead() || b[0] != formatV1 {
		return nil, fmt.Errorf("%w: key %q", ErrDecrypt, key)
	}
	plain, err := s.aead.Open(nil, b[1:1+ns], b[1+ns:], []byte(key))
	if err != nil {
		return nil, fmt.Errorf("%w: key %q", ErrDecrypt, key)
	}
	return plain, nil
}

func reserved(key string) bool { return strings.HasPrefix(key, MetaPrefix) }

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if reserved(key) {
		return nil, kv.ErrNotFound
	}
	b, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.open(key, b)
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if reserved(key) {
		return fmt.Errorf("sealed: key %q is reserved", key)
	}
	b, err := s.seal(key, value)
	if err != nil {
		return err
	}
	return s.inner.Put(ctx, key, b)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if reserved(key) {
		return kv.ErrNotFound
	}
	return s.inner.Delete(ctx, key)
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.inner.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := keys[:0]
	for _, k := range keys {
		if !reserved(k) {
			out = append(out, k)
		}
	}
	return out, nil
}
