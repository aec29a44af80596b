// Package flashkv is a log-structured kv.Store on raw NOR flash.
//
// The region is split into two banks. The active bank holds a header with a
// generation number followed by an append-only record log. When the log is
// full, live records are copied into the other bank and its header is written
// last, so a power cut during compaction leaves the old bank active.
//
// Bank header (16 bytes, little-endian):
//
//	magic u32 | generation u32 | bankBytes u32 | crc32 u32
//
// bankBytes records the geometry the region was formatted with; a store
// opened with a different erase block size would place bank 1 elsewhere, so
// Open refuses it with ErrGeometry.
//
// Record:
//
//	magic u16 | kind u8 | keyLen u8 | valLen u16 | crc32 u32 | key | value
package flashkv

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"slices"
	"strings"

	"dayplan/hal"
	"dayplan/planner/kv"
)

const (
	bankMagic      uint32 = 0x564B4C50 // "PLKV"
	bankHeaderSize        = 16

	recMagic      uint16 = 0xA55A
	recHeaderSize        = 10

	kindPut    byte = 0x01
	kindDelete byte = 0x02

	MaxKeyLen   = 255
	MaxValueLen = 0xFFFF
)

var (
	ErrNoFlash = errors.New("flashkv: flash unavailable")
	ErrFull    = errors.New("flashkv: store full")
	ErrTooBig  = errors.New("flashkv: key or value too large")
	// ErrGeometry means the region was formatted with a different bank size.
	ErrGeometry = errors.New("flashkv: bank geometry mismatch")
)

// Options selects the flash window used by the store.
type Options struct {
	// Offset is the first byte of the region; it must be erase-block aligned.
	Offset uint32
	// Size is the region length. Zero uses everything after Offset.
	Size uint32
}

// Stats describes the on-flash state.
type Stats struct {
	Keys       int
	Generation uint32
	UsedBytes  uint32
	BankBytes  uint32
	// TornTail reports that the last open found and discarded a partial record.
	TornTail    bool
	Compactions int
}

type Store struct {
	f        hal.Flash
	base     uint32
	bankSize uint32

	active uint8
	gen    uint32
	tail   uint32

	live map[string][]byte

	tornTail    bool
	compactions int
	// dirty means the bytes at tail may not be erased.
	dirty bool
}

var _ kv.Store = (*Store)(nil)

// Open mounts the store, formatting the region if no valid bank exists.
func Open(f hal.Flash, opts Options) (*Store, error) {
	if f == nil || f.SizeBytes() == 0 || f.EraseBlockBytes() == 0 {
		return nil, ErrNoFlash
	}
	eb := f.EraseBlockBytes()
	if opts.Offset%eb != 0 || opts.Offset >= f.SizeBytes() {
		return nil, fmt.Errorf("flashkv: offset %d not usable (erase block %d)", opts.Offset, eb)
	}
	size := opts.Size
	if size == 0 || opts.Offset+size > f.SizeBytes() {
		size = f.SizeBytes() - opts.Offset
	}
	bank := (size / 2) - (size/2)%eb
	if bank < eb || bank <= bankHeaderSize+recHeaderSize {
		return nil, fmt.Errorf("flashkv: region of %d bytes too small", size)
	}

	s := &Store{f: f, base: opts.Offset, bankSize: bank, live: make(map[string][]byte)}
	if err := s.mount(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) bankOff(b uint8) uint32 { return s.base + uint32(b)*s.bankSize }

func (s *Store) mount() error {
	var (
		best  = -1
		bestG uint32
	)
	for b := uint8(0); b < 2; b++ {
		g, bankBytes, ok, err := s.readBankHeader(b)
		if err != nil {
			return err
		}
		if ok && bankBytes != s.bankSize {
			return fmt.Errorf("%w: bank %d formatted with %d-byte banks, erase block %d gives %d",
				ErrGeometry, b, bankBytes, s.f.EraseBlockBytes(), s.bankSize)
		}
		if ok && (best < 0 || g > bestG) {
			best, bestG = int(b), g
		}
	}
	if best < 0 {
		return s.format()
	}
	s.active = uint8(best)
	s.gen = bestG
	if err := s.scan(); err != nil {
		return err
	}
	if s.tornTail {
		return s.compact()
	}
	return nil
}

func (s *Store) readBankHeader(b uint8) (gen, bankBytes uint32, ok bool, err error) {
	var h [bankHeaderSize]byte
	if _, err := s.f.ReadAt(h[:], s.bankOff(b)); err != nil {
		return 0, 0, false, fmt.Errorf("flashkv: read bank %d header: %w", b, err)
	}
	if binary.LittleEndian.Uint32(h[0:4]) != bankMagic {
		return 0, 0, false, nil
	}
	if crc32.ChecksumIEEE(h[:12]) != binary.LittleEndian.Uint32(h[12:16]) {
		return 0, 0, false, nil
	}
	return binary.LittleEndian.Uint32(h[4:8]), binary.LittleEndian.Uint32(h[8:12]), true, nil
}

func (s *Store) writeBankHeader(b uint8, gen uint32) error {
	var h [bankHeaderSize]byte
	binary.LittleEndian.PutUint32(h[0:4], bankMagic)
	binary.LittleEndian.PutUint32(h[4:8], gen)
	binary.LittleEndian.PutUint32(h[8:12], s.bankSize)
	binary.LittleEndian.PutUint32(h[12:16], crc32.ChecksumIEEE(h[:12]))
	if _, err := s.f.WriteAt(h[:], s.bankOff(b)); err != nil {
		return fmt.Errorf("flashkv: write bank %d header: %w", b, err)
	}
	return nil
}

func (s *Store) format() error {
	if err := s.f.Erase(s.bankOff(0), s.bankSize); err != nil {
		return fmt.Errorf("flashkv: erase bank 0: %w", err)
	}
	if err := s.writeBankHeader(0, 1); err != nil {
		return err
	}
	s.active, s.gen, s.tail = 0, 1, bankHeaderSize
	return nil
}

// scan replays the active bank's log into the live map.
func (s *Store) scan() error {
	base := s.bankOff(s.active)
	off := uint32(bankHeaderSize)
	var hdr [recHeaderSize]byte
	for off+recHeaderSize <= s.bankSize {
		if _, err := s.f.ReadAt(hdr[:], base+off); err != nil {
			return fmt.Errorf("flashkv: read record at %d: %w", off, err)
		}
		if erased(hdr[:]) {
			break
		}
		kind, key, val, n, ok := s.readRecord(base+off, hdr)
		if !ok {
			s.tornTail = true
			break
		}
		switch kind {
		case kindPut:
			s.live[key] = val
		case kindDelete:
			delete(s.live, key)
		}
		off += n
	}
	s.tail = off
	return nil
}

func (s *Store) readRecord(at uint32, hdr [recHeaderSize]byte) (kind byte, key string, val []byte, n uint32, ok bool) {
	if binary.LittleEndian.Uint16(hdr[0:2]) != recMagic {
		return 0, "", nil, 0, false
	}
	kind = hdr[2]
	if kind != kindPut && kind != kindDelete {
		return 0, "", nil, 0, false
	}
	kl := uint32(hdr[3])
	vl := uint32(binary.LittleEndian.Uint16(hdr[4:6]))
	n = recHeaderSize + kl + vl
	if at-s.bankOff(s.active)+n > s.bankSize || kl == 0 {
		return 0, "", nil, 0, false
	}
	body := make([]byte, kl+vl)
	if _, err := s.f.ReadAt(body, at+recHeaderSize); err != nil {
		return 0, "", nil, 0, false
	}
	sum := crc32.NewIEEE()
	sum.Write(hdr[2:6])
	sum.Write(body)
	if sum.Sum32() != binary.LittleEndian.Uint32(hdr[6:10]) {
		return 0, "", nil, 0, false
	}
	return kind, string(body[:kl]), body[kl:], n, true
}

func erased(b []byte) bool {
	for _, c := range b {
		if c != 0xFF {
			return false
		}
	}
	return true
}

func encodeRecord(kind byte, key string, val []byte) []byte {
	rec := make([]byte, recHeaderSize+len(key)+len(val))
	binary.LittleEndian.PutUint16(rec[0:2], recMagic)
	rec[2] = kind
	rec[3] = byte(len(key))
	binary.LittleEndian.PutUint16(rec[4:6], uint16(len(val)))
	copy(rec[recHeaderSize:], key)
	copy(rec[recHeaderSize+len(key):], val)
	sum := crc32.NewIEEE()
	sum.Write(rec[2:6])
	sum.Write(rec[recHeaderSize:])
	binary.LittleEndian.PutUint32(rec[6:10], sum.Sum32())
	return rec
}

// liveBytes is the log size a compaction would produce.
func (s *Store) liveBytes() uint32 {
	n := uint32(bankHeaderSize)
	for k, v := range s.live {
		n += recHeaderSize + uint32(len(k)) + uint32(len(v))
	}
	return n
}

func (s *Store) append(kind byte, key string, val []byte) error {
	if len(key) == 0 || len(key) > MaxKeyLen || len(val) > MaxValueLen {
		return fmt.Errorf("%w: key %q (%d bytes value)", ErrTooBig, key, len(val))
	}
	rec := encodeRecord(kind, key, val)
	need := uint32(len(rec))

	if s.dirty || s.tail+need > s.bankSize {
		if s.liveBytes()+need > s.bankSize {
			return ErrFull
		}
		if err := s.compact(); err != nil {
			return err
		}
	}

	if _, err := s.f.WriteAt(rec, s.bankOff(s.active)+s.tail); err != nil {
		s.dirty = true
		return fmt.Errorf("flashkv: append %q: %w", key, err)
	}
	s.tail += need
	return nil
}

// compact rewrites the live set into the inactive bank and switches to it.
func (s *Store) compact() error {
	next := 1 - s.active
	base := s.bankOff(next)
	if err := s.f.Erase(base, s.bankSize); err != nil {
		return fmt.Errorf("flashkv: erase bank %d: %w", next, err)
	}

	keys := make([]string, 0, len(s.live))
	for k := range s.live {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	off := uint32(bankHeaderSize)
	for _, k := range keys {
		rec := encodeRecord(kindPut, k, s.live[k])
		if off+uint32(len(rec)) > s.bankSize {
			return ErrFull
		}
		if _, err := s.f.WriteAt(rec, base+off); err != nil {
			return fmt.Errorf("flashkv: compact %q: %w", k, err)
		}
		off += uint32(len(rec))
	}
	if err := s.writeBankHeader(next, s.gen+1); err != nil {
		return err
	}
	s.active = next
	s.gen++
	s.tail = off
	s.dirty = false
	s.compactions++
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := s.live[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return slices.Clone(v), nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.append(kindPut, key, value); err != nil {
		return err
	}
	s.live[key] = slices.Clone(value)
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := s.live[key]; !ok {
		return kv.ErrNotFound
	}
	if err := s.append(kindDelete, key, nil); err != nil {
		return err
	}
	delete(s.live, key)
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var keys []string
	for k := range s.live {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Compact forces a compaction.
func (s *Store) Compact(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.compact()
}

func (s *Store) Stats() Stats {
	return Stats{
		Keys:        len(s.live),
		Generation:  s.gen,
		UsedBytes:   s.tail,
		BankBytes:   s.bankSize,
		TornTail:    s.tornTail,
		Compactions: s.compactions,
	}
}
