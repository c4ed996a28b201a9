// Package cache implements a disk-backed key/value store with per-entry
// time-to-live, shared by the dataset locator (raw fetched bytes) and the
// data repository (computed query results).
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Entry is one cached value together with its freshness metadata. Entries
// are replaced wholesale on refresh and never mutated in place.
type Entry struct {
	Key        string          `json:"key"`
	CreatedAt  time.Time       `json:"created_at"`
	TTLSeconds int64           `json:"ttl_seconds"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	File       string          `json:"file,omitempty"`
}

func (e *Entry) fresh(now time.Time) bool {
	return e.TTLSeconds > 0 && now.Sub(e.CreatedAt) < time.Duration(e.TTLSeconds)*time.Second
}

// Error reports a cache write or invalidation failure. Callers treat it as
// non-fatal: the computation proceeds and only the caching of its result is
// lost.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("cache %s %q: %v", e.Op, e.Key, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Store persists entries under a single directory, one JSON envelope per
// key. Byte payloads live in a sibling file referenced by the envelope.
// All writes commit via temp-file + rename, so a concurrent reader never
// observes a partially written entry.
type Store struct {
	dir string
	now func() time.Time
	log zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger attaches a logger for sweep and degradation messages.
func WithLogger(l zerolog.Logger) Option { return func(s *Store) { s.log = l } }

// WithNow overrides the store's clock. Freshness tests use this instead of
// sleeping through real TTLs.
func WithNow(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	s := &Store{dir: dir, now: time.Now, log: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Get returns the entry stored under key if it is still fresh. Missing,
// stale, and unreadable entries all report absent; a stale file is left on
// disk for the next Put or Sweep to replace.
func (s *Store) Get(key string) (*Entry, bool) {
	data, err := os.ReadFile(s.envelopePath(key))
	if err != nil {
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false
	}
	if !e.fresh(s.now()) {
		return nil, false
	}
	return &e, true
}

// Put stores payload under key with the given TTL, replacing any previous
// entry. The payload is JSON-marshalled into the envelope.
func (s *Store) Put(key string, payload any, ttl time.Duration) error {
	secs, err := ttlSeconds(ttl)
	if err != nil {
		return &Error{Op: "put", Key: key, Err: err}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return &Error{Op: "put", Key: key, Err: err}
	}
	e := &Entry{Key: key, CreatedAt: s.now(), TTLSeconds: secs, Payload: body}
	return s.writeEnvelope(key, e)
}

// PutBytes stores raw payload bytes in a file beside the envelope and
// returns the file's path. The payload commits before the envelope, so a
// reader that sees a fresh envelope always finds its payload.
func (s *Store) PutBytes(key string, data []byte, ttl time.Duration) (string, error) {
	secs, err := ttlSeconds(ttl)
	if err != nil {
		return "", &Error{Op: "put", Key: key, Err: err}
	}
	name := s.safeKey(key) + ".bin"
	path := filepath.Join(s.dir, name)
	if err := atomicWrite(path, data); err != nil {
		return "", &Error{Op: "put", Key: key, Err: err}
	}
	e := &Entry{Key: key, CreatedAt: s.now(), TTLSeconds: secs, File: name}
	if err := s.writeEnvelope(key, e); err != nil {
		return "", err
	}
	return path, nil
}

// GetBytes returns the payload file path for key if the entry is fresh and
// the payload file still exists.
func (s *Store) GetBytes(key string) (string, bool) {
	e, ok := s.Get(key)
	if !ok || e.File == "" {
		return "", false
	}
	path := filepath.Join(s.dir, e.File)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Invalidate removes the entry for key immediately, fresh or not. Removing
// an absent entry is not an error.
func (s *Store) Invalidate(key string) error {
	path := s.envelopePath(key)
	if data, err := os.ReadFile(path); err == nil {
		var e Entry
		if json.Unmarshal(data, &e) == nil && e.File != "" {
			if err := os.Remove(filepath.Join(s.dir, e.File)); err != nil && !os.IsNotExist(err) {
				return &Error{Op: "invalidate", Key: key, Err: err}
			}
		}
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &Error{Op: "invalidate", Key: key, Err: err}
	}
	return nil
}

// Sweep deletes every stale envelope and its payload file, returning the
// number of entries removed. The store works correctly without sweeping;
// this only reclaims disk space sooner.
func (s *Store) Sweep() int {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	now := s.now()
	removed := 0
	for _, de := range dirents {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.dir, de.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			continue
		}
		if e.fresh(now) {
			continue
		}
		if e.File != "" {
			_ = os.Remove(filepath.Join(s.dir, e.File))
		}
		if os.Remove(path) == nil {
			removed++
		}
	}
	return removed
}

// StartSweeper sweeps stale entries every interval until ctx is cancelled.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := s.Sweep(); n > 0 {
					s.log.Debug().Int("removed", n).Msg("cache sweep")
				}
			}
		}
	}()
}

func (s *Store) writeEnvelope(key string, e *Entry) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return &Error{Op: "put", Key: key, Err: err}
	}
	if err := atomicWrite(s.envelopePath(key), data); err != nil {
		return &Error{Op: "put", Key: key, Err: err}
	}
	return nil
}

// atomicWrite writes to a temporary file first, then renames it into place.
func atomicWrite(path string, data []byte) error {
	tmp := fmt.Sprintf("%s.tmp.%d", path, rand.Int())
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func ttlSeconds(ttl time.Duration) (int64, error) {
	secs := int64(ttl / time.Second)
	if secs <= 0 {
		return 0, errors.New("ttl must be at least one second")
	}
	return secs, nil
}

func (s *Store) envelopePath(key string) string {
	return filepath.Join(s.dir, s.safeKey(key)+".json")
}

// safeKey converts an arbitrary key into a filename. Over-long keys
// collapse to a hash so paths stay inside filesystem limits.
func (s *Store) safeKey(key string) string {
	if len(key) > 200 {
		sum := sha256.Sum256([]byte(key))
		return "k_" + hex.EncodeToString(sum[:16])
	}
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
