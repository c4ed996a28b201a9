package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	type result struct {
		Rows  int      `json:"rows"`
		Names []string `json:"names"`
	}
	want := result{Rows: 3, Names: []string{"acme", "globex"}}

	require.NoError(t, s.Put("prices-ke", want, time.Minute))

	e, ok := s.Get("prices-ke")
	require.True(t, ok)
	assert.Equal(t, "prices-ke", e.Key)
	assert.Equal(t, int64(60), e.TTLSeconds)

	var got result
	require.NoError(t, json.Unmarshal(e.Payload, &got))
	assert.Equal(t, want, got)
}

func TestGetMissingKey(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, ok := s.Get("never-written")
	assert.False(t, ok)
}

func TestStaleEntryIsAbsent(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s, err := New(t.TempDir(), WithNow(func() time.Time { return now }))
	require.NoError(t, err)

	require.NoError(t, s.Put("k", "v", 10*time.Second))

	_, ok := s.Get("k")
	require.True(t, ok, "entry should be fresh immediately after put")

	now = now.Add(11 * time.Second)
	_, ok = s.Get("k")
	assert.False(t, ok, "entry should be stale after its ttl elapses")

	// A fresh put replaces the stale entry wholesale.
	require.NoError(t, s.Put("k", "v2", 10*time.Second))
	e, ok := s.Get("k")
	require.True(t, ok)
	assert.JSONEq(t, `"v2"`, string(e.Payload))
}

func TestPutRejectsNonPositiveTTL(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	err = s.Put("k", "v", 0)
	require.Error(t, err)

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "put", cerr.Op)
	assert.Equal(t, "k", cerr.Key)
}

func TestGetCorruptEnvelope(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o600))

	_, ok := s.Get("bad")
	assert.False(t, ok)
}

func TestPutBytesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s, err := New(dir, WithNow(func() time.Time { return now }))
	require.NoError(t, err)

	payload := []byte("PAR1 fake parquet bytes")
	path, err := s.PutBytes("https://data.example.com/prices/ke/latest.parquet", payload, time.Minute)
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	cached, ok := s.GetBytes("https://data.example.com/prices/ke/latest.parquet")
	require.True(t, ok)
	assert.Equal(t, path, cached)

	now = now.Add(2 * time.Minute)
	_, ok = s.GetBytes("https://data.example.com/prices/ke/latest.parquet")
	assert.False(t, ok)
}

func TestGetBytesMissingPayloadFile(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	path, err := s.PutBytes("k", []byte("data"), time.Minute)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	_, ok := s.GetBytes("k")
	assert.False(t, ok)
}

func TestInvalidate(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	path, err := s.PutBytes("k", []byte("data"), time.Minute)
	require.NoError(t, err)

	require.NoError(t, s.Invalidate("k"))
	_, ok := s.Get("k")
	assert.False(t, ok)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "payload file should be removed")

	// Invalidating an absent key succeeds.
	require.NoError(t, s.Invalidate("k"))
	require.NoError(t, s.Invalidate("never-written"))
}

func TestSweepRemovesOnlyStale(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s, err := New(dir, WithNow(func() time.Time { return now }))
	require.NoError(t, err)

	require.NoError(t, s.Put("short", 1, 10*time.Second))
	_, err = s.PutBytes("short-bytes", []byte("x"), 10*time.Second)
	require.NoError(t, err)
	require.NoError(t, s.Put("long", 2, time.Hour))

	now = now.Add(time.Minute)
	assert.Equal(t, 2, s.Sweep())

	_, ok := s.Get("long")
	assert.True(t, ok, "fresh entry must survive a sweep")

	dirents, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, dirents, 1)
	assert.Equal(t, "long.json", dirents[0].Name())
}

func TestConcurrentPutsLeaveCompleteEntry(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Put("contested", fmt.Sprintf("writer-%d", i), time.Minute)
		}(i)
	}
	wg.Wait()

	e, ok := s.Get("contested")
	require.True(t, ok)
	var v string
	require.NoError(t, json.Unmarshal(e.Payload, &v), "entry must never be a torn write")
	assert.Contains(t, v, "writer-")
}

func TestKeysWithUnsafeCharacters(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	key := "https://data.example.com/v1/prices?country=ke&limit=100"
	require.NoError(t, s.Put(key, "v", time.Minute))

	e, ok := s.Get(key)
	require.True(t, ok)
	assert.Equal(t, key, e.Key)
}
