package objectstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-bmd/bmd/internal/wire"
)

func makeObject(stream uint64, expires time.Time) wire.Object {
	return wire.Object{
		ExpiresTime:  uint64(expires.Unix()),
		ObjectType:   1,
		Version:      4,
		StreamNumber: stream,
		Payload:      []byte("payload"),
	}
}

func TestStoreInsertDedup(t *testing.T) {
	s := New()
	now := time.Now()
	o := makeObject(1, now.Add(time.Hour))
	require.True(t, s.Insert(o))
	require.False(t, s.Insert(o))
	require.True(t, s.Has(o.Vector()))
}

func TestStorePrune(t *testing.T) {
	s := New()
	now := time.Now()
	expired := makeObject(1, now.Add(-4*time.Hour))
	fresh := makeObject(1, now.Add(time.Hour))
	s.Insert(expired)
	s.Insert(fresh)

	removed := s.Prune(now)
	require.Equal(t, 1, removed)
	require.False(t, s.Has(expired.Vector()))
	require.True(t, s.Has(fresh.Vector()))
}

func TestStorePersistLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "objects.dat")

	s := New()
	now := time.Now()
	s.Insert(makeObject(1, now.Add(time.Hour)))
	s.Insert(makeObject(1, now.Add(2*time.Hour)))
	require.NoError(t, s.Persist(path))

	loaded := New()
	require.NoError(t, loaded.Load(path))
	require.Equal(t, s.Len(), loaded.Len())
	for _, v := range s.Vectors() {
		require.True(t, loaded.Has(v))
	}
}

func TestStoreLoadMissingFileIsNotError(t *testing.T) {
	s := New()
	err := s.Load(filepath.Join(t.TempDir(), "missing.dat"))
	require.NoError(t, err)
	require.Equal(t, 0, s.Len())
}
