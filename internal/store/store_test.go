package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "igniter.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.Get(KeyCachedEndpoint)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(KeyCachedEndpoint, "https://cached.example"))
	v, ok, err := s.Get(KeyCachedEndpoint)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "https://cached.example", v)

	require.NoError(t, s.Set(KeyCachedEndpoint, "https://newer.example"))
	v, _, err = s.Get(KeyCachedEndpoint)
	require.NoError(t, err)
	require.Equal(t, "https://newer.example", v)

	require.NoError(t, s.Delete(KeyCachedEndpoint))
	_, ok, err = s.Get(KeyCachedEndpoint)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "igniter.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(KeyBroadcastDone, "true"))
	require.NoError(t, s.Close())

	s2, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s2.Close()
	v, ok, err := s2.Get(KeyBroadcastDone)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "true", v)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemory()

	require.NoError(t, s.Set(KeyBootMode, BootModeInactive))
	v, ok, err := s.Get(KeyBootMode)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, BootModeInactive, v)

	require.NoError(t, s.Delete(KeyBootMode))
	_, ok, err = s.Get(KeyBootMode)
	require.NoError(t, err)
	require.False(t, ok)
}
