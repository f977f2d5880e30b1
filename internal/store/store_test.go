package store

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "controlplane.db")
	logger := zerolog.Nop()
	s, err := New(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew_CreatesTables(t *testing.T) {
	s := newTestStore(t)

	tables := []string{"users", "projects", "sessions", "settings", "extensions"}
	for _, table := range tables {
		var name string
		err := s.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestNew_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "controlplane.db")
	logger := zerolog.Nop()

	s1, err := New(dbPath, logger)
	require.NoError(t, err)
	s1.Close()

	s2, err := New(dbPath, logger)
	require.NoError(t, err)
	defer s2.Close()
}
