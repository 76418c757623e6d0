package pidfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "warchest.pid")

	require.NoError(t, Write(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(Mode), info.Mode().Perm())

	doc, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), doc.Pid)
	assert.NotEmpty(t, doc.StartedAt)
}

func TestRemoveIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "warchest.pid")
	require.NoError(t, Write(path))
	require.NoError(t, Remove(path))
	require.NoError(t, Remove(path), "removing a second time must not error")
}

func TestWriteLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "warchest.pid")
	require.NoError(t, Write(path))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
