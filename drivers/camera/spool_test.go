package camera

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpoolSourceDrainsOldestFirst(t *testing.T) {
	dir := t.TempDir()
	src := NewSpoolSource(dir)
	require.NoError(t, src.Open())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "0002.raw"), []byte("second"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0001.raw"), []byte("first"), 0o644))

	frame, err := src.Read()
	require.NoError(t, err)
	require.NotNil(t, frame)
	assert.Equal(t, []byte("first"), frame.Data)

	frame, err = src.Read()
	require.NoError(t, err)
	require.NotNil(t, frame)
	assert.Equal(t, []byte("second"), frame.Data)

	frame, err = src.Read()
	require.NoError(t, err)
	assert.Nil(t, frame)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSpoolSourceReadableAfterStop(t *testing.T) {
	dir := t.TempDir()
	src := NewSpoolSource(dir)
	require.NoError(t, src.Open())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame.raw"), []byte("late"), 0o644))

	src.Stop()

	frame, err := src.Read()
	require.NoError(t, err)
	require.NotNil(t, frame)
	assert.Equal(t, []byte("late"), frame.Data)
	require.NoError(t, src.Close())
}

func TestSpoolSourceOpenCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "spool", "cam0")
	src := NewSpoolSource(dir)
	require.NoError(t, src.Open())
	assert.DirExists(t, dir)
}
