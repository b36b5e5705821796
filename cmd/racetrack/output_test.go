package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscardEmptyOutput(t *testing.T) {
	t.Run("removes file with no frames", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "race_tracked.mp4")
		require.NoError(t, os.WriteFile(path, []byte("header"), 0o644))

		removed, err := discardEmptyOutput(path, 0)
		require.NoError(t, err)
		assert.True(t, removed)
		assert.NoFileExists(t, path)
	})

	t.Run("keeps partial output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "race_tracked.mp4")
		require.NoError(t, os.WriteFile(path, []byte("frames"), 0o644))

		removed, err := discardEmptyOutput(path, 12)
		require.NoError(t, err)
		assert.False(t, removed)
		assert.FileExists(t, path)
	})

	t.Run("missing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "never_written.mp4")

		removed, err := discardEmptyOutput(path, 0)
		require.NoError(t, err)
		assert.False(t, removed)
	})
}
