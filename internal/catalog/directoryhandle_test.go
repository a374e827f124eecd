package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/literoom/engine/internal/engineerr"
)

func TestLocalDirectoryHandleRejectsEscapingPaths(t *testing.T) {
	root := t.TempDir()
	h, err := NewLocalDirectoryHandle(root)
	require.NoError(t, err)

	_, err = h.Read("../outside.txt")
	require.Error(t, err)
	assert.True(t, engineerr.Is(err, engineerr.PermissionDenied))
}

func TestLocalDirectoryHandleReadsWriteAndList(t *testing.T) {
	root := t.TempDir()
	h, err := NewLocalDirectoryHandle(root)
	require.NoError(t, err)

	require.NoError(t, h.WriteFile("nested/dir/a.txt", []byte("hello")))

	data, err := h.Read("nested/dir/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	entries, err := h.List("nested")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "dir", entries[0].Name())

	assert.True(t, filepath.IsAbs(root))
	assert.FileExists(t, filepath.Join(root, "nested", "dir", "a.txt"))
}

func TestLocalDirectoryHandlePermissionGrantedWhenRootExists(t *testing.T) {
	root := t.TempDir()
	h, err := NewLocalDirectoryHandle(root)
	require.NoError(t, err)

	state, err := h.QueryPermission()
	require.NoError(t, err)
	assert.Equal(t, PermissionGranted, state)

	require.NoError(t, os.RemoveAll(root))
	state, err = h.QueryPermission()
	require.NoError(t, err)
	assert.Equal(t, PermissionDenied, state)
}
