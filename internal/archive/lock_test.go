package archive_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxtools/wxctl/internal/archive"
)

func TestLock_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.sqlite.lock")

	lock, err := archive.AcquireLock(path)
	require.NoError(t, err)

	_, err = archive.AcquireLock(path)
	assert.ErrorContains(t, err, "locked by another process")

	require.NoError(t, lock.Release())

	lock, err = archive.AcquireLock(path)
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}
