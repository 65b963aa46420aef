package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockFileRejectsSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")

	first, err := NewLockFile(path)
	require.NoError(t, err)
	require.NoError(t, first.Lock())
	assert.Equal(t, os.Getpid(), first.GetOwnerPID())

	second, err := NewLockFile(path)
	require.NoError(t, err)

	err = second.Lock()
	assert.True(t, errors.Is(err, ErrOwnedLockFile))

	require.NoError(t, first.Unlock())
	require.NoError(t, first.Clean())
}
