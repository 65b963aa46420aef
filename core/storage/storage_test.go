package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrowSizeRespectsMinimum(t *testing.T) {
	assert.Equal(t, int64(minExt4ImageSize), growSize(0))

	big := int64(200 * 1024 * 1024)
	assert.Equal(t, int64(float64(big)*1.2), growSize(big))
}

func TestExt4BackendCommitIsNoop(t *testing.T) {
	b := &Ext4Backend{Mount: "/mnt/x"}

	require.NoError(t, b.Commit(false))
	assert.Equal(t, "ext4", b.Mode())
}
