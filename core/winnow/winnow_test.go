package winnow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybridmount/hybrid-mount/core/winnow"
)

func TestTableRoundTrip(t *testing.T) {
	tbl := winnow.Table{}

	_, ok := tbl.Preferred("/system/lib64/libfoo.so")
	assert.False(t, ok, "expected no preference on empty table")

	tbl.SetRule("/system/lib64/libfoo.so", "m_a")

	id, ok := tbl.Preferred("/system/lib64/libfoo.so")
	require.True(t, ok)
	assert.Equal(t, "m_a", id)

	tbl.RemoveRule("/system/lib64/libfoo.so")

	_, ok = tbl.Preferred("/system/lib64/libfoo.so")
	assert.False(t, ok, "expected rule removed")
}
