package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyDependsOnBytesAndModel(t *testing.T) {
	a := Key([]byte("photo"), "isnet")
	assert.Equal(t, a, Key([]byte("photo"), "isnet"))
	assert.NotEqual(t, a, Key([]byte("photo"), "u2net"))
	assert.NotEqual(t, a, Key([]byte("photo2"), "isnet"))
	assert.Len(t, a, 32+len(":isnet"))
}

func TestSetThenGet(t *testing.T) {
	c, err := New(Options{MaxBytes: 1 << 20})
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.Get("missing")
	assert.False(t, ok)

	key := Key([]byte("photo"), "isnet")
	require.True(t, c.Set(key, []byte("png")))
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, []byte("png"), got)
}
