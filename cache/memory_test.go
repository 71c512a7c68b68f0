package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	b, err := m.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, b)

	require.NoError(t, m.Set(ctx, "schemakit:mysql:a:users", []byte("u"), 0))
	require.NoError(t, m.Set(ctx, "schemakit:mysql:a:posts", []byte("p"), 0))
	require.NoError(t, m.Set(ctx, "schemakit:mysql:b:users", []byte("x"), 0))

	b, err = m.Get(ctx, "schemakit:mysql:a:users")
	require.NoError(t, err)
	assert.Equal(t, []byte("u"), b)

	require.NoError(t, m.Delete(ctx, "schemakit:mysql:a:users"))
	b, err = m.Get(ctx, "schemakit:mysql:a:users")
	require.NoError(t, err)
	assert.Nil(t, b)

	require.NoError(t, m.DeletePrefix(ctx, "schemakit:mysql:a:"))
	assert.Equal(t, 1, m.Len())

	require.NoError(t, m.Clear(ctx))
	assert.Equal(t, 0, m.Len())
}

func TestMemoryTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	b, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), b)

	now = now.Add(time.Minute)
	b, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, b)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryCopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	v := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", v, 0))
	v[0] = 'x'
	b, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), b)
}
