package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New("")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSetGet(t *testing.T) {
	c := newTestCache(t)
	key := GenerateKey("/a.wav", "123", "456")

	_, ok := c.Get(key)
	assert.False(t, ok)

	entry := &Entry{SampleRate: 44100, NumChannels: 2, Precision: 2, Frames: []byte{1, 2, 3, 4}, CreatedAt: time.Now()}
	require.NoError(t, c.Set(key, entry, DefaultTTL))

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, 44100, got.SampleRate)
	assert.Equal(t, []byte{1, 2, 3, 4}, got.Frames)
}

func TestDelete(t *testing.T) {
	c := newTestCache(t)
	key := GenerateKey("x")
	require.NoError(t, c.Set(key, &Entry{SampleRate: 8000}, DefaultTTL))
	require.NoError(t, c.Delete(key))

	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	key := GenerateKey("/b.wav")

	c, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, c.Set(key, &Entry{SampleRate: 22050}, DefaultTTL))
	require.NoError(t, c.Close())

	c, err = New(dir)
	require.NoError(t, err)
	defer c.Close()

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, 22050, got.SampleRate)
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, GenerateKey("a", "b"), GenerateKey("a", "b"))
	assert.NotEqual(t, GenerateKey("a", "b"), GenerateKey("ab"))
	assert.NotEqual(t, GenerateKey("a", "b"), GenerateKey("b", "a"))
}
