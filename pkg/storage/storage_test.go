package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	assert.False(t, store.Exists("cover.jpg"))

	require.NoError(t, store.Save("cover.jpg", strings.NewReader("bytes")))
	assert.True(t, store.Exists("cover.jpg"))

	names, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"cover.jpg"}, names)

	require.NoError(t, store.Delete("cover.jpg"))
	assert.False(t, store.Exists("cover.jpg"))
}

func TestLocalStoreDeleteMissingIsNoError(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Delete("never-existed.jpg"))
}

func TestLocalStoreIgnoresPathTraversal(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save("../escape.jpg", strings.NewReader("x")))
	assert.True(t, store.Exists("escape.jpg"), "path is flattened to its base name")
}

func TestGenerateUniqueFilename(t *testing.T) {
	a := GenerateUniqueFilename("sampul buku!.jpg")
	b := GenerateUniqueFilename("sampul buku!.jpg")

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, "sampul_buku_.jpg"))
	assert.NotContains(t, a, " ")
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com/cover.jpg"))
	assert.True(t, IsURL("http://example.com/cover.jpg"))
	assert.False(t, IsURL("cover.jpg"))
	assert.False(t, IsURL("ftp://example.com/cover.jpg"))
}
