package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFetchDownloadsAndResizes(t *testing.T) {
	payload := pngBytes(t, 1000, 500)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)
	fetcher := NewFetcher(store, 5*time.Second, 400)

	name, err := fetcher.Fetch(context.Background(), server.URL+"/sampul.png")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, "sampul.jpg"))
	assert.True(t, store.Exists(name))

	saved, err := imaging.Open(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, 400, saved.Bounds().Dx())
}

func TestFetchKeepsSmallImages(t *testing.T) {
	payload := pngBytes(t, 200, 300)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)
	fetcher := NewFetcher(store, 5*time.Second, 400)

	name, err := fetcher.Fetch(context.Background(), server.URL+"/kecil.png")
	require.NoError(t, err)

	saved, err := imaging.Open(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, 200, saved.Bounds().Dx())
}

func TestFetchRejectsNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	fetcher := NewFetcher(store, 5*time.Second, 400)

	_, err = fetcher.Fetch(context.Background(), server.URL+"/hilang.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")

	names, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestFetchRejectsNonImageBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not an image</html>"))
	}))
	defer server.Close()

	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	fetcher := NewFetcher(store, 5*time.Second, 400)

	_, err = fetcher.Fetch(context.Background(), server.URL+"/halaman.html")
	assert.Error(t, err)
}
