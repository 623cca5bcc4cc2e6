package storage

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// Fetcher downloads cover images from HTTP(S) URLs into an ImageStore.
// Downloads are bounded by the client timeout and only 2xx responses are
// accepted; callers treat failures as non-fatal.
type Fetcher struct {
	store    ImageStore
	client   *http.Client
	maxWidth int
}

func NewFetcher(store ImageStore, timeout time.Duration, maxWidth int) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		store:    store,
		client:   &http.Client{Timeout: timeout},
		maxWidth: maxWidth,
	}
}

// Fetch downloads rawURL, re-encodes it as JPEG (downscaled to maxWidth when
// wider) and saves it under a generated unique filename, which it returns.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid image url: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("image download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	img, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	if f.maxWidth > 0 && img.Bounds().Dx() > f.maxWidth {
		img = imaging.Resize(img, f.maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	fileName := GenerateUniqueFilename(jpegName(rawURL))
	if err := f.store.Save(fileName, &buf); err != nil {
		return "", err
	}

	return fileName, nil
}

func jpegName(rawURL string) string {
	base := path.Base(strings.SplitN(rawURL, "?", 2)[0])
	if base == "" || base == "." || base == "/" {
		base = "cover"
	}
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base + ".jpg"
}

// IsURL reports whether the image cell holds a downloadable address rather
// than a bare filename.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
