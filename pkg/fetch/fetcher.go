package fetch

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/arc-language/bake/pkg/core"
	"github.com/arc-language/bake/pkg/logging"
	"github.com/rs/zerolog"
)

// Fetcher downloads source archives into a cache directory keyed by the
// archive filename
type Fetcher struct {
	client   *Client
	cacheDir string
	logger   zerolog.Logger
}

// NewFetcher creates a fetcher storing archives under cacheDir
func NewFetcher(cacheDir string, client *Client) *Fetcher {
	if client == nil {
		client = NewClient()
	}
	return &Fetcher{
		client:   client,
		cacheDir: cacheDir,
		logger:   logging.GetLogger("fetch"),
	}
}

// CacheDir returns the directory archives are cached in
func (f *Fetcher) CacheDir() string {
	return f.cacheDir
}

// CachePath returns where the archive for rawURL is cached. The key is the
// basename of the URL path; query strings and fragments are ignored.
func (f *Fetcher) CachePath(rawURL string) (string, error) {
	if rawURL == "" {
		return "", fmt.Errorf("%w: empty url", core.ErrInvalidRecipe)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: parsing url: %v", core.ErrInvalidRecipe, err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("%w: url %q has no file name", core.ErrInvalidRecipe, rawURL)
	}
	return filepath.Join(f.cacheDir, name), nil
}

// Fetch returns the cached archive for rawURL, downloading it first when no
// file with the same name is cached.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	cachePath, err := f.CachePath(rawURL)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(cachePath); err == nil {
		f.logger.Info().Str("path", cachePath).Msg("Cache found")
		return cachePath, nil
	}

	if err := os.MkdirAll(f.cacheDir, 0755); err != nil {
		return "", fmt.Errorf("creating cache directory: %w", err)
	}

	f.logger.Info().Str("url", rawURL).Msg("Downloading")

	partPath := cachePath + ".part"
	out, err := os.Create(partPath)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}

	written, size, err := f.client.Download(ctx, rawURL, out)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(partPath)
		return "", fmt.Errorf("%w: %s: %v", core.ErrFetchFailure, rawURL, err)
	}

	if err := os.Rename(partPath, cachePath); err != nil {
		os.Remove(partPath)
		return "", fmt.Errorf("moving download into cache: %w", err)
	}

	f.logger.Debug().Int64("bytes", written).Int64("announced", size).Str("path", cachePath).Msg("Download complete")
	return cachePath, nil
}

// FetchVerified fetches rawURL and, when checksum is non-empty, verifies the
// archive against it. A mismatching archive is evicted from the cache.
func (f *Fetcher) FetchVerified(ctx context.Context, rawURL, checksum string) (string, error) {
	cachePath, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}

	if checksum == "" {
		f.logger.Debug().Msg("No checksum declared, skipping verification")
		return cachePath, nil
	}

	if err := VerifyFile(cachePath, checksum); err != nil {
		if rmErr := os.Remove(cachePath); rmErr != nil {
			f.logger.Warn().Err(rmErr).Str("path", cachePath).Msg("Failed to evict bad archive")
		}
		return "", err
	}

	f.logger.Info().Str("path", cachePath).Msg("Checksum verified")
	return cachePath, nil
}
