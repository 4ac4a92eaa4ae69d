package fetch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/arc-language/bake/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var archiveBody = []byte("not really a tarball, but bytes are bytes")

func newArchiveServer(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path == "/missing.tar.gz" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Path == "/short.tar.gz" {
			w.Header().Set("Content-Length", "1000")
			w.Write(archiveBody)
			return
		}
		w.Write(archiveBody)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFetch_ReusesCache(t *testing.T) {
	srv, hits := newArchiveServer(t)
	f := NewFetcher(t.TempDir(), nil)
	ctx := context.Background()

	first, err := f.Fetch(ctx, srv.URL+"/dl/zlib-1.3.tar.gz")
	require.NoError(t, err)
	second, err := f.Fetch(ctx, srv.URL+"/dl/zlib-1.3.tar.gz?mirror=2")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "zlib-1.3.tar.gz", filepath.Base(first))
	assert.Equal(t, int32(1), atomic.LoadInt32(hits), "second fetch must not transfer")

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, archiveBody, data)
}

func TestFetch_FailureLeavesNoCacheFile(t *testing.T) {
	srv, _ := newArchiveServer(t)
	dir := t.TempDir()
	f := NewFetcher(dir, nil)

	_, err := f.Fetch(context.Background(), srv.URL+"/missing.tar.gz")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrFetchFailure)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetch_TruncatedDownload(t *testing.T) {
	srv, _ := newArchiveServer(t)
	dir := t.TempDir()

	_, err := NewFetcher(dir, nil).Fetch(context.Background(), srv.URL+"/short.tar.gz")
	assert.ErrorIs(t, err, core.ErrFetchFailure)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClient_Download(t *testing.T) {
	srv, _ := newArchiveServer(t)
	var buf bytes.Buffer

	written, size, err := NewClient().Download(context.Background(), srv.URL+"/zlib.tar.gz", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(archiveBody)), written)
	assert.Equal(t, written, size)
	assert.Equal(t, archiveBody, buf.Bytes())

	_, _, err = NewClient().Download(context.Background(), srv.URL+"/missing.tar.gz", &buf)
	assert.ErrorContains(t, err, "404")
}

func TestFetch_InvalidURL(t *testing.T) {
	f := NewFetcher(t.TempDir(), nil)

	_, err := f.Fetch(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrInvalidRecipe)

	_, err = f.Fetch(context.Background(), "http://example.com/")
	assert.ErrorIs(t, err, core.ErrInvalidRecipe)
}

func TestFetchVerified(t *testing.T) {
	sum256 := sha256.Sum256(archiveBody)
	sum512 := sha512.Sum512(archiveBody)

	tests := []struct {
		name     string
		checksum string
		wantErr  error
	}{
		{name: "no_checksum", checksum: ""},
		{name: "bare_sha256_hex", checksum: hex.EncodeToString(sum256[:])},
		{name: "bare_sha512_hex", checksum: hex.EncodeToString(sum512[:])},
		{name: "typed_hex", checksum: "sha256:" + hex.EncodeToString(sum256[:])},
		{name: "sri", checksum: "sha256-" + base64.StdEncoding.EncodeToString(sum256[:])},
		{
			name:     "mismatch",
			checksum: "0000000000000000000000000000000000000000000000000000000000000000",
			wantErr:  core.ErrChecksumMismatch,
		},
		{name: "garbage", checksum: "md9:zzz", wantErr: core.ErrInvalidRecipe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newArchiveServer(t)
			f := NewFetcher(t.TempDir(), nil)

			path, err := f.FetchVerified(context.Background(), srv.URL+"/src.zip", tt.checksum)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.FileExists(t, path)
		})
	}
}

func TestFetchVerified_MismatchEvictsCache(t *testing.T) {
	srv, hits := newArchiveServer(t)
	f := NewFetcher(t.TempDir(), nil)
	bad := "sha256-" + base64.StdEncoding.EncodeToString(make([]byte, sha256.Size))

	_, err := f.FetchVerified(context.Background(), srv.URL+"/src.zip", bad)
	require.Error(t, err)

	var ce *ChecksumError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, bad, ce.Expected)

	cachePath, err := f.CachePath(srv.URL + "/src.zip")
	require.NoError(t, err)
	assert.NoFileExists(t, cachePath)

	sum := sha256.Sum256(archiveBody)
	_, err = f.FetchVerified(context.Background(), srv.URL+"/src.zip", hex.EncodeToString(sum[:]))
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(hits), "evicted archive is downloaded again")
}
