package signal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleCSV = "timestamp,x,y,z\n" +
	"2019-03-04 10:00:00.000,0.1,0.2,0.98\n" +
	"2019-03-04 10:00:00.010,0.2,0.1,0.97\n"

func TestDirLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte(sampleCSV), 0o644))

	l := NewDirLoader(dir)
	rec, err := l.Load(context.Background(), "a.csv")
	require.NoError(t, err)
	require.Equal(t, 2, rec.Len())

	_, err = l.Load(context.Background(), "missing.csv")
	require.Error(t, err)
	_, err = l.Load(context.Background(), "../a.csv")
	require.Error(t, err)
}

func TestRemoteLoaderCachesDownloads(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/segments/a.csv" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		_, _ = w.Write([]byte(sampleCSV))
	}))
	t.Cleanup(srv.Close)

	cacheDir := t.TempDir()
	l := NewRemoteLoader(srv.URL+"/segments/", WithCacheDir(cacheDir), WithRecent(0))
	ctx := context.Background()

	rec, err := l.Load(ctx, "a.csv")
	require.NoError(t, err)
	require.Equal(t, 2, rec.Len())
	require.Equal(t, int32(1), hits.Load())

	cached := l.cachePath("a.csv")
	data, err := os.ReadFile(cached)
	require.NoError(t, err)
	require.Equal(t, sampleCSV, string(data))

	_, err = l.Load(ctx, "a.csv")
	require.NoError(t, err)
	require.Equal(t, int32(1), hits.Load(), "second load must come from the disk cache")

	l.Forget("a.csv")
	_, err = os.Stat(cached)
	require.True(t, os.IsNotExist(err))
	_, err = l.Load(ctx, "a.csv")
	require.NoError(t, err)
	require.Equal(t, int32(2), hits.Load())
}

func TestRemoteLoaderKeepsRecentInMemory(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(sampleCSV))
	}))
	t.Cleanup(srv.Close)

	l := NewRemoteLoader(srv.URL)
	for i := 0; i < 3; i++ {
		_, err := l.Load(context.Background(), "a.csv")
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), hits.Load())
}

func TestRemoteLoaderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	cacheDir := t.TempDir()
	l := NewRemoteLoader(srv.URL, WithCacheDir(cacheDir))
	_, err := l.Load(context.Background(), "a.csv")
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")

	entries, err := os.ReadDir(filepath.Dir(l.cachePath("a.csv")))
	require.NoError(t, err)
	require.Empty(t, entries, "failed downloads must not leave files behind")
}
