package signal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/verte-zerg/segmark/internal/model"
)

const defaultRecent = 8

// Loader loads recordings by name from a remote base URL or a local directory.
type Loader struct {
	baseURL  string
	dir      string
	cacheDir string
	client   *http.Client
	recent   *lru.Cache[string, model.Recording]
	logger   *zap.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithCacheDir stores remote downloads under dir and reuses them on later loads.
func WithCacheDir(dir string) Option {
	return func(l *Loader) { l.cacheDir = dir }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// WithRecent keeps the n most recently decoded recordings in memory; 0 disables it.
func WithRecent(n int) Option {
	return func(l *Loader) {
		l.recent = nil
		if n > 0 {
			l.recent, _ = lru.New[string, model.Recording](n)
		}
	}
}

// NewRemoteLoader loads recordings from baseURL + "/" + name.
func NewRemoteLoader(baseURL string, opts ...Option) *Loader {
	l := newLoader(opts)
	l.baseURL = strings.TrimRight(baseURL, "/")
	return l
}

// NewDirLoader loads recordings from files in dir.
func NewDirLoader(dir string, opts ...Option) *Loader {
	l := newLoader(opts)
	l.dir = dir
	return l
}

func newLoader(opts []Option) *Loader {
	l := &Loader{
		client: &http.Client{Timeout: 5 * time.Minute},
		logger: zap.NewNop(),
	}
	WithRecent(defaultRecent)(l)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the recording called name.
func (l *Loader) Load(ctx context.Context, name string) (model.Recording, error) {
	if err := validName(name); err != nil {
		return model.Recording{}, err
	}
	if l.recent != nil {
		if rec, ok := l.recent.Get(name); ok {
			l.logger.Debug("recording served from memory", zap.String("recording", name))
			return rec, nil
		}
	}
	start := time.Now()
	rec, err := l.load(ctx, name)
	if err != nil {
		return model.Recording{}, fmt.Errorf("failed to load %s: %w", name, err)
	}
	l.logger.Info("recording loaded",
		zap.String("recording", name),
		zap.Int("samples", rec.Len()),
		zap.Int64("bytes", rec.Size),
		zap.Duration("elapsed", time.Since(start)),
	)
	if l.recent != nil {
		l.recent.Add(name, rec)
	}
	return rec, nil
}

// Forget drops name from memory and from the download cache.
func (l *Loader) Forget(name string) {
	if l.recent != nil {
		l.recent.Remove(name)
	}
	if path := l.cachePath(name); path != "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("failed to remove cached recording", zap.String("path", path), zap.Error(err))
		}
	}
}

func (l *Loader) load(ctx context.Context, name string) (model.Recording, error) {
	if l.baseURL == "" {
		return decodeFile(name, filepath.Join(l.dir, name))
	}
	path := l.cachePath(name)
	if path == "" {
		return l.fetch(ctx, name, nil)
	}
	if _, err := os.Stat(path); err == nil {
		rec, err := decodeFile(name, path)
		if err == nil {
			return rec, nil
		}
		l.logger.Warn("cached recording unreadable, downloading again", zap.String("path", path), zap.Error(err))
	} else if !errors.Is(err, os.ErrNotExist) {
		return model.Recording{}, fmt.Errorf("failed to stat cached recording: %w", err)
	}
	return l.download(ctx, name, path)
}

// download fetches name into path through a temp file, then decodes it.
func (l *Loader) download(ctx context.Context, name, path string) (model.Recording, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return model.Recording{}, fmt.Errorf("failed to create cache dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "recording-*.csv")
	if err != nil {
		return model.Recording{}, fmt.Errorf("failed to create temp recording: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	rec, err := l.fetch(ctx, name, tmpFile)
	if err != nil {
		return model.Recording{}, err
	}
	if err := tmpFile.Close(); err != nil {
		return model.Recording{}, fmt.Errorf("failed to close temp recording: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return model.Recording{}, fmt.Errorf("failed to move recording into cache: %w", err)
	}
	return rec, nil
}

// fetch downloads and decodes name; the raw bytes are copied to sink when non-nil.
func (l *Loader) fetch(ctx context.Context, name string, sink io.Writer) (model.Recording, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/"+url.PathEscape(name), http.NoBody)
	if err != nil {
		return model.Recording{}, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return model.Recording{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return model.Recording{}, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	var body io.Reader = resp.Body
	if sink != nil {
		body = io.TeeReader(resp.Body, sink)
	}
	return Decode(name, body)
}

func (l *Loader) cachePath(name string) string {
	if l.baseURL == "" || l.cacheDir == "" {
		return ""
	}
	return filepath.Join(l.cacheDir, url.PathEscape(l.baseURL), name)
}

func decodeFile(name, path string) (model.Recording, error) {
	file, err := os.Open(path)
	if err != nil {
		return model.Recording{}, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only recording.
			_ = cerr
		}
	}()
	return Decode(name, file)
}

func validName(name string) error {
	if name == "" {
		return fmt.Errorf("recording name is empty")
	}
	if name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid recording name %q", name)
	}
	return nil
}
