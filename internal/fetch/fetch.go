// Package fetch downloads problem files from a TSPLIB mirror into a local
// cache.
package fetch

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTTL is how long a cached file is trusted before it is downloaded again.
const DefaultTTL = 24 * time.Hour

// ErrUnknownKind is returned for names whose extension maps to no mirror directory.
var ErrUnknownKind = errors.New("fetch: cannot tell mirror directory from file name")

// mirrorDirs maps file extensions to the mirror's per-kind directories.
var mirrorDirs = map[string]string{
	".tsp":  "tsp",
	".tour": "tsp",
	".atsp": "atsp",
	".vrp":  "vrp",
	".hcp":  "hcp",
	".sop":  "sop",
}

// Result is the outcome of fetching one name.
type Result struct {
	Name string
	URL  string
	// Path is the decompressed file in the cache.
	Path   string
	Cached bool
	Err    error
}

// Fetcher handles parallel downloads into cacheDir.
type Fetcher struct {
	mirror   string
	cacheDir string
	workers  int
	ttl      time.Duration
	client   *http.Client
	logger   *zap.Logger
}

// NewFetcher creates a fetcher with the given number of parallel workers.
func NewFetcher(mirror, cacheDir string, workers int, logger *zap.Logger) *Fetcher {
	if workers < 1 {
		workers = 1
	}
	return &Fetcher{
		mirror:   strings.TrimSuffix(mirror, "/"),
		cacheDir: cacheDir,
		workers:  workers,
		ttl:      DefaultTTL,
		client:   &http.Client{Timeout: 2 * time.Minute},
		logger:   logger,
	}
}

// URL returns the mirror location of name, e.g. <mirror>/tsp/a280.tsp.gz.
func (f *Fetcher) URL(name string) (string, error) {
	ext := filepath.Ext(strings.TrimSuffix(name, ".gz"))
	dir, ok := mirrorDirs[strings.ToLower(ext)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, name)
	}
	return fmt.Sprintf("%s/%s/%s.gz", f.mirror, dir, strings.TrimSuffix(name, ".gz")), nil
}

// CachePath returns where name is stored once fetched.
func (f *Fetcher) CachePath(name string) string {
	return filepath.Join(f.cacheDir, strings.TrimSuffix(filepath.Base(name), ".gz"))
}

// Fetch downloads names in parallel. Results are in input order.
func (f *Fetcher) Fetch(ctx context.Context, names []string) []Result {
	results := make([]Result, len(names))
	if err := os.MkdirAll(f.cacheDir, 0755); err != nil {
		for i, name := range names {
			results[i] = Result{Name: name, Err: fmt.Errorf("creating cache dir: %w", err)}
		}
		return results
	}

	jobs := make(chan int, len(names))
	var wg sync.WaitGroup
	for w := 0; w < f.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = f.fetchOne(ctx, names[i])
			}
		}()
	}

	for i := range names {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func (f *Fetcher) fetchOne(ctx context.Context, name string) Result {
	res := Result{Name: name, Path: f.CachePath(name)}

	url, err := f.URL(name)
	if err != nil {
		res.Err = err
		return res
	}
	res.URL = url

	if f.isFresh(res.Path) {
		res.Cached = true
		f.logger.Debug("using cached file", zap.String("name", name), zap.String("path", res.Path))
		return res
	}

	if err := f.download(ctx, url, res.Path); err != nil {
		res.Err = err
		f.logger.Warn("download failed", zap.String("name", name), zap.Error(err))
		return res
	}
	f.logger.Info("downloaded", zap.String("name", name), zap.String("url", url))
	return res
}

func (f *Fetcher) isFresh(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < f.ttl
}

func (f *Fetcher) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: HTTP %d", url, resp.StatusCode)
	}

	gzReader, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("decompressing %s: %w", url, err)
	}
	defer gzReader.Close()

	// Write to temp file first, then rename
	out, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	tmpPath := out.Name()

	_, err = io.Copy(out, gzReader)
	out.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing file: %w", err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming file: %w", err)
	}
	return nil
}
