// Package catalog implements the application catalog engine: fetching and
// caching the per-desktop flatpak lists an image family declares, and
// computing the install/remove reconciliation plan across a switch.
package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/demigrate/demigrate/pkg/errors"
	"github.com/demigrate/demigrate/pkg/logging"
	"github.com/demigrate/demigrate/pkg/types"
)

// IndexFileName is the cache sidecar recording source URLs and fetch times.
const IndexFileName = "index.yaml"

// catalogLinePattern matches one application declaration in the upstream
// line-oriented catalog format: flatpak "<app-id>"
var catalogLinePattern = regexp.MustCompile(`^\s*flatpak\s+"([^"]+)"\s*$`)

// Catalog is a fetched, cached list of application ids declared for one
// desktop environment family.
type Catalog struct {
	DE        types.DesktopEnv
	Apps      []string
	FetchedAt time.Time

	// Stale marks a catalog served from an expired cache after a live
	// fetch failed.
	Stale bool
}

type indexEntry struct {
	URL       string    `yaml:"url"`
	FetchedAt time.Time `yaml:"fetched_at"`
}

// Fetcher fetches catalogs with a time-boxed on-disk cache. The cache is
// process-wide shared state with a lifecycle independent of any backup
// session.
type Fetcher struct {
	cacheDir string
	urls     map[string]string
	ttl      time.Duration
	client   *http.Client
	logger   zerolog.Logger

	// now is swappable for cache-expiry tests
	now func() time.Time
}

// NewFetcher returns a Fetcher caching under cacheDir, resolving each
// desktop environment's catalog from urls, expiring entries after ttl.
func NewFetcher(cacheDir string, urls map[string]string, ttl, timeout time.Duration) *Fetcher {
	return &Fetcher{
		cacheDir: cacheDir,
		urls:     urls,
		ttl:      ttl,
		client:   &http.Client{Timeout: timeout},
		logger:   logging.GetLogger("catalog.fetch"),
		now:      time.Now,
	}
}

// Get returns the catalog for a desktop environment: a fresh cache entry
// when one exists, otherwise a live fetch. When the fetch fails an expired
// cache is served with a staleness warning; with no cache at all the
// operation fails closed rather than returning an empty plan input.
func (f *Fetcher) Get(ctx context.Context, de types.DesktopEnv) (Catalog, error) {
	url, ok := f.urls[string(de)]
	if !ok {
		return Catalog{}, errors.Newf(errors.ErrInvalidInput, "no catalog source configured for %s", de)
	}

	index := f.loadIndex()
	entry, cached := index[string(de)]
	cachePath := f.cachePath(de)

	if cached {
		if _, err := os.Stat(cachePath); err != nil {
			cached = false
		}
	}

	if cached && f.now().Sub(entry.FetchedAt) < f.ttl {
		apps, err := f.readCached(de)
		if err == nil {
			f.logger.Debug().Str("de", string(de)).Time("fetchedAt", entry.FetchedAt).Msg("Using fresh cached catalog")
			return Catalog{DE: de, Apps: apps, FetchedAt: entry.FetchedAt}, nil
		}
		f.logger.Warn().Err(err).Str("de", string(de)).Msg("Cached catalog unreadable, refetching")
		cached = false
	}

	apps, fetchErr := f.fetch(ctx, url)
	if fetchErr == nil {
		f.storeCache(de, url, apps)
		return Catalog{DE: de, Apps: apps, FetchedAt: f.now()}, nil
	}

	if cached {
		apps, err := f.readCached(de)
		if err == nil {
			f.logger.Warn().Str("de", string(de)).Time("fetchedAt", entry.FetchedAt).
				Msg("Catalog fetch failed, using stale cache")
			fmt.Printf("warning: could not refresh %s catalog, using cached copy from %s\n",
				de, entry.FetchedAt.Format(time.RFC3339))
			return Catalog{DE: de, Apps: apps, FetchedAt: entry.FetchedAt, Stale: true}, nil
		}
	}

	return Catalog{}, errors.Wrapf(fetchErr, errors.ErrFetchFailure,
		"failed to fetch %s catalog and no cache exists", de)
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s from %s", resp.Status, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return ParseCatalog(string(body)), nil
}

// ParseCatalog extracts application ids from the line-oriented catalog
// format, deduplicated and sorted.
func ParseCatalog(text string) []string {
	seen := make(map[string]bool)
	var apps []string

	for _, line := range regexp.MustCompile(`\r?\n`).Split(text, -1) {
		m := catalogLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if !seen[m[1]] {
			seen[m[1]] = true
			apps = append(apps, m[1])
		}
	}

	sort.Strings(apps)
	return apps
}

func (f *Fetcher) cachePath(de types.DesktopEnv) string {
	return filepath.Join(f.cacheDir, string(de)+".list")
}

func (f *Fetcher) indexPath() string {
	return filepath.Join(f.cacheDir, IndexFileName)
}

func (f *Fetcher) loadIndex() map[string]indexEntry {
	index := make(map[string]indexEntry)

	data, err := os.ReadFile(f.indexPath())
	if err != nil {
		return index
	}
	if err := yaml.Unmarshal(data, &index); err != nil {
		f.logger.Warn().Err(err).Msg("Malformed catalog cache index, ignoring")
		return make(map[string]indexEntry)
	}
	return index
}

func (f *Fetcher) readCached(de types.DesktopEnv) ([]string, error) {
	data, err := os.ReadFile(f.cachePath(de))
	if err != nil {
		return nil, err
	}
	return ParseCatalog(string(data)), nil
}

// CacheEntry describes one cached catalog for status display.
type CacheEntry struct {
	DE        string
	URL       string
	FetchedAt time.Time
}

// CacheEntries reads the cache index sidecar. Returns nil when no cache
// exists.
func CacheEntries(cacheDir string) []CacheEntry {
	data, err := os.ReadFile(filepath.Join(cacheDir, IndexFileName))
	if err != nil {
		return nil
	}

	index := make(map[string]indexEntry)
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil
	}

	var entries []CacheEntry
	for de, e := range index {
		entries = append(entries, CacheEntry{DE: de, URL: e.URL, FetchedAt: e.FetchedAt})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].DE < entries[j].DE })
	return entries
}

// storeCache persists a fetched catalog and updates the index sidecar.
// Cache write failures only log; the fetched data is still usable.
func (f *Fetcher) storeCache(de types.DesktopEnv, url string, apps []string) {
	if err := os.MkdirAll(f.cacheDir, 0755); err != nil {
		f.logger.Warn().Err(err).Msg("Cannot create catalog cache directory")
		return
	}

	var content string
	for _, app := range apps {
		content += fmt.Sprintf("flatpak %q\n", app)
	}
	if err := os.WriteFile(f.cachePath(de), []byte(content), 0644); err != nil {
		f.logger.Warn().Err(err).Msg("Cannot write catalog cache")
		return
	}

	index := f.loadIndex()
	index[string(de)] = indexEntry{URL: url, FetchedAt: f.now()}

	data, err := yaml.Marshal(index)
	if err == nil {
		err = os.WriteFile(f.indexPath(), data, 0644)
	}
	if err != nil {
		f.logger.Warn().Err(err).Msg("Cannot write catalog cache index")
	}
}
