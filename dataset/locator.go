package dataset

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/afridata/datalayer/cache"
)

// LocatorConfig carries the locator's filesystem and remote settings.
type LocatorConfig struct {
	// BasePath is the root of the local partition tree. Partitions live at
	// <BasePath>/<domain>[/<country>]/<name>.parquet.
	BasePath string
	// RemoteURL enables the remote fallback; empty disables it.
	RemoteURL string
	// FetchTTL is the fresh window for remotely fetched bytes.
	FetchTTL time.Duration
}

// Locator resolves a dataset reference to an ordered list of parquet
// files. Local partitions win; otherwise it fetches the dataset's latest
// remote snapshot through the cache store.
type Locator struct {
	cfg     LocatorConfig
	store   *cache.Store
	client  *http.Client
	bearer  string
	oauth   *clientcredentials.Config
	log     zerolog.Logger
	onFetch func(Domain)
}

// LocatorOption configures a Locator.
type LocatorOption func(*Locator)

func WithHTTPClient(h *http.Client) LocatorOption {
	return func(l *Locator) { l.client = h }
}

func WithLocatorLogger(log zerolog.Logger) LocatorOption {
	return func(l *Locator) { l.log = log }
}

// WithBearerToken sends a static bearer token on remote fetches.
func WithBearerToken(token string) LocatorOption {
	return func(l *Locator) { l.bearer = token }
}

// WithClientCredentials authenticates remote fetches with the OAuth2
// client-credentials flow instead of a static token.
func WithClientCredentials(clientID, clientSecret, tokenURL string) LocatorOption {
	return func(l *Locator) {
		l.oauth = &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
		}
	}
}

// WithFetchHook registers a callback invoked once per remote HTTP fetch.
func WithFetchHook(fn func(Domain)) LocatorOption {
	return func(l *Locator) { l.onFetch = fn }
}

// NewLocator builds a Locator on store. The store holds remotely fetched
// partition bytes keyed by their URL.
func NewLocator(store *cache.Store, cfg LocatorConfig, opts ...LocatorOption) *Locator {
	l := &Locator{
		cfg:    cfg,
		store:  store,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    zerolog.Nop(),
	}
	for _, o := range opts {
		o(l)
	}
	if l.oauth != nil {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, l.client)
		l.client = l.oauth.Client(ctx)
	}
	return l
}

// Resolve returns the parquet files backing ref, sorted ascending by path
// so downstream scans consume partitions in a deterministic order.
func (l *Locator) Resolve(ctx context.Context, ref Ref) ([]string, error) {
	paths, err := l.localPaths(ref)
	if err != nil {
		return nil, err
	}
	if len(paths) > 0 {
		return paths, nil
	}
	if l.cfg.RemoteURL == "" {
		return nil, notFound(ref.Domain, "no partitions found", nil)
	}
	path, err := l.fetchRemote(ctx, ref)
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}

// localPaths walks the domain's directory for parquet partitions. When the
// ref names a country and a matching subdirectory exists, the walk narrows
// to it; otherwise the whole domain tree is considered and country
// correctness is left to the row filters.
func (l *Locator) localPaths(ref Ref) ([]string, error) {
	root := filepath.Join(l.cfg.BasePath, ref.Domain.Dir())
	if ref.Country != "" {
		narrowed := filepath.Join(root, ref.Country)
		if info, err := os.Stat(narrowed); err == nil && info.IsDir() {
			root = narrowed
		}
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".parquet") {
			return nil
		}
		if keepPartition(d.Name(), ref.HintFrom, ref.HintTo) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, badData(ref.Domain, "listing local partitions failed", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// keepPartition applies date hints to a partition filename. Only stems
// that parse as ISO dates are filtered; any other name always matches.
func keepPartition(name, from, to string) bool {
	if from == "" && to == "" {
		return true
	}
	stem := strings.TrimSuffix(name, ".parquet")
	if _, err := time.Parse("2006-01-02", stem); err != nil {
		return true
	}
	if from != "" && stem < from {
		return false
	}
	if to != "" && stem > to {
		return false
	}
	return true
}

// fetchRemote serves the dataset's latest snapshot from the byte cache, or
// downloads, validates, and caches it. A cache write failure degrades to a
// temp file so the request still succeeds.
func (l *Locator) fetchRemote(ctx context.Context, ref Ref) (string, error) {
	u := l.remoteURL(ref)
	if path, ok := l.store.GetBytes(u); ok {
		return path, nil
	}

	data, err := l.download(ctx, ref.Domain, u)
	if err != nil {
		return "", err
	}
	if err := ValidateBytes(ref.Domain, data); err != nil {
		return "", err
	}

	path, err := l.store.PutBytes(u, data, l.cfg.FetchTTL)
	if err != nil {
		l.log.Warn().Err(err).Str("dataset", string(ref.Domain)).Msg("caching fetched partition failed")
		return writeTempPartition(ref.Domain, data)
	}
	return path, nil
}

func (l *Locator) remoteURL(ref Ref) string {
	parts := []string{strings.TrimSuffix(l.cfg.RemoteURL, "/"), ref.Domain.Dir()}
	if ref.Country != "" {
		parts = append(parts, url.PathEscape(ref.Country))
	}
	parts = append(parts, "latest.parquet")
	return strings.Join(parts, "/")
}

func (l *Locator) download(ctx context.Context, domain Domain, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, notFound(domain, "building remote request failed", err)
	}
	if l.bearer != "" && l.oauth == nil {
		req.Header.Set("Authorization", "Bearer "+l.bearer)
	}

	if l.onFetch != nil {
		l.onFetch(domain)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, notFound(domain, "remote fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, notFound(domain, fmt.Sprintf("remote returned status %d", resp.StatusCode), nil)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, notFound(domain, "reading remote response failed", err)
	}
	return data, nil
}

func writeTempPartition(domain Domain, data []byte) (string, error) {
	f, err := os.CreateTemp("", string(domain)+"-*.parquet")
	if err != nil {
		return "", badData(domain, "materializing fetched partition failed", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", badData(domain, "materializing fetched partition failed", err)
	}
	if err := f.Close(); err != nil {
		return "", badData(domain, "materializing fetched partition failed", err)
	}
	return f.Name(), nil
}
