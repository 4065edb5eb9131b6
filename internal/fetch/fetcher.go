package fetch

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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sony/gobreaker"
)

// StationPlaceholder is replaced by the station code in the URL template.
const StationPlaceholder = "{station}"

// ErrDisabled is returned when no source URL is configured.
var ErrDisabled = errors.New("raw export download is not configured")

// Settings configure where raw exports come from and go to.
type Settings struct {
	// URLTemplate is the download URL with a {station} placeholder.
	URLTemplate string
	RawDir      string
	Backoff     BackoffConfig
	// Parallel bounds concurrent downloads in FetchAll.
	Parallel int
}

// Fetcher downloads raw station exports into the raw directory.
type Fetcher struct {
	settings Settings
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
	logger   *zap.Logger
}

// NewFetcher creates a new Fetcher.
func NewFetcher(client *http.Client, settings Settings, logger *zap.Logger) *Fetcher {
	backoff := settings.Backoff
	if backoff.InitialInterval <= 0 {
		backoff = DefaultBackoff
	}
	if settings.Parallel <= 0 {
		settings.Parallel = 4
	}
	return &Fetcher{
		settings: settings,
		httpCfg:  HTTPClientConfig{Client: client, Backoff: backoff},
		circuit:  newCircuitBreaker("raw-exports"),
		logger:   logger,
	}
}

// Enabled reports whether a source URL is configured.
func (f *Fetcher) Enabled() bool {
	return f.settings.URLTemplate != ""
}

// URL returns the download URL of station.
func (f *Fetcher) URL(station string) string {
	return strings.ReplaceAll(f.settings.URLTemplate, StationPlaceholder, url.PathEscape(station))
}

// Fetch downloads the export of station to raw/<station>.csv and returns the
// written path. The previous file is only replaced after a complete download.
func (f *Fetcher) Fetch(ctx context.Context, station string) (string, error) {
	if !f.Enabled() {
		return "", ErrDisabled
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, f.URL(station), nil)
	}

	resp, err := doRequestWithResilience(ctx, f.httpCfg, f.circuit, buildRequest)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", station, err)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(f.settings.RawDir, 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(f.settings.RawDir, station+"-*.part")
	if err != nil {
		return "", err
	}
	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("fetch %s: %w", station, err)
	}

	dst := filepath.Join(f.settings.RawDir, station+".csv")
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	f.logger.Info("downloaded raw export",
		zap.String("station", station),
		zap.String("path", dst),
		zap.Int64("bytes", n))
	return dst, nil
}

// FetchAll downloads every station concurrently. It stops at the first
// failure.
func (f *Fetcher) FetchAll(ctx context.Context, stations []string) error {
	if !f.Enabled() {
		return ErrDisabled
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.settings.Parallel)
	for _, station := range stations {
		station := station
		g.Go(func() error {
			if _, err := f.Fetch(ctx, station); err != nil {
				f.logger.Error("raw export download failed", zap.String("station", station), zap.Error(err))
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
