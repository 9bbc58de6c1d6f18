package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/scrutineer-app/scrutineer/internal/application"
	"github.com/scrutineer-app/scrutineer/internal/ports"
)

// Compile-time verification that HTTPFetcher implements Fetcher.
var _ ports.Fetcher = (*HTTPFetcher)(nil)

// HTTPFetcher downloads scoresheets over HTTP with an outbound rate
// limit and a response size cap. Result sites are small community-run
// services; the limiter keeps the analyzer from hammering them.
type HTTPFetcher struct {
	client       *http.Client
	limiter      *rate.Limiter
	maxBodyBytes int64
}

// NewHTTPFetcher creates a fetcher from the fetch configuration.
func NewHTTPFetcher(cfg application.FetchConfig) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		limiter:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// Fetch downloads the content at the URL. Only http and https schemes
// are allowed; a body larger than the configured cap returns
// ErrBodyTooLarge.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL %q: %v", ports.ErrFetchFailed, rawURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ports.ErrFetchFailed, parsed.Scheme)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrFetchFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", "scrutineer/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ports.ErrFetchFailed, rawURL, resp.StatusCode)
	}

	// Read one byte past the cap so an exactly-capped body is
	// distinguishable from an oversized one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ports.ErrFetchFailed, err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, fmt.Errorf("%w: limit %d bytes", ports.ErrBodyTooLarge, f.maxBodyBytes)
	}
	return body, nil
}
