package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrutineer-app/scrutineer/internal/application"
	"github.com/scrutineer-app/scrutineer/internal/ports"
)

func testFetchConfig() application.FetchConfig {
	return application.FetchConfig{
		TimeoutSeconds:    5,
		MaxBodyBytes:      1024,
		RequestsPerSecond: 100,
		Burst:             10,
	}
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>results</html>"))
	}))
	defer ts.Close()

	fetcher := NewHTTPFetcher(testFetchConfig())

	body, err := fetcher.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>results</html>", string(body))
}

func TestHTTPFetcher_Fetch_BodyTooLarge(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer ts.Close()

	fetcher := NewHTTPFetcher(testFetchConfig())

	_, err := fetcher.Fetch(context.Background(), ts.URL)
	assert.ErrorIs(t, err, ports.ErrBodyTooLarge)
}

func TestHTTPFetcher_Fetch_ExactlyAtLimit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(make([]byte, 1024))
	}))
	defer ts.Close()

	fetcher := NewHTTPFetcher(testFetchConfig())

	body, err := fetcher.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Len(t, body, 1024)
}

func TestHTTPFetcher_Fetch_NonOKStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	fetcher := NewHTTPFetcher(testFetchConfig())

	_, err := fetcher.Fetch(context.Background(), ts.URL)
	assert.ErrorIs(t, err, ports.ErrFetchFailed)
}

func TestHTTPFetcher_Fetch_RejectsNonHTTPSchemes(t *testing.T) {
	fetcher := NewHTTPFetcher(testFetchConfig())

	tests := []string{
		"ftp://example.com/results.html",
		"file:///etc/passwd",
		"not a url at all",
	}
	for _, source := range tests {
		_, err := fetcher.Fetch(context.Background(), source)
		assert.ErrorIs(t, err, ports.ErrFetchFailed, "source %q should be rejected", source)
	}
}

func TestHTTPFetcher_Fetch_CancelledContext(t *testing.T) {
	fetcher := NewHTTPFetcher(testFetchConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fetcher.Fetch(ctx, "https://example.com/results.html")
	assert.ErrorIs(t, err, ports.ErrFetchFailed)
}
