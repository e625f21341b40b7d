package remotesource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	pmagentspec "github.com/Azure/PMAgent-Spec"
)

// HTTPFetcher performs one GET per call against absolute mirror URLs.
// Only 200 OK is a success; 404 returns a *StatusError matching ErrNotFound;
// any other status returns ErrFetchFailed wrapping a *StatusError.
var _ pmagentspec.RemoteReader = (*HTTPFetcher)(nil)

// DefaultMaxBodySize limits a document body (4 MiB); spec documents are small markdown/YAML files.
const DefaultMaxBodySize = 4 << 20

// defaultUserAgent is the User-Agent header value for HTTP requests.
const defaultUserAgent = "pmagent-spec/1.0"

// HTTPFetcher holds the client and request settings. Safe for concurrent use.
type HTTPFetcher struct {
	httpClient  *http.Client
	userAgent   string
	maxBodySize int64
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(opts ...Option) *HTTPFetcher {
	h := &HTTPFetcher{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		userAgent:   defaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Get fetches rawURL and returns the body of a 200 response.
func (h *HTTPFetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse URL: %w", ErrFetchFailed, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %w: %q", ErrFetchFailed, ErrUnsupportedScheme, rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", h.userAgent)
	resp, err := h.httpClient.Do(req) // #nosec G107 -- URL is built by Locator from the configured mirror base
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status, URL: rawURL}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, &StatusError{Code: resp.StatusCode, Status: resp.Status, URL: rawURL})
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrFetchFailed, err)
	}
	if int64(len(data)) > h.maxBodySize {
		return nil, fmt.Errorf("%w: %w: %d bytes", ErrFetchFailed, ErrBodyTooLarge, h.maxBodySize)
	}
	return data, nil
}
