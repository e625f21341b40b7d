package remotesource

import "net/http"

// Option configures HTTPFetcher.
type Option func(*HTTPFetcher)

// WithHTTPClient sets the HTTP client. Default has a 30s timeout. If c is nil, the default client is left unchanged.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPFetcher) {
		if c != nil {
			h.httpClient = c
		}
	}
}

// WithUserAgent sets the User-Agent header. An empty value keeps the default.
func WithUserAgent(ua string) Option {
	return func(h *HTTPFetcher) {
		if ua != "" {
			h.userAgent = ua
		}
	}
}

// WithMaxBodySize limits how many bytes of a response body are accepted.
// Values <= 0 keep the default (DefaultMaxBodySize).
func WithMaxBodySize(n int64) Option {
	return func(h *HTTPFetcher) {
		if n > 0 {
			h.maxBodySize = n
		}
	}
}
