package resolver

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Response is one hop's worth of transport result. Body is capped; the
// resolver only inspects status and Location, the fetcher re-reads pages
// through its own path.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport issues a single GET without following redirects, so each hop
// of a short-link chain can be inspected individually.
type Transport interface {
	Get(ctx context.Context, rawURL string, header http.Header) (*Response, error)
}

// HTTPTransport is the default Transport over net/http.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates a transport with automatic redirect following
// disabled and the given per-request timeout.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

const maxHopBodyBytes = 1 << 20

// Get implements Transport.
func (t *HTTPTransport) Get(ctx context.Context, rawURL string, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHopBodyBytes))
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
