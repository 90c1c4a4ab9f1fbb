package helpers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"

	"golang.org/x/net/html/charset"

	perrors "sjsage522/productresolver/pkg/errors"
)

// FetchUTF8 sends an HTTP GET with the given headers, converts the response
// body to UTF-8 (marketplace pages are frequently GBK), and returns it.
// Throttling responses (429/430/503) and non-200 statuses come back as
// typed errors so callers can decide whether to retry.
func FetchUTF8(ctx context.Context, client *http.Client, rawURL string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, perrors.NewFetch("", fmt.Sprintf("failed to fetch %s", rawURL), err)
	}
	defer resp.Body.Close()

	if slices.Contains([]int{http.StatusTooManyRequests, 430, http.StatusServiceUnavailable}, resp.StatusCode) {
		return nil, perrors.NewRateLimit("", resp.Header.Get("Retry-After"))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, perrors.NewFetch("", fmt.Sprintf("unexpected status code: %d for %s", resp.StatusCode, rawURL), nil)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// Determine the encoding from Content-Type header and body content
	encoding, name, _ := charset.DetermineEncoding(bodyBytes, resp.Header.Get("Content-Type"))

	// If already UTF-8, return as is
	if name == "utf-8" || name == "UTF-8" {
		return bodyBytes, nil
	}

	// Convert to UTF-8 if necessary
	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(bodyBytes))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, fmt.Errorf("failed to read converted UTF-8 body: %w", err)
	}

	return buf.Bytes(), nil
}
