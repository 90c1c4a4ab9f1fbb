package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"sjsage522/productresolver/config"
	"sjsage522/productresolver/helpers"
	"sjsage522/productresolver/internal/platform"
	"sjsage522/productresolver/logger"
	perrors "sjsage522/productresolver/pkg/errors"
)

// Result is a fetched product page, already converted to UTF-8. URL may
// differ from the requested URL when a mobile link was rewritten to its
// desktop equivalent.
type Result struct {
	HTML string
	URL  string
}

// Fetcher retrieves product pages with browser-like headers, bounded
// retries and a shared outbound rate limit.
type Fetcher struct {
	client      *http.Client
	limiter     *rate.Limiter
	retries     int
	baseWait    time.Duration
	minPageSize int
	log         *logger.Logger
}

// New creates a Fetcher from the application configuration.
func New(cfg *config.Config) *Fetcher {
	return &Fetcher{
		client:      &http.Client{Timeout: cfg.HTTPTimeout},
		limiter:     rate.NewLimiter(rate.Limit(cfg.FetchRate), cfg.FetchBurst),
		retries:     cfg.FetchRetries,
		baseWait:    cfg.FetchBaseWait,
		minPageSize: cfg.MinPageSize,
		log:         logger.ForFetcher(),
	}
}

var jdMobilePattern = regexp.MustCompile(`item\.m\.jd\.com/product/(\d+)\.html`)

// RewriteMobileURL maps known mobile product URLs to their desktop
// equivalents, which carry far more extractable markup. It returns the
// URL unchanged when no rewrite applies.
func RewriteMobileURL(rawURL string) (string, bool) {
	if m := jdMobilePattern.FindStringSubmatch(rawURL); len(m) > 1 {
		return fmt.Sprintf("https://item.jd.com/%s.html", m[1]), true
	}
	return rawURL, false
}

// Fetch retrieves the product page for a resolved URL. It retries
// transient failures with linear backoff and, for rewritten mobile
// links, retries an invalid page once with mobile headers before
// giving up.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, desc *platform.Descriptor) (*Result, *perrors.ResolveError) {
	platformKey := ""
	if desc != nil {
		platformKey = desc.Key
	}

	fetchURL, rewritten := RewriteMobileURL(rawURL)
	if rewritten {
		f.log.WithFields(logger.Fields{"from": rawURL, "to": fetchURL}).Debug().Msg("Rewrote mobile url")
	}

	header := platform.Headers(desc)
	triedAltHeaders := false
	var lastErr *perrors.ResolveError

	for attempt := 1; attempt <= f.retries; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, perrors.NewTimeout(platformKey, "cancelled while waiting for rate limiter", err)
		}

		body, err := helpers.FetchUTF8(ctx, f.client, fetchURL, header)
		if err != nil {
			lastErr = f.typed(platformKey, fetchURL, err)
			if !lastErr.IsRetryable() || attempt == f.retries {
				return nil, lastErr
			}
			f.log.WithError(lastErr).WithFields(logger.Fields{
				"url":     fetchURL,
				"attempt": attempt,
			}).Warn().Msg("Fetch failed, retrying")
			if werr := f.wait(ctx, attempt); werr != nil {
				return nil, perrors.NewTimeout(platformKey, "cancelled during retry backoff", werr)
			}
			continue
		}

		html := string(body)
		if verr := ValidatePage(html, platformKey, f.minPageSize); verr != nil {
			// Desktop pages rewritten from mobile links sometimes bounce
			// to an app-gate; one retry with mobile headers gets the real
			// page often enough to be worth it.
			if rewritten && !triedAltHeaders {
				triedAltHeaders = true
				lastErr = verr
				header = mobileHeaders(desc)
				f.log.WithField("url", fetchURL).Debug().Msg("Invalid page, retrying with mobile headers")
				continue
			}
			return nil, verr
		}

		return &Result{HTML: html, URL: fetchURL}, nil
	}

	if lastErr == nil {
		lastErr = perrors.NewFetch(platformKey, "fetch attempts exhausted for "+fetchURL, nil)
	}
	return nil, lastErr
}

// typed maps transport errors to the error taxonomy, distinguishing
// timeouts from other fetch failures.
func (f *Fetcher) typed(platformKey, url string, err error) *perrors.ResolveError {
	re := perrors.AsResolveError(err)
	if re.Platform == "" {
		re.Platform = platformKey
	}
	if re.Type == perrors.ErrorTypeFetch && isTimeout(err) {
		return perrors.NewTimeout(platformKey, "request timed out for "+url, err)
	}
	return re
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if strings.Contains(err.Error(), "context deadline exceeded") {
		return true
	}
	return strings.Contains(err.Error(), "Client.Timeout exceeded")
}

func (f *Fetcher) wait(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(attempt) * f.baseWait):
		return nil
	}
}

// mobileHeaders builds a mobile variant of the platform headers for the
// alt-header retry.
func mobileHeaders(desc *platform.Descriptor) http.Header {
	h := platform.Headers(desc)
	h.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 14_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0.3 Mobile/15E148 Safari/604.1")
	return h
}
