package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"sjsage522/productresolver/config"
	"sjsage522/productresolver/helpers"
	"sjsage522/productresolver/internal/platform"
	"sjsage522/productresolver/logger"
	perrors "sjsage522/productresolver/pkg/errors"
	"sjsage522/productresolver/services/cache"
)

// Resolved is the outcome of resolving one raw link: the canonical URL a
// fetcher should request, the platform that owns it, and the full hop
// chain that led there.
type Resolved struct {
	OriginalURL  string            `json:"originalUrl"`
	FinalURL     string            `json:"finalUrl"`
	PlatformKey  string            `json:"platform"`
	IsShortLink  bool              `json:"isShortLink"`
	RedirectPath []string          `json:"redirectPath"`
	Params       map[string]string `json:"params"`
	HopLimitHit  bool              `json:"hopLimitHit"`
	Warning      string            `json:"warning,omitempty"`
}

// Platform returns the descriptor for the resolved platform key.
func (r *Resolved) Platform() *platform.Descriptor {
	return platform.Get(r.PlatformKey)
}

// Resolver turns raw marketplace links (including affiliate short links)
// into canonical product URLs by following redirect chains hop by hop.
type Resolver struct {
	transport Transport
	cacheSvc  cache.CacheService
	cacheTTL  time.Duration
	maxHops   int
	hopDelay  time.Duration
	log       *logger.Logger
}

// New creates a Resolver. cacheSvc may be nil, in which case every call
// resolves from scratch.
func New(transport Transport, cacheSvc cache.CacheService, cfg *config.Config) *Resolver {
	return &Resolver{
		transport: transport,
		cacheSvc:  cacheSvc,
		cacheTTL:  cfg.ResolveCacheTTL,
		maxHops:   cfg.MaxRedirectHops,
		hopDelay:  cfg.RedirectHopDelay,
		log:       logger.ForResolver(),
	}
}

// trackingKeepList holds query parameters that survive URL cleaning.
// Matching is exact or substring on the lowercased key, so skuId and
// item_id both survive while spm, scm and utm_* are stripped.
var trackingKeepList = []string{"id", "goods_id", "skuid", "sku", "item_id", "sign"}

// CleanURL normalizes a raw link: trims whitespace, defaults a missing
// scheme to https, and strips tracking query parameters.
func CleanURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", errors.New("empty url")
	}
	if strings.HasPrefix(s, "//") {
		s = "https:" + s
	} else if !strings.Contains(s, "://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	if u.Host == "" || !strings.Contains(u.Host, ".") {
		return "", errors.New("no recognizable host")
	}

	query := u.Query()
	kept := url.Values{}
	for key, values := range query {
		if keepParam(key) {
			kept[key] = values
		}
	}
	u.RawQuery = kept.Encode()

	return u.String(), nil
}

func keepParam(key string) bool {
	lower := strings.ToLower(key)
	for _, keep := range trackingKeepList {
		if lower == keep || strings.Contains(lower, keep) {
			return true
		}
	}
	return false
}

// Resolve resolves one raw link. Validation and unsupported-platform
// failures are fatal; transport trouble while following redirects
// degrades to the cleaned URL with a warning so callers can still try
// fetching it directly.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (*Resolved, *perrors.ResolveError) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, perrors.NewValidation("url is empty")
	}

	cacheKey := "resolve:" + helpers.HashString(rawURL)
	if r.cacheSvc != nil {
		if data, err := r.cacheSvc.Get(cacheKey); err == nil && data != nil {
			var cached Resolved
			if err := json.Unmarshal(data, &cached); err == nil {
				r.log.WithField("url", rawURL).Debug().Msg("Resolve cache hit")
				return &cached, nil
			}
		}
	}

	cleaned, err := CleanURL(rawURL)
	if err != nil {
		return nil, perrors.NewValidation("invalid url: " + rawURL)
	}

	desc := platform.Identify(cleaned)
	if desc == nil {
		return nil, perrors.NewUnsupportedPlatform(cleaned)
	}

	resolved := &Resolved{
		OriginalURL:  rawURL,
		PlatformKey:  desc.Key,
		IsShortLink:  platform.IsShortLink(cleaned),
		RedirectPath: []string{rawURL},
	}
	if cleaned != rawURL {
		resolved.RedirectPath = append(resolved.RedirectPath, cleaned)
	}

	finalURL := cleaned
	if resolved.IsShortLink {
		finalURL = r.followRedirects(ctx, cleaned, desc, resolved)
	}
	resolved.FinalURL = finalURL

	// The chain may land on a different platform than the short-link
	// domain suggested (e.g. e.tb.cn resolving to a Tmall detail page).
	if finalDesc := platform.Identify(finalURL); finalDesc != nil {
		desc = finalDesc
		resolved.PlatformKey = finalDesc.Key
	}
	resolved.Params = platform.ExtractParams(finalURL, desc)

	r.log.WithFields(logger.Fields{
		"url":      rawURL,
		"final":    resolved.FinalURL,
		"platform": resolved.PlatformKey,
		"hops":     len(resolved.RedirectPath) - 1,
	}).Debug().Msg("Resolved url")

	// Degraded and hop-limited results stay uncached so a later attempt
	// can resolve the chain fully.
	if r.cacheSvc != nil && resolved.Warning == "" && !resolved.HopLimitHit {
		if data, err := json.Marshal(resolved); err == nil {
			if err := r.cacheSvc.Set(cacheKey, data, r.cacheTTL); err != nil {
				r.log.WithError(err).Warn().Msg("Failed to cache resolve result")
			}
		}
	}

	return resolved, nil
}

// followRedirects walks the redirect chain one hop at a time, appending
// each hop to resolved.RedirectPath. It never fails hard: on transport
// trouble it records a warning and returns the last URL it reached.
func (r *Resolver) followRedirects(ctx context.Context, startURL string, desc *platform.Descriptor, resolved *Resolved) string {
	current := startURL
	seen := map[string]bool{current: true}
	header := platform.Headers(desc)

	for hop := 0; hop < r.maxHops; hop++ {
		resp, err := r.transport.Get(ctx, current, header)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				resolved.Warning = perrors.NewTimeout(desc.Key, "redirect hop timed out at "+current, err).Error()
			} else {
				resolved.Warning = perrors.NewRedirect(desc.Key, "redirect hop failed at "+current, err).Error()
			}
			r.log.WithError(err).WithField("url", current).Warn().Msg("Redirect hop failed")
			return current
		}

		if resp.StatusCode < 300 || resp.StatusCode >= 400 {
			if resp.StatusCode >= 400 {
				resolved.Warning = perrors.NewRedirect(desc.Key,
					fmt.Sprintf("redirect chain ended with status %d", resp.StatusCode), nil).Error()
			}
			return current
		}

		location := resp.Header.Get("Location")
		if location == "" {
			resolved.Warning = perrors.NewRedirect(desc.Key, "redirect without Location header", nil).Error()
			return current
		}

		next, err := resolveLocation(current, location)
		if err != nil {
			resolved.Warning = perrors.NewRedirect(desc.Key, "unparsable Location: "+location, err).Error()
			return current
		}

		if seen[next] {
			resolved.Warning = perrors.NewRedirect(desc.Key, "redirect loop at "+next, nil).Error()
			resolved.RedirectPath = append(resolved.RedirectPath, next)
			return next
		}
		seen[next] = true

		resolved.RedirectPath = append(resolved.RedirectPath, next)
		current = next

		// Short-link hosts throttle rapid chain walking.
		select {
		case <-ctx.Done():
			resolved.Warning = perrors.NewTimeout(desc.Key, "context cancelled while following redirects", ctx.Err()).Error()
			return current
		case <-time.After(r.hopDelay):
		}
	}

	resolved.HopLimitHit = true
	r.log.WithField("url", startURL).Warn().Msg("Redirect hop limit reached")
	return current
}

// resolveLocation resolves a possibly relative Location header against
// the URL of the hop that issued it.
func resolveLocation(base, location string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	locURL, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(locURL).String(), nil
}

