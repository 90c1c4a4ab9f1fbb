package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sjsage522/productresolver/config"
	"sjsage522/productresolver/internal/fetcher"
	"sjsage522/productresolver/internal/resolver"
	"sjsage522/productresolver/services/cache"
	"sjsage522/productresolver/services/product"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test pages embed marketplace URL shapes in the path so platform
// identification works against the local server.

const jdProductHTML = `<!DOCTYPE html>
<html>
<head><title>Apple iPhone 15 Pro - 京东</title></head>
<body>
<div class="itemInfo-wrap">
  <div class="sku-name">Apple iPhone 15 Pro 256GB 原色钛金属 5G手机</div>
</div>
<div class="price"><div class="p-price"><span class="price">¥8999.00</span></div></div>
<ul class="parameter2">
  <li><span class="parameter-key">品牌：</span><span class="parameter-value">Apple</span></li>
</ul>
<a id="InitCartUrl" href="#">加入购物车</a>
</body>
</html>`

const appGateHTML = `<!DOCTYPE html>
<html><body><p>前往京东APP查看商品详情</p></body></html>`

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	cache map[string][]byte
}

// Ensure MockCacheService implements cache.CacheService
var _ cache.CacheService = (*MockCacheService)(nil)

func (m *MockCacheService) Get(key string) ([]byte, error) {
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, errors.New("cache miss")
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.cache[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	delete(m.cache, key)
	return nil
}

func newPipeline(t *testing.T, handler http.Handler) (*product.Service, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.LoadConfig()
	cfg.FetchRate = 1000
	cfg.FetchBurst = 1000
	cfg.FetchBaseWait = time.Millisecond
	cfg.RedirectHopDelay = time.Millisecond
	cfg.MinPageSize = 10

	mockCache := &MockCacheService{cache: make(map[string][]byte)}
	res := resolver.New(resolver.NewHTTPTransport(cfg.HTTPTimeout), mockCache, cfg)
	svc := product.NewService(res, fetcher.New(cfg), mockCache, nil, cfg)
	return svc, server
}

// TestIntegrationDirectLink covers the happy path: direct product URL in,
// fully populated product out.
func TestIntegrationDirectLink(t *testing.T) {
	svc, server := newPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(jdProductHTML))
	}))

	url := server.URL + "/item.jd.com/100012043978.html?utm_source=wx&id=100012043978"
	p := svc.Parse(context.Background(), url)

	require.True(t, p.Success, "error: %s", p.ErrorMessage)
	assert.Equal(t, "JD_100012043978", p.ID)
	assert.Equal(t, "JD", p.Platform)
	assert.Equal(t, "京东", p.PlatformName)
	assert.Equal(t, "Apple iPhone 15 Pro 256GB 原色钛金属 5G手机", p.Title)
	assert.Equal(t, "8999.00", p.Price)
	assert.Equal(t, "Apple", p.Brand)
	assert.Equal(t, "in_stock", p.Availability)
	assert.Equal(t, url, p.OriginalURL)
	// Tracking parameters are stripped before fetching.
	assert.NotContains(t, p.FinalURL, "utm_source")
}

// TestIntegrationShortLink follows a redirect chain from a short link to
// the product page.
func TestIntegrationShortLink(t *testing.T) {
	var server *httptest.Server
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "u.jd.com") {
			http.Redirect(w, r, server.URL+"/item.jd.com/100012043978.html", http.StatusFound)
			return
		}
		w.Write([]byte(jdProductHTML))
	})
	svc, s := newPipeline(t, handler)
	server = s

	p := svc.Parse(context.Background(), server.URL+"/u.jd.com/AbCdEf")

	require.True(t, p.Success, "error: %s", p.ErrorMessage)
	assert.True(t, p.IsShortLink)
	assert.Equal(t, "JD_100012043978", p.ID)
	assert.Contains(t, p.FinalURL, "item.jd.com/100012043978.html")
}

// TestIntegrationInvalidInput checks that garbage input degrades into an
// error-shaped product instead of failing the call.
func TestIntegrationInvalidInput(t *testing.T) {
	svc, _ := newPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	p := svc.Parse(context.Background(), "not a url")
	assert.False(t, p.Success)
	assert.Equal(t, "商品解析失败", p.Title)
	assert.Equal(t, product.ErrDomainRestricted, p.ErrorType)
	assert.NotEmpty(t, p.Suggestion)
}

// TestIntegrationAppGate checks that app-wall pages are categorized for
// the user instead of being parsed as products.
func TestIntegrationAppGate(t *testing.T) {
	svc, server := newPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(appGateHTML))
	}))

	p := svc.Parse(context.Background(), server.URL+"/item.jd.com/1.html")
	assert.False(t, p.Success)
	assert.Equal(t, product.ErrAppRequired, p.ErrorType)
}

// TestIntegrationBatch verifies positional batch results with per-item
// isolation.
func TestIntegrationBatch(t *testing.T) {
	svc, server := newPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(jdProductHTML))
	}))

	urls := []string{
		server.URL + "/item.jd.com/100012043978.html",
		"https://www.amazon.com/dp/B0ABC",
		server.URL + "/item.jd.com/200012043978.html",
	}
	results, summary := svc.ParseBatch(context.Background(), urls)

	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.True(t, results[2].Success)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Success)
	assert.Equal(t, 1, summary.Failure)

	stats := svc.Stats()
	assert.Equal(t, 3, stats.Total)
}
