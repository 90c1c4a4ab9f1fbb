package product

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/productresolver/config"
	"sjsage522/productresolver/internal/fetcher"
	"sjsage522/productresolver/internal/resolver"
	"sjsage522/productresolver/services/cache"
	"sjsage522/productresolver/services/store"
)

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (m *memoryCache) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.items[key]; ok {
		return v, nil
	}
	return nil, errors.New("cache miss")
}

func (m *memoryCache) Set(key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *memoryCache) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

type memoryStore struct {
	mu       sync.Mutex
	products map[string][]byte
	history  map[string][]store.PricePoint
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		products: make(map[string][]byte),
		history:  make(map[string][]store.PricePoint),
	}
}

func (m *memoryStore) SaveProduct(_ context.Context, id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id] = data
	return nil
}

func (m *memoryStore) GetProduct(_ context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id], nil
}

func (m *memoryStore) RecordPrice(_ context.Context, id string, point store.PricePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[id] = append(m.history[id], point)
	return nil
}

func (m *memoryStore) GetPriceHistory(_ context.Context, id string, _ int) ([]store.PricePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history[id], nil
}

func (m *memoryStore) Close() error { return nil }

func testConfig() *config.Config {
	cfg := config.LoadConfig()
	cfg.FetchRate = 1000
	cfg.FetchBurst = 1000
	cfg.FetchBaseWait = time.Millisecond
	cfg.RedirectHopDelay = time.Millisecond
	cfg.MinPageSize = 10
	return cfg
}

func jdProductPage() string {
	return `<html><body>
<div class="sku-name">Apple iPhone 15 Pro 256GB 原色钛金属</div>
<div class="price"><div class="p-price"><span class="price">¥8999.00</span></div></div>
<a id="InitCartUrl" href="#">加入购物车</a>
` + strings.Repeat(" ", 64) + `</body></html>`
}

// newTestService builds a Service whose fetches land on the given
// handler. Product URLs embed a recognizable marketplace path so
// platform identification works against the local server.
func newTestService(t *testing.T, handler http.Handler, cacheSvc cache.CacheService, st store.Store) (*Service, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := testConfig()
	res := resolver.New(resolver.NewHTTPTransport(cfg.HTTPTimeout), nil, cfg)
	f := fetcher.New(cfg)
	return NewService(res, f, cacheSvc, st, cfg), server
}

func TestServiceParse(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(jdProductPage()))
	})
	st := newMemoryStore()
	svc, server := newTestService(t, handler, nil, st)

	url := server.URL + "/item.jd.com/100012043978.html"
	p := svc.Parse(context.Background(), url)

	require.True(t, p.Success, "error: %s", p.ErrorMessage)
	assert.Equal(t, "JD_100012043978", p.ID)
	assert.Equal(t, "Apple iPhone 15 Pro 256GB 原色钛金属", p.Title)
	assert.Equal(t, "8999.00", p.Price)
	assert.Equal(t, "in_stock", p.Availability)

	// Persisted with a price point.
	data, err := st.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.NotNil(t, data)
	points, err := st.GetPriceHistory(context.Background(), p.ID, 30)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "8999.00", points[0].Price)
}

func TestServiceParseUsesProductCache(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(jdProductPage()))
	})
	svc, server := newTestService(t, handler, newMemoryCache(), nil)

	url := server.URL + "/item.jd.com/100012043978.html"
	first := svc.Parse(context.Background(), url)
	require.True(t, first.Success)

	second := svc.Parse(context.Background(), url)
	require.True(t, second.Success)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second parse must come from cache")
}

func TestServiceParseInvalidURL(t *testing.T) {
	svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}), nil, nil)

	p := svc.Parse(context.Background(), "not a url")
	assert.False(t, p.Success)
	assert.Equal(t, ErrDomainRestricted, p.ErrorType)
	assert.NotEmpty(t, p.Suggestion)
}

func TestServiceParseBlockPage(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>前往京东APP查看详情</body></html>"))
	})
	svc, server := newTestService(t, handler, nil, nil)

	p := svc.Parse(context.Background(), server.URL+"/item.jd.com/1.html")
	assert.False(t, p.Success)
	assert.Equal(t, ErrAppRequired, p.ErrorType)
}

func TestServiceParseBatch(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(jdProductPage()))
	})
	svc, server := newTestService(t, handler, nil, nil)

	urls := []string{
		server.URL + "/item.jd.com/100012043978.html",
		"not a url",
		server.URL + "/item.jd.com/100012043979.html",
	}

	results, summary := svc.ParseBatch(context.Background(), urls)
	require.Len(t, results, 3)

	// Positional: results line up with the input order.
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.True(t, results[2].Success)
	assert.Equal(t, "JD_100012043978", results[0].ID)
	assert.Equal(t, "JD_100012043979", results[2].ID)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Success)
	assert.Equal(t, 1, summary.Failure)
}

func TestServiceStats(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(jdProductPage()))
	})
	svc, server := newTestService(t, handler, nil, nil)

	svc.Parse(context.Background(), server.URL+"/item.jd.com/100012043978.html")
	svc.Parse(context.Background(), "not a url")

	stats := svc.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Success)
	assert.Equal(t, 1, stats.Failure)
	assert.Equal(t, "50.0%", stats.SuccessRate)
}

func TestParseHistoryEviction(t *testing.T) {
	h := newParseHistory(3)
	for i := 0; i < 5; i++ {
		h.record("url", i >= 2, time.Millisecond)
	}

	stats := h.stats()
	// Only the newest three records remain, all successful.
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Success)
	assert.Equal(t, 0, stats.Failure)
}
