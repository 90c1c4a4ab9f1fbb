package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/productresolver/internal/extractor"
	"sjsage522/productresolver/internal/resolver"
	perrors "sjsage522/productresolver/pkg/errors"
)

func resolvedJD() *resolver.Resolved {
	return &resolver.Resolved{
		OriginalURL: "https://item.jd.com/100012043978.html",
		FinalURL:    "https://item.jd.com/100012043978.html",
		PlatformKey: "JD",
		Params:      map[string]string{"id": "100012043978"},
	}
}

func TestProductID(t *testing.T) {
	assert.Equal(t, "JD_100012043978", ProductID(resolvedJD()))

	pdd := &resolver.Resolved{
		OriginalURL: "https://mobile.yangkeduo.com/goods.html?goods_id=998877",
		PlatformKey: "PDD",
		Params:      map[string]string{"goods_id": "998877"},
	}
	assert.Equal(t, "PDD_998877", ProductID(pdd))
}

func TestProductIDFallsBackToHash(t *testing.T) {
	res := &resolver.Resolved{
		OriginalURL: "https://e.tb.cn/h.abcdef",
		FinalURL:    "https://e.tb.cn/h.abcdef",
		PlatformKey: "TAOBAO",
		Params:      map[string]string{},
	}
	id := ProductID(res)
	assert.Contains(t, id, "TAOBAO_")
	// Deterministic for the same URL.
	assert.Equal(t, id, ProductID(res))
}

func TestProductIDHashConvergesOnResolvedURL(t *testing.T) {
	// Tracking-param variants of one link resolve to the same cleaned URL
	// and must map to the same product.
	a := &resolver.Resolved{
		OriginalURL: "https://e.tb.cn/h.abcdef?spm=a21n57",
		FinalURL:    "https://e.tb.cn/h.abcdef",
		PlatformKey: "TAOBAO",
		Params:      map[string]string{},
	}
	b := &resolver.Resolved{
		OriginalURL: "https://e.tb.cn/h.abcdef?utm_source=wx",
		FinalURL:    "https://e.tb.cn/h.abcdef",
		PlatformKey: "TAOBAO",
		Params:      map[string]string{},
	}
	assert.Equal(t, ProductID(a), ProductID(b))
}

func TestNormalize(t *testing.T) {
	raw := &extractor.RawFields{
		Title:         "Apple iPhone 15 Pro",
		Price:         "8999.00",
		OriginalPrice: "¥9999",
		Image:         "https://img.example.com/a.jpg",
		Brand:         "Apple",
		Sales:         1200,
		Rating:        4.9,
		Availability:  "in_stock",
	}

	p := Normalize(raw, resolvedJD(), "https://u.jd.com/AbCdEf")
	assert.True(t, p.Success)
	assert.Equal(t, "JD_100012043978", p.ID)
	assert.Equal(t, "JD", p.Platform)
	assert.Equal(t, "京东", p.PlatformName)
	assert.Equal(t, "https://u.jd.com/AbCdEf", p.OriginalURL)
	assert.Equal(t, "8999.00", p.Price)
	assert.Equal(t, "9999.00", p.OriginalPrice)
	assert.Equal(t, int64(1200), p.Sales)
	assert.Empty(t, p.ErrorType)
	assert.NotEmpty(t, p.ParsedAt)
}

func TestNormalizeDefaults(t *testing.T) {
	raw := &extractor.RawFields{
		Title:  "测试商品名称超过五个字",
		Images: []string{"https://img.example.com/first.jpg"},
	}

	p := Normalize(raw, resolvedJD(), "https://item.jd.com/100012043978.html")
	// An unknown price stays empty, it is never reported as 0.00.
	assert.Equal(t, "", p.Price)
	assert.Equal(t, "", p.OriginalPrice)
	assert.Equal(t, AvailabilityUnknown, p.Availability)
	// The primary image falls back to the first gallery entry.
	assert.Equal(t, "https://img.example.com/first.jpg", p.Image)
}

func TestErrorProductCategories(t *testing.T) {
	testCases := []struct {
		name     string
		rerr     *perrors.ResolveError
		expected string
	}{
		{"not found", perrors.NewInvalidPage("JD", "page contains error marker: 商品不存在"), ErrProductNotFound},
		{"delisted", perrors.NewInvalidPage("TAOBAO", "page contains error marker: 已下架"), ErrProductNotFound},
		{"access denied", perrors.NewInvalidPage("JD", "page contains error marker: 访问受限"), ErrAccessDenied},
		{"timeout", perrors.NewTimeout("JD", "request timed out", nil), ErrNetworkTimeout},
		{"rate limited", perrors.NewRateLimit("JD", "60"), ErrNetworkTimeout},
		{"app gate", perrors.NewInvalidPage("JD", "page contains error marker: 前往京东APP"), ErrAppRequired},
		{"hot activity", perrors.NewInvalidPage("JD", "page contains error marker: 活动太火爆"), ErrAppRequired},
		{"unsupported", perrors.NewUnsupportedPlatform("https://amazon.com/x"), ErrDomainRestricted},
		{"validation", perrors.NewValidation("url is empty"), ErrDomainRestricted},
		{"extraction", perrors.NewExtraction("JD", "no title found in page"), ErrExtractionFailed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := ErrorProduct("https://item.jd.com/1.html", tc.rerr)
			assert.False(t, p.Success)
			assert.Equal(t, tc.expected, p.ErrorType)
			assert.NotEmpty(t, p.Suggestion)
			assert.NotEmpty(t, p.ErrorMessage)
			assert.Equal(t, "商品解析失败", p.Title)
		})
	}
}

func TestErrorProductInfersPlatform(t *testing.T) {
	p := ErrorProduct("https://detail.tmall.com/item.htm?id=1", perrors.NewExtraction("", "no title found in page"))
	assert.Equal(t, "TMALL", p.Platform)
	assert.Equal(t, "天猫", p.PlatformName)

	p = ErrorProduct("https://example.com/x", perrors.NewUnsupportedPlatform("https://example.com/x"))
	assert.Equal(t, "unknown", p.Platform)
	assert.Equal(t, "未知平台", p.PlatformName)
}

func TestErrorProductEmptyPrice(t *testing.T) {
	p := ErrorProduct("https://item.jd.com/1.html", perrors.NewExtraction("JD", "no title found in page"))
	require.Equal(t, "", p.Price)
	assert.Equal(t, int64(0), p.Sales)
}
