package platform

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// Descriptor describes one supported marketplace: how to recognize its
// product and short-link URLs, how to pull identifiers out of them, and
// which request headers it expects. Descriptors are built once at package
// init and never mutated.
type Descriptor struct {
	Key             string
	Name            string
	Patterns        []*regexp.Regexp
	ParamExtractors []ParamExtractor
	Referer         string
	UserAgent       string
	AcceptLanguage  string
}

// ParamExtractor pulls one named parameter out of a URL string.
// Extractors are ordered so extraction is deterministic.
type ParamExtractor struct {
	Name    string
	Pattern *regexp.Regexp
}

const desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
const mobileUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 14_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0.3 Mobile/15E148 Safari/604.1"

// registry is ordered: ambiguous short-link domains (e.g. e.tb.cn serves
// both Taobao and Tmall) resolve to the platform listed first.
var registry = []*Descriptor{
	{
		Key:  "TAOBAO",
		Name: "淘宝",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:item\.)?taobao\.com/item\.htm`),
			regexp.MustCompile(`(?i)(?:detail\.)?taobao\.com/item\.htm`),
			regexp.MustCompile(`(?i)h5\.m\.taobao\.com/awp/core/detail\.htm`),
			regexp.MustCompile(`(?i)e\.tb\.cn/h\.`),
			regexp.MustCompile(`(?i)s\.click\.taobao\.com`),
			regexp.MustCompile(`(?i)uland\.taobao\.com`),
			regexp.MustCompile(`(?i)m\.tb\.cn`),
		},
		ParamExtractors: []ParamExtractor{
			{Name: "id", Pattern: regexp.MustCompile(`(?i)id[=/](\d+)`)},
			{Name: "tk", Pattern: regexp.MustCompile(`(?i)tk=([^&\s]+)`)},
		},
		Referer:        "https://www.taobao.com/",
		UserAgent:      desktopUA,
		AcceptLanguage: "zh-CN,zh;q=0.9,en;q=0.8",
	},
	{
		Key:  "TMALL",
		Name: "天猫",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:detail\.)?tmall\.com/item\.htm`),
			regexp.MustCompile(`(?i)(?:detail\.)?tmall\.hk/item\.htm`),
			regexp.MustCompile(`(?i)h5\.m\.tmall\.com/awp/core/detail\.htm`),
			regexp.MustCompile(`(?i)s\.click\.tmall\.com`),
			regexp.MustCompile(`(?i)uland\.tmall\.com`),
		},
		ParamExtractors: []ParamExtractor{
			{Name: "id", Pattern: regexp.MustCompile(`(?i)id[=/](\d+)`)},
			{Name: "tk", Pattern: regexp.MustCompile(`(?i)tk=([^&\s]+)`)},
		},
		Referer:        "https://www.tmall.com/",
		UserAgent:      desktopUA,
		AcceptLanguage: "zh-CN,zh;q=0.9,en;q=0.8",
	},
	{
		Key:  "JD",
		Name: "京东",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:item\.)?jd\.com/(\d+)\.html`),
			regexp.MustCompile(`(?i)(?:item\.)?jd\.hk/(\d+)\.html`),
			regexp.MustCompile(`(?i)item\.m\.jd\.com/product/\d+\.html`),
			regexp.MustCompile(`(?i)h5\.m\.jd\.com/dev`),
			regexp.MustCompile(`(?i)u\.jd\.com`),
			regexp.MustCompile(`(?i)3\.cn`),
		},
		ParamExtractors: []ParamExtractor{
			{Name: "id", Pattern: regexp.MustCompile(`(?i)(?:jd\.com|product)/(\d+)\.html`)},
			{Name: "sku", Pattern: regexp.MustCompile(`(?i)sku=(\d+)`)},
			{Name: "utm_source", Pattern: regexp.MustCompile(`(?i)utm_source=([^&]+)`)},
			{Name: "utm_campaign", Pattern: regexp.MustCompile(`(?i)utm_campaign=([^&]+)`)},
		},
		Referer:        "https://www.jd.com/",
		UserAgent:      desktopUA,
		AcceptLanguage: "zh-CN,zh;q=0.9,en;q=0.8",
	},
	{
		Key:  "PDD",
		Name: "拼多多",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:mobile\.)?yangkeduo\.com/goods\.html`),
			regexp.MustCompile(`(?i)(?:mobile\.)?pdd\.com/goods\.html`),
			regexp.MustCompile(`(?i)p\.pinduoduo\.com`),
			regexp.MustCompile(`(?i)mobile\.pdd\.cn`),
			regexp.MustCompile(`(?i)pdd\.cn`),
		},
		ParamExtractors: []ParamExtractor{
			{Name: "goods_id", Pattern: regexp.MustCompile(`(?i)goods_id[=/](\d+)`)},
			{Name: "goods_sign", Pattern: regexp.MustCompile(`(?i)goods_sign=([^&]+)`)},
		},
		Referer:        "https://mobile.yangkeduo.com/",
		UserAgent:      mobileUA,
		AcceptLanguage: "zh-CN,zh;q=0.9",
	},
}

// shortLinkPatterns match intermediary domains that redirect to the real
// product page. This is a distinct set from the product-detail patterns.
var shortLinkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`e\.tb\.cn/h\.`),
	regexp.MustCompile(`s\.click\.taobao\.com`),
	regexp.MustCompile(`uland\.taobao\.com`),
	regexp.MustCompile(`m\.tb\.cn`),
	regexp.MustCompile(`u\.jd\.com`),
	regexp.MustCompile(`3\.cn`),
	regexp.MustCompile(`p\.pinduoduo\.com`),
	regexp.MustCompile(`pdd\.cn`),
}

// Identify returns the first descriptor whose pattern matches the URL,
// or nil when no platform recognizes it.
func Identify(rawURL string) *Descriptor {
	for _, d := range registry {
		for _, p := range d.Patterns {
			if p.MatchString(rawURL) {
				return d
			}
		}
	}
	return nil
}

// Get returns the descriptor for a platform key, or nil.
func Get(key string) *Descriptor {
	for _, d := range registry {
		if d.Key == key {
			return d
		}
	}
	return nil
}

// All returns the registry in identification order.
func All() []*Descriptor {
	out := make([]*Descriptor, len(registry))
	copy(out, registry)
	return out
}

// IsShortLink reports whether the URL matches a known short-link shape.
func IsShortLink(rawURL string) bool {
	for _, p := range shortLinkPatterns {
		if p.MatchString(rawURL) {
			return true
		}
	}
	return false
}

// ExtractParams applies the descriptor's named extractors, then merges in
// remaining query parameters without overwriting values the extractors
// already found.
func ExtractParams(rawURL string, d *Descriptor) map[string]string {
	params := make(map[string]string)
	if d == nil {
		return params
	}

	for _, ex := range d.ParamExtractors {
		if m := ex.Pattern.FindStringSubmatch(rawURL); len(m) > 1 && m[1] != "" {
			params[ex.Name] = m[1]
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return params
	}
	for key, values := range u.Query() {
		if len(values) == 0 || values[0] == "" {
			continue
		}
		if _, exists := params[key]; !exists {
			params[key] = values[0]
		}
	}

	return params
}

// Headers builds platform-plausible browser headers. Marketplaces serve
// degraded or block pages to requests without them.
func Headers(d *Descriptor) http.Header {
	h := http.Header{}
	ua := desktopUA
	lang := "zh-CN,zh;q=0.9,en;q=0.8"
	if d != nil {
		ua = d.UserAgent
		lang = d.AcceptLanguage
		if d.Referer != "" {
			h.Set("Referer", d.Referer)
		}
	}
	h.Set("User-Agent", ua)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", lang)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Upgrade-Insecure-Requests", "1")
	return h
}

// InferFromURL guesses a platform from bare substring matching. It is the
// fallback used for error records when full resolution failed, so it must
// not depend on the URL being well formed.
func InferFromURL(rawURL string) (key, name string) {
	switch {
	case strings.Contains(rawURL, "jd.com") || strings.Contains(rawURL, "jd.hk"):
		return "JD", "京东"
	case strings.Contains(rawURL, "tmall.com") || strings.Contains(rawURL, "tmall.hk"):
		return "TMALL", "天猫"
	case strings.Contains(rawURL, "taobao.com") || strings.Contains(rawURL, "tb.cn"):
		return "TAOBAO", "淘宝"
	case strings.Contains(rawURL, "yangkeduo.com") || strings.Contains(rawURL, "pdd.") || strings.Contains(rawURL, "pinduoduo"):
		return "PDD", "拼多多"
	}
	return "unknown", "未知平台"
}
