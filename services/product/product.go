package product

import (
	"strings"
	"time"

	"sjsage522/productresolver/helpers"
	"sjsage522/productresolver/internal/extractor"
	"sjsage522/productresolver/internal/platform"
	"sjsage522/productresolver/internal/resolver"
	perrors "sjsage522/productresolver/pkg/errors"
)

// Availability values a product can carry.
const (
	AvailabilityInStock    = "in_stock"
	AvailabilityOutOfStock = "out_of_stock"
	AvailabilityUnknown    = "unknown"
)

// Error categories surfaced to callers. They describe what the user can
// do about a failure, not which pipeline stage produced it.
const (
	ErrProductNotFound  = "product_not_found"
	ErrAccessDenied     = "access_denied"
	ErrNetworkTimeout   = "network_timeout"
	ErrAppRequired      = "app_required"
	ErrDomainRestricted = "domain_restricted"
	ErrExtractionFailed = "extraction_failed"
)

// Product is the canonical parse result. Failed parses still produce a
// Product with Success=false and an error category, so callers always
// render something.
type Product struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Price          string            `json:"price"`
	OriginalPrice  string            `json:"originalPrice"`
	Image          string            `json:"image"`
	Images         []string          `json:"images,omitempty"`
	Brand          string            `json:"brand,omitempty"`
	Model          string            `json:"model,omitempty"`
	Description    string            `json:"description,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
	Params         map[string]string `json:"params,omitempty"`
	Sales          int64             `json:"sales"`
	Rating         float64           `json:"rating"`
	ReviewCount    int64             `json:"reviewCount"`
	Availability   string            `json:"availability"`
	ShopName       string            `json:"shopName,omitempty"`
	Platform       string            `json:"platform"`
	PlatformName   string            `json:"platformName"`
	OriginalURL    string            `json:"originalUrl"`
	FinalURL       string            `json:"finalUrl"`
	IsShortLink    bool              `json:"isShortLink"`
	ParsedAt       string            `json:"parsedAt"`
	Success        bool              `json:"success"`
	ErrorType      string            `json:"errorType,omitempty"`
	ErrorMessage   string            `json:"error,omitempty"`
	Suggestion     string            `json:"suggestion,omitempty"`
}

// idParamOrder is the preference order for native product identifiers
// pulled from the URL.
var idParamOrder = []string{"id", "goods_id", "sku", "item_id"}

// ProductID derives a stable product ID: the platform key plus the
// native identifier when the URL carries one, otherwise a hash of the
// resolved URL so tracking-param variants of one link converge.
func ProductID(res *resolver.Resolved) string {
	for _, key := range idParamOrder {
		if v, ok := res.Params[key]; ok && v != "" {
			return res.PlatformKey + "_" + v
		}
	}
	base := res.FinalURL
	if base == "" {
		base = res.OriginalURL
	}
	return res.PlatformKey + "_" + helpers.HashString(base)
}

// Normalize converts raw extracted fields into the canonical Product.
// Unknown prices stay empty rather than becoming a fake zero amount.
func Normalize(raw *extractor.RawFields, res *resolver.Resolved, originalURL string) *Product {
	platformName := res.PlatformKey
	if d := platform.Get(res.PlatformKey); d != nil {
		platformName = d.Name
	}

	title := raw.Title
	if title == "" {
		title = "商品标题获取失败"
	}

	image := raw.Image
	if image == "" && len(raw.Images) > 0 {
		image = raw.Images[0]
	}

	availability := raw.Availability
	if availability == "" {
		availability = AvailabilityUnknown
	}

	return &Product{
		ID:             ProductID(res),
		Title:          title,
		Price:          raw.Price,
		OriginalPrice:  extractor.NormalizePrice(raw.OriginalPrice),
		Image:          image,
		Images:         raw.Images,
		Brand:          raw.Brand,
		Model:          raw.Model,
		Description:    raw.Description,
		Specifications: raw.Specifications,
		Params:         res.Params,
		Sales:          raw.Sales,
		Rating:         raw.Rating,
		ReviewCount:    raw.ReviewCount,
		Availability:   availability,
		ShopName:       raw.ShopName,
		Platform:       res.PlatformKey,
		PlatformName:   platformName,
		OriginalURL:    originalURL,
		FinalURL:       res.FinalURL,
		IsShortLink:    res.IsShortLink,
		ParsedAt:       time.Now().Format(time.RFC3339),
		Success:        true,
	}
}

// ErrorProduct builds the failure-shaped Product for a pipeline error.
// The platform is inferred from the raw URL so even unresolvable links
// come back labeled.
func ErrorProduct(originalURL string, rerr *perrors.ResolveError) *Product {
	key, name := platform.InferFromURL(originalURL)
	if rerr.Platform != "" {
		if d := platform.Get(rerr.Platform); d != nil {
			key, name = d.Key, d.Name
		}
	}

	errorType, description := categorize(rerr)

	return &Product{
		ID:             key + "_" + helpers.HashString(originalURL),
		Title:          "商品解析失败",
		Description:    description,
		Specifications: map[string]string{},
		Params:         map[string]string{},
		Availability:   AvailabilityUnknown,
		Platform:       key,
		PlatformName:   name,
		OriginalURL:    originalURL,
		FinalURL:       originalURL,
		ParsedAt:       time.Now().Format(time.RFC3339),
		Success:        false,
		ErrorType:      errorType,
		ErrorMessage:   rerr.Error(),
		Suggestion:     suggestions[errorType],
	}
}

var suggestions = map[string]string{
	ErrProductNotFound:  "请检查商品链接是否正确，或尝试使用其他商品链接",
	ErrAccessDenied:     "请尝试使用有效的商品链接，避免使用需要登录的链接",
	ErrNetworkTimeout:   "请检查网络连接，稍后重试",
	ErrAppRequired:      "请在对应的购物APP中打开此链接",
	ErrDomainRestricted: "该链接的平台暂不支持，请使用淘宝、天猫、京东或拼多多的商品链接",
	ErrExtractionFailed: "请尝试使用其他商品链接",
}

// categorize maps a pipeline error to a user-facing category and
// description. Message text matters here: invalid-page errors carry the
// block marker that tripped them.
func categorize(rerr *perrors.ResolveError) (string, string) {
	msg := rerr.Message

	switch {
	case containsAny(msg, "404", "不存在", "已下架"):
		return ErrProductNotFound, "商品不存在或已下架"
	case containsAny(msg, "访问受限", "访问异常", "非法访问", "需要登录"):
		return ErrAccessDenied, "访问受限，需要登录或权限验证"
	case rerr.Type == perrors.ErrorTypeTimeout || rerr.Type == perrors.ErrorTypeRateLimit ||
		containsAny(msg, "超时", "timeout", "timed out"):
		return ErrNetworkTimeout, "网络超时，请稍后重试"
	case containsAny(msg, "活动太火爆", "APP"):
		return ErrAppRequired, "该链接需要在APP中打开"
	case rerr.Type == perrors.ErrorTypeUnsupportedPlatform || rerr.Type == perrors.ErrorTypeValidation:
		return ErrDomainRestricted, "链接无效或平台不受支持"
	default:
		return ErrExtractionFailed, "商品信息提取失败"
	}
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
