package fetcher

import (
	"fmt"
	"strings"

	perrors "sjsage522/productresolver/pkg/errors"
)

// errorMarkers are phrases that mean the marketplace served a block,
// app-gate or not-found page instead of product detail. The marker text
// is preserved in the error message so downstream categorization can
// tell those cases apart.
var errorMarkers = []string{
	"活动太火爆",
	"前往京东APP",
	"打开京东APP",
	"请在APP内打开",
	"页面不存在",
	"商品不存在",
	"宝贝不存在",
	"已下架",
	"访问受限",
	"访问异常",
	"非法访问",
}

// productMarkers are markup fragments that only appear on real product
// detail pages. A page must carry at least two of them to count.
var productMarkers = []string{
	"sku-name",
	"itemInfo-wrap",
	"summary-price",
	"tb-detail-hd",
	"J_StrPriceModBox",
	"goods-name",
	"detail-price",
	"itemprop=\"price\"",
	"\"price\"",
	"\"skuName\"",
	"\"goods_name\"",
}

const minProductMarkers = 2

// ValidatePage decides whether a 200 response body is an actual product
// page. It checks block-page markers first, then overall size, then the
// presence of product markup.
func ValidatePage(html, platformKey string, minSize int) *perrors.ResolveError {
	for _, marker := range errorMarkers {
		if strings.Contains(html, marker) {
			return perrors.NewInvalidPage(platformKey, "page contains error marker: "+marker)
		}
	}

	if len(html) < minSize {
		return perrors.NewInvalidPage(platformKey,
			fmt.Sprintf("page too small: %d bytes (min %d)", len(html), minSize))
	}

	found := 0
	for _, marker := range productMarkers {
		if strings.Contains(html, marker) {
			found++
			if found >= minProductMarkers {
				return nil
			}
		}
	}
	return perrors.NewInvalidPage(platformKey,
		fmt.Sprintf("page has %d product markers (need %d)", found, minProductMarkers))
}
