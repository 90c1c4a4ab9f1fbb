package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// pddExtractor handles Pinduoduo mobile pages. PDD renders most detail
// client side, so the JSON strategies carry more weight here and callers
// should expect sparse results from static HTML.
type pddExtractor struct{}

func (e *pddExtractor) Key() string { return "PDD" }

func (e *pddExtractor) Extract(doc *goquery.Document, html string) *RawFields {
	fields := &RawFields{
		Specifications: make(map[string]string),
		Params:         make(map[string]string),
	}

	fields.Title = e.extractTitle(doc, html)
	fields.Price = e.extractPrice(doc, html)
	fields.OriginalPrice = e.extractOriginalPrice(doc, html)
	fields.Image = e.extractImage(doc)
	fields.Images = dedupeImages([]string{fields.Image})
	fields.Brand = firstText(doc, ".brand-name", ".store-name", ".shop-name")
	if fields.Brand == "" {
		fields.Brand = firstJSONString(html, "brandName")
	}
	fields.Description = firstText(doc, ".goods-desc", ".product-desc", ".description")

	e.extractSpecList(doc, fields.Specifications)
	if len(fields.Specifications) == 0 {
		extractBasicSpecs(html, fields.Specifications)
	}
	e.extractSKUParams(doc, fields.Params)

	fields.Sales = ParseSales(firstText(doc, ".sales-count", ".sold-count", ".sales"))
	fields.Rating = ParseRating(firstText(doc, ".rating-score", ".star-score", ".score"))
	fields.ReviewCount = ParseCount(firstText(doc, ".review-count", ".comment-count", ".reviews"))
	fields.Availability = e.extractAvailability(doc)
	fields.ShopName = firstJSONString(html, "mallName", "shopName")

	return fields
}

func (e *pddExtractor) extractTitle(doc *goquery.Document, html string) string {
	if t := firstText(doc, ".goods-title", ".product-title", "h1.title", ".item-title"); t != "" {
		return t
	}
	return firstJSONString(html, "goodsName", "goods_name", "title")
}

func (e *pddExtractor) extractPrice(doc *goquery.Document, html string) string {
	if p := NormalizePrice(firstText(doc,
		".price .current-price",
		".goods-price .price",
		".price-num",
		".current",
	)); p != "" {
		return p
	}
	// Group-buy prices come back in cents.
	if cents := firstJSONNumber(html, "minGroupPrice", "minOnSaleGroupPrice"); cents != "" {
		if p := NormalizePrice(cents); p != "" {
			return divideBy100(p)
		}
	}
	if p := NormalizePrice(currencyPrice(html)); p != "" {
		return p
	}
	return priceScan(html, 1, 100000)
}

// extractOriginalPrice finds the single-buy price shown above the group
// price. Like the group price it arrives in cents.
func (e *pddExtractor) extractOriginalPrice(doc *goquery.Document, html string) string {
	if p := NormalizePrice(firstText(doc, ".origin-price", ".single-price", ".market-price")); p != "" {
		return p
	}
	if cents := firstJSONNumber(html, "marketPrice", "market_price"); cents != "" {
		if p := NormalizePrice(cents); p != "" {
			return divideBy100(p)
		}
	}
	return ""
}

func (e *pddExtractor) extractImage(doc *goquery.Document) string {
	src := firstAttr(doc, []string{
		".goods-image img",
		".product-image img",
		".main-pic img",
	}, "src", "data-src")
	return normalizeImageURL(src, "")
}

func (e *pddExtractor) extractSpecList(doc *goquery.Document, specs map[string]string) {
	doc.Find(".spec-list li").Each(func(_ int, li *goquery.Selection) {
		parseSpecText(li.Text(), specs)
	})
}

func (e *pddExtractor) extractSKUParams(doc *goquery.Document, params map[string]string) {
	doc.Find(".sku-item").Each(func(_ int, item *goquery.Selection) {
		label := CleanText(item.Find(".sku-label").Text())
		value := CleanText(item.Find(".selected").Text())
		if value == "" {
			value = CleanText(item.Find(".sku-value").First().Text())
		}
		if label != "" && value != "" {
			params[label] = value
		}
	})
}

func (e *pddExtractor) extractAvailability(doc *goquery.Document) string {
	if doc.Find(".buy-btn, .add-cart, .purchase").Length() > 0 {
		return "in_stock"
	}
	if strings.Contains(doc.Text(), "已抢光") {
		return "out_of_stock"
	}
	return "unknown"
}
