package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const alicdnHost = "img.alicdn.com"

// taobaoExtractor handles Taobao detail pages.
type taobaoExtractor struct{}

func (e *taobaoExtractor) Key() string { return "TAOBAO" }

var taobaoTitleTagPattern = regexp.MustCompile(`(?i)<title>([^<]+)-淘宝网</title>`)

func (e *taobaoExtractor) Extract(doc *goquery.Document, html string) *RawFields {
	fields := &RawFields{
		Specifications: make(map[string]string),
		Params:         make(map[string]string),
	}

	fields.Title = e.extractTitle(doc, html)
	fields.Price = e.extractPrice(doc, html)
	fields.OriginalPrice = e.extractOriginalPrice(doc, html)
	fields.Image = e.extractImage(doc)
	fields.Images = e.extractImages(html, fields.Image)
	fields.Brand = e.extractBrand(doc, html)
	fields.Model = firstText(doc, `.tb-property-cont .tm-clear:contains("型号") .tb-property-value`, `.attributes-list li:contains("型号") .attrval`)
	fields.Description = firstText(doc, ".tb-detail-desc", ".description", ".item-desc")
	if fields.Description == "" {
		fields.Description = firstJSONString(html, "description")
	}

	e.extractProperties(doc, fields.Specifications)
	if len(fields.Specifications) == 0 {
		extractBasicSpecs(html, fields.Specifications)
	}
	e.extractSKUParams(doc, fields.Params)

	fields.Sales = ParseSales(firstText(doc, ".tb-count", ".sold-count", ".sales-amount"))
	fields.Rating = ParseRating(firstText(doc, ".rate-score", ".rating-score", ".tb-rate .score"))
	fields.ReviewCount = ParseCount(firstText(doc, ".rate-count", ".review-count", ".comment-count"))
	fields.Availability = e.extractAvailability(doc)
	fields.ShopName = e.extractShopName(html)

	return fields
}

func (e *taobaoExtractor) extractTitle(doc *goquery.Document, html string) string {
	if t := firstText(doc,
		".tb-detail-hd h1",
		".item-title-text",
		`h1[data-spm="1000983"]`,
		".tb-main-title",
	); t != "" {
		return t
	}
	if m := taobaoTitleTagPattern.FindStringSubmatch(html); len(m) > 1 {
		if t := CleanText(m[1]); t != "" {
			return t
		}
	}
	if t := firstJSONString(html, "title"); t != "" {
		return t
	}
	return firstText(doc, "h1")
}

func (e *taobaoExtractor) extractPrice(doc *goquery.Document, html string) string {
	if p := NormalizePrice(firstText(doc,
		".tm-price-panel .tm-price",
		".tb-rmb-num",
		".price .notranslate",
		".tm-promo-price .tm-price",
	)); p != "" {
		return p
	}
	if p := NormalizePrice(labelValue(html, "现价", "价格")); p != "" {
		return p
	}
	if p := NormalizePrice(firstJSONString(html, "price")); p != "" {
		return p
	}
	if p := NormalizePrice(currencyPrice(html)); p != "" {
		return p
	}
	return priceScan(html, 10, 100000)
}

// extractOriginalPrice finds the struck-through list price shown when a
// promotion replaces #J_StrPrice as the headline amount.
func (e *taobaoExtractor) extractOriginalPrice(doc *goquery.Document, html string) string {
	if p := NormalizePrice(firstText(doc,
		".tm-promo-price ~ #J_StrPrice .tb-rmb-num",
		"del .tb-rmb-num",
		".price-original",
	)); p != "" {
		return p
	}
	if p := NormalizePrice(firstJSONNumber(html, "originalPrice", "reservePrice")); p != "" {
		return p
	}
	return NormalizePrice(labelValue(html, "原价"))
}

func (e *taobaoExtractor) extractImage(doc *goquery.Document) string {
	src := firstAttr(doc, []string{
		"#J_ImgBooth img",
		"#J_ImgBooth",
		".tb-booth .tb-pic img",
		".img-detail img",
	}, "src", "data-src", "data-lazy-src")
	return normalizeImageURL(src, alicdnHost)
}

var taobaoImagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<img[^>]*src="([^"]*alicdn[^"]*\.jpg[^"]*)"`),
	regexp.MustCompile(`(?i)data-src="([^"]+\.jpg[^"]*)"`),
}

func (e *taobaoExtractor) extractImages(html, primary string) []string {
	images := []string{primary}
	for _, p := range taobaoImagePatterns {
		for _, m := range p.FindAllStringSubmatch(html, 20) {
			images = append(images, normalizeImageURL(m[1], alicdnHost))
		}
	}
	return dedupeImages(images)
}

func (e *taobaoExtractor) extractBrand(doc *goquery.Document, html string) string {
	if b := firstText(doc,
		`.tb-property-cont .tm-clear:contains("品牌") .tb-property-value`,
		`.attributes-list li:contains("品牌") .attrval`,
		".brand-name",
	); b != "" {
		return b
	}
	if b := firstJSONString(html, "brand"); b != "" {
		return b
	}
	if b := labelValue(html, "品牌"); brandPlausible(b) {
		return b
	}
	return ""
}

func (e *taobaoExtractor) extractProperties(doc *goquery.Document, specs map[string]string) {
	doc.Find(".tb-property-cont .tm-clear").Each(func(_ int, prop *goquery.Selection) {
		key := CleanText(strings.TrimSuffix(prop.Find(".tb-property-type").Text(), ":"))
		value := CleanText(prop.Find(".tb-property-value").Text())
		if key != "" && value != "" && key != "品牌" {
			specs[key] = value
		}
	})
}

func (e *taobaoExtractor) extractSKUParams(doc *goquery.Document, params map[string]string) {
	doc.Find(".tb-key .tb-prop .tb-img").Each(func(i int, prop *goquery.Selection) {
		key, ok := prop.Find("a").First().Attr("title")
		if !ok || key == "" {
			key = CleanText(prop.Text())
		}
		if key != "" {
			params["选项"+strconv.Itoa(i+1)] = key
		}
	})
}

func (e *taobaoExtractor) extractAvailability(doc *goquery.Document) string {
	for _, sel := range []string{".tb-action .tb-btn-buy", ".purchase-btn", ".stock-info"} {
		elem := doc.Find(sel)
		if elem.Length() == 0 {
			continue
		}
		text := elem.Text()
		if strings.Contains(text, "现货") {
			return "in_stock"
		}
		if strings.Contains(text, "缺货") {
			return "out_of_stock"
		}
	}
	return "unknown"
}

func (e *taobaoExtractor) extractShopName(html string) string {
	if s := firstJSONString(html, "shopName"); s != "" {
		return s
	}
	return labelValue(html, "店铺")
}
