package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// jdExtractor handles JD desktop and mobile pages. Desktop pages expose
// structured markup; mobile pages hide almost everything in JSON blobs.
type jdExtractor struct{}

func (e *jdExtractor) Key() string { return "JD" }

var jdTitleTagPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<title>([^<]+?)-京东</title>`),
	regexp.MustCompile(`(?i)<title>([^<]+?)\s*-\s*京东`),
}

// jdTitleRejects filters titles that belong to login, error or promo
// pages rather than a product.
var jdTitleRejects = []string{"京东", "登录", "error", "多快好省", "活动太火爆"}

func (e *jdExtractor) Extract(doc *goquery.Document, html string) *RawFields {
	fields := &RawFields{
		Specifications: make(map[string]string),
		Params:         make(map[string]string),
	}

	fields.Title = e.extractTitle(doc, html)
	fields.Price = e.extractPrice(doc, html)
	fields.OriginalPrice = e.extractOriginalPrice(doc, html)
	fields.Image = e.extractImage(doc)
	fields.Images = e.extractImages(html, fields.Image)
	fields.Brand = e.extractBrand(doc, html, fields.Title)
	fields.Model = firstText(doc, `.parameter2 li:contains("型号") .parameter-value`, ".model-info")
	if fields.Model == "" {
		fields.Model = firstJSONString(html, "model")
	}
	if fields.Model == "" {
		fields.Model = labelValue(html, "型号", "商品型号")
	}
	fields.Description = firstText(doc, ".detail .detail-content", ".product-detail-desc", ".item-desc")
	if fields.Description == "" {
		fields.Description = firstJSONString(html, "desc")
	}

	e.extractSpecs(doc, html, fields.Specifications)
	e.extractChooseParams(doc, fields.Params)

	fields.Sales = ParseSales(firstText(doc, ".comment-item .comment-count", ".sales-count", ".comment-count .count"))
	fields.Rating = ParseRating(firstText(doc, ".comment-item .comment-score .score", ".rate-score", ".product-score"))
	fields.ReviewCount = ParseCount(firstText(doc, ".comment-item .comment-count", ".review-count .count", ".comment-tab .count"))
	fields.Availability = e.extractAvailability(doc)
	fields.ShopName = firstJSONString(html, "shopName")

	return fields
}

func (e *jdExtractor) extractTitle(doc *goquery.Document, html string) string {
	title := firstText(doc,
		".sku-name",
		"#name h1",
		".product-intro .p-name a",
		".itemInfo-wrap .sku-name",
	)
	if e.acceptTitle(title) {
		return title
	}

	for _, p := range jdTitleTagPatterns {
		if m := p.FindStringSubmatch(html); len(m) > 1 {
			if t := CleanText(m[1]); e.acceptTitle(t) {
				return t
			}
		}
	}

	if t := firstJSONString(html, "title", "productName", "skuName", "name", "wname"); e.acceptTitle(t) {
		return t
	}

	if t := firstText(doc, "h1"); e.acceptTitle(t) {
		return t
	}

	if t := labelValue(html, "商品名称", "产品名称"); e.acceptTitle(t) {
		return t
	}
	return ""
}

func (e *jdExtractor) acceptTitle(title string) bool {
	if len([]rune(title)) <= 5 {
		return false
	}
	for _, reject := range jdTitleRejects {
		if strings.Contains(title, reject) {
			return false
		}
	}
	return true
}

func (e *jdExtractor) extractPrice(doc *goquery.Document, html string) string {
	if p := NormalizePrice(firstText(doc,
		".price .p-price .price",
		"#jd-price",
		".summary-price .p-price",
		".price-container .current-price",
	)); p != "" {
		return p
	}

	if p := NormalizePrice(firstJSONNumber(html, "currentPrice", "p", "price", "jdPrice")); p != "" {
		return p
	}

	if p := NormalizePrice(currencyPrice(html)); p != "" {
		return p
	}

	if p := NormalizePrice(labelValue(html, "价格", "现价", "售价")); p != "" {
		return p
	}

	return priceScan(html, 10, 100000)
}

// extractOriginalPrice finds the strikethrough list price. "op" is JD's
// pageConfig field for it.
func (e *jdExtractor) extractOriginalPrice(doc *goquery.Document, html string) string {
	if p := NormalizePrice(firstText(doc,
		".summary-price .p-price-origin",
		".price-origin .price",
		".price del",
	)); p != "" {
		return p
	}
	if p := NormalizePrice(firstJSONNumber(html, "originalPrice", "op", "marketPrice")); p != "" {
		return p
	}
	return NormalizePrice(labelValue(html, "原价", "市场价"))
}

func (e *jdExtractor) extractImage(doc *goquery.Document) string {
	src := firstAttr(doc, []string{
		"#spec-img",
		".preview .jqzoom img",
		".product-intro .preview img",
		".main-img img",
	}, "src", "data-lazy-img", "data-src")
	src = normalizeImageURL(src, "")
	// n0 thumbnails have a larger n1 sibling.
	return strings.Replace(src, "n0.jpg", "n1.jpg", 1)
}

var jdImagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)data-img="([^"]+)"`),
	regexp.MustCompile(`(?i)<img[^>]*src="([^"]*jd[^"]*\.jpg[^"]*)"`),
}

func (e *jdExtractor) extractImages(html, primary string) []string {
	images := []string{primary}
	for _, p := range jdImagePatterns {
		for _, m := range p.FindAllStringSubmatch(html, 20) {
			images = append(images, normalizeImageURL(m[1], ""))
		}
	}
	return dedupeImages(images)
}

func (e *jdExtractor) extractBrand(doc *goquery.Document, html, title string) string {
	if b := firstText(doc,
		`.parameter2 li:contains("品牌") .parameter-value`,
		".p-parameter .brand",
		".brand-name",
	); b != "" {
		return b
	}
	if b := firstJSONString(html, "brand", "brandName", "manufacturer"); b != "" {
		return b
	}
	if b := labelValue(html, "品牌", "厂商", "制造商"); brandPlausible(b) {
		return b
	}
	// Titles usually lead with the brand name.
	if parts := strings.Fields(title); len(parts) > 1 && brandPlausible(parts[0]) {
		return parts[0]
	}
	return ""
}

func brandPlausible(brand string) bool {
	n := len([]rune(brand))
	return n >= 2 && n <= 20
}

func (e *jdExtractor) extractSpecs(doc *goquery.Document, html string, specs map[string]string) {
	doc.Find(".parameter2 li").Each(func(_ int, li *goquery.Selection) {
		key := CleanText(strings.NewReplacer("：", "", ":", "").Replace(li.Find(".parameter-key").Text()))
		value := CleanText(li.Find(".parameter-value").Text())
		if key != "" && value != "" {
			specs[key] = value
		}
	})
	tableSpecs(doc, ".Ptable tbody tr", specs)
	if len(specs) == 0 {
		extractBasicSpecs(html, specs)
	}
}

func (e *jdExtractor) extractChooseParams(doc *goquery.Document, params map[string]string) {
	doc.Find(".choose-attrs .choose-attr").Each(func(_ int, attr *goquery.Selection) {
		label := CleanText(attr.Find(".dt").Text())
		value := CleanText(attr.Find(".selected").Text())
		if value == "" {
			value = CleanText(attr.Find(".choose-item").First().Text())
		}
		if label != "" && value != "" {
			params[label] = value
		}
	})
}

func (e *jdExtractor) extractAvailability(doc *goquery.Document) string {
	if doc.Find("#InitCartUrl").Length() > 0 || doc.Find(".btn-addtocart").Length() > 0 {
		return "in_stock"
	}
	stock := doc.Find(".stock-info").Text()
	if strings.Contains(stock, "缺货") || strings.Contains(stock, "无货") {
		return "out_of_stock"
	}
	return "unknown"
}
