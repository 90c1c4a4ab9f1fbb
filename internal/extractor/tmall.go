package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// tmallExtractor handles Tmall detail pages. Tmall shares Taobao's CDN
// and much of its markup but uses its own tm-* class family.
type tmallExtractor struct{}

func (e *tmallExtractor) Key() string { return "TMALL" }

var tmallTitleTagPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<title>([^<]+?)-天猫Tmall\.com</title>`),
	regexp.MustCompile(`(?i)<title>([^<]+?)-tmall\.com天猫</title>`),
	regexp.MustCompile(`(?i)<title>([^<]+?)\s*-\s*天猫`),
}

var tmallTitleRejects = []string{"天猫", "登录", "error", "页面"}

var tmallImageSizePattern = regexp.MustCompile(`_\d+x\d+\.`)

func (e *tmallExtractor) Extract(doc *goquery.Document, html string) *RawFields {
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
	fields.Model = firstText(doc,
		`.tb-property-cont .tm-clear:contains("型号") .tb-property-value`,
		`.tb-property-cont .tm-clear:contains("货号") .tb-property-value`,
		".model-info",
	)
	if fields.Model == "" {
		fields.Model = labelValue(html, "型号", "货号")
	}
	fields.Description = firstText(doc, ".tb-detail-desc", ".tm-desc-detail", ".description")
	if fields.Description == "" {
		fields.Description = firstJSONString(html, "description")
	}

	e.extractProperties(doc, fields.Specifications)
	tableSpecs(doc, ".tm-tableAttr tbody tr", fields.Specifications)
	if len(fields.Specifications) == 0 {
		extractBasicSpecs(html, fields.Specifications)
	}
	e.extractSKUParams(doc, fields.Params)

	fields.Sales = ParseSales(firstText(doc, ".tm-count", ".tb-count", ".sales-amount"))
	fields.Rating = ParseRating(firstText(doc, ".rate-score", ".tm-rate .score", ".rating-score"))
	fields.ReviewCount = ParseCount(firstText(doc, ".rate-count", ".tm-rate .count", ".review-count"))
	fields.Availability = e.extractAvailability(doc)
	fields.ShopName = e.extractShopName(doc, html)

	return fields
}

func (e *tmallExtractor) extractTitle(doc *goquery.Document, html string) string {
	if t := firstText(doc,
		".tb-detail-hd h1",
		"h1[data-spm]",
		".item-title",
		".tb-main-title",
	); e.acceptTitle(t) {
		return t
	}

	for _, p := range tmallTitleTagPatterns {
		if m := p.FindStringSubmatch(html); len(m) > 1 {
			if t := CleanText(m[1]); e.acceptTitle(t) {
				return t
			}
		}
	}

	if t := firstJSONString(html, "title", "itemTitle", "defaultItemName"); e.acceptTitle(t) {
		return t
	}

	if t := firstText(doc, ".tb-gallery h1", ".tb-item-title"); e.acceptTitle(t) {
		return t
	}
	return ""
}

func (e *tmallExtractor) acceptTitle(title string) bool {
	n := len([]rune(title))
	if n <= 5 || n >= 200 {
		return false
	}
	for _, reject := range tmallTitleRejects {
		if strings.Contains(title, reject) {
			return false
		}
	}
	return true
}

func (e *tmallExtractor) extractPrice(doc *goquery.Document, html string) string {
	if p := NormalizePrice(firstText(doc,
		".tm-price-panel .tm-price",
		".tm-promo-price .tm-price",
		".tb-rmb-num",
		".price .notranslate",
	)); p != "" {
		return p
	}
	if p := NormalizePrice(firstJSONString(html, "price", "defaultPrice")); p != "" {
		return p
	}
	if p := NormalizePrice(firstJSONNumber(html, "currentPrice")); p != "" {
		return p
	}
	if p := NormalizePrice(currencyPrice(html)); p != "" {
		return p
	}
	if p := NormalizePrice(labelValue(html, "现价", "价格")); p != "" {
		return p
	}
	return priceScan(html, 10, 100000)
}

// extractOriginalPrice finds the list price shown struck through next to
// a promo price. #J_StrPriceModBox holds it when a promotion is active.
func (e *tmallExtractor) extractOriginalPrice(doc *goquery.Document, html string) string {
	if p := NormalizePrice(firstText(doc,
		"#J_StrPriceModBox .tm-price",
		".tm-price-panel del",
		".tm-original-price",
	)); p != "" {
		return p
	}
	if p := NormalizePrice(firstJSONNumber(html, "originalPrice", "reservePrice")); p != "" {
		return p
	}
	return NormalizePrice(labelValue(html, "原价"))
}

func (e *tmallExtractor) extractImage(doc *goquery.Document) string {
	src := firstAttr(doc, []string{
		"#J_ImgBooth img",
		"#J_ImgBooth",
		".tb-booth .tb-pic img",
		".J_TSaleProp img",
	}, "src", "data-src", "data-lazy-src")
	src = normalizeImageURL(src, alicdnHost)
	// Swap thumbnail dimensions for the 800x800 rendition.
	return tmallImageSizePattern.ReplaceAllString(src, "_800x800.")
}

var tmallImagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<img[^>]*src="([^"]*alicdn[^"]*\.jpg[^"]*)"`),
	regexp.MustCompile(`(?i)<img[^>]*data-src="([^"]+\.jpg[^"]*)"`),
}

func (e *tmallExtractor) extractImages(html, primary string) []string {
	images := []string{primary}
	for _, p := range tmallImagePatterns {
		for _, m := range p.FindAllStringSubmatch(html, 20) {
			images = append(images, normalizeImageURL(m[1], alicdnHost))
		}
	}
	return dedupeImages(images)
}

func (e *tmallExtractor) extractBrand(doc *goquery.Document, html string) string {
	if b := firstText(doc,
		".tm-shop-name .slogo-shopname",
		`.tb-property-cont .tm-clear:contains("品牌") .tb-property-value`,
		".brand-name",
	); b != "" {
		return b
	}
	if b := firstJSONString(html, "brandName", "brand"); b != "" {
		return b
	}
	if b := labelValue(html, "品牌"); brandPlausible(b) {
		return b
	}
	return ""
}

func (e *tmallExtractor) extractProperties(doc *goquery.Document, specs map[string]string) {
	doc.Find(".tb-property-cont .tm-clear").Each(func(_ int, prop *goquery.Selection) {
		key := CleanText(strings.TrimSuffix(prop.Find(".tb-property-type").Text(), ":"))
		value := CleanText(prop.Find(".tb-property-value").Text())
		if key != "" && value != "" && !strings.Contains(key, "品牌") {
			specs[key] = value
		}
	})
}

func (e *tmallExtractor) extractSKUParams(doc *goquery.Document, params map[string]string) {
	doc.Find(".tb-key").Each(func(_ int, prop *goquery.Selection) {
		label := CleanText(prop.Find(".tb-metatit").Text())
		value := CleanText(prop.Find(".tb-selected").Text())
		if value == "" {
			value, _ = prop.Find(".tb-img a").First().Attr("title")
		}
		if value == "" {
			value = CleanText(prop.Find(".tb-prop a").First().Text())
		}
		if label != "" && value != "" {
			params[label] = value
		}
	})

	doc.Find(".tm-service .tm-service-item").Each(func(i int, item *goquery.Selection) {
		if service := CleanText(item.Text()); service != "" {
			params["服务"+strconv.Itoa(i+1)] = service
		}
	})
}

func (e *tmallExtractor) extractAvailability(doc *goquery.Document) string {
	for _, sel := range []string{".tm-fcs-panel .tm-btn-buy", ".tm-action .tm-btn", ".purchase-btn"} {
		btn := doc.Find(sel)
		if btn.Length() == 0 {
			continue
		}
		text := CleanText(btn.Text())
		if strings.Contains(text, "立即购买") || strings.Contains(text, "现货") {
			return "in_stock"
		}
		if strings.Contains(text, "缺货") || strings.Contains(text, "无库存") {
			return "out_of_stock"
		}
	}
	return "unknown"
}

func (e *tmallExtractor) extractShopName(doc *goquery.Document, html string) string {
	if s := firstText(doc, ".slogo-shopname"); s != "" {
		return s
	}
	if s := firstJSONString(html, "shopName"); s != "" {
		return s
	}
	return labelValue(html, "店铺")
}
