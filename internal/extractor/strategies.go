package extractor

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// firstText returns the first non-empty trimmed text among the selectors.
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		text := CleanText(doc.Find(sel).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

// firstAttr returns the first non-empty value among the given attributes
// of the first element each selector matches. Lazy-loaded images keep
// their real source in data-* attributes.
func firstAttr(doc *goquery.Document, selectors []string, attrs ...string) string {
	for _, sel := range selectors {
		elem := doc.Find(sel).First()
		if elem.Length() == 0 {
			continue
		}
		for _, attr := range attrs {
			if v, ok := elem.Attr(attr); ok && v != "" {
				return v
			}
		}
	}
	return ""
}

var jsonStringPatterns = map[string]*regexp.Regexp{}
var jsonNumberPatterns = map[string]*regexp.Regexp{}

func init() {
	for _, key := range []string{
		"title", "productName", "skuName", "name", "wname", "itemTitle",
		"defaultItemName", "goodsName", "goods_name", "brand", "brandName",
		"manufacturer", "model", "desc", "description", "shopName", "mallName",
		"price", "defaultPrice",
	} {
		jsonStringPatterns[key] = regexp.MustCompile(`(?i)"` + key + `":"([^"]+)"`)
	}
	for _, key := range []string{
		"currentPrice", "p", "price", "jdPrice", "minGroupPrice", "minOnSaleGroupPrice",
		"originalPrice", "op", "marketPrice", "market_price", "reservePrice",
	} {
		jsonNumberPatterns[key] = regexp.MustCompile(`(?i)"` + key + `":"?([0-9,]+\.?[0-9]*)"?`)
	}
}

// firstJSONString scans embedded JSON for the first key with a non-empty
// string value.
func firstJSONString(html string, keys ...string) string {
	for _, key := range keys {
		p, ok := jsonStringPatterns[key]
		if !ok {
			continue
		}
		if m := p.FindStringSubmatch(html); len(m) > 1 {
			if v := CleanText(m[1]); v != "" {
				return v
			}
		}
	}
	return ""
}

// firstJSONNumber scans embedded JSON for the first key holding a
// plausible numeric value, quoted or not.
func firstJSONNumber(html string, keys ...string) string {
	for _, key := range keys {
		p, ok := jsonNumberPatterns[key]
		if !ok {
			continue
		}
		if m := p.FindStringSubmatch(html); len(m) > 1 && m[1] != "" {
			return m[1]
		}
	}
	return ""
}

var labelPatterns = map[string]*regexp.Regexp{}

func init() {
	for _, label := range []string{
		"品牌", "厂商", "制造商", "型号", "商品型号", "货号", "颜色", "尺寸",
		"重量", "材质", "功率", "容量", "店铺", "现价", "价格", "售价",
		"原价", "市场价", "商品名称", "产品名称",
	} {
		labelPatterns[label] = regexp.MustCompile(label + `[：:]?\s*([^<>\n\r，,；;]{1,50})`)
	}
}

// labelValue pulls "标签：值" pairs straight out of page text. It is the
// loosest textual strategy and runs after selectors and JSON keys.
func labelValue(html string, labels ...string) string {
	for _, label := range labels {
		p, ok := labelPatterns[label]
		if !ok {
			continue
		}
		if m := p.FindStringSubmatch(html); len(m) > 1 {
			if v := CleanText(m[1]); v != "" {
				return v
			}
		}
	}
	return ""
}

var currencyPricePattern = regexp.MustCompile(`[¥￥]\s*([0-9,]+\.?[0-9]*)`)
var looseNumberPattern = regexp.MustCompile(`([0-9,]+\.?[0-9]*)`)

// currencyPrice finds the first ¥-prefixed amount in the page.
func currencyPrice(html string) string {
	if m := currencyPricePattern.FindStringSubmatch(html); len(m) > 1 {
		return m[1]
	}
	return ""
}

// priceScan is the last-resort price strategy: the first bare number in
// the page that falls inside a plausible price range. The bounds keep it
// from latching onto timestamps and pixel sizes.
func priceScan(html string, min, max float64) string {
	for _, m := range looseNumberPattern.FindAllStringSubmatch(html, 200) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		if v > min && v < max {
			return fmt.Sprintf("%.2f", v)
		}
	}
	return ""
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)
var whitespacePattern = regexp.MustCompile(`\s+`)

// CleanText decodes common HTML entities, strips tags and collapses
// whitespace.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	replacer := strings.NewReplacer(
		"&nbsp;", " ",
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&quot;", `"`,
	)
	text = replacer.Replace(text)
	text = tagPattern.ReplaceAllString(text, "")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

var nonPricePattern = regexp.MustCompile(`[^0-9.]`)
var multiDotPattern = regexp.MustCompile(`\.{2,}`)

// NormalizePrice reduces free-form price text to a canonical two-decimal
// amount. An empty result means the price is unknown; it is never
// rendered as a fake zero amount.
func NormalizePrice(text string) string {
	if text == "" {
		return ""
	}
	cleaned := nonPricePattern.ReplaceAllString(text, "")
	cleaned = multiDotPattern.ReplaceAllString(cleaned, ".")
	if strings.HasPrefix(cleaned, ".") {
		cleaned = "0" + cleaned
	}
	// A trailing dot or multiple segments confuse ParseFloat less than
	// they confuse readers; take the leading numeric run.
	v, err := strconv.ParseFloat(strings.TrimSuffix(cleaned, "."), 64)
	if err != nil || v <= 0 {
		return ""
	}
	return fmt.Sprintf("%.2f", v)
}

// divideBy100 converts a normalized cent amount to yuan.
func divideBy100(price string) string {
	v, err := strconv.ParseFloat(price, 64)
	if err != nil {
		return price
	}
	return fmt.Sprintf("%.2f", v/100)
}

var salesNumberPattern = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*(万|千)?`)

// ParseSales converts sales text like "2.3万+人付款" to a unit count.
// 万 and 千 multipliers are common on Taobao and PDD listings.
func ParseSales(text string) int64 {
	if text == "" {
		return 0
	}
	m := salesNumberPattern.FindStringSubmatch(text)
	if len(m) < 2 || m[1] == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	switch m[2] {
	case "万":
		v *= 10000
	case "千":
		v *= 1000
	}
	return int64(math.Floor(v))
}

var decimalPattern = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)`)

// ParseRating extracts a 0-5 score from rating text. Out-of-range values
// are treated as not found.
func ParseRating(text string) float64 {
	m := decimalPattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v < 0 || v > 5 {
		return 0
	}
	return v
}

// ParseCount extracts the first integer from count-ish text.
func ParseCount(text string) int64 {
	m := decimalPattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v < 0 {
		return 0
	}
	return int64(v)
}

// normalizeImageURL fixes protocol-relative and host-relative image
// sources. cdnHost is prepended to host-relative paths (Alibaba pages
// reference img.alicdn.com that way).
func normalizeImageURL(src, cdnHost string) string {
	switch {
	case src == "":
		return ""
	case strings.HasPrefix(src, "//"):
		return "https:" + src
	case strings.HasPrefix(src, "/") && cdnHost != "":
		return "https://" + cdnHost + src
	}
	return src
}

// dedupeImages preserves order while dropping duplicates and empties.
func dedupeImages(images []string) []string {
	seen := make(map[string]bool, len(images))
	out := make([]string, 0, len(images))
	for _, img := range images {
		if img == "" || seen[img] {
			continue
		}
		seen[img] = true
		out = append(out, img)
	}
	return out
}

var specSplitPattern = regexp.MustCompile(`[；;，,\n\r]`)
var specPairPattern = regexp.MustCompile(`^([^：:]+)[：:](.+)$`)

// parseSpecText splits "参数名：参数值" fragments into the spec table
// without clobbering values found by earlier strategies.
func parseSpecText(text string, specs map[string]string) {
	for _, line := range specSplitPattern.Split(text, -1) {
		trimmed := CleanText(line)
		if len(trimmed) < 3 || len(trimmed) > 300 {
			continue
		}
		m := specPairPattern.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		key := CleanText(m[1])
		value := CleanText(m[2])
		if key == "" || value == "" {
			continue
		}
		if _, exists := specs[key]; !exists {
			specs[key] = value
		}
	}
}

// basicSpecLabels are the attributes worth scanning the whole page for
// when no structured spec table was found.
var basicSpecLabels = []string{"品牌", "型号", "颜色", "尺寸", "重量", "材质", "功率", "容量"}

func extractBasicSpecs(html string, specs map[string]string) {
	for _, label := range basicSpecLabels {
		if _, exists := specs[label]; exists {
			continue
		}
		if v := labelValue(html, label); v != "" {
			specs[label] = v
		}
	}
}

// tableSpecs reads key/value rows from a spec table selector.
func tableSpecs(doc *goquery.Document, rowSelector string, specs map[string]string) {
	doc.Find(rowSelector).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		key := CleanText(cells.Eq(0).Text())
		value := CleanText(cells.Eq(1).Text())
		if key != "" && value != "" {
			if _, exists := specs[key]; !exists {
				specs[key] = value
			}
		}
	})
}
