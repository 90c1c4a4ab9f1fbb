// Package extractor pulls product fields out of marketplace HTML. Pages
// from these marketplaces are hostile to scraping: markup shifts between
// desktop, mobile and app-gate variants, and much of the data lives in
// embedded JSON blobs rather than the DOM. Each platform extractor
// therefore layers strategies from most precise (known selectors) to
// loosest (numeric scans) and takes the first hit per field.
package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/productresolver/logger"
	perrors "sjsage522/productresolver/pkg/errors"
)

// RawFields is the untyped harvest of one extraction pass. Empty strings
// and zero values mean the field was not found; normalization decides
// what to do about that.
type RawFields struct {
	Title          string
	Price          string
	OriginalPrice  string
	Image          string
	Images         []string
	Brand          string
	Model          string
	Description    string
	Sales          int64
	Rating         float64
	ReviewCount    int64
	Availability   string
	Specifications map[string]string
	Params         map[string]string
	ShopName       string
}

// Extractor extracts raw product fields for one platform. Extract gets
// both the parsed document and the raw HTML because several strategies
// (embedded JSON, label scans) work on text the DOM does not expose.
type Extractor interface {
	Key() string
	Extract(doc *goquery.Document, html string) *RawFields
}

var extractors = map[string]Extractor{
	"JD":     &jdExtractor{},
	"TAOBAO": &taobaoExtractor{},
	"TMALL":  &tmallExtractor{},
	"PDD":    &pddExtractor{},
}

// ForPlatform returns the extractor for a platform key, or nil when the
// platform has none.
func ForPlatform(key string) Extractor {
	return extractors[key]
}

// Extract runs the platform extractor over a fetched page. A page from
// which not even a title can be recovered is an extraction failure;
// every other field may legitimately be missing.
func Extract(platformKey, html string) (*RawFields, *perrors.ResolveError) {
	ex := ForPlatform(platformKey)
	if ex == nil {
		return nil, perrors.NewUnsupportedPlatform(platformKey)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, perrors.NewExtraction(platformKey, "failed to parse document: "+err.Error())
	}

	fields := ex.Extract(doc, html)
	if fields.Title == "" {
		return nil, perrors.NewExtraction(platformKey, "no title found in page")
	}

	log := logger.ForExtractor(platformKey)
	log.WithFields(logger.Fields{
		"title":    fields.Title,
		"price":    fields.Price,
		"hasImage": fields.Image != "",
	}).Debug().Msg("Extracted product fields")

	return fields, nil
}
