package walmart

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/demosdemon/skuwatch/pkg/data"
)

const (
	MarkerNextData  = `script#__NEXT_DATA__`
	MarkerItemStack = `[data-testid="item-stack"]`

	pathInitialData  = "props.pageProps.initialData"
	pathSearchResult = "searchResult"
	pathItemStacks   = "itemStacks"
)

var (
	skuPaths          = []string{"usItemId", "id"}
	pricePaths        = []string{"priceInfo.currentPrice.price", "price"}
	availabilityPaths = []string{"availabilityStatusV2.value", "availabilityStatusDisplayValue"}
)

// Extract reads the SKU records out of a rendered store page.
//
// A page carrying the store search result with no items yields no records
// and no error. A page missing the structure altogether is a ParseError.
func Extract(page *Page) ([]*data.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, parseError(page, "html", err)
	}

	if script := doc.Find(MarkerNextData).First(); script.Length() > 0 {
		return extractNextData(page, script.Text())
	}

	if stack := doc.Find(MarkerItemStack); stack.Length() > 0 {
		return extractItemStack(page, stack), nil
	}

	return nil, parseError(page, MarkerNextData, ErrMissingMarker)
}

func extractNextData(page *Page, raw string) ([]*data.Record, error) {
	if !gjson.Valid(raw) {
		return nil, parseError(page, MarkerNextData, errors.New("invalid JSON"))
	}

	initial := gjson.Get(raw, pathInitialData)
	if !initial.Exists() {
		return nil, parseError(page, pathInitialData, ErrMissingMarker)
	}

	result := initial.Get(pathSearchResult)
	if !result.Exists() {
		return nil, parseError(page, pathInitialData+"."+pathSearchResult, ErrMissingMarker)
	}

	records := make([]*data.Record, 0)
	for _, stack := range result.Get(pathItemStacks).Array() {
		for _, item := range stack.Get("items").Array() {
			if typ := item.Get("__typename"); typ.Exists() && typ.String() != "Product" {
				continue
			}

			sku := first(item, skuPaths).String()
			if sku == "" {
				continue
			}

			records = append(records, &data.Record{
				StoreID:   page.Store.StoreID,
				SKU:       sku,
				Price:     jsonPrice(first(item, pricePaths)),
				InStock:   availability(first(item, availabilityPaths).String()),
				FetchedAt: page.FetchedAt,
			})
		}
	}

	return records, nil
}

func extractItemStack(page *Page, stack *goquery.Selection) []*data.Record {
	records := make([]*data.Record, 0)
	stack.Find("[data-item-id]").Each(func(_ int, item *goquery.Selection) {
		sku := strings.TrimSpace(item.AttrOr("data-item-id", ""))
		if sku == "" {
			return
		}

		priceSel := item.Find(`[itemprop="price"]`).First()
		price, ok := priceSel.Attr("content")
		if !ok {
			price = priceSel.Text()
		}

		badge := item.Find(`[data-automation-id="fulfillment-badge"]`).First().Text()

		records = append(records, &data.Record{
			StoreID:   page.Store.StoreID,
			SKU:       sku,
			Price:     textPrice(price),
			InStock:   availability(badge),
			FetchedAt: page.FetchedAt,
		})
	})
	return records
}

func first(v gjson.Result, paths []string) gjson.Result {
	for _, p := range paths {
		if r := v.Get(p); r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}

func jsonPrice(v gjson.Result) decimal.NullDecimal {
	switch v.Type {
	case gjson.Number:
		return data.Price(v.Raw)
	case gjson.String:
		return textPrice(v.Str)
	default:
		return decimal.NullDecimal{}
	}
}

func textPrice(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	return data.Price(strings.TrimSpace(s))
}

func availability(s string) *bool {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	switch s {
	case "IN_STOCK":
		return data.Bool(true)
	case "OUT_OF_STOCK":
		return data.Bool(false)
	default:
		return nil
	}
}

func parseError(page *Page, marker string, err error) ParseError {
	return ParseError{
		StoreID: page.Store.StoreID,
		URL:     page.URL,
		Marker:  marker,
		Err:     err,
	}
}
