package walmart

import (
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demosdemon/skuwatch/pkg/data"
)

const productItem = `{"__typename":"Product","usItemId":"000123456789","name":"Widget","priceInfo":{"currentPrice":{"price":9.99,"priceString":"$9.99"}},"availabilityStatusV2":{"display":"In stock","value":"IN_STOCK"}}`

func nextDataPage(items ...string) string {
	list := ""
	for i, item := range items {
		if i > 0 {
			list += ","
		}
		list += item
	}
	return fmt.Sprintf(`<!DOCTYPE html><html><head><title>Acme</title></head><body><div id="__next"></div>`+
		`<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"initialData":{"searchResult":{"itemStacks":[{"items":[%s]}]}}}}}</script>`+
		`</body></html>`, list)
}

func testPage(body string) *Page {
	return &Page{
		Store:     acme,
		URL:       "https://www.walmart.com/store/123-acme-store",
		Status:    200,
		Body:      []byte(body),
		FetchedAt: time.Date(2026, 10, 19, 17, 0, 0, 0, time.UTC),
	}
}

func TestExtractProduct(t *testing.T) {
	records, err := Extract(testPage(nextDataPage(productItem)))
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "123", r.StoreID)
	assert.Equal(t, "000123456789", r.SKU)
	require.True(t, r.Price.Valid)
	assert.Equal(t, "9.99", r.Price.Decimal.String())
	require.NotNil(t, r.InStock)
	assert.True(t, *r.InStock)
	assert.Equal(t, time.Date(2026, 10, 19, 17, 0, 0, 0, time.UTC), r.FetchedAt)
}

func TestExtractFallbacks(t *testing.T) {
	records, err := Extract(testPage(nextDataPage(
		`{"id":"A1","price":"$1,299.00","availabilityStatusDisplayValue":"Out of stock"}`,
		`{"__typename":"Product","usItemId":"B2"}`,
		`{"__typename":"SponsoredVideo","usItemId":"ad"}`,
		`{"__typename":"Product","name":"no sku"}`,
	)))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "A1", records[0].SKU)
	assert.Equal(t, "1299", records[0].Price.Decimal.String())
	require.NotNil(t, records[0].InStock)
	assert.False(t, *records[0].InStock)

	assert.Equal(t, "B2", records[1].SKU)
	assert.False(t, records[1].Price.Valid)
	assert.Nil(t, records[1].InStock)
}

func TestAvailability(t *testing.T) {
	for in, want := range map[string]*bool{
		"IN_STOCK":         data.Bool(true),
		"In stock":         data.Bool(true),
		" in-stock ":       data.Bool(true),
		"OUT_OF_STOCK":     data.Bool(false),
		"Out of stock":     data.Bool(false),
		"Not in stock":     nil,
		"NOT_IN_STOCK":     nil,
		"Limited stock":    nil,
		"IN_STOCK_SOON":    nil,
		"":                 nil,
		"Pickup available": nil,
	} {
		assert.Equal(t, want, availability(in), "%q", in)
	}
}

func TestExtractNegatedAvailability(t *testing.T) {
	records, err := Extract(testPage(nextDataPage(
		`{"__typename":"Product","usItemId":"N1","availabilityStatusV2":{"value":"NOT_IN_STOCK"}}`,
		`{"__typename":"Product","usItemId":"N2","availabilityStatusDisplayValue":"Not in stock"}`,
	)))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Nil(t, records[0].InStock)
	assert.Nil(t, records[1].InStock)
}

func TestExtractEmptySearchResult(t *testing.T) {
	records, err := Extract(testPage(nextDataPage()))
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestExtractMissingMarkers(t *testing.T) {
	for name, body := range map[string]string{
		"no marker":        `<html><body><h1>Store not found</h1></body></html>`,
		"invalid json":     `<html><body><script id="__NEXT_DATA__">{not json</script></body></html>`,
		"no initial data":  `<html><body><script id="__NEXT_DATA__">{"props":{"pageProps":{}}}</script></body></html>`,
		"no search result": `<html><body><script id="__NEXT_DATA__">{"props":{"pageProps":{"initialData":{"header":{}}}}}</script></body></html>`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Extract(testPage(body))
			var pe ParseError
			require.True(t, errors.As(err, &pe), "%v", err)
			assert.Equal(t, "123", pe.StoreID)
			assert.NotEmpty(t, pe.Marker)
		})
	}
}

func TestExtractItemStackDOM(t *testing.T) {
	body := `<html><body><section data-testid="item-stack">
		<div data-item-id="111"><span itemprop="price" content="3.50">$3.50</span><span data-automation-id="fulfillment-badge">In stock</span></div>
		<div data-item-id="222"><span itemprop="price">$12.00</span><span data-automation-id="fulfillment-badge">Out of stock</span></div>
		<div data-item-id="333"></div>
	</section></body></html>`

	records, err := Extract(testPage(body))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "111", records[0].SKU)
	assert.Equal(t, "3.5", records[0].Price.Decimal.String())
	assert.True(t, *records[0].InStock)

	assert.Equal(t, "222", records[1].SKU)
	assert.Equal(t, "12", records[1].Price.Decimal.String())
	assert.False(t, *records[1].InStock)

	assert.Equal(t, "333", records[2].SKU)
	assert.False(t, records[2].Price.Valid)
	assert.Nil(t, records[2].InStock)
}

func TestExtractEmptyItemStack(t *testing.T) {
	records, err := Extract(testPage(`<html><body><section data-testid="item-stack"></section></body></html>`))
	require.NoError(t, err)
	assert.Empty(t, records)
}
