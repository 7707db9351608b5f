package walmart

import (
	"context"
	"time"

	"github.com/demosdemon/skuwatch/pkg/data"
)

// Page is the rendered content of one store page.
type Page struct {
	Store     data.StoreEntry
	URL       string
	Status    int
	Body      []byte
	FetchedAt time.Time
}

// Fetcher retrieves the rendered page for a store. *Client fetches with a
// single HTTP request; *Browser renders with headless Chrome.
type Fetcher interface {
	Fetch(ctx context.Context, store data.StoreEntry) (*Page, error)
}
