package walmart

import (
	"time"

	"github.com/demosdemon/skuwatch/pkg/log"
)

type Option func(c *Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = &baseURL
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = &userAgent
	}
}

func WithHTTPTimeout(httpTimeout time.Duration) Option {
	return func(c *Client) {
		c.Timeout = httpTimeout
	}
}

func WithHeadless(headless bool) Option {
	return func(c *Client) {
		c.headless = &headless
	}
}

// WithWaitSelector sets the CSS selector the browser waits for before the
// page counts as rendered.
func WithWaitSelector(selector string) Option {
	return func(c *Client) {
		c.waitSelector = &selector
	}
}

func WithExecPath(path string) Option {
	return func(c *Client) {
		c.execPath = path
	}
}

func WithStoreOptions(options StoreOptions) Option {
	return func(c *Client) {
		c.storeOptions = options
	}
}

func WithLogger(logger log.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// StoreOptions is appended to every store URL as its query string.
type StoreOptions struct {
	// Query is a search term within the store.
	Query string   `url:"q,omitempty" yaml:"q"`
	Page  int      `url:"page,omitempty" yaml:"page"`
	Sort  string   `url:"sort,omitempty" yaml:"sort"`
	Facet []string `url:"facet,omitempty" yaml:"facet"`
}
