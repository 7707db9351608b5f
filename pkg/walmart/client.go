package walmart

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/google/go-querystring/query"

	"github.com/demosdemon/skuwatch/pkg/data"
	"github.com/demosdemon/skuwatch/pkg/log"
)

const (
	DefaultBaseURL      = "https://www.walmart.com"
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36"
	DefaultHTTPTimeout  = 60 * time.Second
	DefaultHeadless     = true
	DefaultWaitSelector = "script#__NEXT_DATA__"

	pathPrefix = "store"

	mTextHTML = "text/html,application/xhtml+xml"

	hAccept         = "Accept"
	hAcceptLanguage = "Accept-Language"
	hUserAgent      = "User-Agent"
)

func New(options ...Option) *Client {
	c := &Client{
		Client: http.Client{Timeout: DefaultHTTPTimeout},
	}

	for _, opt := range options {
		opt(c)
	}

	return c
}

// Client builds store URLs and fetches pages over plain HTTP. It never
// retries.
type Client struct {
	http.Client

	baseURL      *string
	userAgent    *string
	headless     *bool
	waitSelector *string
	execPath     string
	storeOptions StoreOptions
	logger       log.Logger
}

func (c *Client) BaseURL() (*url.URL, error) {
	s := c.baseURL
	if s == nil {
		return url.Parse(DefaultBaseURL)
	}
	return url.Parse(*s)
}

func (c *Client) UserAgent() string {
	s := c.userAgent
	if s == nil {
		return DefaultUserAgent
	}
	return *s
}

func (c *Client) Headless() bool {
	b := c.headless
	if b == nil {
		return DefaultHeadless
	}
	return *b
}

func (c *Client) WaitSelector() string {
	s := c.waitSelector
	if s == nil {
		return DefaultWaitSelector
	}
	return *s
}

func (c *Client) HTTPTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultHTTPTimeout
	}
	return c.Timeout
}

// StoreURL returns the page address for store. It depends only on the
// store and the client's options.
func (c *Client) StoreURL(store data.StoreEntry) (string, error) {
	base, err := c.BaseURL()
	if err != nil {
		return "", err
	}

	// join onto the base path so a base without a trailing slash keeps its
	// last segment
	u := cloneURL(base)
	u.Path = path.Join("/", base.Path, pathPrefix, store.StoreID+"-"+store.StoreSlug)
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	u, err = appendQuery(u, c.storeOptions)
	if err != nil {
		return "", err
	}

	return u.String(), nil
}

func (c *Client) Fetch(ctx context.Context, store data.StoreEntry) (*Page, error) {
	u, err := c.StoreURL(store)
	if err != nil {
		return nil, FetchError{StoreID: store.StoreID, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.HTTPTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, FetchError{StoreID: store.StoreID, URL: u, Err: err}
	}
	req.Header.Set(hAccept, mTextHTML)
	req.Header.Set(hAcceptLanguage, "en-US,en;q=0.9")
	req.Header.Set(hUserAgent, c.UserAgent())

	c.logRequest(req)
	res, err := c.Client.Do(req)
	if err != nil {
		return nil, newFetchError(ctx, store, u, err)
	}
	defer func() { _ = res.Body.Close() }()
	c.logResponse(res)

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, newFetchError(ctx, store, u, err)
	}
	c.Tracef("RESP: %s", trimBody(body, 2048))

	if err := CheckStatus(store, u, res.StatusCode); err != nil {
		return nil, err
	}

	page := &Page{
		Store:     store,
		URL:       u,
		Status:    res.StatusCode,
		Body:      body,
		FetchedAt: time.Now().UTC(),
	}
	if err := CheckBlocked(page); err != nil {
		return nil, err
	}
	return page, nil
}

func (c *Client) logRequest(req *http.Request) {
	if req == nil || req.URL == nil {
		return
	}
	c.Infof("%s: %s", req.Method, req.URL)
}

func (c *Client) logResponse(res *http.Response) {
	if res == nil {
		c.Debugf("nil response")
		return
	}
	c.Debugf("RECV %03d: %s", res.StatusCode, res.Status)
}

func (c *Client) Logf(level log.Level, format string, v ...interface{}) {
	l := c.logger
	if l == nil {
		return
	}

	l.Logf(level, format, v...)
}

func (c *Client) Errorf(format string, v ...interface{}) {
	c.Logf(log.LevelError, format, v...)
}

func (c *Client) Warnf(format string, v ...interface{}) {
	c.Logf(log.LevelWarn, format, v...)
}

func (c *Client) Infof(format string, v ...interface{}) {
	c.Logf(log.LevelInfo, format, v...)
}

func (c *Client) Debugf(format string, v ...interface{}) {
	c.Logf(log.LevelDebug, format, v...)
}

func (c *Client) Tracef(format string, v ...interface{}) {
	c.Logf(log.LevelTrace, format, v...)
}

func appendQuery(u *url.URL, v interface{}) (*url.URL, error) {
	if v == nil {
		return u, nil
	}

	q, err := query.Values(v)
	if err != nil {
		return nil, err
	}

	for k, values := range u.Query() {
		for _, v := range values {
			q.Add(k, v)
		}
	}

	c := cloneURL(u)
	c.RawQuery = q.Encode()
	return c, nil
}

func cloneURL(u *url.URL) *url.URL {
	c := *u
	if u.User != nil {
		u := *u.User
		c.User = &u
	}
	return &c
}

// trimBody keeps log lines readable for large pages.
func trimBody(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(bytes.TrimSpace(body[:n])) + "..."
}
