package walmart

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"

	"github.com/demosdemon/skuwatch/pkg/data"
)

// Browser is one headless Chrome process shared by a run. Every Fetch
// opens its own tab and closes it before returning.
type Browser struct {
	client *Client

	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

// NewBrowser starts Chrome. The caller must Close the browser when the run
// ends.
func NewBrowser(ctx context.Context, c *Client) (*Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.Headless()),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(c.UserAgent()),
	)
	if c.execPath != "" {
		opts = append(opts, chromedp.ExecPath(c.execPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithErrorf(c.Errorf), chromedp.WithDebugf(c.Tracef))

	// the first Run launches the browser process
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, errors.Wrap(err, "error starting browser")
	}

	c.Debugf("browser started (headless=%t)", c.Headless())
	return &Browser{
		client:      c,
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}, nil
}

func (b *Browser) Close() error {
	err := chromedp.Cancel(b.ctx)
	b.cancel()
	b.allocCancel()
	b.client.Debugf("browser closed")
	return err
}

func (b *Browser) Fetch(ctx context.Context, store data.StoreEntry) (*Page, error) {
	u, err := b.client.StoreURL(store)
	if err != nil {
		return nil, FetchError{StoreID: store.StoreID, Err: err}
	}

	tabCtx, closeTab := chromedp.NewContext(b.ctx)
	defer closeTab()

	tabCtx, cancel := context.WithTimeout(tabCtx, b.client.HTTPTimeout())
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	b.client.Infof("NAVIGATE: %s", u)
	res, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(u))
	if err != nil {
		return nil, newFetchError(tabCtx, store, u, err)
	}

	status := 0
	if res != nil {
		status = int(res.Status)
		b.client.Debugf("RECV %03d: %s", res.Status, res.StatusText)
	}
	if status != 0 {
		if err := CheckStatus(store, u, status); err != nil {
			return nil, err
		}
	}

	var html string
	err = chromedp.Run(tabCtx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, newFetchError(tabCtx, store, u, err)
	}

	// a challenge page never renders the wait selector, so check first
	if err := CheckBlocked(&Page{Store: store, URL: u, Status: status, Body: []byte(html)}); err != nil {
		return nil, err
	}

	if sel := b.client.WaitSelector(); sel != "" {
		err = chromedp.Run(tabCtx,
			chromedp.WaitReady(sel, chromedp.ByQuery),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
		if err != nil {
			return nil, newFetchError(tabCtx, store, u, err)
		}
	}

	page := &Page{
		Store:     store,
		URL:       u,
		Status:    status,
		Body:      []byte(html),
		FetchedAt: time.Now().UTC(),
	}
	if err := CheckBlocked(page); err != nil {
		return nil, err
	}
	return page, nil
}
