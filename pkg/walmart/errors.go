package walmart

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/pkg/errors"

	"github.com/demosdemon/skuwatch/pkg/data"
)

var (
	ErrBlocked       = errors.New("blocked by anti-automation challenge")
	ErrMissingMarker = errors.New("expected page marker not found")
)

var blockedMarkers = [][]byte{
	[]byte("px-captcha"),
	[]byte("Robot or human?"),
}

// FetchError means the store page could not be retrieved or rendered.
type FetchError struct {
	StoreID string
	URL     string
	Status  int
	Timeout bool
	Blocked bool
	Err     error
}

func (e FetchError) Error() string {
	msg := "unknown error"
	switch {
	case e.Blocked:
		msg = ErrBlocked.Error()
	case e.Timeout:
		msg = "timed out"
		if e.Err != nil {
			msg = fmt.Sprintf("timed out: %v", e.Err)
		}
	case e.Err != nil:
		msg = e.Err.Error()
	case e.Status > 0:
		msg = fmt.Sprintf("%03d: %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("error fetching store %q from %s: %s", e.StoreID, e.URL, msg)
}

func (e FetchError) Unwrap() error {
	if e.Blocked && e.Err == nil {
		return ErrBlocked
	}
	return e.Err
}

// ParseError means the page was fetched but does not look like a store
// page.
type ParseError struct {
	StoreID string
	URL     string
	Marker  string
	Err     error
}

func (e ParseError) Error() string {
	return fmt.Sprintf("error parsing store %q page %s (marker %s): %v", e.StoreID, e.URL, e.Marker, e.Err)
}

func (e ParseError) Unwrap() error {
	return e.Err
}

func newFetchError(ctx context.Context, store data.StoreEntry, u string, err error) FetchError {
	fe := FetchError{StoreID: store.StoreID, URL: u, Err: err}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded || (errors.As(err, &ne) && ne.Timeout()) {
		fe.Timeout = true
	}
	return fe
}

// CheckStatus returns a FetchError for any status outside 2xx.
func CheckStatus(store data.StoreEntry, u string, status int) error {
	if http.StatusOK <= status && status < http.StatusMultipleChoices {
		return nil
	}
	return FetchError{StoreID: store.StoreID, URL: u, Status: status}
}

// CheckBlocked returns a FetchError when body is an anti-automation
// challenge instead of the requested page.
func CheckBlocked(page *Page) error {
	for _, marker := range blockedMarkers {
		if bytes.Contains(page.Body, marker) {
			return FetchError{
				StoreID: page.Store.StoreID,
				URL:     page.URL,
				Status:  page.Status,
				Blocked: true,
			}
		}
	}
	return nil
}
