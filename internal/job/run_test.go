package job

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demosdemon/skuwatch/internal/config"
	"github.com/demosdemon/skuwatch/internal/snapshot"
	"github.com/demosdemon/skuwatch/pkg/data"
	"github.com/demosdemon/skuwatch/pkg/log"
	"github.com/demosdemon/skuwatch/pkg/walmart"
)

var runAt = time.Date(2026, 10, 19, 17, 0, 0, 0, time.UTC)

func storePage(skus ...string) string {
	items := make([]string, 0, len(skus))
	for _, sku := range skus {
		items = append(items, fmt.Sprintf(`{"__typename":"Product","usItemId":%q,"priceInfo":{"currentPrice":{"price":1.50}}}`, sku))
	}
	return `<html><body><script id="__NEXT_DATA__" type="application/json">` +
		`{"props":{"pageProps":{"initialData":{"searchResult":{"itemStacks":[{"items":[` +
		strings.Join(items, ",") +
		`]}]}}}}}</script></body></html>`
}

type fakeFetcher struct {
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, store data.StoreEntry) (*walmart.Page, error) {
	f.calls = append(f.calls, store.StoreID)
	if err, ok := f.errs[store.StoreID]; ok {
		return nil, err
	}
	return &walmart.Page{
		Store:     store,
		URL:       "https://example.test/store/" + store.StoreID,
		Status:    http.StatusOK,
		Body:      []byte(f.pages[store.StoreID]),
		FetchedAt: runAt,
	}, nil
}

type fakeLocator struct{}

func (fakeLocator) StoreURL(store data.StoreEntry) (string, error) {
	return "https://example.test/store/" + store.StoreID + "-" + store.StoreSlug, nil
}

func stores(ids ...string) []data.StoreEntry {
	rv := make([]data.StoreEntry, 0, len(ids))
	for _, id := range ids {
		rv = append(rv, data.StoreEntry{StoreID: id, StoreSlug: "store-" + id})
	}
	return rv
}

func newRunner(t *testing.T, f walmart.Fetcher) (string, *Runner) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "snapshots")
	return dir, &Runner{
		Logger:  log.Discard,
		Fetcher: f,
		Locator: fakeLocator{},
		Writer:  snapshot.New(dir, runAt, log.Discard),
	}
}

func skus(t *testing.T, path string) []string {
	t.Helper()
	fp, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = fp.Close() }()

	records, err := data.ReadAll(fp)
	require.NoError(t, err)

	rv := make([]string, 0, len(records))
	for _, r := range records {
		rv = append(rv, r.SKU)
	}
	return rv
}

func TestRunnerContinuesAfterFailedStore(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]string{
			"1": storePage("b", "a"),
			"3": storePage("c"),
		},
		errs: map[string]error{
			"2": walmart.FetchError{StoreID: "2", Status: http.StatusNotFound},
		},
	}
	dir, r := newRunner(t, f)

	report, err := r.Run(context.Background(), stores("1", "2", "3"))
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "3"}, f.calls)
	assert.Equal(t, 3, report.Processed)
	assert.False(t, report.Aborted)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "2", report.Failures[0].Store.StoreID)
	assert.Equal(t, StageFetch, report.Failures[0].Stage)

	require.Error(t, report.Err())
	var fErr walmart.FetchError
	require.True(t, errors.As(report.Err(), &fErr))
	assert.Equal(t, http.StatusNotFound, fErr.Status)

	want := []string{
		filepath.Join(dir, "1", "20261019T170000Z.jsonl"),
		filepath.Join(dir, "3", "20261019T170000Z.jsonl"),
	}
	if diff := cmp.Diff(want, report.Written); diff != "" {
		t.Errorf("written mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"a", "b"}, skus(t, want[0]))
	assert.Equal(t, []string{"c"}, skus(t, filepath.Join(dir, "3", snapshot.LatestName)))

	_, err = os.Stat(filepath.Join(dir, "2"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunnerAbortPolicy(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]string{
			"1": "<html><body>maintenance</body></html>",
			"2": storePage("a"),
		},
	}
	dir, r := newRunner(t, f)
	r.Policy = config.Abort

	report, err := r.Run(context.Background(), stores("1", "2"))
	require.NoError(t, err)

	assert.Equal(t, []string{"1"}, f.calls)
	assert.True(t, report.Aborted)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, StageParse, report.Failures[0].Stage)
	assert.ErrorIs(t, report.Err(), walmart.ErrMissingMarker)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestRunnerEmptyRegistry(t *testing.T) {
	f := &fakeFetcher{}
	dir, r := newRunner(t, f)

	report, err := r.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.NoError(t, report.Err())
	assert.Zero(t, report.Processed)
	assert.Empty(t, f.calls)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestRunnerEmptyStoreStillWritesSnapshot(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{"1": storePage()}}
	dir, r := newRunner(t, f)

	report, err := r.Run(context.Background(), stores("1"))
	require.NoError(t, err)
	require.NoError(t, report.Err())
	require.Len(t, report.Written, 1)
	assert.Empty(t, skus(t, filepath.Join(dir, "1", snapshot.LatestName)))
}

func TestRunnerDryRun(t *testing.T) {
	f := &fakeFetcher{}
	dir, r := newRunner(t, f)
	r.DryRun = true

	report, err := r.Run(context.Background(), stores("1", "2"))
	require.NoError(t, err)
	assert.NoError(t, report.Err())
	assert.Equal(t, 2, report.Processed)
	assert.Empty(t, report.Written)
	assert.Empty(t, f.calls)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestRunnerInterrupted(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{"1": storePage("a")}}
	_, r := newRunner(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := r.Run(ctx, stores("1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Processed)
	assert.Empty(t, f.calls)
}

func TestRunnerWriteErrorIsPerStore(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{"1": storePage("a"), "2": storePage("b")}}
	_, r := newRunner(t, f)

	blocker := filepath.Join(t.TempDir(), "snapshots")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	r.Writer = snapshot.New(blocker, runAt, log.Discard)

	report, err := r.Run(context.Background(), stores("1", "2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, f.calls)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, StageWrite, report.Failures[1].Stage)

	var se snapshot.Error
	require.True(t, errors.As(report.Err(), &se))
	assert.False(t, se.Systemic())
}

func TestRunnerRejectsUnconfiguredStore(t *testing.T) {
	reg, err := config.ReadRegistry("stores.json", strings.NewReader(`[{"store_id":"1","store_slug":"store-1"}]`))
	require.NoError(t, err)

	f := &fakeFetcher{pages: map[string]string{"1": storePage("a"), "2": storePage("b")}}
	dir, r := newRunner(t, f)
	r.Registry = reg

	report, err := r.Run(context.Background(), stores("1", "2"))
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "2", report.Failures[0].Store.StoreID)
	assert.Equal(t, StageWrite, report.Failures[0].Stage)
	assert.ErrorIs(t, report.Err(), snapshot.ErrOrphanRecord)

	assert.Equal(t, []string{"a"}, skus(t, filepath.Join(dir, "1", snapshot.LatestName)))
	_, err = os.Stat(filepath.Join(dir, "2"))
	assert.True(t, os.IsNotExist(err))
}
