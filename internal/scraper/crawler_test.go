package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	pages map[string]*Page
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*Page, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if p, ok := f.pages[url]; ok {
		return p, nil
	}
	return &Page{StatusCode: http.StatusNotFound, URL: url}, nil
}

func htmlPage(url, body string) *Page {
	return &Page{StatusCode: http.StatusOK, URL: url, Body: []byte("<html><body>" + body + "</body></html>")}
}

func review(id, stars string, promoted bool) string {
	class := "js_product-review"
	if promoted {
		class += " user-post--highlight"
	}
	return fmt.Sprintf(`<div class="%s" data-entry-id="%s"><span class="user-post__score-count">%s</span></div>`, class, id, stars)
}

const (
	header   = `<h1> Odkurzacz X </h1><a class="product-review__link"><span>3 opinie</span></a>`
	page1URL = "https://www.ceneo.pl/42#tab=reviews"
	page2URL = "https://www.ceneo.pl/42/opinie-2"
)

func TestCrawlScenarioA(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*Page{
		page1URL: htmlPage(page1URL, header+
			review("1", "4,5/5", false)+
			review("p", "5,0/5", true)+
			review("2", "3,0/5", false)+
			`<a class="pagination__next" href="/42/opinie-2">dalej</a>`),
		page2URL: htmlPage(page2URL, `<p>no reviews here</p>`),
	}}

	crawl := NewCrawler(DefaultLayout(), f, nil).Start("42")
	res, err := crawl.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, crawl.State())
	assert.Equal(t, "Odkurzacz X", res.ProductName)
	assert.Equal(t, 2, res.Pages)
	require.Len(t, res.Records, 2)

	ids := []string{}
	for _, rec := range res.Records {
		id, _ := rec.Get(FieldOpinionID).String()
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"1", "2"}, ids)
	assert.Equal(t, []string{page1URL, page2URL}, f.calls)
}

func TestCrawlScenarioB(t *testing.T) {
	f := &fakeFetcher{}
	crawl := NewCrawler(DefaultLayout(), f, nil).Start("missing")

	res, err := crawl.Run(context.Background())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Equal(t, StateFailed, crawl.State())
}

func TestCrawlFirstPageTransportError(t *testing.T) {
	url := DefaultLayout().ProductURL("7")
	f := &fakeFetcher{errs: map[string]error{url: errors.New("connection refused")}}

	_, err := NewCrawler(DefaultLayout(), f, nil).Crawl(context.Background(), "7")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCrawlScenarioC(t *testing.T) {
	for name, body := range map[string]string{
		"absent": `<h1>Empty</h1>`,
		"zero":   `<h1>Empty</h1><a class="product-review__link"><span>0</span></a>`,
	} {
		t.Run(name, func(t *testing.T) {
			f := &fakeFetcher{pages: map[string]*Page{page1URL: htmlPage(page1URL, body)}}
			crawl := NewCrawler(DefaultLayout(), f, nil).Start("42")

			_, err := crawl.Run(context.Background())
			assert.ErrorIs(t, err, ErrNoReviewsYet)
			assert.NotErrorIs(t, err, ErrProductNotFound)
			assert.Equal(t, StateFailed, crawl.State())
		})
	}
}

func TestCrawlStepTransitions(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*Page{
		page1URL: htmlPage(page1URL, header+review("1", "4,0/5", false)+`<a class="pagination__next" href="/42/opinie-2">2</a>`),
		page2URL: htmlPage(page2URL, review("2", "2,0/5", false)),
	}}
	crawl := NewCrawler(DefaultLayout(), f, nil).Start("42")
	ctx := context.Background()

	require.Equal(t, StateFetching, crawl.State())
	assert.Equal(t, StateParsing, crawl.Step(ctx))
	assert.Equal(t, StateExtracting, crawl.Step(ctx))
	assert.Empty(t, crawl.Records())
	assert.Equal(t, StateAdvancing, crawl.Step(ctx))
	assert.Len(t, crawl.Records(), 1)
	assert.Equal(t, StateFetching, crawl.Step(ctx))
	assert.Equal(t, page2URL, crawl.URL())
	assert.Equal(t, StateParsing, crawl.Step(ctx))
	assert.Equal(t, StateExtracting, crawl.Step(ctx))
	assert.Equal(t, StateAdvancing, crawl.Step(ctx))
	assert.Equal(t, StateDone, crawl.Step(ctx))
	assert.Len(t, crawl.Records(), 2)
	assert.Equal(t, 2, crawl.Pages())

	// terminal states are sticky
	assert.Equal(t, StateDone, crawl.Step(ctx))
}

func TestCrawlLaterFetchFailureKeepsRecords(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]*Page{
			page1URL: htmlPage(page1URL, header+review("1", "4,0/5", false)+`<a class="pagination__next" href="/42/opinie-2">2</a>`),
		},
		errs: map[string]error{page2URL: errors.New("timeout")},
	}

	res, err := NewCrawler(DefaultLayout(), f, nil).Crawl(context.Background(), "42")
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
	assert.Contains(t, res.StopReason, "fetch failed at page 2")
}

func TestCrawlLaterBadStatusKeepsRecords(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*Page{
		page1URL: htmlPage(page1URL, header+review("1", "4,0/5", false)+`<a class="pagination__next" href="/42/opinie-2">2</a>`),
		page2URL: {StatusCode: http.StatusInternalServerError, URL: page2URL},
	}}

	res, err := NewCrawler(DefaultLayout(), f, nil).Crawl(context.Background(), "42")
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
}

func TestCrawlZeroOrganicReviewsPersistsEmptySet(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*Page{
		page1URL: htmlPage(page1URL, header+review("p", "5,0/5", true)),
	}}

	res, err := NewCrawler(DefaultLayout(), f, nil).Crawl(context.Background(), "42")
	require.NoError(t, err)
	assert.NotNil(t, res.Records)
	assert.Empty(t, res.Records)
}

func TestCrawlMaxPages(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*Page{
		page1URL: htmlPage(page1URL, header+review("1", "4,0/5", false)+`<a class="pagination__next" href="/42/opinie-2">2</a>`),
	}}

	res, err := NewCrawler(DefaultLayout(), f, nil, WithMaxPages(1)).Crawl(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, []string{page1URL}, f.calls)
}

func TestCrawlStopsOnPaginationLoop(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*Page{
		page1URL: htmlPage(page1URL, header+review("1", "4,0/5", false)+`<a class="pagination__next" href="/42/opinie-2">2</a>`),
		page2URL: htmlPage(page2URL, review("2", "4,0/5", false)+`<a class="pagination__next" href="/42/opinie-2">2</a>`),
	}}

	res, err := NewCrawler(DefaultLayout(), f, nil).Crawl(context.Background(), "42")
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
	assert.Len(t, f.calls, 2)
}

func TestCrawlLoopIgnoresFragment(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*Page{
		page1URL: htmlPage(page1URL, header+review("1", "4,0/5", false)+`<a class="pagination__next" href="/42/opinie-2">2</a>`),
		page2URL: htmlPage(page2URL, review("2", "4,0/5", false)+`<a class="pagination__next" href="/42">1</a>`),
	}}

	res, err := NewCrawler(DefaultLayout(), f, nil).Crawl(context.Background(), "42")
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
	assert.Len(t, f.calls, 2)
}

func TestCrawlCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCrawler(DefaultLayout(), &fakeFetcher{}, nil).Crawl(ctx, "42")
	assert.ErrorIs(t, err, context.Canceled)
}
