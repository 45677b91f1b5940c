package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ceneo-opinions/internal/normalize"
	"ceneo-opinions/internal/observability"
)

// State of a single product crawl.
type State int

const (
	StateFetching State = iota
	StateParsing
	StateExtracting
	StateAdvancing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "FETCHING"
	case StateParsing:
		return "PARSING"
	case StateExtracting:
		return "EXTRACTING"
	case StateAdvancing:
		return "ADVANCING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports DONE and FAILED.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Crawler walks every reviews page of a product. It holds no per-run
// state; each call to Start gets its own Crawl.
type Crawler struct {
	layout   Layout
	fetcher  Fetcher
	logger   *observability.Logger
	metrics  *observability.Metrics
	maxPages int
}

// CrawlerOption customises a Crawler.
type CrawlerOption func(*Crawler)

// WithMaxPages caps the number of pages fetched; 0 means no cap.
func WithMaxPages(n int) CrawlerOption {
	return func(c *Crawler) { c.maxPages = n }
}

func WithMetrics(m *observability.Metrics) CrawlerOption {
	return func(c *Crawler) { c.metrics = m }
}

func NewCrawler(layout Layout, fetcher Fetcher, logger *observability.Logger, opts ...CrawlerOption) *Crawler {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	c := &Crawler{
		layout:  layout,
		fetcher: fetcher,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result is what a finished crawl yields.
type Result struct {
	ProductID   string
	ProductName string
	Records     []Record
	Pages       int
	StopReason  string
	Duration    time.Duration
}

// Crawl is the transient state of one extraction run.
type Crawl struct {
	c         *Crawler
	productID string

	state   State
	url     string
	page    *Page
	doc     *goquery.Document
	pages   int
	visited map[string]struct{}

	productName string
	records     []Record
	stopReason  string
	err         error
	started     time.Time
}

// Start prepares a crawl positioned at the first reviews page.
func (c *Crawler) Start(productID string) *Crawl {
	first := c.layout.ProductURL(productID)
	return &Crawl{
		c:         c,
		productID: productID,
		state:     StateFetching,
		url:       first,
		visited:   map[string]struct{}{normalize.NormalizeURL(first): {}},
		records:   []Record{},
		started:   time.Now(),
	}
}

// Crawl runs a full extraction for productID.
func (c *Crawler) Crawl(ctx context.Context, productID string) (*Result, error) {
	return c.Start(productID).Run(ctx)
}

func (cr *Crawl) State() State      { return cr.state }
func (cr *Crawl) URL() string       { return cr.url }
func (cr *Crawl) Pages() int        { return cr.pages }
func (cr *Crawl) Records() []Record { return cr.records }
func (cr *Crawl) Err() error        { return cr.err }

// Run steps until a terminal state.
func (cr *Crawl) Run(ctx context.Context) (*Result, error) {
	for !cr.state.Terminal() {
		cr.Step(ctx)
	}

	elapsed := time.Since(cr.started)
	cr.c.metrics.ObserveCrawl(elapsed)
	if cr.state == StateFailed {
		return nil, cr.err
	}

	cr.c.logger.Info("Crawl completed",
		"product_id", cr.productID,
		"pages", cr.pages,
		"records", len(cr.records),
		"reason", cr.stopReason,
		"elapsed", elapsed.String(),
	)

	return &Result{
		ProductID:   cr.productID,
		ProductName: cr.productName,
		Records:     cr.records,
		Pages:       cr.pages,
		StopReason:  cr.stopReason,
		Duration:    elapsed,
	}, nil
}

// Step performs exactly one transition and returns the new state.
func (cr *Crawl) Step(ctx context.Context) State {
	switch cr.state {
	case StateFetching:
		cr.fetch(ctx)
	case StateParsing:
		cr.parse()
	case StateExtracting:
		cr.extract()
	case StateAdvancing:
		cr.advance()
	}
	return cr.state
}

func (cr *Crawl) fetch(ctx context.Context) {
	log := cr.c.logger
	pageNum := cr.pages + 1

	if err := ctx.Err(); err != nil {
		cr.fail(fmt.Errorf("crawl cancelled at page %d: %w", pageNum, err))
		return
	}

	log.Info("Processing page", "product_id", cr.productID, "page", pageNum, "url", cr.url)

	page, err := cr.c.fetcher.Fetch(ctx, cr.url)
	if err == nil && page.OK() {
		cr.c.metrics.IncPage("ok")
		cr.page = page
		cr.state = StateParsing
		return
	}
	cr.c.metrics.IncPage("failed")

	reason := fetchFailure(page, err)
	if ctx.Err() != nil {
		cr.fail(fmt.Errorf("crawl cancelled at page %d: %w", pageNum, ctx.Err()))
		return
	}
	if cr.pages == 0 {
		log.Warn("First page unavailable", "product_id", cr.productID, "url", cr.url, "reason", reason)
		cr.fail(fmt.Errorf("%w: %s", ErrProductNotFound, reason))
		return
	}

	log.Warn("Fetch failed, keeping collected reviews",
		"product_id", cr.productID,
		"page", pageNum,
		"url", cr.url,
		"reason", reason,
	)
	cr.done(fmt.Sprintf("fetch failed at page %d: %s", pageNum, reason))
}

func (cr *Crawl) parse() {
	doc, err := ParsePage(cr.page.Body)
	if err != nil {
		if cr.pages == 0 {
			cr.fail(fmt.Errorf("%w: %v", ErrProductNotFound, err))
			return
		}
		cr.done(fmt.Sprintf("parse error at page %d: %v", cr.pages+1, err))
		return
	}

	if cr.pages == 0 {
		cr.productName = cr.c.layout.ReadProductName(doc)
		if !cr.c.layout.HasReviews(doc) {
			cr.c.logger.Info("Product has no reviews", "product_id", cr.productID, "product_name", cr.productName)
			cr.fail(ErrNoReviewsYet)
			return
		}
	}

	cr.doc = doc
	cr.pages++
	cr.state = StateExtracting
}

func (cr *Crawl) extract() {
	records := cr.c.layout.ParseReviews(cr.doc)
	cr.records = append(cr.records, records...)
	cr.c.metrics.AddReviews(len(records))

	cr.c.logger.Debug("Page analysis",
		"product_id", cr.productID,
		"page", cr.pages,
		"reviews", len(records),
		"total", len(cr.records),
	)
	cr.state = StateAdvancing
}

func (cr *Crawl) advance() {
	pageURL := cr.url
	if cr.page != nil && cr.page.URL != "" {
		pageURL = cr.page.URL
	}

	next, err := cr.c.layout.FindNextPageLink(cr.doc, pageURL)
	cr.doc, cr.page = nil, nil
	switch {
	case err != nil:
		cr.c.logger.Warn("Failed to extract next link", "product_id", cr.productID, "page", cr.pages, "error", err.Error())
		cr.done(fmt.Sprintf("bad next link at page %d", cr.pages))
	case next == "":
		cr.done(fmt.Sprintf("no next link at page %d", cr.pages))
	case cr.c.maxPages > 0 && cr.pages >= cr.c.maxPages:
		cr.done(fmt.Sprintf("reached max pages (%d)", cr.c.maxPages))
	default:
		key := normalize.NormalizeURL(next)
		if _, seen := cr.visited[key]; seen {
			cr.done(fmt.Sprintf("next link at page %d points to a visited page", cr.pages))
			return
		}
		cr.visited[key] = struct{}{}
		cr.url = next
		cr.state = StateFetching
	}
}

func (cr *Crawl) done(reason string) {
	cr.stopReason = reason
	cr.state = StateDone
}

func (cr *Crawl) fail(err error) {
	cr.err = err
	cr.stopReason = err.Error()
	cr.state = StateFailed
}

func fetchFailure(page *Page, err error) string {
	if err != nil {
		return err.Error()
	}
	if page == nil {
		return "empty response"
	}
	return fmt.Sprintf("status %d", page.StatusCode)
}
