package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ceneo-opinions/internal/checksum"
	"ceneo-opinions/internal/lock"
	"ceneo-opinions/internal/observability"
	"ceneo-opinions/internal/publish"
	"ceneo-opinions/internal/scraper"
	"ceneo-opinions/internal/stats"
	"ceneo-opinions/internal/storage"
)

// ErrExtractionInProgress is returned when the product is already being
// extracted by another request or process.
var ErrExtractionInProgress = errors.New("extraction already in progress")

// Service runs the whole extraction pipeline for one product:
// lock, crawl, aggregate, save, publish.
type Service struct {
	crawler    *scraper.Crawler
	aggregator stats.Aggregator
	repo       storage.Repository
	logger     *observability.Logger

	locker    lock.Locker
	publisher publish.Publisher
	metrics   *observability.Metrics
	checksum  *checksum.Generator
	timeout   time.Duration
}

type Option func(*Service)

func WithLocker(l lock.Locker) Option {
	return func(s *Service) { s.locker = l }
}

func WithPublisher(p publish.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTimeout bounds a single extraction; zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

func NewService(
	crawler *scraper.Crawler,
	aggregator stats.Aggregator,
	repo storage.Repository,
	logger *observability.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		crawler:    crawler,
		aggregator: aggregator,
		repo:       repo,
		logger:     logger,
		locker:     lock.NewMemory(),
		publisher:  publish.Nop{},
		checksum:   checksum.NewGenerator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summary describes a finished extraction.
type Summary struct {
	RunID       string
	ProductID   string
	ProductName string
	Opinions    int
	Pages       int
	StopReason  string
	Duration    time.Duration
	ContentHash string
	// Unchanged is true when the stored reviews were identical before the run.
	Unchanged bool
	Stats     *stats.ProductStats
}

// Extract crawls and persists one product. Nothing is written unless the
// crawl and the aggregation both succeed.
func (s *Service) Extract(ctx context.Context, productID string) (*Summary, error) {
	if err := storage.ValidateProductID(productID); err != nil {
		return nil, err
	}

	unlock, err := s.locker.TryLock(ctx, productID)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			s.metrics.IncExtraction("in_progress")
			return nil, fmt.Errorf("%w: %s", ErrExtractionInProgress, productID)
		}
		return nil, err
	}
	defer func() {
		if err := unlock(context.Background()); err != nil {
			s.logger.Warn("Failed to release lock", "product_id", productID, "error", err.Error())
		}
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID, "product_id", productID)
	logger.Info("Starting extraction")

	res, err := s.crawler.Crawl(ctx, productID)
	if err != nil {
		s.metrics.IncExtraction(outcome(err))
		logger.Warn("Extraction aborted", "error", err.Error())
		return nil, err
	}

	st, err := s.aggregator.Aggregate(res.Records, productID, res.ProductName)
	if err != nil {
		s.metrics.IncExtraction(outcome(err))
		logger.Error("Aggregation failed", "error", err.Error())
		return nil, err
	}

	hash, err := s.checksum.RecordsHash(res.Records)
	if err != nil {
		return nil, err
	}
	unchanged := s.sameAsStored(ctx, productID, hash)

	if err := s.repo.Save(ctx, productID, res.Records, st); err != nil {
		s.metrics.IncExtraction("storage_error")
		logger.Error("Failed to save product", "error", err.Error())
		return nil, fmt.Errorf("failed to save product %s: %w", productID, err)
	}

	event := publish.Event{
		RunID:         runID,
		ProductID:     productID,
		ProductName:   res.ProductName,
		OpinionsCount: st.OpinionsCount,
		Pages:         res.Pages,
		StopReason:    res.StopReason,
		ExtractedAt:   time.Now().UTC(),
	}
	if !st.AverageStars.IsNaN() {
		avg := float64(st.AverageStars)
		event.AverageStars = &avg
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		// the data is already stored; a lost event is not a failed run
		logger.Warn("Failed to publish event", "error", err.Error())
	}

	s.metrics.IncExtraction("ok")
	logger.Info("Extraction completed",
		"product_name", res.ProductName,
		"opinions", st.OpinionsCount,
		"pages", res.Pages,
		"unchanged", unchanged,
		"reason", res.StopReason,
	)

	return &Summary{
		RunID:       runID,
		ProductID:   productID,
		ProductName: res.ProductName,
		Opinions:    st.OpinionsCount,
		Pages:       res.Pages,
		StopReason:  res.StopReason,
		Duration:    res.Duration,
		ContentHash: hash,
		Unchanged:   unchanged,
		Stats:       st,
	}, nil
}

func (s *Service) sameAsStored(ctx context.Context, productID, hash string) bool {
	previous, err := s.repo.Opinions(ctx, productID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("Failed to read stored opinions", "product_id", productID, "error", err.Error())
		}
		return false
	}
	prevHash, err := s.checksum.RecordsHash(previous)
	return err == nil && prevHash == hash
}

func outcome(err error) string {
	var malformed *stats.MalformedRatingError
	switch {
	case errors.Is(err, scraper.ErrProductNotFound):
		return "not_found"
	case errors.Is(err, scraper.ErrNoReviewsYet):
		return "no_reviews"
	case errors.As(err, &malformed):
		return "malformed_rating"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "failed"
	}
}
