package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ceneo-opinions/internal/scraper"
	"ceneo-opinions/internal/stats"
)

type countingRepo struct {
	stats    map[string]*stats.ProductStats
	opinions map[string][]scraper.Record
	reads    int
	lists    int
}

func newCountingRepo() *countingRepo {
	return &countingRepo{
		stats:    map[string]*stats.ProductStats{},
		opinions: map[string][]scraper.Record{},
	}
}

func (r *countingRepo) Save(_ context.Context, id string, records []scraper.Record, st *stats.ProductStats) error {
	r.opinions[id] = records
	r.stats[id] = st
	return nil
}

func (r *countingRepo) Opinions(_ context.Context, id string) ([]scraper.Record, error) {
	r.reads++
	records, ok := r.opinions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return records, nil
}

func (r *countingRepo) Stats(_ context.Context, id string) (*stats.ProductStats, error) {
	r.reads++
	st, ok := r.stats[id]
	if !ok {
		return nil, ErrNotFound
	}
	return st, nil
}

func (r *countingRepo) ListStats(context.Context) ([]*stats.ProductStats, error) {
	r.lists++
	return nil, nil
}

func (r *countingRepo) Close() error { return nil }

func TestCachedServesRepeatReads(t *testing.T) {
	backing := newCountingRepo()
	cached, err := NewCached(backing, 4)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, cached.Save(ctx, "1", []scraper.Record{scraper.NewRecord()}, &stats.ProductStats{ProductID: "1"}))

	for i := 0; i < 3; i++ {
		st, err := cached.Stats(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, "1", st.ProductID)
		_, err = cached.Opinions(ctx, "1")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, backing.reads)
}

func TestCachedSaveInvalidates(t *testing.T) {
	backing := newCountingRepo()
	cached, err := NewCached(backing, 4)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, cached.Save(ctx, "1", nil, &stats.ProductStats{ProductName: "old"}))
	st, err := cached.Stats(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "old", st.ProductName)

	require.NoError(t, cached.Save(ctx, "1", nil, &stats.ProductStats{ProductName: "new"}))
	st, err = cached.Stats(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "new", st.ProductName)
}

// pausingRepo holds a Stats read after it has loaded, until resume closes.
type pausingRepo struct {
	*countingRepo
	loaded chan struct{}
	resume chan struct{}
}

func (r *pausingRepo) Stats(ctx context.Context, id string) (*stats.ProductStats, error) {
	st, err := r.countingRepo.Stats(ctx, id)
	close(r.loaded)
	<-r.resume
	return st, err
}

func TestCachedReadRacingSaveIsNotCached(t *testing.T) {
	backing := &pausingRepo{
		countingRepo: newCountingRepo(),
		loaded:       make(chan struct{}),
		resume:       make(chan struct{}),
	}
	backing.stats["1"] = &stats.ProductStats{ProductName: "old"}
	cached, err := NewCached(backing, 4)
	require.NoError(t, err)
	ctx := context.Background()

	done := make(chan *stats.ProductStats)
	go func() {
		st, _ := cached.Stats(ctx, "1")
		done <- st
	}()

	<-backing.loaded
	require.NoError(t, cached.Save(ctx, "1", nil, &stats.ProductStats{ProductName: "new"}))
	close(backing.resume)
	assert.Equal(t, "old", (<-done).ProductName)

	// resume stays closed; a fresh loaded channel lets the next read through.
	backing.loaded = make(chan struct{})
	st, err := cached.Stats(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "new", st.ProductName)

	st, err = cached.Stats(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "new", st.ProductName)
}

func TestCachedDoesNotCacheMisses(t *testing.T) {
	backing := newCountingRepo()
	cached, err := NewCached(backing, 4)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = cached.Stats(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = cached.Stats(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, backing.reads)
}

func TestCachedListBypassesCache(t *testing.T) {
	backing := newCountingRepo()
	cached, err := NewCached(backing, 4)
	require.NoError(t, err)

	_, _ = cached.ListStats(context.Background())
	_, _ = cached.ListStats(context.Background())
	assert.Equal(t, 2, backing.lists)
}

func TestNewCachedRejectsZeroSize(t *testing.T) {
	_, err := NewCached(newCountingRepo(), 0)
	assert.Error(t, err)
}

func TestValidateProductID(t *testing.T) {
	assert.NoError(t, ValidateProductID("123456"))
	assert.NoError(t, ValidateProductID("abc_DEF-9"))
	assert.Error(t, ValidateProductID(""))
	assert.Error(t, ValidateProductID("../1"))
	assert.Error(t, ValidateProductID("1 2"))
}
