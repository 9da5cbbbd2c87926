package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/desertthunder/topspot/internal/models"
	"github.com/desertthunder/topspot/internal/services"
	"github.com/desertthunder/topspot/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

var testToken = models.TokenState{AccessToken: "token"}

type call struct{ limit, offset int }

// fakeFetcher serves items from a fixed catalog of available items and can fail a given page.
type fakeFetcher struct {
	available int
	failAt    int // offset that fails, -1 for none
	failErr   error
	malformed map[int]bool
	calls     []call
}

func newFakeFetcher(available int) *fakeFetcher {
	return &fakeFetcher{available: available, failAt: -1, malformed: map[int]bool{}}
}

func (f *fakeFetcher) TopItems(_ context.Context, _ models.TokenState, category models.Category, _ models.Window, limit, offset int) (*services.TopItemsPage, error) {
	f.calls = append(f.calls, call{limit, offset})
	if offset == f.failAt {
		return nil, f.failErr
	}

	page := &services.TopItemsPage{Limit: limit, Offset: offset, Total: f.available}
	for i := offset; i < min(offset+limit, f.available); i++ {
		var raw string
		switch {
		case f.malformed[i]:
			raw = `{"popularity":1}`
		case category == models.Artists:
			raw = fmt.Sprintf(`{"name":"artist-%d","genres":["g"],"popularity":%d}`, i, i%100)
		default:
			raw = fmt.Sprintf(`{"name":"track-%d","album":{"name":"album"},"artists":[{"name":"artist"}]}`, i)
		}
		page.Items = append(page.Items, json.RawMessage(raw))
	}
	return page, nil
}

func TestPlanPages(t *testing.T) {
	t.Run("120 splits into two full pages and a remainder", func(t *testing.T) {
		assert.Equal(t, []PageSpec{{0, 0, 50}, {1, 50, 50}, {2, 100, 20}}, PlanPages(120))
	})

	t.Run("50 is a single page", func(t *testing.T) {
		assert.Equal(t, []PageSpec{{0, 0, 50}}, PlanPages(50))
	})

	t.Run("Every allowed count", func(t *testing.T) {
		for _, count := range models.AllowedCounts {
			pages := PlanPages(count)
			assert.Len(t, pages, (count+PageSize-1)/PageSize, "count %d", count)

			sum := 0
			for i, p := range pages {
				assert.Equal(t, i, p.Index)
				assert.Equal(t, i*PageSize, p.Offset)
				assert.LessOrEqual(t, p.Limit, PageSize)
				assert.Positive(t, p.Limit)
				sum += p.Limit
			}
			assert.Equal(t, count, sum, "count %d", count)
		}
	})

	t.Run("Non-positive count", func(t *testing.T) {
		assert.Empty(t, PlanPages(0))
		assert.Empty(t, PlanPages(-5))
	})
}

func TestAggregatorFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("Full pages yield exactly count rows", func(t *testing.T) {
		f := newFakeFetcher(5000)
		agg := NewAggregator(f, AggregatorOpts{})

		table, err := agg.Fetch(ctx, testToken, models.FetchRequest{Category: models.Artists, Window: models.MediumTerm, Count: 200}, nil)
		require.NoError(t, err)
		assert.Equal(t, 200, table.Len())
		assert.Equal(t, 4, table.Pages)
		assert.Equal(t, []call{{50, 0}, {50, 50}, {50, 100}, {50, 150}}, f.calls)
		assert.Equal(t, "artist-0", table.Rows[0].Name)
		assert.Equal(t, "artist-199", table.Rows[199].Name)
	})

	t.Run("Short pages yield fewer rows and every planned page is requested", func(t *testing.T) {
		f := newFakeFetcher(70)
		agg := NewAggregator(f, AggregatorOpts{})

		table, err := agg.Fetch(ctx, testToken, models.FetchRequest{Category: models.Tracks, Window: models.ShortTerm, Count: 200}, nil)
		require.NoError(t, err)
		assert.Equal(t, 70, table.Len())
		assert.Len(t, f.calls, 4)
	})

	t.Run("StopOnShortPage ends after the first short page", func(t *testing.T) {
		f := newFakeFetcher(70)
		agg := NewAggregator(f, AggregatorOpts{StopOnShortPage: true})

		table, err := agg.Fetch(ctx, testToken, models.FetchRequest{Category: models.Tracks, Window: models.ShortTerm, Count: 200}, nil)
		require.NoError(t, err)
		assert.Equal(t, 70, table.Len())
		assert.Equal(t, []call{{50, 0}, {50, 50}}, f.calls)
	})

	t.Run("Smaller count is a prefix of larger count", func(t *testing.T) {
		req := models.FetchRequest{Category: models.Tracks, Window: models.LongTerm}

		req.Count = 50
		small, err := NewAggregator(newFakeFetcher(1000), AggregatorOpts{}).Fetch(ctx, testToken, req, nil)
		require.NoError(t, err)

		req.Count = 100
		large, err := NewAggregator(newFakeFetcher(1000), AggregatorOpts{}).Fetch(ctx, testToken, req, nil)
		require.NoError(t, err)

		assert.Equal(t, small.Rows, large.Rows[:50])
	})

	t.Run("Failure at a page keeps earlier rows", func(t *testing.T) {
		apiErr := &services.APIError{StatusCode: http.StatusInternalServerError, Body: []byte(`{"error":{"status":500,"message":"boom"}}`)}
		f := newFakeFetcher(1000)
		f.failAt = 100
		f.failErr = apiErr
		agg := NewAggregator(f, AggregatorOpts{})

		table, err := agg.Fetch(ctx, testToken, models.FetchRequest{Category: models.Artists, Window: models.LongTerm, Count: 200}, nil)
		require.Error(t, err)
		require.NotNil(t, table)
		assert.Equal(t, 100, table.Len())
		assert.Equal(t, 2, table.Pages)
		assert.Len(t, f.calls, 3, "no retry and no further pages")

		var pageErr *PageError
		require.ErrorAs(t, err, &pageErr)
		assert.Equal(t, PageSpec{Index: 2, Offset: 100, Limit: 50}, pageErr.Page)

		var got *services.APIError
		require.ErrorAs(t, err, &got)
		assert.Same(t, apiErr, got)
		assert.ErrorIs(t, err, shared.ErrAPIRequest)
	})

	t.Run("Failure on the first page returns an empty table", func(t *testing.T) {
		f := newFakeFetcher(1000)
		f.failAt = 0
		f.failErr = &services.APIError{StatusCode: http.StatusUnauthorized}
		agg := NewAggregator(f, AggregatorOpts{})

		table, err := agg.Fetch(ctx, testToken, models.FetchRequest{Category: models.Artists, Window: models.LongTerm, Count: 10}, nil)
		assert.ErrorIs(t, err, shared.ErrTokenExpired)
		require.NotNil(t, table)
		assert.Zero(t, table.Len())
	})

	t.Run("Malformed items are skipped and counted", func(t *testing.T) {
		f := newFakeFetcher(100)
		f.malformed[3] = true
		f.malformed[60] = true
		agg := NewAggregator(f, AggregatorOpts{})

		table, err := agg.Fetch(ctx, testToken, models.FetchRequest{Category: models.Artists, Window: models.LongTerm, Count: 100}, nil)
		require.NoError(t, err)
		assert.Equal(t, 98, table.Len())
		assert.Equal(t, 2, table.Skipped)
		assert.Equal(t, "artist-4", table.Rows[3].Name)
	})

	t.Run("Invalid request makes no calls", func(t *testing.T) {
		f := newFakeFetcher(100)
		agg := NewAggregator(f, AggregatorOpts{})

		table, err := agg.Fetch(ctx, testToken, models.FetchRequest{Category: models.Artists, Window: models.LongTerm, Count: 30}, nil)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.Nil(t, table)
		assert.Empty(t, f.calls)

		_, err = agg.Fetch(ctx, models.TokenState{}, models.FetchRequest{Category: models.Artists, Window: models.LongTerm, Count: 10}, nil)
		assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
		assert.Empty(t, f.calls)
	})

	t.Run("Canceled context stops before the next page", func(t *testing.T) {
		f := newFakeFetcher(100)
		agg := NewAggregator(f, AggregatorOpts{})
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		table, err := agg.Fetch(canceled, testToken, models.FetchRequest{Category: models.Artists, Window: models.LongTerm, Count: 100}, nil)
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Zero(t, table.Len())
		assert.Empty(t, f.calls)
	})

	t.Run("Limiter paces without changing results", func(t *testing.T) {
		f := newFakeFetcher(100)
		agg := NewAggregator(f, AggregatorOpts{Limiter: rate.NewLimiter(rate.Inf, 1)})

		table, err := agg.Fetch(ctx, testToken, models.FetchRequest{Category: models.Tracks, Window: models.LongTerm, Count: 100}, nil)
		require.NoError(t, err)
		assert.Equal(t, 100, table.Len())
	})

	t.Run("Progress updates", func(t *testing.T) {
		progress := make(chan ProgressUpdate, 10)
		agg := NewAggregator(newFakeFetcher(1000), AggregatorOpts{})

		_, err := agg.Fetch(ctx, testToken, models.FetchRequest{Category: models.Tracks, Window: models.LongTerm, Count: 100}, progress)
		require.NoError(t, err)
		close(progress)

		var phases []Phase
		for u := range progress {
			phases = append(phases, u.Phase)
		}
		assert.Equal(t, []Phase{PlanPhase, FetchPage, FetchPage, Complete}, phases)
	})

	t.Run("Unbuffered progress channel never blocks", func(t *testing.T) {
		agg := NewAggregator(newFakeFetcher(1000), AggregatorOpts{})

		_, err := agg.Fetch(ctx, testToken, models.FetchRequest{Category: models.Tracks, Window: models.LongTerm, Count: 100}, make(chan ProgressUpdate))
		assert.NoError(t, err)
	})
}

func TestPageError(t *testing.T) {
	err := &PageError{Page: PageSpec{Index: 1, Offset: 50, Limit: 50}, Err: shared.ErrAPIRequest}
	assert.Equal(t, "page 2 (offset 50, limit 50): API request failed", err.Error())
	assert.ErrorIs(t, err, shared.ErrAPIRequest)
}
