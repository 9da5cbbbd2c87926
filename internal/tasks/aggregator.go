package tasks

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/topspot/internal/models"
	"github.com/desertthunder/topspot/internal/services"
	"golang.org/x/time/rate"
)

// PageSize is the provider's maximum page size for /me/top.
const PageSize = services.MaxPageLimit

// PageSpec is one planned request: items [Offset, Offset+Limit).
type PageSpec struct {
	Index  int
	Offset int
	Limit  int
}

// PlanPages splits count into ceil(count/PageSize) pages with offsets advancing by exactly PageSize.
//
// The plan is pure arithmetic on count; it does not depend on how many items the provider holds.
func PlanPages(count int) []PageSpec {
	if count <= 0 {
		return nil
	}

	pages := make([]PageSpec, 0, (count+PageSize-1)/PageSize)
	for offset := 0; offset < count; offset += PageSize {
		pages = append(pages, PageSpec{
			Index:  len(pages),
			Offset: offset,
			Limit:  min(PageSize, count-offset),
		})
	}
	return pages
}

// PageError reports the page whose request failed. Rows from earlier pages are still returned.
type PageError struct {
	Page PageSpec
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d (offset %d, limit %d): %v", e.Page.Index+1, e.Page.Offset, e.Page.Limit, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// AggregatorOpts configures an [Aggregator].
type AggregatorOpts struct {
	Logger *log.Logger

	// Limiter paces page requests. When nil and RequestsPerSecond > 0 one is created.
	Limiter           *rate.Limiter
	RequestsPerSecond float64

	// StopOnShortPage ends the fetch after the first page with fewer items than requested.
	// By default every planned page is requested.
	StopOnShortPage bool
}

// Aggregator fetches top items page by page and normalizes them into a [models.ResultTable].
type Aggregator struct {
	fetcher         services.TopItemsFetcher
	logger          *log.Logger
	limiter         *rate.Limiter
	stopOnShortPage bool
}

// NewAggregator creates an [Aggregator] over fetcher.
func NewAggregator(fetcher services.TopItemsFetcher, opts AggregatorOpts) *Aggregator {
	a := &Aggregator{
		fetcher:         fetcher,
		logger:          opts.Logger,
		limiter:         opts.Limiter,
		stopOnShortPage: opts.StopOnShortPage,
	}
	if a.logger == nil {
		a.logger = log.New(io.Discard)
	}
	if a.limiter == nil && opts.RequestsPerSecond > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return a
}

// sendProgress sends a progress update through the channel without blocking.
func (a *Aggregator) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}

	select {
	case progress <- update:
	default:
	}
}

// Fetch requests every planned page in order and returns the concatenated rows.
//
// Pages are fetched strictly one after another. Items that cannot be projected are skipped and counted.
// When a page fails, the rows gathered so far are returned together with a [*PageError]; nothing is retried.
// An invalid request or missing token fails before any request is made and returns a nil table.
func (a *Aggregator) Fetch(ctx context.Context, token models.TokenState, req models.FetchRequest, progress chan<- ProgressUpdate) (*models.ResultTable, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := token.Validate(); err != nil {
		return nil, err
	}

	projector, err := services.ProjectorFor(req.Category)
	if err != nil {
		return nil, err
	}

	pages := PlanPages(req.Count)
	table := models.NewResultTable(req)
	logger := a.logger.With("category", req.Category, "time_range", req.Window, "count", req.Count)

	a.sendProgress(progress, planUpdate(req, pages))
	logger.Debug("planned pages", "pages", len(pages))

	for _, page := range pages {
		if err := a.wait(ctx); err != nil {
			return table, a.fail(logger, progress, page, len(pages), err)
		}

		result, err := a.fetcher.TopItems(ctx, token, req.Category, req.Window, page.Limit, page.Offset)
		if err != nil {
			return table, a.fail(logger, progress, page, len(pages), err)
		}
		table.Pages++

		items := result.Items
		if len(items) > page.Limit {
			logger.Warn("provider returned more items than requested", "page", page.Index, "limit", page.Limit, "items", len(items))
			items = items[:page.Limit]
		}

		for i, raw := range items {
			row, err := projector.Project(raw)
			if err != nil {
				table.Skipped++
				logger.Warn("skipping malformed item", "position", page.Offset+i, "error", err)
				continue
			}
			table.Rows = append(table.Rows, row)
		}

		a.sendProgress(progress, pageUpdate(page, len(pages), table.Len()))

		if a.stopOnShortPage && len(items) < page.Limit {
			logger.Debug("short page, stopping", "page", page.Index, "items", len(items))
			break
		}
	}

	logger.Info("fetch complete", "rows", table.Len(), "skipped", table.Skipped, "pages", table.Pages)
	a.sendProgress(progress, completeUpdate(table, len(pages)))
	return table, nil
}

func (a *Aggregator) wait(ctx context.Context) error {
	if a.limiter == nil {
		return ctx.Err()
	}
	return a.limiter.Wait(ctx)
}

func (a *Aggregator) fail(logger *log.Logger, progress chan<- ProgressUpdate, page PageSpec, total int, err error) error {
	pageErr := &PageError{Page: page, Err: err}
	logger.Error("page fetch failed", "page", page.Index, "offset", page.Offset, "error", err)
	a.sendProgress(progress, failedUpdate(pageErr, total))
	return pageErr
}
