// Package tasks fetches a user's top items page by page with real-time progress reporting.
//
// # Page Plan
//
// [PlanPages] turns a requested count into ceil(count/50) pages. Offsets advance by exactly 50 and the
// last page asks only for the remainder:
//
//	120 -> (0,50) (50,50) (100,20)
//
// # Aggregation
//
// [Aggregator.Fetch] issues the planned pages sequentially through a [services.TopItemsFetcher],
// projects each item with the category's [services.Projector] and appends rows in page order, then
// in-page order. Malformed items are skipped and counted in [models.ResultTable.Skipped].
//
// A failing page stops the loop. The partial table is returned along with a [*PageError] that wraps the
// provider error ([*services.APIError] for non-2xx responses). There is no retry; an optional
// [rate.Limiter] only spaces requests out.
//
// # Progress Reporting
//
// Fetch accepts an optional channel of [ProgressUpdate]. Updates use select with default so a slow
// reader never blocks the fetch.
package tasks
