package tasks

import (
	"fmt"

	"github.com/desertthunder/topspot/internal/models"
)

// ProgressUpdate represents a progress event during a fetch.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	PlanPhase Phase = iota
	FetchPage
	Complete
	Failed
)

func (p Phase) String() string {
	switch p {
	case PlanPhase:
		return "plan"
	case FetchPage:
		return "fetch_page"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

func planUpdate(req models.FetchRequest, pages []PageSpec) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PlanPhase,
		Step:    0,
		Total:   len(pages),
		Message: fmt.Sprintf("Fetching top %d %s (%s)...", req.Count, req.Category, req.Window.Label()),
		Data:    pages,
	}
}

func pageUpdate(page PageSpec, total, rows int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPage,
		Step:    page.Index + 1,
		Total:   total,
		Message: fmt.Sprintf("Fetched page %d of %d (%d rows)", page.Index+1, total, rows),
		Data:    page,
	}
}

func completeUpdate(table *models.ResultTable, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    table.Pages,
		Total:   total,
		Message: fmt.Sprintf("Fetched %d %s (%d skipped)", table.Len(), table.Category, table.Skipped),
		Data:    table,
	}
}

func failedUpdate(err *PageError, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Failed,
		Step:    err.Page.Index + 1,
		Total:   total,
		Message: err.Error(),
		Data:    err,
	}
}
