package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/desertthunder/topspot/internal/formatter"
	"github.com/desertthunder/topspot/internal/models"
	"github.com/desertthunder/topspot/internal/services"
	"github.com/desertthunder/topspot/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Top fetches the user's top items and prints or exports them.
//
// When a page fails the rows gathered so far are still written, followed by the provider's error payload.
func (r *Runner) Top(ctx context.Context, cmd *cli.Command) error {
	req, err := fetchRequestFrom(cmd)
	if err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	session, err := r.currentSession()
	if err != nil {
		return err
	}

	r.logger.Info("fetching top items", "category", req.Category, "time_range", req.Window, "count", req.Count)

	progress := make(chan tasks.ProgressUpdate, 8)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.logger.Debug(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}()

	table, fetchErr := r.aggregator().Fetch(ctx, session.Token(), req, progress)
	close(progress)
	wg.Wait()

	if table == nil {
		return fetchErr
	}

	path := cmd.String("output")
	if path != "" {
		if err := formatter.WriteExport(table, format, path); err != nil {
			return err
		}
		r.writePlain("✓ Exported %s to %s\n", formatter.Summary(table), path)
	} else {
		data, err := formatter.Render(table, format)
		if err != nil {
			return err
		}
		if format == formatter.JSON {
			if fetchErr != nil {
				return r.writeFailureJSON(data, fetchErr)
			}
			data = append(data, '\n')
		}
		if err := r.writePlain("%s", data); err != nil {
			return err
		}
	}

	if fetchErr != nil {
		var pageErr *tasks.PageError
		if errors.As(fetchErr, &pageErr) {
			r.writePlainln("✗ Stopped at page %d (offset %d)", pageErr.Page.Index+1, pageErr.Page.Offset)
		}
		r.writePayload(fetchErr)
		return fetchErr
	}
	return nil
}

// fetchFailure is the JSON document written when a page fails, matching the web app's /top?format=json body.
type fetchFailure struct {
	Error   string          `json:"error"`
	Status  int             `json:"status,omitempty"`
	Page    int             `json:"page,omitempty"`
	Payload any             `json:"payload,omitempty"`
	Partial json.RawMessage `json:"partial"`
}

// writeFailureJSON wraps the partial table with the provider's status and payload, then returns err.
func (r *Runner) writeFailureJSON(partial []byte, err error) error {
	failure := fetchFailure{Error: err.Error(), Partial: partial}

	var apiErr *services.APIError
	if errors.As(err, &apiErr) {
		failure.Status = apiErr.StatusCode
		failure.Payload = apiErr.Payload()
	}
	var pageErr *tasks.PageError
	if errors.As(err, &pageErr) {
		failure.Page = pageErr.Page.Index + 1
	}

	if wErr := r.writeJSON(failure, true); wErr != nil {
		return wErr
	}
	return err
}

func fetchRequestFrom(cmd *cli.Command) (models.FetchRequest, error) {
	category, err := models.ParseCategory(cmd.String("category"))
	if err != nil {
		return models.FetchRequest{}, fmt.Errorf("--category: %w", err)
	}

	window, err := models.ParseWindow(cmd.String("time-range"))
	if err != nil {
		return models.FetchRequest{}, fmt.Errorf("--time-range: %w", err)
	}

	req := models.FetchRequest{Category: category, Window: window, Count: cmd.Int("limit")}
	if err := req.Validate(); err != nil {
		return models.FetchRequest{}, fmt.Errorf("--limit: %w", err)
	}
	return req, nil
}
