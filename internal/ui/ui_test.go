package ui

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/topspot/internal/models"
	"github.com/desertthunder/topspot/internal/services"
	"github.com/desertthunder/topspot/internal/tasks"
)

type fakeFetcher struct {
	req   models.FetchRequest
	table *models.ResultTable
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, _ models.TokenState, req models.FetchRequest, progress chan<- tasks.ProgressUpdate) (*models.ResultTable, error) {
	f.req = req
	progress <- tasks.ProgressUpdate{Phase: tasks.FetchPage, Step: 1, Total: 1, Message: "Fetched page 1 of 1"}
	return f.table, f.err
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	down  = tea.KeyMsg{Type: tea.KeyDown}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(f *fakeFetcher, logout func() error) *Model {
	m := NewModel(context.Background(), Options{Fetcher: f, Token: models.TokenState{AccessToken: "t"}, User: "Listener", Logout: logout})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

// drain feeds fetch messages back into the model until the fetch completes.
func drain(t *testing.T, m *Model) {
	t.Helper()
	for i := 0; m.view == FetchingView; i++ {
		if i > 10 {
			t.Fatal("fetch never completed")
		}
		m.Update(m.waitForFetch()())
	}
}

func tracksTable() *models.ResultTable {
	table := models.NewResultTable(models.FetchRequest{Category: models.Tracks, Window: models.MediumTerm, Count: 20})
	table.Rows = append(table.Rows, models.Row{Category: models.Tracks, Name: "X", Album: "Y", Artist: "Z"})
	table.Pages = 1
	return table
}

func TestModel(t *testing.T) {
	t.Run("Selection flow builds the request", func(t *testing.T) {
		f := &fakeFetcher{table: tracksTable()}
		m := newTestModel(f, nil)

		if !strings.Contains(m.View(), "Signed in as Listener") {
			t.Errorf("expected user header, got %s", m.View())
		}

		m.Update(down)
		m.Update(enter)
		if m.view != WindowView {
			t.Fatalf("expected window view, got %v", m.view)
		}

		m.Update(down)
		m.Update(enter)
		m.Update(down)
		m.Update(enter)
		if m.view != FetchingView {
			t.Fatalf("expected fetching view, got %v", m.view)
		}

		drain(t, m)

		want := models.FetchRequest{Category: models.Tracks, Window: models.MediumTerm, Count: 20}
		if f.req != want {
			t.Errorf("expected request %+v, got %+v", want, f.req)
		}
		if m.view != ResultView {
			t.Fatalf("expected result view, got %v", m.view)
		}

		out := m.View()
		for _, s := range []string{"Track", "Artist", "Album", "X", "Z", "Y", "1 of 20 tracks"} {
			if !strings.Contains(out, s) {
				t.Errorf("expected %q in result view\n%s", s, out)
			}
		}
	})

	t.Run("Esc goes back", func(t *testing.T) {
		m := newTestModel(&fakeFetcher{}, nil)

		m.Update(enter)
		m.Update(enter)
		m.Update(esc)
		if m.view != WindowView {
			t.Errorf("expected window view, got %v", m.view)
		}
		m.Update(esc)
		m.Update(esc)
		if m.view != CategoryView {
			t.Errorf("expected category view, got %v", m.view)
		}
	})

	t.Run("Failure shows payload and partial rows", func(t *testing.T) {
		apiErr := &services.APIError{StatusCode: http.StatusBadGateway, Body: []byte(`{"error":{"status":502,"message":"Bad gateway"}}`)}
		f := &fakeFetcher{table: tracksTable(), err: &tasks.PageError{Page: tasks.PageSpec{Index: 1, Offset: 50, Limit: 50}, Err: apiErr}}
		m := newTestModel(f, nil)

		m.Update(enter)
		m.Update(enter)
		m.Update(enter)
		drain(t, m)

		out := m.View()
		for _, s := range []string{"Fetch failed", `"message":"Bad gateway"`, "Partial result", "X"} {
			if !strings.Contains(out, s) {
				t.Errorf("expected %q in result view\n%s", s, out)
			}
		}

		m.Update(runes("r"))
		if m.view != CategoryView || m.err != nil {
			t.Errorf("expected reset to category view, got %v (%v)", m.view, m.err)
		}
	})

	t.Run("Logout", func(t *testing.T) {
		called := 0
		m := newTestModel(&fakeFetcher{}, func() error {
			called++
			return nil
		})

		_, cmd := m.Update(runes("l"))
		if cmd == nil {
			t.Fatal("expected logout command")
		}
		m.Update(cmd())

		if called != 1 {
			t.Errorf("expected logout to be called once, got %d", called)
		}
		if m.view != LoggedOutView || !strings.Contains(m.View(), "Logged out") {
			t.Errorf("expected logged out view, got %v", m.View())
		}
	})

	t.Run("Logout failure", func(t *testing.T) {
		m := newTestModel(&fakeFetcher{}, func() error { return errors.New("db closed") })

		_, cmd := m.Update(runes("l"))
		m.Update(cmd())
		if !strings.Contains(m.View(), "db closed") {
			t.Errorf("expected logout error, got %s", m.View())
		}
	})
}

func TestResultTable(t *testing.T) {
	table := models.NewResultTable(models.FetchRequest{Category: models.Artists, Window: models.LongTerm, Count: 10})
	table.Rows = append(table.Rows, models.Row{Category: models.Artists, Name: strings.Repeat("a", 80), Genres: "pop", Popularity: 50})

	tm := resultTable(table, 10)
	cols := tm.Columns()
	if len(cols) != 4 || cols[0].Title != "#" || cols[1].Title != "Artist" {
		t.Fatalf("unexpected columns %+v", cols)
	}
	if cols[1].Width != maxColumnWidth {
		t.Errorf("expected width capped at %d, got %d", maxColumnWidth, cols[1].Width)
	}
	if got := tm.Rows()[0][3]; got != "50" {
		t.Errorf("expected popularity 50, got %s", got)
	}
}

func TestCountList(t *testing.T) {
	l := countList()
	items := l.Items()
	if len(items) != len(models.AllowedCounts) {
		t.Fatalf("expected %d items, got %d", len(models.AllowedCounts), len(items))
	}

	tests := []struct {
		index int
		title string
		desc  string
	}{
		{0, "10 items", "1 request"},
		{2, "50 items", "1 request"},
		{3, "100 items", "2 requests"},
		{6, "1000 items", "20 requests"},
	}
	for _, tt := range tests {
		item, ok := items[tt.index].(countItem)
		if !ok {
			t.Fatalf("item %d is %T, want countItem", tt.index, items[tt.index])
		}
		if item.Title() != tt.title || item.Description() != tt.desc {
			t.Errorf("item %d: got %q / %q, want %q / %q", tt.index, item.Title(), item.Description(), tt.title, tt.desc)
		}
	}
}
