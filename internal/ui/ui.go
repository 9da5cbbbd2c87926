package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/topspot/internal/formatter"
	"github.com/desertthunder/topspot/internal/models"
	"github.com/desertthunder/topspot/internal/services"
	"github.com/desertthunder/topspot/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	CategoryView ViewState = iota
	WindowView
	CountView
	FetchingView
	ResultView
	LoggedOutView
)

// Fetcher runs one aggregated fetch. [*tasks.Aggregator] implements it.
type Fetcher interface {
	Fetch(ctx context.Context, token models.TokenState, req models.FetchRequest, progress chan<- tasks.ProgressUpdate) (*models.ResultTable, error)
}

// Options holds the dependencies of the TUI.
type Options struct {
	Fetcher Fetcher
	Token   models.TokenState
	User    string

	// Logout ends the session; it runs when the user presses l.
	Logout func() error
}

type fetchRun struct {
	progress chan tasks.ProgressUpdate
	done     chan fetchResult
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	opts    Options
	view    ViewState
	width   int
	height  int
	lists   map[ViewState]list.Model
	request models.FetchRequest
	run     *fetchRun
	spinner spinner.Model
	status  string
	table   *models.ResultTable
	results table.Model
	err     error
	help    help.Model
	keys    keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.ok

	return &Model{
		ctx:  ctx,
		opts: opts,
		view: CategoryView,
		lists: map[ViewState]list.Model{
			CategoryView: categoryList(),
			WindowView:   windowList(),
			CountView:    countList(),
		},
		spinner: s,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init performs no I/O; the first fetch starts once a count is chosen.
func (m *Model) Init() tea.Cmd {
	return nil
}

// View returns the current view state.
func (m *Model) View() string {
	switch m.view {
	case CategoryView, WindowView, CountView:
		return m.renderList()
	case FetchingView:
		return m.renderFetching()
	case ResultView:
		return m.renderResult()
	case LoggedOutView:
		return m.renderLoggedOut()
	default:
		return ""
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for v, l := range m.lists {
			l.SetSize(msg.Width-4, msg.Height-6)
			m.lists[v] = l
		}
		if m.view == ResultView {
			m.results.SetHeight(m.tableHeight())
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		if m.view != FetchingView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateActive(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.status = update.Message
		return m, m.waitForFetch()

	case MsgFetchComplete:
		result := msg.data.(fetchResult)
		m.run = nil
		m.table = result.table
		m.err = result.err
		if m.table != nil {
			m.results = resultTable(m.table, m.tableHeight())
		}
		m.view = ResultView
		return m, nil

	case MsgLoggedOut:
		err, _ := msg.data.(error)
		m.err = err
		m.view = LoggedOutView
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) {
		return m, tea.Quit
	}

	switch m.view {
	case CategoryView, WindowView, CountView:
		return m.handleListKeys(msg)
	case ResultView:
		return m.handleResultKeys(msg)
	case LoggedOutView:
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	case key.Matches(msg, m.keys.back):
		if m.view > CategoryView {
			m.view--
		}
		return m, nil
	case key.Matches(msg, m.keys.enter):
		return m.selectItem()
	}

	return m.updateActive(msg)
}

func (m *Model) selectItem() (tea.Model, tea.Cmd) {
	selected := m.lists[m.view].SelectedItem()
	switch item := selected.(type) {
	case categoryItem:
		m.request.Category = item.category
		m.view = WindowView
	case windowItem:
		m.request.Window = item.window
		m.view = CountView
	case countItem:
		m.request.Count = int(item)
		return m, m.startFetch()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	case key.Matches(msg, m.keys.restart), key.Matches(msg, m.keys.back):
		m.view = CategoryView
		m.table = nil
		m.err = nil
		return m, nil
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

func (m *Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	l, ok := m.lists[m.view]
	if !ok {
		return m, nil
	}
	var cmd tea.Cmd
	l, cmd = l.Update(msg)
	m.lists[m.view] = l
	return m, cmd
}

func (m *Model) startFetch() tea.Cmd {
	run := &fetchRun{
		progress: make(chan tasks.ProgressUpdate, 32),
		done:     make(chan fetchResult, 1),
	}
	m.run = run
	m.view = FetchingView
	m.status = ""

	req, token := m.request, m.opts.Token
	go func() {
		table, err := m.opts.Fetcher.Fetch(m.ctx, token, req, run.progress)
		run.done <- fetchResult{table: table, err: err}
	}()

	return tea.Batch(m.spinner.Tick, m.waitForFetch())
}

func (m *Model) waitForFetch() tea.Cmd {
	run := m.run
	if run == nil {
		return nil
	}

	return func() tea.Msg {
		select {
		case update := <-run.progress:
			return progressUpdateMsg(update)
		case result := <-run.done:
			return fetchCompleteMsg(result)
		}
	}
}

func (m *Model) logout() tea.Cmd {
	logout := m.opts.Logout
	return func() tea.Msg {
		if logout == nil {
			return loggedOutMsg(nil)
		}
		return loggedOutMsg(logout())
	}
}

func (m *Model) tableHeight() int {
	// title, summary, error box and help
	h := m.height - 8
	if m.err != nil {
		h -= 6
	}
	return h
}

func (m *Model) renderList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.logout, m.keys.quit}
	if m.view > CategoryView {
		helpKeys = []key.Binding{m.keys.enter, m.keys.back, m.keys.logout, m.keys.quit}
	}

	var header string
	if m.opts.User != "" {
		header = styles.help.Render("Signed in as "+m.opts.User) + "\n"
	}
	return fmt.Sprintf("%s%s\n\n%s", header, m.lists[m.view].View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderFetching() string {
	title := styles.title.Render(formatter.Title(models.NewResultTable(m.request)))
	status := m.status
	if status == "" {
		status = "Starting..."
	}
	return fmt.Sprintf("%s\n%s %s", title, m.spinner.View(), status)
}

func (m *Model) renderResult() string {
	var b strings.Builder

	if m.table != nil {
		b.WriteString(styles.title.Render(formatter.Title(m.table)))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(styles.err.Render("Fetch failed: " + m.err.Error()))
		b.WriteString("\n")
		if payload := errorPayload(m.err); payload != "" {
			b.WriteString(styles.payload.Render(payload))
			b.WriteString("\n")
		}
	}

	if m.table != nil {
		if m.table.Len() > 0 {
			b.WriteString(m.results.View())
			b.WriteString("\n")
		}
		summary := formatter.Summary(m.table)
		if m.err != nil {
			b.WriteString(styles.warn.Render("Partial result: " + summary))
		} else {
			b.WriteString(styles.ok.Render(summary))
		}
		b.WriteString("\n")
	}

	helpKeys := []key.Binding{m.keys.up, m.keys.down, m.keys.restart, m.keys.logout, m.keys.quit}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderLoggedOut() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Logout failed: %v\n\nPress any key to quit", m.err))
	}
	return styles.ok.Render("✓ Logged out.") + "\n\n" + styles.help.Render("Press any key to quit")
}

// errorPayload returns the provider's raw error body, if the error carries one.
func errorPayload(err error) string {
	var apiErr *services.APIError
	if errors.As(err, &apiErr) && len(apiErr.Body) > 0 {
		return string(apiErr.Body)
	}
	return ""
}
