package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/topspot/internal/models"
)

var (
	_ list.Item = categoryItem{}
	_ list.Item = windowItem{}
	_ list.Item = countItem(0)
)

// categoryItem wraps [models.Category] to implement [list.Item].
type categoryItem struct {
	category models.Category
}

func (i categoryItem) FilterValue() string { return i.category.String() }
func (i categoryItem) Title() string       { return "Top " + i.category.String() }
func (i categoryItem) Description() string {
	return fmt.Sprintf("Columns: %v", i.category.Columns())
}

// windowItem wraps [models.Window] to implement [list.Item].
type windowItem struct {
	window models.Window
}

func (i windowItem) FilterValue() string { return i.window.String() }
func (i windowItem) Title() string       { return i.window.Label() }
func (i windowItem) Description() string { return i.window.String() }

// countItem is one of [models.AllowedCounts].
type countItem int

func (i countItem) FilterValue() string { return fmt.Sprint(int(i)) }
func (i countItem) Title() string       { return fmt.Sprintf("%d items", int(i)) }
func (i countItem) Description() string {
	pages := (int(i) + 49) / 50
	if pages == 1 {
		return "1 request"
	}
	return fmt.Sprintf("%d requests", pages)
}

func newSelectList(title string, items []list.Item) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	return l
}

func categoryList() list.Model {
	items := make([]list.Item, len(models.Categories))
	for i, c := range models.Categories {
		items[i] = categoryItem{category: c}
	}
	return newSelectList("What do you want to see?", items)
}

func windowList() list.Model {
	items := make([]list.Item, len(models.Windows))
	for i, w := range models.Windows {
		items[i] = windowItem{window: w}
	}
	return newSelectList("Over which period?", items)
}

func countList() list.Model {
	items := make([]list.Item, len(models.AllowedCounts))
	for i, n := range models.AllowedCounts {
		items[i] = countItem(n)
	}
	return newSelectList("How many?", items)
}
