package models

import (
	"encoding/json"
	"strconv"
)

// Row is one normalized top item. Which fields are meaningful depends on Category:
//
//	Artists: Name, Genres (comma-joined), Popularity
//	Tracks:  Name, Artist (primary artist), Album
type Row struct {
	Category   Category
	Name       string
	Genres     string
	Popularity int
	Album      string
	Artist     string
}

// Values returns the row's cells in the order of [Category.Columns].
func (r Row) Values() []string {
	switch r.Category {
	case Artists:
		return []string{r.Name, r.Genres, strconv.Itoa(r.Popularity)}
	case Tracks:
		return []string{r.Name, r.Artist, r.Album}
	default:
		return nil
	}
}

// Fields maps column names to values for the row's category.
func (r Row) Fields() map[string]any {
	switch r.Category {
	case Artists:
		return map[string]any{"Artist": r.Name, "Genres": r.Genres, "Popularity": r.Popularity}
	case Tracks:
		return map[string]any{"Track": r.Name, "Artist": r.Artist, "Album": r.Album}
	default:
		return map[string]any{}
	}
}

// MarshalJSON encodes the row keyed by its column names.
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}

// ResultTable is the ordered output of one fetch: page order, then in-page order.
//
// Rows may be fewer than Requested when the provider has fewer items, when malformed items were skipped,
// or when a page failed and the table is partial.
type ResultTable struct {
	Category  Category `json:"-"`
	Window    Window   `json:"-"`
	Requested int      `json:"requested"`
	Rows      []Row    `json:"rows"`
	Skipped   int      `json:"skipped"`
	Pages     int      `json:"pages"`
}

// NewResultTable creates an empty table for req.
func NewResultTable(req FetchRequest) *ResultTable {
	return &ResultTable{
		Category:  req.Category,
		Window:    req.Window,
		Requested: req.Count,
		Rows:      make([]Row, 0, req.Count),
	}
}

// Len returns the number of rows.
func (t *ResultTable) Len() int {
	return len(t.Rows)
}

// Columns returns the table headers.
func (t *ResultTable) Columns() []string {
	return t.Category.Columns()
}

// Records returns every row's values, in order.
func (t *ResultTable) Records() [][]string {
	records := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		records = append(records, row.Values())
	}
	return records
}

// MarshalJSON adds the category and window names to the encoded table.
func (t *ResultTable) MarshalJSON() ([]byte, error) {
	type alias ResultTable
	return json.Marshal(struct {
		Category string `json:"category"`
		Window   string `json:"time_range"`
		*alias
	}{t.Category.String(), t.Window.String(), (*alias)(t)})
}
