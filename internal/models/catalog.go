package models

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/desertthunder/topspot/internal/shared"
)

// Category is the kind of top item requested from /me/top/{category}.
type Category int

const (
	Artists Category = iota
	Tracks
)

// Categories lists every category in display order.
var Categories = []Category{Artists, Tracks}

// String returns the path segment used by the API.
func (c Category) String() string {
	switch c {
	case Artists:
		return "artists"
	case Tracks:
		return "tracks"
	default:
		return ""
	}
}

// Columns returns the table headers for rows of this category.
func (c Category) Columns() []string {
	switch c {
	case Artists:
		return []string{"Artist", "Genres", "Popularity"}
	case Tracks:
		return []string{"Track", "Artist", "Album"}
	default:
		return nil
	}
}

// ParseCategory accepts "artists"/"tracks" and their singular forms, case-insensitively.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "artists", "artist":
		return Artists, nil
	case "tracks", "track":
		return Tracks, nil
	default:
		return 0, fmt.Errorf("%w: unknown category %q", shared.ErrInvalidInput, s)
	}
}

// Window is the ranking period (time_range) the provider aggregates over.
type Window int

const (
	ShortTerm Window = iota
	MediumTerm
	LongTerm
)

// Windows lists every window in display order.
var Windows = []Window{ShortTerm, MediumTerm, LongTerm}

// String returns the time_range query value.
func (w Window) String() string {
	switch w {
	case ShortTerm:
		return "short_term"
	case MediumTerm:
		return "medium_term"
	case LongTerm:
		return "long_term"
	default:
		return ""
	}
}

// Label returns a human readable description of the window.
func (w Window) Label() string {
	switch w {
	case ShortTerm:
		return "Last 4 weeks"
	case MediumTerm:
		return "Last 6 months"
	case LongTerm:
		return "Last year"
	default:
		return ""
	}
}

// ParseWindow accepts the time_range values and the short aliases short, medium and long.
func ParseWindow(s string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "short_term", "short":
		return ShortTerm, nil
	case "medium_term", "medium":
		return MediumTerm, nil
	case "long_term", "long":
		return LongTerm, nil
	default:
		return 0, fmt.Errorf("%w: unknown time range %q", shared.ErrInvalidInput, s)
	}
}

// AllowedCounts is the fixed set of item counts a user may request.
var AllowedCounts = []int{10, 20, 50, 100, 200, 500, 1000}

// ParseCount parses a requested item count and checks it against [AllowedCounts].
func ParseCount(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: count %q is not a number", shared.ErrInvalidInput, s)
	}
	if !slices.Contains(AllowedCounts, n) {
		return 0, fmt.Errorf("%w: count %d must be one of %v", shared.ErrInvalidInput, n, AllowedCounts)
	}
	return n, nil
}

// FetchRequest describes one top items fetch.
type FetchRequest struct {
	Category Category
	Window   Window
	Count    int
}

// Validate checks the category, window and count.
func (r FetchRequest) Validate() error {
	if r.Category.String() == "" {
		return fmt.Errorf("%w: category %d", shared.ErrInvalidInput, r.Category)
	}
	if r.Window.String() == "" {
		return fmt.Errorf("%w: window %d", shared.ErrInvalidInput, r.Window)
	}
	if !slices.Contains(AllowedCounts, r.Count) {
		return fmt.Errorf("%w: count %d must be one of %v", shared.ErrInvalidInput, r.Count, AllowedCounts)
	}
	return nil
}
