package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/topspot/internal/models"
)

// ErrMalformedItem marks a provider item missing a field its category needs.
var ErrMalformedItem = errors.New("malformed item")

// Projector normalizes raw provider items of one category into [models.Row] values.
type Projector interface {
	Category() models.Category
	Project(raw json.RawMessage) (models.Row, error)
}

// ProjectorFor returns the projector for category.
func ProjectorFor(category models.Category) (Projector, error) {
	switch category {
	case models.Artists:
		return artistProjector{}, nil
	case models.Tracks:
		return trackProjector{}, nil
	default:
		return nil, fmt.Errorf("no projector for category %d", category)
	}
}

// Pointer fields distinguish a missing key from a zero value.
type namedObject struct {
	Name *string `json:"name"`
}

type artistItem struct {
	Name       *string  `json:"name"`
	Genres     []string `json:"genres"`
	Popularity *int     `json:"popularity"`
}

type trackItem struct {
	Name    *string       `json:"name"`
	Album   *namedObject  `json:"album"`
	Artists []namedObject `json:"artists"`
}

type artistProjector struct{}

func (artistProjector) Category() models.Category { return models.Artists }

// Project maps name, genres (comma separated, empty when absent) and popularity.
func (artistProjector) Project(raw json.RawMessage) (models.Row, error) {
	var item artistItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return models.Row{}, fmt.Errorf("%w: %w", ErrMalformedItem, err)
	}
	if item.Name == nil {
		return models.Row{}, fmt.Errorf("%w: artist has no name", ErrMalformedItem)
	}
	if item.Popularity == nil {
		return models.Row{}, fmt.Errorf("%w: artist %q has no popularity", ErrMalformedItem, *item.Name)
	}

	return models.Row{
		Category:   models.Artists,
		Name:       *item.Name,
		Genres:     strings.Join(item.Genres, ", "),
		Popularity: *item.Popularity,
	}, nil
}

type trackProjector struct{}

func (trackProjector) Category() models.Category { return models.Tracks }

// Project maps name, album name and the first listed artist.
func (trackProjector) Project(raw json.RawMessage) (models.Row, error) {
	var item trackItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return models.Row{}, fmt.Errorf("%w: %w", ErrMalformedItem, err)
	}
	if item.Name == nil {
		return models.Row{}, fmt.Errorf("%w: track has no name", ErrMalformedItem)
	}
	if item.Album == nil || item.Album.Name == nil {
		return models.Row{}, fmt.Errorf("%w: track %q has no album", ErrMalformedItem, *item.Name)
	}
	if len(item.Artists) == 0 || item.Artists[0].Name == nil {
		return models.Row{}, fmt.Errorf("%w: track %q has no artist", ErrMalformedItem, *item.Name)
	}

	return models.Row{
		Category: models.Tracks,
		Name:     *item.Name,
		Album:    *item.Album.Name,
		Artist:   *item.Artists[0].Name,
	}, nil
}
