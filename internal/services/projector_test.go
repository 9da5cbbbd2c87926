package services

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/desertthunder/topspot/internal/models"
)

func TestProjectorFor(t *testing.T) {
	for _, c := range models.Categories {
		p, err := ProjectorFor(c)
		if err != nil {
			t.Fatalf("expected projector for %s, got %v", c, err)
		}
		if p.Category() != c {
			t.Errorf("expected category %s, got %s", c, p.Category())
		}
	}

	if _, err := ProjectorFor(models.Category(9)); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestArtistProjector(t *testing.T) {
	p := artistProjector{}

	t.Run("Maps genres and popularity", func(t *testing.T) {
		row, err := p.Project(json.RawMessage(`{"name":"A","genres":["pop","rock"],"popularity":87}`))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		want := models.Row{Category: models.Artists, Name: "A", Genres: "pop, rock", Popularity: 87}
		if row != want {
			t.Errorf("expected %+v, got %+v", want, row)
		}
	})

	t.Run("Missing or null genres become empty", func(t *testing.T) {
		for _, raw := range []string{`{"name":"A","popularity":1}`, `{"name":"A","genres":null,"popularity":1}`, `{"name":"A","genres":[],"popularity":1}`} {
			row, err := p.Project(json.RawMessage(raw))
			if err != nil {
				t.Fatalf("%s: expected no error, got %v", raw, err)
			}
			if row.Genres != "" {
				t.Errorf("%s: expected empty genres, got %q", raw, row.Genres)
			}
		}
	})

	t.Run("Zero popularity is valid", func(t *testing.T) {
		row, err := p.Project(json.RawMessage(`{"name":"A","popularity":0}`))
		if err != nil || row.Popularity != 0 {
			t.Errorf("expected popularity 0 and no error, got %d, %v", row.Popularity, err)
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, raw := range []string{`{"popularity":1}`, `{"name":"A"}`, `[1,2]`, `"x"`} {
			if _, err := p.Project(json.RawMessage(raw)); !errors.Is(err, ErrMalformedItem) {
				t.Errorf("%s: expected ErrMalformedItem, got %v", raw, err)
			}
		}
	})
}

func TestTrackProjector(t *testing.T) {
	p := trackProjector{}

	t.Run("Maps first artist and album", func(t *testing.T) {
		raw := `{"name":"X","album":{"name":"Y"},"artists":[{"name":"Z"},{"name":"W"}]}`
		row, err := p.Project(json.RawMessage(raw))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		want := models.Row{Category: models.Tracks, Name: "X", Album: "Y", Artist: "Z"}
		if row != want {
			t.Errorf("expected %+v, got %+v", want, row)
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, raw := range []string{
			`{"album":{"name":"Y"},"artists":[{"name":"Z"}]}`,
			`{"name":"X","artists":[{"name":"Z"}]}`,
			`{"name":"X","album":{},"artists":[{"name":"Z"}]}`,
			`{"name":"X","album":{"name":"Y"},"artists":[]}`,
			`{"name":"X","album":{"name":"Y"}}`,
			`null`,
		} {
			if _, err := p.Project(json.RawMessage(raw)); !errors.Is(err, ErrMalformedItem) {
				t.Errorf("%s: expected ErrMalformedItem, got %v", raw, err)
			}
		}
	})
}
