package services

import (
	"context"

	"github.com/desertthunder/topspot/internal/models"
)

// TopItemsFetcher fetches one page of the user's top items.
//
// Implementations issue exactly one request per call and never retry.
type TopItemsFetcher interface {
	TopItems(ctx context.Context, token models.TokenState, category models.Category, window models.Window, limit, offset int) (*TopItemsPage, error)
}

// ProfileFetcher retrieves the authenticated user's profile.
type ProfileFetcher interface {
	Profile(ctx context.Context, token models.TokenState) (*SpotifyUser, error)
}

// Service is the full surface of the resource provider consumed by the UI layers.
type Service interface {
	TopItemsFetcher
	ProfileFetcher

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}
