// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/topspot/internal/models"
	"github.com/desertthunder/topspot/internal/shared"
)

const (
	DefaultSpotifyBaseURL   = "https://api.spotify.com/v1"
	DefaultSpotifyUserAgent = "topspot/1.0"

	// MaxPageLimit is the largest limit /me/top accepts.
	MaxPageLimit = 50
)

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// TopItemsPage is one page of /me/top/{category}.
//
// Items are kept raw so that a malformed item can be skipped without failing the page.
type TopItemsPage struct {
	Href     string            `json:"href"`
	Items    []json.RawMessage `json:"items"`
	Total    int               `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
}

// APIError is a non-2xx response from the Spotify API. Body holds the provider's error payload verbatim.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("spotify API error: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("spotify API error: status %d", e.StatusCode)
}

// Is matches [shared.ErrAPIRequest] for every status and [shared.ErrTokenExpired] for 401.
func (e *APIError) Is(target error) bool {
	switch target {
	case shared.ErrAPIRequest:
		return true
	case shared.ErrTokenExpired:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// Payload returns the decoded JSON error body, or the body as a string when it isn't JSON.
func (e *APIError) Payload() any {
	var v any
	if err := json.Unmarshal(e.Body, &v); err == nil {
		return v
	}
	return string(e.Body)
}

// newAPIError builds an [APIError], extracting the message from Spotify's {"error": {"status", "message"}} envelope
// or the OAuth style {"error", "error_description"} body.
func newAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, Status: resp.Status, Body: body}

	var envelope struct {
		Error json.RawMessage `json:"error"`
		Desc  string          `json:"error_description"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		return apiErr
	}

	var regular struct {
		Message string `json:"message"`
	}
	var code string
	switch {
	case json.Unmarshal(envelope.Error, &regular) == nil && regular.Message != "":
		apiErr.Message = regular.Message
	case json.Unmarshal(envelope.Error, &code) == nil:
		apiErr.Message = strings.TrimSpace(code + " " + envelope.Desc)
	}
	return apiErr
}

// SpotifyClient implements [Service] against the Spotify Web API.
//
// The client holds no token: every call takes the session's [models.TokenState].
type SpotifyClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// ClientOption is a functional option for configuring the Spotify client.
type ClientOption func(*SpotifyClient)

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *SpotifyClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *SpotifyClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *SpotifyClient) {
		c.userAgent = ua
	}
}

// NewSpotifyClient creates a Spotify API client.
func NewSpotifyClient(opts ...ClientOption) *SpotifyClient {
	c := &SpotifyClient{
		baseURL:    DefaultSpotifyBaseURL,
		userAgent:  DefaultSpotifyUserAgent,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *SpotifyClient) Name() string {
	return "Spotify"
}

// doRequest performs an authenticated GET against the Spotify API and decodes a 2xx body into result.
func (c *SpotifyClient) doRequest(ctx context.Context, token models.TokenState, endpoint string, query url.Values, result any) error {
	if err := token.Validate(); err != nil {
		return err
	}

	apiURL := c.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", token.Authorization())
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp, body)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %w", shared.ErrAPIRequest, err)
		}
	}

	return nil
}

// Profile retrieves the current authenticated user's profile.
func (c *SpotifyClient) Profile(ctx context.Context, token models.TokenState) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := c.doRequest(ctx, token, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// TopItems retrieves one page of the user's top artists or tracks.
//
// limit must be in [1, 50] and offset non-negative; out of range values are rejected rather than clamped
// so the caller's page arithmetic stays exact.
func (c *SpotifyClient) TopItems(ctx context.Context, token models.TokenState, category models.Category, window models.Window, limit, offset int) (*TopItemsPage, error) {
	if category.String() == "" {
		return nil, fmt.Errorf("%w: unknown category %d", shared.ErrInvalidInput, category)
	}
	if window.String() == "" {
		return nil, fmt.Errorf("%w: unknown window %d", shared.ErrInvalidInput, window)
	}
	if limit < 1 || limit > MaxPageLimit {
		return nil, fmt.Errorf("%w: limit %d outside [1, %d]", shared.ErrInvalidInput, limit, MaxPageLimit)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: negative offset %d", shared.ErrInvalidInput, offset)
	}

	query := url.Values{}
	query.Set("time_range", window.String())
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	var page TopItemsPage
	if err := c.doRequest(ctx, token, "/me/top/"+category.String(), query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
