package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/topspot/internal/shared"
)

var _ Model = (*Session)(nil)

// Session maps an opaque session ID to the [TokenState] obtained at login.
//
// UI layers only ever hold the ID; the token stays behind the repository.
type Session struct {
	id          string
	sequence    int
	token       TokenState
	displayName string
	createdAt   time.Time
	updatedAt   time.Time
	deletedAt   *time.Time
}

// NewSession creates an unsaved session for token.
func NewSession(sequence int, token TokenState, displayName string) *Session {
	now := time.Now()
	return &Session{
		sequence:    sequence,
		token:       token,
		displayName: displayName,
		createdAt:   now,
		updatedAt:   now,
	}
}

func (s *Session) ID() string                { return s.id }
func (s *Session) Sequence() int             { return s.sequence }
func (s *Session) Token() TokenState         { return s.token }
func (s *Session) DisplayName() string       { return s.displayName }
func (s *Session) CreatedAt() time.Time      { return s.createdAt }
func (s *Session) UpdatedAt() time.Time      { return s.updatedAt }
func (s *Session) DeletedAt() *time.Time     { return s.deletedAt }
func (s *Session) SetID(id string)           { s.id = id }
func (s *Session) SetSequence(n int)         { s.sequence = n }
func (s *Session) SetToken(t TokenState)     { s.token = t }
func (s *Session) SetDisplayName(n string)   { s.displayName = n }
func (s *Session) SetCreatedAt(t time.Time)  { s.createdAt = t }
func (s *Session) SetUpdatedAt(t time.Time)  { s.updatedAt = t }
func (s *Session) SetDeletedAt(t *time.Time) { s.deletedAt = t }

// Validate checks the session carries a usable token.
func (s *Session) Validate() error {
	if s.id == "" {
		return fmt.Errorf("%w: session id is required", shared.ErrInvalidInput)
	}
	if err := s.token.Validate(); err != nil {
		return fmt.Errorf("session %s: %w", s.id, err)
	}
	return nil
}
