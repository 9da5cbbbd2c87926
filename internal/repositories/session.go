package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/topspot/internal/models"
	"github.com/desertthunder/topspot/internal/shared"
)

var _ models.Repository[*models.Session] = (*SessionRepository)(nil)

const sessionColumns = `id, sequence, access_token, token_type, scope, obtained_at, expires_at, display_name, created_at, updated_at, deleted_at`

// scanner is satisfied by [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

// SessionRepository implements models.Repository[*models.Session].
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session with a generated ID and sequence
func (r *SessionRepository) Create(session *models.Session) error {
	sequence, err := NextSequence(r.db, "sessions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	session.SetID(shared.GenerateID())
	session.SetSequence(sequence)

	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	token := session.Token()
	query := `
		INSERT INTO sessions (id, sequence, access_token, token_type, scope, obtained_at, expires_at, display_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		session.ID(),
		sequence,
		token.AccessToken,
		token.TokenType,
		token.Scope,
		token.ObtainedAt,
		nullTime(token.ExpiresAt),
		session.DisplayName(),
		session.CreatedAt(),
		session.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// Get retrieves a session by ID, excluding logged out sessions
func (r *SessionRepository) Get(id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// Latest retrieves the most recently created live session
func (r *SessionRepository) Latest() (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE deleted_at IS NULL ORDER BY sequence DESC LIMIT 1`
	return r.scan(r.db.QueryRow(query))
}

// Update stores a session's token and display name
func (r *SessionRepository) Update(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	session.SetUpdatedAt(now)
	token := session.Token()

	query := `
		UPDATE sessions
		SET access_token = ?, token_type = ?, scope = ?, obtained_at = ?, expires_at = ?, display_name = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		token.AccessToken,
		token.TokenType,
		token.Scope,
		token.ObtainedAt,
		nullTime(token.ExpiresAt),
		session.DisplayName(),
		now,
		session.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	return checkAffected(result, session.ID())
}

// Delete soft-deletes a session by ID
func (r *SessionRepository) Delete(id string) error {
	result, err := softDelete(r.db, "sessions", id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return checkAffected(result, id)
}

// List retrieves live sessions in login order. Supported criteria: "display_name".
func (r *SessionRepository) List(criteria map[string]any) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE deleted_at IS NULL`
	args := []any{}

	if name, ok := criteria["display_name"].(string); ok && name != "" {
		query += " AND display_name = ?"
		args = append(args, name)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sessions, nil
}

func (r *SessionRepository) scan(row scanner) (*models.Session, error) {
	var (
		id          string
		sequence    int
		token       models.TokenState
		expiresAt   sql.NullTime
		displayName string
		createdAt   time.Time
		updatedAt   time.Time
		deletedAt   sql.NullTime
	)

	err := row.Scan(&id, &sequence, &token.AccessToken, &token.TokenType, &token.Scope, &token.ObtainedAt,
		&expiresAt, &displayName, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	if expiresAt.Valid {
		token.ExpiresAt = expiresAt.Time
	}

	session := models.NewSession(sequence, token, displayName)
	session.SetID(id)
	session.SetCreatedAt(createdAt)
	session.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		session.SetDeletedAt(&deletedAt.Time)
	}

	return session, nil
}

func checkAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
