package repositories

import (
	"database/sql"
	"fmt"
	"time"
)

// NextSequence increments and returns the next sequence number for the given table.
//
// Sequence numbers give sessions a stable login order independent of their UUIDs.
// The table name is never user input.
func NextSequence(db *sql.DB, table string) (int, error) {
	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)

	var sequence int
	if err := db.QueryRow(query).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to increment %s sequence: %w", table, err)
	}
	return sequence, nil
}

// softDelete stamps deleted_at on a live row and reports how many rows changed.
func softDelete(db *sql.DB, table, id string, at time.Time) (sql.Result, error) {
	query := fmt.Sprintf("UPDATE %s SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL", table)
	return db.Exec(query, at, at, id)
}
