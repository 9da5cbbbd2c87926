// package models defines sessions and the top items domain: categories, windows, fetch requests and normalized rows.
package models

import (
	"time"
)

// Model is a persisted record. Records are soft deleted, so DeletedAt is nil while the record is live.
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	DeletedAt() *time.Time
	Validate() error
}

// Repository stores models of one kind.
//
// Get and List skip soft deleted records. Delete on a missing or already deleted record returns a not-found error.
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	List(criteria map[string]any) ([]T, error)
	Latest() (T, error) // Latest returns the most recently created live record
}
