package repository

import (
	"context"
	"errors"

	"github.com/Snoglet99/JobAgent/models"
)

// ErrVersionConflict is returned by the Postgres backend when a profile was
// modified between load and save. The blob backend never returns it.
var ErrVersionConflict = errors.New("profile version conflict")

// ProfileRepository maps an email identity to a durable profile record.
type ProfileRepository interface {
	// Load returns the existing record for an email, or a fresh
	// default-valued one if none exists yet.
	Load(ctx context.Context, email string) (*models.UserProfile, error)

	// Save persists the record wholesale.
	Save(ctx context.Context, email string, profile *models.UserProfile) error
}

// HistoryRepository stores a user's generation history, newest first.
type HistoryRepository interface {
	// Append inserts an entry at the head of the user's history.
	Append(ctx context.Context, email string, entry models.HistoryEntry) error

	// List returns all entries, most recent first.
	List(ctx context.Context, email string) ([]models.HistoryEntry, error)
}
