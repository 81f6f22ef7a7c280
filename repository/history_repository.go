package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Snoglet99/JobAgent/models"
	"github.com/Snoglet99/JobAgent/storage"
)

// BlobHistoryRepository keeps a user's history as a single JSON list next to
// the profile record, keyed "<token>_history". Entries are inserted at the
// head and the list grows without bound.
type BlobHistoryRepository struct {
	store storage.Storage
}

// NewBlobHistoryRepository creates a history repository over a record store
func NewBlobHistoryRepository(store storage.Storage) *BlobHistoryRepository {
	return &BlobHistoryRepository{store: store}
}

func historyKey(email string) string {
	return models.NormalizeEmail(email) + "_history"
}

// Append inserts an entry at the head of the user's history
func (r *BlobHistoryRepository) Append(ctx context.Context, email string, entry models.HistoryEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	history, err := r.List(ctx, email)
	if err != nil {
		return err
	}

	history = append([]models.HistoryEntry{entry}, history...)

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	if err := r.store.Put(ctx, historyKey(email), data); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}

	return nil
}

// List returns all entries, most recent first
func (r *BlobHistoryRepository) List(ctx context.Context, email string) ([]models.HistoryEntry, error) {
	data, err := r.store.Get(ctx, historyKey(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []models.HistoryEntry{}, nil
		}
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	var history []models.HistoryEntry
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}

	return history, nil
}
