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

// BlobProfileRepository persists one JSON document per normalized email in a
// record store (local directory or S3 bucket). Saves overwrite the whole
// record with no coordination between writers: under concurrent sessions for
// the same email the later save wins and the earlier counter update is lost.
type BlobProfileRepository struct {
	store storage.Storage
}

// NewBlobProfileRepository creates a profile repository over a record store
func NewBlobProfileRepository(store storage.Storage) *BlobProfileRepository {
	return &BlobProfileRepository{store: store}
}

// Load retrieves the profile for an email, creating a default-valued record
// in memory when none exists. The record is not written until the first Save.
func (r *BlobProfileRepository) Load(ctx context.Context, email string) (*models.UserProfile, error) {
	key := models.NormalizeEmail(email)

	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.NewUserProfile(email), nil
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	var profile models.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}

	if profile.Email == "" {
		profile.Email = email
	}
	profile.EnsureDefaults()

	return &profile, nil
}

// Save overwrites the profile record wholesale
func (r *BlobProfileRepository) Save(ctx context.Context, email string, profile *models.UserProfile) error {
	key := models.NormalizeEmail(email)

	// Bump version and timestamp on a copy so a failed write leaves the
	// caller's profile matching the durable record.
	record := *profile
	record.UpdatedAt = time.Now().UTC()
	record.Version++

	data, err := json.MarshalIndent(&record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	if err := r.store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	profile.UpdatedAt = record.UpdatedAt
	profile.Version = record.Version
	return nil
}
