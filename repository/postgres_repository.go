package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Snoglet99/JobAgent/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresProfileRepository is the optional durable backend. Unlike the blob
// backend it guards saves with a compare-and-swap on the version column, so a
// concurrent writer surfaces as ErrVersionConflict instead of a silent lost
// update.
type PostgresProfileRepository struct {
	db *pgxpool.Pool
}

// NewPostgresProfileRepository creates a Postgres-backed profile repository
func NewPostgresProfileRepository(db *pgxpool.Pool) *PostgresProfileRepository {
	return &PostgresProfileRepository{db: db}
}

// Load retrieves the profile for an email, or a fresh default-valued one
func (r *PostgresProfileRepository) Load(ctx context.Context, email string) (*models.UserProfile, error) {
	key := models.NormalizeEmail(email)

	profile := &models.UserProfile{}
	query := `
		SELECT email, usage_count, credit_balance, pending_payment, paid_access,
			edit_rounds, subscription_status, tone, preferred_tone, profile_variant,
			cv_summary, resume_bullets, resume, goal, industries, roles, companies,
			version, created_at, updated_at
		FROM profiles
		WHERE email_key = $1`

	err := r.db.QueryRow(ctx, query, key).Scan(
		&profile.Email,
		&profile.UsageCount,
		&profile.CreditBalance,
		&profile.PendingPayment,
		&profile.PaidAccess,
		&profile.EditRounds,
		&profile.SubscriptionStatus,
		&profile.Tone,
		&profile.PreferredTone,
		&profile.ProfileVariant,
		&profile.CVSummary,
		&profile.ResumeBullets,
		&profile.Resume,
		&profile.Goal,
		&profile.Industries,
		&profile.Roles,
		&profile.Companies,
		&profile.Version,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.NewUserProfile(email), nil
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	profile.EnsureDefaults()
	return profile, nil
}

// Save persists the record. New records are inserted at version 1; existing
// records are updated only if the stored version still matches the one the
// caller loaded.
func (r *PostgresProfileRepository) Save(ctx context.Context, email string, profile *models.UserProfile) error {
	key := models.NormalizeEmail(email)

	if profile.Version == 0 {
		query := `
			INSERT INTO profiles (
				email_key, email, usage_count, credit_balance, pending_payment,
				paid_access, edit_rounds, subscription_status, tone, preferred_tone,
				profile_variant, cv_summary, resume_bullets, resume, goal,
				industries, roles, companies, version
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, 1
			)
			ON CONFLICT (email_key) DO NOTHING
			RETURNING version, created_at, updated_at`

		err := r.db.QueryRow(
			ctx, query,
			key,
			profile.Email,
			profile.UsageCount,
			profile.CreditBalance,
			profile.PendingPayment,
			profile.PaidAccess,
			profile.EditRounds,
			profile.SubscriptionStatus,
			profile.Tone,
			profile.PreferredTone,
			profile.ProfileVariant,
			profile.CVSummary,
			profile.ResumeBullets,
			profile.Resume,
			profile.Goal,
			profile.Industries,
			profile.Roles,
			profile.Companies,
		).Scan(&profile.Version, &profile.CreatedAt, &profile.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Someone inserted the row first.
				return ErrVersionConflict
			}
			return fmt.Errorf("failed to insert profile: %w", err)
		}
		return nil
	}

	query := `
		UPDATE profiles SET
			usage_count = $2,
			credit_balance = $3,
			pending_payment = $4,
			paid_access = $5,
			edit_rounds = $6,
			subscription_status = $7,
			tone = $8,
			preferred_tone = $9,
			profile_variant = $10,
			cv_summary = $11,
			resume_bullets = $12,
			resume = $13,
			goal = $14,
			industries = $15,
			roles = $16,
			companies = $17,
			version = version + 1,
			updated_at = NOW()
		WHERE email_key = $1 AND version = $18
		RETURNING version, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		key,
		profile.UsageCount,
		profile.CreditBalance,
		profile.PendingPayment,
		profile.PaidAccess,
		profile.EditRounds,
		profile.SubscriptionStatus,
		profile.Tone,
		profile.PreferredTone,
		profile.ProfileVariant,
		profile.CVSummary,
		profile.ResumeBullets,
		profile.Resume,
		profile.Goal,
		profile.Industries,
		profile.Roles,
		profile.Companies,
		profile.Version,
	).Scan(&profile.Version, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrVersionConflict
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}

	return nil
}

// PostgresHistoryRepository stores history entries in an append table
type PostgresHistoryRepository struct {
	db *pgxpool.Pool
}

// NewPostgresHistoryRepository creates a Postgres-backed history repository
func NewPostgresHistoryRepository(db *pgxpool.Pool) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{db: db}
}

// Append inserts a history entry
func (r *PostgresHistoryRepository) Append(ctx context.Context, email string, entry models.HistoryEntry) error {
	query := `
		INSERT INTO history (email_key, job_title, company, generated_content)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query,
		models.NormalizeEmail(email),
		entry.JobTitle,
		entry.Company,
		entry.GeneratedContent,
	)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// List returns all entries, most recent first
func (r *PostgresHistoryRepository) List(ctx context.Context, email string) ([]models.HistoryEntry, error) {
	query := `
		SELECT job_title, company, generated_content, created_at
		FROM history
		WHERE email_key = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, models.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	history := []models.HistoryEntry{}
	for rows.Next() {
		var entry models.HistoryEntry
		if err := rows.Scan(&entry.JobTitle, &entry.Company, &entry.GeneratedContent, &entry.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, entry)
	}

	return history, rows.Err()
}
