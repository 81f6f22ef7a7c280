package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Snoglet99/JobAgent/models"
	"github.com/Snoglet99/JobAgent/storage"
)

func newTestRepos(t *testing.T) (*BlobProfileRepository, *BlobHistoryRepository, string) {
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	return NewBlobProfileRepository(store), NewBlobHistoryRepository(store), dir
}

func TestLoadMissingProfileReturnsDefaults(t *testing.T) {
	repo, _, dir := newTestRepos(t)
	ctx := context.Background()

	profile, err := repo.Load(ctx, "new@example.com")
	require.NoError(t, err)

	assert.Equal(t, "new@example.com", profile.Email)
	assert.Equal(t, 0, profile.UsageCount)
	assert.Equal(t, models.SubscriptionFree, profile.SubscriptionStatus)

	// A load alone must not create the record.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	repo, _, _ := newTestRepos(t)
	ctx := context.Background()

	profile, err := repo.Load(ctx, "user@example.com")
	require.NoError(t, err)

	profile.UsageCount = 2
	profile.CreditBalance = 5
	profile.PaidAccess = true
	profile.Tone = models.ToneVisionary
	profile.CVSummary = "Ten years of platform engineering."
	require.NoError(t, repo.Save(ctx, "user@example.com", profile))

	loaded, err := repo.Load(ctx, "user@example.com")
	require.NoError(t, err)

	assert.Equal(t, 2, loaded.UsageCount)
	assert.Equal(t, 5, loaded.CreditBalance)
	assert.True(t, loaded.PaidAccess)
	assert.Equal(t, models.ToneVisionary, loaded.Tone)
	assert.Equal(t, "Ten years of platform engineering.", loaded.CVSummary)
}

func TestSaveIncrementsVersion(t *testing.T) {
	repo, _, _ := newTestRepos(t)
	ctx := context.Background()

	profile, err := repo.Load(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, profile.Version)

	require.NoError(t, repo.Save(ctx, "user@example.com", profile))
	assert.Equal(t, 1, profile.Version)

	require.NoError(t, repo.Save(ctx, "user@example.com", profile))
	loaded, err := repo.Load(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Version)
}

// failingStore rejects every write.
type failingStore struct{}

func (failingStore) Put(ctx context.Context, key string, data []byte) error {
	return errors.New("disk full")
}

func (failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, storage.ErrNotFound
}

func (failingStore) Delete(ctx context.Context, key string) error { return nil }

func TestSaveFailureLeavesProfileUntouched(t *testing.T) {
	repo := NewBlobProfileRepository(failingStore{})
	ctx := context.Background()

	profile := models.NewUserProfile("user@example.com")
	before := profile.UpdatedAt

	err := repo.Save(ctx, "user@example.com", profile)
	require.Error(t, err)

	// A failed write must not advance the caller's copy past the record.
	assert.Equal(t, 0, profile.Version)
	assert.Equal(t, before, profile.UpdatedAt)
}

func TestRecordFileUsesNormalizedKey(t *testing.T) {
	repo, _, dir := newTestRepos(t)
	ctx := context.Background()

	profile, err := repo.Load(ctx, "First.Last@Example.com")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, "First.Last@Example.com", profile))

	_, err = os.Stat(filepath.Join(dir, "first_dot_last_at_example_dot_com.json"))
	assert.NoError(t, err)
}

func TestAddressesSharingATokenShareARecord(t *testing.T) {
	repo, _, _ := newTestRepos(t)
	ctx := context.Background()

	profile, err := repo.Load(ctx, "a.b@example.com")
	require.NoError(t, err)
	profile.CreditBalance = 7
	require.NoError(t, repo.Save(ctx, "a.b@example.com", profile))

	other, err := repo.Load(ctx, "a_b@example.com")
	require.NoError(t, err)
	assert.Equal(t, 7, other.CreditBalance)
}

func TestHistoryAppendInsertsAtHead(t *testing.T) {
	_, repo, _ := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, "user@example.com", models.HistoryEntry{
		JobTitle: "Platform Engineer",
		Company:  "Acme",
	}))
	require.NoError(t, repo.Append(ctx, "user@example.com", models.HistoryEntry{
		JobTitle: "Staff Engineer",
		Company:  "Initech",
	}))

	history, err := repo.List(ctx, "user@example.com")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Staff Engineer", history[0].JobTitle)
	assert.Equal(t, "Platform Engineer", history[1].JobTitle)
}

func TestHistoryListEmptyForNewUser(t *testing.T) {
	_, repo, _ := newTestRepos(t)

	history, err := repo.List(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestHistoryKeptSeparateFromProfile(t *testing.T) {
	profiles, history, _ := newTestRepos(t)
	ctx := context.Background()

	profile, err := profiles.Load(ctx, "user@example.com")
	require.NoError(t, err)
	require.NoError(t, profiles.Save(ctx, "user@example.com", profile))

	require.NoError(t, history.Append(ctx, "user@example.com", models.HistoryEntry{
		JobTitle: "Analyst",
		Company:  "Acme",
	}))

	loaded, err := profiles.Load(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.UsageCount)

	entries, err := history.List(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
