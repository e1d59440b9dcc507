package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtrack/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "subtrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testSubscription(id string, created time.Time) core.Subscription {
	return core.Subscription{
		ID:               id,
		Name:             "Sub " + id,
		Amount:           decimal.RequireFromString("12.34"),
		Currency:         "USD",
		BillingCycleDays: 30,
		Category:         "Software",
		Status:           core.StatusActive,
		StartDate:        core.NewDate(2024, 1, 10),
		NextBillingDate:  core.NewDate(2024, 7, 7),
		Color:            "#336699",
		CreatedAt:        created,
		UpdatedAt:        created,
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestRepo(t)

	created := time.Date(2024, 6, 1, 8, 30, 0, 123000000, time.UTC)
	in := testSubscription("a", created)
	require.NoError(t, repo.CreateSubscription(ctx, in))

	got, err := repo.GetSubscription(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, in.Name, got.Name)
	assert.True(t, got.Amount.Equal(in.Amount), "amount = %s", got.Amount)
	assert.Equal(t, core.StatusActive, got.Status)
	assert.Equal(t, in.StartDate, got.StartDate)
	assert.Equal(t, in.NextBillingDate, got.NextBillingDate)
	assert.True(t, got.EndDate.IsZero())
	assert.True(t, got.CreatedAt.Equal(created), "created_at = %v", got.CreatedAt)
}

func TestRepositoryListNewestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestRepo(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	offsets := map[string]time.Duration{"old": 0, "new": 48 * time.Hour, "mid": 24 * time.Hour}
	for _, id := range []string{"old", "new", "mid"} {
		require.NoError(t, repo.CreateSubscription(ctx, testSubscription(id, base.Add(offsets[id]))))
	}

	subs, err := repo.ListSubscriptions(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(subs))
	for _, s := range subs {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"new", "mid", "old"}, ids)
}

func TestRepositoryUpdateAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestRepo(t)

	s := testSubscription("x", time.Now().UTC())
	require.NoError(t, repo.CreateSubscription(ctx, s))

	s.Status = core.StatusCancelled
	s.EndDate = core.NewDate(2024, 5, 31)
	s.Amount = decimal.RequireFromString("0")
	require.NoError(t, repo.UpdateSubscription(ctx, s))

	got, err := repo.GetSubscription(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, core.StatusCancelled, got.Status)
	assert.Equal(t, core.NewDate(2024, 5, 31), got.EndDate)
	assert.True(t, got.Amount.IsZero())

	require.NoError(t, repo.DeleteSubscription(ctx, "x"))
	_, err = repo.GetSubscription(ctx, "x")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryMissingRows(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestRepo(t)

	require.ErrorIs(t, repo.UpdateSubscription(ctx, testSubscription("ghost", time.Now())), ErrNotFound)
	require.ErrorIs(t, repo.DeleteSubscription(ctx, "ghost"), ErrNotFound)
}

func TestRepositoryReopenKeepsData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "subtrack.db")

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.CreateSubscription(ctx, testSubscription("keep", time.Now())))
	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer reopened.Close()

	_, err = reopened.GetSubscription(ctx, "keep")
	require.NoError(t, err, "data lost after reopen")
}

func TestRebind(t *testing.T) {
	pg := &Repository{dialect: DialectPostgres}
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))

	lite := &Repository{dialect: DialectSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"), "sqlite queries must not change")
}

func TestNormalizePostgresURL(t *testing.T) {
	tests := map[string]string{
		"postgresql://u:p@db:5432/x":         "postgres://u:p@db:5432/x?sslmode=disable",
		"postgres://db/x?application_name=a": "postgres://db/x?application_name=a&sslmode=disable",
		"postgres://db/x?sslmode=require":    "postgres://db/x?sslmode=require",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizePostgresURL(in), "normalizePostgresURL(%q)", in)
	}
}
