package repo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/evanildobarros/isotek-qms/domains/assignments/be/service"
	"github.com/evanildobarros/isotek-qms/platform/go/persistence"
)

// testPostgresRepo connects against TEST_DATABASE_URL, skipping when no test
// database is configured.
func testPostgresRepo(t *testing.T) *PostgresRepository {
	t.Helper()

	url, ok := os.LookupEnv("TEST_DATABASE_URL")
	if !ok {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: url})
	require.NoError(t, err)
	t.Cleanup(func() { persistence.ClosePool(pool) })

	r, err := NewPostgresRepository(ctx, pool)
	require.NoError(t, err)
	return r
}

func TestPostgresRepositoryRoundTrip(t *testing.T) {
	r := testPostgresRepo(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	amount := 1500.0
	a := service.Assignment{
		ID:           uuid.New(),
		AuditorID:    "auditor-pg-" + uuid.NewString(),
		TenantID:     uuid.New(),
		StartDate:    service.DateOnly(now),
		Status:       service.StatusScheduled,
		AgreedAmount: &amount,
		CreatedBy:    "admin-pg",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := r.Create(ctx, a)
	require.NoError(t, err)

	got, err := r.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, a.AuditorID, got.AuditorID)
	require.Equal(t, service.StatusScheduled, got.Status)
	require.Equal(t, amount, *got.AgreedAmount)
	require.Nil(t, got.EndDate)

	_, err = r.Get(ctx, uuid.New())
	require.ErrorIs(t, err, service.ErrNotFound)

	byAuditor, err := r.ListByAuditor(ctx, a.AuditorID)
	require.NoError(t, err)
	require.Len(t, byAuditor, 1)
}

func TestPostgresRepositoryCompareAndSwap(t *testing.T) {
	r := testPostgresRepo(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	a := service.Assignment{
		ID:        uuid.New(),
		AuditorID: "auditor-pg-" + uuid.NewString(),
		TenantID:  uuid.New(),
		StartDate: service.DateOnly(now),
		Status:    service.StatusScheduled,
		CreatedBy: "admin-pg",
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := r.Create(ctx, a)
	require.NoError(t, err)

	swapped, err := r.CompareAndSwapStatus(ctx, a.ID, service.StatusScheduled, service.StatusInProgress, now)
	require.NoError(t, err)
	require.Equal(t, service.StatusInProgress, swapped.Status)

	_, err = r.CompareAndSwapStatus(ctx, a.ID, service.StatusScheduled, service.StatusCanceled, now)
	require.ErrorIs(t, err, service.ErrStatusConflict)

	_, err = r.CompareAndSwapStatus(ctx, uuid.New(), service.StatusScheduled, service.StatusCanceled, now)
	require.ErrorIs(t, err, service.ErrNotFound)

	completed, err := r.CompareAndSwapStatus(ctx, a.ID, service.StatusInProgress, service.StatusCompleted, now)
	require.NoError(t, err)
	require.NotNil(t, completed.CompletedAt)
}
