package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/gridhours/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newRun(started time.Time) *models.Run {
	return &models.Run{
		ID:            uuid.NewString(),
		DataFile:      "data/battery_data.csv",
		OutputFile:    "data/grid_usage_by_hour.csv",
		StartedAt:     started,
		RowsLoaded:    4,
		RowsDropped:   1,
		MaxFeedinHour: 8,
		MaxFeedin:     5,
		Hours: []models.HourlyAggregate{
			{Hour: 9, GridPurchase: 1, GridFeedin: 2},
			{Hour: 8, GridPurchase: 10, GridFeedin: 5, IsMaxFeedinHour: true},
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	run := newRun(time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC))
	require.NoError(t, db.SaveRun(ctx, run))

	got, err := db.GetRun(ctx, run.ID)
	require.NoError(t, err)

	assert.Equal(t, run.ID, got.ID)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, 1, got.RowsDropped)
	assert.False(t, got.Published)
	require.Len(t, got.Hours, 2)
	assert.Equal(t, models.HourlyAggregate{Hour: 8, GridPurchase: 10, GridFeedin: 5, IsMaxFeedinHour: true}, got.Hours[0])
}

func TestSaveRunRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	run := newRun(time.Now())
	require.NoError(t, db.SaveRun(ctx, run))
	assert.Error(t, db.SaveRun(ctx, run))
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	base := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	older, newer := newRun(base), newRun(base.Add(time.Hour))
	require.NoError(t, db.SaveRun(ctx, older))
	require.NoError(t, db.SaveRun(ctx, newer))

	runs, err := db.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)

	runs, err = db.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	latest, err := db.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)
	assert.Len(t, latest.Hours, 2)
}

func TestMarkPublished(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	run := newRun(time.Now())
	require.NoError(t, db.SaveRun(ctx, run))

	pending, err := db.ListUnpublishedRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, db.MarkPublished(ctx, run.ID))

	pending, err = db.ListUnpublishedRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.ErrorIs(t, db.MarkPublished(ctx, "missing"), ErrRunNotFound)
}

func TestMissingRun(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = db.LatestRun(ctx)
	assert.ErrorIs(t, err, ErrRunNotFound)
}
