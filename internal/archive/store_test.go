package archive_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxtools/wxctl/internal/archive"
	"github.com/wxtools/wxctl/internal/database"
	"github.com/wxtools/wxctl/internal/models"
)

func newTestStore(t *testing.T) *archive.Store {
	t.Helper()

	db, err := database.SetupDatabaseAt(filepath.Join(t.TempDir(), "archive.sqlite"))
	require.NoError(t, err)

	return archive.NewStore(db, slog.Default())
}

func ptr(v float64) *float64 { return &v }

func makeRecords(start int64, interval int, count int) []models.ArchiveRecord {
	records := make([]models.ArchiveRecord, count)
	for i := range records {
		records[i] = models.ArchiveRecord{
			Timestamp:  start + int64(i*interval),
			Interval:   interval,
			UnitSystem: "METRIC",
			OutTemp:    ptr(20 + float64(i)),
			Rain:       ptr(0.2),
		}
	}
	return records
}

func TestInsertRecords_TrancheSmallerThanBatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	records := makeRecords(1700000000, 300, 10)

	result, err := store.InsertRecords(ctx, records, 3)
	require.NoError(t, err)
	assert.Equal(t, 10, result.Inserted)
	assert.Empty(t, result.Duplicates)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 10, count)
}

func TestInsertRecords_DuplicateTimestampsSkipped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := makeRecords(1700000000, 300, 5)
	result, err := store.InsertRecords(ctx, first, 250)
	require.NoError(t, err)
	require.Equal(t, 5, result.Inserted)

	// Re-import an overlapping span: 3 duplicates, 2 new records.
	second := makeRecords(1700000600, 300, 5)
	result, err = store.InsertRecords(ctx, second, 250)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, []int64{1700000600, 1700000900, 1700001200}, result.Duplicates)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 7, count, "duplicates must not change the archive row count")
}

func TestRecordsBetween_HalfOpenRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.InsertRecords(ctx, makeRecords(1000, 100, 5), 250)
	require.NoError(t, err)

	records, err := store.RecordsBetween(ctx, 1100, 1400)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.EqualValues(t, 1100, records[0].Timestamp)
	assert.EqualValues(t, 1300, records[2].Timestamp)
}

func TestLatestRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record, err := store.LatestRecord(ctx, time.Now().Unix())
	require.NoError(t, err)
	assert.Nil(t, record, "empty archive has no latest record")

	_, err = store.InsertRecords(ctx, makeRecords(1000, 100, 3), 250)
	require.NoError(t, err)

	record, err = store.LatestRecord(ctx, 1150)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.EqualValues(t, 1100, record.Timestamp)
}

func TestTimespan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, _, ok, err := store.Timespan(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.InsertRecords(ctx, makeRecords(5000, 60, 4), 250)
	require.NoError(t, err)

	first, last, ok, err := store.Timespan(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 5000, first)
	assert.EqualValues(t, 5180, last)
}
