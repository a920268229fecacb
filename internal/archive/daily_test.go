package archive_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxtools/wxctl/internal/models"
)

func TestRebuildDaily_Aggregates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.Local)
	records := []models.ArchiveRecord{
		{Timestamp: day.Add(1 * time.Hour).Unix(), Interval: 300, UnitSystem: "METRIC", OutTemp: ptr(5), Rain: ptr(1.0)},
		{Timestamp: day.Add(2 * time.Hour).Unix(), Interval: 300, UnitSystem: "METRIC", OutTemp: ptr(11), Rain: ptr(0.5)},
		{Timestamp: day.Add(3 * time.Hour).Unix(), Interval: 300, UnitSystem: "METRIC", OutTemp: ptr(8)},
	}
	_, err := store.InsertRecords(ctx, records, 250)
	require.NoError(t, err)

	days, err := store.RebuildDaily(ctx, time.Time{}, time.Time{}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, days)

	summaries, err := store.SummariesForDate(ctx, day.Format("2006-01-02"))
	require.NoError(t, err)

	byObs := map[string]models.DailySummary{}
	for _, summary := range summaries {
		byObs[summary.Observation] = summary
	}

	temp, ok := byObs["outTemp"]
	require.True(t, ok)
	assert.InDelta(t, 5.0, temp.Min, 1e-9)
	assert.Equal(t, day.Add(1*time.Hour).Unix(), temp.MinTime)
	assert.InDelta(t, 11.0, temp.Max, 1e-9)
	assert.Equal(t, day.Add(2*time.Hour).Unix(), temp.MaxTime)
	assert.InDelta(t, 24.0, temp.Sum, 1e-9)
	assert.EqualValues(t, 3, temp.Count)

	rain, ok := byObs["rain"]
	require.True(t, ok)
	assert.InDelta(t, 1.5, rain.Sum, 1e-9)
	assert.EqualValues(t, 2, rain.Count, "nil observations are excluded from the count")
}

func TestRebuildDaily_DateSpan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	day1 := time.Date(2024, 3, 10, 12, 0, 0, 0, time.Local)
	day2 := time.Date(2024, 3, 11, 12, 0, 0, 0, time.Local)
	day3 := time.Date(2024, 3, 12, 12, 0, 0, 0, time.Local)
	var records []models.ArchiveRecord
	for _, ts := range []time.Time{day1, day2, day3} {
		records = append(records, models.ArchiveRecord{
			Timestamp: ts.Unix(), Interval: 300, UnitSystem: "METRIC", OutTemp: ptr(10),
		})
	}
	_, err := store.InsertRecords(ctx, records, 250)
	require.NoError(t, err)

	// Restrict the rebuild to the middle day only.
	days, err := store.RebuildDaily(ctx, day2, day2, false)
	require.NoError(t, err)
	assert.Equal(t, 1, days)

	summaries, err := store.SummariesForDate(ctx, day1.Format("2006-01-02"))
	require.NoError(t, err)
	assert.Empty(t, summaries)

	summaries, err = store.SummariesForDate(ctx, day2.Format("2006-01-02"))
	require.NoError(t, err)
	assert.NotEmpty(t, summaries)
}

func TestRebuildDaily_DryRunWritesNothing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	day := time.Date(2024, 3, 10, 12, 0, 0, 0, time.Local)
	_, err := store.InsertRecords(ctx, []models.ArchiveRecord{
		{Timestamp: day.Unix(), Interval: 300, UnitSystem: "METRIC", OutTemp: ptr(10)},
	}, 250)
	require.NoError(t, err)

	days, err := store.RebuildDaily(ctx, time.Time{}, time.Time{}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, days, "dry run still reports what it would rebuild")

	summaries, err := store.SummariesForDate(ctx, day.Format("2006-01-02"))
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestRebuildDaily_IsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	day := time.Date(2024, 3, 10, 12, 0, 0, 0, time.Local)
	_, err := store.InsertRecords(ctx, []models.ArchiveRecord{
		{Timestamp: day.Unix(), Interval: 300, UnitSystem: "METRIC", OutTemp: ptr(10)},
	}, 250)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = store.RebuildDaily(ctx, time.Time{}, time.Time{}, false)
		require.NoError(t, err)
	}

	summaries, err := store.SummariesForDate(ctx, day.Format("2006-01-02"))
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestDropDaily_ThenRebuildRecreates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	day := time.Date(2024, 3, 10, 12, 0, 0, 0, time.Local)
	_, err := store.InsertRecords(ctx, []models.ArchiveRecord{
		{Timestamp: day.Unix(), Interval: 300, UnitSystem: "METRIC", OutTemp: ptr(10)},
	}, 250)
	require.NoError(t, err)

	require.NoError(t, store.DropDaily(ctx, false))

	days, err := store.RebuildDaily(ctx, time.Time{}, time.Time{}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, days)

	summaries, err := store.SummariesForDate(ctx, day.Format("2006-01-02"))
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}
