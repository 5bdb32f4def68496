package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/openstat/go-wbdata/dataset"
	"github.com/openstat/go-wbdata/store/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRows() []dataset.Row {
	year := 2021
	value := decimal.NewFromFloat(100.5)
	return []dataset.Row{
		{Code: "ABC", Name: "Aland", RegionID: "R1", RegionName: "Region One", IncomeLevel: "High income", Year: &year, Value: &value},
		{Code: "DEF", Name: "Dland", RegionID: "R2", RegionName: "Region Two", IncomeLevel: "Low income"},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	fetchedAt := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	id, err := store.SaveSnapshot(ctx, "NY.GDP.MKTP.CD", fetchedAt, sampleRows())
	require.NoError(t, err)
	require.NotZero(t, id)

	snap, err := store.LatestSnapshot(ctx, "NY.GDP.MKTP.CD")
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.Equal(t, id, snap.ID)
	require.Equal(t, "NY.GDP.MKTP.CD", snap.Indicator)
	require.True(t, fetchedAt.Equal(snap.FetchedAt))
	require.Len(t, snap.Rows, 2)

	require.Equal(t, "ABC", snap.Rows[0].Code)
	require.Equal(t, 2021, *snap.Rows[0].Year)
	require.Equal(t, "100.5", snap.Rows[0].Value.String())

	require.Equal(t, "DEF", snap.Rows[1].Code)
	require.Nil(t, snap.Rows[1].Year)
	require.Nil(t, snap.Rows[1].Value)
}

func TestLatestSnapshotPicksNewest(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.SaveSnapshot(ctx, "IND", time.Now().Add(-time.Hour), sampleRows())
	require.NoError(t, err)
	newest, err := store.SaveSnapshot(ctx, "IND", time.Now(), sampleRows()[:1])
	require.NoError(t, err)

	snap, err := store.LatestSnapshot(ctx, "IND")
	require.NoError(t, err)
	require.Equal(t, newest, snap.ID)
	require.Len(t, snap.Rows, 1)
}

func TestLatestSnapshotMissing(t *testing.T) {
	store := newStore(t)

	snap, err := store.LatestSnapshot(context.Background(), "NOPE")
	require.NoError(t, err)
	require.Nil(t, snap)
}

func TestSnapshotsPerIndicator(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.SaveSnapshot(ctx, "A", time.Now(), sampleRows())
	require.NoError(t, err)
	_, err = store.SaveSnapshot(ctx, "B", time.Now(), sampleRows()[:1])
	require.NoError(t, err)

	snapA, err := store.LatestSnapshot(ctx, "A")
	require.NoError(t, err)
	require.Len(t, snapA.Rows, 2)

	snapB, err := store.LatestSnapshot(ctx, "B")
	require.NoError(t, err)
	require.Len(t, snapB.Rows, 1)
}
