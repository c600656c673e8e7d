package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	r := newReceipt("alice", "alice/a.jpg", now)
	amount := "12.50"
	date := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	r.LocationName = "Cafe"
	r.Amount = &amount
	r.Date = &date
	require.NoError(t, s.Add(ctx, r))

	got, err := s.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cafe", got.LocationName)
	require.NotNil(t, got.Amount)
	assert.Equal(t, "12.50", *got.Amount)
	require.NotNil(t, got.Date)
	assert.Equal(t, date, *got.Date)
	assert.True(t, got.CreatedAt.Equal(now))

	got.LocationName = "Renamed"
	require.NoError(t, s.Update(ctx, got))
	got2, err := s.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got2.LocationName)

	require.NoError(t, s.Delete(ctx, r.ID))
	_, err = s.GetByID(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Idempotent delete
	assert.NoError(t, s.Delete(ctx, r.ID))
}

func TestSQLiteStoreListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	oldest := newReceipt("alice", "alice/1.jpg", base)
	newest := newReceipt("alice", "alice/2.jpg", base.Add(time.Hour))
	other := newReceipt("bob", "bob/1.jpg", base)
	require.NoError(t, s.Add(ctx, oldest))
	require.NoError(t, s.Add(ctx, newest))
	require.NoError(t, s.Add(ctx, other))

	recs, err := s.ListByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, newest.ID, recs[0].ID)
	assert.Equal(t, oldest.ID, recs[1].ID)
}

func TestSQLiteStoreListOrdersByTransactionDate(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	julyDate := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	juneDate := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	june := newReceipt("alice", "alice/june.jpg", base.Add(2*time.Hour))
	june.Date = &juneDate
	july := newReceipt("alice", "alice/july.jpg", base)
	july.Date = &julyDate
	undated := newReceipt("alice", "alice/blurry.jpg", base.Add(3*time.Hour))

	require.NoError(t, s.Add(ctx, june))
	require.NoError(t, s.Add(ctx, july))
	require.NoError(t, s.Add(ctx, undated))

	recs, err := s.ListByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, july.ID, recs[0].ID)
	assert.Equal(t, june.ID, recs[1].ID)
	assert.Equal(t, undated.ID, recs[2].ID)
}

func TestSQLiteStoreUpsertByImageRef(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	first := newReceipt("alice", "alice/a.jpg", now)
	first.LocationName = "First Pass"
	id1, err := s.UpsertByImageRef(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, first.ID, id1)

	second := newReceipt("alice", "alice/a.jpg", now.Add(time.Minute))
	second.LocationName = "Second Pass"
	id2, err := s.UpsertByImageRef(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	recs, err := s.ListByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Second Pass", recs[0].LocationName)
}
