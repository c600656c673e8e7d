package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/receiptwise/expense-tracker/internal/entity"
)

func newReceipt(uid, imageRef string, createdAt time.Time) *entity.Receipt {
	return &entity.Receipt{
		ID:          uuid.New(),
		UID:         uid,
		ImageBucket: imageRef,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	r := newReceipt("alice", "alice/a.jpg", now)
	r.LocationName = "Cafe"
	require.NoError(t, s.Add(ctx, r))

	got, err := s.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cafe", got.LocationName)

	got.LocationName = "Renamed Cafe"
	require.NoError(t, s.Update(ctx, got))
	got2, err := s.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Cafe", got2.LocationName)

	require.NoError(t, s.Delete(ctx, r.ID))
	_, err = s.GetByID(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	assert.NoError(t, s.Delete(ctx, uuid.New()))
}

func TestMemoryStoreUpdateMissing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	r := newReceipt("alice", "alice/a.jpg", time.Now())
	assert.ErrorIs(t, s.Update(ctx, r), ErrNotFound)
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	oldest := newReceipt("alice", "alice/1.jpg", base)
	middle := newReceipt("alice", "alice/2.jpg", base.Add(time.Hour))
	newest := newReceipt("alice", "alice/3.jpg", base.Add(2*time.Hour))
	other := newReceipt("bob", "bob/1.jpg", base.Add(3*time.Hour))

	for _, r := range []*entity.Receipt{middle, oldest, newest, other} {
		require.NoError(t, s.Add(ctx, r))
	}

	recs, err := s.ListByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, newest.ID, recs[0].ID)
	assert.Equal(t, middle.ID, recs[1].ID)
	assert.Equal(t, oldest.ID, recs[2].ID)
}

func TestMemoryStoreListOrdersByTransactionDate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	// Created later but spent earlier: the listing follows when the money
	// was spent, not when the record landed.
	julyDate := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	juneDate := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	june := newReceipt("alice", "alice/june.jpg", base.Add(2*time.Hour))
	june.Date = &juneDate
	july := newReceipt("alice", "alice/july.jpg", base)
	july.Date = &julyDate
	undated := newReceipt("alice", "alice/blurry.jpg", base.Add(3*time.Hour))

	for _, r := range []*entity.Receipt{june, july, undated} {
		require.NoError(t, s.Add(ctx, r))
	}

	recs, err := s.ListByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, july.ID, recs[0].ID)
	assert.Equal(t, june.ID, recs[1].ID)
	assert.Equal(t, undated.ID, recs[2].ID, "undated receipts sort last")
}

func TestMemoryStoreUpsertByImageRef(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	first := newReceipt("alice", "alice/a.jpg", now)
	first.LocationName = "First Pass"
	id1, err := s.UpsertByImageRef(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, first.ID, id1)

	second := newReceipt("alice", "alice/a.jpg", now.Add(time.Minute))
	second.LocationName = "Second Pass"
	id2, err := s.UpsertByImageRef(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "redelivery must reuse the existing record")

	recs, err := s.ListByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Second Pass", recs[0].LocationName)
	assert.Equal(t, now.UTC(), recs[0].CreatedAt.UTC(), "creation time survives upsert")
}

func TestMemoryStoreSubscribe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s := NewMemoryStore()
	require.NoError(t, s.Add(ctx, newReceipt("alice", "alice/a.jpg", time.Now())))

	snaps := make(chan Snapshot, 8)
	done := make(chan error, 1)
	go func() {
		done <- s.Subscribe(ctx, "alice", func(snap Snapshot) {
			snaps <- snap
		})
	}()

	// Initial snapshot arrives without any change.
	select {
	case snap := <-snaps:
		assert.Len(t, snap, 1)
	case <-ctx.Done():
		t.Fatal("timed out waiting for initial snapshot")
	}

	require.NoError(t, s.Add(ctx, newReceipt("alice", "alice/b.jpg", time.Now())))
	select {
	case snap := <-snaps:
		assert.Len(t, snap, 2)
	case <-ctx.Done():
		t.Fatal("timed out waiting for change snapshot")
	}

	// Another user's change does not wake this subscription; cancel ends it.
	require.NoError(t, s.Add(ctx, newReceipt("bob", "bob/a.jpg", time.Now())))
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
