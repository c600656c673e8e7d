package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/receiptwise/expense-tracker/internal/entity"
)

// MemoryStore is an in-memory ReceiptStore for tests and throwaway runs.
type MemoryStore struct {
	mu       sync.RWMutex
	receipts map[uuid.UUID]*entity.Receipt
	notify   *notifier
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		receipts: map[uuid.UUID]*entity.Receipt{},
		notify:   newNotifier(),
	}
}

func (s *MemoryStore) Add(ctx context.Context, r *entity.Receipt) error {
	s.mu.Lock()
	cp := *r
	s.receipts[r.ID] = &cp
	s.mu.Unlock()
	s.notify.changed(r.UID)
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*entity.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.receipts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) Update(ctx context.Context, r *entity.Receipt) error {
	s.mu.Lock()
	if _, ok := s.receipts[r.ID]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	cp := *r
	s.receipts[r.ID] = &cp
	s.mu.Unlock()
	s.notify.changed(r.UID)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	r, ok := s.receipts[id]
	if ok {
		delete(s.receipts, id)
	}
	s.mu.Unlock()
	if ok {
		s.notify.changed(r.UID)
	}
	return nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, uid string) ([]*entity.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(uid), nil
}

func (s *MemoryStore) listLocked(uid string) []*entity.Receipt {
	var out []*entity.Receipt
	for _, r := range s.receipts {
		if r.UID != uid {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	// Transaction date descending, undated receipts last, ties broken by
	// creation time so listings stay deterministic.
	sort.SliceStable(out, func(a, b int) bool {
		da, db := out[a].Date, out[b].Date
		switch {
		case da != nil && db == nil:
			return true
		case da == nil && db != nil:
			return false
		case da != nil && db != nil && !da.Equal(*db):
			return da.After(*db)
		}
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.After(out[b].CreatedAt)
		}
		return out[a].ID.String() > out[b].ID.String()
	})
	return out
}

func (s *MemoryStore) UpsertByImageRef(ctx context.Context, r *entity.Receipt) (uuid.UUID, error) {
	s.mu.Lock()
	id := r.ID
	for _, existing := range s.receipts {
		if existing.ImageBucket == r.ImageBucket && existing.UID == r.UID {
			id = existing.ID
			break
		}
	}
	cp := *r
	cp.ID = id
	if existing, ok := s.receipts[id]; ok {
		cp.CreatedAt = existing.CreatedAt
	}
	s.receipts[id] = &cp
	s.mu.Unlock()
	s.notify.changed(r.UID)
	return id, nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, uid string, fn SubscribeFunc) error {
	load := func() (Snapshot, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.listLocked(uid), nil
	}
	return s.notify.run(ctx, uid, load, fn)
}

func (s *MemoryStore) Close() error { return nil }
