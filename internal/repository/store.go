package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/receiptwise/expense-tracker/internal/common"
	"github.com/receiptwise/expense-tracker/internal/entity"
)

// ErrNotFound is returned by lookups that match no receipt.
var ErrNotFound error = common.NewAppError("RECEIPT_NOT_FOUND", "receipt not found", common.ErrNotFound)

// Snapshot is a full copy of one user's receipts, newest first, delivered to
// subscribers on every change.
type Snapshot []*entity.Receipt

// SubscribeFunc receives snapshots. Cancel the subscription context to stop.
type SubscribeFunc func(Snapshot)

// ReceiptStore persists receipt records. Implementations must make Delete
// idempotent (deleting a missing receipt succeeds) and UpsertByImageRef keyed
// on the image reference, so a redelivered upload event cannot duplicate a
// record.
type ReceiptStore interface {
	Add(ctx context.Context, r *entity.Receipt) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Receipt, error)
	Update(ctx context.Context, r *entity.Receipt) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByUser returns the user's receipts ordered by creation time,
	// newest first.
	ListByUser(ctx context.Context, uid string) ([]*entity.Receipt, error)

	// UpsertByImageRef inserts r, or replaces the existing record carrying
	// the same image reference. The stored record's ID is returned; on
	// replace it is the existing record's ID, not r's.
	UpsertByImageRef(ctx context.Context, r *entity.Receipt) (uuid.UUID, error)

	// Subscribe delivers the user's current snapshot immediately and again
	// after every change to that user's receipts, until ctx is done.
	Subscribe(ctx context.Context, uid string, fn SubscribeFunc) error

	Close() error
}
