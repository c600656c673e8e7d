package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/receiptwise/expense-tracker/internal/entity"
)

const sqliteDDL = `
CREATE TABLE IF NOT EXISTS receipts (
	id                 TEXT PRIMARY KEY,
	uid                TEXT NOT NULL,
	image_bucket       TEXT NOT NULL UNIQUE,
	image_url          TEXT NOT NULL DEFAULT '',
	tx_date            TEXT,
	location_name      TEXT NOT NULL DEFAULT '',
	address            TEXT NOT NULL DEFAULT '',
	items              TEXT NOT NULL DEFAULT '',
	amount             TEXT,
	needs_confirmation INTEGER NOT NULL DEFAULT 1,
	created_at         TEXT NOT NULL,
	updated_at         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS receipts_uid_txdate_idx ON receipts (uid, tx_date DESC, created_at DESC);
`

// SQLiteStore is a single-file ReceiptStore for local and single-node runs.
type SQLiteStore struct {
	db     *sql.DB
	notify *notifier
	logger *slog.Logger
}

func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite is not safe for concurrent writers on one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	logger.Info("opened sqlite store", "path", path)
	return &SQLiteStore{db: db, notify: newNotifier(), logger: logger}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Add(ctx context.Context, r *entity.Receipt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO receipts (id, uid, image_bucket, image_url, tx_date, location_name, address, items, amount, needs_confirmation, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.UID, r.ImageBucket, r.ImageURL, sqlDate(r.Date), r.LocationName,
		r.Address, r.Items, r.Amount, r.NeedsConfirmation, sqlTime(r.CreatedAt), sqlTime(r.UpdatedAt),
	)
	if err != nil {
		s.logger.Error("failed to insert receipt", "id", r.ID, "error", err)
		return err
	}
	s.notify.changed(r.UID)
	return nil
}

func (s *SQLiteStore) GetByID(ctx context.Context, id uuid.UUID) (*entity.Receipt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, uid, image_bucket, image_url, tx_date, location_name, address, items, amount, needs_confirmation, created_at, updated_at
		FROM receipts WHERE id = ?`, id.String())
	r, err := scanSQLiteReceipt(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (s *SQLiteStore) Update(ctx context.Context, r *entity.Receipt) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE receipts SET
			uid = ?, image_bucket = ?, image_url = ?, tx_date = ?,
			location_name = ?, address = ?, items = ?, amount = ?,
			needs_confirmation = ?, updated_at = ?
		WHERE id = ?`,
		r.UID, r.ImageBucket, r.ImageURL, sqlDate(r.Date), r.LocationName,
		r.Address, r.Items, r.Amount, r.NeedsConfirmation, sqlTime(r.UpdatedAt), r.ID.String(),
	)
	if err != nil {
		s.logger.Error("failed to update receipt", "id", r.ID, "error", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.notify.changed(r.UID)
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id uuid.UUID) error {
	var uid string
	err := s.db.QueryRowContext(ctx, `SELECT uid FROM receipts WHERE id = ?`, id.String()).Scan(&uid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM receipts WHERE id = ?`, id.String()); err != nil {
		s.logger.Error("failed to delete receipt", "id", id, "error", err)
		return err
	}
	s.notify.changed(uid)
	return nil
}

func (s *SQLiteStore) ListByUser(ctx context.Context, uid string) ([]*entity.Receipt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, uid, image_bucket, image_url, tx_date, location_name, address, items, amount, needs_confirmation, created_at, updated_at
		FROM receipts WHERE uid = ?
		ORDER BY tx_date DESC NULLS LAST, created_at DESC, id DESC`, uid)
	if err != nil {
		s.logger.Error("failed to list receipts", "uid", uid, "error", err)
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Receipt
	for rows.Next() {
		r, err := scanSQLiteReceipt(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpsertByImageRef(ctx context.Context, r *entity.Receipt) (uuid.UUID, error) {
	var idStr string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO receipts (id, uid, image_bucket, image_url, tx_date, location_name, address, items, amount, needs_confirmation, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (image_bucket) DO UPDATE SET
			uid = excluded.uid,
			image_url = excluded.image_url,
			tx_date = excluded.tx_date,
			location_name = excluded.location_name,
			address = excluded.address,
			items = excluded.items,
			amount = excluded.amount,
			needs_confirmation = excluded.needs_confirmation,
			updated_at = excluded.updated_at
		RETURNING id`,
		r.ID.String(), r.UID, r.ImageBucket, r.ImageURL, sqlDate(r.Date), r.LocationName,
		r.Address, r.Items, r.Amount, r.NeedsConfirmation, sqlTime(r.CreatedAt), sqlTime(r.UpdatedAt),
	).Scan(&idStr)
	if err != nil {
		s.logger.Error("failed to upsert receipt", "image_bucket", r.ImageBucket, "error", err)
		return uuid.Nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, err
	}
	s.notify.changed(r.UID)
	return id, nil
}

func (s *SQLiteStore) Subscribe(ctx context.Context, uid string, fn SubscribeFunc) error {
	load := func() (Snapshot, error) {
		return s.ListByUser(ctx, uid)
	}
	return s.notify.run(ctx, uid, load, fn)
}

func sqlDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

func sqlTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func scanSQLiteReceipt(scan func(dest ...any) error) (*entity.Receipt, error) {
	var (
		r          entity.Receipt
		idStr      string
		dateStr    *string
		createdStr string
		updatedStr string
	)
	err := scan(
		&idStr, &r.UID, &r.ImageBucket, &r.ImageURL, &dateStr, &r.LocationName,
		&r.Address, &r.Items, &r.Amount, &r.NeedsConfirmation, &createdStr, &updatedStr,
	)
	if err != nil {
		return nil, err
	}
	if r.ID, err = uuid.Parse(idStr); err != nil {
		return nil, err
	}
	if dateStr != nil {
		t, err := time.Parse("2006-01-02", *dateStr)
		if err != nil {
			return nil, err
		}
		r.Date = &t
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdStr); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedStr); err != nil {
		return nil, err
	}
	return &r, nil
}
