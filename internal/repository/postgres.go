package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/receiptwise/expense-tracker/internal/entity"
)

// Config tunes the postgres connection pool.
type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

const receiptsDDL = `
CREATE TABLE IF NOT EXISTS receipts (
	id                 UUID PRIMARY KEY,
	uid                TEXT NOT NULL,
	image_bucket       TEXT NOT NULL UNIQUE,
	image_url          TEXT NOT NULL DEFAULT '',
	tx_date            DATE,
	location_name      TEXT NOT NULL DEFAULT '',
	address            TEXT NOT NULL DEFAULT '',
	items              TEXT NOT NULL DEFAULT '',
	amount             TEXT,
	needs_confirmation BOOLEAN NOT NULL DEFAULT TRUE,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS receipts_uid_txdate_idx ON receipts (uid, tx_date DESC NULLS LAST, created_at DESC);
`

// PostgresStore is the production ReceiptStore over a pgx pool. Change
// notifications are fanned out in-process; a multi-node deployment would
// need LISTEN/NOTIFY on top.
type PostgresStore struct {
	pool   *pgxpool.Pool
	notify *notifier
	logger *slog.Logger
}

// Open creates the pgx pool, applies the schema, and returns the store.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database config", "error", err)
		return nil, err
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "expense-tracker"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	if _, err := pool.Exec(ctx, receiptsDDL); err != nil {
		pool.Close()
		logger.Error("failed to apply schema", "error", err)
		return nil, err
	}

	logger.Info("successfully connected to database")
	return &PostgresStore{pool: pool, notify: newNotifier(), logger: logger}, nil
}

// HealthCheck pings the pool to catch DSN issues early.
func (s *PostgresStore) HealthCheck(ctx context.Context, timeout time.Duration) error {
	s.logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.logger.Info("closing database connections")
	s.pool.Close()
	return nil
}

const receiptColumns = `id, uid, image_bucket, image_url, tx_date, location_name, address, items, amount, needs_confirmation, created_at, updated_at`

func (s *PostgresStore) Add(ctx context.Context, r *entity.Receipt) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO receipts (`+receiptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.ID, r.UID, r.ImageBucket, r.ImageURL, r.Date, r.LocationName,
		r.Address, r.Items, r.Amount, r.NeedsConfirmation, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		s.logger.Error("failed to insert receipt", "id", r.ID, "error", err)
		return err
	}
	s.notify.changed(r.UID)
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*entity.Receipt, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE id = $1`, id)
	r, err := scanReceipt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (s *PostgresStore) Update(ctx context.Context, r *entity.Receipt) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE receipts SET
			uid = $2, image_bucket = $3, image_url = $4, tx_date = $5,
			location_name = $6, address = $7, items = $8, amount = $9,
			needs_confirmation = $10, updated_at = $11
		WHERE id = $1`,
		r.ID, r.UID, r.ImageBucket, r.ImageURL, r.Date, r.LocationName,
		r.Address, r.Items, r.Amount, r.NeedsConfirmation, r.UpdatedAt,
	)
	if err != nil {
		s.logger.Error("failed to update receipt", "id", r.ID, "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.notify.changed(r.UID)
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	var uid string
	err := s.pool.QueryRow(ctx, `DELETE FROM receipts WHERE id = $1 RETURNING uid`, id).Scan(&uid)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil // already gone
	}
	if err != nil {
		s.logger.Error("failed to delete receipt", "id", id, "error", err)
		return err
	}
	s.notify.changed(uid)
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, uid string) ([]*entity.Receipt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+receiptColumns+` FROM receipts
		WHERE uid = $1
		ORDER BY tx_date DESC NULLS LAST, created_at DESC, id DESC`, uid)
	if err != nil {
		s.logger.Error("failed to list receipts", "uid", uid, "error", err)
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Receipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpsertByImageRef(ctx context.Context, r *entity.Receipt) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO receipts (`+receiptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (image_bucket) DO UPDATE SET
			uid = EXCLUDED.uid,
			image_url = EXCLUDED.image_url,
			tx_date = EXCLUDED.tx_date,
			location_name = EXCLUDED.location_name,
			address = EXCLUDED.address,
			items = EXCLUDED.items,
			amount = EXCLUDED.amount,
			needs_confirmation = EXCLUDED.needs_confirmation,
			updated_at = EXCLUDED.updated_at
		RETURNING id`,
		r.ID, r.UID, r.ImageBucket, r.ImageURL, r.Date, r.LocationName,
		r.Address, r.Items, r.Amount, r.NeedsConfirmation, r.CreatedAt, r.UpdatedAt,
	).Scan(&id)
	if err != nil {
		s.logger.Error("failed to upsert receipt", "image_bucket", r.ImageBucket, "error", err)
		return uuid.Nil, err
	}
	s.notify.changed(r.UID)
	return id, nil
}

func (s *PostgresStore) Subscribe(ctx context.Context, uid string, fn SubscribeFunc) error {
	load := func() (Snapshot, error) {
		return s.ListByUser(ctx, uid)
	}
	return s.notify.run(ctx, uid, load, fn)
}

func scanReceipt(row pgx.Row) (*entity.Receipt, error) {
	var r entity.Receipt
	err := row.Scan(
		&r.ID, &r.UID, &r.ImageBucket, &r.ImageURL, &r.Date, &r.LocationName,
		&r.Address, &r.Items, &r.Amount, &r.NeedsConfirmation, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
