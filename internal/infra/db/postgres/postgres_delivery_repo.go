package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"coach-connect/internal/domain"
	"coach-connect/internal/domain/model"
	"coach-connect/internal/domain/ports/repository"
)

var _ repository.DeliveryRepository = (*deliveryRepo)(nil)

// Sealer encrypts a payload bound to the row id.
type Sealer interface {
	Seal(id string, plaintext []byte) (string, error)
	Open(id, sealed string) ([]byte, error)
}

const deliverySchema = `
CREATE TABLE IF NOT EXISTS forward_deliveries (
    id           TEXT PRIMARY KEY,
    flow         TEXT        NOT NULL,
    endpoint     TEXT        NOT NULL,
    user_id      TEXT        NOT NULL DEFAULT '',
    records      INTEGER     NOT NULL,
    payload      TEXT        NOT NULL,
    sealed       BOOLEAN     NOT NULL DEFAULT FALSE,
    status       TEXT        NOT NULL,
    http_status  INTEGER     NOT NULL DEFAULT 0,
    error        TEXT        NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS forward_deliveries_status_created_idx
    ON forward_deliveries (status, created_at DESC);`

type deliveryRepo struct {
	pool   *pgxpool.Pool
	sealer Sealer
}

// NewDeliveryRepo stores payloads sealed when sealer is non-nil, plain JSON
// otherwise.
func NewDeliveryRepo(pool *pgxpool.Pool, sealer Sealer) *deliveryRepo {
	return &deliveryRepo{pool: pool, sealer: sealer}
}

// Migrate creates the audit table if it does not exist.
func (r *deliveryRepo) Migrate(ctx context.Context, tm repository.TransactionManager) error {
	return tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		_, err := execSQL(ctx, r.pool, tx, deliverySchema)
		return err
	})
}

func (r *deliveryRepo) Save(ctx context.Context, tx repository.Tx, d *model.Delivery) error {
	if d == nil || d.ID == "" {
		return domain.ErrInvalidArgument
	}
	payload, sealed := string(d.Payload), false
	if r.sealer != nil {
		s, err := r.sealer.Seal(d.ID, d.Payload)
		if err != nil {
			return fmt.Errorf("seal payload: %w", err)
		}
		payload, sealed = s, true
	}

	const q = `
INSERT INTO forward_deliveries (id, flow, endpoint, user_id, records, payload, sealed, status, http_status, error, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := execSQL(ctx, r.pool, tx, q,
		d.ID, d.Flow, d.Endpoint, d.UserID, d.Records, payload, sealed,
		string(d.Status), d.HTTPStatus, d.Error, d.CreatedAt)
	return err
}

// FindByID loads one audit row, opening sealed payloads.
func (r *deliveryRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Delivery, error) {
	const q = `
SELECT id, flow, endpoint, user_id, records, payload, sealed, status, http_status, error, created_at
FROM forward_deliveries WHERE id = $1`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	var (
		d       model.Delivery
		payload string
		sealed  bool
		status  string
	)
	if err := row.Scan(&d.ID, &d.Flow, &d.Endpoint, &d.UserID, &d.Records, &payload, &sealed,
		&status, &d.HTTPStatus, &d.Error, &d.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	d.Status = model.DeliveryStatus(status)
	d.Payload = []byte(payload)
	if sealed {
		if r.sealer == nil {
			return nil, fmt.Errorf("delivery %s: payload is sealed and no key is configured", id)
		}
		plain, err := r.sealer.Open(id, payload)
		if err != nil {
			return nil, fmt.Errorf("open payload: %w", err)
		}
		d.Payload = plain
	}
	return &d, nil
}

// PurgeBefore deletes audit rows created before cutoff.
func (r *deliveryRepo) PurgeBefore(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM forward_deliveries WHERE created_at < $1`
	tag, err := execSQL(ctx, r.pool, tx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
