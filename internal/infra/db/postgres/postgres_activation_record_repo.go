package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"subscription-activation/internal/domain"
	"subscription-activation/internal/domain/model"
	"subscription-activation/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.ActivationRecordRepository = (*activationRecordRepo)(nil)

type activationRecordRepo struct {
	pool *pgxpool.Pool
}

func NewActivationRecordRepo(pool *pgxpool.Pool) repository.ActivationRecordRepository {
	return &activationRecordRepo{pool: pool}
}

// Upsert creates the record or replaces an existing one with the same code.
// Replacement resets the lifecycle: status back to unused, used_at cleared.
func (r *activationRecordRepo) Upsert(ctx context.Context, tx repository.Tx, rec *model.ActivationRecord) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO activation_codes
  (code, subscription_id, status, issued_at, used_at, customer_email, order_id, activate_url, qr_url)
VALUES ($1, $2, $3, $4, NULL, $5, $6, $7, $8)
ON CONFLICT (code) DO UPDATE SET
  subscription_id = EXCLUDED.subscription_id,
  status          = EXCLUDED.status,
  issued_at       = EXCLUDED.issued_at,
  used_at         = NULL,
  customer_email  = EXCLUDED.customer_email,
  order_id        = EXCLUDED.order_id,
  activate_url    = EXCLUDED.activate_url,
  qr_url          = EXCLUDED.qr_url;
`
	_, err = ex.Exec(ctx, q,
		rec.Code, rec.SubscriptionID, rec.Status, rec.IssuedAt,
		nullable(rec.CustomerEmail), nullable(rec.OrderID),
		nullable(rec.ActivateURL), nullable(rec.QRDataURL),
	)
	return err
}

func (r *activationRecordRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.ActivationRecord, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT code, subscription_id, status, issued_at, used_at, customer_email, order_id, activate_url, qr_url
  FROM activation_codes
 WHERE code = $1;
`
	rec, err := scanRecord(ex.QueryRow(ctx, q, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// MarkUsed is the single-winner compare-and-set: one UPDATE guarded by
// code, subscription id and status. When no row transitions, a follow-up
// read classifies the rejection as not-found, mismatch or already-used, in
// that order, so error classification stays deterministic.
func (r *activationRecordRepo) MarkUsed(ctx context.Context, tx repository.Tx, code, subscriptionID string, usedAt time.Time) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	const q = `
UPDATE activation_codes
   SET status = $4, used_at = $3
 WHERE code = $1
   AND subscription_id = $2
   AND status = $5;
`
	tag, err := ex.Exec(ctx, q, code, subscriptionID, usedAt,
		model.ActivationStatusUsed, model.ActivationStatusUnused)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	rec, err := r.FindByCode(ctx, tx, code)
	if err != nil {
		return err // domain.ErrNotFound or a read failure
	}
	if rec.SubscriptionID != subscriptionID {
		return domain.ErrCodeMismatch
	}
	return domain.ErrCodeAlreadyUsed
}

func (r *activationRecordRepo) List(ctx context.Context, tx repository.Tx, f model.ActivationFilter) ([]*model.ActivationRecord, model.ActivationTotals, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, model.ActivationTotals{}, err
	}
	whereSQL, args := buildListWhere(f)

	totalsQ := fmt.Sprintf(`
SELECT count(*)::int AS total,
       coalesce(sum(CASE WHEN status = 'used' THEN 1 ELSE 0 END), 0)::int AS used
  FROM activation_codes
  %s;`, whereSQL)

	var totals model.ActivationTotals
	if err := ex.QueryRow(ctx, totalsQ, args...).Scan(&totals.Total, &totals.Used); err != nil {
		return nil, model.ActivationTotals{}, err
	}
	totals.Unused = totals.Total - totals.Used

	itemsQ := fmt.Sprintf(`
SELECT code, subscription_id, status, issued_at, used_at, customer_email, order_id, activate_url, qr_url
  FROM activation_codes
  %s
 ORDER BY issued_at DESC
 LIMIT $%d OFFSET $%d;`, whereSQL, len(args)+1, len(args)+2)

	rows, err := ex.Query(ctx, itemsQ, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, model.ActivationTotals{}, err
	}
	defer rows.Close()

	var items []*model.ActivationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, model.ActivationTotals{}, err
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, model.ActivationTotals{}, err
	}
	return items, totals, nil
}

// buildListWhere turns a filter into a WHERE clause and its positional
// arguments. Kept pure so it can be unit tested without a database.
func buildListWhere(f model.ActivationFilter) (string, []interface{}) {
	var where []string
	var args []interface{}

	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		where = append(where, fmt.Sprintf(
			"(lower(code) LIKE $%d OR lower(subscription_id) LIKE $%d OR lower(coalesce(customer_email, '')) LIKE $%d)",
			len(args)+1, len(args)+2, len(args)+3))
		args = append(args, pattern, pattern, pattern)
	}
	if f.Status == model.ActivationStatusUsed || f.Status == model.ActivationStatusUnused {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, string(f.Status))
	}
	if f.IssuedFrom != nil {
		where = append(where, fmt.Sprintf("issued_at >= $%d", len(args)+1))
		args = append(args, *f.IssuedFrom)
	}
	if f.IssuedTo != nil {
		where = append(where, fmt.Sprintf("issued_at <= $%d", len(args)+1))
		args = append(args, *f.IssuedTo)
	}
	if f.UsedFrom != nil {
		where = append(where, fmt.Sprintf("(used_at IS NOT NULL AND used_at >= $%d)", len(args)+1))
		args = append(args, *f.UsedFrom)
	}
	if f.UsedTo != nil {
		where = append(where, fmt.Sprintf("(used_at IS NOT NULL AND used_at <= $%d)", len(args)+1))
		args = append(args, *f.UsedTo)
	}

	if len(where) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(where, " AND "), args
}

func scanRecord(row pgx.Row) (*model.ActivationRecord, error) {
	var rec model.ActivationRecord
	var email, orderID, activateURL, qrURL *string
	err := row.Scan(
		&rec.Code, &rec.SubscriptionID, &rec.Status, &rec.IssuedAt, &rec.UsedAt,
		&email, &orderID, &activateURL, &qrURL,
	)
	if err != nil {
		return nil, err
	}
	rec.CustomerEmail = deref(email)
	rec.OrderID = deref(orderID)
	rec.ActivateURL = deref(activateURL)
	rec.QRDataURL = deref(qrURL)
	return &rec, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
