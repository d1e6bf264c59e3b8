package shared

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// IdempotencyHeader carries the client generated key for create requests.
const IdempotencyHeader = "Idempotency-Key"

// ErrIdempotencyConflict indicates a duplicate key.
var ErrIdempotencyConflict = &Error{Kind: ErrConflict, Message: "request already submitted"}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// IdempotencyStore records processed Idempotency-Key values per module
// ("invoice.create", "payment.record") in the idempotency_keys table.
type IdempotencyStore struct {
	db  execer
	now func() time.Time
}

// NewIdempotencyStore constructs the store over a pool or transaction.
func NewIdempotencyStore(db execer) *IdempotencyStore {
	return &IdempotencyStore{db: db, now: time.Now}
}

// CheckAndInsert claims key for module. A key already claimed returns
// ErrIdempotencyConflict. A nil store or an empty key disables the check.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, key, module string) error {
	if s == nil || s.db == nil || key == "" {
		return nil
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	tag, err := s.db.Exec(ctx,
		`INSERT INTO idempotency_keys (key, module, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		key, module, s.now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}

// Delete releases a key after failed processing so the client may retry.
func (s *IdempotencyStore) Delete(ctx context.Context, key, module string) error {
	if s == nil || s.db == nil || key == "" {
		return nil
	}
	_, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1 AND module = $2`, key, module)
	return err
}

// Cleanup removes keys older than the retention window and returns how many
// were dropped.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, s.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
