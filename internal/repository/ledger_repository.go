package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/giftlink/internal/model"
	"github.com/fairyhunter13/giftlink/pkg/database"
)

// LedgerPoolInterface defines the database operations needed by LedgerRepository.
type LedgerPoolInterface interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// LedgerRepository provides append-only access to credit redemptions using pgx.
type LedgerRepository struct {
	pool LedgerPoolInterface
}

// NewLedgerRepository creates a new LedgerRepository with the given pool.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// NewLedgerRepositoryWithPool creates a new LedgerRepository with a custom pool interface.
// This is primarily used for testing.
func NewLedgerRepositoryWithPool(pool LedgerPoolInterface) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Append inserts a redemption within the caller's transaction.
func (r *LedgerRepository) Append(ctx context.Context, tx database.TxQuerier, entry model.CreditRedemption) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO credit_redemptions (id, order_id, amount_deducted, deducted_at, merchant_user_id, notes)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.OrderID, entry.AmountDeducted, entry.DeductedAt, entry.MerchantUserID, entry.Notes)
	if err != nil {
		return fmt.Errorf("insert redemption: %w", err)
	}
	return nil
}

// ListForOrder returns the order's redemptions in insertion order.
// On success, returns an empty slice (not nil) when none exist.
func (r *LedgerRepository) ListForOrder(ctx context.Context, orderID string) ([]model.CreditRedemption, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, amount_deducted, deducted_at, merchant_user_id, notes
		 FROM credit_redemptions WHERE order_id = $1 ORDER BY seq`, orderID)
	if err != nil {
		return nil, fmt.Errorf("get redemptions for order %s: %w", orderID, err)
	}
	defer rows.Close()

	entries := []model.CreditRedemption{}
	for rows.Next() {
		var e model.CreditRedemption
		if err := rows.Scan(&e.ID, &e.OrderID, &e.AmountDeducted, &e.DeductedAt, &e.MerchantUserID, &e.Notes); err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate redemption rows: %w", err)
	}
	return entries, nil
}
