package repository

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/giftlink/internal/model"
	"github.com/fairyhunter13/giftlink/internal/service"
	"github.com/fairyhunter13/giftlink/pkg/database"
)

const uniqueViolation = "23505"

const orderColumns = `id, gift_type, merchant_id, product_id, amount::text, currency,
	credit_amount, credit_remaining, status, gift_token, redeem_code,
	sender_name, receiver_name, receiver_contact, delivery_channel, message, theme_id,
	created_at, scheduled_send_at, sent_at, redeemed_at, redeemed_by_merchant_user_id, expires_at`

// PoolInterface defines the database operations needed by OrderRepository.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

type ledgerAppender interface {
	Append(ctx context.Context, tx database.TxQuerier, entry model.CreditRedemption) error
}

// OrderRepository is the Postgres OrderStore.
type OrderRepository struct {
	pool   PoolInterface
	ledger ledgerAppender
}

// NewOrderRepository creates an OrderRepository that writes credit
// redemptions through ledger inside the mutation transaction.
func NewOrderRepository(pool *pgxpool.Pool, ledger *LedgerRepository) *OrderRepository {
	return &OrderRepository{pool: pool, ledger: ledger}
}

// NewOrderRepositoryWithPool creates an OrderRepository with a custom pool interface.
// This is primarily used for testing.
func NewOrderRepositoryWithPool(pool PoolInterface, ledger ledgerAppender) *OrderRepository {
	return &OrderRepository{pool: pool, ledger: ledger}
}

// Insert inserts a new order.
// Returns service.ErrDuplicateKey if the id, token or redeem code already exists.
func (r *OrderRepository) Insert(ctx context.Context, o *model.GiftOrder) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO gift_orders (
			id, gift_type, merchant_id, product_id, amount, currency,
			credit_amount, credit_remaining, status, gift_token, redeem_code,
			sender_name, receiver_name, receiver_contact, delivery_channel, message, theme_id,
			created_at, scheduled_send_at, sent_at, redeemed_at, redeemed_by_merchant_user_id, expires_at
		) VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		o.ID, string(o.GiftType), o.MerchantID, o.ProductID, o.Amount.String(), o.Currency,
		o.CreditAmount, o.CreditRemaining, string(o.Status), o.GiftToken, strings.ToUpper(o.RedeemCode),
		o.SenderName, o.ReceiverName, o.ReceiverContact, string(o.DeliveryChannel), o.Message, o.ThemeID,
		o.CreatedAt, o.ScheduledSendAt, o.SentAt, o.RedeemedAt, o.RedeemedByMerchantUserID, o.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", service.ErrDuplicateKey, pgErr.ConstraintName)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by id.
// Returns nil, nil if the order is not found (service layer handles this).
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*model.GiftOrder, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM gift_orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return order, nil
}

// GetByToken returns the order only when token matches, compared in constant time.
func (r *OrderRepository) GetByToken(ctx context.Context, id, token string) (*model.GiftOrder, error) {
	order, err := r.GetByID(ctx, id)
	if err != nil || order == nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(order.GiftToken), []byte(token)) != 1 {
		return nil, nil
	}
	return order, nil
}

// GetByRedeemCode retrieves an order by its normalized redeem code.
func (r *OrderRepository) GetByRedeemCode(ctx context.Context, code string) (*model.GiftOrder, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	order, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM gift_orders WHERE redeem_code = $1`, normalized))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order by code: %w", err)
	}
	return order, nil
}

// ListByMerchant returns the merchant's orders, newest first.
// On success, returns an empty slice (not nil) when no orders exist.
func (r *OrderRepository) ListByMerchant(ctx context.Context, merchantID string) ([]*model.GiftOrder, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM gift_orders WHERE merchant_id = $1 ORDER BY created_at DESC`, merchantID)
	if err != nil {
		return nil, fmt.Errorf("list orders for merchant %s: %w", merchantID, err)
	}
	defer rows.Close()

	orders := []*model.GiftOrder{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, nil
}

// ListExpirable returns ids of non-terminal orders whose expiry is before now.
func (r *OrderRepository) ListExpirable(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM gift_orders
		 WHERE status NOT IN ('REDEEMED', 'CANCELED', 'EXPIRED') AND expires_at < $1
		 ORDER BY expires_at
		 LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expirable orders: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expirable rows: %w", err)
	}
	return ids, nil
}

// Mutate locks the order row (SELECT FOR UPDATE), runs fn on a copy and
// writes the mutable columns plus any ledger entry in the same transaction.
func (r *OrderRepository) Mutate(ctx context.Context, id string, fn service.MutateFunc) (*model.GiftOrder, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	current, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM gift_orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("lock order %s: %w", id, err)
	}

	draft := current.Clone()
	redemption, err := fn(draft)
	if err != nil {
		return nil, err
	}
	if err := checkImmutable(current, draft); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE gift_orders
		 SET status = $2, credit_remaining = $3, sent_at = $4, redeemed_at = $5, redeemed_by_merchant_user_id = $6
		 WHERE id = $1`,
		id, string(draft.Status), draft.CreditRemaining, draft.SentAt, draft.RedeemedAt, draft.RedeemedByMerchantUserID)
	if err != nil {
		return nil, fmt.Errorf("update order %s: %w", id, err)
	}

	if redemption != nil {
		redemption.OrderID = id
		if err := r.ledger.Append(ctx, tx, *redemption); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit order %s: %w", id, err)
	}
	return draft, nil
}

// Ping checks database connectivity.
func (r *OrderRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanOrder(row pgx.Row) (*model.GiftOrder, error) {
	var (
		o                                 model.GiftOrder
		giftType, status, channel, amount string
	)
	err := row.Scan(
		&o.ID, &giftType, &o.MerchantID, &o.ProductID, &amount, &o.Currency,
		&o.CreditAmount, &o.CreditRemaining, &status, &o.GiftToken, &o.RedeemCode,
		&o.SenderName, &o.ReceiverName, &o.ReceiverContact, &channel, &o.Message, &o.ThemeID,
		&o.CreatedAt, &o.ScheduledSendAt, &o.SentAt, &o.RedeemedAt, &o.RedeemedByMerchantUserID, &o.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	o.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	o.GiftType = model.GiftType(giftType)
	o.Status = model.OrderStatus(status)
	o.DeliveryChannel = model.DeliveryChannel(channel)
	return &o, nil
}
