package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/apperr"
)

var (
	ErrDuplicatePayment = errors.New("payment already recorded for payment intent")
	ErrUserNotFound     = errors.New("user not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrInvalidOrder     = errors.New("order has no items")
	ErrBadTransition    = errors.New("invalid order status transition")
)

const uniqueViolation = "23505"

type Repo struct{ DB *pgxpool.Pool }

// CreateOrder writes the order, its items and, when a payment intent is
// given, the payment row in one transaction. A second payment for the same
// intent hits the unique constraint and returns ErrDuplicatePayment with
// nothing committed.
func (r *Repo) CreateOrder(ctx context.Context, in NewOrder) (*Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrInvalidOrder
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, apperr.Storage("orders.begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o := &Order{
		ID:         uuid.NewString(),
		UserID:     in.UserID,
		Status:     in.Status,
		TotalCents: in.TotalCents(),
		Currency:   in.Currency,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, user_id, status, total_cents, currency)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, o.ID, o.UserID, string(o.Status), o.TotalCents, o.Currency).Scan(&o.CreatedAt)
	if err != nil {
		return nil, apperr.Storage("orders.insert", err)
	}

	for _, it := range in.Items {
		it.ID = uuid.NewString()
		it.OrderID = o.ID
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, qty, price_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			it.ID, it.OrderID, it.ProductID, it.Qty, it.PriceCents,
		); err != nil {
			return nil, apperr.Storage("order_items.insert", err)
		}
		o.Items = append(o.Items, it)
	}

	if in.PaymentIntentID != "" {
		if _, err := tx.Exec(ctx, `
			INSERT INTO payments(id, order_id, stripe_payment_intent_id, amount_cents, status)
			VALUES ($1, $2, $3, $4, $5)`,
			uuid.NewString(), o.ID, in.PaymentIntentID, o.TotalCents, in.PaymentStatus,
		); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return nil, ErrDuplicatePayment
			}
			return nil, apperr.Storage("payments.insert", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Storage("orders.commit", err)
	}
	return o, nil
}

func (r *Repo) PaymentExists(ctx context.Context, paymentIntentID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM payments WHERE stripe_payment_intent_id=$1)`, paymentIntentID,
	).Scan(&exists)
	if err != nil {
		return false, apperr.Storage("payments.exists", err)
	}
	return exists, nil
}

func (r *Repo) FindUserByID(ctx context.Context, id string) (*User, error) {
	return r.findUser(ctx, `SELECT id, email, name, created_at FROM users WHERE id=$1`, id)
}

// FindUserByEmail matches case-insensitively.
func (r *Repo) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.findUser(ctx, `SELECT id, email, name, created_at FROM users WHERE lower(email)=$1`,
		strings.ToLower(strings.TrimSpace(email)))
}

func (r *Repo) findUser(ctx context.Context, query, arg string) (*User, error) {
	var u User
	err := r.DB.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, apperr.Storage("users.find", err)
	}
	return &u, nil
}

func (r *Repo) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var (
		o      Order
		status string
	)
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, status, total_cents, currency, created_at
		FROM orders WHERE id=$1`, orderID,
	).Scan(&o.ID, &o.UserID, &status, &o.TotalCents, &o.Currency, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, apperr.Storage("orders.get", err)
	}
	o.Status = Status(status)

	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, qty, price_cents
		FROM order_items WHERE order_id=$1 ORDER BY product_id`, orderID)
	if err != nil {
		return nil, apperr.Storage("order_items.list", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Qty, &it.PriceCents); err != nil {
			return nil, apperr.Storage("order_items.scan", err)
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("order_items.list", err)
	}
	return &o, nil
}

// UpdateStatus moves an order along the status machine, locking the row so
// concurrent transitions serialize.
func (r *Repo) UpdateStatus(ctx context.Context, orderID string, to Status) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return apperr.Storage("orders.begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var from string
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&from)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return apperr.Storage("orders.lock", err)
	}
	if !CanTransition(Status(from), to) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, from, to)
	}
	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`,
		orderID, string(to), time.Now().UTC()); err != nil {
		return apperr.Storage("orders.update_status", err)
	}
	return apperr.Storage("orders.commit", tx.Commit(ctx))
}
