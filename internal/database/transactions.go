package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreateTransactionParams struct {
	OrderID       uuid.UUID
	Amount        pgtype.Numeric
	PaymentMethod string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	var t Transaction
	err := q.db.QueryRow(ctx,
		`INSERT INTO transactions (order_id, amount, payment_method)
		 VALUES ($1, $2, $3)
		 RETURNING id, order_id, amount, payment_method, created_at`,
		arg.OrderID, arg.Amount, arg.PaymentMethod).
		Scan(&t.ID, &t.OrderID, &t.Amount, &t.PaymentMethod, &t.CreatedAt)
	return t, err
}

func (q *Queries) ListTransactionsByOrder(ctx context.Context, orderID uuid.UUID) ([]Transaction, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, order_id, amount, payment_method, created_at
		 FROM transactions WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.OrderID, &t.Amount, &t.PaymentMethod, &t.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// TransactionWithOrder joins a transaction with its order's table number and
// total for the admin transactions list.
type TransactionWithOrder struct {
	Transaction
	TableNumber int32
	TotalPrice  pgtype.Numeric
}

// ListPaidTransactions returns transactions belonging to paid orders, newest
// first.
func (q *Queries) ListPaidTransactions(ctx context.Context) ([]TransactionWithOrder, error) {
	rows, err := q.db.Query(ctx,
		`SELECT t.id, t.order_id, t.amount, t.payment_method, t.created_at,
		        o.table_number, o.total_price
		 FROM transactions t
		 JOIN orders o ON t.order_id = o.id
		 WHERE o.status = 'Paid'
		 ORDER BY t.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []TransactionWithOrder
	for rows.Next() {
		var t TransactionWithOrder
		err := rows.Scan(&t.ID, &t.OrderID, &t.Amount, &t.PaymentMethod, &t.CreatedAt,
			&t.TableNumber, &t.TotalPrice)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
