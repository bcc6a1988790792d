package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type DateRangeParams struct {
	StartDate time.Time
	EndDate   time.Time
}

// GetDailySalesTotal sums all transaction amounts for one calendar day.
func (q *Queries) GetDailySalesTotal(ctx context.Context, day time.Time) (pgtype.Numeric, error) {
	var total pgtype.Numeric
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM transactions
		 WHERE created_at::date = $1::date`, day).Scan(&total)
	return total, err
}

type GetSalesSummaryRow struct {
	SaleDate    pgtype.Date
	OrderCount  int64
	TotalAmount pgtype.Numeric
}

// GetSalesSummary returns per-day transaction totals over an inclusive range.
func (q *Queries) GetSalesSummary(ctx context.Context, arg DateRangeParams) ([]GetSalesSummaryRow, error) {
	rows, err := q.db.Query(ctx,
		`SELECT t.created_at::date AS sale_date,
		        COUNT(*) AS order_count,
		        COALESCE(SUM(t.amount), 0) AS total_amount
		 FROM transactions t
		 JOIN orders o ON t.order_id = o.id
		 WHERE o.status = 'Paid'
		   AND t.created_at::date BETWEEN $1::date AND $2::date
		 GROUP BY sale_date
		 ORDER BY sale_date`,
		arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GetSalesSummaryRow
	for rows.Next() {
		var r GetSalesSummaryRow
		if err := rows.Scan(&r.SaleDate, &r.OrderCount, &r.TotalAmount); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type GetTopItemsParams struct {
	StartDate time.Time
	EndDate   time.Time
	Limit     int32
}

type GetTopItemsRow struct {
	Name          string
	TotalQuantity int64
	TotalRevenue  pgtype.Numeric
}

// GetTopItems ranks menu items by quantity sold over an inclusive range.
func (q *Queries) GetTopItems(ctx context.Context, arg GetTopItemsParams) ([]GetTopItemsRow, error) {
	rows, err := q.db.Query(ctx,
		`SELECT m.name,
		        SUM(oi.quantity) AS total_quantity,
		        SUM(oi.quantity * oi.price) AS total_revenue
		 FROM order_items oi
		 JOIN menu_items m ON oi.menu_item_id = m.id
		 JOIN orders o ON oi.order_id = o.id
		 WHERE o.created_at::date BETWEEN $1::date AND $2::date
		 GROUP BY m.id, m.name
		 ORDER BY total_quantity DESC
		 LIMIT $3`,
		arg.StartDate, arg.EndDate, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GetTopItemsRow
	for rows.Next() {
		var r GetTopItemsRow
		if err := rows.Scan(&r.Name, &r.TotalQuantity, &r.TotalRevenue); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type GetPaymentSummaryRow struct {
	PaymentMethod    string
	TransactionCount int64
	TotalAmount      pgtype.Numeric
}

// GetPaymentSummary breaks transaction totals down by payment method.
func (q *Queries) GetPaymentSummary(ctx context.Context, arg DateRangeParams) ([]GetPaymentSummaryRow, error) {
	rows, err := q.db.Query(ctx,
		`SELECT t.payment_method,
		        COUNT(*) AS transaction_count,
		        COALESCE(SUM(t.amount), 0) AS total_amount
		 FROM transactions t
		 JOIN orders o ON t.order_id = o.id
		 WHERE o.status = 'Paid'
		   AND t.created_at::date BETWEEN $1::date AND $2::date
		 GROUP BY t.payment_method
		 ORDER BY total_amount DESC`,
		arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GetPaymentSummaryRow
	for rows.Next() {
		var r GetPaymentSummaryRow
		if err := rows.Scan(&r.PaymentMethod, &r.TransactionCount, &r.TotalAmount); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
