package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, table_number, waiter_id, waiter_name, customer_name, status,
	subtotal, discount_amount, total_price, created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.TableNumber, &o.WaiterID, &o.WaiterName, &o.CustomerName,
		&o.Status, &o.Subtotal, &o.DiscountAmount, &o.TotalPrice, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

type CreateOrderParams struct {
	TableNumber    int32
	WaiterID       pgtype.UUID
	WaiterName     string
	CustomerName   pgtype.Text
	Status         string
	Subtotal       pgtype.Numeric
	DiscountAmount pgtype.Numeric
	TotalPrice     pgtype.Numeric
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO orders (table_number, waiter_id, waiter_name, customer_name, status,
		                     subtotal, discount_amount, total_price)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+orderColumns,
		arg.TableNumber, arg.WaiterID, arg.WaiterName, arg.CustomerName, arg.Status,
		arg.Subtotal, arg.DiscountAmount, arg.TotalPrice)
	return scanOrder(row)
}

type CreateOrderItemParams struct {
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
	Price      pgtype.Numeric
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var oi OrderItem
	err := q.db.QueryRow(ctx,
		`INSERT INTO order_items (order_id, menu_item_id, quantity, price)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, order_id, menu_item_id, quantity, price`,
		arg.OrderID, arg.MenuItemID, arg.Quantity, arg.Price).
		Scan(&oi.ID, &oi.OrderID, &oi.MenuItemID, &oi.Quantity, &oi.Price)
	return oi, err
}

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// GetOrderForUpdate locks the order row for the rest of the transaction,
// serializing concurrent checkouts of the same order.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR NO KEY UPDATE`, id)
	return scanOrder(row)
}

type ListOrdersParams struct {
	Status   pgtype.Text
	WaiterID pgtype.UUID
	Limit    int32
	Offset   int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE ($1::text IS NULL OR status = $1)
		   AND ($2::uuid IS NULL OR waiter_id = $2)
		 ORDER BY created_at DESC
		 LIMIT $3 OFFSET $4`,
		arg.Status, arg.WaiterID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// OrderItemWithName is an order line joined with the current menu item name
// for receipts and order detail views.
type OrderItemWithName struct {
	OrderItem
	ItemName string
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItemWithName, error) {
	rows, err := q.db.Query(ctx,
		`SELECT oi.id, oi.order_id, oi.menu_item_id, oi.quantity, oi.price, m.name AS item_name
		 FROM order_items oi
		 JOIN menu_items m ON oi.menu_item_id = m.id
		 WHERE oi.order_id = $1
		 ORDER BY m.name`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItemWithName
	for rows.Next() {
		var oi OrderItemWithName
		err := rows.Scan(&oi.ID, &oi.OrderID, &oi.MenuItemID, &oi.Quantity, &oi.Price, &oi.ItemName)
		if err != nil {
			return nil, err
		}
		items = append(items, oi)
	}
	return items, rows.Err()
}

type UpdateOrderStatusParams struct {
	ID         uuid.UUID
	Status     string
	FromStatus string
}

// UpdateOrderStatus transitions an order only when it is still in FromStatus,
// so a status change that raced another request surfaces as ErrNoRows rather
// than silently overwriting.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE orders SET status = $2, updated_at = now()
		 WHERE id = $1 AND status = $3
		 RETURNING `+orderColumns,
		arg.ID, arg.Status, arg.FromStatus)
	return scanOrder(row)
}

type UpdateOrderTotalsParams struct {
	ID             uuid.UUID
	Subtotal       pgtype.Numeric
	DiscountAmount pgtype.Numeric
	TotalPrice     pgtype.Numeric
}

// UpdateOrderTotals rewrites an order's money columns after its cart is
// edited. Callers run it in the same transaction that replaced the items.
func (q *Queries) UpdateOrderTotals(ctx context.Context, arg UpdateOrderTotalsParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE orders SET subtotal = $2, discount_amount = $3, total_price = $4, updated_at = now()
		 WHERE id = $1
		 RETURNING `+orderColumns,
		arg.ID, arg.Subtotal, arg.DiscountAmount, arg.TotalPrice)
	return scanOrder(row)
}

// DeleteOrderItemsByOrder clears an order's line items ahead of a cart edit
// re-insert.
func (q *Queries) DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteOrder hard-deletes an order; order_items and transactions cascade.
func (q *Queries) DeleteOrder(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
