package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, name, price, category_id, stock, available, image_url, created_at, updated_at`

func scanMenuItem(row interface{ Scan(dest ...any) error }) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(&m.ID, &m.Name, &m.Price, &m.CategoryID, &m.Stock,
		&m.Available, &m.ImageURL, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// MenuItemWithCategory is a menu item joined with its category name for
// listing endpoints.
type MenuItemWithCategory struct {
	MenuItem
	CategoryName pgtype.Text
}

func (q *Queries) listMenuItems(ctx context.Context, sql string) ([]MenuItemWithCategory, error) {
	rows, err := q.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MenuItemWithCategory
	for rows.Next() {
		var m MenuItemWithCategory
		err := rows.Scan(&m.ID, &m.Name, &m.Price, &m.CategoryID, &m.Stock,
			&m.Available, &m.ImageURL, &m.CreatedAt, &m.UpdatedAt, &m.CategoryName)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (q *Queries) ListMenuItems(ctx context.Context) ([]MenuItemWithCategory, error) {
	return q.listMenuItems(ctx,
		`SELECT m.id, m.name, m.price, m.category_id, m.stock, m.available, m.image_url,
		        m.created_at, m.updated_at, c.name AS category_name
		 FROM menu_items m
		 LEFT JOIN categories c ON m.category_id = c.id
		 ORDER BY c.name, m.name`)
}

// ListAvailableMenuItems returns only orderable items: available AND in stock.
func (q *Queries) ListAvailableMenuItems(ctx context.Context) ([]MenuItemWithCategory, error) {
	return q.listMenuItems(ctx,
		`SELECT m.id, m.name, m.price, m.category_id, m.stock, m.available, m.image_url,
		        m.created_at, m.updated_at, c.name AS category_name
		 FROM menu_items m
		 LEFT JOIN categories c ON m.category_id = c.id
		 WHERE m.available AND m.stock > 0
		 ORDER BY c.name, m.name`)
}

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+menuItemColumns+` FROM menu_items WHERE id = $1`, id)
	return scanMenuItem(row)
}

// GetMenuItemsForOrderRow carries the authoritative pricing/availability data
// the order pipeline validates against.
type GetMenuItemsForOrderRow struct {
	ID        uuid.UUID
	Name      string
	Price     pgtype.Numeric
	Stock     int32
	Available bool
}

// GetMenuItemsForOrder batch-fetches pricing data for all referenced items.
// Missing ids are simply absent from the result; callers detect them.
func (q *Queries) GetMenuItemsForOrder(ctx context.Context, ids []uuid.UUID) ([]GetMenuItemsForOrderRow, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, name, price, stock, available FROM menu_items WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []GetMenuItemsForOrderRow
	for rows.Next() {
		var m GetMenuItemsForOrderRow
		if err := rows.Scan(&m.ID, &m.Name, &m.Price, &m.Stock, &m.Available); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

type CreateMenuItemParams struct {
	Name       string
	Price      pgtype.Numeric
	CategoryID pgtype.UUID
	Stock      int32
	ImageURL   pgtype.Text
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO menu_items (name, price, category_id, stock, image_url)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+menuItemColumns,
		arg.Name, arg.Price, arg.CategoryID, arg.Stock, arg.ImageURL)
	return scanMenuItem(row)
}

type UpdateMenuItemParams struct {
	ID         uuid.UUID
	Name       string
	Price      pgtype.Numeric
	CategoryID pgtype.UUID
	Stock      int32
	Available  bool
	ImageURL   pgtype.Text
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE menu_items
		 SET name = $2, price = $3, category_id = $4, stock = $5, available = $6,
		     image_url = $7, updated_at = now()
		 WHERE id = $1
		 RETURNING `+menuItemColumns,
		arg.ID, arg.Name, arg.Price, arg.CategoryID, arg.Stock, arg.Available, arg.ImageURL)
	return scanMenuItem(row)
}

func (q *Queries) DeleteMenuItem(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type DecrementStockParams struct {
	ID       uuid.UUID
	Quantity int32
}

// DecrementStock is the compare-and-decrement commit point for stock
// reservation. It only succeeds when enough stock remains; a zero
// affected-row count means a concurrent order won the remaining stock and the
// caller must abort its transaction.
func (q *Queries) DecrementStock(ctx context.Context, arg DecrementStockParams) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE menu_items SET stock = stock - $2, updated_at = now()
		 WHERE id = $1 AND stock >= $2`,
		arg.ID, arg.Quantity)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// IncrementStock returns previously reserved stock to a menu item, used when
// a cart edit releases the old reservation before taking the new one.
func (q *Queries) IncrementStock(ctx context.Context, arg DecrementStockParams) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE menu_items SET stock = stock + $2, updated_at = now()
		 WHERE id = $1`,
		arg.ID, arg.Quantity)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DecrementStockClamped is the manual stock adjustment used by the admin
// endpoint. Unlike DecrementStock it always succeeds, flooring at zero.
func (q *Queries) DecrementStockClamped(ctx context.Context, arg DecrementStockParams) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE menu_items SET stock = GREATEST(stock - $2, 0), updated_at = now()
		 WHERE id = $1`,
		arg.ID, arg.Quantity)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
