package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const discountColumns = `id, name, type, value, active, created_at`

func scanDiscount(row interface{ Scan(dest ...any) error }) (Discount, error) {
	var d Discount
	err := row.Scan(&d.ID, &d.Name, &d.Type, &d.Value, &d.Active, &d.CreatedAt)
	return d, err
}

func (q *Queries) ListDiscounts(ctx context.Context) ([]Discount, error) {
	return q.listDiscounts(ctx,
		`SELECT `+discountColumns+` FROM discounts ORDER BY name`)
}

func (q *Queries) ListActiveDiscounts(ctx context.Context) ([]Discount, error) {
	return q.listDiscounts(ctx,
		`SELECT `+discountColumns+` FROM discounts WHERE active ORDER BY name`)
}

func (q *Queries) listDiscounts(ctx context.Context, sql string) ([]Discount, error) {
	rows, err := q.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var discounts []Discount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		discounts = append(discounts, d)
	}
	return discounts, rows.Err()
}

func (q *Queries) GetDiscount(ctx context.Context, id uuid.UUID) (Discount, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+discountColumns+` FROM discounts WHERE id = $1`, id)
	return scanDiscount(row)
}

type CreateDiscountParams struct {
	Name  string
	Type  string
	Value pgtype.Numeric
}

func (q *Queries) CreateDiscount(ctx context.Context, arg CreateDiscountParams) (Discount, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO discounts (name, type, value) VALUES ($1, $2, $3)
		 RETURNING `+discountColumns,
		arg.Name, arg.Type, arg.Value)
	return scanDiscount(row)
}

type UpdateDiscountParams struct {
	ID     uuid.UUID
	Name   string
	Type   string
	Value  pgtype.Numeric
	Active bool
}

func (q *Queries) UpdateDiscount(ctx context.Context, arg UpdateDiscountParams) (Discount, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE discounts SET name = $2, type = $3, value = $4, active = $5
		 WHERE id = $1
		 RETURNING `+discountColumns,
		arg.ID, arg.Name, arg.Type, arg.Value, arg.Active)
	return scanDiscount(row)
}

func (q *Queries) DeleteDiscount(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM discounts WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
