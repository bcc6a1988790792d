package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID           uuid.UUID
	Name         string
	Username     string
	PasswordHash string
	Role         string
	Party        string
	CreatedAt    time.Time
}

type Category struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

type MenuItem struct {
	ID         uuid.UUID
	Name       string
	Price      pgtype.Numeric
	CategoryID pgtype.UUID
	Stock      int32
	Available  bool
	ImageURL   pgtype.Text
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Order struct {
	ID             uuid.UUID
	TableNumber    int32
	WaiterID       pgtype.UUID
	WaiterName     string
	CustomerName   pgtype.Text
	Status         string
	Subtotal       pgtype.Numeric
	DiscountAmount pgtype.Numeric
	TotalPrice     pgtype.Numeric
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
	Price      pgtype.Numeric
}

type Discount struct {
	ID        uuid.UUID
	Name      string
	Type      string
	Value     pgtype.Numeric
	Active    bool
	CreatedAt time.Time
}

type Transaction struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	Amount        pgtype.Numeric
	PaymentMethod string
	CreatedAt     time.Time
}
