package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tandoor-pos/api/internal/database"
	"github.com/tandoor-pos/api/internal/enum"
)

// ReceiptLine is one line of a finalized order receipt.
type ReceiptLine struct {
	Name      string
	Quantity  int32
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// Receipt summarizes a paid order.
type Receipt struct {
	OrderID        uuid.UUID
	TableNumber    int32
	WaiterName     string
	CustomerName   string
	Lines          []ReceiptLine
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalPrice     decimal.Decimal
	PaymentMethod  string
	PaidAt         time.Time
}

// PayOrder finalizes an existing order: it records a transaction for the
// order's total and marks the order Paid. The order row is locked for the
// duration, so two concurrent checkouts cannot both succeed.
func (s *OrderService) PayOrder(ctx context.Context, orderID uuid.UUID, paymentMethod string) (*Receipt, error) {
	if paymentMethod == "" {
		return nil, ErrPaymentMethodEmpty
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	// Stock was already reserved at order creation. Only unpaid, uncancelled
	// orders can be finalized; paying twice or paying a cancelled order is a
	// conflict, not a no-op.
	if order.Status != enum.OrderStatusPending && order.Status != enum.OrderStatusServed {
		return nil, ErrOrderNotPayable
	}

	txn, err := store.CreateTransaction(ctx, database.CreateTransactionParams{
		OrderID:       order.ID,
		Amount:        order.TotalPrice,
		PaymentMethod: paymentMethod,
	})
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	order, err = store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:         order.ID,
		Status:     enum.OrderStatusPaid,
		FromStatus: order.Status,
	})
	if err != nil {
		return nil, fmt.Errorf("mark order paid: %w", err)
	}

	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	receipt := buildReceipt(order, paymentMethod, txn.CreatedAt)
	for _, item := range items {
		unit := numericToDecimal(item.Price)
		receipt.Lines = append(receipt.Lines, ReceiptLine{
			Name:      item.ItemName,
			Quantity:  item.Quantity,
			UnitPrice: unit,
			LineTotal: unit.Mul(decimal.NewFromInt32(item.Quantity)),
		})
	}
	return receipt, nil
}

// DirectCheckout creates an order and records its payment in one
// transaction. Used at the counter when the customer pays up front; the
// order is born Paid and never passes through Pending.
func (s *OrderService) DirectCheckout(ctx context.Context, req CreateOrderRequest, paymentMethod string) (*Receipt, error) {
	if paymentMethod == "" {
		return nil, ErrPaymentMethodEmpty
	}
	if req.TableNumber <= 0 {
		return nil, ErrInvalidTableNumber
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	waiter, err := s.store.GetUserByID(ctx, req.WaiterID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWaiterNotFound
		}
		return nil, fmt.Errorf("get waiter: %w", err)
	}

	result, err := s.createOrderTx(ctx, orderIntake{
		tableNumber:   req.TableNumber,
		waiterID:      pgtypeUUID(waiter.ID),
		waiterName:    waiter.Name,
		discountID:    req.DiscountID,
		items:         req.Items,
		status:        enum.OrderStatusPaid,
		paymentMethod: paymentMethod,
	})
	if err != nil {
		return nil, err
	}

	receipt := buildReceipt(result.Order, paymentMethod, result.Order.CreatedAt)
	for _, item := range result.Items {
		unit := numericToDecimal(item.Item.Price)
		receipt.Lines = append(receipt.Lines, ReceiptLine{
			Name:      item.Name,
			Quantity:  item.Item.Quantity,
			UnitPrice: unit,
			LineTotal: unit.Mul(decimal.NewFromInt32(item.Item.Quantity)),
		})
	}
	return receipt, nil
}

func buildReceipt(order database.Order, paymentMethod string, paidAt time.Time) *Receipt {
	return &Receipt{
		OrderID:        order.ID,
		TableNumber:    order.TableNumber,
		WaiterName:     order.WaiterName,
		CustomerName:   order.CustomerName.String,
		Subtotal:       numericToDecimal(order.Subtotal),
		DiscountAmount: numericToDecimal(order.DiscountAmount),
		TotalPrice:     numericToDecimal(order.TotalPrice),
		PaymentMethod:  paymentMethod,
		PaidAt:         paidAt,
	}
}
