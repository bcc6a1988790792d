package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tandoor-pos/api/internal/database"
	"github.com/tandoor-pos/api/internal/enum"
)

// Errors returned by the order service. Handlers map these to client-fault
// responses; anything else is a server fault.
var (
	ErrInvalidTableNumber   = errors.New("table number must be a positive integer")
	ErrEmptyItems           = errors.New("at least one item is required")
	ErrInvalidQuantity      = errors.New("quantity must be > 0")
	ErrInvalidMenuItemID    = errors.New("invalid menu_item_id")
	ErrMenuItemNotFound     = errors.New("menu item not found")
	ErrMenuItemUnavailable  = errors.New("menu item is unavailable")
	ErrInsufficientStock    = errors.New("insufficient stock for one or more items")
	ErrCustomerNameRequired = errors.New("customer_name is required")
	ErrInvalidDiscountID    = errors.New("invalid discount_id")
	ErrDiscountNotFound     = errors.New("discount not found")
	ErrDiscountInactive     = errors.New("discount is not active")
	ErrWaiterNotFound       = errors.New("waiter not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderNotPayable      = errors.New("order is not payable")
	ErrOrderNotEditable     = errors.New("order can no longer be edited")
	ErrPaymentMethodEmpty   = errors.New("payment_method is required")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods the order and checkout pipelines need.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetMenuItemsForOrder(ctx context.Context, ids []uuid.UUID) ([]database.GetMenuItemsForOrderRow, error)
	GetDiscount(ctx context.Context, id uuid.UUID) (database.Discount, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	GetUserByUsername(ctx context.Context, username string) (database.User, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	DecrementStock(ctx context.Context, arg database.DecrementStockParams) (int64, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	CreateTransaction(ctx context.Context, arg database.CreateTransactionParams) (database.Transaction, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItemWithName, error)
	DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	IncrementStock(ctx context.Context, arg database.DecrementStockParams) (int64, error)
	UpdateOrderTotals(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// OrderService handles order intake and checkout business logic.
type OrderService struct {
	pool     TxBeginner
	store    OrderStore // pool-backed, for reads outside a transaction
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, store OrderStore, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, store: store, newStore: newStore}
}

// OrderLine is one requested (menu item, quantity) pair.
type OrderLine struct {
	MenuItemID string
	Quantity   int32
}

// CreateOrderRequest is the validated input for a staff-originated order.
type CreateOrderRequest struct {
	TableNumber int32
	WaiterID    uuid.UUID
	DiscountID  string // optional
	Items       []OrderLine
}

// UpdateOrderItemsRequest replaces a pending order's cart wholesale: the new
// lines and discount fully supersede the old ones.
type UpdateOrderItemsRequest struct {
	OrderID    uuid.UUID
	DiscountID string // optional
	Items      []OrderLine
}

// PublicOrderRequest is the input for a customer self-service order.
type PublicOrderRequest struct {
	CustomerName string
	TableNumber  int32
	Items        []OrderLine
}

// CreateOrderResult is the created order with its line items.
type CreateOrderResult struct {
	Order database.Order
	Items []OrderItemResult
}

// OrderItemResult is a persisted line item with the menu item name captured
// during pricing, for receipts.
type OrderItemResult struct {
	Item database.OrderItem
	Name string
}

// pricedLine is one coalesced, validated order line with its authoritative
// unit price.
type pricedLine struct {
	menuItemID uuid.UUID
	name       string
	quantity   int32
	unitPrice  decimal.Decimal
}

// CreateOrder validates, prices, and creates a staff order atomically.
// The order is created Pending with stock decremented in the same
// transaction; checkout later only records the payment.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
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

	return s.createOrderTx(ctx, orderIntake{
		tableNumber: req.TableNumber,
		waiterID:    pgtypeUUID(waiter.ID),
		waiterName:  waiter.Name,
		discountID:  req.DiscountID,
		items:       req.Items,
		status:      enum.OrderStatusPending,
	})
}

// CreatePublicOrder runs the same pipeline for an unauthenticated customer
// order: customer name required, no discount input, attributed to the
// synthetic online-orders user.
func (s *OrderService) CreatePublicOrder(ctx context.Context, req PublicOrderRequest) (*CreateOrderResult, error) {
	if req.CustomerName == "" {
		return nil, ErrCustomerNameRequired
	}
	if req.TableNumber <= 0 {
		return nil, ErrInvalidTableNumber
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	systemUser, err := s.ensureSystemUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("ensure system user: %w", err)
	}

	return s.createOrderTx(ctx, orderIntake{
		tableNumber:  req.TableNumber,
		waiterID:     pgtypeUUID(systemUser.ID),
		waiterName:   systemUser.Name,
		customerName: pgtype.Text{String: req.CustomerName, Valid: true},
		items:        req.Items,
		status:       enum.OrderStatusPending,
	})
}

// UpdateOrderItems replaces the cart of a pending order. It releases the old
// stock reservation, re-prices the new lines against current menu data,
// re-applies the discount, and rewrites the order's totals, all in one
// transaction. Orders past Pending keep their cart frozen.
func (s *OrderService) UpdateOrderItems(ctx context.Context, req UpdateOrderItemsRequest) (*CreateOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status != enum.OrderStatusPending {
		return nil, ErrOrderNotEditable
	}

	// Hand the old reservation back before pricing, so an edit that keeps an
	// item but changes its quantity is checked against the full pool.
	oldItems, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	for _, item := range oldItems {
		if _, err := store.IncrementStock(ctx, database.DecrementStockParams{
			ID:       item.MenuItemID,
			Quantity: item.Quantity,
		}); err != nil {
			return nil, fmt.Errorf("restore stock: %w", err)
		}
	}
	if _, err := store.DeleteOrderItemsByOrder(ctx, order.ID); err != nil {
		return nil, fmt.Errorf("clear order items: %w", err)
	}

	lines, subtotal, err := priceLines(ctx, store, req.Items)
	if err != nil {
		return nil, err
	}
	discountAmount, err := resolveDiscount(ctx, store, req.DiscountID, subtotal)
	if err != nil {
		return nil, err
	}
	totalPrice := subtotal.Sub(discountAmount)

	var itemResults []OrderItemResult
	for _, line := range lines {
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:    order.ID,
			MenuItemID: line.menuItemID,
			Quantity:   line.quantity,
			Price:      decimalToNumeric(line.unitPrice),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		itemResults = append(itemResults, OrderItemResult{Item: item, Name: line.name})

		affected, err := store.DecrementStock(ctx, database.DecrementStockParams{
			ID:       line.menuItemID,
			Quantity: line.quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
		if affected == 0 {
			return nil, ErrInsufficientStock
		}
	}

	order, err = store.UpdateOrderTotals(ctx, database.UpdateOrderTotalsParams{
		ID:             order.ID,
		Subtotal:       decimalToNumeric(subtotal),
		DiscountAmount: decimalToNumeric(discountAmount),
		TotalPrice:     decimalToNumeric(totalPrice),
	})
	if err != nil {
		return nil, fmt.Errorf("update order totals: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: itemResults}, nil
}

// ensureSystemUser finds or creates the synthetic user that owns public
// orders. Two first-ever public orders can race the insert; the loser hits
// the username unique constraint and re-fetches instead of failing.
func (s *OrderService) ensureSystemUser(ctx context.Context) (database.User, error) {
	user, err := s.store.GetUserByUsername(ctx, enum.SystemUserUsername)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.User{}, err
	}

	user, err = s.store.CreateUser(ctx, database.CreateUserParams{
		Name:     enum.SystemUserName,
		Username: enum.SystemUserUsername,
		// Empty hash: bcrypt never matches, so this account cannot log in.
		PasswordHash: "",
		Role:         enum.UserRoleWaiter,
		Party:        enum.DefaultParty,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return s.store.GetUserByUsername(ctx, enum.SystemUserUsername)
		}
		return database.User{}, err
	}
	return user, nil
}

// orderIntake is the resolved input to the transactional part of the
// pipeline, shared by staff, public, and direct-checkout flows.
type orderIntake struct {
	tableNumber   int32
	waiterID      pgtype.UUID
	waiterName    string
	customerName  pgtype.Text
	discountID    string
	items         []OrderLine
	status        string
	paymentMethod string // set only for direct checkout; inserts the transaction too
}

// createOrderTx executes the full order creation in a single transaction:
// price against authoritative data, insert order + items, compare-and-
// decrement stock per line. Any failure rolls the whole order back.
func (s *OrderService) createOrderTx(ctx context.Context, intake orderIntake) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	lines, subtotal, err := priceLines(ctx, store, intake.items)
	if err != nil {
		return nil, err
	}

	discountAmount, err := resolveDiscount(ctx, store, intake.discountID, subtotal)
	if err != nil {
		return nil, err
	}
	totalPrice := subtotal.Sub(discountAmount)

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		TableNumber:    intake.tableNumber,
		WaiterID:       intake.waiterID,
		WaiterName:     intake.waiterName,
		CustomerName:   intake.customerName,
		Status:         intake.status,
		Subtotal:       decimalToNumeric(subtotal),
		DiscountAmount: decimalToNumeric(discountAmount),
		TotalPrice:     decimalToNumeric(totalPrice),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	var itemResults []OrderItemResult
	for _, line := range lines {
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:    order.ID,
			MenuItemID: line.menuItemID,
			Quantity:   line.quantity,
			Price:      decimalToNumeric(line.unitPrice),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		itemResults = append(itemResults, OrderItemResult{Item: item, Name: line.name})

		// The pre-check above read stock without a lock; this conditional
		// update is the authoritative reservation. Zero rows means a
		// concurrent order took the remaining stock.
		affected, err := store.DecrementStock(ctx, database.DecrementStockParams{
			ID:       line.menuItemID,
			Quantity: line.quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
		if affected == 0 {
			return nil, ErrInsufficientStock
		}
	}

	if intake.paymentMethod != "" {
		_, err := store.CreateTransaction(ctx, database.CreateTransactionParams{
			OrderID:       order.ID,
			Amount:        decimalToNumeric(totalPrice),
			PaymentMethod: intake.paymentMethod,
		})
		if err != nil {
			return nil, fmt.Errorf("create transaction: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: itemResults}, nil
}

// priceLines coalesces duplicate menu-item lines, validates quantities, and
// prices every line against stored data. Splitting one large order into many
// small duplicate lines cannot bypass the stock check.
func priceLines(ctx context.Context, store OrderStore, items []OrderLine) ([]pricedLine, decimal.Decimal, error) {
	quantities := make(map[uuid.UUID]int32, len(items))
	var ids []uuid.UUID // first-appearance order, for deterministic inserts

	for i, line := range items {
		if line.Quantity <= 0 {
			return nil, decimal.Zero, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
		id, err := uuid.Parse(line.MenuItemID)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("items[%d]: %w", i, ErrInvalidMenuItemID)
		}
		if _, seen := quantities[id]; !seen {
			ids = append(ids, id)
		}
		quantities[id] += line.Quantity
	}

	rows, err := store.GetMenuItemsForOrder(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("get menu items: %w", err)
	}
	byID := make(map[uuid.UUID]database.GetMenuItemsForOrderRow, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	subtotal := decimal.Zero
	lines := make([]pricedLine, 0, len(ids))
	for _, id := range ids {
		row, ok := byID[id]
		if !ok {
			return nil, decimal.Zero, ErrMenuItemNotFound
		}
		if !row.Available {
			return nil, decimal.Zero, ErrMenuItemUnavailable
		}
		qty := quantities[id]
		if row.Stock < qty {
			return nil, decimal.Zero, ErrInsufficientStock
		}

		unitPrice := numericToDecimal(row.Price)
		subtotal = subtotal.Add(unitPrice.Mul(decimal.NewFromInt32(qty)))
		lines = append(lines, pricedLine{
			menuItemID: id,
			name:       row.Name,
			quantity:   qty,
			unitPrice:  unitPrice,
		})
	}

	return lines, subtotal, nil
}

// resolveDiscount loads and applies an optional discount by id.
func resolveDiscount(ctx context.Context, store OrderStore, discountID string, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if discountID == "" {
		return decimal.Zero, nil
	}
	id, err := uuid.Parse(discountID)
	if err != nil {
		return decimal.Zero, ErrInvalidDiscountID
	}
	discount, err := store.GetDiscount(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrDiscountNotFound
		}
		return decimal.Zero, fmt.Errorf("get discount: %w", err)
	}
	if !discount.Active {
		return decimal.Zero, ErrDiscountInactive
	}
	return ApplyDiscount(subtotal, discount.Type, numericToDecimal(discount.Value)), nil
}

// --- Helpers ---

func pgtypeUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
