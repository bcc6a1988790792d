package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tandoor-pos/api/internal/database"
	"github.com/tandoor-pos/api/internal/enum"
	"github.com/tandoor-pos/api/internal/middleware"
	"github.com/tandoor-pos/api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	UpdateOrderItems(ctx context.Context, req service.UpdateOrderItemsRequest) (*service.CreateOrderResult, error)
}

// OrderStore defines the database methods needed by order read/update
// handlers. Satisfied by *database.Queries.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItemWithName, error)
	ListTransactionsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Transaction, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) (int64, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.UpdateItems)
	r.Patch("/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type createOrderRequest struct {
	TableNumber int32                    `json:"table_number"`
	DiscountID  string                   `json:"discount_id"`
	Items       []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int32  `json:"quantity"`
}

type orderResponse struct {
	ID             uuid.UUID           `json:"id"`
	TableNumber    int32               `json:"table_number"`
	WaiterID       *string             `json:"waiter_id"`
	WaiterName     string              `json:"waiter_name"`
	CustomerName   *string             `json:"customer_name"`
	Status         string              `json:"status"`
	Subtotal       string              `json:"subtotal"`
	DiscountAmount string              `json:"discount_amount"`
	TotalPrice     string              `json:"total_price"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Items          []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID         uuid.UUID `json:"id"`
	MenuItemID uuid.UUID `json:"menu_item_id"`
	ItemName   string    `json:"item_name"`
	Quantity   int32     `json:"quantity"`
	Price      string    `json:"price"`
}

type transactionResponse struct {
	ID            uuid.UUID `json:"id"`
	OrderID       uuid.UUID `json:"order_id"`
	Amount        string    `json:"amount"`
	PaymentMethod string    `json:"payment_method"`
	CreatedAt     time.Time `json:"created_at"`
}

// orderDetailResponse extends orderResponse with transactions for the GET
// detail endpoint.
type orderDetailResponse struct {
	orderResponse
	Transactions []transactionResponse `json:"transactions"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// --- Handlers ---

// Create handles POST /orders. The order is attributed to the authenticated
// staff member.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}
	for i, item := range req.Items {
		if item.MenuItemID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("items[%d]: menu_item_id is required", i),
			})
			return
		}
		if item.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("items[%d]: quantity must be > 0", i),
			})
			return
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		TableNumber: req.TableNumber,
		WaiterID:    claims.UserID,
		DiscountID:  req.DiscountID,
		Items:       toServiceLines(req.Items),
	})
	if err != nil {
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(result))
}

// List handles GET /orders. Waiters see only their own orders; admins see
// everything and may filter by waiter_id.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := database.ListOrdersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}

	if s := r.URL.Query().Get("status"); s != "" {
		if !isValidOrderStatus(s) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		params.Status = pgtype.Text{String: s, Valid: true}
	}

	if claims.Role == enum.UserRoleWaiter {
		params.WaiterID = pgtype.UUID{Bytes: claims.UserID, Valid: true}
	} else if s := r.URL.Query().Get("waiter_id"); s != "" {
		waiterID, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid waiter_id"})
			return
		}
		params.WaiterID = pgtype.UUID{Bytes: waiterID, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	transactions, err := h.store.ListTransactionsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list transactions: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	orderResp := dbOrderToResponse(order)
	orderResp.Items = make([]orderItemResponse, len(items))
	for i, item := range items {
		orderResp.Items[i] = orderItemResponse{
			ID:         item.ID,
			MenuItemID: item.MenuItemID,
			ItemName:   item.ItemName,
			Quantity:   item.Quantity,
			Price:      numericToString(item.Price),
		}
	}

	txResps := make([]transactionResponse, len(transactions))
	for i, t := range transactions {
		txResps[i] = toTransactionResponse(t)
	}

	writeJSON(w, http.StatusOK, orderDetailResponse{
		orderResponse: orderResp,
		Transactions:  txResps,
	})
}

// UpdateItems handles PUT /orders/{id}. Replaces the cart of a pending order;
// items and discount in the body fully supersede the current ones.
func (h *OrderHandler) UpdateItems(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}
	for i, item := range req.Items {
		if item.MenuItemID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("items[%d]: menu_item_id is required", i),
			})
			return
		}
		if item.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("items[%d]: quantity must be > 0", i),
			})
			return
		}
	}

	result, err := h.svc.UpdateOrderItems(r.Context(), service.UpdateOrderItemsRequest{
		OrderID:    orderID,
		DiscountID: req.DiscountID,
		Items:      toServiceLines(req.Items),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, service.ErrOrderNotEditable):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case isValidationError(err):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: update order items: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// UpdateStatus handles PATCH /orders/{id}/status. Only kitchen-floor
// transitions go through here; marking an order Paid is checkout's job.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status != enum.OrderStatusServed && req.Status != enum.OrderStatusCancelled {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be Served or Cancelled"})
		return
	}

	current, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order for status update: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := validateStatusTransition(current.Status, req.Status); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	updated, err := h.store.UpdateOrderStatus(r.Context(), database.UpdateOrderStatusParams{
		ID:         orderID,
		Status:     req.Status,
		FromStatus: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Status changed between our read and write.
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order status changed, please retry"})
			return
		}
		log.Printf("ERROR: update order status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(updated))
}

// Delete handles DELETE /orders/{id}. Hard delete for admin cleanup; line
// items and transactions cascade.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	affected, err := h.store.DeleteOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: delete order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if affected == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

// isValidationError checks if the error is a known validation error from the
// service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrInvalidTableNumber) ||
		errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidMenuItemID) ||
		errors.Is(err, service.ErrMenuItemNotFound) ||
		errors.Is(err, service.ErrMenuItemUnavailable) ||
		errors.Is(err, service.ErrInsufficientStock) ||
		errors.Is(err, service.ErrCustomerNameRequired) ||
		errors.Is(err, service.ErrInvalidDiscountID) ||
		errors.Is(err, service.ErrDiscountNotFound) ||
		errors.Is(err, service.ErrDiscountInactive) ||
		errors.Is(err, service.ErrWaiterNotFound) ||
		errors.Is(err, service.ErrPaymentMethodEmpty)
}

func isValidOrderStatus(s string) bool {
	switch s {
	case enum.OrderStatusPending, enum.OrderStatusServed, enum.OrderStatusPaid, enum.OrderStatusCancelled:
		return true
	}
	return false
}

// validateStatusTransition enforces the order lifecycle for the status
// endpoint: Pending -> Served, and Pending or Served -> Cancelled. Paid is a
// terminal state reached only through checkout.
func validateStatusTransition(from, to string) error {
	switch to {
	case enum.OrderStatusServed:
		if from == enum.OrderStatusPending {
			return nil
		}
	case enum.OrderStatusCancelled:
		if from == enum.OrderStatusPending || from == enum.OrderStatusServed {
			return nil
		}
	}
	return fmt.Errorf("cannot transition order from %s to %s", from, to)
}

func toServiceLines(items []createOrderItemRequest) []service.OrderLine {
	lines := make([]service.OrderLine, len(items))
	for i, item := range items {
		lines[i] = service.OrderLine{MenuItemID: item.MenuItemID, Quantity: item.Quantity}
	}
	return lines
}

// toOrderResponse converts a service.CreateOrderResult to an orderResponse.
func toOrderResponse(result *service.CreateOrderResult) orderResponse {
	resp := dbOrderToResponse(result.Order)
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, item := range result.Items {
		resp.Items[i] = orderItemResponse{
			ID:         item.Item.ID,
			MenuItemID: item.Item.MenuItemID,
			ItemName:   item.Name,
			Quantity:   item.Item.Quantity,
			Price:      numericToString(item.Item.Price),
		}
	}
	return resp
}

// dbOrderToResponse converts a database.Order to an orderResponse. Unlike
// toOrderResponse this works directly with the DB model for read endpoints.
func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:             o.ID,
		TableNumber:    o.TableNumber,
		WaiterName:     o.WaiterName,
		Status:         o.Status,
		Subtotal:       numericToString(o.Subtotal),
		DiscountAmount: numericToString(o.DiscountAmount),
		TotalPrice:     numericToString(o.TotalPrice),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if o.WaiterID.Valid {
		s := uuid.UUID(o.WaiterID.Bytes).String()
		resp.WaiterID = &s
	}
	if o.CustomerName.Valid {
		s := o.CustomerName.String
		resp.CustomerName = &s
	}
	return resp
}

func toTransactionResponse(t database.Transaction) transactionResponse {
	return transactionResponse{
		ID:            t.ID,
		OrderID:       t.OrderID,
		Amount:        numericToString(t.Amount),
		PaymentMethod: t.PaymentMethod,
		CreatedAt:     t.CreatedAt,
	}
}
