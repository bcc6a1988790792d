package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tandoor-pos/api/internal/database"
	"github.com/tandoor-pos/api/internal/middleware"
	"github.com/tandoor-pos/api/internal/service"
)

// PaymentServicer defines the service methods needed by payment handlers.
// Satisfied by *service.OrderService.
type PaymentServicer interface {
	PayOrder(ctx context.Context, orderID uuid.UUID, paymentMethod string) (*service.Receipt, error)
	DirectCheckout(ctx context.Context, req service.CreateOrderRequest, paymentMethod string) (*service.Receipt, error)
}

// PaymentStore defines the database methods needed by transaction listing.
type PaymentStore interface {
	ListPaidTransactions(ctx context.Context) ([]database.TransactionWithOrder, error)
}

// PaymentHandler handles checkout and transaction endpoints.
type PaymentHandler struct {
	svc   PaymentServicer
	store PaymentStore
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc PaymentServicer, store PaymentStore) *PaymentHandler {
	return &PaymentHandler{svc: svc, store: store}
}

// RegisterOrderRoutes registers the per-order payment endpoint, mounted
// inside the /orders subrouter.
func (h *PaymentHandler) RegisterOrderRoutes(r chi.Router) {
	r.Post("/{id}/payments", h.Pay)
}

// RegisterRoutes registers the counter checkout and transaction listing
// endpoints.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/checkout", h.DirectCheckout)
	r.Get("/transactions", h.ListTransactions)
}

// --- Request / Response types ---

type payRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type directCheckoutRequest struct {
	createOrderRequest
	PaymentMethod string `json:"payment_method"`
}

type receiptLineResponse struct {
	Name      string `json:"name"`
	Quantity  int32  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

type receiptResponse struct {
	OrderID        uuid.UUID             `json:"order_id"`
	TableNumber    int32                 `json:"table_number"`
	WaiterName     string                `json:"waiter_name"`
	CustomerName   string                `json:"customer_name,omitempty"`
	Lines          []receiptLineResponse `json:"lines"`
	Subtotal       string                `json:"subtotal"`
	DiscountAmount string                `json:"discount_amount"`
	TotalPrice     string                `json:"total_price"`
	PaymentMethod  string                `json:"payment_method"`
	PaidAt         time.Time             `json:"paid_at"`
}

type transactionListItem struct {
	transactionResponse
	TableNumber int32  `json:"table_number"`
	TotalPrice  string `json:"total_price"`
}

// --- Handlers ---

// Pay handles POST /orders/{id}/payments: finalize an existing order.
func (h *PaymentHandler) Pay(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	receipt, err := h.svc.PayOrder(r.Context(), orderID, req.PaymentMethod)
	if err != nil {
		writePaymentError(w, err, "pay order")
		return
	}

	writeJSON(w, http.StatusOK, toReceiptResponse(receipt))
}

// DirectCheckout handles POST /checkout: create an order and settle it in one
// step, for customers paying at the counter.
func (h *PaymentHandler) DirectCheckout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req directCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	receipt, err := h.svc.DirectCheckout(r.Context(), service.CreateOrderRequest{
		TableNumber: req.TableNumber,
		WaiterID:    claims.UserID,
		DiscountID:  req.DiscountID,
		Items:       toServiceLines(req.Items),
	}, req.PaymentMethod)
	if err != nil {
		writePaymentError(w, err, "direct checkout")
		return
	}

	writeJSON(w, http.StatusCreated, toReceiptResponse(receipt))
}

// ListTransactions handles GET /transactions: payments for paid orders,
// newest first.
func (h *PaymentHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.store.ListPaidTransactions(r.Context())
	if err != nil {
		log.Printf("ERROR: list transactions: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]transactionListItem, len(transactions))
	for i, t := range transactions {
		resp[i] = transactionListItem{
			transactionResponse: toTransactionResponse(t.Transaction),
			TableNumber:         t.TableNumber,
			TotalPrice:          numericToString(t.TotalPrice),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func writePaymentError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.Is(err, service.ErrOrderNotPayable):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order has already been paid or cancelled"})
	case isValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func toReceiptResponse(receipt *service.Receipt) receiptResponse {
	resp := receiptResponse{
		OrderID:        receipt.OrderID,
		TableNumber:    receipt.TableNumber,
		WaiterName:     receipt.WaiterName,
		CustomerName:   receipt.CustomerName,
		Subtotal:       receipt.Subtotal.StringFixed(2),
		DiscountAmount: receipt.DiscountAmount.StringFixed(2),
		TotalPrice:     receipt.TotalPrice.StringFixed(2),
		PaymentMethod:  receipt.PaymentMethod,
		PaidAt:         receipt.PaidAt,
	}
	resp.Lines = make([]receiptLineResponse, len(receipt.Lines))
	for i, line := range receipt.Lines {
		resp.Lines[i] = receiptLineResponse{
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.StringFixed(2),
			LineTotal: line.LineTotal.StringFixed(2),
		}
	}
	return resp
}
