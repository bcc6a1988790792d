package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tandoor-pos/api/internal/database"
	"github.com/tandoor-pos/api/internal/service"
	"github.com/tandoor-pos/api/internal/ws"
)

// PublicStore defines the database methods needed by unauthenticated
// customer endpoints.
type PublicStore interface {
	ListAvailableMenuItems(ctx context.Context) ([]database.MenuItemWithCategory, error)
}

// PublicOrderServicer defines the service methods needed by the public order
// endpoint. Satisfied by *service.OrderService.
type PublicOrderServicer interface {
	CreatePublicOrder(ctx context.Context, req service.PublicOrderRequest) (*service.CreateOrderResult, error)
}

// Notifier pushes events to connected staff devices. Satisfied by *ws.Hub.
type Notifier interface {
	Broadcast(event ws.Event)
}

// PublicHandler handles the customer self-service endpoints. No
// authentication; these are reached by scanning the table QR code.
type PublicHandler struct {
	store    PublicStore
	svc      PublicOrderServicer
	notifier Notifier
}

// NewPublicHandler creates a new PublicHandler.
func NewPublicHandler(store PublicStore, svc PublicOrderServicer, notifier Notifier) *PublicHandler {
	return &PublicHandler{store: store, svc: svc, notifier: notifier}
}

// RegisterRoutes registers public endpoints on the given Chi router.
func (h *PublicHandler) RegisterRoutes(r chi.Router) {
	r.Get("/menu", h.Menu)
	r.Post("/orders", h.CreateOrder)
	r.Post("/call-waiter", h.CallWaiter)
}

// --- Request / Response types ---

type publicOrderRequest struct {
	CustomerName string                   `json:"customer_name"`
	TableNumber  int32                    `json:"table_number"`
	Items        []createOrderItemRequest `json:"items"`
}

type publicOrderResponse struct {
	OrderID    string `json:"order_id"`
	Status     string `json:"status"`
	TotalPrice string `json:"total_price"`
}

type callWaiterRequest struct {
	TableNumber  int32  `json:"table_number"`
	CustomerName string `json:"customer_name"`
}

// --- Handlers ---

// Menu handles GET /public/menu: only items a customer can actually order,
// so sold-out and hidden dishes never show up.
func (h *PublicHandler) Menu(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListAvailableMenuItems(r.Context())
	if err != nil {
		log.Printf("ERROR: list public menu: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = dbMenuItemWithCategoryToResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateOrder handles POST /public/orders: a customer placing their own
// order from the table. Staff get a push notification so the kitchen sees
// it without polling.
func (h *PublicHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req publicOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.CreatePublicOrder(r.Context(), service.PublicOrderRequest{
		CustomerName: req.CustomerName,
		TableNumber:  req.TableNumber,
		Items:        toServiceLines(req.Items),
	})
	if err != nil {
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create public order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	event := ws.NewEvent(ws.EventOrderCreated, result.Order.TableNumber)
	event.CustomerName = req.CustomerName
	event.OrderID = result.Order.ID.String()
	h.notifier.Broadcast(event)

	writeJSON(w, http.StatusCreated, publicOrderResponse{
		OrderID:    result.Order.ID.String(),
		Status:     result.Order.Status,
		TotalPrice: numericToString(result.Order.TotalPrice),
	})
}

// CallWaiter handles POST /public/call-waiter: pushes a notification to all
// connected staff devices. Fire-and-forget; there is no delivery receipt.
func (h *PublicHandler) CallWaiter(w http.ResponseWriter, r *http.Request) {
	var req callWaiterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.TableNumber <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "table_number must be a positive integer"})
		return
	}

	event := ws.NewEvent(ws.EventCallWaiter, req.TableNumber)
	event.CustomerName = req.CustomerName
	h.notifier.Broadcast(event)

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "notified"})
}
