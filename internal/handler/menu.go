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
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tandoor-pos/api/internal/database"
)

// MenuStore defines the database methods needed by menu item handlers.
type MenuStore interface {
	ListMenuItems(ctx context.Context) ([]database.MenuItemWithCategory, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id uuid.UUID) (int64, error)
	DecrementStockClamped(ctx context.Context, arg database.DecrementStockParams) (int64, error)
}

// MenuHandler handles menu item endpoints.
type MenuHandler struct {
	store MenuStore
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore) *MenuHandler {
	return &MenuHandler{store: store}
}

// --- Request / Response types ---

type menuItemRequest struct {
	Name       string `json:"name"`
	Price      string `json:"price"`
	CategoryID string `json:"category_id"`
	Stock      int32  `json:"stock"`
	Available  *bool  `json:"available"`
	ImageURL   string `json:"image_url"`
}

type menuItemResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Price        string    `json:"price"`
	CategoryID   *string   `json:"category_id"`
	CategoryName *string   `json:"category_name,omitempty"`
	Stock        int32     `json:"stock"`
	Available    bool      `json:"available"`
	ImageURL     *string   `json:"image_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type adjustStockRequest struct {
	Quantity int32 `json:"quantity"`
}

// --- Handlers ---

// List handles GET /menu.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListMenuItems(r.Context())
	if err != nil {
		log.Printf("ERROR: list menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = dbMenuItemWithCategoryToResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /menu/{id}.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	item, err := h.store.GetMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: get menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbMenuItemToResponse(item))
}

// Create handles POST /menu.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	price, categoryID, imageURL, errMsg := parseMenuItemRequest(req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	item, err := h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		Name:       req.Name,
		Price:      price,
		CategoryID: categoryID,
		Stock:      req.Stock,
		ImageURL:   imageURL,
	})
	if err != nil {
		log.Printf("ERROR: create menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, dbMenuItemToResponse(item))
}

// Update handles PUT /menu/{id}. This is a full replace; omitted fields fall
// back to their zero values except available, which defaults to true.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	price, categoryID, imageURL, errMsg := parseMenuItemRequest(req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}

	item, err := h.store.UpdateMenuItem(r.Context(), database.UpdateMenuItemParams{
		ID:         id,
		Name:       req.Name,
		Price:      price,
		CategoryID: categoryID,
		Stock:      req.Stock,
		Available:  available,
		ImageURL:   imageURL,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: update menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbMenuItemToResponse(item))
}

// Delete handles DELETE /menu/{id}.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	affected, err := h.store.DeleteMenuItem(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: delete menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if affected == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AdjustStock handles PATCH /menu/{id}/stock. Manual write-off (spoilage,
// spillage): decrements by quantity, flooring at zero instead of failing.
func (h *MenuHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be > 0"})
		return
	}

	affected, err := h.store.DecrementStockClamped(r.Context(), database.DecrementStockParams{
		ID:       id,
		Quantity: req.Quantity,
	})
	if err != nil {
		log.Printf("ERROR: adjust stock: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if affected == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
		return
	}

	item, err := h.store.GetMenuItem(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: get menu item after stock adjust: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbMenuItemToResponse(item))
}

// --- Helpers ---

// parseMenuItemRequest validates the shared create/update payload. Returns a
// non-empty message on validation failure.
func parseMenuItemRequest(req menuItemRequest) (pgtype.Numeric, pgtype.UUID, pgtype.Text, string) {
	var zero pgtype.Numeric
	if req.Name == "" {
		return zero, pgtype.UUID{}, pgtype.Text{}, "name is required"
	}
	if req.Price == "" {
		return zero, pgtype.UUID{}, pgtype.Text{}, "price is required"
	}
	priceDec, err := decimal.NewFromString(req.Price)
	if err != nil || priceDec.IsNegative() {
		return zero, pgtype.UUID{}, pgtype.Text{}, "price must be a non-negative decimal"
	}
	if req.Stock < 0 {
		return zero, pgtype.UUID{}, pgtype.Text{}, "stock must be >= 0"
	}

	var price pgtype.Numeric
	_ = price.Scan(priceDec.StringFixed(2))

	var categoryID pgtype.UUID
	if req.CategoryID != "" {
		id, err := uuid.Parse(req.CategoryID)
		if err != nil {
			return zero, pgtype.UUID{}, pgtype.Text{}, "invalid category_id"
		}
		categoryID = pgtype.UUID{Bytes: id, Valid: true}
	}

	var imageURL pgtype.Text
	if req.ImageURL != "" {
		imageURL = pgtype.Text{String: req.ImageURL, Valid: true}
	}

	return price, categoryID, imageURL, ""
}

func dbMenuItemToResponse(m database.MenuItem) menuItemResponse {
	resp := menuItemResponse{
		ID:        m.ID,
		Name:      m.Name,
		Price:     numericToString(m.Price),
		Stock:     m.Stock,
		Available: m.Available,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.CategoryID.Valid {
		s := uuid.UUID(m.CategoryID.Bytes).String()
		resp.CategoryID = &s
	}
	if m.ImageURL.Valid {
		s := m.ImageURL.String
		resp.ImageURL = &s
	}
	return resp
}

func dbMenuItemWithCategoryToResponse(m database.MenuItemWithCategory) menuItemResponse {
	resp := dbMenuItemToResponse(m.MenuItem)
	if m.CategoryName.Valid {
		s := m.CategoryName.String
		resp.CategoryName = &s
	}
	return resp
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
