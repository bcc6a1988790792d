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
	"github.com/tandoor-pos/api/internal/enum"
)

// DiscountStore defines the database methods needed by discount handlers.
type DiscountStore interface {
	ListDiscounts(ctx context.Context) ([]database.Discount, error)
	ListActiveDiscounts(ctx context.Context) ([]database.Discount, error)
	GetDiscount(ctx context.Context, id uuid.UUID) (database.Discount, error)
	CreateDiscount(ctx context.Context, arg database.CreateDiscountParams) (database.Discount, error)
	UpdateDiscount(ctx context.Context, arg database.UpdateDiscountParams) (database.Discount, error)
	DeleteDiscount(ctx context.Context, id uuid.UUID) (int64, error)
}

// DiscountHandler handles discount endpoints. Listing active discounts is
// open to all staff; mutations are mounted behind the Admin role.
type DiscountHandler struct {
	store DiscountStore
}

// NewDiscountHandler creates a new DiscountHandler.
func NewDiscountHandler(store DiscountStore) *DiscountHandler {
	return &DiscountHandler{store: store}
}

type discountRequest struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Value  string `json:"value"`
	Active *bool  `json:"active"`
}

type discountResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Value     string    `json:"value"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// List handles GET /discounts. ?active=true narrows to applicable discounts.
func (h *DiscountHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		discounts []database.Discount
		err       error
	)
	if r.URL.Query().Get("active") == "true" {
		discounts, err = h.store.ListActiveDiscounts(r.Context())
	} else {
		discounts, err = h.store.ListDiscounts(r.Context())
	}
	if err != nil {
		log.Printf("ERROR: list discounts: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]discountResponse, len(discounts))
	for i, d := range discounts {
		resp[i] = toDiscountResponse(d)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /discounts.
func (h *DiscountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req discountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	value, errMsg := parseDiscountRequest(req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	discount, err := h.store.CreateDiscount(r.Context(), database.CreateDiscountParams{
		Name:  req.Name,
		Type:  req.Type,
		Value: value,
	})
	if err != nil {
		log.Printf("ERROR: create discount: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toDiscountResponse(discount))
}

// Update handles PUT /discounts/{id}.
func (h *DiscountHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid discount ID"})
		return
	}

	var req discountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	value, errMsg := parseDiscountRequest(req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	discount, err := h.store.UpdateDiscount(r.Context(), database.UpdateDiscountParams{
		ID:     id,
		Name:   req.Name,
		Type:   req.Type,
		Value:  value,
		Active: active,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "discount not found"})
			return
		}
		log.Printf("ERROR: update discount: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toDiscountResponse(discount))
}

// Delete handles DELETE /discounts/{id}.
func (h *DiscountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid discount ID"})
		return
	}

	affected, err := h.store.DeleteDiscount(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: delete discount: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if affected == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "discount not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func parseDiscountRequest(req discountRequest) (pgtype.Numeric, string) {
	var zero pgtype.Numeric
	if req.Name == "" {
		return zero, "name is required"
	}
	if req.Type != enum.DiscountTypePercentage && req.Type != enum.DiscountTypeFixed {
		return zero, "type must be Percentage or Fixed"
	}
	valueDec, err := decimal.NewFromString(req.Value)
	if err != nil || valueDec.IsNegative() {
		return zero, "value must be a non-negative decimal"
	}
	if req.Type == enum.DiscountTypePercentage && valueDec.GreaterThan(decimal.NewFromInt(100)) {
		return zero, "percentage value must be <= 100"
	}

	var value pgtype.Numeric
	_ = value.Scan(valueDec.StringFixed(2))
	return value, ""
}

func toDiscountResponse(d database.Discount) discountResponse {
	return discountResponse{
		ID:        d.ID,
		Name:      d.Name,
		Type:      d.Type,
		Value:     numericToString(d.Value),
		Active:    d.Active,
		CreatedAt: d.CreatedAt,
	}
}
