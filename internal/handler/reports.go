package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tandoor-pos/api/internal/database"
)

// ReportStore defines the database methods needed by report handlers.
type ReportStore interface {
	GetDailySalesTotal(ctx context.Context, day time.Time) (pgtype.Numeric, error)
	GetSalesSummary(ctx context.Context, arg database.DateRangeParams) ([]database.GetSalesSummaryRow, error)
	GetTopItems(ctx context.Context, arg database.GetTopItemsParams) ([]database.GetTopItemsRow, error)
	GetPaymentSummary(ctx context.Context, arg database.DateRangeParams) ([]database.GetPaymentSummaryRow, error)
}

// ReportHandler handles sales report endpoints. Mounted behind the Admin
// role requirement.
type ReportHandler struct {
	store ReportStore
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(store ReportStore) *ReportHandler {
	return &ReportHandler{store: store}
}

// RegisterRoutes registers report endpoints on the given Chi router.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/daily-sales", h.DailySales)
	r.Get("/sales-summary", h.SalesSummary)
	r.Get("/top-items", h.TopItems)
	r.Get("/payment-summary", h.PaymentSummary)
}

// --- Response types ---

type dailySalesResponse struct {
	Date  string `json:"date"`
	Total string `json:"total"`
}

type salesSummaryRow struct {
	Date        string `json:"date"`
	OrderCount  int64  `json:"order_count"`
	TotalAmount string `json:"total_amount"`
}

type topItemRow struct {
	Name          string `json:"name"`
	TotalQuantity int64  `json:"total_quantity"`
	TotalRevenue  string `json:"total_revenue"`
}

type paymentSummaryRow struct {
	PaymentMethod    string `json:"payment_method"`
	TransactionCount int64  `json:"transaction_count"`
	TotalAmount      string `json:"total_amount"`
}

// --- Handlers ---

// DailySales handles GET /reports/daily-sales. Defaults to today.
func (h *ReportHandler) DailySales(w http.ResponseWriter, r *http.Request) {
	day := time.Now()
	if s := r.URL.Query().Get("date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date format, use YYYY-MM-DD"})
			return
		}
		day = t
	}

	total, err := h.store.GetDailySalesTotal(r.Context(), day)
	if err != nil {
		log.Printf("ERROR: daily sales report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dailySalesResponse{
		Date:  day.Format("2006-01-02"),
		Total: numericToString(total),
	})
}

// SalesSummary handles GET /reports/sales-summary.
func (h *ReportHandler) SalesSummary(w http.ResponseWriter, r *http.Request) {
	params, ok := parseDateRange(w, r)
	if !ok {
		return
	}

	rows, err := h.store.GetSalesSummary(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: sales summary report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]salesSummaryRow, len(rows))
	for i, row := range rows {
		resp[i] = salesSummaryRow{
			Date:        row.SaleDate.Time.Format("2006-01-02"),
			OrderCount:  row.OrderCount,
			TotalAmount: numericToString(row.TotalAmount),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// TopItems handles GET /reports/top-items.
func (h *ReportHandler) TopItems(w http.ResponseWriter, r *http.Request) {
	params, ok := parseDateRange(w, r)
	if !ok {
		return
	}

	limit := 10
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}

	rows, err := h.store.GetTopItems(r.Context(), database.GetTopItemsParams{
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
		Limit:     int32(limit),
	})
	if err != nil {
		log.Printf("ERROR: top items report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]topItemRow, len(rows))
	for i, row := range rows {
		resp[i] = topItemRow{
			Name:          row.Name,
			TotalQuantity: row.TotalQuantity,
			TotalRevenue:  numericToString(row.TotalRevenue),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// PaymentSummary handles GET /reports/payment-summary.
func (h *ReportHandler) PaymentSummary(w http.ResponseWriter, r *http.Request) {
	params, ok := parseDateRange(w, r)
	if !ok {
		return
	}

	rows, err := h.store.GetPaymentSummary(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: payment summary report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]paymentSummaryRow, len(rows))
	for i, row := range rows {
		resp[i] = paymentSummaryRow{
			PaymentMethod:    row.PaymentMethod,
			TransactionCount: row.TransactionCount,
			TotalAmount:      numericToString(row.TotalAmount),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

// parseDateRange reads start_date and end_date query params, defaulting to
// the last 30 days. Writes the error response itself on failure.
func parseDateRange(w http.ResponseWriter, r *http.Request) (database.DateRangeParams, bool) {
	end := time.Now()
	start := end.AddDate(0, 0, -30)

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
			return database.DateRangeParams{}, false
		}
		start = t
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
			return database.DateRangeParams{}, false
		}
		end = t
	}
	if end.Before(start) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end_date must not be before start_date"})
		return database.DateRangeParams{}, false
	}

	return database.DateRangeParams{StartDate: start, EndDate: end}, true
}
