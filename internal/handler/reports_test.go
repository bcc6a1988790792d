package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tandoor-pos/api/internal/database"
	"github.com/tandoor-pos/api/internal/enum"
	"github.com/tandoor-pos/api/internal/handler"
	"github.com/tandoor-pos/api/internal/middleware"
)

type mockReportStore struct {
	getDailySalesTotalFn func(ctx context.Context, day time.Time) (pgtype.Numeric, error)
	getSalesSummaryFn    func(ctx context.Context, arg database.DateRangeParams) ([]database.GetSalesSummaryRow, error)
	getTopItemsFn        func(ctx context.Context, arg database.GetTopItemsParams) ([]database.GetTopItemsRow, error)
	getPaymentSummaryFn  func(ctx context.Context, arg database.DateRangeParams) ([]database.GetPaymentSummaryRow, error)
}

func (m *mockReportStore) GetDailySalesTotal(ctx context.Context, day time.Time) (pgtype.Numeric, error) {
	if m.getDailySalesTotalFn != nil {
		return m.getDailySalesTotalFn(ctx, day)
	}
	return pgtype.Numeric{}, nil
}

func (m *mockReportStore) GetSalesSummary(ctx context.Context, arg database.DateRangeParams) ([]database.GetSalesSummaryRow, error) {
	if m.getSalesSummaryFn != nil {
		return m.getSalesSummaryFn(ctx, arg)
	}
	return []database.GetSalesSummaryRow{}, nil
}

func (m *mockReportStore) GetTopItems(ctx context.Context, arg database.GetTopItemsParams) ([]database.GetTopItemsRow, error) {
	if m.getTopItemsFn != nil {
		return m.getTopItemsFn(ctx, arg)
	}
	return []database.GetTopItemsRow{}, nil
}

func (m *mockReportStore) GetPaymentSummary(ctx context.Context, arg database.DateRangeParams) ([]database.GetPaymentSummaryRow, error) {
	if m.getPaymentSummaryFn != nil {
		return m.getPaymentSummaryFn(ctx, arg)
	}
	return []database.GetPaymentSummaryRow{}, nil
}

func setupReportRouter(store *mockReportStore) *chi.Mux {
	h := handler.NewReportHandler(store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Use(middleware.RequireRole(enum.UserRoleAdmin))
	r.Route("/reports", h.RegisterRoutes)
	return r
}

func TestDailySales_ExplicitDate(t *testing.T) {
	store := &mockReportStore{
		getDailySalesTotalFn: func(ctx context.Context, day time.Time) (pgtype.Numeric, error) {
			if day.Format("2006-01-02") != "2026-08-15" {
				t.Errorf("day: got %s, want 2026-08-15", day.Format("2006-01-02"))
			}
			return testNumeric("1234.50"), nil
		},
	}

	router := setupReportRouter(store)
	rr := doAuthRequest(t, router, "GET", "/reports/daily-sales?date=2026-08-15", nil, adminClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	resp := decodeBody(t, rr)
	if resp["date"] != "2026-08-15" || resp["total"] != "1234.50" {
		t.Errorf("unexpected response: %v", resp)
	}
}

func TestDailySales_NoSalesIsZero(t *testing.T) {
	// COALESCE in the query should already yield 0, but a null numeric must
	// still render as 0.00 rather than erroring.
	router := setupReportRouter(&mockReportStore{})
	rr := doAuthRequest(t, router, "GET", "/reports/daily-sales", nil, adminClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	resp := decodeBody(t, rr)
	if resp["total"] != "0.00" {
		t.Errorf("total: got %v, want 0.00", resp["total"])
	}
}

func TestDailySales_BadDate(t *testing.T) {
	router := setupReportRouter(&mockReportStore{})
	rr := doAuthRequest(t, router, "GET", "/reports/daily-sales?date=15-08-2026", nil, adminClaims())

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
}

func TestSalesSummary_DateRange(t *testing.T) {
	store := &mockReportStore{
		getSalesSummaryFn: func(ctx context.Context, arg database.DateRangeParams) ([]database.GetSalesSummaryRow, error) {
			if arg.StartDate.Format("2006-01-02") != "2026-08-01" {
				t.Errorf("start: got %s", arg.StartDate.Format("2006-01-02"))
			}
			if arg.EndDate.Format("2006-01-02") != "2026-08-28" {
				t.Errorf("end: got %s", arg.EndDate.Format("2006-01-02"))
			}
			return []database.GetSalesSummaryRow{
				{
					SaleDate:    pgtype.Date{Time: arg.StartDate, Valid: true},
					OrderCount:  12,
					TotalAmount: testNumeric("560.00"),
				},
			}, nil
		},
	}

	router := setupReportRouter(store)
	rr := doAuthRequest(t, router, "GET", "/reports/sales-summary?start_date=2026-08-01&end_date=2026-08-28", nil, adminClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp []map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 1 || resp[0]["order_count"] != float64(12) || resp[0]["total_amount"] != "560.00" {
		t.Errorf("unexpected response: %v", resp)
	}
}

func TestSalesSummary_EndBeforeStart(t *testing.T) {
	router := setupReportRouter(&mockReportStore{})
	rr := doAuthRequest(t, router, "GET", "/reports/sales-summary?start_date=2026-08-28&end_date=2026-08-01", nil, adminClaims())

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
}

func TestTopItems_LimitCapped(t *testing.T) {
	store := &mockReportStore{
		getTopItemsFn: func(ctx context.Context, arg database.GetTopItemsParams) ([]database.GetTopItemsRow, error) {
			if arg.Limit != 10 {
				t.Errorf("out-of-range limit must fall back to 10, got %d", arg.Limit)
			}
			return []database.GetTopItemsRow{
				{Name: "Paneer Tikka", TotalQuantity: 42, TotalRevenue: testNumeric("2100.00")},
			}, nil
		},
	}

	router := setupReportRouter(store)
	rr := doAuthRequest(t, router, "GET", "/reports/top-items?limit=5000", nil, adminClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp []map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 1 || resp[0]["total_quantity"] != float64(42) {
		t.Errorf("unexpected response: %v", resp)
	}
}

func TestPaymentSummary(t *testing.T) {
	store := &mockReportStore{
		getPaymentSummaryFn: func(ctx context.Context, arg database.DateRangeParams) ([]database.GetPaymentSummaryRow, error) {
			return []database.GetPaymentSummaryRow{
				{PaymentMethod: enum.PaymentMethodCash, TransactionCount: 8, TotalAmount: testNumeric("400.00")},
				{PaymentMethod: enum.PaymentMethodUPI, TransactionCount: 3, TotalAmount: testNumeric("150.00")},
			}, nil
		},
	}

	router := setupReportRouter(store)
	rr := doAuthRequest(t, router, "GET", "/reports/payment-summary", nil, adminClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp []map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 2 || resp[0]["payment_method"] != enum.PaymentMethodCash {
		t.Errorf("unexpected response: %v", resp)
	}
}

func TestReports_WaiterForbidden(t *testing.T) {
	router := setupReportRouter(&mockReportStore{})
	rr := doAuthRequest(t, router, "GET", "/reports/daily-sales", nil, waiterClaims())

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want 403", rr.Code)
	}
}
