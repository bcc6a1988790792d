//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tandoor-pos/api/internal/config"
	"github.com/tandoor-pos/api/internal/database"
	"github.com/tandoor-pos/api/internal/enum"
	"github.com/tandoor-pos/api/internal/router"
	"github.com/tandoor-pos/api/internal/ws"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
)

// TestIntegrationFlow exercises the full API lifecycle against a real
// PostgreSQL database, with all handlers wired through the router.
func TestIntegrationFlow(t *testing.T) {
	ctx := context.Background()

	pgContainer, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	runMigrations(t, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	cfg := &config.Config{
		Port:        "8081",
		DatabaseURL: connStr,
		JWTSecret:   "integration-test-secret",
	}
	queries := database.New(pool)
	hub := ws.NewHub()
	// NOTE: hub.Run() goroutine leaks on test exit; the hub has no shutdown
	// mechanism. Acceptable for tests.
	go hub.Run()

	r := router.New(cfg, queries, pool, hub)
	server := httptest.NewServer(r)
	defer server.Close()

	// --- 1. Bootstrap admin user (manual DB insert, like the seed tool) ---
	adminID := createAdminUser(t, ctx, pool)

	// --- 2. Login as admin ---
	adminToken := loginAs(t, server, "admin", "password123")

	// --- 3. Create waiter through the API, then log in as them ---
	waiterResp := httpPostJSON(t, server, "/users", map[string]interface{}{
		"name":     "Asha",
		"username": "asha",
		"password": "password123",
		"role":     enum.UserRoleWaiter,
	}, adminToken)
	waiterID := uuid.MustParse(waiterResp["id"].(string))
	waiterToken := loginAs(t, server, "asha", "password123")

	// --- 4. Category and menu item ---
	categoryResp := httpPostJSON(t, server, "/categories", map[string]interface{}{
		"name": "Appetizers",
	}, adminToken)
	categoryID := categoryResp["id"].(string)

	itemResp := httpPostJSON(t, server, "/menu", map[string]interface{}{
		"name":        "Paneer Tikka",
		"price":       "50.00",
		"category_id": categoryID,
		"stock":       10,
	}, adminToken)
	itemID := itemResp["id"].(string)

	// --- 5. Percentage discount ---
	discountResp := httpPostJSON(t, server, "/discounts", map[string]interface{}{
		"name":  "Opening Week",
		"type":  enum.DiscountTypePercentage,
		"value": "10",
	}, adminToken)
	discountID := discountResp["id"].(string)

	// --- 6. Waiter creates an order: 2 x 50.00 minus 10% = 90.00 ---
	orderResp := httpPostJSON(t, server, "/orders", map[string]interface{}{
		"table_number": 4,
		"discount_id":  discountID,
		"items": []map[string]interface{}{
			{"menu_item_id": itemID, "quantity": 2},
		},
	}, waiterToken)
	orderID := orderResp["id"].(string)
	if orderResp["total_price"].(string) != "90.00" {
		t.Fatalf("order total_price: got %s, want 90.00", orderResp["total_price"])
	}
	if orderResp["status"].(string) != enum.OrderStatusPending {
		t.Fatalf("order status: got %s, want Pending", orderResp["status"])
	}

	// --- 7. Stock was reserved at order time ---
	itemAfter := httpGetJSON(t, server, "/menu/"+itemID, waiterToken)
	if itemAfter["stock"].(float64) != 8 {
		t.Fatalf("stock after order: got %v, want 8", itemAfter["stock"])
	}

	// --- 8. Over-ordering the remaining stock fails without side effects ---
	status, _ := httpPostStatus(t, server, "/orders", map[string]interface{}{
		"table_number": 5,
		"items": []map[string]interface{}{
			{"menu_item_id": itemID, "quantity": 9},
		},
	}, waiterToken)
	if status != http.StatusBadRequest {
		t.Fatalf("over-order status: got %d, want 400", status)
	}
	itemUnchanged := httpGetJSON(t, server, "/menu/"+itemID, waiterToken)
	if itemUnchanged["stock"].(float64) != 8 {
		t.Fatalf("stock after failed order: got %v, want 8", itemUnchanged["stock"])
	}

	// --- 9. Pay the order and check the receipt ---
	receipt := httpPostJSON(t, server, "/orders/"+orderID+"/payments", map[string]interface{}{
		"payment_method": enum.PaymentMethodCash,
	}, waiterToken)
	if receipt["total_price"].(string) != "90.00" {
		t.Fatalf("receipt total: got %s, want 90.00", receipt["total_price"])
	}

	// --- 10. A second payment is rejected ---
	status, _ = httpPostStatus(t, server, "/orders/"+orderID+"/payments", map[string]interface{}{
		"payment_method": enum.PaymentMethodCard,
	}, waiterToken)
	if status != http.StatusConflict {
		t.Fatalf("double payment status: got %d, want 409", status)
	}

	orderAfterPay := httpGetJSON(t, server, "/orders/"+orderID, waiterToken)
	if orderAfterPay["status"].(string) != enum.OrderStatusPaid {
		t.Fatalf("order status after payment: got %s, want Paid", orderAfterPay["status"])
	}

	// --- 11. Customer self-order through the public endpoints ---
	publicOrder := httpPostJSON(t, server, "/public/orders", map[string]interface{}{
		"customer_name": "Priya",
		"table_number":  7,
		"items": []map[string]interface{}{
			{"menu_item_id": itemID, "quantity": 1},
		},
	}, "")
	if publicOrder["total_price"].(string) != "50.00" {
		t.Fatalf("public order total: got %s, want 50.00", publicOrder["total_price"])
	}

	status, _ = httpPostStatus(t, server, "/public/call-waiter", map[string]interface{}{
		"table_number": 7,
	}, "")
	if status != http.StatusAccepted {
		t.Fatalf("call-waiter status: got %d, want 202", status)
	}

	// --- 12. Daily sales report reflects only the paid order ---
	report := httpGetJSON(t, server, "/reports/daily-sales", adminToken)
	if report["total"].(string) != "90.00" {
		t.Fatalf("daily sales total: got %s, want 90.00", report["total"])
	}

	// --- 13. Edit the pending public order's cart: 1 -> 2 items ---
	publicOrderID := publicOrder["order_id"].(string)
	edited := httpPutJSON(t, server, "/orders/"+publicOrderID, map[string]interface{}{
		"items": []map[string]interface{}{
			{"menu_item_id": itemID, "quantity": 2},
		},
	}, waiterToken)
	if edited["total_price"].(string) != "100.00" {
		t.Fatalf("edited order total: got %s, want 100.00", edited["total_price"])
	}
	itemAfterEdit := httpGetJSON(t, server, "/menu/"+itemID, waiterToken)
	if itemAfterEdit["stock"].(float64) != 6 {
		// 10 - 2 (paid order) - 1 (public order) + 1 (restored) - 2 (new cart)
		t.Fatalf("stock after cart edit: got %v, want 6", itemAfterEdit["stock"])
	}

	// --- 14. Editing the already-paid order is rejected ---
	status, _ = httpPutStatus(t, server, "/orders/"+orderID, map[string]interface{}{
		"items": []map[string]interface{}{
			{"menu_item_id": itemID, "quantity": 1},
		},
	}, waiterToken)
	if status != http.StatusConflict {
		t.Fatalf("edit paid order status: got %d, want 409", status)
	}

	// --- 15. Retiring a menu item with order history cascades its lines ---
	status = httpDeleteStatus(t, server, "/menu/"+itemID, adminToken)
	if status != http.StatusNoContent {
		t.Fatalf("delete menu item with history: got %d, want 204", status)
	}
	orderAfterDelete := httpGetJSON(t, server, "/orders/"+orderID, waiterToken)
	if orderAfterDelete["total_price"].(string) != "90.00" {
		t.Fatalf("order total after menu delete: got %s, want 90.00", orderAfterDelete["total_price"])
	}

	t.Logf("integration flow passed: container=%s, admin=%s, waiter=%s, order=%s",
		pgContainer.GetContainerID(), adminID, waiterID, orderID)
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		tcpostgres.WithDatabase("pos_test"),
		tcpostgres.WithUsername("pos"),
		tcpostgres.WithPassword("pos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return pgContainer, connStr, cleanup
}

func runMigrations(t *testing.T, connStr string) {
	t.Helper()

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("open db for migrations: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		t.Fatalf("create migrate driver: %v", err)
	}

	// Path relative to this test file's package directory; go test sets cwd
	// to the package directory.
	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"postgres", driver)
	if err != nil {
		t.Fatalf("create migrate instance: %v", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("run migrations: %v", err)
	}
}

func createAdminUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	var id uuid.UUID
	err = pool.QueryRow(ctx,
		`INSERT INTO users (name, username, password_hash, role, party)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		"Administrator", "admin", string(hashedPassword), enum.UserRoleAdmin, enum.DefaultParty,
	).Scan(&id)
	if err != nil {
		t.Fatalf("create admin user: %v", err)
	}
	return id
}

func loginAs(t *testing.T, server *httptest.Server, username, password string) string {
	t.Helper()
	resp := httpPostJSON(t, server, "/auth/login", map[string]interface{}{
		"username": username,
		"password": password,
	}, "")
	token, ok := resp["access_token"].(string)
	if !ok || token == "" {
		t.Fatalf("login failed: no access_token in response: %+v", resp)
	}
	return token
}

// --- HTTP helpers ---

func httpPostJSON(t *testing.T, server *httptest.Server, path string, body map[string]interface{}, token string) map[string]interface{} {
	t.Helper()

	status, result := httpPostStatus(t, server, path, body, token)
	if status < 200 || status >= 300 {
		t.Fatalf("POST %s: status %d, body: %v", path, status, result)
	}
	return result
}

func httpPostStatus(t *testing.T, server *httptest.Server, path string, body map[string]interface{}, token string) (int, map[string]interface{}) {
	t.Helper()

	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	req, err := http.NewRequest("POST", server.URL+path, bytes.NewReader(b))
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	return resp.StatusCode, result
}

func httpPutJSON(t *testing.T, server *httptest.Server, path string, body map[string]interface{}, token string) map[string]interface{} {
	t.Helper()

	status, result := httpPutStatus(t, server, path, body, token)
	if status < 200 || status >= 300 {
		t.Fatalf("PUT %s: status %d, body: %v", path, status, result)
	}
	return result
}

func httpPutStatus(t *testing.T, server *httptest.Server, path string, body map[string]interface{}, token string) (int, map[string]interface{}) {
	t.Helper()

	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	req, err := http.NewRequest("PUT", server.URL+path, bytes.NewReader(b))
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	return resp.StatusCode, result
}

func httpDeleteStatus(t *testing.T, server *httptest.Server, path string, token string) int {
	t.Helper()

	req, err := http.NewRequest("DELETE", server.URL+path, nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func httpGetJSON(t *testing.T, server *httptest.Server, path string, token string) map[string]interface{} {
	t.Helper()

	req, err := http.NewRequest("GET", server.URL+path, nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		t.Fatalf("GET %s: status %d, body: %v", path, resp.StatusCode, errResp)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return result
}
