package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tandoor-pos/api/internal/config"
	"github.com/tandoor-pos/api/internal/database"
	"github.com/tandoor-pos/api/internal/enum"
	"github.com/tandoor-pos/api/internal/handler"
	mw "github.com/tandoor-pos/api/internal/middleware"
	"github.com/tandoor-pos/api/internal/service"
	"github.com/tandoor-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	newStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, queries, newStore)

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// Customer self-service routes (public, no auth)
	publicHandler := handler.NewPublicHandler(queries, orderService, hub)
	r.Route("/public", publicHandler.RegisterRoutes)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/notifications", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		adminOnly := mw.RequireRole(enum.UserRoleAdmin)

		orderHandler := handler.NewOrderHandler(orderService, queries)
		paymentHandler := handler.NewPaymentHandler(orderService, queries)

		r.Route("/orders", func(r chi.Router) {
			orderHandler.RegisterRoutes(r)
			paymentHandler.RegisterOrderRoutes(r)
			r.With(adminOnly).Delete("/{id}", orderHandler.Delete)
		})
		paymentHandler.RegisterRoutes(r)

		menuHandler := handler.NewMenuHandler(queries)
		r.Route("/menu", func(r chi.Router) {
			r.Get("/", menuHandler.List)
			r.Get("/{id}", menuHandler.Get)
			r.With(adminOnly).Post("/", menuHandler.Create)
			r.With(adminOnly).Put("/{id}", menuHandler.Update)
			r.With(adminOnly).Delete("/{id}", menuHandler.Delete)
			r.With(adminOnly).Patch("/{id}/stock", menuHandler.AdjustStock)
		})

		discountHandler := handler.NewDiscountHandler(queries)
		r.Route("/discounts", func(r chi.Router) {
			r.Get("/", discountHandler.List)
			r.With(adminOnly).Post("/", discountHandler.Create)
			r.With(adminOnly).Put("/{id}", discountHandler.Update)
			r.With(adminOnly).Delete("/{id}", discountHandler.Delete)
		})

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(adminOnly)

			userHandler := handler.NewUserHandler(queries)
			r.Route("/users", userHandler.RegisterRoutes)

			categoryHandler := handler.NewCategoryHandler(queries)
			r.Route("/categories", categoryHandler.RegisterRoutes)

			reportHandler := handler.NewReportHandler(queries)
			r.Route("/reports", reportHandler.RegisterRoutes)
		})
	})

	return r
}
