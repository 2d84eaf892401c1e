package router

import (
	"net/http"
	"strings"

	"marketim/internal/handler"
	"marketim/internal/middleware"

	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
func New(
	productHandler *handler.ProductHandler,
	orderHandler *handler.OrderHandler,
	stockHandler *handler.StockHandler,
	settingsHandler *handler.SettingsHandler,
	jwtSecret string,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	requireAuth := middleware.RequireAuth(logger)
	requireAdmin := middleware.RequireAdmin(logger)

	// Health check endpoint (no authentication required)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Public settings snapshot
	mux.HandleFunc("/api/settings", settingsHandler.GetPublic)

	// Product handler function
	productRouteHandler := func(w http.ResponseWriter, r *http.Request) {
		// Check if this is a request for a specific product ID
		if r.URL.Path != "/api/products" && r.URL.Path != "/api/products/" {
			productHandler.GetByID(w, r)
			return
		}
		productHandler.GetAll(w, r)
	}

	// Register product routes (both with and without trailing slash)
	mux.HandleFunc("/api/products", productRouteHandler)
	mux.HandleFunc("/api/products/", productRouteHandler)

	// Order handler function. Creation is open to guests; the customer
	// endpoints under it require authentication.
	orderRouteHandler := func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/orders" || r.URL.Path == "/api/orders/":
			orderHandler.Create(w, r)
		case r.URL.Path == "/api/orders/my":
			requireAuth(http.HandlerFunc(orderHandler.ListMine)).ServeHTTP(w, r)
		case strings.HasSuffix(r.URL.Path, "/cancel"):
			requireAuth(http.HandlerFunc(orderHandler.Cancel)).ServeHTTP(w, r)
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}

	mux.HandleFunc("/api/orders", orderRouteHandler)
	mux.HandleFunc("/api/orders/", orderRouteHandler)

	// Admin order routes
	adminOrderRouteHandler := func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/admin/orders" || r.URL.Path == "/api/admin/orders/":
			orderHandler.AdminList(w, r)
		case r.URL.Path == "/api/admin/orders/stats":
			orderHandler.AdminStats(w, r)
		case strings.HasSuffix(r.URL.Path, "/status"):
			orderHandler.AdminSetStatus(w, r)
		default:
			orderHandler.AdminGet(w, r)
		}
	}

	mux.Handle("/api/admin/orders", requireAdmin(http.HandlerFunc(adminOrderRouteHandler)))
	mux.Handle("/api/admin/orders/", requireAdmin(http.HandlerFunc(adminOrderRouteHandler)))

	// Admin stock routes
	adminStockRouteHandler := func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/admin/stock/adjust":
			stockHandler.Adjust(w, r)
		case strings.HasSuffix(r.URL.Path, "/movements"):
			stockHandler.ListMovements(w, r)
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}

	mux.Handle("/api/admin/stock/", requireAdmin(http.HandlerFunc(adminStockRouteHandler)))

	// Admin settings route
	mux.Handle("/api/admin/settings", requireAdmin(http.HandlerFunc(settingsHandler.Update)))

	// Apply middleware in order: Recovery -> Logging -> CORS -> JWTAuth
	var h http.Handler = mux
	h = middleware.JWTAuth(jwtSecret, logger)(h)
	h = middleware.CORS(h)
	h = middleware.Logging(logger)(h)
	h = middleware.Recovery(logger)(h)

	return h
}
