package main

import (
	"net/http"

	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/spendwise/spendwise-api/internal/api/middleware"
)

// NewRouter builds the HTTP surface. Protected routes sit behind the
// authenticate middleware; the auth endpoints and health check do not.
func NewRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Public auth endpoints
	mux.HandleFunc("POST /api/auth/register", deps.AuthHandler.Register)
	mux.HandleFunc("POST /api/auth/login", deps.AuthHandler.Login)
	mux.HandleFunc("POST /api/auth/refresh", deps.AuthHandler.Refresh)
	mux.HandleFunc("POST /api/auth/logout", deps.AuthHandler.Logout)

	// Everything below requires a valid access token.
	protected := http.NewServeMux()
	protected.HandleFunc("GET /api/auth/me", deps.AuthHandler.Me)
	protected.HandleFunc("POST /api/auth/change-password", deps.AuthHandler.ChangePassword)

	protected.HandleFunc("POST /api/expenses", deps.ExpenseHandler.Create)
	protected.HandleFunc("GET /api/expenses", deps.ExpenseHandler.List)
	protected.HandleFunc("GET /api/expenses/search", deps.ExpenseHandler.Search)
	protected.HandleFunc("GET /api/expenses/export", deps.ExpenseHandler.Export)
	protected.HandleFunc("GET /api/expenses/{id}", deps.ExpenseHandler.Get)
	protected.HandleFunc("PATCH /api/expenses/{id}", deps.ExpenseHandler.Update)
	protected.HandleFunc("DELETE /api/expenses/{id}", deps.ExpenseHandler.Delete)

	protected.HandleFunc("POST /api/receipts/scan", deps.ReceiptHandler.Scan)
	protected.HandleFunc("GET /api/receipts", deps.ReceiptHandler.List)
	protected.HandleFunc("GET /api/receipts/{id}", deps.ReceiptHandler.Get)
	protected.HandleFunc("DELETE /api/receipts/{id}", deps.ReceiptHandler.Delete)

	protected.HandleFunc("GET /api/insights/forecast", deps.InsightsHandler.Forecast)

	protected.HandleFunc("GET /api/categorization/rules", deps.CategorizationHandler.ListRules)
	protected.HandleFunc("POST /api/categorization/rules", deps.CategorizationHandler.CreateRule)
	protected.HandleFunc("DELETE /api/categorization/rules/{id}", deps.CategorizationHandler.DeleteRule)

	protected.HandleFunc("POST /api/assistant/chat", deps.AssistantHandler.Chat)
	protected.HandleFunc("GET /api/assistant/history", deps.AssistantHandler.History)

	mux.Handle("/api/", middleware.Authenticate(deps.AuthService)(protected))

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{deps.Config.Server.BaseURL, "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	var handler http.Handler = mux
	handler = middleware.RateLimit(
		rate.Limit(deps.Config.Server.RateLimitPerSecond),
		deps.Config.Server.RateLimitBurst,
	)(handler)
	handler = corsMiddleware.Handler(handler)
	handler = middleware.Metrics(deps.Metrics)(handler)
	handler = middleware.Logger(deps.Logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(deps.Logger)(handler)

	return handler
}
