package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/association-treasury/internal/alert"
	"github.com/frahmantamala/association-treasury/internal/loan"
	"github.com/frahmantamala/association-treasury/internal/request"
	"github.com/frahmantamala/association-treasury/internal/transport/middleware"
	"github.com/frahmantamala/association-treasury/internal/transport/swagger"
	"github.com/frahmantamala/association-treasury/internal/treasury"
	"github.com/go-chi/chi"
)

type RouterDeps struct {
	DB              *sql.DB
	Authenticator   *middleware.Authenticator
	RequestHandler  *request.Handler
	LoanHandler     *loan.Handler
	TreasuryHandler *treasury.Handler
	AlertHandler    *alert.Handler
	AllowedOrigins  string
	Logger          *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, deps RouterDeps) {
	healthHandler := NewHealthHandler(deps.DB)

	router.Use(middleware.CORS(deps.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(deps.Logger))
	router.Use(middleware.LoggingMiddleware(deps.Logger))

	// OpenAPI spec and Swagger UI live outside the API prefix
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// All treasury routes require an authenticated member
		r.Group(func(pr chi.Router) {
			pr.Use(deps.Authenticator.Middleware)

			pr.Route("/requests", func(rr chi.Router) {
				rr.Post("/", deps.RequestHandler.CreateRequest)
				rr.Get("/", deps.RequestHandler.ListRequests)
				rr.Get("/{id}", deps.RequestHandler.GetRequest)
				rr.Post("/{id}/decision", deps.RequestHandler.Decide)
				rr.Post("/{id}/cancel", deps.RequestHandler.Cancel)
				rr.Post("/{id}/payment", deps.RequestHandler.ConfirmPayment)
				rr.Post("/{id}/payment/failure", deps.RequestHandler.FailPayment)

				// loan tracking hangs off the originating request
				rr.Post("/{id}/repayments", deps.LoanHandler.RecordRepayment)
				rr.Get("/{id}/repayments", deps.LoanHandler.GetSchedule)
				rr.Post("/{id}/installments", deps.LoanHandler.ScheduleInstallment)
				rr.Get("/{id}/progress", deps.LoanHandler.GetProgress)
			})

			pr.Route("/associations/{id}", func(ar chi.Router) {
				ar.Get("/balance", deps.TreasuryHandler.GetBalance)
				ar.Get("/summary", deps.TreasuryHandler.GetSummary)
				ar.Get("/alerts", deps.AlertHandler.GetAlerts)
			})
		})
	})
}
