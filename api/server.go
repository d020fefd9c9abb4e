/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/companies/*     Company management, takeovers, compensations
  /api/takeovers/*     Takeover deletion
  /api/compensations/* Compensation deletion
  /api/holidays        Holiday calendar lookup
  /api/reports/*       Hour reports (JSON and XLSX)
  /api/invoices/*      Invoices, payments, dunning
  /api/time-entries/*  Employee clock records

SECURITY NOTE:
  No authentication middleware; the service runs behind the office
  reverse proxy which handles auth.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Company routes
		r.Route("/companies", func(r chi.Router) {
			r.Get("/", h.ListCompanies)
			r.Post("/", h.CreateCompany)
			r.Get("/{id}", h.GetCompany)
			r.Put("/{id}", h.UpdateCompany)
			r.Delete("/{id}", h.DeleteCompany)
			r.Get("/{id}/takeovers", h.ListTakeovers)
			r.Post("/{id}/takeovers", h.CreateTakeover)
			r.Get("/{id}/compensations", h.ListCompensations)
			r.Post("/{id}/compensations", h.CreateCompensation)
		})

		r.Delete("/takeovers/{id}", h.DeleteTakeover)
		r.Delete("/compensations/{id}", h.DeleteCompensation)

		// Holiday routes
		r.Get("/holidays", h.ListHolidays)

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Post("/hours", h.HourReport)
			r.Get("/hours/xlsx", h.HourReportXLSX)
		})

		// Invoice routes
		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", h.ListInvoices)
			r.Post("/", h.CreateInvoice)
			r.Post("/calculate-hours", h.CalculateHours)
			r.Get("/overdue", h.ListOverdueInvoices)
			r.Get("/{id}", h.GetInvoice)
			r.Put("/{id}", h.UpdateInvoice)
			r.Delete("/{id}", h.DeleteInvoice)
			r.Post("/{id}/payments", h.RecordPayment)
			r.Get("/{id}/dunnings", h.ListDunnings)
			r.Post("/{id}/dunnings", h.CreateDunning)
		})

		// Time entry routes
		r.Route("/time-entries", func(r chi.Router) {
			r.Get("/", h.ListTimeEntries)
			r.Post("/", h.CreateTimeEntry)
			r.Post("/{id}/complete", h.CompleteTimeEntry)
			r.Delete("/{id}", h.DeleteTimeEntry)
		})
	})

	// Health check
	r.Get("/health", h.Health)

	return r
}
