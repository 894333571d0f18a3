package http

import (
	"log/slog"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/payroll-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

// RouterOptions configures the outer HTTP surface.
type RouterOptions struct {
	Logger         *slog.Logger
	AllowedOrigins []string
}

func NewRouter(opts RouterOptions, JWTService jwt.Service, authHandler AuthHandler, payrollHandler PayrollHandler) *chi.Mux {
	r := chi.NewRouter()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService))
			r.Post("/logout", authHandler.Logout)
		})

		r.Route("/payrolls", func(r chi.Router) {
			// Authenticated by a short-lived token in the query string
			r.Get("/events", payrollHandler.Stream)

			// Requires authentication
			r.Group(func(r chi.Router) {
				r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
				r.Use(middleware.AuthRequired(JWTService))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(auth.PermissionPayrollView))
					r.Get("/", payrollHandler.List)
					r.Get("/{id}", payrollHandler.Get)
					r.Post("/events/token", payrollHandler.GetStreamToken)
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(auth.PermissionPayrollManage))
					r.Post("/", payrollHandler.Create)
					r.Post("/monthly", payrollHandler.CreateMonthly)
					r.Post("/{id}/lines", payrollHandler.AddLine)
					r.Post("/{id}/calculate", payrollHandler.Calculate)
					r.Post("/{id}/cancel", payrollHandler.Cancel)
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(auth.PermissionPayrollApprove))
					r.Post("/{id}/approve", payrollHandler.Approve)
					r.Post("/{id}/process", payrollHandler.Process)
					r.Post("/{id}/mark-paid", payrollHandler.MarkAsPaid)
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(auth.PermissionPayrollRun))
					r.Post("/month-end", payrollHandler.RunMonthEnd)
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(auth.PermissionPayrollDelete))
					r.Delete("/{id}", payrollHandler.Delete)
				})
			})
		})
	})

	return r
}
