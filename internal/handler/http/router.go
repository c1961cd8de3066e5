package http

import (
	"log/slog"

	"github.com/cmlabs-hris/hris-payroll-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterOptions struct {
	Logger         *slog.Logger
	AllowedOrigins []string
}

func NewRouter(opts RouterOptions, JWTService jwt.Service, payrollHandler PayrollHandler, attendanceHandler AttendanceHandler) *chi.Mux {
	r := chi.NewRouter()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"Link", "Content-Disposition", middleware.RequestIDHeader},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))
			r.Use(middleware.RequireCompany)

			r.Route("/attendances", func(r chi.Router) {
				r.Get("/", attendanceHandler.List)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", attendanceHandler.Get)
					r.Post("/approve", attendanceHandler.Approve)
					r.Post("/reject", attendanceHandler.Reject)
				})
			})

			r.Route("/payroll", func(r chi.Router) {
				r.Route("/periods", func(r chi.Router) {
					r.Get("/", payrollHandler.ListPeriods)
					r.Post("/resolve", payrollHandler.ResolvePeriod)
					r.Get("/{id}", payrollHandler.GetPeriod)
				})

				r.Route("/runs", func(r chi.Router) {
					r.Get("/", payrollHandler.ListRuns)
					r.Post("/", payrollHandler.CreateRun)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", payrollHandler.GetRun)
						r.Post("/approve", payrollHandler.ApproveRun)
						r.Post("/process", payrollHandler.ProcessRun)
						r.Post("/pay", payrollHandler.MarkRunPaid)
						r.Post("/cancel", payrollHandler.CancelRun)
					})
				})

				r.Route("/entries", func(r chi.Router) {
					r.Get("/", payrollHandler.ListEntries)
					r.Post("/", payrollHandler.CreateEntry)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", payrollHandler.GetEntry)
						r.Put("/", payrollHandler.UpdateEntry)
						r.Delete("/", payrollHandler.DeleteEntry)
						r.Post("/submit", payrollHandler.SubmitEntry)
						r.Post("/approve", payrollHandler.ApproveEntry)
						r.Post("/reject", payrollHandler.RejectEntry)
						r.Post("/lock", payrollHandler.LockEntry)
						r.Post("/unlock", payrollHandler.UnlockEntry)
						r.Get("/timesheets", payrollHandler.GetEntryTimesheets)
						r.Get("/payslip", payrollHandler.DownloadPayslip)
					})
				})

				r.Route("/sync", func(r chi.Router) {
					r.Post("/attendance/{attendanceId}", payrollHandler.SyncAttendance)
					r.Post("/employee", payrollHandler.SyncEmployee)
					r.Post("/rejection", payrollHandler.SyncRejection)
				})

				r.Get("/dashboard", payrollHandler.GetDashboard)
				r.Get("/audit-logs", payrollHandler.ListAuditLogs)
			})
		})
	})

	return r
}
