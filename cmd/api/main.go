package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/config"
	appHTTP "github.com/cmlabs-hris/hris-payroll-go/internal/handler/http"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-payroll-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/hris-payroll-go/internal/service/attendance"
	payrollService "github.com/cmlabs-hris/hris-payroll-go/internal/service/payroll"
	"github.com/go-chi/httplog/v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		slog.Error("Error connecting to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.MigrateOnStart {
		if err := db.Migrate(ctx); err != nil {
			slog.Error("Error running migrations", "error", err)
			os.Exit(1)
		}
	}

	txManager := postgresql.NewTxManager(db)
	payrollRepos := payrollService.Repositories{
		Periods:    postgresql.NewPayPeriodRepository(db),
		Runs:       postgresql.NewPayrollRunRepository(db),
		Entries:    postgresql.NewPayrollEntryRepository(db),
		Timesheets: postgresql.NewTimesheetLinkRepository(db),
		AuditLogs:  postgresql.NewAuditLogRepository(db),
		Counters:   postgresql.NewCounterRepository(db),
	}
	attendanceRepo := postgresql.NewAttendanceRepository(db)

	payrollSvc := payrollService.NewPayrollService(
		txManager,
		payrollRepos,
		postgresql.NewAttendanceSource(db),
		postgresql.NewEmployeeDirectory(db),
		payrollService.Config{
			DefaultDeductionRate:     cfg.Payroll.DefaultDeductionRate,
			OvertimeMultiplier:       cfg.Payroll.OvertimeMultiplier,
			DoubleOvertimeMultiplier: cfg.Payroll.DoubleOvertimeMultiplier,
			HolidayMultiplier:        cfg.Payroll.HolidayMultiplier,
		},
	)
	attendanceSvc := attendanceService.NewAttendanceService(txManager, attendanceRepo, payrollSvc)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	router := appHTTP.NewRouter(
		appHTTP.RouterOptions{Logger: logger, AllowedOrigins: cfg.CORS.AllowedOrigins},
		JWTService,
		appHTTP.NewPayrollHandler(payrollSvc),
		appHTTP.NewAttendanceHandler(attendanceSvc),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
	}()

	slog.Info("Server running", "addr", server.Addr, "env", cfg.App.Env)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.App.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	logFormat := httplog.SchemaECS.Concise(cfg.App.Env != "development")
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
	)
}
