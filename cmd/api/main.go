package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/config"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	appHTTP "github.com/cmlabs-hris/payroll-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/cron"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/events"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/postgresql"
	payrollService "github.com/cmlabs-hris/payroll-backend-go/internal/service/payroll"
	"github.com/go-chi/httplog/v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       parseLevel(cfg.App.LogLevel),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "payroll-manager"),
		slog.String("version", "v1.0.0"),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{MaxConns: cfg.Database.MaxConns})
	if err != nil {
		logger.Error("Error connecting to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Repositories and adapters
	transactor := postgresql.NewTransactor(db)
	payrollRepo := postgresql.NewPayrollRepository(db)
	payrollData := postgresql.NewPayrollDataAdapter(db)

	// Event delivery
	hub := sse.NewHub()
	publishers := events.MultiPublisher{events.NewHubPublisher(hub)}
	switch cfg.Events.Publisher {
	case config.PublisherRedis:
		redisPublisher, err := events.NewRedisPublisher(ctx, cfg.Events.RedisAddr, cfg.Events.RedisChannel)
		if err != nil {
			logger.Error("Error connecting to redis", "error", err)
			os.Exit(1)
		}
		defer redisPublisher.Close()
		publishers = append(publishers, redisPublisher)
	default:
		publishers = append(publishers, events.NewLogPublisher(logger))
	}
	dispatcher := events.NewDispatcher(publishers, logger)

	var outbox payroll.OutboxStore
	var outboxRelay cron.Runner
	if cfg.Events.Delivery == config.DeliveryOutbox {
		outbox = postgresql.NewOutboxStore(db)
		outboxRelay = payrollService.NewOutboxRelay(transactor, outbox, dispatcher.Publisher())
	}

	// Services
	payrollSvc := payrollService.NewPayrollService(transactor, payrollRepo, payrollData, dispatcher, outbox)
	monthEndJob := payrollService.NewMonthEndJob(payrollSvc, payrollData)

	// Scheduler
	var monthEndRunner cron.Runner
	if cfg.Jobs.MonthEndEnabled {
		monthEndRunner = monthEndJob
	}
	scheduler := cron.NewScheduler(ctx, logger)
	cron.NewPayrollJobs(monthEndRunner, cfg.Jobs.MonthEndInterval, outboxRelay, cfg.Jobs.OutboxRelayInterval).RegisterJobs(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	// HTTP
	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	authHandler := appHTTP.NewAuthHandler(JWTService)
	payrollHandler := appHTTP.NewPayrollHandler(payrollSvc, monthEndJob, JWTService, hub)
	router := appHTTP.NewRouter(appHTTP.RouterOptions{
		Logger:         logger,
		AllowedOrigins: cfg.App.CORSAllowedOrigins,
	}, JWTService, authHandler, payrollHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server running", "addr", server.Addr, "event_publisher", cfg.Events.Publisher, "event_delivery", cfg.Events.Delivery)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down", "sse_subscribers", hub.TotalSubscribers())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
