package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ssdev/emi-engine/internal/cache"
	"github.com/ssdev/emi-engine/internal/config"
	"github.com/ssdev/emi-engine/internal/handler"
	"github.com/ssdev/emi-engine/internal/repository"
	"github.com/ssdev/emi-engine/internal/service"
	"github.com/ssdev/emi-engine/pkg/clock"
	"github.com/ssdev/emi-engine/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.SetupLogger()

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize repositories
	borrowerRepo := repository.NewBorrowerRepository(db)
	installmentRepo := repository.NewInstallmentRepository(db)

	// Initialize services
	reportCache := cache.NewReportCache(redisClient, cfg.GetReportCacheTTL())
	clk := clock.New()
	scheduleService := service.NewScheduleService(installmentRepo, clk, cfg, reportCache)
	borrowerService := service.NewBorrowerService(borrowerRepo, installmentRepo, scheduleService, reportCache)
	analyticsService := service.NewAnalyticsService(borrowerRepo, installmentRepo, clk, cfg, reportCache)

	borrowerHandler := handler.NewBorrowerHandler(borrowerService, scheduleService, analyticsService)
	installmentHandler := handler.NewInstallmentHandler(scheduleService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Setup routes
	router := setupRoutes(borrowerHandler, installmentHandler, analyticsHandler, healthHandler)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      response.LoggingMiddleware(response.CORSMiddleware(router)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logrus.Infof("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLife)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(
	borrowerHandler *handler.BorrowerHandler,
	installmentHandler *handler.InstallmentHandler,
	analyticsHandler *handler.AnalyticsHandler,
	healthHandler *handler.HealthHandler,
) *mux.Router {
	router := mux.NewRouter()

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/borrowers", borrowerHandler.CreateBorrower).Methods("POST")
	api.HandleFunc("/borrowers", borrowerHandler.ListBorrowers).Methods("GET")
	api.HandleFunc("/borrowers/recent-payers", borrowerHandler.RecentPayers).Methods("GET")
	api.HandleFunc("/borrowers/{phone}", borrowerHandler.GetBorrower).Methods("GET")
	api.HandleFunc("/borrowers/{phone}", borrowerHandler.UpdateBorrower).Methods("PUT")
	api.HandleFunc("/borrowers/{phone}", borrowerHandler.DeleteBorrower).Methods("DELETE")
	api.HandleFunc("/borrowers/{phone}/schedule", borrowerHandler.GetSchedule).Methods("GET")
	api.HandleFunc("/installments/{id}/status", installmentHandler.RecordPayment).Methods("PUT")
	api.HandleFunc("/dashboard", borrowerHandler.Dashboard).Methods("GET")

	api.HandleFunc("/analytics/monthly", analyticsHandler.MonthlyReport).Methods("GET")
	api.HandleFunc("/analytics/borrowers", analyticsHandler.AllBorrowers).Methods("GET")
	api.HandleFunc("/analytics/paid", analyticsHandler.PaidBorrowers).Methods("GET")
	api.HandleFunc("/analytics/pending", analyticsHandler.PendingBorrowers).Methods("GET")
	api.HandleFunc("/analytics/waitlist", analyticsHandler.WaitlistedBorrowers).Methods("GET")

	return router
}
