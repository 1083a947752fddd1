package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/ssdev/emi-engine/internal/cache"
	"github.com/ssdev/emi-engine/internal/config"
	"github.com/ssdev/emi-engine/internal/repository"
	"github.com/ssdev/emi-engine/internal/service"
	"github.com/ssdev/emi-engine/pkg/clock"
)

func main() {
	logrus.Info("Starting reconciliation scheduler...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.SetupLogger()

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	installmentRepo := repository.NewInstallmentRepository(db)
	reportCache := cache.NewReportCache(redisClient, cfg.GetReportCacheTTL())
	scheduleService := service.NewScheduleService(installmentRepo, clock.New(), cfg, reportCache)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		logrus.Fatalf("Invalid scheduler timezone %q: %v", cfg.Scheduler.Timezone, err)
	}

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	setupCronJobs(c, cfg, scheduleService)

	// Start the scheduler
	c.Start()
	logrus.Info("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down scheduler...")
	<-c.Stop().Done()
	logrus.Info("Scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, schedules *service.ScheduleService) {
	// Hourly sweep: re-evaluate the status of every unpaid installment.
	// Statuses only; cumulative pending is handled by the daily reconcile.
	_, err := c.AddFunc(cfg.Scheduler.StatusSweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		updated, err := schedules.SweepStatuses(ctx)
		if err != nil {
			logrus.WithError(err).Error("status sweep failed")
			return
		}
		logrus.WithField("updated", updated).Info("status sweep completed")
	})
	if err != nil {
		logrus.Fatalf("Error scheduling status sweep: %v", err)
	}

	// Daily full reconcile: statuses plus cumulative pending, per borrower.
	_, err = c.AddFunc(cfg.Scheduler.FullReconcileSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
		defer cancel()

		if err := schedules.ReconcileAll(ctx); err != nil {
			logrus.WithError(err).Error("full reconcile failed")
			return
		}
		logrus.Info("full reconcile completed")
	})
	if err != nil {
		logrus.Fatalf("Error scheduling full reconcile: %v", err)
	}

	logrus.Info("Cron jobs scheduled successfully")
}
