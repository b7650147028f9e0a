package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/robfig/cron/v3"

	"github.com/mskim0691/corporate-ai-advisor-sub001/internal"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/repository"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/scheduler"
)

var (
	runOnce  = flag.Bool("run-once", false, "Charge due subscriptions once and exit")
	schedule = flag.String("schedule", "", "Cron schedule for billing runs (default: BILLING_CRON)")
)

func run() error {
	flag.Parse()

	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel, "billing-scheduler")

	if cfg.CronSecret == "" {
		return fmt.Errorf("CRON_SECRET is required for the billing scheduler")
	}

	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(2)

	if err := db.PingContext(context.Background()); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	runner := scheduler.NewBillingRunner(
		scheduler.NewStoreLister(repository.New(db)),
		scheduler.Config{
			BaseURL:     cfg.BaseURL,
			CronSecret:  cfg.CronSecret,
			BatchSize:   cfg.BillingBatchSize,
			Concurrency: cfg.BillingConcurrency,
		},
		nil,
		logger,
	)

	if *runOnce {
		res, err := runner.Run(context.Background())
		if err != nil {
			return fmt.Errorf("billing run failed: %w", err)
		}
		if res.Failed > 0 {
			logger.Warn("billing run had failures", "failed", res.Failed)
		}
		return nil
	}

	spec := cfg.BillingCron
	if *schedule != "" {
		spec = *schedule
	}

	c := cron.New(cron.WithLocation(cfg.Location()))
	if _, err := c.AddFunc(spec, func() {
		logger.Info("starting billing run")
		if _, err := runner.Run(context.Background()); err != nil {
			logger.Error("billing run failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid billing schedule %q: %w", spec, err)
	}

	c.Start()
	logger.Info("Billing scheduler started", "schedule", spec, "timezone", cfg.Timezone, "target", cfg.BaseURL)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down gracefully...")

	<-c.Stop().Done()
	logger.Info("Billing scheduler stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
