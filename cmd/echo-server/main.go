package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mrwolf/echo-server/internal/api"
	"github.com/mrwolf/echo-server/internal/archive"
	"github.com/mrwolf/echo-server/internal/config"
	"github.com/mrwolf/echo-server/internal/db"
	"github.com/mrwolf/echo-server/internal/logging"
	"github.com/mrwolf/echo-server/internal/pipeline"
	"github.com/mrwolf/echo-server/internal/scheduler"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("failed to load config", "err", err)
	}

	if err := logging.Init(cfg.LogLevel, cfg.LogFormat, os.Stderr); err != nil {
		logging.Fatal("failed to configure logging", "err", err)
	}
	logging.Info("starting echo-server", "port", cfg.Port, "timezone", cfg.Timezone)

	// Open database
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logging.Fatal("failed to open database", "path", cfg.DBPath, "err", err)
	}

	clock := clockwork.NewRealClock()
	p := pipeline.New(database, clock, pipeline.Config{
		DailyLookbackDays:   cfg.DailyLookbackDays,
		WeeklyLookbackDays:  cfg.WeeklyLookbackDays,
		TriggerLookbackDays: cfg.TriggerLookbackDays,
	})

	// Create router
	router := api.NewRouter(cfg, database, p)

	// Create and start scheduler
	var sched *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		var summaries scheduler.SummaryArchiver
		if cfg.ArchiveDir != "" {
			arch, err := archive.New(cfg.ArchiveDir)
			if err != nil {
				logging.Fatal("failed to open summary archive", "dir", cfg.ArchiveDir, "err", err)
			}
			summaries = arch
			logging.Info("archiving weekly summaries", "dir", arch.BasePath())
		}

		sched, err = scheduler.New(database, p, scheduler.Config{
			Timezone:           cfg.Timezone,
			Owners:             cfg.Owners(),
			DailyLookbackDays:  cfg.DailyLookbackDays,
			WeeklyLookbackDays: cfg.WeeklyLookbackDays,
			Clock:              clock,
			Archive:            summaries,
		})
		if err != nil {
			logging.Fatal("failed to create scheduler", "err", err)
		}
		if err := sched.Start(); err != nil {
			logging.Fatal("failed to start scheduler", "err", err)
		}
		logging.Info("scheduler started", "jobs", sched.Jobs())

		if cfg.RecomputeOnStart {
			go func() {
				for _, owner := range cfg.Owners() {
					if err := sched.RecomputeNow(owner); err != nil {
						logging.Warn("startup recompute failed", "owner", owner, "err", err)
					}
				}
			}()
		}
	} else {
		logging.Warn("scheduler disabled, aggregates refresh only on demand")
	}

	// Start server
	addr := ":" + cfg.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logging.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal("server error", "err", err)
		}
	}()

	<-done
	logging.Info("shutting down gracefully")

	// Give ongoing requests 10 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logging.Error("http server shutdown error", "err", err)
	}

	if sched != nil {
		logging.Info("stopping scheduler")
		if err := sched.Stop(); err != nil {
			logging.Error("scheduler shutdown error", "err", err)
		}
	}

	logging.Info("closing database")
	if err := database.Close(); err != nil {
		logging.Error("database close error", "err", err)
	}

	logging.Info("shutdown complete")
}
