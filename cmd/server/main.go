package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"activity-monitor/internal/config"
	"activity-monitor/internal/handlers"
	"activity-monitor/internal/logging"
	"activity-monitor/internal/retention"
	"activity-monitor/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	envLoaded := config.LoadDotEnv()
	cfg, err := config.LoadServer()
	if err != nil {
		return err
	}
	if err := logging.Initialize(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}
	if !envLoaded {
		logging.Logger.Info("no .env file found, using environment and defaults")
	}

	st, err := store.Open(cfg.DBName, store.Options{Location: cfg.Location, Debug: cfg.DBDebug})
	if err != nil {
		return err
	}
	defer st.Close()

	var sched *retention.Scheduler
	if cfg.RetentionSchedule != "" {
		if sched, err = retention.New(st, cfg.RetentionSchedule, cfg.RetentionDays, cfg.Location); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           handlers.NewRouter(handlers.NewMonitorHandler(st, cfg.RetentionDays)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logging.Logger.Info("server listening", "addr", cfg.Port, "db", cfg.DBName, "timezone", cfg.Location.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logging.Logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if sched != nil {
		g.Go(func() error { return sched.Run(ctx) })
	}

	return g.Wait()
}
