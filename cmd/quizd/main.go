package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"strings"
	"time"

	"quizsolver-backend/lib/browser"
	"quizsolver-backend/lib/configutil"
	"quizsolver-backend/lib/serviceutil"
	"quizsolver-backend/lib/telemetry"
	"quizsolver-backend/services/intake"
	"quizsolver-backend/services/jobs"
	jobsdb "quizsolver-backend/services/jobs/db"
	"quizsolver-backend/services/notify"
	"quizsolver-backend/services/solver"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	telemetry.InitSlog(*verbose)
	tel, err := telemetry.SetupFromEnv(ctx, "quizd")
	if os.IsNotExist(err) {
		slog.Info("no telemetry.json5 found, exporters disabled")
	} else if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	} else {
		defer tel.Shutdown(context.Background())
		telemetry.InstrumentPerfStats(ctx)
	}

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}

	sessionOpts := browser.Options{}
	if *verbose && cfg.Solver.DebugHttpDir != "" {
		sessionOpts.DebugHttpDir = cfg.Solver.DebugHttpDir
	}
	quizSolver, err := solver.New(solver.Options{
		Email:      cfg.Solver.Email,
		Secret:     cfg.Solver.Secret,
		MaxRuntime: time.Duration(cfg.Solver.MaxSeconds) * time.Second,
		NewSession: func() (browser.Session, error) {
			return browser.NewSession(sessionOpts)
		},
	})
	if err != nil {
		serviceutil.Fatal("init solver", err)
	}

	var store *jobs.Store
	if cfg.Database.File != "" || cfg.Database.Url != "" {
		slog.Info("opening job database...")
		sqlite, err := cfg.Database.OpenDB()
		if err != nil {
			serviceutil.Fatal("open job database", err)
		}
		_, err = sqlite.Exec(jobsdb.Schema)
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			serviceutil.Fatal("apply job schema", err)
		}
		store = jobs.NewStore(sqlite)
	}

	var notifier jobs.Notifier
	if cfg.Smtp.Server != "" {
		notifier = notify.NewMailer(cfg.Smtp)
	}

	registry := jobs.NewRegistry(jobs.Options{
		Store:    store,
		Notifier: notifier,
	})
	service := intake.NewService(intake.Options{
		Secret:   cfg.Solver.Secret,
		Registry: registry,
		Solve:    quizSolver.Run,
	})

	go serviceutil.StartHttpServer(ctx, cfg.Port, service.Handler())
	<-ctx.Done()

	slog.Info("shutting down, draining in-flight jobs...")
	registry.Wait()
}
