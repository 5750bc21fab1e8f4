package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/sandeepkv93/phantom/internal/config"
	"github.com/sandeepkv93/phantom/internal/jobs"
	"github.com/sandeepkv93/phantom/internal/logging"
	"github.com/sandeepkv93/phantom/internal/metrics"
	"github.com/sandeepkv93/phantom/internal/model"
	"github.com/sandeepkv93/phantom/internal/planner"
	"github.com/sandeepkv93/phantom/internal/scheduler"
	"github.com/sandeepkv93/phantom/internal/storage"
	"github.com/sandeepkv93/phantom/internal/update"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "phantom failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "phantom.yaml", "path to the YAML config file")
	once := flag.String("once", "", "handle one request, print the response as JSON and exit")
	noCron := flag.Bool("no-cron", false, "do not run the background optimizer")
	flag.Parse()

	loaded, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	cfg := config.FromEnv(*loaded)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}

	// The TUI owns the terminal, so interactive runs log to a file.
	var log *zap.Logger
	if *once != "" {
		log, err = logging.New(cfg.LogLevel, cfg.LogFormat)
	} else {
		log, err = logging.ToFile(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	}
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := storage.OpenSQLite(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.UpsertUser(ctx, storage.User{
		ID:                     cfg.Owner,
		Name:                   cfg.OwnerName,
		Timezone:               cfg.Timezone,
		DefaultDurationMinutes: cfg.DefaultDurationMinutes,
	}); err != nil {
		return err
	}
	categories, err := repo.ListCategories(ctx)
	if err != nil {
		return err
	}

	rec := metrics.NewRecorder("phantom")
	p, err := planner.New(repo,
		planner.WithLogger(log),
		planner.WithMetrics(rec),
		planner.WithPriorities(model.NewPriorityTable(categories...)),
		planner.WithHorizon(cfg.Horizon()),
		planner.WithMaxIterations(cfg.MaxIterations),
		planner.WithLocation(cfg.Location()),
		planner.WithStudyConfig(scheduler.StudyConfig{Sessions: cfg.StudySessions, Hour: cfg.StudyHour, Duration: 2 * time.Hour}),
	)
	if err != nil {
		return err
	}

	if *once != "" {
		resp, err := p.HandleUtterance(ctx, *once, cfg.Owner, time.Now())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if !*noCron && cfg.CronEnabled() {
		job, err := jobs.New(p, jobs.Config{
			Spec:     cfg.OptimizeCron,
			Owner:    cfg.Owner,
			Days:     cfg.OptimizeDays,
			Location: cfg.Location(),
		}, jobs.WithLogger(log))
		if err != nil {
			return err
		}
		job.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			job.Stop(stopCtx)
		}()
	}

	program := tea.NewProgram(update.NewModel(update.Deps{
		Planner:  p,
		History:  repo,
		Metrics:  rec,
		Owner:    cfg.Owner,
		Location: cfg.Location(),
	}), tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := program.Run()
	if cfg.Metrics {
		logSnapshot(log, rec)
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return nil
}

func logSnapshot(log *zap.Logger, rec *metrics.Recorder) {
	samples, err := rec.Snapshot()
	if err != nil {
		log.Warn("metrics snapshot failed", zap.Error(err))
		return
	}
	fields := make([]zap.Field, 0, len(samples))
	for _, s := range samples {
		fields = append(fields, zap.Float64(s.Name, s.Value))
	}
	log.Info("session metrics", fields...)
}
