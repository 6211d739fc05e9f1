package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"life-os/internal/bot"
	"life-os/internal/calendar"
	"life-os/internal/config"
	"life-os/internal/extract"
	"life-os/internal/metrics"
	"life-os/internal/repository"
	"life-os/internal/service"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	location *time.Location
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	db       *gorm.DB
	workbook repository.Workbook
	store    *repository.CaptureStore
	query    *repository.Query
	calendar service.CalendarProvider
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &app{
		cfg:      cfg,
		logger:   logger,
		location: loc,
		registry: reg,
		metrics:  metrics.MustNew(reg),
	}

	var wb repository.Workbook
	switch cfg.Store.Backend {
	case "sheets":
		sheets, err := repository.NewSheetsWorkbook(ctx, cfg.Store.SheetID, cfg.Store.CredentialsFile)
		if err != nil {
			return nil, err
		}
		wb = sheets
	default:
		db, err := repository.NewDB(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("db: %w", err)
		}
		a.db = db
		wb = repository.NewSQLiteWorkbook(db)
	}
	a.workbook = repository.NewRetryingWorkbook(wb, cfg.Store.MaxRetries, cfg.Store.RetryInitial)
	a.store = repository.NewCaptureStore(a.workbook, logger)
	a.query = repository.NewQuery(a.workbook, logger)

	switch cfg.Calendar.Backend {
	case "google":
		gc, err := calendar.NewGoogleCalendar(ctx, cfg.Calendar.CalendarID, cfg.Calendar.CredentialsFile)
		if err != nil {
			a.close()
			return nil, err
		}
		a.calendar = gc
	case "local":
		if a.db == nil {
			a.close()
			return nil, errors.New("local calendar needs the sqlite store")
		}
		a.calendar = calendar.NewLocalCalendar(a.db)
	}

	logger.Info("store ready",
		zap.String("store", cfg.Store.Backend),
		zap.String("calendar", cfg.Calendar.Backend),
		zap.String("timezone", loc.String()))
	return a, nil
}

func (a *app) close() {
	if a.db == nil {
		return
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (a *app) processor() (*service.Processor, error) {
	if err := a.cfg.RequireAI(); err != nil {
		return nil, err
	}
	completer, err := extract.NewCompleter(extract.ClientConfig{
		Provider: a.cfg.AI.Provider,
		APIKey:   a.cfg.AI.APIKey,
		Model:    a.cfg.AI.Model,
		BaseURL:  a.cfg.AI.BaseURL,
		Timeout:  a.cfg.AI.Timeout,
	})
	if err != nil {
		return nil, err
	}
	extractor := extract.NewExtractor(completer,
		extract.WithJSONRepair(a.cfg.AI.RepairJSON),
		extract.WithLogger(a.logger))

	return service.NewProcessor(service.ProcessorDeps{
		Store:     a.store,
		Extractor: extractor,
		Calendar:  a.calendar,
		Metrics:   a.metrics,
		Logger:    a.logger,
	}, service.Options{
		MaxRetries: a.cfg.Processor.MaxRetries,
		RetryDelay: a.cfg.Processor.RetryDelay,
		Location:   a.location,
	}), nil
}

func (a *app) briefs() *service.BriefService {
	return service.NewBriefService(a.query, a.logger)
}

func (a *app) tasks() *service.TaskService {
	return service.NewTaskService(a.store, a.calendar, a.metrics, a.logger)
}

// telegram returns nil when no bot token is configured.
func (a *app) telegram(deps bot.Deps) (*bot.Bot, error) {
	if a.cfg.Telegram.Token == "" {
		return nil, nil
	}
	return bot.New(a.cfg.Telegram.Token, deps, a.cfg.Telegram.AllowedChats, a.location, a.logger)
}

func (a *app) today() time.Time {
	return time.Now().In(a.location)
}
