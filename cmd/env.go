package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/MisterBeardy/saintcalendar-sub000/internal/notify"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/pipeline"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/resilience"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/source"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/store"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/validator"
	"github.com/MisterBeardy/saintcalendar-sub000/pkg/sheets"
)

func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initSource builds the spreadsheet source: local .xlsx workbooks when a
// workbook path is configured, the remote API otherwise.
func initSource() (source.TabularSource, string, error) {
	if err := cfg.ValidateSource(); err != nil {
		return nil, "", err
	}

	masterID := cfg.Sheets.MasterID
	if cfg.Sheets.WorkbookPath != "" {
		if masterID == "" {
			masterID = "master"
		}
		return source.NewWorkbookSource(cfg.Sheets.WorkbookPath, masterID), masterID, nil
	}

	client := sheets.NewClient(cfg.Sheets.APIKey,
		sheets.WithBaseURL(cfg.Sheets.BaseURL),
		sheets.WithTimeout(time.Duration(cfg.Sheets.TimeoutSecs)*time.Second),
	)
	return source.NewSheetsSource(client), masterID, nil
}

func scanPolicy() resilience.Policy {
	p := resilience.DefaultPolicy()
	if cfg.Scan.MaxAttempts > 0 {
		p.MaxAttempts = cfg.Scan.MaxAttempts
	}
	if cfg.Scan.BaseDelayMS > 0 {
		p.BaseDelay = time.Duration(cfg.Scan.BaseDelayMS) * time.Millisecond
	}
	if cfg.Scan.MaxDelayMS > 0 {
		p.MaxDelay = time.Duration(cfg.Scan.MaxDelayMS) * time.Millisecond
	}
	if cfg.Scan.BackoffMultiplier > 0 {
		p.Multiplier = cfg.Scan.BackoffMultiplier
	}
	return p
}

func loadRules() (validator.Rules, error) {
	if cfg.Validate.RulesPath == "" {
		return validator.DefaultRules(), nil
	}
	return validator.LoadRules(cfg.Validate.RulesPath)
}

// buildPipeline assembles a pipeline from the loaded configuration. Store
// may be nil for scan-only and validate-only commands.
func buildPipeline(st store.Store) (*pipeline.Pipeline, error) {
	src, masterID, err := initSource()
	if err != nil {
		return nil, err
	}

	rules, err := loadRules()
	if err != nil {
		return nil, err
	}

	var notifier *notify.Notifier
	if cfg.Notify.URL != "" {
		retry := resilience.DefaultPolicy()
		if cfg.Notify.MaxAttempts > 0 {
			retry.MaxAttempts = cfg.Notify.MaxAttempts
		}
		notifier = notify.New(cfg.Notify.URL,
			notify.WithRetryPolicy(retry),
			notify.WithWait(time.Duration(cfg.Notify.WaitSecs)*time.Second),
		)
	}

	return pipeline.New(pipeline.Config{
		Source:        src,
		Store:         st,
		Notifier:      notifier,
		MasterID:      masterID,
		Rules:         rules,
		Retry:         scanPolicy(),
		LocationDelay: cfg.Scan.LocationDelay(),
	}), nil
}
