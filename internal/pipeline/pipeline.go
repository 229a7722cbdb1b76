// Package pipeline orchestrates the four import phases: master scan,
// detail scan, validation, and transactional import, with per-phase
// bookkeeping persisted alongside the run.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/MisterBeardy/saintcalendar-sub000/internal/importer"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/model"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/notify"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/progress"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/resilience"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/scanner"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/source"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/store"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/validator"
)

// ErrGateFailed aborts a run whose validation results fall below the
// configured thresholds; nothing is written in that case.
var ErrGateFailed = eris.New("pipeline: validation gate failed")

// Pipeline wires the phases together.
type Pipeline struct {
	src           source.TabularSource
	store         store.Store
	notifier      *notify.Notifier
	masterID      string
	rules         validator.Rules
	retry         resilience.Policy
	locationDelay time.Duration
}

// Config carries the pipeline's dependencies. Store may be nil for
// scan-only and validate-only invocations; Notifier may be nil when no
// downstream endpoint is configured.
type Config struct {
	Source        source.TabularSource
	Store         store.Store
	Notifier      *notify.Notifier
	MasterID      string
	Rules         validator.Rules
	Retry         resilience.Policy
	LocationDelay time.Duration
}

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		src:           cfg.Source,
		store:         cfg.Store,
		notifier:      cfg.Notifier,
		masterID:      cfg.MasterID,
		rules:         cfg.Rules,
		retry:         cfg.Retry,
		locationDelay: cfg.LocationDelay,
	}
}

// Scan runs phases 1 and 2 without touching the store: the master index
// partition scan, then the per-location detail scan.
func (p *Pipeline) Scan(ctx context.Context, tracker *progress.Tracker) (*model.PipelineRun, error) {
	run := model.NewPipelineRun()

	master := scanner.NewMasterScanner(p.src, p.masterID)
	if _, err := master.Scan(ctx, run, tracker); err != nil {
		return run, eris.Wrap(err, "pipeline: master scan")
	}

	details := scanner.NewDetailScanner(p.src, p.retry, p.locationDelay)
	if _, err := details.Scan(ctx, run, tracker); err != nil {
		return run, eris.Wrap(err, "pipeline: detail scan")
	}

	return run, nil
}

// Validate runs phases 1 through 3, returning the scanned run and the
// validation result without importing anything.
func (p *Pipeline) Validate(ctx context.Context, tracker *progress.Tracker) (*model.PipelineRun, *validator.Result, error) {
	run, err := p.Scan(ctx, tracker)
	if err != nil {
		return run, nil, err
	}
	res := validator.New(p.rules).Validate(run)
	return run, res, nil
}

// Run executes the full pipeline with run and phase bookkeeping. The
// import phase only executes when the validation gate passes; the
// downstream notification runs best-effort after a successful commit.
func (p *Pipeline) Run(ctx context.Context, tracker *progress.Tracker) (*model.PipelineRun, error) {
	if p.store == nil {
		return nil, eris.New("pipeline: run requires a store")
	}

	log := zap.L().With(zap.String("component", "pipeline"))

	dbRun, err := p.store.CreateRun(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	run := model.NewPipelineRun()
	run.ID = dbRun.ID

	setStatus := func(status model.RunStatus) {
		if err := p.store.UpdateRunStatus(ctx, run.ID, status); err != nil {
			log.Warn("status update failed", zap.Error(err))
		}
	}

	// errStatus is what the phase row records when fn errors: failed for
	// the phases that abort the run, warning for best-effort ones.
	trackPhase := func(name string, errStatus model.PhaseStatus, fn func() error) error {
		phase, phaseErr := p.store.CreatePhase(ctx, run.ID, name)
		if phaseErr != nil {
			log.Warn("phase create failed", zap.String("phase", name), zap.Error(phaseErr))
		}

		start := time.Now()
		fnErr := fn()
		duration := time.Since(start)

		status := model.PhaseStatusComplete
		errMsg := ""
		if fnErr != nil {
			status = errStatus
			errMsg = fnErr.Error()
			if errStatus == model.PhaseStatusFailed {
				log.Error("phase failed", zap.String("phase", name), zap.Duration("duration", duration), zap.Error(fnErr))
			} else {
				log.Warn("phase incomplete", zap.String("phase", name), zap.Duration("duration", duration), zap.Error(fnErr))
			}
		} else {
			log.Info("phase complete", zap.String("phase", name), zap.Duration("duration", duration))
		}

		if phase != nil {
			if err := p.store.CompletePhase(ctx, phase.ID, status, duration, errMsg); err != nil {
				log.Warn("phase completion not recorded", zap.String("phase", name), zap.Error(err))
			}
		}
		return fnErr
	}

	fail := func(err error) (*model.PipelineRun, error) {
		setStatus(model.RunStatusFailed)
		return run, err
	}

	setStatus(model.RunStatusScanning)
	if err := trackPhase("master_scan", model.PhaseStatusFailed, func() error {
		_, err := scanner.NewMasterScanner(p.src, p.masterID).Scan(ctx, run, tracker)
		return err
	}); err != nil {
		return fail(eris.Wrap(err, "pipeline: master scan"))
	}

	if err := trackPhase("detail_scan", model.PhaseStatusFailed, func() error {
		_, err := scanner.NewDetailScanner(p.src, p.retry, p.locationDelay).Scan(ctx, run, tracker)
		return err
	}); err != nil {
		return fail(eris.Wrap(err, "pipeline: detail scan"))
	}

	setStatus(model.RunStatusValidating)
	var res *validator.Result
	if err := trackPhase("validate", model.PhaseStatusFailed, func() error {
		res = validator.New(p.rules).Validate(run)
		if !res.Passed {
			return eris.Wrapf(ErrGateFailed, "quality %.2f, error rate %.2f", res.Score, res.ErrorRate)
		}
		return nil
	}); err != nil {
		p.saveSummary(ctx, run, res, tracker, model.RunStatusFailed)
		return run, err
	}

	setStatus(model.RunStatusImporting)
	if err := trackPhase("import", model.PhaseStatusFailed, func() error {
		_, err := importer.New(p.store).Import(ctx, run, res)
		return err
	}); err != nil {
		p.saveSummary(ctx, run, res, tracker, model.RunStatusFailed)
		return run, eris.Wrap(err, "pipeline: import")
	}

	if p.notifier != nil {
		// Best effort: a failed or still-pending refresh never fails the
		// run, the import is already committed. Its phase row records a
		// warning rather than a failure.
		trackPhase("notify", model.PhaseStatusWarning, func() error { //nolint:errcheck
			updated, err := p.notifier.Notify(ctx)
			if err != nil {
				return err
			}
			log.Info("downstream refreshed", zap.Int("updated", updated))
			return nil
		})
	}

	p.saveSummary(ctx, run, res, tracker, model.RunStatusComplete)
	return run, nil
}

func (p *Pipeline) saveSummary(ctx context.Context, run *model.PipelineRun, res *validator.Result, tracker *progress.Tracker, status model.RunStatus) {
	summary := BuildSummary(run, res, tracker)
	if err := p.store.UpdateRunSummary(ctx, run.ID, status, summary); err != nil {
		zap.L().Warn("run summary not recorded", zap.String("run", run.ID), zap.Error(err))
	}
}

// BuildSummary condenses a run into its persisted digest.
func BuildSummary(run *model.PipelineRun, res *validator.Result, tracker *progress.Tracker) *model.RunSummary {
	s := &model.RunSummary{
		LocationsTotal: len(run.Locations()),
		LocationsValid: len(run.ValidLocations()),
		Saints:         len(run.Saints),
		Historical:     len(run.Historical),
		Milestones:     len(run.Milestones),
	}
	if tracker != nil {
		s.Errors = len(tracker.Errors())
		s.Warnings = len(tracker.Warnings())
	}
	if res != nil {
		s.QualityScore = res.Score
		s.GatePassed = res.Passed
		s.Errors += res.Report.ErrorCount()
		s.Warnings += res.Report.WarningCount()
	}
	if run.Outcome != nil {
		s.Imported = run.Outcome.TotalImported()
		s.Skipped = run.Outcome.TotalSkipped()
	}
	return s
}
