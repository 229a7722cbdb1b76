// Package importer persists the validated collections of a run inside a
// single transaction. Every entity is looked up by natural key first, so
// re-running an import over unchanged sheets produces skips rather than
// duplicates, and any write failure rolls the whole run back.
package importer

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/MisterBeardy/saintcalendar-sub000/internal/model"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/store"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/validator"
)

// stickerExtensions lists the accepted sticker media file types.
var stickerExtensions = map[string]bool{
	".png": true,
	".jpg": true,
	".svg": true,
}

// Importer writes a run's records through the store.
type Importer struct {
	store store.Store
}

// New creates an importer over the given store.
func New(st store.Store) *Importer {
	return &Importer{store: st}
}

// Import persists all valid records of the run. On any write error the
// transaction is rolled back and the outcome reports failure; validation
// skips never abort the transaction.
func (i *Importer) Import(ctx context.Context, run *model.PipelineRun, res *validator.Result) (*model.ImportOutcome, error) {
	log := zap.L().With(zap.String("component", "importer"))
	outcome := &model.ImportOutcome{}
	run.Outcome = outcome

	tx, err := i.store.Begin(ctx)
	if err != nil {
		outcome.Error = err.Error()
		return outcome, eris.Wrap(err, "importer: begin transaction")
	}

	if err := i.importAll(ctx, tx, run, res, outcome); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			log.Error("rollback failed", zap.Error(rbErr))
		}
		outcome.Success = false
		outcome.Error = err.Error()
		return outcome, err
	}

	if err := tx.Commit(ctx); err != nil {
		outcome.Success = false
		outcome.Error = err.Error()
		return outcome, eris.Wrap(err, "importer: commit")
	}

	outcome.Success = true
	log.Info("import committed",
		zap.Int("imported", outcome.TotalImported()),
		zap.Int("skipped", outcome.TotalSkipped()),
		zap.Int("events", outcome.EventsCreated),
	)
	return outcome, nil
}

// abort records the entity whose write broke the transaction before the
// error propagates up and rolls everything back.
func abort(outcome *model.ImportOutcome, counter *model.EntityOutcome, kind, key string, err error) error {
	if counter != nil {
		counter.Failed++
	}
	outcome.Fail(kind, key, err.Error())
	return err
}

func (i *Importer) importAll(ctx context.Context, tx store.TxStore, run *model.PipelineRun, res *validator.Result, outcome *model.ImportOutcome) error {
	locationIDs, err := i.importLocations(ctx, tx, run, res, outcome)
	if err != nil {
		return err
	}

	saintIDs, saints, err := i.importSaints(ctx, tx, run, res, outcome, locationIDs)
	if err != nil {
		return err
	}

	stickerIDs, err := i.importStickers(ctx, tx, run, res, outcome)
	if err != nil {
		return err
	}

	if err := i.importHistorical(ctx, tx, run, res, outcome, saintIDs, saints, stickerIDs); err != nil {
		return err
	}

	if err := i.importMilestones(ctx, tx, run, res, outcome, saintIDs, saints, stickerIDs); err != nil {
		return err
	}

	return tx.UpdateSaintTotals(ctx)
}

func (i *Importer) importLocations(ctx context.Context, tx store.TxStore, run *model.PipelineRun, res *validator.Result, outcome *model.ImportOutcome) (map[string]string, error) {
	ids := make(map[string]string)

	for _, loc := range run.Locations() {
		if !loc.IsValid || !res.RecordValid(loc) {
			outcome.Locations.Skipped++
			outcome.Skip("location", loc.Label(), "failed validation")
			continue
		}

		existing, err := tx.FindLocationBySourceID(ctx, loc.SourceID)
		if err != nil {
			return nil, abort(outcome, &outcome.Locations, "location", loc.Label(), err)
		}
		if existing != "" {
			loc.ID = existing
			ids[loc.SourceID] = existing
			outcome.Locations.Skipped++
			outcome.Skip("location", loc.Label(), "already present")
			continue
		}

		id, err := tx.CreateLocation(ctx, loc)
		if err != nil {
			return nil, abort(outcome, &outcome.Locations, "location", loc.Label(), err)
		}
		loc.ID = id
		ids[loc.SourceID] = id
		outcome.Locations.Imported++
	}
	return ids, nil
}

// importSaints writes saints and returns the number-to-id map used by
// dependent records. Skipped (already present) saints still enter the
// map, so their historical and milestone rows import on a re-run.
func (i *Importer) importSaints(ctx context.Context, tx store.TxStore, run *model.PipelineRun, res *validator.Result, outcome *model.ImportOutcome, locationIDs map[string]string) (map[string]string, map[string]*model.SaintRecord, error) {
	ids := make(map[string]string)
	byKey := make(map[string]*model.SaintRecord)

	for _, s := range run.Saints {
		if !res.RecordValid(s) {
			outcome.Saints.Skipped++
			outcome.Skip("saint", s.Label(), "failed validation")
			continue
		}
		locID, ok := locationIDs[s.LocationSourceID]
		if !ok {
			outcome.Saints.Skipped++
			outcome.Skip("saint", s.Label(), "location not imported")
			continue
		}

		key := saintKey(s.LocationSourceID, s.Number)
		existing, err := tx.FindSaint(ctx, locID, s.Number)
		if err != nil {
			return nil, nil, abort(outcome, &outcome.Saints, "saint", s.Label(), err)
		}
		if existing != "" {
			s.ID = existing
			ids[key] = existing
			byKey[key] = s
			outcome.Saints.Skipped++
			outcome.Skip("saint", s.Label(), "already present")
			continue
		}

		id, err := tx.CreateSaint(ctx, s, locID)
		if err != nil {
			return nil, nil, abort(outcome, &outcome.Saints, "saint", s.Label(), err)
		}
		s.ID = id
		ids[key] = id
		byKey[key] = s
		outcome.Saints.Imported++
	}
	return ids, byKey, nil
}

// importStickers deduplicates sticker file names across all historical
// and milestone records before writing, one row per unique file.
func (i *Importer) importStickers(ctx context.Context, tx store.TxStore, run *model.PipelineRun, res *validator.Result, outcome *model.ImportOutcome) (map[string]string, error) {
	ids := make(map[string]string)

	var names []string
	seen := make(map[string]bool)
	collect := func(name string, recValid bool) {
		if name == "" || !recValid || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}
	for _, h := range run.Historical {
		collect(h.Sticker, res.RecordValid(h))
	}
	for _, m := range run.Milestones {
		collect(m.Sticker, res.RecordValid(m))
	}

	for _, name := range names {
		if !stickerExtensions[strings.ToLower(path.Ext(name))] {
			outcome.Stickers.Skipped++
			outcome.Skip("sticker", name, "unsupported file type")
			continue
		}

		existing, err := tx.FindSticker(ctx, name)
		if err != nil {
			return nil, abort(outcome, &outcome.Stickers, "sticker", name, err)
		}
		if existing != "" {
			ids[name] = existing
			outcome.Stickers.Skipped++
			outcome.Skip("sticker", name, "already present")
			continue
		}

		id, err := tx.CreateSticker(ctx, name)
		if err != nil {
			return nil, abort(outcome, &outcome.Stickers, "sticker", name, err)
		}
		ids[name] = id
		outcome.Stickers.Imported++
	}
	return ids, nil
}

func (i *Importer) importHistorical(ctx context.Context, tx store.TxStore, run *model.PipelineRun, res *validator.Result, outcome *model.ImportOutcome, saintIDs map[string]string, saints map[string]*model.SaintRecord, stickerIDs map[string]string) error {
	for _, h := range run.Historical {
		if !res.RecordValid(h) {
			outcome.Historical.Skipped++
			outcome.Skip("historical", h.Label(), "failed validation")
			continue
		}
		key := saintKey(h.LocationSourceID, h.Number)
		saintID, ok := saintIDs[key]
		if !ok {
			outcome.Historical.Skipped++
			outcome.Skip("historical", h.Label(), "saint not imported")
			continue
		}

		existing, err := tx.FindHistorical(ctx, saintID, h.Year)
		if err != nil {
			return abort(outcome, &outcome.Historical, "historical", h.Label(), err)
		}
		if existing != "" {
			h.ID = existing
			outcome.Historical.Skipped++
			outcome.Skip("historical", h.Label(), "already present")
		} else {
			id, err := tx.CreateHistorical(ctx, h, saintID, stickerIDs[h.Sticker])
			if err != nil {
				return abort(outcome, &outcome.Historical, "historical", h.Label(), err)
			}
			h.ID = id
			outcome.Historical.Imported++
		}

		// Materialize the calendar event even when the historical row
		// already existed; earlier imports may predate event derivation.
		if h.EventDate != nil {
			if err := i.createEvent(ctx, tx, h, saints[key], saintID, outcome); err != nil {
				return err
			}
		}
	}
	return nil
}

func (i *Importer) createEvent(ctx context.Context, tx store.TxStore, h *model.HistoricalRecord, saint *model.SaintRecord, saintID string, outcome *model.ImportOutcome) error {
	existing, err := tx.FindEvent(ctx, saintID, *h.EventDate)
	if err != nil {
		return abort(outcome, nil, "event", h.Label(), err)
	}
	if existing != "" {
		return nil
	}

	title := fmt.Sprintf("#%s %d", h.Number, h.Year)
	if saint != nil && saint.SaintName != "" {
		title = fmt.Sprintf("%s %d", saint.SaintName, h.Year)
	}
	if _, err := tx.CreateEvent(ctx, saintID, h.ID, title, *h.EventDate); err != nil {
		return abort(outcome, nil, "event", h.Label(), err)
	}
	outcome.EventsCreated++
	return nil
}

func (i *Importer) importMilestones(ctx context.Context, tx store.TxStore, run *model.PipelineRun, res *validator.Result, outcome *model.ImportOutcome, saintIDs map[string]string, saints map[string]*model.SaintRecord, stickerIDs map[string]string) error {
	for _, m := range run.Milestones {
		if !res.RecordValid(m) {
			outcome.Milestones.Skipped++
			outcome.Skip("milestone", m.Label(), "failed validation")
			continue
		}
		key := saintKey(m.LocationSourceID, m.Number)
		saintID, ok := saintIDs[key]
		if !ok {
			outcome.Milestones.Skipped++
			outcome.Skip("milestone", m.Label(), "saint not imported")
			continue
		}

		existing, err := tx.FindMilestone(ctx, saintID, m.Date, m.Description)
		if err != nil {
			return abort(outcome, &outcome.Milestones, "milestone", m.Label(), err)
		}
		if existing != "" {
			m.ID = existing
			outcome.Milestones.Skipped++
			outcome.Skip("milestone", m.Label(), "already present")
			continue
		}

		m.Count = milestoneCount(saints[key], m)
		id, err := tx.CreateMilestone(ctx, m, saintID, stickerIDs[m.Sticker])
		if err != nil {
			return abort(outcome, &outcome.Milestones, "milestone", m.Label(), err)
		}
		m.ID = id
		outcome.Milestones.Imported++
	}
	return nil
}

// milestoneCount derives the milestone's ordinal from the saint's first
// feast year. Zero when the anchor year is unknown or in the future.
func milestoneCount(saint *model.SaintRecord, m *model.MilestoneRecord) int {
	if saint == nil || saint.FeastYear == 0 {
		return 0
	}
	n := m.Date.Year() - saint.FeastYear
	if n < 0 {
		return 0
	}
	return n
}

func saintKey(locationSourceID, number string) string {
	return locationSourceID + "|" + number
}
