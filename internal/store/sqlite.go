package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/MisterBeardy/saintcalendar-sub000/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs local
// development and dry runs where no Postgres is available.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := sdb.Exec(pragma); err != nil {
			sdb.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sdb}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS locations (
	id           TEXT PRIMARY KEY,
	source_id    TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	city         TEXT NOT NULL,
	region       TEXT NOT NULL DEFAULT '',
	address      TEXT NOT NULL,
	status       TEXT NOT NULL,
	opened_on    DATETIME,
	closed_on    DATETIME,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS saints (
	id           TEXT PRIMARY KEY,
	location_id  TEXT NOT NULL REFERENCES locations(id),
	number       TEXT NOT NULL,
	saint_name   TEXT NOT NULL,
	legal_name   TEXT NOT NULL DEFAULT '',
	feast_month  INTEGER NOT NULL,
	feast_day    INTEGER NOT NULL,
	feast_year   INTEGER NOT NULL DEFAULT 0,
	total_events INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (location_id, number)
);

CREATE TABLE IF NOT EXISTS stickers (
	id        TEXT PRIMARY KEY,
	file_name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS historical (
	id         TEXT PRIMARY KEY,
	saint_id   TEXT NOT NULL REFERENCES saints(id),
	year       INTEGER NOT NULL,
	burger     TEXT NOT NULL DEFAULT '',
	tap_beers  TEXT NOT NULL DEFAULT '',
	can_beers  TEXT NOT NULL DEFAULT '',
	event_link TEXT NOT NULL DEFAULT '',
	sticker_id TEXT REFERENCES stickers(id),
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (saint_id, year)
);

CREATE TABLE IF NOT EXISTS events (
	id            TEXT PRIMARY KEY,
	saint_id      TEXT NOT NULL REFERENCES saints(id),
	historical_id TEXT REFERENCES historical(id),
	title         TEXT NOT NULL,
	event_date    DATETIME NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (saint_id, event_date)
);

CREATE TABLE IF NOT EXISTS milestones (
	id          TEXT PRIMARY KEY,
	saint_id    TEXT NOT NULL REFERENCES saints(id),
	date        DATETIME NOT NULL,
	description TEXT NOT NULL,
	count       INTEGER NOT NULL DEFAULT 0,
	sticker_id  TEXT REFERENCES stickers(id),
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (saint_id, date, description)
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'queued',
	summary    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_phases (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	name        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	duration_ms INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_saints_location ON saints(location_id);
CREATE INDEX IF NOT EXISTS idx_historical_saint ON historical(saint_id);
CREATE INDEX IF NOT EXISTS idx_events_saint ON events(saint_id);
CREATE INDEX IF NOT EXISTS idx_events_date ON events(event_date);
CREATE INDEX IF NOT EXISTS idx_milestones_saint ON milestones(saint_id);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_run_phases_run_id ON run_phases(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) UpdateRunSummary(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET summary = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(summaryJSON), string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run summary %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var r model.Run
	var summaryJSON sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, summary, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	).Scan(&r.ID, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}

	if summaryJSON.Valid && summaryJSON.String != "" {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal([]byte(summaryJSON.String), r.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
	}
	return &r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, summary, created_at, updated_at FROM runs WHERE true`
	args := []any{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var summaryJSON sql.NullString

		if err := rows.Scan(&r.ID, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if summaryJSON.Valid && summaryJSON.String != "" {
			r.Summary = &model.RunSummary{}
			if err := json.Unmarshal([]byte(summaryJSON.String), r.Summary); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal summary")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_phases (id, run_id, name, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, runID, name, string(model.PhaseStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert phase for run %s", runID)
	}

	return &model.RunPhase{
		ID:        id,
		RunID:     runID,
		Name:      name,
		Status:    model.PhaseStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) CompletePhase(ctx context.Context, phaseID string, status model.PhaseStatus, duration time.Duration, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE run_phases SET status = ?, duration_ms = ?, error = ? WHERE id = ?`,
		string(status), duration.Milliseconds(), errMsg, phaseID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete phase %s", phaseID)
	}
	return checkRowsAffected(res, "phase", phaseID)
}

func (s *SQLiteStore) ListPhases(ctx context.Context, runID string) ([]model.RunPhase, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, name, status, started_at, duration_ms, error FROM run_phases WHERE run_id = ? ORDER BY started_at`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list phases for run %s", runID)
	}
	defer rows.Close()

	var phases []model.RunPhase
	for rows.Next() {
		var p model.RunPhase
		if err := rows.Scan(&p.ID, &p.RunID, &p.Name, &p.Status, &p.StartedAt, &p.DurationMS, &p.Error); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan phase")
		}
		phases = append(phases, p)
	}
	return phases, eris.Wrap(rows.Err(), "sqlite: list phases iterate")
}

// Begin opens the import transaction.
func (s *SQLiteStore) Begin(ctx context.Context) (TxStore, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin")
	}
	return &sqliteTx{tx: tx}, nil
}

// sqliteTx implements TxStore over one database/sql transaction.
type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Commit(context.Context) error {
	return eris.Wrap(t.tx.Commit(), "sqlite: commit")
}

func (t *sqliteTx) Rollback(context.Context) error {
	err := t.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return eris.Wrap(err, "sqlite: rollback")
	}
	return nil
}

func (t *sqliteTx) findID(ctx context.Context, label, query string, args ...any) (string, error) {
	var id string
	err := t.tx.QueryRowContext(ctx, query, args...).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", eris.Wrapf(err, "sqlite: %s", label)
	}
	return id, nil
}

func (t *sqliteTx) FindLocationBySourceID(ctx context.Context, sourceID string) (string, error) {
	return t.findID(ctx, "find location",
		`SELECT id FROM locations WHERE source_id = ?`, sourceID)
}

func (t *sqliteTx) CreateLocation(ctx context.Context, loc *model.LocationRecord) (string, error) {
	id := uuid.New().String()
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO locations (id, source_id, display_name, city, region, address, status, opened_on, closed_on)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, loc.SourceID, loc.DisplayName, loc.City, loc.Region, loc.Address,
		string(loc.Status), loc.OpenedOn, loc.ClosedOn,
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: insert location %s", loc.Label())
	}
	return id, nil
}

func (t *sqliteTx) FindSaint(ctx context.Context, locationID, number string) (string, error) {
	return t.findID(ctx, "find saint",
		`SELECT id FROM saints WHERE location_id = ? AND number = ?`, locationID, number)
}

func (t *sqliteTx) CreateSaint(ctx context.Context, s *model.SaintRecord, locationID string) (string, error) {
	id := uuid.New().String()
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO saints (id, location_id, number, saint_name, legal_name, feast_month, feast_day, feast_year)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, locationID, s.Number, s.SaintName, s.LegalName,
		int(s.FeastDate.Month), s.FeastDate.Day, s.FeastYear,
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: insert saint %s", s.Label())
	}
	return id, nil
}

func (t *sqliteTx) FindSticker(ctx context.Context, fileName string) (string, error) {
	return t.findID(ctx, "find sticker",
		`SELECT id FROM stickers WHERE file_name = ?`, fileName)
}

func (t *sqliteTx) CreateSticker(ctx context.Context, fileName string) (string, error) {
	id := uuid.New().String()
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO stickers (id, file_name) VALUES (?, ?)`,
		id, fileName,
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: insert sticker %s", fileName)
	}
	return id, nil
}

func (t *sqliteTx) FindHistorical(ctx context.Context, saintID string, year int) (string, error) {
	return t.findID(ctx, "find historical",
		`SELECT id FROM historical WHERE saint_id = ? AND year = ?`, saintID, year)
}

func (t *sqliteTx) CreateHistorical(ctx context.Context, h *model.HistoricalRecord, saintID, stickerID string) (string, error) {
	id := uuid.New().String()
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO historical (id, saint_id, year, burger, tap_beers, can_beers, event_link, sticker_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, saintID, h.Year, h.Burger, h.TapBeers, h.CanBeers, h.EventLink, nullable(stickerID),
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: insert historical %s", h.Label())
	}
	return id, nil
}

func (t *sqliteTx) FindEvent(ctx context.Context, saintID string, date time.Time) (string, error) {
	return t.findID(ctx, "find event",
		`SELECT id FROM events WHERE saint_id = ? AND event_date = ?`, saintID, date)
}

func (t *sqliteTx) CreateEvent(ctx context.Context, saintID, historicalID, title string, date time.Time) (string, error) {
	id := uuid.New().String()
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO events (id, saint_id, historical_id, title, event_date) VALUES (?, ?, ?, ?, ?)`,
		id, saintID, nullable(historicalID), title, date,
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: insert event %s", title)
	}
	return id, nil
}

func (t *sqliteTx) FindMilestone(ctx context.Context, saintID string, date time.Time, description string) (string, error) {
	return t.findID(ctx, "find milestone",
		`SELECT id FROM milestones WHERE saint_id = ? AND date = ? AND description = ?`,
		saintID, date, description)
}

func (t *sqliteTx) CreateMilestone(ctx context.Context, m *model.MilestoneRecord, saintID, stickerID string) (string, error) {
	id := uuid.New().String()
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO milestones (id, saint_id, date, description, count, sticker_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, saintID, m.Date, m.Description, m.Count, nullable(stickerID),
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: insert milestone %s", m.Label())
	}
	return id, nil
}

func (t *sqliteTx) UpdateSaintTotals(ctx context.Context) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE saints SET total_events = (SELECT count(*) FROM events WHERE events.saint_id = saints.id)`,
	)
	return eris.Wrap(err, "sqlite: update saint totals")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s %s", entity, id)
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
