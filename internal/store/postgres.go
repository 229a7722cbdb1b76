package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/MisterBeardy/saintcalendar-sub000/internal/db"
	"github.com/MisterBeardy/saintcalendar-sub000/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// the hottest lookups of the import transaction.
var preparedStatements = map[string]string{
	"find_location":   `SELECT id FROM locations WHERE source_id = $1`,
	"find_saint":      `SELECT id FROM saints WHERE location_id = $1 AND number = $2`,
	"find_sticker":    `SELECT id FROM stickers WHERE file_name = $1`,
	"find_historical": `SELECT id FROM historical WHERE saint_id = $1 AND year = $2`,
	"find_event":      `SELECT id FROM events WHERE saint_id = $1 AND event_date = $2`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool, used by tests.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS locations (
	id           TEXT PRIMARY KEY,
	source_id    TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	city         TEXT NOT NULL,
	region       TEXT NOT NULL DEFAULT '',
	address      TEXT NOT NULL,
	status       TEXT NOT NULL,
	opened_on    DATE,
	closed_on    DATE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
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
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
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
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (saint_id, year)
);

CREATE TABLE IF NOT EXISTS events (
	id            TEXT PRIMARY KEY,
	saint_id      TEXT NOT NULL REFERENCES saints(id),
	historical_id TEXT REFERENCES historical(id),
	title         TEXT NOT NULL,
	event_date    DATE NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (saint_id, event_date)
);

CREATE TABLE IF NOT EXISTS milestones (
	id          TEXT PRIMARY KEY,
	saint_id    TEXT NOT NULL REFERENCES saints(id),
	date        DATE NOT NULL,
	description TEXT NOT NULL,
	count       INTEGER NOT NULL DEFAULT 0,
	sticker_id  TEXT REFERENCES stickers(id),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (saint_id, date, description)
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'queued',
	summary    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_phases (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	name        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	duration_ms BIGINT NOT NULL DEFAULT 0,
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

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, status, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		id, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) UpdateRunSummary(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET summary = $1, status = $2, updated_at = $3 WHERE id = $4`,
		summaryJSON, string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run summary %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var r model.Run
	var summaryJSON *[]byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, status, summary, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	if summaryJSON != nil {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal(*summaryJSON, r.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal summary")
		}
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, summary, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var summaryJSON *[]byte

		if err := rows.Scan(&r.ID, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if summaryJSON != nil {
			r.Summary = &model.RunSummary{}
			if err := json.Unmarshal(*summaryJSON, r.Summary); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal summary")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_phases (id, run_id, name, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		id, runID, name, string(model.PhaseStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert phase for run %s", runID)
	}

	return &model.RunPhase{
		ID:        id,
		RunID:     runID,
		Name:      name,
		Status:    model.PhaseStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) CompletePhase(ctx context.Context, phaseID string, status model.PhaseStatus, duration time.Duration, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE run_phases SET status = $1, duration_ms = $2, error = $3 WHERE id = $4`,
		string(status), duration.Milliseconds(), errMsg, phaseID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete phase %s", phaseID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("phase not found: %s", phaseID)
	}
	return nil
}

func (s *PostgresStore) ListPhases(ctx context.Context, runID string) ([]model.RunPhase, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, name, status, started_at, duration_ms, error FROM run_phases WHERE run_id = $1 ORDER BY started_at`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list phases for run %s", runID)
	}
	defer rows.Close()

	var phases []model.RunPhase
	for rows.Next() {
		var p model.RunPhase
		if err := rows.Scan(&p.ID, &p.RunID, &p.Name, &p.Status, &p.StartedAt, &p.DurationMS, &p.Error); err != nil {
			return nil, eris.Wrap(err, "postgres: scan phase")
		}
		phases = append(phases, p)
	}
	return phases, eris.Wrap(rows.Err(), "postgres: list phases iterate")
}

// Begin opens the import transaction.
func (s *PostgresStore) Begin(ctx context.Context) (TxStore, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin")
	}
	return &postgresTx{tx: tx}, nil
}

// postgresTx implements TxStore over one pgx transaction.
type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) Commit(ctx context.Context) error {
	return eris.Wrap(t.tx.Commit(ctx), "postgres: commit")
}

func (t *postgresTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return eris.Wrap(err, "postgres: rollback")
	}
	return nil
}

// findID runs a single-column natural-key lookup, mapping no-rows to "".
func (t *postgresTx) findID(ctx context.Context, label, query string, args ...any) (string, error) {
	var id string
	err := t.tx.QueryRow(ctx, query, args...).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", eris.Wrapf(err, "postgres: %s", label)
	}
	return id, nil
}

func (t *postgresTx) FindLocationBySourceID(ctx context.Context, sourceID string) (string, error) {
	return t.findID(ctx, "find location",
		`SELECT id FROM locations WHERE source_id = $1`, sourceID)
}

func (t *postgresTx) CreateLocation(ctx context.Context, loc *model.LocationRecord) (string, error) {
	id := uuid.New().String()
	_, err := t.tx.Exec(ctx,
		`INSERT INTO locations (id, source_id, display_name, city, region, address, status, opened_on, closed_on)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, loc.SourceID, loc.DisplayName, loc.City, loc.Region, loc.Address,
		string(loc.Status), loc.OpenedOn, loc.ClosedOn,
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: insert location %s", loc.Label())
	}
	return id, nil
}

func (t *postgresTx) FindSaint(ctx context.Context, locationID, number string) (string, error) {
	return t.findID(ctx, "find saint",
		`SELECT id FROM saints WHERE location_id = $1 AND number = $2`, locationID, number)
}

func (t *postgresTx) CreateSaint(ctx context.Context, s *model.SaintRecord, locationID string) (string, error) {
	id := uuid.New().String()
	_, err := t.tx.Exec(ctx,
		`INSERT INTO saints (id, location_id, number, saint_name, legal_name, feast_month, feast_day, feast_year)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, locationID, s.Number, s.SaintName, s.LegalName,
		int(s.FeastDate.Month), s.FeastDate.Day, s.FeastYear,
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: insert saint %s", s.Label())
	}
	return id, nil
}

func (t *postgresTx) FindSticker(ctx context.Context, fileName string) (string, error) {
	return t.findID(ctx, "find sticker",
		`SELECT id FROM stickers WHERE file_name = $1`, fileName)
}

func (t *postgresTx) CreateSticker(ctx context.Context, fileName string) (string, error) {
	id := uuid.New().String()
	_, err := t.tx.Exec(ctx,
		`INSERT INTO stickers (id, file_name) VALUES ($1, $2)`,
		id, fileName,
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: insert sticker %s", fileName)
	}
	return id, nil
}

func (t *postgresTx) FindHistorical(ctx context.Context, saintID string, year int) (string, error) {
	return t.findID(ctx, "find historical",
		`SELECT id FROM historical WHERE saint_id = $1 AND year = $2`, saintID, year)
}

func (t *postgresTx) CreateHistorical(ctx context.Context, h *model.HistoricalRecord, saintID, stickerID string) (string, error) {
	id := uuid.New().String()
	_, err := t.tx.Exec(ctx,
		`INSERT INTO historical (id, saint_id, year, burger, tap_beers, can_beers, event_link, sticker_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, saintID, h.Year, h.Burger, h.TapBeers, h.CanBeers, h.EventLink, nullable(stickerID),
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: insert historical %s", h.Label())
	}
	return id, nil
}

func (t *postgresTx) FindEvent(ctx context.Context, saintID string, date time.Time) (string, error) {
	return t.findID(ctx, "find event",
		`SELECT id FROM events WHERE saint_id = $1 AND event_date = $2`, saintID, date)
}

func (t *postgresTx) CreateEvent(ctx context.Context, saintID, historicalID, title string, date time.Time) (string, error) {
	id := uuid.New().String()
	_, err := t.tx.Exec(ctx,
		`INSERT INTO events (id, saint_id, historical_id, title, event_date) VALUES ($1, $2, $3, $4, $5)`,
		id, saintID, nullable(historicalID), title, date,
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: insert event %s", title)
	}
	return id, nil
}

func (t *postgresTx) FindMilestone(ctx context.Context, saintID string, date time.Time, description string) (string, error) {
	return t.findID(ctx, "find milestone",
		`SELECT id FROM milestones WHERE saint_id = $1 AND date = $2 AND description = $3`,
		saintID, date, description)
}

func (t *postgresTx) CreateMilestone(ctx context.Context, m *model.MilestoneRecord, saintID, stickerID string) (string, error) {
	id := uuid.New().String()
	_, err := t.tx.Exec(ctx,
		`INSERT INTO milestones (id, saint_id, date, description, count, sticker_id)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, saintID, m.Date, m.Description, m.Count, nullable(stickerID),
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: insert milestone %s", m.Label())
	}
	return id, nil
}

func (t *postgresTx) UpdateSaintTotals(ctx context.Context) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE saints SET total_events = (SELECT count(*) FROM events WHERE events.saint_id = saints.id)`,
	)
	return eris.Wrap(err, "postgres: update saint totals")
}

// nullable maps "" to a SQL NULL for optional foreign keys.
func nullable(id string) any {
	if id == "" {
		return nil
	}
	return id
}
