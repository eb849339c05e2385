package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sells-group/warmline/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS people (
	id                 TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	title              TEXT NOT NULL DEFAULT '',
	organization       TEXT NOT NULL DEFAULT '',
	email              TEXT NOT NULL DEFAULT '',
	linkedin           TEXT NOT NULL DEFAULT '',
	context            TEXT NOT NULL DEFAULT '',
	source_url         TEXT NOT NULL DEFAULT '',
	for_tag            TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL DEFAULT 'discovered',
	identity_key       TEXT NOT NULL UNIQUE,
	seniority          TEXT NOT NULL DEFAULT '',
	org_industry       TEXT NOT NULL DEFAULT '',
	org_employee_count INTEGER,
	org_revenue        INTEGER,
	org_total_funding  INTEGER,
	enrichment_data    TEXT,
	priority_score     INTEGER CHECK (priority_score BETWEEN 0 AND 100),
	priority_reasons   TEXT NOT NULL DEFAULT '',
	shared_background  TEXT NOT NULL DEFAULT '',
	scored_at          DATETIME,
	crm_lead_id        TEXT NOT NULL DEFAULT '',
	created_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_people_status ON people(status);
CREATE INDEX IF NOT EXISTS idx_people_for_tag ON people(for_tag);

CREATE TABLE IF NOT EXISTS sources (
	id                    TEXT PRIMARY KEY,
	url                   TEXT NOT NULL UNIQUE,
	for_tag               TEXT NOT NULL,
	is_active             BOOLEAN NOT NULL DEFAULT 1,
	check_frequency_hours INTEGER NOT NULL DEFAULT 168,
	last_checked_at       DATETIME,
	last_people_count     INTEGER NOT NULL DEFAULT 0,
	created_at            DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS outreach (
	id             TEXT PRIMARY KEY,
	person_id      TEXT NOT NULL UNIQUE REFERENCES people(id) ON DELETE CASCADE,
	channel        TEXT NOT NULL DEFAULT 'email',
	subject        TEXT NOT NULL,
	body           TEXT NOT NULL,
	research_notes TEXT,
	tone           TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT 'drafted',
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS enrichment_log (
	id         TEXT PRIMARY KEY,
	person_id  TEXT NOT NULL REFERENCES people(id) ON DELETE CASCADE,
	source     TEXT NOT NULL,
	result     TEXT,
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_enrichment_log_person ON enrichment_log(person_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// isSQLiteUnique reports whether err is a UNIQUE or PRIMARY KEY violation.
func isSQLiteUnique(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

func (s *SQLiteStore) ListProspects(ctx context.Context, filter ProspectFilter) ([]model.Prospect, error) {
	query := `SELECT ` + prospectColumns + ` FROM people WHERE 1=1`
	var args []any

	if filter.ID != "" {
		query += ` AND id = ?`
		args = append(args, filter.ID)
	}
	if len(filter.Statuses) > 0 {
		marks := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		query += ` AND status IN (` + strings.Join(marks, ", ") + `)`
	}
	if filter.ForTag != "" {
		query += ` AND for_tag = ?`
		args = append(args, filter.ForTag)
	}
	if filter.Scored != nil {
		if *filter.Scored {
			query += ` AND priority_score IS NOT NULL`
		} else {
			query += ` AND priority_score IS NULL`
		}
	}
	query += ` ORDER BY created_at, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list prospects")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Prospect
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan prospect")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate prospects")
}

func (s *SQLiteStore) GetProspect(ctx context.Context, id string) (*model.Prospect, error) {
	p, err := scanProspect(s.db.QueryRowContext(ctx, `SELECT `+prospectColumns+` FROM people WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "prospect %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get prospect %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) InsertProspect(ctx context.Context, p *model.Prospect) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = model.StatusDiscovered
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO people (id, name, title, organization, email, linkedin, context, source_url, for_tag, status, identity_key, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Title, p.Organization, p.Email, p.LinkedIn, p.Context, p.SourceURL, p.ForTag,
		string(p.Status), model.IdentityKey(p.Name, p.Organization, p.ForTag), now, now,
	)
	if isSQLiteUnique(err) {
		return eris.Wrapf(ErrDuplicate, "prospect %q at %q", p.Name, p.Organization)
	}
	return eris.Wrap(err, "sqlite: insert prospect")
}

func (s *SQLiteStore) UpdateProspect(ctx context.Context, id string, u ProspectUpdate) error {
	query, args := u.updateSQL(question, id, time.Now().UTC())
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update prospect %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Wrapf(ErrNotFound, "prospect %s", id)
	}
	return nil
}

func (s *SQLiteStore) ListSources(ctx context.Context, filter SourceFilter) ([]model.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE 1=1`
	var args []any
	if filter.ID != "" {
		query += ` AND id = ?`
		args = append(args, filter.ID)
	}
	if filter.ActiveOnly {
		query += ` AND is_active`
	}
	if filter.ForTag != "" {
		query += ` AND for_tag = ?`
		args = append(args, filter.ForTag)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sources")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan source")
		}
		out = append(out, *src)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate sources")
}

func (s *SQLiteStore) GetSource(ctx context.Context, id string) (*model.Source, error) {
	src, err := scanSource(s.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "source %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get source %s", id)
	}
	return src, nil
}

func (s *SQLiteStore) InsertSource(ctx context.Context, src *model.Source) error {
	if src.ID == "" {
		src.ID = uuid.New().String()
	}
	src.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sources (id, url, for_tag, is_active, check_frequency_hours, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		src.ID, src.URL, src.ForTag, src.IsActive, src.CheckFrequencyHours, src.CreatedAt,
	)
	if isSQLiteUnique(err) {
		return eris.Wrapf(ErrDuplicate, "source %s", src.URL)
	}
	return eris.Wrap(err, "sqlite: insert source")
}

func (s *SQLiteStore) MarkSourceChecked(ctx context.Context, id string, at time.Time, peopleCount int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sources SET last_checked_at = ?, last_people_count = ? WHERE id = ?`,
		at.UTC(), peopleCount, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark source checked %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Wrapf(ErrNotFound, "source %s", id)
	}
	return nil
}

func (s *SQLiteStore) GetOutreachByPerson(ctx context.Context, personID string) (*model.Outreach, error) {
	o, err := scanOutreach(s.db.QueryRowContext(ctx, `SELECT `+outreachColumns+` FROM outreach WHERE person_id = ?`, personID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "outreach for %s", personID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get outreach for %s", personID)
	}
	return o, nil
}

func (s *SQLiteStore) InsertOutreach(ctx context.Context, o *model.Outreach) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outreach (id, person_id, channel, subject, body, research_notes, tone, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.PersonID, o.Channel, o.Subject, o.Body, nullJSON(o.ResearchNotes), string(o.Tone), o.Status, now, now,
	)
	if isSQLiteUnique(err) {
		return eris.Wrapf(ErrDuplicate, "outreach for %s", o.PersonID)
	}
	return eris.Wrap(err, "sqlite: insert outreach")
}

func (s *SQLiteStore) UpdateOutreach(ctx context.Context, o *model.Outreach) error {
	o.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE outreach SET subject = ?, body = ?, research_notes = ?, tone = ?, status = ?, updated_at = ? WHERE id = ?`,
		o.Subject, o.Body, nullJSON(o.ResearchNotes), string(o.Tone), o.Status, o.UpdatedAt, o.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update outreach %s", o.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Wrapf(ErrNotFound, "outreach %s", o.ID)
	}
	return nil
}

func (s *SQLiteStore) AppendEnrichmentLog(ctx context.Context, e *model.EnrichmentLog) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.CreatedAt = time.Now().UTC()

	var errText any
	if e.Error != "" {
		errText = e.Error
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO enrichment_log (id, person_id, source, result, error, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.PersonID, string(e.Source), nullJSON(e.Result), errText, e.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: append enrichment log")
}

// CountEnrichmentLogs returns the number of audit rows for a prospect.
func (s *SQLiteStore) CountEnrichmentLogs(ctx context.Context, personID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM enrichment_log WHERE person_id = ?`, personID).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count enrichment logs")
}
