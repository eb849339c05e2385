package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // migrate driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/warmline/internal/db"
	"github.com/sells-group/warmline/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	dsn     string
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
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

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, dsn: connString, closeFn: pool.Close}, nil
}

// Migrate applies the embedded migrations with golang-migrate.
func (s *PostgresStore) Migrate(_ context.Context) error {
	return MigratePostgres(s.dsn)
}

// MigratePostgres applies all pending up migrations to the database at dsn.
func MigratePostgres(dsn string) error {
	m, err := newMigrator(dsn)
	if err != nil {
		return err
	}
	defer m.Close() //nolint:errcheck

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return eris.Wrap(err, "postgres: migrate up")
	}
	return nil
}

// MigrationVersion reports the applied schema version.
func MigrationVersion(dsn string) (uint, bool, error) {
	m, err := newMigrator(dsn)
	if err != nil {
		return 0, false, err
	}
	defer m.Close() //nolint:errcheck

	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, eris.Wrap(err, "postgres: migration version")
	}
	return v, dirty, nil
}

func newMigrator(dsn string) (*migrate.Migrate, error) {
	if dsn == "" {
		return nil, eris.New("postgres: migrate requires a connection string")
	}
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: migration source")
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create migrator")
	}
	return m, nil
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ListProspects(ctx context.Context, filter ProspectFilter) ([]model.Prospect, error) {
	query := `SELECT ` + prospectColumns + ` FROM people`
	var conditions []string
	var args []any
	argIdx := 1

	if filter.ID != "" {
		conditions = append(conditions, fmt.Sprintf("id = $%d", argIdx))
		args = append(args, filter.ID)
		argIdx++
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", argIdx))
		args = append(args, statuses)
		argIdx++
	}
	if filter.ForTag != "" {
		conditions = append(conditions, fmt.Sprintf("for_tag = $%d", argIdx))
		args = append(args, filter.ForTag)
		argIdx++
	}
	if filter.Scored != nil {
		if *filter.Scored {
			conditions = append(conditions, "priority_score IS NOT NULL")
		} else {
			conditions = append(conditions, "priority_score IS NULL")
		}
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at, id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list prospects")
	}
	defer rows.Close()

	var out []model.Prospect
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan prospect")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate prospects")
}

func (s *PostgresStore) GetProspect(ctx context.Context, id string) (*model.Prospect, error) {
	p, err := scanProspect(s.pool.QueryRow(ctx, `SELECT `+prospectColumns+` FROM people WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "prospect %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get prospect %s", id)
	}
	return p, nil
}

func (s *PostgresStore) InsertProspect(ctx context.Context, p *model.Prospect) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = model.StatusDiscovered
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO people (id, name, title, organization, email, linkedin, context, source_url, for_tag, status, identity_key, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.Name, p.Title, p.Organization, p.Email, p.LinkedIn, p.Context, p.SourceURL, p.ForTag,
		string(p.Status), model.IdentityKey(p.Name, p.Organization, p.ForTag), now, now,
	)
	if db.IsUniqueViolation(err) {
		return eris.Wrapf(ErrDuplicate, "prospect %q at %q", p.Name, p.Organization)
	}
	return eris.Wrap(err, "postgres: insert prospect")
}

func (s *PostgresStore) UpdateProspect(ctx context.Context, id string, u ProspectUpdate) error {
	query, args := u.updateSQL(dollar, id, time.Now().UTC())
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update prospect %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "prospect %s", id)
	}
	return nil
}

func (s *PostgresStore) ListSources(ctx context.Context, filter SourceFilter) ([]model.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources`
	var conditions []string
	var args []any
	argIdx := 1

	if filter.ID != "" {
		conditions = append(conditions, fmt.Sprintf("id = $%d", argIdx))
		args = append(args, filter.ID)
		argIdx++
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active")
	}
	if filter.ForTag != "" {
		conditions = append(conditions, fmt.Sprintf("for_tag = $%d", argIdx))
		args = append(args, filter.ForTag)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sources")
	}
	defer rows.Close()

	var out []model.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan source")
		}
		out = append(out, *src)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate sources")
}

func (s *PostgresStore) GetSource(ctx context.Context, id string) (*model.Source, error) {
	src, err := scanSource(s.pool.QueryRow(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "source %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get source %s", id)
	}
	return src, nil
}

func (s *PostgresStore) InsertSource(ctx context.Context, src *model.Source) error {
	if src.ID == "" {
		src.ID = uuid.New().String()
	}
	src.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO sources (id, url, for_tag, is_active, check_frequency_hours, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		src.ID, src.URL, src.ForTag, src.IsActive, src.CheckFrequencyHours, src.CreatedAt,
	)
	if db.IsUniqueViolation(err) {
		return eris.Wrapf(ErrDuplicate, "source %s", src.URL)
	}
	return eris.Wrap(err, "postgres: insert source")
}

func (s *PostgresStore) MarkSourceChecked(ctx context.Context, id string, at time.Time, peopleCount int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sources SET last_checked_at = $1, last_people_count = $2 WHERE id = $3`,
		at.UTC(), peopleCount, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark source checked %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "source %s", id)
	}
	return nil
}

func (s *PostgresStore) GetOutreachByPerson(ctx context.Context, personID string) (*model.Outreach, error) {
	o, err := scanOutreach(s.pool.QueryRow(ctx, `SELECT `+outreachColumns+` FROM outreach WHERE person_id = $1`, personID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "outreach for %s", personID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get outreach for %s", personID)
	}
	return o, nil
}

func (s *PostgresStore) InsertOutreach(ctx context.Context, o *model.Outreach) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO outreach (id, person_id, channel, subject, body, research_notes, tone, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.PersonID, o.Channel, o.Subject, o.Body, nullJSON(o.ResearchNotes), string(o.Tone), o.Status, now, now,
	)
	if db.IsUniqueViolation(err) {
		return eris.Wrapf(ErrDuplicate, "outreach for %s", o.PersonID)
	}
	return eris.Wrap(err, "postgres: insert outreach")
}

func (s *PostgresStore) UpdateOutreach(ctx context.Context, o *model.Outreach) error {
	o.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE outreach SET subject = $1, body = $2, research_notes = $3, tone = $4, status = $5, updated_at = $6 WHERE id = $7`,
		o.Subject, o.Body, nullJSON(o.ResearchNotes), string(o.Tone), o.Status, o.UpdatedAt, o.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update outreach %s", o.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "outreach %s", o.ID)
	}
	return nil
}

func (s *PostgresStore) AppendEnrichmentLog(ctx context.Context, e *model.EnrichmentLog) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.CreatedAt = time.Now().UTC()

	var errText *string
	if e.Error != "" {
		errText = &e.Error
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO enrichment_log (id, person_id, source, result, error, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.PersonID, string(e.Source), nullJSON(e.Result), errText, e.CreatedAt,
	)
	return eris.Wrap(err, "postgres: append enrichment log")
}
