package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/matchbaan/match-cli/internal/db"
	"github.com/matchbaan/match-cli/internal/model"
)

// PostgresStore implements Store using pgxpool. Embeddings are kept in a
// pgvector column when the extension is installed and fall back to a JSON
// text column otherwise; reads normalize both through CAST(embedding AS TEXT).
type PostgresStore struct {
	pool          db.Pool
	closeFn       func()
	nativeVectors bool
	embeddingDims int
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_candidate":      `SELECT ` + candidateColumns + ` FROM candidates WHERE id = $1`,
	"update_status":      `UPDATE candidates SET status = $1, processing_step = $2, error_message = $3, updated_at = $4 WHERE id = $5`,
	"set_match_distance": `UPDATE matches SET distance_km = $1, distance_computed = TRUE WHERE id = $2`,
	"active_prompt":      `SELECT ` + promptColumns + ` FROM prompts WHERE prompt_type = $1 AND active`,
	"log_prompt_use":     `INSERT INTO prompt_logs (prompt_id, entity_type, entity_id, created_at) VALUES ($1, $2, $3, $4)`,
}

// NewPostgres creates a PostgresStore with a connection pool. embeddingDims
// sizes the pgvector column in the schema; pass 0 for the default of 1536.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig, embeddingDims int) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
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

	// Prepare frequently-used statements on each new connection. Tables do
	// not exist before the first migrate, so a failed prepare is skipped
	// rather than making the pool unusable for the migrate command itself.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				zap.L().Debug("statement prepare skipped",
					zap.String("name", name),
					zap.Error(err))
				return nil
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

	if embeddingDims <= 0 {
		embeddingDims = 1536
	}
	s := &PostgresStore{pool: pool, closeFn: pool.Close, embeddingDims: embeddingDims}
	s.nativeVectors = s.probeVectorType(ctx)
	return s, nil
}

// probeVectorType reports whether the pgvector extension type is present.
func (s *PostgresStore) probeVectorType(ctx context.Context) bool {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'vector')`,
	).Scan(&exists)
	if err != nil {
		zap.L().Debug("vector type probe failed", zap.Error(err))
		return false
	}
	return exists
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS candidates (
	id                BIGSERIAL PRIMARY KEY,
	file_path         TEXT NOT NULL DEFAULT '',
	original_filename TEXT NOT NULL DEFAULT '',
	cv_text           TEXT NOT NULL DEFAULT '',
	full_name         TEXT NOT NULL DEFAULT '',
	email             TEXT NOT NULL DEFAULT '',
	phone             TEXT NOT NULL DEFAULT '',
	street            TEXT NOT NULL DEFAULT '',
	house_number      TEXT NOT NULL DEFAULT '',
	postal_code       TEXT NOT NULL DEFAULT '',
	city              TEXT NOT NULL DEFAULT '',
	education_level   TEXT NOT NULL DEFAULT '',
	job_titles        TEXT NOT NULL DEFAULT '',
	years_experience  TEXT NOT NULL DEFAULT '',
	profile_text      TEXT NOT NULL DEFAULT '',
	embedding         %[1]s,
	lat               DOUBLE PRECISION,
	lon               DOUBLE PRECISION,
	status            TEXT NOT NULL DEFAULT 'queued',
	processing_step   TEXT NOT NULL DEFAULT '',
	error_message     TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_candidates_status ON candidates(status);
CREATE INDEX IF NOT EXISTS idx_candidates_email ON candidates(email);

CREATE TABLE IF NOT EXISTS vacancies (
	id           BIGSERIAL PRIMARY KEY,
	external_id  TEXT NOT NULL UNIQUE,
	title        TEXT NOT NULL DEFAULT '',
	organization TEXT NOT NULL DEFAULT '',
	city         TEXT NOT NULL DEFAULT '',
	postal_code  TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	summary      TEXT NOT NULL DEFAULT '',
	embedding    %[1]s,
	lat          DOUBLE PRECISION,
	lon          DOUBLE PRECISION,
	active       BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_vacancies_active ON vacancies(active);

CREATE TABLE IF NOT EXISTS matches (
	id                BIGSERIAL PRIMARY KEY,
	candidate_id      BIGINT NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
	vacancy_id        BIGINT NOT NULL REFERENCES vacancies(id) ON DELETE CASCADE,
	score             DOUBLE PRECISION NOT NULL,
	distance_km       DOUBLE PRECISION,
	distance_computed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_matches_score ON matches(score DESC);
CREATE INDEX IF NOT EXISTS idx_matches_candidate ON matches(candidate_id);
CREATE INDEX IF NOT EXISTS idx_matches_pending_distance ON matches(distance_computed) WHERE NOT distance_computed;

CREATE TABLE IF NOT EXISTS prompts (
	id          BIGSERIAL PRIMARY KEY,
	prompt_type TEXT NOT NULL,
	version     INTEGER NOT NULL,
	content     TEXT NOT NULL,
	active      BOOLEAN NOT NULL DEFAULT FALSE,
	parent_id   BIGINT REFERENCES prompts(id),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (prompt_type, version)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_prompts_one_active ON prompts(prompt_type) WHERE active;

CREATE TABLE IF NOT EXISTS prompt_logs (
	id          BIGSERIAL PRIMARY KEY,
	prompt_id   BIGINT NOT NULL REFERENCES prompts(id) ON DELETE CASCADE,
	entity_type TEXT NOT NULL,
	entity_id   BIGINT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_prompt_logs_prompt ON prompt_logs(prompt_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

// Migrate creates the schema. It first tries to install pgvector so the
// embedding columns can be native vectors; without the extension they are
// created as TEXT holding the JSON representation instead.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		zap.L().Warn("pgvector extension unavailable, storing embeddings as JSON text",
			zap.Error(err))
	}
	s.nativeVectors = s.probeVectorType(ctx)

	embeddingType := "TEXT"
	if s.nativeVectors {
		embeddingType = fmt.Sprintf("vector(%d)", s.embeddingDims)
	}
	_, err := s.pool.Exec(ctx, fmt.Sprintf(postgresMigration, embeddingType))
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateCandidate(ctx context.Context, c *model.Candidate) error {
	now := time.Now().UTC()
	if c.Status == "" {
		c.Status = model.CandidateQueued
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO candidates (file_path, original_filename, cv_text, full_name, email, phone, street, house_number, postal_code, city, education_level, job_titles, years_experience, profile_text, status, processing_step, error_message, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		 RETURNING id`,
		c.FilePath, c.OriginalFilename, c.CVText, c.FullName, c.Email, c.Phone,
		c.Street, c.HouseNumber, c.PostalCode, c.City, c.EducationLevel,
		c.JobTitles, c.YearsExperience, c.ProfileText, string(c.Status),
		c.ProcessingStep, c.ErrorMessage, now, now,
	).Scan(&c.ID)
	if err != nil {
		return eris.Wrap(err, "postgres: insert candidate")
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func (s *PostgresStore) GetCandidate(ctx context.Context, id int64) (*model.Candidate, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE id = $1`, id)
	c, err := scanCandidate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "candidate %d", id)
		}
		return nil, eris.Wrapf(err, "postgres: get candidate %d", id)
	}
	return c, nil
}

func (s *PostgresStore) ListCandidates(ctx context.Context, filter CandidateFilter) ([]model.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC, id DESC`

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
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list candidates")
	}
	defer rows.Close()

	var candidates []model.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan candidate")
		}
		candidates = append(candidates, *c)
	}
	return candidates, eris.Wrap(rows.Err(), "postgres: list candidates iterate")
}

// UpdateCandidate writes every mutable candidate field except the embedding,
// which has its own representation-aware path in SetCandidateEmbedding.
func (s *PostgresStore) UpdateCandidate(ctx context.Context, c *model.Candidate) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE candidates SET file_path = $1, original_filename = $2, cv_text = $3, full_name = $4, email = $5, phone = $6, street = $7, house_number = $8, postal_code = $9, city = $10, education_level = $11, job_titles = $12, years_experience = $13, profile_text = $14, lat = $15, lon = $16, status = $17, processing_step = $18, error_message = $19, updated_at = $20
		 WHERE id = $21`,
		c.FilePath, c.OriginalFilename, c.CVText, c.FullName, c.Email, c.Phone,
		c.Street, c.HouseNumber, c.PostalCode, c.City, c.EducationLevel,
		c.JobTitles, c.YearsExperience, c.ProfileText, c.Lat, c.Lon,
		string(c.Status), c.ProcessingStep, c.ErrorMessage, now, c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update candidate %d", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "candidate %d", c.ID)
	}
	c.UpdatedAt = now
	return nil
}

func (s *PostgresStore) UpdateCandidateStatus(ctx context.Context, id int64, status model.CandidateStatus, step, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE candidates SET status = $1, processing_step = $2, error_message = $3, updated_at = $4 WHERE id = $5`,
		string(status), step, errMsg, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update candidate status %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "candidate %d", id)
	}
	return nil
}

func (s *PostgresStore) DeleteCandidate(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM candidates WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete candidate %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "candidate %d", id)
	}
	return nil
}

// FindCandidateByEmail returns the oldest other candidate with the same
// email, or nil when there is none. Used by duplicate detection.
func (s *PostgresStore) FindCandidateByEmail(ctx context.Context, email string, excludeID int64) (*model.Candidate, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE email = $1 AND id <> $2 ORDER BY id LIMIT 1`,
		email, excludeID,
	)
	c, err := scanCandidate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: find candidate by email")
	}
	return c, nil
}

// FindCandidateByName matches the full name case-insensitively, mirroring
// FindCandidateByEmail semantics.
func (s *PostgresStore) FindCandidateByName(ctx context.Context, name string, excludeID int64) (*model.Candidate, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE LOWER(full_name) = LOWER($1) AND id <> $2 ORDER BY id LIMIT 1`,
		name, excludeID,
	)
	c, err := scanCandidate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: find candidate by name")
	}
	return c, nil
}

func (s *PostgresStore) SetCandidateEmbedding(ctx context.Context, id int64, embedding []float32) error {
	return s.setEmbedding(ctx, "candidates", "candidate", id, embedding)
}

func (s *PostgresStore) CandidatesForMatching(ctx context.Context) ([]model.Candidate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE status = $1 AND embedding IS NOT NULL ORDER BY id`,
		string(model.CandidateCompleted),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: candidates for matching")
	}
	defer rows.Close()

	var candidates []model.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan candidate")
		}
		candidates = append(candidates, *c)
	}
	return candidates, eris.Wrap(rows.Err(), "postgres: candidates for matching iterate")
}

// UpsertVacancy inserts or updates by external id. A changed description
// clears the summary and embedding so the vacancy gets reprocessed; new rows
// start inactive until processing completes, existing rows are reactivated.
// The returned flag reports whether a new row was created.
func (s *PostgresStore) UpsertVacancy(ctx context.Context, v *model.Vacancy) (bool, error) {
	now := time.Now().UTC()
	var created bool
	err := s.pool.QueryRow(ctx,
		`INSERT INTO vacancies (external_id, title, organization, city, postal_code, url, description, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, $9)
		 ON CONFLICT (external_id) DO UPDATE SET
			title        = EXCLUDED.title,
			organization = EXCLUDED.organization,
			city         = EXCLUDED.city,
			postal_code  = EXCLUDED.postal_code,
			url          = EXCLUDED.url,
			summary      = CASE WHEN vacancies.description = EXCLUDED.description THEN vacancies.summary ELSE '' END,
			embedding    = CASE WHEN vacancies.description = EXCLUDED.description THEN vacancies.embedding ELSE NULL END,
			description  = EXCLUDED.description,
			active       = TRUE,
			updated_at   = EXCLUDED.updated_at
		 RETURNING id, active, created_at, (xmax = 0) AS created`,
		v.ExternalID, v.Title, v.Organization, v.City, v.PostalCode, v.URL,
		v.Description, now, now,
	).Scan(&v.ID, &v.Active, &v.CreatedAt, &created)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: upsert vacancy %s", v.ExternalID)
	}
	v.UpdatedAt = now
	return created, nil
}

func (s *PostgresStore) GetVacancy(ctx context.Context, id int64) (*model.Vacancy, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+vacancyColumns+` FROM vacancies WHERE id = $1`, id)
	v, err := scanVacancy(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "vacancy %d", id)
		}
		return nil, eris.Wrapf(err, "postgres: get vacancy %d", id)
	}
	return v, nil
}

func (s *PostgresStore) ListVacancies(ctx context.Context, filter VacancyFilter) ([]model.Vacancy, error) {
	query := `SELECT ` + vacancyColumns + ` FROM vacancies WHERE true`
	args := []any{}
	argIdx := 1

	if filter.ActiveOnly {
		query += ` AND active`
	}
	query += ` ORDER BY created_at DESC, id DESC`

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
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list vacancies")
	}
	defer rows.Close()

	var vacancies []model.Vacancy
	for rows.Next() {
		v, err := scanVacancy(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan vacancy")
		}
		vacancies = append(vacancies, *v)
	}
	return vacancies, eris.Wrap(rows.Err(), "postgres: list vacancies iterate")
}

// DeactivateVacanciesExcept deactivates every active vacancy whose external
// id is not in keep. Rows are never deleted so matches keep their referents.
func (s *PostgresStore) DeactivateVacanciesExcept(ctx context.Context, keep []string) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE vacancies SET active = FALSE, updated_at = $1 WHERE active AND NOT (external_id = ANY($2))`,
		time.Now().UTC(), keep,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: deactivate vacancies")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) SetVacancySummary(ctx context.Context, id int64, summary string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE vacancies SET summary = $1, updated_at = $2 WHERE id = $3`,
		summary, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set vacancy summary %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "vacancy %d", id)
	}
	return nil
}

func (s *PostgresStore) SetVacancyEmbedding(ctx context.Context, id int64, embedding []float32) error {
	return s.setEmbedding(ctx, "vacancies", "vacancy", id, embedding)
}

func (s *PostgresStore) SetVacancyLocation(ctx context.Context, id int64, lat, lon float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE vacancies SET lat = $1, lon = $2, updated_at = $3 WHERE id = $4`,
		lat, lon, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set vacancy location %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "vacancy %d", id)
	}
	return nil
}

func (s *PostgresStore) SetVacancyActive(ctx context.Context, id int64, active bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE vacancies SET active = $1, updated_at = $2 WHERE id = $3`,
		active, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set vacancy active %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "vacancy %d", id)
	}
	return nil
}

func (s *PostgresStore) VacanciesForMatching(ctx context.Context) ([]model.Vacancy, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+vacancyColumns+` FROM vacancies WHERE active AND embedding IS NOT NULL ORDER BY id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: vacancies for matching")
	}
	defer rows.Close()

	var vacancies []model.Vacancy
	for rows.Next() {
		v, err := scanVacancy(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan vacancy")
		}
		vacancies = append(vacancies, *v)
	}
	return vacancies, eris.Wrap(rows.Err(), "postgres: vacancies for matching iterate")
}

// ReplaceMatches swaps the full match table for the given set in one
// transaction, so readers never observe a partially built ranking.
func (s *PostgresStore) ReplaceMatches(ctx context.Context, matches []model.Match) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace matches")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM matches`); err != nil {
		return eris.Wrap(err, "postgres: clear matches")
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, []any{m.CandidateID, m.VacancyID, m.Score, now})
	}
	if _, err := db.CopyFrom(ctx, tx, "matches",
		[]string{"candidate_id", "vacancy_id", "score", "created_at"}, rows); err != nil {
		return eris.Wrap(err, "postgres: copy matches")
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace matches")
}

func (s *PostgresStore) ListMatches(ctx context.Context, filter MatchFilter) ([]model.MatchDetail, error) {
	query := `SELECT ` + matchDetailColumns + ` FROM matches m
		JOIN candidates c ON c.id = m.candidate_id
		JOIN vacancies v ON v.id = m.vacancy_id
		WHERE true`
	args := []any{}
	argIdx := 1

	if filter.CandidateID > 0 {
		query += fmt.Sprintf(` AND m.candidate_id = $%d`, argIdx)
		args = append(args, filter.CandidateID)
		argIdx++
	}
	if filter.VacancyID > 0 {
		query += fmt.Sprintf(` AND m.vacancy_id = $%d`, argIdx)
		args = append(args, filter.VacancyID)
		argIdx++
	}
	query += ` ORDER BY m.score DESC, m.candidate_id, m.vacancy_id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 250
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list matches")
	}
	defer rows.Close()

	var matches []model.MatchDetail
	for rows.Next() {
		d, err := scanMatchDetail(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan match")
		}
		matches = append(matches, *d)
	}
	return matches, eris.Wrap(rows.Err(), "postgres: list matches iterate")
}

func (s *PostgresStore) MatchesWithoutDistance(ctx context.Context) ([]model.Match, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE NOT distance_computed ORDER BY id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: matches without distance")
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan match")
		}
		matches = append(matches, *m)
	}
	return matches, eris.Wrap(rows.Err(), "postgres: matches without distance iterate")
}

// SetMatchDistance records the backfill outcome. A nil km marks a definitive
// null: coordinates are missing, the row will not be visited again.
func (s *PostgresStore) SetMatchDistance(ctx context.Context, id int64, km *float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE matches SET distance_km = $1, distance_computed = TRUE WHERE id = $2`,
		km, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set match distance %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "match %d", id)
	}
	return nil
}

func (s *PostgresStore) ActivePrompt(ctx context.Context, pt model.PromptType) (*model.Prompt, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+promptColumns+` FROM prompts WHERE prompt_type = $1 AND active`,
		string(pt),
	)
	p, err := scanPrompt(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "active prompt %s", pt)
		}
		return nil, eris.Wrapf(err, "postgres: active prompt %s", pt)
	}
	return p, nil
}

func (s *PostgresStore) ListPrompts(ctx context.Context, pt model.PromptType) ([]model.Prompt, error) {
	query := `SELECT ` + promptColumns + ` FROM prompts WHERE true`
	args := []any{}
	if pt != "" {
		query += ` AND prompt_type = $1`
		args = append(args, string(pt))
	}
	query += ` ORDER BY prompt_type, version DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list prompts")
	}
	defer rows.Close()

	var prompts []model.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan prompt")
		}
		prompts = append(prompts, *p)
	}
	return prompts, eris.Wrap(rows.Err(), "postgres: list prompts iterate")
}

func (s *PostgresStore) GetPrompt(ctx context.Context, id int64) (*model.Prompt, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+promptColumns+` FROM prompts WHERE id = $1`, id)
	p, err := scanPrompt(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "prompt %d", id)
		}
		return nil, eris.Wrapf(err, "postgres: get prompt %d", id)
	}
	return p, nil
}

// CreatePrompt appends a new version for the type and makes it the single
// active one. Existing versions are never modified.
func (s *PostgresStore) CreatePrompt(ctx context.Context, pt model.PromptType, content string, parentID *int64) (*model.Prompt, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin create prompt")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var version int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM prompts WHERE prompt_type = $1`,
		string(pt),
	).Scan(&version)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: next prompt version")
	}

	if _, err := tx.Exec(ctx,
		`UPDATE prompts SET active = FALSE WHERE prompt_type = $1 AND active`,
		string(pt),
	); err != nil {
		return nil, eris.Wrap(err, "postgres: deactivate prompts")
	}

	now := time.Now().UTC()
	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO prompts (prompt_type, version, content, active, parent_id, created_at)
		 VALUES ($1, $2, $3, TRUE, $4, $5) RETURNING id`,
		string(pt), version, content, parentID, now,
	).Scan(&id)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert prompt")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit create prompt")
	}
	return &model.Prompt{
		ID:        id,
		Type:      pt,
		Version:   version,
		Content:   content,
		Active:    true,
		ParentID:  parentID,
		CreatedAt: now,
	}, nil
}

// ActivatePrompt makes the given version the active one for its type.
func (s *PostgresStore) ActivatePrompt(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin activate prompt")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var pt string
	err = tx.QueryRow(ctx, `SELECT prompt_type FROM prompts WHERE id = $1`, id).Scan(&pt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return eris.Wrapf(ErrNotFound, "prompt %d", id)
		}
		return eris.Wrapf(err, "postgres: get prompt type %d", id)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE prompts SET active = FALSE WHERE prompt_type = $1 AND active`, pt,
	); err != nil {
		return eris.Wrap(err, "postgres: deactivate prompts")
	}
	if _, err := tx.Exec(ctx,
		`UPDATE prompts SET active = TRUE WHERE id = $1`, id,
	); err != nil {
		return eris.Wrapf(err, "postgres: activate prompt %d", id)
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit activate prompt")
}

func (s *PostgresStore) LogPromptUse(ctx context.Context, promptID int64, entityType string, entityID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO prompt_logs (prompt_id, entity_type, entity_id, created_at) VALUES ($1, $2, $3, $4)`,
		promptID, entityType, entityID, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: log prompt use")
}

func (s *PostgresStore) StatusSummary(ctx context.Context) (*model.StatusSummary, error) {
	sum := &model.StatusSummary{Candidates: make(map[model.CandidateStatus]int)}

	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM candidates GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count candidates")
	}
	defer rows.Close()
	for rows.Next() {
		var status model.CandidateStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan candidate count")
		}
		sum.Candidates[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: count candidates iterate")
	}

	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE active) FROM vacancies`,
	).Scan(&sum.TotalVacancies, &sum.ActiveVacancies)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count vacancies")
	}

	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT distance_computed) FROM matches`,
	).Scan(&sum.Matches, &sum.MissingDistance)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count matches")
	}
	return sum, nil
}

// setEmbedding writes an embedding for candidates or vacancies. With native
// vectors it binds through pgvector; when the column turns out to be TEXT
// (schema migrated before the extension existed) it falls back to the JSON
// representation for this write without flipping the store-wide flag.
func (s *PostgresStore) setEmbedding(ctx context.Context, table, entity string, id int64, embedding []float32) error {
	now := time.Now().UTC()
	if s.nativeVectors {
		tag, err := s.pool.Exec(ctx,
			fmt.Sprintf(`UPDATE %s SET embedding = $1::vector, updated_at = $2 WHERE id = $3`, table),
			pgvector.NewVector(embedding), now, id,
		)
		if err == nil {
			if tag.RowsAffected() == 0 {
				return eris.Wrapf(ErrNotFound, "%s %d", entity, id)
			}
			return nil
		}
		if !isVectorTypeError(err) {
			return eris.Wrapf(err, "postgres: set %s embedding %d", entity, id)
		}
		zap.L().Warn("vector write failed, falling back to JSON embedding",
			zap.String("table", table),
			zap.Error(err))
	}

	enc, err := encodeVectorJSON(embedding)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET embedding = $1, updated_at = $2 WHERE id = $3`, table),
		enc, now, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set %s embedding %d", entity, id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "%s %d", entity, id)
	}
	return nil
}

// isVectorTypeError reports the Postgres error codes seen when the vector
// type or its cast is missing: undefined object, datatype mismatch and
// cannot-coerce.
func isVectorTypeError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "42704", "42804", "42846":
		return true
	}
	return false
}
