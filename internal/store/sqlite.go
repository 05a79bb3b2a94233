package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/matchbaan/match-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Embeddings are
// always stored in the JSON text representation; the shared CAST-based read
// path decodes them the same way as the Postgres store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS candidates (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
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
	embedding         TEXT,
	lat               REAL,
	lon               REAL,
	status            TEXT NOT NULL DEFAULT 'queued',
	processing_step   TEXT NOT NULL DEFAULT '',
	error_message     TEXT NOT NULL DEFAULT '',
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_candidates_status ON candidates(status);
CREATE INDEX IF NOT EXISTS idx_candidates_email ON candidates(email);

CREATE TABLE IF NOT EXISTS vacancies (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	external_id  TEXT NOT NULL UNIQUE,
	title        TEXT NOT NULL DEFAULT '',
	organization TEXT NOT NULL DEFAULT '',
	city         TEXT NOT NULL DEFAULT '',
	postal_code  TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	summary      TEXT NOT NULL DEFAULT '',
	embedding    TEXT,
	lat          REAL,
	lon          REAL,
	active       INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_vacancies_active ON vacancies(active);

CREATE TABLE IF NOT EXISTS matches (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	candidate_id      INTEGER NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
	vacancy_id        INTEGER NOT NULL REFERENCES vacancies(id) ON DELETE CASCADE,
	score             REAL NOT NULL,
	distance_km       REAL,
	distance_computed INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_matches_score ON matches(score DESC);
CREATE INDEX IF NOT EXISTS idx_matches_candidate ON matches(candidate_id);

CREATE TABLE IF NOT EXISTS prompts (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	prompt_type TEXT NOT NULL,
	version     INTEGER NOT NULL,
	content     TEXT NOT NULL,
	active      INTEGER NOT NULL DEFAULT 0,
	parent_id   INTEGER REFERENCES prompts(id),
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (prompt_type, version)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_prompts_one_active ON prompts(prompt_type) WHERE active = 1;

CREATE TABLE IF NOT EXISTS prompt_logs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	prompt_id   INTEGER NOT NULL REFERENCES prompts(id) ON DELETE CASCADE,
	entity_type TEXT NOT NULL,
	entity_id   INTEGER NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_prompt_logs_prompt ON prompt_logs(prompt_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateCandidate(ctx context.Context, c *model.Candidate) error {
	now := time.Now().UTC()
	if c.Status == "" {
		c.Status = model.CandidateQueued
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO candidates (file_path, original_filename, cv_text, full_name, email, phone, street, house_number, postal_code, city, education_level, job_titles, years_experience, profile_text, status, processing_step, error_message, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.FilePath, c.OriginalFilename, c.CVText, c.FullName, c.Email, c.Phone,
		c.Street, c.HouseNumber, c.PostalCode, c.City, c.EducationLevel,
		c.JobTitles, c.YearsExperience, c.ProfileText, string(c.Status),
		c.ProcessingStep, c.ErrorMessage, now, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert candidate")
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: last insert id")
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) GetCandidate(ctx context.Context, id int64) (*model.Candidate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE id = ?`, id)
	c, err := scanCandidate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "candidate %d", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get candidate %d", id)
	}
	return c, nil
}

func (s *SQLiteStore) ListCandidates(ctx context.Context, filter CandidateFilter) ([]model.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

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
		return nil, eris.Wrap(err, "sqlite: list candidates")
	}
	defer rows.Close()

	var candidates []model.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan candidate")
		}
		candidates = append(candidates, *c)
	}
	return candidates, eris.Wrap(rows.Err(), "sqlite: list candidates iterate")
}

// UpdateCandidate writes every mutable candidate field except the embedding,
// which goes through SetCandidateEmbedding.
func (s *SQLiteStore) UpdateCandidate(ctx context.Context, c *model.Candidate) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE candidates SET file_path = ?, original_filename = ?, cv_text = ?, full_name = ?, email = ?, phone = ?, street = ?, house_number = ?, postal_code = ?, city = ?, education_level = ?, job_titles = ?, years_experience = ?, profile_text = ?, lat = ?, lon = ?, status = ?, processing_step = ?, error_message = ?, updated_at = ?
		 WHERE id = ?`,
		c.FilePath, c.OriginalFilename, c.CVText, c.FullName, c.Email, c.Phone,
		c.Street, c.HouseNumber, c.PostalCode, c.City, c.EducationLevel,
		c.JobTitles, c.YearsExperience, c.ProfileText, c.Lat, c.Lon,
		string(c.Status), c.ProcessingStep, c.ErrorMessage, now, c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update candidate %d", c.ID)
	}
	if err := checkRowsAffected(res, "candidate", c.ID); err != nil {
		return err
	}
	c.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) UpdateCandidateStatus(ctx context.Context, id int64, status model.CandidateStatus, step, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE candidates SET status = ?, processing_step = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		string(status), step, errMsg, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update candidate status %d", id)
	}
	return checkRowsAffected(res, "candidate", id)
}

func (s *SQLiteStore) DeleteCandidate(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM candidates WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete candidate %d", id)
	}
	return checkRowsAffected(res, "candidate", id)
}

func (s *SQLiteStore) FindCandidateByEmail(ctx context.Context, email string, excludeID int64) (*model.Candidate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE email = ? AND id <> ? ORDER BY id LIMIT 1`,
		email, excludeID,
	)
	c, err := scanCandidate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: find candidate by email")
	}
	return c, nil
}

func (s *SQLiteStore) FindCandidateByName(ctx context.Context, name string, excludeID int64) (*model.Candidate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE LOWER(full_name) = LOWER(?) AND id <> ? ORDER BY id LIMIT 1`,
		name, excludeID,
	)
	c, err := scanCandidate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: find candidate by name")
	}
	return c, nil
}

func (s *SQLiteStore) SetCandidateEmbedding(ctx context.Context, id int64, embedding []float32) error {
	return s.setEmbedding(ctx, "candidates", "candidate", id, embedding)
}

func (s *SQLiteStore) CandidatesForMatching(ctx context.Context) ([]model.Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE status = ? AND embedding IS NOT NULL ORDER BY id`,
		string(model.CandidateCompleted),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: candidates for matching")
	}
	defer rows.Close()

	var candidates []model.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan candidate")
		}
		candidates = append(candidates, *c)
	}
	return candidates, eris.Wrap(rows.Err(), "sqlite: candidates for matching iterate")
}

// UpsertVacancy mirrors the Postgres ON CONFLICT behavior with an explicit
// lookup inside a transaction: new rows start inactive, existing rows are
// reactivated, and a changed description clears the summary and embedding.
func (s *SQLiteStore) UpsertVacancy(ctx context.Context, v *model.Vacancy) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: begin upsert vacancy")
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	var id int64
	var oldDescription string
	var createdAt time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT id, description, created_at FROM vacancies WHERE external_id = ?`,
		v.ExternalID,
	).Scan(&id, &oldDescription, &createdAt)

	if errors.Is(err, sql.ErrNoRows) {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO vacancies (external_id, title, organization, city, postal_code, url, description, active, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
			v.ExternalID, v.Title, v.Organization, v.City, v.PostalCode, v.URL,
			v.Description, now, now,
		)
		if err != nil {
			return false, eris.Wrapf(err, "sqlite: insert vacancy %s", v.ExternalID)
		}
		v.ID, err = res.LastInsertId()
		if err != nil {
			return false, eris.Wrap(err, "sqlite: last insert id")
		}
		v.Active = false
		v.CreatedAt = now
		v.UpdatedAt = now
		if err := tx.Commit(); err != nil {
			return false, eris.Wrap(err, "sqlite: commit upsert vacancy")
		}
		return true, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: lookup vacancy %s", v.ExternalID)
	}

	if oldDescription == v.Description {
		_, err = tx.ExecContext(ctx,
			`UPDATE vacancies SET title = ?, organization = ?, city = ?, postal_code = ?, url = ?, active = 1, updated_at = ? WHERE id = ?`,
			v.Title, v.Organization, v.City, v.PostalCode, v.URL, now, id,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE vacancies SET title = ?, organization = ?, city = ?, postal_code = ?, url = ?, description = ?, summary = '', embedding = NULL, active = 1, updated_at = ? WHERE id = ?`,
			v.Title, v.Organization, v.City, v.PostalCode, v.URL, v.Description, now, id,
		)
	}
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: update vacancy %s", v.ExternalID)
	}
	v.ID = id
	v.Active = true
	v.CreatedAt = createdAt
	v.UpdatedAt = now
	if err := tx.Commit(); err != nil {
		return false, eris.Wrap(err, "sqlite: commit upsert vacancy")
	}
	return false, nil
}

func (s *SQLiteStore) GetVacancy(ctx context.Context, id int64) (*model.Vacancy, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+vacancyColumns+` FROM vacancies WHERE id = ?`, id)
	v, err := scanVacancy(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "vacancy %d", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get vacancy %d", id)
	}
	return v, nil
}

func (s *SQLiteStore) ListVacancies(ctx context.Context, filter VacancyFilter) ([]model.Vacancy, error) {
	query := `SELECT ` + vacancyColumns + ` FROM vacancies WHERE 1=1`
	args := []any{}

	if filter.ActiveOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY created_at DESC, id DESC`

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
		return nil, eris.Wrap(err, "sqlite: list vacancies")
	}
	defer rows.Close()

	var vacancies []model.Vacancy
	for rows.Next() {
		v, err := scanVacancy(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan vacancy")
		}
		vacancies = append(vacancies, *v)
	}
	return vacancies, eris.Wrap(rows.Err(), "sqlite: list vacancies iterate")
}

func (s *SQLiteStore) DeactivateVacanciesExcept(ctx context.Context, keep []string) (int, error) {
	query := `UPDATE vacancies SET active = 0, updated_at = ? WHERE active = 1`
	args := []any{time.Now().UTC()}
	if len(keep) > 0 {
		query += ` AND external_id NOT IN (?` + strings.Repeat(", ?", len(keep)-1) + `)`
		for _, id := range keep {
			args = append(args, id)
		}
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: deactivate vacancies")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) SetVacancySummary(ctx context.Context, id int64, summary string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE vacancies SET summary = ?, updated_at = ? WHERE id = ?`,
		summary, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set vacancy summary %d", id)
	}
	return checkRowsAffected(res, "vacancy", id)
}

func (s *SQLiteStore) SetVacancyEmbedding(ctx context.Context, id int64, embedding []float32) error {
	return s.setEmbedding(ctx, "vacancies", "vacancy", id, embedding)
}

func (s *SQLiteStore) SetVacancyLocation(ctx context.Context, id int64, lat, lon float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE vacancies SET lat = ?, lon = ?, updated_at = ? WHERE id = ?`,
		lat, lon, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set vacancy location %d", id)
	}
	return checkRowsAffected(res, "vacancy", id)
}

func (s *SQLiteStore) SetVacancyActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE vacancies SET active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set vacancy active %d", id)
	}
	return checkRowsAffected(res, "vacancy", id)
}

func (s *SQLiteStore) VacanciesForMatching(ctx context.Context) ([]model.Vacancy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+vacancyColumns+` FROM vacancies WHERE active = 1 AND embedding IS NOT NULL ORDER BY id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: vacancies for matching")
	}
	defer rows.Close()

	var vacancies []model.Vacancy
	for rows.Next() {
		v, err := scanVacancy(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan vacancy")
		}
		vacancies = append(vacancies, *v)
	}
	return vacancies, eris.Wrap(rows.Err(), "sqlite: vacancies for matching iterate")
}

func (s *SQLiteStore) ReplaceMatches(ctx context.Context, matches []model.Match) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace matches")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM matches`); err != nil {
		return eris.Wrap(err, "sqlite: clear matches")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO matches (candidate_id, vacancy_id, score, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert match")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, m := range matches {
		if _, err := stmt.ExecContext(ctx, m.CandidateID, m.VacancyID, m.Score, now); err != nil {
			return eris.Wrapf(err, "sqlite: insert match %d/%d", m.CandidateID, m.VacancyID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit replace matches")
}

func (s *SQLiteStore) ListMatches(ctx context.Context, filter MatchFilter) ([]model.MatchDetail, error) {
	query := `SELECT ` + matchDetailColumns + ` FROM matches m
		JOIN candidates c ON c.id = m.candidate_id
		JOIN vacancies v ON v.id = m.vacancy_id
		WHERE 1=1`
	args := []any{}

	if filter.CandidateID > 0 {
		query += ` AND m.candidate_id = ?`
		args = append(args, filter.CandidateID)
	}
	if filter.VacancyID > 0 {
		query += ` AND m.vacancy_id = ?`
		args = append(args, filter.VacancyID)
	}
	query += ` ORDER BY m.score DESC, m.candidate_id, m.vacancy_id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 250
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list matches")
	}
	defer rows.Close()

	var matches []model.MatchDetail
	for rows.Next() {
		d, err := scanMatchDetail(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan match")
		}
		matches = append(matches, *d)
	}
	return matches, eris.Wrap(rows.Err(), "sqlite: list matches iterate")
}

func (s *SQLiteStore) MatchesWithoutDistance(ctx context.Context) ([]model.Match, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE distance_computed = 0 ORDER BY id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: matches without distance")
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan match")
		}
		matches = append(matches, *m)
	}
	return matches, eris.Wrap(rows.Err(), "sqlite: matches without distance iterate")
}

func (s *SQLiteStore) SetMatchDistance(ctx context.Context, id int64, km *float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE matches SET distance_km = ?, distance_computed = 1 WHERE id = ?`,
		km, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set match distance %d", id)
	}
	return checkRowsAffected(res, "match", id)
}

func (s *SQLiteStore) ActivePrompt(ctx context.Context, pt model.PromptType) (*model.Prompt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+promptColumns+` FROM prompts WHERE prompt_type = ? AND active = 1`,
		string(pt),
	)
	p, err := scanPrompt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "active prompt %s", pt)
		}
		return nil, eris.Wrapf(err, "sqlite: active prompt %s", pt)
	}
	return p, nil
}

func (s *SQLiteStore) ListPrompts(ctx context.Context, pt model.PromptType) ([]model.Prompt, error) {
	query := `SELECT ` + promptColumns + ` FROM prompts WHERE 1=1`
	args := []any{}
	if pt != "" {
		query += ` AND prompt_type = ?`
		args = append(args, string(pt))
	}
	query += ` ORDER BY prompt_type, version DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list prompts")
	}
	defer rows.Close()

	var prompts []model.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan prompt")
		}
		prompts = append(prompts, *p)
	}
	return prompts, eris.Wrap(rows.Err(), "sqlite: list prompts iterate")
}

func (s *SQLiteStore) GetPrompt(ctx context.Context, id int64) (*model.Prompt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+promptColumns+` FROM prompts WHERE id = ?`, id)
	p, err := scanPrompt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "prompt %d", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get prompt %d", id)
	}
	return p, nil
}

func (s *SQLiteStore) CreatePrompt(ctx context.Context, pt model.PromptType, content string, parentID *int64) (*model.Prompt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin create prompt")
	}
	defer func() { _ = tx.Rollback() }()

	var version int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM prompts WHERE prompt_type = ?`,
		string(pt),
	).Scan(&version)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: next prompt version")
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE prompts SET active = 0 WHERE prompt_type = ? AND active = 1`,
		string(pt),
	); err != nil {
		return nil, eris.Wrap(err, "sqlite: deactivate prompts")
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO prompts (prompt_type, version, content, active, parent_id, created_at)
		 VALUES (?, ?, ?, 1, ?, ?)`,
		string(pt), version, content, parentID, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert prompt")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: last insert id")
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit create prompt")
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

func (s *SQLiteStore) ActivatePrompt(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin activate prompt")
	}
	defer func() { _ = tx.Rollback() }()

	var pt string
	err = tx.QueryRowContext(ctx, `SELECT prompt_type FROM prompts WHERE id = ?`, id).Scan(&pt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return eris.Wrapf(ErrNotFound, "prompt %d", id)
		}
		return eris.Wrapf(err, "sqlite: get prompt type %d", id)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE prompts SET active = 0 WHERE prompt_type = ? AND active = 1`, pt,
	); err != nil {
		return eris.Wrap(err, "sqlite: deactivate prompts")
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE prompts SET active = 1 WHERE id = ?`, id,
	); err != nil {
		return eris.Wrapf(err, "sqlite: activate prompt %d", id)
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit activate prompt")
}

func (s *SQLiteStore) LogPromptUse(ctx context.Context, promptID int64, entityType string, entityID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prompt_logs (prompt_id, entity_type, entity_id, created_at) VALUES (?, ?, ?, ?)`,
		promptID, entityType, entityID, time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: log prompt use")
}

func (s *SQLiteStore) StatusSummary(ctx context.Context) (*model.StatusSummary, error) {
	sum := &model.StatusSummary{Candidates: make(map[model.CandidateStatus]int)}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM candidates GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count candidates")
	}
	defer rows.Close()
	for rows.Next() {
		var status model.CandidateStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan candidate count")
		}
		sum.Candidates[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: count candidates iterate")
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN active = 1 THEN 1 ELSE 0 END), 0) FROM vacancies`,
	).Scan(&sum.TotalVacancies, &sum.ActiveVacancies)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count vacancies")
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN distance_computed = 0 THEN 1 ELSE 0 END), 0) FROM matches`,
	).Scan(&sum.Matches, &sum.MissingDistance)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count matches")
	}
	return sum, nil
}

// setEmbedding writes the JSON representation, the only one SQLite carries.
func (s *SQLiteStore) setEmbedding(ctx context.Context, table, entity string, id int64, embedding []float32) error {
	enc, err := encodeVectorJSON(embedding)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET embedding = ?, updated_at = ? WHERE id = ?`, table),
		enc, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set %s embedding %d", entity, id)
	}
	return checkRowsAffected(res, entity, id)
}

// helpers

func checkRowsAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %d", entity, id)
	}
	return nil
}
