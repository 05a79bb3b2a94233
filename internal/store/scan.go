package store

import (
	"github.com/matchbaan/match-cli/internal/model"
)

// scannable covers pgx.Row, pgx.Rows, *sql.Row and *sql.Rows, so both store
// implementations share one set of row mappers.
type scannable interface {
	Scan(dest ...any) error
}

// Shared SELECT column lists. CAST(embedding AS TEXT) reads identically on
// every backend: pgvector columns render their text form, JSON text columns
// pass through unchanged, NULL stays NULL. SQLite accepts the same cast.
const (
	candidateColumns = `id, file_path, original_filename, cv_text, full_name, email, phone, street, house_number, postal_code, city, education_level, job_titles, years_experience, profile_text, CAST(embedding AS TEXT), lat, lon, status, processing_step, error_message, created_at, updated_at`

	vacancyColumns = `id, external_id, title, organization, city, postal_code, url, description, summary, CAST(embedding AS TEXT), lat, lon, active, created_at, updated_at`

	matchColumns = `id, candidate_id, vacancy_id, score, distance_km, distance_computed, created_at`

	matchDetailColumns = `m.id, m.candidate_id, m.vacancy_id, m.score, m.distance_km, m.distance_computed, m.created_at, c.full_name, v.title, v.organization, v.city`

	promptColumns = `id, prompt_type, version, content, active, parent_id, created_at`
)

func scanCandidate(row scannable) (*model.Candidate, error) {
	var c model.Candidate
	var embedding *string
	if err := row.Scan(
		&c.ID, &c.FilePath, &c.OriginalFilename, &c.CVText, &c.FullName,
		&c.Email, &c.Phone, &c.Street, &c.HouseNumber, &c.PostalCode,
		&c.City, &c.EducationLevel, &c.JobTitles, &c.YearsExperience,
		&c.ProfileText, &embedding, &c.Lat, &c.Lon, &c.Status,
		&c.ProcessingStep, &c.ErrorMessage, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if embedding != nil {
		vec, err := decodeVector(*embedding)
		if err != nil {
			return nil, err
		}
		c.Embedding = vec
	}
	return &c, nil
}

func scanVacancy(row scannable) (*model.Vacancy, error) {
	var v model.Vacancy
	var embedding *string
	if err := row.Scan(
		&v.ID, &v.ExternalID, &v.Title, &v.Organization, &v.City,
		&v.PostalCode, &v.URL, &v.Description, &v.Summary, &embedding,
		&v.Lat, &v.Lon, &v.Active, &v.CreatedAt, &v.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if embedding != nil {
		vec, err := decodeVector(*embedding)
		if err != nil {
			return nil, err
		}
		v.Embedding = vec
	}
	return &v, nil
}

func scanMatch(row scannable) (*model.Match, error) {
	var m model.Match
	if err := row.Scan(
		&m.ID, &m.CandidateID, &m.VacancyID, &m.Score,
		&m.DistanceKM, &m.DistanceComputed, &m.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

func scanMatchDetail(row scannable) (*model.MatchDetail, error) {
	var d model.MatchDetail
	if err := row.Scan(
		&d.ID, &d.CandidateID, &d.VacancyID, &d.Score,
		&d.DistanceKM, &d.DistanceComputed, &d.CreatedAt,
		&d.CandidateName, &d.VacancyTitle, &d.Organization, &d.VacancyCity,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

func scanPrompt(row scannable) (*model.Prompt, error) {
	var p model.Prompt
	if err := row.Scan(
		&p.ID, &p.Type, &p.Version, &p.Content, &p.Active,
		&p.ParentID, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
