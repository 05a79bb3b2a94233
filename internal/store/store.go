package store

import (
	"context"
	"errors"

	"github.com/matchbaan/match-cli/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist. Callers
// match it with errors.Is; both store implementations share it.
var ErrNotFound = errors.New("not found")

// CandidateFilter specifies criteria for listing candidates.
type CandidateFilter struct {
	Status model.CandidateStatus `json:"status,omitempty"`
	Limit  int                   `json:"limit,omitempty"`
	Offset int                   `json:"offset,omitempty"`
}

// VacancyFilter specifies criteria for listing vacancies.
type VacancyFilter struct {
	ActiveOnly bool `json:"active_only,omitempty"`
	Limit      int  `json:"limit,omitempty"`
	Offset     int  `json:"offset,omitempty"`
}

// MatchFilter specifies criteria for listing matches.
type MatchFilter struct {
	CandidateID int64 `json:"candidate_id,omitempty"`
	VacancyID   int64 `json:"vacancy_id,omitempty"`
	Limit       int   `json:"limit,omitempty"`
	Offset      int   `json:"offset,omitempty"`
}

// Store defines the persistence interface for the matching pipeline.
type Store interface {
	// Candidates
	CreateCandidate(ctx context.Context, c *model.Candidate) error
	GetCandidate(ctx context.Context, id int64) (*model.Candidate, error)
	ListCandidates(ctx context.Context, filter CandidateFilter) ([]model.Candidate, error)
	UpdateCandidate(ctx context.Context, c *model.Candidate) error
	UpdateCandidateStatus(ctx context.Context, id int64, status model.CandidateStatus, step, errMsg string) error
	DeleteCandidate(ctx context.Context, id int64) error
	FindCandidateByEmail(ctx context.Context, email string, excludeID int64) (*model.Candidate, error)
	FindCandidateByName(ctx context.Context, name string, excludeID int64) (*model.Candidate, error)
	SetCandidateEmbedding(ctx context.Context, id int64, embedding []float32) error
	CandidatesForMatching(ctx context.Context) ([]model.Candidate, error)

	// Vacancies
	UpsertVacancy(ctx context.Context, v *model.Vacancy) (created bool, err error)
	GetVacancy(ctx context.Context, id int64) (*model.Vacancy, error)
	ListVacancies(ctx context.Context, filter VacancyFilter) ([]model.Vacancy, error)
	DeactivateVacanciesExcept(ctx context.Context, externalIDs []string) (int, error)
	SetVacancySummary(ctx context.Context, id int64, summary string) error
	SetVacancyEmbedding(ctx context.Context, id int64, embedding []float32) error
	SetVacancyLocation(ctx context.Context, id int64, lat, lon float64) error
	SetVacancyActive(ctx context.Context, id int64, active bool) error
	VacanciesForMatching(ctx context.Context) ([]model.Vacancy, error)

	// Matches
	ReplaceMatches(ctx context.Context, matches []model.Match) error
	ListMatches(ctx context.Context, filter MatchFilter) ([]model.MatchDetail, error)
	MatchesWithoutDistance(ctx context.Context) ([]model.Match, error)
	SetMatchDistance(ctx context.Context, id int64, km *float64) error

	// Prompts
	ActivePrompt(ctx context.Context, pt model.PromptType) (*model.Prompt, error)
	ListPrompts(ctx context.Context, pt model.PromptType) ([]model.Prompt, error)
	GetPrompt(ctx context.Context, id int64) (*model.Prompt, error)
	CreatePrompt(ctx context.Context, pt model.PromptType, content string, parentID *int64) (*model.Prompt, error)
	ActivatePrompt(ctx context.Context, id int64) error
	LogPromptUse(ctx context.Context, promptID int64, entityType string, entityID int64) error

	// Status
	StatusSummary(ctx context.Context) (*model.StatusSummary, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
