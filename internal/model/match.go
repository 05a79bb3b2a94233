package model

import "time"

// Match is one candidate/vacancy pairing kept by the matching engine.
// Score is a percentage (0-100) rounded to one decimal. DistanceKM stays
// nil until the lazy backfill visits the row; DistanceComputed marks rows
// the backfill already decided on, including the "no coordinates" case
// where the distance is a definitive null.
type Match struct {
	ID               int64     `json:"id"`
	CandidateID      int64     `json:"candidate_id"`
	VacancyID        int64     `json:"vacancy_id"`
	Score            float64   `json:"score"`
	DistanceKM       *float64  `json:"distance_km,omitempty"`
	DistanceComputed bool      `json:"distance_computed"`
	CreatedAt        time.Time `json:"created_at"`
}

// MatchDetail is a match joined with display fields for lists and exports.
type MatchDetail struct {
	Match
	CandidateName string `json:"candidate_name"`
	VacancyTitle  string `json:"vacancy_title"`
	Organization  string `json:"organization,omitempty"`
	VacancyCity   string `json:"vacancy_city,omitempty"`
}

// StatusSummary aggregates store counts for the status command and API.
type StatusSummary struct {
	Candidates      map[CandidateStatus]int `json:"candidates"`
	ActiveVacancies int                     `json:"active_vacancies"`
	TotalVacancies  int                     `json:"total_vacancies"`
	Matches         int                     `json:"matches"`
	MissingDistance int                     `json:"matches_missing_distance"`
}
