package model

import "time"

// CandidateStatus represents the processing lifecycle of a candidate.
type CandidateStatus string

const (
	CandidateQueued     CandidateStatus = "queued"
	CandidateProcessing CandidateStatus = "processing"
	CandidateCompleted  CandidateStatus = "completed"
	CandidateFailed     CandidateStatus = "failed"
)

// Processing step labels as surfaced to users. These are Dutch on purpose:
// the pipeline serves a Dutch recruitment workflow and recruiters read them
// verbatim in the status views.
const (
	StepExtractText    = "PDF tekst extractie"
	StepParse          = "CV parsing"
	StepSummary        = "Profiel samenvatting"
	StepEmbed          = "Embedding generatie"
	StepGeocode        = "Geocoding"
	StepDone           = "Voltooid"
	StepDoneNoLocation = "Voltooid (geen locatie gevonden)"
	StepReprocess      = "Opnieuw verwerken"
	StepVacancySummary = "Samenvatting"
)

// Candidate is a CV-sourced person moving through the enrichment pipeline.
type Candidate struct {
	ID               int64           `json:"id"`
	FilePath         string          `json:"file_path,omitempty"`
	OriginalFilename string          `json:"original_filename,omitempty"`
	CVText           string          `json:"-"`
	FullName         string          `json:"full_name"`
	Email            string          `json:"email"`
	Phone            string          `json:"phone,omitempty"`
	Street           string          `json:"street,omitempty"`
	HouseNumber      string          `json:"house_number,omitempty"`
	PostalCode       string          `json:"postal_code,omitempty"`
	City             string          `json:"city,omitempty"`
	EducationLevel   string          `json:"education_level,omitempty"`
	JobTitles        string          `json:"job_titles,omitempty"` // comma-joined
	YearsExperience  string          `json:"years_experience,omitempty"`
	ProfileText      string          `json:"profile_text,omitempty"`
	Embedding        []float32       `json:"-"`
	Lat              *float64        `json:"lat,omitempty"`
	Lon              *float64        `json:"lon,omitempty"`
	Status           CandidateStatus `json:"status"`
	ProcessingStep   string          `json:"processing_step,omitempty"`
	ErrorMessage     string          `json:"error_message,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// HasLocation reports whether geocoding resolved coordinates for the candidate.
func (c *Candidate) HasLocation() bool {
	return c.Lat != nil && c.Lon != nil
}
