package model

import "time"

// Vacancy is a job opening synced from the XML feed. Rows are never deleted:
// vacancies absent from a sync are deactivated so existing matches keep their
// referents.
type Vacancy struct {
	ID           int64     `json:"id"`
	ExternalID   string    `json:"external_id"`
	Title        string    `json:"title"`
	Organization string    `json:"organization,omitempty"`
	City         string    `json:"city,omitempty"`
	PostalCode   string    `json:"postal_code,omitempty"`
	URL          string    `json:"url,omitempty"`
	Description  string    `json:"-"`
	Summary      string    `json:"summary,omitempty"`
	Embedding    []float32 `json:"-"`
	Lat          *float64  `json:"lat,omitempty"`
	Lon          *float64  `json:"lon,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasLocation reports whether the vacancy has cached coordinates.
func (v *Vacancy) HasLocation() bool {
	return v.Lat != nil && v.Lon != nil
}
