package model

import "time"

// PromptType identifies what a stored prompt is used for.
type PromptType string

const (
	PromptCVExtract      PromptType = "cv_extract"
	PromptProfileSummary PromptType = "profile_summary"
	PromptVacancySummary PromptType = "vacancy_summary"
)

// KnownPromptTypes lists every type the pipeline consumes.
var KnownPromptTypes = []PromptType{PromptCVExtract, PromptProfileSummary, PromptVacancySummary}

// ValidPromptType reports whether t is one of the known prompt types.
func ValidPromptType(t PromptType) bool {
	for _, k := range KnownPromptTypes {
		if t == k {
			return true
		}
	}
	return false
}

// Prompt is one immutable version of a prompt template. Edits create a new
// version pointing back at its parent; exactly one version per type is
// active at any time.
type Prompt struct {
	ID        int64      `json:"id"`
	Type      PromptType `json:"type"`
	Version   int        `json:"version"`
	Content   string     `json:"content"`
	Active    bool       `json:"active"`
	ParentID  *int64     `json:"parent_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// PromptLog records one use of a prompt version against an entity, kept so
// output quality can be traced back to the exact prompt text that produced it.
type PromptLog struct {
	ID         int64     `json:"id"`
	PromptID   int64     `json:"prompt_id"`
	EntityType string    `json:"entity_type"` // "candidate" or "vacancy"
	EntityID   int64     `json:"entity_id"`
	CreatedAt  time.Time `json:"created_at"`
}
