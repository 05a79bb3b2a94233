package model

import "strings"

// Education level categories used across candidates. Free-text CV levels are
// collapsed onto this fixed set so filtering and reporting stay sane.
const (
	EducationVMBO  = "VMBO"
	EducationVWO   = "VWO"
	EducationHAVO  = "HAVO"
	EducationMBO   = "MBO"
	EducationHBO   = "HBO"
	EducationWO    = "WO"
	EducationOther = "Overig"
)

// educationRule maps a lowercase keyword to its category. Rules are checked
// in order and the first keyword contained in the input wins, so entries
// whose keywords contain other keywords ("vmbo" vs "mbo", "vwo" vs "wo")
// must come first.
type educationRule struct {
	keyword  string
	category string
}

var educationRules = []educationRule{
	{"vmbo", EducationVMBO},
	{"mavo", EducationVMBO},
	{"vwo", EducationVWO},
	{"gymnasium", EducationVWO},
	{"atheneum", EducationVWO},
	{"havo", EducationHAVO},
	{"universit", EducationWO}, // universiteit, universitair, university
	{"master", EducationWO},
	{"msc", EducationWO},
	{"phd", EducationWO},
	{"doctor", EducationWO},
	{"hogeschool", EducationHBO},
	{"bachelor", EducationHBO},
	{"hbo", EducationHBO},
	{"hts", EducationHBO},
	{"heao", EducationHBO},
	{"mbo", EducationMBO},
	{"roc", EducationMBO},
	{"mts", EducationMBO},
	{"meao", EducationMBO},
	{"wo", EducationWO},
}

// NormalizeEducation collapses a free-text education level onto one of the
// fixed categories. Matching is case-insensitive substring containment in
// rule order; anything unmatched (including empty input) becomes Overig.
// The mapping is deliberately lossy but deterministic.
func NormalizeEducation(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return EducationOther
	}
	for _, r := range educationRules {
		if strings.Contains(s, r.keyword) {
			return r.category
		}
	}
	return EducationOther
}
