package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEducation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", EducationOther},
		{"whitespace only", "   ", EducationOther},
		{"plain wo", "WO", EducationWO},
		{"university name", "Universiteit van Amsterdam", EducationWO},
		{"english university", "University of Groningen", EducationWO},
		{"master degree", "Master Bedrijfskunde", EducationWO},
		{"msc", "MSc Computer Science", EducationWO},
		{"phd", "PhD kandidaat", EducationWO},
		{"doctoraal", "Doctoraal examen", EducationWO},
		{"hbo", "HBO Bedrijfseconomie", EducationHBO},
		{"hogeschool", "Hogeschool Rotterdam", EducationHBO},
		{"bachelor", "Bachelor Verpleegkunde", EducationHBO},
		{"hts", "HTS Werktuigbouwkunde", EducationHBO},
		{"mbo", "MBO niveau 4", EducationMBO},
		{"roc", "ROC Midden Nederland", EducationMBO},
		{"mts", "MTS Elektrotechniek", EducationMBO},
		{"vwo not wo", "VWO", EducationVWO},
		{"gymnasium", "Gymnasium B", EducationVWO},
		{"atheneum", "Atheneum", EducationVWO},
		{"havo", "HAVO diploma", EducationHAVO},
		{"vmbo not mbo", "VMBO-TL", EducationVMBO},
		{"mavo", "MAVO", EducationVMBO},
		{"lowercase input", "hbo rechten", EducationHBO},
		{"mixed case", "HbO", EducationHBO},
		{"unknown", "Cursus lassen", EducationOther},
		{"university bachelor prefers wo", "Universiteit Utrecht, Bachelor", EducationWO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormalizeEducation(tt.in), "input %q", tt.in)
		})
	}
}

func TestNormalizeEducationDeterministic(t *testing.T) {
	t.Parallel()

	// Same input always lands in the same category, regardless of call count.
	for i := 0; i < 3; i++ {
		assert.Equal(t, EducationVMBO, NormalizeEducation("vmbo kader"))
		assert.Equal(t, EducationVWO, NormalizeEducation("vwo"))
	}
}
