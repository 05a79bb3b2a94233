package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchbaan/match-cli/internal/model"
	"github.com/matchbaan/match-cli/internal/resilience"
)

func TestRecoverJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantKey string
		wantVal string
		wantErr bool
	}{
		{
			name:    "plain object",
			raw:     `{"volledige_naam": "Jan"}`,
			wantKey: "volledige_naam",
			wantVal: "Jan",
		},
		{
			name:    "markdown fenced",
			raw:     "```json\n{\"volledige_naam\": \"Jan\"}\n```",
			wantKey: "volledige_naam",
			wantVal: "Jan",
		},
		{
			name:    "prose around object",
			raw:     "Hier is de gevraagde JSON:\n{\"email\": \"jan@devries.nl\"}\nLaat het weten als er iets mist.",
			wantKey: "email",
			wantVal: "jan@devries.nl",
		},
		{
			name:    "no json at all",
			raw:     "Sorry, ik kan geen gegevens vinden.",
			wantErr: true,
		},
		{
			name:    "broken json",
			raw:     `{"volledige_naam": `,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := recoverJSON(tt.raw)
			if tt.wantErr {
				var xe *resilience.ExtractionError
				require.ErrorAs(t, err, &xe)
				assert.Contains(t, xe.Error(), "Geen geldige JSON")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVal, data[tt.wantKey])
		})
	}
}

func TestApplyExtraction(t *testing.T) {
	c := &model.Candidate{}
	applyExtraction(c, map[string]any{
		"volledige_naam":  " Jan de Vries ",
		"email":           "jan@devries.nl",
		"telefoonnummer":  float64(612345678),
		"straat":          "Hoofdstraat",
		"huisnummer":      float64(12),
		"postcode":        "3511 AD",
		"woonplaats":      "Utrecht",
		"opleidingsniveau": "hbo bachelor verpleegkunde",
		"functietitels":   []any{"Verpleegkundige", " Teamleider ", float64(3)},
		"jaren_ervaring":  float64(5),
	})

	assert.Equal(t, "Jan de Vries", c.FullName)
	assert.Equal(t, "jan@devries.nl", c.Email)
	assert.Equal(t, "612345678", c.Phone)
	assert.Equal(t, "12", c.HouseNumber)
	assert.Equal(t, "HBO", c.EducationLevel)
	assert.Equal(t, "Verpleegkundige, Teamleider, 3", c.JobTitles)
	assert.Equal(t, "5", c.YearsExperience)
}

func TestApplyExtraction_MissingAndOddTypes(t *testing.T) {
	c := &model.Candidate{}
	applyExtraction(c, map[string]any{
		"volledige_naam": nil,
		"functietitels":  "Verpleegkundige", // string instead of array
		"jaren_ervaring": 4.5,
	})

	assert.Empty(t, c.FullName)
	assert.Empty(t, c.Email)
	assert.Equal(t, "Verpleegkundige", c.JobTitles)
	assert.Equal(t, "4.5", c.YearsExperience)
	assert.Equal(t, "Overig", c.EducationLevel)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "één", truncateRunes("één zakelijke alinea", 3))
	assert.Equal(t, "kort", truncateRunes("kort", 100))
	assert.Equal(t, "alles", truncateRunes("alles", 0))
}
