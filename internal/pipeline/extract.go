package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/matchbaan/match-cli/internal/model"
	"github.com/matchbaan/match-cli/internal/ocr"
	"github.com/matchbaan/match-cli/internal/prompts"
	"github.com/matchbaan/match-cli/internal/resilience"
)

// extractText runs the OCR provider over the stored PDF and saves the
// sanitized text on the candidate.
func (p *Pipeline) extractText(ctx context.Context, c *model.Candidate) error {
	if c.FilePath == "" {
		return resilience.NewValidationError("Geen CV PDF gevonden")
	}

	text, err := p.extractor.ExtractText(ctx, c.FilePath)
	if err != nil {
		return eris.Wrap(err, "pipeline: extract pdf text")
	}
	text = strings.TrimSpace(ocr.Sanitize(text))
	if text == "" {
		return resilience.NewValidationError("Geen tekst gevonden in PDF")
	}

	c.CVText = text
	return eris.Wrap(p.store.UpdateCandidate(ctx, c), "pipeline: save cv text")
}

// parseCV extracts structured fields from the CV text with the LLM, checks
// for duplicates, and saves the fields. On a duplicate hit the stored file is
// removed and a DuplicateError is returned; the extracted fields are kept so
// the failed candidate can still be inspected.
func (p *Pipeline) parseCV(ctx context.Context, c *model.Candidate) error {
	raw, err := p.complete(ctx, model.PromptCVExtract, map[string]string{
		prompts.VarCVText: truncateRunes(c.CVText, p.cvTextLimit),
	}, prompts.EntityCandidate, c.ID)
	if err != nil {
		return err
	}

	data, err := recoverJSON(raw)
	if err != nil {
		return err
	}
	applyExtraction(c, data)

	if err := p.store.UpdateCandidate(ctx, c); err != nil {
		return eris.Wrap(err, "pipeline: save extracted fields")
	}

	dup, err := p.duplicateOf(ctx, c)
	if err != nil {
		return err
	}
	if dup != nil {
		p.removeStoredFile(ctx, c)
		return dup
	}
	return nil
}

// summarize generates the Dutch profile paragraph used for matching.
func (p *Pipeline) summarize(ctx context.Context, c *model.Candidate) error {
	if strings.TrimSpace(c.CVText) == "" {
		return resilience.NewValidationError("Geen CV tekst gevonden")
	}

	out, err := p.complete(ctx, model.PromptProfileSummary, map[string]string{
		prompts.VarCVText: truncateRunes(c.CVText, p.cvTextLimit),
	}, prompts.EntityCandidate, c.ID)
	if err != nil {
		return err
	}

	c.ProfileText = strings.TrimSpace(out)
	return eris.Wrap(p.store.UpdateCandidate(ctx, c), "pipeline: save profile text")
}

// embedCandidate embeds the profile text and stores the vector.
func (p *Pipeline) embedCandidate(ctx context.Context, c *model.Candidate) error {
	if strings.TrimSpace(c.ProfileText) == "" {
		return resilience.NewValidationError("Geen profiel tekst gevonden")
	}

	vec, err := p.embed(ctx, c.ProfileText)
	if err != nil {
		return err
	}
	c.Embedding = vec
	return eris.Wrap(p.store.SetCandidateEmbedding(ctx, c.ID, vec), "pipeline: save embedding")
}

// duplicateOf checks whether another candidate already carries this email
// (exact match) or full name (case-insensitive). Email wins when both hit.
func (p *Pipeline) duplicateOf(ctx context.Context, c *model.Candidate) (*resilience.DuplicateError, error) {
	if c.Email != "" {
		existing, err := p.store.FindCandidateByEmail(ctx, c.Email, c.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &resilience.DuplicateError{ExistingID: existing.ID, Field: "email", Name: c.Email}, nil
		}
	}
	if c.FullName != "" {
		existing, err := p.store.FindCandidateByName(ctx, c.FullName, c.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &resilience.DuplicateError{ExistingID: existing.ID, Field: "naam", Name: c.FullName}, nil
		}
	}
	return nil, nil
}

// removeStoredFile deletes the uploaded PDF of a duplicate candidate and
// clears its path. Best effort: the duplicate verdict stands either way.
func (p *Pipeline) removeStoredFile(ctx context.Context, c *model.Candidate) {
	if c.FilePath == "" {
		return
	}
	if err := p.files.Remove(c.FilePath); err != nil {
		zap.L().Warn("pipeline: failed to remove duplicate upload",
			zap.Int64("candidate_id", c.ID),
			zap.String("path", c.FilePath),
			zap.Error(err))
	}
	c.FilePath = ""
	if err := p.store.UpdateCandidate(ctx, c); err != nil {
		zap.L().Warn("pipeline: failed to clear file path",
			zap.Int64("candidate_id", c.ID),
			zap.Error(err))
	}
}

// recoverJSON parses an LLM response as a JSON object, recovering from the
// usual wrapping: markdown fences, prose before or after the object.
func recoverJSON(raw string) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err == nil {
		return data, nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(raw[start:end+1]), &data); err == nil {
			return data, nil
		}
	}
	return nil, &resilience.ExtractionError{Msg: "Geen geldige JSON gevonden in OpenAI response"}
}

// applyExtraction maps the extracted JSON onto the candidate. Mapping is
// tolerant: missing keys become empty strings, numbers are accepted where
// strings are expected, and arrays are joined with ", ".
func applyExtraction(c *model.Candidate, data map[string]any) {
	c.FullName = stringField(data, "volledige_naam")
	c.Email = stringField(data, "email")
	c.Phone = stringField(data, "telefoonnummer")
	c.Street = stringField(data, "straat")
	c.HouseNumber = stringField(data, "huisnummer")
	c.PostalCode = stringField(data, "postcode")
	c.City = stringField(data, "woonplaats")
	c.EducationLevel = model.NormalizeEducation(stringField(data, "opleidingsniveau"))
	c.JobTitles = stringField(data, "functietitels")
	c.YearsExperience = stringField(data, "jaren_ervaring")
}

// stringField converts a JSON value to its string form.
func stringField(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return formatNumber(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := anyToString(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

func anyToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return formatNumber(t)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}

// formatNumber renders whole JSON numbers without a decimal point, so
// "jaren_ervaring": 5 becomes "5" rather than "5.000000".
func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
