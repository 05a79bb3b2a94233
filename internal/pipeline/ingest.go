package pipeline

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/matchbaan/match-cli/internal/model"
	"github.com/matchbaan/match-cli/internal/resilience"
)

// Ingest validates an uploaded CV, creates a queued candidate, stores the
// file, and runs the full pipeline. The returned candidate reflects the state
// after processing; on a processing error (including DuplicateError) it is
// returned alongside the error so callers can report the candidate id.
func (p *Pipeline) Ingest(ctx context.Context, filename string, data []byte) (*model.Candidate, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, resilience.NewValidationError("Alleen PDF bestanden worden ondersteund")
	}
	if len(data) == 0 {
		return nil, resilience.NewValidationError("Leeg bestand ontvangen")
	}

	c := &model.Candidate{
		OriginalFilename: filepath.Base(filename),
		Status:           model.CandidateQueued,
	}
	if err := p.store.CreateCandidate(ctx, c); err != nil {
		return nil, err
	}

	path, err := p.files.Save(c.ID, filename, bytes.NewReader(data))
	if err != nil {
		p.fail(ctx, c.ID, model.StepExtractText, err)
		return c, eris.Wrap(err, "pipeline: store upload")
	}
	c.FilePath = path
	if err := p.store.UpdateCandidate(ctx, c); err != nil {
		return c, eris.Wrap(err, "pipeline: save file path")
	}

	procErr := p.Process(ctx, c.ID)
	if fresh, getErr := p.store.GetCandidate(ctx, c.ID); getErr == nil {
		c = fresh
	}
	return c, procErr
}
