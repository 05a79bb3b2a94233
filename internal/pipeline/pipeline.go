// Package pipeline runs the synchronous enrichment pipeline: PDF text
// extraction, LLM field extraction with duplicate detection, profile
// summarization, embedding, and geocoding. Stages persist status and a Dutch
// step label before doing work, so the UI always shows where a candidate is
// and where a failed one died.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/matchbaan/match-cli/internal/config"
	"github.com/matchbaan/match-cli/internal/filestore"
	"github.com/matchbaan/match-cli/internal/model"
	"github.com/matchbaan/match-cli/internal/ocr"
	"github.com/matchbaan/match-cli/internal/prompts"
	"github.com/matchbaan/match-cli/internal/resilience"
	"github.com/matchbaan/match-cli/internal/store"
	"github.com/matchbaan/match-cli/pkg/geocode"
	"github.com/matchbaan/match-cli/pkg/openai"
)

// Pipeline orchestrates candidate and vacancy enrichment.
type Pipeline struct {
	cfg       *config.Config
	store     store.Store
	files     *filestore.Store
	extractor ocr.Extractor
	llm       openai.Client
	geocoder  geocode.Client
	prompts   *prompts.Manager

	retry       resilience.RetryConfig
	cvTextLimit int
}

// New creates a Pipeline with all dependencies. Retry policy and text limit
// come from cfg.Pipeline, with the standard defaults when unset.
func New(
	cfg *config.Config,
	st store.Store,
	files *filestore.Store,
	extractor ocr.Extractor,
	llm openai.Client,
	geocoder geocode.Client,
	pm *prompts.Manager,
) *Pipeline {
	attempts := cfg.Pipeline.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := time.Duration(cfg.Pipeline.RetryBackoffSecs) * time.Second
	if backoff <= 0 {
		backoff = 60 * time.Second
	}
	limit := cfg.Pipeline.CVTextLimit
	if limit <= 0 {
		limit = 4000
	}

	retry := resilience.Fixed(attempts, backoff)
	retry.OnRetry = func(attempt int, err error) {
		zap.L().Warn("pipeline: retrying call",
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	return &Pipeline{
		cfg:         cfg,
		store:       st,
		files:       files,
		extractor:   extractor,
		llm:         llm,
		geocoder:    geocoder,
		prompts:     pm,
		retry:       retry,
		cvTextLimit: limit,
	}
}

// Process runs the full pipeline for one candidate: text extraction, field
// extraction, summary, embedding, geocoding. It stops at the first failing
// stage, leaving the candidate failed at that step.
func (p *Pipeline) Process(ctx context.Context, candidateID int64) error {
	c, err := p.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return err
	}
	log := zap.L().With(zap.Int64("candidate_id", c.ID))
	log.Info("pipeline: processing candidate", zap.String("file", c.OriginalFilename))

	if err := p.stage(ctx, c, model.StepExtractText, func(ctx context.Context) error {
		return p.extractText(ctx, c)
	}); err != nil {
		return err
	}
	if err := p.stage(ctx, c, model.StepParse, func(ctx context.Context) error {
		return p.parseCV(ctx, c)
	}); err != nil {
		return err
	}

	return p.enrich(ctx, log, c)
}

// Reprocess reruns the pipeline from summarization onward using the stored CV
// text: the extracted fields are taken as valid and the PDF is never touched.
// The candidate must have CV text.
func (p *Pipeline) Reprocess(ctx context.Context, candidateID int64) error {
	c, err := p.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(c.CVText) == "" {
		return resilience.NewValidationError("Geen CV tekst gevonden")
	}

	log := zap.L().With(zap.Int64("candidate_id", c.ID))
	log.Info("pipeline: reprocessing candidate")

	// Clears any previous error message along with the status write.
	if err := p.store.UpdateCandidateStatus(ctx, c.ID, model.CandidateProcessing, model.StepReprocess, ""); err != nil {
		return eris.Wrap(err, "pipeline: mark reprocess")
	}
	return p.enrich(ctx, log, c)
}

// enrich runs the summarization, embedding, and geocoding stages shared by
// Process and Reprocess.
func (p *Pipeline) enrich(ctx context.Context, log *zap.Logger, c *model.Candidate) error {
	if err := p.stage(ctx, c, model.StepSummary, func(ctx context.Context) error {
		return p.summarize(ctx, c)
	}); err != nil {
		return err
	}
	if err := p.stage(ctx, c, model.StepEmbed, func(ctx context.Context) error {
		return p.embedCandidate(ctx, c)
	}); err != nil {
		return err
	}

	// Geocoding never fails the pipeline: an unresolvable address completes
	// the candidate with a step label saying no location was found.
	if err := p.store.UpdateCandidateStatus(ctx, c.ID, model.CandidateProcessing, model.StepGeocode, ""); err != nil {
		return eris.Wrap(err, "pipeline: mark geocoding")
	}
	step := model.StepDoneNoLocation
	if p.geocodeCandidate(ctx, log, c) {
		step = model.StepDone
	}

	if err := p.store.UpdateCandidateStatus(ctx, c.ID, model.CandidateCompleted, step, ""); err != nil {
		return eris.Wrap(err, "pipeline: mark completed")
	}
	log.Info("pipeline: candidate complete", zap.String("step", step))
	return nil
}

// stage marks the candidate as processing at the given step, runs fn, and on
// failure records the failed status with the step label and error message.
func (p *Pipeline) stage(ctx context.Context, c *model.Candidate, step string, fn func(context.Context) error) error {
	if err := p.store.UpdateCandidateStatus(ctx, c.ID, model.CandidateProcessing, step, ""); err != nil {
		return eris.Wrapf(err, "pipeline: mark step %s", step)
	}
	if err := fn(ctx); err != nil {
		p.fail(ctx, c.ID, step, err)
		return err
	}
	return nil
}

// fail records a failed status. Status writes are best effort: the original
// error is what callers get, not a status-write error.
func (p *Pipeline) fail(ctx context.Context, candidateID int64, step string, cause error) {
	zap.L().Error("pipeline: stage failed",
		zap.Int64("candidate_id", candidateID),
		zap.String("step", step),
		zap.Error(cause))
	if err := p.store.UpdateCandidateStatus(ctx, candidateID, model.CandidateFailed, step, cause.Error()); err != nil {
		zap.L().Warn("pipeline: failed to record failure",
			zap.Int64("candidate_id", candidateID),
			zap.Error(err))
	}
}

// complete resolves the active prompt for pt, renders it with vars, runs the
// chat completion under the retry policy, and logs prompt usage on success.
func (p *Pipeline) complete(ctx context.Context, pt model.PromptType, vars map[string]string, entityType string, entityID int64) (string, error) {
	prompt, err := p.prompts.Active(ctx, pt)
	if err != nil {
		return "", err
	}

	req := openai.CompletionRequest{
		System: prompts.SystemMessage(pt),
		User:   prompts.Render(prompt.Content, vars),
	}
	out, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) (string, error) {
		return p.llm.Complete(ctx, req)
	})
	if err != nil {
		return "", err
	}

	p.prompts.LogUse(ctx, prompt, entityType, entityID)
	return out, nil
}

// embed runs the embedding call under the retry policy and verifies the
// vector has the expected dimension count.
func (p *Pipeline) embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) ([]float32, error) {
		return p.llm.Embed(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	if want := p.llm.Dims(); want > 0 && len(vec) != want {
		return nil, eris.Errorf("pipeline: embedding has %d dimensions, want %d", len(vec), want)
	}
	return vec, nil
}

// truncateRunes limits s to at most n runes. LLM input limits count tokens,
// not bytes; runes keep multi-byte Dutch characters intact at the cut.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
