package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/matchbaan/match-cli/internal/model"
	"github.com/matchbaan/match-cli/internal/prompts"
	"github.com/matchbaan/match-cli/internal/resilience"
	"github.com/matchbaan/match-cli/internal/store"
)

// ProcessVacancy enriches one vacancy: summary from the feed description,
// then an embedding over the summary, then activation. Vacancies only become
// matchable (active) once both steps succeeded.
func (p *Pipeline) ProcessVacancy(ctx context.Context, vacancyID int64) error {
	v, err := p.store.GetVacancy(ctx, vacancyID)
	if err != nil {
		return err
	}
	log := zap.L().With(
		zap.Int64("vacancy_id", v.ID),
		zap.String("external_id", v.ExternalID))

	if strings.TrimSpace(v.Description) == "" {
		return resilience.NewValidationError("Geen vacaturetekst gevonden")
	}

	log.Info("pipeline: processing vacancy", zap.String("step", model.StepVacancySummary))
	summary, err := p.complete(ctx, model.PromptVacancySummary, map[string]string{
		prompts.VarDescription: truncateRunes(v.Description, p.cvTextLimit),
	}, prompts.EntityVacancy, v.ID)
	if err != nil {
		return err
	}
	summary = strings.TrimSpace(summary)
	if err := p.store.SetVacancySummary(ctx, v.ID, summary); err != nil {
		return eris.Wrap(err, "pipeline: save vacancy summary")
	}

	log.Info("pipeline: embedding vacancy", zap.String("step", model.StepEmbed))
	vec, err := p.embed(ctx, summary)
	if err != nil {
		return err
	}
	if err := p.store.SetVacancyEmbedding(ctx, v.ID, vec); err != nil {
		return eris.Wrap(err, "pipeline: save vacancy embedding")
	}

	if err := p.store.SetVacancyActive(ctx, v.ID, true); err != nil {
		return eris.Wrap(err, "pipeline: activate vacancy")
	}
	log.Info("pipeline: vacancy complete")
	return nil
}

// ProcessAllVacancies enriches every vacancy that has a description but no
// embedding yet: new rows from a feed sync and rows whose description changed
// (which clears summary and embedding). Entities are processed sequentially
// with the configured bulk delay between them.
func (p *Pipeline) ProcessAllVacancies(ctx context.Context) (*BatchResult, error) {
	var ids []int64
	const page = 200
	for offset := 0; ; offset += page {
		vacancies, err := p.store.ListVacancies(ctx, store.VacancyFilter{Limit: page, Offset: offset})
		if err != nil {
			return nil, err
		}
		for i := range vacancies {
			if len(vacancies[i].Embedding) == 0 && strings.TrimSpace(vacancies[i].Description) != "" {
				ids = append(ids, vacancies[i].ID)
			}
		}
		if len(vacancies) < page {
			break
		}
	}

	zap.L().Info("pipeline: processing vacancies without embedding", zap.Int("count", len(ids)))
	return p.runBatch(ctx, ids, p.bulkDelay(), "vacature", p.ProcessVacancy)
}

// bulkDelay returns the configured pause between bulk entities.
func (p *Pipeline) bulkDelay() time.Duration {
	return time.Duration(p.cfg.Pipeline.BulkDelayMs) * time.Millisecond
}
