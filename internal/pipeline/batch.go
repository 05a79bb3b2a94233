package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matchbaan/match-cli/internal/resilience"
)

// BatchResult summarizes a bulk processing run.
type BatchResult struct {
	Processed  int      `json:"processed"`
	Duplicates int      `json:"duplicates"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}

// ProcessAll runs the pipeline for the given candidates sequentially, pausing
// delay between entities to spread load on the LLM and geocoding services.
// Candidates with stored CV text are reprocessed from summarization onward;
// the rest go through the full pipeline including PDF extraction and field
// parsing. Duplicates are counted separately and do not fail the batch. A
// delay <= 0 uses the configured bulk delay.
func (p *Pipeline) ProcessAll(ctx context.Context, ids []int64, delay time.Duration) (*BatchResult, error) {
	if delay <= 0 {
		delay = p.bulkDelay()
	}
	return p.runBatch(ctx, ids, delay, "kandidaat", p.processOne)
}

// processOne picks the cheapest correct entry point for a candidate: stored
// text means the fields were already extracted once and stay as they are.
func (p *Pipeline) processOne(ctx context.Context, id int64) error {
	c, err := p.store.GetCandidate(ctx, id)
	if err != nil {
		return err
	}
	if strings.TrimSpace(c.CVText) == "" {
		return p.Process(ctx, id)
	}
	return p.Reprocess(ctx, id)
}

// runBatch drives a sequential bulk run. Per-entity failures are collected;
// only context cancellation aborts the batch.
func (p *Pipeline) runBatch(ctx context.Context, ids []int64, delay time.Duration, label string, fn func(context.Context, int64) error) (*BatchResult, error) {
	res := &BatchResult{}
	for i, id := range ids {
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		err := fn(ctx, id)
		var dup *resilience.DuplicateError
		switch {
		case err == nil:
			res.Processed++
		case errors.As(err, &dup):
			res.Duplicates++
			res.Errors = append(res.Errors, fmt.Sprintf("%s %d: %v", label, id, err))
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s %d: %v", label, id, err))
			return res, err
		default:
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s %d: %v", label, id, err))
		}
	}

	zap.L().Info("pipeline: batch complete",
		zap.String("entity", label),
		zap.Int("processed", res.Processed),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("failed", res.Failed))
	return res, nil
}
