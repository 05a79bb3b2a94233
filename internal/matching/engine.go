// Package matching recomputes the candidate/vacancy match table from
// stored embeddings and lazily backfills travel distances.
package matching

import (
	"context"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matchbaan/match-cli/internal/model"
	"github.com/matchbaan/match-cli/internal/store"
)

const defaultTopK = 250

// Engine scores every completed candidate against every active vacancy.
type Engine struct {
	store store.Store
	topK  int
}

// NewEngine creates an Engine keeping the topK highest-scoring pairs.
func NewEngine(st store.Store, topK int) *Engine {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Engine{store: st, topK: topK}
}

// Result reports what a matching run saw and kept.
type Result struct {
	Candidates int `json:"candidates"`
	Vacancies  int `json:"vacancies"`
	Pairs      int `json:"pairs"`
	Kept       int `json:"kept"`
}

// Run recomputes all matches from scratch: exhaustive pairwise cosine
// similarity, scores as percentages rounded to one decimal, non-positive
// scores dropped, the top-K kept and swapped into the match table in one
// transaction. Rows land with distance_computed=false for the backfill.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	var (
		candidates []model.Candidate
		vacancies  []model.Vacancy
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := e.store.CandidatesForMatching(gctx)
		if err != nil {
			return eris.Wrap(err, "matching: load candidates")
		}
		// The query filters NULLs; blank and empty-array embeddings decode
		// to nil and are dropped here.
		candidates = make([]model.Candidate, 0, len(rows))
		for i := range rows {
			if len(rows[i].Embedding) > 0 {
				candidates = append(candidates, rows[i])
			}
		}
		return nil
	})
	g.Go(func() error {
		rows, err := e.store.VacanciesForMatching(gctx)
		if err != nil {
			return eris.Wrap(err, "matching: load vacancies")
		}
		vacancies = make([]model.Vacancy, 0, len(rows))
		for i := range rows {
			if len(rows[i].Embedding) > 0 {
				vacancies = append(vacancies, rows[i])
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var pairs []model.Match
	for i := range candidates {
		c := &candidates[i]
		for j := range vacancies {
			v := &vacancies[j]
			if len(c.Embedding) != len(v.Embedding) {
				zap.L().Debug("matching: embedding dimensions differ",
					zap.Int64("candidate_id", c.ID),
					zap.Int64("vacancy_id", v.ID),
					zap.Int("candidate_dims", len(c.Embedding)),
					zap.Int("vacancy_dims", len(v.Embedding)),
				)
				continue
			}
			score := round1(CosineSimilarity(c.Embedding, v.Embedding) * 100)
			if score <= 0 {
				continue
			}
			pairs = append(pairs, model.Match{
				CandidateID: c.ID,
				VacancyID:   v.ID,
				Score:       score,
			})
		}
	}
	scored := len(pairs)

	// Stable sort keeps enumeration order (candidate-major, vacancy-minor)
	// for equal scores.
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Score > pairs[j].Score })
	if len(pairs) > e.topK {
		pairs = pairs[:e.topK]
	}

	if err := e.store.ReplaceMatches(ctx, pairs); err != nil {
		return nil, eris.Wrap(err, "matching: replace matches")
	}

	zap.L().Info("matching: run complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("vacancies", len(vacancies)),
		zap.Int("pairs", scored),
		zap.Int("kept", len(pairs)),
	)

	return &Result{
		Candidates: len(candidates),
		Vacancies:  len(vacancies),
		Pairs:      scored,
		Kept:       len(pairs),
	}, nil
}

// CosineSimilarity returns the cosine of the angle between two embeddings,
// accumulating in float64. Mismatched lengths and zero-norm inputs yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// round1 rounds to one decimal place.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
