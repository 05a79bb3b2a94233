package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/matchbaan/match-cli/internal/config"
	"github.com/matchbaan/match-cli/internal/filestore"
	"github.com/matchbaan/match-cli/internal/model"
	"github.com/matchbaan/match-cli/internal/prompts"
	"github.com/matchbaan/match-cli/internal/store"
	"github.com/matchbaan/match-cli/pkg/geocode"
	"github.com/matchbaan/match-cli/pkg/openai"
)

// testEnv wires a Pipeline against a real SQLite store and mocked external
// services. MaxAttempts is 1 so failing calls never sleep a retry backoff.
type testEnv struct {
	p     *Pipeline
	store *store.SQLiteStore
	llm   *mockLLM
	geo   *mockGeocoder
	ocr   *mockExtractor
	files *filestore.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	cfg := &config.Config{
		Pipeline: config.PipelineConfig{CVTextLimit: 4000, MaxAttempts: 1, BulkDelayMs: 1},
		Matching: config.MatchingConfig{EmbeddingDims: 3},
	}
	llm := &mockLLM{dims: 3}
	geo := &mockGeocoder{}
	ex := &mockExtractor{}
	files := filestore.New(filepath.Join(t.TempDir(), "uploads"))

	return &testEnv{
		p:     New(cfg, st, files, ex, llm, geo, prompts.NewManager(st)),
		store: st,
		llm:   llm,
		geo:   geo,
		ocr:   ex,
		files: files,
	}
}

// seedCandidate inserts a candidate ready for processing.
func (e *testEnv) seedCandidate(t *testing.T, mutate func(*model.Candidate)) *model.Candidate {
	t.Helper()
	c := &model.Candidate{
		FilePath:         "/tmp/does-not-matter.pdf",
		OriginalFilename: "cv.pdf",
		Status:           model.CandidateQueued,
	}
	if mutate != nil {
		mutate(c)
	}
	require.NoError(t, e.store.CreateCandidate(context.Background(), c))
	return c
}

func (e *testEnv) getCandidate(t *testing.T, id int64) *model.Candidate {
	t.Helper()
	c, err := e.store.GetCandidate(context.Background(), id)
	require.NoError(t, err)
	return c
}

// extractionJSON builds a canned LLM extraction response.
func extractionJSON(name, email string) string {
	return fmt.Sprintf(`{"volledige_naam": %q, "email": %q, "telefoonnummer": "+31612345678", "straat": "Hoofdstraat", "huisnummer": "12", "postcode": "3511 AD", "woonplaats": "Utrecht", "opleidingsniveau": "hbo bachelor", "functietitels": ["Verpleegkundige", "Teamleider"], "jaren_ervaring": 5}`, name, email)
}

// Completion matchers keyed on the fixed system message per call type.

func isParseRequest(req openai.CompletionRequest) bool {
	return strings.Contains(req.System, "extraheren")
}

func isProfileSummaryRequest(req openai.CompletionRequest) bool {
	return strings.Contains(req.System, "profiel samenvattingen")
}

func isVacancySummaryRequest(req openai.CompletionRequest) bool {
	return strings.Contains(req.System, "vacature samenvattingen")
}

func (e *testEnv) onParse(match func(openai.CompletionRequest) bool) *mock.Call {
	if match == nil {
		match = func(openai.CompletionRequest) bool { return true }
	}
	return e.llm.On("Complete", mock.Anything, mock.MatchedBy(func(req openai.CompletionRequest) bool {
		return isParseRequest(req) && match(req)
	}))
}

func (e *testEnv) onSummary(match func(openai.CompletionRequest) bool) *mock.Call {
	if match == nil {
		match = func(openai.CompletionRequest) bool { return true }
	}
	return e.llm.On("Complete", mock.Anything, mock.MatchedBy(func(req openai.CompletionRequest) bool {
		return isProfileSummaryRequest(req) && match(req)
	}))
}

// expectNoLocation makes every geocode call miss.
func (e *testEnv) expectNoLocation() {
	e.geo.On("Geocode", mock.Anything, mock.Anything).Return(&geocode.Result{Matched: false}, nil)
}
