package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchbaan/match-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit
// testing. Round-trip behavior is covered by the SQLite tests, which run the
// same shared column lists and row mappers against a real database.
func newMockPostgresStore(t *testing.T, nativeVectors bool) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock, nativeVectors: nativeVectors, embeddingDims: 1536}
	return s, mock
}

func TestPostgresStore_GetCandidate_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t, true)

	mock.ExpectQuery(`SELECT .+ FROM candidates WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetCandidate(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindCandidateByEmail_NoRows(t *testing.T) {
	s, mock := newMockPostgresStore(t, true)

	mock.ExpectQuery(`SELECT .+ FROM candidates WHERE email = \$1 AND id <> \$2`).
		WithArgs("jan@example.nl", int64(7)).
		WillReturnError(pgx.ErrNoRows)

	c, err := s.FindCandidateByEmail(context.Background(), "jan@example.nl", 7)
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateCandidate_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t, true)

	mock.ExpectExec(`UPDATE candidates SET`).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			int64(4242),
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	c := &model.Candidate{ID: 4242, FullName: "Niemand", Status: model.CandidateQueued}
	err := s.UpdateCandidate(context.Background(), c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertVacancy_ReturnsCreatedFlag(t *testing.T) {
	s, mock := newMockPostgresStore(t, true)

	createdAt := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`INSERT INTO vacancies .+ ON CONFLICT \(external_id\) DO UPDATE`).
		WithArgs("VAC-001", "Verpleegkundige", "Zorggroep Midden", "Utrecht", "3511 AD",
			"https://vacatures.example.nl/VAC-001", "Omschrijving.", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "active", "created_at", "created"}).
			AddRow(int64(7), false, createdAt, true))

	v := &model.Vacancy{
		ExternalID:   "VAC-001",
		Title:        "Verpleegkundige",
		Organization: "Zorggroep Midden",
		City:         "Utrecht",
		PostalCode:   "3511 AD",
		URL:          "https://vacatures.example.nl/VAC-001",
		Description:  "Omschrijving.",
	}
	created, err := s.UpsertVacancy(context.Background(), v)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(7), v.ID)
	assert.False(t, v.Active)
	assert.Equal(t, createdAt, v.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeactivateVacanciesExcept(t *testing.T) {
	s, mock := newMockPostgresStore(t, true)

	mock.ExpectExec(`UPDATE vacancies SET active = FALSE, updated_at = \$1 WHERE active AND NOT \(external_id = ANY\(\$2\)\)`).
		WithArgs(pgxmock.AnyArg(), []string{"VAC-001", "VAC-002"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	n, err := s.DeactivateVacanciesExcept(context.Background(), []string{"VAC-001", "VAC-002"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetEmbedding_NativeVector(t *testing.T) {
	s, mock := newMockPostgresStore(t, true)

	mock.ExpectExec(`UPDATE candidates SET embedding = \$1::vector`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.SetCandidateEmbedding(context.Background(), 3, []float32{0.25, -0.5})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetEmbedding_JSONText(t *testing.T) {
	s, mock := newMockPostgresStore(t, false)

	mock.ExpectExec(`UPDATE vacancies SET embedding = \$1, updated_at = \$2`).
		WithArgs("[0.25,-0.5]", pgxmock.AnyArg(), int64(9)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.SetVacancyEmbedding(context.Background(), 9, []float32{0.25, -0.5})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetEmbedding_FallsBackOnVectorTypeError(t *testing.T) {
	s, mock := newMockPostgresStore(t, true)

	// Column is TEXT because the schema was migrated before the extension
	// existed: the vector write fails and the JSON write takes over.
	mock.ExpectExec(`UPDATE candidates SET embedding = \$1::vector`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), int64(3)).
		WillReturnError(&pgconn.PgError{Code: "42704", Message: `type "vector" does not exist`})
	mock.ExpectExec(`UPDATE candidates SET embedding = \$1, updated_at = \$2`).
		WithArgs("[0.25,-0.5]", pgxmock.AnyArg(), int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.SetCandidateEmbedding(context.Background(), 3, []float32{0.25, -0.5})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetMatchDistance_NullKeepsComputed(t *testing.T) {
	s, mock := newMockPostgresStore(t, true)

	mock.ExpectExec(`UPDATE matches SET distance_km = \$1, distance_computed = TRUE`).
		WithArgs(nil, int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.SetMatchDistance(context.Background(), 5, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceMatches_Transactional(t *testing.T) {
	s, mock := newMockPostgresStore(t, true)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM matches`).
		WillReturnResult(pgxmock.NewResult("DELETE", 250))
	mock.ExpectCopyFrom(pgx.Identifier{"matches"},
		[]string{"candidate_id", "vacancy_id", "score", "created_at"}).
		WillReturnResult(2)
	mock.ExpectCommit()
	mock.ExpectRollback()

	err := s.ReplaceMatches(context.Background(), []model.Match{
		{CandidateID: 1, VacancyID: 10, Score: 87.5},
		{CandidateID: 1, VacancyID: 11, Score: 61.2},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceMatches_EmptySkipsCopy(t *testing.T) {
	s, mock := newMockPostgresStore(t, true)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM matches`).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))
	mock.ExpectCommit()
	mock.ExpectRollback()

	err := s.ReplaceMatches(context.Background(), nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreatePrompt_VersionsAndActivates(t *testing.T) {
	s, mock := newMockPostgresStore(t, true)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(version\), 0\) \+ 1 FROM prompts`).
		WithArgs("cv_extract").
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(3))
	mock.ExpectExec(`UPDATE prompts SET active = FALSE WHERE prompt_type = \$1 AND active`).
		WithArgs("cv_extract").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`INSERT INTO prompts`).
		WithArgs("cv_extract", 3, "Nieuwe prompt inhoud", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectCommit()
	mock.ExpectRollback()

	p, err := s.CreatePrompt(context.Background(), model.PromptCVExtract, "Nieuwe prompt inhoud", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(9), p.ID)
	assert.Equal(t, 3, p.Version)
	assert.True(t, p.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate_NativeVectorColumn(t *testing.T) {
	s, mock := newMockPostgresStore(t, false)

	mock.ExpectExec(`CREATE EXTENSION IF NOT EXISTS vector`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM pg_type WHERE typname = 'vector'\)`).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`embedding\s+vector\(1536\)`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.True(t, s.nativeVectors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate_TextFallback(t *testing.T) {
	s, mock := newMockPostgresStore(t, false)

	mock.ExpectExec(`CREATE EXTENSION IF NOT EXISTS vector`).
		WillReturnError(&pgconn.PgError{Code: "42501", Message: "permission denied"})
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM pg_type WHERE typname = 'vector'\)`).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`embedding\s+TEXT`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.False(t, s.nativeVectors)
	assert.NoError(t, mock.ExpectationsWereMet())
}
