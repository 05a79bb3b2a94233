// Package api exposes the matching pipeline over HTTP: candidate uploads,
// vacancy sync and enrichment, match runs, and prompt management. Handlers
// run the same pipeline code as the CLI commands; errors from the taxonomy
// in internal/resilience map onto HTTP status codes.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/matchbaan/match-cli/internal/feed"
	"github.com/matchbaan/match-cli/internal/filestore"
	"github.com/matchbaan/match-cli/internal/matching"
	"github.com/matchbaan/match-cli/internal/pipeline"
	"github.com/matchbaan/match-cli/internal/prompts"
	"github.com/matchbaan/match-cli/internal/resilience"
	"github.com/matchbaan/match-cli/internal/store"
)

// maxUploadBytes caps a single CV upload.
const maxUploadBytes = 20 << 20

// Deps holds everything the handlers need. Pipeline must be non-nil; the
// serve command guarantees that by validating the OpenAI key up front.
type Deps struct {
	Store    store.Store
	Files    *filestore.Store
	Pipeline *pipeline.Pipeline
	Engine   *matching.Engine
	Backfill *matching.Backfill
	Syncer   *feed.Syncer
	Prompts  *prompts.Manager
}

// API carries the handler dependencies.
type API struct {
	store    store.Store
	files    *filestore.Store
	pipeline *pipeline.Pipeline
	engine   *matching.Engine
	backfill *matching.Backfill
	syncer   *feed.Syncer
	prompts  *prompts.Manager
}

// New creates an API from its dependencies.
func New(d Deps) *API {
	return &API{
		store:    d.Store,
		files:    d.Files,
		pipeline: d.Pipeline,
		engine:   d.Engine,
		backfill: d.Backfill,
		syncer:   d.Syncer,
		prompts:  d.Prompts,
	}
}

// NewRouter builds the chi router with all routes and middleware attached.
func NewRouter(a *API) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", a.health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/candidates", func(r chi.Router) {
			r.Post("/", a.uploadCandidate)
			r.Get("/", a.listCandidates)
			r.Get("/{id}", a.getCandidate)
			r.Delete("/{id}", a.deleteCandidate)
			r.Post("/{id}/reprocess", a.reprocessCandidate)
		})
		r.Route("/vacancies", func(r chi.Router) {
			r.Get("/", a.listVacancies)
			r.Post("/sync", a.syncVacancies)
			r.Post("/{id}/process", a.processVacancy)
		})
		r.Route("/matches", func(r chi.Router) {
			r.Get("/", a.listMatches)
			r.Post("/run", a.runMatches)
			r.Post("/distances", a.backfillDistances)
		})
		r.Route("/prompts", func(r chi.Router) {
			r.Get("/", a.listPrompts)
			r.Post("/", a.createPrompt)
			r.Post("/{id}/activate", a.activatePrompt)
		})
	})

	return r
}

// health reports store reachability and whether an LLM is configured.
func (a *API) health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":            "ok",
		"database":          "ok",
		"openai_configured": a.pipeline != nil,
	}
	code := http.StatusOK
	if err := a.store.Ping(r.Context()); err != nil {
		resp["status"] = "degraded"
		resp["database"] = "unreachable"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// requestLogger logs one line per request with the chi request id.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// writeJSON writes v as a JSON response body.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

// writeError maps an error onto an HTTP status using the resilience taxonomy
// and writes a JSON error body. Duplicates carry the existing candidate id so
// clients can link to it.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeErrorWith(w, r, err, nil)
}

// writeErrorWith is writeError with extra body fields merged in (e.g. the id
// of the candidate a failed upload created).
func writeErrorWith(w http.ResponseWriter, r *http.Request, err error, extra map[string]any) {
	body := map[string]any{"error": err.Error()}

	var (
		ve *resilience.ValidationError
		de *resilience.DuplicateError
		xe *resilience.ExtractionError
		se *resilience.ServiceError
	)

	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		code = http.StatusNotFound
		body["error"] = "Niet gevonden"
	case errors.As(err, &ve):
		code = http.StatusBadRequest
		body["error"] = ve.Msg
	case errors.As(err, &de):
		code = http.StatusConflict
		body["error"] = de.Error()
		body["existing_id"] = de.ExistingID
	case errors.As(err, &xe):
		code = http.StatusUnprocessableEntity
	case errors.As(err, &se):
		code = http.StatusBadGateway
	}

	if code >= http.StatusInternalServerError {
		zap.L().Error("api: request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		body["error"] = "Interne fout"
	}

	for k, v := range extra {
		body[k] = v
	}

	writeJSON(w, code, body)
}

// pathID parses the {id} route parameter.
func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, resilience.NewValidationError("Ongeldig id: %s", raw)
	}
	return id, nil
}

// queryLimit parses the ?limit= parameter, falling back to def.
func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
