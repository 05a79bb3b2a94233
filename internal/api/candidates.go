package api

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/matchbaan/match-cli/internal/model"
	"github.com/matchbaan/match-cli/internal/resilience"
	"github.com/matchbaan/match-cli/internal/store"
)

// uploadCandidate accepts a multipart PDF upload in the "file" field and runs
// the full pipeline synchronously. The response is the candidate in its final
// state: 201 on success, 409 for duplicates, and the taxonomy mapping for
// everything else. Failed uploads still create a candidate row; its id rides
// along in the error body so clients can inspect it.
func (a *API) uploadCandidate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, r, resilience.NewValidationError("Bestand te groot of ongeldig formulier (max 20MB)"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, resilience.NewValidationError("Geen bestand ontvangen (veld 'file')"))
		return
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, resilience.NewValidationError("Bestand kon niet worden gelezen"))
		return
	}

	c, procErr := a.pipeline.Ingest(r.Context(), header.Filename, data)
	if procErr != nil {
		var extra map[string]any
		if c != nil {
			extra = map[string]any{"candidate_id": c.ID}
		}
		writeErrorWith(w, r, procErr, extra)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// listCandidates returns candidates, optionally filtered by ?status=.
func (a *API) listCandidates(w http.ResponseWriter, r *http.Request) {
	filter := store.CandidateFilter{
		Status: model.CandidateStatus(r.URL.Query().Get("status")),
		Limit:  queryLimit(r, 50),
	}

	list, err := a.store.ListCandidates(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"candidates": list,
		"count":      len(list),
	})
}

func (a *API) getCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := a.store.GetCandidate(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// deleteCandidate removes the candidate row (matches cascade with it) and the
// stored CV file. File cleanup is best effort; the row is already gone.
func (a *API) deleteCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := a.store.GetCandidate(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := a.store.DeleteCandidate(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	if err := a.files.Remove(c.FilePath); err != nil {
		zap.L().Warn("api: stored file not removed",
			zap.Int64("candidate_id", id),
			zap.String("path", c.FilePath),
			zap.Error(err))
	}

	w.WriteHeader(http.StatusNoContent)
}

// reprocessCandidate reruns summarization, embedding, and geocoding from the
// stored CV text.
func (a *API) reprocessCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := a.pipeline.Reprocess(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := a.store.GetCandidate(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
