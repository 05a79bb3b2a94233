package api

import (
	"encoding/json"
	"net/http"

	"github.com/matchbaan/match-cli/internal/model"
	"github.com/matchbaan/match-cli/internal/resilience"
)

// listPrompts returns stored prompt versions, optionally filtered by ?type=.
func (a *API) listPrompts(w http.ResponseWriter, r *http.Request) {
	list, err := a.prompts.List(r.Context(), model.PromptType(r.URL.Query().Get("type")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"prompts": list,
		"count":   len(list),
	})
}

// createPrompt stores the posted content as the next active version of a type.
func (a *API) createPrompt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type    model.PromptType `json:"type"`
		Content string           `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, resilience.NewValidationError("Ongeldige JSON body"))
		return
	}

	p, err := a.prompts.NewVersion(r.Context(), req.Type, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// activatePrompt makes an existing version the active one for its type.
func (a *API) activatePrompt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := a.prompts.Activate(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
