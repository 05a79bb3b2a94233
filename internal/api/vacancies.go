package api

import (
	"net/http"

	"github.com/matchbaan/match-cli/internal/store"
)

// listVacancies returns vacancies; ?active=true narrows to active ones.
func (a *API) listVacancies(w http.ResponseWriter, r *http.Request) {
	filter := store.VacancyFilter{
		ActiveOnly: r.URL.Query().Get("active") == "true",
		Limit:      queryLimit(r, 50),
	}

	list, err := a.store.ListVacancies(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"vacancies": list,
		"count":     len(list),
	})
}

// syncVacancies pulls the XML feed once and reconciles it with the store.
func (a *API) syncVacancies(w http.ResponseWriter, r *http.Request) {
	res, err := a.syncer.Sync(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// processVacancy summarizes, embeds, and activates one vacancy.
func (a *API) processVacancy(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := a.pipeline.ProcessVacancy(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	v, err := a.store.GetVacancy(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
