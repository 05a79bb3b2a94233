package api

import (
	"net/http"

	"github.com/matchbaan/match-cli/internal/store"
)

// listMatches returns ranked matches with candidate and vacancy details.
func (a *API) listMatches(w http.ResponseWriter, r *http.Request) {
	list, err := a.store.ListMatches(r.Context(), store.MatchFilter{
		Limit: queryLimit(r, 100),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"matches": list,
		"count":   len(list),
	})
}

// runMatches recomputes the full match table.
func (a *API) runMatches(w http.ResponseWriter, r *http.Request) {
	res, err := a.engine.Run(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// backfillDistances computes travel distances for matches that lack one.
func (a *API) backfillDistances(w http.ResponseWriter, r *http.Request) {
	res, err := a.backfill.Run(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
