// Package feed syncs the external vacancy XML feed into the store. Vacancies
// absent from a sync are deactivated, never deleted, so existing matches keep
// their referents.
package feed

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/matchbaan/match-cli/internal/model"
	"github.com/matchbaan/match-cli/internal/resilience"
	"github.com/matchbaan/match-cli/internal/store"
)

const userAgent = "match-cli/1.0"

// Syncer pulls the vacancy feed and reconciles it with the store.
type Syncer struct {
	store  store.Store
	client *http.Client
	url    string
}

// NewSyncer creates a Syncer for the given feed URL. A nil client gets a
// default with a 30 second timeout.
func NewSyncer(st store.Store, client *http.Client, url string) *Syncer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Syncer{store: st, client: client, url: url}
}

// SyncResult reports one feed pass.
type SyncResult struct {
	RunID       string `json:"run_id"`
	Added       int    `json:"added"`
	Updated     int    `json:"updated"`
	Deactivated int    `json:"deactivated"`
	Skipped     int    `json:"skipped"`
}

// Sync fetches the feed and upserts every record carrying an external id.
// New vacancies start inactive until the vacancy pipeline enriches them;
// existing ones keep their embedding unless the description changed. Records
// without an id are counted and skipped. Vacancies missing from the feed are
// deactivated afterward, but only when the whole document decoded cleanly.
func (s *Syncer) Sync(ctx context.Context) (*SyncResult, error) {
	if s.url == "" {
		return nil, resilience.NewValidationError("Geen feed URL geconfigureerd")
	}

	res := &SyncResult{RunID: uuid.New().String()}
	log := zap.L().With(zap.String("run_id", res.RunID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "feed: create request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, resilience.NewServiceError("feed", 0, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.NewServiceError("feed", resp.StatusCode,
			eris.Errorf("unexpected status from %s", s.url))
	}

	var seen []string
	records, errs := streamRecords(ctx, resp.Body)
	for rec := range records {
		externalID := strings.TrimSpace(rec.ExternalID)
		if externalID == "" {
			res.Skipped++
			log.Warn("feed: record without id skipped", zap.String("title", rec.Title))
			continue
		}

		v := &model.Vacancy{
			ExternalID:   externalID,
			Title:        strings.TrimSpace(rec.Title),
			Organization: strings.TrimSpace(rec.Organization),
			City:         strings.TrimSpace(rec.City),
			PostalCode:   strings.TrimSpace(rec.PostalCode),
			URL:          strings.TrimSpace(rec.URL),
			Description:  strings.TrimSpace(rec.Description),
		}
		created, err := s.store.UpsertVacancy(ctx, v)
		if err != nil {
			return res, eris.Wrapf(err, "feed: upsert vacancy %s", externalID)
		}
		seen = append(seen, externalID)
		if created {
			res.Added++
		} else {
			res.Updated++
		}
	}
	// A truncated or malformed document must not deactivate the vacancies
	// it failed to mention.
	if err := <-errs; err != nil {
		return res, err
	}

	res.Deactivated, err = s.store.DeactivateVacanciesExcept(ctx, seen)
	if err != nil {
		return res, eris.Wrap(err, "feed: deactivate absent vacancies")
	}

	log.Info("feed: sync complete",
		zap.Int("added", res.Added),
		zap.Int("updated", res.Updated),
		zap.Int("deactivated", res.Deactivated),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}
