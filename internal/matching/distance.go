package matching

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/matchbaan/match-cli/internal/model"
	"github.com/matchbaan/match-cli/internal/store"
	"github.com/matchbaan/match-cli/pkg/geocode"
)

const earthRadiusKM = 6371

// Backfill adds straight-line distances to matches the engine created.
// Distance is attempted once per match: rows where either side has no
// resolvable location get a definitive null and are not revisited.
type Backfill struct {
	store    store.Store
	geocoder geocode.Client
}

// NewBackfill creates a Backfill using the given geocoder for vacancy
// locations. Candidate locations come from the pipeline and are never
// geocoded here.
func NewBackfill(st store.Store, geocoder geocode.Client) *Backfill {
	return &Backfill{store: st, geocoder: geocoder}
}

// BackfillResult reports one backfill pass.
type BackfillResult struct {
	Processed  int `json:"processed"`
	Computed   int `json:"computed"`
	NoLocation int `json:"no_location"`
}

// Run visits every match with distance_computed=false. Vacancy coordinates
// are cached on the vacancy row after the first successful geocode, so later
// passes and sibling matches reuse them. A second run directly after a
// completed one finds nothing to do.
func (b *Backfill) Run(ctx context.Context) (*BackfillResult, error) {
	matches, err := b.store.MatchesWithoutDistance(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "matching: load matches without distance")
	}

	res := &BackfillResult{}
	candidates := make(map[int64]*model.Candidate)
	vacancies := make(map[int64]*model.Vacancy)
	unresolvable := make(map[int64]bool)

	for i := range matches {
		m := &matches[i]
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Processed++

		c, ok := candidates[m.CandidateID]
		if !ok {
			c, err = b.store.GetCandidate(ctx, m.CandidateID)
			if err != nil {
				return res, eris.Wrapf(err, "matching: load candidate %d", m.CandidateID)
			}
			candidates[m.CandidateID] = c
		}
		if !c.HasLocation() {
			if err := b.markNoDistance(ctx, m.ID); err != nil {
				return res, err
			}
			res.NoLocation++
			continue
		}

		v, ok := vacancies[m.VacancyID]
		if !ok {
			v, err = b.store.GetVacancy(ctx, m.VacancyID)
			if err != nil {
				return res, eris.Wrapf(err, "matching: load vacancy %d", m.VacancyID)
			}
			vacancies[m.VacancyID] = v
		}
		if !v.HasLocation() && !unresolvable[v.ID] {
			if !b.locateVacancy(ctx, v) {
				unresolvable[v.ID] = true
			}
		}
		if !v.HasLocation() {
			if err := b.markNoDistance(ctx, m.ID); err != nil {
				return res, err
			}
			res.NoLocation++
			continue
		}

		km := round1(HaversineKM(*c.Lat, *c.Lon, *v.Lat, *v.Lon))
		if err := b.store.SetMatchDistance(ctx, m.ID, &km); err != nil {
			return res, eris.Wrapf(err, "matching: set distance for match %d", m.ID)
		}
		res.Computed++
	}

	zap.L().Info("matching: distance backfill complete",
		zap.Int("processed", res.Processed),
		zap.Int("computed", res.Computed),
		zap.Int("no_location", res.NoLocation),
	)
	return res, nil
}

// locateVacancy geocodes a vacancy by postal code and city and caches the
// result on the vacancy row. Returns false when the place is unresolvable;
// provider errors count as unresolvable for this pass.
func (b *Backfill) locateVacancy(ctx context.Context, v *model.Vacancy) bool {
	if v.PostalCode == "" && v.City == "" {
		return false
	}

	loc, err := b.geocoder.Geocode(ctx, geocode.AddressInput{
		PostalCode: v.PostalCode,
		City:       v.City,
	})
	if err != nil {
		zap.L().Warn("matching: vacancy geocoding failed",
			zap.Int64("vacancy_id", v.ID),
			zap.Error(err),
		)
		return false
	}
	if !loc.Matched {
		zap.L().Info("matching: vacancy location not found",
			zap.Int64("vacancy_id", v.ID),
			zap.String("postal_code", v.PostalCode),
			zap.String("city", v.City),
		)
		return false
	}

	if err := b.store.SetVacancyLocation(ctx, v.ID, loc.Latitude, loc.Longitude); err != nil {
		zap.L().Warn("matching: save vacancy location failed",
			zap.Int64("vacancy_id", v.ID),
			zap.Error(err),
		)
	}
	lat, lon := loc.Latitude, loc.Longitude
	v.Lat, v.Lon = &lat, &lon
	return true
}

func (b *Backfill) markNoDistance(ctx context.Context, matchID int64) error {
	if err := b.store.SetMatchDistance(ctx, matchID, nil); err != nil {
		return eris.Wrapf(err, "matching: mark match %d without distance", matchID)
	}
	return nil
}

// HaversineKM returns the great-circle distance in kilometers between two
// WGS84 coordinates.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}
