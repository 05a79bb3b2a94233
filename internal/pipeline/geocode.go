package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/matchbaan/match-cli/internal/model"
	"github.com/matchbaan/match-cli/pkg/geocode"
)

// geocodeCandidate resolves the candidate's address to coordinates and
// persists them. It reports whether a location was saved; any failure is
// logged and treated as "no location found" so the pipeline completes.
func (p *Pipeline) geocodeCandidate(ctx context.Context, log *zap.Logger, c *model.Candidate) bool {
	if c.Street == "" && c.HouseNumber == "" && c.PostalCode == "" && c.City == "" {
		log.Info("pipeline: no address information to geocode")
		return false
	}

	res, err := p.geocoder.Geocode(ctx, geocode.AddressInput{
		Street:      c.Street,
		HouseNumber: c.HouseNumber,
		PostalCode:  c.PostalCode,
		City:        c.City,
	})
	if err != nil {
		log.Warn("pipeline: geocoding failed, continuing without location", zap.Error(err))
		return false
	}
	if !res.Matched {
		log.Info("pipeline: address not resolved",
			zap.String("postal_code", c.PostalCode),
			zap.String("city", c.City))
		return false
	}

	lat, lon := res.Latitude, res.Longitude
	c.Lat, c.Lon = &lat, &lon
	if err := p.store.UpdateCandidate(ctx, c); err != nil {
		log.Warn("pipeline: failed to save coordinates", zap.Error(err))
		c.Lat, c.Lon = nil, nil
		return false
	}

	log.Info("pipeline: candidate geocoded",
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
		zap.String("source", res.Source))
	return true
}
