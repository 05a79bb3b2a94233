package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matchbaan/match-cli/internal/model"
	"github.com/matchbaan/match-cli/pkg/geocode"
)

func TestGeocodeCandidate_NoAddressSkipsLookup(t *testing.T) {
	e := newTestEnv(t)
	c := e.seedCandidate(t, nil)

	ok := e.p.geocodeCandidate(context.Background(), zap.NewNop(), c)

	assert.False(t, ok)
	e.geo.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
}

func TestGeocodeCandidate_MatchPersistsCoordinates(t *testing.T) {
	e := newTestEnv(t)
	c := e.seedCandidate(t, func(c *model.Candidate) {
		c.Street = "Hoofdstraat"
		c.HouseNumber = "12"
		c.PostalCode = "3511 AD"
		c.City = "Utrecht"
	})
	e.geo.On("Geocode", mock.Anything, geocode.AddressInput{
		Street:      "Hoofdstraat",
		HouseNumber: "12",
		PostalCode:  "3511 AD",
		City:        "Utrecht",
	}).Return(&geocode.Result{Latitude: 52.09, Longitude: 5.12, Source: "pdok", Matched: true}, nil)

	ok := e.p.geocodeCandidate(context.Background(), zap.NewNop(), c)

	assert.True(t, ok)
	require.NotNil(t, c.Lat)
	require.NotNil(t, c.Lon)
	assert.InDelta(t, 52.09, *c.Lat, 1e-9)
	assert.InDelta(t, 5.12, *c.Lon, 1e-9)

	saved := e.getCandidate(t, c.ID)
	require.NotNil(t, saved.Lat)
	require.NotNil(t, saved.Lon)
	assert.InDelta(t, 52.09, *saved.Lat, 1e-9)
	assert.InDelta(t, 5.12, *saved.Lon, 1e-9)
}

func TestGeocodeCandidate_UnmatchedLeavesCoordinatesEmpty(t *testing.T) {
	e := newTestEnv(t)
	c := e.seedCandidate(t, func(c *model.Candidate) { c.City = "Nergenshuizen" })
	e.expectNoLocation()

	ok := e.p.geocodeCandidate(context.Background(), zap.NewNop(), c)

	assert.False(t, ok)
	assert.Nil(t, c.Lat)
	assert.Nil(t, c.Lon)
}

func TestGeocodeCandidate_SaveFailureResetsCoordinates(t *testing.T) {
	e := newTestEnv(t)
	c := e.seedCandidate(t, func(c *model.Candidate) { c.City = "Utrecht" })
	e.geo.On("Geocode", mock.Anything, mock.Anything).
		Return(&geocode.Result{Latitude: 52.09, Longitude: 5.12, Source: "nominatim", Matched: true}, nil)
	require.NoError(t, e.store.Close())

	ok := e.p.geocodeCandidate(context.Background(), zap.NewNop(), c)

	assert.False(t, ok)
	assert.Nil(t, c.Lat)
	assert.Nil(t, c.Lon)
}
