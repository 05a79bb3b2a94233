package geocode

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/time/rate"
)

// newTestLimiter creates a rate limiter that effectively does not limit for tests.
func newTestLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

func newTestGeocoder(pdokURL, nominatimURL string) *geocoder {
	return &geocoder{
		httpClient:       http.DefaultClient,
		userAgent:        defaultUserAgent,
		limiter:          newTestLimiter(),
		pdokBaseURL:      pdokURL,
		nominatimBaseURL: nominatimURL,
	}
}

const pdokMatchJSON = `{
	"response": {
		"numFound": 1,
		"docs": [{
			"weergavenaam": "Utrecht, Utrecht",
			"centroide_ll": "POINT(5.1214 52.0907)"
		}]
	}
}`

const pdokEmptyJSON = `{"response": {"numFound": 0, "docs": []}}`

func TestGeocode_PDOKFirst(t *testing.T) {
	var nominatimCalls int
	pdok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, pdokMatchJSON)
	}))
	defer pdok.Close()
	nominatim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		nominatimCalls++
		_, _ = io.WriteString(w, `[]`)
	}))
	defer nominatim.Close()

	g := newTestGeocoder(pdok.URL, nominatim.URL)
	result, err := g.Geocode(context.Background(), AddressInput{PostalCode: "3511 AD", City: "Utrecht"})
	require.NoError(t, err)

	assert.True(t, result.Matched)
	assert.Equal(t, "pdok", result.Source)
	assert.InDelta(t, 52.0907, result.Latitude, 0.0001)
	assert.InDelta(t, 5.1214, result.Longitude, 0.0001)
	assert.Zero(t, nominatimCalls)
}

func TestGeocode_FallsBackToNominatim(t *testing.T) {
	var pdokCalls int
	pdok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		pdokCalls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, pdokEmptyJSON)
	}))
	defer pdok.Close()
	nominatim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"lat": "52.3676", "lon": "4.9041", "display_name": "Amsterdam"}]`)
	}))
	defer nominatim.Close()

	g := newTestGeocoder(pdok.URL, nominatim.URL)
	result, err := g.Geocode(context.Background(), AddressInput{
		Street: "Damrak", HouseNumber: "1", PostalCode: "1012 LG", City: "Amsterdam",
	})
	require.NoError(t, err)

	// All three candidates go through PDOK before the fallback provider runs.
	assert.Equal(t, 3, pdokCalls)
	assert.True(t, result.Matched)
	assert.Equal(t, "nominatim", result.Source)
	assert.InDelta(t, 52.3676, result.Latitude, 0.0001)
	assert.InDelta(t, 4.9041, result.Longitude, 0.0001)
}

func TestGeocode_ProviderErrorFallsThrough(t *testing.T) {
	pdok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer pdok.Close()
	nominatim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"lat": "51.9244", "lon": "4.4777", "display_name": "Rotterdam"}]`)
	}))
	defer nominatim.Close()

	g := newTestGeocoder(pdok.URL, nominatim.URL)
	result, err := g.Geocode(context.Background(), AddressInput{PostalCode: "3011 AD", City: "Rotterdam"})
	require.NoError(t, err)

	assert.True(t, result.Matched)
	assert.Equal(t, "nominatim", result.Source)
}

func TestGeocode_AllProvidersMiss(t *testing.T) {
	pdok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, pdokEmptyJSON)
	}))
	defer pdok.Close()
	nominatim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}))
	defer nominatim.Close()

	g := newTestGeocoder(pdok.URL, nominatim.URL)
	result, err := g.Geocode(context.Background(), AddressInput{PostalCode: "9999 ZZ", City: "Nergenshuizen"})
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestGeocode_EmptyAddress(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = io.WriteString(w, pdokEmptyJSON)
	}))
	defer srv.Close()

	g := newTestGeocoder(srv.URL, srv.URL)
	result, err := g.Geocode(context.Background(), AddressInput{})
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Zero(t, calls)
}

func TestGeocode_InfersPostalCode(t *testing.T) {
	var freeQueries []string
	pdok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/suggest":
			_, _ = io.WriteString(w, `{"response": {"numFound": 1, "docs": [{"weergavenaam": "Oudezijds Kolk, 1012 AL Amsterdam"}]}}`)
		case "/free":
			freeQueries = append(freeQueries, r.URL.Query().Get("q"))
			_, _ = io.WriteString(w, pdokMatchJSON)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer pdok.Close()

	g := newTestGeocoder(pdok.URL, pdok.URL)
	result, err := g.Geocode(context.Background(), AddressInput{City: "Amsterdam"})
	require.NoError(t, err)

	assert.True(t, result.Matched)
	require.NotEmpty(t, freeQueries)
	assert.Equal(t, "1012 AL Amsterdam", freeQueries[0])
}

func TestBuildQueries(t *testing.T) {
	tests := []struct {
		name     string
		addr     AddressInput
		postal   string
		expected []string
	}{
		{
			name:   "full address",
			addr:   AddressInput{Street: "Damrak", HouseNumber: "1", City: "Amsterdam"},
			postal: "1012 LG",
			expected: []string{
				"1012 LG Amsterdam",
				"Amsterdam",
				"Damrak 1, 1012 LG Amsterdam",
			},
		},
		{
			name:     "city only",
			addr:     AddressInput{City: "Utrecht"},
			expected: []string{"Utrecht"},
		},
		{
			name:     "postal and city",
			addr:     AddressInput{City: "Utrecht"},
			postal:   "3511 AD",
			expected: []string{"3511 AD Utrecht", "Utrecht"},
		},
		{
			name:     "street without city",
			addr:     AddressInput{Street: "Hoofdstraat", HouseNumber: "12"},
			expected: []string{"Hoofdstraat 12"},
		},
		{
			name:     "street with city no postal",
			addr:     AddressInput{Street: "Hoofdstraat", City: "Zwolle"},
			expected: []string{"Zwolle", "Hoofdstraat, Zwolle"},
		},
		{
			name:     "empty",
			addr:     AddressInput{},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildQueries(tt.addr, tt.postal))
		})
	}
}
