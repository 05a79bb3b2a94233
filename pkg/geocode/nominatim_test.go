package geocode

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeocodeNominatim_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Amsterdam", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "nl", r.URL.Query().Get("countrycodes"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"lat": "52.3676", "lon": "4.9041", "display_name": "Amsterdam, Noord-Holland, Nederland"}]`)
	}))
	defer srv.Close()

	g := newTestGeocoder(srv.URL, srv.URL)
	result, err := g.geocodeNominatim(context.Background(), "Amsterdam")
	require.NoError(t, err)

	assert.True(t, result.Matched)
	assert.Equal(t, "nominatim", result.Source)
	assert.InDelta(t, 52.3676, result.Latitude, 0.0001)
	assert.InDelta(t, 4.9041, result.Longitude, 0.0001)
}

func TestGeocodeNominatim_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	g := newTestGeocoder(srv.URL, srv.URL)
	result, err := g.geocodeNominatim(context.Background(), "Nergenshuizen")
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, "nominatim", result.Source)
}

func TestGeocodeNominatim_BadCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"lat": "not-a-number", "lon": "4.9041"}]`)
	}))
	defer srv.Close()

	g := newTestGeocoder(srv.URL, srv.URL)
	_, err := g.geocodeNominatim(context.Background(), "Amsterdam")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse lat")
}
