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

func TestGeocodePDOK_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/free", r.URL.Path)
		assert.Equal(t, "3511 AD Utrecht", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("rows"))
		assert.Equal(t, "weergavenaam,centroide_ll", r.URL.Query().Get("fl"))
		assert.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, pdokMatchJSON)
	}))
	defer srv.Close()

	g := newTestGeocoder(srv.URL, srv.URL)
	result, err := g.geocodePDOK(context.Background(), "3511 AD Utrecht")
	require.NoError(t, err)

	assert.True(t, result.Matched)
	assert.Equal(t, "pdok", result.Source)
	assert.InDelta(t, 52.0907, result.Latitude, 0.0001)
	assert.InDelta(t, 5.1214, result.Longitude, 0.0001)
}

func TestGeocodePDOK_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, pdokEmptyJSON)
	}))
	defer srv.Close()

	g := newTestGeocoder(srv.URL, srv.URL)
	result, err := g.geocodePDOK(context.Background(), "Nergenshuizen")
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, "pdok", result.Source)
}

func TestGeocodePDOK_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := newTestGeocoder(srv.URL, srv.URL)
	_, err := g.geocodePDOK(context.Background(), "Utrecht")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestParsePoint(t *testing.T) {
	tests := []struct {
		input   string
		lon     float64
		lat     float64
		wantErr bool
	}{
		{input: "POINT(5.1214 52.0907)", lon: 5.1214, lat: 52.0907},
		{input: "5.1214 52.0907", lon: 5.1214, lat: 52.0907},
		{input: "  POINT(4.9041 52.3676)  ", lon: 4.9041, lat: 52.3676},
		{input: "", wantErr: true},
		{input: "POINT(5.1214)", wantErr: true},
		{input: "POINT(a b)", wantErr: true},
		{input: "1 2 3", wantErr: true},
	}

	for _, tt := range tests {
		lon, lat, err := parsePoint(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.InDelta(t, tt.lon, lon, 0.0001)
		assert.InDelta(t, tt.lat, lat, 0.0001)
	}
}
