package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

const (
	defaultPDOKBaseURL = "https://api.pdok.nl/bzk/locatieserver/search/v3_1"
	defaultUserAgent   = "match-cli/1.0"
)

// pdokResponse is the JSON envelope returned by the PDOK Locatieserver.
type pdokResponse struct {
	Response struct {
		NumFound int       `json:"numFound"`
		Docs     []pdokDoc `json:"docs"`
	} `json:"response"`
}

type pdokDoc struct {
	Weergavenaam string `json:"weergavenaam"`
	CentroideLL  string `json:"centroide_ll"`
}

// geocodePDOK resolves a query via the Locatieserver free-text search endpoint.
func (g *geocoder) geocodePDOK(ctx context.Context, query string) (*Result, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: pdok rate limit")
	}

	params := url.Values{
		"q":    {query},
		"rows": {"1"},
		"fl":   {"weergavenaam,centroide_ll"},
	}

	reqURL := g.pdokBaseURL + "/free?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: pdok build request")
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: pdok request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: pdok returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: pdok read body")
	}

	var pdokResp pdokResponse
	if err := json.Unmarshal(body, &pdokResp); err != nil {
		return nil, eris.Wrap(err, "geocode: pdok parse response")
	}

	if len(pdokResp.Response.Docs) == 0 {
		return &Result{Matched: false, Source: "pdok"}, nil
	}

	lon, lat, err := parsePoint(pdokResp.Response.Docs[0].CentroideLL)
	if err != nil {
		return nil, err
	}

	return &Result{
		Latitude:  lat,
		Longitude: lon,
		Source:    "pdok",
		Matched:   true,
	}, nil
}

// parsePoint parses a Locatieserver centroid, either WKT "POINT(lon lat)"
// or a bare "lon lat" pair. Longitude comes first in both forms.
func parsePoint(s string) (lon, lat float64, err error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "POINT(") {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "POINT("), ")")
	}

	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, 0, eris.Errorf("geocode: invalid centroid %q", s)
	}
	lon, err = strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, eris.Wrap(err, "geocode: parse centroid lon")
	}
	lat, err = strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, eris.Wrap(err, "geocode: parse centroid lat")
	}
	return lon, lat, nil
}
