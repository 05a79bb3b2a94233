package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// postcodePattern matches a Dutch postal code inside a display name.
var postcodePattern = regexp.MustCompile(`\b\d{4}\s?[A-Z]{2}\b`)

// cityPostcodes maps major Dutch cities to a representative central postal
// code, used when the suggestion service yields nothing. Matching is by
// case-insensitive substring containment, so "Den Haag (Zuid)" still hits.
var cityPostcodes = []struct {
	city     string
	postcode string
}{
	{"amsterdam", "1012 JS"},
	{"rotterdam", "3011 AD"},
	{"den haag", "2511 CV"},
	{"'s-gravenhage", "2511 CV"},
	{"utrecht", "3511 AD"},
	{"eindhoven", "5611 AZ"},
	{"groningen", "9711 LM"},
	{"tilburg", "5011 LK"},
	{"almere", "1315 HR"},
	{"breda", "4811 AA"},
	{"nijmegen", "6511 AB"},
	{"arnhem", "6811 AB"},
	{"haarlem", "2011 VB"},
	{"maastricht", "6211 LD"},
	{"leiden", "2311 EZ"},
	{"zwolle", "8011 AA"},
}

// inferPostalCode finds a representative postal code for a city. It scans
// PDOK suggestions first and falls back to the static table of major cities.
// Returns "" when nothing matches; inference is best-effort and never fails.
func (g *geocoder) inferPostalCode(ctx context.Context, city string) string {
	docs, err := g.pdokSuggest(ctx, city)
	if err != nil {
		zap.L().Debug("geocode: postal code suggestion failed",
			zap.String("city", city),
			zap.Error(err),
		)
	}
	for _, doc := range docs {
		if code := postcodePattern.FindString(doc.Weergavenaam); code != "" {
			return code
		}
	}

	lower := strings.ToLower(strings.TrimSpace(city))
	for _, entry := range cityPostcodes {
		if strings.Contains(lower, entry.city) {
			return entry.postcode
		}
	}
	return ""
}

// pdokSuggest queries the Locatieserver suggestion endpoint.
func (g *geocoder) pdokSuggest(ctx context.Context, query string) ([]pdokDoc, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: suggest rate limit")
	}

	params := url.Values{
		"q":    {query},
		"rows": {"10"},
	}

	reqURL := g.pdokBaseURL + "/suggest?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: suggest build request")
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: suggest request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: suggest returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: suggest read body")
	}

	var suggestResp pdokResponse
	if err := json.Unmarshal(body, &suggestResp); err != nil {
		return nil, eris.Wrap(err, "geocode: suggest parse response")
	}
	return suggestResp.Response.Docs, nil
}
